package appointment

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/hackgods/clinic-scheduling/internal/notify"
	"github.com/hackgods/clinic-scheduling/internal/patient"
	"github.com/hackgods/clinic-scheduling/internal/professional"
	redisclient "github.com/hackgods/clinic-scheduling/internal/redis"
	"github.com/hackgods/clinic-scheduling/internal/schedule"
)

// memRepo enforces the occupied-slot uniqueness the way the partial index does.
type memRepo struct {
	mu      sync.Mutex
	items   map[uuid.UUID]*Appointment
	events  []EventLog
	failAll error
}

func newMemRepo() *memRepo {
	return &memRepo{items: make(map[uuid.UUID]*Appointment)}
}

func (r *memRepo) clash(a Appointment) bool {
	if !a.State.Occupies() {
		return false
	}
	for _, other := range r.items {
		if other.ID != a.ID && other.DeletedAt == nil && other.State.Occupies() &&
			other.ProfessionalID == a.ProfessionalID && other.Date.Equal(a.Date) && other.Time == a.Time {
			return true
		}
	}
	return false
}

func (r *memRepo) FindConflicting(_ context.Context, professionalID uuid.UUID, date time.Time, at schedule.Clock, excludeID *uuid.UUID) (*Appointment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failAll != nil {
		return nil, r.failAll
	}
	for _, a := range r.items {
		if excludeID != nil && a.ID == *excludeID {
			continue
		}
		if a.DeletedAt == nil && a.State.Occupies() && a.ProfessionalID == professionalID && a.Date.Equal(date) && a.Time == at {
			cp := *a
			return &cp, nil
		}
	}
	return nil, ErrAppointmentNotFound
}

func (r *memRepo) FindByProfessionalAndDate(_ context.Context, professionalID uuid.UUID, date time.Time, states []State) ([]Appointment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failAll != nil {
		return nil, r.failAll
	}
	var out []Appointment
	for _, a := range r.items {
		if a.DeletedAt != nil || a.ProfessionalID != professionalID || !a.Date.Equal(date) {
			continue
		}
		for _, st := range states {
			if a.State == st {
				out = append(out, *a)
				break
			}
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Time < out[j].Time })
	return out, nil
}

func (r *memRepo) GetByID(_ context.Context, id uuid.UUID, includeDeleted bool) (*Appointment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failAll != nil {
		return nil, r.failAll
	}
	a, ok := r.items[id]
	if !ok || (!includeDeleted && a.DeletedAt != nil) {
		return nil, ErrAppointmentNotFound
	}
	cp := *a
	return &cp, nil
}

func (r *memRepo) List(_ context.Context, f ListFilter) ([]Appointment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failAll != nil {
		return nil, r.failAll
	}
	var out []Appointment
	for _, a := range r.items {
		switch {
		case !f.IncludeDeleted && a.DeletedAt != nil:
		case f.Date != nil && !a.Date.Equal(*f.Date):
		case f.ProfessionalID != nil && a.ProfessionalID != *f.ProfessionalID:
		case f.PatientID != nil && a.PatientID != *f.PatientID:
		case f.State != nil && a.State != *f.State:
		default:
			out = append(out, *a)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].Date.Equal(out[j].Date) {
			return out[i].Date.After(out[j].Date)
		}
		return out[i].Time > out[j].Time
	})
	if f.Offset >= len(out) {
		return nil, nil
	}
	out = out[f.Offset:]
	if f.Limit > 0 && len(out) > f.Limit {
		out = out[:f.Limit]
	}
	return out, nil
}

func (r *memRepo) Insert(_ context.Context, a Appointment) (*Appointment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failAll != nil {
		return nil, r.failAll
	}
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	if r.clash(a) {
		return nil, ErrSlotTaken
	}
	a.CreatedAt = time.Now()
	a.UpdatedAt = a.CreatedAt
	r.items[a.ID] = &a
	cp := a
	return &cp, nil
}

func (r *memRepo) Update(_ context.Context, prev, a Appointment) (*Appointment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failAll != nil {
		return nil, r.failAll
	}
	current, ok := r.items[a.ID]
	if !ok || current.DeletedAt != nil {
		return nil, ErrAppointmentNotFound
	}
	if current.State != prev.State || !current.Date.Equal(prev.Date) || current.Time != prev.Time {
		return nil, ErrStaleAppointment
	}
	if r.clash(a) {
		return nil, ErrSlotTaken
	}
	current.Date, current.Time, current.State = a.Date, a.Time, a.State
	current.UpdatedAt = time.Now()
	cp := *current
	return &cp, nil
}

func (r *memRepo) SoftDelete(_ context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.items[id]
	if !ok || a.DeletedAt != nil {
		return ErrAppointmentNotFound
	}
	now := time.Now()
	a.DeletedAt = &now
	return nil
}

func (r *memRepo) InsertEvent(_ context.Context, ev EventLog) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, ev)
	return nil
}

func (r *memRepo) eventTypes() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, 0, len(r.events))
	for _, ev := range r.events {
		out = append(out, ev.EventType)
	}
	return out
}

type memWindows struct {
	mu      sync.Mutex
	windows []schedule.Window
}

func (m *memWindows) add(w schedule.Window) {
	m.mu.Lock()
	defer m.mu.Unlock()
	w.ID = uuid.New()
	m.windows = append(m.windows, w)
}

func (m *memWindows) GetForWeekday(_ context.Context, professionalID uuid.UUID, weekday schedule.Weekday, _ bool) (*schedule.Window, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, w := range m.windows {
		if w.ProfessionalID == professionalID && w.Weekday == weekday {
			cp := w
			return &cp, nil
		}
	}
	return nil, schedule.ErrWindowNotFound
}

func (m *memWindows) GetByID(context.Context, uuid.UUID, bool) (*schedule.Window, error) {
	return nil, schedule.ErrWindowNotFound
}

func (m *memWindows) ListByProfessional(context.Context, uuid.UUID, bool) ([]schedule.Window, error) {
	return nil, nil
}

func (m *memWindows) Create(_ context.Context, w schedule.Window) (*schedule.Window, error) {
	m.add(w)
	return &w, nil
}

func (m *memWindows) Update(_ context.Context, w schedule.Window) (*schedule.Window, error) {
	return &w, nil
}

func (m *memWindows) SoftDelete(context.Context, uuid.UUID) error {
	return nil
}

type memProfessionals struct {
	known map[uuid.UUID]professional.Professional
}

func (m *memProfessionals) GetByID(_ context.Context, id uuid.UUID) (*professional.Professional, error) {
	p, ok := m.known[id]
	if !ok {
		return nil, professional.ErrProfessionalNotFound
	}
	return &p, nil
}

type memPatients struct {
	mu   sync.Mutex
	byID map[uuid.UUID]patient.Patient
}

func newMemPatients() *memPatients {
	return &memPatients{byID: make(map[uuid.UUID]patient.Patient)}
}

func (m *memPatients) FindByDocument(_ context.Context, document string) (*patient.Patient, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, p := range m.byID {
		if p.Document == document {
			cp := p
			return &cp, nil
		}
	}
	return nil, patient.ErrPatientNotFound
}

func (m *memPatients) GetByID(_ context.Context, id uuid.UUID) (*patient.Patient, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.byID[id]
	if !ok {
		return nil, patient.ErrPatientNotFound
	}
	return &p, nil
}

func (m *memPatients) Create(_ context.Context, p patient.Patient) (*patient.Patient, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.byID {
		if existing.Document == p.Document {
			return nil, patient.ErrDuplicateDocument
		}
	}
	p.ID = uuid.New()
	m.byID[p.ID] = p
	return &p, nil
}

func (m *memPatients) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.byID)
}

// passLocker never serializes, leaving the storage constraint as the only guard.
type passLocker struct{}

func (passLocker) WithSlotLock(ctx context.Context, _ redisclient.SlotKey, fn func(context.Context) error) error {
	return fn(ctx)
}

type errLocker struct {
	err error
}

func (l errLocker) WithSlotLock(context.Context, redisclient.SlotKey, func(context.Context) error) error {
	return l.err
}

type recordingNotifier struct {
	mu     sync.Mutex
	events []notify.Event
}

func (n *recordingNotifier) Emit(ev notify.Event) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.events = append(n.events, ev)
}

func (n *recordingNotifier) emitted() []notify.Event {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]notify.Event(nil), n.events...)
}

// racingRepo applies a competing write right after the first GetByID read,
// so the caller acts on a snapshot that is already outdated.
type racingRepo struct {
	*memRepo
	once sync.Once
	race func(*memRepo)
}

func (r *racingRepo) GetByID(ctx context.Context, id uuid.UUID, includeDeleted bool) (*Appointment, error) {
	a, err := r.memRepo.GetByID(ctx, id, includeDeleted)
	if err == nil {
		r.once.Do(func() { r.race(r.memRepo) })
	}
	return a, err
}

func (r *memRepo) set(id uuid.UUID, mutate func(*Appointment)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	mutate(r.items[id])
}
