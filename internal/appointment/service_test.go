package appointment

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hackgods/clinic-scheduling/internal/apperr"
	"github.com/hackgods/clinic-scheduling/internal/notify"
	"github.com/hackgods/clinic-scheduling/internal/patient"
	"github.com/hackgods/clinic-scheduling/internal/professional"
	redisclient "github.com/hackgods/clinic-scheduling/internal/redis"
	"github.com/hackgods/clinic-scheduling/internal/schedule"
)

var clinicZone = time.FixedZone("ART", -3*3600)

// Monday 2026-03-02, mid morning at the clinic.
func fixedNow() time.Time {
	return time.Date(2026, 3, 2, 10, 0, 0, 0, clinicZone)
}

type fixture struct {
	svc      *Service
	repo     *memRepo
	patients *memPatients
	notifier *recordingNotifier
	proID    uuid.UUID
}

func newFixture(t *testing.T, tweak ...func(*Deps)) *fixture {
	t.Helper()

	proID := uuid.New()
	pros := &memProfessionals{known: map[uuid.UUID]professional.Professional{
		proID: {ID: proID, FirstName: "Martín", LastName: "Suárez", Email: "msuarez@clinic.test"},
	}}

	windows := &memWindows{}
	monday, err := schedule.NewWindow(proID, schedule.Lunes, schedule.MustParseClock("09:00"), schedule.MustParseClock("12:00"), 30)
	require.NoError(t, err)
	windows.add(monday)
	wednesday, err := schedule.NewWindow(proID, schedule.Miercoles, schedule.MustParseClock("14:00"), schedule.MustParseClock("18:00"), 20)
	require.NoError(t, err)
	windows.add(wednesday)

	f := &fixture{
		repo:     newMemRepo(),
		patients: newMemPatients(),
		notifier: &recordingNotifier{},
		proID:    proID,
	}

	deps := Deps{
		Repo:          f.repo,
		Windows:       windows,
		Professionals: pros,
		Patients:      f.patients,
		Locker:        passLocker{},
		Notifier:      f.notifier,
		Policy:        Policy{HorizonWeeks: 2, Location: clinicZone},
		Now:           fixedNow,
		Logger:        zerolog.Nop(),
	}
	for _, fn := range tweak {
		fn(&deps)
	}
	f.svc = NewService(deps)
	return f
}

func patientData(document string) patient.Patient {
	email := "ana.gomez@example.com"
	return patient.Patient{
		FirstName:     "Ana",
		LastName:      "Gómez",
		Email:         &email,
		DocumentType:  patient.DocumentDNI,
		BiologicalSex: "Femenino",
		Document:      document,
	}
}

func (f *fixture) book(t *testing.T, date, at, document string) *Appointment {
	t.Helper()
	a, err := f.svc.Create(context.Background(), CreateInput{
		ProfessionalID: f.proID, Date: date, Time: at, Patient: patientData(document),
	})
	require.NoError(t, err)
	return a
}

func strPtr(s string) *string { return &s }

func slotStrings(slots []schedule.Clock) []string {
	out := make([]string, len(slots))
	for i, s := range slots {
		out[i] = s.String()
	}
	return out
}

// -- Availability --

func TestAvailableSlotsSubtractsOccupied(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.book(t, "2026-03-09", "09:30:00", "30111222")
	cancelled := f.book(t, "2026-03-09", "10:00:00", "30111223")
	_, err := f.svc.Cancel(ctx, cancelled.ID)
	require.NoError(t, err)

	av, err := f.svc.AvailableSlots(ctx, f.proID, "2026-03-09")
	require.NoError(t, err)

	assert.Equal(t, schedule.Lunes, av.Weekday)
	assert.Equal(t, 30, av.SlotMinutes)
	assert.Equal(t, []string{"09:00:00", "10:00:00", "10:30:00", "11:00:00", "11:30:00"}, slotStrings(av.Slots))
}

func TestAvailableSlotsIsRepeatable(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.book(t, "2026-03-04", "14:20", "30111222")

	first, err := f.svc.AvailableSlots(ctx, f.proID, "2026-03-04")
	require.NoError(t, err)
	second, err := f.svc.AvailableSlots(ctx, f.proID, "2026-03-04")
	require.NoError(t, err)

	assert.Equal(t, first.Slots, second.Slots)
	assert.Len(t, first.Slots, 11)
	assert.NotContains(t, slotStrings(first.Slots), "14:20:00")
}

func TestAvailableSlotsNoWindow(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.AvailableSlots(context.Background(), f.proID, "2026-03-03")
	require.True(t, apperr.Is(err, apperr.KindNotFound))
	assert.Contains(t, apperr.MessageOf(err), "Martes")
}

func TestAvailableSlotsBadInput(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.AvailableSlots(context.Background(), f.proID, "09/03/2026")
	assert.True(t, apperr.Is(err, apperr.KindValidation))

	_, err = f.svc.AvailableSlots(context.Background(), uuid.New(), "2026-03-09")
	assert.True(t, apperr.Is(err, apperr.KindNotFound))
}

func TestDeletedAppointmentFreesSlot(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	a := f.book(t, "2026-03-09", "11:30:00", "30111222")
	require.NoError(t, f.svc.Delete(ctx, a.ID))

	av, err := f.svc.AvailableSlots(ctx, f.proID, "2026-03-09")
	require.NoError(t, err)
	assert.Contains(t, slotStrings(av.Slots), "11:30:00")
}

// -- Create --

func TestCreateRequestsAndNotifies(t *testing.T) {
	f := newFixture(t)

	a := f.book(t, "2026-03-09", "09:00:00", "30111222")
	assert.Equal(t, StateRequested, a.State)
	assert.Equal(t, "2026-03-09", schedule.FormatDate(a.Date))
	assert.Equal(t, "09:00:00", a.Time.String())

	events := f.notifier.emitted()
	require.Len(t, events, 1)
	assert.Equal(t, notify.EventAppointmentRequested, events[0].Type)
	assert.Equal(t, "Ana Gómez", events[0].PatientName)
	assert.Equal(t, "ana.gomez@example.com", events[0].PatientEmail)
	assert.Equal(t, "09:00:00", events[0].Time)

	assert.Equal(t, []string{EventAppointmentRequested}, f.repo.eventTypes())
}

func TestCreateTodayIsAllowed(t *testing.T) {
	f := newFixture(t)
	// Earlier than now on the same day; only the calendar day counts.
	f.book(t, "2026-03-02", "09:00:00", "30111222")
}

func TestCreateDateRange(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.Create(ctx, CreateInput{ProfessionalID: f.proID, Date: "2026-03-17", Time: "09:00:00", Patient: patientData("1")})
	require.True(t, apperr.Is(err, apperr.KindValidation))
	assert.Contains(t, apperr.MessageOf(err), "2 weeks")

	_, err = f.svc.Create(ctx, CreateInput{ProfessionalID: f.proID, Date: "2026-03-01", Time: "09:00:00", Patient: patientData("1")})
	require.True(t, apperr.Is(err, apperr.KindValidation))
	assert.Contains(t, apperr.MessageOf(err), "past")

	// Last day of the horizon.
	f.book(t, "2026-03-16", "09:00:00", "1")
}

func TestCreateChecksRunInOrder(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	// Past date wins over unknown professional.
	_, err := f.svc.Create(ctx, CreateInput{ProfessionalID: uuid.New(), Date: "2026-02-27", Time: "09:00", Patient: patientData("1")})
	assert.True(t, apperr.Is(err, apperr.KindValidation))

	_, err = f.svc.Create(ctx, CreateInput{ProfessionalID: uuid.New(), Date: "2026-03-09", Time: "09:00", Patient: patientData("1")})
	assert.True(t, apperr.Is(err, apperr.KindNotFound))

	// Window check before conflict check.
	f.book(t, "2026-03-09", "09:00", "1")
	_, err = f.svc.Create(ctx, CreateInput{ProfessionalID: f.proID, Date: "2026-03-09", Time: "12:00", Patient: patientData("2")})
	assert.True(t, apperr.Is(err, apperr.KindValidation))
}

func TestCreateWithoutWindowNamesWeekday(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.Create(context.Background(), CreateInput{ProfessionalID: f.proID, Date: "2026-03-06", Time: "09:00", Patient: patientData("1")})
	require.True(t, apperr.Is(err, apperr.KindValidation))
	assert.Contains(t, apperr.MessageOf(err), "Viernes")
}

func TestCreateAtClosingTimeRejected(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.Create(ctx, CreateInput{ProfessionalID: f.proID, Date: "2026-03-09", Time: "12:00:00", Patient: patientData("1")})
	require.True(t, apperr.Is(err, apperr.KindValidation))
	assert.Contains(t, apperr.MessageOf(err), "09:00:00-12:00:00")

	_, err = f.svc.Create(ctx, CreateInput{ProfessionalID: f.proID, Date: "2026-03-09", Time: "08:59:59", Patient: patientData("1")})
	assert.True(t, apperr.Is(err, apperr.KindValidation))

	// Off-grid but inside the window.
	f.book(t, "2026-03-09", "11:45:00", "1")
}

func TestCreateRejectsMalformedInput(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.Create(ctx, CreateInput{ProfessionalID: f.proID, Date: "2026-3-9", Time: "09:00", Patient: patientData("1")})
	assert.True(t, apperr.Is(err, apperr.KindValidation))

	_, err = f.svc.Create(ctx, CreateInput{ProfessionalID: f.proID, Date: "2026-03-09", Time: "9am", Patient: patientData("1")})
	assert.True(t, apperr.Is(err, apperr.KindValidation))
}

func TestCreateConflictAndCancelledSlotReuse(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	first := f.book(t, "2026-03-09", "10:30:00", "1")

	_, err := f.svc.Create(ctx, CreateInput{ProfessionalID: f.proID, Date: "2026-03-09", Time: "10:30:00", Patient: patientData("2")})
	require.True(t, apperr.Is(err, apperr.KindConflict))

	_, err = f.svc.Cancel(ctx, first.ID)
	require.NoError(t, err)

	f.book(t, "2026-03-09", "10:30:00", "2")
}

func TestCreateReusesPatientByDocument(t *testing.T) {
	f := newFixture(t)

	a := f.book(t, "2026-03-09", "09:00", "30111222")
	b := f.book(t, "2026-03-09", "09:30", " 30111222 ")

	assert.Equal(t, a.PatientID, b.PatientID)
	assert.Equal(t, 1, f.patients.count())
}

func TestConcurrentBookingsExactlyOneWins(t *testing.T) {
	f := newFixture(t)

	const attempts = 16
	var (
		wg        sync.WaitGroup
		start     = make(chan struct{})
		mu        sync.Mutex
		successes int
		conflicts int
		others    []error
	)

	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			<-start
			_, err := f.svc.Create(context.Background(), CreateInput{
				ProfessionalID: f.proID, Date: "2026-03-09", Time: "11:00:00",
				Patient: patientData(fmt.Sprintf("40%06d", i)),
			})

			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				successes++
			case apperr.Is(err, apperr.KindConflict):
				conflicts++
			default:
				others = append(others, err)
			}
		}(i)
	}
	close(start)
	wg.Wait()

	assert.Empty(t, others)
	assert.Equal(t, 1, successes)
	assert.Equal(t, attempts-1, conflicts)

	booked, err := f.repo.FindByProfessionalAndDate(context.Background(), f.proID, mustDate(t, "2026-03-09"), OccupiedStates)
	require.NoError(t, err)
	assert.Len(t, booked, 1)
}

func TestCreateSlotTakenAtInsertIsConflict(t *testing.T) {
	f := newFixture(t)
	date := mustDate(t, "2026-03-09")

	// Simulate a row written by another process between check and insert.
	racer := &insertRacingRepo{memRepo: f.repo, date: date, at: schedule.MustParseClock("09:00"), proID: f.proID}
	svc := NewService(Deps{
		Repo: racer, Windows: f.svc.windows, Professionals: f.svc.professionals, Patients: f.patients,
		Policy: Policy{Location: clinicZone}, Now: fixedNow, Logger: zerolog.Nop(),
	})

	_, err := svc.Create(context.Background(), CreateInput{ProfessionalID: f.proID, Date: "2026-03-09", Time: "09:00", Patient: patientData("1")})
	require.True(t, apperr.Is(err, apperr.KindConflict))
	assert.Contains(t, apperr.MessageOf(err), "already booked")
}

type insertRacingRepo struct {
	*memRepo
	proID uuid.UUID
	date  time.Time
	at    schedule.Clock
	once  sync.Once
}

func (r *insertRacingRepo) Insert(ctx context.Context, a Appointment) (*Appointment, error) {
	r.once.Do(func() {
		_, _ = r.memRepo.Insert(ctx, Appointment{ProfessionalID: r.proID, PatientID: uuid.New(), Date: r.date, Time: r.at, State: StateConfirmed})
	})
	return r.memRepo.Insert(ctx, a)
}

func TestCreateLockOutcomes(t *testing.T) {
	busy := newFixture(t, func(d *Deps) { d.Locker = errLocker{err: redisclient.ErrLockNotAcquired} })
	_, err := busy.svc.Create(context.Background(), CreateInput{ProfessionalID: busy.proID, Date: "2026-03-09", Time: "09:00", Patient: patientData("1")})
	require.True(t, apperr.Is(err, apperr.KindConflict))
	assert.Contains(t, apperr.MessageOf(err), "being booked")

	down := newFixture(t, func(d *Deps) {
		d.Locker = errLocker{err: fmt.Errorf("%w: dial tcp: connection refused", redisclient.ErrLockUnavailable)}
	})
	down.book(t, "2026-03-09", "09:00", "1")
}

func TestCreateInternalErrorIsOpaque(t *testing.T) {
	f := newFixture(t)
	f.repo.failAll = errors.New("pq: relation \"appointments\" does not exist")

	_, err := f.svc.Create(context.Background(), CreateInput{ProfessionalID: f.proID, Date: "2026-03-09", Time: "09:00", Patient: patientData("1")})
	require.Equal(t, apperr.KindInternal, apperr.KindOf(err))
	assert.Equal(t, "internal server error", apperr.MessageOf(err))
	assert.Empty(t, f.notifier.emitted())
}

// -- Update --

func TestUpdateReschedule(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	a := f.book(t, "2026-03-09", "09:00", "1")
	f.book(t, "2026-03-09", "09:30", "2")

	_, err := f.svc.Update(ctx, a.ID, UpdateInput{Time: strPtr("09:30:00")})
	assert.True(t, apperr.Is(err, apperr.KindConflict))

	_, err = f.svc.Update(ctx, a.ID, UpdateInput{Time: strPtr("12:00:00")})
	assert.True(t, apperr.Is(err, apperr.KindValidation))

	_, err = f.svc.Update(ctx, a.ID, UpdateInput{Date: strPtr("2026-03-23")})
	assert.True(t, apperr.Is(err, apperr.KindValidation))

	moved, err := f.svc.Update(ctx, a.ID, UpdateInput{Date: strPtr("2026-03-04"), Time: strPtr("15:00")})
	require.NoError(t, err)
	assert.Equal(t, "2026-03-04", schedule.FormatDate(moved.Date))
	assert.Equal(t, "15:00:00", moved.Time.String())
	assert.Contains(t, f.repo.eventTypes(), EventAppointmentRescheduled)
}

func TestUpdateSameSlotDoesNotConflictWithItself(t *testing.T) {
	f := newFixture(t)
	a := f.book(t, "2026-03-09", "09:00", "1")

	updated, err := f.svc.Update(context.Background(), a.ID, UpdateInput{
		Date: strPtr("2026-03-09"), Time: strPtr("09:00:00"), State: strPtr(string(StateConfirmed)),
	})
	require.NoError(t, err)
	assert.Equal(t, StateConfirmed, updated.State)
}

func TestUpdateConfirmNotifies(t *testing.T) {
	f := newFixture(t)
	a := f.book(t, "2026-03-09", "09:00", "1")

	_, err := f.svc.Update(context.Background(), a.ID, UpdateInput{State: strPtr("Confirmado")})
	require.NoError(t, err)

	events := f.notifier.emitted()
	require.Len(t, events, 2)
	assert.Equal(t, notify.EventAppointmentConfirmed, events[1].Type)
	assert.Equal(t, "Martín Suárez", events[1].ProfessionalName)
	assert.Contains(t, f.repo.eventTypes(), EventAppointmentConfirmed)
}

func TestUpdateStateMachine(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	a := f.book(t, "2026-03-09", "09:00", "1")

	_, err := f.svc.Update(ctx, a.ID, UpdateInput{State: strPtr("Atendido")})
	assert.True(t, apperr.Is(err, apperr.KindConflict))

	_, err = f.svc.Update(ctx, a.ID, UpdateInput{State: strPtr("Lost")})
	assert.True(t, apperr.Is(err, apperr.KindValidation))

	_, err = f.svc.Update(ctx, a.ID, UpdateInput{State: strPtr("Confirmado")})
	require.NoError(t, err)
	attended, err := f.svc.Update(ctx, a.ID, UpdateInput{State: strPtr("Atendido")})
	require.NoError(t, err)
	assert.Equal(t, StateAttended, attended.State)

	_, err = f.svc.Update(ctx, a.ID, UpdateInput{Time: strPtr("10:00")})
	assert.True(t, apperr.Is(err, apperr.KindConflict))

	_, err = f.svc.Update(ctx, uuid.New(), UpdateInput{State: strPtr("Confirmado")})
	assert.True(t, apperr.Is(err, apperr.KindNotFound))
}

// -- Cancel --

func TestCancel(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	requested := f.book(t, "2026-03-09", "09:00", "1")
	cancelled, err := f.svc.Cancel(ctx, requested.ID)
	require.NoError(t, err)
	assert.Equal(t, StateCancelled, cancelled.State)

	_, err = f.svc.Cancel(ctx, requested.ID)
	assert.True(t, apperr.Is(err, apperr.KindConflict))

	confirmed := f.book(t, "2026-03-09", "09:30", "2")
	_, err = f.svc.Update(ctx, confirmed.ID, UpdateInput{State: strPtr("Confirmado")})
	require.NoError(t, err)
	cancelled, err = f.svc.Cancel(ctx, confirmed.ID)
	require.NoError(t, err)
	assert.Equal(t, StateCancelled, cancelled.State)

	_, err = f.svc.Cancel(ctx, uuid.New())
	assert.True(t, apperr.Is(err, apperr.KindNotFound))
}

func TestCancelTerminalStatesFails(t *testing.T) {
	for _, terminal := range []State{StateAttended, StateNoShow} {
		f := newFixture(t)
		ctx := context.Background()

		a := f.book(t, "2026-03-09", "09:00", "1")
		_, err := f.svc.Update(ctx, a.ID, UpdateInput{State: strPtr("Confirmado")})
		require.NoError(t, err)
		_, err = f.svc.Update(ctx, a.ID, UpdateInput{State: strPtr(string(terminal))})
		require.NoError(t, err)

		_, err = f.svc.Cancel(ctx, a.ID)
		assert.True(t, apperr.Is(err, apperr.KindConflict), terminal)
	}
}

// racingFixture books one appointment, then points the service at a repo
// that runs race after the next read.
func racingFixture(t *testing.T, race func(*memRepo, uuid.UUID)) (*fixture, *Appointment) {
	t.Helper()
	f := newFixture(t)
	a := f.book(t, "2026-03-09", "09:00", "1")

	repo := &racingRepo{memRepo: f.repo, race: func(m *memRepo) { race(m, a.ID) }}
	f.svc.repo = repo
	f.svc.validator.appointments = repo
	return f, a
}

func TestCancelLosesToConcurrentAttend(t *testing.T) {
	f, a := racingFixture(t, func(m *memRepo, id uuid.UUID) {
		m.set(id, func(stored *Appointment) { stored.State = StateAttended })
	})

	_, err := f.svc.Cancel(context.Background(), a.ID)
	require.True(t, apperr.Is(err, apperr.KindConflict), "got %v", err)

	stored, err := f.repo.GetByID(context.Background(), a.ID, false)
	require.NoError(t, err)
	assert.Equal(t, StateAttended, stored.State)
}

func TestStaleCancelKeepsConcurrentReschedule(t *testing.T) {
	f, a := racingFixture(t, func(m *memRepo, id uuid.UUID) {
		m.set(id, func(stored *Appointment) { stored.Time = schedule.MustParseClock("10:30") })
	})

	_, err := f.svc.Cancel(context.Background(), a.ID)
	require.True(t, apperr.Is(err, apperr.KindConflict), "got %v", err)

	stored, err := f.repo.GetByID(context.Background(), a.ID, false)
	require.NoError(t, err)
	assert.Equal(t, "10:30:00", stored.Time.String())
	assert.Equal(t, StateRequested, stored.State)
}

func TestStaleStateChangeIsConflict(t *testing.T) {
	f, a := racingFixture(t, func(m *memRepo, id uuid.UUID) {
		m.set(id, func(stored *Appointment) { stored.State = StateCancelled })
	})

	_, err := f.svc.Update(context.Background(), a.ID, UpdateInput{State: strPtr("Confirmado")})
	require.True(t, apperr.Is(err, apperr.KindConflict), "got %v", err)

	stored, err := f.repo.GetByID(context.Background(), a.ID, false)
	require.NoError(t, err)
	assert.Equal(t, StateCancelled, stored.State)
	assert.Len(t, f.notifier.emitted(), 1, "only the booking notification")
}

func TestStaleRescheduleIsConflict(t *testing.T) {
	f, a := racingFixture(t, func(m *memRepo, id uuid.UUID) {
		m.set(id, func(stored *Appointment) { stored.State = StateConfirmed })
	})

	_, err := f.svc.Update(context.Background(), a.ID, UpdateInput{Time: strPtr("11:00")})
	require.True(t, apperr.Is(err, apperr.KindConflict), "got %v", err)

	stored, err := f.repo.GetByID(context.Background(), a.ID, false)
	require.NoError(t, err)
	assert.Equal(t, "09:00:00", stored.Time.String())
	assert.Equal(t, StateConfirmed, stored.State)
}

// -- Delete, Get, List --

func TestDeleteIsSoft(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	a := f.book(t, "2026-03-09", "09:00", "1")
	require.NoError(t, f.svc.Delete(ctx, a.ID))

	_, err := f.svc.Get(ctx, a.ID)
	assert.True(t, apperr.Is(err, apperr.KindNotFound))

	kept, err := f.repo.GetByID(ctx, a.ID, true)
	require.NoError(t, err)
	assert.NotNil(t, kept.DeletedAt)
	assert.Equal(t, StateRequested, kept.State)

	assert.True(t, apperr.Is(f.svc.Delete(ctx, a.ID), apperr.KindNotFound))
}

func TestGetHydrates(t *testing.T) {
	f := newFixture(t)
	a := f.book(t, "2026-03-09", "09:00", "1")

	detail, err := f.svc.Get(context.Background(), a.ID)
	require.NoError(t, err)
	assert.Equal(t, a.ID, detail.ID)
	assert.Equal(t, "Ana Gómez", detail.Patient.FullName())
	assert.Equal(t, "Martín Suárez", detail.Professional.FullName())
}

func TestListFiltersAndPaging(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	for i, at := range []string{"09:00", "09:30", "10:00", "10:30", "11:00", "11:30"} {
		f.book(t, "2026-03-09", at, fmt.Sprintf("%d", i))
	}
	late := f.book(t, "2026-03-11", "17:40", "99")

	all, err := f.svc.List(ctx, ListFilter{})
	require.NoError(t, err)
	require.Len(t, all, 7)
	assert.Equal(t, late.ID, all[0].ID)
	assert.Equal(t, "11:30:00", all[1].Time.String())

	day := mustDate(t, "2026-03-09")
	page, err := f.svc.List(ctx, ListFilter{Date: &day, Offset: 4, Limit: 5})
	require.NoError(t, err)
	assert.Len(t, page, 2)

	st := StateConfirmed
	none, err := f.svc.List(ctx, ListFilter{State: &st})
	require.NoError(t, err)
	assert.Empty(t, none)

	bogus := State("Perdido")
	_, err = f.svc.List(ctx, ListFilter{State: &bogus})
	assert.True(t, apperr.Is(err, apperr.KindValidation))
}

func TestListClampsLimit(t *testing.T) {
	f := newFixture(t)
	for i := 0; i < 12; i++ {
		f.repo.items[uuid.New()] = &Appointment{ProfessionalID: f.proID, Date: mustDate(t, "2026-03-09"), Time: schedule.Clock(i), State: StateCancelled}
	}
	for id, a := range f.repo.items {
		a.ID = id
	}

	items, err := f.svc.List(context.Background(), ListFilter{})
	require.NoError(t, err)
	assert.Len(t, items, defaultListLimit)

	items, err = f.svc.List(context.Background(), ListFilter{Limit: 1000})
	require.NoError(t, err)
	assert.Len(t, items, 12)
}

func mustDate(t *testing.T, s string) time.Time {
	t.Helper()
	d, err := schedule.ParseDate(s)
	require.NoError(t, err)
	return d
}
