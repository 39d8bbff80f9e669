package schedule

import (
	"iter"
	"time"

	"github.com/google/uuid"

	"github.com/hackgods/clinic-scheduling/internal/apperr"
)

// Window is a professional's attention hours for one weekday.
type Window struct {
	ID             uuid.UUID
	ProfessionalID uuid.UUID
	Weekday        Weekday
	Start          Clock
	End            Clock
	SlotMinutes    int
	CreatedAt      time.Time
	UpdatedAt      time.Time
	DeletedAt      *time.Time
}

// NewWindow builds a validated window.
func NewWindow(professionalID uuid.UUID, weekday Weekday, start, end Clock, slotMinutes int) (Window, error) {
	w := Window{
		ProfessionalID: professionalID,
		Weekday:        weekday,
		Start:          start,
		End:            end,
		SlotMinutes:    slotMinutes,
	}
	if err := w.Validate(); err != nil {
		return Window{}, err
	}
	return w, nil
}

// Validate fails with a configuration error when slotMinutes is not
// positive or the window does not end after it starts.
func (w Window) Validate() error {
	if w.SlotMinutes <= 0 {
		return apperr.Configuration("slot length must be positive, got %d minutes", w.SlotMinutes)
	}
	if w.Start >= w.End {
		return apperr.Configuration("window start %s must be before end %s", w.Start, w.End)
	}
	if w.End >= secondsADay || w.Start < 0 {
		return apperr.Configuration("window %s-%s is outside the day", w.Start, w.End)
	}
	return nil
}

// All yields every slot start in ascending order. A trailing interval shorter
// than SlotMinutes is not a slot. Each call restarts from Start; an invalid
// window yields nothing.
func (w Window) All() iter.Seq[Clock] {
	return func(yield func(Clock) bool) {
		if w.Validate() != nil {
			return
		}
		for t := w.Start; t.AddMinutes(w.SlotMinutes) <= w.End; t = t.AddMinutes(w.SlotMinutes) {
			if !yield(t) {
				return
			}
		}
	}
}

// Slots materialises All, failing on a malformed window.
func (w Window) Slots() ([]Clock, error) {
	if err := w.Validate(); err != nil {
		return nil, err
	}

	slots := make([]Clock, 0, int(w.End-w.Start)/(w.SlotMinutes*60))
	for t := range w.All() {
		slots = append(slots, t)
	}
	return slots, nil
}

// Contains reports start <= t < end, independent of slot alignment.
func (w Window) Contains(t Clock) bool {
	return w.Start <= t && t < w.End
}
