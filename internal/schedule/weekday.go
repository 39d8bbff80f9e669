package schedule

import (
	"fmt"
	"time"
)

// Weekday is the Spanish day label stored on attention windows.
type Weekday string

const (
	Domingo   Weekday = "Domingo"
	Lunes     Weekday = "Lunes"
	Martes    Weekday = "Martes"
	Miercoles Weekday = "Miércoles"
	Jueves    Weekday = "Jueves"
	Viernes   Weekday = "Viernes"
	Sabado    Weekday = "Sábado"
)

var weekdays = [7]Weekday{Domingo, Lunes, Martes, Miercoles, Jueves, Viernes, Sabado}

// WeekdayOf resolves the label of a civil date. The date's own Y-M-D is used,
// never a UTC-shifted instant.
func WeekdayOf(date time.Time) Weekday {
	return weekdays[CivilDate(date).Weekday()]
}

// ParseWeekday accepts the labels windows may be configured for (Lunes..Sábado).
func ParseWeekday(s string) (Weekday, error) {
	for _, d := range weekdays[1:] {
		if string(d) == s {
			return d, nil
		}
	}
	return "", fmt.Errorf("invalid weekday %q", s)
}

func (d Weekday) String() string {
	return string(d)
}
