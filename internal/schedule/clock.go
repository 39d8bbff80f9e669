package schedule

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

const (
	DateLayout  = "2006-01-02"
	secondsADay = 24 * 60 * 60
)

// Clock is a time of day in whole seconds after midnight.
type Clock int

// NewClock builds a clock from its parts. Values are not range checked.
func NewClock(hour, minute, second int) Clock {
	return Clock(hour*3600 + minute*60 + second)
}

// ParseClock accepts HH:MM:SS and HH:MM. A fractional second suffix, as
// postgres renders time values, is dropped.
func ParseClock(s string) (Clock, error) {
	raw := strings.TrimSpace(s)
	if i := strings.IndexByte(raw, '.'); i >= 0 {
		raw = raw[:i]
	}

	parts := strings.Split(raw, ":")
	if len(parts) != 2 && len(parts) != 3 {
		return 0, fmt.Errorf("invalid time %q: want HH:MM:SS", s)
	}

	limits := []int{23, 59, 59}
	values := make([]int, 3)
	for i, p := range parts {
		if p == "" || len(p) > 2 {
			return 0, fmt.Errorf("invalid time %q: want HH:MM:SS", s)
		}
		n, err := strconv.Atoi(p)
		if err != nil || n < 0 || n > limits[i] {
			return 0, fmt.Errorf("invalid time %q: want HH:MM:SS", s)
		}
		values[i] = n
	}

	return NewClock(values[0], values[1], values[2]), nil
}

// MustParseClock is ParseClock for literals; it panics on bad input.
func MustParseClock(s string) Clock {
	c, err := ParseClock(s)
	if err != nil {
		panic(err)
	}
	return c
}

func (c Clock) String() string {
	return fmt.Sprintf("%02d:%02d:%02d", int(c)/3600, (int(c)%3600)/60, int(c)%60)
}

// AddMinutes returns c shifted by m minutes.
func (c Clock) AddMinutes(m int) Clock {
	return c + Clock(m*60)
}

// ParseDate parses YYYY-MM-DD into a civil date (midnight UTC).
func ParseDate(s string) (time.Time, error) {
	d, err := time.Parse(DateLayout, strings.TrimSpace(s))
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q: want YYYY-MM-DD", s)
	}
	return d, nil
}

// FormatDate renders a civil date as YYYY-MM-DD.
func FormatDate(d time.Time) string {
	return d.Format(DateLayout)
}

// CivilDate drops the clock part of t as observed in its own location.
func CivilDate(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// Today is the calendar day of now in the clinic's location.
func Today(now time.Time, loc *time.Location) time.Time {
	if loc == nil {
		loc = time.Local
	}
	return CivilDate(now.In(loc))
}
