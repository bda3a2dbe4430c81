package schedule

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// ErrMalformedTime is returned when a time string is not of the form "H:MM AM|PM".
var ErrMalformedTime = errors.New("malformed time")

// TimeOfDay is a wall-clock time without a date.
type TimeOfDay struct {
	Hour   int `json:"hour"`
	Minute int `json:"minute"`
}

// ParseTime parses a 12-hour display time such as "10:00 AM" or "2:30 PM".
// Clock and period are separated by exactly one space; the hour has one or
// two digits and the minute two.
func ParseTime(s string) (TimeOfDay, error) {
	clock, period, ok := strings.Cut(s, " ")
	if !ok || strings.Contains(period, " ") {
		return TimeOfDay{}, fmt.Errorf("%w: %q: expected H:MM AM|PM", ErrMalformedTime, s)
	}
	period = strings.ToUpper(period)
	if period != "AM" && period != "PM" {
		return TimeOfDay{}, fmt.Errorf("%w: %q: missing AM/PM", ErrMalformedTime, s)
	}

	hm := strings.Split(clock, ":")
	if len(hm) != 2 {
		return TimeOfDay{}, fmt.Errorf("%w: %q: missing colon", ErrMalformedTime, s)
	}
	if len(hm[0]) > 2 {
		return TimeOfDay{}, fmt.Errorf("%w: %q: hour must have one or two digits", ErrMalformedTime, s)
	}
	hour, err := atoiDigits(hm[0])
	if err != nil || hour < 1 || hour > 12 {
		return TimeOfDay{}, fmt.Errorf("%w: %q: invalid hour", ErrMalformedTime, s)
	}
	if len(hm[1]) != 2 {
		return TimeOfDay{}, fmt.Errorf("%w: %q: minute must have two digits", ErrMalformedTime, s)
	}
	minute, err := atoiDigits(hm[1])
	if err != nil || minute > 59 {
		return TimeOfDay{}, fmt.Errorf("%w: %q: invalid minute", ErrMalformedTime, s)
	}

	switch {
	case period == "PM" && hour < 12:
		hour += 12
	case period == "AM" && hour == 12:
		hour = 0
	}
	return TimeOfDay{Hour: hour, Minute: minute}, nil
}

// String renders the time the way the app displays it, e.g. "8:00 AM".
func (t TimeOfDay) String() string {
	period := "AM"
	if t.Hour >= 12 {
		period = "PM"
	}
	h := t.Hour % 12
	if h == 0 {
		h = 12
	}
	return fmt.Sprintf("%d:%02d %s", h, t.Minute, period)
}

// Clock renders the time in 24-hour "HH:MM" form.
func (t TimeOfDay) Clock() string {
	return fmt.Sprintf("%02d:%02d", t.Hour, t.Minute)
}

// Valid reports whether the hour and minute are in range.
func (t TimeOfDay) Valid() bool {
	return t.Hour >= 0 && t.Hour <= 23 && t.Minute >= 0 && t.Minute <= 59
}

// atoiDigits is strconv.Atoi restricted to plain ASCII digits (no sign).
func atoiDigits(s string) (int, error) {
	if s == "" {
		return 0, strconv.ErrSyntax
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return 0, strconv.ErrSyntax
		}
	}
	return strconv.Atoi(s)
}
