// Package schedule turns loosely structured reminder schedules into
// concrete notification triggers.
package schedule

import (
	"fmt"
	"strings"
	"time"
)

// Kind is the recurrence of a reminder.
type Kind int

const (
	Once Kind = iota + 1
	Daily
	Weekly
)

func (k Kind) String() string {
	switch k {
	case Once:
		return "Once"
	case Daily:
		return "Daily"
	case Weekly:
		return "Weekly"
	default:
		return "unknown"
	}
}

// ParseKind accepts "Once", "Daily" or "Weekly" in any case.
func ParseKind(s string) (Kind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "once":
		return Once, nil
	case "daily":
		return Daily, nil
	case "weekly":
		return Weekly, nil
	}
	return 0, fmt.Errorf("unknown frequency %q (supported: Once, Daily, Weekly)", s)
}

// Schedule is the tagged schedule of a reminder: Date is only meaningful
// for Once, Weekday only for Weekly.
type Schedule struct {
	Kind    Kind
	Date    time.Time
	Weekday time.Weekday
}

// OnceOn fires a single time on the calendar date of d.
func OnceOn(d time.Time) Schedule {
	y, m, day := d.Date()
	return Schedule{Kind: Once, Date: time.Date(y, m, day, 0, 0, 0, 0, d.Location())}
}

// EveryDay fires every day.
func EveryDay() Schedule {
	return Schedule{Kind: Daily}
}

// EveryWeek fires every week on wd.
func EveryWeek(wd time.Weekday) Schedule {
	return Schedule{Kind: Weekly, Weekday: wd}
}

// Validate checks the detail required by the schedule's kind.
func (s Schedule) Validate() error {
	switch s.Kind {
	case Once:
		if s.Date.IsZero() {
			return fmt.Errorf("once schedule needs a date")
		}
	case Daily:
	case Weekly:
		if s.Weekday < time.Sunday || s.Weekday > time.Saturday {
			return fmt.Errorf("weekly schedule needs a weekday")
		}
	default:
		return fmt.Errorf("unknown schedule kind %d", s.Kind)
	}
	return nil
}

// Label renders the display string used across the app:
// "Wed, Mar 6", "Daily" or "Every Sunday".
func (s Schedule) Label() string {
	switch s.Kind {
	case Once:
		return s.Date.Format("Mon, Jan 2")
	case Daily:
		return "Daily"
	case Weekly:
		return "Every " + s.Weekday.String()
	}
	return ""
}

var weekdays = map[string]time.Weekday{
	"sunday": time.Sunday, "sun": time.Sunday,
	"monday": time.Monday, "mon": time.Monday,
	"tuesday": time.Tuesday, "tue": time.Tuesday, "tues": time.Tuesday,
	"wednesday": time.Wednesday, "wed": time.Wednesday,
	"thursday": time.Thursday, "thu": time.Thursday, "thurs": time.Thursday,
	"friday": time.Friday, "fri": time.Friday,
	"saturday": time.Saturday, "sat": time.Saturday,
}

// ParseWeekday resolves a weekday name or abbreviation, case-insensitively.
func ParseWeekday(name string) (time.Weekday, error) {
	wd, ok := weekdays[strings.ToLower(strings.TrimSpace(name))]
	if !ok {
		return 0, fmt.Errorf("unknown weekday %q", name)
	}
	return wd, nil
}

var months = map[string]time.Month{
	"jan": time.January, "feb": time.February, "mar": time.March,
	"apr": time.April, "may": time.May, "jun": time.June,
	"jul": time.July, "aug": time.August, "sep": time.September,
	"oct": time.October, "nov": time.November, "dec": time.December,
}

func daysIn(month time.Month, year int) int {
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}
