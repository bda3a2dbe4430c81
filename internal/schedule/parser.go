package schedule

import (
	"fmt"
	"strings"
	"time"
)

// PastDatePolicy decides what happens to a calendar date without a year
// that has already passed in the current year.
type PastDatePolicy int

const (
	// KeepCurrentYear leaves the date in the current year, even if it is in the past.
	KeepCurrentYear PastDatePolicy = iota
	// RollToNextYear moves a past date to the same month/day next year.
	RollToNextYear
)

// ParsePastDatePolicy accepts "keep" or "roll".
func ParsePastDatePolicy(s string) (PastDatePolicy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "keep":
		return KeepCurrentYear, nil
	case "roll":
		return RollToNextYear, nil
	}
	return 0, fmt.Errorf("unknown past date policy %q (supported: keep, roll)", s)
}

// DayShape is the form a day descriptor was recognised as.
type DayShape int

const (
	ShapeUnrecognized DayShape = iota
	ShapeTomorrow
	ShapeDaily
	ShapeEveryWeekday
	ShapeCalendarDate
)

// Anchor is the concrete point in time derived from a time and day descriptor.
type Anchor struct {
	Shape  DayShape
	Hour   int
	Minute int
	// Date is the anchor instant: calendar date plus time of day.
	Date time.Time
	// Weekday is 0-6 (Sunday=0) for ShapeEveryWeekday, -1 otherwise.
	Weekday int
}

// HasWeekday reports whether the anchor carries a weekday.
func (a Anchor) HasWeekday() bool { return a.Shape == ShapeEveryWeekday }

// Parser derives anchors relative to the current time.
type Parser struct {
	now       func() time.Time
	pastDates PastDatePolicy
}

// NewParser returns a parser reading the clock from now. A nil now uses time.Now.
func NewParser(now func() time.Time, pastDates PastDatePolicy) *Parser {
	if now == nil {
		now = time.Now
	}
	return &Parser{now: now, pastDates: pastDates}
}

// Now returns the parser's current time.
func (p *Parser) Now() time.Time { return p.now() }

// Parse parses timeString ("10:00 AM") and dayString ("Tomorrow", "Daily",
// "Every Sunday", "Wed, Mar 6"). An unrecognised dayString is not an error:
// the anchor is simply "now".
func (p *Parser) Parse(timeString, dayString string) (Anchor, error) {
	tod, err := ParseTime(timeString)
	if err != nil {
		return Anchor{}, err
	}
	return p.anchor(tod, dayString, p.now()), nil
}

// Classify maps a legacy day descriptor onto a Schedule. "Tomorrow" and
// calendar dates become Once schedules. It reports false for descriptors
// that match none of the known shapes.
func (p *Parser) Classify(dayString string) (Schedule, bool) {
	a := p.anchor(TimeOfDay{}, dayString, p.now())
	switch a.Shape {
	case ShapeTomorrow, ShapeCalendarDate:
		return OnceOn(a.Date), true
	case ShapeDaily:
		return EveryDay(), true
	case ShapeEveryWeekday:
		return EveryWeek(time.Weekday(a.Weekday)), true
	}
	return Schedule{}, false
}

func (p *Parser) anchor(tod TimeOfDay, day string, now time.Time) Anchor {
	loc := now.Location()
	today := time.Date(now.Year(), now.Month(), now.Day(), tod.Hour, tod.Minute, 0, 0, loc)
	a := Anchor{Hour: tod.Hour, Minute: tod.Minute, Weekday: -1}

	switch {
	case day == "Tomorrow":
		a.Shape = ShapeTomorrow
		a.Date = today.AddDate(0, 0, 1)
		return a

	case day == "Daily":
		a.Shape = ShapeDaily
		a.Date = today
		if today.Before(now) {
			a.Date = today.AddDate(0, 0, 1)
		}
		return a

	case strings.HasPrefix(day, "Every "):
		wd, err := ParseWeekday(strings.TrimPrefix(day, "Every "))
		if err != nil {
			break
		}
		a.Shape = ShapeEveryWeekday
		a.Weekday = int(wd)
		a.Date = today.AddDate(0, 0, DaysUntil(now.Weekday(), wd))
		return a
	}

	if month, dom, ok := parseCalendarDate(day, now.Year()); ok {
		a.Shape = ShapeCalendarDate
		a.Date = time.Date(now.Year(), month, dom, tod.Hour, tod.Minute, 0, 0, loc)
		if p.pastDates == RollToNextYear && a.Date.Before(now) {
			a.Date = time.Date(now.Year()+1, month, dom, tod.Hour, tod.Minute, 0, 0, loc)
		}
		return a
	}

	a.Shape = ShapeUnrecognized
	a.Date = now
	return a
}

// DaysUntil returns how many days ahead the next target weekday is, counted
// from current. The same weekday yields 7, never 0.
func DaysUntil(current, target time.Weekday) int {
	n := (int(target) - int(current) + 7) % 7
	if n == 0 {
		n = 7
	}
	return n
}

// parseCalendarDate recognises "<Weekday>, <Month> <Day>", e.g. "Wed, Mar 6".
// The month is a three-letter abbreviation or a full name. The weekday part
// is only checked for being a weekday name.
func parseCalendarDate(s string, year int) (time.Month, int, bool) {
	head, rest, ok := strings.Cut(s, ", ")
	if !ok {
		return 0, 0, false
	}
	if _, err := ParseWeekday(head); err != nil {
		return 0, 0, false
	}
	name, day, ok := strings.Cut(rest, " ")
	if !ok {
		return 0, 0, false
	}
	month, ok := lookupMonth(name)
	if !ok {
		return 0, 0, false
	}
	dom, err := atoiDigits(day)
	if err != nil || dom < 1 || dom > daysIn(month, year) {
		return 0, 0, false
	}
	return month, dom, true
}

func lookupMonth(name string) (time.Month, bool) {
	name = strings.ToLower(name)
	if m, ok := months[name]; ok {
		return m, true
	}
	for m := time.January; m <= time.December; m++ {
		if strings.ToLower(m.String()) == name {
			return m, true
		}
	}
	return 0, false
}
