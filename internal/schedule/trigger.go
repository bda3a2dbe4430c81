package schedule

import (
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
)

// TriggerKind is the shape of a notification trigger.
type TriggerKind string

const (
	TriggerOneShot TriggerKind = "oneshot"
	TriggerDaily   TriggerKind = "daily"
	TriggerWeekly  TriggerKind = "weekly"
)

// TriggerSpec tells the notification gateway when to fire.
//
//	OneShot: {Year, Month, Day, Hour, Minute}
//	Daily:   {Hour, Minute, Repeats: true}
//	Weekly:  {Weekday (1-7, Sunday=1), Hour, Minute, Repeats: true}
type TriggerSpec struct {
	Kind    TriggerKind `json:"type"`
	Year    int         `json:"year,omitempty"`
	Month   int         `json:"month,omitempty"`
	Day     int         `json:"day,omitempty"`
	Weekday int         `json:"weekday,omitempty"`
	Hour    int         `json:"hour"`
	Minute  int         `json:"minute"`
	Repeats bool        `json:"repeats,omitempty"`
}

// BuildTrigger maps a schedule and its time of day onto a trigger.
func BuildTrigger(s Schedule, at TimeOfDay) (TriggerSpec, error) {
	if err := s.Validate(); err != nil {
		return TriggerSpec{}, fmt.Errorf("build trigger: %w", err)
	}
	if !at.Valid() {
		return TriggerSpec{}, fmt.Errorf("build trigger: time %d:%02d out of range", at.Hour, at.Minute)
	}

	switch s.Kind {
	case Daily:
		return TriggerSpec{Kind: TriggerDaily, Hour: at.Hour, Minute: at.Minute, Repeats: true}, nil
	case Weekly:
		return TriggerSpec{Kind: TriggerWeekly, Weekday: int(s.Weekday) + 1, Hour: at.Hour, Minute: at.Minute, Repeats: true}, nil
	default:
		y, m, d := s.Date.Date()
		return TriggerSpec{Kind: TriggerOneShot, Year: y, Month: int(m), Day: d, Hour: at.Hour, Minute: at.Minute}, nil
	}
}

// BuildFromAnchor maps a parsed anchor onto a trigger of the given kind.
// The Daily anchor's rollover never leaks into the trigger.
func BuildFromAnchor(kind Kind, a Anchor) (TriggerSpec, error) {
	at := TimeOfDay{Hour: a.Hour, Minute: a.Minute}
	switch kind {
	case Daily:
		return BuildTrigger(EveryDay(), at)
	case Weekly:
		if !a.HasWeekday() {
			return TriggerSpec{}, fmt.Errorf("build trigger: weekly anchor has no weekday")
		}
		return BuildTrigger(EveryWeek(time.Weekday(a.Weekday)), at)
	case Once:
		if a.Date.IsZero() {
			return TriggerSpec{}, fmt.Errorf("build trigger: once anchor has no date")
		}
		return BuildTrigger(OnceOn(a.Date), at)
	}
	return TriggerSpec{}, fmt.Errorf("build trigger: unknown kind %d", kind)
}

// Validate checks field ranges for the trigger's shape.
func (t TriggerSpec) Validate() error {
	if t.Hour < 0 || t.Hour > 23 || t.Minute < 0 || t.Minute > 59 {
		return fmt.Errorf("invalid trigger time %d:%02d", t.Hour, t.Minute)
	}
	switch t.Kind {
	case TriggerDaily:
		if !t.Repeats {
			return fmt.Errorf("daily trigger must repeat")
		}
	case TriggerWeekly:
		if !t.Repeats {
			return fmt.Errorf("weekly trigger must repeat")
		}
		if t.Weekday < 1 || t.Weekday > 7 {
			return fmt.Errorf("invalid trigger weekday %d", t.Weekday)
		}
	case TriggerOneShot:
		if t.Month < 1 || t.Month > 12 {
			return fmt.Errorf("invalid trigger month %d", t.Month)
		}
		if t.Day < 1 || t.Day > daysIn(time.Month(t.Month), t.Year) {
			return fmt.Errorf("invalid trigger day %d", t.Day)
		}
	default:
		return fmt.Errorf("unknown trigger type %q", t.Kind)
	}
	return nil
}

// CronSpec renders a recurring trigger as a six-field cron expression
// (seconds first).
func (t TriggerSpec) CronSpec() (string, error) {
	switch t.Kind {
	case TriggerDaily:
		return fmt.Sprintf("0 %d %d * * *", t.Minute, t.Hour), nil
	case TriggerWeekly:
		return fmt.Sprintf("0 %d %d * * %d", t.Minute, t.Hour, t.Weekday-1), nil
	}
	return "", fmt.Errorf("%s trigger has no cron form", t.Kind)
}

// Time returns the instant of a one-shot trigger in loc.
func (t TriggerSpec) Time(loc *time.Location) time.Time {
	return time.Date(t.Year, time.Month(t.Month), t.Day, t.Hour, t.Minute, 0, 0, loc)
}

var cronParser = cron.NewParser(cron.Second | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)

// Next returns the first fire time strictly after after, or the zero time
// if the trigger will not fire again.
func (t TriggerSpec) Next(after time.Time, loc *time.Location) (time.Time, error) {
	if err := t.Validate(); err != nil {
		return time.Time{}, err
	}
	if t.Kind == TriggerOneShot {
		at := t.Time(loc)
		if at.After(after) {
			return at, nil
		}
		return time.Time{}, nil
	}
	spec, err := t.CronSpec()
	if err != nil {
		return time.Time{}, err
	}
	sched, err := cronParser.Parse(spec)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse cron spec %q: %w", spec, err)
	}
	return sched.Next(after.In(loc)), nil
}

// String renders the trigger for logs.
func (t TriggerSpec) String() string {
	at := TimeOfDay{Hour: t.Hour, Minute: t.Minute}.Clock()
	switch t.Kind {
	case TriggerDaily:
		return "daily at " + at
	case TriggerWeekly:
		return fmt.Sprintf("weekly on %s at %s", time.Weekday(t.Weekday-1), at)
	case TriggerOneShot:
		return fmt.Sprintf("once on %04d-%02d-%02d at %s", t.Year, t.Month, t.Day, at)
	}
	return string(t.Kind)
}
