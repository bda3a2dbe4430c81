package reminder

import (
	"context"
	"fmt"
	"strings"
	"time"

	"growell/internal/model"
	"growell/internal/schedule"
)

// Reminder is a user-facing scheduled task.
type Reminder struct {
	ID          string               `json:"id"`
	Title       string               `json:"title"`
	Description string               `json:"description,omitempty"`
	Time        schedule.TimeOfDay   `json:"time"`
	Schedule    schedule.Schedule    `json:"-"`
	Enabled     bool                 `json:"is_enabled"`
	Handle      string               `json:"trigger_handle,omitempty"`
	Trigger     schedule.TriggerSpec `json:"trigger"`
	CreatedAt   time.Time            `json:"created_at"`

	// unarmed marks a reminder stored as enabled whose trigger could not be
	// re-armed at startup. It stays enabled on disk so the next start retries.
	unarmed bool
}

// Day is the display string of the reminder's schedule, e.g. "Every Sunday".
func (r Reminder) Day() string {
	return r.Schedule.Label()
}

// Unarmed reports whether the reminder is stored as enabled but has no
// live trigger in this process.
func (r Reminder) Unarmed() bool {
	return r.unarmed
}

// NextFire returns when the reminder fires next after after, or the zero
// time if it is disabled or will not fire again.
func (r Reminder) NextFire(after time.Time, loc *time.Location) (time.Time, error) {
	if !r.Enabled {
		return time.Time{}, nil
	}
	return r.Trigger.Next(after, loc)
}

// Input holds the fields of a reminder creation request.
type Input struct {
	Title       string
	Description string
	Time        string // "H:MM AM|PM"
	Kind        schedule.Kind
	Date        time.Time // Once
	Weekday     string    // Weekly, e.g. "Sun" or "Sunday"
}

func (in Input) schedule() (schedule.Schedule, error) {
	switch in.Kind {
	case schedule.Once:
		if in.Date.IsZero() {
			return schedule.Schedule{}, fmt.Errorf("%w: a date is required for a one-time reminder", ErrValidation)
		}
		return schedule.OnceOn(in.Date), nil
	case schedule.Daily:
		return schedule.EveryDay(), nil
	case schedule.Weekly:
		name := strings.TrimSpace(in.Weekday)
		if name == "" {
			return schedule.Schedule{}, fmt.Errorf("%w: a day is required for a weekly reminder", ErrValidation)
		}
		wd, err := schedule.ParseWeekday(name)
		if err != nil {
			return schedule.Schedule{}, fmt.Errorf("%w: %v", ErrValidation, err)
		}
		return schedule.EveryWeek(wd), nil
	}
	return schedule.Schedule{}, fmt.Errorf("%w: unknown frequency %d", ErrValidation, in.Kind)
}

// LegacyInput builds an Input from the display strings the app used to
// store, e.g. time "7:00 PM" and day "Every Sunday". A day string that
// matches no known shape degrades to a one-time reminder for today.
func LegacyInput(p *schedule.Parser, title, description, timeString, dayString string) Input {
	in := Input{Title: title, Description: description, Time: timeString}
	sched, ok := p.Classify(dayString)
	if !ok {
		sched = schedule.OnceOn(p.Now())
	}
	in.Kind = sched.Kind
	switch sched.Kind {
	case schedule.Once:
		in.Date = sched.Date
	case schedule.Weekly:
		in.Weekday = sched.Weekday.String()
	}
	return in
}

// Gateway arms and cancels notification triggers on behalf of the store.
type Gateway interface {
	RequestPermission(ctx context.Context) (bool, error)
	// Schedule arms trigger and returns an opaque handle for it.
	Schedule(ctx context.Context, title, body string, trigger schedule.TriggerSpec) (string, error)
	// Cancel disarms handle. Unknown, fired or cancelled handles are a no-op.
	Cancel(ctx context.Context, handle string) error
}

// Persister loads and saves the reminder list as a whole.
type Persister interface {
	Load(ctx context.Context) ([]model.Reminder, error)
	Save(ctx context.Context, rows []model.Reminder) error
}

func toModel(r Reminder) model.Reminder {
	row := model.Reminder{
		ID:          r.ID,
		Title:       r.Title,
		Description: r.Description,
		Hour:        r.Time.Hour,
		Minute:      r.Time.Minute,
		Frequency:   r.Schedule.Kind.String(),
		IsEnabled:   r.Enabled || r.unarmed,
		Handle:      r.Handle,
		CreatedAt:   r.CreatedAt,
	}
	switch r.Schedule.Kind {
	case schedule.Once:
		d := r.Schedule.Date
		row.Date = &d
	case schedule.Weekly:
		wd := int(r.Schedule.Weekday)
		row.Weekday = &wd
	}
	return row
}

func fromModel(row model.Reminder, loc *time.Location) (Reminder, error) {
	kind, err := schedule.ParseKind(row.Frequency)
	if err != nil {
		return Reminder{}, err
	}
	var sched schedule.Schedule
	switch kind {
	case schedule.Once:
		if row.Date == nil {
			return Reminder{}, fmt.Errorf("reminder %s: once without date", row.ID)
		}
		y, m, d := row.Date.Date()
		sched = schedule.OnceOn(time.Date(y, m, d, 0, 0, 0, 0, loc))
	case schedule.Daily:
		sched = schedule.EveryDay()
	case schedule.Weekly:
		if row.Weekday == nil {
			return Reminder{}, fmt.Errorf("reminder %s: weekly without weekday", row.ID)
		}
		sched = schedule.EveryWeek(time.Weekday(*row.Weekday))
	}
	if err := sched.Validate(); err != nil {
		return Reminder{}, fmt.Errorf("reminder %s: %w", row.ID, err)
	}

	tod := schedule.TimeOfDay{Hour: row.Hour, Minute: row.Minute}
	if !tod.Valid() {
		return Reminder{}, fmt.Errorf("reminder %s: invalid time %d:%02d", row.ID, row.Hour, row.Minute)
	}
	if strings.TrimSpace(row.Title) == "" || row.ID == "" {
		return Reminder{}, fmt.Errorf("reminder %q: missing id or title", row.ID)
	}

	return Reminder{
		ID:          row.ID,
		Title:       row.Title,
		Description: row.Description,
		Time:        tod,
		Schedule:    sched,
		Enabled:     row.IsEnabled,
		Handle:      row.Handle,
		CreatedAt:   row.CreatedAt,
	}, nil
}
