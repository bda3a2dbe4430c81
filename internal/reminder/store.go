package reminder

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"growell/internal/logger"
	"growell/internal/model"
	"growell/internal/schedule"
)

// Store owns the reminder list and is the only caller of the notification
// gateway on behalf of reminders. Every enabled reminder has exactly one
// live trigger; disabled reminders have none.
//
// Operations are serialized: each runs to completion, gateway calls
// included, before the next one starts.
type Store struct {
	mu        sync.Mutex
	gateway   Gateway
	persister Persister
	now       func() time.Time
	newID     func() string
	reminders []Reminder
}

type Option func(*Store)

// WithPersister saves the list after every mutation.
func WithPersister(p Persister) Option {
	return func(s *Store) { s.persister = p }
}

// WithClock sets the clock used for creation timestamps and restored dates.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// WithIDs sets the id generator. Ids must never repeat.
func WithIDs(newID func() string) Option {
	return func(s *Store) { s.newID = newID }
}

func NewStore(gateway Gateway, opts ...Option) *Store {
	s := &Store{
		gateway: gateway,
		now:     time.Now,
		newID:   uuid.NewString,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Start asks the gateway for permission and restores the persisted list.
// A denied permission is logged; reminders are still created and armed.
func (s *Store) Start(ctx context.Context) error {
	granted, err := s.gateway.RequestPermission(ctx)
	switch {
	case err != nil:
		logger.Warn("notification permission request failed", "err", err)
	case !granted:
		logger.Warn("notification permission not granted, reminders will not be delivered")
	}
	return s.Restore(ctx)
}

// Create validates in, arms its trigger and inserts the new reminder.
// Nothing is inserted when it fails.
func (s *Store) Create(ctx context.Context, in Input) (Reminder, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	r, err := s.create(ctx, in)
	if err != nil {
		return Reminder{}, err
	}
	s.persist(ctx)
	return r, nil
}

func (s *Store) create(ctx context.Context, in Input) (Reminder, error) {
	title := strings.TrimSpace(in.Title)
	if title == "" {
		return Reminder{}, fmt.Errorf("%w: title is required", ErrValidation)
	}
	sched, err := in.schedule()
	if err != nil {
		return Reminder{}, err
	}
	tod, err := schedule.ParseTime(strings.TrimSpace(in.Time))
	if err != nil {
		return Reminder{}, err
	}

	r := Reminder{
		ID:          s.newID(),
		Title:       title,
		Description: strings.TrimSpace(in.Description),
		Time:        tod,
		Schedule:    sched,
		CreatedAt:   s.now(),
	}
	if err := s.arm(ctx, &r); err != nil {
		return Reminder{}, err
	}

	s.reminders = append(s.reminders, r)
	logger.Info("reminder created", "id", r.ID, "title", r.Title, "trigger", r.Trigger.String())
	return r, nil
}

// Toggle flips a reminder between enabled and disabled. Disabling cancels
// the live trigger; enabling arms a new one from the stored schedule. If the
// gateway fails the reminder is left exactly as it was.
func (s *Store) Toggle(ctx context.Context, id string) (Reminder, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	r, err := s.toggle(ctx, id)
	if err != nil {
		return r, err
	}
	s.persist(ctx)
	return r, nil
}

func (s *Store) toggle(ctx context.Context, id string) (Reminder, error) {
	i := s.indexOf(id)
	if i < 0 {
		return Reminder{}, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	r := s.reminders[i]

	if r.Enabled {
		if r.Handle != "" {
			if err := s.gateway.Cancel(ctx, r.Handle); err != nil {
				return s.reminders[i], fmt.Errorf("%w: cancel notification: %v", ErrScheduling, err)
			}
		}
		r.Enabled = false
		r.Handle = ""
	} else {
		if err := s.arm(ctx, &r); err != nil {
			return s.reminders[i], err
		}
	}

	s.reminders[i] = r
	logger.Info("reminder toggled", "id", r.ID, "enabled", r.Enabled)
	return r, nil
}

// Delete cancels the reminder's trigger and removes it. The removal happens
// even if the cancel fails; that failure is returned as warning.
func (s *Store) Delete(ctx context.Context, id string) (warning error, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.indexOf(id)
	if i < 0 {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	r := s.reminders[i]

	if r.Handle != "" {
		if cerr := s.gateway.Cancel(ctx, r.Handle); cerr != nil {
			warning = fmt.Errorf("%w: cancel notification for %q: %v", ErrScheduling, r.Title, cerr)
			logger.Warn("reminder deleted but its notification could not be cancelled", "id", r.ID, "err", cerr)
		}
	}

	s.reminders = append(s.reminders[:i:i], s.reminders[i+1:]...)
	logger.Info("reminder deleted", "id", r.ID)
	s.persist(ctx)
	return warning, nil
}

// List returns all reminders in insertion order.
func (s *Store) List() []Reminder {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]Reminder, len(s.reminders))
	copy(out, s.reminders)
	return out
}

// Get returns the reminder with the given id.
func (s *Store) Get(id string) (Reminder, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.indexOf(id)
	if i < 0 {
		return Reminder{}, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return s.reminders[i], nil
}

// Restore replaces the in-memory list with the persisted one and re-arms
// every enabled reminder. It only reads from storage. Stored handles belong
// to an earlier process and are dropped. A reminder that cannot be re-armed has no live trigger and
// reads as disabled, but stays enabled in storage so the next start retries.
func (s *Store) Restore(ctx context.Context) error {
	if s.persister == nil {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.reminders) > 0 {
		return fmt.Errorf("restore reminders: store already holds %d reminders", len(s.reminders))
	}

	rows, err := s.persister.Load(ctx)
	if err != nil {
		return err
	}

	loc := s.now().Location()
	restored := make([]Reminder, 0, len(rows))
	for _, row := range rows {
		r, err := fromModel(row, loc)
		if err != nil {
			logger.Warn("skipping unreadable stored reminder", "id", row.ID, "err", err)
			continue
		}
		r.Handle = ""
		if r.Enabled {
			if err := s.arm(ctx, &r); err != nil {
				logger.Warn("could not re-arm reminder, retrying on next start", "id", r.ID, "err", err)
				r.Enabled = false
				r.unarmed = true
				if trig, err := schedule.BuildTrigger(r.Schedule, r.Time); err == nil {
					r.Trigger = trig
				}
			}
		} else if trig, err := schedule.BuildTrigger(r.Schedule, r.Time); err == nil {
			r.Trigger = trig
		}
		restored = append(restored, r)
	}
	s.reminders = restored
	logger.Info("reminders restored", "count", len(restored))
	return nil
}

// Seed is a reminder created on first start.
type Seed struct {
	Input
	Enabled bool
}

// Seed creates seeds when the store is empty. Seeds that are not enabled
// are switched off right after creation.
func (s *Store) Seed(ctx context.Context, seeds []Seed) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.reminders) > 0 {
		return nil
	}

	var errs []error
	for _, seed := range seeds {
		r, err := s.create(ctx, seed.Input)
		if err != nil {
			errs = append(errs, fmt.Errorf("seed %q: %w", seed.Title, err))
			continue
		}
		if !seed.Enabled {
			if _, err := s.toggle(ctx, r.ID); err != nil {
				errs = append(errs, fmt.Errorf("seed %q: %w", seed.Title, err))
			}
		}
	}
	s.persist(ctx)
	return errors.Join(errs...)
}

// arm builds r's trigger and schedules it, recording trigger and handle on
// success. r is untouched on failure.
func (s *Store) arm(ctx context.Context, r *Reminder) error {
	trig, err := schedule.BuildTrigger(r.Schedule, r.Time)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrScheduling, err)
	}
	handle, err := s.gateway.Schedule(ctx, r.Title, r.Description, trig)
	if err != nil {
		return fmt.Errorf("%w: schedule notification: %v", ErrScheduling, err)
	}
	r.Trigger = trig
	r.Handle = handle
	r.Enabled = true
	r.unarmed = false
	return nil
}

func (s *Store) indexOf(id string) int {
	for i := range s.reminders {
		if s.reminders[i].ID == id {
			return i
		}
	}
	return -1
}

// persist saves the list. Failures are logged: the in-memory list and the
// live triggers stay authoritative.
func (s *Store) persist(ctx context.Context) {
	if s.persister == nil {
		return
	}
	rows := make([]model.Reminder, len(s.reminders))
	for i, r := range s.reminders {
		rows[i] = toModel(r)
	}
	if err := s.persister.Save(ctx, rows); err != nil {
		logger.Warn("could not save reminders", "err", err)
	}
}
