package service

import (
	"context"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"growell/internal/logger"
	"growell/internal/schedule"
)

const deliverTimeout = 30 * time.Second

// Notification is an alert handed to a Deliverer when a trigger fires.
type Notification struct {
	Title   string
	Body    string
	Trigger schedule.TriggerSpec
	FiredAt time.Time
	// HTML marks Body as already rendered HTML.
	HTML bool
}

// Deliverer puts a notification in front of the user.
type Deliverer interface {
	Deliver(ctx context.Context, n Notification) error
}

// Reachable is implemented by deliverers that may have nobody to deliver to.
type Reachable interface {
	Reachable() bool
}

// NotificationService arms reminder triggers as cron entries. Handles are
// the decimal cron entry ids.
type NotificationService struct {
	scheduler *SchedulerService
	deliverer Deliverer
	now       func() time.Time

	// mu orders one-shot entry ids between arming and self-removal.
	mu sync.Mutex
}

func NewNotificationService(scheduler *SchedulerService, deliverer Deliverer) *NotificationService {
	return &NotificationService{
		scheduler: scheduler,
		deliverer: deliverer,
		now:       time.Now,
	}
}

// RequestPermission reports whether fired notifications can reach a user.
func (s *NotificationService) RequestPermission(ctx context.Context) (bool, error) {
	return s.reachable(), nil
}

// reachable is checked again on every fire: a deliverer without a
// recipient at startup may gain one later.
func (s *NotificationService) reachable() bool {
	if s.deliverer == nil {
		return false
	}
	if r, ok := s.deliverer.(Reachable); ok {
		return r.Reachable()
	}
	return true
}

// Schedule registers trigger and returns its handle.
func (s *NotificationService) Schedule(ctx context.Context, title, body string, trigger schedule.TriggerSpec) (string, error) {
	if err := trigger.Validate(); err != nil {
		return "", fmt.Errorf("schedule notification: %w", err)
	}
	n := Notification{Title: title, Body: body, Trigger: trigger}

	if trigger.Kind == schedule.TriggerOneShot {
		at := trigger.Time(s.scheduler.Location())
		if !at.After(s.now()) {
			logger.Warn("one-time notification is in the past and will not fire", "title", title, "at", at)
		}

		id := s.armOnce(at, n)
		logger.Debug("notification armed", "handle", id, "trigger", trigger.String())
		return handleOf(id), nil
	}

	spec, err := trigger.CronSpec()
	if err != nil {
		return "", fmt.Errorf("schedule notification: %w", err)
	}
	id, err := s.scheduler.ScheduleSpec(spec, func() { s.fire(n) })
	if err != nil {
		return "", fmt.Errorf("schedule notification: %w", err)
	}
	logger.Debug("notification armed", "handle", id, "trigger", trigger.String())
	return handleOf(id), nil
}

// Cancel removes the entry behind handle. Unknown and already fired
// handles are a no-op.
func (s *NotificationService) Cancel(ctx context.Context, handle string) error {
	id, err := strconv.Atoi(handle)
	if err != nil || id <= 0 {
		return fmt.Errorf("cancel notification: invalid handle %q", handle)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.scheduler.Remove(cron.EntryID(id))
	logger.Debug("notification cancelled", "handle", handle)
	return nil
}

// armOnce registers a job that fires n at at and then removes its own entry.
func (s *NotificationService) armOnce(at time.Time, n Notification) cron.EntryID {
	s.mu.Lock()
	defer s.mu.Unlock()
	var id cron.EntryID
	id = s.scheduler.ScheduleAt(at, func() {
		s.fire(n)
		s.mu.Lock()
		s.scheduler.Remove(id)
		s.mu.Unlock()
	})
	return id
}

func (s *NotificationService) fire(n Notification) {
	if !s.reachable() {
		logger.Warn("notification dropped, no one to deliver to", "title", n.Title)
		return
	}

	n.FiredAt = s.now()
	ctx, cancel := context.WithTimeout(context.Background(), deliverTimeout)
	defer cancel()
	if err := s.deliverer.Deliver(ctx, n); err != nil {
		logger.Error("deliver notification", "title", n.Title, "err", err)
		return
	}
	logger.Info("notification delivered", "title", n.Title)
}

func handleOf(id cron.EntryID) string {
	return strconv.Itoa(int(id))
}
