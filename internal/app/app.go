// Package app wires configuration, storage, scheduling and the reminder
// store into one running service.
package app

import (
	"context"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"growell/internal/config"
	"growell/internal/logger"
	"growell/internal/model"
	"growell/internal/reminder"
	"growell/internal/repository"
	"growell/internal/schedule"
	"growell/internal/service"
)

// App holds the long-lived components shared by every command.
type App struct {
	Config        *config.Config
	Location      *time.Location
	DB            *gorm.DB
	Parser        *schedule.Parser
	Scheduler     *service.SchedulerService
	Notifications *service.NotificationService
	Store         *reminder.Store
	Digest        *service.DigestService

	delivery *deliverySwitch
	leases   *repository.LeaseRepository
	lease    *model.Lease
	renewer  *service.SchedulerService
}

const (
	writerLease      = "writer"
	writerLeaseTTL   = 90 * time.Second
	writerLeaseRenew = 30 * time.Second
)

// Open builds the application from cfg. Nothing is scheduled or restored yet.
func Open(cfg *config.Config) (*App, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	loc, err := cfg.Location()
	if err != nil {
		return nil, err
	}
	policy, err := cfg.PastDatePolicy()
	if err != nil {
		return nil, err
	}

	db, err := repository.NewDB(cfg.Database.DSN)
	if err != nil {
		return nil, err
	}

	now := func() time.Time { return time.Now().In(loc) }
	delivery := &deliverySwitch{}
	scheduler := service.NewSchedulerService(loc)
	notifications := service.NewNotificationService(scheduler, delivery)
	store := reminder.NewStore(notifications,
		reminder.WithPersister(repository.NewReminderRepository(db)),
		reminder.WithClock(now),
	)

	return &App{
		Config:        cfg,
		Location:      loc,
		DB:            db,
		Parser:        schedule.NewParser(now, policy),
		Scheduler:     scheduler,
		Notifications: notifications,
		Store:         store,
		Digest:        service.NewDigestService(store, loc),
		delivery:      delivery,
		leases:        repository.NewLeaseRepository(db),
	}, nil
}

// AcquireWriter makes this process the only writer of the reminder list
// until Close. It fails with repository.ErrLeaseHeld while another process
// (serve, mcp or seed) holds the list. The lease is renewed in the background.
func (a *App) AcquireWriter(ctx context.Context, role string) error {
	if a.lease != nil {
		return nil
	}
	lease := model.Lease{Name: writerLease, Holder: uuid.NewString(), Role: role, PID: os.Getpid()}
	if err := a.leases.Acquire(ctx, lease, writerLeaseTTL); err != nil {
		return fmt.Errorf("%s cannot own the reminder list: %w", role, err)
	}

	renewer := service.NewSchedulerService(time.UTC)
	if _, err := renewer.ScheduleInterval(writerLeaseRenew, func() {
		if err := a.leases.Acquire(context.Background(), lease, writerLeaseTTL); err != nil {
			logger.Error("could not renew writer lease", "role", role, "err", err)
		}
	}); err != nil {
		_ = a.leases.Release(ctx, lease.Name, lease.Holder)
		return err
	}
	renewer.Start()

	a.lease = &lease
	a.renewer = renewer
	logger.Debug("writer lease acquired", "role", role)
	return nil
}

// SetDeliverer routes fired notifications to d.
func (a *App) SetDeliverer(d service.Deliverer) {
	a.delivery.set(d)
}

// SeedDefaults creates the default reminders when the store is empty and
// seeding is enabled.
func (a *App) SeedDefaults(ctx context.Context) error {
	if !a.Config.Reminders.SeedDefaults {
		return nil
	}
	if len(a.Store.List()) > 0 {
		return nil
	}
	logger.Info("seeding default reminders")
	return a.Store.Seed(ctx, reminder.DefaultSeeds(a.Parser))
}

// ScheduleDigest registers the daily digest when digest.time is set.
func (a *App) ScheduleDigest() error {
	if a.Config.Digest.Time == "" {
		return nil
	}
	if _, err := a.Digest.Schedule(a.Scheduler, a.Config.Digest.Time, a.delivery); err != nil {
		return fmt.Errorf("schedule digest: %w", err)
	}
	logger.Info("daily digest scheduled", "at", a.Config.Digest.Time)
	return nil
}

// Close stops the scheduler, releases the writer lease and closes the database.
func (a *App) Close() error {
	a.Scheduler.Stop()
	if a.lease != nil {
		a.renewer.Stop()
		if err := a.leases.Release(context.Background(), a.lease.Name, a.lease.Holder); err != nil {
			logger.Warn("could not release writer lease", "err", err)
		}
		a.lease = nil
	}
	sqlDB, err := a.DB.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// deliverySwitch lets the notification service exist before the bot that
// delivers for it.
type deliverySwitch struct {
	mu sync.RWMutex
	d  service.Deliverer
}

func (s *deliverySwitch) set(d service.Deliverer) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.d = d
}

func (s *deliverySwitch) get() service.Deliverer {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.d
}

func (s *deliverySwitch) Deliver(ctx context.Context, n service.Notification) error {
	d := s.get()
	if d == nil {
		return fmt.Errorf("deliver %q: no deliverer", n.Title)
	}
	return d.Deliver(ctx, n)
}

func (s *deliverySwitch) Reachable() bool {
	d := s.get()
	if d == nil {
		return false
	}
	if r, ok := d.(service.Reachable); ok {
		return r.Reachable()
	}
	return true
}
