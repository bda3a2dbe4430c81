package service

import (
	"fmt"
	"time"

	"github.com/robfig/cron/v3"

	"growell/internal/config"
	"growell/internal/logger"
)

// SchedulerService wraps cron-based jobs.
type SchedulerService struct {
	cron *cron.Cron
	loc  *time.Location
}

func NewSchedulerService(loc *time.Location) *SchedulerService {
	if loc == nil {
		loc = time.Local
	}
	cronLog := cron.PrintfLogger(logger.Standard("cron"))
	return &SchedulerService{
		cron: cron.New(
			cron.WithLocation(loc),
			cron.WithSeconds(),
			cron.WithLogger(cronLog),
			cron.WithChain(cron.Recover(cronLog)),
		),
		loc: loc,
	}
}

// Location is the time zone jobs are scheduled in.
func (s *SchedulerService) Location() *time.Location {
	return s.loc
}

// ScheduleDaily registers a daily job at the given HH:MM time string.
func (s *SchedulerService) ScheduleDaily(timeStr string, job func()) (cron.EntryID, error) {
	spec, err := buildDailySpec(timeStr)
	if err != nil {
		return 0, err
	}
	return s.ScheduleSpec(spec, job)
}

// ScheduleSpec registers a job on a six-field cron expression.
func (s *SchedulerService) ScheduleSpec(spec string, job func()) (cron.EntryID, error) {
	id, err := s.cron.AddFunc(spec, job)
	if err != nil {
		return 0, fmt.Errorf("add cron job %q: %w", spec, err)
	}
	return id, nil
}

// ScheduleInterval registers a job that repeats every interval, rounded
// down to whole seconds.
func (s *SchedulerService) ScheduleInterval(interval time.Duration, job func()) (cron.EntryID, error) {
	if interval < time.Second {
		return 0, fmt.Errorf("interval %s must be at least one second", interval)
	}
	return s.ScheduleSpec(fmt.Sprintf("@every %ds", int(interval/time.Second)), job)
}

// ScheduleAt registers a job that runs once at at. An instant that has
// already passed is accepted but never runs.
func (s *SchedulerService) ScheduleAt(at time.Time, job func()) cron.EntryID {
	return s.cron.Schedule(&onceSchedule{at: at.In(s.loc)}, cron.FuncJob(job))
}

// Remove drops an entry. Unknown ids are ignored.
func (s *SchedulerService) Remove(id cron.EntryID) {
	s.cron.Remove(id)
}

// Has reports whether id is still registered.
func (s *SchedulerService) Has(id cron.EntryID) bool {
	return s.cron.Entry(id).Valid()
}

// Entries returns a snapshot of the registered entries.
func (s *SchedulerService) Entries() []cron.Entry {
	return s.cron.Entries()
}

func (s *SchedulerService) Start() {
	s.cron.Start()
}

func (s *SchedulerService) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
}

func buildDailySpec(timeStr string) (string, error) {
	hour, minute, err := config.ParseClock(timeStr)
	if err != nil {
		return "", err
	}
	// cron format: second minute hour dom month dow
	return fmt.Sprintf("0 %d %d * * *", minute, hour), nil
}

// onceSchedule fires a single time. cron skips entries whose next time is
// zero, so after firing the entry stays idle until it is removed.
type onceSchedule struct {
	at time.Time
}

func (o *onceSchedule) Next(t time.Time) time.Time {
	if !o.at.After(t) {
		return time.Time{}
	}
	return o.at
}
