package service

import (
	"context"
	"fmt"
	"html"
	"sort"
	"strings"
	"time"

	"github.com/robfig/cron/v3"

	"growell/internal/logger"
	"growell/internal/reminder"
)

// ReminderLister is the read side of the reminder store.
type ReminderLister interface {
	List() []reminder.Reminder
}

// DigestService builds human-readable summaries of the reminder list.
type DigestService struct {
	reminders ReminderLister
	loc       *time.Location
}

func NewDigestService(reminders ReminderLister, loc *time.Location) *DigestService {
	if loc == nil {
		loc = time.Local
	}
	return &DigestService{reminders: reminders, loc: loc}
}

type upcoming struct {
	r    reminder.Reminder
	next time.Time
}

// DailySummary lists what fires today, what fires later, and how many
// reminders are paused.
func (s *DigestService) DailySummary(now time.Time) (string, error) {
	now = now.In(s.loc)

	var today, later []upcoming
	paused := 0
	for _, r := range s.reminders.List() {
		if !r.Enabled {
			paused++
			continue
		}
		next, err := r.NextFire(now, s.loc)
		if err != nil {
			return "", fmt.Errorf("next fire for %q: %w", r.Title, err)
		}
		if next.IsZero() {
			continue
		}
		if sameDay(next, now) {
			today = append(today, upcoming{r: r, next: next})
		} else {
			later = append(later, upcoming{r: r, next: next})
		}
	}
	byNext := func(list []upcoming) {
		sort.SliceStable(list, func(i, j int) bool { return list[i].next.Before(list[j].next) })
	}
	byNext(today)
	byNext(later)

	var builder strings.Builder
	builder.WriteString("📋 <b>Daily reminders</b>\n")
	builder.WriteString(fmt.Sprintf("🗓 %s\n\n", now.Format("Mon, Jan 2")))

	builder.WriteString("⏰ <b>Today</b>\n")
	if len(today) == 0 {
		builder.WriteString("— nothing left today\n")
	} else {
		for _, u := range today {
			builder.WriteString(formatUpcoming(u, now))
		}
	}

	builder.WriteString("\n🔔 <b>Coming up</b>\n")
	if len(later) == 0 {
		builder.WriteString("— nothing scheduled\n")
	} else {
		for _, u := range later {
			builder.WriteString(formatUpcoming(u, now))
		}
	}

	if paused > 0 {
		builder.WriteString(fmt.Sprintf("\n💤 %d paused\n", paused))
	}

	return strings.TrimSpace(builder.String()), nil
}

// Schedule sends the summary to d every day at the HH:MM time at.
func (s *DigestService) Schedule(scheduler *SchedulerService, at string, d Deliverer) (cron.EntryID, error) {
	return scheduler.ScheduleDaily(at, func() {
		now := time.Now()
		text, err := s.DailySummary(now)
		if err != nil {
			logger.Error("build daily digest", "err", err)
			return
		}
		ctx, cancel := context.WithTimeout(context.Background(), deliverTimeout)
		defer cancel()
		if err := d.Deliver(ctx, Notification{Title: "Daily reminders", Body: text, FiredAt: now, HTML: true}); err != nil {
			logger.Error("deliver daily digest", "err", err)
		}
	})
}

func formatUpcoming(u upcoming, now time.Time) string {
	var sb strings.Builder

	sb.WriteString(fmt.Sprintf("• %s <i>(%s)</i>", html.EscapeString(u.r.Title), html.EscapeString(u.r.Day())))

	at := u.r.Time.String()
	if sameDay(u.next, now) {
		sb.WriteString(fmt.Sprintf("\n   ⏰ at %s", at))
	} else {
		sb.WriteString(fmt.Sprintf("\n   ⏰ %s at %s", u.next.Format("Mon, Jan 2"), at))
	}

	if u.r.Description != "" {
		sb.WriteString(fmt.Sprintf("\n   📝 %s", html.EscapeString(u.r.Description)))
	}

	sb.WriteByte('\n')
	return sb.String()
}

func sameDay(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}
