package service

import (
	"strings"
	"testing"
	"time"

	"growell/internal/reminder"
	"growell/internal/schedule"
)

type staticList []reminder.Reminder

func (l staticList) List() []reminder.Reminder { return l }

func mustReminder(t *testing.T, title, desc, at string, s schedule.Schedule, enabled bool) reminder.Reminder {
	t.Helper()
	tod, err := schedule.ParseTime(at)
	if err != nil {
		t.Fatal(err)
	}
	trig, err := schedule.BuildTrigger(s, tod)
	if err != nil {
		t.Fatal(err)
	}
	return reminder.Reminder{ID: title, Title: title, Description: desc, Time: tod, Schedule: s, Trigger: trig, Enabled: enabled}
}

func TestDailySummary(t *testing.T) {
	list := staticList{
		mustReminder(t, "Vitamin Supplement", "Daily vitamin D dose", "8:00 AM", schedule.EveryDay(), true),
		mustReminder(t, "Meal Planning", "", "7:00 PM", schedule.EveryWeek(time.Sunday), true),
		mustReminder(t, "Lunch", "", "12:30 PM", schedule.EveryDay(), true),
		mustReminder(t, "Bath <time>", "", "6:00 PM", schedule.EveryDay(), false),
		mustReminder(t, "New Year", "", "9:00 AM", schedule.OnceOn(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)), true),
	}

	got, err := NewDigestService(list, time.UTC).DailySummary(ref)
	if err != nil {
		t.Fatalf("DailySummary() error: %v", err)
	}

	wantParts := []string{
		"📋 <b>Daily reminders</b>\n🗓 Tue, Jan 13",
		"⏰ <b>Today</b>\n• Lunch <i>(Daily)</i>\n   ⏰ at 12:30 PM\n",
		"• Vitamin Supplement <i>(Daily)</i>\n   ⏰ Wed, Jan 14 at 8:00 AM\n   📝 Daily vitamin D dose\n",
		"• Meal Planning <i>(Every Sunday)</i>\n   ⏰ Sun, Jan 18 at 7:00 PM",
		"💤 1 paused",
	}
	for _, part := range wantParts {
		if !strings.Contains(got, part) {
			t.Errorf("summary missing %q:\n%s", part, got)
		}
	}
	if strings.Index(got, "Vitamin Supplement") > strings.Index(got, "Meal Planning") {
		t.Errorf("coming up not ordered by next fire:\n%s", got)
	}
	if strings.Contains(got, "New Year") || strings.Contains(got, "Bath") {
		t.Errorf("summary lists reminders that will not fire:\n%s", got)
	}
}

func TestDailySummaryEmpty(t *testing.T) {
	got, err := NewDigestService(staticList{}, time.UTC).DailySummary(ref)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(got, "— nothing left today") || !strings.Contains(got, "— nothing scheduled") {
		t.Errorf("empty summary:\n%s", got)
	}
	if strings.Contains(got, "paused") {
		t.Errorf("empty summary mentions paused reminders:\n%s", got)
	}
}

func TestDigestScheduleRejectsBadTime(t *testing.T) {
	digest := NewDigestService(staticList{}, time.UTC)
	if _, err := digest.Schedule(NewSchedulerService(time.UTC), "7pm", newFakeDeliverer()); err == nil {
		t.Error("Schedule() expected error for malformed time")
	}
}
