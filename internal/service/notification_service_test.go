package service

import (
	"context"
	"errors"
	"strconv"
	"testing"
	"time"

	"github.com/robfig/cron/v3"

	"growell/internal/schedule"
)

// Tuesday, January 13, 2026 at 10:00am
var ref = time.Date(2026, 1, 13, 10, 0, 0, 0, time.UTC)

type fakeDeliverer struct {
	got       chan Notification
	reachable bool
	err       error
}

func newFakeDeliverer() *fakeDeliverer {
	return &fakeDeliverer{got: make(chan Notification, 4), reachable: true}
}

func (d *fakeDeliverer) Deliver(_ context.Context, n Notification) error {
	d.got <- n
	return d.err
}

func (d *fakeDeliverer) Reachable() bool { return d.reachable }

func newTestNotifications(d Deliverer) (*NotificationService, *SchedulerService) {
	sched := NewSchedulerService(time.UTC)
	svc := NewNotificationService(sched, d)
	svc.now = func() time.Time { return ref }
	return svc, sched
}

func entryOf(t *testing.T, handle string) cron.EntryID {
	t.Helper()
	id, err := strconv.Atoi(handle)
	if err != nil {
		t.Fatalf("handle %q is not an entry id: %v", handle, err)
	}
	return cron.EntryID(id)
}

func TestScheduleRecurringTriggers(t *testing.T) {
	tests := []struct {
		name    string
		trigger schedule.TriggerSpec
		want    time.Time
	}{
		{
			name:    "daily later today",
			trigger: schedule.TriggerSpec{Kind: schedule.TriggerDaily, Hour: 20, Minute: 15, Repeats: true},
			want:    time.Date(2026, 1, 13, 20, 15, 0, 0, time.UTC),
		},
		{
			name:    "daily already passed",
			trigger: schedule.TriggerSpec{Kind: schedule.TriggerDaily, Hour: 8, Repeats: true},
			want:    time.Date(2026, 1, 14, 8, 0, 0, 0, time.UTC),
		},
		{
			name:    "weekly sunday",
			trigger: schedule.TriggerSpec{Kind: schedule.TriggerWeekly, Weekday: 1, Hour: 19, Repeats: true},
			want:    time.Date(2026, 1, 18, 19, 0, 0, 0, time.UTC),
		},
		{
			name:    "weekly saturday",
			trigger: schedule.TriggerSpec{Kind: schedule.TriggerWeekly, Weekday: 7, Hour: 9, Minute: 30, Repeats: true},
			want:    time.Date(2026, 1, 17, 9, 30, 0, 0, time.UTC),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, sched := newTestNotifications(newFakeDeliverer())

			handle, err := svc.Schedule(context.Background(), "Vitamin", "", tt.trigger)
			if err != nil {
				t.Fatalf("Schedule() error: %v", err)
			}
			entry := sched.cron.Entry(entryOf(t, handle))
			if !entry.Valid() {
				t.Fatalf("no entry for handle %s", handle)
			}
			if got := entry.Schedule.Next(ref); !got.Equal(tt.want) {
				t.Errorf("Next() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestScheduleOneShot(t *testing.T) {
	svc, sched := newTestNotifications(newFakeDeliverer())
	trigger := schedule.TriggerSpec{Kind: schedule.TriggerOneShot, Year: 2026, Month: 3, Day: 6, Hour: 14, Minute: 30}

	handle, err := svc.Schedule(context.Background(), "Pediatrician", "", trigger)
	if err != nil {
		t.Fatalf("Schedule() error: %v", err)
	}
	entry := sched.cron.Entry(entryOf(t, handle))
	want := time.Date(2026, 3, 6, 14, 30, 0, 0, time.UTC)
	if got := entry.Schedule.Next(ref); !got.Equal(want) {
		t.Errorf("Next() = %v, want %v", got, want)
	}
	if got := entry.Schedule.Next(want); !got.IsZero() {
		t.Errorf("Next() after firing = %v, want zero", got)
	}
}

func TestScheduleRejectsInvalidTrigger(t *testing.T) {
	svc, sched := newTestNotifications(newFakeDeliverer())

	bad := []schedule.TriggerSpec{
		{Kind: schedule.TriggerWeekly, Weekday: 0, Hour: 8, Repeats: true},
		{Kind: schedule.TriggerDaily, Hour: 24, Repeats: true},
		{Kind: schedule.TriggerOneShot, Year: 2026, Month: 2, Day: 30, Hour: 8},
		{Kind: "hourly", Hour: 8},
	}
	for _, trig := range bad {
		if _, err := svc.Schedule(context.Background(), "x", "", trig); err == nil {
			t.Errorf("Schedule(%+v) expected error", trig)
		}
	}
	if n := len(sched.Entries()); n != 0 {
		t.Errorf("entries = %d, want 0", n)
	}
}

func TestCancel(t *testing.T) {
	svc, sched := newTestNotifications(newFakeDeliverer())
	ctx := context.Background()

	handle, err := svc.Schedule(ctx, "Vitamin", "", schedule.TriggerSpec{Kind: schedule.TriggerDaily, Hour: 8, Repeats: true})
	if err != nil {
		t.Fatal(err)
	}
	if err := svc.Cancel(ctx, handle); err != nil {
		t.Fatalf("Cancel() error: %v", err)
	}
	if sched.Has(entryOf(t, handle)) {
		t.Error("entry still registered after Cancel")
	}

	if err := svc.Cancel(ctx, handle); err != nil {
		t.Errorf("second Cancel() error = %v, want nil", err)
	}
	if err := svc.Cancel(ctx, "999"); err != nil {
		t.Errorf("Cancel(unknown) error = %v, want nil", err)
	}
	if err := svc.Cancel(ctx, "not-a-handle"); err == nil {
		t.Error("Cancel(malformed) expected error")
	}
}

func TestHandlesAreDistinct(t *testing.T) {
	svc, _ := newTestNotifications(newFakeDeliverer())
	trig := schedule.TriggerSpec{Kind: schedule.TriggerDaily, Hour: 8, Repeats: true}

	seen := map[string]bool{}
	for i := 0; i < 5; i++ {
		h, err := svc.Schedule(context.Background(), "Vitamin", "", trig)
		if err != nil {
			t.Fatal(err)
		}
		if seen[h] {
			t.Fatalf("handle %s issued twice", h)
		}
		seen[h] = true
	}
}

func TestRequestPermission(t *testing.T) {
	tests := []struct {
		name      string
		deliverer Deliverer
		want      bool
	}{
		{name: "no deliverer", deliverer: nil, want: false},
		{name: "reachable", deliverer: &fakeDeliverer{reachable: true}, want: true},
		{name: "unreachable", deliverer: &fakeDeliverer{reachable: false}, want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, _ := newTestNotifications(tt.deliverer)
			got, err := svc.RequestPermission(context.Background())
			if err != nil {
				t.Fatal(err)
			}
			if got != tt.want {
				t.Errorf("RequestPermission() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestFireWithoutPermissionIsNoop(t *testing.T) {
	d := newFakeDeliverer()
	d.reachable = false
	svc, _ := newTestNotifications(d)
	if _, err := svc.RequestPermission(context.Background()); err != nil {
		t.Fatal(err)
	}

	svc.fire(Notification{Title: "Vitamin"})
	select {
	case n := <-d.got:
		t.Errorf("delivered %+v without permission", n)
	default:
	}

	nobody, _ := newTestNotifications(nil)
	nobody.fire(Notification{Title: "Vitamin"})
}

func TestFireDelivers(t *testing.T) {
	d := newFakeDeliverer()
	d.err = errors.New("telegram down")
	svc, _ := newTestNotifications(d)

	svc.fire(Notification{Title: "Vitamin", Body: "Daily vitamin D dose"})
	n := <-d.got
	if n.Title != "Vitamin" || n.Body != "Daily vitamin D dose" || !n.FiredAt.Equal(ref) {
		t.Errorf("delivered %+v", n)
	}
}

func TestOneShotRemovesItselfAfterFiring(t *testing.T) {
	d := newFakeDeliverer()
	svc, sched := newTestNotifications(d)
	sched.Start()
	defer sched.Stop()

	id := svc.armOnce(time.Now().Add(100*time.Millisecond), Notification{Title: "Growth Measurement"})

	select {
	case n := <-d.got:
		if n.Title != "Growth Measurement" {
			t.Errorf("delivered %q", n.Title)
		}
	case <-time.After(3 * time.Second):
		t.Fatal("one-time notification was not delivered")
	}

	deadline := time.Now().Add(2 * time.Second)
	for sched.Has(id) {
		if time.Now().After(deadline) {
			t.Fatal("fired one-time entry was not removed")
		}
		time.Sleep(10 * time.Millisecond)
	}
}
