package app

import (
	"context"
	"errors"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/mark3labs/mcp-go/client"
	"github.com/mark3labs/mcp-go/mcp"

	"growell/internal/config"
	"growell/internal/mcpserver"
	"growell/internal/reminder"
	"growell/internal/repository"
	"growell/internal/schedule"
	"growell/internal/service"
)

type recordingDeliverer struct {
	got []service.Notification
}

func (d *recordingDeliverer) Deliver(_ context.Context, n service.Notification) error {
	d.got = append(d.got, n)
	return nil
}

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	return &config.Config{
		Database:  config.DatabaseConfig{DSN: filepath.Join(t.TempDir(), "growell.db")},
		Timezone:  "UTC",
		Reminders: config.RemindersConfig{SeedDefaults: true, PastDates: "keep"},
	}
}

func TestOpenSeedAndRestore(t *testing.T) {
	cfg := testConfig(t)
	ctx := context.Background()

	a, err := Open(cfg)
	if err != nil {
		t.Fatalf("Open() error: %v", err)
	}
	if err := a.Store.Start(ctx); err != nil {
		t.Fatalf("Start() error: %v", err)
	}
	if err := a.SeedDefaults(ctx); err != nil {
		t.Fatalf("SeedDefaults() error: %v", err)
	}
	seeded := a.Store.List()
	if len(seeded) != 4 {
		t.Fatalf("seeded %d reminders, want 4", len(seeded))
	}
	if len(a.Scheduler.Entries()) != 3 {
		t.Errorf("cron entries = %d, want 3 enabled", len(a.Scheduler.Entries()))
	}
	if err := a.Close(); err != nil {
		t.Fatal(err)
	}

	b, err := Open(cfg)
	if err != nil {
		t.Fatalf("reopen error: %v", err)
	}
	defer b.Close()
	if err := b.Store.Start(ctx); err != nil {
		t.Fatal(err)
	}
	if err := b.SeedDefaults(ctx); err != nil {
		t.Fatal(err)
	}

	restored := b.Store.List()
	if len(restored) != len(seeded) {
		t.Fatalf("restored %d reminders, want %d", len(restored), len(seeded))
	}
	for i := range seeded {
		if restored[i].ID != seeded[i].ID || restored[i].Enabled != seeded[i].Enabled || restored[i].Trigger != seeded[i].Trigger {
			t.Errorf("reminder %d: restored %+v, seeded %+v", i, restored[i], seeded[i])
		}
	}
	if len(b.Scheduler.Entries()) != 3 {
		t.Errorf("re-armed entries = %d, want 3", len(b.Scheduler.Entries()))
	}
}

func TestSeedDisabled(t *testing.T) {
	cfg := testConfig(t)
	cfg.Reminders.SeedDefaults = false

	a, err := Open(cfg)
	if err != nil {
		t.Fatal(err)
	}
	defer a.Close()
	if err := a.SeedDefaults(context.Background()); err != nil {
		t.Fatal(err)
	}
	if n := len(a.Store.List()); n != 0 {
		t.Errorf("seeded %d reminders with seeding off", n)
	}
}

func TestOpenRejectsBadConfig(t *testing.T) {
	cfg := testConfig(t)
	cfg.Reminders.PastDates = "sometimes"
	if _, err := Open(cfg); err == nil {
		t.Error("Open() expected error for bad past_dates")
	}

	cfg = testConfig(t)
	cfg.Digest.Time = "7pm"
	if _, err := Open(cfg); err == nil {
		t.Error("Open() expected error for bad digest.time")
	}
}

func TestDeliverySwitch(t *testing.T) {
	a, err := Open(testConfig(t))
	if err != nil {
		t.Fatal(err)
	}
	defer a.Close()
	ctx := context.Background()

	if granted, _ := a.Notifications.RequestPermission(ctx); granted {
		t.Error("permission granted without a deliverer")
	}

	d := &recordingDeliverer{}
	a.SetDeliverer(d)
	if granted, _ := a.Notifications.RequestPermission(ctx); !granted {
		t.Error("permission denied with a deliverer")
	}
	if err := a.delivery.Deliver(ctx, service.Notification{Title: "Vitamin"}); err != nil {
		t.Fatal(err)
	}
	if len(d.got) != 1 || d.got[0].Title != "Vitamin" {
		t.Errorf("delivered %+v", d.got)
	}
}

func TestScheduleDigest(t *testing.T) {
	cfg := testConfig(t)
	a, err := Open(cfg)
	if err != nil {
		t.Fatal(err)
	}
	defer a.Close()

	if err := a.ScheduleDigest(); err != nil {
		t.Fatal(err)
	}
	if n := len(a.Scheduler.Entries()); n != 0 {
		t.Errorf("digest scheduled without digest.time: %d entries", n)
	}

	a.Config.Digest.Time = "07:30"
	if err := a.ScheduleDigest(); err != nil {
		t.Fatal(err)
	}
	if n := len(a.Scheduler.Entries()); n != 1 {
		t.Errorf("entries = %d, want 1", n)
	}
}

func callTool(t *testing.T, c *client.Client, name string, args map[string]any) string {
	t.Helper()
	req := mcp.CallToolRequest{}
	req.Params.Name = name
	req.Params.Arguments = args
	res, err := c.CallTool(context.Background(), req)
	if err != nil {
		t.Fatalf("%s: %v", name, err)
	}
	if res.IsError || len(res.Content) == 0 {
		t.Fatalf("%s failed: %+v", name, res.Content)
	}
	text, _ := res.Content[0].(mcp.TextContent)
	return text.Text
}

func TestOneWriterPerDatabase(t *testing.T) {
	cfg := testConfig(t)
	cfg.Reminders.SeedDefaults = false
	ctx := context.Background()

	serve, err := Open(cfg)
	if err != nil {
		t.Fatal(err)
	}
	if err := serve.AcquireWriter(ctx, "serve"); err != nil {
		t.Fatalf("AcquireWriter(serve) error: %v", err)
	}
	if err := serve.Store.Start(ctx); err != nil {
		t.Fatal(err)
	}
	vitamin, err := serve.Store.Create(ctx, reminder.Input{Title: "Vitamin", Time: "8:00 AM", Kind: schedule.Daily})
	if err != nil {
		t.Fatal(err)
	}

	// A second process over the same file may not take the list.
	other, err := Open(cfg)
	if err != nil {
		t.Fatal(err)
	}
	defer other.Close()
	if err := other.AcquireWriter(ctx, "mcp"); !errors.Is(err, repository.ErrLeaseHeld) {
		t.Fatalf("AcquireWriter(mcp) error = %v, want ErrLeaseHeld", err)
	}

	// MCP clients go through serve's own store instead.
	ts := httptest.NewServer(mcpserver.NewServer(serve.Store, serve.Parser).HTTPHandler())
	c, err := client.NewStreamableHttpClient(ts.URL + "/mcp")
	if err != nil {
		t.Fatal(err)
	}
	if err := c.Start(ctx); err != nil {
		t.Fatal(err)
	}
	initRequest := mcp.InitializeRequest{}
	initRequest.Params.ProtocolVersion = mcp.LATEST_PROTOCOL_VERSION
	initRequest.Params.ClientInfo = mcp.Implementation{Name: "growell-test", Version: "1.0.0"}
	if _, err := c.Initialize(ctx, initRequest); err != nil {
		t.Fatalf("Initialize() error: %v", err)
	}

	callTool(t, c, "toggle_reminder", map[string]any{"id": vitamin.ID})
	if n := len(serve.Scheduler.Entries()); n != 0 {
		t.Errorf("cron entries after disabling over MCP = %d, want 0", n)
	}
	callTool(t, c, "add_reminder", map[string]any{"title": "Meal Planning", "time": "7:00 PM", "frequency": "Weekly", "weekday": "Sunday"})
	if n := len(serve.Scheduler.Entries()); n != 1 {
		t.Errorf("cron entries after adding over MCP = %d, want 1", n)
	}
	c.Close()
	ts.Close()
	if err := serve.Close(); err != nil {
		t.Fatal(err)
	}

	// Once serve is gone the list can be taken over, with every change intact.
	if err := other.AcquireWriter(ctx, "mcp"); err != nil {
		t.Fatalf("AcquireWriter(mcp) after serve stopped: %v", err)
	}
	if err := other.Store.Restore(ctx); err != nil {
		t.Fatal(err)
	}
	list := other.Store.List()
	if len(list) != 2 {
		t.Fatalf("stored %d reminders, want 2: %+v", len(list), list)
	}
	if list[0].Title != "Vitamin" || list[0].Enabled {
		t.Errorf("first = %+v, want Vitamin disabled", list[0])
	}
	if list[1].Title != "Meal Planning" || !list[1].Enabled {
		t.Errorf("second = %+v, want Meal Planning enabled", list[1])
	}
}
