package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/alecthomas/kong"
	"github.com/mark3labs/mcp-go/server"

	"growell/internal/app"
	"growell/internal/bot"
	"growell/internal/config"
	"growell/internal/logger"
	"growell/internal/mcpserver"
)

type Globals struct {
	Config string `help:"Config file path." type:"path" default:"${config_path}"`
	Debug  bool   `help:"Enable debug logging."`
}

var CLI struct {
	Globals

	Version kong.VersionFlag

	Serve ServeCmd `cmd:"" help:"Run the Telegram bot and deliver reminders." default:"1"`
	MCP   MCPCmd   `cmd:"" name:"mcp" help:"Serve reminder tools over MCP (stdio) while serve is not running."`
	List  ListCmd  `cmd:"" help:"List reminders."`
	Seed  SeedCmd  `cmd:"" help:"Create the default reminders if there are none."`
}

func main() {
	kctx := kong.Parse(&CLI,
		kong.Name("growell"),
		kong.Description("Child-care reminders with Telegram delivery"),
		kong.UsageOnError(),
		kong.Vars{
			"version":     "v1.0.0",
			"config_path": config.GetDefaultConfigPath(),
		},
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	kctx.BindTo(ctx, (*context.Context)(nil))

	if err := kctx.Run(&CLI.Globals); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// open loads configuration, sets up logging and builds the application.
func open(g *Globals) (*app.App, error) {
	cfg, err := config.Load(g.Config)
	if err != nil {
		return nil, err
	}
	if g.Debug {
		cfg.Log.Debug = true
	}
	if err := logger.Init(logger.Config{Debug: cfg.Log.Debug, Dir: cfg.Log.Dir}); err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}
	return app.Open(cfg)
}

type ServeCmd struct {
	MCPAddr string `name:"mcp-addr" help:"Also serve the MCP tools over streamable HTTP at this address (overrides mcp.addr)."`
}

func (c *ServeCmd) Run(ctx context.Context, g *Globals) error {
	a, err := open(g)
	if err != nil {
		return err
	}
	defer a.Close()

	if err := a.Config.RequireTelegram(); err != nil {
		return err
	}
	if err := a.AcquireWriter(ctx, "serve"); err != nil {
		return err
	}
	telegramBot, err := bot.New(a.Config.Telegram.Token, a.Config.Telegram.ChatID, a.Store, a.Digest, a.Location)
	if err != nil {
		return err
	}
	a.SetDeliverer(telegramBot)

	a.Scheduler.Start()
	if err := a.Store.Start(ctx); err != nil {
		return fmt.Errorf("restore reminders: %w", err)
	}
	if err := a.SeedDefaults(ctx); err != nil {
		logger.Warn("some default reminders could not be created", "err", err)
	}
	if err := a.ScheduleDigest(); err != nil {
		return err
	}

	if addr := c.mcpAddr(a); addr != "" {
		tools := mcpserver.NewServer(a.Store, a.Parser)
		go func() {
			if err := tools.ListenAndServe(ctx, addr); err != nil {
				logger.Error("mcp endpoint stopped", "err", err)
			}
		}()
		logger.Info("mcp tools available", "url", "http://"+addr+"/mcp")
	}

	logger.Info("growell started", "reminders", len(a.Store.List()))
	if err := telegramBot.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("bot stopped with error: %w", err)
	}
	logger.Info("shutdown complete")
	return nil
}

func (c *ServeCmd) mcpAddr(a *app.App) string {
	if c.MCPAddr != "" {
		return c.MCPAddr
	}
	return a.Config.MCP.Addr
}

type MCPCmd struct{}

// Run serves the tools over stdio for when serve is not running. While serve
// owns the reminder list it refuses to start; use serve's HTTP endpoint then.
func (c *MCPCmd) Run(ctx context.Context, g *Globals) error {
	a, err := open(g)
	if err != nil {
		return err
	}
	defer a.Close()

	if err := a.AcquireWriter(ctx, "mcp"); err != nil {
		return fmt.Errorf("%w (connect to serve's mcp.addr endpoint instead)", err)
	}
	// Triggers are armed but the scheduler is not started: delivery belongs to serve.
	if err := a.Store.Restore(ctx); err != nil {
		return fmt.Errorf("restore reminders: %w", err)
	}

	s := mcpserver.NewServer(a.Store, a.Parser)
	if err := server.ServeStdio(s.MCPServer()); err != nil {
		return fmt.Errorf("mcp server: %w", err)
	}
	return nil
}

type ListCmd struct {
	Enabled bool `help:"Only show enabled reminders."`
}

func (c *ListCmd) Run(ctx context.Context, g *Globals) error {
	a, err := open(g)
	if err != nil {
		return err
	}
	defer a.Close()

	if err := a.Store.Restore(ctx); err != nil {
		return fmt.Errorf("restore reminders: %w", err)
	}
	return printReminders(os.Stdout, a, c.Enabled)
}

func printReminders(w io.Writer, a *app.App, onlyEnabled bool) error {
	list := a.Store.List()
	if len(list) == 0 {
		_, err := fmt.Fprintln(w, "No reminders.")
		return err
	}
	now := time.Now().In(a.Location)
	for i, r := range list {
		if onlyEnabled && !r.Enabled {
			continue
		}
		state := "off"
		if r.Enabled {
			state = "on"
		}
		line := fmt.Sprintf("%d. [%s] %s: %s at %s", i+1, state, r.Title, r.Day(), r.Time)
		if next, err := r.NextFire(now, a.Location); err == nil && !next.IsZero() {
			line += fmt.Sprintf(" (next %s)", next.Format("Mon Jan 2 15:04"))
		}
		if _, err := fmt.Fprintln(w, line); err != nil {
			return err
		}
	}
	return nil
}

type SeedCmd struct{}

func (c *SeedCmd) Run(ctx context.Context, g *Globals) error {
	a, err := open(g)
	if err != nil {
		return err
	}
	defer a.Close()

	if err := a.AcquireWriter(ctx, "seed"); err != nil {
		return err
	}
	if err := a.Store.Restore(ctx); err != nil {
		return fmt.Errorf("restore reminders: %w", err)
	}
	if n := len(a.Store.List()); n > 0 {
		fmt.Printf("Store already holds %d reminders, nothing to seed.\n", n)
		return nil
	}
	a.Config.Reminders.SeedDefaults = true
	if err := a.SeedDefaults(ctx); err != nil {
		return err
	}
	fmt.Printf("Created %d default reminders.\n", len(a.Store.List()))
	return nil
}
