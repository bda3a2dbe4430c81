// Package mcpserver exposes the reminder store as MCP tools.
package mcpserver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"growell/internal/reminder"
	"growell/internal/schedule"
)

const (
	serverName    = "growell"
	serverVersion = "1.0.0"
)

// Store is the reminder store the tools operate on.
type Store interface {
	Create(ctx context.Context, in reminder.Input) (reminder.Reminder, error)
	Toggle(ctx context.Context, id string) (reminder.Reminder, error)
	Delete(ctx context.Context, id string) (warning error, err error)
	List() []reminder.Reminder
}

// Server is the MCP server for reminder management.
type Server struct {
	mcpServer *server.MCPServer
	store     Store
	parser    *schedule.Parser
}

// NewServer creates a new MCP server backed by the given store.
func NewServer(store Store, parser *schedule.Parser) *Server {
	s := &Server{
		store:  store,
		parser: parser,
	}

	s.mcpServer = server.NewMCPServer(
		serverName,
		serverVersion,
		server.WithToolCapabilities(false),
	)

	s.registerTools()
	return s
}

// MCPServer returns the underlying MCP server for serving.
func (s *Server) MCPServer() *server.MCPServer {
	return s.mcpServer
}

// HTTPHandler serves the tools over MCP streamable HTTP.
func (s *Server) HTTPHandler() *server.StreamableHTTPServer {
	return server.NewStreamableHTTPServer(s.mcpServer)
}

// ListenAndServe serves the tools over streamable HTTP at addr (endpoint
// /mcp) until ctx is done.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	httpServer := s.HTTPHandler()
	errCh := make(chan error, 1)
	go func() {
		errCh <- httpServer.Start(addr)
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("mcp http server: %w", err)
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("mcp http shutdown: %w", err)
		}
		return nil
	}
}

func (s *Server) registerTools() {
	s.mcpServer.AddTool(
		mcp.NewTool("add_reminder",
			mcp.WithDescription("Add a reminder. Give either frequency (with date or weekday) or a day descriptor such as \"Tomorrow\", \"Daily\", \"Every Sunday\" or \"Wed, Mar 6\""),
			mcp.WithString("title", mcp.Required(), mcp.Description("Reminder title")),
			mcp.WithString("time", mcp.Required(), mcp.Description("Time of day, e.g. 8:00 AM")),
			mcp.WithString("frequency", mcp.Description("Once, Daily or Weekly")),
			mcp.WithString("date", mcp.Description("Date for Once reminders, YYYY-MM-DD")),
			mcp.WithString("weekday", mcp.Description("Day for Weekly reminders, e.g. Sunday")),
			mcp.WithString("day", mcp.Description("Day descriptor used when frequency is empty")),
			mcp.WithString("description", mcp.Description("Optional description")),
		),
		s.handleAddReminder,
	)

	s.mcpServer.AddTool(
		mcp.NewTool("list_reminders",
			mcp.WithDescription("List reminders in creation order, optionally only enabled or disabled ones"),
			mcp.WithString("status", mcp.Description("enabled, disabled, or empty for all")),
		),
		s.handleListReminders,
	)

	s.mcpServer.AddTool(
		mcp.NewTool("toggle_reminder",
			mcp.WithDescription("Switch a reminder on or off"),
			mcp.WithString("id", mcp.Required(), mcp.Description("Reminder ID")),
		),
		s.handleToggleReminder,
	)

	s.mcpServer.AddTool(
		mcp.NewTool("delete_reminder",
			mcp.WithDescription("Delete a reminder and cancel its notification"),
			mcp.WithString("id", mcp.Required(), mcp.Description("Reminder ID")),
		),
		s.handleDeleteReminder,
	)

	s.mcpServer.AddTool(
		mcp.NewTool("parse_schedule",
			mcp.WithDescription("Show how a time and day descriptor resolve to a date and notification trigger"),
			mcp.WithString("time", mcp.Required(), mcp.Description("Time of day, e.g. 10:00 AM")),
			mcp.WithString("day", mcp.Required(), mcp.Description("Tomorrow, Daily, Every <Weekday> or <Weekday>, <Mon> <Day>")),
		),
		s.handleParseSchedule,
	)
}

// reminderView is the JSON shape tools return.
type reminderView struct {
	ID          string               `json:"id"`
	Title       string               `json:"title"`
	Description string               `json:"description,omitempty"`
	Time        string               `json:"time"`
	Day         string               `json:"day"`
	Enabled     bool                 `json:"is_enabled"`
	Trigger     schedule.TriggerSpec `json:"trigger"`
	NextFire    *time.Time           `json:"next_fire,omitempty"`
}

func (s *Server) view(r reminder.Reminder) reminderView {
	v := reminderView{
		ID:          r.ID,
		Title:       r.Title,
		Description: r.Description,
		Time:        r.Time.String(),
		Day:         r.Day(),
		Enabled:     r.Enabled,
		Trigger:     r.Trigger,
	}
	now := s.parser.Now()
	if next, err := r.NextFire(now, now.Location()); err == nil && !next.IsZero() {
		v.NextFire = &next
	}
	return v
}

func (s *Server) handleAddReminder(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	title := req.GetString("title", "")
	timeStr := req.GetString("time", "")
	frequency := req.GetString("frequency", "")
	description := req.GetString("description", "")

	if strings.TrimSpace(title) == "" {
		return mcp.NewToolResultError("title is required"), nil
	}
	if timeStr == "" {
		return mcp.NewToolResultError("time is required"), nil
	}

	var in reminder.Input
	if frequency == "" {
		day := req.GetString("day", "")
		if day == "" {
			return mcp.NewToolResultError("either frequency or day is required"), nil
		}
		in = reminder.LegacyInput(s.parser, title, description, timeStr, day)
	} else {
		kind, err := schedule.ParseKind(frequency)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		in = reminder.Input{
			Title:       title,
			Description: description,
			Time:        timeStr,
			Kind:        kind,
			Weekday:     req.GetString("weekday", ""),
		}
		if d := req.GetString("date", ""); d != "" {
			loc := s.parser.Now().Location()
			date, err := time.ParseInLocation("2006-01-02", d, loc)
			if err != nil {
				return mcp.NewToolResultError(fmt.Sprintf("invalid date: %v (use YYYY-MM-DD)", err)), nil
			}
			in.Date = date
		}
	}

	added, err := s.store.Create(ctx, in)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to add reminder: %v", err)), nil
	}

	output, _ := json.MarshalIndent(s.view(added), "", "  ")
	return mcp.NewToolResultText(string(output)), nil
}

func (s *Server) handleListReminders(_ context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	status := strings.ToLower(req.GetString("status", ""))
	if status != "" && status != "enabled" && status != "disabled" {
		return mcp.NewToolResultError(fmt.Sprintf("unknown status %q (use enabled or disabled)", status)), nil
	}

	views := []reminderView{}
	for _, r := range s.store.List() {
		if (status == "enabled" && !r.Enabled) || (status == "disabled" && r.Enabled) {
			continue
		}
		views = append(views, s.view(r))
	}

	if len(views) == 0 {
		return mcp.NewToolResultText("No reminders found."), nil
	}

	output, _ := json.MarshalIndent(views, "", "  ")
	return mcp.NewToolResultText(string(output)), nil
}

func (s *Server) handleToggleReminder(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id := req.GetString("id", "")
	if id == "" {
		return mcp.NewToolResultError("id is required"), nil
	}

	r, err := s.store.Toggle(ctx, id)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to toggle reminder: %v", err)), nil
	}

	output, _ := json.MarshalIndent(s.view(r), "", "  ")
	return mcp.NewToolResultText(string(output)), nil
}

func (s *Server) handleDeleteReminder(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id := req.GetString("id", "")
	if id == "" {
		return mcp.NewToolResultError("id is required"), nil
	}

	warning, err := s.store.Delete(ctx, id)
	if err != nil {
		if errors.Is(err, reminder.ErrNotFound) {
			return mcp.NewToolResultError(fmt.Sprintf("reminder %s not found", id)), nil
		}
		return mcp.NewToolResultError(fmt.Sprintf("failed to delete reminder: %v", err)), nil
	}

	text := fmt.Sprintf("Reminder %s deleted.", id)
	if warning != nil {
		text += fmt.Sprintf(" Warning: %v", warning)
	}
	return mcp.NewToolResultText(text), nil
}

type parsedSchedule struct {
	Shape   string                `json:"shape"`
	Anchor  time.Time             `json:"anchor"`
	Weekday *int                  `json:"weekday,omitempty"`
	Trigger *schedule.TriggerSpec `json:"trigger,omitempty"`
}

func (s *Server) handleParseSchedule(_ context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	timeStr := req.GetString("time", "")
	day := req.GetString("day", "")

	anchor, err := s.parser.Parse(timeStr, day)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	out := parsedSchedule{Shape: shapeName(anchor.Shape), Anchor: anchor.Date}
	if anchor.HasWeekday() {
		wd := anchor.Weekday
		out.Weekday = &wd
	}
	if sched, ok := s.parser.Classify(day); ok {
		if trig, err := schedule.BuildFromAnchor(sched.Kind, anchor); err == nil {
			out.Trigger = &trig
		}
	}

	output, _ := json.MarshalIndent(out, "", "  ")
	return mcp.NewToolResultText(string(output)), nil
}

func shapeName(shape schedule.DayShape) string {
	switch shape {
	case schedule.ShapeTomorrow:
		return "tomorrow"
	case schedule.ShapeDaily:
		return "daily"
	case schedule.ShapeEveryWeekday:
		return "weekly"
	case schedule.ShapeCalendarDate:
		return "date"
	}
	return "unrecognized"
}
