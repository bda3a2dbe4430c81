package bot

import (
	"fmt"
	"html"
	"strings"

	"growell/internal/reminder"
	"growell/internal/service"
)

const (
	iconEnabled  = "🔔"
	iconDisabled = "🔕"
)

func formatReminderList(list []reminder.Reminder) string {
	var builder strings.Builder
	builder.WriteString("⏰ <b>Reminders</b>\n")
	builder.WriteString("Tap a reminder to switch it on or off, or 🗑 to delete it.\n\n")
	for i, r := range list {
		builder.WriteString(formatReminder(i+1, r))
	}
	return strings.TrimSpace(builder.String())
}

func formatReminder(n int, r reminder.Reminder) string {
	var b strings.Builder
	icon := iconEnabled
	if !r.Enabled {
		icon = iconDisabled
	}
	b.WriteString(fmt.Sprintf("%s <b>%d.</b> %s\n", icon, n, escape(r.Title)))
	b.WriteString(fmt.Sprintf("   🗓 %s · %s\n", escape(r.Day()), r.Time))
	if r.Description != "" {
		b.WriteString(fmt.Sprintf("   📝 %s\n", escape(r.Description)))
	}
	b.WriteByte('\n')
	return b.String()
}

func formatNotification(n service.Notification) string {
	text := fmt.Sprintf("%s <b>%s</b>", iconEnabled, escape(n.Title))
	if body := strings.TrimSpace(n.Body); body != "" {
		text += "\n" + escape(body)
	}
	return text
}

func shortTitle(title string, maxLen int) string {
	clean := strings.TrimSpace(strings.ReplaceAll(title, "\n", " "))
	runes := []rune(clean)
	if len(runes) <= maxLen {
		return clean
	}
	if maxLen <= 1 {
		return string(runes[:maxLen])
	}
	return string(runes[:maxLen-1]) + "…"
}

func escape(s string) string {
	return html.EscapeString(s)
}
