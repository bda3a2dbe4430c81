package bot

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"growell/internal/logger"
	"growell/internal/reminder"
	"growell/internal/schedule"
)

type conversationStage int

const (
	stageNone conversationStage = iota
	stageTitle
	stageDescription
	stageTime
	stageFrequency
	stageDate
	stageWeekday
)

type conversationState struct {
	stage conversationStage
	input reminder.Input
}

// advance applies one answer. It returns the next prompt and keyboard, or
// done once the input is complete.
func (c *conversationState) advance(text string, now time.Time) (prompt string, markup interface{}, done bool) {
	text = strings.TrimSpace(text)

	switch c.stage {
	case stageTitle:
		if text == "" {
			return "The title cannot be empty. What should the reminder be called?", cancelKeyboard(), false
		}
		c.input.Title = text
		c.stage = stageDescription
		return "✏️ Add a short description (or tap Skip).", skipKeyboard(), false

	case stageDescription:
		if !isSkipInput(text) {
			c.input.Description = text
		}
		c.stage = stageTime
		return "⏰ At what time? Use the form <code>8:00 AM</code>.", cancelKeyboard(), false

	case stageTime:
		if _, err := schedule.ParseTime(text); err != nil {
			return "I cannot read that time. Use the form <code>8:00 AM</code> or <code>2:30 PM</code>.", cancelKeyboard(), false
		}
		c.input.Time = text
		c.stage = stageFrequency
		return "🔁 How often?", frequencyKeyboard(), false

	case stageFrequency:
		kind, err := schedule.ParseKind(text)
		if err != nil {
			return "Pick Once, Daily or Weekly.", frequencyKeyboard(), false
		}
		c.input.Kind = kind
		switch kind {
		case schedule.Once:
			c.stage = stageDate
			return "📆 On which date? Use <code>2026-03-06</code> or tap Tomorrow.", dateKeyboard(), false
		case schedule.Weekly:
			c.stage = stageWeekday
			return "📆 On which day of the week?", weekdayKeyboard(), false
		}
		return "", nil, true

	case stageDate:
		date, err := parseDateAnswer(text, now)
		if err != nil {
			return "I cannot read that date. Use <code>2026-03-06</code> or tap Tomorrow.", dateKeyboard(), false
		}
		c.input.Date = date
		return "", nil, true

	case stageWeekday:
		if _, err := schedule.ParseWeekday(text); err != nil {
			return "Pick a day of the week, e.g. Sunday.", weekdayKeyboard(), false
		}
		c.input.Weekday = text
		return "", nil, true
	}

	c.stage = stageNone
	return "", nil, false
}

func parseDateAnswer(text string, now time.Time) (time.Time, error) {
	if strings.EqualFold(text, "tomorrow") || strings.EqualFold(text, btnTomorrow) {
		return now.AddDate(0, 0, 1), nil
	}
	if strings.EqualFold(text, "today") || strings.EqualFold(text, btnToday) {
		return now, nil
	}
	return time.ParseInLocation("2006-01-02", text, now.Location())
}

func (b *Bot) startNewReminderConversation(msg *tgbotapi.Message) error {
	logger.Info("start new reminder conversation", "user", msg.From.ID)
	b.clearConfirmation(msg.From.ID)
	b.setConversation(msg.From.ID, &conversationState{stage: stageTitle})
	return b.sendWithReplyMarkup(msg.Chat.ID, "🆕 New reminder.\n<b>Step 1:</b> what should it be called?", cancelKeyboard())
}

func (b *Bot) handleConversation(ctx context.Context, msg *tgbotapi.Message) error {
	state := b.getConversation(msg.From.ID)
	if state == nil {
		return nil
	}

	prompt, markup, done := state.advance(msg.Text, b.now().In(b.loc))
	if done {
		b.clearConversation(msg.From.ID)
		return b.finishReminderCreation(ctx, msg.Chat.ID, state.input)
	}
	if state.stage == stageNone {
		b.clearConversation(msg.From.ID)
		return b.sendText(msg.Chat.ID, "The conversation was reset. Try again with /newreminder.")
	}
	return b.sendWithReplyMarkup(msg.Chat.ID, prompt, markup)
}

func (b *Bot) finishReminderCreation(ctx context.Context, chatID int64, input reminder.Input) error {
	r, err := b.store.Create(ctx, input)
	if err != nil {
		var reason string
		switch {
		case errors.Is(err, reminder.ErrValidation), errors.Is(err, reminder.ErrMalformedTime):
			reason = err.Error()
		case errors.Is(err, reminder.ErrScheduling):
			reason = "the notification could not be scheduled"
		default:
			reason = err.Error()
		}
		return b.sendTextWithRemove(chatID, fmt.Sprintf("Could not save the reminder: %s", escape(reason)))
	}

	var summary strings.Builder
	summary.WriteString("✅ <b>Reminder saved</b>\n")
	summary.WriteString(fmt.Sprintf("• <b>Title:</b> %s\n", escape(r.Title)))
	if r.Description != "" {
		summary.WriteString(fmt.Sprintf("• <b>Description:</b> %s\n", escape(r.Description)))
	}
	summary.WriteString(fmt.Sprintf("• <b>When:</b> %s at %s\n", escape(r.Day()), r.Time))

	if err := b.sendTextWithRemove(chatID, strings.TrimSpace(summary.String())); err != nil {
		return err
	}
	return b.sendReminderList(chatID)
}

func (b *Bot) sendTextWithRemove(chatID int64, text string) error {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = tgbotapi.ModeHTML
	msg.ReplyMarkup = tgbotapi.NewRemoveKeyboard(true)
	if _, err := b.api.Send(msg); err != nil {
		return err
	}
	return b.sendMenuPlaceholder(chatID)
}
