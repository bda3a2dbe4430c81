package bot

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"growell/internal/logger"
	"growell/internal/reminder"
)

func (b *Bot) sendReminderList(chatID int64) error {
	list := b.store.List()
	if len(list) == 0 {
		return b.sendText(chatID, "You have no reminders yet. Add one with /newreminder.")
	}
	msg := tgbotapi.NewMessage(chatID, formatReminderList(list))
	msg.ParseMode = tgbotapi.ModeHTML
	msg.ReplyMarkup = reminderListKeyboard(list)
	_, err := b.api.Send(msg)
	return err
}

// refreshList redraws the list message a callback came from.
func (b *Bot) refreshList(msg *tgbotapi.Message) error {
	list := b.store.List()
	if len(list) == 0 {
		edit := tgbotapi.NewEditMessageText(msg.Chat.ID, msg.MessageID, "You have no reminders yet. Add one with /newreminder.")
		_, err := b.api.Send(edit)
		return err
	}
	edit := tgbotapi.NewEditMessageTextAndMarkup(msg.Chat.ID, msg.MessageID, formatReminderList(list), reminderListKeyboard(list))
	edit.ParseMode = tgbotapi.ModeHTML
	_, err := b.api.Send(edit)
	return err
}

func (b *Bot) toggleFromList(ctx context.Context, cb *tgbotapi.CallbackQuery, id string) error {
	r, err := b.store.Toggle(ctx, id)
	if err != nil {
		logger.Warn("toggle from list failed", "id", id, "err", err)
		b.ack(cb, toggleErrorText(err))
		// the store left the reminder as it was, so the redraw shows the prior state
		return b.refreshList(cb.Message)
	}

	b.ack(cb, toggledText(r))
	return b.refreshList(cb.Message)
}

func (b *Bot) handleToggleCommand(ctx context.Context, msg *tgbotapi.Message) error {
	r, ok, err := b.reminderByNumber(msg)
	if !ok {
		return err
	}
	toggled, err := b.store.Toggle(ctx, r.ID)
	if err != nil {
		return b.sendText(msg.Chat.ID, escape(toggleErrorText(err)))
	}
	if err := b.sendText(msg.Chat.ID, escape(toggledText(toggled))); err != nil {
		return err
	}
	return b.sendReminderList(msg.Chat.ID)
}

func (b *Bot) handleDeleteCommand(ctx context.Context, msg *tgbotapi.Message) error {
	r, ok, err := b.reminderByNumber(msg)
	if !ok {
		return err
	}
	return b.askDeleteConfirmation(msg.Chat.ID, msg.From.ID, r.ID)
}

// reminderByNumber resolves the 1-based list position given as the command
// argument. When ok is false the user has already been told why.
func (b *Bot) reminderByNumber(msg *tgbotapi.Message) (reminder.Reminder, bool, error) {
	usage := fmt.Sprintf("Give the reminder number from /reminders, e.g. /%s 2", msg.Command())
	args := strings.TrimSpace(msg.CommandArguments())
	if args == "" {
		return reminder.Reminder{}, false, b.sendText(msg.Chat.ID, usage)
	}
	n, err := strconv.Atoi(args)
	if err != nil {
		return reminder.Reminder{}, false, b.sendText(msg.Chat.ID, usage)
	}
	list := b.store.List()
	if n < 1 || n > len(list) {
		return reminder.Reminder{}, false, b.sendText(msg.Chat.ID, fmt.Sprintf("There is no reminder %d. You have %d.", n, len(list)))
	}
	return list[n-1], true, nil
}

func (b *Bot) askDeleteConfirmation(chatID, userID int64, id string) error {
	r, ok := b.findReminder(id)
	if !ok {
		return b.sendText(chatID, "Reminder not found.")
	}
	b.setConfirmation(userID, r.ID)
	text := fmt.Sprintf("Delete \"%s\" (%s at %s)?", escape(r.Title), escape(r.Day()), r.Time)
	return b.sendWithReplyMarkup(chatID, text, confirmKeyboard(r.ID))
}

func (b *Bot) handleConfirmationResponse(ctx context.Context, msg *tgbotapi.Message, id string) error {
	text := strings.TrimSpace(msg.Text)
	switch {
	case isConfirmInput(text):
		b.clearConfirmation(msg.From.ID)
		return b.deleteAndRefresh(ctx, msg.Chat.ID, id)
	case isCancelInput(text):
		b.clearConfirmation(msg.From.ID)
		return b.sendMenuPlaceholder(msg.Chat.ID)
	default:
		return b.sendWithReplyMarkup(msg.Chat.ID, "Confirm or cancel the deletion.", confirmKeyboard(id))
	}
}

func (b *Bot) deleteAndRefresh(ctx context.Context, chatID int64, id string) error {
	r, ok := b.findReminder(id)
	if !ok {
		return b.sendText(chatID, "Reminder not found or already deleted.")
	}

	warning, err := b.store.Delete(ctx, id)
	if err != nil {
		if errors.Is(err, reminder.ErrNotFound) {
			return b.sendText(chatID, "Reminder not found or already deleted.")
		}
		return b.sendText(chatID, fmt.Sprintf("Could not delete the reminder: %s", escape(err.Error())))
	}

	if err := b.sendText(chatID, fmt.Sprintf("🗑 \"%s\" deleted.", escape(r.Title))); err != nil {
		return err
	}
	if warning != nil {
		if err := b.sendText(chatID, "⚠️ The reminder is gone, but its scheduled notification could not be cancelled and may still arrive once."); err != nil {
			return err
		}
	}
	return b.sendReminderList(chatID)
}

func (b *Bot) findReminder(id string) (reminder.Reminder, bool) {
	for _, r := range b.store.List() {
		if r.ID == id {
			return r, true
		}
	}
	return reminder.Reminder{}, false
}

func toggledText(r reminder.Reminder) string {
	if r.Enabled {
		return fmt.Sprintf("🔔 \"%s\" is on.", r.Title)
	}
	return fmt.Sprintf("🔕 \"%s\" is off.", r.Title)
}

func toggleErrorText(err error) string {
	switch {
	case errors.Is(err, reminder.ErrNotFound):
		return "Reminder not found."
	case errors.Is(err, reminder.ErrScheduling):
		return "Could not update the notification, nothing changed."
	default:
		return "Something went wrong, nothing changed."
	}
}
