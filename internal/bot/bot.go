package bot

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"growell/internal/logger"
	"growell/internal/reminder"
	"growell/internal/service"
)

const (
	cbTogglePrefix  = "toggle:"
	cbDeletePrefix  = "delete:"
	cbConfirmPrefix = "confirm:"
	cbCancelPrefix  = "cancel:"
)

// ReminderStore is what the bot needs from the reminder store.
type ReminderStore interface {
	Create(ctx context.Context, in reminder.Input) (reminder.Reminder, error)
	Toggle(ctx context.Context, id string) (reminder.Reminder, error)
	Delete(ctx context.Context, id string) (warning error, err error)
	List() []reminder.Reminder
}

// Digester builds the daily summary.
type Digester interface {
	DailySummary(now time.Time) (string, error)
}

// telegramAPI is the part of *tgbotapi.BotAPI the bot uses.
type telegramAPI interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
	GetUpdatesChan(config tgbotapi.UpdateConfig) tgbotapi.UpdatesChannel
	StopReceivingUpdates()
}

// Bot is the Telegram front end of the reminder store and the delivery
// channel for fired reminders.
type Bot struct {
	api     telegramAPI
	store   ReminderStore
	digest  Digester
	loc     *time.Location
	now     func() time.Time
	mu      sync.Mutex
	ownerID int64

	conversations map[int64]*conversationState
	confirmations map[int64]string
}

func New(token string, ownerID int64, store ReminderStore, digest Digester, loc *time.Location) (*Bot, error) {
	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("create bot api: %w", err)
	}

	logger.Info("bot authorized", "account", api.Self.UserName)

	return newBot(api, ownerID, store, digest, loc), nil
}

func newBot(api telegramAPI, ownerID int64, store ReminderStore, digest Digester, loc *time.Location) *Bot {
	if loc == nil {
		loc = time.Local
	}
	return &Bot{
		api:           api,
		store:         store,
		digest:        digest,
		loc:           loc,
		now:           time.Now,
		ownerID:       ownerID,
		conversations: make(map[int64]*conversationState),
		confirmations: make(map[int64]string),
	}
}

// Start begins polling updates until ctx is cancelled.
func (b *Bot) Start(ctx context.Context) error {
	updateConfig := tgbotapi.NewUpdate(0)
	updateConfig.Timeout = 60
	updates := b.api.GetUpdatesChan(updateConfig)

	logger.Info("start polling updates")

	go func() {
		<-ctx.Done()
		b.api.StopReceivingUpdates()
	}()

	for update := range updates {
		b.handleUpdate(ctx, update)
	}

	return nil
}

func (b *Bot) handleUpdate(ctx context.Context, update tgbotapi.Update) {
	switch {
	case update.CallbackQuery != nil:
		if cb := update.CallbackQuery; cb.Message == nil || !b.allowed(cb.Message.Chat) {
			return
		}
		if err := b.handleCallback(ctx, update.CallbackQuery); err != nil {
			logger.Error("handle callback", "err", err)
		}
	case update.Message != nil:
		if !b.allowed(update.Message.Chat) {
			return
		}
		if err := b.handleMessage(ctx, update.Message); err != nil {
			logger.Error("handle message", "err", err)
		}
	}
}

// allowed reports whether chat may use the bot. Without a configured owner
// the first private chat becomes the owner.
func (b *Bot) allowed(chat *tgbotapi.Chat) bool {
	if chat == nil || !chat.IsPrivate() {
		return false
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.ownerID == 0 {
		b.ownerID = chat.ID
		logger.Warn("no telegram.chat_id configured, adopting first chat as owner", "chat_id", chat.ID)
		return true
	}
	if chat.ID != b.ownerID {
		logger.Debug("ignoring update from foreign chat", "chat_id", chat.ID)
		return false
	}
	return true
}

func (b *Bot) owner() int64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.ownerID
}

// Reachable reports whether there is an owner chat to deliver to.
func (b *Bot) Reachable() bool {
	return b.owner() != 0
}

// Deliver sends a fired notification to the owner chat.
func (b *Bot) Deliver(ctx context.Context, n service.Notification) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	chatID := b.owner()
	if chatID == 0 {
		return fmt.Errorf("deliver %q: no owner chat", n.Title)
	}

	text := n.Body
	if !n.HTML {
		text = formatNotification(n)
	}
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = tgbotapi.ModeHTML
	if _, err := b.api.Send(msg); err != nil {
		return fmt.Errorf("deliver %q: %w", n.Title, err)
	}
	return nil
}

func (b *Bot) handleMessage(ctx context.Context, msg *tgbotapi.Message) error {
	if msg.From == nil {
		return nil
	}

	if !msg.IsCommand() && isCancelDialogInput(msg.Text) {
		b.clearConversation(msg.From.ID)
		b.clearConfirmation(msg.From.ID)
		return b.sendText(msg.Chat.ID, "⏪ Cancelled. Send /newreminder to start again.")
	}

	if !msg.IsCommand() {
		if handled, err := b.handleMenuAlias(ctx, msg); handled {
			return err
		}
	}

	if msg.IsCommand() {
		logger.Info("command", "from", msg.From.ID, "command", msg.Command(), "args", msg.CommandArguments())
		return b.handleCommand(ctx, msg)
	}

	if pending, ok := b.getConfirmation(msg.From.ID); ok {
		return b.handleConfirmationResponse(ctx, msg, pending)
	}

	if b.hasConversation(msg.From.ID) {
		return b.handleConversation(ctx, msg)
	}

	return b.sendText(msg.Chat.ID, "I did not get that. Send /newreminder to add a reminder or /help for the list of commands.")
}

func (b *Bot) handleCommand(ctx context.Context, msg *tgbotapi.Message) error {
	switch msg.Command() {
	case "start":
		return b.handleStart(msg)
	case "help":
		return b.handleHelp(msg)
	case "reminders":
		return b.sendReminderList(msg.Chat.ID)
	case "newreminder":
		return b.startNewReminderConversation(msg)
	case "toggle":
		return b.handleToggleCommand(ctx, msg)
	case "delete":
		return b.handleDeleteCommand(ctx, msg)
	case "digest":
		return b.handleDigest(msg)
	case "cancel":
		b.clearConversation(msg.From.ID)
		b.clearConfirmation(msg.From.ID)
		return b.sendText(msg.Chat.ID, "⏪ Cancelled.")
	default:
		return b.sendText(msg.Chat.ID, "Unknown command. See /help.")
	}
}

func (b *Bot) handleStart(msg *tgbotapi.Message) error {
	name := strings.TrimSpace(msg.From.FirstName)
	if name == "" {
		name = "there"
	}

	text := fmt.Sprintf(
		"👋 Hi, %s!\n<b>I keep track of your child's care reminders.</b>\n\n%s",
		escape(name), commandList,
	)
	return b.sendText(msg.Chat.ID, text)
}

func (b *Bot) handleHelp(msg *tgbotapi.Message) error {
	return b.sendText(msg.Chat.ID, "ℹ️ <b>Commands</b>\n"+commandList)
}

const commandList = "• /newreminder — add a reminder step by step\n" +
	"• /reminders — list reminders with on/off and delete buttons\n" +
	"• /toggle &lt;n&gt; — switch reminder n on or off\n" +
	"• /delete &lt;n&gt; — delete reminder n\n" +
	"• /digest — today's summary\n" +
	"• /cancel — stop the current input"

func (b *Bot) handleDigest(msg *tgbotapi.Message) error {
	if b.digest == nil {
		return b.sendText(msg.Chat.ID, "The digest is not available.")
	}
	text, err := b.digest.DailySummary(b.now())
	if err != nil {
		return b.sendText(msg.Chat.ID, fmt.Sprintf("Could not build the digest: %s", escape(err.Error())))
	}
	return b.sendText(msg.Chat.ID, text)
}

func (b *Bot) handleMenuAlias(ctx context.Context, msg *tgbotapi.Message) (bool, error) {
	text := strings.TrimSpace(strings.ToLower(msg.Text))
	switch text {
	case strings.ToLower(menuLabelNewReminder):
		return true, b.startNewReminderConversation(msg)
	case strings.ToLower(menuLabelReminders):
		return true, b.sendReminderList(msg.Chat.ID)
	case strings.ToLower(menuLabelDigest):
		return true, b.handleDigest(msg)
	case strings.ToLower(menuLabelHelp):
		return true, b.handleHelp(msg)
	default:
		return false, nil
	}
}

func (b *Bot) handleCallback(ctx context.Context, cb *tgbotapi.CallbackQuery) error {
	if cb == nil || cb.From == nil || cb.Message == nil {
		return nil
	}

	data := cb.Data
	chatID := cb.Message.Chat.ID

	switch {
	case strings.HasPrefix(data, cbTogglePrefix):
		return b.toggleFromList(ctx, cb, strings.TrimPrefix(data, cbTogglePrefix))
	case strings.HasPrefix(data, cbDeletePrefix):
		b.ack(cb, "")
		return b.askDeleteConfirmation(chatID, cb.From.ID, strings.TrimPrefix(data, cbDeletePrefix))
	case strings.HasPrefix(data, cbConfirmPrefix):
		b.ack(cb, "")
		b.clearConfirmation(cb.From.ID)
		return b.deleteAndRefresh(ctx, chatID, strings.TrimPrefix(data, cbConfirmPrefix))
	case strings.HasPrefix(data, cbCancelPrefix):
		b.ack(cb, "")
		b.clearConfirmation(cb.From.ID)
		return b.sendMenuPlaceholder(chatID)
	default:
		b.ack(cb, "")
		return nil
	}
}

func (b *Bot) ack(cb *tgbotapi.CallbackQuery, text string) {
	if _, err := b.api.Request(tgbotapi.NewCallback(cb.ID, text)); err != nil {
		logger.Warn("callback ack", "err", err)
	}
}

func (b *Bot) sendText(chatID int64, text string) error {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = tgbotapi.ModeHTML
	msg.ReplyMarkup = mainMenuKeyboard()
	_, err := b.api.Send(msg)
	return err
}

func (b *Bot) sendWithReplyMarkup(chatID int64, text string, markup interface{}) error {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = tgbotapi.ModeHTML
	msg.ReplyMarkup = markup
	_, err := b.api.Send(msg)
	return err
}

func (b *Bot) sendMenuPlaceholder(chatID int64) error {
	return b.sendText(chatID, "🔹 Main menu")
}

func (b *Bot) getConfirmation(userID int64) (string, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	id, ok := b.confirmations[userID]
	return id, ok
}

func (b *Bot) setConfirmation(userID int64, reminderID string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.confirmations[userID] = reminderID
}

func (b *Bot) clearConfirmation(userID int64) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.confirmations, userID)
}

func (b *Bot) setConversation(userID int64, state *conversationState) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.conversations[userID] = state
}

func (b *Bot) getConversation(userID int64) *conversationState {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.conversations[userID]
}

func (b *Bot) hasConversation(userID int64) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	_, ok := b.conversations[userID]
	return ok
}

func (b *Bot) clearConversation(userID int64) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.conversations, userID)
}
