// Package bot implements the Telegram transport: command handling, poll
// voting, and the interactive reminder cancellation flow.
package bot

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"remind_bot/internal/config"
	"remind_bot/internal/storage"
)

type telegramAPI interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	GetUpdatesChan(config tgbotapi.UpdateConfig) tgbotapi.UpdatesChannel
	StopReceivingUpdates()
}

// Bot is the Telegram bot that handles user commands and delivers
// notifications on behalf of the sweep.
type Bot struct {
	api   telegramAPI
	store storage.Storage
	cfg   *config.Config
	log   *slog.Logger
	now   func() time.Time

	mu       sync.Mutex
	sessions map[int64]*cancelSession
}

// New creates a Bot with the given Telegram token, storage, and config.
func New(token string, store storage.Storage, cfg *config.Config, log *slog.Logger) (*Bot, error) {
	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("create bot api: %w", err)
	}

	return &Bot{
		api:      api,
		store:    store,
		cfg:      cfg,
		log:      log,
		now:      time.Now,
		sessions: make(map[int64]*cancelSession),
	}, nil
}

// Run starts the bot's long-polling loop, blocking until ctx is cancelled.
func (b *Bot) Run(ctx context.Context) {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60

	updates := b.api.GetUpdatesChan(u)

	for {
		select {
		case <-ctx.Done():
			b.api.StopReceivingUpdates()
			return
		case update := <-updates:
			if update.CallbackQuery != nil {
				b.handleCallback(ctx, update.CallbackQuery)
				continue
			}
			if update.Message == nil || !update.Message.IsCommand() {
				continue
			}
			if !b.cfg.IsUserAllowed(update.Message.From.ID) {
				b.reply(update.Message.Chat.ID, "Access denied.")
				continue
			}
			b.handleCommand(ctx, update.Message)
		}
	}
}

// SendToUser delivers a direct message to a user's private chat.
func (b *Bot) SendToUser(userID int64, text string) error {
	return b.send(newHTMLMessage(userID, text))
}

// SendToChannel delivers a message to a shared chat.
func (b *Bot) SendToChannel(chatID int64, text string) error {
	return b.send(newHTMLMessage(chatID, text))
}

// SendReply delivers a message replying to an existing one.
func (b *Bot) SendReply(chatID int64, messageID int, text string) error {
	msg := newHTMLMessage(chatID, text)
	msg.ReplyToMessageID = messageID
	return b.send(msg)
}

// EditMessage replaces the text of an existing message. Editing without
// a reply markup also removes any inline keyboard attached to it.
func (b *Bot) EditMessage(chatID int64, messageID int, text string) error {
	edit := tgbotapi.NewEditMessageText(chatID, messageID, text)
	edit.ParseMode = tgbotapi.ModeHTML
	edit.DisableWebPagePreview = true
	return b.send(edit)
}

func (b *Bot) send(c tgbotapi.Chattable) error {
	if _, err := b.api.Send(c); err != nil {
		return fmt.Errorf("telegram send: %w", err)
	}
	return nil
}

func newHTMLMessage(chatID int64, text string) tgbotapi.MessageConfig {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = tgbotapi.ModeHTML
	msg.DisableWebPagePreview = true
	return msg
}

func (b *Bot) reply(chatID int64, text string) {
	if err := b.SendToChannel(chatID, text); err != nil {
		b.log.Error("send message", "chat_id", chatID, "error", err)
	}
}

func (b *Bot) handleCommand(ctx context.Context, msg *tgbotapi.Message) {
	cmd := msg.Command()
	args := strings.TrimSpace(msg.CommandArguments())
	chatID := msg.Chat.ID
	userID := msg.From.ID

	b.log.Debug("command", "cmd", cmd, "args", args, "chat_id", chatID, "user_id", userID)

	switch cmd {
	case "start":
		b.handleStart(chatID)
	case "help":
		b.handleHelp(chatID)
	case "remind":
		b.handleRemind(ctx, chatID, userID, args, false)
	case "remindme":
		b.handleRemind(ctx, chatID, userID, args, true)
	case "jobalert":
		b.handleJobAlert(ctx, chatID, userID, args)
	case "viewremind":
		b.handleViewRemind(ctx, chatID, userID)
	case "cancelreminder":
		b.handleCancelReminder(ctx, chatID, userID, args)
	case "poll":
		b.handlePoll(ctx, chatID, userID, args)
	default:
		b.reply(chatID, "Unknown command. Use /help for a list of commands.")
	}
}
