// Package telegram implements the Telegram channel over the Bot API.
package telegram

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/soyeahso/teo/internal/config"
	"github.com/soyeahso/teo/internal/domain"
	"github.com/soyeahso/teo/internal/logging"
)

// Channel implements domain.Channel for Telegram. Edits map directly to
// editMessageText; the Bot API's "message is not modified" and "message
// to edit not found" errors become the tri-state edit result the engine
// recovers from.
type Channel struct {
	cfg config.TelegramConfig
	bot *tgbotapi.BotAPI
	log *logging.Logger

	mu      sync.RWMutex
	handler func(ev domain.Event)
	running bool
}

// New creates a Telegram channel from configuration.
func New(cfg config.TelegramConfig, log *logging.Logger) *Channel {
	if cfg.PollTimeout <= 0 {
		cfg.PollTimeout = 30
	}
	return &Channel{cfg: cfg, log: log.Sub("telegram")}
}

func (c *Channel) ID() string { return "telegram" }

// OnEvent registers the inbound event handler.
func (c *Channel) OnEvent(handler func(ev domain.Event)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.handler = handler
}

// Start connects to the Bot API and long-polls for updates until ctx
// ends.
func (c *Channel) Start(ctx context.Context) error {
	bot, err := tgbotapi.NewBotAPI(c.cfg.Token)
	if err != nil {
		return fmt.Errorf("telegram connect: %w", err)
	}
	c.mu.Lock()
	c.bot = bot
	c.running = true
	c.mu.Unlock()

	c.log.Info().Str("username", bot.Self.UserName).Msg("connected to Telegram")

	u := tgbotapi.NewUpdate(0)
	u.Timeout = c.cfg.PollTimeout
	updates := bot.GetUpdatesChan(u)

	for {
		select {
		case <-ctx.Done():
			bot.StopReceivingUpdates()
			return nil
		case update, ok := <-updates:
			if !ok {
				return nil
			}
			c.dispatchUpdate(update)
		}
	}
}

// Stop halts long polling.
func (c *Channel) Stop(_ context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.bot != nil && c.running {
		c.bot.StopReceivingUpdates()
		c.running = false
	}
	return nil
}

func (c *Channel) dispatchUpdate(update tgbotapi.Update) {
	c.mu.RLock()
	handler := c.handler
	c.mu.RUnlock()
	if handler == nil {
		return
	}

	switch {
	case update.CallbackQuery != nil:
		cq := update.CallbackQuery
		// Acknowledge immediately so the client stops its spinner.
		if _, err := c.bot.Request(tgbotapi.NewCallback(cq.ID, "")); err != nil {
			c.log.Debug().Err(err).Msg("callback ack failed")
		}
		if cq.Message == nil {
			return
		}
		handler(domain.Event{
			Key:       c.key(cq.Message.Chat.ID, cq.From.ID),
			Kind:      domain.EventButton,
			ActionID:  cq.Data,
			MessageID: strconv.Itoa(cq.Message.MessageID),
			Timestamp: time.Now(),
		})

	case update.Message != nil && update.Message.From != nil:
		msg := update.Message
		ev := domain.Event{
			Key:       c.key(msg.Chat.ID, msg.From.ID),
			MessageID: strconv.Itoa(msg.MessageID),
			Timestamp: time.Now(),
		}
		if msg.IsCommand() {
			// /start and /menu both land on the main menu.
			ev.Kind = domain.EventButton
			ev.ActionID = domain.ActionMain
		} else {
			ev.Kind = domain.EventText
			ev.Text = msg.Text
		}
		handler(ev)
	}
}

func (c *Channel) key(chatID, userID int64) domain.SessionKey {
	return domain.SessionKey{
		ChannelID: c.ID(),
		ChatID:    strconv.FormatInt(chatID, 10),
		UserID:    strconv.FormatInt(userID, 10),
	}
}

// Edit rewrites a previously sent message in place.
func (c *Channel) Edit(_ context.Context, ref domain.MessageRef, p domain.Payload) (domain.EditResult, error) {
	chatID, messageID, err := parseRef(ref)
	if err != nil {
		return domain.EditNotFound, nil
	}

	edit := tgbotapi.NewEditMessageText(chatID, messageID, p.Text)
	edit.ParseMode = tgbotapi.ModeMarkdown
	if markup := keyboard(p.Actions); markup != nil {
		edit.ReplyMarkup = markup
	}

	if _, err := c.bot.Send(edit); err != nil {
		return classifyEditError(err)
	}
	return domain.EditOK, nil
}

// classifyEditError maps Bot API error strings onto the tri-state edit
// result. Anything unrecognized is treated as transient.
func classifyEditError(err error) (domain.EditResult, error) {
	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "message is not modified"):
		return domain.EditUnchanged, nil
	case strings.Contains(msg, "message to edit not found"),
		strings.Contains(msg, "message can't be edited"),
		strings.Contains(msg, "message_id_invalid"):
		return domain.EditNotFound, nil
	default:
		return domain.EditOK, err
	}
}

// Send creates a new message and returns its reference.
func (c *Channel) Send(_ context.Context, chatID string, p domain.Payload) (domain.MessageRef, error) {
	id, err := strconv.ParseInt(chatID, 10, 64)
	if err != nil {
		return domain.MessageRef{}, fmt.Errorf("bad chat id %q: %w", chatID, err)
	}

	msg := tgbotapi.NewMessage(id, p.Text)
	msg.ParseMode = tgbotapi.ModeMarkdown
	if markup := keyboard(p.Actions); markup != nil {
		msg.ReplyMarkup = *markup
	}

	sent, err := c.bot.Send(msg)
	if err != nil {
		return domain.MessageRef{}, err
	}
	return domain.MessageRef{ChatID: chatID, MessageID: strconv.Itoa(sent.MessageID)}, nil
}

// Notice sends a short dismissible message separate from the anchor.
func (c *Channel) Notice(ctx context.Context, chatID string, text string) error {
	_, err := c.Send(ctx, chatID, domain.Payload{
		Text: text,
		Actions: [][]domain.Action{
			{{Label: "❌ Dismiss", ActionID: domain.ActionHideNotice}},
		},
	})
	return err
}

// Delete removes a message. Telegram refuses deletion of old messages;
// that is fine, callers treat this as best effort.
func (c *Channel) Delete(_ context.Context, ref domain.MessageRef) error {
	chatID, messageID, err := parseRef(ref)
	if err != nil {
		return err
	}
	_, err = c.bot.Request(tgbotapi.NewDeleteMessage(chatID, messageID))
	return err
}

func parseRef(ref domain.MessageRef) (int64, int, error) {
	chatID, err := strconv.ParseInt(ref.ChatID, 10, 64)
	if err != nil {
		return 0, 0, fmt.Errorf("bad chat id %q: %w", ref.ChatID, err)
	}
	messageID, err := strconv.Atoi(ref.MessageID)
	if err != nil {
		return 0, 0, fmt.Errorf("bad message id %q: %w", ref.MessageID, err)
	}
	return chatID, messageID, nil
}

func keyboard(rows [][]domain.Action) *tgbotapi.InlineKeyboardMarkup {
	if len(rows) == 0 {
		return nil
	}
	var kb [][]tgbotapi.InlineKeyboardButton
	for _, row := range rows {
		var buttons []tgbotapi.InlineKeyboardButton
		for _, a := range row {
			buttons = append(buttons, tgbotapi.NewInlineKeyboardButtonData(a.Label, a.ActionID))
		}
		kb = append(kb, buttons)
	}
	markup := tgbotapi.NewInlineKeyboardMarkup(kb...)
	return &markup
}
