// Package telegram adapts the Telegram Bot API to the chat transport ports.
package telegram

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"snippetbot/internal/domain/chat"
	"snippetbot/internal/domain/session"
	"snippetbot/internal/ports"
)

const (
	defaultPollTimeout = 60
	notModifiedError   = "message is not modified"
)

var (
	_ ports.Transport   = (*Client)(nil)
	_ ports.EventSource = (*Client)(nil)
)

// botAPI is the subset of tgbotapi.BotAPI used by the client.
type botAPI interface {
	GetUpdatesChan(config tgbotapi.UpdateConfig) tgbotapi.UpdatesChannel
	StopReceivingUpdates()
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

// Config configures the Telegram client.
type Config struct {
	Token string
	// PollTimeout is the long polling timeout in seconds.
	PollTimeout int
	Logger      *zap.Logger
}

// Client receives updates by long polling and sends replies.
type Client struct {
	bot     botAPI
	updates tgbotapi.UpdatesChannel
	logger  *zap.Logger
}

// New authenticates against the Bot API and starts long polling.
func New(cfg Config) (*Client, error) {
	if strings.TrimSpace(cfg.Token) == "" {
		return nil, errors.New("telegram: bot token is required")
	}
	bot, err := tgbotapi.NewBotAPI(cfg.Token)
	if err != nil {
		return nil, fmt.Errorf("telegram: connect: %w", err)
	}

	client := newClient(bot, cfg.PollTimeout, cfg.Logger)
	client.logger.Info("authorized on telegram", zap.String("account", bot.Self.UserName))
	return client, nil
}

func newClient(bot botAPI, pollTimeout int, logger *zap.Logger) *Client {
	if logger == nil {
		logger = zap.NewNop()
	}
	if pollTimeout <= 0 {
		pollTimeout = defaultPollTimeout
	}

	u := tgbotapi.NewUpdate(0)
	u.Timeout = pollTimeout
	u.AllowedUpdates = []string{"message", "edited_message"}

	return &Client{
		bot:     bot,
		updates: bot.GetUpdatesChan(u),
		logger:  logger,
	}
}

// NextEvent blocks until a text message or edit arrives. It returns io.EOF
// once polling has stopped.
func (c *Client) NextEvent(ctx context.Context) (chat.Event, error) {
	for {
		select {
		case <-ctx.Done():
			return chat.Event{}, ctx.Err()
		case update, ok := <-c.updates:
			if !ok {
				return chat.Event{}, io.EOF
			}
			if event, ok := eventFromUpdate(update); ok {
				return event, nil
			}
		}
	}
}

// Reply sends r as a reply to msg.
func (c *Client) Reply(ctx context.Context, msg chat.Message, r chat.Reply) (session.Key, error) {
	if err := ctx.Err(); err != nil {
		return session.Key{}, err
	}

	out := tgbotapi.NewMessage(int64(msg.Key.Channel), r.Text)
	out.ReplyToMessageID = int(msg.Key.Message)
	out.ParseMode = parseMode(r.Mode)
	out.DisableWebPagePreview = true

	sent, err := c.bot.Send(out)
	if err != nil {
		return session.Key{}, fmt.Errorf("telegram: send reply: %w", err)
	}

	return session.Key{
		Channel: msg.Key.Channel,
		Message: session.MessageID(sent.MessageID),
	}, nil
}

// Edit replaces the text of a previously sent message. Editing a message to
// identical content is not an error.
func (c *Client) Edit(ctx context.Context, key session.Key, r chat.Reply) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	edit := tgbotapi.NewEditMessageText(int64(key.Channel), int(key.Message), r.Text)
	edit.ParseMode = parseMode(r.Mode)
	edit.DisableWebPagePreview = true

	if _, err := c.bot.Send(edit); err != nil {
		if strings.Contains(err.Error(), notModifiedError) {
			return nil
		}
		return fmt.Errorf("telegram: edit message: %w", err)
	}
	return nil
}

// Close stops long polling.
func (c *Client) Close() error {
	c.bot.StopReceivingUpdates()
	return nil
}

func eventFromUpdate(update tgbotapi.Update) (chat.Event, bool) {
	switch {
	case update.Message != nil:
		msg, ok := messageFromAPI(update.Message)
		return chat.Event{Kind: chat.EventNew, Message: msg}, ok
	case update.EditedMessage != nil:
		msg, ok := messageFromAPI(update.EditedMessage)
		return chat.Event{Kind: chat.EventEdited, Message: msg}, ok
	default:
		return chat.Event{}, false
	}
}

func messageFromAPI(m *tgbotapi.Message) (chat.Message, bool) {
	if m.Chat == nil || m.Text == "" {
		return chat.Message{}, false
	}

	msg := chat.Message{
		Key: session.Key{
			Channel: session.ChannelID(m.Chat.ID),
			Message: session.MessageID(m.MessageID),
		},
		Text: m.Text,
	}
	if m.ReplyToMessage != nil {
		replyTo := session.MessageID(m.ReplyToMessage.MessageID)
		msg.ReplyTo = &replyTo
	}
	if m.From != nil {
		msg.Sender = m.From.UserName
		if msg.Sender == "" {
			msg.Sender = m.From.FirstName
		}
	}
	return msg, true
}

func parseMode(mode chat.ParseMode) string {
	switch mode {
	case chat.ParseHTML:
		return tgbotapi.ModeHTML
	case chat.ParseMarkdown:
		return tgbotapi.ModeMarkdown
	default:
		return ""
	}
}
