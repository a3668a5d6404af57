// Package notify tells operators about human review decisions.
package notify

import (
	"context"
	"fmt"
	"net/http"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"
)

// Notifier is informed after a pending entry receives its decision.
type Notifier interface {
	ReviewSubmitted(ctx context.Context, rawURL string, safe int) error
}

// Nop drops every notification.
type Nop struct{}

func (Nop) ReviewSubmitted(context.Context, string, int) error { return nil }

// DefaultTimeout bounds a Bot API call when none is configured.
const DefaultTimeout = 5 * time.Second

// Telegram posts each decision to a single chat.
type Telegram struct {
	api    *tgbotapi.BotAPI
	chatID int64
	logger *zap.Logger
}

// NewTelegram authorizes the bot against the public Bot API. Every Bot API
// round trip is capped at timeout.
func NewTelegram(token string, chatID int64, timeout time.Duration, logger *zap.Logger) (*Telegram, error) {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	client := &http.Client{Timeout: timeout}
	return NewTelegramWithClient(token, tgbotapi.APIEndpoint, client, chatID, logger)
}

// NewTelegramWithClient allows a custom endpoint format ("%s" token, "%s" method).
func NewTelegramWithClient(token, endpoint string, client tgbotapi.HTTPClient, chatID int64, logger *zap.Logger) (*Telegram, error) {
	botAPI, err := tgbotapi.NewBotAPIWithClient(token, endpoint, client)
	if err != nil {
		return nil, fmt.Errorf("failed to create Telegram bot API: %w", err)
	}

	logger.Info("Telegram bot authorized", zap.String("username", botAPI.Self.UserName))

	return &Telegram{api: botAPI, chatID: chatID, logger: logger}, nil
}

func (t *Telegram) ReviewSubmitted(ctx context.Context, rawURL string, safe int) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	msg := tgbotapi.NewMessage(t.chatID, FormatDecision(rawURL, safe))
	msg.DisableWebPagePreview = true

	// BotAPI.Send takes no context; the caller stops waiting when ctx ends
	// and the http client timeout reaps the request.
	done := make(chan error, 1)
	go func() {
		_, err := t.api.Send(msg)
		done <- err
	}()

	select {
	case err := <-done:
		if err != nil {
			return fmt.Errorf("failed to send review notification: %w", err)
		}
		return nil
	case <-ctx.Done():
		return fmt.Errorf("review notification abandoned: %w", ctx.Err())
	}
}

// FormatDecision renders the chat message for one decision.
func FormatDecision(rawURL string, safe int) string {
	if safe == 1 {
		return fmt.Sprintf("✅ Marked safe by reviewer\n%s", rawURL)
	}
	return fmt.Sprintf("⛔ Confirmed unsafe by reviewer\n%s", rawURL)
}
