package notifier

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"net/url"
	"time"

	"LotteryHub/internal/model"

	"gopkg.in/telebot.v3"
)

// TelegramNotifier announces draw results to a chat and answers commands.
type TelegramNotifier struct {
	Bot  *telebot.Bot
	Chat telebot.ChatID
}

// NewTelegramNotifier creates a notifier with optional proxy support.
func NewTelegramNotifier(botToken string, chatID int64, proxyURL string) (*TelegramNotifier, error) {
	transport := &http.Transport{}
	if proxyURL != "" {
		if u, err := url.Parse(proxyURL); err == nil {
			transport.Proxy = http.ProxyURL(u)
		}
	}
	bot, err := telebot.NewBot(telebot.Settings{
		Token:  botToken,
		Poller: &telebot.LongPoller{Timeout: 10 * time.Second},
		Client: &http.Client{
			Timeout:   30 * time.Second,
			Transport: transport,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("create telegram bot: %w", err)
	}
	return &TelegramNotifier{Bot: bot, Chat: telebot.ChatID(chatID)}, nil
}

// Send sends a message to the configured chat.
func (t *TelegramNotifier) Send(text string) error {
	if _, err := t.Bot.Send(t.Chat, text, &telebot.SendOptions{ParseMode: telebot.ModeHTML}); err != nil {
		return fmt.Errorf("send message: %w", err)
	}
	return nil
}

// SendWithRetry sends a message with exponential backoff retry.
func (t *TelegramNotifier) SendWithRetry(ctx context.Context, text string, maxRetries int) error {
	var lastErr error
	for i := 0; i <= maxRetries; i++ {
		if err := t.Send(text); err != nil {
			lastErr = err
			backoff := time.Duration(1<<uint(i)) * time.Second
			log.Printf("[WARN] Telegram send failed (attempt %d/%d): %v, retrying in %v", i+1, maxRetries+1, err, backoff)
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(backoff):
				continue
			}
		}
		return nil
	}
	return fmt.Errorf("all %d retries exhausted: %w", maxRetries+1, lastErr)
}

// Publish announces executions and cancellations from a committed batch of events.
func (t *TelegramNotifier) Publish(ctx context.Context, events []model.Event) {
	for _, msg := range Announcements(events) {
		go func(text string) {
			if err := t.SendWithRetry(ctx, text, 3); err != nil {
				log.Printf("[ERROR] announce: %v", err)
			}
		}(msg)
	}
}

// Announcements turns a batch of events into chat messages.
func Announcements(events []model.Event) []string {
	var out []string
	for _, e := range events {
		switch e.Type {
		case model.EventDrawExecuted:
			var winners []model.Event
			for _, w := range events {
				if w.Type == model.EventWinnerCredited && w.DrawID == e.DrawID {
					winners = append(winners, w)
				}
			}
			out = append(out, FormatExecution(e, winners))
		case model.EventDrawCancelled:
			out = append(out, FormatCancelled(e))
		}
	}
	return out
}
