package notifier

import (
	"context"
	"log"
	"strings"

	"gopkg.in/telebot.v3"
)

// CommandHandler is called when a user command is received.
type CommandHandler func(command string) string

// Commands are the chat commands forwarded to the handler.
var Commands = []string{"/draws", "/jackpot", "/leaders", "/help"}

// StartPolling begins long-polling for Telegram commands. Blocks until ctx is cancelled.
func (t *TelegramNotifier) StartPolling(ctx context.Context, handler CommandHandler) {
	for _, cmd := range Commands {
		t.Bot.Handle(cmd, func(c telebot.Context) error {
			text := strings.TrimSpace(c.Text())
			log.Printf("[INFO] received command: %s", text)
			reply := handler(text)
			if reply == "" {
				return nil
			}
			return c.Send(reply, &telebot.SendOptions{ParseMode: telebot.ModeHTML})
		})
	}

	go func() {
		<-ctx.Done()
		t.Bot.Stop()
		log.Println("[INFO] Telegram polling stopped")
	}()
	t.Bot.Start()
}
