// internal/infra/telegram/client.go
package telegram

import (
	"context"
	"fmt"

	"gopkg.in/telebot.v3"
)

// TelebotAdapter sends messages using the gopkg.in/telebot.v3 library.
type TelebotAdapter struct {
	bot *telebot.Bot
}

func NewTelebotAdapter(b *telebot.Bot) *TelebotAdapter {
	return &TelebotAdapter{bot: b}
}

// NewOfflineBot creates a send-only bot. Offline skips the getMe round trip
// since no updates are polled.
func NewOfflineBot(token string) (*telebot.Bot, error) {
	bot, err := telebot.NewBot(telebot.Settings{Token: token, Offline: true})
	if err != nil {
		return nil, fmt.Errorf("failed to create telegram bot: %w", err)
	}
	return bot, nil
}

// SendMessage sends a text message to the specified chat.
func (tba *TelebotAdapter) SendMessage(chatID int64, text string, options *telebot.SendOptions) error {
	if options == nil {
		options = &telebot.SendOptions{}
	}

	_, err := tba.bot.Send(telebot.ChatID(chatID), text, options)
	return err
}

// OpsNotifier delivers operator alerts to a single Telegram chat.
type OpsNotifier struct {
	client *TelebotAdapter
	chatID int64
}

func NewOpsNotifier(client *TelebotAdapter, chatID int64) *OpsNotifier {
	return &OpsNotifier{client: client, chatID: chatID}
}

func (n *OpsNotifier) Notify(ctx context.Context, text string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := n.client.SendMessage(n.chatID, text, &telebot.SendOptions{DisableWebPagePreview: true}); err != nil {
		return fmt.Errorf("failed to send ops alert: %w", err)
	}
	return nil
}
