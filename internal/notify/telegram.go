package notify

import (
	"context"
	"fmt"

	gobot "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// TelegramNotifier отправляет уведомления в Telegram-чат
type TelegramNotifier struct {
	bot    *gobot.BotAPI
	chatID int64
}

// NewTelegramNotifier подключается к Telegram Bot API
func NewTelegramNotifier(token string, chatID int64) (*TelegramNotifier, error) {
	bot, err := gobot.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("ошибка подключения к Telegram: %w", err)
	}
	bot.Debug = false

	return &TelegramNotifier{
		bot:    bot,
		chatID: chatID,
	}, nil
}

// Notify отправляет сообщение в настроенный чат
func (n *TelegramNotifier) Notify(ctx context.Context, msg string) error {
	if _, err := n.bot.Send(gobot.NewMessage(n.chatID, msg)); err != nil {
		return fmt.Errorf("ошибка отправки в Telegram: %w", err)
	}
	return nil
}
