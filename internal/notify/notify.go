// Package notify доставляет сообщения о сигналах во внешние каналы.
// Доставка fire-and-forget: ошибка канала логируется и не влияет на
// торговый цикл.
package notify

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
)

// Notifier канал доставки уведомлений
type Notifier interface {
	Notify(ctx context.Context, msg string) error
}

const lineNotifyURL = "https://notify-api.line.me/api/notify"

// LineNotifier отправляет уведомления через LINE Notify
type LineNotifier struct {
	token   string
	baseURL string
	client  *http.Client
}

// NewLineNotifier создает канал LINE Notify
func NewLineNotifier(token string) *LineNotifier {
	return &LineNotifier{
		token:   token,
		baseURL: lineNotifyURL,
		client:  http.DefaultClient,
	}
}

// Notify отправляет сообщение. Пустой токен отключает канал молча.
func (n *LineNotifier) Notify(ctx context.Context, msg string) error {
	if n.token == "" {
		return nil
	}

	form := url.Values{}
	form.Set("message", msg)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.baseURL,
		strings.NewReader(form.Encode()))
	if err != nil {
		return fmt.Errorf("ошибка создания запроса LINE: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+n.token)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("ошибка отправки в LINE: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("LINE вернул статус %d", resp.StatusCode)
	}
	return nil
}
