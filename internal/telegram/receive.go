package telegram

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"github.com/mmeshcher/dolezza-bot/internal/chat"
)

// Poll получает обновления методом long polling и передаёт события в out до отмены ctx.
func (c *Client) Poll(ctx context.Context, out chan<- chat.Event) error {
	if err := c.request(ctx, tgbotapi.DeleteWebhookConfig{}); err != nil {
		return fmt.Errorf("delete webhook: %w", err)
	}

	cfg := tgbotapi.NewUpdate(0)
	cfg.Timeout = pollTimeout
	updates := c.api.GetUpdatesChan(cfg)
	defer c.api.StopReceivingUpdates()

	c.logger.Info("long polling started")
	for {
		select {
		case <-ctx.Done():
			return nil
		case u, ok := <-updates:
			if !ok {
				return nil
			}
			ev, ok := EventFromUpdate(u)
			if !ok {
				continue
			}
			select {
			case out <- ev:
			case <-ctx.Done():
				return nil
			}
		}
	}
}

// SetWebhook регистрирует адрес, на который Telegram будет присылать обновления.
func (c *Client) SetWebhook(ctx context.Context, url string) error {
	wh, err := tgbotapi.NewWebhook(url)
	if err != nil {
		return fmt.Errorf("build webhook config: %w", err)
	}
	if err := c.request(ctx, wh); err != nil {
		return fmt.Errorf("set webhook: %w", err)
	}
	c.logger.Info("webhook registered")
	return nil
}

// WebhookHandler принимает обновления, присланные Telegram, и передаёт события в out.
func (c *Client) WebhookHandler(out chan<- chat.Event) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		u, err := c.api.HandleUpdate(r)
		if err != nil {
			c.logger.Warn("bad webhook update", zap.Error(err))
			http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
			return
		}

		if ev, ok := EventFromUpdate(*u); ok {
			select {
			case out <- ev:
			case <-r.Context().Done():
				http.Error(w, http.StatusText(http.StatusServiceUnavailable), http.StatusServiceUnavailable)
				return
			}
		}
		w.WriteHeader(http.StatusOK)
	}
}

// EventFromUpdate переводит обновление Telegram в событие чата.
// Обновления, которые бот не обрабатывает, возвращают false.
func EventFromUpdate(u tgbotapi.Update) (chat.Event, bool) {
	if q := u.CallbackQuery; q != nil {
		if q.From == nil {
			return chat.Event{}, false
		}
		ev := chat.Event{
			Kind:       chat.KindButton,
			UserID:     q.From.ID,
			UserName:   displayName(q.From),
			CallbackID: q.ID,
			Data:       q.Data,
		}
		if q.Message != nil && q.Message.Chat != nil {
			ev.Message = chat.MessageRef{ChatID: q.Message.Chat.ID, MessageID: q.Message.MessageID}
		}
		return ev, true
	}

	m := u.Message
	if m == nil || m.From == nil {
		return chat.Event{}, false
	}

	ev := chat.Event{
		UserID:   m.From.ID,
		UserName: displayName(m.From),
	}
	switch {
	case m.IsCommand():
		ev.Kind = chat.KindCommand
		ev.Command = m.Command()
		ev.Args = strings.TrimSpace(m.CommandArguments())
	case len(m.Photo) > 0:
		ev.Kind = chat.KindPhoto
		ev.PhotoRef = m.Photo[len(m.Photo)-1].FileID
		ev.Text = m.Caption
	case m.Text != "":
		ev.Kind = chat.KindText
		ev.Text = m.Text
	default:
		return chat.Event{}, false
	}
	return ev, true
}

func displayName(u *tgbotapi.User) string {
	if u.UserName != "" {
		return u.UserName
	}
	return strings.TrimSpace(u.FirstName + " " + u.LastName)
}
