// Package telegram реализует транспорт бота поверх Telegram Bot API.
package telegram

import (
	"context"
	"fmt"
	"net/http"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"github.com/mmeshcher/dolezza-bot/internal/chat"
)

const (
	pollTimeout = 30
	httpTimeout = (pollTimeout + 15) * time.Second
)

// Client отправляет сообщения и получает обновления Telegram.
type Client struct {
	api    *tgbotapi.BotAPI
	logger *zap.Logger
}

// New подключается к Telegram Bot API с указанным токеном.
func New(token string, logger *zap.Logger) (*Client, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if err := tgbotapi.SetLogger(zap.NewStdLog(logger.Named("tgbotapi"))); err != nil {
		return nil, fmt.Errorf("set telegram logger: %w", err)
	}

	api, err := tgbotapi.NewBotAPIWithClient(token, tgbotapi.APIEndpoint, &http.Client{Timeout: httpTimeout})
	if err != nil {
		return nil, fmt.Errorf("connect to telegram: %w", err)
	}
	logger.Info("telegram bot authorized", zap.String("username", api.Self.UserName))

	return newClient(api, logger), nil
}

func newClient(api *tgbotapi.BotAPI, logger *zap.Logger) *Client {
	return &Client{
		api:    api,
		logger: logger,
	}
}

// call выполняет запрос к API, не дожидаясь его дольше, чем позволяет ctx.
func call[T any](ctx context.Context, fn func() (T, error)) (T, error) {
	type result struct {
		v   T
		err error
	}

	var zero T
	if err := ctx.Err(); err != nil {
		return zero, err
	}

	done := make(chan result, 1)
	go func() {
		v, err := fn()
		done <- result{v: v, err: err}
	}()

	select {
	case <-ctx.Done():
		return zero, ctx.Err()
	case r := <-done:
		return r.v, r.err
	}
}

func (c *Client) send(ctx context.Context, msg tgbotapi.Chattable) (chat.MessageRef, error) {
	sent, err := call(ctx, func() (tgbotapi.Message, error) {
		return c.api.Send(msg)
	})
	if err != nil {
		return chat.MessageRef{}, err
	}

	ref := chat.MessageRef{MessageID: sent.MessageID}
	if sent.Chat != nil {
		ref.ChatID = sent.Chat.ID
	}
	return ref, nil
}

func (c *Client) request(ctx context.Context, req tgbotapi.Chattable) error {
	_, err := call(ctx, func() (*tgbotapi.APIResponse, error) {
		return c.api.Request(req)
	})
	return err
}

// SendText отправляет текстовое сообщение пользователю.
func (c *Client) SendText(ctx context.Context, userID int64, text string, kb chat.Keyboard) (chat.MessageRef, error) {
	msg := tgbotapi.NewMessage(userID, text)
	if markup := inlineKeyboard(kb); markup != nil {
		msg.ReplyMarkup = *markup
	}
	return c.send(ctx, msg)
}

// SendPhoto отправляет ранее загруженное фото с подписью.
func (c *Client) SendPhoto(ctx context.Context, userID int64, photoRef, caption string, kb chat.Keyboard) (chat.MessageRef, error) {
	photo := tgbotapi.NewPhoto(userID, tgbotapi.FileID(photoRef))
	photo.Caption = caption
	if markup := inlineKeyboard(kb); markup != nil {
		photo.ReplyMarkup = *markup
	}
	return c.send(ctx, photo)
}

// EditMessage заменяет текст и кнопки сообщения.
func (c *Client) EditMessage(ctx context.Context, ref chat.MessageRef, text string, kb chat.Keyboard) error {
	edit := tgbotapi.NewEditMessageText(ref.ChatID, ref.MessageID, text)
	edit.ReplyMarkup = inlineKeyboard(kb)
	return c.request(ctx, edit)
}

// DeleteMessage удаляет сообщение.
func (c *Client) DeleteMessage(ctx context.Context, ref chat.MessageRef) error {
	return c.request(ctx, tgbotapi.NewDeleteMessage(ref.ChatID, ref.MessageID))
}

// AnswerCallback подтверждает нажатие кнопки.
func (c *Client) AnswerCallback(ctx context.Context, callbackID, text string) error {
	return c.request(ctx, tgbotapi.NewCallback(callbackID, text))
}

func inlineKeyboard(kb chat.Keyboard) *tgbotapi.InlineKeyboardMarkup {
	if len(kb) == 0 {
		return nil
	}

	rows := make([][]tgbotapi.InlineKeyboardButton, 0, len(kb))
	for _, row := range kb {
		if len(row) == 0 {
			continue
		}
		buttons := make([]tgbotapi.InlineKeyboardButton, 0, len(row))
		for _, b := range row {
			buttons = append(buttons, tgbotapi.NewInlineKeyboardButtonData(b.Text, b.Data))
		}
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(buttons...))
	}

	markup := tgbotapi.NewInlineKeyboardMarkup(rows...)
	return &markup
}
