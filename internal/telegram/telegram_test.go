package telegram

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/mmeshcher/dolezza-bot/internal/chat"
)

func commandMessage(text string, length int) *tgbotapi.Message {
	return &tgbotapi.Message{
		MessageID: 10,
		From:      &tgbotapi.User{ID: 7, UserName: "ana"},
		Chat:      &tgbotapi.Chat{ID: 7},
		Text:      text,
		Entities:  []tgbotapi.MessageEntity{{Type: "bot_command", Offset: 0, Length: length}},
	}
}

func TestEventFromUpdate(t *testing.T) {
	tests := []struct {
		name   string
		update tgbotapi.Update
		want   chat.Event
		ok     bool
	}{
		{
			name:   "command with args",
			update: tgbotapi.Update{Message: commandMessage("/agregar  Trufa de chocolate", 8)},
			want: chat.Event{
				Kind: chat.KindCommand, UserID: 7, UserName: "ana",
				Command: "agregar", Args: "Trufa de chocolate",
			},
			ok: true,
		},
		{
			name:   "command addressed to the bot",
			update: tgbotapi.Update{Message: commandMessage("/start@dolezzabot", 16)},
			want:   chat.Event{Kind: chat.KindCommand, UserID: 7, UserName: "ana", Command: "start"},
			ok:     true,
		},
		{
			name: "plain text",
			update: tgbotapi.Update{Message: &tgbotapi.Message{
				From: &tgbotapi.User{ID: 8, FirstName: "Luis", LastName: "Pérez"},
				Chat: &tgbotapi.Chat{ID: 8},
				Text: "Trufa",
			}},
			want: chat.Event{Kind: chat.KindText, UserID: 8, UserName: "Luis Pérez", Text: "Trufa"},
			ok:   true,
		},
		{
			name: "photo uses the largest size",
			update: tgbotapi.Update{Message: &tgbotapi.Message{
				From: &tgbotapi.User{ID: 100, UserName: "admin"},
				Chat: &tgbotapi.Chat{ID: 100},
				Photo: []tgbotapi.PhotoSize{
					{FileID: "small", Width: 90},
					{FileID: "large", Width: 1280},
				},
			}},
			want: chat.Event{Kind: chat.KindPhoto, UserID: 100, UserName: "admin", PhotoRef: "large"},
			ok:   true,
		},
		{
			name: "button press",
			update: tgbotapi.Update{CallbackQuery: &tgbotapi.CallbackQuery{
				ID:   "cb1",
				From: &tgbotapi.User{ID: 100, UserName: "admin"},
				Data: "adm_accept_20261016140500-0a1b2c3d",
				Message: &tgbotapi.Message{
					MessageID: 55,
					Chat:      &tgbotapi.Chat{ID: 100},
				},
			}},
			want: chat.Event{
				Kind: chat.KindButton, UserID: 100, UserName: "admin",
				CallbackID: "cb1", Data: "adm_accept_20261016140500-0a1b2c3d",
				Message: chat.MessageRef{ChatID: 100, MessageID: 55},
			},
			ok: true,
		},
		{
			name: "sticker is ignored",
			update: tgbotapi.Update{Message: &tgbotapi.Message{
				From:    &tgbotapi.User{ID: 7},
				Chat:    &tgbotapi.Chat{ID: 7},
				Sticker: &tgbotapi.Sticker{FileID: "s"},
			}},
		},
		{
			name:   "channel post is ignored",
			update: tgbotapi.Update{ChannelPost: &tgbotapi.Message{Text: "hola"}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := EventFromUpdate(tt.update)
			require.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestInlineKeyboard(t *testing.T) {
	assert.Nil(t, inlineKeyboard(nil))

	markup := inlineKeyboard(chat.Keyboard{
		chat.Row(chat.Button{Text: "Cerro", Data: "zone_Cerro"}, chat.Button{Text: "Playa", Data: "zone_Playa"}),
		nil,
		chat.Row(chat.Button{Text: "🛒 Carrito", Data: "cart"}),
	})
	require.NotNil(t, markup)
	require.Len(t, markup.InlineKeyboard, 2)
	require.Len(t, markup.InlineKeyboard[0], 2)

	btn := markup.InlineKeyboard[0][1]
	assert.Equal(t, "Playa", btn.Text)
	require.NotNil(t, btn.CallbackData)
	assert.Equal(t, "zone_Playa", *btn.CallbackData)
}

func TestWebhookHandler(t *testing.T) {
	c := newClient(&tgbotapi.BotAPI{}, zap.NewNop())
	out := make(chan chat.Event, 1)
	h := c.WebhookHandler(out)

	body := `{"update_id": 1, "message": {"message_id": 3, "from": {"id": 7, "username": "ana"},
		"chat": {"id": 7, "type": "private"}, "date": 0, "text": "Trufa"}}`
	req := httptest.NewRequest(http.MethodPost, "/webhook", strings.NewReader(body))
	rec := httptest.NewRecorder()

	h.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	select {
	case ev := <-out:
		assert.Equal(t, chat.Event{Kind: chat.KindText, UserID: 7, UserName: "ana", Text: "Trufa"}, ev)
	default:
		t.Fatalf("expected event to be forwarded")
	}
}

func TestWebhookHandlerRejectsGarbage(t *testing.T) {
	c := newClient(&tgbotapi.BotAPI{}, zap.NewNop())
	h := c.WebhookHandler(make(chan chat.Event, 1))

	req := httptest.NewRequest(http.MethodPost, "/webhook", strings.NewReader("{oops"))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCallRespectsContext(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	release := make(chan struct{})
	defer close(release)

	_, err := call(ctx, func() (int, error) {
		<-release
		return 1, nil
	})
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	v, err := call(context.Background(), func() (int, error) { return 42, nil })
	require.NoError(t, err)
	assert.Equal(t, 42, v)
}
