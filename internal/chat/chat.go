// Package chat описывает независимые от мессенджера входящие события,
// кнопки и исходящие операции, которые ядро бота ожидает от транспорта.
package chat

import "context"

// EventKind описывает вид входящего события.
type EventKind string

const (
	KindCommand EventKind = "command"
	KindButton  EventKind = "button"
	KindText    EventKind = "text"
	KindPhoto   EventKind = "photo"
)

// MessageRef указывает на отправленное сообщение.
type MessageRef struct {
	ChatID    int64
	MessageID int
}

// IsZero сообщает, что ссылка не указывает ни на какое сообщение.
func (r MessageRef) IsZero() bool {
	return r.MessageID == 0
}

// Event описывает входящее событие от транспорта.
type Event struct {
	Kind     EventKind
	UserID   int64
	UserName string

	// Command и Args заполняются для KindCommand, без ведущего слеша.
	Command string
	Args    string

	// CallbackID и Data заполняются для KindButton; Message указывает на сообщение с кнопкой.
	CallbackID string
	Data       string
	Message    MessageRef

	Text     string
	PhotoRef string
}

// Button описывает кнопку под сообщением.
type Button struct {
	Text string
	Data string
}

// Keyboard содержит ряды кнопок.
type Keyboard [][]Button

// Row собирает ряд кнопок.
func Row(buttons ...Button) []Button {
	return buttons
}

// Sender отправляет текстовые сообщения.
type Sender interface {
	SendText(ctx context.Context, userID int64, text string, kb Keyboard) (MessageRef, error)
}

// Transport объединяет исходящие операции, нужные ядру.
type Transport interface {
	Sender
	SendPhoto(ctx context.Context, userID int64, photoRef, caption string, kb Keyboard) (MessageRef, error)
	EditMessage(ctx context.Context, ref MessageRef, text string, kb Keyboard) error
	DeleteMessage(ctx context.Context, ref MessageRef) error
	AnswerCallback(ctx context.Context, callbackID, text string) error
}
