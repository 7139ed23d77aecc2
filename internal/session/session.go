// Package session хранит состояние диалога каждого пользователя: шаг конечного автомата,
// выбранную зону, корзину и временные поля оформления заказа или добавления товара.
package session

import (
	"errors"
	"fmt"
	"sync"

	"github.com/mmeshcher/dolezza-bot/internal/cart"
)

// ErrUnexpectedTrigger возвращается, если событие недопустимо в текущем состоянии диалога.
var ErrUnexpectedTrigger = errors.New("unexpected conversation event")

// State описывает шаг диалога.
type State string

const (
	StateIdle                    State = "IDLE"
	StateAwaitingCheckoutName    State = "AWAITING_CHECKOUT_NAME"
	StateAwaitingCheckoutAddress State = "AWAITING_CHECKOUT_ADDRESS"
	StateAwaitingCheckoutPhone   State = "AWAITING_CHECKOUT_PHONE"
	StateAwaitingCheckoutConfirm State = "AWAITING_CHECKOUT_CONFIRM"
	StateAwaitingProductName     State = "AWAITING_PRODUCT_NAME"
	StateAwaitingProductPrice    State = "AWAITING_PRODUCT_PRICE"
	StateAwaitingProductPhoto    State = "AWAITING_PRODUCT_PHOTO"
)

// Trigger описывает событие, переводящее диалог в следующее состояние.
type Trigger string

const (
	TriggerStartCheckout    Trigger = "start_checkout"
	TriggerName             Trigger = "name"
	TriggerAddress          Trigger = "address"
	TriggerPhone            Trigger = "phone"
	TriggerConfirm          Trigger = "confirm"
	TriggerStartProductAdd  Trigger = "start_product_add"
	TriggerProductNamed     Trigger = "product_named"
	TriggerProductName      Trigger = "product_name"
	TriggerProductPrice     Trigger = "product_price"
	TriggerProductPhoto     Trigger = "product_photo"
	TriggerProductPhotoSkip Trigger = "product_photo_skip"
	TriggerCancel           Trigger = "cancel"
)

// Ключи временных полей.
const (
	FieldCustomerName = "customer_name"
	FieldAddress      = "address"
	FieldPhone        = "phone"
	FieldProductName  = "product_name"
	FieldProductPrice = "product_price"
	FieldSummaryRef   = "summary_ref"
)

var transitions = map[State]map[Trigger]State{
	StateIdle: {
		TriggerStartCheckout:   StateAwaitingCheckoutName,
		TriggerStartProductAdd: StateAwaitingProductName,
		TriggerProductNamed:    StateAwaitingProductPrice,
	},
	StateAwaitingCheckoutName:    {TriggerName: StateAwaitingCheckoutAddress},
	StateAwaitingCheckoutAddress: {TriggerAddress: StateAwaitingCheckoutPhone},
	StateAwaitingCheckoutPhone:   {TriggerPhone: StateAwaitingCheckoutConfirm},
	StateAwaitingCheckoutConfirm: {TriggerConfirm: StateIdle},
	StateAwaitingProductName:     {TriggerProductName: StateAwaitingProductPrice},
	StateAwaitingProductPrice:    {TriggerProductPrice: StateAwaitingProductPhoto},
	StateAwaitingProductPhoto: {
		TriggerProductPhoto:     StateIdle,
		TriggerProductPhotoSkip: StateIdle,
	},
}

// Session содержит состояние диалога одного пользователя.
// Доступ к Session должен происходить под блокировкой, полученной через Tracker.
type Session struct {
	UserID int64
	Zone   string
	Cart   cart.Cart

	state  State
	fields map[string]string
}

func newSession(userID int64) *Session {
	return &Session{
		UserID: userID,
		state:  StateIdle,
		fields: make(map[string]string),
	}
}

// State возвращает текущее состояние диалога.
func (s Session) State() State {
	return s.state
}

// SetState принудительно устанавливает состояние диалога.
func (s *Session) SetState(st State) {
	s.state = st
	if st == StateIdle {
		s.clearFields()
	}
}

// Fire выполняет переход по таблице состояний.
// Отмена допустима из любого состояния; переход в IDLE всегда очищает временные поля.
func (s *Session) Fire(t Trigger) error {
	if t == TriggerCancel {
		s.Reset()
		return nil
	}

	next, ok := transitions[s.state][t]
	if !ok {
		return fmt.Errorf("%w: %s in %s", ErrUnexpectedTrigger, t, s.state)
	}

	s.SetState(next)
	return nil
}

// SetField сохраняет временное поле.
func (s *Session) SetField(key, value string) {
	s.fields[key] = value
}

// Field возвращает временное поле.
func (s Session) Field(key string) string {
	return s.fields[key]
}

// Fields возвращает копию временных полей.
func (s Session) Fields() map[string]string {
	res := make(map[string]string, len(s.fields))
	for k, v := range s.fields {
		res[k] = v
	}
	return res
}

// Reset возвращает диалог в IDLE и очищает временные поля. Зона и корзина сохраняются.
func (s *Session) Reset() {
	s.state = StateIdle
	s.clearFields()
}

func (s *Session) clearFields() {
	for k := range s.fields {
		delete(s.fields, k)
	}
}

func (s *Session) clone() Session {
	c := Session{
		UserID: s.UserID,
		Zone:   s.Zone,
		state:  s.state,
		fields: s.Fields(),
		Cart:   s.Cart.Clone(),
	}
	return c
}

type entry struct {
	mu      sync.Mutex
	session *Session
}

// Tracker хранит сессии пользователей. У каждого пользователя своя блокировка,
// поэтому события разных пользователей обрабатываются независимо.
type Tracker struct {
	mu      sync.Mutex
	entries map[int64]*entry
}

// NewTracker создаёт пустое хранилище сессий.
func NewTracker() *Tracker {
	return &Tracker{
		entries: make(map[int64]*entry),
	}
}

func (t *Tracker) entry(userID int64) *entry {
	t.mu.Lock()
	defer t.mu.Unlock()

	e, ok := t.entries[userID]
	if !ok {
		e = &entry{session: newSession(userID)}
		t.entries[userID] = e
	}
	return e
}

// Acquire захватывает блокировку пользователя и возвращает его сессию
// вместе с функцией освобождения. Сессия создаётся при первом обращении.
func (t *Tracker) Acquire(userID int64) (*Session, func()) {
	e := t.entry(userID)
	e.mu.Lock()
	return e.session, e.mu.Unlock
}

// Do выполняет fn под блокировкой пользователя.
func (t *Tracker) Do(userID int64, fn func(s *Session) error) error {
	s, release := t.Acquire(userID)
	defer release()
	return fn(s)
}

// Get возвращает копию сессии пользователя, создавая её при первом обращении.
func (t *Tracker) Get(userID int64) Session {
	s, release := t.Acquire(userID)
	defer release()
	return s.clone()
}

// SetState устанавливает состояние диалога пользователя.
func (t *Tracker) SetState(userID int64, st State) {
	_ = t.Do(userID, func(s *Session) error {
		s.SetState(st)
		return nil
	})
}

// SetField сохраняет временное поле пользователя.
func (t *Tracker) SetField(userID int64, key, value string) {
	_ = t.Do(userID, func(s *Session) error {
		s.SetField(key, value)
		return nil
	})
}

// Reset сбрасывает диалог пользователя в IDLE.
func (t *Tracker) Reset(userID int64) {
	_ = t.Do(userID, func(s *Session) error {
		s.Reset()
		return nil
	})
}

// Len возвращает количество известных сессий.
func (t *Tracker) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.entries)
}
