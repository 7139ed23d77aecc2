// Package model содержит доменные сущности бота доставки Dolezza.
package model

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// DateLayout задаёт формат поля date в сохранённом документе.
const DateLayout = "02/01/2006 15:04"

// ErrIllegalTransition возвращается, если действие недопустимо для текущего статуса заказа.
var ErrIllegalTransition = errors.New("illegal order transition")

// Product описывает позицию каталога.
type Product struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Price   int64  `json:"price"`
	PhotoID string `json:"photo_id,omitempty"`
}

// UnmarshalJSON принимает также позиции старого формата, где меню было списком названий.
// Такие позиции остаются без цены и отбрасываются при чтении документа.
func (p *Product) UnmarshalJSON(data []byte) error {
	var name string
	if err := json.Unmarshal(data, &name); err == nil {
		*p = Product{ID: name, Name: name}
		return nil
	}

	type plain Product
	var v plain
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	*p = Product(v)
	return nil
}

// CartLine описывает строку корзины или снимок строки заказа.
type CartLine struct {
	ProductID string `json:"product_id"`
	Name      string `json:"name"`
	Price     int64  `json:"price"`
	Quantity  int    `json:"quantity"`
}

// Amount возвращает стоимость строки.
func (l CartLine) Amount() int64 {
	return l.Price * int64(l.Quantity)
}

// OrderStatus описывает статус заказа.
type OrderStatus string

const (
	OrderStatusPending   OrderStatus = "PENDING"
	OrderStatusAccepted  OrderStatus = "ACCEPTED"
	OrderStatusRejected  OrderStatus = "REJECTED"
	OrderStatusDelivered OrderStatus = "DELIVERED"
)

var legacyStatuses = map[string]OrderStatus{
	"PENDIENTE": OrderStatusPending,
	"ACEPTADO":  OrderStatusAccepted,
	"RECHAZADO": OrderStatusRejected,
	"ENTREGADO": OrderStatusDelivered,
}

// UnmarshalJSON переводит статусы старого формата в текущие.
func (s *OrderStatus) UnmarshalJSON(data []byte) error {
	var v string
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	if legacy, ok := legacyStatuses[v]; ok {
		*s = legacy
		return nil
	}
	*s = OrderStatus(v)
	return nil
}

// Terminal сообщает, является ли статус конечным.
func (s OrderStatus) Terminal() bool {
	return s == OrderStatusRejected || s == OrderStatusDelivered
}

// Action описывает действие администратора над заказом.
type Action string

const (
	ActionAccept  Action = "accept"
	ActionReject  Action = "reject"
	ActionDeliver Action = "deliver"
)

var transitions = map[OrderStatus]map[Action]OrderStatus{
	OrderStatusPending: {
		ActionAccept: OrderStatusAccepted,
		ActionReject: OrderStatusRejected,
	},
	OrderStatusAccepted: {
		ActionDeliver: OrderStatusDelivered,
	},
}

// Next возвращает статус, в который переходит заказ после действия.
func (s OrderStatus) Next(a Action) (OrderStatus, error) {
	next, ok := transitions[s][a]
	if !ok {
		return s, fmt.Errorf("%w: %s from %s", ErrIllegalTransition, a, s)
	}
	return next, nil
}

// Order описывает подтверждённый заказ клиента.
type Order struct {
	OrderID      string      `json:"order_id"`
	UserID       int64       `json:"user_id"`
	CustomerName string      `json:"user_name"`
	Phone        string      `json:"user_phone"`
	Address      string      `json:"address"`
	Zone         string      `json:"zone"`
	Items        []CartLine  `json:"items"`
	Item         string      `json:"item,omitempty"`
	Subtotal     int64       `json:"subtotal"`
	DeliveryFee  int64       `json:"delivery_cost"`
	Total        int64       `json:"total"`
	Status       OrderStatus `json:"status"`
	Date         string      `json:"date"`
}

// CreatedAt разбирает дату создания заказа. Для нераспознанной даты возвращается нулевое время.
func (o Order) CreatedAt() time.Time {
	t, err := time.ParseInLocation(DateLayout, o.Date, time.Local)
	if err != nil {
		return time.Time{}
	}
	return t
}

// Document представляет весь сохранённый документ: каталог и заказы.
type Document struct {
	Menu   []Product `json:"menu"`
	Orders []Order   `json:"orders"`
}

// UnmarshalJSON читает документ и отбрасывает позиции каталога без положительной цены.
func (d *Document) UnmarshalJSON(data []byte) error {
	type plain Document
	var v plain
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	*d = Document(v)
	if d.Menu != nil {
		d.Menu = sellable(d.Menu)
	}
	return nil
}

func sellable(menu []Product) []Product {
	res := make([]Product, 0, len(menu))
	for _, p := range menu {
		if p.Price > 0 {
			res = append(res, p)
		}
	}
	return res
}

// NewDocument создаёт пустой документ.
func NewDocument() *Document {
	return &Document{
		Menu:   []Product{},
		Orders: []Order{},
	}
}

// Clone возвращает глубокую копию документа.
func (d *Document) Clone() *Document {
	c := &Document{
		Menu:   make([]Product, len(d.Menu)),
		Orders: make([]Order, len(d.Orders)),
	}
	copy(c.Menu, d.Menu)
	for i, o := range d.Orders {
		if o.Items != nil {
			items := make([]CartLine, len(o.Items))
			copy(items, o.Items)
			o.Items = items
		}
		c.Orders[i] = o
	}
	return c
}

// FindOrder возвращает указатель на заказ с указанным идентификатором.
func (d *Document) FindOrder(orderID string) (*Order, bool) {
	for i := range d.Orders {
		if d.Orders[i].OrderID == orderID {
			return &d.Orders[i], true
		}
	}
	return nil, false
}

// FindProduct возвращает позицию каталога по идентификатору.
func (d *Document) FindProduct(productID string) (Product, bool) {
	for _, p := range d.Menu {
		if p.ID == productID {
			return p, true
		}
	}
	return Product{}, false
}
