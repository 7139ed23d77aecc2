package model

import (
	"encoding/json"
	"errors"
	"testing"
	"time"
)

func TestOrderStatusNext(t *testing.T) {
	tests := []struct {
		name    string
		from    OrderStatus
		action  Action
		want    OrderStatus
		wantErr bool
	}{
		{name: "accept pending", from: OrderStatusPending, action: ActionAccept, want: OrderStatusAccepted},
		{name: "reject pending", from: OrderStatusPending, action: ActionReject, want: OrderStatusRejected},
		{name: "deliver accepted", from: OrderStatusAccepted, action: ActionDeliver, want: OrderStatusDelivered},
		{name: "deliver pending", from: OrderStatusPending, action: ActionDeliver, wantErr: true},
		{name: "accept accepted", from: OrderStatusAccepted, action: ActionAccept, wantErr: true},
		{name: "reject accepted", from: OrderStatusAccepted, action: ActionReject, wantErr: true},
		{name: "accept rejected", from: OrderStatusRejected, action: ActionAccept, wantErr: true},
		{name: "accept delivered", from: OrderStatusDelivered, action: ActionAccept, wantErr: true},
		{name: "deliver delivered", from: OrderStatusDelivered, action: ActionDeliver, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := tt.from.Next(tt.action)
			if tt.wantErr {
				if !errors.Is(err, ErrIllegalTransition) {
					t.Fatalf("err = %v, want ErrIllegalTransition", err)
				}
				if got != tt.from {
					t.Fatalf("status changed to %s on illegal transition", got)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Fatalf("Next = %s, want %s", got, tt.want)
			}
		})
	}
}

func TestOrderStatusTerminal(t *testing.T) {
	if OrderStatusPending.Terminal() || OrderStatusAccepted.Terminal() {
		t.Fatalf("non-terminal status reported as terminal")
	}
	if !OrderStatusRejected.Terminal() || !OrderStatusDelivered.Terminal() {
		t.Fatalf("terminal status reported as non-terminal")
	}
}

func TestDocumentCloneIsDeep(t *testing.T) {
	doc := NewDocument()
	doc.Menu = append(doc.Menu, Product{ID: "p1", Name: "Trufa", Price: 500})
	doc.Orders = append(doc.Orders, Order{
		OrderID: "o1",
		Items:   []CartLine{{ProductID: "p1", Name: "Trufa", Price: 500, Quantity: 1}},
		Status:  OrderStatusPending,
	})

	c := doc.Clone()
	c.Menu[0].Name = "changed"
	c.Orders[0].Items[0].Quantity = 5
	c.Orders[0].Status = OrderStatusAccepted

	if doc.Menu[0].Name != "Trufa" {
		t.Fatalf("clone shares menu")
	}
	if doc.Orders[0].Items[0].Quantity != 1 || doc.Orders[0].Status != OrderStatusPending {
		t.Fatalf("clone shares orders: %+v", doc.Orders[0])
	}
}

func TestOrderCreatedAt(t *testing.T) {
	o := Order{Date: "16/10/2026 14:05"}
	got := o.CreatedAt()
	want := time.Date(2026, time.October, 16, 14, 5, 0, 0, time.Local)
	if !got.Equal(want) {
		t.Fatalf("CreatedAt = %v, want %v", got, want)
	}

	if !(Order{Date: "garbage"}).CreatedAt().IsZero() {
		t.Fatalf("expected zero time for unparsable date")
	}
}

func TestDocumentLegacyFormat(t *testing.T) {
	raw := `{
		"menu": ["Trufa", {"id": "p2", "name": "Flan", "price": 350, "photo_id": "AgAD"}],
		"orders": [{"order_id": "20240101120000", "user_id": 7, "user_name": "Ana", "item": "Trufa", "status": "ACEPTADO", "date": "01/01/2024 12:00"}]
	}`

	var doc Document
	if err := json.Unmarshal([]byte(raw), &doc); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}

	if len(doc.Menu) != 1 {
		t.Fatalf("price-less legacy entries must be dropped, got menu: %+v", doc.Menu)
	}
	if doc.Menu[0].ID != "p2" || doc.Menu[0].Price != 350 || doc.Menu[0].PhotoID != "AgAD" {
		t.Fatalf("unexpected product: %+v", doc.Menu[0])
	}
	if doc.Orders[0].Status != OrderStatusAccepted || doc.Orders[0].Item != "Trufa" {
		t.Fatalf("unexpected order: %+v", doc.Orders[0])
	}
}

func TestDocumentDropsUnpricedProducts(t *testing.T) {
	raw := `{"menu": [
		{"id": "p1", "name": "Trufa", "price": 500},
		{"id": "p2", "name": "Gratis", "price": 0},
		{"id": "p3", "name": "Roto", "price": -20},
		"Flan"
	], "orders": []}`

	var doc Document
	if err := json.Unmarshal([]byte(raw), &doc); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if len(doc.Menu) != 1 || doc.Menu[0].ID != "p1" {
		t.Fatalf("unexpected menu: %+v", doc.Menu)
	}
}

func TestLegacyProductDecodesName(t *testing.T) {
	var p Product
	if err := json.Unmarshal([]byte(`"Trufa"`), &p); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if p.ID != "Trufa" || p.Name != "Trufa" || p.Price != 0 {
		t.Fatalf("unexpected product: %+v", p)
	}
}
