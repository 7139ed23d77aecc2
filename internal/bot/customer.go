package bot

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"github.com/mmeshcher/dolezza-bot/internal/chat"
	"github.com/mmeshcher/dolezza-bot/internal/messages"
	"github.com/mmeshcher/dolezza-bot/internal/model"
	"github.com/mmeshcher/dolezza-bot/internal/service"
	"github.com/mmeshcher/dolezza-bot/internal/session"
	"github.com/mmeshcher/dolezza-bot/internal/validation"
	"github.com/mmeshcher/dolezza-bot/internal/zone"
)

func (b *Bot) selectZone(ctx context.Context, sess *session.Session, name string) {
	if !zone.Known(name) {
		b.reply(ctx, sess.UserID, messages.UnknownButton, messages.ZoneKeyboard())
		return
	}

	sess.Zone = name
	b.reply(ctx, sess.UserID, messages.ZoneSelected(name, zone.FeeFor(name)), nil)
	b.showMenu(ctx, sess, false)
}

func (b *Bot) showMenu(ctx context.Context, sess *session.Session, admin bool) {
	products := b.service.Catalog(ctx)

	switch {
	case admin:
		b.reply(ctx, sess.UserID, messages.Menu(products), messages.AdminMenuKeyboard())
	case sess.Zone == "":
		b.reply(ctx, sess.UserID, messages.NoZone, messages.ZoneKeyboard())
	case len(products) == 0:
		b.reply(ctx, sess.UserID, messages.MenuEmpty, messages.CustomerMenuKeyboard())
	default:
		b.reply(ctx, sess.UserID, messages.Menu(products), messages.CatalogKeyboard(products))
	}
}

func (b *Bot) showProduct(ctx context.Context, sess *session.Session, productID string) {
	p, err := b.service.Product(ctx, productID)
	if err != nil {
		b.reply(ctx, sess.UserID, messages.ProductNotFound, messages.CustomerMenuKeyboard())
		return
	}

	if p.PhotoID == "" {
		b.reply(ctx, sess.UserID, messages.ProductCaption(p), messages.ProductKeyboard(p))
		return
	}

	_, err = b.transport.SendPhoto(ctx, sess.UserID, p.PhotoID, messages.ProductCaption(p), messages.ProductKeyboard(p))
	if err != nil {
		b.logger.Warn("send photo failed, falling back to text", zap.Error(err), zap.String("product", p.ID))
		b.reply(ctx, sess.UserID, messages.ProductCaption(p), messages.ProductKeyboard(p))
	}
}

func (b *Bot) addToCartByID(ctx context.Context, sess *session.Session, productID string) {
	p, err := b.service.Product(ctx, productID)
	if err != nil {
		b.reply(ctx, sess.UserID, messages.ProductNotFound, messages.CustomerMenuKeyboard())
		return
	}
	b.addToCart(ctx, sess, p)
}

func (b *Bot) addToCartByName(ctx context.Context, sess *session.Session, text string) {
	p, err := b.service.ProductByName(ctx, text)
	if err != nil {
		b.reply(ctx, sess.UserID, messages.NotOnMenu, nil)
		return
	}
	b.addToCart(ctx, sess, p)
}

func (b *Bot) addToCart(ctx context.Context, sess *session.Session, p model.Product) {
	sess.Cart.Add(p)

	quantity := 0
	for _, l := range sess.Cart.Lines() {
		if l.ProductID == p.ID {
			quantity = l.Quantity
		}
	}
	b.reply(ctx, sess.UserID, messages.AddedToCart(p.Name, quantity), messages.CustomerMenuKeyboard())
}

func (b *Bot) showCart(ctx context.Context, sess *session.Session) {
	lines, subtotal := sess.Cart.Summary()
	if len(lines) == 0 {
		b.reply(ctx, sess.UserID, messages.CartEmpty, messages.CustomerMenuKeyboard())
		return
	}
	b.reply(ctx, sess.UserID, messages.Cart(lines, subtotal, sess.Zone), messages.CartKeyboard())
}

func (b *Bot) showHistory(ctx context.Context, sess *session.Session) {
	orders := b.service.OrdersForUser(ctx, sess.UserID, historyLimit)
	b.reply(ctx, sess.UserID, messages.History(orders), messages.CustomerMenuKeyboard())
}

func (b *Bot) startCheckout(ctx context.Context, sess *session.Session) {
	if sess.Cart.IsEmpty() {
		b.reply(ctx, sess.UserID, messages.CartEmpty, messages.CustomerMenuKeyboard())
		return
	}
	if sess.Zone == "" {
		b.reply(ctx, sess.UserID, messages.NoZone, messages.ZoneKeyboard())
		return
	}
	if err := sess.Fire(session.TriggerStartCheckout); err != nil {
		b.reply(ctx, sess.UserID, messages.FinishCurrentStep, nil)
		return
	}
	b.reply(ctx, sess.UserID, messages.AskName, nil)
}

func (b *Bot) captureCheckoutField(ctx context.Context, sess *session.Session, text, field string, t session.Trigger, next string) {
	v, err := validation.RequireText(text)
	if err != nil {
		b.reply(ctx, sess.UserID, messages.EmptyText, nil)
		return
	}

	sess.SetField(field, v)
	if err := sess.Fire(t); err != nil {
		b.logger.Error("checkout step", zap.Error(err), zap.Int64("userID", sess.UserID))
		return
	}
	b.reply(ctx, sess.UserID, next, nil)
}

func (b *Bot) capturePhone(ctx context.Context, sess *session.Session, text string) {
	phone, err := validation.NormalizePhone(text)
	if err != nil {
		b.reply(ctx, sess.UserID, messages.InvalidPhone, nil)
		return
	}

	sess.SetField(session.FieldPhone, phone)
	if err := sess.Fire(session.TriggerPhone); err != nil {
		b.logger.Error("checkout step", zap.Error(err), zap.Int64("userID", sess.UserID))
		return
	}

	lines, subtotal := sess.Cart.Summary()
	summary := messages.CheckoutSummary(
		sess.Field(session.FieldCustomerName),
		sess.Field(session.FieldAddress),
		phone,
		sess.Zone,
		lines,
		subtotal,
	)
	ref := b.reply(ctx, sess.UserID, summary, messages.ConfirmKeyboard())
	if !ref.IsZero() {
		sess.SetField(session.FieldSummaryRef, encodeRef(ref))
	}
}

func (b *Bot) confirmCheckout(ctx context.Context, sess *session.Session, msg chat.MessageRef) error {
	if sess.State() != session.StateAwaitingCheckoutConfirm {
		b.reply(ctx, sess.UserID, messages.UnknownButton, nil)
		return nil
	}

	o, err := b.service.CreateOrder(ctx, sess, service.Checkout{
		CustomerName: sess.Field(session.FieldCustomerName),
		Address:      sess.Field(session.FieldAddress),
		Phone:        sess.Field(session.FieldPhone),
	})
	switch {
	case errors.Is(err, service.ErrEmptyCart):
		b.abandonCheckout(ctx, sess, msg)
		b.reply(ctx, sess.UserID, messages.CartEmpty, messages.CustomerMenuKeyboard())
		return nil
	case errors.Is(err, service.ErrNoZoneSelected):
		b.abandonCheckout(ctx, sess, msg)
		b.reply(ctx, sess.UserID, messages.NoZone, messages.ZoneKeyboard())
		return nil
	case err != nil:
		return err
	}

	b.remove(ctx, summaryRef(sess, msg))
	if err := sess.Fire(session.TriggerConfirm); err != nil {
		b.logger.Error("confirm checkout", zap.Error(err), zap.Int64("userID", sess.UserID))
	}
	b.reply(ctx, sess.UserID, messages.OrderPlaced(o), messages.CustomerMenuKeyboard())
	return nil
}

func (b *Bot) cancelCheckout(ctx context.Context, sess *session.Session, msg chat.MessageRef) {
	if sess.State() != session.StateAwaitingCheckoutConfirm {
		b.reply(ctx, sess.UserID, messages.UnknownButton, nil)
		return
	}
	b.abandonCheckout(ctx, sess, msg)
	b.reply(ctx, sess.UserID, messages.CheckoutCancelled, messages.CustomerMenuKeyboard())
}

func (b *Bot) abandonCheckout(ctx context.Context, sess *session.Session, msg chat.MessageRef) {
	b.remove(ctx, summaryRef(sess, msg))
	if err := sess.Fire(session.TriggerCancel); err != nil {
		b.logger.Error("cancel checkout", zap.Error(err), zap.Int64("userID", sess.UserID))
	}
}

// summaryRef предпочитает сообщение, в котором нажата кнопка.
func summaryRef(sess *session.Session, msg chat.MessageRef) chat.MessageRef {
	if !msg.IsZero() {
		return msg
	}
	return decodeRef(sess.Field(session.FieldSummaryRef))
}
