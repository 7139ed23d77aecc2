package bot

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"go.uber.org/zap"

	"github.com/mmeshcher/dolezza-bot/internal/chat"
	"github.com/mmeshcher/dolezza-bot/internal/messages"
	"github.com/mmeshcher/dolezza-bot/internal/model"
	"github.com/mmeshcher/dolezza-bot/internal/repository"
	"github.com/mmeshcher/dolezza-bot/internal/session"
	"github.com/mmeshcher/dolezza-bot/internal/validation"
)

func (b *Bot) startProductAdd(ctx context.Context, sess *session.Session, name string) {
	if name == "" {
		if err := sess.Fire(session.TriggerStartProductAdd); err != nil {
			b.reply(ctx, sess.UserID, messages.FinishCurrentStep, nil)
			return
		}
		b.reply(ctx, sess.UserID, messages.AskProductName, nil)
		return
	}

	v, err := validation.RequireText(name)
	if err != nil {
		b.reply(ctx, sess.UserID, messages.EmptyText, nil)
		return
	}
	if err := sess.Fire(session.TriggerProductNamed); err != nil {
		b.reply(ctx, sess.UserID, messages.FinishCurrentStep, nil)
		return
	}
	sess.SetField(session.FieldProductName, v)
	b.reply(ctx, sess.UserID, messages.AskProductPrice, nil)
}

func (b *Bot) captureProductName(ctx context.Context, sess *session.Session, text string) {
	v, err := validation.RequireText(text)
	if err != nil {
		b.reply(ctx, sess.UserID, messages.EmptyText, nil)
		return
	}

	sess.SetField(session.FieldProductName, v)
	if err := sess.Fire(session.TriggerProductName); err != nil {
		b.logger.Error("product add step", zap.Error(err), zap.Int64("userID", sess.UserID))
		return
	}
	b.reply(ctx, sess.UserID, messages.AskProductPrice, nil)
}

func (b *Bot) captureProductPrice(ctx context.Context, sess *session.Session, text string) {
	price, err := validation.ParsePrice(text)
	if err != nil {
		b.reply(ctx, sess.UserID, messages.InvalidPrice, nil)
		return
	}

	sess.SetField(session.FieldProductPrice, strconv.FormatInt(price, 10))
	if err := sess.Fire(session.TriggerProductPrice); err != nil {
		b.logger.Error("product add step", zap.Error(err), zap.Int64("userID", sess.UserID))
		return
	}
	b.reply(ctx, sess.UserID, messages.AskProductPhoto, messages.SkipPhotoKeyboard())
}

func (b *Bot) skipPhoto(ctx context.Context, sess *session.Session) error {
	if sess.State() != session.StateAwaitingProductPhoto {
		b.reply(ctx, sess.UserID, messages.UnknownButton, nil)
		return nil
	}
	return b.finishProductAdd(ctx, sess, "", session.TriggerProductPhotoSkip)
}

// finishProductAdd сохраняет позицию. При ошибке хранилища диалог остаётся на шаге фото.
func (b *Bot) finishProductAdd(ctx context.Context, sess *session.Session, photoRef string, t session.Trigger) error {
	price, err := strconv.ParseInt(sess.Field(session.FieldProductPrice), 10, 64)
	if err != nil {
		return fmt.Errorf("product price field: %w", err)
	}

	p, err := b.service.AddProduct(ctx, sess.Field(session.FieldProductName), price, photoRef)
	if err != nil {
		return err
	}

	if err := sess.Fire(t); err != nil {
		b.logger.Error("product add step", zap.Error(err), zap.Int64("userID", sess.UserID))
	}
	b.reply(ctx, sess.UserID, messages.ProductAdded(p), messages.AdminMenuKeyboard())
	return nil
}

func (b *Bot) clearCatalog(ctx context.Context, sess *session.Session) error {
	removed, err := b.service.ClearCatalog(ctx)
	if err != nil {
		return err
	}
	b.reply(ctx, sess.UserID, messages.CatalogCleared(removed), messages.AdminMenuKeyboard())
	return nil
}

// showQueue показывает один заказ очереди. Если ref задан, сообщение редактируется на месте.
func (b *Bot) showQueue(ctx context.Context, sess *session.Session, index int, ref chat.MessageRef) {
	orders := b.service.PendingAndAcceptedOrders(ctx)
	if len(orders) == 0 {
		if ref.IsZero() {
			b.reply(ctx, sess.UserID, messages.NoOrders, messages.AdminMenuKeyboard())
			return
		}
		b.edit(ctx, ref, messages.NoOrders, nil)
		return
	}

	index = max(0, min(index, len(orders)-1))
	o := orders[index]
	text := messages.QueueCard(o, index, len(orders))
	kb := messages.QueueKeyboard(o, index, len(orders))

	if ref.IsZero() {
		b.reply(ctx, sess.UserID, text, kb)
		return
	}
	b.edit(ctx, ref, text, kb)
}

func (b *Bot) transition(ctx context.Context, sess *session.Session, ref chat.MessageRef, orderID string, action model.Action) error {
	o, err := b.service.Transition(ctx, orderID, action, sess.UserID)
	switch {
	case errors.Is(err, repository.ErrOrderNotFound):
		b.reply(ctx, sess.UserID, messages.OrderNotFound, nil)
		return nil
	case errors.Is(err, model.ErrIllegalTransition):
		b.edit(ctx, ref, messages.AdminOutcome(o), messages.OrderActionsKeyboard(o))
		b.reply(ctx, sess.UserID, messages.IllegalTransition(o), nil)
		return nil
	case err != nil:
		return err
	}

	if ref.IsZero() {
		b.reply(ctx, sess.UserID, messages.AdminOutcome(o), messages.OrderActionsKeyboard(o))
		return nil
	}
	b.edit(ctx, ref, messages.AdminOutcome(o), messages.OrderActionsKeyboard(o))
	return nil
}

func parsePage(arg string) int {
	n, err := strconv.Atoi(arg)
	if err != nil || n < 0 {
		return 0
	}
	return n
}
