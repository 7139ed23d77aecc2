// Package bot маршрутизирует входящие события чата к обработчикам клиента и администратора.
package bot

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/mmeshcher/dolezza-bot/internal/chat"
	"github.com/mmeshcher/dolezza-bot/internal/messages"
	"github.com/mmeshcher/dolezza-bot/internal/metrics"
	"github.com/mmeshcher/dolezza-bot/internal/model"
	"github.com/mmeshcher/dolezza-bot/internal/service"
	"github.com/mmeshcher/dolezza-bot/internal/session"
)

// Команды бота без ведущего слеша.
const (
	CommandStart       = "start"
	CommandMenu        = "menu"
	CommandAdd         = "agregar"
	CommandClearMenu   = "borrar_menu"
	CommandOrders      = "pedidos"
	CommandMyOrders    = "mis_pedidos"
	CommandCancel      = "cancel"
	CommandSkip        = "saltar"
	historyLimit       = 3
	defaultWorkerCount = 8
	shardBuffer        = 16
)

// Service определяет контракт бизнес-логики, используемой ботом.
type Service interface {
	IsAdmin(userID int64) bool
	Catalog(ctx context.Context) []model.Product
	Product(ctx context.Context, productID string) (model.Product, error)
	ProductByName(ctx context.Context, name string) (model.Product, error)
	AddProduct(ctx context.Context, name string, price int64, photoID string) (model.Product, error)
	ClearCatalog(ctx context.Context) (int, error)
	CreateOrder(ctx context.Context, sess *session.Session, c service.Checkout) (model.Order, error)
	Transition(ctx context.Context, orderID string, action model.Action, adminID int64) (model.Order, error)
	PendingAndAcceptedOrders(ctx context.Context) []model.Order
	OrdersForUser(ctx context.Context, userID int64, limit int) []model.Order
}

// Bot обрабатывает события чата.
type Bot struct {
	service   Service
	transport chat.Transport
	sessions  *session.Tracker
	logger    *zap.Logger
	metrics   *metrics.Metrics
}

// NewBot создаёт бота.
func NewBot(s Service, transport chat.Transport, sessions *session.Tracker, logger *zap.Logger, m *metrics.Metrics) *Bot {
	if logger == nil {
		logger = zap.NewNop()
	}
	if sessions == nil {
		sessions = session.NewTracker()
	}
	return &Bot{
		service:   s,
		transport: transport,
		sessions:  sessions,
		logger:    logger,
		metrics:   m,
	}
}

// Serve читает события из канала и распределяет их по workers обработчикам.
// Все события пользователя попадают к одному обработчику и выполняются в порядке поступления,
// события разных пользователей обрабатываются параллельно.
func (b *Bot) Serve(ctx context.Context, events <-chan chat.Event, workers int) error {
	if workers <= 0 {
		workers = defaultWorkerCount
	}

	g, gCtx := errgroup.WithContext(ctx)

	shards := make([]chan chat.Event, workers)
	for i := range shards {
		ch := make(chan chat.Event, shardBuffer)
		shards[i] = ch
		g.Go(func() error {
			for ev := range ch {
				if gCtx.Err() != nil {
					continue
				}
				b.Handle(gCtx, ev)
			}
			return nil
		})
	}

	b.dispatch(gCtx, events, shards)
	for _, ch := range shards {
		close(ch)
	}
	return g.Wait()
}

func (b *Bot) dispatch(ctx context.Context, events <-chan chat.Event, shards []chan chat.Event) {
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-events:
			if !ok {
				return
			}
			select {
			case shards[shardOf(ev.UserID, len(shards))] <- ev:
			case <-ctx.Done():
				return
			}
		}
	}
}

func shardOf(userID int64, n int) int {
	return int(uint64(userID) % uint64(n))
}

// Handle обрабатывает одно событие. Ошибки не возвращаются: о них сообщается пользователю.
func (b *Bot) Handle(ctx context.Context, ev chat.Event) {
	start := time.Now()
	defer func() {
		b.metrics.EventHandled(string(ev.Kind), time.Since(start))
	}()

	sess, release := b.sessions.Acquire(ev.UserID)
	defer release()

	if ev.Kind == chat.KindButton {
		defer b.answer(ctx, ev.CallbackID)
	}

	var err error
	switch ev.Kind {
	case chat.KindCommand:
		err = b.handleCommand(ctx, sess, ev)
	case chat.KindButton:
		err = b.handleButton(ctx, sess, ev)
	case chat.KindText:
		err = b.handleText(ctx, sess, ev)
	case chat.KindPhoto:
		err = b.handlePhoto(ctx, sess, ev)
	default:
		b.logger.Warn("unknown event kind", zap.String("kind", string(ev.Kind)), zap.Int64("userID", ev.UserID))
		return
	}

	if err != nil {
		b.logger.Error("handle event error",
			zap.Error(err),
			zap.String("kind", string(ev.Kind)),
			zap.Int64("userID", ev.UserID),
			zap.String("state", string(sess.State())),
		)
		b.reply(ctx, ev.UserID, messages.StorageFailure, nil)
	}
}

func (b *Bot) handleCommand(ctx context.Context, sess *session.Session, ev chat.Event) error {
	admin := b.service.IsAdmin(ev.UserID)

	switch ev.Command {
	case CommandStart:
		b.start(ctx, sess, admin)
		return nil
	case CommandCancel:
		b.cancel(ctx, sess, admin)
		return nil
	case CommandSkip:
		if !admin {
			b.reply(ctx, ev.UserID, messages.AdminOnly, nil)
			return nil
		}
		return b.skipPhoto(ctx, sess)
	}

	if sess.State() != session.StateIdle {
		b.reply(ctx, ev.UserID, messages.FinishCurrentStep, nil)
		return nil
	}

	switch ev.Command {
	case CommandMenu:
		b.showMenu(ctx, sess, admin)
		return nil
	case CommandMyOrders:
		b.showHistory(ctx, sess)
		return nil
	case CommandAdd, CommandClearMenu, CommandOrders:
		if !admin {
			b.reply(ctx, ev.UserID, messages.AdminOnly, nil)
			return nil
		}
	default:
		b.reply(ctx, ev.UserID, messages.UnknownCommand, nil)
		return nil
	}

	switch ev.Command {
	case CommandAdd:
		b.startProductAdd(ctx, sess, ev.Args)
		return nil
	case CommandClearMenu:
		return b.clearCatalog(ctx, sess)
	default:
		b.showQueue(ctx, sess, 0, chat.MessageRef{})
		return nil
	}
}

func (b *Bot) handleButton(ctx context.Context, sess *session.Session, ev chat.Event) error {
	action, arg := messages.ParseCallback(ev.Data)
	admin := b.service.IsAdmin(ev.UserID)

	// Пока идёт оформление, корзина и зона не меняются.
	if changesCart(action) && sess.State() != session.StateIdle {
		b.reply(ctx, sess.UserID, messages.FinishCurrentStep, nil)
		return nil
	}

	switch action {
	case messages.CallbackZone:
		b.selectZone(ctx, sess, arg)
	case messages.CallbackChangeZone:
		b.reply(ctx, sess.UserID, messages.ChooseZone, messages.ZoneKeyboard())
	case messages.CallbackMenu:
		b.showMenu(ctx, sess, admin)
	case messages.CallbackProduct:
		b.showProduct(ctx, sess, arg)
	case messages.CallbackAddCart:
		b.addToCartByID(ctx, sess, arg)
	case messages.CallbackCart:
		b.showCart(ctx, sess)
	case messages.CallbackClearCart:
		sess.Cart.Clear()
		b.reply(ctx, sess.UserID, messages.CartCleared, messages.CustomerMenuKeyboard())
	case messages.CallbackHistory:
		b.showHistory(ctx, sess)
	case messages.CallbackCheckout:
		b.startCheckout(ctx, sess)
	case messages.CallbackConfirm:
		return b.confirmCheckout(ctx, sess, ev.Message)
	case messages.CallbackCancel:
		b.cancelCheckout(ctx, sess, ev.Message)
	case messages.CallbackAdminAdd, messages.CallbackAdminOrders, messages.CallbackAdminClear,
		messages.CallbackAdminPage, messages.CallbackNoPhoto,
		messages.CallbackAdminAccept, messages.CallbackAdminReject, messages.CallbackAdminDone:
		if !admin {
			b.reply(ctx, sess.UserID, messages.AdminOnly, nil)
			return nil
		}
		return b.handleAdminButton(ctx, sess, ev, action, arg)
	default:
		b.reply(ctx, sess.UserID, messages.UnknownButton, nil)
	}
	return nil
}

func changesCart(action string) bool {
	switch action {
	case messages.CallbackZone, messages.CallbackChangeZone, messages.CallbackAddCart,
		messages.CallbackClearCart, messages.CallbackCheckout:
		return true
	}
	return false
}

func (b *Bot) handleAdminButton(ctx context.Context, sess *session.Session, ev chat.Event, action, arg string) error {
	switch action {
	case messages.CallbackAdminAdd:
		b.startProductAdd(ctx, sess, "")
	case messages.CallbackAdminOrders:
		b.showQueue(ctx, sess, 0, chat.MessageRef{})
	case messages.CallbackAdminClear:
		if sess.State() != session.StateIdle {
			b.reply(ctx, sess.UserID, messages.FinishCurrentStep, nil)
			return nil
		}
		return b.clearCatalog(ctx, sess)
	case messages.CallbackAdminPage:
		b.showQueue(ctx, sess, parsePage(arg), ev.Message)
	case messages.CallbackNoPhoto:
		return b.skipPhoto(ctx, sess)
	case messages.CallbackAdminAccept:
		return b.transition(ctx, sess, ev.Message, arg, model.ActionAccept)
	case messages.CallbackAdminReject:
		return b.transition(ctx, sess, ev.Message, arg, model.ActionReject)
	case messages.CallbackAdminDone:
		return b.transition(ctx, sess, ev.Message, arg, model.ActionDeliver)
	}
	return nil
}

func (b *Bot) handleText(ctx context.Context, sess *session.Session, ev chat.Event) error {
	switch sess.State() {
	case session.StateIdle:
		b.addToCartByName(ctx, sess, ev.Text)
	case session.StateAwaitingCheckoutName:
		b.captureCheckoutField(ctx, sess, ev.Text, session.FieldCustomerName, session.TriggerName, messages.AskAddress)
	case session.StateAwaitingCheckoutAddress:
		b.captureCheckoutField(ctx, sess, ev.Text, session.FieldAddress, session.TriggerAddress, messages.AskPhone)
	case session.StateAwaitingCheckoutPhone:
		b.capturePhone(ctx, sess, ev.Text)
	case session.StateAwaitingCheckoutConfirm:
		b.reply(ctx, sess.UserID, messages.PressButton, nil)
	case session.StateAwaitingProductName:
		b.captureProductName(ctx, sess, ev.Text)
	case session.StateAwaitingProductPrice:
		b.captureProductPrice(ctx, sess, ev.Text)
	case session.StateAwaitingProductPhoto:
		b.reply(ctx, sess.UserID, messages.AskProductPhoto, messages.SkipPhotoKeyboard())
	}
	return nil
}

func (b *Bot) handlePhoto(ctx context.Context, sess *session.Session, ev chat.Event) error {
	if sess.State() != session.StateAwaitingProductPhoto {
		b.reply(ctx, sess.UserID, messages.UnexpectedPhoto, nil)
		return nil
	}
	return b.finishProductAdd(ctx, sess, ev.PhotoRef, session.TriggerProductPhoto)
}

func (b *Bot) start(ctx context.Context, sess *session.Session, admin bool) {
	b.dropSummary(ctx, sess)
	sess.Reset()

	if admin {
		b.reply(ctx, sess.UserID, messages.WelcomeAdmin, messages.AdminMenuKeyboard())
		return
	}
	b.reply(ctx, sess.UserID, messages.WelcomeCustomer, messages.ZoneKeyboard())
}

func (b *Bot) cancel(ctx context.Context, sess *session.Session, admin bool) {
	if sess.State() == session.StateIdle {
		b.reply(ctx, sess.UserID, messages.NothingToCancel, nil)
		return
	}

	b.dropSummary(ctx, sess)
	if err := sess.Fire(session.TriggerCancel); err != nil {
		b.logger.Error("cancel conversation", zap.Error(err), zap.Int64("userID", sess.UserID))
	}

	kb := messages.CustomerMenuKeyboard()
	if admin {
		kb = messages.AdminMenuKeyboard()
	}
	b.reply(ctx, sess.UserID, messages.Cancelled, kb)
}

func (b *Bot) reply(ctx context.Context, userID int64, text string, kb chat.Keyboard) chat.MessageRef {
	ref, err := b.transport.SendText(ctx, userID, text, kb)
	if err != nil {
		b.logger.Warn("send message failed", zap.Error(err), zap.Int64("userID", userID))
	}
	return ref
}

func (b *Bot) edit(ctx context.Context, ref chat.MessageRef, text string, kb chat.Keyboard) {
	if ref.IsZero() {
		return
	}
	if err := b.transport.EditMessage(ctx, ref, text, kb); err != nil {
		b.logger.Warn("edit message failed", zap.Error(err), zap.Int64("chatID", ref.ChatID))
	}
}

func (b *Bot) remove(ctx context.Context, ref chat.MessageRef) {
	if ref.IsZero() {
		return
	}
	if err := b.transport.DeleteMessage(ctx, ref); err != nil {
		b.logger.Warn("delete message failed", zap.Error(err), zap.Int64("chatID", ref.ChatID))
	}
}

func (b *Bot) answer(ctx context.Context, callbackID string) {
	if callbackID == "" {
		return
	}
	if err := b.transport.AnswerCallback(ctx, callbackID, ""); err != nil {
		b.logger.Debug("answer callback failed", zap.Error(err))
	}
}

func encodeRef(ref chat.MessageRef) string {
	return fmt.Sprintf("%d:%d", ref.ChatID, ref.MessageID)
}

func decodeRef(s string) chat.MessageRef {
	var ref chat.MessageRef
	if _, err := fmt.Sscanf(s, "%d:%d", &ref.ChatID, &ref.MessageID); err != nil {
		return chat.MessageRef{}
	}
	return ref
}

// dropSummary удаляет сообщение со сводкой заказа, если оно ещё не удалено.
func (b *Bot) dropSummary(ctx context.Context, sess *session.Session) {
	if v := sess.Field(session.FieldSummaryRef); v != "" {
		b.remove(ctx, decodeRef(v))
		sess.SetField(session.FieldSummaryRef, "")
	}
}
