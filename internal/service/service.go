// Package service реализует жизненный цикл заказа и операции с каталогом.
package service

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/mmeshcher/dolezza-bot/internal/chat"
	"github.com/mmeshcher/dolezza-bot/internal/messages"
	"github.com/mmeshcher/dolezza-bot/internal/metrics"
	"github.com/mmeshcher/dolezza-bot/internal/model"
	"github.com/mmeshcher/dolezza-bot/internal/repository"
	"github.com/mmeshcher/dolezza-bot/internal/session"
	"github.com/mmeshcher/dolezza-bot/internal/validation"
	"github.com/mmeshcher/dolezza-bot/internal/zone"
)

var (
	// ErrEmptyCart возвращается при попытке оформить пустую корзину.
	ErrEmptyCart = errors.New("cart is empty")
	// ErrNoZoneSelected возвращается, если клиент не выбрал зону доставки.
	ErrNoZoneSelected = errors.New("no delivery zone selected")
	// ErrCheckoutIncomplete возвращается, если не заполнены имя, адрес или телефон.
	ErrCheckoutIncomplete = errors.New("checkout fields are incomplete")
	// ErrProductNotFound возвращается, если позиции нет в каталоге.
	ErrProductNotFound = errors.New("product not found")
)

// Store описывает контракт хранилища, используемый сервисом.
type Store interface {
	Close() error
	Load(ctx context.Context) *model.Document
	AppendProduct(ctx context.Context, p model.Product) error
	ClearCatalog(ctx context.Context) (int, error)
	AppendOrder(ctx context.Context, o model.Order) error
	UpdateOrderStatus(ctx context.Context, orderID string, next repository.StatusFunc) (model.Order, error)
}

// Notifier описывает рассылку уведомлений.
type Notifier interface {
	NotifyAdmins(ctx context.Context, adminIDs []int64, text string, kb chat.Keyboard) int
	NotifyCustomer(ctx context.Context, userID int64, text string) bool
}

// Checkout содержит данные, собранные при оформлении заказа.
type Checkout struct {
	CustomerName string
	Address      string
	Phone        string
}

// Service содержит бизнес-логику заказов и каталога.
type Service struct {
	store    Store
	notifier Notifier
	adminIDs []int64
	logger   *zap.Logger
	metrics  *metrics.Metrics

	now   func() time.Time
	token func() string
}

// NewService создаёт сервис поверх хранилища и рассыльщика уведомлений.
func NewService(store Store, notifier Notifier, adminIDs []int64, logger *zap.Logger, m *metrics.Metrics) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		store:    store,
		notifier: notifier,
		adminIDs: slices.Clone(adminIDs),
		logger:   logger,
		metrics:  m,
		now:      time.Now,
		token:    randomToken,
	}
}

func randomToken() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")[:8]
}

// Close закрывает ресурсы сервиса.
func (s *Service) Close() error {
	if s.store != nil {
		return s.store.Close()
	}
	return nil
}

// IsAdmin сообщает, является ли пользователь администратором.
func (s *Service) IsAdmin(userID int64) bool {
	return slices.Contains(s.adminIDs, userID)
}

// AdminIDs возвращает идентификаторы администраторов.
func (s *Service) AdminIDs() []int64 {
	return slices.Clone(s.adminIDs)
}

// Catalog возвращает текущий каталог.
func (s *Service) Catalog(ctx context.Context) []model.Product {
	return s.store.Load(ctx).Menu
}

// Product возвращает позицию каталога по идентификатору.
func (s *Service) Product(ctx context.Context, productID string) (model.Product, error) {
	p, ok := s.store.Load(ctx).FindProduct(productID)
	if !ok {
		return model.Product{}, fmt.Errorf("%w: %s", ErrProductNotFound, productID)
	}
	return p, nil
}

// ProductByName ищет позицию каталога по названию без учёта регистра.
func (s *Service) ProductByName(ctx context.Context, name string) (model.Product, error) {
	name = strings.TrimSpace(name)
	for _, p := range s.store.Load(ctx).Menu {
		if strings.EqualFold(p.Name, name) {
			return p, nil
		}
	}
	return model.Product{}, fmt.Errorf("%w: %s", ErrProductNotFound, name)
}

// maxIDAttempts ограничивает повторную генерацию идентификатора при совпадении.
const maxIDAttempts = 5

// AddProduct добавляет позицию в каталог.
func (s *Service) AddProduct(ctx context.Context, name string, price int64, photoID string) (model.Product, error) {
	if price <= 0 || price > validation.MaxPrice {
		return model.Product{}, fmt.Errorf("add product: %w", validation.ErrInvalidPrice)
	}

	p := model.Product{
		Name:    name,
		Price:   price,
		PhotoID: photoID,
	}

	var err error
	for i := 0; i < maxIDAttempts; i++ {
		p.ID = "p" + s.token()
		err = s.store.AppendProduct(ctx, p)
		if !errors.Is(err, repository.ErrDuplicateProduct) {
			break
		}
	}
	if err != nil {
		return model.Product{}, fmt.Errorf("add product: %w", err)
	}

	s.logger.Info("product added", zap.String("product", p.ID), zap.String("name", p.Name), zap.Int64("price", p.Price))
	return p, nil
}

// ClearCatalog удаляет все позиции каталога. Заказы не затрагиваются.
func (s *Service) ClearCatalog(ctx context.Context) (int, error) {
	removed, err := s.store.ClearCatalog(ctx)
	if err != nil {
		return 0, fmt.Errorf("clear catalog: %w", err)
	}
	s.logger.Info("catalog cleared", zap.Int("removed", removed))
	return removed, nil
}

// CreateOrder оформляет заказ из корзины сессии. Корзина очищается только после сохранения заказа.
func (s *Service) CreateOrder(ctx context.Context, sess *session.Session, c Checkout) (model.Order, error) {
	if sess.Cart.IsEmpty() {
		return model.Order{}, ErrEmptyCart
	}
	if sess.Zone == "" {
		return model.Order{}, ErrNoZoneSelected
	}
	if c.CustomerName == "" || c.Address == "" || c.Phone == "" {
		return model.Order{}, ErrCheckoutIncomplete
	}

	lines, subtotal := sess.Cart.Summary()
	fee := zone.FeeFor(sess.Zone)
	now := s.now()

	o := model.Order{
		UserID:       sess.UserID,
		CustomerName: c.CustomerName,
		Phone:        c.Phone,
		Address:      c.Address,
		Zone:         sess.Zone,
		Items:        lines,
		Subtotal:     subtotal,
		DeliveryFee:  fee,
		Total:        subtotal + fee,
		Status:       model.OrderStatusPending,
		Date:         now.Format(model.DateLayout),
	}

	var err error
	for i := 0; i < maxIDAttempts; i++ {
		o.OrderID = now.Format("20060102150405") + "-" + s.token()
		err = s.store.AppendOrder(ctx, o)
		if !errors.Is(err, repository.ErrDuplicateOrder) {
			break
		}
	}
	if err != nil {
		return model.Order{}, fmt.Errorf("create order: %w", err)
	}

	sess.Cart.Clear()
	s.metrics.OrderCreated()
	s.logger.Info("order created",
		zap.String("order", o.OrderID),
		zap.Int64("userID", o.UserID),
		zap.Int64("total", o.Total),
	)

	s.notifier.NotifyAdmins(ctx, s.adminIDs, messages.NewOrderForAdmins(o), messages.OrderActionsKeyboard(o))
	return o, nil
}

// Transition применяет действие администратора к заказу. При недопустимом действии
// возвращается текущее состояние заказа вместе с model.ErrIllegalTransition, и ничего не меняется.
// После успешного перехода клиент получает уведомление.
func (s *Service) Transition(ctx context.Context, orderID string, action model.Action, adminID int64) (model.Order, error) {
	current, err := s.store.UpdateOrderStatus(ctx, orderID, func(st model.OrderStatus) (model.OrderStatus, error) {
		return st.Next(action)
	})
	if err != nil {
		return current, err
	}

	s.metrics.OrderTransitioned(string(current.Status))
	s.logger.Info("order transitioned",
		zap.String("order", current.OrderID),
		zap.String("status", string(current.Status)),
		zap.Int64("adminID", adminID),
	)

	s.notifier.NotifyCustomer(ctx, current.UserID, messages.StatusUpdate(current))
	return current, nil
}

// PendingAndAcceptedOrders возвращает незавершённые заказы в порядке создания.
func (s *Service) PendingAndAcceptedOrders(ctx context.Context) []model.Order {
	var res []model.Order
	for _, o := range s.store.Load(ctx).Orders {
		if o.Status == model.OrderStatusPending || o.Status == model.OrderStatusAccepted {
			res = append(res, o)
		}
	}
	return res
}

// OrdersForUser возвращает заказы пользователя, начиная с самого нового.
// Если limit > 0, возвращается не более limit заказов.
func (s *Service) OrdersForUser(ctx context.Context, userID int64, limit int) []model.Order {
	orders := s.store.Load(ctx).Orders

	var res []model.Order
	for i := len(orders) - 1; i >= 0; i-- {
		if orders[i].UserID != userID {
			continue
		}
		res = append(res, orders[i])
		if limit > 0 && len(res) == limit {
			break
		}
	}
	return res
}
