// Package repository содержит хранилище документа с каталогом и заказами.
package repository

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/mmeshcher/dolezza-bot/internal/model"
)

var (
	// ErrDocumentMissing возвращается бэкендом, если документа ещё нет или он не разбирается.
	// Только в этом случае вместо документа подставляется пустой.
	ErrDocumentMissing = errors.New("stored document missing or unparsable")
	// ErrStorageUnavailable возвращается, если хранилище не удалось прочитать по другой причине.
	ErrStorageUnavailable = errors.New("storage unavailable")
	// ErrOrderNotFound возвращается, если заказ с указанным идентификатором не найден.
	ErrOrderNotFound = errors.New("order not found")
	// ErrDuplicateOrder возвращается при попытке добавить заказ с уже существующим идентификатором.
	ErrDuplicateOrder = errors.New("order already exists")
	// ErrDuplicateProduct возвращается при попытке добавить позицию с уже существующим идентификатором.
	ErrDuplicateProduct = errors.New("product already exists")
)

// Backend описывает физическое хранение документа.
type Backend interface {
	Load(ctx context.Context) (*model.Document, error)
	Save(ctx context.Context, doc *model.Document) error
	Close() error
}

// Store хранит каталог и заказы и является единственным источником истины.
// Все изменения проходят цикл load → mutate → save под общим мьютексом,
// поэтому параллельные изменения не теряются.
type Store struct {
	mu      sync.Mutex
	backend Backend
	logger  *zap.Logger
}

// NewStore создаёт хранилище поверх указанного бэкенда.
func NewStore(backend Backend, logger *zap.Logger) *Store {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Store{
		backend: backend,
		logger:  logger,
	}
}

// Close закрывает бэкенд.
func (s *Store) Close() error {
	return s.backend.Close()
}

func (s *Store) load(ctx context.Context) (*model.Document, error) {
	doc, err := s.backend.Load(ctx)
	if err != nil {
		if !errors.Is(err, ErrDocumentMissing) {
			if !errors.Is(err, ErrStorageUnavailable) {
				err = fmt.Errorf("%w: %w", ErrStorageUnavailable, err)
			}
			return nil, err
		}
		if IsNotExist(err) {
			s.logger.Info("no stored document yet, starting empty")
		} else {
			s.logger.Warn("stored document unparsable, substituting empty document", zap.Error(err))
		}
		return model.NewDocument(), nil
	}
	if doc.Menu == nil {
		doc.Menu = []model.Product{}
	}
	if doc.Orders == nil {
		doc.Orders = []model.Order{}
	}
	return doc, nil
}

// Load возвращает копию текущего документа. Отсутствующий документ заменяется пустым.
// Если хранилище временно недоступно, читателю тоже отдаётся пустой документ,
// но изменения через Update в этом случае отклоняются.
func (s *Store) Load(ctx context.Context) *model.Document {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, err := s.load(ctx)
	if err != nil {
		s.logger.Error("stored document unavailable", zap.Error(err))
		return model.NewDocument()
	}
	return doc
}

// Save целиком заменяет документ.
func (s *Store) Save(ctx context.Context, doc *model.Document) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.save(ctx, doc)
}

func (s *Store) save(ctx context.Context, doc *model.Document) error {
	if err := s.backend.Save(ctx, doc); err != nil {
		return fmt.Errorf("save document: %w", err)
	}
	return nil
}

// Update выполняет fn над документом и сохраняет результат.
// Если fn вернула ошибку или документ не удалось прочитать, ничего не сохраняется.
func (s *Store) Update(ctx context.Context, fn func(doc *model.Document) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, err := s.load(ctx)
	if err != nil {
		return fmt.Errorf("load document: %w", err)
	}
	if err := fn(doc); err != nil {
		return err
	}
	return s.save(ctx, doc)
}

// AppendProduct добавляет позицию в каталог.
func (s *Store) AppendProduct(ctx context.Context, p model.Product) error {
	return s.Update(ctx, func(doc *model.Document) error {
		if _, exists := doc.FindProduct(p.ID); exists {
			return fmt.Errorf("%w: %s", ErrDuplicateProduct, p.ID)
		}
		doc.Menu = append(doc.Menu, p)
		return nil
	})
}

// ClearCatalog очищает каталог и возвращает количество удалённых позиций.
func (s *Store) ClearCatalog(ctx context.Context) (int, error) {
	var removed int
	err := s.Update(ctx, func(doc *model.Document) error {
		removed = len(doc.Menu)
		doc.Menu = []model.Product{}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return removed, nil
}

// AppendOrder добавляет заказ в конец списка заказов.
func (s *Store) AppendOrder(ctx context.Context, o model.Order) error {
	return s.Update(ctx, func(doc *model.Document) error {
		if _, exists := doc.FindOrder(o.OrderID); exists {
			return fmt.Errorf("%w: %s", ErrDuplicateOrder, o.OrderID)
		}
		doc.Orders = append(doc.Orders, o)
		return nil
	})
}

// StatusFunc вычисляет новый статус заказа по текущему.
type StatusFunc func(current model.OrderStatus) (model.OrderStatus, error)

// SetStatus возвращает StatusFunc, безусловно устанавливающую статус.
func SetStatus(status model.OrderStatus) StatusFunc {
	return func(model.OrderStatus) (model.OrderStatus, error) {
		return status, nil
	}
}

// UpdateOrderStatus меняет статус заказа на значение, вычисленное next, и возвращает обновлённый заказ.
// Если next вернула ошибку, документ не сохраняется, а возвращается заказ в текущем состоянии.
func (s *Store) UpdateOrderStatus(ctx context.Context, orderID string, next StatusFunc) (model.Order, error) {
	var res model.Order
	err := s.Update(ctx, func(doc *model.Document) error {
		o, ok := doc.FindOrder(orderID)
		if !ok {
			return fmt.Errorf("%w: %s", ErrOrderNotFound, orderID)
		}
		res = *o

		status, err := next(o.Status)
		if err != nil {
			return err
		}
		o.Status = status
		res = *o
		return nil
	})
	return res, err
}

// IsNotExist сообщает, что документа ещё нет: нет файла или строки в БД.
func IsNotExist(err error) bool {
	return errors.Is(err, ErrDocumentMissing) && (errors.Is(err, os.ErrNotExist) || errors.Is(err, pgx.ErrNoRows))
}
