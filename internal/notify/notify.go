// Package notify реализует рассылку уведомлений администраторам и клиентам
// по принципу best-effort: одна попытка на получателя, ошибки логируются и не возвращаются.
package notify

import (
	"context"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/mmeshcher/dolezza-bot/internal/chat"
	"github.com/mmeshcher/dolezza-bot/internal/metrics"
)

// DefaultTimeout ограничивает одну попытку отправки.
const DefaultTimeout = 10 * time.Second

// Notifier рассылает уведомления через транспорт.
type Notifier struct {
	sender  chat.Sender
	logger  *zap.Logger
	metrics *metrics.Metrics
	timeout time.Duration
}

// NewNotifier создаёт рассыльщик. Нулевой timeout заменяется DefaultTimeout.
func NewNotifier(sender chat.Sender, logger *zap.Logger, m *metrics.Metrics, timeout time.Duration) *Notifier {
	if logger == nil {
		logger = zap.NewNop()
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Notifier{
		sender:  sender,
		logger:  logger,
		metrics: m,
		timeout: timeout,
	}
}

// NotifyAdmins отправляет сообщение каждому администратору независимо от остальных
// и возвращает количество успешных доставок.
func (n *Notifier) NotifyAdmins(ctx context.Context, adminIDs []int64, text string, kb chat.Keyboard) int {
	var delivered atomic.Int64
	var g errgroup.Group

	for _, id := range adminIDs {
		id := id
		g.Go(func() error {
			if n.send(ctx, "admin", id, text, kb) {
				delivered.Add(1)
			}
			return nil
		})
	}
	_ = g.Wait()

	return int(delivered.Load())
}

// NotifyCustomer отправляет сообщение клиенту и сообщает, удалась ли доставка.
func (n *Notifier) NotifyCustomer(ctx context.Context, userID int64, text string) bool {
	return n.send(ctx, "customer", userID, text, nil)
}

func (n *Notifier) send(ctx context.Context, recipient string, userID int64, text string, kb chat.Keyboard) bool {
	ctx, cancel := context.WithTimeout(ctx, n.timeout)
	defer cancel()

	if _, err := n.sender.SendText(ctx, userID, text, kb); err != nil {
		n.logger.Warn("notification not delivered",
			zap.String("recipient", recipient),
			zap.Int64("userID", userID),
			zap.Error(err),
		)
		n.metrics.DeliveryFailed(recipient)
		return false
	}
	return true
}
