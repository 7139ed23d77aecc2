package service

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mmeshcher/dolezza-bot/internal/chat"
	"github.com/mmeshcher/dolezza-bot/internal/model"
	"github.com/mmeshcher/dolezza-bot/internal/repository"
	"github.com/mmeshcher/dolezza-bot/internal/session"
	"github.com/mmeshcher/dolezza-bot/internal/validation"
)

type sentMessage struct {
	userID int64
	text   string
}

type stubNotifier struct {
	mu       sync.Mutex
	admins   []sentMessage
	customer []sentMessage
}

func (n *stubNotifier) NotifyAdmins(_ context.Context, adminIDs []int64, text string, _ chat.Keyboard) int {
	n.mu.Lock()
	defer n.mu.Unlock()
	for _, id := range adminIDs {
		n.admins = append(n.admins, sentMessage{userID: id, text: text})
	}
	return len(adminIDs)
}

func (n *stubNotifier) NotifyCustomer(_ context.Context, userID int64, text string) bool {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.customer = append(n.customer, sentMessage{userID: userID, text: text})
	return true
}

func (n *stubNotifier) customerCount() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.customer)
}

func newTestService(t *testing.T) (*Service, *repository.Store, *stubNotifier) {
	t.Helper()

	store := repository.NewStore(repository.NewFileBackend(filepath.Join(t.TempDir(), "database.json"), nil), nil)
	n := &stubNotifier{}
	svc := NewService(store, n, []int64{100, 200}, nil, nil)

	fixed := time.Date(2026, time.October, 16, 14, 5, 0, 0, time.Local)
	svc.now = func() time.Time { return fixed }

	var seq int
	var mu sync.Mutex
	svc.token = func() string {
		mu.Lock()
		defer mu.Unlock()
		seq++
		return fmt.Sprintf("%08x", seq)
	}
	return svc, store, n
}

func customerSession(userID int64, zoneName string, products ...model.Product) *session.Session {
	sess, release := session.NewTracker().Acquire(userID)
	release()
	sess.Zone = zoneName
	for _, p := range products {
		sess.Cart.Add(p)
	}
	return sess
}

var (
	trufa = model.Product{ID: "p1", Name: "Trufa", Price: 500}
	flan  = model.Product{ID: "p2", Name: "Flan de coco", Price: 350}
	ana   = Checkout{CustomerName: "Ana", Address: "Calle 23 #456", Phone: "+5355555555"}
)

func TestCreateOrderEmptyCart(t *testing.T) {
	svc, store, n := newTestService(t)
	sess := customerSession(7, "Cerro")

	_, err := svc.CreateOrder(context.Background(), sess, ana)
	if !errors.Is(err, ErrEmptyCart) {
		t.Fatalf("expected ErrEmptyCart, got %v", err)
	}
	assert.Empty(t, store.Load(context.Background()).Orders)
	assert.Empty(t, n.admins)
}

func TestCreateOrderWithoutZone(t *testing.T) {
	svc, store, _ := newTestService(t)
	sess := customerSession(7, "", trufa)

	_, err := svc.CreateOrder(context.Background(), sess, ana)
	if !errors.Is(err, ErrNoZoneSelected) {
		t.Fatalf("expected ErrNoZoneSelected, got %v", err)
	}
	assert.Empty(t, store.Load(context.Background()).Orders)
	assert.Equal(t, 1, sess.Cart.Len(), "cart must survive a failed checkout")
}

func TestCreateOrderIncompleteCheckout(t *testing.T) {
	svc, _, _ := newTestService(t)
	sess := customerSession(7, "Cerro", trufa)

	_, err := svc.CreateOrder(context.Background(), sess, Checkout{CustomerName: "Ana"})
	assert.ErrorIs(t, err, ErrCheckoutIncomplete)
}

func TestOrderLifecycleEndToEnd(t *testing.T) {
	svc, store, n := newTestService(t)
	ctx := context.Background()
	sess := customerSession(7, "Centro Habana", trufa, trufa)

	o, err := svc.CreateOrder(ctx, sess, ana)
	require.NoError(t, err)

	assert.Equal(t, int64(1000), o.Subtotal)
	assert.Equal(t, int64(720), o.DeliveryFee)
	assert.Equal(t, int64(1720), o.Total)
	assert.Equal(t, model.OrderStatusPending, o.Status)
	assert.Equal(t, "20261016140500-00000001", o.OrderID)
	assert.Equal(t, "16/10/2026 14:05", o.Date)
	require.Len(t, o.Items, 1)
	assert.Equal(t, 2, o.Items[0].Quantity)

	assert.True(t, sess.Cart.IsEmpty(), "cart must be cleared after the order is stored")
	assert.Len(t, n.admins, 2)

	stored := store.Load(ctx).Orders
	require.Len(t, stored, 1)
	assert.Equal(t, o, stored[0])

	accepted, err := svc.Transition(ctx, o.OrderID, model.ActionAccept, 100)
	require.NoError(t, err)
	assert.Equal(t, model.OrderStatusAccepted, accepted.Status)

	delivered, err := svc.Transition(ctx, o.OrderID, model.ActionDeliver, 100)
	require.NoError(t, err)
	assert.Equal(t, model.OrderStatusDelivered, delivered.Status)

	for _, a := range []model.Action{model.ActionAccept, model.ActionReject, model.ActionDeliver} {
		current, err := svc.Transition(ctx, o.OrderID, a, 100)
		assert.ErrorIs(t, err, model.ErrIllegalTransition)
		assert.Equal(t, model.OrderStatusDelivered, current.Status)
	}

	assert.Equal(t, 2, n.customerCount())
	assert.Equal(t, int64(7), n.customer[0].userID)
}

func TestTransitionRejectedOrderIsFinal(t *testing.T) {
	svc, store, n := newTestService(t)
	ctx := context.Background()

	o, err := svc.CreateOrder(ctx, customerSession(7, "Cerro", flan), ana)
	require.NoError(t, err)

	_, err = svc.Transition(ctx, o.OrderID, model.ActionReject, 200)
	require.NoError(t, err)

	_, err = svc.Transition(ctx, o.OrderID, model.ActionAccept, 200)
	assert.ErrorIs(t, err, model.ErrIllegalTransition)
	assert.Equal(t, model.OrderStatusRejected, store.Load(ctx).Orders[0].Status)
	assert.Equal(t, 1, n.customerCount())
}

func TestTransitionUnknownOrder(t *testing.T) {
	svc, _, n := newTestService(t)

	_, err := svc.Transition(context.Background(), "missing", model.ActionAccept, 100)
	if !errors.Is(err, repository.ErrOrderNotFound) {
		t.Fatalf("expected ErrOrderNotFound, got %v", err)
	}
	assert.Zero(t, n.customerCount())
}

func TestConcurrentAcceptNotifiesOnce(t *testing.T) {
	svc, _, n := newTestService(t)
	ctx := context.Background()

	o, err := svc.CreateOrder(ctx, customerSession(7, "Cerro", trufa), ana)
	require.NoError(t, err)

	const admins = 10
	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		succeeded int
		illegal   int
	)
	for i := 0; i < admins; i++ {
		wg.Add(1)
		go func(adminID int64) {
			defer wg.Done()
			_, err := svc.Transition(ctx, o.OrderID, model.ActionAccept, adminID)
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				succeeded++
			case errors.Is(err, model.ErrIllegalTransition):
				illegal++
			}
		}(int64(i))
	}
	wg.Wait()

	assert.Equal(t, 1, succeeded)
	assert.Equal(t, admins-1, illegal)
	assert.Equal(t, 1, n.customerCount())
}

func TestCreateOrderIDsAreUnique(t *testing.T) {
	svc, store, _ := newTestService(t)
	ctx := context.Background()

	calls := 0
	svc.token = func() string {
		calls++
		if calls <= 2 {
			return "deadbeef"
		}
		return "cafebabe"
	}

	first, err := svc.CreateOrder(ctx, customerSession(7, "Cerro", trufa), ana)
	require.NoError(t, err)
	second, err := svc.CreateOrder(ctx, customerSession(8, "Cerro", trufa), ana)
	require.NoError(t, err)

	assert.NotEqual(t, first.OrderID, second.OrderID)
	assert.Len(t, store.Load(ctx).Orders, 2)
}

func TestPendingAndAcceptedOrders(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	var ids []string
	for i := 0; i < 4; i++ {
		o, err := svc.CreateOrder(ctx, customerSession(int64(i), "Cerro", trufa), ana)
		require.NoError(t, err)
		ids = append(ids, o.OrderID)
	}

	_, err := svc.Transition(ctx, ids[0], model.ActionReject, 100)
	require.NoError(t, err)
	_, err = svc.Transition(ctx, ids[1], model.ActionAccept, 100)
	require.NoError(t, err)
	_, err = svc.Transition(ctx, ids[2], model.ActionAccept, 100)
	require.NoError(t, err)
	_, err = svc.Transition(ctx, ids[2], model.ActionDeliver, 100)
	require.NoError(t, err)

	open := svc.PendingAndAcceptedOrders(ctx)
	require.Len(t, open, 2)
	assert.Equal(t, ids[1], open[0].OrderID)
	assert.Equal(t, ids[3], open[1].OrderID)
}

func TestOrdersForUser(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	var mine []string
	for i := 0; i < 5; i++ {
		o, err := svc.CreateOrder(ctx, customerSession(7, "Cerro", trufa), ana)
		require.NoError(t, err)
		mine = append(mine, o.OrderID)

		_, err = svc.CreateOrder(ctx, customerSession(8, "Cerro", flan), ana)
		require.NoError(t, err)
	}

	got := svc.OrdersForUser(ctx, 7, 3)
	require.Len(t, got, 3)
	assert.Equal(t, mine[4], got[0].OrderID)
	assert.Equal(t, mine[3], got[1].OrderID)
	assert.Equal(t, mine[2], got[2].OrderID)

	assert.Len(t, svc.OrdersForUser(ctx, 7, 0), 5)
	assert.Empty(t, svc.OrdersForUser(ctx, 9, 3))
}

func TestCatalogOperations(t *testing.T) {
	svc, store, _ := newTestService(t)
	ctx := context.Background()

	p, err := svc.AddProduct(ctx, "Trufa", 500, "AgADphoto")
	require.NoError(t, err)
	assert.Equal(t, "p00000001", p.ID)

	_, err = svc.AddProduct(ctx, "Flan de coco", 350, "")
	require.NoError(t, err)

	found, err := svc.ProductByName(ctx, "  flan DE coco ")
	require.NoError(t, err)
	assert.Equal(t, int64(350), found.Price)

	byID, err := svc.Product(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, "AgADphoto", byID.PhotoID)

	_, err = svc.ProductByName(ctx, "Helado")
	assert.ErrorIs(t, err, ErrProductNotFound)

	_, err = svc.CreateOrder(ctx, customerSession(7, "Cerro", p), ana)
	require.NoError(t, err)

	removed, err := svc.ClearCatalog(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, removed)
	assert.Empty(t, svc.Catalog(ctx))
	assert.Len(t, store.Load(ctx).Orders, 1)

	_, err = svc.Product(ctx, p.ID)
	assert.ErrorIs(t, err, ErrProductNotFound)
}

func TestAddProductRejectsOutOfRangePrice(t *testing.T) {
	svc, store, _ := newTestService(t)
	ctx := context.Background()

	for _, price := range []int64{0, -5, validation.MaxPrice + 1} {
		_, err := svc.AddProduct(ctx, "Trufa", price, "")
		assert.ErrorIs(t, err, validation.ErrInvalidPrice, price)
	}
	assert.Empty(t, store.Load(ctx).Menu)
}

func TestIsAdmin(t *testing.T) {
	svc, _, _ := newTestService(t)

	assert.True(t, svc.IsAdmin(100))
	assert.False(t, svc.IsAdmin(7))

	ids := svc.AdminIDs()
	ids[0] = 7
	assert.False(t, svc.IsAdmin(7))
}
