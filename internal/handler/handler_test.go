package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"go.uber.org/zap"

	"github.com/mmeshcher/dolezza-bot/internal/metrics"
	"github.com/mmeshcher/dolezza-bot/internal/middleware"
	"github.com/mmeshcher/dolezza-bot/internal/model"
)

type stubService struct {
	catalog []model.Product
	open    []model.Order
}

func (s *stubService) Catalog(ctx context.Context) []model.Product {
	return s.catalog
}

func (s *stubService) PendingAndAcceptedOrders(ctx context.Context) []model.Order {
	return s.open
}

type recordingWebhook struct {
	calls int
	body  string
}

func (h *recordingWebhook) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.calls++
	b, _ := io.ReadAll(r.Body)
	h.body = string(b)
	w.WriteHeader(http.StatusOK)
}

func newTestHandler(t *testing.T, svc Service, webhook http.Handler) *Handler {
	t.Helper()

	logger, err := zap.NewDevelopment()
	if err != nil {
		t.Fatalf("new logger: %v", err)
	}

	m := metrics.New()
	m.OrderCreated()

	return NewHandler(svc, logger, m, webhook, middleware.NewWebhookAuth("test-secret", logger))
}

func TestHealth_JSONResponse(t *testing.T) {
	svc := &stubService{
		catalog: []model.Product{{ID: "p1", Name: "Trufa", Price: 500}},
		open:    []model.Order{{OrderID: "o1"}, {OrderID: "o2"}},
	}
	h := newTestHandler(t, svc, nil)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()

	h.SetupRouter().ServeHTTP(rec, req)

	res := rec.Result()
	defer res.Body.Close()
	if res.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want %d", res.StatusCode, http.StatusOK)
	}
	if ct := res.Header.Get("Content-Type"); ct != "application/json" {
		t.Fatalf("content-type = %q, want application/json", ct)
	}

	var body healthResponse
	if err := json.NewDecoder(res.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.Status != "ok" || body.Products != 1 || body.OpenOrders != 2 {
		t.Fatalf("unexpected health body: %+v", body)
	}
}

func TestMetricsEndpoint(t *testing.T) {
	h := newTestHandler(t, &stubService{}, nil)

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rec := httptest.NewRecorder()

	h.SetupRouter().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusOK)
	}
	if !strings.Contains(rec.Body.String(), "dolezza_orders_created_total 1") {
		t.Fatalf("metrics output misses order counter:\n%s", rec.Body.String())
	}
}

func TestWebhook_ForwardsWithValidSecret(t *testing.T) {
	webhook := &recordingWebhook{}
	h := newTestHandler(t, &stubService{}, webhook)

	req := httptest.NewRequest(http.MethodPost, "/webhook/test-secret", bytes.NewBufferString(`{"update_id":1}`))
	rec := httptest.NewRecorder()

	h.SetupRouter().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusOK)
	}
	if webhook.calls != 1 || webhook.body != `{"update_id":1}` {
		t.Fatalf("webhook not forwarded: calls=%d body=%q", webhook.calls, webhook.body)
	}
}

func TestWebhook_RejectsWrongSecret(t *testing.T) {
	webhook := &recordingWebhook{}
	h := newTestHandler(t, &stubService{}, webhook)

	req := httptest.NewRequest(http.MethodPost, "/webhook/guess", bytes.NewBufferString(`{}`))
	rec := httptest.NewRecorder()

	h.SetupRouter().ServeHTTP(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusNotFound)
	}
	if webhook.calls != 0 {
		t.Fatalf("webhook must not be called")
	}
}

func TestWebhook_AbsentInPollingMode(t *testing.T) {
	h := newTestHandler(t, &stubService{}, nil)

	req := httptest.NewRequest(http.MethodPost, "/webhook/test-secret", bytes.NewBufferString(`{}`))
	rec := httptest.NewRecorder()

	h.SetupRouter().ServeHTTP(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusNotFound)
	}
}
