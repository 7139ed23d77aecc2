// Package middleware содержит HTTP middleware бота Dolezza.
package middleware

import (
	"crypto/hmac"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// SecretParam содержит имя параметра маршрута с секретом вебхука.
const SecretParam = "secret"

// WebhookAuth пропускает к вебхуку только запросы, знающие секрет пути.
type WebhookAuth struct {
	secret []byte
	logger *zap.Logger
}

// NewWebhookAuth создаёт новый экземпляр WebhookAuth с указанным секретом.
func NewWebhookAuth(secret string, logger *zap.Logger) *WebhookAuth {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &WebhookAuth{
		secret: []byte(secret),
		logger: logger,
	}
}

// Middleware сравнивает секрет из пути запроса с ожидаемым.
// Маршрут должен содержать параметр {secret}.
func (a *WebhookAuth) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !a.Valid(chi.URLParam(r, SecretParam)) {
			a.logger.Warn("webhook call rejected", zap.String("remote", r.RemoteAddr))
			http.Error(w, http.StatusText(http.StatusNotFound), http.StatusNotFound)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// Valid сообщает, совпадает ли переданный секрет с ожидаемым.
func (a *WebhookAuth) Valid(secret string) bool {
	if len(a.secret) == 0 {
		return false
	}
	return hmac.Equal([]byte(secret), a.secret)
}
