// Package main запускает бота доставки Dolezza.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/mmeshcher/dolezza-bot/internal/bot"
	"github.com/mmeshcher/dolezza-bot/internal/chat"
	"github.com/mmeshcher/dolezza-bot/internal/config"
	"github.com/mmeshcher/dolezza-bot/internal/handler"
	"github.com/mmeshcher/dolezza-bot/internal/metrics"
	"github.com/mmeshcher/dolezza-bot/internal/middleware"
	"github.com/mmeshcher/dolezza-bot/internal/notify"
	"github.com/mmeshcher/dolezza-bot/internal/repository"
	"github.com/mmeshcher/dolezza-bot/internal/service"
	"github.com/mmeshcher/dolezza-bot/internal/session"
	"github.com/mmeshcher/dolezza-bot/internal/telegram"
)

func main() {
	logger, _ := zap.NewProduction()
	defer logger.Sync()

	sugar := logger.Sugar()

	cfg, err := config.Parse()
	if err != nil {
		sugar.Fatalw("configuration error", "error", err.Error())
	}

	backend, err := newBackend(context.Background(), cfg, logger)
	if err != nil {
		sugar.Fatalw("storage initialization error", "error", err.Error())
	}
	store := repository.NewStore(backend, logger)

	m := metrics.New()

	tg, err := telegram.New(cfg.Token, logger)
	if err != nil {
		sugar.Fatalw("telegram initialization error", "error", err.Error())
	}

	notifier := notify.NewNotifier(tg, logger, m, cfg.SendTimeout)
	svc := service.NewService(store, notifier, cfg.AdminIDs, logger, m)
	defer svc.Close()

	b := bot.NewBot(svc, tg, session.NewTracker(), logger, m)

	events := make(chan chat.Event, cfg.Workers*4)

	var webhook http.Handler
	if cfg.UseWebhook() {
		webhook = tg.WebhookHandler(events)
	}
	auth := middleware.NewWebhookAuth(cfg.WebhookSecret, logger)
	h := handler.NewHandler(svc, logger, m, webhook, auth)

	server := &http.Server{
		Addr:              cfg.Addr(),
		Handler:           h.SetupRouter(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, ctx := errgroup.WithContext(ctx)

	// Обработка входящих событий
	g.Go(func() error {
		return b.Serve(ctx, events, cfg.Workers)
	})

	// Получение обновлений
	if cfg.UseWebhook() {
		if err := tg.SetWebhook(ctx, cfg.WebhookEndpoint()); err != nil {
			sugar.Fatalw("webhook registration error", "error", err.Error())
		}
	} else {
		g.Go(func() error {
			return tg.Poll(ctx, events)
		})
	}

	// Запуск HTTP-сервера
	g.Go(func() error {
		sugar.Infow("starting dolezza bot",
			"addr", cfg.Addr(),
			"webhook", cfg.UseWebhook(),
			"admins", len(cfg.AdminIDs),
			"workers", cfg.Workers,
		)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	})

	// Graceful shutdown при отмене контекста (сигнал или ошибка в другой горутине)
	g.Go(func() error {
		<-ctx.Done()
		sugar.Info("shutting down bot...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("server shutdown error: %w", err)
		}
		sugar.Info("bot stopped gracefully")
		return nil
	})

	if err := g.Wait(); err != nil {
		sugar.Fatalw("application terminated with error", "error", err)
	}
}

func newBackend(ctx context.Context, cfg *config.Config, logger *zap.Logger) (repository.Backend, error) {
	if cfg.DatabaseURI != "" {
		logger.Info("using postgres document backend")
		return repository.NewPostgresBackend(ctx, cfg.DatabaseURI, logger)
	}
	logger.Info("using file document backend", zap.String("path", cfg.DataFile))
	return repository.NewFileBackend(cfg.DataFile, logger), nil
}
