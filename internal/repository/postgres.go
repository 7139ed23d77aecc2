package repository

import (
	"context"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"net"
	"time"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
	"go.uber.org/zap"

	"github.com/mmeshcher/dolezza-bot/internal/model"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

const (
	// documentID задаёт единственную строку таблицы, как и файл данных.
	documentID     = 1
	connectTimeout = 10 * time.Second
	maxConns       = 4
)

// PostgresBackend хранит документ в одной строке PostgreSQL в формате JSONB.
type PostgresBackend struct {
	pool   *pgxpool.Pool
	logger *zap.Logger
}

// NewPostgresBackend подключается к БД и доводит схему до последней миграции.
func NewPostgresBackend(ctx context.Context, dsn string, logger *zap.Logger) (*PostgresBackend, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse pool config: %w", err)
	}
	cfg.MaxConns = maxConns

	ctx, cancel := context.WithTimeout(ctx, connectTimeout)
	defer cancel()

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("create pool: %w", err)
	}

	b := &PostgresBackend{pool: pool, logger: logger}
	if err := b.withRetry(ctx, func() error { return pool.Ping(ctx) }); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := b.migrate(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return b, nil
}

// migrate применяет встроенные миграции документа.
func (b *PostgresBackend) migrate(ctx context.Context) error {
	db := stdlib.OpenDBFromPool(b.pool)
	defer db.Close()

	fsys, err := fs.Sub(migrationsFS, "migrations")
	if err != nil {
		return fmt.Errorf("open migrations: %w", err)
	}

	provider, err := goose.NewProvider(goose.DialectPostgres, db, fsys)
	if err != nil {
		return fmt.Errorf("create migration provider: %w", err)
	}

	results, err := provider.Up(ctx)
	if err != nil {
		return fmt.Errorf("run migrations: %w", err)
	}
	for _, r := range results {
		b.logger.Info("migration applied",
			zap.Int64("version", r.Source.Version),
			zap.Duration("duration", r.Duration),
		)
	}
	return nil
}

// retryDelays задаёт паузы между повторами запроса к документу.
var retryDelays = []time.Duration{200 * time.Millisecond, time.Second, 3 * time.Second}

// withRetry повторяет fn при обрыве соединения и конфликтах сериализации.
func (b *PostgresBackend) withRetry(ctx context.Context, fn func() error) error {
	var err error
	for attempt := 0; ; attempt++ {
		err = fn()
		if err == nil || !retryable(err) || attempt == len(retryDelays) {
			return err
		}

		if b.logger != nil {
			b.logger.Warn("document query failed, retrying",
				zap.Int("attempt", attempt+1),
				zap.Error(err),
			)
		}

		timer := time.NewTimer(retryDelays[attempt])
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
}

func retryable(err error) bool {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == pgerrcode.SerializationFailure || pgErr.Code == pgerrcode.DeadlockDetected
	}
	return isConnectionError(err)
}

// isConnectionError сообщает, что запрос не дошёл до сервера или соединение оборвалось.
func isConnectionError(err error) bool {
	if pgconn.SafeToRetry(err) || pgconn.Timeout(err) {
		return true
	}

	var connErr *pgconn.ConnectError
	if errors.As(err, &connErr) {
		return true
	}

	var netErr net.Error
	return errors.As(err, &netErr)
}

// Close закрывает пул соединений с БД.
func (b *PostgresBackend) Close() error {
	b.pool.Close()
	return nil
}

// Load читает документ. Отсутствующая строка или нечитаемый JSON дают ErrDocumentMissing,
// ошибки соединения и запроса дают ErrStorageUnavailable.
func (b *PostgresBackend) Load(ctx context.Context) (*model.Document, error) {
	var body []byte
	err := b.withRetry(ctx, func() error {
		return b.pool.QueryRow(ctx,
			`SELECT body FROM documents WHERE id = $1`,
			documentID,
		).Scan(&body)
	})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%w: document row is absent: %w", ErrDocumentMissing, err)
		}
		return nil, fmt.Errorf("%w: select document: %w", ErrStorageUnavailable, err)
	}

	doc := model.NewDocument()
	if err := json.Unmarshal(body, doc); err != nil {
		return nil, fmt.Errorf("%w: decode document: %w", ErrDocumentMissing, err)
	}
	return doc, nil
}

// Save заменяет документ целиком одной командой.
func (b *PostgresBackend) Save(ctx context.Context, doc *model.Document) error {
	body, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("encode document: %w", err)
	}

	err = b.withRetry(ctx, func() error {
		_, err := b.pool.Exec(ctx,
			`INSERT INTO documents (id, body, updated_at) VALUES ($1, $2, now())
			 ON CONFLICT (id) DO UPDATE SET body = EXCLUDED.body, updated_at = now()`,
			documentID, body,
		)
		return err
	})
	if err != nil {
		return fmt.Errorf("upsert document: %w", err)
	}
	return nil
}
