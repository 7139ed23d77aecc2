// Package config содержит логику чтения конфигурации бота Dolezza.
package config

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"flag"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
)

const (
	defaultDataFile    = "database.json"
	defaultPort        = 8080
	defaultWorkers     = 8
	defaultSendTimeout = 10 * time.Second
)

var (
	// ErrNoToken возвращается, если не задан токен бота.
	ErrNoToken = errors.New("bot token is required")
	// ErrNoAdmins возвращается, если не задан ни один администратор.
	ErrNoAdmins = errors.New("at least one admin id is required")
)

// Config содержит параметры конфигурации бота.
type Config struct {
	Token         string        `env:"TOKEN"`
	AdminIDs      []int64       `env:"ADMIN_IDS" envSeparator:","`
	AdminID       int64         `env:"ADMIN_ID"`
	DataFile      string        `env:"DATA_FILE"`
	DatabaseURI   string        `env:"DATABASE_URI"`
	WebhookURL    string        `env:"WEBHOOK_URL"`
	Port          int           `env:"PORT"`
	WebhookSecret string        `env:"WEBHOOK_SECRET"`
	Workers       int           `env:"WORKERS"`
	SendTimeout   time.Duration `env:"SEND_TIMEOUT"`
}

// UseWebhook сообщает, что обновления приходят через вебхук, а не long polling.
func (c *Config) UseWebhook() bool {
	return c.WebhookURL != ""
}

// WebhookPath возвращает путь, на котором HTTP-сервер принимает обновления.
func (c *Config) WebhookPath() string {
	return "/webhook/" + c.WebhookSecret
}

// WebhookEndpoint возвращает полный адрес вебхука для регистрации в Telegram.
func (c *Config) WebhookEndpoint() string {
	return strings.TrimRight(c.WebhookURL, "/") + c.WebhookPath()
}

// Addr возвращает адрес HTTP-сервера.
func (c *Config) Addr() string {
	return ":" + strconv.Itoa(c.Port)
}

// Parse считывает конфигурацию из флагов командной строки и переменных окружения.
// Переменные окружения имеют приоритет над флагами.
func Parse() (*Config, error) {
	cfg := &Config{}

	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}

	envToken := cfg.Token
	envAdminIDs := cfg.AdminIDs
	envDataFile := cfg.DataFile
	envDatabaseURI := cfg.DatabaseURI
	envWebhookURL := cfg.WebhookURL
	envPort := cfg.Port
	envWebhookSecret := cfg.WebhookSecret
	envWorkers := cfg.Workers

	var flagAdmins string
	flag.StringVar(&cfg.Token, "t", "", "telegram bot token")
	flag.StringVar(&flagAdmins, "admins", "", "comma separated admin user ids")
	flag.StringVar(&cfg.DataFile, "f", defaultDataFile, "path to the JSON data file")
	flag.StringVar(&cfg.DatabaseURI, "d", "", "database URI, replaces the data file when set")
	flag.StringVar(&cfg.WebhookURL, "w", "", "public base URL for the webhook, long polling when empty")
	flag.IntVar(&cfg.Port, "p", defaultPort, "HTTP port for webhook, health and metrics")
	flag.StringVar(&cfg.WebhookSecret, "s", "", "secret path segment of the webhook endpoint")
	flag.IntVar(&cfg.Workers, "n", defaultWorkers, "number of concurrent event handlers")

	flag.Parse()

	if len(envAdminIDs) == 0 && flagAdmins != "" {
		ids, err := parseIDs(flagAdmins)
		if err != nil {
			return nil, err
		}
		cfg.AdminIDs = ids
	}

	if envToken != "" {
		cfg.Token = envToken
	}
	if envDataFile != "" {
		cfg.DataFile = envDataFile
	}
	if envDatabaseURI != "" {
		cfg.DatabaseURI = envDatabaseURI
	}
	if envWebhookURL != "" {
		cfg.WebhookURL = envWebhookURL
	}
	if envPort != 0 {
		cfg.Port = envPort
	}
	if envWebhookSecret != "" {
		cfg.WebhookSecret = envWebhookSecret
	}
	if envWorkers != 0 {
		cfg.Workers = envWorkers
	}

	if cfg.AdminID != 0 && !containsID(cfg.AdminIDs, cfg.AdminID) {
		cfg.AdminIDs = append(cfg.AdminIDs, cfg.AdminID)
	}

	if cfg.DataFile == "" {
		cfg.DataFile = defaultDataFile
	}
	if cfg.Port == 0 {
		cfg.Port = defaultPort
	}
	if cfg.Workers <= 0 {
		cfg.Workers = defaultWorkers
	}
	if cfg.SendTimeout <= 0 {
		cfg.SendTimeout = defaultSendTimeout
	}

	if cfg.Token == "" {
		return nil, ErrNoToken
	}
	if len(cfg.AdminIDs) == 0 {
		return nil, ErrNoAdmins
	}
	if cfg.WebhookSecret == "" {
		cfg.WebhookSecret = deriveSecret(cfg.Token)
	}

	return cfg, nil
}

func parseIDs(s string) ([]int64, error) {
	var ids []int64
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		id, err := strconv.ParseInt(part, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("parse admin id %q: %w", part, err)
		}
		ids = append(ids, id)
	}
	return ids, nil
}

func containsID(ids []int64, id int64) bool {
	for _, v := range ids {
		if v == id {
			return true
		}
	}
	return false
}

// deriveSecret строит секрет пути вебхука из токена, чтобы токен не попадал в URL.
func deriveSecret(token string) string {
	sum := sha256.Sum256([]byte("webhook:" + token))
	return hex.EncodeToString(sum[:16])
}
