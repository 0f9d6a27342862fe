package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Email holds SMTP delivery settings. Passed explicitly to the notifier so
// tests can substitute a fake channel instead of reading process state.
type Email struct {
	SMTPHost string
	SMTPPort int
	SMTPUser string
	SMTPPass string
	From     string
	To       string
}

// Configured reports whether enough is set to attempt delivery.
func (e Email) Configured() bool {
	return e.SMTPHost != "" && e.From != "" && e.To != ""
}

// Telegram holds bot delivery settings.
type Telegram struct {
	BotToken string
	ChatID   int64
}

// Configured reports whether enough is set to attempt delivery.
func (t Telegram) Configured() bool {
	return t.BotToken != "" && t.ChatID != 0
}

// Config contains all runtime settings, loaded from the environment.
type Config struct {
	Port   string
	DBPath string

	// Check cycle tuning.
	CheckInterval    time.Duration // full scheduled cycle cadence
	CheckBatchSize   int           // max items checked per tick
	CheckConcurrency int           // concurrent checks across items
	FetchTimeout     time.Duration // per-page HTTP timeout
	DomainRate       float64       // fetches per second per source domain
	BackoffBase      time.Duration // first retry delay after a fetch error

	// Daily digest delivery time, local clock, "HH:MM".
	DigestTime string

	CORSOrigins []string

	Email    Email
	Telegram Telegram
}

// Load reads configuration from the environment, after loading a local .env
// file when present. Missing values fall back to defaults; only malformed
// values are errors.
func Load() (*Config, error) {
	// Missing .env is fine; real deployments set the environment directly.
	_ = godotenv.Load()

	cfg := &Config{
		Port:             getEnv("PORT", "8080"),
		DBPath:           getEnv("DB_PATH", "./purser.db"),
		CheckInterval:    time.Hour,
		CheckBatchSize:   50,
		CheckConcurrency: 4,
		FetchTimeout:     20 * time.Second,
		DomainRate:       0.5,
		BackoffBase:      time.Hour,
		DigestTime:       getEnv("DIGEST_TIME", "09:00"),
	}

	if v := os.Getenv("CHECK_INTERVAL_MINUTES"); v != "" {
		mins, err := strconv.Atoi(v)
		if err != nil || mins <= 0 {
			return nil, fmt.Errorf("CHECK_INTERVAL_MINUTES: expected positive integer, got %q", v)
		}
		cfg.CheckInterval = time.Duration(mins) * time.Minute
	}
	if v := os.Getenv("CHECK_BATCH_SIZE"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			return nil, fmt.Errorf("CHECK_BATCH_SIZE: expected positive integer, got %q", v)
		}
		cfg.CheckBatchSize = n
	}
	if v := os.Getenv("CHECK_CONCURRENCY"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			return nil, fmt.Errorf("CHECK_CONCURRENCY: expected positive integer, got %q", v)
		}
		cfg.CheckConcurrency = n
	}
	if v := os.Getenv("DOMAIN_RATE_PER_SEC"); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil || f <= 0 {
			return nil, fmt.Errorf("DOMAIN_RATE_PER_SEC: expected positive number, got %q", v)
		}
		cfg.DomainRate = f
	}

	if _, _, err := ParseClock(cfg.DigestTime); err != nil {
		return nil, fmt.Errorf("DIGEST_TIME: %w", err)
	}

	if origins := os.Getenv("CORS_ALLOWED_ORIGINS"); origins != "" {
		cfg.CORSOrigins = strings.Split(origins, ",")
	}

	cfg.Email = Email{
		SMTPHost: os.Getenv("SMTP_HOST"),
		SMTPPort: 587,
		SMTPUser: os.Getenv("SMTP_USER"),
		SMTPPass: os.Getenv("SMTP_PASS"),
		From:     os.Getenv("EMAIL_FROM"),
		To:       os.Getenv("EMAIL_TO"),
	}
	if v := os.Getenv("SMTP_PORT"); v != "" {
		p, err := strconv.Atoi(v)
		if err != nil {
			return nil, fmt.Errorf("SMTP_PORT: expected integer, got %q", v)
		}
		cfg.Email.SMTPPort = p
	}

	cfg.Telegram.BotToken = os.Getenv("TELEGRAM_BOT_TOKEN")
	if v := os.Getenv("TELEGRAM_CHAT_ID"); v != "" {
		id, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("TELEGRAM_CHAT_ID: expected integer, got %q", v)
		}
		cfg.Telegram.ChatID = id
	}

	return cfg, nil
}

// ParseClock splits an "HH:MM" string into hour and minute.
func ParseClock(s string) (hour, minute int, err error) {
	parts := strings.SplitN(s, ":", 2)
	if len(parts) != 2 {
		return 0, 0, fmt.Errorf("expected HH:MM, got %q", s)
	}
	hour, err = strconv.Atoi(parts[0])
	if err != nil || hour < 0 || hour > 23 {
		return 0, 0, fmt.Errorf("bad hour in %q", s)
	}
	minute, err = strconv.Atoi(parts[1])
	if err != nil || minute < 0 || minute > 59 {
		return 0, 0, fmt.Errorf("bad minute in %q", s)
	}
	return hour, minute, nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
