package config

import (
	"testing"
	"time"
)

func TestParseClock(t *testing.T) {
	tests := []struct {
		in     string
		hour   int
		minute int
		ok     bool
	}{
		{"09:00", 9, 0, true},
		{"23:59", 23, 59, true},
		{"0:5", 0, 5, true},
		{"24:00", 0, 0, false},
		{"12:60", 0, 0, false},
		{"noon", 0, 0, false},
		{"", 0, 0, false},
	}

	for _, tt := range tests {
		hour, minute, err := ParseClock(tt.in)
		if tt.ok != (err == nil) {
			t.Errorf("ParseClock(%q) error = %v, want ok=%v", tt.in, err, tt.ok)
			continue
		}
		if tt.ok && (hour != tt.hour || minute != tt.minute) {
			t.Errorf("ParseClock(%q) = %d:%d, want %d:%d", tt.in, hour, minute, tt.hour, tt.minute)
		}
	}
}

func TestLoadDefaults(t *testing.T) {
	for _, key := range []string{"PORT", "CHECK_INTERVAL_MINUTES", "CHECK_BATCH_SIZE", "DIGEST_TIME"} {
		t.Setenv(key, "")
	}

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}

	if cfg.Port != "8080" {
		t.Errorf("Port = %q, want 8080", cfg.Port)
	}
	if cfg.CheckInterval != time.Hour {
		t.Errorf("CheckInterval = %v, want 1h", cfg.CheckInterval)
	}
	if cfg.CheckBatchSize != 50 {
		t.Errorf("CheckBatchSize = %d, want 50", cfg.CheckBatchSize)
	}
	if cfg.DigestTime != "09:00" {
		t.Errorf("DigestTime = %q, want 09:00", cfg.DigestTime)
	}
}

func TestLoadOverridesAndErrors(t *testing.T) {
	t.Setenv("CHECK_INTERVAL_MINUTES", "30")
	t.Setenv("CHECK_BATCH_SIZE", "5")
	t.Setenv("DOMAIN_RATE_PER_SEC", "2")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}
	if cfg.CheckInterval != 30*time.Minute {
		t.Errorf("CheckInterval = %v, want 30m", cfg.CheckInterval)
	}
	if cfg.CheckBatchSize != 5 {
		t.Errorf("CheckBatchSize = %d, want 5", cfg.CheckBatchSize)
	}
	if cfg.DomainRate != 2 {
		t.Errorf("DomainRate = %v, want 2", cfg.DomainRate)
	}

	t.Setenv("CHECK_INTERVAL_MINUTES", "soon")
	if _, err := Load(); err == nil {
		t.Error("expected error for malformed CHECK_INTERVAL_MINUTES")
	}
}

func TestNotifierConfigured(t *testing.T) {
	if (Email{}).Configured() {
		t.Error("empty email config should not count as configured")
	}
	email := Email{SMTPHost: "smtp.example.com", From: "a@example.com", To: "b@example.com"}
	if !email.Configured() {
		t.Error("host+from+to should count as configured")
	}

	if (Telegram{}).Configured() {
		t.Error("empty telegram config should not count as configured")
	}
	if !(Telegram{BotToken: "token", ChatID: 1}).Configured() {
		t.Error("token+chat should count as configured")
	}
}
