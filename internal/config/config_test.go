package config

import (
	"os"
	"testing"
	"time"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"PORT", "LOG_LEVEL", "SYMBOL", "CONSIDER_FEES", "CONSIDER_LATENCY",
		"SIMULATED_VENUES", "FEED_URL", "FEED_VENUE_ID", "FEED_STALE_AFTER",
		"MAKER_ENABLED", "MAKER_BASE_INVENTORY", "MAKER_QUOTE_INVENTORY",
		"READ_TIMEOUT", "WRITE_TIMEOUT", "IDLE_TIMEOUT", "SHUTDOWN_TIMEOUT",
	} {
		t.Setenv(key, "")
		os.Unsetenv(key)
	}
}

func TestLoad_Defaults(t *testing.T) {
	clearEnv(t)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.Port != 8080 {
		t.Errorf("Port = %d, want 8080", cfg.Port)
	}
	if cfg.LogLevel != "info" {
		t.Errorf("LogLevel = %q, want %q", cfg.LogLevel, "info")
	}
	if cfg.Symbol != "BTC-USD" {
		t.Errorf("Symbol = %q, want %q", cfg.Symbol, "BTC-USD")
	}
	if !cfg.ConsiderFees || !cfg.ConsiderLatency {
		t.Error("fee and latency awareness should default to enabled")
	}
	if len(cfg.SimulatedVenues) != 2 || cfg.SimulatedVenues[0] != "sim-a" || cfg.SimulatedVenues[1] != "sim-b" {
		t.Errorf("SimulatedVenues = %v, want [sim-a sim-b]", cfg.SimulatedVenues)
	}
	if cfg.FeedURL != "" {
		t.Errorf("FeedURL = %q, want empty (feed disabled)", cfg.FeedURL)
	}
	if cfg.FeedVenueID != "live" {
		t.Errorf("FeedVenueID = %q, want %q", cfg.FeedVenueID, "live")
	}
	if cfg.FeedStaleAfter != 30*time.Second {
		t.Errorf("FeedStaleAfter = %v, want 30s", cfg.FeedStaleAfter)
	}
	if !cfg.MakerEnabled {
		t.Error("MakerEnabled should default to true")
	}
	if cfg.MakerBaseInventory != 5 {
		t.Errorf("MakerBaseInventory = %v, want 5", cfg.MakerBaseInventory)
	}
	if cfg.MakerQuoteInventory != 100_000 {
		t.Errorf("MakerQuoteInventory = %v, want 100000", cfg.MakerQuoteInventory)
	}
	if cfg.ReadTimeout != 5*time.Second {
		t.Errorf("ReadTimeout = %v, want 5s", cfg.ReadTimeout)
	}
	if cfg.WriteTimeout != 10*time.Second {
		t.Errorf("WriteTimeout = %v, want 10s", cfg.WriteTimeout)
	}
	if cfg.IdleTimeout != 60*time.Second {
		t.Errorf("IdleTimeout = %v, want 60s", cfg.IdleTimeout)
	}
	if cfg.ShutdownTimeout != 10*time.Second {
		t.Errorf("ShutdownTimeout = %v, want 10s", cfg.ShutdownTimeout)
	}
}

func TestLoad_CustomValues(t *testing.T) {
	clearEnv(t)
	t.Setenv("PORT", "9090")
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("SYMBOL", "ETH-USD")
	t.Setenv("CONSIDER_FEES", "false")
	t.Setenv("SIMULATED_VENUES", "x, y ,z")
	t.Setenv("FEED_URL", "wss://stream.example.com/ws/btcusdt@depth")
	t.Setenv("FEED_STALE_AFTER", "5s")
	t.Setenv("MAKER_ENABLED", "false")
	t.Setenv("MAKER_BASE_INVENTORY", "2.5")
	t.Setenv("READ_TIMEOUT", "2s")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.Port != 9090 {
		t.Errorf("Port = %d, want 9090", cfg.Port)
	}
	if cfg.LogLevel != "debug" {
		t.Errorf("LogLevel = %q, want %q", cfg.LogLevel, "debug")
	}
	if cfg.Symbol != "ETH-USD" {
		t.Errorf("Symbol = %q, want %q", cfg.Symbol, "ETH-USD")
	}
	if cfg.ConsiderFees {
		t.Error("ConsiderFees should be disabled")
	}
	if len(cfg.SimulatedVenues) != 3 || cfg.SimulatedVenues[1] != "y" {
		t.Errorf("SimulatedVenues = %v, want [x y z]", cfg.SimulatedVenues)
	}
	if cfg.FeedURL != "wss://stream.example.com/ws/btcusdt@depth" {
		t.Errorf("FeedURL = %q", cfg.FeedURL)
	}
	if cfg.FeedStaleAfter != 5*time.Second {
		t.Errorf("FeedStaleAfter = %v, want 5s", cfg.FeedStaleAfter)
	}
	if cfg.MakerEnabled {
		t.Error("MakerEnabled should be disabled")
	}
	if cfg.MakerBaseInventory != 2.5 {
		t.Errorf("MakerBaseInventory = %v, want 2.5", cfg.MakerBaseInventory)
	}
	if cfg.ReadTimeout != 2*time.Second {
		t.Errorf("ReadTimeout = %v, want 2s", cfg.ReadTimeout)
	}
}

func TestLoad_InvalidPort(t *testing.T) {
	clearEnv(t)
	t.Setenv("PORT", "not-a-number")

	_, err := Load()
	if err == nil {
		t.Fatal("expected error for invalid PORT")
	}
}

func TestLoad_InvalidLogLevel(t *testing.T) {
	clearEnv(t)
	t.Setenv("LOG_LEVEL", "verbose")

	_, err := Load()
	if err == nil {
		t.Fatal("expected error for invalid LOG_LEVEL")
	}
}

func TestLoad_InvalidBool(t *testing.T) {
	for _, key := range []string{"CONSIDER_FEES", "CONSIDER_LATENCY", "MAKER_ENABLED"} {
		t.Run(key, func(t *testing.T) {
			clearEnv(t)
			t.Setenv(key, "maybe")

			_, err := Load()
			if err == nil {
				t.Fatalf("expected error for invalid %s", key)
			}
		})
	}
}

func TestLoad_InvalidFloat(t *testing.T) {
	for _, key := range []string{"MAKER_BASE_INVENTORY", "MAKER_QUOTE_INVENTORY"} {
		t.Run(key, func(t *testing.T) {
			clearEnv(t)
			t.Setenv(key, "lots")

			_, err := Load()
			if err == nil {
				t.Fatalf("expected error for invalid %s", key)
			}
		})
	}
}

func TestLoad_InvalidDuration(t *testing.T) {
	keys := []string{
		"FEED_STALE_AFTER", "READ_TIMEOUT", "WRITE_TIMEOUT",
		"IDLE_TIMEOUT", "SHUTDOWN_TIMEOUT",
	}

	for _, key := range keys {
		t.Run(key, func(t *testing.T) {
			clearEnv(t)
			t.Setenv(key, "not-a-duration")

			_, err := Load()
			if err == nil {
				t.Fatalf("expected error for invalid %s", key)
			}
		})
	}
}
