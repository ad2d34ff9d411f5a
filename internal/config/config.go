package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all runtime configuration for the trading core.
type Config struct {
	Port     int
	LogLevel string
	Symbol   string

	// Routing.
	ConsiderFees    bool
	ConsiderLatency bool

	// Simulated venues registered at startup, as a comma-separated list
	// of ids. Empty disables them.
	SimulatedVenues []string

	// Live market-data feed. An empty URL disables the feed venue.
	FeedURL        string
	FeedVenueID    string
	FeedStaleAfter time.Duration

	// Market maker.
	MakerEnabled        bool
	MakerBaseInventory  float64
	MakerQuoteInventory float64

	// HTTP server.
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	ShutdownTimeout time.Duration
}

// Load reads configuration from environment variables, applies defaults,
// and validates values. It returns an error for any invalid value.
func Load() (*Config, error) {
	port, err := getInt("PORT", 8080)
	if err != nil {
		return nil, fmt.Errorf("invalid PORT: %w", err)
	}

	logLevel := getStr("LOG_LEVEL", "info")
	if !isValidLogLevel(logLevel) {
		return nil, fmt.Errorf("invalid LOG_LEVEL: %q, must be one of: debug, info, warn, error", logLevel)
	}

	symbol := getStr("SYMBOL", "BTC-USD")

	considerFees, err := getBool("CONSIDER_FEES", true)
	if err != nil {
		return nil, fmt.Errorf("invalid CONSIDER_FEES: %w", err)
	}
	considerLatency, err := getBool("CONSIDER_LATENCY", true)
	if err != nil {
		return nil, fmt.Errorf("invalid CONSIDER_LATENCY: %w", err)
	}

	feedStaleAfter, err := getDuration("FEED_STALE_AFTER", 30*time.Second)
	if err != nil {
		return nil, fmt.Errorf("invalid FEED_STALE_AFTER: %w", err)
	}

	makerEnabled, err := getBool("MAKER_ENABLED", true)
	if err != nil {
		return nil, fmt.Errorf("invalid MAKER_ENABLED: %w", err)
	}
	makerBase, err := getFloat("MAKER_BASE_INVENTORY", 5)
	if err != nil {
		return nil, fmt.Errorf("invalid MAKER_BASE_INVENTORY: %w", err)
	}
	makerQuote, err := getFloat("MAKER_QUOTE_INVENTORY", 100_000)
	if err != nil {
		return nil, fmt.Errorf("invalid MAKER_QUOTE_INVENTORY: %w", err)
	}

	readTimeout, err := getDuration("READ_TIMEOUT", 5*time.Second)
	if err != nil {
		return nil, fmt.Errorf("invalid READ_TIMEOUT: %w", err)
	}
	writeTimeout, err := getDuration("WRITE_TIMEOUT", 10*time.Second)
	if err != nil {
		return nil, fmt.Errorf("invalid WRITE_TIMEOUT: %w", err)
	}
	idleTimeout, err := getDuration("IDLE_TIMEOUT", 60*time.Second)
	if err != nil {
		return nil, fmt.Errorf("invalid IDLE_TIMEOUT: %w", err)
	}
	shutdownTimeout, err := getDuration("SHUTDOWN_TIMEOUT", 10*time.Second)
	if err != nil {
		return nil, fmt.Errorf("invalid SHUTDOWN_TIMEOUT: %w", err)
	}

	return &Config{
		Port:                port,
		LogLevel:            logLevel,
		Symbol:              symbol,
		ConsiderFees:        considerFees,
		ConsiderLatency:     considerLatency,
		SimulatedVenues:     getList("SIMULATED_VENUES", []string{"sim-a", "sim-b"}),
		FeedURL:             getStr("FEED_URL", ""),
		FeedVenueID:         getStr("FEED_VENUE_ID", "live"),
		FeedStaleAfter:      feedStaleAfter,
		MakerEnabled:        makerEnabled,
		MakerBaseInventory:  makerBase,
		MakerQuoteInventory: makerQuote,
		ReadTimeout:         readTimeout,
		WriteTimeout:        writeTimeout,
		IdleTimeout:         idleTimeout,
		ShutdownTimeout:     shutdownTimeout,
	}, nil
}

func getStr(key, defaultVal string) string {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	return v
}

func getInt(key string, defaultVal int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal, nil
	}
	return strconv.Atoi(v)
}

func getBool(key string, defaultVal bool) (bool, error) {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal, nil
	}
	return strconv.ParseBool(v)
}

func getFloat(key string, defaultVal float64) (float64, error) {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal, nil
	}
	return strconv.ParseFloat(v, 64)
}

func getDuration(key string, defaultVal time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal, nil
	}
	return time.ParseDuration(v)
}

func getList(key string, defaultVal []string) []string {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func isValidLogLevel(level string) bool {
	switch level {
	case "debug", "info", "warn", "error":
		return true
	}
	return false
}
