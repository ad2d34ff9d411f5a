package venue

import (
	"testing"
	"time"
)

func TestSimulated_Availability(t *testing.T) {
	v := NewSimulated("binance", "Binance", "BTC-USD")
	if !v.Available() {
		t.Error("simulated venue should start available")
	}
	v.SetAvailable(false)
	if v.Available() {
		t.Error("venue should be unavailable after SetAvailable(false)")
	}
}

func TestSimulated_Metrics(t *testing.T) {
	v := NewSimulated("kraken", "Kraken", "BTC-USD")
	m := Metrics{AvgLatency: 25 * time.Millisecond, FillRate: 0.9, Uptime: 0.99}
	v.SetMetrics(m)
	if got := v.Metrics(); got != m {
		t.Errorf("Metrics() = %+v, want %+v", got, m)
	}
}

func TestLive_StartsUnavailable(t *testing.T) {
	v := NewLive("coinbase", "Coinbase", "BTC-USD", time.Minute)
	if v.Available() {
		t.Error("live venue should be unavailable before any feed update")
	}
	v.Touch()
	if !v.Available() {
		t.Error("live venue should be available right after a feed update")
	}
}

func TestLive_GoesStale(t *testing.T) {
	v := NewLive("coinbase", "Coinbase", "BTC-USD", time.Nanosecond)
	v.Touch()
	time.Sleep(time.Millisecond)
	if v.Available() {
		t.Error("live venue should be unavailable once the feed is stale")
	}
}

func TestLive_ObserveLatency(t *testing.T) {
	v := NewLive("coinbase", "Coinbase", "BTC-USD", time.Minute)
	base := v.Metrics().AvgLatency
	v.ObserveLatency(base * 100)
	if got := v.Metrics().AvgLatency; got <= base {
		t.Errorf("AvgLatency = %v, expected it to rise above %v", got, base)
	}
}

func TestDefaultMetrics(t *testing.T) {
	m := DefaultMetrics()
	if m.AvgLatency != 10*time.Millisecond || m.FillRate != 0.95 || m.Uptime != 0.999 {
		t.Errorf("DefaultMetrics() = %+v", m)
	}
}
