// Package venue defines the execution-venue capability abstraction the
// router works with. A venue wraps one order book plus operational
// metadata; the router owns every registered venue and holds them
// behind this interface, so no behavior depends on the concrete type
// after construction.
package venue

import (
	"sync"
	"time"

	"github.com/efreitasn/tradecore/internal/engine"
)

// Metrics captures a venue's operational quality.
type Metrics struct {
	AvgLatency time.Duration
	FillRate   float64 // fraction of orders that get filled
	Uptime     float64 // fraction uptime over the last 24h
}

// DefaultMetrics returns the baseline metrics assumed for a venue that
// hasn't reported any.
func DefaultMetrics() Metrics {
	return Metrics{
		AvgLatency: 10 * time.Millisecond,
		FillRate:   0.95,
		Uptime:     0.999,
	}
}

// Venue is an independently operated execution destination with its own
// order book.
type Venue interface {
	ID() string
	Name() string
	Book() *engine.OrderBook
	Available() bool
	Metrics() Metrics
}

// Simulated is a venue whose book is driven directly by the caller.
// Used for backtesting and for exercising the router without network
// collaborators.
type Simulated struct {
	id   string
	name string
	book *engine.OrderBook

	mu        sync.RWMutex
	available bool
	metrics   Metrics
}

// NewSimulated creates an available simulated venue with default
// metrics.
func NewSimulated(id, name, symbol string) *Simulated {
	return &Simulated{
		id:        id,
		name:      name,
		book:      engine.NewOrderBook(symbol),
		available: true,
		metrics:   DefaultMetrics(),
	}
}

func (v *Simulated) ID() string              { return v.id }
func (v *Simulated) Name() string            { return v.name }
func (v *Simulated) Book() *engine.OrderBook { return v.book }

func (v *Simulated) Available() bool {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.available
}

func (v *Simulated) Metrics() Metrics {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.metrics
}

// SetAvailable toggles the venue's availability, modeling an outage.
func (v *Simulated) SetAvailable(available bool) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.available = available
}

// SetMetrics replaces the venue's reported metrics.
func (v *Simulated) SetMetrics(m Metrics) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.metrics = m
}

// Live is a venue whose book mirrors an external feed. It reports
// itself unavailable when the feed has gone stale.
type Live struct {
	id         string
	name       string
	book       *engine.OrderBook
	staleAfter time.Duration

	mu         sync.RWMutex
	lastUpdate time.Time
	metrics    Metrics
}

// NewLive creates a feed-backed venue. The venue is unavailable until
// the first update arrives, and again whenever no update has arrived
// within staleAfter.
func NewLive(id, name, symbol string, staleAfter time.Duration) *Live {
	return &Live{
		id:         id,
		name:       name,
		book:       engine.NewOrderBook(symbol),
		staleAfter: staleAfter,
		metrics:    DefaultMetrics(),
	}
}

func (v *Live) ID() string              { return v.id }
func (v *Live) Name() string            { return v.name }
func (v *Live) Book() *engine.OrderBook { return v.book }

func (v *Live) Available() bool {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return !v.lastUpdate.IsZero() && time.Since(v.lastUpdate) < v.staleAfter
}

func (v *Live) Metrics() Metrics {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.metrics
}

// Touch records that a feed update was applied.
func (v *Live) Touch() {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.lastUpdate = time.Now()
}

// ObserveLatency folds one feed round-trip observation into the venue's
// average latency estimate.
func (v *Live) ObserveLatency(d time.Duration) {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.metrics.AvgLatency == 0 {
		v.metrics.AvgLatency = d
		return
	}
	v.metrics.AvgLatency = (v.metrics.AvgLatency*9 + d) / 10
}

// Mock is a fixed-behavior venue for tests.
type Mock struct {
	VenueID        string
	VenueName      string
	OrderBook      *engine.OrderBook
	AvailableState bool
	MetricsState   Metrics
}

// NewMock creates an available mock venue with default metrics.
func NewMock(id, symbol string) *Mock {
	return &Mock{
		VenueID:        id,
		VenueName:      id,
		OrderBook:      engine.NewOrderBook(symbol),
		AvailableState: true,
		MetricsState:   DefaultMetrics(),
	}
}

func (v *Mock) ID() string              { return v.VenueID }
func (v *Mock) Name() string            { return v.VenueName }
func (v *Mock) Book() *engine.OrderBook { return v.OrderBook }
func (v *Mock) Available() bool         { return v.AvailableState }
func (v *Mock) Metrics() Metrics        { return v.MetricsState }
