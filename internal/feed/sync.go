// Package feed adapts external market-data streams onto an order book.
// Venues expose order-level books, but feeds deliver per-level
// (side, price, quantity) refreshes; each refresh is modeled as a
// single synthetic order per price level. Individual counterparties at
// the venue are not visible, so true order-level depth cannot be
// reconstructed.
package feed

import (
	"math"
	"sync"

	"github.com/efreitasn/tradecore/internal/domain"
	"github.com/efreitasn/tradecore/internal/engine"
)

// quantityScale converts fractional feed quantities into the book's
// integer units (hundredths of the base asset).
const quantityScale = 100

// levelKey gives the map key for a price level. Only internal
// consistency matters here; the resolution mirrors the book's.
func levelKey(price float64) int64 {
	return int64(math.Round(price * 10_000))
}

// LevelSync applies per-level refreshes to a book by cancelling the
// previously synthesized order at that price and resting a new one.
// It assumes it is the book's only writer.
type LevelSync struct {
	book *engine.OrderBook

	mu     sync.Mutex
	nextID uint64
	bids   map[int64]uint64 // price key → synthetic order id
	asks   map[int64]uint64
}

// NewLevelSync creates a LevelSync over book.
func NewLevelSync(book *engine.OrderBook) *LevelSync {
	return &LevelSync{
		book:   book,
		nextID: 1,
		bids:   make(map[int64]uint64),
		asks:   make(map[int64]uint64),
	}
}

// Apply replaces the synthetic order at (side, price) with one of the
// given quantity. A zero quantity removes the level. A refresh that
// crosses resting synthetic orders on the other side consumes them,
// mirroring the crossed state the feed itself reported; the resulting
// trades are returned for observability.
func (s *LevelSync) Apply(side domain.Side, price float64, quantity int64) ([]domain.Trade, error) {
	if price <= 0 {
		return nil, domain.ErrInvalidPrice
	}
	if quantity < 0 {
		return nil, domain.ErrInvalidQuantity
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	levels := s.bids
	if side == domain.SideSell {
		levels = s.asks
	}

	key := levelKey(price)
	if id, ok := levels[key]; ok {
		// A miss is fine: the previous synthetic order may have been
		// consumed by a crossing refresh.
		s.book.CancelOrder(id)
		delete(levels, key)
	}

	if quantity == 0 {
		return nil, nil
	}

	id := s.nextID
	s.nextID++
	trades, err := s.book.AddOrder(id, price, quantity, side)
	if err != nil {
		return nil, err
	}
	if remaining := quantityRested(quantity, trades); remaining > 0 {
		levels[key] = id
	}
	return trades, nil
}

// quantityRested returns how much of an incoming quantity was left to
// rest after the given trades.
func quantityRested(quantity int64, trades []domain.Trade) int64 {
	for _, t := range trades {
		quantity -= t.Quantity
	}
	return quantity
}
