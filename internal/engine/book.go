package engine

import (
	"math"
	"sync"

	"github.com/google/btree"

	"github.com/efreitasn/tradecore/internal/domain"
)

// priceScale is the fixed-point multiplier used to derive integer level
// keys from float prices, giving four decimal places of price
// resolution. Keys make level ordering and exact lookup immune to float
// comparison noise.
const priceScale = 10_000

func priceKey(price float64) int64 {
	return int64(math.Round(price * priceScale))
}

// level is a single price level: the aggregated resting quantity plus
// the FIFO queue of orders at that price. queue[0] is the oldest order.
type level struct {
	key           int64
	price         float64
	totalQuantity int64
	queue         []*domain.Order
}

// bidLess orders the bid side by price descending, so Min() returns the
// best (highest) bid.
func bidLess(a, b *level) bool {
	return a.key > b.key
}

// askLess orders the ask side by price ascending, so Min() returns the
// best (lowest) ask.
func askLess(a, b *level) bool {
	return a.key < b.key
}

// OrderBook maintains resting orders for one instrument on one venue
// and executes continuous double-auction matching under strict
// price-time priority. B-trees hold the two level maps; a secondary
// index gives O(1) lookup by order ID for cancellation.
//
// All mutations run under one exclusive critical section per call, so a
// match in progress is never partially visible. Read-only queries take
// the shared lock.
type OrderBook struct {
	symbol string

	mu          sync.RWMutex
	bids        *btree.BTreeG[*level]
	asks        *btree.BTreeG[*level]
	index       map[uint64]*domain.Order // order ID → resting order
	nextSeq     uint64
	nextTradeID uint64
}

// NewOrderBook creates an empty order book for the given symbol.
func NewOrderBook(symbol string) *OrderBook {
	const degree = 32
	return &OrderBook{
		symbol:      symbol,
		bids:        btree.NewG(degree, bidLess),
		asks:        btree.NewG(degree, askLess),
		index:       make(map[uint64]*domain.Order),
		nextTradeID: 1,
	}
}

// Symbol returns the instrument this book trades.
func (ob *OrderBook) Symbol() string {
	return ob.symbol
}

// AddOrder submits a limit order. It first matches against the opposite
// side of the book: a buy consumes asks priced at or below the incoming
// price starting from the best ask, a sell consumes bids priced at or
// above the incoming price starting from the best bid. Within a level,
// resting orders fill strictly in arrival order. Each fill produces one
// trade at the resting order's price with a monotonically increasing
// trade ID. Any unmatched remainder rests at the order's own price,
// merging into an existing level if one exists there.
//
// Returns an empty slice when nothing on the book is marketable against
// the incoming order. Non-positive price or quantity, an unknown side,
// or an ID already resting on the book are caller contract violations
// and are rejected.
func (ob *OrderBook) AddOrder(id uint64, price float64, quantity int64, side domain.Side) ([]domain.Trade, error) {
	if price <= 0 || math.IsInf(price, 0) || math.IsNaN(price) {
		return nil, domain.ErrInvalidPrice
	}
	if quantity <= 0 {
		return nil, domain.ErrInvalidQuantity
	}
	if !side.Valid() {
		return nil, domain.ErrInvalidSide
	}

	ob.mu.Lock()
	defer ob.mu.Unlock()

	if _, exists := ob.index[id]; exists {
		return nil, domain.ErrDuplicateOrder
	}

	key := priceKey(price)
	remaining := quantity
	var trades []domain.Trade

	opposite := ob.asks
	if side == domain.SideSell {
		opposite = ob.bids
	}

	for remaining > 0 {
		best, ok := opposite.Min()
		if !ok {
			break
		}
		// Price compatibility: a buy matches asks at or below its
		// price, a sell matches bids at or above its price.
		if side == domain.SideBuy && best.key > key {
			break
		}
		if side == domain.SideSell && best.key < key {
			break
		}

		remaining = ob.consumeLevel(best, id, side, remaining, &trades)

		if best.totalQuantity == 0 {
			opposite.Delete(best)
		}
	}

	if remaining > 0 {
		ob.rest(&domain.Order{
			ID:       id,
			Price:    price,
			Quantity: remaining,
			Side:     side,
			Seq:      ob.nextSeq,
		})
		ob.nextSeq++
	}

	return trades, nil
}

// consumeLevel fills the incoming order against one opposite level in
// FIFO order, appending one trade per fill at the resting order's
// price. It returns the incoming order's remaining quantity. Exhausted
// resting orders are removed from the queue and the global index.
func (ob *OrderBook) consumeLevel(lvl *level, incomingID uint64, side domain.Side, remaining int64, trades *[]domain.Trade) int64 {
	for remaining > 0 && len(lvl.queue) > 0 {
		resting := lvl.queue[0]

		fill := remaining
		if resting.Quantity < fill {
			fill = resting.Quantity
		}

		trade := domain.Trade{
			ID:       ob.nextTradeID,
			Price:    resting.Price,
			Quantity: fill,
		}
		if side == domain.SideBuy {
			trade.BuyOrderID = incomingID
			trade.SellOrderID = resting.ID
		} else {
			trade.BuyOrderID = resting.ID
			trade.SellOrderID = incomingID
		}
		ob.nextTradeID++
		*trades = append(*trades, trade)

		resting.Quantity -= fill
		lvl.totalQuantity -= fill
		remaining -= fill

		if resting.Quantity == 0 {
			lvl.queue = lvl.queue[1:]
			delete(ob.index, resting.ID)
		}
	}
	return remaining
}

// rest places an order on its own side of the book, creating the level
// if none exists at that price. Caller holds the write lock.
func (ob *OrderBook) rest(order *domain.Order) {
	tree := ob.bids
	if order.Side == domain.SideSell {
		tree = ob.asks
	}

	key := priceKey(order.Price)
	lvl, ok := tree.Get(&level{key: key})
	if !ok {
		lvl = &level{key: key, price: order.Price}
		tree.ReplaceOrInsert(lvl)
	}
	lvl.queue = append(lvl.queue, order)
	lvl.totalQuantity += order.Quantity
	ob.index[order.ID] = order
}

// CancelOrder removes an order's remaining quantity from its level and
// from the order index, removing the level if it becomes empty. Returns
// false when the ID is unknown, an expected outcome since the order
// may already have fully filled.
func (ob *OrderBook) CancelOrder(id uint64) bool {
	ob.mu.Lock()
	defer ob.mu.Unlock()

	order, ok := ob.index[id]
	if !ok {
		return false
	}
	delete(ob.index, id)

	tree := ob.bids
	if order.Side == domain.SideSell {
		tree = ob.asks
	}

	lvl, ok := tree.Get(&level{key: priceKey(order.Price)})
	if !ok {
		return true
	}
	for i, o := range lvl.queue {
		if o.ID == id {
			lvl.queue = append(lvl.queue[:i], lvl.queue[i+1:]...)
			break
		}
	}
	lvl.totalQuantity -= order.Quantity
	if lvl.totalQuantity <= 0 {
		tree.Delete(lvl)
	}
	return true
}

// BestBid returns the highest resting bid price, or -Inf when the bid
// side is empty.
func (ob *OrderBook) BestBid() float64 {
	ob.mu.RLock()
	defer ob.mu.RUnlock()

	lvl, ok := ob.bids.Min()
	if !ok {
		return math.Inf(-1)
	}
	return lvl.price
}

// BestAsk returns the lowest resting ask price, or +Inf when the ask
// side is empty.
func (ob *OrderBook) BestAsk() float64 {
	ob.mu.RLock()
	defer ob.mu.RUnlock()

	lvl, ok := ob.asks.Min()
	if !ok {
		return math.Inf(1)
	}
	return lvl.price
}

// BidQuantityAt returns the aggregate resting quantity at exactly the
// given price on the bid side, or 0 when no level exists there.
func (ob *OrderBook) BidQuantityAt(price float64) int64 {
	return ob.quantityAt(ob.bids, price)
}

// AskQuantityAt returns the aggregate resting quantity at exactly the
// given price on the ask side, or 0 when no level exists there.
func (ob *OrderBook) AskQuantityAt(price float64) int64 {
	return ob.quantityAt(ob.asks, price)
}

func (ob *OrderBook) quantityAt(tree *btree.BTreeG[*level], price float64) int64 {
	ob.mu.RLock()
	defer ob.mu.RUnlock()

	lvl, ok := tree.Get(&level{key: priceKey(price)})
	if !ok {
		return 0
	}
	return lvl.totalQuantity
}

// TopBids returns up to n aggregated bid levels, best (highest) first.
func (ob *OrderBook) TopBids(n int) []domain.PriceLevel {
	return ob.topLevels(ob.bids, n)
}

// TopAsks returns up to n aggregated ask levels, best (lowest) first.
func (ob *OrderBook) TopAsks(n int) []domain.PriceLevel {
	return ob.topLevels(ob.asks, n)
}

func (ob *OrderBook) topLevels(tree *btree.BTreeG[*level], n int) []domain.PriceLevel {
	if n <= 0 {
		return nil
	}

	ob.mu.RLock()
	defer ob.mu.RUnlock()

	levels := make([]domain.PriceLevel, 0, n)
	tree.Ascend(func(lvl *level) bool {
		levels = append(levels, domain.PriceLevel{
			Price:         lvl.price,
			TotalQuantity: lvl.totalQuantity,
			OrderCount:    len(lvl.queue),
		})
		return len(levels) < n
	})
	return levels
}

// OrderCount returns the number of orders resting on the book.
func (ob *OrderBook) OrderCount() int {
	ob.mu.RLock()
	defer ob.mu.RUnlock()
	return len(ob.index)
}
