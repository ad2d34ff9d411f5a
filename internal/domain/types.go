package domain

// Side identifies which side of the book an order belongs to.
type Side string

const (
	SideBuy  Side = "buy"
	SideSell Side = "sell"
)

// Opposite returns the other side of the book.
func (s Side) Opposite() Side {
	if s == SideBuy {
		return SideSell
	}
	return SideBuy
}

// Valid reports whether s is one of the two known sides.
func (s Side) Valid() bool {
	return s == SideBuy || s == SideSell
}

// Order is a resting limit order. It is owned exclusively by the book
// that accepted it: only matching (quantity decrement) and cancellation
// (removal) mutate it. Seq is the arrival sequence assigned by the book
// and determines time priority within a price level.
type Order struct {
	ID       uint64
	Price    float64
	Quantity int64 // remaining quantity
	Side     Side
	Seq      uint64
}

// Trade records a single match. Created transiently per fill and
// returned to the caller; the book keeps no trade log.
type Trade struct {
	ID          uint64
	Price       float64
	Quantity    int64
	BuyOrderID  uint64
	SellOrderID uint64
}

// PriceLevel is an aggregated view of one price level, as exposed by
// depth snapshots. TotalQuantity equals the sum of the remaining
// quantities of the orders resting at Price.
type PriceLevel struct {
	Price         float64
	TotalQuantity int64
	OrderCount    int
}
