// Package router implements fee- and latency-aware smart order routing
// across a set of venues. The router is the sole owner of every venue
// registered with it.
package router

import (
	"math"
	"sync"

	"github.com/efreitasn/tradecore/internal/domain"
	"github.com/efreitasn/tradecore/internal/venue"
)

// FeeSchedule holds a venue's fee rates as fractions of notional
// (0.001 = 0.1%).
type FeeSchedule struct {
	MakerFee float64
	TakerFee float64
}

// DefaultFeeSchedule returns a typical maker/taker schedule.
func DefaultFeeSchedule() FeeSchedule {
	return FeeSchedule{MakerFee: 0.001, TakerFee: 0.002}
}

// Decision is the outcome of routing one order. For buys TotalCost is
// notional plus fee; for sells it is net proceeds after fees. A zero
// Decision (empty VenueID) means no venue qualified.
type Decision struct {
	VenueID           string
	ExpectedPrice     float64
	ExpectedFee       float64
	TotalCost         float64
	AvailableQuantity int64
	Maker             bool
}

// Valid reports whether the decision names a venue.
func (d Decision) Valid() bool {
	return d.VenueID != ""
}

// Allocation is one child order of a split routing.
type Allocation struct {
	VenueID       string
	Quantity      int64
	ExpectedPrice float64
	ExpectedFee   float64
}

// MarketData is a cross-venue composite of best prices.
//
// TotalBidQuantity and TotalAskQuantity sum each qualifying venue's own
// top-of-book quantity: a display of aggregate near-top liquidity, not
// the quantity available at the single globally best price.
type MarketData struct {
	BestBid          float64
	BestAsk          float64
	TotalBidQuantity int64
	TotalAskQuantity int64
	BestBidVenue     string
	BestAskVenue     string
}

type entry struct {
	venue  venue.Venue
	fees   FeeSchedule
	active bool
}

// Router selects execution venues for orders. Reads of venue books are
// not transactional with respect to concurrent book mutation: the price
// and quantity reads for one venue may reflect slightly different book
// states, and routing results are eventually consistent over the
// venues read.
type Router struct {
	mu              sync.RWMutex
	entries         []*entry
	considerLatency bool
	considerFees    bool
}

// New creates a Router. considerLatency inflates buy costs (and
// deflates sell proceeds) in proportion to each venue's average
// latency; considerFees folds the maker/taker fee into the effective
// cost.
func New(considerLatency, considerFees bool) *Router {
	return &Router{
		considerLatency: considerLatency,
		considerFees:    considerFees,
	}
}

// AddVenue registers a venue as active. The router takes ownership of
// the venue's lifetime.
func (r *Router) AddVenue(v venue.Venue, fees FeeSchedule) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, e := range r.entries {
		if e.venue.ID() == v.ID() {
			return domain.ErrVenueExists
		}
	}
	r.entries = append(r.entries, &entry{venue: v, fees: fees, active: true})
	return nil
}

// SetVenueActive toggles a venue administratively. It does not touch
// the venue's book; this models operational failover, not liquidity
// removal. An unknown ID is a caller error.
func (r *Router) SetVenueActive(id string, active bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, e := range r.entries {
		if e.venue.ID() == id {
			e.active = active
			return nil
		}
	}
	return domain.ErrVenueNotFound
}

// Venue returns a registered venue by ID.
func (r *Router) Venue(id string) (venue.Venue, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, e := range r.entries {
		if e.venue.ID() == id {
			return e.venue, true
		}
	}
	return nil, false
}

// VenueIDs lists the registered venue IDs in registration order.
func (r *Router) VenueIDs() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	ids := make([]string, 0, len(r.entries))
	for _, e := range r.entries {
		ids = append(ids, e.venue.ID())
	}
	return ids
}

// latencyFactor is the divisor converting a venue's average latency in
// milliseconds into a cost penalty fraction.
const latencyFactor = 10_000.0

// RouteOrder picks the venue with the best all-in execution outcome for
// a hypothetical order: lowest effective cost for buys against venues'
// best asks, highest effective proceeds for sells against venues' best
// bids. Inactive venues, unavailable venues and venues with no
// top-of-book liquidity on the relevant side are skipped. When no
// venue qualifies the zero Decision is returned; callers must check
// Valid.
func (r *Router) RouteOrder(orderID uint64, price float64, quantity int64, side domain.Side) Decision {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var best Decision
	bestCost := math.Inf(1)
	bestProceeds := math.Inf(-1)

	for _, e := range r.entries {
		if !e.active || !e.venue.Available() {
			continue
		}
		book := e.venue.Book()

		var touchPrice float64
		var available int64
		if side == domain.SideBuy {
			touchPrice = book.BestAsk()
			if math.IsInf(touchPrice, 1) {
				continue
			}
			available = book.AskQuantityAt(touchPrice)
		} else {
			touchPrice = book.BestBid()
			if math.IsInf(touchPrice, -1) {
				continue
			}
			available = book.BidQuantityAt(touchPrice)
		}
		if available == 0 {
			continue
		}

		// A buy resting below the venue's best ask (or a sell above its
		// best bid) would add liquidity rather than take it.
		var maker bool
		if side == domain.SideBuy {
			maker = price < touchPrice
		} else {
			maker = price > touchPrice
		}
		feeRate := e.fees.TakerFee
		if maker {
			feeRate = e.fees.MakerFee
		}

		fill := quantity
		if available < fill {
			fill = available
		}
		notional := touchPrice * float64(fill)

		var fee float64
		if r.considerFees {
			fee = notional * feeRate
		}

		if side == domain.SideBuy {
			cost := notional + fee
			if r.considerLatency {
				cost *= 1 + float64(e.venue.Metrics().AvgLatency.Milliseconds())/latencyFactor
			}
			if cost < bestCost {
				bestCost = cost
				best = Decision{
					VenueID:           e.venue.ID(),
					ExpectedPrice:     touchPrice,
					ExpectedFee:       fee,
					TotalCost:         cost,
					AvailableQuantity: available,
					Maker:             maker,
				}
			}
		} else {
			proceeds := notional - fee
			if r.considerLatency {
				proceeds *= 1 - float64(e.venue.Metrics().AvgLatency.Milliseconds())/latencyFactor
			}
			if proceeds > bestProceeds {
				bestProceeds = proceeds
				best = Decision{
					VenueID:           e.venue.ID(),
					ExpectedPrice:     touchPrice,
					ExpectedFee:       fee,
					TotalCost:         proceeds,
					AvailableQuantity: available,
					Maker:             maker,
				}
			}
		}
	}

	return best
}

// RouteSplit allocates totalQuantity across venues by repeatedly
// routing the remainder and taking what each chosen venue reports
// available at its top of book. It stops when the remainder reaches
// zero, no venue qualifies, or the number of allocations reaches the
// venue count.
//
// Known limitation: allocations do not reserve or decrement the
// liquidity they consume, so the same top-of-book quantity at a venue
// can be reported across iterations and double-counted. Callers
// targeting real execution must re-validate liquidity before
// submitting each child order.
func (r *Router) RouteSplit(orderID uint64, price float64, totalQuantity int64, side domain.Side) []Allocation {
	var allocations []Allocation

	r.mu.RLock()
	venueCount := len(r.entries)
	r.mu.RUnlock()

	remaining := totalQuantity
	for remaining > 0 {
		decision := r.RouteOrder(orderID, price, remaining, side)
		if !decision.Valid() {
			break
		}

		fill := remaining
		if decision.AvailableQuantity < fill {
			fill = decision.AvailableQuantity
		}

		allocations = append(allocations, Allocation{
			VenueID:       decision.VenueID,
			Quantity:      fill,
			ExpectedPrice: decision.ExpectedPrice,
			ExpectedFee:   decision.ExpectedFee * float64(fill) / float64(decision.AvailableQuantity),
		})
		remaining -= fill

		if len(allocations) >= venueCount {
			break
		}
	}

	return allocations
}

// AggregatedMarketData composes the best bid and ask across active,
// available venues together with their source venues. See MarketData
// for the quantity aggregation rule.
func (r *Router) AggregatedMarketData() MarketData {
	r.mu.RLock()
	defer r.mu.RUnlock()

	data := MarketData{
		BestBid: math.Inf(-1),
		BestAsk: math.Inf(1),
	}

	for _, e := range r.entries {
		if !e.active || !e.venue.Available() {
			continue
		}
		book := e.venue.Book()

		if bid := book.BestBid(); !math.IsInf(bid, -1) {
			if bid > data.BestBid {
				data.BestBid = bid
				data.BestBidVenue = e.venue.ID()
			}
			data.TotalBidQuantity += book.BidQuantityAt(bid)
		}
		if ask := book.BestAsk(); !math.IsInf(ask, 1) {
			if ask < data.BestAsk {
				data.BestAsk = ask
				data.BestAskVenue = e.venue.ID()
			}
			data.TotalAskQuantity += book.AskQuantityAt(ask)
		}
	}

	return data
}

// HasMarket reports whether the aggregate view currently has both a bid
// and an ask.
func (d MarketData) HasMarket() bool {
	return !math.IsInf(d.BestBid, -1) && !math.IsInf(d.BestAsk, 1)
}
