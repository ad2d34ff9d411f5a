// Package maker implements an inventory-aware market-making strategy on
// top of the smart order router. Each quoting cycle is a pure
// recomputation from current inventory and the latest cross-venue
// snapshot; the only state carried between cycles is inventory, the
// last known midpoint and the volatility estimate.
package maker

import (
	"log/slog"
	"math"
	"sync"

	"github.com/efreitasn/tradecore/internal/domain"
	"github.com/efreitasn/tradecore/internal/router"
)

// quantityUnit converts between fractional base-asset sizes and the
// integer quantities quoted to the router: one unit is a hundredth of
// the base asset.
const quantityUnit = 100.0

// Params controls spread, inventory and sizing behavior. Spreads are in
// basis points; inventories in base-asset and quote-currency units.
type Params struct {
	BaseSpreadBps float64
	MinSpreadBps  float64
	MaxSpreadBps  float64

	MaxBaseInventory    float64
	MaxQuoteInventory   float64
	TargetBaseInventory float64

	InventorySkewFactor  float64
	VolatilityAdjustment float64

	BaseQuoteSize float64
	MinQuoteSize  float64
	MaxQuoteSize  float64
}

// DefaultParams returns a conservative starting configuration.
func DefaultParams() Params {
	return Params{
		BaseSpreadBps:        10.0,
		MinSpreadBps:         5.0,
		MaxSpreadBps:         50.0,
		MaxBaseInventory:     10.0,
		MaxQuoteInventory:    500_000.0,
		TargetBaseInventory:  5.0,
		InventorySkewFactor:  0.1,
		VolatilityAdjustment: 1.0,
		BaseQuoteSize:        0.1,
		MinQuoteSize:         0.01,
		MaxQuoteSize:         1.0,
	}
}

// Quote is one side of a two-sided quote. Quantity is in hundredths of
// the base asset.
type Quote struct {
	Price    float64
	Quantity int64
	Side     domain.Side
	VenueID  string
}

// QuoteSet is the output of one quoting cycle. TheoreticalEdge is the
// expected profit if both quotes fill, net of estimated fees.
type QuoteSet struct {
	Buy             Quote
	Sell            Quote
	TheoreticalEdge float64
}

// Position is a derived snapshot of inventory marked at the current
// midpoint. PnL is mark-to-market: the current portfolio value minus
// the initial portfolio value, both valued at the current midpoint. It
// is not an accumulation of realized round-trip gains.
type Position struct {
	BaseInventory  float64
	QuoteInventory float64
	BaseValue      float64
	TotalValue     float64
	PnL            float64
}

// MarketMaker quotes both sides of the market, skewing prices and sizes
// to pull inventory back toward target. Inventory mutation and quote
// computation are serialized by one mutex, so a fill can never
// interleave with a quote computation in progress.
type MarketMaker struct {
	router *router.Router
	logger *slog.Logger

	mu     sync.Mutex
	params Params

	baseInventory        float64
	quoteInventory       float64
	initialBaseInventory float64
	initialQuoteInvtry   float64

	lastMidpoint       float64
	volatilityEstimate float64

	quotesPlaced uint64
	quotesFilled uint64
	totalVolume  float64
	pnl          float64
}

// New creates a MarketMaker quoting through r.
func New(r *router.Router, params Params, logger *slog.Logger) *MarketMaker {
	if logger == nil {
		logger = slog.Default()
	}
	return &MarketMaker{
		router:             r,
		logger:             logger,
		params:             params,
		volatilityEstimate: 0.001,
	}
}

// Initialize sets the current inventory and the baseline used for
// mark-to-market P&L.
func (m *MarketMaker) Initialize(baseInventory, quoteInventory float64) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.baseInventory = baseInventory
	m.quoteInventory = quoteInventory
	m.initialBaseInventory = baseInventory
	m.initialQuoteInvtry = quoteInventory

	m.logger.Info("market maker initialized",
		slog.Float64("base_inventory", baseInventory),
		slog.Float64("quote_inventory", quoteInventory),
	)
}

// midpoint reads the aggregated market and returns its midpoint,
// falling back to the last known midpoint when no two-sided market
// exists. Caller holds the lock.
func (m *MarketMaker) midpoint() float64 {
	md := m.router.AggregatedMarketData()
	if !md.HasMarket() {
		return m.lastMidpoint
	}
	mid := (md.BestBid + md.BestAsk) / 2
	m.lastMidpoint = mid
	return mid
}

// inventorySkew measures deviation from target inventory. Positive
// means excess inventory: both quoted prices shift down, biasing fills
// toward selling. Caller holds the lock.
func (m *MarketMaker) inventorySkew() float64 {
	if m.params.TargetBaseInventory <= 0 {
		return 0
	}
	return (m.baseInventory/m.params.TargetBaseInventory - 1) * m.params.InventorySkewFactor
}

// spread computes the quoted spread as a decimal fraction: base spread
// widened for volatility and inventory imbalance, clamped to the
// configured bounds. Caller holds the lock.
func (m *MarketMaker) spread() float64 {
	bps := m.params.BaseSpreadBps
	bps *= 1 + m.volatilityEstimate*m.params.VolatilityAdjustment
	bps *= 1 + math.Abs(m.inventorySkew())*0.5

	bps = math.Max(bps, m.params.MinSpreadBps)
	bps = math.Min(bps, m.params.MaxSpreadBps)
	return bps / 10_000
}

// quotePrices centers the spread on the midpoint and applies the
// inventory skew symmetrically to both sides. Caller holds the lock.
func (m *MarketMaker) quotePrices(midpoint, spread float64) (bid, ask float64) {
	halfSpread := spread / 2
	skew := m.inventorySkew()

	bid = midpoint * (1 - halfSpread - skew*halfSpread)
	ask = midpoint * (1 + halfSpread + skew*halfSpread)
	return bid, ask
}

// quoteSize sizes one side of the quote: buys shrink as inventory
// approaches the maximum, sells shrink as inventory falls below target.
// Caller holds the lock.
func (m *MarketMaker) quoteSize(side domain.Side) int64 {
	size := m.params.BaseQuoteSize

	if side == domain.SideBuy {
		if m.params.MaxBaseInventory > 0 {
			size *= 1 - (m.baseInventory/m.params.MaxBaseInventory)*0.5
		}
	} else {
		if m.params.TargetBaseInventory > 0 {
			size *= math.Min(m.baseInventory/m.params.TargetBaseInventory, 1)
		}
	}

	qty := int64(size * quantityUnit)
	minQty := int64(m.params.MinQuoteSize * quantityUnit)
	maxQty := int64(m.params.MaxQuoteSize * quantityUnit)
	if qty < minQty {
		qty = minQty
	}
	if qty > maxQty {
		qty = maxQty
	}
	return qty
}

// UpdateQuotes computes a fresh two-sided quote from current inventory
// and the latest market snapshot. Each side is routed purely to obtain
// a venue recommendation and fee estimate; no order is placed. Returns
// ErrNoMarket when no midpoint has ever been observed.
func (m *MarketMaker) UpdateQuotes() (QuoteSet, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	midpoint := m.midpoint()
	if midpoint <= 0 {
		return QuoteSet{}, domain.ErrNoMarket
	}

	spread := m.spread()
	bidPrice, askPrice := m.quotePrices(midpoint, spread)
	buySize := m.quoteSize(domain.SideBuy)
	sellSize := m.quoteSize(domain.SideSell)

	m.quotesPlaced++
	buyRouting := m.router.RouteOrder(m.quotesPlaced, bidPrice, buySize, domain.SideBuy)
	m.quotesPlaced++
	sellRouting := m.router.RouteOrder(m.quotesPlaced, askPrice, sellSize, domain.SideSell)

	return QuoteSet{
		Buy: Quote{
			Price:    bidPrice,
			Quantity: buySize,
			Side:     domain.SideBuy,
			VenueID:  buyRouting.VenueID,
		},
		Sell: Quote{
			Price:    askPrice,
			Quantity: sellSize,
			Side:     domain.SideSell,
			VenueID:  sellRouting.VenueID,
		},
		TheoreticalEdge: (askPrice - bidPrice) - (buyRouting.ExpectedFee + sellRouting.ExpectedFee),
	}, nil
}

// OnQuoteFilled applies an external fill notification: a buy fill adds
// base inventory and spends quote currency, a sell fill does the
// inverse. P&L is then recomputed wholesale as the mark-to-market delta
// against initial inventory at the current midpoint.
func (m *MarketMaker) OnQuoteFilled(quote Quote, fillPrice float64, fillQuantity int64) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.quotesFilled++
	m.totalVolume += float64(fillQuantity)

	size := float64(fillQuantity) / quantityUnit
	if quote.Side == domain.SideBuy {
		m.baseInventory += size
		m.quoteInventory -= fillPrice * size
	} else {
		m.baseInventory -= size
		m.quoteInventory += fillPrice * size
	}

	mid := m.lastMidpoint
	currentValue := m.baseInventory*mid + m.quoteInventory
	initialValue := m.initialBaseInventory*mid + m.initialQuoteInvtry
	m.pnl = currentValue - initialValue

	m.logger.Debug("quote filled",
		slog.String("side", string(quote.Side)),
		slog.Float64("price", fillPrice),
		slog.Float64("size", size),
		slog.Float64("base_inventory", m.baseInventory),
		slog.Float64("pnl", m.pnl),
	)
}

// WithinRiskLimits reports whether inventory and position notional are
// inside the configured bounds: base inventory in [0, max], quote
// inventory in [-0.1×max, max], and absolute position notional at the
// current mark within a 10% buffer over the maximum.
func (m *MarketMaker) WithinRiskLimits() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.withinRiskLimits()
}

func (m *MarketMaker) withinRiskLimits() bool {
	if m.baseInventory > m.params.MaxBaseInventory || m.baseInventory < 0 {
		return false
	}
	if m.quoteInventory > m.params.MaxQuoteInventory ||
		m.quoteInventory < -m.params.MaxQuoteInventory*0.1 {
		return false
	}

	positionValue := math.Abs(m.baseInventory * m.lastMidpoint)
	maxPositionValue := m.params.MaxBaseInventory * m.lastMidpoint
	return positionValue <= maxPositionValue*1.1
}

// AdjustParametersForRisk widens the spread and halves quote sizing
// when the maker is outside its risk limits.
func (m *MarketMaker) AdjustParametersForRisk() {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.withinRiskLimits() {
		return
	}
	m.params.BaseSpreadBps *= 1.5
	m.params.BaseQuoteSize *= 0.5
	m.logger.Warn("risk limits exceeded, widening quotes",
		slog.Float64("base_spread_bps", m.params.BaseSpreadBps),
		slog.Float64("base_quote_size", m.params.BaseQuoteSize),
	)
}

// InventoryPosition returns the derived position snapshot marked at the
// current midpoint.
func (m *MarketMaker) InventoryPosition() Position {
	m.mu.Lock()
	defer m.mu.Unlock()

	mid := m.lastMidpoint
	baseValue := m.baseInventory * mid
	totalValue := baseValue + m.quoteInventory
	initialValue := m.initialBaseInventory*mid + m.initialQuoteInvtry

	return Position{
		BaseInventory:  m.baseInventory,
		QuoteInventory: m.quoteInventory,
		BaseValue:      baseValue,
		TotalValue:     totalValue,
		PnL:            totalValue - initialValue,
	}
}

// InventoryImbalance returns the relative deviation of base inventory
// from target, 0 when no target is configured.
func (m *MarketMaker) InventoryImbalance() float64 {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.params.TargetBaseInventory <= 0 {
		return 0
	}
	return (m.baseInventory - m.params.TargetBaseInventory) / m.params.TargetBaseInventory
}

// FillRate returns the fraction of placed quotes that have filled.
func (m *MarketMaker) FillRate() float64 {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.quotesPlaced == 0 {
		return 0
	}
	return float64(m.quotesFilled) / float64(m.quotesPlaced)
}

// EstimateVolatility folds the current relative spread into an
// exponentially weighted volatility estimate and returns it. When no
// two-sided market exists the previous estimate is returned unchanged.
func (m *MarketMaker) EstimateVolatility() float64 {
	m.mu.Lock()
	defer m.mu.Unlock()

	md := m.router.AggregatedMarketData()
	if !md.HasMarket() || md.BestBid <= 0 {
		return m.volatilityEstimate
	}

	spread := (md.BestAsk - md.BestBid) / md.BestBid
	m.volatilityEstimate = m.volatilityEstimate*0.9 + spread*0.1
	return m.volatilityEstimate
}

// Params returns a copy of the current parameters.
func (m *MarketMaker) Params() Params {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.params
}

// SetParams replaces the parameters.
func (m *MarketMaker) SetParams(p Params) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.params = p
}
