// Package service coordinates order flow between the transport layer
// and the venues, router and market maker.
package service

import (
	"log/slog"
	"math"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"

	"github.com/efreitasn/tradecore/internal/domain"
	"github.com/efreitasn/tradecore/internal/maker"
	"github.com/efreitasn/tradecore/internal/router"
)

// SubmitOrderRequest represents the input for order submission.
type SubmitOrderRequest struct {
	VenueID  string
	Side     domain.Side
	Price    float64
	Quantity int64
}

// OrderResult is the outcome of one order submission.
type OrderResult struct {
	OrderID           string // client-facing id assigned at submission
	VenueID           string
	Side              domain.Side
	Price             float64
	Quantity          int64
	RemainingQuantity int64
	Trades            []domain.Trade
}

// BookSnapshot is a depth view of a single venue's book.
type BookSnapshot struct {
	VenueID string
	Symbol  string
	BestBid float64 // -Inf when the bid side is empty
	BestAsk float64 // +Inf when the ask side is empty
	Bids    []domain.PriceLevel
	Asks    []domain.PriceLevel
}

// orderRef locates a submitted order inside a venue's book.
type orderRef struct {
	venueID  string
	engineID uint64
}

// TradingService handles order submission and cancellation across
// venues, routing queries, and market-maker control. Client-facing
// order ids are opaque UUIDs; the per-venue numeric ids the books work
// with are an internal detail.
type TradingService struct {
	router *router.Router
	maker  *maker.MarketMaker
	logger *slog.Logger

	nextEngineID atomic.Uint64

	mu     sync.RWMutex
	orders map[string]orderRef
}

// NewTradingService creates a TradingService over the given router and
// market maker. The maker may be nil when quoting is disabled.
func NewTradingService(r *router.Router, m *maker.MarketMaker, logger *slog.Logger) *TradingService {
	if logger == nil {
		logger = slog.Default()
	}
	return &TradingService{
		router: r,
		maker:  m,
		logger: logger,
		orders: make(map[string]orderRef),
	}
}

// SubmitOrder validates the request and submits a limit order to the
// named venue's book, returning any trades the match produced.
func (s *TradingService) SubmitOrder(req SubmitOrderRequest) (*OrderResult, error) {
	if !req.Side.Valid() {
		return nil, &domain.ValidationError{
			Message: "side must be 'buy' or 'sell'",
		}
	}
	if req.Price <= 0 || math.IsInf(req.Price, 0) || math.IsNaN(req.Price) {
		return nil, &domain.ValidationError{
			Message: "price must be a positive, finite number",
		}
	}
	if req.Quantity <= 0 {
		return nil, &domain.ValidationError{
			Message: "quantity must be a positive integer",
		}
	}

	v, ok := s.router.Venue(req.VenueID)
	if !ok {
		return nil, domain.ErrVenueNotFound
	}

	engineID := s.nextEngineID.Add(1)
	trades, err := v.Book().AddOrder(engineID, req.Price, req.Quantity, req.Side)
	if err != nil {
		return nil, err
	}

	orderID := uuid.NewString()
	s.mu.Lock()
	s.orders[orderID] = orderRef{venueID: req.VenueID, engineID: engineID}
	s.mu.Unlock()

	remaining := req.Quantity
	for _, t := range trades {
		remaining -= t.Quantity
	}

	s.logger.Info("order submitted",
		"order_id", orderID,
		"venue_id", req.VenueID,
		"side", req.Side,
		"price", req.Price,
		"quantity", req.Quantity,
		"trades", len(trades),
		"remaining", remaining,
	)

	return &OrderResult{
		OrderID:           orderID,
		VenueID:           req.VenueID,
		Side:              req.Side,
		Price:             req.Price,
		Quantity:          req.Quantity,
		RemainingQuantity: remaining,
		Trades:            trades,
	}, nil
}

// CancelOrder cancels a resting order by its client-facing id. It
// reports false when nothing was removed: an unknown id, or an order
// already filled or cancelled. A miss is an expected outcome in a
// market where fills race cancels, not an error.
func (s *TradingService) CancelOrder(orderID string) bool {
	s.mu.Lock()
	ref, ok := s.orders[orderID]
	if ok {
		delete(s.orders, orderID)
	}
	s.mu.Unlock()
	if !ok {
		return false
	}

	v, ok := s.router.Venue(ref.venueID)
	if !ok {
		return false
	}
	cancelled := v.Book().CancelOrder(ref.engineID)

	s.logger.Info("order cancel",
		"order_id", orderID,
		"venue_id", ref.venueID,
		"cancelled", cancelled,
	)
	return cancelled
}

// Book returns a depth snapshot of one venue's book. depth limits the
// number of levels per side; non-positive means a default of 10.
func (s *TradingService) Book(venueID string, depth int) (*BookSnapshot, error) {
	v, ok := s.router.Venue(venueID)
	if !ok {
		return nil, domain.ErrVenueNotFound
	}
	if depth <= 0 {
		depth = 10
	}

	book := v.Book()
	return &BookSnapshot{
		VenueID: venueID,
		Symbol:  book.Symbol(),
		BestBid: book.BestBid(),
		BestAsk: book.BestAsk(),
		Bids:    book.TopBids(depth),
		Asks:    book.TopAsks(depth),
	}, nil
}

// Market returns the aggregated cross-venue market data view.
func (s *TradingService) Market() router.MarketData {
	return s.router.AggregatedMarketData()
}

// Route returns the routing decision for a hypothetical order without
// executing anything.
func (s *TradingService) Route(price float64, quantity int64, side domain.Side) (router.Decision, error) {
	if err := validateRouteInput(price, quantity, side); err != nil {
		return router.Decision{}, err
	}
	return s.router.RouteOrder(s.nextEngineID.Add(1), price, quantity, side), nil
}

// RouteSplit returns a split-routing plan for a hypothetical order
// without executing anything.
func (s *TradingService) RouteSplit(price float64, quantity int64, side domain.Side) ([]router.Allocation, error) {
	if err := validateRouteInput(price, quantity, side); err != nil {
		return nil, err
	}
	return s.router.RouteSplit(s.nextEngineID.Add(1), price, quantity, side), nil
}

func validateRouteInput(price float64, quantity int64, side domain.Side) error {
	if !side.Valid() {
		return &domain.ValidationError{Message: "side must be 'buy' or 'sell'"}
	}
	if price <= 0 || math.IsInf(price, 0) || math.IsNaN(price) {
		return &domain.ValidationError{Message: "price must be a positive, finite number"}
	}
	if quantity <= 0 {
		return &domain.ValidationError{Message: "quantity must be a positive integer"}
	}
	return nil
}

// SetVenueActive toggles a venue's routing eligibility.
func (s *TradingService) SetVenueActive(venueID string, active bool) error {
	if err := s.router.SetVenueActive(venueID, active); err != nil {
		return err
	}
	s.logger.Info("venue active toggled", "venue_id", venueID, "active", active)
	return nil
}

// VenueIDs lists the registered venues.
func (s *TradingService) VenueIDs() []string {
	return s.router.VenueIDs()
}

// MakerQuotes runs one quoting cycle and returns the refreshed quote
// pair.
func (s *TradingService) MakerQuotes() (maker.QuoteSet, error) {
	if s.maker == nil {
		return maker.QuoteSet{}, domain.ErrNoMarket
	}
	return s.maker.UpdateQuotes()
}

// MakerFill records an execution against one of the maker's quotes.
func (s *TradingService) MakerFill(side domain.Side, venueID string, price float64, quantity int64) error {
	if s.maker == nil {
		return domain.ErrNoMarket
	}
	if !side.Valid() {
		return &domain.ValidationError{Message: "side must be 'buy' or 'sell'"}
	}
	if price <= 0 || math.IsInf(price, 0) || math.IsNaN(price) {
		return &domain.ValidationError{Message: "price must be a positive, finite number"}
	}
	if quantity <= 0 {
		return &domain.ValidationError{Message: "quantity must be a positive integer"}
	}

	s.maker.OnQuoteFilled(maker.Quote{Side: side, VenueID: venueID}, price, quantity)
	s.maker.AdjustParametersForRisk()
	return nil
}

// MakerPosition returns the maker's current inventory position.
func (s *TradingService) MakerPosition() (maker.Position, error) {
	if s.maker == nil {
		return maker.Position{}, domain.ErrNoMarket
	}
	return s.maker.InventoryPosition(), nil
}

// OpenOrders reports the number of submitted orders the service still
// tracks. Orders leave the map on cancellation only; fills discovered
// through the book do not prune it.
func (s *TradingService) OpenOrders() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.orders)
}
