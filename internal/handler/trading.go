package handler

import (
	"errors"
	"math"
	"net/http"
	"strconv"

	"github.com/efreitasn/tradecore/internal/domain"
	"github.com/efreitasn/tradecore/internal/service"
	"github.com/go-chi/chi/v5"
)

// TradingHandler handles HTTP requests for orders, books, market data
// and routing.
type TradingHandler struct {
	tradingSvc *service.TradingService
}

// NewTradingHandler creates a new TradingHandler.
func NewTradingHandler(tradingSvc *service.TradingService) *TradingHandler {
	return &TradingHandler{tradingSvc: tradingSvc}
}

// submitOrderRequest is the JSON request body for POST /orders.
type submitOrderRequest struct {
	VenueID  string  `json:"venue_id"`
	Side     string  `json:"side"`
	Price    float64 `json:"price"`
	Quantity int64   `json:"quantity"`
}

// tradeResponse is a single trade in an order response.
type tradeResponse struct {
	TradeID     uint64  `json:"trade_id"`
	Price       float64 `json:"price"`
	Quantity    int64   `json:"quantity"`
	BuyOrderID  uint64  `json:"buy_order_id"`
	SellOrderID uint64  `json:"sell_order_id"`
}

// orderResponse is the JSON response for order submission.
type orderResponse struct {
	OrderID           string          `json:"order_id"`
	VenueID           string          `json:"venue_id"`
	Side              string          `json:"side"`
	Price             float64         `json:"price"`
	Quantity          int64           `json:"quantity"`
	RemainingQuantity int64           `json:"remaining_quantity"`
	Trades            []tradeResponse `json:"trades"`
}

// SubmitOrder handles POST /orders.
func (h *TradingHandler) SubmitOrder(w http.ResponseWriter, r *http.Request) {
	var req submitOrderRequest
	if err := ParseJSON(r, &req); err != nil {
		WriteError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}

	res, err := h.tradingSvc.SubmitOrder(service.SubmitOrderRequest{
		VenueID:  req.VenueID,
		Side:     domain.Side(req.Side),
		Price:    req.Price,
		Quantity: req.Quantity,
	})
	if err != nil {
		mapError(w, err)
		return
	}

	WriteJSON(w, http.StatusCreated, orderResponse{
		OrderID:           res.OrderID,
		VenueID:           res.VenueID,
		Side:              string(res.Side),
		Price:             res.Price,
		Quantity:          res.Quantity,
		RemainingQuantity: res.RemainingQuantity,
		Trades:            buildTradeResponses(res.Trades),
	})
}

// CancelOrder handles DELETE /orders/{order_id}. A miss is a normal
// outcome reported in the body, not an error status.
func (h *TradingHandler) CancelOrder(w http.ResponseWriter, r *http.Request) {
	orderID := chi.URLParam(r, "order_id")
	cancelled := h.tradingSvc.CancelOrder(orderID)
	WriteJSON(w, http.StatusOK, map[string]bool{"cancelled": cancelled})
}

// ListVenues handles GET /venues.
func (h *TradingHandler) ListVenues(w http.ResponseWriter, r *http.Request) {
	WriteJSON(w, http.StatusOK, map[string][]string{"venues": h.tradingSvc.VenueIDs()})
}

// priceLevelResponse is one depth level in a book response.
type priceLevelResponse struct {
	Price         float64 `json:"price"`
	TotalQuantity int64   `json:"total_quantity"`
	OrderCount    int     `json:"order_count"`
}

// bookResponse is the JSON response for a venue book snapshot. Best
// prices are null when the corresponding side is empty.
type bookResponse struct {
	VenueID string               `json:"venue_id"`
	Symbol  string               `json:"symbol"`
	BestBid *float64             `json:"best_bid"`
	BestAsk *float64             `json:"best_ask"`
	Bids    []priceLevelResponse `json:"bids"`
	Asks    []priceLevelResponse `json:"asks"`
}

// GetBook handles GET /venues/{venue_id}/book.
func (h *TradingHandler) GetBook(w http.ResponseWriter, r *http.Request) {
	venueID := chi.URLParam(r, "venue_id")

	depth := 0
	if raw := r.URL.Query().Get("depth"); raw != "" {
		d, err := strconv.Atoi(raw)
		if err != nil || d < 1 {
			WriteError(w, http.StatusBadRequest, "validation_error", "depth must be a positive integer")
			return
		}
		depth = d
	}

	snap, err := h.tradingSvc.Book(venueID, depth)
	if err != nil {
		mapError(w, err)
		return
	}

	WriteJSON(w, http.StatusOK, bookResponse{
		VenueID: snap.VenueID,
		Symbol:  snap.Symbol,
		BestBid: finitePrice(snap.BestBid),
		BestAsk: finitePrice(snap.BestAsk),
		Bids:    buildLevelResponses(snap.Bids),
		Asks:    buildLevelResponses(snap.Asks),
	})
}

// setVenueActiveRequest is the JSON request body for
// PUT /venues/{venue_id}/active.
type setVenueActiveRequest struct {
	Active bool `json:"active"`
}

// SetVenueActive handles PUT /venues/{venue_id}/active.
func (h *TradingHandler) SetVenueActive(w http.ResponseWriter, r *http.Request) {
	venueID := chi.URLParam(r, "venue_id")

	var req setVenueActiveRequest
	if err := ParseJSON(r, &req); err != nil {
		WriteError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}

	if err := h.tradingSvc.SetVenueActive(venueID, req.Active); err != nil {
		mapError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, map[string]any{"venue_id": venueID, "active": req.Active})
}

// marketResponse is the JSON response for GET /market. Best prices and
// their venues are null when the corresponding side is empty everywhere.
type marketResponse struct {
	BestBid          *float64 `json:"best_bid"`
	BestAsk          *float64 `json:"best_ask"`
	TotalBidQuantity int64    `json:"total_bid_quantity"`
	TotalAskQuantity int64    `json:"total_ask_quantity"`
	BestBidVenue     *string  `json:"best_bid_venue"`
	BestAskVenue     *string  `json:"best_ask_venue"`
}

// GetMarket handles GET /market.
func (h *TradingHandler) GetMarket(w http.ResponseWriter, r *http.Request) {
	md := h.tradingSvc.Market()

	resp := marketResponse{
		BestBid:          finitePrice(md.BestBid),
		BestAsk:          finitePrice(md.BestAsk),
		TotalBidQuantity: md.TotalBidQuantity,
		TotalAskQuantity: md.TotalAskQuantity,
	}
	if md.BestBidVenue != "" {
		resp.BestBidVenue = &md.BestBidVenue
	}
	if md.BestAskVenue != "" {
		resp.BestAskVenue = &md.BestAskVenue
	}
	WriteJSON(w, http.StatusOK, resp)
}

// routeRequest is the JSON request body for POST /route and
// POST /route/split.
type routeRequest struct {
	Side     string  `json:"side"`
	Price    float64 `json:"price"`
	Quantity int64   `json:"quantity"`
}

// decisionResponse is the JSON response for POST /route.
type decisionResponse struct {
	VenueID           string  `json:"venue_id"`
	ExpectedPrice     float64 `json:"expected_price"`
	ExpectedFee       float64 `json:"expected_fee"`
	TotalCost         float64 `json:"total_cost"`
	AvailableQuantity int64   `json:"available_quantity"`
	Maker             bool    `json:"maker"`
}

// Route handles POST /route. When no venue qualifies it responds 200
// with routed=false rather than an error: an empty market is a valid
// answer to the question being asked.
func (h *TradingHandler) Route(w http.ResponseWriter, r *http.Request) {
	var req routeRequest
	if err := ParseJSON(r, &req); err != nil {
		WriteError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}

	d, err := h.tradingSvc.Route(req.Price, req.Quantity, domain.Side(req.Side))
	if err != nil {
		mapError(w, err)
		return
	}
	if !d.Valid() {
		WriteJSON(w, http.StatusOK, map[string]any{"routed": false})
		return
	}
	WriteJSON(w, http.StatusOK, map[string]any{
		"routed": true,
		"decision": decisionResponse{
			VenueID:           d.VenueID,
			ExpectedPrice:     d.ExpectedPrice,
			ExpectedFee:       d.ExpectedFee,
			TotalCost:         d.TotalCost,
			AvailableQuantity: d.AvailableQuantity,
			Maker:             d.Maker,
		},
	})
}

// allocationResponse is one child order in a split-routing response.
type allocationResponse struct {
	VenueID       string  `json:"venue_id"`
	Quantity      int64   `json:"quantity"`
	ExpectedPrice float64 `json:"expected_price"`
	ExpectedFee   float64 `json:"expected_fee"`
}

// RouteSplit handles POST /route/split.
func (h *TradingHandler) RouteSplit(w http.ResponseWriter, r *http.Request) {
	var req routeRequest
	if err := ParseJSON(r, &req); err != nil {
		WriteError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}

	allocs, err := h.tradingSvc.RouteSplit(req.Price, req.Quantity, domain.Side(req.Side))
	if err != nil {
		mapError(w, err)
		return
	}

	resp := make([]allocationResponse, len(allocs))
	var allocated int64
	for i, a := range allocs {
		resp[i] = allocationResponse{
			VenueID:       a.VenueID,
			Quantity:      a.Quantity,
			ExpectedPrice: a.ExpectedPrice,
			ExpectedFee:   a.ExpectedFee,
		}
		allocated += a.Quantity
	}
	WriteJSON(w, http.StatusOK, map[string]any{
		"allocations":        resp,
		"allocated_quantity": allocated,
		"requested_quantity": req.Quantity,
	})
}

// buildTradeResponses converts domain trades to response trades.
func buildTradeResponses(trades []domain.Trade) []tradeResponse {
	result := make([]tradeResponse, len(trades))
	for i, t := range trades {
		result[i] = tradeResponse{
			TradeID:     t.ID,
			Price:       t.Price,
			Quantity:    t.Quantity,
			BuyOrderID:  t.BuyOrderID,
			SellOrderID: t.SellOrderID,
		}
	}
	return result
}

// buildLevelResponses converts depth levels to response levels.
func buildLevelResponses(levels []domain.PriceLevel) []priceLevelResponse {
	result := make([]priceLevelResponse, len(levels))
	for i, l := range levels {
		result[i] = priceLevelResponse{
			Price:         l.Price,
			TotalQuantity: l.TotalQuantity,
			OrderCount:    l.OrderCount,
		}
	}
	return result
}

// finitePrice converts an internal best-price value to a nullable
// response field. Empty book sides are represented internally as ±Inf,
// which JSON cannot encode.
func finitePrice(p float64) *float64 {
	if math.IsInf(p, 0) {
		return nil
	}
	return &p
}

// mapError maps domain errors to HTTP responses.
func mapError(w http.ResponseWriter, err error) {
	var validationErr *domain.ValidationError
	if errors.As(err, &validationErr) {
		WriteError(w, http.StatusBadRequest, "validation_error", validationErr.Message)
		return
	}

	switch {
	case errors.Is(err, domain.ErrVenueNotFound):
		WriteError(w, http.StatusNotFound, "venue_not_found", err.Error())
	case errors.Is(err, domain.ErrOrderNotFound):
		WriteError(w, http.StatusNotFound, "order_not_found", err.Error())
	case errors.Is(err, domain.ErrNoMarket):
		WriteError(w, http.StatusConflict, "no_market", err.Error())
	case errors.Is(err, domain.ErrInvalidPrice),
		errors.Is(err, domain.ErrInvalidQuantity),
		errors.Is(err, domain.ErrInvalidSide),
		errors.Is(err, domain.ErrDuplicateOrder):
		WriteError(w, http.StatusBadRequest, "validation_error", err.Error())
	default:
		WriteError(w, http.StatusInternalServerError, "internal_error", "An unexpected error occurred")
	}
}
