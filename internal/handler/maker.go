package handler

import (
	"net/http"

	"github.com/efreitasn/tradecore/internal/domain"
	"github.com/efreitasn/tradecore/internal/maker"
	"github.com/efreitasn/tradecore/internal/service"
)

// MakerHandler handles HTTP requests for the market-maker endpoints.
type MakerHandler struct {
	tradingSvc *service.TradingService
}

// NewMakerHandler creates a new MakerHandler.
func NewMakerHandler(tradingSvc *service.TradingService) *MakerHandler {
	return &MakerHandler{tradingSvc: tradingSvc}
}

// quoteResponse is one side of a quote pair.
type quoteResponse struct {
	Price    float64 `json:"price"`
	Quantity int64   `json:"quantity"`
	Side     string  `json:"side"`
	VenueID  string  `json:"venue_id"`
}

// quoteSetResponse is the JSON response for POST /maker/quotes.
type quoteSetResponse struct {
	Buy             quoteResponse `json:"buy"`
	Sell            quoteResponse `json:"sell"`
	TheoreticalEdge float64       `json:"theoretical_edge"`
}

// UpdateQuotes handles POST /maker/quotes: runs one quoting cycle and
// returns the refreshed quote pair.
func (h *MakerHandler) UpdateQuotes(w http.ResponseWriter, r *http.Request) {
	quotes, err := h.tradingSvc.MakerQuotes()
	if err != nil {
		mapError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, quoteSetResponse{
		Buy:             buildQuoteResponse(quotes.Buy),
		Sell:            buildQuoteResponse(quotes.Sell),
		TheoreticalEdge: quotes.TheoreticalEdge,
	})
}

// recordFillRequest is the JSON request body for POST /maker/fills.
type recordFillRequest struct {
	Side     string  `json:"side"`
	VenueID  string  `json:"venue_id"`
	Price    float64 `json:"price"`
	Quantity int64   `json:"quantity"`
}

// RecordFill handles POST /maker/fills: reports an execution against
// one of the maker's quotes.
func (h *MakerHandler) RecordFill(w http.ResponseWriter, r *http.Request) {
	var req recordFillRequest
	if err := ParseJSON(r, &req); err != nil {
		WriteError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}

	if err := h.tradingSvc.MakerFill(domain.Side(req.Side), req.VenueID, req.Price, req.Quantity); err != nil {
		mapError(w, err)
		return
	}

	pos, err := h.tradingSvc.MakerPosition()
	if err != nil {
		mapError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, buildPositionResponse(pos))
}

// positionResponse is the JSON response for GET /maker/position.
type positionResponse struct {
	BaseInventory  float64 `json:"base_inventory"`
	QuoteInventory float64 `json:"quote_inventory"`
	BaseValue      float64 `json:"base_value"`
	TotalValue     float64 `json:"total_value"`
	PnL            float64 `json:"pnl"`
}

// GetPosition handles GET /maker/position.
func (h *MakerHandler) GetPosition(w http.ResponseWriter, r *http.Request) {
	pos, err := h.tradingSvc.MakerPosition()
	if err != nil {
		mapError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, buildPositionResponse(pos))
}

func buildQuoteResponse(q maker.Quote) quoteResponse {
	return quoteResponse{
		Price:    q.Price,
		Quantity: q.Quantity,
		Side:     string(q.Side),
		VenueID:  q.VenueID,
	}
}

func buildPositionResponse(p maker.Position) positionResponse {
	return positionResponse{
		BaseInventory:  p.BaseInventory,
		QuoteInventory: p.QuoteInventory,
		BaseValue:      p.BaseValue,
		TotalValue:     p.TotalValue,
		PnL:            p.PnL,
	}
}
