// Package replay drives an order book from recorded market data, for
// backtesting and benchmarking the matcher against historical flow.
package replay

import (
	"encoding/csv"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"time"

	"github.com/shopspring/decimal"

	"github.com/efreitasn/tradecore/internal/domain"
	"github.com/efreitasn/tradecore/internal/engine"
)

// Stats summarizes one replay run.
type Stats struct {
	Orders  int
	Trades  int
	Volume  int64 // total quantity traded
	Elapsed time.Duration
}

// Record is one recorded market order.
type Record struct {
	Side     domain.Side
	Price    float64
	Quantity int64
}

// ReadRecords parses recorded market data in CSV form with columns
// is_buy,price,quantity. A header row is expected and skipped.
func ReadRecords(r io.Reader) ([]Record, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = 3
	cr.TrimLeadingSpace = true

	rows, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("read market data: %w", err)
	}
	if len(rows) == 0 {
		return nil, nil
	}

	records := make([]Record, 0, len(rows)-1)
	for i, row := range rows[1:] {
		rec, err := parseRow(row)
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", i+2, err)
		}
		records = append(records, rec)
	}
	return records, nil
}

func parseRow(row []string) (Record, error) {
	isBuy, err := strconv.Atoi(row[0])
	if err != nil {
		return Record{}, fmt.Errorf("parse is_buy %q: %w", row[0], err)
	}
	side := domain.SideSell
	if isBuy == 1 {
		side = domain.SideBuy
	}

	price, err := decimal.NewFromString(row[1])
	if err != nil {
		return Record{}, fmt.Errorf("parse price %q: %w", row[1], err)
	}
	quantity, err := strconv.ParseInt(row[2], 10, 64)
	if err != nil {
		return Record{}, fmt.Errorf("parse quantity %q: %w", row[2], err)
	}

	return Record{Side: side, Price: price.InexactFloat64(), Quantity: quantity}, nil
}

// Run replays records into book in order, assigning sequential order
// ids starting at 1. It stops at the first order the book rejects.
func Run(book *engine.OrderBook, records []Record, logger *slog.Logger) (Stats, error) {
	if logger == nil {
		logger = slog.Default()
	}

	var stats Stats
	start := time.Now()

	for i, rec := range records {
		id := uint64(i + 1)
		trades, err := book.AddOrder(id, rec.Price, rec.Quantity, rec.Side)
		if err != nil {
			return stats, fmt.Errorf("order %d: %w", id, err)
		}
		stats.Orders++
		stats.Trades += len(trades)
		for _, t := range trades {
			stats.Volume += t.Quantity
		}

		logger.Debug("order replayed",
			"order_id", id,
			"side", rec.Side,
			"price", rec.Price,
			"quantity", rec.Quantity,
			"trades", len(trades),
			"best_bid", book.BestBid(),
			"best_ask", book.BestAsk(),
		)
	}

	stats.Elapsed = time.Since(start)
	return stats, nil
}

// RunReader reads records from r and replays them into book.
func RunReader(book *engine.OrderBook, r io.Reader, logger *slog.Logger) (Stats, error) {
	records, err := ReadRecords(r)
	if err != nil {
		return Stats{}, err
	}
	return Run(book, records, logger)
}
