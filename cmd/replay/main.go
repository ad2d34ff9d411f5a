// Command replay drives an order book from a CSV of recorded market
// orders and reports matching statistics.
package main

import (
	"flag"
	"log/slog"
	"os"

	"github.com/efreitasn/tradecore/internal/engine"
	"github.com/efreitasn/tradecore/internal/replay"
)

func main() {
	path := flag.String("file", "market_data.csv", "CSV file of recorded orders (is_buy,price,quantity)")
	symbol := flag.String("symbol", "BTC-USD", "symbol of the replayed book")
	verbose := flag.Bool("v", false, "log every replayed order")
	flag.Parse()

	logLevel := slog.LevelInfo
	if *verbose {
		logLevel = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: logLevel,
	}))

	f, err := os.Open(*path)
	if err != nil {
		logger.Error("failed to open market data", slog.String("error", err.Error()))
		os.Exit(1)
	}
	defer f.Close()

	book := engine.NewOrderBook(*symbol)
	stats, err := replay.RunReader(book, f, logger)
	if err != nil {
		logger.Error("replay failed", slog.String("error", err.Error()))
		os.Exit(1)
	}

	perOrder := float64(stats.Elapsed.Microseconds())
	if stats.Orders > 0 {
		perOrder /= float64(stats.Orders)
	}
	logger.Info("replay finished",
		slog.Int("orders", stats.Orders),
		slog.Int("trades", stats.Trades),
		slog.Int64("volume", stats.Volume),
		slog.Duration("elapsed", stats.Elapsed),
		slog.Float64("us_per_order", perOrder),
	)
}
