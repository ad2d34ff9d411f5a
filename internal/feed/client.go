package feed

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/gorilla/websocket"
	"github.com/shopspring/decimal"

	"github.com/efreitasn/tradecore/internal/domain"
	"github.com/efreitasn/tradecore/internal/venue"
)

const (
	initialReconnectDelay = time.Second
	maxReconnectDelay     = 30 * time.Second
)

// DepthUpdate is a depth-stream message. Prices and quantities arrive
// as decimal strings in [price, quantity] pairs.
type DepthUpdate struct {
	EventType string     `json:"e"`
	EventTime int64      `json:"E"` // milliseconds since epoch
	Symbol    string     `json:"s"`
	Bids      [][]string `json:"b"`
	Asks      [][]string `json:"a"`
}

// Client consumes a depth stream over a websocket and mirrors it into
// a live venue's book.
type Client struct {
	url    string
	live   *venue.Live
	sync   *LevelSync
	logger *slog.Logger
}

// NewClient creates a Client that feeds live's book from the depth
// stream at url.
func NewClient(url string, live *venue.Live, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		url:    url,
		live:   live,
		sync:   NewLevelSync(live.Book()),
		logger: logger,
	}
}

// Run connects to the stream and processes updates until ctx is
// cancelled, reconnecting with exponential backoff on failure.
func (c *Client) Run(ctx context.Context) error {
	delay := initialReconnectDelay
	for {
		err := c.consume(ctx)
		if ctx.Err() != nil {
			return ctx.Err()
		}
		c.logger.Warn("feed disconnected", "url", c.url, "error", err, "retry_in", delay)

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
		}
		delay = min(delay*2, maxReconnectDelay)
	}
}

func (c *Client) consume(ctx context.Context) error {
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, c.url, nil)
	if err != nil {
		return fmt.Errorf("dial %s: %w", c.url, err)
	}
	defer conn.Close()

	// Unblock ReadMessage when ctx is cancelled.
	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			conn.Close()
		case <-done:
		}
	}()

	c.logger.Info("feed connected", "url", c.url)

	for {
		_, msg, err := conn.ReadMessage()
		if err != nil {
			return fmt.Errorf("read: %w", err)
		}
		if err := c.handleMessage(msg); err != nil {
			c.logger.Warn("feed message dropped", "error", err)
		}
	}
}

func (c *Client) handleMessage(msg []byte) error {
	var update DepthUpdate
	if err := json.Unmarshal(msg, &update); err != nil {
		return fmt.Errorf("decode depth update: %w", err)
	}

	c.live.Touch()
	if update.EventTime > 0 {
		sent := time.UnixMilli(update.EventTime)
		if lag := time.Since(sent); lag > 0 {
			c.live.ObserveLatency(lag)
		}
	}

	if err := c.applyLevels(domain.SideBuy, update.Bids); err != nil {
		return err
	}
	return c.applyLevels(domain.SideSell, update.Asks)
}

func (c *Client) applyLevels(side domain.Side, levels [][]string) error {
	for _, lvl := range levels {
		price, quantity, err := parseLevel(lvl)
		if err != nil {
			return err
		}
		if price <= 0 || quantity < 0 {
			continue
		}
		if _, err := c.sync.Apply(side, price, quantity); err != nil {
			return fmt.Errorf("apply %v level at %v: %w", side, price, err)
		}
	}
	return nil
}

// parseLevel decodes a [price, quantity] string pair. Quantities are
// scaled into the book's integer units.
func parseLevel(lvl []string) (price float64, quantity int64, err error) {
	if len(lvl) < 2 {
		return 0, 0, fmt.Errorf("malformed level %v", lvl)
	}
	p, err := decimal.NewFromString(lvl[0])
	if err != nil {
		return 0, 0, fmt.Errorf("parse price %q: %w", lvl[0], err)
	}
	q, err := decimal.NewFromString(lvl[1])
	if err != nil {
		return 0, 0, fmt.Errorf("parse quantity %q: %w", lvl[1], err)
	}
	return p.InexactFloat64(), q.Mul(decimal.NewFromInt(quantityScale)).IntPart(), nil
}
