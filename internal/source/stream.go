package source

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/wrenwealth/Archantum/internal/domain/models"
	"github.com/wrenwealth/Archantum/pkg/logger"

	"github.com/gorilla/websocket"
)

// tokenRef resolves an exchange token id back to the market outcome it
// prices.
type tokenRef struct {
	marketID  string
	outcomeID string
}

// StreamClient implements a StreamSource backed by the exchange market
// WebSocket channel. It keeps the most recent reading per market; writes
// with a stale sequence number are dropped rather than reordered.
type StreamClient struct {
	url            string
	reconnectDelay time.Duration
	pingInterval   time.Duration
	log            *logger.Logger

	mu        sync.RWMutex
	conn      *websocket.Conn
	connected bool
	seq       uint64
	latest    map[string]models.Reading
	tokens    map[string]tokenRef
	assetIDs  []string
}

// NewStreamClient creates a stream source for the given WebSocket endpoint.
func NewStreamClient(url string, reconnectDelay, pingInterval time.Duration, log *logger.Logger) *StreamClient {
	return &StreamClient{
		url:            url,
		reconnectDelay: reconnectDelay,
		pingInterval:   pingInterval,
		log:            log,
		latest:         make(map[string]models.Reading),
		tokens:         make(map[string]tokenRef),
	}
}

// Connect establishes the WebSocket connection and starts the read and ping
// loops.
func (c *StreamClient) Connect(ctx context.Context) error {
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, c.url, nil)
	if err != nil {
		return fmt.Errorf("stream connect: %w", err)
	}

	c.mu.Lock()
	c.conn = conn
	c.connected = true
	c.mu.Unlock()

	go c.pingLoop(ctx)
	go c.readLoop(ctx)

	c.log.Info("stream: connected", logger.String("url", c.url))
	return nil
}

// Subscribe registers the outcome tokens of the given markets on the market
// channel. The token index is rebuilt so readings from markets no longer
// tracked stop accumulating.
func (c *StreamClient) Subscribe(ctx context.Context, markets []*models.Market) error {
	c.mu.Lock()
	if c.conn == nil || !c.connected {
		c.mu.Unlock()
		return fmt.Errorf("stream not connected")
	}

	tokens := make(map[string]tokenRef)
	assetIDs := make([]string, 0, len(markets)*2)
	for _, m := range markets {
		for _, o := range m.Outcomes {
			if o.TokenID == "" {
				continue
			}
			tokens[o.TokenID] = tokenRef{marketID: m.ID, outcomeID: o.ID}
			assetIDs = append(assetIDs, o.TokenID)
		}
	}
	c.tokens = tokens
	c.assetIDs = assetIDs
	conn := c.conn
	c.mu.Unlock()

	msg := map[string]interface{}{
		"type":       "market",
		"assets_ids": assetIDs,
	}
	if err := conn.WriteJSON(msg); err != nil {
		return fmt.Errorf("stream subscribe: %w", err)
	}

	c.log.Info("stream: subscribed", logger.Int("tokens", len(assetIDs)))
	return nil
}

// Latest returns the most recent reading for a market.
func (c *StreamClient) Latest(marketID string) (models.Reading, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	r, ok := c.latest[marketID]
	return r, ok
}

// Reconnect closes and re-establishes the connection, then resubscribes the
// current token set.
func (c *StreamClient) Reconnect(ctx context.Context) error {
	_ = c.Close()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(c.reconnectDelay):
	}

	conn, _, err := websocket.DefaultDialer.DialContext(ctx, c.url, nil)
	if err != nil {
		return fmt.Errorf("stream reconnect: %w", err)
	}

	c.mu.Lock()
	c.conn = conn
	c.connected = true
	assetIDs := c.assetIDs
	c.mu.Unlock()

	go c.pingLoop(ctx)
	go c.readLoop(ctx)

	if len(assetIDs) > 0 {
		msg := map[string]interface{}{
			"type":       "market",
			"assets_ids": assetIDs,
		}
		if err := conn.WriteJSON(msg); err != nil {
			return fmt.Errorf("stream resubscribe: %w", err)
		}
	}

	c.log.Info("stream: reconnected", logger.Int("tokens", len(assetIDs)))
	return nil
}

// IsConnected indicates status.
func (c *StreamClient) IsConnected() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.connected
}

// Close closes the WebSocket connection.
func (c *StreamClient) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.connected = false
	if c.conn != nil {
		err := c.conn.Close()
		c.conn = nil
		return err
	}
	return nil
}

// streamFrame covers the price-bearing events on the market channel. Book
// snapshots and trade prints both collapse to a per-token price.
type streamFrame struct {
	EventType string `json:"event_type"`
	AssetID   string `json:"asset_id"`
	Price     string `json:"price"`
	Timestamp string `json:"timestamp"` // ms epoch
}

func (c *StreamClient) pingLoop(ctx context.Context) {
	ticker := time.NewTicker(c.pingInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			c.mu.RLock()
			conn, connected := c.conn, c.connected
			c.mu.RUnlock()
			if conn == nil || !connected {
				return
			}
			_ = conn.WriteMessage(websocket.PingMessage, nil)
		}
	}
}

func (c *StreamClient) readLoop(ctx context.Context) {
	c.mu.RLock()
	conn := c.conn
	c.mu.RUnlock()
	if conn == nil {
		return
	}

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		_, b, err := conn.ReadMessage()
		if err != nil {
			c.mu.Lock()
			if c.conn == conn {
				c.connected = false
			}
			c.mu.Unlock()
			if ctx.Err() == nil {
				c.log.Warn("stream: read failed", logger.Error(err))
			}
			return
		}

		// Frames arrive both as single objects and as arrays.
		var frames []streamFrame
		if err := json.Unmarshal(b, &frames); err != nil {
			var one streamFrame
			if err := json.Unmarshal(b, &one); err != nil {
				continue
			}
			frames = []streamFrame{one}
		}

		for _, f := range frames {
			c.apply(f)
		}
	}
}

func (c *StreamClient) apply(f streamFrame) {
	if f.EventType != "price_change" && f.EventType != "last_trade_price" {
		return
	}

	price, err := strconv.ParseFloat(f.Price, 64)
	if err != nil || price < 0 || price > 1 {
		return
	}

	observedAt := time.Now()
	if ms, err := strconv.ParseInt(f.Timestamp, 10, 64); err == nil && ms > 0 {
		observedAt = time.UnixMilli(ms)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	ref, ok := c.tokens[f.AssetID]
	if !ok {
		return
	}

	prev, exists := c.latest[ref.marketID]
	if exists && observedAt.Before(prev.ObservedAt) {
		// Reconnect replays can deliver old frames again; the exchange
		// timestamp is the only ordering the wire carries.
		return
	}
	c.seq++

	prices := map[string]float64{ref.outcomeID: price}
	if exists {
		for id, p := range prev.Prices {
			if id != ref.outcomeID {
				prices[id] = p
			}
		}
	}

	c.latest[ref.marketID] = models.Reading{
		MarketID:   ref.marketID,
		Prices:     prices,
		Source:     models.SourceStream,
		Seq:        c.seq,
		ObservedAt: observedAt,
	}
}
