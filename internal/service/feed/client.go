package feed

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"DexPilot/internal/domain/models"
	drepo "DexPilot/internal/domain/repository"

	"github.com/gorilla/websocket"
)

// Client implements a SnapshotStream backed by the aggregator gateway's
// WebSocket, which fans in order book snapshots from the configured venues.
type Client struct {
	apiKey         string
	websocketURL   string
	pairs          []string
	reconnectDelay time.Duration
	pingInterval   time.Duration

	conn      *websocket.Conn
	connected bool
}

// New creates a new snapshot stream client.
func New(apiKey, websocketURL string, pairs []string, reconnectDelay, pingInterval time.Duration) drepo.SnapshotStream {
	return &Client{
		apiKey:         apiKey,
		websocketURL:   websocketURL,
		pairs:          pairs,
		reconnectDelay: reconnectDelay,
		pingInterval:   pingInterval,
	}
}

// Connect establishes the WebSocket connection.
func (c *Client) Connect(ctx context.Context) error {
	u := fmt.Sprintf("%s?token=%s", c.websocketURL, c.apiKey)
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, u, nil)
	if err != nil {
		return fmt.Errorf("feed connect: %w", err)
	}
	c.conn = conn
	c.connected = true
	log.Printf("feed: connected")
	return nil
}

// Subscribe subscribes to configured pairs.
func (c *Client) Subscribe(ctx context.Context) error {
	if c.conn == nil || !c.connected {
		return fmt.Errorf("feed not connected")
	}
	for _, p := range c.pairs {
		msg := map[string]string{"type": "subscribe", "pair": p}
		if err := c.conn.WriteJSON(msg); err != nil {
			return fmt.Errorf("subscribe %s: %w", p, err)
		}
		log.Printf("feed: subscribed %s", p)
	}
	return nil
}

type wsLevel struct {
	P float64 `json:"p"`
	S float64 `json:"s"`
}

type wsSnapshot struct {
	Venue string    `json:"venue"`
	Pair  string    `json:"pair"`
	T     int64     `json:"t"` // ms
	Bids  []wsLevel `json:"bids"`
	Asks  []wsLevel `json:"asks"`
	Last  float64   `json:"last"`
	Vol   float64   `json:"vol24h"`
	Liq   float64   `json:"pool_liquidity"`
	Disc  float64   `json:"discrepancy"`
}

type wsMessage struct {
	Type string       `json:"type"`
	Data []wsSnapshot `json:"data"`
}

// Read streams MarketSnapshot events and errors.
func (c *Client) Read(ctx context.Context) (<-chan *models.MarketSnapshot, <-chan error) {
	snaps := make(chan *models.MarketSnapshot, 1024)
	errs := make(chan error, 1)

	// ping loop
	go func() {
		ticker := time.NewTicker(c.pingInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if c.conn != nil {
					_ = c.conn.WriteMessage(websocket.PingMessage, nil)
				}
			}
		}
	}()

	// read loop
	go func() {
		defer close(snaps)
		defer close(errs)
		for {
			select {
			case <-ctx.Done():
				return
			default:
				if c.conn == nil {
					errs <- fmt.Errorf("feed conn nil")
					return
				}
				_, b, err := c.conn.ReadMessage()
				if err != nil {
					errs <- fmt.Errorf("feed read: %w", err)
					return
				}
				var m wsMessage
				if err := json.Unmarshal(b, &m); err != nil {
					// ignore non-snapshot frames
					continue
				}
				if m.Type != "snapshot" {
					continue
				}
				for _, d := range m.Data {
					snap := convertSnapshot(d)
					select {
					case snaps <- snap:
					default:
						// drop on backpressure
					}
				}
			}
		}
	}()

	return snaps, errs
}

func convertSnapshot(d wsSnapshot) *models.MarketSnapshot {
	snap := &models.MarketSnapshot{
		Venue:            d.Venue,
		Pair:             d.Pair,
		Timestamp:        time.Unix(0, d.T*int64(time.Millisecond)).UTC(),
		LastPrice:        d.Last,
		Volume24h:        d.Vol,
		PoolLiquidity:    d.Liq,
		PriceDiscrepancy: d.Disc,
	}
	for _, l := range d.Bids {
		snap.Bids = append(snap.Bids, models.PriceLevel{Price: l.P, Size: l.S})
	}
	for _, l := range d.Asks {
		snap.Asks = append(snap.Asks, models.PriceLevel{Price: l.P, Size: l.S})
	}
	return snap
}

// Reconnect closes and reconnects.
func (c *Client) Reconnect(ctx context.Context) error {
	_ = c.Close()
	time.Sleep(c.reconnectDelay)
	if err := c.Connect(ctx); err != nil {
		return err
	}
	return c.Subscribe(ctx)
}

// Close closes the WS connection.
func (c *Client) Close() error {
	c.connected = false
	if c.conn != nil {
		return c.conn.Close()
	}
	return nil
}

// IsConnected indicates status.
func (c *Client) IsConnected() bool { return c.connected }
