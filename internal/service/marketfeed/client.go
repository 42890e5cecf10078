package marketfeed

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"sync"
	"time"

	"Quorum/internal/domain/models"
	drepo "Quorum/internal/domain/repository"

	"github.com/gorilla/websocket"
)

// Client implements a MarketStream over a WebSocket tick feed. Incoming
// ticks are folded into a bounded per-symbol window; every tick emits a
// fresh MarketContext snapshot so downstream consumers never see shared
// mutable state.
type Client struct {
	apiKey         string
	websocketURL   string
	symbols        []string
	reconnectDelay time.Duration
	pingInterval   time.Duration
	windowSize     int

	conn      *websocket.Conn
	connected bool

	mu      sync.Mutex
	windows map[string][]models.PricePoint
}

// New creates a feed client. windowSize bounds the per-symbol price window
// carried in each snapshot.
func New(apiKey, websocketURL string, symbols []string, reconnectDelay, pingInterval time.Duration, windowSize int) drepo.MarketStream {
	if windowSize <= 0 {
		windowSize = 60
	}
	return &Client{
		apiKey:         apiKey,
		websocketURL:   websocketURL,
		symbols:        symbols,
		reconnectDelay: reconnectDelay,
		pingInterval:   pingInterval,
		windowSize:     windowSize,
		windows:        make(map[string][]models.PricePoint),
	}
}

// Connect establishes the WebSocket connection.
func (c *Client) Connect(ctx context.Context) error {
	u := c.websocketURL
	if c.apiKey != "" {
		u = fmt.Sprintf("%s?token=%s", c.websocketURL, c.apiKey)
	}
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, u, nil)
	if err != nil {
		return fmt.Errorf("feed connect: %w", err)
	}
	c.conn = conn
	c.connected = true
	log.Printf("marketfeed: connected")
	return nil
}

// Subscribe subscribes to the configured symbols.
func (c *Client) Subscribe(ctx context.Context) error {
	if c.conn == nil || !c.connected {
		return fmt.Errorf("marketfeed not connected")
	}
	for _, s := range c.symbols {
		msg := map[string]string{"type": "subscribe", "symbol": s}
		if err := c.conn.WriteJSON(msg); err != nil {
			return fmt.Errorf("subscribe %s: %w", s, err)
		}
		log.Printf("marketfeed: subscribed %s", s)
	}
	return nil
}

type feedTick struct {
	S string  `json:"s"`
	P float64 `json:"p"`
	V float64 `json:"v"`
	T int64   `json:"t"` // ms
}

type feedMessage struct {
	Type string     `json:"type"`
	Data []feedTick `json:"data"`
}

// Read streams MarketContext snapshots and errors.
func (c *Client) Read(ctx context.Context) (<-chan *models.MarketContext, <-chan error) {
	snapshots := make(chan *models.MarketContext, 256)
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
		defer close(snapshots)
		defer close(errs)
		for {
			select {
			case <-ctx.Done():
				return
			default:
				if c.conn == nil {
					errs <- fmt.Errorf("marketfeed conn nil")
					return
				}
				_, b, err := c.conn.ReadMessage()
				if err != nil {
					errs <- fmt.Errorf("marketfeed read: %w", err)
					return
				}
				var m feedMessage
				if err := json.Unmarshal(b, &m); err != nil {
					// ignore non-tick frames
					continue
				}
				if m.Type != "trade" {
					continue
				}
				for _, d := range m.Data {
					snap := c.fold(d)
					if snap == nil {
						continue
					}
					select {
					case snapshots <- snap:
					default:
						// drop on backpressure; the next tick carries a
						// fresher snapshot anyway
					}
				}
			}
		}
	}()

	return snapshots, errs
}

// fold appends a tick to its symbol window and builds a value snapshot.
func (c *Client) fold(d feedTick) *models.MarketContext {
	if d.S == "" || d.P <= 0 {
		return nil
	}
	ts := time.UnixMilli(d.T)
	if d.T == 0 {
		ts = time.Now()
	}

	c.mu.Lock()
	win := append(c.windows[d.S], models.PricePoint{Price: d.P, Volume: d.V, Time: ts})
	if len(win) > c.windowSize {
		win = win[len(win)-c.windowSize:]
	}
	c.windows[d.S] = win
	snapshot := make([]models.PricePoint, len(win))
	copy(snapshot, win)
	c.mu.Unlock()

	return &models.MarketContext{
		Symbol:    d.S,
		Price:     d.P,
		Window:    snapshot,
		Timestamp: ts,
	}
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
