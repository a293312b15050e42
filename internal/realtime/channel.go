// Package realtime keeps the websocket connection that delivers live ride
// events to a signed-in user.
package realtime

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"sync"
	"sync/atomic"
	"time"

	ws "github.com/coder/websocket"
	"github.com/goccy/go-json"
	"github.com/sethvargo/go-retry"

	"github.com/dukerupert/carpool/internal/metrics"
	"github.com/dukerupert/carpool/internal/model"
)

const (
	EventNewRide    = "new_ride"
	EventJoinRides  = "join_rides"
	EventLeaveRides = "leave_rides"

	DefaultMaxUpdates = 500

	pingInterval     = 30 * time.Second
	dialTimeout      = 10 * time.Second
	readLimit        = 1 << 20
	subscriberBuffer = 32
)

// Envelope is the wire format of every message in both directions.
type Envelope struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

type Event struct {
	Name       string
	Data       json.RawMessage
	ReceivedAt time.Time
}

// Ride decodes the event payload as a ride.
func (e Event) Ride() (model.Ride, error) {
	var r model.Ride
	if err := json.Unmarshal(e.Data, &r); err != nil {
		return model.Ride{}, fmt.Errorf("decode %s: %w", e.Name, err)
	}
	return r, nil
}

// TokenSource supplies the bearer token sent when dialing.
type TokenSource interface {
	Token() string
}

type Options struct {
	URL               string
	MaxUpdates        int
	ReconnectAttempts uint64 // 0 disables automatic reconnect
	ReconnectBase     time.Duration
	ReconnectMax      time.Duration
	Metrics           *metrics.Metrics
}

// Channel is a single logical realtime connection. At most one underlying
// websocket is open at a time.
type Channel struct {
	opts   Options
	tokens TokenSource
	logger *slog.Logger

	mu            sync.Mutex
	conn          *ws.Conn
	stop          context.CancelFunc
	stopReconnect context.CancelFunc
	connected     bool

	// gen identifies the current connection; read loops and reconnect
	// attempts belonging to an older one give up.
	gen atomic.Uint64

	updMu   sync.RWMutex
	updates []Event
	subs    map[chan Event]struct{}
}

func New(opts Options, tokens TokenSource, logger *slog.Logger) *Channel {
	if opts.MaxUpdates <= 0 {
		opts.MaxUpdates = DefaultMaxUpdates
	}
	if opts.ReconnectBase <= 0 {
		opts.ReconnectBase = time.Second
	}
	if opts.ReconnectMax <= 0 {
		opts.ReconnectMax = 30 * time.Second
	}
	return &Channel{
		opts:   opts,
		tokens: tokens,
		logger: logger.With("component", "realtime"),
		subs:   make(map[chan Event]struct{}),
	}
}

// Connect closes any open connection, dials a new one with the current
// token and joins the rides group.
func (c *Channel) Connect(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closeLocked()
	return c.dialLocked(ctx)
}

func (c *Channel) dialLocked(ctx context.Context) error {
	u, err := url.Parse(c.opts.URL)
	if err != nil {
		return fmt.Errorf("parse realtime url: %w", err)
	}
	if tok := c.tokens.Token(); tok != "" {
		q := u.Query()
		q.Set("token", tok)
		u.RawQuery = q.Encode()
	}

	dialCtx, cancel := context.WithTimeout(ctx, dialTimeout)
	defer cancel()
	conn, _, err := ws.Dial(dialCtx, u.String(), nil)
	if err != nil {
		c.connected = false
		return fmt.Errorf("dial realtime: %w", err)
	}
	conn.SetReadLimit(readLimit)

	loopCtx, stop := context.WithCancel(context.Background())
	gen := c.gen.Add(1)
	c.conn = conn
	c.stop = stop
	c.connected = true
	c.opts.Metrics.RealtimeConnected(true)
	c.logger.Info("connected", "url", c.opts.URL)

	go c.readLoop(loopCtx, conn, gen)
	go c.pingLoop(loopCtx, conn)

	if err := c.sendLocked(ctx, EventJoinRides); err != nil {
		c.logger.Warn("failed to join rides group", "error", err)
	}
	return nil
}

// Disconnect closes the connection. It is safe to call when already
// disconnected and cancels any pending reconnect.
func (c *Channel) Disconnect() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closeLocked()
}

func (c *Channel) closeLocked() {
	c.gen.Add(1)
	if c.stopReconnect != nil {
		c.stopReconnect()
		c.stopReconnect = nil
	}
	if c.conn == nil {
		c.connected = false
		return
	}

	conn, stop := c.conn, c.stop
	c.conn, c.stop, c.connected = nil, nil, false
	if err := conn.Close(ws.StatusNormalClosure, "disconnect"); err != nil {
		c.logger.Debug("close", "error", err)
	}
	stop()
	c.opts.Metrics.RealtimeConnected(false)
	c.logger.Info("disconnected")
}

func (c *Channel) Connected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.connected
}

// JoinGroup subscribes to ride broadcasts. A no-op while disconnected.
func (c *Channel) JoinGroup(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.sendLocked(ctx, EventJoinRides)
}

// LeaveGroup stops ride broadcasts. A no-op while disconnected.
func (c *Channel) LeaveGroup(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.sendLocked(ctx, EventLeaveRides)
}

func (c *Channel) sendLocked(ctx context.Context, event string) error {
	if !c.connected || c.conn == nil {
		return nil
	}
	data, err := json.Marshal(Envelope{Event: event})
	if err != nil {
		return fmt.Errorf("marshal %s: %w", event, err)
	}
	if err := c.conn.Write(ctx, ws.MessageText, data); err != nil {
		return fmt.Errorf("send %s: %w", event, err)
	}
	return nil
}

func (c *Channel) readLoop(ctx context.Context, conn *ws.Conn, gen uint64) {
	for {
		_, data, err := conn.Read(ctx)
		if err != nil {
			c.dropped(gen, err)
			return
		}
		c.handle(data)
	}
}

func (c *Channel) pingLoop(ctx context.Context, conn *ws.Conn) {
	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if err := conn.Ping(ctx); err != nil {
				return
			}
		case <-ctx.Done():
			return
		}
	}
}

// dropped runs when a read fails. Deliberate closes have already moved gen
// on, so only unexpected drops get here.
func (c *Channel) dropped(gen uint64, err error) {
	if c.gen.Load() != gen {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.gen.Load() != gen {
		return
	}

	c.logger.Warn("connection lost", "status", ws.CloseStatus(err), "error", err)
	if c.conn != nil {
		c.conn.CloseNow()
	}
	if c.stop != nil {
		c.stop()
	}
	c.conn, c.stop, c.connected = nil, nil, false
	c.opts.Metrics.RealtimeConnected(false)

	if c.opts.ReconnectAttempts == 0 {
		return
	}
	ctx, cancel := context.WithCancel(context.Background())
	c.stopReconnect = cancel
	go c.reconnect(ctx, gen)
}

func (c *Channel) reconnect(ctx context.Context, gen uint64) {
	b := retry.NewExponential(c.opts.ReconnectBase)
	b = retry.WithCappedDuration(c.opts.ReconnectMax, b)
	b = retry.WithMaxRetries(c.opts.ReconnectAttempts, b)

	attempt := 0
	err := retry.Do(ctx, b, func(ctx context.Context) error {
		c.mu.Lock()
		defer c.mu.Unlock()
		if c.gen.Load() != gen || c.connected {
			return nil
		}
		attempt++
		if err := c.dialLocked(ctx); err != nil {
			c.logger.Debug("reconnect attempt failed", "attempt", attempt, "error", err)
			return retry.RetryableError(err)
		}
		return nil
	})
	if err != nil && !errors.Is(err, context.Canceled) {
		c.logger.Error("reconnect gave up", "attempts", attempt, "error", err)
	}
}

func (c *Channel) handle(data []byte) {
	var env Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		c.logger.Warn("discarding malformed message", "error", err)
		return
	}
	c.opts.Metrics.RealtimeEvent(env.Event)
	ev := Event{Name: env.Event, Data: env.Data, ReceivedAt: time.Now()}

	c.updMu.Lock()
	defer c.updMu.Unlock()
	if ev.Name == EventNewRide {
		c.updates = append(c.updates, ev)
		if over := len(c.updates) - c.opts.MaxUpdates; over > 0 {
			c.updates = append([]Event(nil), c.updates[over:]...)
		}
	}
	for ch := range c.subs {
		select {
		case ch <- ev:
		default:
			// subscriber is behind; drop rather than stall the read loop
		}
	}
}

// Updates returns the received ride events, oldest first.
func (c *Channel) Updates() []Event {
	c.updMu.RLock()
	defer c.updMu.RUnlock()
	out := make([]Event, len(c.updates))
	copy(out, c.updates)
	return out
}

func (c *Channel) ClearUpdates() {
	c.updMu.Lock()
	c.updates = nil
	c.updMu.Unlock()
}

// Subscribe returns a channel receiving every event and a function that
// ends the subscription.
func (c *Channel) Subscribe() (<-chan Event, func()) {
	ch := make(chan Event, subscriberBuffer)
	c.updMu.Lock()
	c.subs[ch] = struct{}{}
	c.updMu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			c.updMu.Lock()
			delete(c.subs, ch)
			close(ch)
			c.updMu.Unlock()
		})
	}
}
