// Package transport owns the single persistent WebSocket connection of a
// chat identity. It announces the identity on every (re)connect, turns
// server frames into session events, and redials with exponential backoff
// when the connection drops.
package transport

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/net/websocket"
	"golang.org/x/sync/errgroup"

	"kabiseo/internal/logging"
	"kabiseo/internal/protocol"
	"kabiseo/internal/session"
)

var (
	// ErrNotConnected is returned by Send while no connection is up. Nothing
	// is queued.
	ErrNotConnected = errors.New("transport: not connected")

	// ErrClosed is returned once Close has been called.
	ErrClosed = errors.New("transport: closed")
)

// Config controls dialing and reconnection.
type Config struct {
	URL         string
	Origin      string
	DialTimeout time.Duration

	InitialInterval time.Duration
	MaxInterval     time.Duration
	Multiplier      float64

	// EventBuffer is the capacity of the Events channel.
	EventBuffer int
}

// DefaultConfig returns the settings used when none are configured.
func DefaultConfig() Config {
	return Config{
		URL:             "ws://localhost:5000/ws",
		Origin:          "http://localhost/",
		DialTimeout:     10 * time.Second,
		InitialInterval: 500 * time.Millisecond,
		MaxInterval:     30 * time.Second,
		Multiplier:      1.6,
		EventBuffer:     64,
	}
}

// Client is a reconnecting chat connection for one identity.
type Client struct {
	cfg    Config
	id     session.Identity
	logger *zap.Logger

	events chan session.Event

	mu      sync.Mutex
	conn    *websocket.Conn
	cancel  context.CancelFunc
	started bool
	closed  bool

	writeMu   sync.Mutex
	connected atomic.Bool
	done      chan struct{}
	closeOnce sync.Once
}

// New builds a client. It does not dial until Start is called.
func New(cfg Config, id session.Identity, logger *zap.Logger) *Client {
	def := DefaultConfig()
	if cfg.DialTimeout <= 0 {
		cfg.DialTimeout = def.DialTimeout
	}
	if cfg.InitialInterval <= 0 {
		cfg.InitialInterval = def.InitialInterval
	}
	if cfg.MaxInterval <= 0 {
		cfg.MaxInterval = def.MaxInterval
	}
	if cfg.Multiplier < 1 {
		cfg.Multiplier = def.Multiplier
	}
	if cfg.EventBuffer <= 0 {
		cfg.EventBuffer = def.EventBuffer
	}
	if cfg.Origin == "" {
		cfg.Origin = def.Origin
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{
		cfg:    cfg,
		id:     id,
		logger: logger,
		events: make(chan session.Event, cfg.EventBuffer),
		done:   make(chan struct{}),
	}
}

// Events delivers transport events in arrival order. The channel is closed
// when the client shuts down.
func (c *Client) Events() <-chan session.Event {
	return c.events
}

// Connected reports whether a joined connection is currently up.
func (c *Client) Connected() bool {
	return c.connected.Load()
}

// Start launches the connection loop. It returns immediately; connection
// progress is reported on Events.
func (c *Client) Start(ctx context.Context) error {
	if c.id.Empty() {
		return fmt.Errorf("transport: start: empty identity")
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return ErrClosed
	}
	if c.started {
		return nil
	}
	runCtx, cancel := context.WithCancel(ctx)
	c.cancel = cancel
	c.started = true

	go c.run(runCtx)
	return nil
}

// Close tears the connection down for good and waits for the loop to
// exit. Events still buffered are discarded. Close is idempotent.
func (c *Client) Close() error {
	c.closeOnce.Do(func() {
		c.mu.Lock()
		c.closed = true
		started := c.started
		cancel := c.cancel
		c.mu.Unlock()

		if !started {
			close(c.done)
			close(c.events)
			return
		}
		cancel()
		<-c.done
		for range c.events {
		}
	})
	return nil
}

// Send dispatches a user_message carrying value.
func (c *Client) Send(ctx context.Context, value string) error {
	f, err := protocol.UserMessage(c.id, value)
	if err != nil {
		return err
	}
	return c.write(ctx, f)
}

// RequestHistory asks the server to replay the transcript.
func (c *Client) RequestHistory(ctx context.Context) error {
	f, err := protocol.RequestHistory(c.id)
	if err != nil {
		return err
	}
	return c.write(ctx, f)
}

func (c *Client) write(ctx context.Context, f protocol.Frame) error {
	c.mu.Lock()
	conn, closed := c.conn, c.closed
	c.mu.Unlock()
	if closed {
		return ErrClosed
	}
	if conn == nil || !c.connected.Load() {
		return ErrNotConnected
	}
	return c.writeFrame(ctx, conn, f)
}

func (c *Client) writeFrame(ctx context.Context, conn *websocket.Conn, f protocol.Frame) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	if deadline, ok := ctx.Deadline(); ok {
		_ = conn.SetWriteDeadline(deadline)
		defer conn.SetWriteDeadline(time.Time{})
	}
	if err := websocket.JSON.Send(conn, f); err != nil {
		return fmt.Errorf("write %s: %w", f.Event, err)
	}
	return nil
}

// =============================================================================
// CONNECTION LOOP
// =============================================================================

func (c *Client) newBackOff() *backoff.ExponentialBackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = c.cfg.InitialInterval
	b.MaxInterval = c.cfg.MaxInterval
	b.Multiplier = c.cfg.Multiplier
	return b
}

func (c *Client) run(ctx context.Context) {
	defer close(c.done)
	defer close(c.events)

	b := c.newBackOff()
	offline := false

	for {
		joined, err := c.connectOnce(ctx, b)
		if ctx.Err() != nil {
			c.logger.Debug("connection loop stopped")
			return
		}
		// One Disconnected per outage, not per failed redial.
		if joined || !offline {
			offline = true
			c.emit(ctx, session.Disconnected{Err: err})
		}

		wait := b.NextBackOff()
		if wait == backoff.Stop {
			wait = c.cfg.MaxInterval
		}
		c.logger.Info("reconnecting", zap.Error(err), zap.Duration("wait", wait))

		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case <-timer.C:
		}
	}
}

// connectOnce dials, joins and pumps one connection until it fails. joined
// reports whether the identity was announced; err explains why the
// connection ended.
func (c *Client) connectOnce(ctx context.Context, b *backoff.ExponentialBackOff) (joined bool, err error) {
	connID := uuid.NewString()
	log := c.logger.With(zap.String("conn", connID), zap.String("url", c.cfg.URL))

	timer := logging.StartTimer(logging.CategoryTransport, "dial and join")
	conn, err := c.dial(ctx)
	if err != nil {
		log.Warn("dial failed", zap.Error(err))
		return false, err
	}

	join, err := protocol.Join(c.id)
	if err != nil {
		_ = conn.Close()
		return false, err
	}
	if err := c.writeFrame(ctx, conn, join); err != nil {
		_ = conn.Close()
		log.Warn("join failed", zap.Error(err))
		return false, err
	}

	timer.StopWithThreshold(c.cfg.DialTimeout / 2)

	c.mu.Lock()
	c.conn = conn
	c.mu.Unlock()
	c.connected.Store(true)
	b.Reset()
	log.Info("connected")
	c.emit(ctx, session.Connected{})

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return c.readPump(gctx, conn, log)
	})
	g.Go(func() error {
		<-gctx.Done()
		return conn.Close()
	})
	err = g.Wait()

	c.connected.Store(false)
	c.mu.Lock()
	c.conn = nil
	c.mu.Unlock()
	log.Info("disconnected", zap.Error(err))

	return true, err
}

func (c *Client) dial(ctx context.Context) (*websocket.Conn, error) {
	wsCfg, err := websocket.NewConfig(c.cfg.URL, c.cfg.Origin)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", c.cfg.URL, err)
	}
	dctx, cancel := context.WithTimeout(ctx, c.cfg.DialTimeout)
	defer cancel()

	conn, err := wsCfg.DialContext(dctx)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", c.cfg.URL, err)
	}
	return conn, nil
}

// readPump decodes frames until the connection fails. Unknown or malformed
// frames are logged and skipped.
func (c *Client) readPump(ctx context.Context, conn *websocket.Conn, log *zap.Logger) error {
	for {
		var raw []byte
		if err := websocket.Message.Receive(conn, &raw); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return fmt.Errorf("read: %w", err)
		}

		var f protocol.Frame
		if err := json.Unmarshal(raw, &f); err != nil {
			log.Warn("dropping malformed frame", zap.Error(err), zap.Int("bytes", len(raw)))
			continue
		}
		ev, err := protocol.Decode(f)
		if err != nil {
			if errors.Is(err, protocol.ErrUnknownEvent) {
				log.Debug("ignoring event", zap.String("event", f.Event))
			} else {
				log.Warn("dropping undecodable frame", zap.String("event", f.Event), zap.Error(err))
			}
			continue
		}
		if !c.emit(ctx, ev) {
			return ctx.Err()
		}
	}
}

// emit delivers an event unless the client is shutting down.
func (c *Client) emit(ctx context.Context, ev session.Event) bool {
	select {
	case <-ctx.Done():
		return false
	default:
	}
	select {
	case c.events <- ev:
		return true
	case <-ctx.Done():
		return false
	}
}
