// Package feed subscribes to the server-pushed change feed of notification
// records and tracks connection health.
package feed

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	wslib "github.com/coder/websocket"
	"github.com/sethvargo/go-retry"

	"github.com/oakledger/beacon/internal/model"
	"github.com/oakledger/beacon/internal/ws"
)

// defaultBackoff is the delay between a transport error and the next
// subscribe attempt; the monitor flips to reconnecting when the attempt
// starts.
const defaultBackoff = 5 * time.Second

// RecordHandler receives feed records in arrival order, on the feed's
// goroutine.
type RecordHandler func(model.Record)

// Conn is the narrow connection surface the client needs, satisfied by a
// real WebSocket and by test fakes.
type Conn interface {
	Read(ctx context.Context) ([]byte, error)
	Write(ctx context.Context, data []byte) error
	Close() error
}

// Dialer opens a feed connection.
type Dialer func(ctx context.Context, url, token string) (Conn, error)

// Config holds the feed subscription parameters. Dialer defaults to the
// real WebSocket Dial; tests inject a fake.
type Config struct {
	URL     string
	Token   string
	UserID  string
	Backoff time.Duration
	Dialer  Dialer
}

// Client owns one feed subscription: it dials, performs the subscribe
// handshake, dispatches records, and resubscribes after transport errors
// until stopped.
type Client struct {
	cfg      Config
	monitor  *Monitor
	onRecord RecordHandler
	dial     Dialer
	logger   *slog.Logger

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

// NewClient creates a feed client. onStatus may be nil.
func NewClient(cfg Config, onRecord RecordHandler, onStatus StatusCallback, logger *slog.Logger) *Client {
	if cfg.Backoff <= 0 {
		cfg.Backoff = defaultBackoff
	}
	if cfg.Dialer == nil {
		cfg.Dialer = Dial
	}
	return &Client{
		cfg:      cfg,
		monitor:  NewMonitor(onStatus, logger),
		onRecord: onRecord,
		dial:     cfg.Dialer,
		logger:   logger,
	}
}

// State returns the current connection state.
func (c *Client) State() model.ConnectionState {
	return c.monitor.State()
}

// Start opens the subscription and keeps it alive until Stop or ctx
// cancellation. No-op if already running.
func (c *Client) Start(ctx context.Context) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.cancel != nil {
		return
	}

	runCtx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	c.cancel = cancel
	c.done = done

	go c.run(runCtx, done)
}

// Stop tears down the subscription and resets the state to disconnected.
// Safe to call more than once.
func (c *Client) Stop() {
	c.mu.Lock()
	cancel := c.cancel
	done := c.done
	c.cancel = nil
	c.done = nil
	c.mu.Unlock()

	if cancel == nil {
		return
	}
	cancel()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		c.logger.Warn("feed stop timed out")
	}
}

func (c *Client) run(ctx context.Context, done chan struct{}) {
	defer close(done)

	b := retry.NewConstant(c.cfg.Backoff)
	_ = retry.Do(ctx, b, func(ctx context.Context) error {
		err := c.session(ctx)
		c.monitor.Set(model.StateDisconnected)
		if ctx.Err() != nil {
			return ctx.Err()
		}
		c.logger.Warn("feed session ended", "error", err)
		return retry.RetryableError(err)
	})
	c.monitor.Set(model.StateDisconnected)
}

// session runs one feed connection: dial, subscribe, ack, then read until
// the transport fails or ctx is cancelled.
func (c *Client) session(ctx context.Context) error {
	c.monitor.Set(model.StateReconnecting)

	conn, err := c.dial(ctx, c.cfg.URL, c.cfg.Token)
	if err != nil {
		return fmt.Errorf("dial feed: %w", err)
	}
	defer conn.Close()

	sub, err := json.Marshal(ws.Frame{Type: ws.FrameSubscribe, UserID: c.cfg.UserID})
	if err != nil {
		return fmt.Errorf("marshal subscribe: %w", err)
	}
	if err := conn.Write(ctx, sub); err != nil {
		return fmt.Errorf("send subscribe: %w", err)
	}

	for {
		data, err := conn.Read(ctx)
		if err != nil {
			return fmt.Errorf("read feed: %w", err)
		}

		var f ws.Frame
		if err := json.Unmarshal(data, &f); err != nil {
			c.logger.Warn("malformed feed frame", "error", err)
			continue
		}

		switch f.Type {
		case ws.FrameAck:
			c.monitor.Set(model.StateConnected)
		case ws.FrameNotification:
			if f.Record != nil {
				c.onRecord(*f.Record)
			}
		case ws.FrameError:
			return fmt.Errorf("feed error: %s", f.Error)
		default:
			c.logger.Debug("ignoring feed frame", "type", f.Type)
		}
	}
}

// wsConn adapts a coder/websocket connection to Conn.
type wsConn struct {
	conn *wslib.Conn
}

func (w *wsConn) Read(ctx context.Context) ([]byte, error) {
	_, data, err := w.conn.Read(ctx)
	return data, err
}

func (w *wsConn) Write(ctx context.Context, data []byte) error {
	return w.conn.Write(ctx, wslib.MessageText, data)
}

func (w *wsConn) Close() error {
	return w.conn.Close(wslib.StatusNormalClosure, "")
}

// Dial opens a real WebSocket feed connection with bearer auth.
func Dial(ctx context.Context, url, token string) (Conn, error) {
	header := http.Header{}
	if token != "" {
		header.Set("Authorization", "Bearer "+token)
	}
	conn, _, err := wslib.Dial(ctx, url, &wslib.DialOptions{HTTPHeader: header})
	if err != nil {
		return nil, err
	}
	return &wsConn{conn: conn}, nil
}
