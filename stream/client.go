package stream

import (
	"context"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
)

// Config holds tunable parameters for a Client.
type Config struct {
	URL string

	// Buffer sizes for the underlying TCP connection.
	ReadBufferSize  int
	WriteBufferSize int

	// HeartbeatTimeout is the maximum duration of silence before the
	// client considers the connection dead and triggers a reconnect.
	HeartbeatTimeout time.Duration

	// Backoff parameters for reconnection.
	BackoffInitial time.Duration
	BackoffMax     time.Duration
	BackoffFactor  float64

	// Headers sent during the websocket handshake.
	Headers http.Header

	Logger *slog.Logger
}

// DefaultConfig returns defaults tuned for venue market-data feeds, which
// deliver at least a heartbeat every few seconds.
func DefaultConfig(url string) Config {
	return Config{
		URL:              url,
		ReadBufferSize:   4096,
		WriteBufferSize:  4096,
		HeartbeatTimeout: 30 * time.Second,
		BackoffInitial:   100 * time.Millisecond,
		BackoffMax:       10 * time.Second,
		BackoffFactor:    2.0,
	}
}

// Client is a resilient websocket connection manager. A single run loop
// owns the connection for its whole lifetime: it runs one session per
// connection, and when the session dies it redials with exponential
// backoff and starts the next one. Inbound messages fan out to
// subscribers; outbound messages are queued through Send.
type Client struct {
	cfg Config
	log *slog.Logger

	healthy atomic.Bool

	subMu sync.Mutex
	subs  []chan []byte

	outbox chan []byte

	cancel context.CancelFunc
	done   chan struct{}

	// onReconnect runs after each successful redial, so adapters can
	// replay their subscriptions.
	onReconnect func()
}

// NewClient creates a websocket client. Call Connect to start.
func NewClient(cfg Config) *Client {
	log := cfg.Logger
	if log == nil {
		log = slog.Default()
	}
	return &Client{
		cfg:    cfg,
		log:    log,
		outbox: make(chan []byte, 256),
		done:   make(chan struct{}),
	}
}

// OnReconnect registers a hook run after every successful redial.
// Must be called before Connect.
func (c *Client) OnReconnect(fn func()) { c.onReconnect = fn }

// Healthy reports whether a session is currently up.
func (c *Client) Healthy() bool { return c.healthy.Load() }

// Subscribe returns a channel receiving every inbound message. Slow
// subscribers have messages dropped rather than blocking the feed.
func (c *Client) Subscribe() <-chan []byte {
	ch := make(chan []byte, 512)
	c.subMu.Lock()
	c.subs = append(c.subs, ch)
	c.subMu.Unlock()
	return ch
}

// Send enqueues a message for delivery over the connection.
func (c *Client) Send(data []byte) {
	select {
	case c.outbox <- data:
	default:
		c.log.Warn("stream: outbox full, dropping message", "bytes", len(data))
	}
}

// Connect performs the initial dial and hands the connection to the run
// loop. It blocks until that first dial succeeds or fails; reconnection
// afterwards is the run loop's business.
func (c *Client) Connect(ctx context.Context) error {
	ctx, c.cancel = context.WithCancel(ctx)

	conn, err := c.dial(ctx)
	if err != nil {
		c.cancel()
		return err
	}

	go c.run(ctx, conn)
	return nil
}

// Close stops the run loop. The loop tears down the connection and the
// subscriber channels on its way out.
func (c *Client) Close() {
	if c.cancel != nil {
		c.cancel()
	}
}

// Done returns a channel closed when the run loop has fully shut down.
func (c *Client) Done() <-chan struct{} { return c.done }

// run owns the connection. Each iteration is one session; between
// sessions it redials until the context is cancelled.
func (c *Client) run(ctx context.Context, conn *websocket.Conn) {
	defer close(c.done)
	defer c.closeSubs()

	for {
		c.healthy.Store(true)
		c.session(ctx, conn)
		c.healthy.Store(false)

		if ctx.Err() != nil {
			return
		}

		conn = c.redial(ctx)
		if conn == nil {
			return
		}
		if c.onReconnect != nil {
			c.onReconnect()
		}
	}
}

// session reads from one connection until it dies. The read deadline
// doubles as the heartbeat monitor: silence past HeartbeatTimeout counts
// as connection death. A watchdog goroutine closes the connection when
// the session context ends, which unblocks the pending read.
func (c *Client) session(ctx context.Context, conn *websocket.Conn) {
	sctx, cancel := context.WithCancel(ctx)
	defer cancel()

	go func() {
		<-sctx.Done()
		conn.Close()
	}()
	go c.writePump(sctx, conn)

	for {
		conn.SetReadDeadline(time.Now().Add(c.cfg.HeartbeatTimeout))
		_, msg, err := conn.ReadMessage()
		if err != nil {
			if ctx.Err() == nil {
				c.log.Warn("stream: session ended", "err", err)
			}
			return
		}
		c.fanOut(msg)
	}
}

// writePump drains the outbox onto the session's connection.
func (c *Client) writePump(ctx context.Context, conn *websocket.Conn) {
	for {
		select {
		case <-ctx.Done():
			return
		case data := <-c.outbox:
			if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
				c.log.Warn("stream: write error", "err", err)
			}
		}
	}
}

// redial retries the dial with exponential backoff. It returns nil once
// the context is cancelled.
func (c *Client) redial(ctx context.Context) *websocket.Conn {
	delay := c.cfg.BackoffInitial
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-time.After(delay):
		}

		conn, err := c.dial(ctx)
		if err == nil {
			return conn
		}

		c.log.Warn("stream: redial failed", "err", err, "retry_in", delay)
		delay = time.Duration(float64(delay) * c.cfg.BackoffFactor)
		if delay > c.cfg.BackoffMax {
			delay = c.cfg.BackoffMax
		}
	}
}

// dial establishes a connection with TCP_NODELAY enabled.
func (c *Client) dial(ctx context.Context) (*websocket.Conn, error) {
	dialer := websocket.Dialer{
		ReadBufferSize:  c.cfg.ReadBufferSize,
		WriteBufferSize: c.cfg.WriteBufferSize,
		NetDialContext: func(ctx context.Context, network, addr string) (net.Conn, error) {
			d := net.Dialer{}
			conn, err := d.DialContext(ctx, network, addr)
			if err != nil {
				return nil, err
			}
			if tc, ok := conn.(*net.TCPConn); ok {
				tc.SetNoDelay(true)
			}
			return conn, nil
		},
	}

	conn, _, err := dialer.DialContext(ctx, c.cfg.URL, c.cfg.Headers)
	return conn, err
}

// fanOut delivers msg to every subscriber without blocking.
func (c *Client) fanOut(msg []byte) {
	c.subMu.Lock()
	defer c.subMu.Unlock()

	for _, ch := range c.subs {
		select {
		case ch <- msg:
		default:
			// Slow consumer, drop to avoid head-of-line blocking.
		}
	}
}

func (c *Client) closeSubs() {
	c.subMu.Lock()
	defer c.subMu.Unlock()
	for _, ch := range c.subs {
		close(ch)
	}
	c.subs = nil
}
