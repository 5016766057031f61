// Package triagem provides a Go client for the triage queue coordinator.
// It owns one persistent websocket connection per participant and hides
// the reconnect dance behind lifecycle callbacks.
package triagem

import (
	"encoding/json"
	"errors"
	"net/url"
	"sync"
	"time"

	"saude-ja/triagem/triage-queue-server/pkg/msg"

	"github.com/gorilla/websocket"
)

var (
	// ErrNotConnected is returned by Send while the connection is down.
	// Nothing sent on a disconnected client ever silently succeeds.
	ErrNotConnected = errors.New("connection is down")
)

// Handler receives the raw payload of one subscribed event.
type Handler func(data json.RawMessage)

type Options struct {
	// URL of the coordinator ws endpoint, e.g. ws://localhost:4000/ws.
	URL string

	// Token from the main server; resolved to an identity on connect.
	Token string

	// Reconnection budget. After MaxRetries failed attempts the client
	// reports a terminal disconnect and stops.
	MaxRetries int
	BaseWait   time.Duration
	MaxWait    time.Duration

	OnConnected    func()
	OnReconnected  func(attempts int)
	OnDisconnected func()
}

type handlerEntry struct {
	id int
	fn Handler
}

type Client struct {
	opts Options

	mu        sync.Mutex
	conn      *websocket.Conn
	connected bool

	handlersMu    sync.Mutex
	handlers      map[msg.EventCode][]handlerEntry
	nextHandlerId int

	// Hooks run after a successful reconnect, before OnReconnected.
	// Used by Doctor and Patient to resynchronize state.
	resyncHooks []func(attempts int)

	done      chan struct{}
	closeOnce sync.Once
}

// New builds a client without connecting. Subscribe handlers and attach
// Doctor/Patient flows before calling Connect.
func New(opts Options) *Client {
	if opts.MaxRetries == 0 {
		opts.MaxRetries = 5
	}
	if opts.BaseWait == 0 {
		opts.BaseWait = 500 * time.Millisecond
	}
	if opts.MaxWait == 0 {
		opts.MaxWait = 8 * time.Second
	}

	return &Client{
		opts:     opts,
		handlers: make(map[msg.EventCode][]handlerEntry),
		done:     make(chan struct{}),
	}
}

// Connect dials the coordinator and starts the read loop.
func (c *Client) Connect() error {
	conn, err := c.dial()
	if err != nil {
		return err
	}

	c.mu.Lock()
	c.conn = conn
	c.connected = true
	c.mu.Unlock()

	if c.opts.OnConnected != nil {
		c.opts.OnConnected()
	}

	go c.readLoop()
	return nil
}

func (c *Client) dial() (*websocket.Conn, error) {
	u, err := url.Parse(c.opts.URL)
	if err != nil {
		return nil, err
	}
	query := u.Query()
	query.Set("token", c.opts.Token)
	u.RawQuery = query.Encode()

	conn, _, err := websocket.DefaultDialer.Dial(u.String(), nil)
	return conn, err
}

// Send emits one event to the coordinator. Fails with ErrNotConnected
// while the connection is down so the caller can observe the failure and
// re-issue the intent after recovery.
func (c *Client) Send(code msg.EventCode, event interface{}) error {
	rawEvent, err := json.Marshal(event)
	if err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.connected {
		return ErrNotConnected
	}
	return c.conn.WriteJSON(&msg.WsMessage{
		EventCode: code,
		EventData: rawEvent,
	})
}

// Subscribe registers a handler for an event code and returns the
// matching unsubscribe. Callers register on entry and unsubscribe on
// exit so remounted views never receive duplicate deliveries.
func (c *Client) Subscribe(code msg.EventCode, fn Handler) func() {
	c.handlersMu.Lock()
	c.nextHandlerId++
	id := c.nextHandlerId
	c.handlers[code] = append(c.handlers[code], handlerEntry{id: id, fn: fn})
	c.handlersMu.Unlock()

	return func() {
		c.handlersMu.Lock()
		defer c.handlersMu.Unlock()

		entries := c.handlers[code]
		for i := range entries {
			if entries[i].id == id {
				c.handlers[code] = append(entries[:i:i], entries[i+1:]...)
				return
			}
		}
	}
}

func (c *Client) Close() {
	c.closeOnce.Do(func() {
		close(c.done)
	})

	c.mu.Lock()
	defer c.mu.Unlock()
	c.connected = false
	if c.conn != nil {
		c.conn.Close()
	}
}

func (c *Client) addReconnectHook(fn func(attempts int)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.resyncHooks = append(c.resyncHooks, fn)
}

func (c *Client) readLoop() {
	for {
		c.mu.Lock()
		conn := c.conn
		c.mu.Unlock()

		wsMessage := &msg.WsMessage{}
		if err := conn.ReadJSON(wsMessage); err != nil {
			select {
			case <-c.done:
				return
			default:
			}

			c.mu.Lock()
			c.connected = false
			c.mu.Unlock()

			if !c.reconnect() {
				if c.opts.OnDisconnected != nil {
					c.opts.OnDisconnected()
				}
				return
			}
			continue
		}

		c.dispatch(wsMessage)
	}
}

func (c *Client) dispatch(wsMessage *msg.WsMessage) {
	c.handlersMu.Lock()
	entries := append([]handlerEntry(nil), c.handlers[wsMessage.EventCode]...)
	c.handlersMu.Unlock()

	for _, entry := range entries {
		entry.fn(wsMessage.EventData)
	}
}

// reconnect retries with capped exponential backoff until the attempt
// budget runs out. Reports true after a successful redial.
func (c *Client) reconnect() bool {
	for attempt := 1; attempt <= c.opts.MaxRetries; attempt++ {
		select {
		case <-c.done:
			return false
		case <-time.After(backoffWait(attempt, c.opts.BaseWait, c.opts.MaxWait)):
		}

		conn, err := c.dial()
		if err != nil {
			continue
		}

		c.mu.Lock()
		c.conn = conn
		c.connected = true
		hooks := append(([]func(int))(nil), c.resyncHooks...)
		c.mu.Unlock()

		for _, hook := range hooks {
			hook(attempt)
		}
		if c.opts.OnReconnected != nil {
			c.opts.OnReconnected(attempt)
		}
		return true
	}
	return false
}

// backoffWait returns the delay before the given 1-based attempt,
// doubling from base and capped at max.
func backoffWait(attempt int, base, max time.Duration) time.Duration {
	wait := base
	for i := 1; i < attempt; i++ {
		wait *= 2
		if wait >= max {
			return max
		}
	}
	if wait > max {
		return max
	}
	return wait
}
