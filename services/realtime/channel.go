package realtime

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/avast/retry-go/v4"
	"github.com/gorilla/websocket"

	"watchdeck/models"
)

// ErrNoToken is returned when Start is called without a session token; the
// channel is only ever opened for an authenticated session.
var ErrNoToken = errors.New("no session token")

const (
	handshakeTimeout = 10 * time.Second
	writeWait        = 10 * time.Second
	pongWait         = 60 * time.Second
	pingPeriod       = 54 * time.Second
	initialBackoff   = time.Second
)

// Handler receives decoded events. Implementations must be safe for calls
// from the channel's read goroutine.
type Handler interface {
	HandleItemUpdate(item models.WatchlistItem)
	HandleItemDelete(id int64)
	HandleWatchlistSync(items []models.WatchlistItem)
	HandleNotification(n models.Notification)
	HandleNotificationState(state models.NotificationState)
}

// Config carries the connection settings for the sync channel.
type Config struct {
	URL        string        // ws(s) endpoint, see URLFromBase
	Token      func() string // bearer token source, consulted per dial
	DeviceID   string        // identifies this client in the handshake
	MaxBackoff time.Duration // reconnect delay cap, default 30s
}

// Status is a point-in-time view of the channel for introspection.
type Status struct {
	Connected   bool      `json:"connected"`
	Reconnects  int       `json:"reconnects"`
	LastEventAt time.Time `json:"lastEventAt,omitempty"`
}

// Channel maintains one websocket connection to the server's event stream
// and keeps it alive across drops with exponential backoff. Missed events
// are not replayed; a full reload is the way to catch up after a long gap.
type Channel struct {
	cfg     Config
	handler Handler

	mu          sync.Mutex
	cancel      context.CancelFunc
	done        chan struct{}
	connected   bool
	reconnects  int
	lastEventAt time.Time
}

// New creates a channel. Nothing connects until Start.
func New(cfg Config, handler Handler) *Channel {
	if cfg.MaxBackoff <= 0 {
		cfg.MaxBackoff = 30 * time.Second
	}
	if cfg.Token == nil {
		cfg.Token = func() string { return "" }
	}
	return &Channel{cfg: cfg, handler: handler}
}

// URLFromBase derives the websocket endpoint from the server's HTTP base
// URL.
func URLFromBase(base string) string {
	base = strings.TrimRight(base, "/")
	switch {
	case strings.HasPrefix(base, "https://"):
		base = "wss://" + strings.TrimPrefix(base, "https://")
	case strings.HasPrefix(base, "http://"):
		base = "ws://" + strings.TrimPrefix(base, "http://")
	}
	return base + "/ws"
}

// Start launches the connection loop. It requires a session token and is a
// no-op when the loop is already running.
func (c *Channel) Start(ctx context.Context) error {
	if c.cfg.Token() == "" {
		return ErrNoToken
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.cancel != nil {
		return nil
	}
	runCtx, cancel := context.WithCancel(ctx)
	c.cancel = cancel
	c.done = make(chan struct{})
	go c.run(runCtx, c.done)
	return nil
}

// Stop tears the connection down and waits for the loop to exit.
func (c *Channel) Stop() {
	c.mu.Lock()
	cancel := c.cancel
	done := c.done
	c.cancel = nil
	c.done = nil
	c.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	if done != nil {
		<-done
	}
}

// Connected reports whether a connection is currently live.
func (c *Channel) Connected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.connected
}

// Status returns connection state for the status endpoint.
func (c *Channel) Status() Status {
	c.mu.Lock()
	defer c.mu.Unlock()
	return Status{
		Connected:   c.connected,
		Reconnects:  c.reconnects,
		LastEventAt: c.lastEventAt,
	}
}

// run dials with exponential backoff, listens until the connection drops,
// then starts over with a fresh backoff. It exits when ctx is cancelled.
func (c *Channel) run(ctx context.Context, done chan struct{}) {
	defer close(done)

	for ctx.Err() == nil {
		var conn *websocket.Conn
		err := retry.Do(
			func() error {
				dialed, err := c.dial(ctx)
				if err != nil {
					return err
				}
				conn = dialed
				return nil
			},
			retry.Context(ctx),
			retry.Attempts(0),
			retry.Delay(initialBackoff),
			retry.MaxDelay(c.cfg.MaxBackoff),
			retry.DelayType(retry.BackOffDelay),
			retry.LastErrorOnly(true),
			retry.OnRetry(func(n uint, err error) {
				log.Printf("[realtime] connect attempt %d failed: %v", n+1, err)
			}),
		)
		if err != nil {
			return
		}

		c.setConnected(true)
		log.Printf("[realtime] connected to %s", c.cfg.URL)
		c.listen(ctx, conn)
		c.setConnected(false)

		if ctx.Err() == nil {
			c.mu.Lock()
			c.reconnects++
			c.mu.Unlock()
			log.Printf("[realtime] connection lost, reconnecting")
		}
	}
}

func (c *Channel) dial(ctx context.Context) (*websocket.Conn, error) {
	header := http.Header{}
	header.Set("Authorization", "Bearer "+c.cfg.Token())
	if c.cfg.DeviceID != "" {
		header.Set("X-Device-ID", c.cfg.DeviceID)
	}

	dialer := websocket.Dialer{HandshakeTimeout: handshakeTimeout}
	conn, resp, err := dialer.DialContext(ctx, c.cfg.URL, header)
	if resp != nil && resp.Body != nil {
		resp.Body.Close()
	}
	return conn, err
}

// listen pumps events until the connection fails or ctx is cancelled.
func (c *Channel) listen(ctx context.Context, conn *websocket.Conn) {
	sessionCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	// Closing the conn is the only way to unblock ReadMessage.
	go func() {
		<-sessionCtx.Done()
		_ = conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
			time.Now().Add(writeWait))
		conn.Close()
	}()

	go c.pingLoop(sessionCtx, conn)

	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if ctx.Err() == nil && !websocket.IsCloseError(err, websocket.CloseNormalClosure) {
				log.Printf("[realtime] read: %v", err)
			}
			return
		}
		c.dispatch(data)
	}
}

func (c *Channel) pingLoop(ctx context.Context, conn *websocket.Conn) {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
				return
			}
		}
	}
}

// dispatch decodes one frame and routes it. Malformed frames and unknown
// event types are logged and skipped; they never kill the connection.
func (c *Channel) dispatch(data []byte) {
	var event models.Event
	if err := json.Unmarshal(data, &event); err != nil {
		log.Printf("[realtime] malformed frame: %v", err)
		return
	}

	c.mu.Lock()
	c.lastEventAt = time.Now()
	c.mu.Unlock()

	switch event.Type {
	case models.EventWatchlistUpdate:
		var item models.WatchlistItem
		if err := json.Unmarshal(event.Payload, &item); err != nil {
			log.Printf("[realtime] bad %s payload: %v", event.Type, err)
			return
		}
		c.handler.HandleItemUpdate(item)

	case models.EventWatchlistDelete:
		var payload models.DeletePayload
		if err := json.Unmarshal(event.Payload, &payload); err != nil {
			log.Printf("[realtime] bad %s payload: %v", event.Type, err)
			return
		}
		c.handler.HandleItemDelete(payload.ID)

	case models.EventWatchlistSync:
		var items []models.WatchlistItem
		if err := json.Unmarshal(event.Payload, &items); err != nil {
			log.Printf("[realtime] bad %s payload: %v", event.Type, err)
			return
		}
		c.handler.HandleWatchlistSync(items)

	case models.EventNotificationNew:
		var n models.Notification
		if err := json.Unmarshal(event.Payload, &n); err != nil {
			log.Printf("[realtime] bad %s payload: %v", event.Type, err)
			return
		}
		c.handler.HandleNotification(n)

	case models.EventNotificationRead, models.EventNotificationReadAll, models.EventNotificationDelete:
		var payload struct {
			ID string `json:"id"`
		}
		if len(event.Payload) > 0 {
			if err := json.Unmarshal(event.Payload, &payload); err != nil {
				log.Printf("[realtime] bad %s payload: %v", event.Type, err)
				return
			}
		}
		c.handler.HandleNotificationState(models.NotificationState{
			Action: notificationAction(event.Type),
			ID:     payload.ID,
		})

	default:
		log.Printf("[realtime] unknown event type %q", event.Type)
	}
}

func notificationAction(eventType string) string {
	switch eventType {
	case models.EventNotificationRead:
		return models.NotificationActionRead
	case models.EventNotificationReadAll:
		return models.NotificationActionReadAll
	case models.EventNotificationDelete:
		return models.NotificationActionDelete
	}
	return ""
}

func (c *Channel) setConnected(v bool) {
	c.mu.Lock()
	c.connected = v
	c.mu.Unlock()
}
