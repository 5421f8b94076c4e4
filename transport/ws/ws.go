// Package ws implements the transport contracts over WebSocket, one
// connection per peer. Envelopes travel as JSON text frames.
package ws

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/crosstate/storesync/syncmsg"
	"github.com/crosstate/storesync/transport"
)

const (
	// Time allowed to write a message to the remote endpoint.
	writeWait = 10 * time.Second

	// Maximum envelope size accepted from the remote endpoint.
	maxMessageSize = 512 * 1024
)

// nameParam carries the connection name in the handshake URL query.
const nameParam = "name"

// Listener accepts peer connections over WebSocket. It implements
// transport.Listener and http.Handler; mount it on any mux.
type Listener struct {
	upgrader websocket.Upgrader
	logger   *slog.Logger

	mu       sync.Mutex
	handlers []func(port transport.Port)
}

// NewListener creates a WebSocket listener. A nil logger falls back to
// slog.Default().
func NewListener(logger *slog.Logger) *Listener {
	if logger == nil {
		logger = slog.Default()
	}
	return &Listener{
		upgrader: websocket.Upgrader{
			// Peers are local contexts of the same application, not
			// browsers from arbitrary origins.
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		logger: logger,
	}
}

func (l *Listener) HandleConnection(fn func(port transport.Port)) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.handlers = append(l.handlers, fn)
}

func (l *Listener) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := l.upgrader.Upgrade(w, r, nil)
	if err != nil {
		l.logger.Warn("websocket upgrade failed", slog.String("error", err.Error()))
		return
	}

	port := newPort(conn, r.URL.Query().Get(nameParam))

	l.mu.Lock()
	handlers := make([]func(port transport.Port), len(l.handlers))
	copy(handlers, l.handlers)
	l.mu.Unlock()

	for _, fn := range handlers {
		fn(port)
	}

	// Handlers registered their listeners above; now pump until the
	// connection drops.
	port.readPump(l.logger)
}

// Dialer opens WebSocket connections to a hub listener. It implements
// transport.Dialer.
type Dialer struct {
	url    string
	logger *slog.Logger
}

// NewDialer creates a Dialer targeting the hub's WebSocket endpoint, e.g.
// "ws://localhost:8743/sync".
func NewDialer(hubURL string, logger *slog.Logger) *Dialer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Dialer{url: hubURL, logger: logger}
}

func (d *Dialer) Connect(name string) (transport.Port, error) {
	u, err := url.Parse(d.url)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", d.url, err)
	}
	q := u.Query()
	q.Set(nameParam, name)
	u.RawQuery = q.Encode()

	conn, _, err := websocket.DefaultDialer.Dial(u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", d.url, err)
	}

	port := newPort(conn, name)
	go port.readPump(d.logger)
	return port, nil
}

type port struct {
	name string
	conn *websocket.Conn

	// writeMu serializes writes; gorilla connections allow one writer.
	writeMu sync.Mutex

	mu           sync.Mutex
	closed       bool
	onMessage    []func(env syncmsg.Envelope)
	onDisconnect []func()
	backlog      []syncmsg.Envelope
}

func newPort(conn *websocket.Conn, name string) *port {
	conn.SetReadLimit(maxMessageSize)
	return &port{name: name, conn: conn}
}

func (p *port) Name() string {
	return p.name
}

// OnMessage registers a listener. Envelopes read before the first listener
// was registered are flushed to it in arrival order, so nothing sent
// between dial and listener registration is lost.
func (p *port) OnMessage(fn func(env syncmsg.Envelope)) {
	p.mu.Lock()
	p.onMessage = append(p.onMessage, fn)
	backlog := p.backlog
	p.backlog = nil
	p.mu.Unlock()

	for _, env := range backlog {
		fn(env)
	}
}

func (p *port) OnDisconnect(fn func()) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.onDisconnect = append(p.onDisconnect, fn)
}

func (p *port) PostMessage(env syncmsg.Envelope) error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return transport.ErrClosed
	}
	p.mu.Unlock()

	p.writeMu.Lock()
	defer p.writeMu.Unlock()

	p.conn.SetWriteDeadline(time.Now().Add(writeWait))
	if err := p.conn.WriteJSON(env); err != nil {
		return fmt.Errorf("post message: %w", err)
	}
	return nil
}

func (p *port) Close() error {
	err := p.conn.Close()
	p.disconnect()
	return err
}

func (p *port) readPump(logger *slog.Logger) {
	defer func() {
		p.conn.Close()
		p.disconnect()
	}()

	for {
		_, raw, err := p.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				logger.Debug("websocket read ended",
					slog.String("connection", p.name),
					slog.String("error", err.Error()))
			}
			return
		}

		// Frames that are not envelopes are unrelated channel traffic.
		var env syncmsg.Envelope
		if err := json.Unmarshal(raw, &env); err != nil {
			continue
		}

		p.mu.Lock()
		if len(p.onMessage) == 0 {
			p.backlog = append(p.backlog, env)
			p.mu.Unlock()
			continue
		}
		listeners := make([]func(env syncmsg.Envelope), len(p.onMessage))
		copy(listeners, p.onMessage)
		p.mu.Unlock()

		for _, fn := range listeners {
			fn(env)
		}
	}
}

func (p *port) disconnect() {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return
	}
	p.closed = true
	listeners := make([]func(), len(p.onDisconnect))
	copy(listeners, p.onDisconnect)
	p.mu.Unlock()

	for _, fn := range listeners {
		fn()
	}
}
