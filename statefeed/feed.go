// Package statefeed broadcasts read-only world snapshots to WebSocket
// subscribers. Subscribers never mutate simulation state; incoming
// messages are drained and discarded.
package statefeed

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/pthm-cable/broth/sim"
)

const (
	// Time allowed to write a snapshot to the peer.
	writeWait = 10 * time.Second
	// Time allowed to read the next pong message from the peer.
	pongWait = 60 * time.Second
	// Send pings with this period. Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(*http.Request) bool { return true },
}

// client is one subscriber connection.
type client struct {
	conn *websocket.Conn
	send chan []byte
}

// Feed maintains the set of subscribers and broadcasts snapshots to them.
// Slow subscribers are dropped rather than allowed to stall the feed.
type Feed struct {
	log *zap.Logger

	clients    map[*client]bool
	broadcast  chan []byte
	register   chan *client
	unregister chan *client

	mu     sync.Mutex
	server *http.Server
	done   chan struct{}
}

// New creates a feed serving on addr.
func New(addr string, log *zap.Logger) *Feed {
	f := &Feed{
		log:        log,
		clients:    make(map[*client]bool),
		broadcast:  make(chan []byte, 1),
		register:   make(chan *client),
		unregister: make(chan *client),
		done:       make(chan struct{}),
	}
	mux := http.NewServeMux()
	mux.HandleFunc("/feed", f.handleConn)
	f.server = &http.Server{Addr: addr, Handler: mux}
	return f
}

// Start begins listening and serving subscribers in the background.
func (f *Feed) Start() {
	go f.run()
	go func() {
		if err := f.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			f.log.Error("state feed server failed", zap.Error(err))
		}
	}()
	f.log.Info("state feed listening", zap.String("addr", f.server.Addr))
}

// Handler returns the HTTP handler, for serving through an existing mux.
func (f *Feed) Handler() http.Handler {
	return f.server.Handler
}

// Run starts only the hub loop, for use with Handler when the HTTP server
// is managed elsewhere.
func (f *Feed) Run() {
	go f.run()
}

func (f *Feed) run() {
	for {
		select {
		case <-f.done:
			for c := range f.clients {
				close(c.send)
				c.conn.Close()
			}
			return
		case c := <-f.register:
			f.clients[c] = true
			f.log.Debug("subscriber connected", zap.Int("subscribers", len(f.clients)))
		case c := <-f.unregister:
			if _, ok := f.clients[c]; ok {
				delete(f.clients, c)
				close(c.send)
			}
		case msg := <-f.broadcast:
			for c := range f.clients {
				select {
				case c.send <- msg:
				default:
					// Slow subscriber: drop it.
					delete(f.clients, c)
					close(c.send)
				}
			}
		}
	}
}

// Broadcast serializes a world snapshot and queues it for all subscribers.
// If the previous snapshot has not been consumed yet it is replaced; the
// feed always carries the freshest state.
func (f *Feed) Broadcast(view sim.WorldView) {
	payload, err := json.Marshal(view)
	if err != nil {
		f.log.Error("marshaling world snapshot", zap.Error(err))
		return
	}
	for {
		select {
		case f.broadcast <- payload:
			return
		default:
			select {
			case <-f.broadcast: // discard the stale snapshot
			default:
			}
		}
	}
}

func (f *Feed) handleConn(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		f.log.Warn("websocket upgrade failed", zap.Error(err))
		return
	}
	c := &client{conn: conn, send: make(chan []byte, 16)}
	f.register <- c
	go f.writePump(c)
	go f.readPump(c)
}

// writePump sends queued snapshots and pings to one subscriber.
func (f *Feed) writePump(c *client) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()
	for {
		select {
		case msg, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// readPump drains incoming messages. The feed is read-only; anything the
// subscriber sends is discarded, but the pump is required for close and
// pong handling.
func (f *Feed) readPump(c *client) {
	defer func() {
		select {
		case f.unregister <- c:
		case <-f.done:
		}
		c.conn.Close()
	}()
	c.conn.SetReadLimit(512)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}

// Shutdown stops the hub loop and the HTTP server.
func (f *Feed) Shutdown(ctx context.Context) error {
	f.mu.Lock()
	select {
	case <-f.done:
	default:
		close(f.done)
	}
	f.mu.Unlock()
	return f.server.Shutdown(ctx)
}
