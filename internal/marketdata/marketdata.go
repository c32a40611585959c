// Package marketdata broadcasts read-only top-of-book snapshots over
// WebSocket, fed from orderbook.OrderBook.SnapshotTop. It never mutates
// the book and never sits on the producer->parser->engine->logger hot
// path: it is a side channel the engine stage pushes a snapshot into once
// per processed request, same as the original's separation between
// matching and any downstream observer.
//
// Grounded on pkg/websocket/server.go: a client registry (here a
// mutex-guarded map, not register/unregister/broadcast channels) and one
// goroutine per connection pumping its outbound queue, trimmed to the
// single "orderbook" channel this package serves.
package marketdata

import (
	"encoding/json"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"

	"github.com/luxfi/log"

	"github.com/vss84/hft-playpen/internal/orderbook"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// TopOfBookUpdate is the JSON payload pushed to every connected client.
type TopOfBookUpdate struct {
	Symbol    string                `json:"symbol"`
	Bids      []orderbook.LevelInfo `json:"bids"`
	Asks      []orderbook.LevelInfo `json:"asks"`
	Sequence  uint64                `json:"sequence"`
}

// client wraps one WebSocket connection and its outbound send queue.
type client struct {
	conn *websocket.Conn
	send chan []byte
}

// Broadcaster maintains a set of connected clients and fans out snapshots
// pushed via Publish.
type Broadcaster struct {
	symbol string
	logger log.Logger

	clientsMu sync.RWMutex
	clients   map[*client]struct{}
}

// New creates a Broadcaster for symbol.
func New(symbol string, logger log.Logger) *Broadcaster {
	return &Broadcaster{
		symbol:  symbol,
		logger:  logger,
		clients: make(map[*client]struct{}),
	}
}

// ServeHTTP upgrades the connection to WebSocket and registers it for
// broadcast. It never reads application messages from the client: this
// feed is read-only.
func (b *Broadcaster) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		b.logger.Error("websocket upgrade failed", "error", err)
		return
	}

	c := &client{conn: conn, send: make(chan []byte, 16)}

	b.clientsMu.Lock()
	b.clients[c] = struct{}{}
	b.clientsMu.Unlock()

	go b.writePump(c)
}

func (b *Broadcaster) writePump(c *client) {
	defer func() {
		b.clientsMu.Lock()
		delete(b.clients, c)
		b.clientsMu.Unlock()
		c.conn.Close()
	}()

	for msg := range c.send {
		if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
			return
		}
	}
}

// Publish fans a top-of-book snapshot out to every connected client.
// Clients whose send queue is full are skipped rather than blocking the
// caller, since this is a best-effort observability feed, not a
// guaranteed-delivery channel.
func (b *Broadcaster) Publish(snap orderbook.Snapshot) {
	update := TopOfBookUpdate{
		Symbol:   b.symbol,
		Bids:     snap.Bids,
		Asks:     snap.Asks,
		Sequence: snap.Seq,
	}

	data, err := json.Marshal(update)
	if err != nil {
		b.logger.Error("marshaling top-of-book update failed", "error", err)
		return
	}

	b.clientsMu.RLock()
	defer b.clientsMu.RUnlock()

	for c := range b.clients {
		select {
		case c.send <- data:
		default:
		}
	}
}

// ClientCount returns the number of currently connected clients.
func (b *Broadcaster) ClientCount() int {
	b.clientsMu.RLock()
	defer b.clientsMu.RUnlock()
	return len(b.clients)
}
