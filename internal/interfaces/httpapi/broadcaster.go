package httpapi

import (
	"net/http"
	"sync"
	"time"

	"github.com/bytedance/sonic"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

const writeWait = 5 * time.Second

// Message is the envelope pushed to websocket clients.
type Message struct {
	Type string `json:"type"`
	Data any    `json:"data"`
}

// clientRequest is what a client may send: {"search":"solo"} sets the
// search term of that connection only.
type clientRequest struct {
	Search *string `json:"search"`
}

type wsClient struct {
	conn   *websocket.Conn
	search string
}

// Broadcaster pushes messages to every connected websocket client. Each
// connection carries its own search term.
type Broadcaster struct {
	mu       sync.Mutex
	clients  map[string]*wsClient
	upgrader websocket.Upgrader
	// greet returns the messages a new client receives right after connecting.
	greet    func() []Message
	onSearch func(term string) Message
}

func NewBroadcaster(greet func() []Message) *Broadcaster {
	return &Broadcaster{
		clients:  make(map[string]*wsClient),
		upgrader: websocket.Upgrader{CheckOrigin: func(r *http.Request) bool { return true }},
		greet:    greet,
	}
}

// OnSearch sets how a search request is answered. Must be set before
// clients connect.
func (b *Broadcaster) OnSearch(fn func(term string) Message) { b.onSearch = fn }

// Broadcast sends msg to all clients, dropping those that fail.
func (b *Broadcaster) Broadcast(msg Message) {
	payload, err := sonic.Marshal(msg)
	if err != nil {
		log.Error().Err(err).Str("type", msg.Type).Msg("encode ws message failed")
		return
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	for id, c := range b.clients {
		b.send(id, c, payload)
	}
}

// BroadcastEach renders one message per distinct client search term and
// sends each client the one matching its term.
func (b *Broadcaster) BroadcastEach(render func(term string) Message) {
	b.mu.Lock()
	defer b.mu.Unlock()

	rendered := make(map[string][]byte)
	for id, c := range b.clients {
		payload, ok := rendered[c.search]
		if !ok {
			msg := render(c.search)
			var err error
			if payload, err = sonic.Marshal(msg); err != nil {
				log.Error().Err(err).Str("type", msg.Type).Msg("encode ws message failed")
				return
			}
			rendered[c.search] = payload
		}
		b.send(id, c, payload)
	}
}

// send must be called with b.mu held.
func (b *Broadcaster) send(id string, c *wsClient, payload []byte) {
	if err := write(c.conn, payload); err != nil {
		log.Debug().Err(err).Str("client", id).Msg("websocket write failed")
		_ = c.conn.Close()
		delete(b.clients, id)
	}
}

func (b *Broadcaster) Clients() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.clients)
}

// Close disconnects every client.
func (b *Broadcaster) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	for id, c := range b.clients {
		_ = c.conn.Close()
		delete(b.clients, id)
	}
}

func write(c *websocket.Conn, payload []byte) error {
	_ = c.SetWriteDeadline(time.Now().Add(writeWait))
	return c.WriteMessage(websocket.TextMessage, payload)
}

// Handler upgrades the request and registers the connection.
func (b *Broadcaster) Handler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		conn, err := b.upgrader.Upgrade(w, r, nil)
		if err != nil {
			log.Warn().Err(err).Msg("websocket upgrade failed")
			return
		}
		id := uuid.NewString()
		// the server's read timeout must not apply to a long-lived socket
		_ = conn.SetReadDeadline(time.Time{})

		b.mu.Lock()
		if b.greet != nil {
			for _, msg := range b.greet() {
				payload, err := sonic.Marshal(msg)
				if err == nil {
					err = write(conn, payload)
				}
				if err != nil {
					b.mu.Unlock()
					_ = conn.Close()
					return
				}
			}
		}
		client := &wsClient{conn: conn}
		b.clients[id] = client
		b.mu.Unlock()
		log.Debug().Str("client", id).Msg("websocket client connected")

		go func() {
			defer func() {
				b.mu.Lock()
				delete(b.clients, id)
				b.mu.Unlock()
				_ = conn.Close()
				log.Debug().Str("client", id).Msg("websocket client disconnected")
			}()
			for {
				_, data, err := conn.ReadMessage()
				if err != nil {
					return
				}
				b.handleRequest(id, client, data)
			}
		}()
	}
}

func (b *Broadcaster) handleRequest(id string, c *wsClient, data []byte) {
	var req clientRequest
	if err := sonic.Unmarshal(data, &req); err != nil || req.Search == nil {
		log.Debug().Str("client", id).Msg("ignoring websocket message")
		return
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	c.search = *req.Search
	if b.onSearch == nil {
		return
	}
	msg := b.onSearch(c.search)
	payload, err := sonic.Marshal(msg)
	if err != nil {
		log.Error().Err(err).Str("type", msg.Type).Msg("encode ws message failed")
		return
	}
	if _, ok := b.clients[id]; ok {
		b.send(id, c, payload)
	}
}
