package broadcast

import (
	"net/http"
	"sync"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
)

// Hub fans a message out to every live websocket connection. State is all
// in-process; a connection lost to a failed write is dropped from the set.
type Hub struct {
	mu    sync.Mutex
	conns map[*websocket.Conn]struct{}
	log   zerolog.Logger

	upgrader websocket.Upgrader
}

func NewHub(log zerolog.Logger) *Hub {
	return &Hub{
		conns: make(map[*websocket.Conn]struct{}),
		log:   log,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true },
		},
	}
}

func (h *Hub) register(conn *websocket.Conn) {
	h.mu.Lock()
	h.conns[conn] = struct{}{}
	h.mu.Unlock()
}

func (h *Hub) unregister(conn *websocket.Conn) {
	h.mu.Lock()
	delete(h.conns, conn)
	h.mu.Unlock()
}

// Broadcast writes message to every member, dropping connections whose
// write fails.
func (h *Hub) Broadcast(message string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	for conn := range h.conns {
		if err := conn.WriteMessage(websocket.TextMessage, []byte(message)); err != nil {
			h.log.Warn().Err(err).Msg("dropping broadcast connection")
			conn.Close()
			delete(h.conns, conn)
		}
	}
}

// Count reports the number of live connections.
func (h *Hub) Count() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.conns)
}

// ServeHTTP upgrades the request and relays inbound text frames to all members.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Warn().Err(err).Msg("websocket upgrade failed")
		return
	}
	h.register(conn)
	defer conn.Close()

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			h.unregister(conn)
			h.Broadcast("A client disconnected.")
			return
		}
		h.Broadcast("Client says: " + string(data))
	}
}
