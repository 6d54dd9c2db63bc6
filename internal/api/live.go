package api

import (
	"alcyxob/classroom/internal/domain"
	"encoding/json"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

const (
	liveWriteWait  = 10 * time.Second
	livePongWait   = 60 * time.Second
	livePingPeriod = (livePongWait * 9) / 10
	liveSendBuffer = 16
)

// Origins of a live update.
const (
	SourceLocal  = "local"  // committed through this server
	SourceRemote = "remote" // another writer changed the course document
)

// LiveEvent is pushed to every connected UI when the subject list changes.
type LiveEvent struct {
	Type     string           `json:"type"`
	Source   string           `json:"source"`
	Subjects []domain.Subject `json:"subjects"`
}

type liveClient struct {
	conn   *websocket.Conn
	send   chan []byte
	userID string
}

// LiveHub fans subject list changes out to websocket clients.
type LiveHub struct {
	upgrader websocket.Upgrader

	mu      sync.Mutex
	clients map[*liveClient]struct{}
}

func NewLiveHub() *LiveHub {
	return &LiveHub{
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 4096,
			// The UI may be served from another origin; the token is the gate.
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		clients: make(map[*liveClient]struct{}),
	}
}

// Broadcast sends the subject list to every client. Clients whose buffer is
// full are disconnected rather than blocking the caller.
func (h *LiveHub) Broadcast(source string, subjects []domain.Subject) {
	if h == nil {
		return
	}
	payload, err := encodeEvent(source, subjects)
	if err != nil {
		log.Printf("ERROR: Failed to encode live event: %v", err)
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	for client := range h.clients {
		select {
		case client.send <- payload:
		default:
			log.Printf("WARN: Dropping slow live client '%s'", client.userID)
			h.removeLocked(client)
		}
	}
}

// encodeEvent serializes a subject list event; a nil list is sent as [].
func encodeEvent(source string, subjects []domain.Subject) ([]byte, error) {
	if subjects == nil {
		subjects = []domain.Subject{}
	}
	return json.Marshal(LiveEvent{Type: "subjects", Source: source, Subjects: subjects})
}

// ClientCount reports the number of connected clients.
func (h *LiveHub) ClientCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

// Close disconnects every client.
func (h *LiveHub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for client := range h.clients {
		h.removeLocked(client)
	}
}

func (h *LiveHub) removeLocked(client *liveClient) {
	if _, ok := h.clients[client]; !ok {
		return
	}
	delete(h.clients, client)
	close(client.send)
}

func (h *LiveHub) remove(client *liveClient) {
	h.mu.Lock()
	h.removeLocked(client)
	h.mu.Unlock()
}

// Serve upgrades the request and streams events until the client goes away.
// The current subject list is sent first.
func (h *LiveHub) Serve(initial func() []domain.Subject) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, _ := getUserIDFromContext(c)

		conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
		if err != nil {
			log.Printf("WARN: Websocket upgrade failed for '%s': %v", userID, err)
			return
		}

		client := &liveClient{conn: conn, send: make(chan []byte, liveSendBuffer), userID: userID}
		if initial != nil {
			if payload, err := encodeEvent(SourceLocal, initial()); err == nil {
				client.send <- payload
			}
		}

		h.mu.Lock()
		h.clients[client] = struct{}{}
		h.mu.Unlock()
		log.Printf("INFO: Live client '%s' connected", userID)

		go h.writePump(client)
		h.readPump(client)
	}
}

// readPump only watches for close and pong frames; clients do not send data.
func (h *LiveHub) readPump(client *liveClient) {
	defer func() {
		h.remove(client)
		client.conn.Close()
		log.Printf("INFO: Live client '%s' disconnected", client.userID)
	}()

	client.conn.SetReadLimit(512)
	client.conn.SetReadDeadline(time.Now().Add(livePongWait))
	client.conn.SetPongHandler(func(string) error {
		return client.conn.SetReadDeadline(time.Now().Add(livePongWait))
	})
	for {
		if _, _, err := client.conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (h *LiveHub) writePump(client *liveClient) {
	ticker := time.NewTicker(livePingPeriod)
	defer func() {
		ticker.Stop()
		client.conn.Close()
	}()

	for {
		select {
		case payload, ok := <-client.send:
			client.conn.SetWriteDeadline(time.Now().Add(liveWriteWait))
			if !ok {
				client.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := client.conn.WriteMessage(websocket.TextMessage, payload); err != nil {
				return
			}
		case <-ticker.C:
			client.conn.SetWriteDeadline(time.Now().Add(liveWriteWait))
			if err := client.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
