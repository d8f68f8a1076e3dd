package messaging

import (
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"campus-mobility/pkg/logger"
)

const writeWait = 10 * time.Second

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// safeConn wraps a websocket.Conn with a write mutex.
// gorilla/websocket allows one concurrent writer.
type safeConn struct {
	mu    sync.Mutex
	ws    *websocket.Conn
	email string
}

func (c *safeConn) writeJSON(v any) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	_ = c.ws.SetWriteDeadline(time.Now().Add(writeWait))
	return c.ws.WriteJSON(v)
}

func (c *safeConn) close() { c.ws.Close() }

// Hub fans new feed entries out to websocket subscribers of each ride.
type Hub struct {
	mu    sync.RWMutex
	conns map[string][]*safeConn
	log   *zap.Logger
}

// NewHub creates an empty hub.
func NewHub() *Hub {
	return &Hub{conns: make(map[string][]*safeConn), log: logger.Named("ws")}
}

// Serve upgrades the request and keeps email's connection subscribed to
// rideID until the client goes away. Membership must be checked by the caller.
func (h *Hub) Serve(w http.ResponseWriter, r *http.Request, rideID, email string) {
	ws, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Warn("upgrade failed", zap.Error(err))
		return
	}
	conn := &safeConn{ws: ws, email: email}

	h.mu.Lock()
	h.conns[rideID] = append(h.conns[rideID], conn)
	h.mu.Unlock()
	h.log.Debug("subscriber connected", zap.String("ride_id", rideID))

	// Inbound frames are ignored; reading only detects the close.
	for {
		if _, _, err := ws.ReadMessage(); err != nil {
			break
		}
	}

	h.remove(rideID, conn)
	conn.close()
	h.log.Debug("subscriber disconnected", zap.String("ride_id", rideID))
}

// Publish pushes entry to every subscriber of its ride that member still
// accepts. Anyone who left the ride since subscribing is disconnected.
func (h *Hub) Publish(entry MessageView, member func(email string) bool) {
	h.mu.RLock()
	conns := append([]*safeConn(nil), h.conns[entry.RideID]...)
	h.mu.RUnlock()

	for _, c := range conns {
		if !member(c.email) {
			h.remove(entry.RideID, c)
			c.close()
			h.log.Debug("subscriber dropped", zap.String("ride_id", entry.RideID), zap.String("email", c.email))
			continue
		}
		if err := c.writeJSON(entry); err != nil {
			h.log.Warn("push failed", zap.String("ride_id", entry.RideID), zap.Error(err))
		}
	}
}

// Subscribers reports how many connections follow rideID.
func (h *Hub) Subscribers(rideID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.conns[rideID])
}

func (h *Hub) remove(rideID string, conn *safeConn) {
	h.mu.Lock()
	defer h.mu.Unlock()

	conns := h.conns[rideID]
	for i, c := range conns {
		if c == conn {
			h.conns[rideID] = append(conns[:i], conns[i+1:]...)
			break
		}
	}
	if len(h.conns[rideID]) == 0 {
		delete(h.conns, rideID)
	}
}
