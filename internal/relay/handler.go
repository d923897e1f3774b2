package relay

import (
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/websocket"
	"golang.org/x/time/rate"

	"freepace/internal/config"
	"freepace/pkg/types"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		// Classroom clients are served from teacher-chosen hosts;
		// origin checking is left to the reverse proxy.
		return true
	},
	HandshakeTimeout: 10 * time.Second,
}

// Handler accepts relay connections and runs their read pumps.
type Handler struct {
	registry *Registry
	router   *Router
	cfg      *config.RelayConfig
}

// NewHandler creates a relay handler.
func NewHandler(registry *Registry, router *Router, cfg *config.RelayConfig) *Handler {
	return &Handler{
		registry: registry,
		router:   router,
		cfg:      cfg,
	}
}

// HandleRelay validates and accepts one relay connection.
// Rejections happen before any state is created: 426 when the request
// is not a WebSocket upgrade, 400 when classCode is missing or any
// query parameter is malformed. On success the connection is
// registered and acknowledged with the current registry size.
func (h *Handler) HandleRelay(w http.ResponseWriter, r *http.Request) {
	if !websocket.IsWebSocketUpgrade(r) {
		http.Error(w, "WebSocket upgrade required", http.StatusUpgradeRequired)
		return
	}

	classCode := r.URL.Query().Get("classCode")
	if classCode == "" {
		http.Error(w, "Missing required query parameter: classCode", http.StatusBadRequest)
		return
	}
	if !types.IsValidClassCode(classCode) {
		http.Error(w, "Invalid classCode format", http.StatusBadRequest)
		return
	}

	var userID int64
	if raw := r.URL.Query().Get("userId"); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || id <= 0 {
			http.Error(w, "Invalid userId: must be a positive integer", http.StatusBadRequest)
			return
		}
		userID = id
	}

	role := r.URL.Query().Get("role")
	if !types.IsValidRole(role) {
		http.Error(w, "Invalid role: must be 'teacher' or 'student'", http.StatusBadRequest)
		return
	}

	wsConn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("WebSocket upgrade failed: %v", err)
		return
	}

	limiter := rate.NewLimiter(rate.Limit(h.cfg.MessagesPerSecond), h.cfg.MessagesPerSecond)
	conn := NewConnection(wsConn, classCode, userID, role, h.cfg.SendBuffer, h.cfg.WriteTimeout, limiter)

	h.registry.Add(conn)
	log.Printf("Connection registered: class=%s user=%d role=%s", classCode, userID, role)

	// The ack counts connections across all classes, matching the
	// reference relay.
	ack := &types.Event{
		Kind:      types.EventConnected,
		Online:    h.registry.Size(),
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	}
	if err := conn.WriteJSON(ack); err != nil {
		log.Printf("Failed to send connected ack: %v", err)
		h.registry.Remove(conn)
		_ = conn.Close()
		return
	}

	go h.readPump(conn)
}

// readPump reads inbound messages until the connection dies, keeping
// the connection alive with scheduled pings against a read deadline.
// A peer that stops answering pings hits the deadline, the read fails,
// and the deferred cleanup removes it from the registry through the
// same path as a clean close.
func (h *Handler) readPump(conn *Connection) {
	defer func() {
		h.registry.Remove(conn)
		_ = conn.Close()
		log.Printf("Connection closed: class=%s user=%d", conn.ClassCode(), conn.UserID())
	}()

	if err := conn.conn.SetReadDeadline(time.Now().Add(h.cfg.ReadTimeout)); err != nil {
		log.Printf("Failed to set read deadline: %v", err)
		return
	}
	conn.conn.SetPongHandler(func(string) error {
		return conn.conn.SetReadDeadline(time.Now().Add(h.cfg.ReadTimeout))
	})

	ticker := time.NewTicker(h.cfg.PingInterval)
	defer ticker.Stop()

	go func() {
		for {
			select {
			case <-ticker.C:
				if err := conn.conn.WriteControl(websocket.PingMessage, []byte{}, time.Now().Add(h.cfg.WriteTimeout)); err != nil {
					return
				}
			case <-conn.ctx.Done():
				return
			}
		}
	}()

	for {
		messageType, data, err := conn.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure, websocket.CloseAbnormalClosure) {
				log.Printf("WebSocket error (class=%s user=%d): %v", conn.ClassCode(), conn.UserID(), err)
			}
			return
		}

		if messageType != websocket.TextMessage {
			continue
		}

		if !conn.Allow() {
			h.router.replyError(conn, "rate limit exceeded")
			continue
		}

		h.router.Route(conn.ctx, conn, data)
	}
}
