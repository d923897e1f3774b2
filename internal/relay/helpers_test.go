package relay

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"freepace/internal/config"
	"freepace/pkg/types"
)

// testRelayConfig keeps heartbeats out of the way of short tests.
func testRelayConfig() *config.RelayConfig {
	return &config.RelayConfig{
		PingInterval:      30 * time.Second,
		ReadTimeout:       60 * time.Second,
		WriteTimeout:      time.Second,
		SendBuffer:        16,
		MessagesPerSecond: 100,
	}
}

// testRelay is a full relay stack behind an httptest server.
type testRelay struct {
	server   *httptest.Server
	registry *Registry
	router   *Router
	handler  *Handler
}

func newTestRelay(t *testing.T, store ProgressStore) *testRelay {
	t.Helper()

	registry := NewRegistry()
	router := NewRouter(registry, store)
	handler := NewHandler(registry, router, testRelayConfig())

	mux := http.NewServeMux()
	mux.HandleFunc("/ws", handler.HandleRelay)
	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)

	return &testRelay{
		server:   server,
		registry: registry,
		router:   router,
		handler:  handler,
	}
}

func (tr *testRelay) wsURL(query string) string {
	url := "ws" + strings.TrimPrefix(tr.server.URL, "http") + "/ws"
	if query != "" {
		url += "?" + query
	}
	return url
}

// dial connects a client and fails the test on handshake errors.
func (tr *testRelay) dial(t *testing.T, query string) *websocket.Conn {
	t.Helper()

	conn, _, err := websocket.DefaultDialer.Dial(tr.wsURL(query), nil)
	if err != nil {
		t.Fatalf("Failed to dial %s: %v", query, err)
	}
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

// dialAndAck connects and consumes the connected acknowledgement.
func (tr *testRelay) dialAndAck(t *testing.T, query string) (*websocket.Conn, *types.Event) {
	t.Helper()

	conn := tr.dial(t, query)
	ack := readEvent(t, conn)
	if ack.Kind != types.EventConnected {
		t.Fatalf("Expected connected ack, got %q", ack.Kind)
	}
	return conn, ack
}

// readEvent reads one event or fails the test after a short deadline.
func readEvent(t *testing.T, conn *websocket.Conn) *types.Event {
	t.Helper()

	if err := conn.SetReadDeadline(time.Now().Add(2 * time.Second)); err != nil {
		t.Fatalf("Failed to set read deadline: %v", err)
	}

	var event types.Event
	if err := conn.ReadJSON(&event); err != nil {
		t.Fatalf("Failed to read event: %v", err)
	}
	return &event
}

// expectSilence asserts that no event arrives within the window.
func expectSilence(t *testing.T, conn *websocket.Conn, window time.Duration) {
	t.Helper()

	if err := conn.SetReadDeadline(time.Now().Add(window)); err != nil {
		t.Fatalf("Failed to set read deadline: %v", err)
	}

	var event types.Event
	if err := conn.ReadJSON(&event); err == nil {
		t.Fatalf("Expected no event, got %q", event.Kind)
	}
}

// newConnPair builds a server-side Connection and its client peer
// without going through the handler, for registry and router units.
func newConnPair(t *testing.T, classCode string, userID int64, role string) (*Connection, *websocket.Conn) {
	t.Helper()

	upgraded := make(chan *websocket.Conn, 1)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		wsConn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			t.Errorf("Upgrade failed: %v", err)
			return
		}
		upgraded <- wsConn
	}))
	t.Cleanup(server.Close)

	client, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(server.URL, "http"), nil)
	if err != nil {
		t.Fatalf("Failed to dial test server: %v", err)
	}
	t.Cleanup(func() { _ = client.Close() })

	serverConn := <-upgraded
	conn := NewConnection(serverConn, classCode, userID, role, 16, time.Second, nil)
	t.Cleanup(func() { _ = conn.Close() })

	return conn, client
}

// waitForSize polls the registry until it reaches want or times out.
func waitForSize(t *testing.T, registry *Registry, want int) {
	t.Helper()

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if registry.Size() == want {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("Registry size did not reach %d, still %d", want, registry.Size())
}
