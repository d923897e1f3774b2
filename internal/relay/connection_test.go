package relay

import (
	"errors"
	"testing"
	"time"

	"freepace/pkg/types"
)

// killTransport tears down the raw socket under conn and trips the
// writer goroutine with one queued message, then waits for it to exit.
func killTransport(t *testing.T, conn *Connection) {
	t.Helper()

	if err := conn.conn.UnderlyingConn().Close(); err != nil {
		t.Fatalf("Failed to close transport: %v", err)
	}
	_ = conn.Write([]byte(`{"type":"pong"}`))

	select {
	case <-conn.ctx.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("Writer did not exit after transport failure")
	}
}

func TestWriteFailsAfterWriterExits(t *testing.T) {
	conn, _ := newConnPair(t, "classA", 1, types.RoleStudent)

	killTransport(t, conn)

	// A writer that died on its own behaves like a closed connection:
	// Write reports the failure instead of panicking.
	if err := conn.Write([]byte(`{"type":"pong"}`)); !errors.Is(err, ErrConnectionClosed) {
		t.Errorf("Expected ErrConnectionClosed, got %v", err)
	}
	if err := conn.WriteJSON(&types.Event{Kind: types.EventPong}); !errors.Is(err, ErrConnectionClosed) {
		t.Errorf("Expected ErrConnectionClosed from WriteJSON, got %v", err)
	}
}

func TestBroadcastSurvivesWriterExit(t *testing.T) {
	registry := NewRegistry()

	healthyConn, healthyClient := newConnPair(t, "classA", 1, types.RoleStudent)
	deadConn, _ := newConnPair(t, "classA", 2, types.RoleStudent)
	registry.Add(healthyConn)
	registry.Add(deadConn)

	// The peer's transport dies without anyone calling Close.
	killTransport(t, deadConn)

	registry.Broadcast("classA", "", &types.Event{Kind: types.EventHelpResolved, StudentID: 1})

	event := readEvent(t, healthyClient)
	if event.Kind != types.EventHelpResolved {
		t.Errorf("Expected help_resolved for healthy peer, got %q", event.Kind)
	}

	if registry.Size() != 1 {
		t.Errorf("Expected dead connection evicted, size is %d", registry.Size())
	}
}

func TestWriteFailsAfterClose(t *testing.T) {
	conn, _ := newConnPair(t, "classA", 1, types.RoleStudent)

	if err := conn.Close(); err != nil {
		t.Fatalf("Failed to close connection: %v", err)
	}
	if err := conn.Close(); err != nil {
		t.Errorf("Expected second close to be a no-op, got %v", err)
	}

	if err := conn.Write([]byte(`{}`)); !errors.Is(err, ErrConnectionClosed) {
		t.Errorf("Expected ErrConnectionClosed after close, got %v", err)
	}
}
