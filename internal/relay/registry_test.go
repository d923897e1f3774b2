package relay

import (
	"testing"
	"time"

	"freepace/pkg/types"
)

func TestRegistryAddRemoveSize(t *testing.T) {
	registry := NewRegistry()

	if registry.Size() != 0 {
		t.Errorf("Expected empty registry, got size %d", registry.Size())
	}

	conn1, _ := newConnPair(t, "classA", 1, types.RoleStudent)
	conn2, _ := newConnPair(t, "classA", 2, types.RoleTeacher)
	conn3, _ := newConnPair(t, "classB", 3, types.RoleStudent)

	registry.Add(conn1)
	registry.Add(conn2)
	registry.Add(conn3)

	if registry.Size() != 3 {
		t.Errorf("Expected size 3, got %d", registry.Size())
	}
	if registry.CountClass("classA") != 2 {
		t.Errorf("Expected 2 connections in classA, got %d", registry.CountClass("classA"))
	}
	if registry.CountClass("classB") != 1 {
		t.Errorf("Expected 1 connection in classB, got %d", registry.CountClass("classB"))
	}

	registry.Remove(conn1)
	if registry.Size() != 2 {
		t.Errorf("Expected size 2 after remove, got %d", registry.Size())
	}
	if registry.CountClass("classA") != 1 {
		t.Errorf("Expected 1 connection in classA after remove, got %d", registry.CountClass("classA"))
	}

	// Removing an absent connection is a no-op.
	registry.Remove(conn1)
	if registry.Size() != 2 {
		t.Errorf("Expected size 2 after double remove, got %d", registry.Size())
	}

	registry.Remove(nil)
	if registry.Size() != 2 {
		t.Errorf("Expected nil remove to be a no-op, got size %d", registry.Size())
	}
}

func TestRegistryDropsEmptyClassSets(t *testing.T) {
	registry := NewRegistry()

	conn, _ := newConnPair(t, "classA", 1, "")
	registry.Add(conn)
	registry.Remove(conn)

	stats := registry.Stats()
	if stats["active_classes"] != 0 {
		t.Errorf("Expected 0 active classes, got %d", stats["active_classes"])
	}
	if stats["total_connections"] != 0 {
		t.Errorf("Expected 0 connections, got %d", stats["total_connections"])
	}
}

func TestBroadcastClassroomIsolation(t *testing.T) {
	registry := NewRegistry()

	connA1, clientA1 := newConnPair(t, "classA", 1, types.RoleStudent)
	connA2, clientA2 := newConnPair(t, "classA", 2, types.RoleTeacher)
	connB, clientB := newConnPair(t, "classB", 3, types.RoleStudent)

	registry.Add(connA1)
	registry.Add(connA2)
	registry.Add(connB)

	registry.Broadcast("classA", "", &types.Event{Kind: types.EventHelpResolved, StudentID: 1})

	event := readEvent(t, clientA1)
	if event.Kind != types.EventHelpResolved {
		t.Errorf("Expected help_resolved for classA student, got %q", event.Kind)
	}
	event = readEvent(t, clientA2)
	if event.Kind != types.EventHelpResolved {
		t.Errorf("Expected help_resolved for classA teacher, got %q", event.Kind)
	}

	expectSilence(t, clientB, 200*time.Millisecond)
}

func TestBroadcastRoleFiltering(t *testing.T) {
	registry := NewRegistry()

	teacherConn, teacherClient := newConnPair(t, "classA", 1, types.RoleTeacher)
	studentConn, studentClient := newConnPair(t, "classA", 2, types.RoleStudent)

	registry.Add(teacherConn)
	registry.Add(studentConn)

	registry.Broadcast("classA", types.RoleTeacher, &types.Event{Kind: types.EventHelpRequested, StudentID: 2})

	event := readEvent(t, teacherClient)
	if event.Kind != types.EventHelpRequested {
		t.Errorf("Expected help_requested for teacher, got %q", event.Kind)
	}

	expectSilence(t, studentClient, 200*time.Millisecond)
}

func TestBroadcastFaultIsolation(t *testing.T) {
	registry := NewRegistry()

	healthyConn, healthyClient := newConnPair(t, "classA", 1, types.RoleStudent)
	brokenConn, _ := newConnPair(t, "classA", 2, types.RoleStudent)

	registry.Add(healthyConn)
	registry.Add(brokenConn)

	// A closed connection fails its send immediately.
	_ = brokenConn.Close()

	registry.Broadcast("classA", "", &types.Event{Kind: types.EventProgressUpdated, StudentID: 1})

	// The healthy peer still receives the payload.
	event := readEvent(t, healthyClient)
	if event.Kind != types.EventProgressUpdated {
		t.Errorf("Expected progress_updated, got %q", event.Kind)
	}

	// The broken peer was evicted.
	if registry.Size() != 1 {
		t.Errorf("Expected broken connection evicted, size is %d", registry.Size())
	}
	if registry.CountClass("classA") != 1 {
		t.Errorf("Expected 1 remaining in classA, got %d", registry.CountClass("classA"))
	}
}

func TestBroadcastToEmptyClassIsNoop(t *testing.T) {
	registry := NewRegistry()
	// Must not panic or block.
	registry.Broadcast("nobody-here", "", &types.Event{Kind: types.EventHelpResolved})
}
