package relay

import (
	"encoding/json"
	"log"
	"sync"

	"freepace/pkg/types"
)

// Registry tracks the live connections of one process instance. State
// is process-local: clients connected to different instances never see
// each other's broadcasts.
type Registry struct {
	mu      sync.RWMutex
	conns   map[*Connection]struct{}
	classes map[string]map[*Connection]struct{} // classCode -> connection set
}

// NewRegistry creates an empty connection registry.
func NewRegistry() *Registry {
	return &Registry{
		conns:   make(map[*Connection]struct{}),
		classes: make(map[string]map[*Connection]struct{}),
	}
}

// Add registers a connection under its classroom.
func (r *Registry) Add(conn *Connection) {
	if conn == nil {
		return
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	r.conns[conn] = struct{}{}

	class := r.classes[conn.ClassCode()]
	if class == nil {
		class = make(map[*Connection]struct{})
		r.classes[conn.ClassCode()] = class
	}
	class[conn] = struct{}{}
}

// Remove unregisters a connection. Removing an absent connection is a
// no-op, so the close path and broadcast eviction may both call it.
func (r *Registry) Remove(conn *Connection) {
	if conn == nil {
		return
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.conns[conn]; !ok {
		return
	}
	delete(r.conns, conn)

	if class, ok := r.classes[conn.ClassCode()]; ok {
		delete(class, conn)
		// Drop empty class sets so idle classrooms don't accumulate
		if len(class) == 0 {
			delete(r.classes, conn.ClassCode())
		}
	}
}

// Size returns the number of registered connections across all
// classrooms. The connected acknowledgement reports this global number,
// matching the reference relay, so it is deliberately not class-scoped.
func (r *Registry) Size() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.conns)
}

// CountClass returns the number of connections in one classroom.
func (r *Registry) CountClass(classCode string) int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.classes[classCode])
}

// Broadcast fans an event out to every connection in classCode whose
// role matches targetRole (empty targetRole matches everyone). The
// payload is serialized once. A failed send evicts that connection and
// the fan-out continues: delivery is fire-and-forget, at most once per
// currently registered connection.
func (r *Registry) Broadcast(classCode, targetRole string, event *types.Event) {
	data, err := json.Marshal(event)
	if err != nil {
		log.Printf("Failed to marshal %s event for class %s: %v", event.Kind, classCode, err)
		return
	}

	// Snapshot the recipients so sends happen outside the lock.
	r.mu.RLock()
	recipients := make([]*Connection, 0, len(r.classes[classCode]))
	for conn := range r.classes[classCode] {
		if targetRole != "" && conn.Role() != targetRole {
			continue
		}
		recipients = append(recipients, conn)
	}
	r.mu.RUnlock()

	for _, conn := range recipients {
		if err := conn.Write(data); err != nil {
			log.Printf("Evicting connection (class=%s user=%d): %v", conn.ClassCode(), conn.UserID(), err)
			r.Remove(conn)
			_ = conn.Close()
		}
	}
}

// Stats returns registry counters for the health endpoint.
func (r *Registry) Stats() map[string]int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return map[string]int{
		"total_connections": len(r.conns),
		"active_classes":    len(r.classes),
	}
}
