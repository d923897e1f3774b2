package relay

import (
	"context"
	"encoding/json"
	"log"
	"time"

	"github.com/google/uuid"

	"freepace/pkg/types"
)

// ProgressStore is the slice of the store the router needs. A nil store
// leaves the relay purely in-memory.
type ProgressStore interface {
	UpsertProgress(ctx context.Context, progress *types.StudentProgress) error
}

// Router turns one inbound classroom message into at most one broadcast
// or one direct reply. It is stateless between messages: every routing
// decision depends only on the message and the sending connection.
type Router struct {
	registry *Registry
	store    ProgressStore
}

// NewRouter creates a message router. store may be nil.
func NewRouter(registry *Registry, store ProgressStore) *Router {
	return &Router{
		registry: registry,
		store:    store,
	}
}

// Route parses and dispatches one inbound message from conn. Parse
// failures and unknown kinds are answered with an error event to the
// sender only; the connection stays open. Timestamps on all broadcast
// events are the server's wall clock at dispatch, never client input.
func (r *Router) Route(ctx context.Context, conn *Connection, data []byte) {
	var msg types.InboundMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		r.replyError(conn, "invalid message: not well-formed JSON")
		return
	}

	now := time.Now().UTC().Format(time.RFC3339)

	switch msg.Kind {
	case types.KindPing:
		// Direct reply only; ping never broadcasts.
		if err := conn.WriteJSON(&types.Event{Kind: types.EventPong}); err != nil {
			log.Printf("Failed to send pong (class=%s user=%d): %v", conn.ClassCode(), conn.UserID(), err)
		}

	case types.KindProgressUpdate:
		event := &types.Event{
			Kind:               types.EventProgressUpdated,
			StudentID:          conn.UserID(),
			CurriculumID:       msg.CurriculumID,
			CourseID:           msg.CourseID,
			CardID:             msg.CardID,
			Status:             msg.Status,
			UnderstandingLevel: msg.UnderstandingLevel,
			Timestamp:          now,
		}
		r.persistProgress(ctx, conn, &msg)
		r.registry.Broadcast(conn.ClassCode(), "", event)

	case types.KindHelpRequest:
		event := &types.Event{
			Kind:        types.EventHelpRequested,
			StudentID:   conn.UserID(),
			StudentName: msg.StudentName,
			CardID:      msg.CardID,
			CardTitle:   msg.CardTitle,
			HelpType:    msg.HelpType,
			Timestamp:   now,
		}
		r.registry.Broadcast(conn.ClassCode(), types.RoleTeacher, event)

	case types.KindHelpResolve:
		// Teachers resolve on behalf of a student, so the message names
		// the student. A student resolving their own request may omit it.
		studentID := msg.StudentID
		if studentID == 0 {
			studentID = conn.UserID()
		}
		event := &types.Event{
			Kind:      types.EventHelpResolved,
			StudentID: studentID,
			CardID:    msg.CardID,
			Timestamp: now,
		}
		r.registry.Broadcast(conn.ClassCode(), "", event)

	case types.KindActivity:
		event := &types.Event{
			Kind:      types.EventActivityUpdated,
			StudentID: conn.UserID(),
			CardID:    msg.CardID,
			Timestamp: now,
		}
		r.registry.Broadcast(conn.ClassCode(), types.RoleTeacher, event)

	default:
		r.replyError(conn, "unrecognized message type: "+msg.Kind)
	}
}

// persistProgress writes a progress update into the store when one is
// configured. Persistence failures are logged and do not block the
// broadcast: the classroom view is the product surface, the row is the
// audit trail.
func (r *Router) persistProgress(ctx context.Context, conn *Connection, msg *types.InboundMessage) {
	if r.store == nil || conn.UserID() == 0 || msg.CardID == "" {
		return
	}

	progress := &types.StudentProgress{
		ID:                 uuid.New().String(),
		StudentID:          conn.UserID(),
		ClassCode:          conn.ClassCode(),
		CurriculumID:       msg.CurriculumID,
		CourseID:           msg.CourseID,
		CardID:             msg.CardID,
		Status:             msg.Status,
		UnderstandingLevel: msg.UnderstandingLevel,
		UpdatedAt:          time.Now().UTC(),
	}
	if err := progress.Validate(); err != nil {
		log.Printf("Dropping progress persistence (user=%d card=%s): %v", conn.UserID(), msg.CardID, err)
		return
	}

	if err := r.store.UpsertProgress(ctx, progress); err != nil {
		log.Printf("Failed to persist progress (user=%d card=%s): %v", conn.UserID(), msg.CardID, err)
	}
}

// replyError sends an error event to the sender only.
func (r *Router) replyError(conn *Connection, message string) {
	event := &types.Event{
		Kind:      types.EventError,
		Message:   message,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	}
	if err := conn.WriteJSON(event); err != nil {
		log.Printf("Failed to send error event (class=%s user=%d): %v", conn.ClassCode(), conn.UserID(), err)
	}
}
