package types

import (
	"time"
)

// Inbound relay message kinds. The set is closed: the router matches it
// exhaustively and anything else is answered with an error event.
const (
	KindPing           = "ping"
	KindProgressUpdate = "progress_update"
	KindHelpRequest    = "help_request"
	KindHelpResolve    = "help_resolve"
	KindActivity       = "activity"
)

// Outbound relay event kinds.
const (
	EventConnected       = "connected"
	EventPong            = "pong"
	EventProgressUpdated = "progress_updated"
	EventHelpRequested   = "help_requested"
	EventHelpResolved    = "help_resolved"
	EventActivityUpdated = "activity_updated"
	EventError           = "error"
)

// Connection roles. Role is optional on a connection; when present it is
// used as a broadcast filter, never for authorization.
const (
	RoleTeacher = "teacher"
	RoleStudent = "student"
)

// Student progress statuses for a learning card.
const (
	StatusNotStarted = "not_started"
	StatusInProgress = "in_progress"
	StatusCompleted  = "completed"
)

// Curriculum is a unit of study authored by a teacher, optionally
// synthesized by the generative-AI endpoint and then edited.
type Curriculum struct {
	ID          string    `json:"id" db:"id"`
	Title       string    `json:"title" db:"title"`
	Subject     string    `json:"subject" db:"subject"`
	Grade       int       `json:"grade" db:"grade"`
	Description string    `json:"description" db:"description"`
	CreatedBy   string    `json:"created_by" db:"created_by"`
	CreatedAt   time.Time `json:"created_at" db:"created_at"`
}

// Course is an ordered section within a curriculum.
type Course struct {
	ID           string    `json:"id" db:"id"`
	CurriculumID string    `json:"curriculum_id" db:"curriculum_id"`
	Title        string    `json:"title" db:"title"`
	Description  string    `json:"description" db:"description"`
	Position     int       `json:"position" db:"position"`
	CreatedAt    time.Time `json:"created_at" db:"created_at"`
}

// LearningCard is the unit students actually work through. Content is
// free-form text rendered by the client.
type LearningCard struct {
	ID        string    `json:"id" db:"id"`
	CourseID  string    `json:"course_id" db:"course_id"`
	Title     string    `json:"title" db:"title"`
	Content   string    `json:"content" db:"content"`
	Position  int       `json:"position" db:"position"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

// Hint is a staged hint for a learning card. Level 1 is the gentlest.
type Hint struct {
	ID        string    `json:"id" db:"id"`
	CardID    string    `json:"card_id" db:"card_id"`
	Level     int       `json:"level" db:"level"`
	Content   string    `json:"content" db:"content"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

// StudentProgress records one student's state on one learning card.
// The (student_id, card_id) pair is unique; updates overwrite in place.
// ClassCode is the classroom the update arrived through, kept so a
// teacher can list a whole class without joining through curricula.
type StudentProgress struct {
	ID                 string    `json:"id" db:"id"`
	StudentID          int64     `json:"student_id" db:"student_id"`
	ClassCode          string    `json:"class_code" db:"class_code"`
	CurriculumID       string    `json:"curriculum_id" db:"curriculum_id"`
	CourseID           string    `json:"course_id" db:"course_id"`
	CardID             string    `json:"card_id" db:"card_id"`
	Status             string    `json:"status" db:"status"`
	UnderstandingLevel int       `json:"understanding_level" db:"understanding_level"`
	UpdatedAt          time.Time `json:"updated_at" db:"updated_at"`
}

// Evaluation is teacher- or AI-authored feedback for a student on a
// curriculum.
type Evaluation struct {
	ID           string    `json:"id" db:"id"`
	StudentID    int64     `json:"student_id" db:"student_id"`
	CurriculumID string    `json:"curriculum_id" db:"curriculum_id"`
	Feedback     string    `json:"feedback" db:"feedback"`
	Score        int       `json:"score" db:"score"`
	CreatedAt    time.Time `json:"created_at" db:"created_at"`
}

// InboundMessage is the decoded form of one client relay message.
// Kind selects which of the remaining fields are meaningful. The wire
// format is camelCase because that is what the browser client sends.
type InboundMessage struct {
	Kind               string `json:"type"`
	StudentID          int64  `json:"studentId,omitempty"`
	CurriculumID       string `json:"curriculumId,omitempty"`
	CourseID           string `json:"courseId,omitempty"`
	CardID             string `json:"cardId,omitempty"`
	CardTitle          string `json:"cardTitle,omitempty"`
	Status             string `json:"status,omitempty"`
	UnderstandingLevel int    `json:"understandingLevel,omitempty"`
	StudentName        string `json:"studentName,omitempty"`
	HelpType           string `json:"helpType,omitempty"`
}

// Event is one outbound relay event. A single flat struct with
// omitempty fields keeps the wire format stable across all seven kinds.
// Timestamp is server wall-clock, RFC 3339; clients never supply it.
type Event struct {
	Kind               string `json:"type"`
	StudentID          int64  `json:"studentId,omitempty"`
	StudentName        string `json:"studentName,omitempty"`
	CurriculumID       string `json:"curriculumId,omitempty"`
	CourseID           string `json:"courseId,omitempty"`
	CardID             string `json:"cardId,omitempty"`
	CardTitle          string `json:"cardTitle,omitempty"`
	Status             string `json:"status,omitempty"`
	UnderstandingLevel int    `json:"understandingLevel,omitempty"`
	HelpType           string `json:"helpType,omitempty"`
	Online             int    `json:"online,omitempty"`
	Message            string `json:"message,omitempty"`
	Timestamp          string `json:"timestamp,omitempty"`
}
