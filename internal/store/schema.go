package store

import (
	"fmt"

	"github.com/jmoiron/sqlx"
)

// Schema statements are idempotent so the store can bootstrap itself on
// every startup. Foreign keys cascade downward: deleting a curriculum
// removes its courses, cards and hints. Progress and evaluation rows
// reference entities by ID without constraints because they must
// survive curriculum edits for reporting.
var schemaStatements = []string{
	`CREATE TABLE IF NOT EXISTS curricula (
		id          TEXT PRIMARY KEY,
		title       TEXT NOT NULL,
		subject     TEXT NOT NULL,
		grade       INTEGER NOT NULL,
		description TEXT NOT NULL DEFAULT '',
		created_by  TEXT NOT NULL,
		created_at  TIMESTAMP NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS courses (
		id            TEXT PRIMARY KEY,
		curriculum_id TEXT NOT NULL REFERENCES curricula(id) ON DELETE CASCADE,
		title         TEXT NOT NULL,
		description   TEXT NOT NULL DEFAULT '',
		position      INTEGER NOT NULL DEFAULT 0,
		created_at    TIMESTAMP NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS learning_cards (
		id         TEXT PRIMARY KEY,
		course_id  TEXT NOT NULL REFERENCES courses(id) ON DELETE CASCADE,
		title      TEXT NOT NULL,
		content    TEXT NOT NULL DEFAULT '',
		position   INTEGER NOT NULL DEFAULT 0,
		created_at TIMESTAMP NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS hints (
		id         TEXT PRIMARY KEY,
		card_id    TEXT NOT NULL REFERENCES learning_cards(id) ON DELETE CASCADE,
		level      INTEGER NOT NULL,
		content    TEXT NOT NULL,
		created_at TIMESTAMP NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS student_progress (
		id                  TEXT PRIMARY KEY,
		student_id          INTEGER NOT NULL,
		class_code          TEXT NOT NULL DEFAULT '',
		curriculum_id       TEXT NOT NULL DEFAULT '',
		course_id           TEXT NOT NULL DEFAULT '',
		card_id             TEXT NOT NULL,
		status              TEXT NOT NULL,
		understanding_level INTEGER NOT NULL DEFAULT 0,
		updated_at          TIMESTAMP NOT NULL,
		UNIQUE (student_id, card_id)
	)`,
	`CREATE TABLE IF NOT EXISTS evaluations (
		id            TEXT PRIMARY KEY,
		student_id    INTEGER NOT NULL,
		curriculum_id TEXT NOT NULL,
		feedback      TEXT NOT NULL,
		score         INTEGER NOT NULL DEFAULT 0,
		created_at    TIMESTAMP NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_courses_curriculum ON courses(curriculum_id)`,
	`CREATE INDEX IF NOT EXISTS idx_cards_course ON learning_cards(course_id)`,
	`CREATE INDEX IF NOT EXISTS idx_hints_card ON hints(card_id)`,
	`CREATE INDEX IF NOT EXISTS idx_progress_student ON student_progress(student_id)`,
	`CREATE INDEX IF NOT EXISTS idx_progress_class ON student_progress(class_code)`,
	`CREATE INDEX IF NOT EXISTS idx_evaluations_student ON evaluations(student_id)`,
}

// initSchema creates all tables and indexes if they do not exist.
func initSchema(db *sqlx.DB) error {
	for _, stmt := range schemaStatements {
		if _, err := db.Exec(stmt); err != nil {
			return fmt.Errorf("failed to initialize schema: %w", err)
		}
	}
	return nil
}

// applyPragmas tunes SQLite for one-writer-many-readers classroom use.
func applyPragmas(db *sqlx.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA cache_size = -64000",
		"PRAGMA temp_store = MEMORY",
		"PRAGMA foreign_keys = ON",
		"PRAGMA busy_timeout = 5000",
	}

	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			return fmt.Errorf("failed to execute pragma %s: %w", pragma, err)
		}
	}
	return nil
}
