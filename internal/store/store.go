package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3"

	"freepace/internal/config"
	"freepace/pkg/types"
)

// writeRetryDelay is how long a failed write waits before its single
// retry, long enough for a transient SQLITE_BUSY to clear.
const writeRetryDelay = 5 * time.Second

// Store is the SQLite-backed persistence layer. All writes funnel
// through one goroutine because SQLite allows a single writer; reads
// run concurrently against the WAL.
type Store struct {
	db           *sqlx.DB
	writeChannel chan writeOperation
	shutdown     chan struct{}
	wg           sync.WaitGroup
	closed       bool
	mu           sync.RWMutex // protects closed
}

type writeOperation struct {
	operation func(*sqlx.DB) error
	result    chan error
}

// NewStore opens the database, applies pragmas, bootstraps the schema
// and starts the writer goroutine.
func NewStore(cfg *config.DatabaseConfig) (*Store, error) {
	db, err := sqlx.Open("sqlite3", cfg.Path+"?_busy_timeout=5000&_journal_mode=WAL&_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	db.SetMaxOpenConns(10)
	db.SetConnMaxLifetime(cfg.Timeout)
	db.SetConnMaxIdleTime(cfg.Timeout / 3)

	if err := applyPragmas(db); err != nil {
		_ = db.Close()
		return nil, err
	}
	if err := initSchema(db); err != nil {
		_ = db.Close()
		return nil, err
	}

	s := &Store{
		db:           db,
		writeChannel: make(chan writeOperation, 100),
		shutdown:     make(chan struct{}),
	}

	s.wg.Add(1)
	go s.writeLoop()

	return s, nil
}

// writeLoop processes all write operations in a single goroutine,
// retrying each failed operation exactly once.
func (s *Store) writeLoop() {
	defer s.wg.Done()

	for {
		select {
		case op := <-s.writeChannel:
			err := op.operation(s.db)
			if err != nil {
				log.Printf("Database write failed, retrying in %v: %v", writeRetryDelay, err)
				time.Sleep(writeRetryDelay)
				err = op.operation(s.db)
				if err != nil {
					log.Printf("Database write failed after retry: %v", err)
				}
			}
			op.result <- err

		case <-s.shutdown:
			log.Println("Store write loop shutting down")
			return
		}
	}
}

// executeWrite queues a write operation and waits for its result.
func (s *Store) executeWrite(operation func(*sqlx.DB) error) error {
	s.mu.RLock()
	if s.closed {
		s.mu.RUnlock()
		return ErrClosed
	}
	s.mu.RUnlock()

	result := make(chan error, 1)

	select {
	case s.writeChannel <- writeOperation{operation: operation, result: result}:
		return <-result
	case <-time.After(30 * time.Second):
		return fmt.Errorf("write operation timeout")
	case <-s.shutdown:
		return ErrClosed
	}
}

// --- Curricula ---

// CreateCurriculum inserts a curriculum. A missing ID or CreatedAt is
// filled in here so API handlers stay thin.
func (s *Store) CreateCurriculum(ctx context.Context, c *types.Curriculum) error {
	if c.CreatedAt.IsZero() {
		c.CreatedAt = time.Now().UTC()
	}
	return s.executeWrite(func(db *sqlx.DB) error {
		_, err := db.ExecContext(ctx,
			`INSERT INTO curricula (id, title, subject, grade, description, created_by, created_at)
			 VALUES (?, ?, ?, ?, ?, ?, ?)`,
			c.ID, c.Title, c.Subject, c.Grade, c.Description, c.CreatedBy, c.CreatedAt)
		if err != nil {
			return fmt.Errorf("failed to insert curriculum: %w", err)
		}
		return nil
	})
}

// GetCurriculum retrieves a curriculum by ID.
func (s *Store) GetCurriculum(ctx context.Context, id string) (*types.Curriculum, error) {
	var c types.Curriculum
	err := s.db.GetContext(ctx, &c, `SELECT * FROM curricula WHERE id = ?`, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to query curriculum: %w", err)
	}
	return &c, nil
}

// ListCurricula returns all curricula, newest first.
func (s *Store) ListCurricula(ctx context.Context) ([]*types.Curriculum, error) {
	var curricula []*types.Curriculum
	err := s.db.SelectContext(ctx, &curricula,
		`SELECT * FROM curricula ORDER BY created_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("failed to query curricula: %w", err)
	}
	return curricula, nil
}

// UpdateCurriculum updates the editable fields of a curriculum.
func (s *Store) UpdateCurriculum(ctx context.Context, c *types.Curriculum) error {
	return s.executeWrite(func(db *sqlx.DB) error {
		res, err := db.ExecContext(ctx,
			`UPDATE curricula SET title = ?, subject = ?, grade = ?, description = ? WHERE id = ?`,
			c.Title, c.Subject, c.Grade, c.Description, c.ID)
		if err != nil {
			return fmt.Errorf("failed to update curriculum: %w", err)
		}
		return requireRow(res)
	})
}

// DeleteCurriculum deletes a curriculum and, via cascade, its courses,
// cards and hints.
func (s *Store) DeleteCurriculum(ctx context.Context, id string) error {
	return s.executeWrite(func(db *sqlx.DB) error {
		res, err := db.ExecContext(ctx, `DELETE FROM curricula WHERE id = ?`, id)
		if err != nil {
			return fmt.Errorf("failed to delete curriculum: %w", err)
		}
		return requireRow(res)
	})
}

// --- Courses ---

// CreateCourse inserts a course.
func (s *Store) CreateCourse(ctx context.Context, c *types.Course) error {
	if c.CreatedAt.IsZero() {
		c.CreatedAt = time.Now().UTC()
	}
	return s.executeWrite(func(db *sqlx.DB) error {
		_, err := db.ExecContext(ctx,
			`INSERT INTO courses (id, curriculum_id, title, description, position, created_at)
			 VALUES (?, ?, ?, ?, ?, ?)`,
			c.ID, c.CurriculumID, c.Title, c.Description, c.Position, c.CreatedAt)
		if err != nil {
			return fmt.Errorf("failed to insert course: %w", err)
		}
		return nil
	})
}

// GetCourse retrieves a course by ID.
func (s *Store) GetCourse(ctx context.Context, id string) (*types.Course, error) {
	var c types.Course
	err := s.db.GetContext(ctx, &c, `SELECT * FROM courses WHERE id = ?`, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to query course: %w", err)
	}
	return &c, nil
}

// ListCoursesByCurriculum returns a curriculum's courses in position
// order.
func (s *Store) ListCoursesByCurriculum(ctx context.Context, curriculumID string) ([]*types.Course, error) {
	var courses []*types.Course
	err := s.db.SelectContext(ctx, &courses,
		`SELECT * FROM courses WHERE curriculum_id = ? ORDER BY position ASC, created_at ASC`,
		curriculumID)
	if err != nil {
		return nil, fmt.Errorf("failed to query courses: %w", err)
	}
	return courses, nil
}

// UpdateCourse updates the editable fields of a course.
func (s *Store) UpdateCourse(ctx context.Context, c *types.Course) error {
	return s.executeWrite(func(db *sqlx.DB) error {
		res, err := db.ExecContext(ctx,
			`UPDATE courses SET title = ?, description = ?, position = ? WHERE id = ?`,
			c.Title, c.Description, c.Position, c.ID)
		if err != nil {
			return fmt.Errorf("failed to update course: %w", err)
		}
		return requireRow(res)
	})
}

// DeleteCourse deletes a course and its cards.
func (s *Store) DeleteCourse(ctx context.Context, id string) error {
	return s.executeWrite(func(db *sqlx.DB) error {
		res, err := db.ExecContext(ctx, `DELETE FROM courses WHERE id = ?`, id)
		if err != nil {
			return fmt.Errorf("failed to delete course: %w", err)
		}
		return requireRow(res)
	})
}

// --- Learning cards ---

// CreateCard inserts a learning card.
func (s *Store) CreateCard(ctx context.Context, c *types.LearningCard) error {
	if c.CreatedAt.IsZero() {
		c.CreatedAt = time.Now().UTC()
	}
	return s.executeWrite(func(db *sqlx.DB) error {
		_, err := db.ExecContext(ctx,
			`INSERT INTO learning_cards (id, course_id, title, content, position, created_at)
			 VALUES (?, ?, ?, ?, ?, ?)`,
			c.ID, c.CourseID, c.Title, c.Content, c.Position, c.CreatedAt)
		if err != nil {
			return fmt.Errorf("failed to insert card: %w", err)
		}
		return nil
	})
}

// GetCard retrieves a learning card by ID.
func (s *Store) GetCard(ctx context.Context, id string) (*types.LearningCard, error) {
	var c types.LearningCard
	err := s.db.GetContext(ctx, &c, `SELECT * FROM learning_cards WHERE id = ?`, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to query card: %w", err)
	}
	return &c, nil
}

// ListCardsByCourse returns a course's cards in position order.
func (s *Store) ListCardsByCourse(ctx context.Context, courseID string) ([]*types.LearningCard, error) {
	var cards []*types.LearningCard
	err := s.db.SelectContext(ctx, &cards,
		`SELECT * FROM learning_cards WHERE course_id = ? ORDER BY position ASC, created_at ASC`,
		courseID)
	if err != nil {
		return nil, fmt.Errorf("failed to query cards: %w", err)
	}
	return cards, nil
}

// UpdateCard updates the editable fields of a learning card.
func (s *Store) UpdateCard(ctx context.Context, c *types.LearningCard) error {
	return s.executeWrite(func(db *sqlx.DB) error {
		res, err := db.ExecContext(ctx,
			`UPDATE learning_cards SET title = ?, content = ?, position = ? WHERE id = ?`,
			c.Title, c.Content, c.Position, c.ID)
		if err != nil {
			return fmt.Errorf("failed to update card: %w", err)
		}
		return requireRow(res)
	})
}

// DeleteCard deletes a learning card and its hints.
func (s *Store) DeleteCard(ctx context.Context, id string) error {
	return s.executeWrite(func(db *sqlx.DB) error {
		res, err := db.ExecContext(ctx, `DELETE FROM learning_cards WHERE id = ?`, id)
		if err != nil {
			return fmt.Errorf("failed to delete card: %w", err)
		}
		return requireRow(res)
	})
}

// --- Hints ---

// CreateHint inserts a hint for a card.
func (s *Store) CreateHint(ctx context.Context, h *types.Hint) error {
	if h.CreatedAt.IsZero() {
		h.CreatedAt = time.Now().UTC()
	}
	return s.executeWrite(func(db *sqlx.DB) error {
		_, err := db.ExecContext(ctx,
			`INSERT INTO hints (id, card_id, level, content, created_at)
			 VALUES (?, ?, ?, ?, ?)`,
			h.ID, h.CardID, h.Level, h.Content, h.CreatedAt)
		if err != nil {
			return fmt.Errorf("failed to insert hint: %w", err)
		}
		return nil
	})
}

// ListHintsByCard returns a card's hints from gentlest to strongest.
func (s *Store) ListHintsByCard(ctx context.Context, cardID string) ([]*types.Hint, error) {
	var hints []*types.Hint
	err := s.db.SelectContext(ctx, &hints,
		`SELECT * FROM hints WHERE card_id = ? ORDER BY level ASC`, cardID)
	if err != nil {
		return nil, fmt.Errorf("failed to query hints: %w", err)
	}
	return hints, nil
}

// DeleteHint deletes a hint.
func (s *Store) DeleteHint(ctx context.Context, id string) error {
	return s.executeWrite(func(db *sqlx.DB) error {
		res, err := db.ExecContext(ctx, `DELETE FROM hints WHERE id = ?`, id)
		if err != nil {
			return fmt.Errorf("failed to delete hint: %w", err)
		}
		return requireRow(res)
	})
}

// --- Student progress ---

// UpsertProgress inserts or overwrites a student's state on one card.
// (student_id, card_id) is the conflict key; the stored row always
// reflects the latest update.
func (s *Store) UpsertProgress(ctx context.Context, p *types.StudentProgress) error {
	if p.UpdatedAt.IsZero() {
		p.UpdatedAt = time.Now().UTC()
	}
	return s.executeWrite(func(db *sqlx.DB) error {
		_, err := db.ExecContext(ctx,
			`INSERT INTO student_progress
			   (id, student_id, class_code, curriculum_id, course_id, card_id, status, understanding_level, updated_at)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
			 ON CONFLICT (student_id, card_id) DO UPDATE SET
			   class_code = excluded.class_code,
			   curriculum_id = excluded.curriculum_id,
			   course_id = excluded.course_id,
			   status = excluded.status,
			   understanding_level = excluded.understanding_level,
			   updated_at = excluded.updated_at`,
			p.ID, p.StudentID, p.ClassCode, p.CurriculumID, p.CourseID, p.CardID,
			p.Status, p.UnderstandingLevel, p.UpdatedAt)
		if err != nil {
			return fmt.Errorf("failed to upsert progress: %w", err)
		}
		return nil
	})
}

// GetProgressByStudent returns all of a student's progress rows, most
// recently updated first.
func (s *Store) GetProgressByStudent(ctx context.Context, studentID int64) ([]*types.StudentProgress, error) {
	var rows []*types.StudentProgress
	err := s.db.SelectContext(ctx, &rows,
		`SELECT * FROM student_progress WHERE student_id = ? ORDER BY updated_at DESC`,
		studentID)
	if err != nil {
		return nil, fmt.Errorf("failed to query progress: %w", err)
	}
	return rows, nil
}

// ListProgressByClass returns every progress row recorded under one
// class code, most recently updated first.
func (s *Store) ListProgressByClass(ctx context.Context, classCode string) ([]*types.StudentProgress, error) {
	var rows []*types.StudentProgress
	err := s.db.SelectContext(ctx, &rows,
		`SELECT * FROM student_progress WHERE class_code = ? ORDER BY updated_at DESC`,
		classCode)
	if err != nil {
		return nil, fmt.Errorf("failed to query class progress: %w", err)
	}
	return rows, nil
}

// --- Evaluations ---

// CreateEvaluation inserts an evaluation.
func (s *Store) CreateEvaluation(ctx context.Context, e *types.Evaluation) error {
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now().UTC()
	}
	return s.executeWrite(func(db *sqlx.DB) error {
		_, err := db.ExecContext(ctx,
			`INSERT INTO evaluations (id, student_id, curriculum_id, feedback, score, created_at)
			 VALUES (?, ?, ?, ?, ?, ?)`,
			e.ID, e.StudentID, e.CurriculumID, e.Feedback, e.Score, e.CreatedAt)
		if err != nil {
			return fmt.Errorf("failed to insert evaluation: %w", err)
		}
		return nil
	})
}

// ListEvaluationsByStudent returns a student's evaluations, newest
// first.
func (s *Store) ListEvaluationsByStudent(ctx context.Context, studentID int64) ([]*types.Evaluation, error) {
	var evals []*types.Evaluation
	err := s.db.SelectContext(ctx, &evals,
		`SELECT * FROM evaluations WHERE student_id = ? ORDER BY created_at DESC`,
		studentID)
	if err != nil {
		return nil, fmt.Errorf("failed to query evaluations: %w", err)
	}
	return evals, nil
}

// --- Lifecycle ---

// HealthCheck validates connectivity and a trivial read.
func (s *Store) HealthCheck(ctx context.Context) error {
	if err := s.db.PingContext(ctx); err != nil {
		return fmt.Errorf("database ping failed: %w", err)
	}
	var n int
	if err := s.db.GetContext(ctx, &n, `SELECT COUNT(*) FROM curricula`); err != nil {
		return fmt.Errorf("database read test failed: %w", err)
	}
	return nil
}

// Close drains the writer goroutine and closes the database.
func (s *Store) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	s.mu.Unlock()

	close(s.shutdown)
	s.wg.Wait()

	if err := s.db.Close(); err != nil {
		return fmt.Errorf("failed to close database: %w", err)
	}
	return nil
}

// requireRow converts a zero-row write into ErrNotFound.
func requireRow(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read rows affected: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}
