package store

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"

	"freepace/internal/config"
	"freepace/pkg/types"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()

	cfg := &config.DatabaseConfig{
		Path:    filepath.Join(t.TempDir(), "test.db"),
		Timeout: 30 * time.Second,
	}
	s, err := NewStore(cfg)
	if err != nil {
		t.Fatalf("Failed to create store: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func seedCurriculum(t *testing.T, s *Store) *types.Curriculum {
	t.Helper()

	c := &types.Curriculum{
		ID:          uuid.New().String(),
		Title:       "Algebra Basics",
		Subject:     "math",
		Grade:       7,
		Description: "Linear equations and graphing",
		CreatedBy:   "teacher-1",
	}
	if err := s.CreateCurriculum(context.Background(), c); err != nil {
		t.Fatalf("Failed to create curriculum: %v", err)
	}
	return c
}

func seedCourse(t *testing.T, s *Store, curriculumID string, position int) *types.Course {
	t.Helper()

	c := &types.Course{
		ID:           uuid.New().String(),
		CurriculumID: curriculumID,
		Title:        "Solving Equations",
		Position:     position,
	}
	if err := s.CreateCourse(context.Background(), c); err != nil {
		t.Fatalf("Failed to create course: %v", err)
	}
	return c
}

func seedCard(t *testing.T, s *Store, courseID string, position int) *types.LearningCard {
	t.Helper()

	c := &types.LearningCard{
		ID:       uuid.New().String(),
		CourseID: courseID,
		Title:    "One-step equations",
		Content:  "Solve x + 3 = 7",
		Position: position,
	}
	if err := s.CreateCard(context.Background(), c); err != nil {
		t.Fatalf("Failed to create card: %v", err)
	}
	return c
}

func TestCurriculumCRUD(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	created := seedCurriculum(t, s)

	got, err := s.GetCurriculum(ctx, created.ID)
	if err != nil {
		t.Fatalf("Failed to get curriculum: %v", err)
	}
	if got.Title != created.Title || got.Grade != created.Grade {
		t.Errorf("Round trip mismatch: got %+v", got)
	}
	if got.CreatedAt.IsZero() {
		t.Error("Expected CreatedAt to be filled in")
	}

	created.Title = "Algebra Fundamentals"
	created.Grade = 8
	if err := s.UpdateCurriculum(ctx, created); err != nil {
		t.Fatalf("Failed to update curriculum: %v", err)
	}
	got, err = s.GetCurriculum(ctx, created.ID)
	if err != nil {
		t.Fatalf("Failed to re-get curriculum: %v", err)
	}
	if got.Title != "Algebra Fundamentals" || got.Grade != 8 {
		t.Errorf("Update not applied: %+v", got)
	}

	list, err := s.ListCurricula(ctx)
	if err != nil {
		t.Fatalf("Failed to list curricula: %v", err)
	}
	if len(list) != 1 {
		t.Errorf("Expected 1 curriculum, got %d", len(list))
	}

	if err := s.DeleteCurriculum(ctx, created.ID); err != nil {
		t.Fatalf("Failed to delete curriculum: %v", err)
	}
	if _, err := s.GetCurriculum(ctx, created.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("Expected ErrNotFound after delete, got %v", err)
	}
}

func TestNotFoundPaths(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	if _, err := s.GetCurriculum(ctx, "missing"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Expected ErrNotFound, got %v", err)
	}
	if _, err := s.GetCourse(ctx, "missing"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Expected ErrNotFound, got %v", err)
	}
	if _, err := s.GetCard(ctx, "missing"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Expected ErrNotFound, got %v", err)
	}
	if err := s.UpdateCurriculum(ctx, &types.Curriculum{ID: "missing"}); !errors.Is(err, ErrNotFound) {
		t.Errorf("Expected ErrNotFound on update, got %v", err)
	}
	if err := s.DeleteCard(ctx, "missing"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Expected ErrNotFound on delete, got %v", err)
	}
	if err := s.DeleteHint(ctx, "missing"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Expected ErrNotFound on hint delete, got %v", err)
	}
}

func TestCoursesOrderedByPosition(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	curriculum := seedCurriculum(t, s)
	second := seedCourse(t, s, curriculum.ID, 2)
	first := seedCourse(t, s, curriculum.ID, 1)

	courses, err := s.ListCoursesByCurriculum(ctx, curriculum.ID)
	if err != nil {
		t.Fatalf("Failed to list courses: %v", err)
	}
	if len(courses) != 2 {
		t.Fatalf("Expected 2 courses, got %d", len(courses))
	}
	if courses[0].ID != first.ID || courses[1].ID != second.ID {
		t.Errorf("Courses out of position order: %s then %s", courses[0].ID, courses[1].ID)
	}
}

func TestDeleteCurriculumCascades(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	curriculum := seedCurriculum(t, s)
	course := seedCourse(t, s, curriculum.ID, 1)
	card := seedCard(t, s, course.ID, 1)

	hint := &types.Hint{
		ID:      uuid.New().String(),
		CardID:  card.ID,
		Level:   1,
		Content: "Subtract 3 from both sides",
	}
	if err := s.CreateHint(ctx, hint); err != nil {
		t.Fatalf("Failed to create hint: %v", err)
	}

	if err := s.DeleteCurriculum(ctx, curriculum.ID); err != nil {
		t.Fatalf("Failed to delete curriculum: %v", err)
	}

	if _, err := s.GetCourse(ctx, course.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("Expected course cascade-deleted, got %v", err)
	}
	if _, err := s.GetCard(ctx, card.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("Expected card cascade-deleted, got %v", err)
	}
	hints, err := s.ListHintsByCard(ctx, card.ID)
	if err != nil {
		t.Fatalf("Failed to list hints: %v", err)
	}
	if len(hints) != 0 {
		t.Errorf("Expected hints cascade-deleted, got %d", len(hints))
	}
}

func TestHintsOrderedByLevel(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	curriculum := seedCurriculum(t, s)
	course := seedCourse(t, s, curriculum.ID, 1)
	card := seedCard(t, s, course.ID, 1)

	for _, level := range []int{3, 1, 2} {
		hint := &types.Hint{
			ID:      uuid.New().String(),
			CardID:  card.ID,
			Level:   level,
			Content: "hint",
		}
		if err := s.CreateHint(ctx, hint); err != nil {
			t.Fatalf("Failed to create hint level %d: %v", level, err)
		}
	}

	hints, err := s.ListHintsByCard(ctx, card.ID)
	if err != nil {
		t.Fatalf("Failed to list hints: %v", err)
	}
	if len(hints) != 3 {
		t.Fatalf("Expected 3 hints, got %d", len(hints))
	}
	for i, hint := range hints {
		if hint.Level != i+1 {
			t.Errorf("Expected level %d at index %d, got %d", i+1, i, hint.Level)
		}
	}
}

func TestUpsertProgressOverwrites(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	first := &types.StudentProgress{
		ID:                 uuid.New().String(),
		StudentID:          7,
		CurriculumID:       "cu1",
		CourseID:           "co1",
		CardID:             "ca1",
		Status:             types.StatusInProgress,
		UnderstandingLevel: 2,
	}
	if err := s.UpsertProgress(ctx, first); err != nil {
		t.Fatalf("Failed to upsert progress: %v", err)
	}

	// Same student and card: the row is overwritten, not duplicated.
	second := &types.StudentProgress{
		ID:                 uuid.New().String(),
		StudentID:          7,
		CurriculumID:       "cu1",
		CourseID:           "co1",
		CardID:             "ca1",
		Status:             types.StatusCompleted,
		UnderstandingLevel: 5,
	}
	if err := s.UpsertProgress(ctx, second); err != nil {
		t.Fatalf("Failed to upsert progress again: %v", err)
	}

	rows, err := s.GetProgressByStudent(ctx, 7)
	if err != nil {
		t.Fatalf("Failed to get progress: %v", err)
	}
	if len(rows) != 1 {
		t.Fatalf("Expected 1 row after upsert, got %d", len(rows))
	}
	if rows[0].Status != types.StatusCompleted || rows[0].UnderstandingLevel != 5 {
		t.Errorf("Expected latest state, got %+v", rows[0])
	}

	// A different card is a distinct row.
	third := &types.StudentProgress{
		ID:        uuid.New().String(),
		StudentID: 7,
		CardID:    "ca2",
		Status:    types.StatusNotStarted,
	}
	if err := s.UpsertProgress(ctx, third); err != nil {
		t.Fatalf("Failed to upsert third progress: %v", err)
	}
	rows, err = s.GetProgressByStudent(ctx, 7)
	if err != nil {
		t.Fatalf("Failed to re-get progress: %v", err)
	}
	if len(rows) != 2 {
		t.Errorf("Expected 2 rows for 2 cards, got %d", len(rows))
	}
}

func TestListProgressByClass(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	for i, classCode := range []string{"classA", "classA", "classB"} {
		p := &types.StudentProgress{
			ID:        uuid.New().String(),
			StudentID: int64(i + 1),
			ClassCode: classCode,
			CardID:    "ca1",
			Status:    types.StatusInProgress,
		}
		if err := s.UpsertProgress(ctx, p); err != nil {
			t.Fatalf("Failed to upsert progress for %s: %v", classCode, err)
		}
	}

	rows, err := s.ListProgressByClass(ctx, "classA")
	if err != nil {
		t.Fatalf("Failed to list class progress: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("Expected 2 rows for classA, got %d", len(rows))
	}
	for _, row := range rows {
		if row.ClassCode != "classA" {
			t.Errorf("Expected classA row, got %+v", row)
		}
	}

	rows, err = s.ListProgressByClass(ctx, "classC")
	if err != nil {
		t.Fatalf("Failed to list empty class: %v", err)
	}
	if len(rows) != 0 {
		t.Errorf("Expected no rows for classC, got %d", len(rows))
	}
}

func TestEvaluations(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	eval := &types.Evaluation{
		ID:           uuid.New().String(),
		StudentID:    7,
		CurriculumID: "cu1",
		Feedback:     "Strong grasp of one-step equations",
		Score:        88,
	}
	if err := s.CreateEvaluation(ctx, eval); err != nil {
		t.Fatalf("Failed to create evaluation: %v", err)
	}

	evals, err := s.ListEvaluationsByStudent(ctx, 7)
	if err != nil {
		t.Fatalf("Failed to list evaluations: %v", err)
	}
	if len(evals) != 1 {
		t.Fatalf("Expected 1 evaluation, got %d", len(evals))
	}
	if evals[0].Score != 88 || evals[0].Feedback != eval.Feedback {
		t.Errorf("Round trip mismatch: %+v", evals[0])
	}

	// Another student sees nothing.
	evals, err = s.ListEvaluationsByStudent(ctx, 8)
	if err != nil {
		t.Fatalf("Failed to list other student's evaluations: %v", err)
	}
	if len(evals) != 0 {
		t.Errorf("Expected no evaluations for student 8, got %d", len(evals))
	}
}

func TestHealthCheck(t *testing.T) {
	s := newTestStore(t)
	if err := s.HealthCheck(context.Background()); err != nil {
		t.Errorf("Expected healthy store, got %v", err)
	}
}

func TestCloseIsIdempotentAndRejectsWrites(t *testing.T) {
	s := newTestStore(t)

	if err := s.Close(); err != nil {
		t.Fatalf("Failed to close store: %v", err)
	}
	if err := s.Close(); err != nil {
		t.Errorf("Expected second close to be a no-op, got %v", err)
	}

	err := s.CreateCurriculum(context.Background(), &types.Curriculum{ID: "x", Title: "t"})
	if !errors.Is(err, ErrClosed) {
		t.Errorf("Expected ErrClosed after close, got %v", err)
	}
}
