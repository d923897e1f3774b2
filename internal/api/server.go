package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"freepace/internal/genai"
	"freepace/internal/store"
	"freepace/pkg/types"
)

// Store is the persistence surface the API needs. Declared locally so
// handlers can be tested against a mock instead of a real database.
type Store interface {
	CreateCurriculum(ctx context.Context, c *types.Curriculum) error
	GetCurriculum(ctx context.Context, id string) (*types.Curriculum, error)
	ListCurricula(ctx context.Context) ([]*types.Curriculum, error)
	UpdateCurriculum(ctx context.Context, c *types.Curriculum) error
	DeleteCurriculum(ctx context.Context, id string) error

	CreateCourse(ctx context.Context, c *types.Course) error
	GetCourse(ctx context.Context, id string) (*types.Course, error)
	ListCoursesByCurriculum(ctx context.Context, curriculumID string) ([]*types.Course, error)
	UpdateCourse(ctx context.Context, c *types.Course) error
	DeleteCourse(ctx context.Context, id string) error

	CreateCard(ctx context.Context, c *types.LearningCard) error
	GetCard(ctx context.Context, id string) (*types.LearningCard, error)
	ListCardsByCourse(ctx context.Context, courseID string) ([]*types.LearningCard, error)
	UpdateCard(ctx context.Context, c *types.LearningCard) error
	DeleteCard(ctx context.Context, id string) error

	CreateHint(ctx context.Context, h *types.Hint) error
	ListHintsByCard(ctx context.Context, cardID string) ([]*types.Hint, error)
	DeleteHint(ctx context.Context, id string) error

	UpsertProgress(ctx context.Context, p *types.StudentProgress) error
	GetProgressByStudent(ctx context.Context, studentID int64) ([]*types.StudentProgress, error)
	ListProgressByClass(ctx context.Context, classCode string) ([]*types.StudentProgress, error)

	CreateEvaluation(ctx context.Context, e *types.Evaluation) error
	ListEvaluationsByStudent(ctx context.Context, studentID int64) ([]*types.Evaluation, error)

	HealthCheck(ctx context.Context) error
}

// Generator is the slice of the genai client the API needs.
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
	GenerateJSON(ctx context.Context, prompt string, v interface{}) error
}

// Registry exposes relay counters for the health endpoint.
type Registry interface {
	Stats() map[string]int
}

// Server is the HTTP API: CRUD over the learning schema, generative-AI
// synthesis endpoints, and a health check. No business logic lives
// here, only HTTP handling and JSON serialization.
type Server struct {
	store     Store
	generator Generator
	registry  Registry
	router    chi.Router
	validate  *validator.Validate
}

// NewServer wires routes and middleware.
func NewServer(st Store, gen Generator, reg Registry) *Server {
	s := &Server{
		store:     st,
		generator: gen,
		registry:  reg,
		validate:  validator.New(),
	}

	r := chi.NewRouter()
	r.Use(s.corsMiddleware)
	r.Use(s.jsonMiddleware)

	r.Route("/api", func(r chi.Router) {
		r.Route("/curricula", func(r chi.Router) {
			r.Post("/", s.createCurriculum)
			r.Get("/", s.listCurricula)
			r.Get("/{id}", s.getCurriculum)
			r.Put("/{id}", s.updateCurriculum)
			r.Delete("/{id}", s.deleteCurriculum)
			r.Get("/{id}/courses", s.listCourses)
		})
		r.Route("/courses", func(r chi.Router) {
			r.Post("/", s.createCourse)
			r.Get("/{id}", s.getCourse)
			r.Put("/{id}", s.updateCourse)
			r.Delete("/{id}", s.deleteCourse)
			r.Get("/{id}/cards", s.listCards)
		})
		r.Route("/cards", func(r chi.Router) {
			r.Post("/", s.createCard)
			r.Get("/{id}", s.getCard)
			r.Put("/{id}", s.updateCard)
			r.Delete("/{id}", s.deleteCard)
			r.Get("/{id}/hints", s.listHints)
			r.Post("/{id}/hints", s.createHint)
		})
		r.Delete("/hints/{id}", s.deleteHint)

		r.Put("/progress", s.upsertProgress)
		r.Get("/students/{id}/progress", s.listProgress)
		r.Get("/classes/{code}/progress", s.listClassProgress)

		r.Post("/evaluations", s.createEvaluation)
		r.Get("/students/{id}/evaluations", s.listEvaluations)

		r.Route("/generate", func(r chi.Router) {
			r.Post("/curriculum", s.generateCurriculum)
			r.Post("/hint", s.generateHint)
			r.Post("/feedback", s.generateFeedback)
		})
	})

	r.Get("/health", s.healthCheck)

	s.router = r
	return s
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// ErrorResponse is the error envelope for every non-2xx reply.
type ErrorResponse struct {
	Error   string `json:"error"`
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// --- Curricula ---

type CreateCurriculumRequest struct {
	Title       string `json:"title" validate:"required,max=200"`
	Subject     string `json:"subject" validate:"required,max=100"`
	Grade       int    `json:"grade" validate:"required,min=1,max=9"`
	Description string `json:"description" validate:"max=4000"`
	CreatedBy   string `json:"created_by" validate:"required,max=100"`
}

func (s *Server) createCurriculum(w http.ResponseWriter, r *http.Request) {
	var req CreateCurriculumRequest
	if !s.decode(w, r, &req) {
		return
	}

	curriculum := &types.Curriculum{
		ID:          uuid.New().String(),
		Title:       req.Title,
		Subject:     req.Subject,
		Grade:       req.Grade,
		Description: req.Description,
		CreatedBy:   req.CreatedBy,
		CreatedAt:   time.Now().UTC(),
	}
	if err := s.store.CreateCurriculum(r.Context(), curriculum); err != nil {
		s.storeError(w, err, "Failed to create curriculum")
		return
	}

	s.respond(w, http.StatusCreated, curriculum)
}

func (s *Server) listCurricula(w http.ResponseWriter, r *http.Request) {
	curricula, err := s.store.ListCurricula(r.Context())
	if err != nil {
		s.storeError(w, err, "Failed to list curricula")
		return
	}
	if curricula == nil {
		curricula = []*types.Curriculum{}
	}
	s.respond(w, http.StatusOK, curricula)
}

func (s *Server) getCurriculum(w http.ResponseWriter, r *http.Request) {
	curriculum, err := s.store.GetCurriculum(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.storeError(w, err, "Failed to get curriculum")
		return
	}
	s.respond(w, http.StatusOK, curriculum)
}

func (s *Server) updateCurriculum(w http.ResponseWriter, r *http.Request) {
	var req CreateCurriculumRequest
	if !s.decode(w, r, &req) {
		return
	}

	curriculum := &types.Curriculum{
		ID:          chi.URLParam(r, "id"),
		Title:       req.Title,
		Subject:     req.Subject,
		Grade:       req.Grade,
		Description: req.Description,
	}
	if err := s.store.UpdateCurriculum(r.Context(), curriculum); err != nil {
		s.storeError(w, err, "Failed to update curriculum")
		return
	}
	s.respond(w, http.StatusOK, map[string]string{"message": "Curriculum updated"})
}

func (s *Server) deleteCurriculum(w http.ResponseWriter, r *http.Request) {
	if err := s.store.DeleteCurriculum(r.Context(), chi.URLParam(r, "id")); err != nil {
		s.storeError(w, err, "Failed to delete curriculum")
		return
	}
	s.respond(w, http.StatusOK, map[string]string{"message": "Curriculum deleted"})
}

// --- Courses ---

type CreateCourseRequest struct {
	CurriculumID string `json:"curriculum_id" validate:"required"`
	Title        string `json:"title" validate:"required,max=200"`
	Description  string `json:"description" validate:"max=4000"`
	Position     int    `json:"position" validate:"min=0"`
}

func (s *Server) createCourse(w http.ResponseWriter, r *http.Request) {
	var req CreateCourseRequest
	if !s.decode(w, r, &req) {
		return
	}

	// Reject courses pointing at a curriculum that does not exist;
	// SQLite would also catch this, but 404 beats a 500.
	if _, err := s.store.GetCurriculum(r.Context(), req.CurriculumID); err != nil {
		s.storeError(w, err, "Failed to resolve curriculum")
		return
	}

	course := &types.Course{
		ID:           uuid.New().String(),
		CurriculumID: req.CurriculumID,
		Title:        req.Title,
		Description:  req.Description,
		Position:     req.Position,
		CreatedAt:    time.Now().UTC(),
	}
	if err := s.store.CreateCourse(r.Context(), course); err != nil {
		s.storeError(w, err, "Failed to create course")
		return
	}
	s.respond(w, http.StatusCreated, course)
}

func (s *Server) getCourse(w http.ResponseWriter, r *http.Request) {
	course, err := s.store.GetCourse(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.storeError(w, err, "Failed to get course")
		return
	}
	s.respond(w, http.StatusOK, course)
}

func (s *Server) listCourses(w http.ResponseWriter, r *http.Request) {
	courses, err := s.store.ListCoursesByCurriculum(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.storeError(w, err, "Failed to list courses")
		return
	}
	if courses == nil {
		courses = []*types.Course{}
	}
	s.respond(w, http.StatusOK, courses)
}

func (s *Server) updateCourse(w http.ResponseWriter, r *http.Request) {
	var req CreateCourseRequest
	if !s.decode(w, r, &req) {
		return
	}

	course := &types.Course{
		ID:          chi.URLParam(r, "id"),
		Title:       req.Title,
		Description: req.Description,
		Position:    req.Position,
	}
	if err := s.store.UpdateCourse(r.Context(), course); err != nil {
		s.storeError(w, err, "Failed to update course")
		return
	}
	s.respond(w, http.StatusOK, map[string]string{"message": "Course updated"})
}

func (s *Server) deleteCourse(w http.ResponseWriter, r *http.Request) {
	if err := s.store.DeleteCourse(r.Context(), chi.URLParam(r, "id")); err != nil {
		s.storeError(w, err, "Failed to delete course")
		return
	}
	s.respond(w, http.StatusOK, map[string]string{"message": "Course deleted"})
}

// --- Learning cards ---

type CreateCardRequest struct {
	CourseID string `json:"course_id" validate:"required"`
	Title    string `json:"title" validate:"required,max=200"`
	Content  string `json:"content" validate:"max=65536"`
	Position int    `json:"position" validate:"min=0"`
}

func (s *Server) createCard(w http.ResponseWriter, r *http.Request) {
	var req CreateCardRequest
	if !s.decode(w, r, &req) {
		return
	}

	if _, err := s.store.GetCourse(r.Context(), req.CourseID); err != nil {
		s.storeError(w, err, "Failed to resolve course")
		return
	}

	card := &types.LearningCard{
		ID:        uuid.New().String(),
		CourseID:  req.CourseID,
		Title:     req.Title,
		Content:   req.Content,
		Position:  req.Position,
		CreatedAt: time.Now().UTC(),
	}
	if err := s.store.CreateCard(r.Context(), card); err != nil {
		s.storeError(w, err, "Failed to create card")
		return
	}
	s.respond(w, http.StatusCreated, card)
}

func (s *Server) getCard(w http.ResponseWriter, r *http.Request) {
	card, err := s.store.GetCard(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.storeError(w, err, "Failed to get card")
		return
	}
	s.respond(w, http.StatusOK, card)
}

func (s *Server) listCards(w http.ResponseWriter, r *http.Request) {
	cards, err := s.store.ListCardsByCourse(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.storeError(w, err, "Failed to list cards")
		return
	}
	if cards == nil {
		cards = []*types.LearningCard{}
	}
	s.respond(w, http.StatusOK, cards)
}

func (s *Server) updateCard(w http.ResponseWriter, r *http.Request) {
	var req CreateCardRequest
	if !s.decode(w, r, &req) {
		return
	}

	card := &types.LearningCard{
		ID:       chi.URLParam(r, "id"),
		Title:    req.Title,
		Content:  req.Content,
		Position: req.Position,
	}
	if err := s.store.UpdateCard(r.Context(), card); err != nil {
		s.storeError(w, err, "Failed to update card")
		return
	}
	s.respond(w, http.StatusOK, map[string]string{"message": "Card updated"})
}

func (s *Server) deleteCard(w http.ResponseWriter, r *http.Request) {
	if err := s.store.DeleteCard(r.Context(), chi.URLParam(r, "id")); err != nil {
		s.storeError(w, err, "Failed to delete card")
		return
	}
	s.respond(w, http.StatusOK, map[string]string{"message": "Card deleted"})
}

// --- Hints ---

type CreateHintRequest struct {
	Level   int    `json:"level" validate:"required,min=1,max=3"`
	Content string `json:"content" validate:"required,max=4000"`
}

func (s *Server) createHint(w http.ResponseWriter, r *http.Request) {
	var req CreateHintRequest
	if !s.decode(w, r, &req) {
		return
	}

	cardID := chi.URLParam(r, "id")
	if _, err := s.store.GetCard(r.Context(), cardID); err != nil {
		s.storeError(w, err, "Failed to resolve card")
		return
	}

	hint := &types.Hint{
		ID:        uuid.New().String(),
		CardID:    cardID,
		Level:     req.Level,
		Content:   req.Content,
		CreatedAt: time.Now().UTC(),
	}
	if err := s.store.CreateHint(r.Context(), hint); err != nil {
		s.storeError(w, err, "Failed to create hint")
		return
	}
	s.respond(w, http.StatusCreated, hint)
}

func (s *Server) listHints(w http.ResponseWriter, r *http.Request) {
	hints, err := s.store.ListHintsByCard(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.storeError(w, err, "Failed to list hints")
		return
	}
	if hints == nil {
		hints = []*types.Hint{}
	}
	s.respond(w, http.StatusOK, hints)
}

func (s *Server) deleteHint(w http.ResponseWriter, r *http.Request) {
	if err := s.store.DeleteHint(r.Context(), chi.URLParam(r, "id")); err != nil {
		s.storeError(w, err, "Failed to delete hint")
		return
	}
	s.respond(w, http.StatusOK, map[string]string{"message": "Hint deleted"})
}

// --- Progress ---

type UpsertProgressRequest struct {
	StudentID          int64  `json:"student_id" validate:"required,min=1"`
	ClassCode          string `json:"class_code" validate:"max=50"`
	CurriculumID       string `json:"curriculum_id"`
	CourseID           string `json:"course_id"`
	CardID             string `json:"card_id" validate:"required"`
	Status             string `json:"status" validate:"required,oneof=not_started in_progress completed"`
	UnderstandingLevel int    `json:"understanding_level" validate:"min=0,max=5"`
}

func (s *Server) upsertProgress(w http.ResponseWriter, r *http.Request) {
	var req UpsertProgressRequest
	if !s.decode(w, r, &req) {
		return
	}

	progress := &types.StudentProgress{
		ID:                 uuid.New().String(),
		StudentID:          req.StudentID,
		ClassCode:          req.ClassCode,
		CurriculumID:       req.CurriculumID,
		CourseID:           req.CourseID,
		CardID:             req.CardID,
		Status:             req.Status,
		UnderstandingLevel: req.UnderstandingLevel,
		UpdatedAt:          time.Now().UTC(),
	}
	if err := s.store.UpsertProgress(r.Context(), progress); err != nil {
		s.storeError(w, err, "Failed to save progress")
		return
	}
	s.respond(w, http.StatusOK, progress)
}

func (s *Server) listProgress(w http.ResponseWriter, r *http.Request) {
	studentID, ok := s.studentID(w, r)
	if !ok {
		return
	}

	rows, err := s.store.GetProgressByStudent(r.Context(), studentID)
	if err != nil {
		s.storeError(w, err, "Failed to list progress")
		return
	}
	if rows == nil {
		rows = []*types.StudentProgress{}
	}
	s.respond(w, http.StatusOK, rows)
}

func (s *Server) listClassProgress(w http.ResponseWriter, r *http.Request) {
	classCode := chi.URLParam(r, "code")
	if !types.IsValidClassCode(classCode) {
		s.sendError(w, "Invalid class code", http.StatusBadRequest)
		return
	}

	rows, err := s.store.ListProgressByClass(r.Context(), classCode)
	if err != nil {
		s.storeError(w, err, "Failed to list class progress")
		return
	}
	if rows == nil {
		rows = []*types.StudentProgress{}
	}
	s.respond(w, http.StatusOK, rows)
}

// --- Evaluations ---

type CreateEvaluationRequest struct {
	StudentID    int64  `json:"student_id" validate:"required,min=1"`
	CurriculumID string `json:"curriculum_id" validate:"required"`
	Feedback     string `json:"feedback" validate:"required,max=8000"`
	Score        int    `json:"score" validate:"min=0,max=100"`
}

func (s *Server) createEvaluation(w http.ResponseWriter, r *http.Request) {
	var req CreateEvaluationRequest
	if !s.decode(w, r, &req) {
		return
	}

	eval := &types.Evaluation{
		ID:           uuid.New().String(),
		StudentID:    req.StudentID,
		CurriculumID: req.CurriculumID,
		Feedback:     req.Feedback,
		Score:        req.Score,
		CreatedAt:    time.Now().UTC(),
	}
	if err := s.store.CreateEvaluation(r.Context(), eval); err != nil {
		s.storeError(w, err, "Failed to create evaluation")
		return
	}
	s.respond(w, http.StatusCreated, eval)
}

func (s *Server) listEvaluations(w http.ResponseWriter, r *http.Request) {
	studentID, ok := s.studentID(w, r)
	if !ok {
		return
	}

	evals, err := s.store.ListEvaluationsByStudent(r.Context(), studentID)
	if err != nil {
		s.storeError(w, err, "Failed to list evaluations")
		return
	}
	if evals == nil {
		evals = []*types.Evaluation{}
	}
	s.respond(w, http.StatusOK, evals)
}

// --- Generation ---

type GenerateCurriculumRequest struct {
	Subject   string `json:"subject" validate:"required,max=100"`
	Grade     int    `json:"grade" validate:"required,min=1,max=9"`
	Topic     string `json:"topic" validate:"required,max=200"`
	CardCount int    `json:"card_count" validate:"min=0,max=20"`
}

// CurriculumDraft is the structured shape the model is asked to emit.
// It is a draft only: teachers review and persist it through the CRUD
// endpoints.
type CurriculumDraft struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Courses     []struct {
		Title string `json:"title"`
		Cards []struct {
			Title   string `json:"title"`
			Content string `json:"content"`
		} `json:"cards"`
	} `json:"courses"`
}

func (s *Server) generateCurriculum(w http.ResponseWriter, r *http.Request) {
	var req GenerateCurriculumRequest
	if !s.decode(w, r, &req) {
		return
	}
	if req.CardCount == 0 {
		req.CardCount = 5
	}

	prompt := fmt.Sprintf(
		"Create a self-paced learning curriculum for grade %d %s on the topic %q. "+
			"Answer with JSON only, no prose, in this shape: "+
			`{"title":"","description":"","courses":[{"title":"","cards":[{"title":"","content":""}]}]}. `+
			"Use about %d cards per course.",
		req.Grade, req.Subject, req.Topic, req.CardCount)

	var draft CurriculumDraft
	if err := s.generator.GenerateJSON(r.Context(), prompt, &draft); err != nil {
		s.generationError(w, err)
		return
	}
	s.respond(w, http.StatusOK, draft)
}

type GenerateHintRequest struct {
	CardTitle   string `json:"card_title" validate:"required,max=200"`
	CardContent string `json:"card_content" validate:"required,max=8000"`
	Level       int    `json:"level" validate:"required,min=1,max=3"`
}

func (s *Server) generateHint(w http.ResponseWriter, r *http.Request) {
	var req GenerateHintRequest
	if !s.decode(w, r, &req) {
		return
	}

	prompt := fmt.Sprintf(
		"A student is stuck on the learning card %q:\n%s\n"+
			"Write a level %d hint (1 = gentle nudge, 3 = nearly the answer). "+
			"Answer with the hint text only.",
		req.CardTitle, req.CardContent, req.Level)

	hint, err := s.generator.Generate(r.Context(), prompt)
	if err != nil {
		s.generationError(w, err)
		return
	}
	s.respond(w, http.StatusOK, map[string]string{"hint": hint})
}

type GenerateFeedbackRequest struct {
	StudentName string `json:"student_name" validate:"required,max=100"`
	Summary     string `json:"summary" validate:"required,max=8000"`
}

func (s *Server) generateFeedback(w http.ResponseWriter, r *http.Request) {
	var req GenerateFeedbackRequest
	if !s.decode(w, r, &req) {
		return
	}

	prompt := fmt.Sprintf(
		"Write short, encouraging feedback for student %s based on this progress summary:\n%s\n"+
			"Answer with the feedback text only.",
		req.StudentName, req.Summary)

	feedback, err := s.generator.Generate(r.Context(), prompt)
	if err != nil {
		s.generationError(w, err)
		return
	}
	s.respond(w, http.StatusOK, map[string]string{"feedback": feedback})
}

// --- Health ---

type HealthResponse struct {
	Status      string         `json:"status"`
	Timestamp   time.Time      `json:"timestamp"`
	Database    string         `json:"database"`
	Connections map[string]int `json:"connections"`
}

func (s *Server) healthCheck(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	status := "healthy"
	dbStatus := "healthy"
	if err := s.store.HealthCheck(ctx); err != nil {
		status = "unhealthy"
		dbStatus = fmt.Sprintf("error: %v", err)
	}

	response := HealthResponse{
		Status:      status,
		Timestamp:   time.Now().UTC(),
		Database:    dbStatus,
		Connections: s.registry.Stats(),
	}

	code := http.StatusOK
	if status == "unhealthy" {
		code = http.StatusServiceUnavailable
	}
	s.respond(w, code, response)
}

// --- Helpers ---

// decode parses and validates a JSON request body, replying 400 on
// failure. Returns false when the handler should stop.
func (s *Server) decode(w http.ResponseWriter, r *http.Request, v interface{}) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		s.sendError(w, "Invalid JSON", http.StatusBadRequest)
		return false
	}
	if err := s.validate.Struct(v); err != nil {
		s.sendError(w, err.Error(), http.StatusBadRequest)
		return false
	}
	return true
}

func (s *Server) studentID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		s.sendError(w, "Invalid student ID", http.StatusBadRequest)
		return 0, false
	}
	return id, true
}

func (s *Server) respond(w http.ResponseWriter, code int, v interface{}) {
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("Failed to encode response: %v", err)
	}
}

// storeError maps store failures onto HTTP status codes.
func (s *Server) storeError(w http.ResponseWriter, err error, message string) {
	if errors.Is(err, store.ErrNotFound) {
		s.sendError(w, "Not found", http.StatusNotFound)
		return
	}
	log.Printf("%s: %v", message, err)
	s.sendError(w, message, http.StatusInternalServerError)
}

// generationError distinguishes recoverable model failures (retry the
// request) from everything else.
func (s *Server) generationError(w http.ResponseWriter, err error) {
	if errors.Is(err, genai.ErrNotJSON) || errors.Is(err, genai.ErrExhausted) {
		s.sendError(w, "Generation failed, please retry: "+err.Error(), http.StatusBadGateway)
		return
	}
	log.Printf("Generation failed: %v", err)
	s.sendError(w, "Generation failed", http.StatusInternalServerError)
}

func (s *Server) sendError(w http.ResponseWriter, message string, code int) {
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(ErrorResponse{
		Error:   http.StatusText(code),
		Code:    code,
		Message: message,
	}); err != nil {
		log.Printf("Failed to encode error response: %v", err)
	}
}

func (s *Server) corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		w.Header().Set("Access-Control-Max-Age", "86400")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

func (s *Server) jsonMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		next.ServeHTTP(w, r)
	})
}
