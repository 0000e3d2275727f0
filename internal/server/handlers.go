package server

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/valter-silva-au/priority-os/internal/core"
	"github.com/valter-silva-au/priority-os/pkg/models"
)

// SlotRequest is a scheduled slot in a request body.
type SlotRequest struct {
	Start           time.Time `json:"start" validate:"required"`
	DurationMinutes int       `json:"durationMinutes" validate:"gt=0,lte=1440"`
}

// CreateTaskRequest is the body of POST /api/tasks. Either Title or Capture
// must be set; Capture is parsed with the capture micro-syntax.
type CreateTaskRequest struct {
	ID            int          `json:"id" validate:"gte=0"`
	Title         string       `json:"title" validate:"required_without=Capture"`
	Capture       string       `json:"capture,omitempty"`
	Priority      *int         `json:"priority"`
	Tags          []string     `json:"tags" validate:"dive,required"`
	TargetDay     string       `json:"targetDay" validate:"omitempty,oneof=today tomorrow|datetime=2006-01-02"`
	Completed     bool         `json:"completed"`
	ScheduledSlot *SlotRequest `json:"scheduledSlot"`
	CreatedAt     time.Time    `json:"createdAt"`
}

// PatchTaskRequest is the body of PATCH /api/tasks/{id}.
type PatchTaskRequest struct {
	ID            *int         `json:"id"`
	CreatedAt     *time.Time   `json:"createdAt"`
	Title         *string      `json:"title"`
	Priority      *int         `json:"priority"`
	Tags          *[]string    `json:"tags"`
	TargetDay     *string      `json:"targetDay" validate:"omitempty,oneof=today tomorrow|datetime=2006-01-02"`
	Completed     *bool        `json:"completed"`
	ScheduledSlot *SlotRequest `json:"scheduledSlot"`
	ClearSlot     bool         `json:"clearSlot"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func (s *Service) health(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	n := s.store.Len()
	s.mu.Unlock()
	respondWithJSON(w, http.StatusOK, map[string]any{"status": "ok", "tasks": n})
}

// listTasks handles GET /api/tasks. Tasks are returned in insertion order;
// clients rank them, and ranking ties depend on that order.
func (s *Service) listTasks(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	tasks := s.store.All()
	s.mu.Unlock()
	respondWithJSON(w, http.StatusOK, tasks)
}

// createTask handles POST /api/tasks. The payload id is kept when it is
// positive and unused; otherwise the next id is assigned.
func (s *Service) createTask(w http.ResponseWriter, r *http.Request) {
	var req CreateTaskRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondWithError(w, r, http.StatusBadRequest, "Invalid request format", err)
		return
	}
	if err := s.validate.Struct(req); err != nil {
		s.respondWithError(w, r, http.StatusBadRequest, "Validation error: "+err.Error(), err)
		return
	}

	task, err := s.taskFromRequest(req)
	if err != nil {
		s.respondWithError(w, r, statusFor(err), err.Error(), err)
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	created := s.store.Insert(task)
	if err := s.persist(); err != nil {
		s.respondWithError(w, r, http.StatusInternalServerError, "Failed to save tasks", err)
		return
	}
	s.logger.Info("task created", "task_id", created.ID, "priority", created.Priority)
	respondWithJSON(w, http.StatusCreated, created)
}

func (s *Service) taskFromRequest(req CreateTaskRequest) (models.Task, error) {
	task := models.Task{
		ID:        req.ID,
		Title:     strings.TrimSpace(req.Title),
		Priority:  models.DefaultPriority,
		Tags:      req.Tags,
		TargetDay: req.TargetDay,
		Completed: req.Completed,
		CreatedAt: req.CreatedAt,
	}
	if task.Title == "" {
		draft, err := core.ParseCapture(req.Capture)
		if err != nil {
			return models.Task{}, err
		}
		task.Title = draft.Title
		task.Priority = draft.Priority
		task.Tags = append(task.Tags, draft.Tags...)
		if task.TargetDay == "" {
			task.TargetDay = draft.TargetDay
		}
	}
	if req.Priority != nil {
		task.Priority = *req.Priority
	}
	if req.ScheduledSlot != nil {
		task.ScheduledSlot = &models.Slot{Start: req.ScheduledSlot.Start, DurationMinutes: req.ScheduledSlot.DurationMinutes}
	}
	return task, nil
}

// updateTask handles PATCH /api/tasks/{id}.
func (s *Service) updateTask(w http.ResponseWriter, r *http.Request) {
	id, ok := s.taskID(w, r)
	if !ok {
		return
	}

	var req PatchTaskRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondWithError(w, r, http.StatusBadRequest, "Invalid request format", err)
		return
	}
	if err := s.validate.Struct(req); err != nil {
		s.respondWithError(w, r, http.StatusBadRequest, "Validation error: "+err.Error(), err)
		return
	}

	patch := models.TaskPatch{
		ID:        req.ID,
		CreatedAt: req.CreatedAt,
		Title:     req.Title,
		Priority:  req.Priority,
		Tags:      req.Tags,
		TargetDay: req.TargetDay,
		Completed: req.Completed,
		ClearSlot: req.ClearSlot,
	}
	if req.ScheduledSlot != nil {
		patch.ScheduledSlot = &models.Slot{Start: req.ScheduledSlot.Start, DurationMinutes: req.ScheduledSlot.DurationMinutes}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	updated, err := s.store.Update(id, patch)
	if err != nil {
		s.respondWithError(w, r, statusFor(err), err.Error(), err)
		return
	}
	if err := s.persist(); err != nil {
		s.respondWithError(w, r, http.StatusInternalServerError, "Failed to save tasks", err)
		return
	}
	respondWithJSON(w, http.StatusOK, updated)
}

// autoSchedule handles POST /api/tasks/{id}/auto_schedule?minutes=n.
func (s *Service) autoSchedule(w http.ResponseWriter, r *http.Request) {
	id, ok := s.taskID(w, r)
	if !ok {
		return
	}

	var hint *int
	if raw := r.URL.Query().Get("minutes"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			s.respondWithError(w, r, http.StatusBadRequest, "minutes must be an integer", err)
			return
		}
		hint = &n
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	task, err := s.store.Get(id)
	if err != nil {
		s.respondWithError(w, r, statusFor(err), err.Error(), err)
		return
	}
	slot, err := s.scheduler.Assign(task, hint, s.store.Occupied(id), s.now())
	if err != nil {
		s.respondWithError(w, r, statusFor(err), err.Error(), err)
		return
	}
	updated, err := s.store.Update(id, models.TaskPatch{ScheduledSlot: &slot})
	if err != nil {
		s.respondWithError(w, r, statusFor(err), err.Error(), err)
		return
	}
	if err := s.persist(); err != nil {
		s.respondWithError(w, r, http.StatusInternalServerError, "Failed to save tasks", err)
		return
	}
	s.logger.Info("task scheduled", "task_id", id, "start", slot.Start, "minutes", slot.DurationMinutes)
	respondWithJSON(w, http.StatusOK, updated)
}

func (s *Service) taskID(w http.ResponseWriter, r *http.Request) (int, bool) {
	id, err := strconv.Atoi(chi.URLParam(r, "id"))
	if err != nil || id <= 0 {
		s.respondWithError(w, r, http.StatusBadRequest, "Invalid task id", err)
		return 0, false
	}
	return id, true
}

// statusFor maps engine errors to HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, core.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, core.ErrAlreadyScheduled):
		return http.StatusConflict
	case errors.Is(err, core.ErrNoAvailableSlot):
		return http.StatusUnprocessableEntity
	case errors.Is(err, core.ErrEmptyTitle),
		errors.Is(err, core.ErrImmutableField),
		errors.Is(err, core.ErrInvalidDuration):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func respondWithJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

// respondWithError writes {"error": message}. 5xx responses are logged at
// error level, the rest at debug.
func (s *Service) respondWithError(w http.ResponseWriter, r *http.Request, status int, message string, err error) {
	level := slog.LevelDebug
	if status >= http.StatusInternalServerError {
		level = slog.LevelError
	}
	attrs := []any{
		"status_code", status,
		"path", r.URL.Path,
		"method", r.Method,
	}
	if err != nil {
		attrs = append(attrs, "error", err.Error())
	}
	s.logger.Log(r.Context(), level, "API error response", attrs...)
	respondWithJSON(w, status, errorResponse{Error: message})
}
