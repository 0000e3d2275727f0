// Package server implements the remote authority task service consumed by
// the sync gateway: a small JSON API over its own task store, scheduler and
// snapshot file.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-playground/validator/v10"
	"github.com/valter-silva-au/priority-os/internal/core"
	"github.com/valter-silva-au/priority-os/pkg/models"
)

// Service holds the authoritative task set. Requests are serialized by mu,
// so the single-threaded core types are never used concurrently.
type Service struct {
	mu        sync.Mutex
	store     *core.TaskStore
	scheduler *core.Scheduler
	snapshot  core.SnapshotStore
	now       func() time.Time
	logger    *slog.Logger
	validate  *validator.Validate
}

// NewService creates a Service seeded from snapshot. A nil logger discards
// output and a nil clock uses time.Now.
func NewService(snapshot core.SnapshotStore, scheduler *core.Scheduler, logger *slog.Logger, clock func() time.Time) (*Service, error) {
	if clock == nil {
		clock = time.Now
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	var initial []models.Task
	if snapshot != nil {
		tasks, err := snapshot.Load()
		if err != nil {
			return nil, fmt.Errorf("creating service: %w", err)
		}
		initial = tasks
	}

	return &Service{
		store:     core.NewTaskStore(initial, clock),
		scheduler: scheduler,
		snapshot:  snapshot,
		now:       clock,
		logger:    logger,
		validate:  validator.New(),
	}, nil
}

// Router returns the HTTP handler exposing the task API under /api.
func (s *Service) Router() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	r.Route("/api", func(r chi.Router) {
		r.Get("/tasks", s.listTasks)
		r.Post("/tasks", s.createTask)
		r.Patch("/tasks/{id}", s.updateTask)
		r.Post("/tasks/{id}/auto_schedule", s.autoSchedule)
		r.Get("/health", s.health)
	})

	r.Get("/health", s.health)

	return r
}

// ListenAndServe serves the API on addr until ctx is cancelled, then shuts
// down gracefully.
func (s *Service) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("task service listening", "addr", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("serving on %s: %w", addr, err)
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		s.logger.Info("task service shutting down")
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutting down: %w", err)
		}
		return nil
	}
}

// persist writes the current task set to the snapshot. Callers hold mu.
func (s *Service) persist() error {
	if s.snapshot == nil {
		return nil
	}
	if err := s.snapshot.Save(s.store.All()); err != nil {
		return fmt.Errorf("saving snapshot: %w", err)
	}
	return nil
}
