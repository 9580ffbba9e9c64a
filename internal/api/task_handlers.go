package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/comicdl/comicdl/internal/task"
)

const taskListLimit = 50

type submitTaskRequest struct {
	Site     string `json:"site"`
	ComicID  string `json:"comicid"`
	Chapters string `json:"chapters"`
	Notify   string `json:"notify"`
}

// submitTask accepts a download job and runs it in the background.
// Resubmitting identical parameters returns the existing task instead of
// spawning a second download.
func (s *Server) submitTask(w http.ResponseWriter, r *http.Request) {
	var req submitTaskRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	if req.Site == "" || req.ComicID == "" {
		writeError(w, http.StatusBadRequest, "site and comicid required")
		return
	}

	t, created, err := s.worker.Submit(r.Context(), req.Site, req.ComicID, req.Chapters)
	if err != nil {
		s.writeCrawlError(w, err)
		return
	}
	if created {
		// The job outlives the request; give it its own deadline.
		go func() {
			ctx, cancel := context.WithTimeout(context.Background(), time.Hour)
			defer cancel()
			if err := s.worker.Run(ctx, t, req.Notify); err != nil {
				s.logger.Warn("task run failed",
					zap.String("task", t.ID), zap.Error(err))
			}
		}()
	}
	writeJSON(w, http.StatusAccepted, map[string]any{"task": t, "created": created})
}

func (s *Server) getTask(w http.ResponseWriter, r *http.Request) {
	t, err := s.store.Get(r.Context(), chi.URLParam(r, "task_id"))
	if errors.Is(err, task.ErrNotFound) {
		writeError(w, http.StatusNotFound, "task not found")
		return
	}
	if err != nil {
		s.logger.Error("get task failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"task": t})
}

func (s *Server) listTasks(w http.ResponseWriter, r *http.Request) {
	limit := clamp(queryInt(r, "limit", taskListLimit), 1, 500)
	tasks, err := s.store.List(r.Context(), limit)
	if err != nil {
		s.logger.Error("list tasks failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"tasks": tasks})
}
