package httpapi

import (
	"encoding/json"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"taskwing/store"
)

const (
	maxTitleLen       = 200
	maxDescriptionLen = 1000
)

type taskRequest struct {
	Title       *string `json:"title"`
	Description *string `json:"description"`
}

func (s *Server) handleCreateTask(w http.ResponseWriter, r *http.Request) {
	uid := userID(r)

	var req taskRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	title := ""
	if req.Title != nil {
		title = *req.Title
	}
	if strings.TrimSpace(title) == "" {
		s.writeError(w, http.StatusBadRequest, "Title is required")
		return
	}
	if len(title) > maxTitleLen {
		s.writeError(w, http.StatusBadRequest, "Title must be 200 characters or less")
		return
	}
	description := ""
	if req.Description != nil {
		description = *req.Description
	}
	if len(description) > maxDescriptionLen {
		s.writeError(w, http.StatusBadRequest, "Description must be 1000 characters or less")
		return
	}

	task := &store.Task{
		UserID:      uid,
		Title:       strings.TrimSpace(title),
		Description: strings.TrimSpace(description),
	}
	if err := s.store.CreateTask(task); err != nil {
		s.logger.Error("creating task", zap.String("user_id", uid), zap.Error(err))
		s.writeError(w, http.StatusInternalServerError, "could not create task")
		return
	}

	s.emitter.TaskCreated(uid, task.ID, task.Title, task.Description)
	s.writeJSON(w, http.StatusCreated, task)
}

func (s *Server) handleListTasks(w http.ResponseWriter, r *http.Request) {
	uid := userID(r)

	tasks, err := s.store.ListTasks(uid)
	if err != nil {
		s.logger.Error("listing tasks", zap.String("user_id", uid), zap.Error(err))
		s.writeError(w, http.StatusInternalServerError, "could not list tasks")
		return
	}
	s.writeJSON(w, http.StatusOK, tasks)
}

func (s *Server) handleGetTask(w http.ResponseWriter, r *http.Request) {
	uid := userID(r)
	id, err := pathID(r, "id")
	if err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid task id")
		return
	}

	task, err := s.store.GetTask(uid, id)
	if err == store.ErrNotFound {
		s.writeError(w, http.StatusNotFound, "Task not found")
		return
	}
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, "could not get task")
		return
	}
	s.writeJSON(w, http.StatusOK, task)
}

func (s *Server) handleUpdateTask(w http.ResponseWriter, r *http.Request) {
	uid := userID(r)
	id, err := pathID(r, "id")
	if err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid task id")
		return
	}

	var req taskRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Title == nil && req.Description == nil {
		s.writeError(w, http.StatusBadRequest, "Must provide at least one field to update (title or description)")
		return
	}
	if req.Title != nil && len(*req.Title) > maxTitleLen {
		s.writeError(w, http.StatusBadRequest, "Title must be 200 characters or less")
		return
	}
	if req.Description != nil && len(*req.Description) > maxDescriptionLen {
		s.writeError(w, http.StatusBadRequest, "Description must be 1000 characters or less")
		return
	}

	task, err := s.store.GetTask(uid, id)
	if err == store.ErrNotFound {
		s.writeError(w, http.StatusNotFound, "Task not found")
		return
	}
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, "could not update task")
		return
	}

	if req.Title != nil {
		task.Title = strings.TrimSpace(*req.Title)
	}
	if req.Description != nil {
		task.Description = strings.TrimSpace(*req.Description)
	}
	if err := s.store.UpdateTask(task); err != nil {
		s.logger.Error("updating task", zap.Int64("task_id", id), zap.Error(err))
		s.writeError(w, http.StatusInternalServerError, "could not update task")
		return
	}

	s.emitter.TaskUpdated(uid, task.ID, req.Title, req.Description)
	s.writeJSON(w, http.StatusOK, task)
}

func (s *Server) handleToggleTask(w http.ResponseWriter, r *http.Request) {
	uid := userID(r)
	id, err := pathID(r, "id")
	if err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid task id")
		return
	}

	task, err := s.store.GetTask(uid, id)
	if err == store.ErrNotFound {
		s.writeError(w, http.StatusNotFound, "Task not found")
		return
	}
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, "could not toggle task")
		return
	}

	task.Completed = !task.Completed
	if err := s.store.UpdateTask(task); err != nil {
		s.logger.Error("toggling task", zap.Int64("task_id", id), zap.Error(err))
		s.writeError(w, http.StatusInternalServerError, "could not toggle task")
		return
	}

	s.emitter.TaskToggled(uid, task.ID, task.Completed)
	s.writeJSON(w, http.StatusOK, task)
}

func (s *Server) handleDeleteTask(w http.ResponseWriter, r *http.Request) {
	uid := userID(r)
	id, err := pathID(r, "id")
	if err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid task id")
		return
	}

	err = s.store.DeleteTask(uid, id)
	if err == store.ErrNotFound {
		s.writeError(w, http.StatusNotFound, "Task not found")
		return
	}
	if err != nil {
		s.logger.Error("deleting task", zap.Int64("task_id", id), zap.Error(err))
		s.writeError(w, http.StatusInternalServerError, "could not delete task")
		return
	}

	s.emitter.TaskDeleted(uid, id)
	w.WriteHeader(http.StatusNoContent)
}
