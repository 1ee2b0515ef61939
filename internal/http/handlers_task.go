package http

import (
	"net/http"

	"finboard/internal/core"
)

func (s *Server) handleListTasks(w http.ResponseWriter, r *http.Request) {
	tasks, err := s.repo.ListTasks(r.Context())
	if err != nil {
		respondDomainError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, toTaskResponses(tasks))
}

func (s *Server) handleCreateTask(w http.ResponseWriter, r *http.Request) {
	var req taskRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	task, err := req.toDomain(0)
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := task.Validate(); err != nil {
		respondDomainError(w, r, err)
		return
	}

	created, err := s.repo.CreateTask(r.Context(), task)
	if err != nil {
		respondDomainError(w, r, err)
		return
	}
	respondJSON(w, http.StatusCreated, toTaskResponse(created))
}

func (s *Server) handleUpdateTask(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r)
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	var req taskRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	task, err := req.toDomain(id)
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := task.Validate(); err != nil {
		respondDomainError(w, r, err)
		return
	}

	if err := s.repo.UpdateTask(r.Context(), task); err != nil {
		respondDomainError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, toTaskResponse(task))
}

func (s *Server) handleDeleteTask(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r)
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := s.repo.DeleteTask(r.Context(), id); err != nil {
		respondDomainError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type moveTaskRequest struct {
	Status    string `json:"status"`
	SortOrder int    `json:"sortOrder"`
}

// handleMoveTask repositions a task on the board: target column and slot.
func (s *Server) handleMoveTask(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r)
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	var req moveTaskRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	status := core.TaskStatus(req.Status)
	switch status {
	case core.TaskTodo, core.TaskDoing, core.TaskDone:
	default:
		respondError(w, http.StatusBadRequest, "invalid status")
		return
	}
	if req.SortOrder < 0 {
		respondError(w, http.StatusBadRequest, "sortOrder must not be negative")
		return
	}

	if err := s.repo.MoveTask(r.Context(), id, status, req.SortOrder); err != nil {
		respondDomainError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
