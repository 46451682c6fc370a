package web

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	log "github.com/go-pkgz/lgr"
	"github.com/go-pkgz/rest"

	"github.com/umputun/kanban/app/board"
)

// errMalformedRequest returned for bodies or path values the handlers can't use
var errMalformedRequest = errors.New("malformed request")

// createTaskRequest is the body of POST /api/task
type createTaskRequest struct {
	ColumnID *int    `json:"column_id"`
	Text     *string `json:"text"`
}

// moveTaskRequest is the body of POST /api/task/{id}/move
type moveTaskRequest struct {
	NewColumnID *int `json:"new_column_id"`
}

// updateTaskRequest is the body of PUT /api/task/{id}
type updateTaskRequest struct {
	Text *string `json:"text"`
}

// createColumnRequest is the body of POST /api/column
type createColumnRequest struct {
	Title *string `json:"title"`
}

// MoveTaskResponse is the JSON response for a moved task
type MoveTaskResponse struct {
	Success   bool   `json:"success"`
	Message   string `json:"message"`
	NewStatus string `json:"new_status"`
}

// handleGetBoard returns the whole board
func (s *Server) handleGetBoard(w http.ResponseWriter, r *http.Request) {
	b, err := s.svc.GetBoard(r.Context())
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, b)
}

// handleSchema returns JSON schema of the board document
func (s *Server) handleSchema(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, http.StatusOK, board.Schema())
}

// handleCreateTask adds a task to the column, responds with the created task
func (s *Server) handleCreateTask(w http.ResponseWriter, r *http.Request) {
	var req createTaskRequest
	if err := decodeBody(r, &req); err != nil {
		s.writeJSONError(w, http.StatusBadRequest, err.Error())
		return
	}
	if req.ColumnID == nil || req.Text == nil {
		s.writeJSONError(w, http.StatusBadRequest, "column_id and text are required")
		return
	}

	task, err := s.svc.CreateTask(r.Context(), *req.ColumnID, *req.Text)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	s.writeJSON(w, http.StatusCreated, task)
}

// handleMoveTask moves the task to another column
func (s *Server) handleMoveTask(w http.ResponseWriter, r *http.Request) {
	taskID, err := pathID(r)
	if err != nil {
		s.writeJSONError(w, http.StatusBadRequest, err.Error())
		return
	}
	var req moveTaskRequest
	if err = decodeBody(r, &req); err != nil {
		s.writeJSONError(w, http.StatusBadRequest, err.Error())
		return
	}
	if req.NewColumnID == nil {
		s.writeJSONError(w, http.StatusBadRequest, "new_column_id is required")
		return
	}

	res, err := s.svc.MoveTask(r.Context(), taskID, *req.NewColumnID)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, MoveTaskResponse{
		Success:   true,
		Message:   fmt.Sprintf("Task %d moved to column %d.", taskID, *req.NewColumnID),
		NewStatus: res.Status.String(),
	})
}

// handleUpdateTask replaces text of the task
func (s *Server) handleUpdateTask(w http.ResponseWriter, r *http.Request) {
	taskID, err := pathID(r)
	if err != nil {
		s.writeJSONError(w, http.StatusBadRequest, err.Error())
		return
	}
	var req updateTaskRequest
	if err = decodeBody(r, &req); err != nil {
		s.writeJSONError(w, http.StatusBadRequest, err.Error())
		return
	}
	if req.Text == nil {
		s.writeJSONError(w, http.StatusBadRequest, "text is required")
		return
	}

	if err := s.svc.UpdateTaskText(r.Context(), taskID, *req.Text); err != nil {
		s.writeServiceError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, rest.JSON{"success": true})
}

// handleDeleteTask removes the task
func (s *Server) handleDeleteTask(w http.ResponseWriter, r *http.Request) {
	taskID, err := pathID(r)
	if err != nil {
		s.writeJSONError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := s.svc.DeleteTask(r.Context(), taskID); err != nil {
		s.writeServiceError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, rest.JSON{"success": true})
}

// handleCreateColumn appends a column, responds with the created column
func (s *Server) handleCreateColumn(w http.ResponseWriter, r *http.Request) {
	var req createColumnRequest
	if err := decodeBody(r, &req); err != nil {
		s.writeJSONError(w, http.StatusBadRequest, err.Error())
		return
	}
	if req.Title == nil {
		s.writeJSONError(w, http.StatusBadRequest, "title is required")
		return
	}

	col, err := s.svc.CreateColumn(r.Context(), *req.Title)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	s.writeJSON(w, http.StatusCreated, col)
}

// handleDeleteColumn removes the column with all its tasks
func (s *Server) handleDeleteColumn(w http.ResponseWriter, r *http.Request) {
	columnID, err := pathID(r)
	if err != nil {
		s.writeJSONError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := s.svc.DeleteColumn(r.Context(), columnID); err != nil {
		s.writeServiceError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, rest.JSON{"success": true})
}

// pathID parses {id} path value
func pathID(r *http.Request) (int, error) {
	v := r.PathValue("id")
	id, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%w: invalid id %q", errMalformedRequest, v)
	}
	return id, nil
}

// decodeBody decodes JSON request body into v
func decodeBody(r *http.Request, v any) error {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return fmt.Errorf("%w: invalid json body", errMalformedRequest)
	}
	return nil
}

// writeServiceError maps board errors to response codes
func (s *Server) writeServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, board.ErrTaskNotFound):
		s.writeJSONError(w, http.StatusNotFound, "Task not found")
	case errors.Is(err, board.ErrColumnNotFound):
		s.writeJSONError(w, http.StatusNotFound, "Column not found")
	default:
		log.Printf("[ERROR] board operation failed: %v", err)
		s.writeJSONError(w, http.StatusInternalServerError, "internal error")
	}
}

// writeJSON writes a JSON response
func (s *Server) writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(data); err != nil {
		log.Printf("[WARN] failed to encode JSON response: %v", err)
	}
}

// writeJSONError writes a JSON error response
func (s *Server) writeJSONError(w http.ResponseWriter, status int, message string) {
	s.writeJSON(w, status, rest.JSON{"success": false, "error": message})
}
