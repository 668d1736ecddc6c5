package handlers

import (
	"net/http"
	"strings"
	"time"

	"familytasks/internal/apperrors"
	"familytasks/internal/models"
	"familytasks/internal/service"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// TaskHandler handles task endpoints
type TaskHandler struct {
	tasks *service.TaskService
	log   *zap.Logger
}

// NewTaskHandler creates a new task handler
func NewTaskHandler(tasks *service.TaskService, log *zap.Logger) *TaskHandler {
	return &TaskHandler{tasks: tasks, log: log}
}

type createTaskRequest struct {
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Priority    string   `json:"priority"`
	DueDate     string   `json:"dueDate"`
	FamilyID    string   `json:"familyId"`
	Assignees   []string `json:"assignees"`
	Category    string   `json:"category"`
}

type updateTaskRequest struct {
	Title       *string   `json:"title"`
	Description *string   `json:"description"`
	Status      *string   `json:"status"`
	Priority    *string   `json:"priority"`
	DueDate     *string   `json:"dueDate"`
	Assignees   *[]string `json:"assignees"`
	Category    *string   `json:"category"`
}

// CreateTask handles POST /api/tasks
func (h *TaskHandler) CreateTask(w http.ResponseWriter, r *http.Request) {
	var req createTaskRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondWithError(w, r, h.log, err)
		return
	}

	due, err := parseDate("dueDate", req.DueDate)
	if err != nil {
		respondWithError(w, r, h.log, err)
		return
	}

	task, err := h.tasks.CreateTask(r.Context(), userID(r), service.TaskInput{
		Title:       req.Title,
		Description: req.Description,
		Priority:    req.Priority,
		DueDate:     due,
		FamilyID:    req.FamilyID,
		Assignees:   req.Assignees,
		Category:    req.Category,
	})
	if err != nil {
		respondWithError(w, r, h.log, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]interface{}{
		"message": "Task created successfully",
		"task":    task,
	})
}

// GetTasks handles GET /api/tasks
func (h *TaskHandler) GetTasks(w http.ResponseWriter, r *http.Request) {
	filter, err := parseTaskFilter(r)
	if err != nil {
		respondWithError(w, r, h.log, err)
		return
	}

	tasks, err := h.tasks.GetTasks(r.Context(), userID(r), filter)
	if err != nil {
		respondWithError(w, r, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"message": "Tasks retrieved successfully",
		"tasks":   tasks,
	})
}

// GetTask handles GET /api/tasks/{id}
func (h *TaskHandler) GetTask(w http.ResponseWriter, r *http.Request) {
	task, err := h.tasks.GetTaskByID(r.Context(), userID(r), chi.URLParam(r, "id"))
	if err != nil {
		respondWithError(w, r, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"message": "Task retrieved successfully",
		"task":    task,
	})
}

// UpdateTask handles PUT /api/tasks/{id}
func (h *TaskHandler) UpdateTask(w http.ResponseWriter, r *http.Request) {
	var req updateTaskRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondWithError(w, r, h.log, err)
		return
	}

	update := service.TaskUpdate{
		Title:       req.Title,
		Description: req.Description,
		Status:      req.Status,
		Priority:    req.Priority,
		Assignees:   req.Assignees,
		Category:    req.Category,
	}
	if req.DueDate != nil {
		due, err := parseDate("dueDate", *req.DueDate)
		if err != nil {
			respondWithError(w, r, h.log, err)
			return
		}
		update.DueDate = due
	}

	task, err := h.tasks.UpdateTask(r.Context(), userID(r), chi.URLParam(r, "id"), update)
	if err != nil {
		respondWithError(w, r, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"message": "Task updated successfully",
		"task":    task,
	})
}

// DeleteTask handles DELETE /api/tasks/{id}
func (h *TaskHandler) DeleteTask(w http.ResponseWriter, r *http.Request) {
	if err := h.tasks.DeleteTask(r.Context(), userID(r), chi.URLParam(r, "id")); err != nil {
		respondWithError(w, r, h.log, err)
		return
	}
	respondMessage(w, http.StatusOK, "Task deleted successfully")
}

// UpdateTaskStatus handles PATCH /api/tasks/{id}/status
func (h *TaskHandler) UpdateTaskStatus(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Status string `json:"status"`
	}
	if err := decodeJSON(w, r, &req); err != nil {
		respondWithError(w, r, h.log, err)
		return
	}

	task, err := h.tasks.UpdateTaskStatus(r.Context(), userID(r), chi.URLParam(r, "id"), req.Status)
	if err != nil {
		respondWithError(w, r, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"message": "Task status updated successfully",
		"task":    task,
	})
}

func parseTaskFilter(r *http.Request) (models.TaskFilter, error) {
	q := r.URL.Query()
	filter := models.TaskFilter{
		FamilyID: strings.TrimSpace(q.Get("familyId")),
		Status:   models.TaskStatus(q.Get("status")),
		Priority: models.TaskPriority(q.Get("priority")),
		Category: strings.TrimSpace(q.Get("category")),
		Assignee: strings.TrimSpace(q.Get("assignee")),
	}

	var err error
	if filter.DueOn, err = parseDate("dueDate", q.Get("dueDate")); err != nil {
		return filter, err
	}
	if filter.DueBefore, err = parseDate("dueBefore", q.Get("dueBefore")); err != nil {
		return filter, err
	}
	if filter.DueAfter, err = parseDate("dueAfter", q.Get("dueAfter")); err != nil {
		return filter, err
	}
	return filter, nil
}

// parseDate accepts RFC 3339 timestamps or plain YYYY-MM-DD dates. An empty
// value yields nil.
func parseDate(field, value string) (*time.Time, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return nil, nil
	}
	for _, layout := range []string{time.RFC3339Nano, "2006-01-02"} {
		if t, err := time.Parse(layout, value); err == nil {
			t = t.UTC()
			return &t, nil
		}
	}
	return nil, apperrors.Validation("Invalid date", apperrors.FieldError{Field: field, Message: field + " must be a date (YYYY-MM-DD) or RFC 3339 timestamp"})
}
