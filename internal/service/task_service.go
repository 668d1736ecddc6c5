package service

import (
	"context"
	"strings"
	"time"

	"familytasks/internal/apperrors"
	"familytasks/internal/models"
	"familytasks/internal/policy"
	"familytasks/internal/utils"

	"go.uber.org/zap"
)

// TaskInput holds the fields accepted when creating a task
type TaskInput struct {
	Title       string     `json:"title"`
	Description string     `json:"description"`
	Priority    string     `json:"priority"`
	DueDate     *time.Time `json:"dueDate"`
	FamilyID    string     `json:"familyId"`
	Assignees   []string   `json:"assignees"`
	Category    string     `json:"category"`
}

// TaskUpdate holds a partial task update. Nil fields are left untouched.
type TaskUpdate struct {
	Title       *string    `json:"title"`
	Description *string    `json:"description"`
	Status      *string    `json:"status"`
	Priority    *string    `json:"priority"`
	DueDate     *time.Time `json:"dueDate"`
	Assignees   *[]string  `json:"assignees"`
	Category    *string    `json:"category"`
}

// TaskService handles task business logic
type TaskService struct {
	tasks TaskStore
	log   *zap.Logger
	now   func() time.Time
}

// NewTaskService creates a new task service
func NewTaskService(tasks TaskStore, log *zap.Logger) *TaskService {
	return &TaskService{
		tasks: tasks,
		log:   log,
		now:   func() time.Time { return time.Now().UTC() },
	}
}

// CreateTask creates a task in the given family. Assignees default to the
// requester.
func (s *TaskService) CreateTask(ctx context.Context, requesterID string, in TaskInput) (*models.Task, error) {
	if err := requireUser(requesterID); err != nil {
		return nil, err
	}

	title := utils.SanitizeText(in.Title)
	if title == "" {
		return nil, apperrors.Validation("Title is required", apperrors.FieldError{Field: "title", Message: "title is required"})
	}
	familyID := strings.TrimSpace(in.FamilyID)
	if familyID == "" {
		return nil, apperrors.Validation("Family ID is required", apperrors.FieldError{Field: "familyId", Message: "familyId is required"})
	}

	priority := models.PriorityMedium
	if in.Priority != "" {
		priority = models.TaskPriority(in.Priority)
		if !priority.Valid() {
			return nil, apperrors.Validation("Invalid priority", apperrors.FieldError{Field: "priority", Message: "priority must be low, medium or high"})
		}
	}

	assignees := uniqueIDs(in.Assignees)
	if len(assignees) == 0 {
		assignees = []string{requesterID}
	}

	task := &models.Task{
		Title:       title,
		Description: utils.SanitizeText(in.Description),
		Status:      models.StatusPending,
		Priority:    priority,
		DueDate:     utcPtr(in.DueDate),
		CreatedBy:   requesterID,
		FamilyID:    familyID,
		Assignees:   assignees,
		Category:    normalizeCategory(in.Category),
	}

	if err := s.tasks.Create(ctx, task); err != nil {
		return nil, apperrors.Database("failed to create task", err)
	}

	s.log.Info("task created", zap.String("task_id", task.ID), zap.String("family_id", task.FamilyID), zap.String("user_id", requesterID))
	return task, nil
}

// GetTasks lists tasks matching filter. Without a family the listing is
// limited to tasks the requester created or is assigned to.
func (s *TaskService) GetTasks(ctx context.Context, requesterID string, filter models.TaskFilter) ([]models.Task, error) {
	if err := requireUser(requesterID); err != nil {
		return nil, err
	}
	if filter.Status != "" && !filter.Status.Valid() {
		return nil, apperrors.Validation("Invalid status")
	}
	if filter.Priority != "" && !filter.Priority.Valid() {
		return nil, apperrors.Validation("Invalid priority")
	}
	if filter.FamilyID == "" {
		filter.VisibleTo = requesterID
	}

	tasks, err := s.tasks.List(ctx, filter)
	if err != nil {
		return nil, apperrors.Database("failed to get tasks", err)
	}
	if tasks == nil {
		tasks = []models.Task{}
	}
	return tasks, nil
}

// GetTaskByID returns a task visible to the requester
func (s *TaskService) GetTaskByID(ctx context.Context, requesterID, taskID string) (*models.Task, error) {
	task, err := s.loadTask(ctx, taskID)
	if err != nil {
		return nil, err
	}
	if err := policy.TaskCan(task, requesterID, policy.ViewTask); err != nil {
		return nil, err
	}
	return task, nil
}

// UpdateTask merges update onto the task. Only the creator and assignees
// may update it.
func (s *TaskService) UpdateTask(ctx context.Context, requesterID, taskID string, update TaskUpdate) (*models.Task, error) {
	task, err := s.loadTask(ctx, taskID)
	if err != nil {
		return nil, err
	}
	if err := policy.TaskCan(task, requesterID, policy.EditTask); err != nil {
		return nil, err
	}

	if err := s.apply(task, requesterID, update); err != nil {
		return nil, err
	}

	if err := s.tasks.Update(ctx, task); err != nil {
		return nil, apperrors.Database("failed to update task", err)
	}
	return task, nil
}

// UpdateTaskStatus changes only the task status
func (s *TaskService) UpdateTaskStatus(ctx context.Context, requesterID, taskID, status string) (*models.Task, error) {
	if !models.TaskStatus(status).Valid() {
		return nil, apperrors.Validation("Invalid status", apperrors.FieldError{Field: "status", Message: "status must be pending, in-progress, completed or cancelled"})
	}
	return s.UpdateTask(ctx, requesterID, taskID, TaskUpdate{Status: &status})
}

// DeleteTask deletes a task. Only its creator may delete it.
func (s *TaskService) DeleteTask(ctx context.Context, requesterID, taskID string) error {
	task, err := s.loadTask(ctx, taskID)
	if err != nil {
		return err
	}
	if err := policy.TaskCan(task, requesterID, policy.DeleteTask); err != nil {
		return err
	}
	if err := s.tasks.Delete(ctx, task.ID); err != nil {
		return apperrors.Database("failed to delete task", err)
	}

	s.log.Info("task deleted", zap.String("task_id", task.ID), zap.String("user_id", requesterID))
	return nil
}

func (s *TaskService) apply(task *models.Task, requesterID string, update TaskUpdate) error {
	if update.Title != nil {
		title := utils.SanitizeText(*update.Title)
		if title == "" {
			return apperrors.Validation("Title is required", apperrors.FieldError{Field: "title", Message: "title is required"})
		}
		task.Title = title
	}
	if update.Description != nil {
		task.Description = utils.SanitizeText(*update.Description)
	}
	if update.Priority != nil {
		priority := models.TaskPriority(*update.Priority)
		if !priority.Valid() {
			return apperrors.Validation("Invalid priority", apperrors.FieldError{Field: "priority", Message: "priority must be low, medium or high"})
		}
		task.Priority = priority
	}
	if update.DueDate != nil {
		task.DueDate = utcPtr(update.DueDate)
	}
	if update.Assignees != nil {
		task.Assignees = uniqueIDs(*update.Assignees)
	}
	if update.Category != nil {
		task.Category = normalizeCategory(*update.Category)
	}
	if update.Status != nil {
		status := models.TaskStatus(*update.Status)
		if !status.Valid() {
			return apperrors.Validation("Invalid status", apperrors.FieldError{Field: "status", Message: "status must be pending, in-progress, completed or cancelled"})
		}
		task.SetStatus(status, requesterID, s.now())
	}
	return nil
}

func (s *TaskService) loadTask(ctx context.Context, taskID string) (*models.Task, error) {
	task, err := s.tasks.GetByID(ctx, taskID)
	if err != nil {
		return nil, apperrors.Database("failed to get task", err)
	}
	if task == nil {
		return nil, apperrors.NotFound("Task not found")
	}
	return task, nil
}

// uniqueIDs trims ids and drops blanks and repeats, keeping first-seen order
func uniqueIDs(ids []string) []string {
	seen := make(map[string]bool, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		id = strings.TrimSpace(id)
		if id == "" || seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, id)
	}
	return out
}

func normalizeCategory(category string) string {
	category = utils.SanitizeText(category)
	if category == "" {
		return models.DefaultCategory
	}
	return category
}

func utcPtr(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	u := t.UTC()
	return &u
}
