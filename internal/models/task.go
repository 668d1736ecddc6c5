package models

import (
	"sort"
	"time"
)

// TaskStatus is the progress state of a task
type TaskStatus string

const (
	StatusPending    TaskStatus = "pending"
	StatusInProgress TaskStatus = "in-progress"
	StatusCompleted  TaskStatus = "completed"
	StatusCancelled  TaskStatus = "cancelled"
)

// Valid reports whether s is a known status
func (s TaskStatus) Valid() bool {
	switch s {
	case StatusPending, StatusInProgress, StatusCompleted, StatusCancelled:
		return true
	}
	return false
}

// TaskPriority ranks tasks
type TaskPriority string

const (
	PriorityLow    TaskPriority = "low"
	PriorityMedium TaskPriority = "medium"
	PriorityHigh   TaskPriority = "high"
)

// Valid reports whether p is a known priority
func (p TaskPriority) Valid() bool {
	switch p {
	case PriorityLow, PriorityMedium, PriorityHigh:
		return true
	}
	return false
}

// DefaultCategory is used when a task is created without one
const DefaultCategory = "other"

// Task is a unit of work scoped to one family
type Task struct {
	ID          string       `json:"id"`
	Title       string       `json:"title"`
	Description string       `json:"description"`
	Status      TaskStatus   `json:"status"`
	Priority    TaskPriority `json:"priority"`
	DueDate     *time.Time   `json:"dueDate"`
	CreatedBy   string       `json:"createdBy"`
	FamilyID    string       `json:"family"`
	Assignees   []string     `json:"assignees"`
	Category    string       `json:"category"`
	CompletedAt *time.Time   `json:"completedAt"`
	CompletedBy *string      `json:"completedBy"`
	CreatedAt   time.Time    `json:"createdAt"`
	UpdatedAt   time.Time    `json:"updatedAt"`
}

// IsCreator reports whether userID created the task
func (t *Task) IsCreator(userID string) bool {
	return userID != "" && t.CreatedBy == userID
}

// IsAssignee reports whether userID is assigned to the task
func (t *Task) IsAssignee(userID string) bool {
	if userID == "" {
		return false
	}
	for _, a := range t.Assignees {
		if a == userID {
			return true
		}
	}
	return false
}

// SetStatus changes the status and keeps the completion fields in step:
// entering completed records who and when, leaving it clears both.
func (t *Task) SetStatus(status TaskStatus, by string, now time.Time) {
	wasCompleted := t.Status == StatusCompleted
	t.Status = status

	switch {
	case status == StatusCompleted && (!wasCompleted || t.CompletedAt == nil):
		completedAt := now
		completedBy := by
		t.CompletedAt = &completedAt
		t.CompletedBy = &completedBy
	case status != StatusCompleted:
		t.CompletedAt = nil
		t.CompletedBy = nil
	}
}

// TaskFilter narrows a task listing. When FamilyID is empty the listing is
// limited to tasks VisibleTo created or is assigned to.
type TaskFilter struct {
	FamilyID  string
	VisibleTo string
	Status    TaskStatus
	Priority  TaskPriority
	Category  string
	Assignee  string
	DueOn     *time.Time
	DueBefore *time.Time
	DueAfter  *time.Time
}

// DueRange returns the inclusive due date window implied by the filter.
// DueOn selects its whole UTC calendar day and wins over DueAfter/DueBefore.
func (f TaskFilter) DueRange() (from, to *time.Time) {
	if f.DueOn != nil {
		d := f.DueOn.UTC()
		start := time.Date(d.Year(), d.Month(), d.Day(), 0, 0, 0, 0, time.UTC)
		end := start.AddDate(0, 0, 1).Add(-time.Nanosecond)
		return &start, &end
	}
	return f.DueAfter, f.DueBefore
}

// Matches reports whether t satisfies the filter
func (f TaskFilter) Matches(t *Task) bool {
	if f.FamilyID != "" {
		if t.FamilyID != f.FamilyID {
			return false
		}
	} else if f.VisibleTo != "" && !t.IsCreator(f.VisibleTo) && !t.IsAssignee(f.VisibleTo) {
		return false
	}
	if f.Status != "" && t.Status != f.Status {
		return false
	}
	if f.Priority != "" && t.Priority != f.Priority {
		return false
	}
	if f.Category != "" && t.Category != f.Category {
		return false
	}
	if f.Assignee != "" && !t.IsAssignee(f.Assignee) {
		return false
	}
	from, to := f.DueRange()
	if from != nil || to != nil {
		if t.DueDate == nil {
			return false
		}
		if from != nil && t.DueDate.Before(*from) {
			return false
		}
		if to != nil && t.DueDate.After(*to) {
			return false
		}
	}
	return true
}

// SortTasks orders tasks by due date ascending, tasks without a due date
// first, then by creation time newest first.
func SortTasks(tasks []Task) {
	sort.SliceStable(tasks, func(i, j int) bool {
		a, b := tasks[i], tasks[j]
		switch {
		case a.DueDate == nil && b.DueDate != nil:
			return true
		case a.DueDate != nil && b.DueDate == nil:
			return false
		case a.DueDate != nil && b.DueDate != nil && !a.DueDate.Equal(*b.DueDate):
			return a.DueDate.Before(*b.DueDate)
		}
		return a.CreatedAt.After(b.CreatedAt)
	})
}
