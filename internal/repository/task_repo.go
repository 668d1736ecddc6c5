package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"familytasks/internal/database"
	"familytasks/internal/models"

	"github.com/google/uuid"
)

// TaskRepository handles database operations for tasks and their assignees
type TaskRepository struct {
	db *database.DB
}

// NewTaskRepository creates a new task repository
func NewTaskRepository(db *database.DB) *TaskRepository {
	return &TaskRepository{db: db}
}

const taskColumns = `id, title, description, status, priority, due_date, created_by, family_id,
	category, completed_at, completed_by, created_at, updated_at`

// Create inserts a new task, assigning its ID and timestamps
func (r *TaskRepository) Create(ctx context.Context, task *models.Task) error {
	now := time.Now().UTC()
	task.ID = uuid.NewString()
	task.CreatedAt = now
	task.UpdatedAt = now

	return r.db.WithTx(ctx, func(tx *database.Tx) error {
		return insertTask(ctx, tx, task)
	})
}

func insertTask(ctx context.Context, tx *database.Tx, task *models.Task) error {
	query := `
		INSERT INTO tasks (` + taskColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	if _, err := tx.ExecContext(ctx, query, taskArgs(task)...); err != nil {
		return fmt.Errorf("failed to create task: %w", err)
	}
	return writeAssignees(ctx, tx, task)
}

// Update persists every mutable field of the task
func (r *TaskRepository) Update(ctx context.Context, task *models.Task) error {
	task.UpdatedAt = time.Now().UTC()

	return r.db.WithTx(ctx, func(tx *database.Tx) error {
		query := `
			UPDATE tasks
			SET title = ?, description = ?, status = ?, priority = ?, due_date = ?,
			    category = ?, completed_at = ?, completed_by = ?, updated_at = ?
			WHERE id = ?
		`
		_, err := tx.ExecContext(ctx, query,
			task.Title,
			task.Description,
			string(task.Status),
			string(task.Priority),
			nullTime(task.DueDate),
			task.Category,
			nullTime(task.CompletedAt),
			nullStringPtr(task.CompletedBy),
			task.UpdatedAt,
			task.ID,
		)
		if err != nil {
			return fmt.Errorf("failed to update task: %w", err)
		}
		if _, err := tx.ExecContext(ctx, "DELETE FROM task_assignees WHERE task_id = ?", task.ID); err != nil {
			return fmt.Errorf("failed to clear task assignees: %w", err)
		}
		return writeAssignees(ctx, tx, task)
	})
}

// Delete removes a task and its assignees
func (r *TaskRepository) Delete(ctx context.Context, taskID string) error {
	return r.db.WithTx(ctx, func(tx *database.Tx) error {
		if _, err := tx.ExecContext(ctx, "DELETE FROM task_assignees WHERE task_id = ?", taskID); err != nil {
			return fmt.Errorf("failed to delete task assignees: %w", err)
		}
		if _, err := tx.ExecContext(ctx, "DELETE FROM tasks WHERE id = ?", taskID); err != nil {
			return fmt.Errorf("failed to delete task: %w", err)
		}
		return nil
	})
}

// GetByID retrieves a task by ID
func (r *TaskRepository) GetByID(ctx context.Context, taskID string) (*models.Task, error) {
	query := "SELECT " + taskColumns + " FROM tasks WHERE id = ?"
	task, err := scanTask(r.db.QueryRowContext(ctx, query, taskID))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get task: %w", err)
	}

	tasks := []models.Task{*task}
	if err := r.loadAssignees(ctx, tasks); err != nil {
		return nil, err
	}
	return &tasks[0], nil
}

// List returns the tasks matching filter, ordered by due date (tasks
// without one first) and then newest first
func (r *TaskRepository) List(ctx context.Context, filter models.TaskFilter) ([]models.Task, error) {
	var where []string
	var args []interface{}

	if filter.FamilyID != "" {
		where = append(where, "family_id = ?")
		args = append(args, filter.FamilyID)
	} else if filter.VisibleTo != "" {
		where = append(where, "(created_by = ? OR id IN (SELECT task_id FROM task_assignees WHERE user_id = ?))")
		args = append(args, filter.VisibleTo, filter.VisibleTo)
	}
	if filter.Status != "" {
		where = append(where, "status = ?")
		args = append(args, string(filter.Status))
	}
	if filter.Priority != "" {
		where = append(where, "priority = ?")
		args = append(args, string(filter.Priority))
	}
	if filter.Category != "" {
		where = append(where, "category = ?")
		args = append(args, filter.Category)
	}
	if filter.Assignee != "" {
		where = append(where, "id IN (SELECT task_id FROM task_assignees WHERE user_id = ?)")
		args = append(args, filter.Assignee)
	}

	query := "SELECT " + taskColumns + " FROM tasks"
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY (CASE WHEN due_date IS NULL THEN 0 ELSE 1 END) ASC, due_date ASC, created_at DESC"

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query tasks: %w", err)
	}
	defer rows.Close()

	tasks := []models.Task{}
	for rows.Next() {
		task, err := scanTask(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan task: %w", err)
		}
		tasks = append(tasks, *task)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate tasks: %w", err)
	}

	if err := r.loadAssignees(ctx, tasks); err != nil {
		return nil, err
	}

	// due date windows are applied here; drivers store timestamps differently
	from, to := filter.DueRange()
	if from == nil && to == nil {
		return tasks, nil
	}
	matched := tasks[:0]
	for i := range tasks {
		if filter.Matches(&tasks[i]) {
			matched = append(matched, tasks[i])
		}
	}
	return matched, nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanTask(row rowScanner) (*models.Task, error) {
	task := &models.Task{}
	var status, priority string
	var dueDate, completedAt sql.NullTime
	var completedBy sql.NullString
	err := row.Scan(
		&task.ID,
		&task.Title,
		&task.Description,
		&status,
		&priority,
		&dueDate,
		&task.CreatedBy,
		&task.FamilyID,
		&task.Category,
		&completedAt,
		&completedBy,
		&task.CreatedAt,
		&task.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	task.Status = models.TaskStatus(status)
	task.Priority = models.TaskPriority(priority)
	if dueDate.Valid {
		t := dueDate.Time
		task.DueDate = &t
	}
	if completedAt.Valid {
		t := completedAt.Time
		task.CompletedAt = &t
	}
	if completedBy.Valid {
		s := completedBy.String
		task.CompletedBy = &s
	}
	task.Assignees = []string{}
	return task, nil
}

func (r *TaskRepository) loadAssignees(ctx context.Context, tasks []models.Task) error {
	if len(tasks) == 0 {
		return nil
	}

	index := make(map[string]int, len(tasks))
	placeholders := make([]string, len(tasks))
	args := make([]interface{}, len(tasks))
	for i, t := range tasks {
		index[t.ID] = i
		placeholders[i] = "?"
		args[i] = t.ID
	}

	query := "SELECT task_id, user_id FROM task_assignees WHERE task_id IN (" +
		strings.Join(placeholders, ", ") + ") ORDER BY task_id, position ASC"
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("failed to query task assignees: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var taskID, userID string
		if err := rows.Scan(&taskID, &userID); err != nil {
			return fmt.Errorf("failed to scan task assignee: %w", err)
		}
		if i, ok := index[taskID]; ok {
			tasks[i].Assignees = append(tasks[i].Assignees, userID)
		}
	}
	return rows.Err()
}

func writeAssignees(ctx context.Context, tx *database.Tx, task *models.Task) error {
	query := "INSERT INTO task_assignees (task_id, user_id, position) VALUES (?, ?, ?)"
	for i, userID := range task.Assignees {
		if _, err := tx.ExecContext(ctx, query, task.ID, userID, i); err != nil {
			return fmt.Errorf("failed to add task assignee: %w", err)
		}
	}
	return nil
}

func taskArgs(task *models.Task) []interface{} {
	return []interface{}{
		task.ID,
		task.Title,
		task.Description,
		string(task.Status),
		string(task.Priority),
		nullTime(task.DueDate),
		task.CreatedBy,
		task.FamilyID,
		task.Category,
		nullTime(task.CompletedAt),
		nullStringPtr(task.CompletedBy),
		task.CreatedAt,
		task.UpdatedAt,
	}
}

func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: t.UTC(), Valid: true}
}

func nullStringPtr(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}
