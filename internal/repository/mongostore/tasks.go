package mongostore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"familytasks/internal/database"
	"familytasks/internal/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

type taskDoc struct {
	ID          primitive.ObjectID `bson:"_id"`
	Title       string             `bson:"title"`
	Description string             `bson:"description"`
	Status      string             `bson:"status"`
	Priority    string             `bson:"priority"`
	DueDate     *time.Time         `bson:"due_date"`
	CreatedBy   string             `bson:"created_by"`
	Family      string             `bson:"family"`
	Assignees   []string           `bson:"assignees"`
	Category    string             `bson:"category"`
	CompletedAt *time.Time         `bson:"completed_at"`
	CompletedBy *string            `bson:"completed_by"`
	CreatedAt   time.Time          `bson:"created_at"`
	UpdatedAt   time.Time          `bson:"updated_at"`
}

func taskToDoc(t *models.Task, id primitive.ObjectID) taskDoc {
	assignees := t.Assignees
	if assignees == nil {
		assignees = []string{}
	}
	return taskDoc{
		ID:          id,
		Title:       t.Title,
		Description: t.Description,
		Status:      string(t.Status),
		Priority:    string(t.Priority),
		DueDate:     t.DueDate,
		CreatedBy:   t.CreatedBy,
		Family:      t.FamilyID,
		Assignees:   assignees,
		Category:    t.Category,
		CompletedAt: t.CompletedAt,
		CompletedBy: t.CompletedBy,
		CreatedAt:   t.CreatedAt,
		UpdatedAt:   t.UpdatedAt,
	}
}

func (d taskDoc) toModel() models.Task {
	assignees := d.Assignees
	if assignees == nil {
		assignees = []string{}
	}
	return models.Task{
		ID:          d.ID.Hex(),
		Title:       d.Title,
		Description: d.Description,
		Status:      models.TaskStatus(d.Status),
		Priority:    models.TaskPriority(d.Priority),
		DueDate:     d.DueDate,
		CreatedBy:   d.CreatedBy,
		FamilyID:    d.Family,
		Assignees:   assignees,
		Category:    d.Category,
		CompletedAt: d.CompletedAt,
		CompletedBy: d.CompletedBy,
		CreatedAt:   d.CreatedAt,
		UpdatedAt:   d.UpdatedAt,
	}
}

// TaskStore persists tasks in the tasks collection
type TaskStore struct {
	c *mongo.Collection
}

// NewTaskStore creates a task store on db
func NewTaskStore(db *mongo.Database) *TaskStore {
	return &TaskStore{c: db.Collection(database.TasksCollection)}
}

// Create inserts task, assigning its ID and timestamps
func (s *TaskStore) Create(ctx context.Context, task *models.Task) error {
	now := time.Now().UTC()
	task.CreatedAt = now
	task.UpdatedAt = now

	doc := taskToDoc(task, primitive.NewObjectID())
	if _, err := s.c.InsertOne(ctx, doc); err != nil {
		return fmt.Errorf("failed to create task: %w", err)
	}
	task.ID = doc.ID.Hex()
	return nil
}

// Update replaces the stored task document
func (s *TaskStore) Update(ctx context.Context, task *models.Task) error {
	oid, err := primitive.ObjectIDFromHex(task.ID)
	if err != nil {
		return fmt.Errorf("failed to update task: invalid id %q", task.ID)
	}
	task.UpdatedAt = time.Now().UTC()
	if _, err := s.c.ReplaceOne(ctx, bson.M{"_id": oid}, taskToDoc(task, oid)); err != nil {
		return fmt.Errorf("failed to update task: %w", err)
	}
	return nil
}

// Delete removes the task with id
func (s *TaskStore) Delete(ctx context.Context, id string) error {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil
	}
	if _, err := s.c.DeleteOne(ctx, bson.M{"_id": oid}); err != nil {
		return fmt.Errorf("failed to delete task: %w", err)
	}
	return nil
}

// GetByID returns the task with id, or nil
func (s *TaskStore) GetByID(ctx context.Context, id string) (*models.Task, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, nil
	}
	var doc taskDoc
	err = s.c.FindOne(ctx, bson.M{"_id": oid}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get task: %w", err)
	}
	task := doc.toModel()
	return &task, nil
}

// List returns the tasks matching filter in models.SortTasks order
func (s *TaskStore) List(ctx context.Context, filter models.TaskFilter) ([]models.Task, error) {
	cur, err := s.c.Find(ctx, taskQuery(filter))
	if err != nil {
		return nil, fmt.Errorf("failed to query tasks: %w", err)
	}
	defer cur.Close(ctx)

	tasks := []models.Task{}
	for cur.Next(ctx) {
		var doc taskDoc
		if err := cur.Decode(&doc); err != nil {
			return nil, fmt.Errorf("failed to decode task: %w", err)
		}
		tasks = append(tasks, doc.toModel())
	}
	if err := cur.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate tasks: %w", err)
	}

	models.SortTasks(tasks)
	return tasks, nil
}

func taskQuery(filter models.TaskFilter) bson.M {
	q := bson.M{}
	if filter.FamilyID != "" {
		q["family"] = filter.FamilyID
	} else if filter.VisibleTo != "" {
		q["$or"] = bson.A{
			bson.M{"created_by": filter.VisibleTo},
			bson.M{"assignees": filter.VisibleTo},
		}
	}
	if filter.Status != "" {
		q["status"] = string(filter.Status)
	}
	if filter.Priority != "" {
		q["priority"] = string(filter.Priority)
	}
	if filter.Category != "" {
		q["category"] = filter.Category
	}
	if filter.Assignee != "" {
		q["assignees"] = filter.Assignee
	}

	from, to := filter.DueRange()
	if from != nil || to != nil {
		due := bson.M{}
		if from != nil {
			due["$gte"] = from.UTC()
		}
		if to != nil {
			due["$lte"] = to.UTC()
		}
		q["due_date"] = due
	}
	return q
}
