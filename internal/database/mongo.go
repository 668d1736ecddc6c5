package database

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
)

// Collection names used by the document store
const (
	UsersCollection    = "users"
	FamiliesCollection = "families"
	TasksCollection    = "tasks"
)

// ConnectMongo dials uri, verifies the connection and ensures indexes on
// dbName. The caller owns the returned client and must Disconnect it.
func ConnectMongo(ctx context.Context, uri, dbName string) (*mongo.Client, *mongo.Database, error) {
	connectCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(connectCtx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, nil, fmt.Errorf("failed to connect to mongo: %w", err)
	}
	if err := client.Ping(connectCtx, readpref.Primary()); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, nil, fmt.Errorf("failed to ping mongo: %w", err)
	}

	db := client.Database(dbName)
	if err := EnsureMongoIndexes(connectCtx, db); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, nil, err
	}
	return client, db, nil
}

// EnsureMongoIndexes creates the indexes each collection relies on. Each
// call is idempotent; errors are aggregated so startup fails with the whole
// picture.
func EnsureMongoIndexes(ctx context.Context, db *mongo.Database) error {
	var problems []string

	if err := ensureIndexes(ctx, db.Collection(UsersCollection), []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "email", Value: 1}},
			Options: options.Index().SetUnique(true).SetName("idx_users_email"),
		},
		{
			Keys:    bson.D{{Key: "google_id", Value: 1}},
			Options: options.Index().SetUnique(true).SetSparse(true).SetName("idx_users_google_id"),
		},
	}); err != nil {
		problems = append(problems, "users: "+err.Error())
	}

	if err := ensureIndexes(ctx, db.Collection(FamiliesCollection), []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "members.user", Value: 1}},
			Options: options.Index().SetName("idx_families_member"),
		},
		{
			Keys:    bson.D{{Key: "pending_invitations.token", Value: 1}},
			Options: options.Index().SetName("idx_families_invitation_token"),
		},
	}); err != nil {
		problems = append(problems, "families: "+err.Error())
	}

	if err := ensureIndexes(ctx, db.Collection(TasksCollection), []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "family", Value: 1}, {Key: "due_date", Value: 1}},
			Options: options.Index().SetName("idx_tasks_family_due"),
		},
		{
			Keys:    bson.D{{Key: "created_by", Value: 1}},
			Options: options.Index().SetName("idx_tasks_created_by"),
		},
		{
			Keys:    bson.D{{Key: "assignees", Value: 1}},
			Options: options.Index().SetName("idx_tasks_assignees"),
		},
	}); err != nil {
		problems = append(problems, "tasks: "+err.Error())
	}

	if len(problems) > 0 {
		return errors.New("failed to ensure mongo indexes: " + strings.Join(problems, "; "))
	}
	return nil
}

func ensureIndexes(ctx context.Context, c *mongo.Collection, models []mongo.IndexModel) error {
	_, err := c.Indexes().CreateMany(ctx, models)
	return err
}

// IsDuplicateKey reports whether err is a Mongo unique index violation
func IsDuplicateKey(err error) bool {
	return err != nil && mongo.IsDuplicateKeyError(err)
}
