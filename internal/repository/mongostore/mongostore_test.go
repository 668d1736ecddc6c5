package mongostore

import (
	"context"
	"os"
	"testing"
	"time"

	"familytasks/internal/database"
	"familytasks/internal/models"
	"familytasks/internal/repository"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

func setupMongo(t *testing.T) *mongo.Database {
	t.Helper()
	uri := os.Getenv("MONGO_TEST_URI")
	if uri == "" {
		t.Skip("MONGO_TEST_URI not set")
	}

	ctx := context.Background()
	dbName := "familytasks_test_" + time.Now().Format("20060102150405.000000")
	client, db, err := database.ConnectMongo(ctx, uri, dbName)
	if err != nil {
		t.Fatalf("ConnectMongo() error = %v", err)
	}
	t.Cleanup(func() {
		_ = db.Drop(context.Background())
		_ = client.Disconnect(context.Background())
	})
	return db
}

func TestUserStore(t *testing.T) {
	db := setupMongo(t)
	store := NewUserStore(db)
	ctx := context.Background()

	user := &models.User{Email: "a@x.com", FirstName: "A", LastName: "Smith", Role: models.RoleParent}
	if err := store.Create(ctx, user); err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if err := store.Create(ctx, &models.User{Email: "a@x.com", Role: models.RoleChild}); err != repository.ErrDuplicateEmail {
		t.Errorf("duplicate Create() error = %v, want ErrDuplicateEmail", err)
	}

	if err := store.SetRefreshToken(ctx, user.ID, "r1"); err != nil {
		t.Fatalf("SetRefreshToken() error = %v", err)
	}
	got, err := store.GetByEmail(ctx, "a@x.com")
	if err != nil || got == nil || got.RefreshToken != "r1" {
		t.Fatalf("GetByEmail() = %+v, %v", got, err)
	}

	if missing, err := store.GetByID(ctx, "not-an-object-id"); missing != nil || err != nil {
		t.Errorf("GetByID(bad id) = %v, %v; want nil, nil", missing, err)
	}
}

func TestFamilyStoreInvitations(t *testing.T) {
	db := setupMongo(t)
	store := NewFamilyStore(db)
	ctx := context.Background()
	now := time.Now().UTC()

	family := models.NewFamily("Smiths", "a", now)
	family.AddInvitation(models.NewInvitation("b@x.com", models.RoleChild, "tok", now, time.Hour))
	if err := store.Create(ctx, family); err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	found, err := store.FindByInvitationToken(ctx, "tok", now)
	if err != nil || found == nil || found.ID != family.ID {
		t.Fatalf("FindByInvitationToken() = %v, %v", found, err)
	}
	if found, _ := store.FindByInvitationToken(ctx, "tok", now.Add(2*time.Hour)); found != nil {
		t.Error("expired token should not resolve")
	}

	if _, err := found.AcceptInvitation("tok", now); err != nil {
		t.Fatalf("AcceptInvitation() error = %v", err)
	}
	found.AddMember("b", models.RoleChild, now)
	if err := store.Save(ctx, found); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	list, err := store.ListByMember(ctx, "b")
	if err != nil || len(list) != 1 || len(list[0].PendingInvitations) != 0 {
		t.Errorf("ListByMember() = %+v, %v", list, err)
	}
}

func TestTaskQuery(t *testing.T) {
	day := time.Date(2026, 2, 3, 9, 0, 0, 0, time.UTC)

	q := taskQuery(models.TaskFilter{VisibleTo: "u1", Status: models.StatusPending, DueOn: &day})
	if _, ok := q["$or"]; !ok {
		t.Error("expected visibility $or clause")
	}
	if q["status"] != "pending" {
		t.Errorf("status = %v", q["status"])
	}
	due, ok := q["due_date"].(bson.M)
	if !ok {
		t.Fatalf("due_date = %#v", q["due_date"])
	}
	if from := due["$gte"].(time.Time); !from.Equal(time.Date(2026, 2, 3, 0, 0, 0, 0, time.UTC)) {
		t.Errorf("$gte = %v", from)
	}

	q = taskQuery(models.TaskFilter{FamilyID: "fam", VisibleTo: "u1"})
	if _, ok := q["$or"]; ok {
		t.Error("family filter should replace visibility scoping")
	}
	if q["family"] != "fam" {
		t.Errorf("family = %v", q["family"])
	}
}
