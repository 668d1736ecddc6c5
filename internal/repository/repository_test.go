package repository

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"familytasks/internal/database"
	"familytasks/internal/models"
)

func setupTestDB(t *testing.T) *database.DB {
	t.Helper()
	if testing.Short() {
		t.Skip("Skipping sqlite repository test in short mode")
	}

	db, err := database.Initialize(filepath.Join(t.TempDir(), "repo.db"))
	if err != nil {
		t.Fatalf("Failed to initialize database: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func TestUserRepository(t *testing.T) {
	db := setupTestDB(t)
	repo := NewUserRepository(db)
	ctx := context.Background()

	user := &models.User{
		Email:        "parent@example.com",
		PasswordHash: "hash",
		FirstName:    "Pat",
		LastName:     "Smith",
		Role:         models.RoleParent,
	}
	if err := repo.Create(ctx, user); err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if user.ID == "" {
		t.Fatal("Create() should assign an ID")
	}

	dup := &models.User{Email: "parent@example.com", FirstName: "X", LastName: "Y", Role: models.RoleChild}
	if err := repo.Create(ctx, dup); err != ErrDuplicateEmail {
		t.Errorf("duplicate Create() error = %v, want ErrDuplicateEmail", err)
	}

	got, err := repo.GetByEmail(ctx, "parent@example.com")
	if err != nil || got == nil {
		t.Fatalf("GetByEmail() = %v, %v", got, err)
	}
	if got.ID != user.ID || got.Role != models.RoleParent || got.FullName() != "Pat Smith" {
		t.Errorf("GetByEmail() returned %+v", got)
	}

	missing, err := repo.GetByID(ctx, "nope")
	if err != nil || missing != nil {
		t.Errorf("GetByID(missing) = %v, %v; want nil, nil", missing, err)
	}

	if err := repo.SetRefreshToken(ctx, user.ID, "refresh-1"); err != nil {
		t.Fatalf("SetRefreshToken() error = %v", err)
	}
	if err := repo.LinkGoogleID(ctx, user.ID, "google-123"); err != nil {
		t.Fatalf("LinkGoogleID() error = %v", err)
	}
	got, err = repo.GetByGoogleID(ctx, "google-123")
	if err != nil || got == nil {
		t.Fatalf("GetByGoogleID() = %v, %v", got, err)
	}
	if got.RefreshToken != "refresh-1" {
		t.Errorf("RefreshToken = %q, want refresh-1", got.RefreshToken)
	}

	if err := repo.SetRefreshToken(ctx, user.ID, ""); err != nil {
		t.Fatalf("SetRefreshToken(clear) error = %v", err)
	}
	got, _ = repo.GetByID(ctx, user.ID)
	if got.RefreshToken != "" {
		t.Errorf("RefreshToken should be cleared, got %q", got.RefreshToken)
	}
}

func TestFamilyRepository(t *testing.T) {
	db := setupTestDB(t)
	repo := NewFamilyRepository(db)
	ctx := context.Background()
	now := time.Now().UTC()

	family := models.NewFamily("Smiths", "user-a", now)
	if err := repo.Create(ctx, family); err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	family.AddMember("user-b", models.RoleChild, now)
	family.AddInvitation(models.NewInvitation("c@x.com", models.RoleChild, "tok-c", now, 7*24*time.Hour))
	family.AddInvitation(models.NewInvitation("old@x.com", models.RoleChild, "tok-old", now.Add(-8*24*time.Hour), 7*24*time.Hour))
	if err := repo.Save(ctx, family); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	got, err := repo.GetByID(ctx, family.ID)
	if err != nil || got == nil {
		t.Fatalf("GetByID() = %v, %v", got, err)
	}
	if len(got.Members) != 2 || got.Members[0].UserID != "user-a" || got.Members[1].UserID != "user-b" {
		t.Errorf("Members = %+v", got.Members)
	}
	if len(got.PendingInvitations) != 1 || got.PendingInvitations[0].Token != "tok-c" {
		t.Errorf("expired invitations should be purged on save, got %+v", got.PendingInvitations)
	}

	found, err := repo.FindByInvitationToken(ctx, "tok-c", now)
	if err != nil || found == nil || found.ID != family.ID {
		t.Errorf("FindByInvitationToken() = %v, %v", found, err)
	}
	found, err = repo.FindByInvitationToken(ctx, "tok-c", now.Add(8*24*time.Hour))
	if err != nil || found != nil {
		t.Errorf("FindByInvitationToken(after expiry) = %v, %v; want nil", found, err)
	}

	list, err := repo.ListByMember(ctx, "user-b")
	if err != nil {
		t.Fatalf("ListByMember() error = %v", err)
	}
	if len(list) != 1 || list[0].ID != family.ID {
		t.Errorf("ListByMember() = %+v", list)
	}
	empty, err := repo.ListByMember(ctx, "stranger")
	if err != nil || empty == nil || len(empty) != 0 {
		t.Errorf("ListByMember(stranger) = %v, %v; want empty slice", empty, err)
	}
}

func TestTaskRepository(t *testing.T) {
	db := setupTestDB(t)
	repo := NewTaskRepository(db)
	ctx := context.Background()

	due := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)
	later := due.Add(48 * time.Hour)

	tasks := []*models.Task{
		{Title: "No due", Status: models.StatusPending, Priority: models.PriorityLow, CreatedBy: "a", FamilyID: "fam", Assignees: []string{"a"}, Category: "other"},
		{Title: "Later", Status: models.StatusPending, Priority: models.PriorityHigh, CreatedBy: "a", FamilyID: "fam", Assignees: []string{"b", "a"}, Category: "chores", DueDate: &later},
		{Title: "Soon", Status: models.StatusInProgress, Priority: models.PriorityMedium, CreatedBy: "c", FamilyID: "other", Assignees: []string{"c"}, Category: "other", DueDate: &due},
	}
	for _, task := range tasks {
		if err := repo.Create(ctx, task); err != nil {
			t.Fatalf("Create() error = %v", err)
		}
	}

	got, err := repo.GetByID(ctx, tasks[1].ID)
	if err != nil || got == nil {
		t.Fatalf("GetByID() = %v, %v", got, err)
	}
	if len(got.Assignees) != 2 || got.Assignees[0] != "b" || got.Assignees[1] != "a" {
		t.Errorf("Assignees = %v, want [b a]", got.Assignees)
	}
	if got.DueDate == nil || !got.DueDate.Equal(later) {
		t.Errorf("DueDate = %v, want %v", got.DueDate, later)
	}

	tests := []struct {
		name   string
		filter models.TaskFilter
		want   []string
	}{
		{"family", models.TaskFilter{FamilyID: "fam"}, []string{"No due", "Later"}},
		{"visible to b", models.TaskFilter{VisibleTo: "b"}, []string{"Later"}},
		{"visible to c", models.TaskFilter{VisibleTo: "c"}, []string{"Soon"}},
		{"priority", models.TaskFilter{FamilyID: "fam", Priority: models.PriorityHigh}, []string{"Later"}},
		{"category", models.TaskFilter{Category: "chores"}, []string{"Later"}},
		{"assignee", models.TaskFilter{Assignee: "a"}, []string{"No due", "Later"}},
		{"due on", models.TaskFilter{DueOn: &due}, []string{"Soon"}},
		{"due before", models.TaskFilter{DueBefore: &later}, []string{"Soon", "Later"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			list, err := repo.List(ctx, tt.filter)
			if err != nil {
				t.Fatalf("List() error = %v", err)
			}
			if len(list) != len(tt.want) {
				t.Fatalf("List() returned %d tasks, want %d", len(list), len(tt.want))
			}
			for i, title := range tt.want {
				if list[i].Title != title {
					t.Errorf("position %d = %q, want %q", i, list[i].Title, title)
				}
			}
		})
	}

	got.SetStatus(models.StatusCompleted, "b", time.Now().UTC())
	got.Assignees = []string{"b"}
	if err := repo.Update(ctx, got); err != nil {
		t.Fatalf("Update() error = %v", err)
	}
	updated, _ := repo.GetByID(ctx, got.ID)
	if updated.CompletedBy == nil || *updated.CompletedBy != "b" || updated.CompletedAt == nil {
		t.Errorf("completion fields not persisted: %+v", updated)
	}
	if len(updated.Assignees) != 1 {
		t.Errorf("Assignees = %v, want [b]", updated.Assignees)
	}

	if err := repo.Delete(ctx, got.ID); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	deleted, err := repo.GetByID(ctx, got.ID)
	if err != nil || deleted != nil {
		t.Errorf("GetByID(deleted) = %v, %v; want nil, nil", deleted, err)
	}
}
