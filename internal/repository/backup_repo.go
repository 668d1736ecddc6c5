package repository

import (
	"context"
	"fmt"
	"time"

	"familytasks/internal/database"
	"familytasks/internal/models"
)

// SnapshotVersion identifies the backup format
const SnapshotVersion = "1.0"

// Snapshot is a complete, store-independent copy of the relational data
type Snapshot struct {
	Version    string         `json:"version"`
	ExportedAt time.Time      `json:"exported_at"`
	Dialect    string         `json:"dialect"`
	Users      []UserRecord   `json:"users"`
	Families   []FamilyRecord `json:"families"`
	Tasks      []models.Task  `json:"tasks"`
}

// UserRecord is a user as written to a backup. Refresh tokens are not kept,
// so restored users sign in again.
type UserRecord struct {
	ID           string      `json:"id"`
	Email        string      `json:"email"`
	PasswordHash string      `json:"password_hash"`
	FirstName    string      `json:"first_name"`
	LastName     string      `json:"last_name"`
	Role         models.Role `json:"role"`
	GoogleID     string      `json:"google_id,omitempty"`
	CreatedAt    time.Time   `json:"created_at"`
	UpdatedAt    time.Time   `json:"updated_at"`
}

// InvitationRecord is a pending invitation including its token
type InvitationRecord struct {
	Email     string      `json:"email"`
	Role      models.Role `json:"role"`
	Token     string      `json:"token"`
	ExpiresAt time.Time   `json:"expires_at"`
}

// FamilyRecord is a family as written to a backup
type FamilyRecord struct {
	ID          string                `json:"id"`
	Name        string                `json:"name"`
	CreatedBy   string                `json:"created_by"`
	Members     []models.FamilyMember `json:"members"`
	Invitations []InvitationRecord    `json:"invitations"`
	CreatedAt   time.Time             `json:"created_at"`
	UpdatedAt   time.Time             `json:"updated_at"`
}

// ImportStats counts what an import wrote and what it skipped
type ImportStats struct {
	Users    int
	Families int
	Tasks    int
	Skipped  int
}

// BackupRepository exports and restores every table
type BackupRepository struct {
	db       *database.DB
	families *FamilyRepository
	tasks    *TaskRepository
}

// NewBackupRepository creates a new backup repository
func NewBackupRepository(db *database.DB) *BackupRepository {
	return &BackupRepository{
		db:       db,
		families: NewFamilyRepository(db),
		tasks:    NewTaskRepository(db),
	}
}

// Export reads every user, family and task
func (r *BackupRepository) Export(ctx context.Context) (*Snapshot, error) {
	snap := &Snapshot{
		Version:    SnapshotVersion,
		ExportedAt: time.Now().UTC(),
		Dialect:    r.db.Dialect.DriverName(),
		Users:      []UserRecord{},
		Families:   []FamilyRecord{},
	}

	users, err := r.exportUsers(ctx)
	if err != nil {
		return nil, err
	}
	snap.Users = users

	familyIDs, err := r.ids(ctx, "SELECT id FROM families ORDER BY created_at ASC")
	if err != nil {
		return nil, fmt.Errorf("failed to list families: %w", err)
	}
	for _, id := range familyIDs {
		family, err := r.families.GetByID(ctx, id)
		if err != nil {
			return nil, err
		}
		if family != nil {
			snap.Families = append(snap.Families, familyRecord(family))
		}
	}

	tasks, err := r.tasks.List(ctx, models.TaskFilter{})
	if err != nil {
		return nil, err
	}
	snap.Tasks = tasks

	return snap, nil
}

// Import writes the snapshot in one transaction. Rows whose ID already
// exists, and users whose email is taken, are skipped.
func (r *BackupRepository) Import(ctx context.Context, snap *Snapshot) (*ImportStats, error) {
	stats := &ImportStats{}

	err := r.db.WithTx(ctx, func(tx *database.Tx) error {
		for _, rec := range snap.Users {
			taken, err := exists(ctx, tx, "SELECT COUNT(*) FROM users WHERE id = ? OR email = ?", rec.ID, rec.Email)
			if err != nil {
				return err
			}
			if taken {
				stats.Skipped++
				continue
			}
			user := &models.User{
				ID:           rec.ID,
				Email:        rec.Email,
				PasswordHash: rec.PasswordHash,
				FirstName:    rec.FirstName,
				LastName:     rec.LastName,
				Role:         rec.Role,
				GoogleID:     rec.GoogleID,
				CreatedAt:    rec.CreatedAt,
				UpdatedAt:    rec.UpdatedAt,
			}
			if err := insertUser(ctx, tx, user); err != nil {
				return fmt.Errorf("failed to import user %s: %w", rec.ID, err)
			}
			stats.Users++
		}

		for _, rec := range snap.Families {
			taken, err := exists(ctx, tx, "SELECT COUNT(*) FROM families WHERE id = ?", rec.ID)
			if err != nil {
				return err
			}
			if taken {
				stats.Skipped++
				continue
			}
			if err := insertFamily(ctx, tx, rec.family()); err != nil {
				return fmt.Errorf("failed to import family %s: %w", rec.ID, err)
			}
			stats.Families++
		}

		for i := range snap.Tasks {
			task := snap.Tasks[i]
			taken, err := exists(ctx, tx, "SELECT COUNT(*) FROM tasks WHERE id = ?", task.ID)
			if err != nil {
				return err
			}
			if taken {
				stats.Skipped++
				continue
			}
			if err := insertTask(ctx, tx, &task); err != nil {
				return fmt.Errorf("failed to import task %s: %w", task.ID, err)
			}
			stats.Tasks++
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return stats, nil
}

// Clear deletes every row, children first
func (r *BackupRepository) Clear(ctx context.Context) error {
	tables := []string{
		"task_assignees",
		"tasks",
		"family_invitations",
		"family_members",
		"families",
		"users",
	}
	return r.db.WithTx(ctx, func(tx *database.Tx) error {
		for _, table := range tables {
			if _, err := tx.ExecContext(ctx, "DELETE FROM "+table); err != nil {
				return fmt.Errorf("failed to clear table %s: %w", table, err)
			}
		}
		return nil
	})
}

func (r *BackupRepository) exportUsers(ctx context.Context) ([]UserRecord, error) {
	rows, err := r.db.QueryContext(ctx, "SELECT "+userColumns+" FROM users ORDER BY created_at ASC")
	if err != nil {
		return nil, fmt.Errorf("failed to query users: %w", err)
	}
	defer rows.Close()

	records := []UserRecord{}
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan user: %w", err)
		}
		records = append(records, UserRecord{
			ID:           u.ID,
			Email:        u.Email,
			PasswordHash: u.PasswordHash,
			FirstName:    u.FirstName,
			LastName:     u.LastName,
			Role:         u.Role,
			GoogleID:     u.GoogleID,
			CreatedAt:    u.CreatedAt,
			UpdatedAt:    u.UpdatedAt,
		})
	}
	return records, rows.Err()
}

func (r *BackupRepository) ids(ctx context.Context, query string) ([]string, error) {
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func exists(ctx context.Context, tx *database.Tx, query string, args ...interface{}) (bool, error) {
	var n int
	if err := tx.QueryRowContext(ctx, query, args...).Scan(&n); err != nil {
		return false, fmt.Errorf("failed to check existing row: %w", err)
	}
	return n > 0, nil
}

func familyRecord(f *models.Family) FamilyRecord {
	rec := FamilyRecord{
		ID:          f.ID,
		Name:        f.Name,
		CreatedBy:   f.CreatedBy,
		Members:     f.Members,
		Invitations: make([]InvitationRecord, 0, len(f.PendingInvitations)),
		CreatedAt:   f.CreatedAt,
		UpdatedAt:   f.UpdatedAt,
	}
	for _, inv := range f.PendingInvitations {
		rec.Invitations = append(rec.Invitations, InvitationRecord{
			Email:     inv.Email,
			Role:      inv.Role,
			Token:     inv.Token,
			ExpiresAt: inv.ExpiresAt,
		})
	}
	return rec
}

func (rec FamilyRecord) family() *models.Family {
	f := &models.Family{
		ID:                 rec.ID,
		Name:               rec.Name,
		CreatedBy:          rec.CreatedBy,
		Members:            rec.Members,
		PendingInvitations: make([]models.Invitation, 0, len(rec.Invitations)),
		CreatedAt:          rec.CreatedAt,
		UpdatedAt:          rec.UpdatedAt,
	}
	for _, inv := range rec.Invitations {
		f.PendingInvitations = append(f.PendingInvitations, models.Invitation{
			Email:     inv.Email,
			Role:      inv.Role,
			Token:     inv.Token,
			ExpiresAt: inv.ExpiresAt,
		})
	}
	return f
}
