package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"familytasks/internal/database"
	"familytasks/internal/models"

	"github.com/google/uuid"
)

// FamilyRepository handles database operations for families. Members and
// pending invitations live in child tables and are rewritten on every save.
type FamilyRepository struct {
	db *database.DB
}

// NewFamilyRepository creates a new family repository
func NewFamilyRepository(db *database.DB) *FamilyRepository {
	return &FamilyRepository{db: db}
}

// Create inserts a new family together with its members and invitations
func (r *FamilyRepository) Create(ctx context.Context, family *models.Family) error {
	now := time.Now().UTC()
	family.ID = uuid.NewString()
	family.CreatedAt = now
	family.UpdatedAt = now
	family.PurgeExpiredInvitations(now)

	return r.db.WithTx(ctx, func(tx *database.Tx) error {
		return insertFamily(ctx, tx, family)
	})
}

func insertFamily(ctx context.Context, tx *database.Tx, family *models.Family) error {
	query := "INSERT INTO families (id, name, created_by, created_at, updated_at) VALUES (?, ?, ?, ?, ?)"
	if _, err := tx.ExecContext(ctx, query, family.ID, family.Name, family.CreatedBy, family.CreatedAt, family.UpdatedAt); err != nil {
		return fmt.Errorf("failed to create family: %w", err)
	}
	return writeFamilyChildren(ctx, tx, family)
}

// Save persists the family's name, members and pending invitations.
// Expired invitations are purged before writing.
func (r *FamilyRepository) Save(ctx context.Context, family *models.Family) error {
	now := time.Now().UTC()
	family.UpdatedAt = now
	family.PurgeExpiredInvitations(now)

	return r.db.WithTx(ctx, func(tx *database.Tx) error {
		query := "UPDATE families SET name = ?, updated_at = ? WHERE id = ?"
		if _, err := tx.ExecContext(ctx, query, family.Name, family.UpdatedAt, family.ID); err != nil {
			return fmt.Errorf("failed to update family: %w", err)
		}
		if _, err := tx.ExecContext(ctx, "DELETE FROM family_members WHERE family_id = ?", family.ID); err != nil {
			return fmt.Errorf("failed to clear family members: %w", err)
		}
		if _, err := tx.ExecContext(ctx, "DELETE FROM family_invitations WHERE family_id = ?", family.ID); err != nil {
			return fmt.Errorf("failed to clear family invitations: %w", err)
		}
		return writeFamilyChildren(ctx, tx, family)
	})
}

func writeFamilyChildren(ctx context.Context, tx *database.Tx, family *models.Family) error {
	memberQuery := "INSERT INTO family_members (family_id, user_id, role, joined_at, position) VALUES (?, ?, ?, ?, ?)"
	for i, m := range family.Members {
		if _, err := tx.ExecContext(ctx, memberQuery, family.ID, m.UserID, string(m.Role), m.JoinedAt.UTC(), i); err != nil {
			return fmt.Errorf("failed to add family member: %w", err)
		}
	}

	invitationQuery := "INSERT INTO family_invitations (family_id, email, role, token, expires_at, position) VALUES (?, ?, ?, ?, ?, ?)"
	for i, inv := range family.PendingInvitations {
		if _, err := tx.ExecContext(ctx, invitationQuery, family.ID, inv.Email, string(inv.Role), inv.Token, inv.ExpiresAt.UTC(), i); err != nil {
			return fmt.Errorf("failed to add family invitation: %w", err)
		}
	}
	return nil
}

// GetByID retrieves a family with its members and invitations
func (r *FamilyRepository) GetByID(ctx context.Context, familyID string) (*models.Family, error) {
	query := "SELECT id, name, created_by, created_at, updated_at FROM families WHERE id = ?"
	family := &models.Family{}
	err := r.db.QueryRowContext(ctx, query, familyID).Scan(
		&family.ID,
		&family.Name,
		&family.CreatedBy,
		&family.CreatedAt,
		&family.UpdatedAt,
	)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get family: %w", err)
	}

	if err := r.loadChildren(ctx, family); err != nil {
		return nil, err
	}
	return family, nil
}

// ListByMember retrieves all families a user belongs to
func (r *FamilyRepository) ListByMember(ctx context.Context, userID string) ([]models.Family, error) {
	query := `
		SELECT f.id, f.name, f.created_by, f.created_at, f.updated_at
		FROM families f
		INNER JOIN family_members fm ON f.id = fm.family_id
		WHERE fm.user_id = ?
		ORDER BY f.created_at DESC
	`
	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to query families: %w", err)
	}
	defer rows.Close()

	families := []models.Family{}
	for rows.Next() {
		var family models.Family
		if err := rows.Scan(&family.ID, &family.Name, &family.CreatedBy, &family.CreatedAt, &family.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan family: %w", err)
		}
		families = append(families, family)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate families: %w", err)
	}

	for i := range families {
		if err := r.loadChildren(ctx, &families[i]); err != nil {
			return nil, err
		}
	}
	return families, nil
}

// FindByInvitationToken returns the family holding an unexpired invitation
// with the given token, or nil if there is none
func (r *FamilyRepository) FindByInvitationToken(ctx context.Context, token string, now time.Time) (*models.Family, error) {
	var familyID string
	err := r.db.QueryRowContext(ctx, "SELECT family_id FROM family_invitations WHERE token = ?", token).Scan(&familyID)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find invitation: %w", err)
	}

	family, err := r.GetByID(ctx, familyID)
	if err != nil || family == nil {
		return family, err
	}
	// expiry is checked here rather than in SQL; drivers store timestamps differently
	if _, ok := family.InvitationByToken(token, now); !ok {
		return nil, nil
	}
	return family, nil
}

func (r *FamilyRepository) loadChildren(ctx context.Context, family *models.Family) error {
	members, err := r.loadMembers(ctx, family.ID)
	if err != nil {
		return err
	}
	invitations, err := r.loadInvitations(ctx, family.ID)
	if err != nil {
		return err
	}
	family.Members = members
	family.PendingInvitations = invitations
	return nil
}

func (r *FamilyRepository) loadMembers(ctx context.Context, familyID string) ([]models.FamilyMember, error) {
	query := "SELECT user_id, role, joined_at FROM family_members WHERE family_id = ? ORDER BY position ASC"
	rows, err := r.db.QueryContext(ctx, query, familyID)
	if err != nil {
		return nil, fmt.Errorf("failed to query family members: %w", err)
	}
	defer rows.Close()

	members := []models.FamilyMember{}
	for rows.Next() {
		var m models.FamilyMember
		var role string
		if err := rows.Scan(&m.UserID, &role, &m.JoinedAt); err != nil {
			return nil, fmt.Errorf("failed to scan family member: %w", err)
		}
		m.Role = models.Role(role)
		members = append(members, m)
	}
	return members, rows.Err()
}

func (r *FamilyRepository) loadInvitations(ctx context.Context, familyID string) ([]models.Invitation, error) {
	query := "SELECT email, role, token, expires_at FROM family_invitations WHERE family_id = ? ORDER BY position ASC"
	rows, err := r.db.QueryContext(ctx, query, familyID)
	if err != nil {
		return nil, fmt.Errorf("failed to query family invitations: %w", err)
	}
	defer rows.Close()

	invitations := []models.Invitation{}
	for rows.Next() {
		var inv models.Invitation
		var role string
		if err := rows.Scan(&inv.Email, &role, &inv.Token, &inv.ExpiresAt); err != nil {
			return nil, fmt.Errorf("failed to scan family invitation: %w", err)
		}
		inv.Role = models.Role(role)
		invitations = append(invitations, inv)
	}
	return invitations, rows.Err()
}
