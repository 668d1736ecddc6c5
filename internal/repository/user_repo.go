package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"familytasks/internal/database"
	"familytasks/internal/models"

	"github.com/google/uuid"
)

// ErrDuplicateEmail is returned when a user is created with an email that is
// already registered
var ErrDuplicateEmail = errors.New("email already registered")

// UserRepository handles database operations for users
type UserRepository struct {
	db *database.DB
}

// NewUserRepository creates a new user repository
func NewUserRepository(db *database.DB) *UserRepository {
	return &UserRepository{db: db}
}

const userColumns = `id, email, password_hash, first_name, last_name, role,
	COALESCE(google_id, ''), COALESCE(refresh_token, ''), created_at, updated_at`

// Create inserts a new user, assigning its ID and timestamps
func (r *UserRepository) Create(ctx context.Context, user *models.User) error {
	now := time.Now().UTC()
	user.ID = uuid.NewString()
	user.CreatedAt = now
	user.UpdatedAt = now

	err := insertUser(ctx, r.db, user)
	if r.db.Dialect.IsUniqueViolation(err) {
		return ErrDuplicateEmail
	}
	if err != nil {
		return fmt.Errorf("failed to create user: %w", err)
	}
	return nil
}

func insertUser(ctx context.Context, exec database.DBTX, user *models.User) error {
	query := `
		INSERT INTO users (id, email, password_hash, first_name, last_name, role, google_id, refresh_token, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	_, err := exec.ExecContext(ctx, query,
		user.ID,
		user.Email,
		user.PasswordHash,
		user.FirstName,
		user.LastName,
		string(user.Role),
		nullString(user.GoogleID),
		nullString(user.RefreshToken),
		user.CreatedAt,
		user.UpdatedAt,
	)
	return err
}

// GetByID retrieves a user by ID
func (r *UserRepository) GetByID(ctx context.Context, id string) (*models.User, error) {
	return r.getOne(ctx, "id = ?", id)
}

// GetByEmail retrieves a user by email address
func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	return r.getOne(ctx, "email = ?", email)
}

// GetByGoogleID retrieves a user linked to a Google account
func (r *UserRepository) GetByGoogleID(ctx context.Context, googleID string) (*models.User, error) {
	return r.getOne(ctx, "google_id = ?", googleID)
}

func (r *UserRepository) getOne(ctx context.Context, where string, arg interface{}) (*models.User, error) {
	query := "SELECT " + userColumns + " FROM users WHERE " + where
	user, err := scanUser(r.db.QueryRowContext(ctx, query, arg))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return user, nil
}

func scanUser(row rowScanner) (*models.User, error) {
	user := &models.User{}
	var role string
	err := row.Scan(
		&user.ID,
		&user.Email,
		&user.PasswordHash,
		&user.FirstName,
		&user.LastName,
		&role,
		&user.GoogleID,
		&user.RefreshToken,
		&user.CreatedAt,
		&user.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	user.Role = models.Role(role)
	return user, nil
}

// SetRefreshToken stores the user's current refresh token. An empty token
// clears it.
func (r *UserRepository) SetRefreshToken(ctx context.Context, userID, token string) error {
	query := "UPDATE users SET refresh_token = ?, updated_at = ? WHERE id = ?"
	if _, err := r.db.ExecContext(ctx, query, nullString(token), time.Now().UTC(), userID); err != nil {
		return fmt.Errorf("failed to update refresh token: %w", err)
	}
	return nil
}

// LinkGoogleID attaches a Google account to an existing user
func (r *UserRepository) LinkGoogleID(ctx context.Context, userID, googleID string) error {
	query := "UPDATE users SET google_id = ?, updated_at = ? WHERE id = ?"
	if _, err := r.db.ExecContext(ctx, query, googleID, time.Now().UTC(), userID); err != nil {
		return fmt.Errorf("failed to link google account: %w", err)
	}
	return nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
