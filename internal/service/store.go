package service

import (
	"context"
	"time"

	"familytasks/internal/apperrors"
	"familytasks/internal/models"
	"familytasks/internal/validation"
)

// UserStore persists user accounts. Lookups return nil, nil when nothing
// matches; Create returns repository.ErrDuplicateEmail for a taken email.
type UserStore interface {
	Create(ctx context.Context, user *models.User) error
	GetByID(ctx context.Context, id string) (*models.User, error)
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	GetByGoogleID(ctx context.Context, googleID string) (*models.User, error)
	SetRefreshToken(ctx context.Context, userID, token string) error
	LinkGoogleID(ctx context.Context, userID, googleID string) error
}

// FamilyStore persists families with their members and pending invitations.
// Create and Save purge expired invitations before writing.
type FamilyStore interface {
	Create(ctx context.Context, family *models.Family) error
	GetByID(ctx context.Context, id string) (*models.Family, error)
	ListByMember(ctx context.Context, userID string) ([]models.Family, error)
	FindByInvitationToken(ctx context.Context, token string, now time.Time) (*models.Family, error)
	Save(ctx context.Context, family *models.Family) error
}

// TaskStore persists tasks. List applies every filter field and returns
// tasks in models.SortTasks order.
type TaskStore interface {
	Create(ctx context.Context, task *models.Task) error
	GetByID(ctx context.Context, id string) (*models.Task, error)
	List(ctx context.Context, filter models.TaskFilter) ([]models.Task, error)
	Update(ctx context.Context, task *models.Task) error
	Delete(ctx context.Context, id string) error
}

// Mailer delivers invitation emails
type Mailer interface {
	SendFamilyInvitation(ctx context.Context, inv InvitationEmail) error
}

// Revoker tracks revoked access tokens by their jti claim
type Revoker interface {
	Revoke(ctx context.Context, jti string, expiresAt time.Time) error
	IsRevoked(ctx context.Context, jti string) (bool, error)
}

func validationFailed(errs []validation.ValidationError) error {
	fields := make([]apperrors.FieldError, 0, len(errs))
	for _, e := range errs {
		fields = append(fields, apperrors.FieldError{Field: e.Field, Message: e.Message})
	}
	return apperrors.Validation("Validation failed", fields...)
}

func requireUser(requesterID string) error {
	if requesterID == "" {
		return apperrors.Authentication("Authentication required")
	}
	return nil
}
