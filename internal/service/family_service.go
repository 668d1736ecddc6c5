package service

import (
	"context"
	"fmt"
	"time"

	"familytasks/internal/apperrors"
	"familytasks/internal/models"
	"familytasks/internal/policy"
	"familytasks/internal/security"
	"familytasks/internal/utils"
	"familytasks/internal/validation"

	"go.uber.org/zap"
)

// FamilyService handles family membership and invitation business logic
type FamilyService struct {
	families      FamilyStore
	users         UserStore
	mailer        Mailer
	invitationTTL time.Duration
	log           *zap.Logger
	now           func() time.Time
}

// NewFamilyService creates a new family service
func NewFamilyService(families FamilyStore, users UserStore, mailer Mailer, invitationTTL time.Duration, log *zap.Logger) *FamilyService {
	return &FamilyService{
		families:      families,
		users:         users,
		mailer:        mailer,
		invitationTTL: invitationTTL,
		log:           log,
		now:           func() time.Time { return time.Now().UTC() },
	}
}

// CreateFamily creates a family with the requester as its only parent
func (s *FamilyService) CreateFamily(ctx context.Context, requesterID, name string) (*models.Family, error) {
	if err := requireUser(requesterID); err != nil {
		return nil, err
	}
	name = utils.SanitizeText(name)
	if name == "" {
		return nil, apperrors.Validation("Family name is required", apperrors.FieldError{Field: "name", Message: "name is required"})
	}

	family := models.NewFamily(name, requesterID, s.now())
	if err := s.families.Create(ctx, family); err != nil {
		return nil, apperrors.Database("failed to create family", err)
	}

	s.log.Info("family created", zap.String("family_id", family.ID), zap.String("user_id", requesterID))
	return family, nil
}

// GetFamilies returns every family the requester belongs to
func (s *FamilyService) GetFamilies(ctx context.Context, requesterID string) ([]models.Family, error) {
	if err := requireUser(requesterID); err != nil {
		return nil, err
	}
	families, err := s.families.ListByMember(ctx, requesterID)
	if err != nil {
		return nil, apperrors.Database("failed to get families", err)
	}
	if families == nil {
		families = []models.Family{}
	}
	return families, nil
}

// GetFamilyByID returns a family the requester belongs to. A missing family
// is reported before a membership failure.
func (s *FamilyService) GetFamilyByID(ctx context.Context, requesterID, familyID string) (*models.Family, error) {
	family, err := s.loadFamily(ctx, familyID)
	if err != nil {
		return nil, err
	}
	if err := policy.FamilyCan(family, requesterID, policy.ViewFamily); err != nil {
		return nil, err
	}
	return family, nil
}

// InviteMember records a pending invitation for email and mails the
// acceptance link. Family existence and the parent check come before input
// validation. The invitation stays persisted if the email fails.
func (s *FamilyService) InviteMember(ctx context.Context, requesterID, familyID, email, role string) (*models.Invitation, error) {
	family, err := s.loadFamily(ctx, familyID)
	if err != nil {
		return nil, err
	}
	if err := policy.FamilyCan(family, requesterID, policy.InviteMember); err != nil {
		return nil, err
	}

	email = validation.NormalizeEmail(email)
	if errs := validation.Collect(validation.ValidateEmail(email)); len(errs) > 0 {
		return nil, validationFailed(errs)
	}
	inviteRole, ok := models.ParseRole(role, models.RoleChild)
	if !ok {
		return nil, apperrors.Validation("Invalid role", apperrors.FieldError{Field: "role", Message: "role must be parent or child"})
	}

	existing, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		return nil, apperrors.Database("failed to look up invitee", err)
	}
	if existing != nil && family.IsMember(existing.ID) {
		return nil, apperrors.Validation("User is already a member")
	}

	now := s.now()
	if _, pending := family.PendingInvitationFor(email, now); pending {
		return nil, apperrors.Validation("An invitation is already pending")
	}

	token, err := security.GenerateURLToken(security.InvitationTokenBytes)
	if err != nil {
		return nil, err
	}
	inv := models.NewInvitation(email, inviteRole, token, now, s.invitationTTL)
	family.AddInvitation(inv)

	if err := s.families.Save(ctx, family); err != nil {
		return nil, apperrors.Database("failed to save invitation", err)
	}

	inviterName := ""
	if inviter, err := s.users.GetByID(ctx, requesterID); err == nil && inviter != nil {
		inviterName = inviter.FullName()
	}

	if err := s.mailer.SendFamilyInvitation(ctx, InvitationEmail{
		To:          inv.Email,
		FamilyName:  family.Name,
		InviterName: inviterName,
		Role:        inv.Role,
		Token:       inv.Token,
		ExpiresAt:   inv.ExpiresAt,
	}); err != nil {
		s.log.Error("invitation email failed", zap.String("family_id", family.ID), zap.String("email", inv.Email), zap.Error(err))
		return nil, fmt.Errorf("failed to send invitation email: %w", err)
	}

	s.log.Info("invitation sent", zap.String("family_id", family.ID), zap.String("email", inv.Email))
	return &inv, nil
}

// AcceptInvitation adds the requester to the family holding token. The
// requester's account email must match the invited address.
func (s *FamilyService) AcceptInvitation(ctx context.Context, requesterID, token string) (*models.Family, error) {
	if err := requireUser(requesterID); err != nil {
		return nil, err
	}
	invalid := apperrors.Validation("Invalid or expired invitation token")
	if token == "" {
		return nil, invalid
	}

	now := s.now()
	family, err := s.families.FindByInvitationToken(ctx, token, now)
	if err != nil {
		return nil, apperrors.Database("failed to find invitation", err)
	}
	if family == nil {
		return nil, invalid
	}
	inv, ok := family.InvitationByToken(token, now)
	if !ok {
		return nil, invalid
	}

	user, err := s.users.GetByID(ctx, requesterID)
	if err != nil {
		return nil, apperrors.Database("failed to load user", err)
	}
	if user == nil {
		return nil, apperrors.NotFound("User not found")
	}
	if validation.NormalizeEmail(user.Email) != inv.Email {
		return nil, apperrors.Validation("This invitation was not meant for you")
	}

	if _, err := family.AcceptInvitation(token, now); err != nil {
		return nil, invalid
	}
	// a requester who already belongs keeps their membership; the
	// invitation is still consumed
	family.AddMember(requesterID, inv.Role, now)

	if err := s.families.Save(ctx, family); err != nil {
		return nil, apperrors.Database("failed to save family", err)
	}

	s.log.Info("invitation accepted", zap.String("family_id", family.ID), zap.String("user_id", requesterID))
	return family, nil
}

// RemoveMember removes targetUserID from the family. The family's only
// parent can never be removed.
func (s *FamilyService) RemoveMember(ctx context.Context, requesterID, familyID, targetUserID string) error {
	family, err := s.loadFamily(ctx, familyID)
	if err != nil {
		return err
	}
	if err := policy.FamilyCan(family, requesterID, policy.RemoveMember); err != nil {
		return err
	}
	if !family.IsMember(targetUserID) {
		return apperrors.NotFound("Member not found")
	}
	if family.IsLastParent(targetUserID) {
		return apperrors.Validation("Cannot remove the last parent from the family")
	}

	family.RemoveMember(targetUserID)
	if err := s.families.Save(ctx, family); err != nil {
		return apperrors.Database("failed to save family", err)
	}

	s.log.Info("member removed", zap.String("family_id", family.ID), zap.String("user_id", targetUserID), zap.String("by", requesterID))
	return nil
}

// CancelInvitation withdraws the pending invitation for email
func (s *FamilyService) CancelInvitation(ctx context.Context, requesterID, familyID, email string) error {
	family, err := s.loadFamily(ctx, familyID)
	if err != nil {
		return err
	}
	if err := policy.FamilyCan(family, requesterID, policy.CancelInvitation); err != nil {
		return err
	}

	if _, err := family.CancelInvitation(validation.NormalizeEmail(email), s.now()); err != nil {
		return apperrors.NotFound("Invitation not found")
	}
	if err := s.families.Save(ctx, family); err != nil {
		return apperrors.Database("failed to save family", err)
	}
	return nil
}

func (s *FamilyService) loadFamily(ctx context.Context, familyID string) (*models.Family, error) {
	family, err := s.families.GetByID(ctx, familyID)
	if err != nil {
		return nil, apperrors.Database("failed to get family", err)
	}
	if family == nil {
		return nil, apperrors.NotFound("Family not found")
	}
	return family, nil
}
