package service

import (
	"context"
	"errors"
	"strings"

	"familytasks/internal/apperrors"
	"familytasks/internal/models"
	"familytasks/internal/repository"
	"familytasks/internal/security"
	"familytasks/internal/validation"

	"go.uber.org/zap"
)

// RegisterInput holds the fields accepted at registration
type RegisterInput struct {
	Email     string `json:"email"`
	Password  string `json:"password"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Role      string `json:"role"`
}

// AuthResult is returned by every operation that signs a user in
type AuthResult struct {
	User         *models.User
	AccessToken  string
	RefreshToken string
	ExpiresIn    int64
}

// WelcomeMailer sends the post-registration greeting
type WelcomeMailer interface {
	SendWelcomeEmail(ctx context.Context, toEmail, toName string) error
}

// AuthService handles authentication business logic
type AuthService struct {
	users   UserStore
	tokens  *security.TokenManager
	revoker Revoker
	google  GoogleIdentity
	welcome WelcomeMailer
	log     *zap.Logger
}

// AuthOption configures optional AuthService collaborators
type AuthOption func(*AuthService)

// WithRevoker enables access token revocation on logout
func WithRevoker(r Revoker) AuthOption {
	return func(s *AuthService) { s.revoker = r }
}

// WithGoogle enables Google sign-in
func WithGoogle(g GoogleIdentity) AuthOption {
	return func(s *AuthService) { s.google = g }
}

// WithWelcomeMailer sends a welcome email after registration
func WithWelcomeMailer(m WelcomeMailer) AuthOption {
	return func(s *AuthService) { s.welcome = m }
}

// NewAuthService creates a new auth service
func NewAuthService(users UserStore, tokens *security.TokenManager, log *zap.Logger, opts ...AuthOption) *AuthService {
	s := &AuthService{users: users, tokens: tokens, log: log}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Register creates a password account and signs it in
func (s *AuthService) Register(ctx context.Context, in RegisterInput) (*AuthResult, error) {
	email := validation.NormalizeEmail(in.Email)
	errs := validation.Collect(
		validation.ValidateEmail(email),
		validation.ValidatePassword(in.Password),
		validation.ValidateNamedField("firstName", in.FirstName),
		validation.ValidateNamedField("lastName", in.LastName),
	)
	if len(errs) > 0 {
		return nil, validationFailed(errs)
	}
	role, ok := models.ParseRole(in.Role, models.RoleParent)
	if !ok {
		return nil, apperrors.Validation("Invalid role", apperrors.FieldError{Field: "role", Message: "role must be parent or child"})
	}

	existing, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		return nil, apperrors.Database("failed to check existing user", err)
	}
	if existing != nil {
		return nil, emailTaken()
	}

	hash, err := security.HashPassword(in.Password)
	if err != nil {
		return nil, err
	}

	user := &models.User{
		Email:        email,
		PasswordHash: hash,
		FirstName:    strings.TrimSpace(in.FirstName),
		LastName:     strings.TrimSpace(in.LastName),
		Role:         role,
	}
	if err := s.users.Create(ctx, user); err != nil {
		if errors.Is(err, repository.ErrDuplicateEmail) {
			return nil, emailTaken()
		}
		return nil, apperrors.Database("failed to create user", err)
	}

	result, err := s.signIn(ctx, user)
	if err != nil {
		return nil, err
	}

	if s.welcome != nil {
		if err := s.welcome.SendWelcomeEmail(ctx, user.Email, user.FirstName); err != nil {
			s.log.Warn("welcome email failed", zap.String("user_id", user.ID), zap.Error(err))
		}
	}

	s.log.Info("user registered", zap.String("user_id", user.ID))
	return result, nil
}

// Login signs in with email and password
func (s *AuthService) Login(ctx context.Context, email, password string) (*AuthResult, error) {
	invalid := apperrors.Authentication("Invalid email or password")

	user, err := s.users.GetByEmail(ctx, validation.NormalizeEmail(email))
	if err != nil {
		return nil, apperrors.Database("failed to look up user", err)
	}
	if user == nil || !user.HasPassword() {
		return nil, invalid
	}
	if !security.CheckPassword(password, user.PasswordHash) {
		return nil, invalid
	}

	return s.signIn(ctx, user)
}

// GoogleSignIn signs in with a Google authorization code, linking or
// creating the account as needed
func (s *AuthService) GoogleSignIn(ctx context.Context, code string) (*AuthResult, error) {
	if s.google == nil {
		return nil, apperrors.Validation("Google sign-in is not configured")
	}
	if code == "" {
		return nil, apperrors.Validation("Authorization code is required", apperrors.FieldError{Field: "code", Message: "code is required"})
	}

	gu, err := s.google.Identify(ctx, code)
	if err != nil {
		s.log.Warn("google sign-in failed", zap.Error(err))
		return nil, apperrors.Authentication("Google authentication failed")
	}
	if !gu.Verified {
		return nil, apperrors.Authentication("Google account email is not verified")
	}

	user, err := s.users.GetByGoogleID(ctx, gu.ID)
	if err != nil {
		return nil, apperrors.Database("failed to look up user", err)
	}
	if user != nil {
		return s.signIn(ctx, user)
	}

	email := validation.NormalizeEmail(gu.Email)
	user, err = s.users.GetByEmail(ctx, email)
	if err != nil {
		return nil, apperrors.Database("failed to look up user", err)
	}
	if user != nil {
		if err := s.users.LinkGoogleID(ctx, user.ID, gu.ID); err != nil {
			return nil, apperrors.Database("failed to link Google account", err)
		}
		user.GoogleID = gu.ID
		s.log.Info("google account linked", zap.String("user_id", user.ID))
		return s.signIn(ctx, user)
	}

	user = &models.User{
		Email:     email,
		FirstName: gu.GivenName,
		LastName:  gu.FamilyName,
		Role:      models.RoleParent,
		GoogleID:  gu.ID,
	}
	if err := s.users.Create(ctx, user); err != nil {
		if errors.Is(err, repository.ErrDuplicateEmail) {
			return nil, emailTaken()
		}
		return nil, apperrors.Database("failed to create user", err)
	}
	s.log.Info("user registered via google", zap.String("user_id", user.ID))
	return s.signIn(ctx, user)
}

// RefreshToken exchanges a valid refresh token for a new token pair. The
// presented token must be the one currently stored for the user.
func (s *AuthService) RefreshToken(ctx context.Context, refreshToken string) (*AuthResult, error) {
	invalid := apperrors.Token("Invalid refresh token")
	if refreshToken == "" {
		return nil, invalid
	}

	claims, err := s.tokens.ParseRefresh(refreshToken)
	if err != nil {
		return nil, invalid
	}

	user, err := s.users.GetByID(ctx, claims.UserID())
	if err != nil {
		return nil, apperrors.Database("failed to load user", err)
	}
	if user == nil || user.RefreshToken == "" || user.RefreshToken != refreshToken {
		return nil, invalid
	}

	return s.signIn(ctx, user)
}

// Logout clears the stored refresh token and revokes the access token
// when a revocation list is configured
func (s *AuthService) Logout(ctx context.Context, userID string, claims *security.Claims) error {
	if err := requireUser(userID); err != nil {
		return err
	}
	if err := s.users.SetRefreshToken(ctx, userID, ""); err != nil {
		return apperrors.Database("failed to clear refresh token", err)
	}

	if s.revoker != nil && claims != nil && claims.ID != "" && claims.ExpiresAt != nil {
		if err := s.revoker.Revoke(ctx, claims.ID, claims.ExpiresAt.Time); err != nil {
			s.log.Error("failed to revoke access token", zap.String("user_id", userID), zap.Error(err))
			return err
		}
	}
	return nil
}

// Authenticate verifies an access token and returns its claims
func (s *AuthService) Authenticate(ctx context.Context, accessToken string) (*security.Claims, error) {
	invalid := apperrors.Token("Invalid or expired token")

	claims, err := s.tokens.ParseAccess(accessToken)
	if err != nil {
		return nil, invalid
	}
	if claims.UserID() == "" {
		return nil, invalid
	}

	if s.revoker != nil && claims.ID != "" {
		revoked, err := s.revoker.IsRevoked(ctx, claims.ID)
		if err != nil {
			return nil, err
		}
		if revoked {
			return nil, invalid
		}
	}
	return claims, nil
}

// Me returns the requester's account
func (s *AuthService) Me(ctx context.Context, userID string) (*models.User, error) {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, apperrors.Database("failed to load user", err)
	}
	if user == nil {
		return nil, apperrors.NotFound("User not found")
	}
	return user, nil
}

// signIn issues a token pair and stores the refresh token, replacing any
// previous one
func (s *AuthService) signIn(ctx context.Context, user *models.User) (*AuthResult, error) {
	pair, err := s.tokens.IssuePair(user)
	if err != nil {
		return nil, err
	}
	if err := s.users.SetRefreshToken(ctx, user.ID, pair.RefreshToken); err != nil {
		return nil, apperrors.Database("failed to store refresh token", err)
	}
	user.RefreshToken = pair.RefreshToken

	return &AuthResult{
		User:         user,
		AccessToken:  pair.AccessToken,
		RefreshToken: pair.RefreshToken,
		ExpiresIn:    pair.ExpiresIn,
	}, nil
}

func emailTaken() error {
	return apperrors.Validation("Email is already registered", apperrors.FieldError{Field: "email", Message: "email is already registered"})
}
