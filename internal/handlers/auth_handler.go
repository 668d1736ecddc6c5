package handlers

import (
	"net/http"

	"familytasks/internal/models"
	"familytasks/internal/service"

	"go.uber.org/zap"
)

// AuthHandler handles authentication endpoints
type AuthHandler struct {
	auth *service.AuthService
	log  *zap.Logger
}

// NewAuthHandler creates a new auth handler
func NewAuthHandler(auth *service.AuthService, log *zap.Logger) *AuthHandler {
	return &AuthHandler{auth: auth, log: log}
}

type authResponse struct {
	Message      string       `json:"message"`
	User         *models.User `json:"user,omitempty"`
	AccessToken  string       `json:"accessToken"`
	RefreshToken string       `json:"refreshToken"`
	ExpiresIn    int64        `json:"expiresIn"`
}

func newAuthResponse(message string, res *service.AuthResult, withUser bool) authResponse {
	out := authResponse{
		Message:      message,
		AccessToken:  res.AccessToken,
		RefreshToken: res.RefreshToken,
		ExpiresIn:    res.ExpiresIn,
	}
	if withUser {
		out.User = res.User
	}
	return out
}

// Register handles POST /api/auth/register
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req service.RegisterInput
	if err := decodeJSON(w, r, &req); err != nil {
		respondWithError(w, r, h.log, err)
		return
	}

	res, err := h.auth.Register(r.Context(), req)
	if err != nil {
		respondWithError(w, r, h.log, err)
		return
	}
	writeJSON(w, http.StatusCreated, newAuthResponse("User registered successfully", res, true))
}

// Login handles POST /api/auth/login
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := decodeJSON(w, r, &req); err != nil {
		respondWithError(w, r, h.log, err)
		return
	}

	res, err := h.auth.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		respondWithError(w, r, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, newAuthResponse("Login successful", res, true))
}

// Google handles POST /api/auth/google
func (h *AuthHandler) Google(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Code string `json:"code"`
	}
	if err := decodeJSON(w, r, &req); err != nil {
		respondWithError(w, r, h.log, err)
		return
	}

	res, err := h.auth.GoogleSignIn(r.Context(), req.Code)
	if err != nil {
		respondWithError(w, r, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, newAuthResponse("Login successful", res, true))
}

// RefreshToken handles POST /api/auth/refresh-token
func (h *AuthHandler) RefreshToken(w http.ResponseWriter, r *http.Request) {
	var req struct {
		RefreshToken string `json:"refreshToken"`
	}
	if err := decodeJSON(w, r, &req); err != nil {
		respondWithError(w, r, h.log, err)
		return
	}

	res, err := h.auth.RefreshToken(r.Context(), req.RefreshToken)
	if err != nil {
		respondWithError(w, r, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, newAuthResponse("Token refreshed successfully", res, false))
}

// Logout handles POST /api/auth/logout
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	if err := h.auth.Logout(r.Context(), userID(r), GetClaimsFromContext(r.Context())); err != nil {
		respondWithError(w, r, h.log, err)
		return
	}
	respondMessage(w, http.StatusOK, "Logout successful")
}

// Me handles GET /api/auth/me
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	user, err := h.auth.Me(r.Context(), userID(r))
	if err != nil {
		respondWithError(w, r, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"message": "User retrieved successfully",
		"user":    user,
	})
}
