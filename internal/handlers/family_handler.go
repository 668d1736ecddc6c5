package handlers

import (
	"net/http"
	"net/url"

	"familytasks/internal/service"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// FamilyHandler handles family and invitation endpoints
type FamilyHandler struct {
	families *service.FamilyService
	log      *zap.Logger
}

// NewFamilyHandler creates a new family handler
func NewFamilyHandler(families *service.FamilyService, log *zap.Logger) *FamilyHandler {
	return &FamilyHandler{families: families, log: log}
}

// CreateFamily handles POST /api/families
func (h *FamilyHandler) CreateFamily(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name string `json:"name"`
	}
	if err := decodeJSON(w, r, &req); err != nil {
		respondWithError(w, r, h.log, err)
		return
	}

	family, err := h.families.CreateFamily(r.Context(), userID(r), req.Name)
	if err != nil {
		respondWithError(w, r, h.log, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]interface{}{
		"message": "Family created successfully",
		"family":  family,
	})
}

// GetFamilies handles GET /api/families
func (h *FamilyHandler) GetFamilies(w http.ResponseWriter, r *http.Request) {
	families, err := h.families.GetFamilies(r.Context(), userID(r))
	if err != nil {
		respondWithError(w, r, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"message":  "Families retrieved successfully",
		"families": families,
	})
}

// GetFamily handles GET /api/families/{id}
func (h *FamilyHandler) GetFamily(w http.ResponseWriter, r *http.Request) {
	family, err := h.families.GetFamilyByID(r.Context(), userID(r), chi.URLParam(r, "id"))
	if err != nil {
		respondWithError(w, r, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"message": "Family retrieved successfully",
		"family":  family,
	})
}

// InviteMember handles POST /api/families/{id}/invite
func (h *FamilyHandler) InviteMember(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email string `json:"email"`
		Role  string `json:"role"`
	}
	if err := decodeJSON(w, r, &req); err != nil {
		respondWithError(w, r, h.log, err)
		return
	}

	inv, err := h.families.InviteMember(r.Context(), userID(r), chi.URLParam(r, "id"), req.Email, req.Role)
	if err != nil {
		respondWithError(w, r, h.log, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]interface{}{
		"message":    "Invitation sent successfully",
		"invitation": inv,
	})
}

// AcceptInvitation handles POST /api/families/accept-invitation
func (h *FamilyHandler) AcceptInvitation(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Token string `json:"token"`
	}
	if err := decodeJSON(w, r, &req); err != nil {
		respondWithError(w, r, h.log, err)
		return
	}

	family, err := h.families.AcceptInvitation(r.Context(), userID(r), req.Token)
	if err != nil {
		respondWithError(w, r, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"message": "Invitation accepted successfully",
		"family":  family,
	})
}

// RemoveMember handles DELETE /api/families/{id}/members/{userId}
func (h *FamilyHandler) RemoveMember(w http.ResponseWriter, r *http.Request) {
	err := h.families.RemoveMember(r.Context(), userID(r), chi.URLParam(r, "id"), chi.URLParam(r, "userId"))
	if err != nil {
		respondWithError(w, r, h.log, err)
		return
	}
	respondMessage(w, http.StatusOK, "Member removed successfully")
}

// CancelInvitation handles DELETE /api/families/{id}/invitations/{email}
func (h *FamilyHandler) CancelInvitation(w http.ResponseWriter, r *http.Request) {
	email, err := url.PathUnescape(chi.URLParam(r, "email"))
	if err != nil {
		email = chi.URLParam(r, "email")
	}

	if err := h.families.CancelInvitation(r.Context(), userID(r), chi.URLParam(r, "id"), email); err != nil {
		respondWithError(w, r, h.log, err)
		return
	}
	respondMessage(w, http.StatusOK, "Invitation cancelled successfully")
}
