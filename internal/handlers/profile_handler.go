package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/michellelee0718/porespective/internal/middleware"
	"github.com/michellelee0718/porespective/internal/models"
	"github.com/michellelee0718/porespective/internal/services"
)

type ProfileHandler struct {
	profiles *services.MongoUserService
}

func NewProfileHandler(profiles *services.MongoUserService) *ProfileHandler {
	return &ProfileHandler{profiles: profiles}
}

// GetProfile returns the caller's skincare profile, creating a default
// record on first access so the client always gets a document back.
func (h *ProfileHandler) GetProfile(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	if userID == "" {
		writeJSON(w, http.StatusUnauthorized, models.NewErrorResponse("Unauthorized"))
		return
	}

	ctx, cancel := contextWithTimeout(r)
	defer cancel()

	profile, err := h.profiles.GetOrCreate(ctx, userID, middleware.GetUserEmail(r.Context()))
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, models.NewErrorResponse("Failed to load profile"))
		return
	}

	writeJSON(w, http.StatusOK, models.NewSuccessResponse(profile))
}

// UpdateProfile merges the submitted fields into the stored profile.
// Omitted fields are left untouched.
func (h *ProfileHandler) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	if userID == "" {
		writeJSON(w, http.StatusUnauthorized, models.NewErrorResponse("Unauthorized"))
		return
	}

	var req models.UpdateProfileRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, models.NewErrorResponse("Invalid request body"))
		return
	}

	if errors := req.Validate(); len(errors) > 0 {
		writeJSON(w, http.StatusBadRequest, models.NewValidationErrorResponse(errors))
		return
	}

	ctx, cancel := contextWithTimeout(r)
	defer cancel()

	profile, err := h.profiles.Upsert(ctx, userID, middleware.GetUserEmail(r.Context()), &req)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, models.NewErrorResponse("Failed to update profile"))
		return
	}

	writeJSON(w, http.StatusOK, models.NewSuccessResponse(profile))
}
