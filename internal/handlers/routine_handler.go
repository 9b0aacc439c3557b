package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/michellelee0718/porespective/internal/middleware"
	"github.com/michellelee0718/porespective/internal/models"
	"github.com/michellelee0718/porespective/internal/services"
)

// RoutineHandler serves the daily check-in state. Reads and writes both run
// through InitDailyCheckIn so a stale record from a previous day is reset
// before it is ever observed.
type RoutineHandler struct {
	profiles *services.MongoUserService
	now      func() time.Time
}

func NewRoutineHandler(profiles *services.MongoUserService) *RoutineHandler {
	return &RoutineHandler{profiles: profiles, now: time.Now}
}

// GetCheckIn returns today's check-in record, resetting it first if it
// belongs to an earlier date.
func (h *RoutineHandler) GetCheckIn(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	if userID == "" {
		writeJSON(w, http.StatusUnauthorized, models.NewErrorResponse("Unauthorized"))
		return
	}

	ctx, cancel := contextWithTimeout(r)
	defer cancel()

	checkIn, err := h.profiles.InitDailyCheckIn(ctx, userID, services.TodayString(h.now()))
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, models.NewErrorResponse("Failed to load check-in"))
		return
	}
	if checkIn == nil {
		writeJSON(w, http.StatusNotFound, models.NewErrorResponse("Profile not found"))
		return
	}

	writeJSON(w, http.StatusOK, models.NewSuccessResponse(checkIn))
}

// CompleteRoutine marks the given slot ("am" or "pm") done for today.
func (h *RoutineHandler) CompleteRoutine(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	if userID == "" {
		writeJSON(w, http.StatusUnauthorized, models.NewErrorResponse("Unauthorized"))
		return
	}

	slot := chi.URLParam(r, "slot")

	ctx, cancel := contextWithTimeout(r)
	defer cancel()

	err := h.profiles.MarkRoutineCompleted(ctx, userID, slot, services.TodayString(h.now()))
	if err != nil {
		if errors.Is(err, services.ErrInvalidRoutineSlot) {
			writeJSON(w, http.StatusBadRequest, models.NewErrorResponse(err.Error()))
			return
		}
		writeJSON(w, http.StatusInternalServerError, models.NewErrorResponse("Failed to update check-in"))
		return
	}

	checkIn, err := h.profiles.InitDailyCheckIn(ctx, userID, services.TodayString(h.now()))
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, models.NewErrorResponse("Failed to load check-in"))
		return
	}

	writeJSON(w, http.StatusOK, models.NewSuccessResponse(checkIn))
}
