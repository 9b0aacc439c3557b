package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/michellelee0718/porespective/internal/middleware"
	"github.com/michellelee0718/porespective/internal/models"
	"github.com/michellelee0718/porespective/internal/services"
)

// Invalid slots are rejected before the store is touched, so an unconnected
// service is safe here.
func TestCompleteRoutineInvalidSlot(t *testing.T) {
	h := NewRoutineHandler(&services.MongoUserService{})

	r := chi.NewRouter()
	r.Post("/api/routine/check-in/{slot}", h.CompleteRoutine)

	req := httptest.NewRequest(http.MethodPost, "/api/routine/check-in/weekly", nil)
	req = req.WithContext(context.WithValue(req.Context(), middleware.UserIDKey, "user-1"))
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)

	var resp models.APIResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.False(t, resp.Success)
	assert.Equal(t, "invalid routine type: must be 'am' or 'pm'", resp.Error)
}

func TestCompleteRoutineUnauthorized(t *testing.T) {
	h := NewRoutineHandler(&services.MongoUserService{})

	r := chi.NewRouter()
	r.Post("/api/routine/check-in/{slot}", h.CompleteRoutine)

	req := httptest.NewRequest(http.MethodPost, "/api/routine/check-in/am", nil)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}
