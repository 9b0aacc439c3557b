package handlers

import (
	"encoding/json"
	"log"
	"net/http"

	"github.com/michellelee0718/porespective/internal/models"
	"github.com/michellelee0718/porespective/internal/services"
)

// EmailHandler relays reminder mail through the configured mailer so the
// provider API key never reaches clients.
type EmailHandler struct {
	mailer services.Mailer
}

func NewEmailHandler(mailer services.Mailer) *EmailHandler {
	return &EmailHandler{mailer: mailer}
}

type sendEmailRequest struct {
	Subject string `json:"subject"`
	Email   string `json:"email"`
	Message string `json:"message"`
}

func (h *EmailHandler) SendEmail(w http.ResponseWriter, r *http.Request) {
	var req sendEmailRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, models.RelayResponse{
			Status:  "error",
			Message: "Missing required fields",
		})
		return
	}

	if req.Subject == "" || req.Email == "" || req.Message == "" {
		writeJSON(w, http.StatusBadRequest, models.RelayResponse{
			Status:  "error",
			Message: "Missing required fields",
		})
		return
	}

	ctx, cancel := contextWithTimeout(r)
	defer cancel()

	if err := h.mailer.Send(ctx, req.Subject, req.Email, req.Message); err != nil {
		log.Printf("[Email] Relay send to %s failed: %v", req.Email, err)
		writeJSON(w, http.StatusInternalServerError, models.RelayResponse{
			Status:  "error",
			Message: "Error sending email, please try again.",
		})
		return
	}

	writeJSON(w, http.StatusOK, models.RelayResponse{
		Status:  "success",
		Message: "Email sent successfully",
	})
}
