package handlers

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/rs/zerolog"
)

// EmailPublisher dispatches a fire-and-forget send job and returns its id.
type EmailPublisher interface {
	SendEmail(ctx context.Context, address string) (string, error)
}

type EmailHandler struct {
	publisher EmailPublisher
	log       zerolog.Logger
}

func NewEmailHandler(publisher EmailPublisher, log zerolog.Logger) *EmailHandler {
	return &EmailHandler{publisher: publisher, log: log}
}

func (h *EmailHandler) Send(w http.ResponseWriter, r *http.Request) {
	var in struct {
		Email string `json:"email"`
	}
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil || in.Email == "" {
		writeDetail(w, http.StatusBadRequest, "Email address is required")
		return
	}

	jobID, err := h.publisher.SendEmail(r.Context(), in.Email)
	if err != nil {
		h.log.Error().Err(err).Msg("failed to enqueue email job")
		writeDetail(w, http.StatusInternalServerError, "Failed to enqueue email")
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{
		"message": "Sending",
		"task_id": jobID,
	})
}
