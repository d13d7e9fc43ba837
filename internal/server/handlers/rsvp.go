package handlers

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/gatherly/gatherly/internal/rsvp"
)

type rsvpRequest struct {
	Status string `json:"status"`
	Notes  string `json:"notes"`
}

type rsvpOutcome struct {
	Success       bool      `json:"success"`
	Mode          string    `json:"mode"`
	ResponseID    string    `json:"responseId"`
	ResponseToken string    `json:"responseToken,omitempty"`
	UpdatedAt     time.Time `json:"updatedAt"`
}

// HandleRSVPSubmit reconciles an RSVP submission against the invitation's
// existing responses: same viewer updates their response, a new viewer gets a
// new one. A token is returned only when a new anonymous response was
// created; the caller must persist it and resend it on later requests for
// this invitation.
func HandleRSVPSubmit(s Server) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		inv, ok := loadInvitation(s, w, r)
		if !ok {
			return
		}

		var req rsvpRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			WriteError(w, http.StatusBadRequest, "Invalid request body")
			return
		}

		creds := viewerCredentials(s, r, inv.ID)
		submission := rsvp.Submission{Status: rsvp.Status(req.Status), Notes: req.Notes}

		result, err := s.GetReconciler().Submit(inv, creds, submission)
		switch {
		case errors.Is(err, rsvp.ErrInvalidStatus):
			WriteError(w, http.StatusBadRequest, "Invalid status")
			return
		case errors.Is(err, rsvp.ErrWindowClosed):
			WriteError(w, http.StatusForbidden, "Response window closed")
			return
		case err != nil:
			slog.Error("failed to save response", "invitation", inv.ID, "error", err)
			WriteError(w, http.StatusInternalServerError, "Failed to save response")
			return
		}

		if result.Token != "" {
			s.SaveAnonToken(w, r, inv.ID, result.Token)
		}

		WriteJSON(w, http.StatusOK, rsvpOutcome{
			Success:       true,
			Mode:          string(result.Mode),
			ResponseID:    result.Response.ID,
			ResponseToken: result.Token,
			UpdatedAt:     result.UpdatedAt,
		})
	}
}
