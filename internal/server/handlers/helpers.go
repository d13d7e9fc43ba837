package handlers

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/google/uuid"

	"github.com/gatherly/gatherly/internal/database"
	"github.com/gatherly/gatherly/internal/rsvp"
)

// Server interface defines the methods needed by handlers
type Server interface {
	GetDB() *database.DB
	GetReconciler() *rsvp.Reconciler

	// CurrentUser returns the verified user id and username, or empty
	// strings for an anonymous request.
	CurrentUser(r *http.Request) (string, string)

	// AnonToken returns the viewer's anonymous token for an invitation,
	// from the request header or the cookie fallback.
	AnonToken(r *http.Request, invitationID string) string

	// SaveAnonToken persists a freshly minted token in the cookie
	// fallback. Must be called before the response body is written.
	SaveAnonToken(w http.ResponseWriter, r *http.Request, invitationID, token string)
}

func WriteJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("failed to encode response", "error", err)
	}
}

func WriteError(w http.ResponseWriter, status int, message string) {
	WriteJSON(w, status, map[string]string{"error": message})
}

// loadInvitation parses the id path value and loads the invitation, writing
// the error response itself on failure.
func loadInvitation(s Server, w http.ResponseWriter, r *http.Request) (*rsvp.Invitation, bool) {
	id := r.PathValue("id")
	if uuid.Validate(id) != nil {
		WriteError(w, http.StatusBadRequest, "Invalid id")
		return nil, false
	}

	inv, err := s.GetDB().GetInvitation(id)
	if errors.Is(err, database.ErrNotFound) {
		WriteError(w, http.StatusNotFound, "Not found")
		return nil, false
	}
	if err != nil {
		slog.Error("failed to load invitation", "id", id, "error", err)
		WriteError(w, http.StatusInternalServerError, "Failed to load invitation")
		return nil, false
	}

	return inv, true
}

// requireOwner checks that the authenticated caller owns the invitation,
// writing 403 otherwise. Forbidden is distinct from NotFound so clients can
// tell "not yours" from "missing".
func requireOwner(s Server, w http.ResponseWriter, r *http.Request, inv *rsvp.Invitation) bool {
	userID, _ := s.CurrentUser(r)
	if userID != inv.OwnerID {
		WriteError(w, http.StatusForbidden, "Forbidden")
		return false
	}
	return true
}

// viewerCredentials assembles the core's view of who is asking. The resolver
// gives the authenticated identity precedence when both are present.
func viewerCredentials(s Server, r *http.Request, invitationID string) rsvp.Credentials {
	userID, username := s.CurrentUser(r)
	return rsvp.Credentials{
		UserID:    userID,
		Username:  username,
		AnonToken: s.AnonToken(r, invitationID),
	}
}
