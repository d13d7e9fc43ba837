package handlers

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/gatherly/gatherly/internal/rsvp"
)

type invitationPayload struct {
	ID             string     `json:"id"`
	Title          string     `json:"title"`
	Message        string     `json:"message"`
	DateTime       *time.Time `json:"dateTime,omitempty"`
	Location       string     `json:"location,omitempty"`
	RSVPLink       string     `json:"rsvpLink,omitempty"`
	ResponseCutoff *time.Time `json:"responseCutoff,omitempty"`
	CreatedAt      time.Time  `json:"createdAt"`
	UpdatedAt      time.Time  `json:"updatedAt"`
}

func publicInvitation(inv *rsvp.Invitation) invitationPayload {
	return invitationPayload{
		ID:             inv.ID,
		Title:          inv.Title,
		Message:        inv.Message,
		DateTime:       inv.EventTime,
		Location:       inv.Location,
		RSVPLink:       inv.RSVPLink,
		ResponseCutoff: inv.Cutoff,
		CreatedAt:      inv.CreatedAt,
		UpdatedAt:      inv.UpdatedAt,
	}
}

// invitationRequest is the owner-supplied metadata for create and update.
type invitationRequest struct {
	Title          string `json:"title"`
	Message        string `json:"message"`
	DateTime       string `json:"dateTime"`
	Location       string `json:"location"`
	RSVPLink       string `json:"rsvpLink"`
	ResponseCutoff string `json:"responseCutoff"`
}

// parseInvitationRequest decodes and validates the request body, writing the
// error response itself on failure.
func parseInvitationRequest(w http.ResponseWriter, r *http.Request) (*invitationRequest, *time.Time, *time.Time, bool) {
	var req invitationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteError(w, http.StatusBadRequest, "Invalid request body")
		return nil, nil, nil, false
	}

	if req.Title == "" {
		WriteError(w, http.StatusBadRequest, "Title required")
		return nil, nil, nil, false
	}

	eventTime, ok := parseOptionalTime(w, req.DateTime, "dateTime")
	if !ok {
		return nil, nil, nil, false
	}
	cutoff, ok := parseOptionalTime(w, req.ResponseCutoff, "responseCutoff")
	if !ok {
		return nil, nil, nil, false
	}

	return &req, eventTime, cutoff, true
}

func parseOptionalTime(w http.ResponseWriter, value, field string) (*time.Time, bool) {
	if value == "" {
		return nil, true
	}
	t, err := time.Parse(time.RFC3339, value)
	if err != nil {
		WriteError(w, http.StatusBadRequest, "Invalid "+field+" format")
		return nil, false
	}
	return &t, true
}

// HandleCreateInvitation creates an invitation owned by the caller.
func HandleCreateInvitation(s Server) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		req, eventTime, cutoff, ok := parseInvitationRequest(w, r)
		if !ok {
			return
		}

		userID, _ := s.CurrentUser(r)
		inv := &rsvp.Invitation{
			Title:     req.Title,
			Message:   req.Message,
			EventTime: eventTime,
			Location:  req.Location,
			RSVPLink:  req.RSVPLink,
			Cutoff:    cutoff,
			OwnerID:   userID,
		}

		if err := s.GetDB().CreateInvitation(inv); err != nil {
			slog.Error("failed to create invitation", "error", err)
			WriteError(w, http.StatusInternalServerError, "Failed to create invitation")
			return
		}

		WriteJSON(w, http.StatusCreated, publicInvitation(inv))
	}
}

// ownerInvitation is one invitation in the owner's dashboard list.
type ownerInvitation struct {
	invitationPayload
	Counts    rsvp.Counts        `json:"counts"`
	Responses []rsvp.RosterEntry `json:"responses"`
}

// HandleListInvitations lists the caller's invitations with the full
// per-invitation roster and counts.
func HandleListInvitations(s Server) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, _ := s.CurrentUser(r)

		invitations, err := s.GetDB().ListInvitationsByOwner(userID)
		if err != nil {
			slog.Error("failed to list invitations", "owner", userID, "error", err)
			WriteError(w, http.StatusInternalServerError, "Failed to list invitations")
			return
		}

		list := make([]ownerInvitation, 0, len(invitations))
		for _, inv := range invitations {
			summary := rsvp.ForOwner(inv)
			list = append(list, ownerInvitation{
				invitationPayload: publicInvitation(inv),
				Counts:            summary.Counts,
				Responses:         summary.Responses,
			})
		}

		WriteJSON(w, http.StatusOK, list)
	}
}

// invitationDetail is the public projection plus the viewer's own slice of
// the response state.
type invitationDetail struct {
	invitationPayload
	MyResponse      *rsvp.ViewerResponse `json:"myResponse"`
	CanEditResponse bool                 `json:"canEditResponse"`
}

// HandleGetInvitation returns an invitation's public details together with
// the viewer's own response, if any, and whether it can still be edited.
func HandleGetInvitation(s Server) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		inv, ok := loadInvitation(s, w, r)
		if !ok {
			return
		}

		creds := viewerCredentials(s, r, inv.ID)
		view := rsvp.ForViewer(inv, creds, time.Now())

		WriteJSON(w, http.StatusOK, invitationDetail{
			invitationPayload: publicInvitation(inv),
			MyResponse:        view.Response,
			CanEditResponse:   view.CanEdit,
		})
	}
}

// HandleUpdateInvitation overwrites an invitation's metadata. Owner only.
func HandleUpdateInvitation(s Server) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		inv, ok := loadInvitation(s, w, r)
		if !ok {
			return
		}
		if !requireOwner(s, w, r, inv) {
			return
		}

		req, eventTime, cutoff, ok := parseInvitationRequest(w, r)
		if !ok {
			return
		}

		inv.Title = req.Title
		inv.Message = req.Message
		inv.EventTime = eventTime
		inv.Location = req.Location
		inv.RSVPLink = req.RSVPLink
		inv.Cutoff = cutoff

		if err := s.GetDB().UpdateInvitation(inv); err != nil {
			slog.Error("failed to update invitation", "id", inv.ID, "error", err)
			WriteError(w, http.StatusInternalServerError, "Failed to update invitation")
			return
		}

		WriteJSON(w, http.StatusOK, publicInvitation(inv))
	}
}

// HandleDeleteInvitation deletes an invitation and its responses. Owner only.
func HandleDeleteInvitation(s Server) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		inv, ok := loadInvitation(s, w, r)
		if !ok {
			return
		}
		if !requireOwner(s, w, r, inv) {
			return
		}

		if err := s.GetDB().DeleteInvitation(inv.ID); err != nil {
			slog.Error("failed to delete invitation", "id", inv.ID, "error", err)
			WriteError(w, http.StatusInternalServerError, "Failed to delete invitation")
			return
		}

		w.WriteHeader(http.StatusNoContent)
	}
}

// myResponseEntry is one invitation the caller has responded to.
type myResponseEntry struct {
	Invitation invitationPayload    `json:"invitation"`
	Response   *rsvp.ViewerResponse `json:"response"`
	CanEdit    bool                 `json:"canEdit"`
}

// HandleMyResponses lists the invitations where the caller has a
// registered-identity response.
func HandleMyResponses(s Server) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, username := s.CurrentUser(r)

		invitations, err := s.GetDB().ListInvitationsWithResponseFrom(userID)
		if err != nil {
			slog.Error("failed to list responded invitations", "user", userID, "error", err)
			WriteError(w, http.StatusInternalServerError, "Failed to list invitations")
			return
		}

		creds := rsvp.Credentials{UserID: userID, Username: username}
		now := time.Now()

		list := make([]myResponseEntry, 0, len(invitations))
		for _, inv := range invitations {
			view := rsvp.ForViewer(inv, creds, now)
			list = append(list, myResponseEntry{
				Invitation: publicInvitation(inv),
				Response:   view.Response,
				CanEdit:    view.CanEdit,
			})
		}

		WriteJSON(w, http.StatusOK, list)
	}
}
