package server

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/gatherly/gatherly/internal/config"
	"github.com/gatherly/gatherly/internal/database"
)

func newTestServer(t *testing.T) *Server {
	t.Helper()

	dsn := "file:" + uuid.NewString() + "?mode=memory&cache=shared&_foreign_keys=on"
	db, err := database.New("sqlite3", dsn)
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { db.Close() })
	require.NoError(t, db.Migrate())

	cfg := &config.Config{
		DatabaseDriver: "sqlite3",
		JWTSecret:      "test-secret",
		SessionSecret:  "test-secret",
		TokenTTL:       time.Hour,
	}

	return New(cfg, db)
}

// do performs a JSON request against the server's router. authToken becomes a
// bearer header, rsvpToken the anonymous-token header; either may be empty.
func do(t *testing.T, srv *Server, method, path, authToken, rsvpToken string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if authToken != "" {
		req.Header.Set("Authorization", "Bearer "+authToken)
	}
	if rsvpToken != "" {
		req.Header.Set("X-RSVP-Token", rsvpToken)
	}

	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	require.NoError(t, json.NewDecoder(rec.Body).Decode(v))
}

// register creates a user and returns their bearer token and id.
func register(t *testing.T, srv *Server, username string) (string, string) {
	t.Helper()

	rec := do(t, srv, "POST", "/api/auth/register", "", "", map[string]string{
		"username": username,
		"email":    username + "@example.com",
		"password": "hunter22",
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var resp struct {
		Token string `json:"token"`
		User  struct {
			ID string `json:"id"`
		} `json:"user"`
	}
	decode(t, rec, &resp)
	require.NotEmpty(t, resp.Token)
	return resp.Token, resp.User.ID
}

// createInvitation makes an invitation for the given owner token and returns
// its id.
func createInvitation(t *testing.T, srv *Server, ownerToken string, body map[string]string) string {
	t.Helper()

	rec := do(t, srv, "POST", "/api/invitations", ownerToken, "", body)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var inv struct {
		ID string `json:"id"`
	}
	decode(t, rec, &inv)
	return inv.ID
}

type rsvpResult struct {
	Success       bool   `json:"success"`
	Mode          string `json:"mode"`
	ResponseID    string `json:"responseId"`
	ResponseToken string `json:"responseToken"`
}

func TestRegisterLoginMe(t *testing.T) {
	srv := newTestServer(t)

	token, userID := register(t, srv, "alice")

	// Duplicate username.
	rec := do(t, srv, "POST", "/api/auth/register", "", "", map[string]string{
		"username": "alice", "email": "other@example.com", "password": "x",
	})
	require.Equal(t, http.StatusConflict, rec.Code)

	// Missing fields.
	rec = do(t, srv, "POST", "/api/auth/register", "", "", map[string]string{"username": "bob"})
	require.Equal(t, http.StatusBadRequest, rec.Code)

	// Login by username.
	rec = do(t, srv, "POST", "/api/auth/login", "", "", map[string]string{
		"identifier": "alice", "password": "hunter22",
	})
	require.Equal(t, http.StatusOK, rec.Code)

	// Login by email, case-insensitive.
	rec = do(t, srv, "POST", "/api/auth/login", "", "", map[string]string{
		"identifier": "ALICE@example.com", "password": "hunter22",
	})
	require.Equal(t, http.StatusOK, rec.Code)

	// Wrong password.
	rec = do(t, srv, "POST", "/api/auth/login", "", "", map[string]string{
		"identifier": "alice", "password": "nope",
	})
	require.Equal(t, http.StatusUnauthorized, rec.Code)

	// Me.
	rec = do(t, srv, "GET", "/api/auth/me", token, "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var me struct {
		User struct {
			ID       string `json:"id"`
			Username string `json:"username"`
		} `json:"user"`
	}
	decode(t, rec, &me)
	require.Equal(t, userID, me.User.ID)
	require.Equal(t, "alice", me.User.Username)

	// Me without a token.
	rec = do(t, srv, "GET", "/api/auth/me", "", "", nil)
	require.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestAnonymousRSVPFlow(t *testing.T) {
	srv := newTestServer(t)
	ownerToken, _ := register(t, srv, "owner")

	cutoff := time.Now().Add(time.Hour).UTC().Format(time.RFC3339)
	invID := createInvitation(t, srv, ownerToken, map[string]string{
		"title":          "Birthday dinner",
		"message":        "No gifts please",
		"responseCutoff": cutoff,
	})

	// Anonymous submission creates a response and mints a token.
	rec := do(t, srv, "POST", "/api/invitations/"+invID+"/rsvp", "", "", map[string]string{
		"status": "attending", "notes": "bringing cake",
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var first rsvpResult
	decode(t, rec, &first)
	require.True(t, first.Success)
	require.Equal(t, "created", first.Mode)
	require.NotEmpty(t, first.ResponseToken)

	// Resubmitting with the token updates the same response.
	rec = do(t, srv, "POST", "/api/invitations/"+invID+"/rsvp", "", first.ResponseToken, map[string]string{
		"status": "maybe", "notes": "",
	})
	require.Equal(t, http.StatusOK, rec.Code)
	var second rsvpResult
	decode(t, rec, &second)
	require.Equal(t, "updated", second.Mode)
	require.Equal(t, first.ResponseID, second.ResponseID)
	require.Empty(t, second.ResponseToken)

	// A tokenless resubmission is a new viewer.
	rec = do(t, srv, "POST", "/api/invitations/"+invID+"/rsvp", "", "", map[string]string{
		"status": "not_attending",
	})
	require.Equal(t, http.StatusOK, rec.Code)
	var third rsvpResult
	decode(t, rec, &third)
	require.Equal(t, "created", third.Mode)
	require.NotEqual(t, first.ResponseID, third.ResponseID)

	// Detail view with the token shows only the viewer's own response.
	rec = do(t, srv, "GET", "/api/invitations/"+invID, "", first.ResponseToken, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var detail struct {
		MyResponse *struct {
			Status string `json:"status"`
		} `json:"myResponse"`
		CanEditResponse bool `json:"canEditResponse"`
	}
	decode(t, rec, &detail)
	require.NotNil(t, detail.MyResponse)
	require.Equal(t, "maybe", detail.MyResponse.Status)
	require.True(t, detail.CanEditResponse)

	// Owner dashboard counts.
	rec = do(t, srv, "GET", "/api/invitations", ownerToken, "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var list []struct {
		ID     string `json:"id"`
		Counts struct {
			Attending    int `json:"attending"`
			Maybe        int `json:"maybe"`
			NotAttending int `json:"not_attending"`
		} `json:"counts"`
		Responses []struct {
			DisplayName *string `json:"displayName"`
		} `json:"responses"`
	}
	decode(t, rec, &list)
	require.Len(t, list, 1)
	require.Equal(t, 0, list[0].Counts.Attending)
	require.Equal(t, 1, list[0].Counts.Maybe)
	require.Equal(t, 1, list[0].Counts.NotAttending)
	require.Len(t, list[0].Responses, 2)
	for _, entry := range list[0].Responses {
		require.Nil(t, entry.DisplayName, "anonymous responses carry no name")
	}
}

func TestRSVPValidationAndCutoff(t *testing.T) {
	srv := newTestServer(t)
	ownerToken, _ := register(t, srv, "owner")

	// Unknown invitation.
	rec := do(t, srv, "POST", "/api/invitations/"+uuid.NewString()+"/rsvp", "", "", map[string]string{"status": "attending"})
	require.Equal(t, http.StatusNotFound, rec.Code)

	// Malformed id.
	rec = do(t, srv, "POST", "/api/invitations/not-a-uuid/rsvp", "", "", map[string]string{"status": "attending"})
	require.Equal(t, http.StatusBadRequest, rec.Code)

	invID := createInvitation(t, srv, ownerToken, map[string]string{"title": "Picnic"})

	// Status outside the closed enum.
	rec = do(t, srv, "POST", "/api/invitations/"+invID+"/rsvp", "", "", map[string]string{"status": "yes"})
	require.Equal(t, http.StatusBadRequest, rec.Code)

	// Closed cutoff: mutation forbidden, reads still succeed.
	past := time.Now().Add(-time.Hour).UTC().Format(time.RFC3339)
	closedID := createInvitation(t, srv, ownerToken, map[string]string{
		"title":          "Closed event",
		"responseCutoff": past,
	})

	rec = do(t, srv, "POST", "/api/invitations/"+closedID+"/rsvp", "", "", map[string]string{"status": "attending"})
	require.Equal(t, http.StatusForbidden, rec.Code)

	rec = do(t, srv, "GET", "/api/invitations/"+closedID, "", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var detail struct {
		CanEditResponse bool `json:"canEditResponse"`
	}
	decode(t, rec, &detail)
	require.False(t, detail.CanEditResponse)

	// Nothing was written for the closed invitation.
	rec = do(t, srv, "GET", "/api/invitations", ownerToken, "", nil)
	var list []struct {
		ID        string        `json:"id"`
		Responses []interface{} `json:"responses"`
	}
	decode(t, rec, &list)
	for _, inv := range list {
		if inv.ID == closedID {
			require.Empty(t, inv.Responses)
		}
	}
}

func TestAuthenticatedRSVP(t *testing.T) {
	srv := newTestServer(t)
	ownerToken, _ := register(t, srv, "owner")
	guestToken, _ := register(t, srv, "guest")

	invID := createInvitation(t, srv, ownerToken, map[string]string{"title": "Team offsite"})

	// Two submissions from the same user stay one response.
	rec := do(t, srv, "POST", "/api/invitations/"+invID+"/rsvp", guestToken, "", map[string]string{"status": "attending"})
	require.Equal(t, http.StatusOK, rec.Code)
	var first rsvpResult
	decode(t, rec, &first)
	require.Equal(t, "created", first.Mode)
	require.Empty(t, first.ResponseToken, "authenticated responses never return a token")

	rec = do(t, srv, "POST", "/api/invitations/"+invID+"/rsvp", guestToken, "", map[string]string{"status": "maybe", "notes": "depends on flights"})
	require.Equal(t, http.StatusOK, rec.Code)
	var second rsvpResult
	decode(t, rec, &second)
	require.Equal(t, "updated", second.Mode)
	require.Equal(t, first.ResponseID, second.ResponseID)

	// The owner roster shows the username snapshot.
	rec = do(t, srv, "GET", "/api/invitations", ownerToken, "", nil)
	var list []struct {
		Responses []struct {
			Status      string  `json:"status"`
			DisplayName *string `json:"displayName"`
		} `json:"responses"`
	}
	decode(t, rec, &list)
	require.Len(t, list, 1)
	require.Len(t, list[0].Responses, 1)
	require.NotNil(t, list[0].Responses[0].DisplayName)
	require.Equal(t, "guest", *list[0].Responses[0].DisplayName)

	// The guest sees the invitation under their responses.
	rec = do(t, srv, "GET", "/api/invitations/my/responses", guestToken, "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var mine []struct {
		Invitation struct {
			ID string `json:"id"`
		} `json:"invitation"`
		Response struct {
			Status string `json:"status"`
		} `json:"response"`
		CanEdit bool `json:"canEdit"`
	}
	decode(t, rec, &mine)
	require.Len(t, mine, 1)
	require.Equal(t, invID, mine[0].Invitation.ID)
	require.Equal(t, "maybe", mine[0].Response.Status)
	require.True(t, mine[0].CanEdit)
}

func TestOwnerGating(t *testing.T) {
	srv := newTestServer(t)
	ownerToken, _ := register(t, srv, "owner")
	otherToken, _ := register(t, srv, "other")

	invID := createInvitation(t, srv, ownerToken, map[string]string{"title": "Private party"})

	update := map[string]string{"title": "Hijacked"}
	rec := do(t, srv, "PUT", "/api/invitations/"+invID, otherToken, "", update)
	require.Equal(t, http.StatusForbidden, rec.Code)

	rec = do(t, srv, "DELETE", "/api/invitations/"+invID, otherToken, "", nil)
	require.Equal(t, http.StatusForbidden, rec.Code)

	rec = do(t, srv, "GET", "/api/invitations/"+invID+"/export", otherToken, "", nil)
	require.Equal(t, http.StatusForbidden, rec.Code)

	// Unknown id is NotFound, distinguishable from Forbidden.
	rec = do(t, srv, "PUT", "/api/invitations/"+uuid.NewString(), ownerToken, "", update)
	require.Equal(t, http.StatusNotFound, rec.Code)

	// The owner can update and delete.
	rec = do(t, srv, "PUT", "/api/invitations/"+invID, ownerToken, "", map[string]string{"title": "Renamed party"})
	require.Equal(t, http.StatusOK, rec.Code)

	rec = do(t, srv, "DELETE", "/api/invitations/"+invID, ownerToken, "", nil)
	require.Equal(t, http.StatusNoContent, rec.Code)

	rec = do(t, srv, "GET", "/api/invitations/"+invID, "", "", nil)
	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestExportCSV(t *testing.T) {
	srv := newTestServer(t)
	ownerToken, _ := register(t, srv, "owner")
	guestToken, _ := register(t, srv, "carol")

	invID := createInvitation(t, srv, ownerToken, map[string]string{"title": "Housewarming"})

	rec := do(t, srv, "POST", "/api/invitations/"+invID+"/rsvp", guestToken, "", map[string]string{
		"status": "attending", "notes": "plus \"one\"",
	})
	require.Equal(t, http.StatusOK, rec.Code)
	rec = do(t, srv, "POST", "/api/invitations/"+invID+"/rsvp", "", "", map[string]string{"status": "maybe"})
	require.Equal(t, http.StatusOK, rec.Code)

	rec = do(t, srv, "GET", "/api/invitations/"+invID+"/export", ownerToken, "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Header().Get("Content-Type"), "text/csv")

	body := rec.Body.String()
	require.Contains(t, body, "Name,Status,Notes,Updated")
	require.Contains(t, body, "carol")
	require.Contains(t, body, "Anonymous")
	require.Contains(t, body, `plus ""one""`)
	require.Contains(t, body, "Attending,1")
	require.Contains(t, body, "Maybe,1")
	require.True(t, strings.Contains(body, "Not attending,0"))
}
