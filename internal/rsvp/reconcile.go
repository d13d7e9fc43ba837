package rsvp

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

var (
	// ErrInvalidStatus rejects a submission whose status is outside the
	// closed enum. Nothing is checked or written after this.
	ErrInvalidStatus = errors.New("invalid rsvp status")

	// ErrWindowClosed rejects a mutation after the invitation's cutoff.
	ErrWindowClosed = errors.New("response window closed")
)

// Mode says whether a submission created a new response or updated an
// existing one.
type Mode string

const (
	Created Mode = "created"
	Updated Mode = "updated"
)

// Submission is the viewer-supplied part of a response.
type Submission struct {
	Status Status
	Notes  string
}

// Result is the outcome of a reconciled submission. Token is set only when a
// new anonymous response was created; authenticated submissions never return
// a token.
type Result struct {
	Mode      Mode
	Response  *Response
	Token     string
	UpdatedAt time.Time
}

// Store persists response mutations. Implementations must commit each call
// atomically with the parent invitation document.
type Store interface {
	// UpdateResponse overwrites status, notes and updated_at of an
	// existing response.
	UpdateResponse(invitationID string, resp *Response) error

	// CreateResponse appends a new response. Implementations should upsert
	// on the identity key so that two concurrent first submissions from
	// the same viewer degrade to one row instead of a duplicate.
	CreateResponse(invitationID string, resp *Response) error
}

// Reconciler turns each RSVP submission into exactly one created or exactly
// one updated response.
type Reconciler struct {
	store Store
	now   func() time.Time
	mint  func() (string, error)
}

func NewReconciler(store Store) *Reconciler {
	return &Reconciler{
		store: store,
		now:   time.Now,
		mint:  NewToken,
	}
}

// Submit validates the submission, checks the cutoff, resolves the viewer's
// identity against inv's current responses and either mutates the matched
// response in place or creates a new one (minting an anonymous token when the
// viewer is unauthenticated). A created response is appended to
// inv.Responses. The identity kind of an existing response is never changed
// by a later submission.
func (rc *Reconciler) Submit(inv *Invitation, creds Credentials, sub Submission) (*Result, error) {
	if !ValidStatus(sub.Status) {
		return nil, ErrInvalidStatus
	}

	now := rc.now()
	if !Open(inv, now) {
		return nil, ErrWindowClosed
	}

	if existing := Resolve(inv, creds); existing != nil {
		existing.Status = sub.Status
		existing.Notes = sub.Notes
		existing.UpdatedAt = now
		if err := rc.store.UpdateResponse(inv.ID, existing); err != nil {
			return nil, err
		}
		return &Result{Mode: Updated, Response: existing, UpdatedAt: now}, nil
	}

	resp := &Response{
		ID:        uuid.NewString(),
		Status:    sub.Status,
		Notes:     sub.Notes,
		CreatedAt: now,
		UpdatedAt: now,
	}

	var token string
	if creds.UserID != "" {
		resp.Identity = IdentityUser
		resp.UserID = creds.UserID
		resp.DisplayName = creds.Username
	} else {
		minted, err := rc.mint()
		if err != nil {
			return nil, err
		}
		token = minted
		resp.Identity = IdentityAnonymous
		resp.AnonToken = token
	}

	if err := rc.store.CreateResponse(inv.ID, resp); err != nil {
		return nil, err
	}
	inv.Responses = append(inv.Responses, resp)

	return &Result{Mode: Created, Response: resp, Token: token, UpdatedAt: now}, nil
}
