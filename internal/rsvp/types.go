package rsvp

import "time"

// Status is the closed set of RSVP answers. No other value is ever stored.
type Status string

const (
	StatusAttending    Status = "attending"
	StatusNotAttending Status = "not_attending"
	StatusMaybe        Status = "maybe"
)

// ValidStatus reports whether s is one of the three accepted statuses.
func ValidStatus(s Status) bool {
	switch s {
	case StatusAttending, StatusNotAttending, StatusMaybe:
		return true
	}
	return false
}

// IdentityKind discriminates how a response is attributed. It is fixed at
// creation time and never changes afterwards.
type IdentityKind string

const (
	IdentityUser      IdentityKind = "user"
	IdentityAnonymous IdentityKind = "anonymous"
)

// Response is one viewer's RSVP state for one invitation. Exactly one of
// UserID and AnonToken is set, matching Identity.
type Response struct {
	ID          string
	Status      Status
	Notes       string
	Identity    IdentityKind
	UserID      string // registered-user reference, IdentityUser only
	DisplayName string // username snapshot at response time, IdentityUser only
	AnonToken   string // server-minted opaque token, IdentityAnonymous only
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Invitation is the event record an organizer creates and shares. Responses
// are kept in submission order.
type Invitation struct {
	ID        string
	Title     string
	Message   string
	EventTime *time.Time
	Location  string
	RSVPLink  string
	Cutoff    *time.Time
	OwnerID   string
	CreatedAt time.Time
	UpdatedAt time.Time
	Responses []*Response
}

// Credentials identify the viewer behind a request. All fields are optional:
// an anonymous request carries at most a token, an authenticated one carries
// the verified user id and username.
type Credentials struct {
	UserID    string
	Username  string
	AnonToken string
}
