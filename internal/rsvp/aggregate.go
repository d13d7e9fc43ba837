package rsvp

import (
	"sort"
	"time"
)

// Counts tallies responses by status. All buckets are present even when zero.
type Counts struct {
	Attending    int `json:"attending"`
	Maybe        int `json:"maybe"`
	NotAttending int `json:"not_attending"`
}

// RosterEntry is one response as shown to the invitation's owner. Anonymous
// responses carry a nil display name; the token itself is never exposed.
type RosterEntry struct {
	Status      Status    `json:"status"`
	Notes       string    `json:"notes"`
	UpdatedAt   time.Time `json:"updatedAt"`
	DisplayName *string   `json:"displayName"`
}

// OwnerSummary is the owner-facing view of an invitation's responses.
type OwnerSummary struct {
	Counts    Counts        `json:"counts"`
	Responses []RosterEntry `json:"responses"`
}

// ForOwner derives the owner roster: per-status counts and all responses,
// most recently updated first, ties kept in submission order. Read-only.
func ForOwner(inv *Invitation) OwnerSummary {
	summary := OwnerSummary{Responses: make([]RosterEntry, 0, len(inv.Responses))}

	ordered := make([]*Response, len(inv.Responses))
	copy(ordered, inv.Responses)
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].UpdatedAt.After(ordered[j].UpdatedAt)
	})

	for _, r := range ordered {
		switch r.Status {
		case StatusAttending:
			summary.Counts.Attending++
		case StatusMaybe:
			summary.Counts.Maybe++
		case StatusNotAttending:
			summary.Counts.NotAttending++
		}

		entry := RosterEntry{
			Status:    r.Status,
			Notes:     r.Notes,
			UpdatedAt: r.UpdatedAt,
		}
		if r.Identity == IdentityUser {
			name := r.DisplayName
			entry.DisplayName = &name
		}
		summary.Responses = append(summary.Responses, entry)
	}

	return summary
}

// ViewerResponse is a viewer's own response projected to the fields that are
// theirs to see.
type ViewerResponse struct {
	Status    Status    `json:"status"`
	Notes     string    `json:"notes"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// ViewerSummary pairs the viewer's own response (nil when they have not
// responded) with the cutoff gate's current verdict.
type ViewerSummary struct {
	Response *ViewerResponse `json:"response"`
	CanEdit  bool            `json:"canEdit"`
}

// ForViewer derives the viewer-facing view: their own response, if any, and
// whether it is currently editable. Never exposes other viewers' data.
func ForViewer(inv *Invitation, creds Credentials, now time.Time) ViewerSummary {
	summary := ViewerSummary{CanEdit: Open(inv, now)}
	if match := Resolve(inv, creds); match != nil {
		summary.Response = &ViewerResponse{
			Status:    match.Status,
			Notes:     match.Notes,
			UpdatedAt: match.UpdatedAt,
		}
	}
	return summary
}
