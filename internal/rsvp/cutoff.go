package rsvp

import "time"

// Open reports whether inv still accepts response mutations at the instant
// now. An invitation without a cutoff is always open; with one, the instant
// equal to the cutoff is still open and anything after it is closed. The
// caller supplies now so the verdict never depends on an ambient clock.
func Open(inv *Invitation, now time.Time) bool {
	if inv.Cutoff == nil {
		return true
	}
	return !now.After(*inv.Cutoff)
}
