package rsvp

// Resolve returns the response in inv that belongs to the viewer described by
// creds, or nil when the viewer has not responded yet. Nil is not an error:
// it is the signal that a submission will create rather than update.
//
// An authenticated viewer is matched only by user id, never by token, so a
// response created anonymously before the viewer logged in stays invisible to
// the authenticated path. An anonymous token must match exactly,
// case-sensitive, no normalization.
func Resolve(inv *Invitation, creds Credentials) *Response {
	if creds.UserID != "" {
		for _, r := range inv.Responses {
			if r.Identity == IdentityUser && r.UserID == creds.UserID {
				return r
			}
		}
		return nil
	}

	if creds.AnonToken != "" {
		for _, r := range inv.Responses {
			if r.Identity == IdentityAnonymous && r.AnonToken == creds.AnonToken {
				return r
			}
		}
	}

	return nil
}
