package database

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/gatherly/gatherly/internal/rsvp"
)

// CreateResponse appends a new response to the invitation's collection and
// bumps the invitation's updated_at in the same transaction. The insert
// upserts on the identity key (registered user or anonymous token), so two
// near-simultaneous first submissions from the same viewer collapse into one
// row instead of violating the one-response-per-identity invariant.
func (db *DB) CreateResponse(invitationID string, resp *rsvp.Response) error {
	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if resp.Identity == rsvp.IdentityUser {
		_, err = tx.Exec(
			`INSERT INTO responses (id, invitation_id, status, notes, identity_kind, user_id, display_name, created_at, updated_at)
			 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
			 ON CONFLICT (invitation_id, user_id) WHERE user_id IS NOT NULL
			 DO UPDATE SET status = excluded.status, notes = excluded.notes, updated_at = excluded.updated_at`,
			resp.ID, invitationID, string(resp.Status), resp.Notes, string(resp.Identity),
			resp.UserID, nullString(resp.DisplayName), resp.CreatedAt, resp.UpdatedAt,
		)
	} else {
		_, err = tx.Exec(
			`INSERT INTO responses (id, invitation_id, status, notes, identity_kind, anon_token, created_at, updated_at)
			 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
			 ON CONFLICT (invitation_id, anon_token) WHERE anon_token IS NOT NULL
			 DO UPDATE SET status = excluded.status, notes = excluded.notes, updated_at = excluded.updated_at`,
			resp.ID, invitationID, string(resp.Status), resp.Notes, string(resp.Identity),
			resp.AnonToken, resp.CreatedAt, resp.UpdatedAt,
		)
	}
	if err != nil {
		return fmt.Errorf("failed to create response: %w", err)
	}

	if err := touchInvitation(tx, invitationID, resp.UpdatedAt); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}

// UpdateResponse overwrites an existing response's status, notes and
// updated_at, bumping the invitation's updated_at in the same transaction.
func (db *DB) UpdateResponse(invitationID string, resp *rsvp.Response) error {
	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.Exec(
		`UPDATE responses SET status = $1, notes = $2, updated_at = $3
		 WHERE id = $4 AND invitation_id = $5`,
		string(resp.Status), resp.Notes, resp.UpdatedAt, resp.ID, invitationID,
	)
	if err != nil {
		return fmt.Errorf("failed to update response: %w", err)
	}

	if err := touchInvitation(tx, invitationID, resp.UpdatedAt); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}

func touchInvitation(tx *sql.Tx, invitationID string, at time.Time) error {
	if _, err := tx.Exec(`UPDATE invitations SET updated_at = $1 WHERE id = $2`, at, invitationID); err != nil {
		return fmt.Errorf("failed to update invitation: %w", err)
	}
	return nil
}

// getResponses loads an invitation's responses in submission order.
func (db *DB) getResponses(invitationID string) ([]*rsvp.Response, error) {
	rows, err := db.Query(
		`SELECT id, status, notes, identity_kind, user_id, display_name, anon_token, created_at, updated_at
		 FROM responses WHERE invitation_id = $1 ORDER BY created_at, id`,
		invitationID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to get responses: %w", err)
	}
	defer rows.Close()

	var responses []*rsvp.Response
	for rows.Next() {
		resp := &rsvp.Response{}
		var status, kind string
		var userID, displayName, anonToken sql.NullString

		err := rows.Scan(
			&resp.ID, &status, &resp.Notes, &kind, &userID,
			&displayName, &anonToken, &resp.CreatedAt, &resp.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan response: %w", err)
		}

		resp.Status = rsvp.Status(status)
		resp.Identity = rsvp.IdentityKind(kind)
		resp.UserID = userID.String
		resp.DisplayName = displayName.String
		resp.AnonToken = anonToken.String
		responses = append(responses, resp)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to get responses: %w", err)
	}

	return responses, nil
}
