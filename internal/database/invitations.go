package database

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/gatherly/gatherly/internal/rsvp"
)

const invitationColumns = `id, title, message, event_time, location, rsvp_link, response_cutoff, owner_id, created_at, updated_at`

// CreateInvitation inserts a new invitation, filling in its id and
// timestamps.
func (db *DB) CreateInvitation(inv *rsvp.Invitation) error {
	inv.ID = uuid.NewString()
	now := time.Now().UTC()
	inv.CreatedAt = now
	inv.UpdatedAt = now

	_, err := db.Exec(
		`INSERT INTO invitations (`+invitationColumns+`)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		inv.ID, inv.Title, inv.Message, nullTime(inv.EventTime), nullString(inv.Location),
		nullString(inv.RSVPLink), nullTime(inv.Cutoff), inv.OwnerID, inv.CreatedAt, inv.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create invitation: %w", err)
	}

	return nil
}

// GetInvitation retrieves an invitation by id, with its responses loaded in
// submission order.
func (db *DB) GetInvitation(id string) (*rsvp.Invitation, error) {
	row := db.QueryRow(`SELECT `+invitationColumns+` FROM invitations WHERE id = $1`, id)

	inv, err := scanInvitation(row)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get invitation: %w", err)
	}

	inv.Responses, err = db.getResponses(inv.ID)
	if err != nil {
		return nil, err
	}

	return inv, nil
}

// UpdateInvitation overwrites the invitation's metadata fields and refreshes
// its updated_at.
func (db *DB) UpdateInvitation(inv *rsvp.Invitation) error {
	inv.UpdatedAt = time.Now().UTC()

	_, err := db.Exec(
		`UPDATE invitations
		 SET title = $1, message = $2, event_time = $3, location = $4, rsvp_link = $5, response_cutoff = $6, updated_at = $7
		 WHERE id = $8`,
		inv.Title, inv.Message, nullTime(inv.EventTime), nullString(inv.Location),
		nullString(inv.RSVPLink), nullTime(inv.Cutoff), inv.UpdatedAt, inv.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update invitation: %w", err)
	}

	return nil
}

// DeleteInvitation deletes an invitation and all its responses.
func (db *DB) DeleteInvitation(id string) error {
	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	// Responses have no existence outside their invitation.
	if _, err := tx.Exec(`DELETE FROM responses WHERE invitation_id = $1`, id); err != nil {
		return fmt.Errorf("failed to delete responses: %w", err)
	}

	if _, err := tx.Exec(`DELETE FROM invitations WHERE id = $1`, id); err != nil {
		return fmt.Errorf("failed to delete invitation: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}

// ListInvitationsByOwner retrieves an owner's invitations, newest first, with
// responses loaded.
func (db *DB) ListInvitationsByOwner(ownerID string) ([]*rsvp.Invitation, error) {
	return db.listInvitations(
		`SELECT `+invitationColumns+` FROM invitations WHERE owner_id = $1 ORDER BY created_at DESC`,
		ownerID,
	)
}

// ListInvitationsWithResponseFrom retrieves the invitations containing a
// registered-identity response from the given user, newest first.
func (db *DB) ListInvitationsWithResponseFrom(userID string) ([]*rsvp.Invitation, error) {
	return db.listInvitations(
		`SELECT `+invitationColumns+` FROM invitations
		 WHERE id IN (SELECT invitation_id FROM responses WHERE user_id = $1)
		 ORDER BY created_at DESC`,
		userID,
	)
}

func (db *DB) listInvitations(query string, args ...interface{}) ([]*rsvp.Invitation, error) {
	rows, err := db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list invitations: %w", err)
	}
	defer rows.Close()

	var invitations []*rsvp.Invitation
	for rows.Next() {
		inv, err := scanInvitation(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan invitation: %w", err)
		}
		invitations = append(invitations, inv)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to list invitations: %w", err)
	}

	for _, inv := range invitations {
		if inv.Responses, err = db.getResponses(inv.ID); err != nil {
			return nil, err
		}
	}

	return invitations, nil
}

type scanner interface {
	Scan(dest ...interface{}) error
}

func scanInvitation(row scanner) (*rsvp.Invitation, error) {
	inv := &rsvp.Invitation{}
	var eventTime, cutoff sql.NullTime
	var location, rsvpLink sql.NullString

	err := row.Scan(
		&inv.ID, &inv.Title, &inv.Message, &eventTime, &location,
		&rsvpLink, &cutoff, &inv.OwnerID, &inv.CreatedAt, &inv.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if eventTime.Valid {
		t := eventTime.Time
		inv.EventTime = &t
	}
	if cutoff.Valid {
		t := cutoff.Time
		inv.Cutoff = &t
	}
	inv.Location = location.String
	inv.RSVPLink = rsvpLink.String

	return inv, nil
}
