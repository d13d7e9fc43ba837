package database

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestCreateUserAndLookup(t *testing.T) {
	db := newTestDB(t)

	user, err := db.CreateUser("alice", "Alice@Example.COM", "hash")
	require.NoError(t, err)
	require.NotEmpty(t, user.ID)
	require.Equal(t, "alice@example.com", user.Email, "emails are stored lowercased")

	byID, err := db.GetUserByID(user.ID)
	require.NoError(t, err)
	require.Equal(t, user.Username, byID.Username)

	byName, err := db.GetUserByLogin("alice")
	require.NoError(t, err)
	require.Equal(t, user.ID, byName.ID)

	byEmail, err := db.GetUserByLogin("ALICE@example.com")
	require.NoError(t, err)
	require.Equal(t, user.ID, byEmail.ID)
}

func TestCreateUserDuplicate(t *testing.T) {
	db := newTestDB(t)
	createTestUser(t, db, "alice")

	_, err := db.CreateUser("alice", "other@example.com", "hash")
	require.ErrorIs(t, err, ErrDuplicateUser)

	_, err = db.CreateUser("bob", "ALICE@example.com", "hash")
	require.ErrorIs(t, err, ErrDuplicateUser, "email collision is case-insensitive")
}

func TestGetUserNotFound(t *testing.T) {
	db := newTestDB(t)

	_, err := db.GetUserByLogin("ghost")
	require.ErrorIs(t, err, ErrNotFound)

	_, err = db.GetUserByID("no-such-id")
	require.ErrorIs(t, err, ErrNotFound)
}
