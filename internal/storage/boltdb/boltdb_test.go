package boltdb

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Metaboom4304/genesis-war-bot-sub000/internal/models"
)

func openTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := Open(filepath.Join(t.TempDir(), "genesis.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	require.NoError(t, db.Initialize(context.Background()))
	return db
}

func TestDB_AddAndListUsers(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	now := time.Now().UTC().Truncate(time.Second)
	require.NoError(t, db.AddUser(ctx, models.UserRecord{ID: "200", RegisteredAt: now}))
	require.NoError(t, db.AddUser(ctx, models.UserRecord{ID: "100", RegisteredAt: now}))

	users, err := db.ListUsers(ctx)
	require.NoError(t, err)
	require.Len(t, users, 2)
	assert.Equal(t, "100", users[0].ID, "users are sorted by id")
	assert.Equal(t, "200", users[1].ID)
	assert.True(t, users[0].RegisteredAt.Equal(now))

	found, err := db.HasUser(ctx, "100")
	require.NoError(t, err)
	assert.True(t, found)

	found, err = db.HasUser(ctx, "300")
	require.NoError(t, err)
	assert.False(t, found)
}

func TestDB_AddUserKeepsOriginalRecord(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	first := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	require.NoError(t, db.AddUser(ctx, models.UserRecord{ID: "100", RegisteredAt: first}))
	require.NoError(t, db.AddUser(ctx, models.UserRecord{ID: "100", RegisteredAt: first.AddDate(0, 1, 0)}))

	users, err := db.ListUsers(ctx)
	require.NoError(t, err)
	require.Len(t, users, 1)
	assert.True(t, users[0].RegisteredAt.Equal(first), "re-registration must not overwrite")
}

func TestDB_RemoveUsers(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	for _, id := range []string{"1", "2", "3"} {
		require.NoError(t, db.AddUser(ctx, models.UserRecord{ID: id, RegisteredAt: time.Now()}))
	}

	require.NoError(t, db.RemoveUsers(ctx, []string{"1", "3", "missing"}))

	users, err := db.ListUsers(ctx)
	require.NoError(t, err)
	require.Len(t, users, 1)
	assert.Equal(t, "2", users[0].ID)
}

func TestDB_EnabledMirror(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	_, ok, err := db.EnabledMirror(ctx)
	require.NoError(t, err)
	assert.False(t, ok, "mirror starts unset")

	require.NoError(t, db.SetEnabledMirror(ctx, true))
	enabled, ok, err := db.EnabledMirror(ctx)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.True(t, enabled)

	require.NoError(t, db.SetEnabledMirror(ctx, false))
	enabled, ok, err = db.EnabledMirror(ctx)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.False(t, enabled)
}
