package database

import (
	"errors"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go-raidguard/internal/models"
)

func openTestDB(t *testing.T) *Database {
	t.Helper()
	db, err := Open(filepath.Join(t.TempDir(), "raidguard.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func TestRecordAndReadActions(t *testing.T) {
	db := openTestDB(t)
	require.True(t, db.IsConnected())

	m := models.Member{GuildID: "g1", UserID: "u1", Username: "raider"}
	require.NoError(t, db.RecordAction(models.NewKickAction(m, "raid")))

	ban := models.NewBanAction(models.Member{GuildID: "g1", UserID: "u2"}, 7, "raid")
	ban.Err = errors.New("403 Missing Permissions")
	require.NoError(t, db.RecordAction(ban))

	require.NoError(t, db.RecordAction(models.NewKickAction(models.Member{GuildID: "g2", UserID: "u3"}, "raid")))

	records, err := db.GetRecentActions("g1", 10)
	require.NoError(t, err)
	require.Len(t, records, 2)

	assert.Equal(t, "u2", records[0].UserID)
	assert.Equal(t, "Ban", records[0].Action)
	assert.False(t, records[0].Succeeded)
	assert.Equal(t, "403 Missing Permissions", records[0].Error)

	assert.Equal(t, "u1", records[1].UserID)
	assert.Equal(t, "raider", records[1].Username)
	assert.Equal(t, "Kick", records[1].Action)
	assert.True(t, records[1].Succeeded)

	stats, err := db.GetGuildStats("g1")
	require.NoError(t, err)
	assert.Equal(t, 2, stats.Total)
	assert.Equal(t, 1, stats.Succeeded)
	assert.Equal(t, 1, stats.Failed)
	assert.NotZero(t, stats.LastAt)
}

func TestGetGuildStats_Empty(t *testing.T) {
	db := openTestDB(t)

	stats, err := db.GetGuildStats("nobody")
	require.NoError(t, err)
	assert.Equal(t, 0, stats.Total)
	assert.Equal(t, int64(0), stats.LastAt)
}

func TestRecordAction_Concurrent(t *testing.T) {
	db := openTestDB(t)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			m := models.Member{GuildID: "g", UserID: "u"}
			assert.NoError(t, db.RecordAction(models.NewKickAction(m, "raid")))
		}()
	}
	wg.Wait()

	stats, err := db.GetGuildStats("g")
	require.NoError(t, err)
	assert.Equal(t, 20, stats.Total)
}

func TestOpen_ReopenKeepsRows(t *testing.T) {
	path := filepath.Join(t.TempDir(), "raidguard.db")
	db, err := Open(path)
	require.NoError(t, err)
	require.NoError(t, db.RecordAction(models.NewKickAction(models.Member{GuildID: "g", UserID: "u"}, "raid")))
	require.NoError(t, db.Close())

	db, err = Open(path)
	require.NoError(t, err)
	defer db.Close()

	records, err := db.GetRecentActions("g", 5)
	require.NoError(t, err)
	assert.Len(t, records, 1)
}

func TestNilDatabase(t *testing.T) {
	var db *Database
	assert.False(t, db.IsConnected())
	assert.NoError(t, db.Close())
}
