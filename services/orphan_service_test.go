package services

import (
	"encoding/json"
	"testing"

	"race-league-system/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func parkOrphan(t *testing.T, db *gorm.DB, fx leagueFixture) models.OrphanedSession {
	t.Helper()
	payload := racePayload()
	payload.Track = "Autodromo di Imola"

	raw, err := json.Marshal(payload)
	require.NoError(t, err)

	ingest := NewIngestService(db, NewIdentityService(db))
	outcome, err := ingest.Ingest(fx.Season.ID, payload, raw)
	require.NoError(t, err)
	require.NotNil(t, outcome.Orphan)
	return *outcome.Orphan
}

func TestProcessOrphanIntoNamedEvent(t *testing.T) {
	db := setupTestDB(t)
	fx := seedLeague(t, db)
	orphan := parkOrphan(t, db, fx)

	orphans := NewOrphanService(db, NewIngestService(db, NewIdentityService(db)))
	session, err := orphans.Process(orphan.ID, fx.Event.ID)
	require.NoError(t, err)
	require.NotNil(t, session)
	assert.Equal(t, fx.Event.ID, session.EventID)

	// The retained payload went through the normal ingestion path
	var resultCount int64
	require.NoError(t, db.Model(&models.BaseResult{}).
		Where("session_id = ?", session.ID).Count(&resultCount).Error)
	assert.Equal(t, int64(2), resultCount)

	var stored models.OrphanedSession
	require.NoError(t, db.First(&stored, "id = ?", orphan.ID).Error)
	assert.Equal(t, models.OrphanProcessed, stored.Status)
	require.NotNil(t, stored.EventID)
	assert.Equal(t, fx.Event.ID, *stored.EventID)
	assert.NotNil(t, stored.ResolvedAt)
}

func TestProcessedOrphanCannotBeReprocessed(t *testing.T) {
	db := setupTestDB(t)
	fx := seedLeague(t, db)
	orphan := parkOrphan(t, db, fx)

	orphans := NewOrphanService(db, NewIngestService(db, NewIdentityService(db)))
	_, err := orphans.Process(orphan.ID, fx.Event.ID)
	require.NoError(t, err)

	_, err = orphans.Process(orphan.ID, fx.Event.ID)
	assert.ErrorIs(t, err, ErrConflict)
	assert.ErrorIs(t, orphans.Ignore(orphan.ID), ErrConflict)
}

func TestIgnoreOrphan(t *testing.T) {
	db := setupTestDB(t)
	fx := seedLeague(t, db)
	orphan := parkOrphan(t, db, fx)

	orphans := NewOrphanService(db, NewIngestService(db, NewIdentityService(db)))
	require.NoError(t, orphans.Ignore(orphan.ID))

	var stored models.OrphanedSession
	require.NoError(t, db.First(&stored, "id = ?", orphan.ID).Error)
	assert.Equal(t, models.OrphanIgnored, stored.Status)
	assert.NotNil(t, stored.ResolvedAt)

	// Ignored means parked for good: no session, no results, no retry
	var sessionCount int64
	require.NoError(t, db.Model(&models.Session{}).Count(&sessionCount).Error)
	assert.Equal(t, int64(0), sessionCount)

	_, err := orphans.Process(orphan.ID, fx.Event.ID)
	assert.ErrorIs(t, err, ErrConflict)
}

func TestProcessOrphanWithBadEventFails(t *testing.T) {
	db := setupTestDB(t)
	fx := seedLeague(t, db)
	orphan := parkOrphan(t, db, fx)

	orphans := NewOrphanService(db, NewIngestService(db, NewIdentityService(db)))
	_, err := orphans.Process(orphan.ID, "no-such-event")
	require.Error(t, err)

	// A failed processing attempt leaves the orphan pending
	var stored models.OrphanedSession
	require.NoError(t, db.First(&stored, "id = ?", orphan.ID).Error)
	assert.Equal(t, models.OrphanPending, stored.Status)
}
