package services

import (
	"testing"

	"race-league-system/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func TestChangePositionIsDirectOverride(t *testing.T) {
	db := setupTestDB(t)
	fx := seedLeague(t, db)
	session := ingestRace(t, db, fx)

	steward := NewStewardService(db)
	audit, err := steward.ChangePosition(session.ID, fx.CompetitorA.ID, 5, "post-race review", "steward-1")
	require.NoError(t, err)
	assert.Equal(t, models.EditPositionChange, audit.EditKind)

	// The override sticks as written and nothing else is rearranged
	a := resultFor(t, db, session.ID, "car-1")
	b := resultFor(t, db, session.ID, "car-2")
	assert.Equal(t, 5, a.Position)
	assert.Equal(t, 2, b.Position)

	// Totals are not touched by a position override
	require.NotNil(t, a.TotalTimeMs)
	assert.Equal(t, int64(5400000), *a.TotalTimeMs)
}

func TestChangePositionAddressableBySimDriverID(t *testing.T) {
	db := setupTestDB(t)
	fx := seedLeague(t, db)
	session := ingestRace(t, db, fx)

	// Unmapped rows carry no competitor id; the sim driver id still works
	steward := NewStewardService(db)
	_, err := steward.ChangePosition(session.ID, "car-2", 1, "photo finish review", "steward-1")
	require.NoError(t, err)
	assert.Equal(t, 1, resultFor(t, db, session.ID, "car-2").Position)
}

func TestChangePositionValidation(t *testing.T) {
	db := setupTestDB(t)
	fx := seedLeague(t, db)
	session := ingestRace(t, db, fx)

	steward := NewStewardService(db)
	_, err := steward.ChangePosition(session.ID, "car-1", 0, "reason", "steward-1")
	assert.ErrorIs(t, err, ErrValidation)
	_, err = steward.ChangePosition(session.ID, "car-1", 2, "", "steward-1")
	assert.ErrorIs(t, err, ErrValidation)
	_, err = steward.ChangePosition(session.ID, "car-99", 2, "reason", "steward-1")
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
}

func TestDisqualifyThenRecompute(t *testing.T) {
	db := setupTestDB(t)
	fx := seedLeague(t, db)
	session := ingestRace(t, db, fx)

	steward := NewStewardService(db)
	audit, err := steward.Disqualify(session.ID, fx.CompetitorA.ID, "underweight car", "steward-1")
	require.NoError(t, err)
	assert.Equal(t, models.EditDisqualify, audit.EditKind)

	// Status flips immediately, order only moves on recompute
	a := resultFor(t, db, session.ID, "car-1")
	assert.Equal(t, models.StatusDisqualified, a.Status)
	assert.Equal(t, 1, a.Position)

	changed, err := steward.TriggerRecompute(session.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, changed)

	assert.Equal(t, 2, resultFor(t, db, session.ID, "car-1").Position)
	assert.Equal(t, 1, resultFor(t, db, session.ID, "car-2").Position)
}

func TestResetToOriginalUndoesEverything(t *testing.T) {
	db := setupTestDB(t)
	fx := seedLeague(t, db)
	session := ingestRace(t, db, fx)

	penalties := NewPenaltyService(db)
	steward := NewStewardService(db)

	a := resultFor(t, db, session.ID, "car-1")
	_, err := penalties.AddPenalty(a.ID, 5, "track limits", "steward-1")
	require.NoError(t, err)
	_, err = steward.Disqualify(session.ID, "car-1", "underweight car", "steward-1")
	require.NoError(t, err)

	audit, err := steward.ResetToOriginal(session.ID, "car-1")
	require.NoError(t, err)
	assert.Equal(t, models.EditReset, audit.EditKind)
	assert.Equal(t, "system", audit.Author)

	a = resultFor(t, db, session.ID, "car-1")
	assert.Equal(t, 1, a.Position)
	assert.Equal(t, models.StatusFinished, a.Status)
	assert.Equal(t, 0, a.PostRacePenaltySeconds)
	require.NotNil(t, a.TotalTimeMs)
	assert.Equal(t, int64(5400000), *a.TotalTimeMs)

	// The ledger for the slot is gone and the snapshot is marked used
	var count int64
	require.NoError(t, db.Model(&models.PenaltyEntry{}).Where("result_id = ?", a.ID).Count(&count).Error)
	assert.Equal(t, int64(0), count)

	var snap models.OriginalSnapshot
	require.NoError(t, db.Where("session_id = ? AND sim_driver_id = ?", session.ID, "car-1").
		First(&snap).Error)
	assert.True(t, snap.Restored)
	assert.NotNil(t, snap.RestoredAt)
}

func TestResetSessionReproducesIngestionState(t *testing.T) {
	db := setupTestDB(t)
	fx := seedLeague(t, db)
	session := ingestRace(t, db, fx)

	penalties := NewPenaltyService(db)
	steward := NewStewardService(db)

	a := resultFor(t, db, session.ID, "car-1")
	_, err := penalties.AddPenalty(a.ID, 5, "track limits", "steward-1")
	require.NoError(t, err)
	_, err = steward.ChangePosition(session.ID, "car-2", 7, "manual shuffle", "steward-1")
	require.NoError(t, err)

	count, err := steward.ResetSession(session.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, count)

	// Every mutable field is back to the as-simulated values
	var results []models.BaseResult
	require.NoError(t, db.Where("session_id = ?", session.ID).Find(&results).Error)
	for _, r := range results {
		var snap models.OriginalSnapshot
		require.NoError(t, db.Where("result_id = ?", r.ID).First(&snap).Error)
		assert.Equal(t, snap.Position, r.Position)
		assert.Equal(t, snap.Status, r.Status)
		require.NotNil(t, r.TotalTimeMs)
		assert.Equal(t, *snap.TotalTimeMs, *r.TotalTimeMs)
		assert.Equal(t, 0, r.PostRacePenaltySeconds)
	}

	// Recompute after the reset finds nothing to change
	changed, err := steward.TriggerRecompute(session.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, changed)
}

func TestResetFailsWithoutSnapshot(t *testing.T) {
	db := setupTestDB(t)
	fx := seedLeague(t, db)
	session := ingestRace(t, db, fx)

	require.NoError(t, db.Where("session_id = ? AND sim_driver_id = ?", session.ID, "car-1").
		Delete(&models.OriginalSnapshot{}).Error)

	steward := NewStewardService(db)
	_, err := steward.ResetToOriginal(session.ID, "car-1")
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
}
