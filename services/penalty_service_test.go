package services

import (
	"testing"

	"race-league-system/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

// The reference scenario: A wins by one second, a five second penalty
// demotes A to P2 with 5,405,000 ms, and the audit entry records the swap.
func TestAddPenaltyReordersSession(t *testing.T) {
	db := setupTestDB(t)
	fx := seedLeague(t, db)
	session := ingestRace(t, db, fx)

	a := resultFor(t, db, session.ID, "car-1")
	penalties := NewPenaltyService(db)
	audit, err := penalties.AddPenalty(a.ID, 5, "track limits lap 12", "steward-1")
	require.NoError(t, err)

	a = resultFor(t, db, session.ID, "car-1")
	b := resultFor(t, db, session.ID, "car-2")
	require.NotNil(t, a.TotalTimeMs)
	assert.Equal(t, int64(5405000), *a.TotalTimeMs)
	assert.Equal(t, 5, a.PostRacePenaltySeconds)
	assert.Equal(t, 2, a.Position)
	assert.Equal(t, 1, b.Position)

	// Base time is untouched, only the derived total moved
	require.NotNil(t, a.BaseTimeMs)
	assert.Equal(t, int64(5400000), *a.BaseTimeMs)

	assert.Equal(t, models.EditPenaltyAdd, audit.EditKind)
	assert.Equal(t, "steward-1", audit.Author)
	assert.False(t, audit.Reverted)

	oldState, err := audit.OldState()
	require.NoError(t, err)
	newState, err := audit.NewState()
	require.NoError(t, err)
	assert.Equal(t, 1, oldState.Position)
	assert.Equal(t, 2, newState.Position)
	assert.Equal(t, 0, oldState.PostRacePenaltySeconds)
	assert.Equal(t, 5, newState.PostRacePenaltySeconds)
}

func TestPenaltyTotalsFollowTheLedger(t *testing.T) {
	db := setupTestDB(t)
	fx := seedLeague(t, db)
	session := ingestRace(t, db, fx)

	a := resultFor(t, db, session.ID, "car-1")
	penalties := NewPenaltyService(db)
	_, err := penalties.AddPenalty(a.ID, 5, "track limits", "steward-1")
	require.NoError(t, err)
	_, err = penalties.AddPenalty(a.ID, 10, "contact with car 22", "steward-2")
	require.NoError(t, err)

	a = resultFor(t, db, session.ID, "car-1")
	assert.Equal(t, 15, a.PostRacePenaltySeconds)
	require.NotNil(t, a.TotalTimeMs)
	assert.Equal(t, *a.BaseTimeMs+15000, *a.TotalTimeMs)

	var entries []models.PenaltyEntry
	require.NoError(t, db.Where("result_id = ?", a.ID).Find(&entries).Error)
	assert.Len(t, entries, 2)
	sum := 0
	for _, e := range entries {
		sum += e.Seconds
	}
	assert.Equal(t, a.PostRacePenaltySeconds, sum)
}

func TestRemovePenaltyRestoresOrder(t *testing.T) {
	db := setupTestDB(t)
	fx := seedLeague(t, db)
	session := ingestRace(t, db, fx)

	a := resultFor(t, db, session.ID, "car-1")
	penalties := NewPenaltyService(db)
	_, err := penalties.AddPenalty(a.ID, 5, "track limits", "steward-1")
	require.NoError(t, err)

	var entry models.PenaltyEntry
	require.NoError(t, db.First(&entry, "result_id = ?", a.ID).Error)

	audit, err := penalties.RemovePenalty(a.ID, entry.ID, "steward-2")
	require.NoError(t, err)
	assert.Equal(t, models.EditPenaltyRemove, audit.EditKind)

	a = resultFor(t, db, session.ID, "car-1")
	assert.Equal(t, 1, a.Position)
	assert.Equal(t, 0, a.PostRacePenaltySeconds)
	require.NotNil(t, a.TotalTimeMs)
	assert.Equal(t, int64(5400000), *a.TotalTimeMs)

	var count int64
	require.NoError(t, db.Model(&models.PenaltyEntry{}).Where("result_id = ?", a.ID).Count(&count).Error)
	assert.Equal(t, int64(0), count)
}

func TestAddPenaltyValidation(t *testing.T) {
	db := setupTestDB(t)
	fx := seedLeague(t, db)
	session := ingestRace(t, db, fx)
	a := resultFor(t, db, session.ID, "car-1")

	penalties := NewPenaltyService(db)

	_, err := penalties.AddPenalty(a.ID, 0, "reason", "steward-1")
	assert.ErrorIs(t, err, ErrValidation)

	_, err = penalties.AddPenalty(a.ID, -5, "reason", "steward-1")
	assert.ErrorIs(t, err, ErrValidation)

	_, err = penalties.AddPenalty(a.ID, 5, "", "steward-1")
	assert.ErrorIs(t, err, ErrValidation)

	_, err = penalties.AddPenalty(a.ID, 5, "reason", "")
	assert.ErrorIs(t, err, ErrValidation)

	_, err = penalties.AddPenalty("no-such-result", 5, "reason", "steward-1")
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)

	// Nothing landed in the ledger or the audit log
	var count int64
	require.NoError(t, db.Model(&models.PenaltyEntry{}).Count(&count).Error)
	assert.Equal(t, int64(0), count)
	require.NoError(t, db.Model(&models.AuditEntry{}).Count(&count).Error)
	assert.Equal(t, int64(0), count)
}

func TestRemovePenaltyRejectsForeignEntry(t *testing.T) {
	db := setupTestDB(t)
	fx := seedLeague(t, db)
	session := ingestRace(t, db, fx)

	a := resultFor(t, db, session.ID, "car-1")
	b := resultFor(t, db, session.ID, "car-2")

	penalties := NewPenaltyService(db)
	_, err := penalties.AddPenalty(a.ID, 5, "track limits", "steward-1")
	require.NoError(t, err)

	var entry models.PenaltyEntry
	require.NoError(t, db.First(&entry, "result_id = ?", a.ID).Error)

	// Entry belongs to A, addressed via B
	_, err = penalties.RemovePenalty(b.ID, entry.ID, "steward-1")
	assert.ErrorIs(t, err, ErrConflict)

	_, err = penalties.RemovePenalty(a.ID, "no-such-entry", "steward-1")
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
}
