package services

import (
	"testing"

	"race-league-system/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecomputeSeasonScoresRaceResults(t *testing.T) {
	db := setupTestDB(t)
	fx := seedLeague(t, db)
	ingestRace(t, db, fx) // A wins with fastest lap, B second

	standings := NewStandingsService(db)
	require.NoError(t, standings.RecomputeSeason(fx.Season.ID))

	var entries []models.StandingsEntry
	require.NoError(t, db.Where("season_id = ?", fx.Season.ID).Find(&entries).Error)
	require.Len(t, entries, 2)

	byCompetitor := map[string]models.StandingsEntry{}
	for _, e := range entries {
		byCompetitor[e.CompetitorID] = e
	}

	a := byCompetitor[fx.CompetitorA.ID]
	assert.Equal(t, 26, a.Points) // 25 for the win plus the fastest lap bonus
	assert.Equal(t, 1, a.Wins)
	assert.Equal(t, 1, a.Podiums)
	assert.Equal(t, 1, a.BestFinish)
	assert.Equal(t, 1, a.RacesScored)

	b := byCompetitor[fx.CompetitorB.ID]
	assert.Equal(t, 18, b.Points)
	assert.Equal(t, 0, b.Wins)
	assert.Equal(t, 1, b.Podiums)
	assert.Equal(t, 2, b.BestFinish)
}

func TestRecomputeSeasonTracksStewardDecisions(t *testing.T) {
	db := setupTestDB(t)
	fx := seedLeague(t, db)
	session := ingestRace(t, db, fx)

	// Disqualify the winner and reorder; the standings follow
	steward := NewStewardService(db)
	_, err := steward.Disqualify(session.ID, "car-1", "underweight car", "steward-1")
	require.NoError(t, err)
	_, err = steward.TriggerRecompute(session.ID)
	require.NoError(t, err)

	standings := NewStandingsService(db)
	require.NoError(t, standings.RecomputeSeason(fx.Season.ID))

	var entries []models.StandingsEntry
	require.NoError(t, db.Where("season_id = ?", fx.Season.ID).Find(&entries).Error)
	require.Len(t, entries, 1) // disqualified results do not score at all
	assert.Equal(t, fx.CompetitorB.ID, entries[0].CompetitorID)
	assert.Equal(t, 25, entries[0].Points)
	assert.Equal(t, 1, entries[0].Wins)
}

func TestRecomputeSeasonIsRepeatable(t *testing.T) {
	db := setupTestDB(t)
	fx := seedLeague(t, db)
	ingestRace(t, db, fx)

	standings := NewStandingsService(db)
	require.NoError(t, standings.RecomputeSeason(fx.Season.ID))
	require.NoError(t, standings.RecomputeSeason(fx.Season.ID))

	var count int64
	require.NoError(t, db.Model(&models.StandingsEntry{}).
		Where("season_id = ?", fx.Season.ID).Count(&count).Error)
	assert.Equal(t, int64(2), count) // delete-and-reinsert, never accumulates
}

func TestRecomputeSeasonWithNoCompletedEvents(t *testing.T) {
	db := setupTestDB(t)
	fx := seedLeague(t, db)

	standings := NewStandingsService(db)
	require.NoError(t, standings.RecomputeSeason(fx.Season.ID))

	var count int64
	require.NoError(t, db.Model(&models.StandingsEntry{}).Count(&count).Error)
	assert.Equal(t, int64(0), count)
}
