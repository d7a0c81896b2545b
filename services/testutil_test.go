package services

import (
	"fmt"
	"testing"
	"time"

	"race-league-system/models"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var testDBCounter int

// setupTestDB opens a fresh in-memory database per test. The shared-cache
// DSN keeps GORM's pooled connections pointed at the same memory store.
func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	testDBCounter++
	dsn := fmt.Sprintf("file:testdb%d?mode=memory&cache=shared", testDBCounter)
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, db.AutoMigrate(
		&models.Season{},
		&models.Track{},
		&models.TrackSynonym{},
		&models.Event{},
		&models.Competitor{},
		&models.DriverMapping{},
		&models.Session{},
		&models.BaseResult{},
		&models.OriginalSnapshot{},
		&models.PenaltyEntry{},
		&models.AuditEntry{},
		&models.OrphanedSession{},
		&models.StandingsEntry{},
	))
	return db
}

// leagueFixture is the scaffolding most engine tests need: one season,
// one scheduled event at Spa, and two rostered competitors with platform
// ids mapped for the season.
type leagueFixture struct {
	Season      models.Season
	Track       models.Track
	Event       models.Event
	CompetitorA models.Competitor
	CompetitorB models.Competitor
}

func seedLeague(t *testing.T, db *gorm.DB) leagueFixture {
	t.Helper()

	season := models.Season{ID: uuid.NewString(), Name: "GT3 Championship 2026", IsActive: true}
	require.NoError(t, db.Create(&season).Error)

	track := models.Track{ID: uuid.NewString(), Name: "Spa-Francorchamps", Slug: "spa-francorchamps", Country: "BE"}
	require.NoError(t, db.Create(&track).Error)

	event := models.Event{
		ID:          uuid.NewString(),
		SeasonID:    season.ID,
		TrackID:     track.ID,
		Name:        "Round 1: Spa",
		Round:       1,
		Status:      models.EventScheduled,
		ScheduledAt: time.Now().Add(-time.Hour),
	}
	require.NoError(t, db.Create(&event).Error)

	platformA := "steam:100001"
	compA := models.Competitor{ID: uuid.NewString(), Name: "Alice Walker", Team: "Apex Racing", CarNumber: 7, PlatformID: &platformA, IsActive: true}
	require.NoError(t, db.Create(&compA).Error)

	platformB := "steam:100002"
	compB := models.Competitor{ID: uuid.NewString(), Name: "Ben Okafor", Team: "Kerb Hunters", CarNumber: 22, PlatformID: &platformB, IsActive: true}
	require.NoError(t, db.Create(&compB).Error)

	for _, m := range []models.DriverMapping{
		{ID: uuid.NewString(), SeasonID: season.ID, PlatformID: platformA, CompetitorID: compA.ID},
		{ID: uuid.NewString(), SeasonID: season.ID, PlatformID: platformB, CompetitorID: compB.ID},
	} {
		require.NoError(t, db.Create(&m).Error)
	}

	return leagueFixture{Season: season, Track: track, Event: event, CompetitorA: compA, CompetitorB: compB}
}

func msPtr(v int64) *int64 { return &v }

// racePayload builds the canonical two-car race payload: A wins at
// 5,400,000 ms, B second one second behind.
func racePayload() *models.SessionPayload {
	return &models.SessionPayload{
		Track:        "Spa",
		SessionKind:  models.SessionRace,
		SimSessionID: "sim-race-001",
		Results: []models.ResultPayload{
			{
				SimDriverID: "car-1", PlatformID: "steam:100001", Name: "Alice Walker",
				CarNumber: 7, Position: 1, GridPosition: 2, LapCount: 24,
				BestLapMs: 138500, SectorMs: []int64{44100, 51200, 43200},
				TotalTimeMs: msPtr(5400000), Status: models.StatusFinished, FastestLap: true,
			},
			{
				SimDriverID: "car-2", PlatformID: "steam:100002", Name: "Ben Okafor",
				CarNumber: 22, Position: 2, GridPosition: 1, LapCount: 24,
				BestLapMs: 139000, SectorMs: []int64{44300, 51400, 43300},
				TotalTimeMs: msPtr(5401000), Status: models.StatusFinished, Pole: true,
			},
		},
	}
}

// ingestRace runs the canonical payload through the real ingestion path
// and returns the stored session.
func ingestRace(t *testing.T, db *gorm.DB, fx leagueFixture) models.Session {
	t.Helper()
	ingest := NewIngestService(db, NewIdentityService(db))
	outcome, err := ingest.Ingest(fx.Season.ID, racePayload(), []byte(`{}`))
	require.NoError(t, err)
	require.NotNil(t, outcome.Session)
	return *outcome.Session
}

func resultFor(t *testing.T, db *gorm.DB, sessionID, simDriverID string) models.BaseResult {
	t.Helper()
	var result models.BaseResult
	require.NoError(t, db.Where("session_id = ? AND sim_driver_id = ?", sessionID, simDriverID).
		First(&result).Error)
	return result
}
