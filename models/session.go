package models

import (
	"time"
)

// Session kinds, numbered by simulator convention
const (
	SessionPractice   = "practice"
	SessionQualifying = "qualifying"
	SessionRace       = "race"
)

// Result status codes as reported by the simulator. "finished" is the
// classified-finisher code that sorts ahead of everything else when
// positions are recomputed.
const (
	StatusFinished     = "finished"
	StatusDNF          = "dnf"
	StatusDisqualified = "dsq"
)

// Session is one completed segment of an event. Uniquely keyed by
// (event, kind): re-ingesting the same kind for the same event updates
// metadata instead of duplicating. SimSessionID is the simulator-issued
// identifier used for duplicate detection across resubmission.
type Session struct {
	ID           string     `json:"id" gorm:"primaryKey"`
	EventID      string     `json:"event_id" gorm:"not null;index;uniqueIndex:idx_event_kind,priority:1"`
	Kind         string     `json:"kind" gorm:"not null;uniqueIndex:idx_event_kind,priority:2"`
	Number       int        `json:"number" gorm:"default:0"`
	SimSessionID *string    `json:"sim_session_id,omitempty" gorm:"uniqueIndex"`
	TrackName    string     `json:"track_name"` // raw name as reported by the simulator
	ArchiveURL   string     `json:"archive_url,omitempty"`
	CompletedAt  *time.Time `json:"completed_at,omitempty"`
	CreatedAt    time.Time  `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt    time.Time  `json:"updated_at" gorm:"autoUpdateTime"`

	Results []BaseResult `json:"results,omitempty" gorm:"foreignKey:SessionID"`
}

// BaseResult is the as-ingested result row for one competitor slot in one
// session. Position and TotalTimeMs are the only fields mutated after
// ingestion (by recomputation or a manual steward edit); everything else
// is frozen. BaseTimeMs is the elapsed time before any post-session
// penalty and never changes.
type BaseResult struct {
	ID        string `json:"id" gorm:"primaryKey"`
	SessionID string `json:"session_id" gorm:"not null;index;uniqueIndex:idx_session_driver,priority:1"`

	// Simulator identity of the driver in this slot. CompetitorID stays
	// null until identity resolution succeeds; such rows are surfaced as
	// unmapped in the read API.
	SimDriverID  string  `json:"sim_driver_id" gorm:"not null;uniqueIndex:idx_session_driver,priority:2"`
	DriverName   string  `json:"driver_name"`
	PlatformID   *string `json:"platform_id,omitempty"`
	CompetitorID *string `json:"competitor_id,omitempty" gorm:"index"`

	CarNumber    int    `json:"car_number"`
	Position     int    `json:"position" gorm:"index"`
	GridPosition int    `json:"grid_position"`
	LapCount     int    `json:"lap_count"`
	BestLapMs    int64  `json:"best_lap_ms"`
	Sector1Ms    int64  `json:"sector1_ms"`
	Sector2Ms    int64  `json:"sector2_ms"`
	Sector3Ms    int64  `json:"sector3_ms"`
	TotalTimeMs  *int64 `json:"total_time_ms,omitempty"`
	BaseTimeMs   *int64 `json:"base_time_ms,omitempty"`

	// Penalties: the simulator's own in-session penalty and the stewards'
	// post-session penalty are additive but tracked separately, so a reset
	// can discard only the latter.
	InSessionPenaltySeconds int `json:"in_session_penalty_seconds" gorm:"default:0"`
	PostRacePenaltySeconds  int `json:"post_race_penalty_seconds" gorm:"default:0"`

	Warnings   int    `json:"warnings" gorm:"default:0"`
	Status     string `json:"status" gorm:"default:'finished'"`
	FastestLap bool   `json:"fastest_lap" gorm:"default:false"`
	Pole       bool   `json:"pole" gorm:"default:false"`

	CreatedAt time.Time `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt time.Time `json:"updated_at" gorm:"autoUpdateTime"`

	Competitor *Competitor    `json:"competitor,omitempty" gorm:"foreignKey:CompetitorID"`
	Penalties  []PenaltyEntry `json:"penalties,omitempty" gorm:"foreignKey:ResultID"`
}

// OriginalSnapshot is the frozen as-simulated copy of a result, captured
// at ingestion before any edit is possible. Never updated except to mark
// it restored. One per (session, competitor slot).
type OriginalSnapshot struct {
	ID        string `json:"id" gorm:"primaryKey"`
	SessionID string `json:"session_id" gorm:"not null;index;uniqueIndex:idx_snapshot_slot,priority:1"`
	ResultID  string `json:"result_id" gorm:"not null;index"`

	SimDriverID  string  `json:"sim_driver_id" gorm:"not null;uniqueIndex:idx_snapshot_slot,priority:2"`
	Position     int     `json:"position"`
	TotalTimeMs  *int64  `json:"total_time_ms,omitempty"`
	Status       string  `json:"status"`
	Warnings     int     `json:"warnings"`
	Restored     bool    `json:"restored" gorm:"default:false"`
	RestoredAt   *time.Time `json:"restored_at,omitempty"`
	CreatedAt    time.Time  `json:"created_at" gorm:"autoCreateTime"`
}
