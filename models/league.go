package models

import (
	"time"
)

// Season groups events and driver mappings for one championship year
type Season struct {
	ID        string    `json:"id" gorm:"primaryKey"`
	Name      string    `json:"name" gorm:"not null;uniqueIndex"`
	StartDate time.Time `json:"start_date"`
	EndDate   time.Time `json:"end_date"`
	IsActive  bool      `json:"is_active" gorm:"default:true"`
	CreatedAt time.Time `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt time.Time `json:"updated_at" gorm:"autoUpdateTime"`

	// Relationships
	Events []Event `json:"events,omitempty" gorm:"foreignKey:SeasonID"`
}

// Track is one circuit the league races at. Slug is the normalized form
// used to match simulator-reported track names against the calendar.
type Track struct {
	ID       string  `json:"id" gorm:"primaryKey"`
	Name     string  `json:"name" gorm:"not null"`
	Slug     string  `json:"slug" gorm:"not null;uniqueIndex"`
	Country  string  `json:"country"`
	LengthKm float64 `json:"length_km"`

	Synonyms []TrackSynonym `json:"synonyms,omitempty" gorm:"foreignKey:TrackID"`
}

// TrackSynonym maps an alternate simulator spelling to a track.
// Simulators ship their own track identifiers ("ks_nurburgring") that
// rarely match the league's display names.
type TrackSynonym struct {
	ID      string `json:"id" gorm:"primaryKey"`
	TrackID string `json:"track_id" gorm:"not null;index"`
	Slug    string `json:"slug" gorm:"not null;uniqueIndex"`
}

// Event is one scheduled race weekend at a track.
// Lifecycle: scheduled → completed (or cancelled). The result engine only
// reads events and flips them to completed when a race session is ingested.
type Event struct {
	ID          string     `json:"id" gorm:"primaryKey"`
	SeasonID    string     `json:"season_id" gorm:"not null;index"`
	TrackID     string     `json:"track_id" gorm:"not null;index"`
	Name        string     `json:"name" gorm:"not null"`
	Round       int        `json:"round" gorm:"default:0"`
	Status      string     `json:"status" gorm:"default:'scheduled'"` // scheduled, completed, cancelled
	ScheduledAt time.Time  `json:"scheduled_at"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
	CreatedAt   time.Time  `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt   time.Time  `json:"updated_at" gorm:"autoUpdateTime"`

	Track    Track     `json:"track,omitempty" gorm:"foreignKey:TrackID"`
	Sessions []Session `json:"sessions,omitempty" gorm:"foreignKey:EventID"`
}

// Event statuses
const (
	EventScheduled = "scheduled"
	EventCompleted = "completed"
	EventCancelled = "cancelled"
)

// Competitor is a league member. Created by roster management (or the
// roster sync worker); the result engine references it, never mutates it.
// ID is the member id issued by the profile service.
type Competitor struct {
	ID         string    `json:"id" gorm:"primaryKey"`
	Name       string    `json:"name" gorm:"not null;index"`
	Team       string    `json:"team"`
	CarNumber  int       `json:"car_number"`
	PlatformID *string   `json:"platform_id,omitempty" gorm:"index"` // e.g. Steam64 id
	IsActive   bool      `json:"is_active" gorm:"default:true"`
	CreatedAt  time.Time `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt  time.Time `json:"updated_at" gorm:"autoUpdateTime"`
}

// DriverMapping binds a simulator platform identifier to a competitor for
// one season. Identity resolution consults this table first, before
// falling back to display-name matching.
type DriverMapping struct {
	ID           string    `json:"id" gorm:"primaryKey"`
	SeasonID     string    `json:"season_id" gorm:"not null;index;uniqueIndex:idx_season_platform,priority:1"`
	PlatformID   string    `json:"platform_id" gorm:"not null;uniqueIndex:idx_season_platform,priority:2"`
	CompetitorID string    `json:"competitor_id" gorm:"not null;index"`
	CreatedAt    time.Time `json:"created_at" gorm:"autoCreateTime"`

	Competitor Competitor `json:"competitor,omitempty" gorm:"foreignKey:CompetitorID"`
}
