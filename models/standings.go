package models

import (
	"time"
)

// StandingsEntry is one cached championship standings row, derived from
// race results and refreshed by the standings job. Always recomputable;
// cached only for read efficiency.
type StandingsEntry struct {
	ID           string    `json:"id" gorm:"primaryKey"`
	SeasonID     string    `json:"season_id" gorm:"not null;index;uniqueIndex:idx_season_competitor,priority:1"`
	CompetitorID string    `json:"competitor_id" gorm:"not null;uniqueIndex:idx_season_competitor,priority:2"`
	Points       int       `json:"points"`
	Wins         int       `json:"wins"`
	Podiums      int       `json:"podiums"`
	BestFinish   int       `json:"best_finish"`
	RacesScored  int       `json:"races_scored"`
	UpdatedAt    time.Time `json:"updated_at" gorm:"autoUpdateTime"`

	Competitor Competitor `json:"competitor,omitempty" gorm:"foreignKey:CompetitorID"`
}
