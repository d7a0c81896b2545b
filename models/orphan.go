package models

import (
	"time"
)

// Orphan statuses
const (
	OrphanPending   = "pending"
	OrphanProcessed = "processed"
	OrphanIgnored   = "ignored"
)

// OrphanedSession holds a session payload that matched no scheduled event.
// The payload is kept verbatim so an administrator can link it to an event
// later; there is no automatic retry.
type OrphanedSession struct {
	ID          string     `json:"id" gorm:"primaryKey"`
	SeasonID    string     `json:"season_id" gorm:"index"`
	TrackName   string     `json:"track_name"`
	SessionKind string     `json:"session_kind"`
	Payload     string     `json:"payload" gorm:"type:text"`
	Status      string     `json:"status" gorm:"default:'pending';index"`
	ReceivedAt  time.Time  `json:"received_at" gorm:"autoCreateTime"`
	ResolvedAt  *time.Time `json:"resolved_at,omitempty"`
	EventID     *string    `json:"event_id,omitempty"` // set when processed against an event
}
