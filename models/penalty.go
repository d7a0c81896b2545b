package models

import (
	"time"
)

// PenaltyEntry is one post-session time penalty applied by a steward.
// Entries belong to exactly one base result; the sum of a result's entries
// (in seconds, converted to milliseconds) added to its base time is the
// result's current total time. Removing a penalty deletes the entry.
type PenaltyEntry struct {
	ID        string    `json:"id" gorm:"primaryKey"`
	ResultID  string    `json:"result_id" gorm:"not null;index"`
	SessionID string    `json:"session_id" gorm:"not null;index"`
	Seconds   int       `json:"seconds" gorm:"not null"`
	Reason    string    `json:"reason" gorm:"not null"`
	Author    string    `json:"author" gorm:"not null"`
	CreatedAt time.Time `json:"created_at" gorm:"autoCreateTime"`
}
