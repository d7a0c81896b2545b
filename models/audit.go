package models

import (
	"encoding/json"
	"time"
)

// Edit kinds recorded in the audit log
const (
	EditPenaltyAdd     = "penalty_add"
	EditPenaltyRemove  = "penalty_remove"
	EditPositionChange = "position_change"
	EditDisqualify     = "disqualify"
	EditReset          = "reset"
)

// ResultState is the old/new snapshot captured around every edit. It is
// stored as JSON in the audit entry and is what a revert restores from.
type ResultState struct {
	Position               int    `json:"position"`
	TotalTimeMs            *int64 `json:"total_time_ms"`
	PostRacePenaltySeconds int    `json:"post_race_penalty_seconds"`
	Status                 string `json:"status"`
}

// AuditEntry is one append-only record of a mutating steward action.
// NewValue always matches the live result row immediately after the edit.
// A revert flips Reverted and re-applies the inverse effect; it never
// deletes the entry and never creates a new one for the reverted edit.
type AuditEntry struct {
	ID           string  `json:"id" gorm:"primaryKey"`
	SessionID    string  `json:"session_id" gorm:"not null;index"`
	ResultID     string  `json:"result_id" gorm:"not null;index"`
	CompetitorID *string `json:"competitor_id,omitempty" gorm:"index"`
	EditKind     string  `json:"edit_kind" gorm:"not null;index"`
	OldValue     string  `json:"old_value" gorm:"type:text"`
	NewValue     string  `json:"new_value" gorm:"type:text"`
	Reason       string  `json:"reason"`
	Author       string  `json:"author"`
	// For penalty-kind edits: the ledger entry this edit created or
	// removed, captured so a revert can undo the ledger change and keep
	// total time equal to base time plus the live entry sum.
	EntrySnapshot string `json:"entry_snapshot,omitempty" gorm:"type:text"`
	Reverted     bool    `json:"reverted" gorm:"default:false"`
	CreatedAt    time.Time `json:"created_at" gorm:"autoCreateTime"`
}

// State helpers — the snapshots are plain JSON so they survive schema drift.

func (e *AuditEntry) OldState() (ResultState, error) {
	var st ResultState
	err := json.Unmarshal([]byte(e.OldValue), &st)
	return st, err
}

func (e *AuditEntry) NewState() (ResultState, error) {
	var st ResultState
	err := json.Unmarshal([]byte(e.NewValue), &st)
	return st, err
}

// StateOf captures the mutable fields of a result for audit purposes.
func StateOf(r *BaseResult) ResultState {
	return ResultState{
		Position:               r.Position,
		TotalTimeMs:            r.TotalTimeMs,
		PostRacePenaltySeconds: r.PostRacePenaltySeconds,
		Status:                 r.Status,
	}
}

// MustJSON marshals a state snapshot; the struct is marshal-safe so an
// error here would be a programming bug.
func (s ResultState) MustJSON() string {
	b, _ := json.Marshal(s)
	return string(b)
}
