package services

import (
	"sort"

	"race-league-system/models"

	"gorm.io/gorm"
)

// RecalculatePositions re-derives the finishing order of a whole session
// from current total times. Ordering: classified finishers first, then
// current total time ascending (nulls last), then the as-ingested
// position as the final tie-break. Positions are assigned 1..N and only
// rows whose position actually changed are written, so running it twice
// with no intervening edits produces no writes.
//
// It runs inside the caller's transaction: every penalty add/remove and
// every revert re-triggers it before the surrounding edit commits.
func RecalculatePositions(tx *gorm.DB, sessionID string) (int, error) {
	var results []models.BaseResult
	if err := tx.Where("session_id = ?", sessionID).Find(&results).Error; err != nil {
		return 0, err
	}
	if len(results) == 0 {
		return 0, nil
	}

	var snapshots []models.OriginalSnapshot
	if err := tx.Where("session_id = ?", sessionID).Find(&snapshots).Error; err != nil {
		return 0, err
	}
	originalPos := make(map[string]int, len(snapshots))
	for _, snap := range snapshots {
		originalPos[snap.ResultID] = snap.Position
	}

	sort.SliceStable(results, func(i, j int) bool {
		a, b := &results[i], &results[j]

		aFinished := a.Status == models.StatusFinished
		bFinished := b.Status == models.StatusFinished
		if aFinished != bFinished {
			return aFinished
		}

		switch {
		case a.TotalTimeMs == nil && b.TotalTimeMs == nil:
			// fall through to tie-break
		case a.TotalTimeMs == nil:
			return false
		case b.TotalTimeMs == nil:
			return true
		case *a.TotalTimeMs != *b.TotalTimeMs:
			return *a.TotalTimeMs < *b.TotalTimeMs
		}

		ai, aok := originalPos[a.ID]
		bi, bok := originalPos[b.ID]
		if aok && bok {
			return ai < bi
		}
		return a.Position < b.Position
	})

	changed := 0
	for i := range results {
		pos := i + 1
		if results[i].Position == pos {
			continue
		}
		if err := tx.Model(&models.BaseResult{}).Where("id = ?", results[i].ID).
			Update("position", pos).Error; err != nil {
			return changed, err
		}
		changed++
	}
	return changed, nil
}
