package services

import (
	"fmt"
	"log"
	"time"

	"race-league-system/middleware"
	"race-league-system/models"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// resetReason is the fixed system-authored reason on reset audit entries.
const resetReason = "restored to original simulator result"

type StewardService struct {
	DB *gorm.DB
}

func NewStewardService(db *gorm.DB) *StewardService {
	return &StewardService{DB: db}
}

// findResult locates a session's result by league competitor id, falling
// back to the simulator driver id so unmapped rows stay editable.
func findResult(tx *gorm.DB, sessionID, ref string) (*models.BaseResult, error) {
	var result models.BaseResult
	err := tx.Where("session_id = ? AND (competitor_id = ? OR sim_driver_id = ?)",
		sessionID, ref, ref).First(&result).Error
	if err != nil {
		return nil, fmt.Errorf("result for %s in session %s: %w", ref, sessionID, err)
	}
	return &result, nil
}

// ChangePosition overwrites a result's position directly. This is a
// manual steward override, not a derived value, so it deliberately
// bypasses recomputation.
func (s *StewardService) ChangePosition(sessionID, ref string, newPosition int, reason, author string) (*models.AuditEntry, error) {
	if newPosition < 1 {
		return nil, validationErr("position must be >= 1")
	}
	if reason == "" || author == "" {
		return nil, validationErr("reason and author are required")
	}

	var audit *models.AuditEntry
	err := s.DB.Transaction(func(tx *gorm.DB) error {
		result, err := findResult(tx, sessionID, ref)
		if err != nil {
			return err
		}
		oldState := models.StateOf(result)

		result.Position = newPosition
		if err := tx.Model(&models.BaseResult{}).Where("id = ?", result.ID).
			Update("position", newPosition).Error; err != nil {
			return err
		}

		audit = &models.AuditEntry{
			ID:           uuid.NewString(),
			SessionID:    sessionID,
			ResultID:     result.ID,
			CompetitorID: result.CompetitorID,
			EditKind:     models.EditPositionChange,
			OldValue:     oldState.MustJSON(),
			NewValue:     models.StateOf(result).MustJSON(),
			Reason:       reason,
			Author:       author,
		}
		return tx.Create(audit).Error
	})
	if err != nil {
		return nil, err
	}
	log.Printf("[STEWARD] ✅ Position override in session %s: %s → P%d by %s", sessionID, ref, newPosition, author)
	return audit, nil
}

// Disqualify sets the result's status to the disqualified code. It does
// not itself reorder — the next recompute (or an explicit trigger via
// TriggerRecompute) sorts the disqualified car behind the finishers.
func (s *StewardService) Disqualify(sessionID, ref, reason, author string) (*models.AuditEntry, error) {
	if reason == "" || author == "" {
		return nil, validationErr("reason and author are required")
	}

	var audit *models.AuditEntry
	err := s.DB.Transaction(func(tx *gorm.DB) error {
		result, err := findResult(tx, sessionID, ref)
		if err != nil {
			return err
		}
		oldState := models.StateOf(result)

		result.Status = models.StatusDisqualified
		if err := tx.Model(&models.BaseResult{}).Where("id = ?", result.ID).
			Update("status", models.StatusDisqualified).Error; err != nil {
			return err
		}

		audit = &models.AuditEntry{
			ID:           uuid.NewString(),
			SessionID:    sessionID,
			ResultID:     result.ID,
			CompetitorID: result.CompetitorID,
			EditKind:     models.EditDisqualify,
			OldValue:     oldState.MustJSON(),
			NewValue:     models.StateOf(result).MustJSON(),
			Reason:       reason,
			Author:       author,
		}
		return tx.Create(audit).Error
	})
	if err != nil {
		return nil, err
	}
	log.Printf("[STEWARD] ✅ Disqualified %s in session %s by %s (%s)", ref, sessionID, author, reason)
	return audit, nil
}

// resetOne rolls a single result back to its frozen snapshot inside the
// caller's transaction: position, total time and status come back from
// the snapshot, the steward penalty ledger is cleared, the snapshot is
// marked restored. Fails when no snapshot exists for the slot.
func resetOne(tx *gorm.DB, result *models.BaseResult) (*models.AuditEntry, error) {
	var snap models.OriginalSnapshot
	err := tx.Where("session_id = ? AND sim_driver_id = ?", result.SessionID, result.SimDriverID).
		First(&snap).Error
	if err != nil {
		return nil, fmt.Errorf("original snapshot for %s: %w", result.SimDriverID, err)
	}
	oldState := models.StateOf(result)

	if err := tx.Where("result_id = ?", result.ID).Delete(&models.PenaltyEntry{}).Error; err != nil {
		return nil, err
	}

	result.Position = snap.Position
	result.TotalTimeMs = snap.TotalTimeMs
	result.Status = snap.Status
	result.PostRacePenaltySeconds = 0
	if err := tx.Model(&models.BaseResult{}).Where("id = ?", result.ID).
		Updates(map[string]interface{}{
			"position":                  snap.Position,
			"total_time_ms":             snap.TotalTimeMs,
			"status":                    snap.Status,
			"post_race_penalty_seconds": 0,
		}).Error; err != nil {
		return nil, err
	}

	now := time.Now()
	if err := tx.Model(&models.OriginalSnapshot{}).Where("id = ?", snap.ID).
		Updates(map[string]interface{}{"restored": true, "restored_at": now}).Error; err != nil {
		return nil, err
	}

	audit := &models.AuditEntry{
		ID:           uuid.NewString(),
		SessionID:    result.SessionID,
		ResultID:     result.ID,
		CompetitorID: result.CompetitorID,
		EditKind:     models.EditReset,
		OldValue:     oldState.MustJSON(),
		NewValue:     models.StateOf(result).MustJSON(),
		Reason:       resetReason,
		Author:       "system",
	}
	if err := tx.Create(audit).Error; err != nil {
		return nil, err
	}
	return audit, nil
}

// ResetToOriginal rolls one competitor back to the as-simulated state.
func (s *StewardService) ResetToOriginal(sessionID, ref string) (*models.AuditEntry, error) {
	var audit *models.AuditEntry
	err := s.DB.Transaction(func(tx *gorm.DB) error {
		result, err := findResult(tx, sessionID, ref)
		if err != nil {
			return err
		}
		audit, err = resetOne(tx, result)
		return err
	})
	if err != nil {
		return nil, err
	}
	log.Printf("[STEWARD] ✅ Reset %s to original in session %s", ref, sessionID)
	return audit, nil
}

// ResetSession rolls every competitor in the session back to the frozen
// snapshot, then recomputes positions once. One transaction, one audit
// entry per competitor.
func (s *StewardService) ResetSession(sessionID string) (int, error) {
	count := 0
	err := s.DB.Transaction(func(tx *gorm.DB) error {
		var session models.Session
		if err := tx.First(&session, "id = ?", sessionID).Error; err != nil {
			return fmt.Errorf("session %s: %w", sessionID, err)
		}
		var results []models.BaseResult
		if err := tx.Where("session_id = ?", sessionID).Find(&results).Error; err != nil {
			return err
		}
		for i := range results {
			if _, err := resetOne(tx, &results[i]); err != nil {
				return err
			}
			count++
		}
		_, err := RecalculatePositions(tx, sessionID)
		return err
	})
	if err != nil {
		return 0, err
	}
	log.Printf("[STEWARD] ✅ Reset whole session %s (%d result(s))", sessionID, count)
	return count, nil
}

// TriggerRecompute reruns position derivation for a session, e.g. after
// a disqualification.
func (s *StewardService) TriggerRecompute(sessionID string) (int, error) {
	changed := 0
	err := s.DB.Transaction(func(tx *gorm.DB) error {
		var session models.Session
		if err := tx.First(&session, "id = ?", sessionID).Error; err != nil {
			return fmt.Errorf("session %s: %w", sessionID, err)
		}
		var err error
		changed, err = RecalculatePositions(tx, sessionID)
		return err
	})
	return changed, err
}

// ChangePositionEndpoint — PATCH /sessions/:id/results/:ref/position
func (s *StewardService) ChangePositionEndpoint(c *fiber.Ctx) error {
	type Req struct {
		Position int    `json:"position"`
		Reason   string `json:"reason"`
	}
	var req Req
	if err := c.BodyParser(&req); err != nil {
		return c.Status(400).JSON(fiber.Map{"error": "invalid JSON"})
	}
	author := middleware.Author(c)
	audit, err := s.ChangePosition(c.Params("id"), c.Params("ref"), req.Position, req.Reason, author)
	if err != nil {
		return respondErr(c, err)
	}
	return c.JSON(audit)
}

// DisqualifyEndpoint — POST /sessions/:id/results/:ref/disqualify
func (s *StewardService) DisqualifyEndpoint(c *fiber.Ctx) error {
	type Req struct {
		Reason string `json:"reason"`
	}
	var req Req
	if err := c.BodyParser(&req); err != nil {
		return c.Status(400).JSON(fiber.Map{"error": "invalid JSON"})
	}
	author := middleware.Author(c)
	audit, err := s.Disqualify(c.Params("id"), c.Params("ref"), req.Reason, author)
	if err != nil {
		return respondErr(c, err)
	}
	return c.JSON(audit)
}

// ResetResultEndpoint — POST /sessions/:id/results/:ref/reset
func (s *StewardService) ResetResultEndpoint(c *fiber.Ctx) error {
	audit, err := s.ResetToOriginal(c.Params("id"), c.Params("ref"))
	if err != nil {
		return respondErr(c, err)
	}
	return c.JSON(audit)
}

// ResetSessionEndpoint — POST /sessions/:id/reset
func (s *StewardService) ResetSessionEndpoint(c *fiber.Ctx) error {
	count, err := s.ResetSession(c.Params("id"))
	if err != nil {
		return respondErr(c, err)
	}
	return c.JSON(fiber.Map{"message": "session reset", "results_reset": count})
}

// RecomputeEndpoint — POST /sessions/:id/recompute
func (s *StewardService) RecomputeEndpoint(c *fiber.Ctx) error {
	changed, err := s.TriggerRecompute(c.Params("id"))
	if err != nil {
		return respondErr(c, err)
	}
	return c.JSON(fiber.Map{"message": "positions recomputed", "rows_changed": changed})
}
