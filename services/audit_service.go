package services

import (
	"encoding/json"
	"fmt"
	"log"

	"race-league-system/models"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

type AuditService struct {
	DB *gorm.DB
}

func NewAuditService(db *gorm.DB) *AuditService {
	return &AuditService{DB: db}
}

// RevertEdit undoes one audit-logged edit in place. History stays
// permanent: the entry is never deleted and no new entry is written for
// the reverted edit — the flag flips and the inverse effect is applied.
// Reverting an older edit while later edits still stand is allowed; the
// caller owns the reasoning about that.
func (s *AuditService) RevertEdit(editID string) (*models.AuditEntry, error) {
	var entry models.AuditEntry
	err := s.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&entry, "id = ?", editID).Error; err != nil {
			return fmt.Errorf("edit %s: %w", editID, err)
		}
		if entry.Reverted {
			return conflictErr("edit %s already reverted", editID)
		}

		var result models.BaseResult
		if err := tx.First(&result, "id = ?", entry.ResultID).Error; err != nil {
			return fmt.Errorf("result %s: %w", entry.ResultID, err)
		}
		oldState, err := entry.OldState()
		if err != nil {
			return fmt.Errorf("corrupt old_value on edit %s: %w", editID, err)
		}

		switch entry.EditKind {
		case models.EditPenaltyAdd:
			// Drop the ledger entry this edit created, then restore the
			// pre-edit figures and reposition the session.
			var ledger models.PenaltyEntry
			if err := json.Unmarshal([]byte(entry.EntrySnapshot), &ledger); err == nil && ledger.ID != "" {
				if err := tx.Delete(&models.PenaltyEntry{}, "id = ?", ledger.ID).Error; err != nil {
					return err
				}
			}
			if err := restorePenaltyState(tx, &result, oldState); err != nil {
				return err
			}
			if _, err := RecalculatePositions(tx, result.SessionID); err != nil {
				return err
			}

		case models.EditPenaltyRemove:
			// Reinstate the removed ledger entry alongside the restored figures.
			var ledger models.PenaltyEntry
			if err := json.Unmarshal([]byte(entry.EntrySnapshot), &ledger); err == nil && ledger.ID != "" {
				if err := tx.Create(&ledger).Error; err != nil {
					return err
				}
			}
			if err := restorePenaltyState(tx, &result, oldState); err != nil {
				return err
			}
			if _, err := RecalculatePositions(tx, result.SessionID); err != nil {
				return err
			}

		case models.EditPositionChange:
			if err := tx.Model(&models.BaseResult{}).Where("id = ?", result.ID).
				Update("position", oldState.Position).Error; err != nil {
				return err
			}

		case models.EditDisqualify:
			if err := tx.Model(&models.BaseResult{}).Where("id = ?", result.ID).
				Update("status", oldState.Status).Error; err != nil {
				return err
			}

		default:
			return validationErr("edit kind %s cannot be reverted", entry.EditKind)
		}

		entry.Reverted = true
		return tx.Model(&models.AuditEntry{}).Where("id = ?", entry.ID).
			Update("reverted", true).Error
	})
	if err != nil {
		return nil, err
	}
	log.Printf("[AUDIT] ✅ Reverted edit %s (%s)", editID, entry.EditKind)
	return &entry, nil
}

func restorePenaltyState(tx *gorm.DB, result *models.BaseResult, old models.ResultState) error {
	return tx.Model(&models.BaseResult{}).Where("id = ?", result.ID).
		Updates(map[string]interface{}{
			"post_race_penalty_seconds": old.PostRacePenaltySeconds,
			"total_time_ms":             old.TotalTimeMs,
		}).Error
}

// SessionHistory returns every edit for a session, newest first.
func (s *AuditService) SessionHistory(sessionID string) ([]models.AuditEntry, error) {
	var entries []models.AuditEntry
	err := s.DB.Where("session_id = ?", sessionID).
		Order("created_at DESC").Find(&entries).Error
	return entries, err
}

// CompetitorHistory returns every edit touching one competitor, newest first.
func (s *AuditService) CompetitorHistory(competitorID string) ([]models.AuditEntry, error) {
	var entries []models.AuditEntry
	err := s.DB.Where("competitor_id = ?", competitorID).
		Order("created_at DESC").Find(&entries).Error
	return entries, err
}

// RevertEditEndpoint — POST /edits/:id/revert
func (s *AuditService) RevertEditEndpoint(c *fiber.Ctx) error {
	entry, err := s.RevertEdit(c.Params("id"))
	if err != nil {
		return respondErr(c, err)
	}
	return c.JSON(entry)
}

// SessionHistoryEndpoint — GET /sessions/:id/history
func (s *AuditService) SessionHistoryEndpoint(c *fiber.Ctx) error {
	entries, err := s.SessionHistory(c.Params("id"))
	if err != nil {
		return c.Status(500).JSON(fiber.Map{"error": "failed to fetch history"})
	}
	return c.JSON(entries)
}

// CompetitorHistoryEndpoint — GET /competitors/:id/history
func (s *AuditService) CompetitorHistoryEndpoint(c *fiber.Ctx) error {
	entries, err := s.CompetitorHistory(c.Params("id"))
	if err != nil {
		return c.Status(500).JSON(fiber.Map{"error": "failed to fetch history"})
	}
	return c.JSON(entries)
}
