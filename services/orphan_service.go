package services

import (
	"encoding/json"
	"fmt"
	"log"
	"time"

	"race-league-system/models"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

type OrphanService struct {
	DB     *gorm.DB
	Ingest *IngestService
}

func NewOrphanService(db *gorm.DB, ingest *IngestService) *OrphanService {
	return &OrphanService{DB: db, Ingest: ingest}
}

// Process re-attempts ingestion of a pending orphan against an event the
// administrator named explicitly, then marks it processed. No automatic
// retry happens anywhere — orphans move only by steward action.
func (s *OrphanService) Process(orphanID, eventID string) (*models.Session, error) {
	var orphan models.OrphanedSession
	if err := s.DB.First(&orphan, "id = ?", orphanID).Error; err != nil {
		return nil, fmt.Errorf("orphan %s: %w", orphanID, err)
	}
	if orphan.Status != models.OrphanPending {
		return nil, conflictErr("orphan %s is %s, not pending", orphanID, orphan.Status)
	}

	var payload models.SessionPayload
	if err := json.Unmarshal([]byte(orphan.Payload), &payload); err != nil {
		return nil, fmt.Errorf("orphan %s payload is corrupt: %w", orphanID, err)
	}

	session, err := s.Ingest.IngestIntoEvent(eventID, &payload, []byte(orphan.Payload))
	if err != nil {
		return nil, err
	}

	now := time.Now()
	if err := s.DB.Model(&models.OrphanedSession{}).Where("id = ?", orphan.ID).
		Updates(map[string]interface{}{
			"status":      models.OrphanProcessed,
			"event_id":    eventID,
			"resolved_at": now,
		}).Error; err != nil {
		return nil, err
	}
	log.Printf("[ORPHAN] ✅ Processed orphan %s into event %s (session %s)", orphanID, eventID, session.ID)
	return session, nil
}

// Ignore marks a pending orphan as not worth linking.
func (s *OrphanService) Ignore(orphanID string) error {
	var orphan models.OrphanedSession
	if err := s.DB.First(&orphan, "id = ?", orphanID).Error; err != nil {
		return fmt.Errorf("orphan %s: %w", orphanID, err)
	}
	if orphan.Status != models.OrphanPending {
		return conflictErr("orphan %s is %s, not pending", orphanID, orphan.Status)
	}
	now := time.Now()
	return s.DB.Model(&models.OrphanedSession{}).Where("id = ?", orphan.ID).
		Updates(map[string]interface{}{
			"status":      models.OrphanIgnored,
			"resolved_at": now,
		}).Error
}

// ListOrphansEndpoint — GET /orphans?status=pending
func (s *OrphanService) ListOrphansEndpoint(c *fiber.Ctx) error {
	query := s.DB.Order("received_at DESC")
	if status := c.Query("status"); status != "" {
		query = query.Where("status = ?", status)
	}
	var orphans []models.OrphanedSession
	if err := query.Find(&orphans).Error; err != nil {
		return c.Status(500).JSON(fiber.Map{"error": "failed to fetch orphans"})
	}
	return c.JSON(orphans)
}

// ProcessOrphanEndpoint — POST /orphans/:id/process
func (s *OrphanService) ProcessOrphanEndpoint(c *fiber.Ctx) error {
	type Req struct {
		EventID string `json:"event_id"`
	}
	var req Req
	if err := c.BodyParser(&req); err != nil {
		return c.Status(400).JSON(fiber.Map{"error": "invalid JSON"})
	}
	if req.EventID == "" {
		return c.Status(400).JSON(fiber.Map{"error": "event_id is required"})
	}
	session, err := s.Process(c.Params("id"), req.EventID)
	if err != nil {
		return respondErr(c, err)
	}
	return c.JSON(fiber.Map{"message": "orphan processed", "session": session})
}

// IgnoreOrphanEndpoint — POST /orphans/:id/ignore
func (s *OrphanService) IgnoreOrphanEndpoint(c *fiber.Ctx) error {
	if err := s.Ignore(c.Params("id")); err != nil {
		return respondErr(c, err)
	}
	return c.JSON(fiber.Map{"message": "orphan ignored"})
}
