package services

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"time"

	"race-league-system/models"
	"race-league-system/utils"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// builtinTrackSynonyms maps well-known simulator track ids to the
// league's canonical track slugs, for names the calendar does not carry
// a synonym row for yet.
var builtinTrackSynonyms = map[string]string{
	"spa":            "spa-francorchamps",
	"monza":          "autodromo-nazionale-monza",
	"rbr":            "red-bull-ring",
	"cota":           "circuit-of-the-americas",
	"brands-hatch":   "brands-hatch-gp",
	"nordschleife":   "nurburgring-nordschleife",
	"laguna-seca":    "weathertech-raceway-laguna-seca",
	"paul-ricard":    "circuit-paul-ricard",
	"mount-panorama": "bathurst",
}

var errNoEventMatch = errors.New("no scheduled event matches track")

type IngestService struct {
	DB       *gorm.DB
	Identity *IdentityService
}

func NewIngestService(db *gorm.DB, identity *IdentityService) *IngestService {
	return &IngestService{DB: db, Identity: identity}
}

// IngestOutcome reports what one payload turned into: a session, or an
// orphan when no scheduled event matched. An orphan is not an error —
// the payload is retained for manual linking.
type IngestOutcome struct {
	Session *models.Session         `json:"session,omitempty"`
	Orphan  *models.OrphanedSession `json:"orphan,omitempty"`
}

// Ingest reconciles one decoded session payload against the season's
// calendar and stores it as the league's official record. All writes for
// a session happen in one transaction; a crash mid-ingest leaves nothing
// partial behind.
func (s *IngestService) Ingest(seasonID string, payload *models.SessionPayload, raw []byte) (*IngestOutcome, error) {
	if msg := payload.Validate(); msg != "" {
		return nil, validationErr("%s", msg)
	}
	var season models.Season
	if err := s.DB.First(&season, "id = ?", seasonID).Error; err != nil {
		return nil, fmt.Errorf("season %s: %w", seasonID, err)
	}

	// A known simulator session id is a resubmission and goes straight to
	// its session's event, even when the race already closed the weekend.
	if payload.SimSessionID != "" {
		var existing models.Session
		err := s.DB.First(&existing, "sim_session_id = ?", payload.SimSessionID).Error
		if err == nil {
			session, err := s.IngestIntoEvent(existing.EventID, payload, raw)
			if err != nil {
				return nil, err
			}
			return &IngestOutcome{Session: session}, nil
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, err
		}
	}

	event, err := s.matchEvent(seasonID, payload.Track)
	if errors.Is(err, errNoEventMatch) {
		orphan := &models.OrphanedSession{
			ID:          uuid.NewString(),
			SeasonID:    seasonID,
			TrackName:   payload.Track,
			SessionKind: payload.SessionKind,
			Payload:     string(raw),
			Status:      models.OrphanPending,
		}
		if err := s.DB.Create(orphan).Error; err != nil {
			return nil, err
		}
		log.Printf("[INGEST] ⚠️ No event for track %q in season %s — orphaned as %s",
			payload.Track, seasonID, orphan.ID)
		return &IngestOutcome{Orphan: orphan}, nil
	}
	if err != nil {
		return nil, err
	}

	session, err := s.IngestIntoEvent(event.ID, payload, raw)
	if err != nil {
		return nil, err
	}
	return &IngestOutcome{Session: session}, nil
}

// matchEvent resolves the payload's track name to a scheduled event:
// exact slug match against the track table, then the synonym table, then
// the built-in synonym set.
func (s *IngestService) matchEvent(seasonID, trackName string) (*models.Event, error) {
	trackSlug := utils.TrackSlug(trackName)

	var track models.Track
	err := s.DB.First(&track, "slug = ?", trackSlug).Error
	if err == gorm.ErrRecordNotFound {
		var synonym models.TrackSynonym
		if synErr := s.DB.First(&synonym, "slug = ?", trackSlug).Error; synErr == nil {
			err = s.DB.First(&track, "id = ?", synonym.TrackID).Error
		} else if canonical, ok := builtinTrackSynonyms[trackSlug]; ok {
			err = s.DB.First(&track, "slug = ?", canonical).Error
		}
	}
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errNoEventMatch
		}
		return nil, err
	}

	var event models.Event
	err = s.DB.Where("season_id = ? AND track_id = ? AND status = ?",
		seasonID, track.ID, models.EventScheduled).
		Order("scheduled_at ASC").First(&event).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errNoEventMatch
		}
		return nil, err
	}
	return &event, nil
}

// IngestIntoEvent writes a payload against an explicit event. Used by
// normal ingestion after event matching and by orphan processing, where
// an administrator names the event by hand.
//
// Resubmission is handled by delete-and-reinsert under the transaction:
// a payload carrying a known simulator session id reuses that session's
// identity and replaces its results instead of duplicating them.
func (s *IngestService) IngestIntoEvent(eventID string, payload *models.SessionPayload, raw []byte) (*models.Session, error) {
	if msg := payload.Validate(); msg != "" {
		return nil, validationErr("%s", msg)
	}

	var event models.Event
	if err := s.DB.First(&event, "id = ?", eventID).Error; err != nil {
		return nil, fmt.Errorf("event %s: %w", eventID, err)
	}

	resolver, err := s.Identity.NewResolver(event.SeasonID)
	if err != nil {
		return nil, err
	}

	var session models.Session
	err = s.DB.Transaction(func(tx *gorm.DB) error {
		// Resubmission detection: same simulator session id means the same
		// session record, results replaced rather than duplicated.
		found := false
		if payload.SimSessionID != "" {
			if err := tx.First(&session, "sim_session_id = ?", payload.SimSessionID).Error; err == nil {
				found = true
			} else if !errors.Is(err, gorm.ErrRecordNotFound) {
				return err
			}
		}
		if !found {
			err := tx.Where("event_id = ? AND kind = ?", eventID, payload.SessionKind).
				First(&session).Error
			if err == nil {
				found = true
			} else if !errors.Is(err, gorm.ErrRecordNotFound) {
				return err
			}
		}

		now := time.Now()
		if !found {
			session = models.Session{
				ID:      uuid.NewString(),
				EventID: eventID,
				Kind:    payload.SessionKind,
			}
		}
		session.Number = payload.SessionNumber
		session.TrackName = payload.Track
		session.CompletedAt = &now
		if payload.SimSessionID != "" {
			simID := payload.SimSessionID
			session.SimSessionID = &simID
		}
		if !found {
			if err := tx.Create(&session).Error; err != nil {
				return err
			}
		} else if err := tx.Save(&session).Error; err != nil {
			return err
		}

		// Resubmission safety: clear anything a previous ingestion wrote
		if err := tx.Where("session_id = ?", session.ID).Delete(&models.PenaltyEntry{}).Error; err != nil {
			return err
		}
		if err := tx.Where("session_id = ?", session.ID).Delete(&models.OriginalSnapshot{}).Error; err != nil {
			return err
		}
		if err := tx.Where("session_id = ?", session.ID).Delete(&models.BaseResult{}).Error; err != nil {
			return err
		}

		for i := range payload.Results {
			rp := &payload.Results[i]
			var platformID *string
			if rp.PlatformID != "" {
				p := rp.PlatformID
				platformID = &p
			}
			status := rp.Status
			if status == "" {
				status = models.StatusFinished
			}

			result := models.BaseResult{
				ID:                      uuid.NewString(),
				SessionID:               session.ID,
				SimDriverID:             rp.SimDriverID,
				DriverName:              rp.Name,
				PlatformID:              platformID,
				CompetitorID:            resolver.Resolve(rp),
				CarNumber:               rp.CarNumber,
				Position:                rp.Position,
				GridPosition:            rp.GridPosition,
				LapCount:                rp.LapCount,
				BestLapMs:               rp.BestLapMs,
				Sector1Ms:               rp.Sector(0),
				Sector2Ms:               rp.Sector(1),
				Sector3Ms:               rp.Sector(2),
				TotalTimeMs:             rp.TotalTimeMs,
				BaseTimeMs:              rp.TotalTimeMs,
				InSessionPenaltySeconds: rp.InSessionPenaltySeconds,
				Warnings:                rp.Warnings,
				Status:                  status,
				FastestLap:              rp.FastestLap,
				Pole:                    rp.Pole,
			}
			if err := tx.Create(&result).Error; err != nil {
				return err
			}

			snapshot := models.OriginalSnapshot{
				ID:          uuid.NewString(),
				SessionID:   session.ID,
				ResultID:    result.ID,
				SimDriverID: result.SimDriverID,
				Position:    result.Position,
				TotalTimeMs: result.TotalTimeMs,
				Status:      result.Status,
				Warnings:    result.Warnings,
			}
			if err := tx.Create(&snapshot).Error; err != nil {
				return err
			}
		}

		// A race closes the weekend
		if payload.SessionKind == models.SessionRace && event.Status != models.EventCompleted {
			if err := tx.Model(&models.Event{}).Where("id = ?", event.ID).
				Updates(map[string]interface{}{
					"status":       models.EventCompleted,
					"completed_at": now,
				}).Error; err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		log.Printf("[INGEST] ❌ Failed to ingest %s session for event %s: %v",
			payload.SessionKind, eventID, err)
		return nil, err
	}

	// Best-effort archive of the raw simulator output; the session record
	// is already committed, a failed upload only costs the archive link.
	if utils.ArchiveEnabled() && len(raw) > 0 {
		key := fmt.Sprintf("sessions/%s/%s.json", event.SeasonID, session.ID)
		if url, archErr := utils.ArchiveSessionPayload(key, raw); archErr != nil {
			log.Printf("[INGEST] ⚠️ Payload archive failed for session %s: %v", session.ID, archErr)
		} else {
			session.ArchiveURL = url
			if err := s.DB.Model(&models.Session{}).Where("id = ?", session.ID).
				Update("archive_url", url).Error; err != nil {
				log.Printf("[INGEST] ⚠️ Could not store archive URL for session %s: %v", session.ID, err)
			}
		}
	}

	log.Printf("[INGEST] ✅ Ingested %s session %s for event %s (%d result(s))",
		payload.SessionKind, session.ID, eventID, len(payload.Results))
	return &session, nil
}

// IngestSessionEndpoint — POST /telemetry/sessions
// Body: the decoded session payload plus a season_id field.
func (s *IngestService) IngestSessionEndpoint(c *fiber.Ctx) error {
	type Req struct {
		SeasonID string `json:"season_id"`
		models.SessionPayload
	}
	var req Req
	if err := c.BodyParser(&req); err != nil {
		return c.Status(400).JSON(fiber.Map{"error": "invalid JSON", "details": err.Error()})
	}
	if req.SeasonID == "" {
		return c.Status(400).JSON(fiber.Map{"error": "season_id is required"})
	}

	outcome, err := s.Ingest(req.SeasonID, &req.SessionPayload, c.Body())
	if err != nil {
		return respondErr(c, err)
	}
	if outcome.Orphan != nil {
		// Not an error for the telemetry collaborator: the payload is
		// parked for manual linking.
		return c.Status(202).JSON(fiber.Map{
			"message": "no matching event — session parked for review",
			"orphan":  outcome.Orphan,
		})
	}
	return c.Status(201).JSON(fiber.Map{
		"message": "session ingested",
		"session": outcome.Session,
	})
}

// IngestArchiveEndpoint — POST /telemetry/sessions/archive
// Accepts a zip of simulator result JSON files (one per session) and
// ingests each in archive order.
func (s *IngestService) IngestArchiveEndpoint(c *fiber.Ctx) error {
	seasonID := c.FormValue("season_id")
	if seasonID == "" {
		return c.Status(400).JSON(fiber.Map{"error": "season_id is required"})
	}
	fileHeader, err := c.FormFile("archive")
	if err != nil {
		return c.Status(400).JSON(fiber.Map{"error": "archive file is required"})
	}
	file, err := fileHeader.Open()
	if err != nil {
		return c.Status(400).JSON(fiber.Map{"error": "failed to open archive"})
	}
	defer file.Close()
	data, err := io.ReadAll(file)
	if err != nil {
		return c.Status(400).JSON(fiber.Map{"error": "failed to read archive"})
	}

	raws, err := utils.ReadSessionArchive(data)
	if err != nil {
		return c.Status(400).JSON(fiber.Map{"error": err.Error()})
	}

	type fileResult struct {
		Index   int    `json:"index"`
		Status  string `json:"status"` // ingested, orphaned, failed
		Session string `json:"session_id,omitempty"`
		Orphan  string `json:"orphan_id,omitempty"`
		Error   string `json:"error,omitempty"`
	}
	var summary []fileResult
	for i, raw := range raws {
		var payload models.SessionPayload
		if err := json.Unmarshal(raw, &payload); err != nil {
			summary = append(summary, fileResult{Index: i, Status: "failed", Error: "invalid session JSON"})
			continue
		}
		outcome, err := s.Ingest(seasonID, &payload, raw)
		switch {
		case err != nil:
			summary = append(summary, fileResult{Index: i, Status: "failed", Error: err.Error()})
		case outcome.Orphan != nil:
			summary = append(summary, fileResult{Index: i, Status: "orphaned", Orphan: outcome.Orphan.ID})
		default:
			summary = append(summary, fileResult{Index: i, Status: "ingested", Session: outcome.Session.ID})
		}
	}
	return c.JSON(fiber.Map{"files": summary})
}
