package workers

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"time"

	"race-league-system/models"
	"race-league-system/utils"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// MemberFromProfile matches the JSON response from the league profile
// service. The result engine never mutates competitors; this worker is
// the one place the local roster changes.
type MemberFromProfile struct {
	ID         string    `json:"id"`
	Name       string    `json:"name"`
	Team       string    `json:"team"`
	CarNumber  int       `json:"car_number"`
	PlatformID *string   `json:"platform_id,omitempty"`
	IsActive   bool      `json:"is_active"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// GetMemberChangesResponse is the top-level structure of the profile
// service response.
type GetMemberChangesResponse struct {
	Members []MemberFromProfile `json:"members"`
}

type RosterSyncWorker struct {
	db           *gorm.DB
	interval     time.Duration
	baseURL      string // e.g., "http://localhost:8500"
	endpointPath string // e.g., "/api/v1/public/members"
	serviceToken string
}

func NewRosterSyncWorker(db *gorm.DB, profileServiceBaseURL, endpointPath, serviceToken string) *RosterSyncWorker {
	return &RosterSyncWorker{
		db:           db,
		interval:     1 * time.Minute,
		baseURL:      profileServiceBaseURL,
		endpointPath: endpointPath,
		serviceToken: serviceToken,
	}
}

func (w *RosterSyncWorker) Start(ctx context.Context) {
	log.Println("🔁 Starting Roster Sync Worker (profile-service → competitors)…")
	go w.run(ctx)
}

func (w *RosterSyncWorker) run(ctx context.Context) {
	// Initial sync (backfill if needed) - sync from the beginning of time
	if err := w.syncBatch(ctx, time.Time{}); err != nil {
		log.Printf("⚠️ Initial roster sync failed: %v", err)
	}

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			lastSyncTime := w.getLastSyncTime()
			if err := w.syncBatch(ctx, lastSyncTime); err != nil {
				log.Printf("❌ Roster sync batch failed: %v", err)
			}
		case <-ctx.Done():
			log.Println("⏹️ Roster Sync Worker stopped")
			return
		}
	}
}

// getLastSyncTime finds the most recent UpdatedAt in the local roster.
func (w *RosterSyncWorker) getLastSyncTime() time.Time {
	var lastTime time.Time
	err := w.db.Raw("SELECT MAX(updated_at) FROM competitors").Scan(&lastTime).Error
	if err != nil || lastTime.IsZero() {
		return time.Unix(0, 0)
	}
	return lastTime
}

// syncBatch fetches member changes from the profile service and upserts
// the local competitor table.
func (w *RosterSyncWorker) syncBatch(ctx context.Context, since time.Time) error {
	sinceStr := since.UTC().Format(time.RFC3339)

	base, err := url.Parse(w.baseURL)
	if err != nil {
		return fmt.Errorf("invalid profile service URL '%s': %w", w.baseURL, err)
	}
	endpointURL := base.JoinPath(w.endpointPath)
	q := endpointURL.Query()
	q.Set("since", sinceStr)
	endpointURL.RawQuery = q.Encode()
	finalURL := endpointURL.String()

	req, err := http.NewRequestWithContext(ctx, "GET", finalURL, nil)
	if err != nil {
		return fmt.Errorf("failed to create request to %s: %w", finalURL, err)
	}
	req.Header.Set("X-Service-Token", w.serviceToken)

	resp, err := utils.HTTPClient.Do(req)
	if err != nil {
		return fmt.Errorf("HTTP request to profile service failed: %w", err)
	}
	defer func() {
		_, _ = io.Copy(io.Discard, resp.Body)
		_ = resp.Body.Close()
	}()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		log.Printf("[ROSTER] ❌ Profile service returned %d for %s: %s", resp.StatusCode, finalURL, string(body))
		return fmt.Errorf("profile service non-200 response: %d", resp.StatusCode)
	}

	var response GetMemberChangesResponse
	if err := json.NewDecoder(resp.Body).Decode(&response); err != nil {
		return fmt.Errorf("failed to decode profile service response: %w", err)
	}

	if len(response.Members) == 0 {
		return nil
	}
	log.Printf("[ROSTER] 📥 Processing %d member(s) from profile service…", len(response.Members))

	var upsertCount, errorCount int
	for _, member := range response.Members {
		competitor := models.Competitor{
			ID:         member.ID,
			Name:       member.Name,
			Team:       member.Team,
			CarNumber:  member.CarNumber,
			PlatformID: member.PlatformID,
			IsActive:   member.IsActive,
			CreatedAt:  member.CreatedAt,
			UpdatedAt:  member.UpdatedAt,
		}

		if err := w.db.Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "id"}},
			DoUpdates: clause.AssignmentColumns([]string{
				"name", "team", "car_number", "platform_id", "is_active", "updated_at",
			}),
		}).Create(&competitor).Error; err != nil {
			errorCount++
			log.Printf("[ROSTER] ⚠️ Failed to upsert competitor (id=%q, name=%q): %v",
				member.ID, member.Name, err)
		} else {
			upsertCount++
		}
	}

	log.Printf("[ROSTER] ✅ Synced %d member(s) (%d upserted, %d errors)",
		len(response.Members), upsertCount, errorCount)
	return nil
}
