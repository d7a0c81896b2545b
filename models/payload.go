package models

// SessionPayload is the decoded session object handed over by the
// telemetry collaborator. The wire-level packet decoding happens upstream;
// by the time a payload reaches the engine it is validated once at the
// ingestion boundary and never re-inspected by shape downstream.
type SessionPayload struct {
	Track          string          `json:"track"`
	SessionKind    string          `json:"session_kind"`
	SessionNumber  int             `json:"session_number,omitempty"`
	SimSessionID   string          `json:"sim_session_id,omitempty"`
	Results        []ResultPayload `json:"results"`
}

// ResultPayload is one per-competitor result inside a session payload.
type ResultPayload struct {
	SimDriverID             string  `json:"sim_driver_id"`
	PlatformID              string  `json:"platform_id,omitempty"`
	Name                    string  `json:"name"`
	CarNumber               int     `json:"car_number"`
	Position                int     `json:"position"`
	GridPosition            int     `json:"grid_position"`
	LapCount                int     `json:"lap_count"`
	BestLapMs               int64   `json:"best_lap_ms"`
	SectorMs                []int64 `json:"sector_ms"`
	TotalTimeMs             *int64  `json:"total_time_ms"`
	InSessionPenaltySeconds int     `json:"in_session_penalty_seconds"`
	Warnings                int     `json:"warnings"`
	Status                  string  `json:"status"`
	FastestLap              bool    `json:"fastest_lap"`
	Pole                    bool    `json:"pole"`
}

// Validate rejects structurally broken payloads before anything is written.
func (p *SessionPayload) Validate() string {
	if p.Track == "" {
		return "track is required"
	}
	switch p.SessionKind {
	case SessionPractice, SessionQualifying, SessionRace:
	default:
		return "session_kind must be practice, qualifying or race"
	}
	if len(p.Results) == 0 {
		return "results must not be empty"
	}
	for i := range p.Results {
		if p.Results[i].SimDriverID == "" {
			return "every result needs a sim_driver_id"
		}
	}
	return ""
}

// Sector returns the nth sector time, tolerating short slices from
// simulators that report fewer than three sectors.
func (r *ResultPayload) Sector(n int) int64 {
	if n < len(r.SectorMs) {
		return r.SectorMs[n]
	}
	return 0
}
