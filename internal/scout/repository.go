// Package scout implements application use cases and defines ports
// (repository interfaces).
package scout

import (
	"time"

	"aoe2scout/internal/domain"
)

// Backfill states for a user's fetch status.
const (
	FetchStateIdle     = "idle"
	FetchStateRunning  = "running"
	FetchStateComplete = "complete"
	FetchStateError    = "error"
)

// FetchStatus describes how far a user's history has been fetched. The web
// UI polls it while a backfill job runs.
type FetchStatus struct {
	UserID       string    `json:"user_id"`
	State        string    `json:"state"`
	PagesFetched int       `json:"pages_fetched"`
	MatchCount   int       `json:"match_count"`
	Error        string    `json:"error,omitempty"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// MatchRepository persists per-user match history, insights-to-Relic ID
// mappings and fetch status. Implementation: internal/repository/sqlite.
type MatchRepository interface {
	LoadMatches(userID string) ([]domain.Match, error)
	SaveMatches(userID string, matches []domain.Match) error
	UserIDs() ([]string, error)

	RelicID(insightsID string) (string, error)
	SaveRelicID(insightsID, relicID string) error

	FetchStatus(userID string) (FetchStatus, error)
	SaveFetchStatus(FetchStatus) error
}
