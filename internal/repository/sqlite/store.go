package sqlite

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"aoe2scout/internal/domain"
	"aoe2scout/internal/scout"
)

const schema = `
CREATE TABLE IF NOT EXISTS matches (
	user_id TEXT NOT NULL,
	game_id TEXT NOT NULL,
	mode TEXT NOT NULL DEFAULT '',
	map TEXT NOT NULL DEFAULT '',
	duration TEXT NOT NULL DEFAULT '',
	started_at TEXT NOT NULL DEFAULT '',
	ended_at TEXT NOT NULL DEFAULT '',
	teams TEXT NOT NULL DEFAULT '[]',
	PRIMARY KEY (user_id, game_id)
);
CREATE TABLE IF NOT EXISTS id_mappings (
	insights_id TEXT PRIMARY KEY,
	relic_id TEXT NOT NULL
);
CREATE TABLE IF NOT EXISTS fetch_status (
	user_id TEXT PRIMARY KEY,
	state TEXT NOT NULL DEFAULT 'idle',
	pages_fetched INTEGER NOT NULL DEFAULT 0,
	match_count INTEGER NOT NULL DEFAULT 0,
	error TEXT NOT NULL DEFAULT '',
	updated_at TEXT NOT NULL DEFAULT ''
);
CREATE TABLE IF NOT EXISTS meta (
	key TEXT PRIMARY KEY,
	value TEXT NOT NULL
);
`

// indexes for the common query pattern (per-user chronological listing)
const indexes = `
CREATE INDEX IF NOT EXISTS idx_matches_user_started ON matches(user_id, started_at);
`

// Store implements scout.MatchRepository using SQLite.
type Store struct {
	db *sql.DB
}

// New opens the SQLite database at path (creating parent dirs and schema)
// and returns a MatchRepository.
func New(path string) (scout.MatchRepository, error) {
	dir := filepath.Dir(path)
	if dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("sqlite mkdir: %w", err)
		}
	}
	db, err := sql.Open("sqlite", path+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("sqlite open: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("sqlite schema: %w", err)
	}
	if _, err := db.Exec(indexes); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("sqlite indexes: %w", err)
	}
	// Migrations for existing databases (ignore errors for already-applied ones).
	_, _ = db.Exec("ALTER TABLE fetch_status ADD COLUMN match_count INTEGER NOT NULL DEFAULT 0")
	return &Store{db: db}, nil
}

// Close releases the database connection. Call on shutdown for clean exit.
func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	err := s.db.Close()
	s.db = nil
	return err
}

// formatTime renders t for a TEXT column, zero time as "".
func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format(time.RFC3339Nano)
}

// parseTime parses RFC3339Nano, tolerating "" as the zero time.
func parseTime(s, context string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("%s: parse timestamp %q: %w", context, s, err)
	}
	return t, nil
}

// LoadMatches implements scout.MatchRepository. Matches come back ascending
// by start time, the stored order.
func (s *Store) LoadMatches(userID string) ([]domain.Match, error) {
	rows, err := s.db.Query(
		"SELECT game_id, mode, map, duration, started_at, ended_at, teams FROM matches WHERE user_id = ? ORDER BY started_at, ended_at, game_id",
		userID)
	if err != nil {
		return nil, fmt.Errorf("matches: %w", err)
	}
	defer rows.Close()

	var matches []domain.Match
	for rows.Next() {
		var m domain.Match
		var started, ended, teams string
		if err := rows.Scan(&m.GameID, &m.Mode, &m.Map, &m.Duration, &started, &ended, &teams); err != nil {
			return nil, err
		}
		if m.StartedAt, err = parseTime(started, "matches started_at"); err != nil {
			return nil, err
		}
		if m.EndedAt, err = parseTime(ended, "matches ended_at"); err != nil {
			return nil, err
		}
		if err := json.Unmarshal([]byte(teams), &m.Teams); err != nil {
			return nil, fmt.Errorf("matches teams: %w", err)
		}
		matches = append(matches, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("matches iteration: %w", err)
	}
	return matches, nil
}

// SaveMatches implements scout.MatchRepository. The user's rows are replaced
// wholesale with the deduplicated, sorted input.
func (s *Store) SaveMatches(userID string, matches []domain.Match) error {
	matches = domain.Dedupe(matches)

	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.Exec("DELETE FROM matches WHERE user_id = ?", userID); err != nil {
		return err
	}
	for _, m := range matches {
		teams, err := json.Marshal(m.Teams)
		if err != nil {
			return fmt.Errorf("marshal teams for %s: %w", m.GameID, err)
		}
		if _, err := tx.Exec(
			"INSERT INTO matches (user_id, game_id, mode, map, duration, started_at, ended_at, teams) VALUES (?, ?, ?, ?, ?, ?, ?, ?)",
			userID, m.GameID, m.Mode, m.Map, m.Duration, formatTime(m.StartedAt), formatTime(m.EndedAt), string(teams)); err != nil {
			return err
		}
	}
	return tx.Commit()
}

// UserIDs implements scout.MatchRepository: every user with stored matches.
func (s *Store) UserIDs() ([]string, error) {
	rows, err := s.db.Query("SELECT DISTINCT user_id FROM matches ORDER BY user_id")
	if err != nil {
		return nil, fmt.Errorf("user_ids: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("user_ids iteration: %w", err)
	}
	return ids, nil
}

// RelicID implements scout.MatchRepository. Returns "" when no mapping is
// cached.
func (s *Store) RelicID(insightsID string) (string, error) {
	var relicID string
	err := s.db.QueryRow("SELECT relic_id FROM id_mappings WHERE insights_id = ?", insightsID).Scan(&relicID)
	if err == sql.ErrNoRows {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("id_mappings: %w", err)
	}
	return relicID, nil
}

// SaveRelicID implements scout.MatchRepository.
func (s *Store) SaveRelicID(insightsID, relicID string) error {
	_, err := s.db.Exec(
		"INSERT INTO id_mappings (insights_id, relic_id) VALUES (?, ?) ON CONFLICT(insights_id) DO UPDATE SET relic_id = excluded.relic_id",
		insightsID, relicID)
	if err != nil {
		return fmt.Errorf("id_mappings: %w", err)
	}
	return nil
}

// FetchStatus implements scout.MatchRepository. Unknown users get an idle
// status.
func (s *Store) FetchStatus(userID string) (scout.FetchStatus, error) {
	fs := scout.FetchStatus{UserID: userID, State: scout.FetchStateIdle}
	var updated string
	err := s.db.QueryRow(
		"SELECT state, pages_fetched, match_count, error, updated_at FROM fetch_status WHERE user_id = ?",
		userID).Scan(&fs.State, &fs.PagesFetched, &fs.MatchCount, &fs.Error, &updated)
	if err == sql.ErrNoRows {
		return fs, nil
	}
	if err != nil {
		return fs, fmt.Errorf("fetch_status: %w", err)
	}
	if fs.UpdatedAt, err = parseTime(updated, "fetch_status updated_at"); err != nil {
		return fs, err
	}
	return fs, nil
}

// SaveFetchStatus implements scout.MatchRepository.
func (s *Store) SaveFetchStatus(fs scout.FetchStatus) error {
	_, err := s.db.Exec(
		`INSERT INTO fetch_status (user_id, state, pages_fetched, match_count, error, updated_at) VALUES (?, ?, ?, ?, ?, ?)
		 ON CONFLICT(user_id) DO UPDATE SET state = excluded.state, pages_fetched = excluded.pages_fetched,
		 match_count = excluded.match_count, error = excluded.error, updated_at = excluded.updated_at`,
		fs.UserID, fs.State, fs.PagesFetched, fs.MatchCount, fs.Error, formatTime(fs.UpdatedAt))
	if err != nil {
		return fmt.Errorf("fetch_status: %w", err)
	}
	return nil
}
