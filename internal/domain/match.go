// Package domain holds match-history entities and the parsing rules shared
// by the fetchers, the store and the analytics. It has no dependencies on
// other packages.
package domain

import (
	"sort"
	"time"
)

// Player is one participant in a match.
type Player struct {
	ID        string `json:"player_id"`
	Name      string `json:"player_name"`
	CivID     *int   `json:"civ_id"`
	Civ       string `json:"civ"`
	Elo       *int   `json:"elo"`
	EloChange *int   `json:"elo_change"`
	Strategy  string `json:"strategy,omitempty"`
	Won       bool   `json:"won"`
}

// Team is one side of a match.
type Team struct {
	Won     bool     `json:"won"`
	Players []Player `json:"players"`
}

// Match is a single played game. StartedAt/EndedAt are zero when unknown;
// Duration is the raw "1h 2m 3s" game-time string.
type Match struct {
	GameID    string    `json:"game_id"`
	Mode      string    `json:"mode"`
	Map       string    `json:"map"`
	Duration  string    `json:"duration,omitempty"`
	StartedAt time.Time `json:"started_at,omitzero"`
	EndedAt   time.Time `json:"ended_at,omitzero"`
	Teams     []Team    `json:"teams"`
}

// SortKey orders matches chronologically: start time when known, end time as
// fallback, zero time last resort (unparseable matches sort first).
func (m Match) SortKey() time.Time {
	if !m.StartedAt.IsZero() {
		return m.StartedAt
	}
	return m.EndedAt
}

// Outcome returns whether the given user won the match and the user's player
// entry. The user may appear under either of the two IDs (insights profile ID
// or resolved Relic ID). ok is false when the user is not in the match.
func (m Match) Outcome(userIDs ...string) (won bool, player Player, ok bool) {
	ids := make(map[string]bool, len(userIDs))
	for _, id := range userIDs {
		if id != "" {
			ids[id] = true
		}
	}
	for _, team := range m.Teams {
		for _, p := range team.Players {
			if ids[p.ID] {
				return team.Won, p, true
			}
		}
	}
	return false, Player{}, false
}

// Opponents returns the players on every team the user is not on.
func (m Match) Opponents(userIDs ...string) []Player {
	ids := make(map[string]bool, len(userIDs))
	for _, id := range userIDs {
		if id != "" {
			ids[id] = true
		}
	}
	userTeam := -1
	for ti, team := range m.Teams {
		for _, p := range team.Players {
			if ids[p.ID] {
				userTeam = ti
			}
		}
	}
	if userTeam < 0 {
		return nil
	}
	var opps []Player
	for ti, team := range m.Teams {
		if ti == userTeam {
			continue
		}
		opps = append(opps, team.Players...)
	}
	return opps
}

// Dedupe collapses matches by game ID (the later entry wins, matching the
// fetch order where newer fetches are appended) and returns them sorted
// ascending by SortKey.
func Dedupe(matches []Match) []Match {
	unique := make(map[string]Match, len(matches))
	for _, m := range matches {
		if m.GameID != "" {
			unique[m.GameID] = m
		}
	}
	out := make([]Match, 0, len(unique))
	for _, m := range unique {
		out = append(out, m)
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].SortKey().Before(out[j].SortKey())
	})
	return out
}

// KnownIDs returns the set of game IDs present in matches.
func KnownIDs(matches []Match) map[string]bool {
	ids := make(map[string]bool, len(matches))
	for _, m := range matches {
		if m.GameID != "" {
			ids[m.GameID] = true
		}
	}
	return ids
}
