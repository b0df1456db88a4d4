package repository

// Legacy JSON cache support. Earlier versions kept one matches_<user>.json
// file per tracked player in the data directory; these can still be imported
// into the SQLite store. The format is loose: field names drifted over time,
// so the decoder accepts the known aliases.

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"regexp"

	"aoe2scout/internal/domain"
)

var cacheFileRe = regexp.MustCompile(`^matches_([0-9A-Za-z_-]+)\.json$`)

// UserFromCacheFilename extracts the user ID from a legacy cache filename
// like "matches_12649589.json". ok is false for any other name.
func UserFromCacheFilename(name string) (userID string, ok bool) {
	m := cacheFileRe.FindStringSubmatch(name)
	if m == nil {
		return "", false
	}
	return m[1], true
}

// flexString decodes a JSON string or number into a string; null and absent
// both yield "".
type flexString string

func (f *flexString) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || string(b) == "null" {
		*f = ""
		return nil
	}
	if b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*f = flexString(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return err
	}
	*f = flexString(n.String())
	return nil
}

// flexInt decodes a JSON number (possibly float-formatted) into *int; null,
// absent and non-numeric values all yield nil.
type flexInt struct {
	value *int
}

func (f *flexInt) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || string(b) == "null" {
		f.value = nil
		return nil
	}
	var n float64
	if err := json.Unmarshal(b, &n); err != nil {
		f.value = nil
		return nil
	}
	v := int(n)
	f.value = &v
	return nil
}

type legacyPlayer struct {
	PlayerID   flexString `json:"player_id"`
	ID         flexString `json:"id"`
	PlayerName string     `json:"player_name"`
	Name       string     `json:"name"`
	CivID      flexInt    `json:"civ_id"`
	Civ        string     `json:"civ"`
	Elo        flexInt    `json:"elo"`
	EloChange  flexInt    `json:"elo_change"`
	Strategy   string     `json:"strategy"`
	Won        bool       `json:"won"`
}

type legacyTeam struct {
	Won     bool           `json:"won"`
	Players []legacyPlayer `json:"players"`
}

type legacyMatch struct {
	GameID         flexString   `json:"game_id"`
	MatchID        flexString   `json:"match_id"`
	Mode           string       `json:"mode"`
	Map            string       `json:"map"`
	MapName        string       `json:"map_name"`
	Duration       string       `json:"duration"`
	StartDatetime  string       `json:"start_datetime"`
	Datetime       string       `json:"datetime"`
	DatetimeParsed string       `json:"datetime_parsed"`
	Date           string       `json:"date"`
	EndDatetime    string       `json:"end_datetime"`
	Teams          []legacyTeam `json:"teams"`
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

// normalize converts a legacy entry into a domain.Match. ok is false for
// entries with no game ID, which the importer drops. speedFactor converts
// game-time durations to real time when a start timestamp must be derived.
func (lm legacyMatch) normalize(speedFactor float64) (domain.Match, bool) {
	gameID := firstNonEmpty(string(lm.GameID), string(lm.MatchID))
	if gameID == "" {
		return domain.Match{}, false
	}

	m := domain.Match{
		GameID:   gameID,
		Mode:     lm.Mode,
		Map:      domain.CleanMapName(firstNonEmpty(lm.Map, lm.MapName, "Unknown Map")),
		Duration: lm.Duration,
	}
	m.StartedAt = domain.ParseTime(firstNonEmpty(lm.StartDatetime, lm.Datetime, lm.DatetimeParsed, lm.Date))
	m.EndedAt = domain.ParseTime(lm.EndDatetime)
	// Derive a missing start time from the end time minus real duration.
	if m.StartedAt.IsZero() && !m.EndedAt.IsZero() {
		if real, ok := domain.RealDuration(lm.Duration, speedFactor); ok {
			m.StartedAt = m.EndedAt.Add(-real)
		}
	}

	for _, lt := range lm.Teams {
		team := domain.Team{Won: lt.Won}
		for _, lp := range lt.Players {
			team.Players = append(team.Players, domain.Player{
				ID:        firstNonEmpty(string(lp.PlayerID), string(lp.ID)),
				Name:      firstNonEmpty(lp.PlayerName, lp.Name),
				CivID:     lp.CivID.value,
				Civ:       lp.Civ,
				Elo:       lp.Elo.value,
				EloChange: lp.EloChange.value,
				Strategy:  lp.Strategy,
				Won:       lp.Won,
			})
		}
		m.Teams = append(m.Teams, team)
	}
	return m, true
}

// LegacyCacheLoader returns a loader for legacy matches_<user>.json cache
// files that derives missing start times with the given game-speed factor.
func LegacyCacheLoader(speedFactor float64) func(path string) ([]domain.Match, error) {
	if speedFactor <= 0 {
		speedFactor = domain.DefaultGameSpeedFactor
	}
	return func(path string) ([]domain.Match, error) {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read legacy cache: %w", err)
		}
		var raw []json.RawMessage
		if err := json.Unmarshal(data, &raw); err != nil {
			return nil, fmt.Errorf("decode legacy cache %s: %w", path, err)
		}
		var matches []domain.Match
		for _, entry := range raw {
			// Entries that are not match objects are dropped, same as the old loader.
			var lm legacyMatch
			if err := json.Unmarshal(entry, &lm); err != nil {
				continue
			}
			if m, ok := lm.normalize(speedFactor); ok {
				matches = append(matches, m)
			}
		}
		return domain.Dedupe(matches), nil
	}
}

// LoadLegacyCache reads a legacy cache with the default game-speed factor.
// Entries without a game ID are dropped silently, matching the old loader.
func LoadLegacyCache(path string) ([]domain.Match, error) {
	return LegacyCacheLoader(domain.DefaultGameSpeedFactor)(path)
}

// WriteLegacyCache renders matches back into the legacy JSON format. Used by
// the stats CLI's --export flag so older tooling keeps working.
func WriteLegacyCache(path string, matches []domain.Match) error {
	type outPlayer struct {
		PlayerID  string  `json:"player_id"`
		Name      string  `json:"player_name"`
		CivID     *int    `json:"civ_id"`
		Civ       string  `json:"civ"`
		Elo       *int    `json:"elo"`
		EloChange *int    `json:"elo_change"`
		Strategy  *string `json:"strategy"`
		Won       bool    `json:"won"`
	}
	type outTeam struct {
		Won     bool        `json:"won"`
		Players []outPlayer `json:"players"`
	}
	type outMatch struct {
		GameID        string    `json:"game_id"`
		Mode          string    `json:"mode"`
		Map           string    `json:"map"`
		Duration      string    `json:"duration"`
		StartDatetime *string   `json:"start_datetime"`
		EndDatetime   *string   `json:"end_datetime"`
		Teams         []outTeam `json:"teams"`
	}

	optTime := func(s string) *string {
		if s == "" {
			return nil
		}
		return &s
	}

	out := make([]outMatch, 0, len(matches))
	for _, m := range domain.Dedupe(matches) {
		om := outMatch{
			GameID:        m.GameID,
			Mode:          m.Mode,
			Map:           m.Map,
			Duration:      m.Duration,
			StartDatetime: optTime(domain.FormatTime(m.StartedAt)),
			EndDatetime:   optTime(domain.FormatTime(m.EndedAt)),
		}
		for _, t := range m.Teams {
			ot := outTeam{Won: t.Won}
			for _, p := range t.Players {
				var strategy *string
				if p.Strategy != "" {
					s := p.Strategy
					strategy = &s
				}
				ot.Players = append(ot.Players, outPlayer{
					PlayerID:  p.ID,
					Name:      p.Name,
					CivID:     p.CivID,
					Civ:       p.Civ,
					Elo:       p.Elo,
					EloChange: p.EloChange,
					Strategy:  strategy,
					Won:       p.Won,
				})
			}
			om.Teams = append(om.Teams, ot)
		}
		out = append(out, om)
	}

	data, err := json.MarshalIndent(out, "", "  ")
	if err != nil {
		return fmt.Errorf("encode legacy cache: %w", err)
	}
	return os.WriteFile(path, append(data, '\n'), 0644)
}
