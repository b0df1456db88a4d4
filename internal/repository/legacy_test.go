package repository

import (
	"os"
	"path/filepath"
	"testing"

	"aoe2scout/internal/domain"
)

const legacyFixture = `[
  {
    "game_id": "400123",
    "mode": "RM 1v1",
    "map": "arabia.rms",
    "duration": "20m 30s",
    "start_datetime": "2024-03-01 18:00",
    "end_datetime": "2024-03-01 18:12",
    "teams": [
      {"won": true, "players": [{"player_id": 100, "player_name": "Scout", "civ_id": 15, "civ": "Franks", "elo": 1200, "elo_change": 14, "strategy": null}]},
      {"won": false, "players": [{"id": "200", "name": "Knight", "civ_id": 41, "civ": "Teutons", "elo": 1190, "elo_change": -14}]}
    ]
  },
  {
    "match_id": "400124",
    "mode": "RM 1v1",
    "map_name": "arena.rms2",
    "duration": "17m 0s",
    "end_datetime": "2024-03-01 19:00",
    "teams": []
  },
  {"mode": "no game id, dropped"},
  "not an object either"
]`

func TestLoadLegacyCacheNormalizes(t *testing.T) {
	path := filepath.Join(t.TempDir(), "matches_12649589.json")
	if err := os.WriteFile(path, []byte(legacyFixture), 0644); err != nil {
		t.Fatal(err)
	}

	matches, err := LoadLegacyCache(path)
	if err != nil {
		t.Fatalf("LoadLegacyCache: %v", err)
	}
	if len(matches) != 2 {
		t.Fatalf("len(matches) = %d, want 2 (non-object and game-id-less entries dropped)", len(matches))
	}

	m := matches[0]
	if m.GameID != "400123" {
		t.Errorf("GameID = %q", m.GameID)
	}
	if m.Map != "Arabia" {
		t.Errorf("Map = %q, want rms suffix stripped and title-cased", m.Map)
	}
	if domain.FormatTime(m.StartedAt) != "2024-03-01 18:00" {
		t.Errorf("StartedAt = %q", domain.FormatTime(m.StartedAt))
	}
	p := m.Teams[0].Players[0]
	if p.ID != "100" || p.Name != "Scout" {
		t.Errorf("player aliases not normalized: %+v", p)
	}
	if p.EloChange == nil || *p.EloChange != 14 {
		t.Errorf("EloChange = %v", p.EloChange)
	}
	opp := m.Teams[1].Players[0]
	if opp.ID != "200" || opp.Name != "Knight" {
		t.Errorf("alias fields id/name not accepted: %+v", opp)
	}

	// Second match has no start time: derived from end minus real duration
	// (17m game time at 1.7x = 10 real minutes).
	m2 := matches[1]
	if m2.GameID != "400124" {
		t.Errorf("GameID = %q", m2.GameID)
	}
	if m2.Map != "Arena" {
		t.Errorf("Map = %q", m2.Map)
	}
	if domain.FormatTime(m2.StartedAt) != "2024-03-01 18:50" {
		t.Errorf("derived StartedAt = %q, want 2024-03-01 18:50", domain.FormatTime(m2.StartedAt))
	}
}

func TestLegacyCacheLoaderSpeedFactor(t *testing.T) {
	path := filepath.Join(t.TempDir(), "matches_12649589.json")
	if err := os.WriteFile(path, []byte(legacyFixture), 0644); err != nil {
		t.Fatal(err)
	}

	// The configured factor, not a hardcoded one, converts game time to
	// real time: 17m at 2.0x is 8m30s, so the derived start moves.
	matches, err := LegacyCacheLoader(2.0)(path)
	if err != nil {
		t.Fatalf("LegacyCacheLoader: %v", err)
	}
	m2 := matches[1]
	if domain.FormatTime(m2.StartedAt) != "2024-03-01 18:51" {
		t.Errorf("derived StartedAt = %q, want 2024-03-01 18:51", domain.FormatTime(m2.StartedAt))
	}

	// Factor 1.0 means game time is real time.
	matches, err = LegacyCacheLoader(1.0)(path)
	if err != nil {
		t.Fatalf("LegacyCacheLoader: %v", err)
	}
	if got := domain.FormatTime(matches[1].StartedAt); got != "2024-03-01 18:43" {
		t.Errorf("derived StartedAt = %q, want 2024-03-01 18:43", got)
	}
}

func TestUserFromCacheFilename(t *testing.T) {
	cases := []struct {
		name string
		want string
		ok   bool
	}{
		{"matches_12649589.json", "12649589", true},
		{"matches_abc-1.json", "abc-1", true},
		{"matches_.json", "", false},
		{"state.sqlite", "", false},
		{"matches_12649589.json.tmp", "", false},
	}
	for _, c := range cases {
		got, ok := UserFromCacheFilename(c.name)
		if got != c.want || ok != c.ok {
			t.Errorf("UserFromCacheFilename(%q) = %q, %v, want %q, %v", c.name, got, ok, c.want, c.ok)
		}
	}
}

func TestWriteLegacyCacheRoundtrip(t *testing.T) {
	elo := 1200
	change := 14
	matches := []domain.Match{{
		GameID:    "g1",
		Mode:      "RM 1v1",
		Map:       "Arabia",
		Duration:  "20m 30s",
		StartedAt: domain.ParseTime("2024-03-01 18:00"),
		EndedAt:   domain.ParseTime("2024-03-01 18:12"),
		Teams: []domain.Team{
			{Won: true, Players: []domain.Player{{ID: "100", Name: "Scout", Elo: &elo, EloChange: &change, Won: true}}},
		},
	}}

	path := filepath.Join(t.TempDir(), "matches_100.json")
	if err := WriteLegacyCache(path, matches); err != nil {
		t.Fatalf("WriteLegacyCache: %v", err)
	}
	loaded, err := LoadLegacyCache(path)
	if err != nil {
		t.Fatalf("LoadLegacyCache: %v", err)
	}
	if len(loaded) != 1 {
		t.Fatalf("len = %d", len(loaded))
	}
	got := loaded[0]
	if got.GameID != "g1" || got.Map != "Arabia" || got.Duration != "20m 30s" {
		t.Errorf("roundtrip lost fields: %+v", got)
	}
	if domain.FormatTime(got.StartedAt) != "2024-03-01 18:00" {
		t.Errorf("StartedAt = %q", domain.FormatTime(got.StartedAt))
	}
}
