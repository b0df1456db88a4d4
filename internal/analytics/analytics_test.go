package analytics

import (
	"fmt"
	"testing"
	"time"

	"aoe2scout/internal/domain"
)

func duel(gameID, oppID, oppName, userCiv, oppCiv, mapName, duration string, start time.Time, win bool) domain.Match {
	user := domain.Team{Won: win, Players: []domain.Player{{ID: "100", Name: "Scout", Civ: userCiv, Won: win}}}
	opp := domain.Team{Won: !win, Players: []domain.Player{{ID: oppID, Name: oppName, Civ: oppCiv, Won: !win}}}
	end := start
	if seconds, ok := domain.ParseDuration(duration); ok {
		end = start.Add(time.Duration(seconds) * time.Second)
	}
	return domain.Match{
		GameID:    gameID,
		Mode:      "RM 1v1",
		Map:       mapName,
		Duration:  duration,
		StartedAt: start,
		EndedAt:   end,
		Teams:     []domain.Team{user, opp},
	}
}

func TestRanked(t *testing.T) {
	base := time.Date(2026, 3, 1, 18, 0, 0, 0, time.UTC)
	matches := []domain.Match{
		duel("1", "200", "Rival", "Franks", "Britons", "Arabia", "12m 0s", base, true),
		duel("2", "200", "Rival", "Franks", "Mayans", "Arabia", "45m 10s", base.Add(time.Hour), false),
		duel("3", "300", "Other", "Huns", "Britons", "Arena", "3m 5s", base.Add(2*time.Hour), true),
	}
	// Team games are excluded from ranked stats.
	tg := duel("4", "200", "Rival", "Franks", "Britons", "Arabia", "20m 0s", base.Add(3*time.Hour), true)
	tg.Mode = "RM Team"
	matches = append(matches, tg)

	stats := Ranked(matches, "100")
	if stats.Total != 3 || stats.Wins != 2 {
		t.Fatalf("total=%d wins=%d, want 3/2", stats.Total, stats.Wins)
	}
	if stats.WinRate < 66.6 || stats.WinRate > 66.7 {
		t.Errorf("WinRate = %v", stats.WinRate)
	}

	if len(stats.Opponents) != 2 {
		t.Fatalf("opponents = %v", stats.Opponents)
	}
	if stats.Opponents[0].Key != "200" || stats.Opponents[0].Matches != 2 || stats.Opponents[0].Wins != 1 {
		t.Errorf("top opponent = %+v", stats.Opponents[0])
	}
	if stats.Opponents[0].Name != "Rival" {
		t.Errorf("opponent name = %q", stats.Opponents[0].Name)
	}

	if len(stats.Duration) != len(domain.DurationBuckets) {
		t.Fatalf("duration rows = %d, want %d", len(stats.Duration), len(domain.DurationBuckets))
	}
	byLabel := map[string]Row{}
	for _, r := range stats.Duration {
		byLabel[r.Key] = r
	}
	if r := byLabel["5-15m"]; r.Matches != 1 || r.Wins != 1 {
		t.Errorf("5-15m row = %+v", r)
	}
	if r := byLabel[">= 40m"]; r.Matches != 1 || r.Wins != 0 {
		t.Errorf(">= 40m row = %+v", r)
	}
	if r := byLabel["15-25m"]; r.Matches != 0 {
		t.Errorf("15-25m row = %+v", r)
	}

	if stats.Civs[0].Key != "Franks" || stats.Civs[0].Matches != 2 {
		t.Errorf("civ rows = %v", stats.Civs)
	}
	if stats.OppCivs[0].Key != "Britons" || stats.OppCivs[0].Matches != 2 || stats.OppCivs[0].Wins != 2 {
		t.Errorf("opp civ rows = %v", stats.OppCivs)
	}
	if stats.Maps[0].Key != "Arabia" || stats.Maps[0].Matches != 2 {
		t.Errorf("map rows = %v", stats.Maps)
	}
}

func TestRankedMatchesRelicAlias(t *testing.T) {
	base := time.Date(2026, 3, 1, 18, 0, 0, 0, time.UTC)
	m := duel("1", "200", "Rival", "Goths", "Celts", "Arabia", "10m 0s", base, true)
	m.Teams[0].Players[0].ID = "598457" // relic ID, not the insights one

	stats := Ranked([]domain.Match{m}, "1520583", "598457")
	if stats.Total != 1 || stats.Wins != 1 {
		t.Fatalf("total=%d wins=%d, want 1/1", stats.Total, stats.Wins)
	}
}

func TestPrepare(t *testing.T) {
	base := time.Date(2026, 3, 1, 18, 0, 0, 0, time.UTC)
	good := duel("1", "200", "Rival", "Franks", "Britons", "Arabia", "10m 0s", base, true)
	noTime := duel("2", "200", "Rival", "Franks", "Britons", "Arabia", "10m 0s", time.Time{}, true)
	noTime.EndedAt = time.Time{}
	stranger := duel("3", "200", "Rival", "Franks", "Britons", "Arabia", "10m 0s", base.Add(time.Hour), true)
	stranger.Teams[0].Players[0].ID = "999"
	teamGame := duel("4", "200", "Rival", "Franks", "Britons", "Arabia", "10m 0s", base.Add(2*time.Hour), true)
	teamGame.Mode = "RM Team"

	entries, parseFailed, filteredOut := Prepare(
		[]domain.Match{good, noTime, stranger, teamGame},
		[]string{"RM 1v1"}, "100",
	)
	if len(entries) != 1 || entries[0].Match.GameID != "1" {
		t.Fatalf("entries = %v", entries)
	}
	if parseFailed != 1 {
		t.Errorf("parseFailed = %d, want 1", parseFailed)
	}
	if filteredOut != 2 {
		t.Errorf("filteredOut = %d, want 2", filteredOut)
	}
}

func TestPrepareDerivesEndFromDuration(t *testing.T) {
	base := time.Date(2026, 3, 1, 18, 0, 0, 0, time.UTC)
	m := duel("1", "200", "Rival", "Franks", "Britons", "Arabia", "15m 0s", base, true)
	m.EndedAt = time.Time{}

	entries, _, _ := Prepare([]domain.Match{m}, nil, "100")
	if len(entries) != 1 {
		t.Fatal("no entries")
	}
	want := base.Add(15 * time.Minute)
	if !entries[0].End.Equal(want) {
		t.Errorf("End = %v, want %v", entries[0].End, want)
	}
}

func TestGroupSessions(t *testing.T) {
	base := time.Date(2026, 3, 1, 18, 0, 0, 0, time.UTC)
	// Three games back to back, then a long break, then two more.
	var matches []domain.Match
	starts := []time.Time{
		base,
		base.Add(15 * time.Minute), // 5m after game 1 ends
		base.Add(30 * time.Minute),
		base.Add(3 * time.Hour),
		base.Add(3*time.Hour + 12*time.Minute),
	}
	for i, s := range starts {
		matches = append(matches, duel(fmt.Sprint(i+1), "200", "Rival", "Franks", "Britons", "Arabia", "10m 0s", s, i%2 == 0))
	}
	entries, _, _ := Prepare(matches, nil, "100")
	sessions := GroupSessions(entries, 20*time.Minute)
	if len(sessions) != 2 {
		t.Fatalf("sessions = %d, want 2", len(sessions))
	}
	if len(sessions[0]) != 3 || len(sessions[1]) != 2 {
		t.Fatalf("session lengths = %d/%d, want 3/2", len(sessions[0]), len(sessions[1]))
	}
}

func TestGroupSessionsGapMeasuredFromPreviousEnd(t *testing.T) {
	base := time.Date(2026, 3, 1, 18, 0, 0, 0, time.UTC)
	first := duel("1", "200", "Rival", "Franks", "Britons", "Arabia", "40m 0s", base, true)
	// Starts 50m after the first game began but only 10m after it ended.
	second := duel("2", "200", "Rival", "Franks", "Britons", "Arabia", "10m 0s", base.Add(50*time.Minute), false)

	entries, _, _ := Prepare([]domain.Match{first, second}, nil, "100")
	sessions := GroupSessions(entries, 20*time.Minute)
	if len(sessions) != 1 {
		t.Fatalf("sessions = %d, want 1 (gap counted from previous end)", len(sessions))
	}
}

func TestSessions(t *testing.T) {
	base := time.Date(2026, 3, 1, 18, 0, 0, 0, time.UTC)
	// Session 1: W W L. Session 2: L.
	var matches []domain.Match
	wins := []bool{true, true, false}
	for i, win := range wins {
		matches = append(matches, duel(fmt.Sprint(i+1), "200", "Rival", "Franks", "Britons", "Arabia", "10m 0s", base.Add(time.Duration(i)*15*time.Minute), win))
	}
	matches = append(matches, duel("4", "200", "Rival", "Franks", "Britons", "Arabia", "10m 0s", base.Add(5*time.Hour), false))

	stats := Sessions(matches, nil, 20*time.Minute, "100")
	if stats.Cached != 4 || stats.Eligible != 4 || stats.Sessions != 2 {
		t.Fatalf("cached=%d eligible=%d sessions=%d", stats.Cached, stats.Eligible, stats.Sessions)
	}

	lengths := map[int]NumberedRow{}
	for _, r := range stats.BySessionLength {
		lengths[r.N] = r
	}
	if r := lengths[3]; r.Matches != 3 || r.Wins != 2 {
		t.Errorf("length-3 row = %+v", r)
	}
	if r := lengths[1]; r.Matches != 1 || r.Wins != 0 {
		t.Errorf("length-1 row = %+v", r)
	}

	// Game 2 follows a win, game 3 follows a win.
	if stats.AfterWin.Matches != 2 || stats.AfterWin.Wins != 1 {
		t.Errorf("AfterWin = %+v", stats.AfterWin)
	}
	if stats.AfterLoss.Matches != 0 {
		t.Errorf("AfterLoss = %+v", stats.AfterLoss)
	}
	// Game 3 follows two wins and is a loss.
	if stats.AfterTwoWins.Matches != 1 || stats.AfterTwoWins.Wins != 0 {
		t.Errorf("AfterTwoWins = %+v", stats.AfterTwoWins)
	}

	numbers := map[int]NumberedRow{}
	for _, r := range stats.ByGameNumber {
		numbers[r.N] = r
	}
	if r := numbers[1]; r.Matches != 2 || r.Wins != 1 {
		t.Errorf("game-1 row = %+v", r)
	}
	if r := numbers[3]; r.Matches != 1 || r.Wins != 0 {
		t.Errorf("game-3 row = %+v", r)
	}
}
