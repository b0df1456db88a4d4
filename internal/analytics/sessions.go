package analytics

import (
	"sort"
	"time"

	"aoe2scout/internal/domain"
)

// Entry is one eligible match in a play session.
type Entry struct {
	Match domain.Match
	Start time.Time
	End   time.Time
	Win   bool
}

// Session is a run of matches separated from the next by an idle gap.
type Session []Entry

// Prepare filters matches down to the ones usable for session analytics:
// a parseable start time and a determinable outcome for the user. It
// reports how many matches failed time parsing and how many were filtered
// out by mode or missing outcome.
func Prepare(matches []domain.Match, modeFilter []string, userIDs ...string) (entries []Entry, parseFailed, filteredOut int) {
	for _, m := range matches {
		if len(modeFilter) > 0 && !containsString(modeFilter, m.Mode) {
			filteredOut++
			continue
		}
		if m.StartedAt.IsZero() {
			parseFailed++
			continue
		}
		win, _, ok := m.Outcome(userIDs...)
		if !ok {
			filteredOut++
			continue
		}
		end := m.EndedAt
		if end.IsZero() {
			end = m.StartedAt
			if seconds, ok := domain.ParseDuration(m.Duration); ok {
				end = m.StartedAt.Add(time.Duration(seconds) * time.Second)
			}
		}
		entries = append(entries, Entry{Match: m, Start: m.StartedAt, End: end, Win: win})
	}
	return entries, parseFailed, filteredOut
}

func containsString(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

// GroupSessions splits entries into sessions. A new session starts when the
// gap between a match's start and the previous match's end exceeds idle.
func GroupSessions(entries []Entry, idle time.Duration) []Session {
	sorted := make([]Entry, len(entries))
	copy(sorted, entries)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Start.Before(sorted[j].Start) })

	var sessions []Session
	var current Session
	var lastEnd time.Time
	for _, e := range sorted {
		if !lastEnd.IsZero() && e.Start.Sub(lastEnd) > idle {
			if len(current) > 0 {
				sessions = append(sessions, current)
			}
			current = nil
		}
		current = append(current, e)
		lastEnd = e.End
	}
	if len(current) > 0 {
		sessions = append(sessions, current)
	}
	return sessions
}

// NumberedRow is an aggregate keyed by an integer, such as session length
// or game position.
type NumberedRow struct {
	N       int     `json:"n"`
	Matches int     `json:"matches"`
	Wins    int     `json:"wins"`
	WinRate float64 `json:"win_rate"`
}

// SessionStats summarizes win rates across and within sessions.
type SessionStats struct {
	Cached      int `json:"cached"`
	Eligible    int `json:"eligible"`
	ParseFailed int `json:"parse_failed"`
	FilteredOut int `json:"filtered_out"`
	Sessions    int `json:"sessions"`

	// BySessionLength groups all games from sessions of length N.
	BySessionLength []NumberedRow `json:"by_session_length"`
	// ByGameNumber groups games by their position within a session.
	ByGameNumber []NumberedRow `json:"by_game_number"`

	AfterWin       Row `json:"after_win"`
	AfterLoss      Row `json:"after_loss"`
	AfterTwoWins   Row `json:"after_two_wins"`
	AfterTwoLosses Row `json:"after_two_losses"`
}

type tally struct{ matches, wins int }

func (t *tally) add(win bool) {
	t.matches++
	if win {
		t.wins++
	}
}

func (t tally) row(key string) Row {
	return Row{Key: key, Matches: t.matches, Wins: t.wins, WinRate: winRate(t.wins, t.matches)}
}

// Sessions computes session analytics over the user's matches.
func Sessions(matches []domain.Match, modeFilter []string, idle time.Duration, userIDs ...string) SessionStats {
	entries, parseFailed, filteredOut := Prepare(matches, modeFilter, userIDs...)
	sessions := GroupSessions(entries, idle)

	byLength := map[int]*tally{}
	byNumber := map[int]*tally{}
	var afterWin, afterLoss, afterTwoWins, afterTwoLosses tally

	for _, sess := range sessions {
		results := make([]bool, len(sess))
		for i, e := range sess {
			results[i] = e.Win
		}
		n := len(results)
		lt := byLength[n]
		if lt == nil {
			lt = &tally{}
			byLength[n] = lt
		}
		for i, win := range results {
			lt.add(win)
			nt := byNumber[i+1]
			if nt == nil {
				nt = &tally{}
				byNumber[i+1] = nt
			}
			nt.add(win)
			if i >= 1 {
				if results[i-1] {
					afterWin.add(win)
				} else {
					afterLoss.add(win)
				}
			}
			if i >= 2 {
				if results[i-1] && results[i-2] {
					afterTwoWins.add(win)
				}
				if !results[i-1] && !results[i-2] {
					afterTwoLosses.add(win)
				}
			}
		}
	}

	return SessionStats{
		Cached:          len(matches),
		Eligible:        len(entries),
		ParseFailed:     parseFailed,
		FilteredOut:     filteredOut,
		Sessions:        len(sessions),
		BySessionLength: numberedRows(byLength),
		ByGameNumber:    numberedRows(byNumber),
		AfterWin:        afterWin.row("after_win"),
		AfterLoss:       afterLoss.row("after_loss"),
		AfterTwoWins:    afterTwoWins.row("after_two_wins"),
		AfterTwoLosses:  afterTwoLosses.row("after_two_losses"),
	}
}

func numberedRows(m map[int]*tally) []NumberedRow {
	out := make([]NumberedRow, 0, len(m))
	for n, t := range m {
		out = append(out, NumberedRow{N: n, Matches: t.matches, Wins: t.wins, WinRate: winRate(t.wins, t.matches)})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].N < out[j].N })
	return out
}
