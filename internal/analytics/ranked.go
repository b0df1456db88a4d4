// Package analytics computes ranked and session statistics over a user's
// match history.
package analytics

import (
	"sort"

	"aoe2scout/internal/domain"
)

// Row is one aggregate line: matches played, matches won.
type Row struct {
	Key     string  `json:"key"`
	Name    string  `json:"name,omitempty"`
	Matches int     `json:"matches"`
	Wins    int     `json:"wins"`
	WinRate float64 `json:"win_rate"`
}

func winRate(wins, matches int) float64 {
	if matches == 0 {
		return 0
	}
	return float64(wins) / float64(matches) * 100
}

// RankedStats aggregates a user's RM 1v1 record.
type RankedStats struct {
	Total   int     `json:"total"`
	Wins    int     `json:"wins"`
	WinRate float64 `json:"win_rate"`

	Opponents []Row `json:"opponents"`
	Duration  []Row `json:"duration"`
	Civs      []Row `json:"civs"`
	OppCivs   []Row `json:"opp_civs"`
	Maps      []Row `json:"maps"`
}

type counter struct {
	name    string
	matches int
	wins    int
}

type counterSet map[string]*counter

func (cs counterSet) add(key, name string, win bool) {
	c := cs[key]
	if c == nil {
		c = &counter{}
		cs[key] = c
	}
	if name != "" {
		c.name = name
	}
	c.matches++
	if win {
		c.wins++
	}
}

// rows flattens a counter set sorted by matches desc, wins desc, key asc.
func (cs counterSet) rows() []Row {
	out := make([]Row, 0, len(cs))
	for key, c := range cs {
		out = append(out, Row{
			Key:     key,
			Name:    c.name,
			Matches: c.matches,
			Wins:    c.wins,
			WinRate: winRate(c.wins, c.matches),
		})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Matches != out[j].Matches {
			return out[i].Matches > out[j].Matches
		}
		if out[i].Wins != out[j].Wins {
			return out[i].Wins > out[j].Wins
		}
		return out[i].Key < out[j].Key
	})
	return out
}

func isRanked1v1(mode string) bool {
	return mode == "RM 1v1" || mode == "1v1"
}

// Ranked computes RM 1v1 statistics for the user identified by any of
// userIDs. Callers pass both the aoe2insights ID and the resolved Relic ID
// when known, since cached matches may carry either.
func Ranked(matches []domain.Match, userIDs ...string) RankedStats {
	var total, wins int
	opponents := counterSet{}
	duration := counterSet{}
	civs := counterSet{}
	oppCivs := counterSet{}
	maps := counterSet{}

	for _, m := range matches {
		if !isRanked1v1(m.Mode) {
			continue
		}
		win, player, ok := m.Outcome(userIDs...)
		if !ok {
			continue
		}
		opps := m.Opponents(userIDs...)
		if len(opps) == 0 {
			continue
		}
		total++
		if win {
			wins++
		}

		if seconds, ok := domain.ParseDuration(m.Duration); ok {
			if label := domain.BucketLabel(seconds); label != "" {
				duration.add(label, "", win)
			}
		}
		if player.Civ != "" {
			civs.add(player.Civ, "", win)
		}
		if m.Map != "" {
			maps.add(m.Map, "", win)
		}
		for _, op := range opps {
			key := op.ID
			if key == "" {
				key = "name:" + op.Name
			}
			name := op.Name
			if name == "" {
				name = key
			}
			opponents.add(key, name, win)
			if op.Civ != "" {
				oppCivs.add(op.Civ, "", win)
			}
		}
	}

	return RankedStats{
		Total:     total,
		Wins:      wins,
		WinRate:   winRate(wins, total),
		Opponents: opponents.rows(),
		Duration:  orderedDurationRows(duration),
		Civs:      civs.rows(),
		OppCivs:   oppCivs.rows(),
		Maps:      maps.rows(),
	}
}

// orderedDurationRows lists every duration bucket in ascending order,
// including empty ones.
func orderedDurationRows(cs counterSet) []Row {
	out := make([]Row, 0, len(domain.DurationBuckets))
	for _, b := range domain.DurationBuckets {
		row := Row{Key: b.Label}
		if c := cs[b.Label]; c != nil {
			row.Matches = c.matches
			row.Wins = c.wins
			row.WinRate = winRate(c.wins, c.matches)
		}
		out = append(out, row)
	}
	return out
}
