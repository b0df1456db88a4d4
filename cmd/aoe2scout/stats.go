package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"

	"aoe2scout/internal/analytics"
	"aoe2scout/internal/repository"
)

// runStatsCommand prints ranked and session analytics for cached users.
func runStatsCommand(args []string) {
	fs := flag.NewFlagSet("stats", flag.ExitOnError)
	user := fs.String("user", "", "only report this user ID (default: all cached users)")
	export := fs.String("export", "", "also write matches_<user>.json cache files to this directory")
	_ = fs.Parse(args)

	logger := log.New(os.Stderr, "", 0)
	cfg := loadConfig(logger)

	repo, err := repository.NewMatchRepository(cfg.StateFile())
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
	defer func() {
		if c, ok := repo.(interface{ Close() error }); ok {
			_ = c.Close()
		}
	}()

	users, err := repo.UserIDs()
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
	if *user != "" {
		users = []string{*user}
	}
	if len(users) == 0 {
		fmt.Println("no cached users")
		return
	}

	for _, u := range users {
		matches, err := repo.LoadMatches(u)
		if err != nil {
			fmt.Fprintf(os.Stderr, "[%s] load: %v\n", u, err)
			continue
		}
		aliases := []string{u}
		if relicID, err := repo.RelicID(u); err == nil && relicID != "" && relicID != u {
			aliases = append(aliases, relicID)
		}

		printRanked(u, analytics.Ranked(matches, aliases...))
		printSessions(u, len(matches), analytics.Sessions(matches, cfg.SessionModeFilter, cfg.SessionIdle(), aliases...))

		if *export != "" {
			path := filepath.Join(*export, fmt.Sprintf("matches_%s.json", u))
			if err := repository.WriteLegacyCache(path, matches); err != nil {
				fmt.Fprintf(os.Stderr, "[%s] export: %v\n", u, err)
			} else {
				fmt.Printf("[%s] exported %d matches to %s\n", u, len(matches), path)
			}
		}
	}
}

func printRanked(userID string, stats analytics.RankedStats) {
	fmt.Printf("[%s] RM 1v1 ranked matches: %d, wins: %d, win rate: %.1f%%\n",
		userID, stats.Total, stats.Wins, stats.WinRate)

	fmt.Println("  Frequent opponents (top 5):")
	for _, row := range top(stats.Opponents, 5) {
		fmt.Printf("    %s: %d matches, %d wins (%.1f%% win)\n", row.Name, row.Matches, row.Wins, row.WinRate)
	}

	fmt.Println("  Win rates by match duration:")
	for _, row := range stats.Duration {
		fmt.Printf("    %s: %.1f%% (%d wins / %d matches)\n", row.Key, row.WinRate, row.Wins, row.Matches)
	}

	fmt.Println("  Win rates by your civilization (top 10):")
	for _, row := range top(stats.Civs, 10) {
		fmt.Printf("    %s: %.1f%% (%d / %d)\n", row.Key, row.WinRate, row.Wins, row.Matches)
	}

	fmt.Println("  Win rates by opponent civilization (top 10):")
	for _, row := range top(stats.OppCivs, 10) {
		fmt.Printf("    %s: %.1f%% (%d / %d)\n", row.Key, row.WinRate, row.Wins, row.Matches)
	}
	fmt.Println("-")
}

func printSessions(userID string, cached int, stats analytics.SessionStats) {
	fmt.Printf("[%s] cached: %d, eligible: %d (filtered out: %d, parse-fail: %d), sessions: %d\n",
		userID, cached, stats.Eligible, stats.FilteredOut, stats.ParseFailed, stats.Sessions)

	fmt.Println("Winrate by session match count:")
	for _, row := range stats.BySessionLength {
		fmt.Printf("  %d games: %.1f%% (%d / %d)\n", row.N, row.WinRate, row.Wins, row.Matches)
	}

	fmt.Println("Winrate after previous result:")
	fmt.Printf("  after win: %.1f%% (%d / %d)\n", stats.AfterWin.WinRate, stats.AfterWin.Wins, stats.AfterWin.Matches)
	fmt.Printf("  after loss: %.1f%% (%d / %d)\n", stats.AfterLoss.WinRate, stats.AfterLoss.Wins, stats.AfterLoss.Matches)

	fmt.Println("Winrate after streak of 2:")
	fmt.Printf("  after 2 wins: %.1f%% (%d / %d)\n", stats.AfterTwoWins.WinRate, stats.AfterTwoWins.Wins, stats.AfterTwoWins.Matches)
	fmt.Printf("  after 2 losses: %.1f%% (%d / %d)\n", stats.AfterTwoLosses.WinRate, stats.AfterTwoLosses.Wins, stats.AfterTwoLosses.Matches)

	fmt.Println("Winrate by nth game in session:")
	for _, row := range stats.ByGameNumber {
		fmt.Printf("  Game %d: %.1f%% (%d / %d)\n", row.N, row.WinRate, row.Wins, row.Matches)
	}
	fmt.Println("-")
}

func top(rows []analytics.Row, n int) []analytics.Row {
	if len(rows) > n {
		return rows[:n]
	}
	return rows
}
