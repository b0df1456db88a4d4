package scout

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"aoe2scout/internal/analytics"
	"aoe2scout/internal/domain"
	"aoe2scout/internal/insights"
	"aoe2scout/internal/relic"
)

// HistoryFetcher pages through match history on the Relic API.
// Implementation: relic.Client.
type HistoryFetcher interface {
	RecentMatchHistory(ctx context.Context, profileID string, start, count int) (*relic.HistoryPage, error)
}

// ProfileResolver searches players and resolves Relic IDs on aoe2insights.
// Implementation: insights.Client.
type ProfileResolver interface {
	SearchPlayers(ctx context.Context, query string) ([]insights.PlayerResult, error)
	ResolveRelicID(ctx context.Context, insightsID string) (string, error)
}

// Service runs scout use cases over persisted match history.
type Service struct {
	repo     MatchRepository
	relic    HistoryFetcher
	insights ProfileResolver
	logger   *log.Logger

	maxPages    int
	sessionIdle time.Duration
	modeFilter  []string

	mu    sync.Mutex
	locks map[string]*sync.Mutex // per-user fetch locks
}

// Option configures the service.
type Option func(*Service)

// WithMaxPages caps the number of history pages a backfill may fetch.
func WithMaxPages(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.maxPages = n
		}
	}
}

// WithSessionIdle sets the idle gap that starts a new play session.
func WithSessionIdle(d time.Duration) Option {
	return func(s *Service) {
		if d > 0 {
			s.sessionIdle = d
		}
	}
}

// WithSessionModeFilter restricts session analytics to the given modes.
func WithSessionModeFilter(modes []string) Option {
	return func(s *Service) { s.modeFilter = modes }
}

// NewService returns a new Service.
func NewService(repo MatchRepository, rc HistoryFetcher, ic ProfileResolver, logger *log.Logger, opts ...Option) *Service {
	s := &Service{
		repo:        repo,
		relic:       rc,
		insights:    ic,
		logger:      logger,
		maxPages:    2000,
		sessionIdle: 20 * time.Minute,
		locks:       map[string]*sync.Mutex{},
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

func (s *Service) userLock(userID string) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()
	l := s.locks[userID]
	if l == nil {
		l = &sync.Mutex{}
		s.locks[userID] = l
	}
	return l
}

// ResolveRelicID maps an aoe2insights user ID to a Relic profile ID.
// Order: cached mapping, the ID probing as a Relic ID itself, the insights
// profile page badge. Falls back to the input when all of that fails, so a
// caller always gets a usable ID.
func (s *Service) ResolveRelicID(ctx context.Context, insightsID string) string {
	if cached, err := s.repo.RelicID(insightsID); err == nil && cached != "" {
		return cached
	}

	if page, err := s.relic.RecentMatchHistory(ctx, insightsID, 0, 1); err == nil && page.HasMatches() {
		s.logger.Printf("[%s] verified as a Relic ID", insightsID)
		s.saveMapping(insightsID, insightsID)
		return insightsID
	}

	if relicID, err := s.insights.ResolveRelicID(ctx, insightsID); err == nil && relicID != "" {
		s.logger.Printf("[%s] resolved Relic ID %s from profile page", insightsID, relicID)
		s.saveMapping(insightsID, relicID)
		return relicID
	}

	return insightsID
}

func (s *Service) saveMapping(insightsID, relicID string) {
	if err := s.repo.SaveRelicID(insightsID, relicID); err != nil {
		s.logger.Printf("[%s] save relic mapping: %v", insightsID, err)
	}
}

// SearchPlayers searches aoe2insights for players matching query.
func (s *Service) SearchPlayers(ctx context.Context, query string) ([]insights.PlayerResult, error) {
	return s.insights.SearchPlayers(ctx, query)
}

// Matches returns the user's cached match history, oldest first.
func (s *Service) Matches(userID string) ([]domain.Match, error) {
	return s.repo.LoadMatches(userID)
}

// Users lists user IDs with cached matches.
func (s *Service) Users() ([]string, error) {
	return s.repo.UserIDs()
}

// Status returns the user's fetch status.
func (s *Service) Status(userID string) (FetchStatus, error) {
	return s.repo.FetchStatus(userID)
}

// RankedStats computes RM 1v1 statistics for a user.
func (s *Service) RankedStats(ctx context.Context, userID string) (analytics.RankedStats, error) {
	matches, err := s.repo.LoadMatches(userID)
	if err != nil {
		return analytics.RankedStats{}, err
	}
	return analytics.Ranked(matches, s.Aliases(ctx, userID)...), nil
}

// SessionStats computes play-session statistics for a user.
func (s *Service) SessionStats(ctx context.Context, userID string) (analytics.SessionStats, error) {
	matches, err := s.repo.LoadMatches(userID)
	if err != nil {
		return analytics.SessionStats{}, err
	}
	return analytics.Sessions(matches, s.modeFilter, s.sessionIdle, s.Aliases(ctx, userID)...), nil
}

// Aliases returns the IDs a user's players may carry in cached matches:
// the insights ID, plus the Relic ID when one is cached or resolvable.
// Matches fetched from the Relic API store players under Relic profile IDs,
// so outcome lookups must try both.
func (s *Service) Aliases(ctx context.Context, userID string) []string {
	aliases := []string{userID}
	if relicID := s.ResolveRelicID(ctx, userID); relicID != userID {
		aliases = append(aliases, relicID)
	}
	return aliases
}

// Refresh fetches pages of new matches for the user, newest first, stopping
// at the first already-cached game. Returns the number of new matches saved.
func (s *Service) Refresh(ctx context.Context, userID string, maxPages int) (int, error) {
	if maxPages <= 0 {
		maxPages = 10
	}
	return s.fetch(ctx, userID, maxPages, nil)
}

// fetch runs the page loop under the user's fetch lock. progress, when
// non-nil, is called after every fetched page.
func (s *Service) fetch(ctx context.Context, userID string, maxPages int, progress func(pages, newMatches int)) (int, error) {
	lock := s.userLock(userID)
	lock.Lock()
	defer lock.Unlock()

	cached, err := s.repo.LoadMatches(userID)
	if err != nil {
		return 0, fmt.Errorf("load matches: %w", err)
	}
	known := domain.KnownIDs(cached)
	relicID := s.ResolveRelicID(ctx, userID)

	var fresh []domain.Match
	seen := map[string]bool{}
	reachedKnown := false

	for page := 0; page < maxPages && !reachedKnown; page++ {
		start := page * relic.PageSize
		s.logger.Printf("[%s] fetching matches %d-%d (relic:%s)", userID, start, start+relic.PageSize, relicID)
		hp, err := s.relic.RecentMatchHistory(ctx, relicID, start, relic.PageSize)
		if err != nil {
			if len(fresh) > 0 {
				break // keep what we have
			}
			return 0, fmt.Errorf("fetch page %d: %w", page, err)
		}
		if !hp.HasMatches() {
			break
		}
		for _, m := range hp.DomainMatches() {
			if known[m.GameID] {
				reachedKnown = true
				break
			}
			if seen[m.GameID] {
				continue
			}
			seen[m.GameID] = true
			fresh = append(fresh, m)
		}
		if progress != nil {
			progress(page+1, len(fresh))
		}
	}

	if len(fresh) == 0 {
		return 0, nil
	}
	merged := append(cached, fresh...)
	if err := s.repo.SaveMatches(userID, merged); err != nil {
		return 0, fmt.Errorf("save matches: %w", err)
	}
	s.logger.Printf("[%s] saved %d new matches (%d total)", userID, len(fresh), len(merged))
	return len(fresh), nil
}

// ImportLegacy merges matches from an old JSON cache into the user's store.
func (s *Service) ImportLegacy(userID string, matches []domain.Match) (int, error) {
	lock := s.userLock(userID)
	lock.Lock()
	defer lock.Unlock()

	cached, err := s.repo.LoadMatches(userID)
	if err != nil {
		return 0, fmt.Errorf("load matches: %w", err)
	}
	known := domain.KnownIDs(cached)
	added := 0
	for _, m := range matches {
		if !known[m.GameID] {
			added++
		}
	}
	if err := s.repo.SaveMatches(userID, append(cached, matches...)); err != nil {
		return 0, fmt.Errorf("save matches: %w", err)
	}
	return added, nil
}
