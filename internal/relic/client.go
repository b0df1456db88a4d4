// Package relic fetches recent match history from the Relic community API
// for Age of Empires II and converts the raw payload into domain matches.
package relic

import (
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"time"

	"aoe2scout/internal/domain"
)

const (
	defaultBaseURL = "https://aoe-api.reliclink.com"
	// PageSize is the API's match-history page size.
	PageSize = 100

	defaultUserAgent = "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0 Safari/537.36"
)

// Client talks to the Relic community API.
type Client struct {
	baseURL   string
	userAgent string
	http      *http.Client
}

// Option configures the client.
type Option func(*Client)

// WithBaseURL overrides the API base URL (tests).
func WithBaseURL(u string) Option {
	return func(c *Client) { c.baseURL = u }
}

// WithUserAgent overrides the User-Agent header.
func WithUserAgent(ua string) Option {
	return func(c *Client) {
		if ua != "" {
			c.userAgent = ua
		}
	}
}

// WithHTTPClient overrides the underlying HTTP client.
func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) { c.http = h }
}

// NewClient returns a Relic API client. Certificate verification is skipped:
// the endpoint serves a certificate issued for a different host and the
// payload is public data.
func NewClient(opts ...Option) *Client {
	c := &Client{
		baseURL:   defaultBaseURL,
		userAgent: defaultUserAgent,
		http: &http.Client{
			Timeout: 30 * time.Second,
			Transport: &http.Transport{
				TLSClientConfig: &tls.Config{InsecureSkipVerify: true},
			},
		},
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// HistoryPage is one decoded page of recent match history.
type HistoryPage struct {
	Matches  []rawMatch            `json:"matchHistoryStats"`
	Profiles []rawProfile          `json:"profiles"`
	profiles map[string]rawProfile // keyed by profile ID, built on decode
}

type rawProfile struct {
	ProfileID json.Number `json:"profile_id"`
	Alias     string      `json:"alias"`
	Name      string      `json:"name"`
}

type rawMatch struct {
	ID             json.Number `json:"id"`
	MatchTypeID    int         `json:"matchtype_id"`
	MapName        string      `json:"mapname"`
	StartGameTime  int64       `json:"startgametime"`
	CompletionTime int64       `json:"completiontime"`
	Members        []rawMember `json:"matchhistorymember"`
}

type rawMember struct {
	ProfileID      json.Number `json:"profile_id"`
	TeamID         int         `json:"teamid"`
	CivilizationID int         `json:"civilization_id"`
	OldRating      *int        `json:"oldrating"`
	NewRating      *int        `json:"newrating"`
	Outcome        *int        `json:"outcome"`
}

// RecentMatchHistory fetches one page of match history for a Relic profile
// ID, starting at the given offset (newest first). A page with no matches
// means the history is exhausted.
func (c *Client) RecentMatchHistory(ctx context.Context, profileID string, start, count int) (*HistoryPage, error) {
	if count <= 0 {
		count = PageSize
	}
	u := fmt.Sprintf("%s/community/leaderboard/getRecentMatchHistory?title=age2&profile_ids=%s&start=%d&count=%d",
		c.baseURL, url.QueryEscape("["+profileID+"]"), start, count)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("relic request: %w", err)
	}
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Accept-Language", "en-US,en;q=0.9")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("relic fetch: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		io.Copy(io.Discard, resp.Body)
		return nil, fmt.Errorf("relic fetch: status %d", resp.StatusCode)
	}

	var page HistoryPage
	if err := json.NewDecoder(resp.Body).Decode(&page); err != nil {
		return nil, fmt.Errorf("relic decode: %w", err)
	}
	page.profiles = make(map[string]rawProfile, len(page.Profiles))
	for _, p := range page.Profiles {
		page.profiles[p.ProfileID.String()] = p
	}
	return &page, nil
}

// HasMatches reports whether the page contains any match entries.
func (p *HistoryPage) HasMatches() bool {
	return p != nil && len(p.Matches) > 0
}

// DomainMatches converts the page into domain matches, newest first as
// returned by the API.
func (p *HistoryPage) DomainMatches() []domain.Match {
	out := make([]domain.Match, 0, len(p.Matches))
	for _, rm := range p.Matches {
		out = append(out, p.convert(rm))
	}
	return out
}

func (p *HistoryPage) convert(rm rawMatch) domain.Match {
	m := domain.Match{
		GameID: rm.ID.String(),
		Mode:   domain.ModeName(rm.MatchTypeID),
		Map:    domain.CleanMapName(rm.MapName),
	}
	if rm.StartGameTime > 0 {
		m.StartedAt = time.Unix(rm.StartGameTime, 0)
	}
	if rm.CompletionTime > 0 {
		m.EndedAt = time.Unix(rm.CompletionTime, 0)
	}
	if rm.StartGameTime > 0 && rm.CompletionTime >= rm.StartGameTime {
		m.Duration = domain.FormatDuration(int(rm.CompletionTime - rm.StartGameTime))
	}

	// Group members by team ID, ascending, so team order is stable.
	byTeam := make(map[int][]domain.Player)
	teamIDs := []int{}
	for _, member := range rm.Members {
		pid := member.ProfileID.String()
		name := "Unknown"
		if prof, ok := p.profiles[pid]; ok {
			if prof.Alias != "" {
				name = prof.Alias
			} else if prof.Name != "" {
				name = prof.Name
			}
		}
		civID := member.CivilizationID
		var eloChange *int
		if member.OldRating != nil && member.NewRating != nil {
			diff := *member.NewRating - *member.OldRating
			eloChange = &diff
		}
		player := domain.Player{
			ID:        pid,
			Name:      name,
			CivID:     &civID,
			Civ:       domain.CivName(civID),
			Elo:       member.OldRating,
			EloChange: eloChange,
			Won:       domain.PlayerWon(eloChange, member.Outcome, false),
		}
		if _, seen := byTeam[member.TeamID]; !seen {
			teamIDs = append(teamIDs, member.TeamID)
		}
		byTeam[member.TeamID] = append(byTeam[member.TeamID], player)
	}
	sort.Ints(teamIDs)
	for _, tid := range teamIDs {
		players := byTeam[tid]
		teamWon := false
		for _, pl := range players {
			if pl.Won {
				teamWon = true
			}
		}
		m.Teams = append(m.Teams, domain.Team{Won: teamWon, Players: players})
	}
	return m
}
