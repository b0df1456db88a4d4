package relic

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
)

const historyFixture = `{
  "matchHistoryStats": [
    {
      "id": 400123,
      "matchtype_id": 6,
      "mapname": "arabia.rms",
      "startgametime": 1709300000,
      "completiontime": 1709301230,
      "matchhistorymember": [
        {"profile_id": 100, "teamid": 1, "civilization_id": 15, "oldrating": 1200, "newrating": 1215, "outcome": 1},
        {"profile_id": 200, "teamid": 0, "civilization_id": 41, "oldrating": 1190, "newrating": 1175, "outcome": 0}
      ]
    }
  ],
  "profiles": [
    {"profile_id": 100, "alias": "Scout", "name": "/steam/1"},
    {"profile_id": 200, "alias": "Knight", "name": "/steam/2"}
  ]
}`

func testServer(t *testing.T, body string) (*httptest.Server, *Client) {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("title") != "age2" {
			t.Errorf("missing title=age2 in query: %s", r.URL.RawQuery)
		}
		w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv, NewClient(WithBaseURL(srv.URL), WithHTTPClient(srv.Client()))
}

func TestRecentMatchHistoryConvert(t *testing.T) {
	_, client := testServer(t, historyFixture)

	page, err := client.RecentMatchHistory(context.Background(), "100", 0, 100)
	if err != nil {
		t.Fatalf("RecentMatchHistory: %v", err)
	}
	if !page.HasMatches() {
		t.Fatal("page has no matches")
	}

	matches := page.DomainMatches()
	if len(matches) != 1 {
		t.Fatalf("got %d matches, want 1", len(matches))
	}
	m := matches[0]
	if m.GameID != "400123" {
		t.Errorf("GameID = %q", m.GameID)
	}
	if m.Mode != "RM 1v1" {
		t.Errorf("Mode = %q", m.Mode)
	}
	if m.Map != "Arabia" {
		t.Errorf("Map = %q", m.Map)
	}
	if m.Duration != "20m 30s" {
		t.Errorf("Duration = %q", m.Duration)
	}
	if len(m.Teams) != 2 {
		t.Fatalf("got %d teams", len(m.Teams))
	}
	// Teams are sorted by team ID: team 0 (Knight, lost) then team 1 (Scout, won).
	if m.Teams[0].Won || !m.Teams[1].Won {
		t.Errorf("team won flags = %v, %v", m.Teams[0].Won, m.Teams[1].Won)
	}
	scout := m.Teams[1].Players[0]
	if scout.Name != "Scout" || scout.Civ != "Franks" {
		t.Errorf("player = %+v", scout)
	}
	if scout.EloChange == nil || *scout.EloChange != 15 {
		t.Errorf("EloChange = %v", scout.EloChange)
	}
	if !scout.Won {
		t.Error("Scout should have won (positive elo change)")
	}
}

func TestConvertZeroLengthMatch(t *testing.T) {
	fixture := `{
	  "matchHistoryStats": [
	    {
	      "id": 400200,
	      "matchtype_id": 6,
	      "mapname": "arabia.rms",
	      "startgametime": 1709300000,
	      "completiontime": 1709300000,
	      "matchhistorymember": []
	    }
	  ],
	  "profiles": []
	}`
	_, client := testServer(t, fixture)

	page, err := client.RecentMatchHistory(context.Background(), "100", 0, 100)
	if err != nil {
		t.Fatalf("RecentMatchHistory: %v", err)
	}
	matches := page.DomainMatches()
	if len(matches) != 1 {
		t.Fatalf("got %d matches, want 1", len(matches))
	}
	if matches[0].Duration != "0m 0s" {
		t.Errorf("Duration = %q, want \"0m 0s\" for equal timestamps", matches[0].Duration)
	}
}

func TestRecentMatchHistoryEmpty(t *testing.T) {
	_, client := testServer(t, `{"matchHistoryStats": [], "profiles": []}`)
	page, err := client.RecentMatchHistory(context.Background(), "100", 0, 100)
	if err != nil {
		t.Fatalf("RecentMatchHistory: %v", err)
	}
	if page.HasMatches() {
		t.Error("empty page reported matches")
	}
}

func TestRecentMatchHistoryHTTPError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()
	client := NewClient(WithBaseURL(srv.URL), WithHTTPClient(srv.Client()))
	if _, err := client.RecentMatchHistory(context.Background(), "100", 0, 100); err == nil {
		t.Fatal("expected error on 502")
	}
}
