package api

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shuttleworks/rankings-cli/internal/config"
	"github.com/shuttleworks/rankings-cli/internal/model"
	"github.com/shuttleworks/rankings-cli/internal/ranking"
	"github.com/shuttleworks/rankings-cli/internal/store"
)

func newTestServer(t *testing.T) (*httptest.Server, store.Store) {
	t.Helper()

	st, err := store.NewSQLite(filepath.Join(t.TempDir(), "rankings.db"))
	require.NoError(t, err)
	require.NoError(t, st.Migrate(context.Background()))
	t.Cleanup(func() { st.Close() })

	engine, err := ranking.New(config.RankingConfig{
		BestOf:    4,
		AgeLadder: []string{"U11", "U13", "U15", "U17", "U19"},
	})
	require.NoError(t, err)

	ts := httptest.NewServer(NewServer(st, engine).Handler())
	t.Cleanup(ts.Close)
	return ts, st
}

func getJSON(t *testing.T, url string, out any) *http.Response {
	t.Helper()
	resp, err := http.Get(url)
	require.NoError(t, err)
	defer resp.Body.Close()
	if out != nil {
		require.NoError(t, json.NewDecoder(resp.Body).Decode(out))
	}
	return resp
}

func seedRankings(t *testing.T, st store.Store, eventCode string, n int) {
	t.Helper()
	entries := make([]model.RankingEntry, 0, n)
	for i := 1; i <= n; i++ {
		entries = append(entries, model.RankingEntry{
			EventCode:          eventCode,
			Rank:               i,
			PlayerID:           int64(100 + i),
			FirstName:          "Player",
			LastName:           string(rune('A' + i - 1)),
			TotalPoints:        float64(50 - i),
			Top4Vector:         []float64{float64(50 - i)},
			CountedTournaments: 1,
			MostRecentDate:     time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC),
		})
	}
	require.NoError(t, st.ReplaceRankings(context.Background(), eventCode, entries))
}

func TestHealth(t *testing.T) {
	ts, _ := newTestServer(t)

	var body map[string]string
	resp := getJSON(t, ts.URL+"/health", &body)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "ok", body["status"])
}

func TestListEvents(t *testing.T) {
	ts, st := newTestServer(t)

	require.NoError(t, st.UpsertEvents(context.Background(), []model.Event{
		{Code: "BS U17", Gender: "Boys", Discipline: "Singles", Age: "U17"},
		{Code: "XD U15", Gender: "Mixed", Discipline: "Doubles", Age: "U15"},
	}))

	var body eventsResponse
	resp := getJSON(t, ts.URL+"/events", &body)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, 2, body.Count)
	assert.Equal(t, "BS U17", body.Items[0].Code)
}

func TestListEventsEmpty(t *testing.T) {
	ts, _ := newTestServer(t)

	var body eventsResponse
	resp := getJSON(t, ts.URL+"/events", &body)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, 0, body.Count)
	assert.NotNil(t, body.Items)
}

func TestListRankings(t *testing.T) {
	ts, st := newTestServer(t)
	seedRankings(t, st, "BS U17", 3)

	var body rankingsResponse
	resp := getJSON(t, ts.URL+"/rankings?event=BS+U17", &body)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "BS U17", body.Event)
	require.Equal(t, 3, body.Count)
	assert.Equal(t, 1, body.Items[0].Rank)
	assert.Equal(t, int64(101), body.Items[0].PlayerID)
	// Vector padded to the configured best-of size.
	assert.Equal(t, []float64{49, 0, 0, 0}, body.Items[0].TopPoints)
	assert.Equal(t, "2026-05-01", body.Items[0].MostRecentDate)
	assert.Nil(t, body.NextStartRank)
}

func TestListRankingsAcceptsRawEventNames(t *testing.T) {
	ts, st := newTestServer(t)
	seedRankings(t, st, "XD U15", 1)

	// "x u15" canonicalizes to "XD U15".
	var body rankingsResponse
	resp := getJSON(t, ts.URL+"/rankings?event=x+u15", &body)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "XD U15", body.Event)
	assert.Equal(t, 1, body.Count)
}

func TestListRankingsPagination(t *testing.T) {
	ts, st := newTestServer(t)
	seedRankings(t, st, "BS U17", 5)

	var page rankingsResponse
	getJSON(t, ts.URL+"/rankings?event=BS+U17&limit=2", &page)
	require.Equal(t, 2, page.Count)
	require.NotNil(t, page.NextStartRank)
	assert.Equal(t, 3, *page.NextStartRank)

	var next rankingsResponse
	getJSON(t, ts.URL+"/rankings?event=BS+U17&limit=3&start_rank=3", &next)
	require.Equal(t, 3, next.Count)
	assert.Equal(t, 3, next.Items[0].Rank)
	assert.Equal(t, 5, next.Items[2].Rank)
}

func TestListRankingsBadRequests(t *testing.T) {
	ts, _ := newTestServer(t)

	for name, url := range map[string]string{
		"missing event":      "/rankings",
		"invalid event":      "/rankings?event=U17",
		"zero limit":         "/rankings?event=BS+U17&limit=0",
		"negative startRank": "/rankings?event=BS+U17&start_rank=-1",
		"non-numeric limit":  "/rankings?event=BS+U17&limit=abc",
	} {
		resp, err := http.Get(ts.URL + url)
		require.NoError(t, err)
		resp.Body.Close()
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode, name)
	}
}

func TestExportCSV(t *testing.T) {
	ts, st := newTestServer(t)
	require.NoError(t, st.ReplaceRankings(context.Background(), "GS U15", []model.RankingEntry{
		{EventCode: "GS U15", Rank: 1, PlayerID: 9, FirstName: "Mia", LastName: "Larsen",
			TotalPoints: 27.5, Top4Vector: []float64{10, 9.5, 8}, CountedTournaments: 3,
			MostRecentDate: time.Date(2026, 3, 14, 0, 0, 0, 0, time.UTC)},
	}))

	resp, err := http.Get(ts.URL + "/events/GS%20U15/export.csv")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "text/csv", resp.Header.Get("Content-Type"))
	assert.Contains(t, resp.Header.Get("Content-Disposition"), "GS U15.csv")

	records, err := csv.NewReader(resp.Body).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, []string{
		"event_code", "rank", "player_id", "first_name", "last_name", "total_points",
		"top1", "top2", "top3", "top4", "counted_tournaments", "most_recent_date",
	}, records[0])
	assert.Equal(t, []string{
		"GS U15", "1", "9", "Mia", "Larsen", "27.5",
		"10", "9.5", "8", "0", "3", "2026-03-14",
	}, records[1])
}

func TestExportCSVInvalidEvent(t *testing.T) {
	ts, _ := newTestServer(t)

	resp, err := http.Get(ts.URL + "/events/nope/export.csv")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestPlayerResults(t *testing.T) {
	ts, st := newTestServer(t)
	ctx := context.Background()

	end := func(m time.Month, d int) time.Time { return time.Date(2026, m, d, 0, 0, 0, 0, time.UTC) }
	require.NoError(t, st.UpsertResults(ctx, []model.Result{
		{PlayerID: 5, EventCode: "BS U17", TournamentName: "Autumn Cup", FinishingPosition: "3", PositionPoints: 5, TournamentEndDate: end(10, 2)},
		{PlayerID: 5, EventCode: "BS U15", TournamentName: "Winter Gold", FinishingPosition: "1", PositionPoints: 9, TournamentEndDate: end(12, 9)},
		{PlayerID: 5, EventCode: "BS U15", TournamentName: "Club Night", FinishingPosition: "2", PositionPoints: 7, TournamentEndDate: end(11, 20)},
	}))

	var body playerResultsResponse
	resp := getJSON(t, ts.URL+"/player-results?playerId=5&event=BS+U17", &body)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, int64(5), body.PlayerID)
	assert.Equal(t, "BS U17", body.Event)
	require.Equal(t, 3, body.Count)

	// All three fit in the best-of window, own and carried alike.
	for _, item := range body.Items {
		assert.True(t, item.Counted, item.TournamentName)
	}
}

func TestPlayerResultsUncountedBeyondWindow(t *testing.T) {
	ts, st := newTestServer(t)
	ctx := context.Background()

	results := []model.Result{
		{PlayerID: 6, EventCode: "GS U17", TournamentName: "T1", PositionPoints: 10},
		{PlayerID: 6, EventCode: "GS U17", TournamentName: "T2", PositionPoints: 9},
		{PlayerID: 6, EventCode: "GS U17", TournamentName: "T3", PositionPoints: 8},
		{PlayerID: 6, EventCode: "GS U17", TournamentName: "T4", PositionPoints: 7},
		{PlayerID: 6, EventCode: "GS U17", TournamentName: "T5", PositionPoints: 2},
	}
	require.NoError(t, st.UpsertResults(ctx, results))

	var body playerResultsResponse
	getJSON(t, ts.URL+"/player-results?playerId=6&event=GS+U17", &body)
	require.Equal(t, 5, body.Count)

	countedNames := make(map[string]bool)
	for _, item := range body.Items {
		if item.Counted {
			countedNames[item.TournamentName] = true
		}
	}
	assert.Len(t, countedNames, 4)
	assert.False(t, countedNames["T5"])
}

func TestPlayerResultsIneligibleCarryUpOnly(t *testing.T) {
	ts, st := newTestServer(t)
	ctx := context.Background()

	// Lower-bracket results only: no direct result at the target age, so
	// nothing counts toward the target event.
	require.NoError(t, st.UpsertResults(ctx, []model.Result{
		{PlayerID: 7, EventCode: "BD U13", TournamentName: "Spring Open", PositionPoints: 6},
	}))

	var body playerResultsResponse
	getJSON(t, ts.URL+"/player-results?playerId=7&event=BD+U15", &body)
	require.Equal(t, 1, body.Count)
	assert.False(t, body.Items[0].Counted)
}

func TestPlayerResultsBadRequests(t *testing.T) {
	ts, _ := newTestServer(t)

	for name, url := range map[string]string{
		"missing playerId": "/player-results?event=BS+U17",
		"bad playerId":     "/player-results?playerId=abc&event=BS+U17",
		"missing event":    "/player-results?playerId=5",
	} {
		resp, err := http.Get(ts.URL + url)
		require.NoError(t, err)
		resp.Body.Close()
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode, name)
	}
}

func TestCORSHeadersPresent(t *testing.T) {
	ts, _ := newTestServer(t)

	req, err := http.NewRequest(http.MethodGet, ts.URL+"/health", nil)
	require.NoError(t, err)
	req.Header.Set("Origin", "https://rankings.example.org")

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, "*", resp.Header.Get("Access-Control-Allow-Origin"))
}

func TestExportRowUsesPlainNumberFormatting(t *testing.T) {
	row := ExportRow(model.RankingEntry{
		EventCode: "BS U17", Rank: 2, PlayerID: 42,
		TotalPoints: 21, Top4Vector: []float64{9, 7, 5}, CountedTournaments: 3,
	}, 4)
	assert.Equal(t, strings.Split("BS U17,2,42,,,21,9,7,5,0,3,", ","), row)
}
