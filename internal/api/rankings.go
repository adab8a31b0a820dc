package api

import (
	"net/http"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/shuttleworks/rankings-cli/internal/model"
	"github.com/shuttleworks/rankings-cli/internal/store"
)

const (
	defaultPageSize = 50
	maxPageSize     = 500
)

type rankingItem struct {
	Rank               int       `json:"rank"`
	PlayerID           int64     `json:"player_id"`
	FirstName          string    `json:"first_name"`
	LastName           string    `json:"last_name"`
	TotalPoints        float64   `json:"total_points"`
	TopPoints          []float64 `json:"top_points"`
	CountedTournaments int       `json:"counted_tournaments"`
	MostRecentDate     string    `json:"most_recent_date,omitempty"`
}

type rankingsResponse struct {
	Event         string        `json:"event"`
	Count         int           `json:"count"`
	Items         []rankingItem `json:"items"`
	NextStartRank *int          `json:"next_start_rank,omitempty"`
}

type eventsResponse struct {
	Count int           `json:"count"`
	Items []model.Event `json:"items"`
}

func (s *Server) handleListEvents(w http.ResponseWriter, r *http.Request) {
	events, err := s.store.ListEvents(r.Context())
	if err != nil {
		zap.L().Error("api: list events", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to list events")
		return
	}
	if events == nil {
		events = []model.Event{}
	}
	writeJSON(w, http.StatusOK, eventsResponse{Count: len(events), Items: events})
}

func (s *Server) handleListRankings(w http.ResponseWriter, r *http.Request) {
	ev, err := model.ParseEventCode(r.URL.Query().Get("event"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid or missing event parameter")
		return
	}

	limit, err := queryInt(r, "limit", defaultPageSize)
	if err != nil || limit <= 0 {
		writeError(w, http.StatusBadRequest, "limit must be a positive integer")
		return
	}
	if limit > maxPageSize {
		limit = maxPageSize
	}

	startRank, err := queryInt(r, "start_rank", 1)
	if err != nil || startRank <= 0 {
		writeError(w, http.StatusBadRequest, "start_rank must be a positive integer")
		return
	}

	entries, err := s.store.ListRankings(r.Context(), store.RankingFilter{
		EventCode: ev.Code,
		StartRank: startRank,
		Limit:     limit,
	})
	if err != nil {
		zap.L().Error("api: list rankings", zap.String("event", ev.Code), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to list rankings")
		return
	}

	items := make([]rankingItem, 0, len(entries))
	for _, e := range entries {
		items = append(items, rankingItem{
			Rank:               e.Rank,
			PlayerID:           e.PlayerID,
			FirstName:          e.FirstName,
			LastName:           e.LastName,
			TotalPoints:        e.TotalPoints,
			TopPoints:          e.PaddedVector(s.engine.BestOf()),
			CountedTournaments: e.CountedTournaments,
			MostRecentDate:     formatDate(e.MostRecentDate),
		})
	}

	resp := rankingsResponse{Event: ev.Code, Count: len(items), Items: items}
	// A full page means there may be more rows past it.
	if len(entries) == limit {
		next := entries[len(entries)-1].Rank + 1
		resp.NextStartRank = &next
	}
	writeJSON(w, http.StatusOK, resp)
}

func queryInt(r *http.Request, key string, def int) (int, error) {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return def, nil
	}
	return strconv.Atoi(raw)
}

func formatDate(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format("2006-01-02")
}
