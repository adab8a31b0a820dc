package api

import (
	"encoding/csv"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/shuttleworks/rankings-cli/internal/model"
	"github.com/shuttleworks/rankings-cli/internal/store"
)

// exportPageSize bounds memory while streaming an arbitrarily large event.
const exportPageSize = 500

// ExportHeader returns the CSV column header for a best-of-n export.
func ExportHeader(n int) []string {
	header := []string{"event_code", "rank", "player_id", "first_name", "last_name", "total_points"}
	for i := 1; i <= n; i++ {
		header = append(header, fmt.Sprintf("top%d", i))
	}
	return append(header, "counted_tournaments", "most_recent_date")
}

// ExportRow renders one ranking entry as a CSV record matching ExportHeader(n).
func ExportRow(e model.RankingEntry, n int) []string {
	row := []string{
		e.EventCode,
		fmt.Sprintf("%d", e.Rank),
		fmt.Sprintf("%d", e.PlayerID),
		e.FirstName,
		e.LastName,
		formatPoints(e.TotalPoints),
	}
	for _, p := range e.PaddedVector(n) {
		row = append(row, formatPoints(p))
	}
	return append(row, fmt.Sprintf("%d", e.CountedTournaments), formatDate(e.MostRecentDate))
}

func formatPoints(p float64) string {
	return fmt.Sprintf("%g", p)
}

func (s *Server) handleExportCSV(w http.ResponseWriter, r *http.Request) {
	ev, err := model.ParseEventCode(chi.URLParam(r, "event"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid event name")
		return
	}

	bestOf := s.engine.BestOf()
	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", ev.Code+".csv"))

	cw := csv.NewWriter(w)
	if err := cw.Write(ExportHeader(bestOf)); err != nil {
		zap.L().Error("api: write csv header", zap.Error(err))
		return
	}

	startRank := 1
	for {
		entries, err := s.store.ListRankings(r.Context(), store.RankingFilter{
			EventCode: ev.Code,
			StartRank: startRank,
			Limit:     exportPageSize,
		})
		if err != nil {
			// Headers are already out; all we can do is stop and log.
			zap.L().Error("api: export rankings", zap.String("event", ev.Code), zap.Error(err))
			return
		}
		for _, e := range entries {
			if err := cw.Write(ExportRow(e, bestOf)); err != nil {
				zap.L().Error("api: write csv row", zap.Error(err))
				return
			}
		}
		if len(entries) < exportPageSize {
			break
		}
		startRank = entries[len(entries)-1].Rank + 1
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		zap.L().Error("api: flush csv", zap.Error(err))
	}
}
