package api

import (
	"net/http"
	"strconv"

	"go.uber.org/zap"

	"github.com/shuttleworks/rankings-cli/internal/model"
	"github.com/shuttleworks/rankings-cli/internal/ranking"
)

type playerResultItem struct {
	EventCode         string  `json:"event_code"`
	TournamentName    string  `json:"tournament_name"`
	TournamentType    string  `json:"tournament_type,omitempty"`
	FinishingPosition string  `json:"finishing_position"`
	PositionPoints    float64 `json:"position_points"`
	TournamentEndDate string  `json:"tournament_end_date,omitempty"`
	Counted           bool    `json:"counted"`
}

type playerResultsResponse struct {
	PlayerID int64              `json:"player_id"`
	Event    string             `json:"event"`
	Count    int                `json:"count"`
	Items    []playerResultItem `json:"items"`
}

// handlePlayerResults lists every result in a player's candidate pool for
// the target event, flagging the ones inside the scored best-of window.
// Carried-up lower-bracket results are included so a reader can see exactly
// which tournaments fed the player's ranking entry.
func (s *Server) handlePlayerResults(w http.ResponseWriter, r *http.Request) {
	playerID, err := strconv.ParseInt(r.URL.Query().Get("playerId"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "playerId must be an integer")
		return
	}
	ev, err := model.ParseEventCode(r.URL.Query().Get("event"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid or missing event parameter")
		return
	}

	codes, err := s.engine.PoolEventCodes(ev)
	if err != nil {
		writeError(w, http.StatusBadRequest, "event age bracket is not in the configured ladder")
		return
	}

	var pool []model.Result
	for _, code := range codes {
		results, err := s.store.ListPlayerResults(r.Context(), playerID, code, 0)
		if err != nil {
			zap.L().Error("api: list player results",
				zap.Int64("player_id", playerID),
				zap.String("event", code),
				zap.Error(err),
			)
			writeError(w, http.StatusInternalServerError, "failed to list player results")
			return
		}
		pool = append(pool, results...)
	}

	counted, err := s.engine.CountedWindow(pool, ev, playerID)
	if err != nil {
		writeError(w, http.StatusBadRequest, "event age bracket is not in the configured ladder")
		return
	}

	items := make([]playerResultItem, 0, len(pool))
	for _, res := range pool {
		items = append(items, playerResultItem{
			EventCode:         res.EventCode,
			TournamentName:    res.TournamentName,
			TournamentType:    res.TournamentType,
			FinishingPosition: res.FinishingPosition,
			PositionPoints:    res.PositionPoints,
			TournamentEndDate: formatDate(res.TournamentEndDate),
			Counted:           counted[ranking.WindowKey(res.EventCode, res.TournamentName)],
		})
	}

	writeJSON(w, http.StatusOK, playerResultsResponse{
		PlayerID: playerID,
		Event:    ev.Code,
		Count:    len(items),
		Items:    items,
	})
}
