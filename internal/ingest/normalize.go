package ingest

import (
	"strconv"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/shuttleworks/rankings-cli/internal/model"
)

// Spreadsheet column headers, as agreed with the federation. Matching is
// case-insensitive after trimming.
const (
	colPlayerID       = "playerid"
	colEventName      = "event name"
	colFinishPosition = "finishingposition"
	colPositionPoints = "finishing position points"
	colTournamentType = "tournament type"
	colTournamentName = "tournament name"
	colFirstName      = "firstname"
	colLastName       = "lastname"
	colEndDate        = "tournament end date"
)

// dateLayouts are tried in order when parsing the tournament end date.
var dateLayouts = []string{
	"2006-01-02",
	"01/02/2006",
	"1/2/2006",
	"01-02-06",
	"2006-01-02 15:04:05",
}

// Batch is the normalized output of one spreadsheet: canonical results plus
// the players and events they reference, deduplicated, and the count of
// rows skipped as malformed.
type Batch struct {
	Results []model.Result
	Players []model.Player
	Events  []model.Event
	Skipped int
}

// NormalizeRows validates and canonicalizes raw spreadsheet rows. The first
// row must be the header; an error is returned only when a required column
// is missing entirely. Individual malformed rows (missing player id, bad
// event name, negative or non-numeric points, an unparsable non-empty date,
// a blank tournament name) are logged, counted in Skipped, and dropped.
//
// The end-date column is optional: the early federation exports carried no
// dates at all. A row without one gets the zero time and sorts oldest.
func NormalizeRows(rows [][]string) (*Batch, error) {
	if len(rows) == 0 {
		return nil, eris.New("ingest: sheet is empty")
	}

	cols, err := mapHeader(rows[0])
	if err != nil {
		return nil, err
	}

	batch := &Batch{}
	seenPlayers := make(map[int64]bool)
	seenEvents := make(map[string]bool)

	for i, row := range rows[1:] {
		res, err := normalizeRow(cols, row)
		if err != nil {
			batch.Skipped++
			zap.L().Warn("ingest: skipping malformed row",
				zap.Int("row", i+2), // 1-based, after the header
				zap.Error(err),
			)
			continue
		}
		batch.Results = append(batch.Results, res)

		if !seenPlayers[res.PlayerID] {
			seenPlayers[res.PlayerID] = true
			batch.Players = append(batch.Players, model.Player{
				PlayerID:  res.PlayerID,
				FirstName: res.FirstName,
				LastName:  res.LastName,
			})
		}
		if !seenEvents[res.EventCode] {
			seenEvents[res.EventCode] = true
			ev, _ := model.ParseEventCode(res.EventCode) // canonical, cannot fail
			batch.Events = append(batch.Events, ev)
		}
	}

	return batch, nil
}

// mapHeader resolves column positions by header name. The end-date column
// is optional; everything else is required.
func mapHeader(header []string) (map[string]int, error) {
	cols := make(map[string]int, len(header))
	for i, h := range header {
		cols[strings.ToLower(strings.TrimSpace(h))] = i
	}

	required := []string{
		colPlayerID, colEventName, colFinishPosition, colPositionPoints,
		colTournamentType, colTournamentName, colFirstName, colLastName,
	}
	var missing []string
	for _, name := range required {
		if _, ok := cols[name]; !ok {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		return nil, eris.Errorf("ingest: header is missing required columns: %s", strings.Join(missing, ", "))
	}
	return cols, nil
}

func cell(cols map[string]int, row []string, name string) string {
	i, ok := cols[name]
	if !ok || i >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[i])
}

func normalizeRow(cols map[string]int, row []string) (model.Result, error) {
	pidRaw := cell(cols, row, colPlayerID)
	if pidRaw == "" {
		return model.Result{}, eris.New("missing PlayerID")
	}
	pid, err := strconv.ParseInt(pidRaw, 10, 64)
	if err != nil {
		return model.Result{}, eris.Errorf("non-numeric PlayerID %q", pidRaw)
	}

	ev, err := model.ParseEventCode(cell(cols, row, colEventName))
	if err != nil {
		return model.Result{}, err
	}

	pointsRaw := cell(cols, row, colPositionPoints)
	points, err := strconv.ParseFloat(pointsRaw, 64)
	if err != nil {
		return model.Result{}, eris.Errorf("non-numeric points %q", pointsRaw)
	}
	if points < 0 {
		return model.Result{}, eris.Errorf("negative points %v", points)
	}

	tournament := cell(cols, row, colTournamentName)
	if tournament == "" {
		return model.Result{}, eris.New("missing tournament name")
	}

	endDate, err := parseEndDate(cell(cols, row, colEndDate))
	if err != nil {
		return model.Result{}, err
	}

	return model.Result{
		PlayerID:          pid,
		EventCode:         ev.Code,
		TournamentName:    tournament,
		TournamentType:    cell(cols, row, colTournamentType),
		FinishingPosition: cell(cols, row, colFinishPosition),
		PositionPoints:    points,
		TournamentEndDate: endDate,
		FirstName:         cell(cols, row, colFirstName),
		LastName:          cell(cols, row, colLastName),
	}, nil
}

func parseEndDate(raw string) (time.Time, error) {
	if raw == "" {
		return time.Time{}, nil
	}
	for _, layout := range dateLayouts {
		if d, err := time.Parse(layout, raw); err == nil {
			return d, nil
		}
	}
	return time.Time{}, eris.Errorf("unparsable tournament end date %q", raw)
}
