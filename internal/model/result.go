package model

import "time"

// Player is one ranked athlete. Names are carried on Result rows too so
// ranking computation never needs a second lookup.
type Player struct {
	PlayerID  int64  `json:"player_id"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
}

// Result is a single finishing record: one player, one event, one
// tournament. Results are immutable once ingested; re-ingesting a period
// replaces them wholesale.
type Result struct {
	PlayerID          int64     `json:"player_id"`
	EventCode         string    `json:"event_code"`
	TournamentName    string    `json:"tournament_name"`
	TournamentType    string    `json:"tournament_type"`
	FinishingPosition string    `json:"finishing_position"`
	PositionPoints    float64   `json:"position_points"`
	TournamentEndDate time.Time `json:"tournament_end_date"`
	FirstName         string    `json:"first_name"`
	LastName          string    `json:"last_name"`
}

// RankingEntry is one row of a computed ranking. Entries are pure derived
// values: every ranking run rebuilds them from scratch and the store swaps
// the whole event partition atomically.
//
// Top4Vector holds only the points that were actually selected (descending,
// at most the configured best-of count); use PaddedVector for the fixed
// four-slot wire representation.
type RankingEntry struct {
	EventCode          string    `json:"event_code"`
	Rank               int       `json:"rank"`
	PlayerID           int64     `json:"player_id"`
	FirstName          string    `json:"first_name"`
	LastName           string    `json:"last_name"`
	TotalPoints        float64   `json:"total_points"`
	Top4Vector         []float64 `json:"selected_top4_vector"`
	CountedTournaments int       `json:"counted_tournaments"`
	MostRecentDate     time.Time `json:"most_recent_date"`
}

// PaddedVector returns the Top4Vector zero-padded to n slots.
func (e RankingEntry) PaddedVector(n int) []float64 {
	out := make([]float64, n)
	copy(out, e.Top4Vector)
	return out
}

// IngestionRun records one spreadsheet ingestion: where the rows came
// from, the as-of date they describe, and how many were skipped as
// malformed.
type IngestionRun struct {
	ID          string    `json:"id"`
	SourceFile  string    `json:"source_file"`
	AsOf        time.Time `json:"as_of"`
	TotalRows   int       `json:"total_rows"`
	SkippedRows int       `json:"skipped_rows"`
	CreatedAt   time.Time `json:"created_at"`
}
