// Package store persists players, events, results, ingestion runs and
// computed rankings. Two backends implement the same interface: an
// embedded SQLite database for single-operator use and PostgreSQL for
// shared deployments.
package store

import (
	"context"

	"github.com/shuttleworks/rankings-cli/internal/model"
)

// RankingFilter pages through one event's ranking by starting rank.
type RankingFilter struct {
	EventCode string `json:"event_code"`
	StartRank int    `json:"start_rank,omitempty"`
	Limit     int    `json:"limit,omitempty"`
}

// Store defines the persistence interface for the rankings pipeline.
//
// Results are the immutable source of truth; rankings are derived and
// always replaced wholesale per event code, never merged row-by-row:
// carry-up membership and tie-break order are global properties of the
// whole snapshot, so an incremental merge cannot be correct.
type Store interface {
	// Ingestion
	UpsertPlayers(ctx context.Context, players []model.Player) error
	UpsertEvents(ctx context.Context, events []model.Event) error
	UpsertResults(ctx context.Context, results []model.Result) error
	RecordIngestion(ctx context.Context, run model.IngestionRun) error
	ListIngestions(ctx context.Context, limit int) ([]model.IngestionRun, error)

	// Snapshots
	ListEvents(ctx context.Context) ([]model.Event, error)
	ListAllResults(ctx context.Context) ([]model.Result, error)
	ListPlayerResults(ctx context.Context, playerID int64, eventCode string, limit int) ([]model.Result, error)

	// Rankings
	ReplaceRankings(ctx context.Context, eventCode string, entries []model.RankingEntry) error
	ListRankings(ctx context.Context, filter RankingFilter) ([]model.RankingEntry, error)

	// Lifecycle
	Migrate(ctx context.Context) error
	Close() error
}
