package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/shuttleworks/rankings-cli/internal/model"
)

// SQLiteStore implements Store using modernc.org/sqlite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at the given path and configures WAL mode.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA foreign_keys=ON",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS players (
	player_id  INTEGER PRIMARY KEY,
	first_name TEXT NOT NULL DEFAULT '',
	last_name  TEXT NOT NULL DEFAULT ''
);

CREATE TABLE IF NOT EXISTS events (
	event_code TEXT PRIMARY KEY,
	gender     TEXT NOT NULL,
	discipline TEXT NOT NULL,
	age        TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS results (
	id                 TEXT PRIMARY KEY,
	player_id          INTEGER NOT NULL,
	event_code         TEXT NOT NULL,
	tournament_name    TEXT NOT NULL,
	tournament_type    TEXT NOT NULL DEFAULT '',
	finishing_position TEXT NOT NULL DEFAULT '',
	position_points    REAL NOT NULL,
	end_date           DATETIME,
	first_name         TEXT NOT NULL DEFAULT '',
	last_name          TEXT NOT NULL DEFAULT '',
	UNIQUE (player_id, event_code, tournament_name)
);

CREATE TABLE IF NOT EXISTS rankings (
	event_code          TEXT NOT NULL,
	rank                INTEGER NOT NULL,
	player_id           INTEGER NOT NULL,
	first_name          TEXT NOT NULL DEFAULT '',
	last_name           TEXT NOT NULL DEFAULT '',
	total_points        REAL NOT NULL,
	top4                TEXT NOT NULL,
	counted_tournaments INTEGER NOT NULL,
	most_recent_date    DATETIME,
	PRIMARY KEY (event_code, rank)
);

CREATE TABLE IF NOT EXISTS ingestion_runs (
	id           TEXT PRIMARY KEY,
	source_file  TEXT NOT NULL,
	as_of        DATETIME NOT NULL,
	total_rows   INTEGER NOT NULL,
	skipped_rows INTEGER NOT NULL,
	created_at   DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE INDEX IF NOT EXISTS idx_results_player_event ON results(player_id, event_code);
CREATE INDEX IF NOT EXISTS idx_results_event ON results(event_code);
CREATE INDEX IF NOT EXISTS idx_rankings_event_rank ON rankings(event_code, rank);
`

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) UpsertPlayers(ctx context.Context, players []model.Player) error {
	if len(players) == 0 {
		return nil
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return eris.Wrap(err, "sqlite: begin upsert players")
	}
	defer tx.Rollback()

	for _, p := range players {
		_, err := tx.ExecContext(ctx,
			`INSERT INTO players (player_id, first_name, last_name) VALUES (?, ?, ?)
			 ON CONFLICT (player_id) DO UPDATE SET first_name = excluded.first_name, last_name = excluded.last_name`,
			p.PlayerID, p.FirstName, p.LastName,
		)
		if err != nil {
			return eris.Wrapf(err, "sqlite: upsert player %d", p.PlayerID)
		}
	}
	return eris.Wrap(tx.Commit(), "sqlite: commit upsert players")
}

func (s *SQLiteStore) UpsertEvents(ctx context.Context, events []model.Event) error {
	if len(events) == 0 {
		return nil
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return eris.Wrap(err, "sqlite: begin upsert events")
	}
	defer tx.Rollback()

	for _, ev := range events {
		_, err := tx.ExecContext(ctx,
			`INSERT INTO events (event_code, gender, discipline, age) VALUES (?, ?, ?, ?)
			 ON CONFLICT (event_code) DO UPDATE SET gender = excluded.gender, discipline = excluded.discipline, age = excluded.age`,
			ev.Code, ev.Gender, ev.Discipline, ev.Age,
		)
		if err != nil {
			return eris.Wrapf(err, "sqlite: upsert event %s", ev.Code)
		}
	}
	return eris.Wrap(tx.Commit(), "sqlite: commit upsert events")
}

func (s *SQLiteStore) UpsertResults(ctx context.Context, results []model.Result) error {
	if len(results) == 0 {
		return nil
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return eris.Wrap(err, "sqlite: begin upsert results")
	}
	defer tx.Rollback()

	for _, r := range results {
		_, err := tx.ExecContext(ctx,
			`INSERT INTO results (id, player_id, event_code, tournament_name, tournament_type, finishing_position, position_points, end_date, first_name, last_name)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
			 ON CONFLICT (player_id, event_code, tournament_name) DO UPDATE SET
				tournament_type = excluded.tournament_type,
				finishing_position = excluded.finishing_position,
				position_points = excluded.position_points,
				end_date = excluded.end_date,
				first_name = excluded.first_name,
				last_name = excluded.last_name`,
			uuid.New().String(), r.PlayerID, r.EventCode, r.TournamentName, r.TournamentType,
			r.FinishingPosition, r.PositionPoints, nullableTime(r.TournamentEndDate), r.FirstName, r.LastName,
		)
		if err != nil {
			return eris.Wrapf(err, "sqlite: upsert result %d/%s/%s", r.PlayerID, r.EventCode, r.TournamentName)
		}
	}
	return eris.Wrap(tx.Commit(), "sqlite: commit upsert results")
}

func (s *SQLiteStore) RecordIngestion(ctx context.Context, run model.IngestionRun) error {
	id := run.ID
	if id == "" {
		id = uuid.New().String()
	}
	createdAt := run.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO ingestion_runs (id, source_file, as_of, total_rows, skipped_rows, created_at) VALUES (?, ?, ?, ?, ?, ?)`,
		id, run.SourceFile, run.AsOf, run.TotalRows, run.SkippedRows, createdAt,
	)
	return eris.Wrap(err, "sqlite: record ingestion")
}

func (s *SQLiteStore) ListIngestions(ctx context.Context, limit int) ([]model.IngestionRun, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, source_file, as_of, total_rows, skipped_rows, created_at
		 FROM ingestion_runs ORDER BY created_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list ingestions")
	}
	defer rows.Close()

	var runs []model.IngestionRun
	for rows.Next() {
		var r model.IngestionRun
		if err := rows.Scan(&r.ID, &r.SourceFile, &r.AsOf, &r.TotalRows, &r.SkippedRows, &r.CreatedAt); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan ingestion run")
		}
		runs = append(runs, r)
	}
	return runs, eris.Wrap(rows.Err(), "sqlite: list ingestions iterate")
}

func (s *SQLiteStore) ListEvents(ctx context.Context) ([]model.Event, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT event_code, gender, discipline, age FROM events ORDER BY event_code`)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list events")
	}
	defer rows.Close()

	var events []model.Event
	for rows.Next() {
		var ev model.Event
		if err := rows.Scan(&ev.Code, &ev.Gender, &ev.Discipline, &ev.Age); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan event")
		}
		events = append(events, ev)
	}
	return events, eris.Wrap(rows.Err(), "sqlite: list events iterate")
}

const resultColumns = `player_id, event_code, tournament_name, tournament_type, finishing_position, position_points, end_date, first_name, last_name`

func (s *SQLiteStore) ListAllResults(ctx context.Context) ([]model.Result, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+resultColumns+` FROM results ORDER BY player_id, event_code, tournament_name`)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list results")
	}
	defer rows.Close()
	return scanResults(rows)
}

func (s *SQLiteStore) ListPlayerResults(ctx context.Context, playerID int64, eventCode string, limit int) ([]model.Result, error) {
	if limit <= 0 {
		limit = 200
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+resultColumns+` FROM results
		 WHERE player_id = ? AND event_code = ?
		 ORDER BY end_date DESC, tournament_name LIMIT ?`,
		playerID, eventCode, limit)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list player results")
	}
	defer rows.Close()
	return scanResults(rows)
}

// ReplaceRankings swaps one event's ranking for a freshly computed one in a
// single transaction, so readers never observe a half-written partition.
func (s *SQLiteStore) ReplaceRankings(ctx context.Context, eventCode string, entries []model.RankingEntry) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return eris.Wrap(err, "sqlite: begin replace rankings")
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM rankings WHERE event_code = ?`, eventCode); err != nil {
		return eris.Wrapf(err, "sqlite: clear rankings for %s", eventCode)
	}

	for _, e := range entries {
		vec, err := json.Marshal(e.Top4Vector)
		if err != nil {
			return eris.Wrap(err, "sqlite: marshal vector")
		}
		_, err = tx.ExecContext(ctx,
			`INSERT INTO rankings (event_code, rank, player_id, first_name, last_name, total_points, top4, counted_tournaments, most_recent_date)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			eventCode, e.Rank, e.PlayerID, e.FirstName, e.LastName, e.TotalPoints, string(vec),
			e.CountedTournaments, nullableTime(e.MostRecentDate),
		)
		if err != nil {
			return eris.Wrapf(err, "sqlite: insert ranking %s rank %d", eventCode, e.Rank)
		}
	}
	return eris.Wrapf(tx.Commit(), "sqlite: commit replace rankings for %s", eventCode)
}

func (s *SQLiteStore) ListRankings(ctx context.Context, filter RankingFilter) ([]model.RankingEntry, error) {
	startRank := filter.StartRank
	if startRank <= 0 {
		startRank = 1
	}
	limit := filter.Limit
	if limit <= 0 {
		limit = 50
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT event_code, rank, player_id, first_name, last_name, total_points, top4, counted_tournaments, most_recent_date
		 FROM rankings WHERE event_code = ? AND rank >= ? ORDER BY rank LIMIT ?`,
		filter.EventCode, startRank, limit)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list rankings")
	}
	defer rows.Close()

	var entries []model.RankingEntry
	for rows.Next() {
		var e model.RankingEntry
		var vec string
		var recent sql.NullTime
		if err := rows.Scan(&e.EventCode, &e.Rank, &e.PlayerID, &e.FirstName, &e.LastName,
			&e.TotalPoints, &vec, &e.CountedTournaments, &recent); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan ranking")
		}
		if err := json.Unmarshal([]byte(vec), &e.Top4Vector); err != nil {
			return nil, eris.Wrap(err, "sqlite: unmarshal vector")
		}
		if recent.Valid {
			e.MostRecentDate = recent.Time
		}
		entries = append(entries, e)
	}
	return entries, eris.Wrap(rows.Err(), "sqlite: list rankings iterate")
}

// helpers

func nullableTime(t time.Time) any {
	if t.IsZero() {
		return nil
	}
	return t
}

func scanResults(rows *sql.Rows) ([]model.Result, error) {
	var results []model.Result
	for rows.Next() {
		var r model.Result
		var end sql.NullTime
		if err := rows.Scan(&r.PlayerID, &r.EventCode, &r.TournamentName, &r.TournamentType,
			&r.FinishingPosition, &r.PositionPoints, &end, &r.FirstName, &r.LastName); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan result")
		}
		if end.Valid {
			r.TournamentEndDate = end.Time
		}
		results = append(results, r)
	}
	return results, eris.Wrap(rows.Err(), "sqlite: scan results iterate")
}
