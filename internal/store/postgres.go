package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"

	"github.com/shuttleworks/rankings-cli/internal/model"
)

// PostgresStore implements Store using pgxpool.
type PostgresStore struct {
	pool Pool
}

// PoolConfig holds optional connection pool tuning parameters.
type PoolConfig struct {
	MaxConns int32 `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns int32 `yaml:"min_conns" mapstructure:"min_conns"`
}

// preparedStatements lists queries to prepare on each new connection for
// faster execution of the read paths the HTTP API hits on every request.
var preparedStatements = map[string]string{
	"list_rankings":       `SELECT event_code, rank, player_id, first_name, last_name, total_points, top4, counted_tournaments, most_recent_date FROM rankings WHERE event_code = $1 AND rank >= $2 ORDER BY rank LIMIT $3`,
	"list_player_results": `SELECT player_id, event_code, tournament_name, tournament_type, finishing_position, position_points, end_date, first_name, last_name FROM results WHERE player_id = $1 AND event_code = $2 ORDER BY end_date DESC NULLS LAST, tournament_name LIMIT $3`,
	"list_events":         `SELECT event_code, gender, discipline, age FROM events ORDER BY event_code`,
}

// NewPostgres creates a PostgresStore with a connection pool.
func NewPostgres(ctx context.Context, connString string, poolCfg *PoolConfig) (*PostgresStore, error) {
	pgxCfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: parse config")
	}

	maxConns := int32(10)
	minConns := int32(2)
	if poolCfg != nil {
		if poolCfg.MaxConns > 0 {
			maxConns = poolCfg.MaxConns
		}
		if poolCfg.MinConns > 0 {
			minConns = poolCfg.MinConns
		}
	}
	pgxCfg.MaxConns = maxConns
	pgxCfg.MinConns = minConns
	pgxCfg.MaxConnLifetime = 30 * time.Minute
	pgxCfg.MaxConnIdleTime = 5 * time.Minute

	pgxCfg.AfterConnect = func(ctx context.Context, conn *pgx.Conn) error {
		for name, query := range preparedStatements {
			if _, err := conn.Prepare(ctx, name, query); err != nil {
				return eris.Wrapf(err, "postgres: prepare %s", name)
			}
		}
		return nil
	}

	pool, err := pgxpool.NewWithConfig(ctx, pgxCfg)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: create pool")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "postgres: ping")
	}
	return &PostgresStore{pool: pool}, nil
}

const postgresMigration = `
CREATE TABLE IF NOT EXISTS players (
	player_id  BIGINT PRIMARY KEY,
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
	id                 TEXT PRIMARY KEY DEFAULT gen_random_uuid()::text,
	player_id          BIGINT NOT NULL,
	event_code         TEXT NOT NULL,
	tournament_name    TEXT NOT NULL,
	tournament_type    TEXT NOT NULL DEFAULT '',
	finishing_position TEXT NOT NULL DEFAULT '',
	position_points    DOUBLE PRECISION NOT NULL,
	end_date           TIMESTAMPTZ,
	first_name         TEXT NOT NULL DEFAULT '',
	last_name          TEXT NOT NULL DEFAULT '',
	UNIQUE (player_id, event_code, tournament_name)
);

CREATE TABLE IF NOT EXISTS rankings (
	event_code          TEXT NOT NULL,
	rank                INTEGER NOT NULL,
	player_id           BIGINT NOT NULL,
	first_name          TEXT NOT NULL DEFAULT '',
	last_name           TEXT NOT NULL DEFAULT '',
	total_points        DOUBLE PRECISION NOT NULL,
	top4                JSONB NOT NULL,
	counted_tournaments INTEGER NOT NULL,
	most_recent_date    TIMESTAMPTZ,
	PRIMARY KEY (event_code, rank)
);

CREATE TABLE IF NOT EXISTS ingestion_runs (
	id           TEXT PRIMARY KEY DEFAULT gen_random_uuid()::text,
	source_file  TEXT NOT NULL,
	as_of        TIMESTAMPTZ NOT NULL,
	total_rows   INTEGER NOT NULL,
	skipped_rows INTEGER NOT NULL,
	created_at   TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_results_player_event ON results(player_id, event_code);
CREATE INDEX IF NOT EXISTS idx_results_event ON results(event_code);
CREATE INDEX IF NOT EXISTS idx_rankings_event_rank ON rankings(event_code, rank);
`

func (s *PostgresStore) Ping(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, "SELECT 1")
	return eris.Wrap(err, "postgres: ping")
}

func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, postgresMigration)
	return eris.Wrap(err, "postgres: migrate")
}

func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}

func (s *PostgresStore) UpsertPlayers(ctx context.Context, players []model.Player) error {
	if len(players) == 0 {
		return nil
	}
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return eris.Wrap(err, "postgres: begin upsert players")
	}
	defer tx.Rollback(ctx)

	for _, p := range players {
		_, err := tx.Exec(ctx,
			`INSERT INTO players (player_id, first_name, last_name) VALUES ($1, $2, $3)
			 ON CONFLICT (player_id) DO UPDATE SET first_name = excluded.first_name, last_name = excluded.last_name`,
			p.PlayerID, p.FirstName, p.LastName,
		)
		if err != nil {
			return eris.Wrapf(err, "postgres: upsert player %d", p.PlayerID)
		}
	}
	return eris.Wrap(tx.Commit(ctx), "postgres: commit upsert players")
}

func (s *PostgresStore) UpsertEvents(ctx context.Context, events []model.Event) error {
	if len(events) == 0 {
		return nil
	}
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return eris.Wrap(err, "postgres: begin upsert events")
	}
	defer tx.Rollback(ctx)

	for _, ev := range events {
		_, err := tx.Exec(ctx,
			`INSERT INTO events (event_code, gender, discipline, age) VALUES ($1, $2, $3, $4)
			 ON CONFLICT (event_code) DO UPDATE SET gender = excluded.gender, discipline = excluded.discipline, age = excluded.age`,
			ev.Code, ev.Gender, ev.Discipline, ev.Age,
		)
		if err != nil {
			return eris.Wrapf(err, "postgres: upsert event %s", ev.Code)
		}
	}
	return eris.Wrap(tx.Commit(ctx), "postgres: commit upsert events")
}

func (s *PostgresStore) UpsertResults(ctx context.Context, results []model.Result) error {
	if len(results) == 0 {
		return nil
	}
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return eris.Wrap(err, "postgres: begin upsert results")
	}
	defer tx.Rollback(ctx)

	for _, r := range results {
		_, err := tx.Exec(ctx,
			`INSERT INTO results (id, player_id, event_code, tournament_name, tournament_type, finishing_position, position_points, end_date, first_name, last_name)
			 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
			 ON CONFLICT (player_id, event_code, tournament_name) DO UPDATE SET
				tournament_type = excluded.tournament_type,
				finishing_position = excluded.finishing_position,
				position_points = excluded.position_points,
				end_date = excluded.end_date,
				first_name = excluded.first_name,
				last_name = excluded.last_name`,
			uuid.New().String(), r.PlayerID, r.EventCode, r.TournamentName, r.TournamentType,
			r.FinishingPosition, r.PositionPoints, pgNullableTime(r.TournamentEndDate), r.FirstName, r.LastName,
		)
		if err != nil {
			return eris.Wrapf(err, "postgres: upsert result %d/%s/%s", r.PlayerID, r.EventCode, r.TournamentName)
		}
	}
	return eris.Wrap(tx.Commit(ctx), "postgres: commit upsert results")
}

func (s *PostgresStore) RecordIngestion(ctx context.Context, run model.IngestionRun) error {
	id := run.ID
	if id == "" {
		id = uuid.New().String()
	}
	createdAt := run.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}
	_, err := s.pool.Exec(ctx,
		`INSERT INTO ingestion_runs (id, source_file, as_of, total_rows, skipped_rows, created_at) VALUES ($1, $2, $3, $4, $5, $6)`,
		id, run.SourceFile, run.AsOf, run.TotalRows, run.SkippedRows, createdAt,
	)
	return eris.Wrap(err, "postgres: record ingestion")
}

func (s *PostgresStore) ListIngestions(ctx context.Context, limit int) ([]model.IngestionRun, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.pool.Query(ctx,
		`SELECT id, source_file, as_of, total_rows, skipped_rows, created_at
		 FROM ingestion_runs ORDER BY created_at DESC LIMIT $1`, limit)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list ingestions")
	}
	defer rows.Close()

	var runs []model.IngestionRun
	for rows.Next() {
		var r model.IngestionRun
		if err := rows.Scan(&r.ID, &r.SourceFile, &r.AsOf, &r.TotalRows, &r.SkippedRows, &r.CreatedAt); err != nil {
			return nil, eris.Wrap(err, "postgres: scan ingestion run")
		}
		runs = append(runs, r)
	}
	return runs, eris.Wrap(rows.Err(), "postgres: list ingestions iterate")
}

func (s *PostgresStore) ListEvents(ctx context.Context) ([]model.Event, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT event_code, gender, discipline, age FROM events ORDER BY event_code`)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list events")
	}
	defer rows.Close()

	var events []model.Event
	for rows.Next() {
		var ev model.Event
		if err := rows.Scan(&ev.Code, &ev.Gender, &ev.Discipline, &ev.Age); err != nil {
			return nil, eris.Wrap(err, "postgres: scan event")
		}
		events = append(events, ev)
	}
	return events, eris.Wrap(rows.Err(), "postgres: list events iterate")
}

func (s *PostgresStore) ListAllResults(ctx context.Context) ([]model.Result, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT player_id, event_code, tournament_name, tournament_type, finishing_position, position_points, end_date, first_name, last_name
		 FROM results ORDER BY player_id, event_code, tournament_name`)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list results")
	}
	defer rows.Close()
	return scanPgResults(rows)
}

func (s *PostgresStore) ListPlayerResults(ctx context.Context, playerID int64, eventCode string, limit int) ([]model.Result, error) {
	if limit <= 0 {
		limit = 200
	}
	rows, err := s.pool.Query(ctx,
		`SELECT player_id, event_code, tournament_name, tournament_type, finishing_position, position_points, end_date, first_name, last_name
		 FROM results WHERE player_id = $1 AND event_code = $2
		 ORDER BY end_date DESC NULLS LAST, tournament_name LIMIT $3`,
		playerID, eventCode, limit)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list player results")
	}
	defer rows.Close()
	return scanPgResults(rows)
}

// ReplaceRankings swaps one event's ranking for a freshly computed one in a
// single transaction, so readers never observe a half-written partition.
func (s *PostgresStore) ReplaceRankings(ctx context.Context, eventCode string, entries []model.RankingEntry) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return eris.Wrap(err, "postgres: begin replace rankings")
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `DELETE FROM rankings WHERE event_code = $1`, eventCode); err != nil {
		return eris.Wrapf(err, "postgres: clear rankings for %s", eventCode)
	}

	for _, e := range entries {
		vec, err := json.Marshal(e.Top4Vector)
		if err != nil {
			return eris.Wrap(err, "postgres: marshal vector")
		}
		_, err = tx.Exec(ctx,
			`INSERT INTO rankings (event_code, rank, player_id, first_name, last_name, total_points, top4, counted_tournaments, most_recent_date)
			 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
			eventCode, e.Rank, e.PlayerID, e.FirstName, e.LastName, e.TotalPoints, vec,
			e.CountedTournaments, pgNullableTime(e.MostRecentDate),
		)
		if err != nil {
			return eris.Wrapf(err, "postgres: insert ranking %s rank %d", eventCode, e.Rank)
		}
	}
	return eris.Wrapf(tx.Commit(ctx), "postgres: commit replace rankings for %s", eventCode)
}

func (s *PostgresStore) ListRankings(ctx context.Context, filter RankingFilter) ([]model.RankingEntry, error) {
	startRank := filter.StartRank
	if startRank <= 0 {
		startRank = 1
	}
	limit := filter.Limit
	if limit <= 0 {
		limit = 50
	}

	rows, err := s.pool.Query(ctx,
		`SELECT event_code, rank, player_id, first_name, last_name, total_points, top4, counted_tournaments, most_recent_date
		 FROM rankings WHERE event_code = $1 AND rank >= $2 ORDER BY rank LIMIT $3`,
		filter.EventCode, startRank, limit)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list rankings")
	}
	defer rows.Close()

	var entries []model.RankingEntry
	for rows.Next() {
		var e model.RankingEntry
		var vec []byte
		var recent sql.NullTime
		if err := rows.Scan(&e.EventCode, &e.Rank, &e.PlayerID, &e.FirstName, &e.LastName,
			&e.TotalPoints, &vec, &e.CountedTournaments, &recent); err != nil {
			return nil, eris.Wrap(err, "postgres: scan ranking")
		}
		if err := json.Unmarshal(vec, &e.Top4Vector); err != nil {
			return nil, eris.Wrap(err, "postgres: unmarshal vector")
		}
		if recent.Valid {
			e.MostRecentDate = recent.Time
		}
		entries = append(entries, e)
	}
	return entries, eris.Wrap(rows.Err(), "postgres: list rankings iterate")
}

func pgNullableTime(t time.Time) any {
	if t.IsZero() {
		return nil
	}
	return t
}

func scanPgResults(rows pgx.Rows) ([]model.Result, error) {
	var results []model.Result
	for rows.Next() {
		var r model.Result
		var end sql.NullTime
		if err := rows.Scan(&r.PlayerID, &r.EventCode, &r.TournamentName, &r.TournamentType,
			&r.FinishingPosition, &r.PositionPoints, &end, &r.FirstName, &r.LastName); err != nil {
			return nil, eris.Wrap(err, "postgres: scan result")
		}
		if end.Valid {
			r.TournamentEndDate = end.Time
		}
		results = append(results, r)
	}
	return results, eris.Wrap(rows.Err(), "postgres: scan results iterate")
}
