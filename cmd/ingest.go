package main

import (
	"path/filepath"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/shuttleworks/rankings-cli/internal/ingest"
	"github.com/shuttleworks/rankings-cli/internal/model"
	"github.com/shuttleworks/rankings-cli/internal/ranking"
	"github.com/shuttleworks/rankings-cli/internal/store"
)

var (
	ingestXLSXPath  string
	ingestSheetName string
	ingestAsOf      string
	ingestNoCompute bool
)

var ingestCmd = &cobra.Command{
	Use:   "ingest",
	Short: "Load a tournament result spreadsheet and recompute rankings",
	Long:  "Reads an xlsx export, normalizes its rows, stores results, players and events, then recomputes every event ranking from the full result snapshot.",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		asOf := time.Now().UTC()
		if ingestAsOf != "" {
			parsed, err := time.Parse("2006-01-02", ingestAsOf)
			if err != nil {
				return eris.Wrap(err, "ingest: parse --as-of")
			}
			asOf = parsed
		}

		rows, err := ingest.ReadXLSX(ingestXLSXPath, ingest.XLSXOptions{SheetName: ingestSheetName})
		if err != nil {
			return err
		}

		batch, err := ingest.NormalizeRows(rows)
		if err != nil {
			return err
		}

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck
		if err := st.Migrate(ctx); err != nil {
			return err
		}

		if err := st.UpsertPlayers(ctx, batch.Players); err != nil {
			return err
		}
		if err := st.UpsertEvents(ctx, batch.Events); err != nil {
			return err
		}
		if err := st.UpsertResults(ctx, batch.Results); err != nil {
			return err
		}

		runID := uuid.New().String()
		if err := st.RecordIngestion(ctx, model.IngestionRun{
			ID:          runID,
			SourceFile:  filepath.Base(ingestXLSXPath),
			AsOf:        asOf,
			TotalRows:   len(batch.Results) + batch.Skipped,
			SkippedRows: batch.Skipped,
		}); err != nil {
			return err
		}

		zap.L().Info("ingestion stored",
			zap.String("run_id", runID),
			zap.String("file", ingestXLSXPath),
			zap.Int("results", len(batch.Results)),
			zap.Int("skipped", batch.Skipped),
			zap.Int("players", len(batch.Players)),
			zap.Int("events", len(batch.Events)),
		)

		if ingestNoCompute {
			return nil
		}
		return recomputeRankings(cmd, st)
	},
}

var recomputeCmd = &cobra.Command{
	Use:   "recompute",
	Short: "Recompute every event ranking from the stored results",
	RunE: func(cmd *cobra.Command, _ []string) error {
		st, err := initStore(cmd.Context())
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck
		if err := st.Migrate(cmd.Context()); err != nil {
			return err
		}
		return recomputeRankings(cmd, st)
	},
}

// recomputeRankings runs the full pipeline: load the complete result
// snapshot, compute every event concurrently, and swap each stored ranking
// partition. A per-event computation failure skips that event's swap and is
// reported at the end; the other events still go through.
func recomputeRankings(cmd *cobra.Command, st store.Store) error {
	ctx := cmd.Context()

	engine, err := ranking.New(cfg.Ranking)
	if err != nil {
		return err
	}

	results, err := st.ListAllResults(ctx)
	if err != nil {
		return err
	}

	rankings, computeErr := engine.ComputeAll(ctx, results)

	codes := make([]string, 0, len(rankings))
	for code := range rankings {
		codes = append(codes, code)
	}
	sort.Strings(codes)

	for _, code := range codes {
		entries := rankings[code]
		if err := st.ReplaceRankings(ctx, code, entries); err != nil {
			return eris.Wrapf(err, "ingest: store rankings for %s", code)
		}
		zap.L().Info("ranking replaced",
			zap.String("event", code),
			zap.Int("players", len(entries)),
		)
	}

	zap.L().Info("recompute complete",
		zap.Int("events", len(codes)),
		zap.Int("results", len(results)),
	)
	return computeErr
}

func init() {
	ingestCmd.Flags().StringVar(&ingestXLSXPath, "xlsx", "", "path to the result spreadsheet (required)")
	ingestCmd.Flags().StringVar(&ingestSheetName, "sheet", "", "sheet name (default first sheet)")
	ingestCmd.Flags().StringVar(&ingestAsOf, "as-of", "", "period the rows describe, YYYY-MM-DD (default today)")
	ingestCmd.Flags().BoolVar(&ingestNoCompute, "no-compute", false, "store rows without recomputing rankings")
	_ = ingestCmd.MarkFlagRequired("xlsx")
	rootCmd.AddCommand(ingestCmd)
	rootCmd.AddCommand(recomputeCmd)
}
