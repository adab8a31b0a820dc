package main

import (
	"encoding/csv"
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/shuttleworks/rankings-cli/internal/api"
	"github.com/shuttleworks/rankings-cli/internal/model"
	"github.com/shuttleworks/rankings-cli/internal/ranking"
	"github.com/shuttleworks/rankings-cli/internal/store"
)

var exportOutPath string

var exportCmd = &cobra.Command{
	Use:   "export <event>",
	Short: "Export one event's ranking as CSV",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		ev, err := model.ParseEventCode(args[0])
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

		engine, err := ranking.New(cfg.Ranking)
		if err != nil {
			return err
		}

		out := os.Stdout
		if exportOutPath != "" {
			f, err := os.Create(exportOutPath)
			if err != nil {
				return eris.Wrap(err, "export: create output file")
			}
			defer f.Close() //nolint:errcheck
			out = f
		}

		bestOf := engine.BestOf()
		w := csv.NewWriter(out)
		if err := w.Write(api.ExportHeader(bestOf)); err != nil {
			return eris.Wrap(err, "export: write header")
		}

		written := 0
		startRank := 1
		for {
			entries, err := st.ListRankings(ctx, store.RankingFilter{
				EventCode: ev.Code,
				StartRank: startRank,
				Limit:     500,
			})
			if err != nil {
				return eris.Wrapf(err, "export: list %s", ev.Code)
			}
			for _, e := range entries {
				if err := w.Write(api.ExportRow(e, bestOf)); err != nil {
					return eris.Wrap(err, "export: write row")
				}
			}
			written += len(entries)
			if len(entries) < 500 {
				break
			}
			startRank = entries[len(entries)-1].Rank + 1
		}
		w.Flush()
		if err := w.Error(); err != nil {
			return eris.Wrap(err, "export: flush")
		}

		if exportOutPath != "" {
			zap.L().Info("export complete",
				zap.String("event", ev.Code),
				zap.String("file", exportOutPath),
				zap.Int("rows", written),
			)
		}
		return nil
	},
}

func init() {
	exportCmd.Flags().StringVar(&exportOutPath, "out", "", "output file (default stdout)")
	rootCmd.AddCommand(exportCmd)
}
