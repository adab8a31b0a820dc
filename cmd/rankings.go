package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/shuttleworks/rankings-cli/internal/model"
	"github.com/shuttleworks/rankings-cli/internal/ranking"
	"github.com/shuttleworks/rankings-cli/internal/store"
)

var (
	rankingsLimit     int
	rankingsStartRank int
	rankingsJSON      bool
)

var rankingsCmd = &cobra.Command{
	Use:   "rankings <event>",
	Short: "Print the stored ranking for one event",
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

		entries, err := st.ListRankings(ctx, store.RankingFilter{
			EventCode: ev.Code,
			StartRank: rankingsStartRank,
			Limit:     rankingsLimit,
		})
		if err != nil {
			return eris.Wrapf(err, "rankings: list %s", ev.Code)
		}

		if len(entries) == 0 {
			fmt.Fprintf(os.Stderr, "No ranking stored for %s. Run ingest or recompute first.\n", ev.Code)
			return nil
		}

		if rankingsJSON {
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(entries)
		}

		engine, err := ranking.New(cfg.Ranking)
		if err != nil {
			return err
		}
		printRankingTable(entries, engine.BestOf())
		return nil
	},
}

func printRankingTable(entries []model.RankingEntry, bestOf int) {
	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "RANK\tPLAYER\tNAME\tPOINTS\tTOP\tCOUNTED\tLAST PLAYED")
	for _, e := range entries {
		top := make([]string, 0, bestOf)
		for _, p := range e.PaddedVector(bestOf) {
			top = append(top, fmt.Sprintf("%g", p))
		}
		last := ""
		if !e.MostRecentDate.IsZero() {
			last = e.MostRecentDate.UTC().Format("2006-01-02")
		}
		fmt.Fprintf(w, "%d\t%d\t%s %s\t%g\t%s\t%d\t%s\n",
			e.Rank, e.PlayerID, e.FirstName, e.LastName,
			e.TotalPoints, strings.Join(top, "/"), e.CountedTournaments, last,
		)
	}
	w.Flush()
}

func init() {
	rankingsCmd.Flags().IntVar(&rankingsLimit, "limit", 100, "max rows to print")
	rankingsCmd.Flags().IntVar(&rankingsStartRank, "start-rank", 1, "first rank to print")
	rankingsCmd.Flags().BoolVar(&rankingsJSON, "json", false, "print raw JSON entries")
	rootCmd.AddCommand(rankingsCmd)
}
