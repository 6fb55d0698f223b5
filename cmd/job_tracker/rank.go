package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/jonathan/job-tracker/internal/observability"
	"github.com/jonathan/job-tracker/internal/ranking"
	"github.com/jonathan/job-tracker/internal/store"
	"github.com/jonathan/job-tracker/internal/types"
)

var rankCmd = &cobra.Command{
	Use:   "rank",
	Short: "Rank tracked jobs against the candidate profile",
	Long:  "Send tracked jobs to the model in batches and print each job's score, label and priority. With --write the results are stored on the jobs.",
	RunE:  runRank,
}

var (
	rankWrite    bool
	rankUnranked bool
	rankIDs      []int64
)

func init() {
	rankCmd.Flags().BoolVar(&rankWrite, "write", false, "Store the rankings on the tracked jobs")
	rankCmd.Flags().BoolVar(&rankUnranked, "unranked", false, "Only rank jobs without a score")
	rankCmd.Flags().Int64SliceVar(&rankIDs, "id", nil, "Rank only these job ids (repeatable)")

	rootCmd.AddCommand(rankCmd)
}

func runRank(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	a, err := newApp(ctx)
	if err != nil {
		return fmt.Errorf("failed to initialize: %w", err)
	}
	defer a.Close()

	sel := ranking.Selection{IDs: rankIDs, UnrankedOnly: rankUnranked, BatchSize: a.cfg.RankBatchSize}
	return rankJobs(ctx, a.ranker, a.store, a.profile, sel, rankWrite, os.Stdout, a.printer())
}

// rankJobs ranks the selected jobs of st. Without write the rankings are
// printed only; the store is wrapped so nothing is written back.
func rankJobs(ctx context.Context, engine *ranking.Engine, st *store.Store, profile *types.Profile, sel ranking.Selection, write bool, out io.Writer, pr *observability.Printer) error {
	var target ranking.Store = st
	if !write {
		target = readOnly{st}
	}

	report, err := engine.RankStored(ctx, target, profile, sel)
	if err != nil {
		return err
	}

	titles := make(map[int64]string)
	if records, err := st.List(ctx); err == nil {
		for _, r := range records {
			titles[r.ID] = r.Role + " @ " + r.Company
		}
	}

	pr.PrintRankings(report.Results, titles)
	pr.PrintRankFailures(report.Failures)

	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tSCORE\tLABEL\tPRIORITY\tJOB")
	for _, r := range report.Results {
		fmt.Fprintf(tw, "%d\t%d\t%s\t%s\t%s\n", r.ID, r.Score, r.Label, r.Priority, titles[r.ID])
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	fmt.Fprintf(out, "\nRanked %d of %d selected jobs", len(report.Results), report.Selected)
	if write {
		fmt.Fprintf(out, ", %d updated", report.Updated)
	}
	fmt.Fprintln(out)

	for _, f := range report.Failures {
		fmt.Fprintf(out, "batch failed (%s): %v\n", f.Status, f.Err)
	}
	if len(report.Failures) > 0 && len(report.Results) == 0 {
		return fmt.Errorf("ranking failed for every batch")
	}
	return nil
}

// readOnly reports rankings as applied without storing them.
type readOnly struct {
	*store.Store
}

func (readOnly) ApplyRankings(_ context.Context, results []types.RankingResult) (int, error) {
	return 0, nil
}
