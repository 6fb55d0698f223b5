package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"strconv"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/jonathan/job-tracker/internal/store"
	"github.com/jonathan/job-tracker/internal/types"
)

var jobsCmd = &cobra.Command{
	Use:   "jobs",
	Short: "List tracked jobs",
	RunE:  runJobs,
}

var (
	jobsJSON   bool
	jobsStatus string
)

func init() {
	jobsCmd.Flags().BoolVar(&jobsJSON, "json", false, "Print the records as JSON")
	jobsCmd.Flags().StringVar(&jobsStatus, "status", "", "Only list jobs with this status")

	rootCmd.AddCommand(jobsCmd)
}

func runJobs(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	a, err := newApp(ctx)
	if err != nil {
		return fmt.Errorf("failed to initialize: %w", err)
	}
	defer a.Close()

	return listJobs(ctx, a.store, jobsStatus, jobsJSON, os.Stdout)
}

func listJobs(ctx context.Context, st *store.Store, status string, asJSON bool, out io.Writer) error {
	records, err := st.List(ctx)
	if err != nil {
		return err
	}
	if status != "" {
		filtered := records[:0]
		for _, r := range records {
			if r.Status == status {
				filtered = append(filtered, r)
			}
		}
		records = filtered
	}

	if asJSON {
		return writeJSON(out, records)
	}

	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tSTATUS\tSCORE\tROLE\tCOMPANY\tURL")
	for _, r := range records {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\t%s\n", r.ID, r.Status, score(r), r.Role, r.Company, r.URL)
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	fmt.Fprintf(out, "\n%d jobs\n", len(records))
	return nil
}

func score(r types.JobRecord) string {
	if !r.HasRanking() {
		return "-"
	}
	return strconv.Itoa(*r.AIScore)
}
