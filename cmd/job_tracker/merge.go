package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/jonathan/job-tracker/internal/intake"
	"github.com/jonathan/job-tracker/internal/observability"
	"github.com/jonathan/job-tracker/internal/schemas"
	"github.com/jonathan/job-tracker/internal/store"
	"github.com/jonathan/job-tracker/internal/types"
)

var mergeCmd = &cobra.Command{
	Use:   "merge",
	Short: "Merge a JSON file of job submissions into the tracker",
	Long:  "Read a JSON array of submissions ({role|title, company, url, ...}) and add the ones that are not already tracked.",
	RunE:  runMerge,
}

var (
	mergeFile   string
	mergeStatus string
)

func init() {
	mergeCmd.Flags().StringVarP(&mergeFile, "file", "f", "", "Path to submissions JSON (required)")
	mergeCmd.Flags().StringVar(&mergeStatus, "status", types.StatusWishlist, "Status for submissions that carry none")

	_ = mergeCmd.MarkFlagRequired("file")

	rootCmd.AddCommand(mergeCmd)
}

func runMerge(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	a, err := newApp(ctx)
	if err != nil {
		return fmt.Errorf("failed to initialize: %w", err)
	}
	defer a.Close()

	return mergeSubmissions(ctx, a.store, mergeFile, intake.Options{
		Status:   mergeStatus,
		Location: a.cfg.DefaultLocation,
	}, os.Stdout, a.printer())
}

// mergeSubmissions validates path against the submissions schema and merges
// its entries into st.
func mergeSubmissions(ctx context.Context, st *store.Store, path string, opts intake.Options, out io.Writer, pr *observability.Printer) error {
	if err := schemas.ValidateFile(schemas.Submissions, path); err != nil {
		return fmt.Errorf("invalid submissions file: %w", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", path, err)
	}
	var subs []types.JobSubmission
	if err := json.Unmarshal(data, &subs); err != nil {
		return fmt.Errorf("failed to parse %s: %w", path, err)
	}

	result, err := st.Merge(ctx, subs, opts)
	if err != nil {
		return fmt.Errorf("failed to merge: %w", err)
	}
	pr.PrintMerge(result)

	fmt.Fprintf(out, "Added %d of %d submissions (%d tracked)\n", result.Added(), len(subs), len(result.Records))
	for _, r := range result.Rejected {
		if r.Detail != "" {
			fmt.Fprintf(out, "  skipped #%d %s at %s: %s (%s)\n", r.Index, r.Role, r.Company, r.Reason, r.Detail)
			continue
		}
		fmt.Fprintf(out, "  skipped #%d %s at %s: %s\n", r.Index, r.Role, r.Company, r.Reason)
	}
	return nil
}
