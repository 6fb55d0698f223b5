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
	"github.com/jonathan/job-tracker/internal/server"
	"github.com/jonathan/job-tracker/internal/store"
	"github.com/jonathan/job-tracker/internal/types"
)

var importJobCmd = &cobra.Command{
	Use:   "import-job",
	Short: "Extract a job posting from a URL",
	Long:  "Fetch a LinkedIn, Indeed, MyCareersFuture or other job page, print the extracted fields as JSON and optionally save the job.",
	RunE:  runImportJob,
}

var (
	importURL    string
	importJDOnly bool
	importSave   bool
)

func init() {
	importJobCmd.Flags().StringVarP(&importURL, "url", "u", "", "URL of the job posting (required)")
	importJobCmd.Flags().BoolVar(&importJDOnly, "jd-only", false, "Only fetch the job description")
	importJobCmd.Flags().BoolVar(&importSave, "save", false, "Add the extracted job to the tracker")

	_ = importJobCmd.MarkFlagRequired("url")

	rootCmd.AddCommand(importJobCmd)
}

func runImportJob(cmd *cobra.Command, _ []string) error {
	if importJDOnly && importSave {
		return fmt.Errorf("--jd-only and --save are mutually exclusive")
	}

	ctx := cmd.Context()
	a, err := newApp(ctx)
	if err != nil {
		return fmt.Errorf("failed to initialize: %w", err)
	}
	defer a.Close()

	if importJDOnly {
		res := a.extractor.FetchDescription(ctx, importURL)
		if err := writeJSON(os.Stdout, res); err != nil {
			return err
		}
		if res.FetchFailed {
			return fmt.Errorf("failed to fetch description: %s", res.Error)
		}
		return nil
	}

	return importJob(ctx, a.extractor, a.store, importURL, importSave, a.cfg.DefaultLocation, os.Stdout, a.printer())
}

// importJob extracts url and, when save is set, captures it into st.
func importJob(ctx context.Context, ext server.Extractor, st *store.Store, url string, save bool, location string, out io.Writer, pr *observability.Printer) error {
	res := ext.Extract(ctx, url)
	pr.PrintExtraction(res)
	if err := writeJSON(out, res); err != nil {
		return err
	}
	if !save {
		return nil
	}

	rec, existed, err := st.Capture(ctx, res.Submission(), intake.Options{
		Status:   types.StatusWishlist,
		Location: location,
	})
	if err != nil {
		return fmt.Errorf("failed to save job: %w", err)
	}
	if existed {
		fmt.Fprintf(out, "Already tracked: %s at %s (id %d)\n", rec.Role, rec.Company, rec.ID)
		return nil
	}
	fmt.Fprintf(out, "Saved: %s at %s (id %d)\n", rec.Role, rec.Company, rec.ID)
	return nil
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("failed to encode output: %w", err)
	}
	return nil
}
