// Package observability provides formatted output utilities for verbose CLI mode.
package observability

import (
	"fmt"
	"io"
	"strings"

	"github.com/jonathan/job-tracker/internal/ingestion"
	"github.com/jonathan/job-tracker/internal/intake"
	"github.com/jonathan/job-tracker/internal/ranking"
	"github.com/jonathan/job-tracker/internal/types"
)

const (
	// boxWidth is the default width for formatted output boxes
	boxWidth = 60
	// maxItemsToShow is the default number of items to display in lists
	maxItemsToShow = 5
)

// Printer handles formatted output for verbose mode
type Printer struct {
	out io.Writer
}

// NewPrinter creates a new Printer that writes to the given writer
func NewPrinter(out io.Writer) *Printer {
	return &Printer{out: out}
}

// clip shortens s to n runes, marking the cut with "...".
func clip(s string, n int) string {
	if len([]rune(s)) <= n {
		return s
	}
	return types.Truncate(s, n-3) + "..."
}

// printBox prints a formatted box with a title and content. A nil Printer
// prints nothing.
//
//nolint:errcheck // writing to stdout; errors are not recoverable
func (p *Printer) printBox(title string, content string) {
	if p == nil {
		return
	}
	border := strings.Repeat("─", boxWidth-2)
	fmt.Fprintf(p.out, "┌%s┐\n", border)
	fmt.Fprintf(p.out, "│ %-*s │\n", boxWidth-4, title)
	fmt.Fprintf(p.out, "├%s┤\n", border)

	for _, line := range strings.Split(content, "\n") {
		fmt.Fprintf(p.out, "│ %-*s │\n", boxWidth-4, clip(line, boxWidth-4))
	}

	fmt.Fprintf(p.out, "└%s┘\n", border)
}

// PrintExtraction outputs the fields pulled from a job page.
func (p *Printer) PrintExtraction(res *ingestion.JobExtractionResult) {
	if res == nil {
		return
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Platform: %s\n", res.Platform))
	sb.WriteString(fmt.Sprintf("Title:    %s\n", orDash(res.Title)))
	sb.WriteString(fmt.Sprintf("Company:  %s\n", orDash(res.Company)))
	sb.WriteString(fmt.Sprintf("Location: %s\n", orDash(res.Location)))
	if res.LinkedInID != "" {
		sb.WriteString(fmt.Sprintf("LinkedIn: %s\n", res.LinkedInID))
	}
	sb.WriteString(fmt.Sprintf("JD:       %d chars\n", len([]rune(res.Description))))
	if res.Partial {
		sb.WriteString("\n⚠ partial: " + res.Message)
	}

	p.printBox("EXTRACTED JOB", strings.TrimSuffix(sb.String(), "\n"))
}

// PrintRankings outputs the top rankings by score. titles maps job ids to a
// display name and may be nil.
func (p *Printer) PrintRankings(results []types.RankingResult, titles map[int64]string) {
	if len(results) == 0 {
		return
	}

	sorted := make([]types.RankingResult, len(results))
	copy(sorted, results)
	for i := 1; i < len(sorted); i++ {
		for j := i; j > 0 && sorted[j].Score > sorted[j-1].Score; j-- {
			sorted[j], sorted[j-1] = sorted[j-1], sorted[j]
		}
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Total jobs ranked: %d\n\n", len(sorted)))

	count := min(len(sorted), maxItemsToShow)
	for i := 0; i < count; i++ {
		r := sorted[i]
		name := titles[r.ID]
		if name == "" {
			name = fmt.Sprintf("job %d", r.ID)
		}
		sb.WriteString(fmt.Sprintf("#%d  %s\n", i+1, name))
		sb.WriteString(fmt.Sprintf("    Score: %d/10  %s  (%s)\n", r.Score, r.Label, r.Priority))
		if r.Overridden {
			sb.WriteString("    ⚠ no visa sponsorship\n")
		}
		if i < count-1 {
			sb.WriteString("\n")
		}
	}

	if len(sorted) > maxItemsToShow {
		sb.WriteString(fmt.Sprintf("\n... and %d more jobs", len(sorted)-maxItemsToShow))
	}

	p.printBox("TOP RANKED JOBS", strings.TrimSuffix(sb.String(), "\n"))
}

// PrintRankFailures outputs failed ranking batches with a snippet of the raw reply.
func (p *Printer) PrintRankFailures(failures []ranking.Outcome) {
	if len(failures) == 0 {
		return
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Failed batches: %d\n", len(failures)))
	for _, f := range failures {
		sb.WriteString(fmt.Sprintf("\n⚠ %s\n", f.Status))
		if f.Err != nil {
			sb.WriteString(fmt.Sprintf("  %s\n", f.Err))
		}
		if raw := strings.TrimSpace(f.Raw); raw != "" {
			sb.WriteString(fmt.Sprintf("  raw: %s\n", strings.ReplaceAll(raw, "\n", " ")))
		}
	}

	p.printBox("RANKING FAILURES", strings.TrimSuffix(sb.String(), "\n"))
}

// PrintMerge outputs how a batch of submissions was merged.
func (p *Printer) PrintMerge(result *intake.MergeResult) {
	if result == nil {
		return
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Accepted: %d\n", result.Added()))
	sb.WriteString(fmt.Sprintf("Rejected: %d\n", len(result.Rejected)))
	sb.WriteString(fmt.Sprintf("Tracked:  %d\n", len(result.Records)))

	if len(result.Accepted) > 0 {
		sb.WriteString("\nAdded:\n")
		count := min(len(result.Accepted), maxItemsToShow)
		for i := 0; i < count; i++ {
			rec := result.Accepted[i]
			sb.WriteString(fmt.Sprintf("  • %s at %s\n", rec.Role, rec.Company))
		}
		if len(result.Accepted) > maxItemsToShow {
			sb.WriteString(fmt.Sprintf("  ... and %d more\n", len(result.Accepted)-maxItemsToShow))
		}
	}

	p.printBox("MERGE SUMMARY", strings.TrimSuffix(sb.String(), "\n"))
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
