package ranking

import (
	"context"
	"fmt"
	"log"

	"github.com/jonathan/job-tracker/internal/types"
)

// DefaultBatchSize bounds how many jobs go into one ranking prompt.
const DefaultBatchSize = 15

// Store is the part of the job store that stored-job ranking needs.
type Store interface {
	List(ctx context.Context) ([]types.JobRecord, error)
	ApplyRankings(ctx context.Context, results []types.RankingResult) (int, error)
}

// Selection picks which stored jobs to rank.
type Selection struct {
	IDs          []int64 // empty means all
	UnrankedOnly bool
	BatchSize    int
}

// Report summarizes a stored-job ranking run.
type Report struct {
	Selected int
	Updated  int
	Results  []types.RankingResult
	Failures []Outcome
}

// RankStored ranks jobs from st in batches and writes each successful batch
// back by id. A failed batch is reported and does not stop later batches.
func (e *Engine) RankStored(ctx context.Context, st Store, profile *types.Profile, sel Selection) (*Report, error) {
	records, err := st.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list jobs: %w", err)
	}

	jobs := selectJobs(records, sel)
	report := &Report{Selected: len(jobs)}
	if len(jobs) == 0 {
		return report, nil
	}

	size := sel.BatchSize
	if size <= 0 {
		size = DefaultBatchSize
	}
	for start := 0; start < len(jobs); start += size {
		if err := ctx.Err(); err != nil {
			return report, err
		}
		end := min(start+size, len(jobs))

		out := e.Rank(ctx, profile, jobs[start:end])
		if !out.OK() {
			report.Failures = append(report.Failures, out)
			continue
		}
		n, err := st.ApplyRankings(ctx, out.Results)
		if err != nil {
			return report, fmt.Errorf("failed to write rankings: %w", err)
		}
		report.Updated += n
		report.Results = append(report.Results, out.Results...)
	}

	log.Printf("[rank] stored run: %d selected, %d updated, %d failed batches",
		report.Selected, report.Updated, len(report.Failures))
	return report, nil
}

func selectJobs(records []types.JobRecord, sel Selection) []types.JobRecord {
	var want map[int64]bool
	if len(sel.IDs) > 0 {
		want = make(map[int64]bool, len(sel.IDs))
		for _, id := range sel.IDs {
			want[id] = true
		}
	}

	var out []types.JobRecord
	for _, r := range records {
		if want != nil && !want[r.ID] {
			continue
		}
		if sel.UnrankedOnly && r.HasRanking() {
			continue
		}
		out = append(out, r)
	}
	return out
}
