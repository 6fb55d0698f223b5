// Package scheduler wires up the cron job that periodically ranks tracked
// jobs that have no ranking yet.
package scheduler

import (
	"context"
	"fmt"
	"log"
	"sync"

	"github.com/robfig/cron/v3"

	"github.com/jonathan/job-tracker/internal/ranking"
	"github.com/jonathan/job-tracker/internal/types"
)

// Ranker ranks stored jobs and writes the results back.
type Ranker interface {
	RankStored(ctx context.Context, st ranking.Store, profile *types.Profile, sel ranking.Selection) (*ranking.Report, error)
}

// Scheduler wraps robfig/cron and manages the ranking loop.
type Scheduler struct {
	cron      *cron.Cron
	ranker    Ranker
	store     ranking.Store
	profile   *types.Profile
	spec      string // cron spec, e.g. "@every 6h"
	batchSize int

	running sync.Mutex
}

// New creates a Scheduler that fires on spec.
func New(ranker Ranker, st ranking.Store, profile *types.Profile, spec string, batchSize int) *Scheduler {
	return &Scheduler{
		cron:      cron.New(cron.WithLogger(cron.DefaultLogger)),
		ranker:    ranker,
		store:     st,
		profile:   profile,
		spec:      spec,
		batchSize: batchSize,
	}
}

// Start registers the job and starts the scheduler. Also runs one cycle
// immediately so new captures are ranked without waiting for the first tick.
func (s *Scheduler) Start(ctx context.Context) error {
	_, err := s.cron.AddFunc(s.spec, func() {
		s.RunOnce(ctx)
	})
	if err != nil {
		return fmt.Errorf("cron.AddFunc: %w", err)
	}

	s.cron.Start()
	log.Printf("[scheduler] Cron started, spec: %s", s.spec)

	go s.RunOnce(ctx)

	return nil
}

// Stop shuts down the scheduler and waits for a running cycle to finish.
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
	log.Println("[scheduler] Cron stopped")
}

// RunOnce ranks every unranked job. Overlapping cycles are skipped.
func (s *Scheduler) RunOnce(ctx context.Context) {
	if !s.running.TryLock() {
		log.Println("[scheduler] Previous cycle still running, skipping")
		return
	}
	defer s.running.Unlock()

	log.Println("[scheduler] Ranking cycle started")

	report, err := s.ranker.RankStored(ctx, s.store, s.profile, ranking.Selection{
		UnrankedOnly: true,
		BatchSize:    s.batchSize,
	})
	if err != nil {
		log.Printf("[scheduler] RankStored error: %v", err)
		return
	}

	if report.Selected == 0 {
		log.Println("[scheduler] No unranked jobs, nothing to do")
		return
	}

	for _, f := range report.Failures {
		log.Printf("[scheduler] Batch failed (%s): %v", f.Status, f.Err)
	}
	log.Printf("[scheduler] Ranking cycle complete: %d updated", report.Updated)
}
