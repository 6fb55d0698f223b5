package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jonathan/job-tracker/internal/scheduler"
	"github.com/jonathan/job-tracker/internal/server"
	"github.com/jonathan/job-tracker/internal/server/ratelimit"
)

var (
	servePort int
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP server",
	Long:  `Start an HTTP server that exposes the tracker API, the bookmarklet capture endpoints and drafting.`,
	RunE:  runServe,
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "Port to listen on (overrides config)")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, _ []string) error {
	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	a, err := newApp(ctx)
	if err != nil {
		return fmt.Errorf("failed to initialize: %w", err)
	}
	defer a.Close()

	port := a.cfg.Port
	if servePort > 0 {
		port = servePort
	}

	if a.cfg.RankSchedule != "" && a.store.Configured() {
		sched := scheduler.New(a.ranker, a.store, a.profile, a.cfg.RankSchedule, a.cfg.RankBatchSize)
		if err := sched.Start(ctx); err != nil {
			return fmt.Errorf("failed to start scheduler: %w", err)
		}
		defer sched.Stop()
	}

	srv := server.New(server.Config{
		Port:            port,
		Store:           a.store,
		Extractor:       a.extractor,
		Ranker:          a.ranker,
		Drafter:         a.drafter,
		Profile:         a.profile,
		RateLimit:       ratelimit.LoadConfig(a.cfg.RateLimitPerMinute),
		DefaultLocation: a.cfg.DefaultLocation,
		RankBatchSize:   a.cfg.RankBatchSize,
	})

	return srv.Start()
}
