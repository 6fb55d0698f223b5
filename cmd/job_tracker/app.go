package main

import (
	"context"
	"io"
	"log"
	"os"

	"github.com/jonathan/job-tracker/internal/config"
	"github.com/jonathan/job-tracker/internal/drafting"
	"github.com/jonathan/job-tracker/internal/fetch"
	"github.com/jonathan/job-tracker/internal/ingestion"
	"github.com/jonathan/job-tracker/internal/llm"
	"github.com/jonathan/job-tracker/internal/observability"
	"github.com/jonathan/job-tracker/internal/profile"
	"github.com/jonathan/job-tracker/internal/ranking"
	"github.com/jonathan/job-tracker/internal/store"
	"github.com/jonathan/job-tracker/internal/types"
)

// app holds the components shared by the commands.
type app struct {
	cfg       *config.Config
	store     *store.Store
	extractor *ingestion.Extractor
	client    llm.Client
	ranker    *ranking.Engine
	drafter   *drafting.Service
	profile   *types.Profile

	closers []io.Closer
}

// newApp loads the configuration and builds every component. Missing
// optional services (storage, cache, model key) are logged and left unset.
func newApp(ctx context.Context) (*app, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}

	a := &app{cfg: cfg}
	a.store = store.Open(ctx, store.Options{
		Backend:     cfg.StoreBackend,
		Path:        cfg.StorePath,
		DatabaseURL: cfg.DatabaseURL,
		SupabaseURL: cfg.SupabaseURL,
		SupabaseKey: cfg.SupabaseKey,
	})
	a.closers = append(a.closers, a.store)

	a.extractor = ingestion.NewExtractor(ingestion.Config{
		Fetcher:         a.fetcher(ctx),
		Browser:         a.browser(),
		DefaultLocation: cfg.DefaultLocation,
		Verbose:         cfg.Verbose,
	})

	a.client = a.modelClient(ctx)
	if a.client != nil {
		a.closers = append(a.closers, a.client)
	}

	a.profile = profile.LoadOrDefault(cfg.ProfilePath)
	a.ranker = ranking.NewEngine(a.client,
		ranking.WithExclusionPhrases(cfg.ExclusionPhrases...),
		ranking.WithMarket(cfg.DefaultLocation),
	)
	a.drafter = drafting.NewService(a.client, a.profile, cfg.DefaultLocation)
	return a, nil
}

// fetcher returns the page fetcher, backed by the Redis cache when configured.
func (a *app) fetcher(ctx context.Context) fetch.Fetcher {
	if a.cfg.RedisURL == "" {
		return fetch.HTTP
	}
	rdb, err := fetch.NewRedisClient(ctx, a.cfg.RedisURL)
	if err != nil {
		log.Printf("[app] page cache disabled: %v", err)
		return fetch.HTTP
	}
	a.closers = append(a.closers, rdb)
	return fetch.NewCachedFetcher(fetch.HTTP, rdb, a.cfg.CacheDuration())
}

func (a *app) browser() fetch.Renderer {
	if !a.cfg.UseBrowser {
		return nil
	}
	return &fetch.Browser{Timeout: fetch.BrowserTimeout, Verbose: a.cfg.Verbose}
}

// printer returns a stderr Printer in verbose mode and nil otherwise.
func (a *app) printer() *observability.Printer {
	if !a.cfg.Verbose {
		return nil
	}
	return observability.NewPrinter(os.Stderr)
}

// modelClient returns nil when no API key is configured. Ranking and
// drafting then report a model error instead of failing startup.
func (a *app) modelClient(ctx context.Context) llm.Client {
	key := a.cfg.APIKey()
	if key == "" {
		log.Printf("[app] no API key for provider %q; ranking and drafting are disabled", a.cfg.LLMProvider)
		return nil
	}

	llmCfg := llm.ConfigFor(llm.ParseProvider(a.cfg.LLMProvider))
	if a.cfg.AnthropicModel != "" && llmCfg.Provider == llm.ProviderAnthropic {
		llmCfg = llmCfg.WithAllModels(a.cfg.AnthropicModel)
	}
	llmCfg.Retries = a.cfg.LLMRetries

	client, err := llm.NewClient(ctx, llmCfg, key)
	if err != nil {
		log.Printf("[app] model client unavailable: %v", err)
		return nil
	}
	return client
}

// Close releases every component in reverse order of creation.
func (a *app) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i].Close(); err != nil {
			log.Printf("[app] close: %v", err)
		}
	}
}
