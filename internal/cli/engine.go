package cli

import (
	"fmt"
	"os"

	"github.com/spf13/viper"

	"github.com/okhval/hindsite/internal/agent"
	"github.com/okhval/hindsite/internal/cache"
	"github.com/okhval/hindsite/internal/feed"
	"github.com/okhval/hindsite/internal/fetch"
	"github.com/okhval/hindsite/internal/llm"
	"github.com/okhval/hindsite/internal/model"
	"github.com/okhval/hindsite/internal/orchestrator"
	"github.com/okhval/hindsite/internal/util"
	"github.com/okhval/hindsite/internal/worker"
)

// loadConfig merges defaults with the config file and HINDSITE_*
// environment variables.
func loadConfig() *model.Config {
	cfg := model.DefaultConfig()
	if err := viper.Unmarshal(cfg); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: invalid configuration, using defaults: %v\n", err)
		return model.DefaultConfig()
	}
	return cfg
}

// buildOrchestrator assembles the full engine: cache, rate limiter,
// fetcher, robots checker, feed parser, agent registry, and the
// optional LLM hinter.
func buildOrchestrator(cfg *model.Config) (*orchestrator.Orchestrator, error) {
	var store cache.Cache
	if cfg.Cache.Enabled {
		if cfg.Cache.Dir != "" {
			store = cache.NewLayeredCache(cfg.Cache.MemoryTTL, cfg.Cache.Dir, cfg.Cache.DiskTTL)
		} else {
			store = cache.NewMemoryCache(cfg.Cache.MemoryTTL, cfg.Cache.MemoryTTL)
		}
	}

	limiter := worker.NewLimiter(cfg.RateLimit.RequestsPerSecond, cfg.RateLimit.BurstSize)
	fetcher := fetch.NewFetcher(cfg, limiter, store)

	var robots *util.RobotsChecker
	if cfg.Robots.Respect {
		robots = util.NewRobotsChecker(cfg.HTTP.UserAgent, cfg.Robots.Timeout)
	}

	registry := agent.NewRegistry(agent.Deps{
		Fetcher: fetcher,
		Feeds:   feed.NewParser(),
		Robots:  robots,
		Config:  cfg,
	})

	opts := []orchestrator.Option{orchestrator.WithVerbose(cfg.Output.Verbose)}

	hinter, err := llm.NewHinter(cfg.LLM)
	if err != nil {
		return nil, fmt.Errorf("configure LLM hinter: %w", err)
	}
	if hinter != nil {
		opts = append(opts, orchestrator.WithHinter(hinter))
	}

	return orchestrator.New(registry, opts...), nil
}
