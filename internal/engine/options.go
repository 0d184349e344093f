package engine

import (
	"fmt"
	"log/slog"

	"github.com/zheng/archscan/internal/ai"
	"github.com/zheng/archscan/internal/config"
	"github.com/zheng/archscan/internal/extract"
	"github.com/zheng/archscan/internal/resolve"
	"github.com/zheng/archscan/internal/scanner"
	"github.com/zheng/archscan/internal/suggest"
)

// FromConfig translates configuration into engine options.
// The AI generator is wrapped in a Redis cache when ai.redis_url is set.
func FromConfig(cfg *config.Config, logger *slog.Logger) ([]Option, error) {
	registry := extract.DefaultRegistry()
	if cfg.Scan.Parser == "treesitter" {
		registry = extract.TreeSitterRegistry()
	}

	resolver := resolve.New()
	resolver.AliasPrefix = cfg.Scan.AliasPrefix
	if len(cfg.Scan.AliasRoots) > 0 {
		resolver.AliasRoots = cfg.Scan.AliasRoots
	}
	if len(cfg.Scan.Extensions) > 0 {
		resolver.Extensions = cfg.Scan.Extensions
	}

	opts := []Option{
		WithLogger(logger),
		WithWorkers(cfg.Scan.Workers),
		WithRegistry(registry),
		WithResolver(resolver),
		WithThresholds(cfg.Thresholds),
		WithWalkOptions(scanner.WalkOptions{
			MaxDepth:   cfg.Scan.MaxDepth,
			Extensions: cfg.Scan.Extensions,
			Exclude:    cfg.Scan.Exclude,
		}),
	}

	if cfg.AI.Enabled {
		var gen suggest.Generator = ai.NewClient(cfg.AI.Endpoint, cfg.AI.APIKey, cfg.AI.Model, cfg.AI.Timeout)
		if cfg.AI.RedisURL != "" {
			client, err := ai.NewRedisClient(cfg.AI.RedisURL)
			if err != nil {
				return nil, fmt.Errorf("ai cache: %w", err)
			}
			gen = ai.NewCachedGenerator(gen, client, cfg.AI.CacheTTL, logger)
		}
		opts = append(opts, WithGenerator(gen))
	}
	return opts, nil
}
