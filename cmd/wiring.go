package cmd

import (
	"context"
	"fmt"
	"os"
	"strings"

	"go.uber.org/zap"

	"github.com/spigell/hh-matcher/internal/filtering"
	"github.com/spigell/hh-matcher/internal/logger"
	"github.com/spigell/hh-matcher/internal/matching"
	"github.com/spigell/hh-matcher/internal/ranking"
	"github.com/spigell/hh-matcher/internal/secrets"
	"github.com/spigell/hh-matcher/internal/similarity"
	"github.com/spigell/hh-matcher/internal/similarity/gemini"
	"github.com/spigell/hh-matcher/internal/similarity/remote"
	"github.com/spigell/hh-matcher/internal/vocabulary"
)

const (
	geminiKeyEnv   = "GEMINI_API_KEY"
	remoteTokenEnv = envPrefix + "_REMOTE_TOKEN"
)

// services holds everything a command needs to score pairs.
type services struct {
	engine *matching.Engine
	ranker *ranking.Ranker
	close  func()
}

func newServices(ctx context.Context, config *Config, log *zap.Logger) (*services, error) {
	table, err := vocabulary.LoadTable(config.Vocabulary.File)
	if err != nil {
		return nil, fmt.Errorf("loading vocabulary: %w", err)
	}

	resolver, err := vocabulary.New(table)
	if err != nil {
		return nil, fmt.Errorf("building vocabulary: %w", err)
	}

	forms, translations := resolver.Size()
	log.Debug("vocabulary loaded",
		zap.String("file", config.Vocabulary.File),
		zap.Int("forms", forms),
		zap.Int("translations", translations),
	)

	provider, closeProvider, err := newSimilarity(ctx, config.Similarity, log)
	if err != nil {
		return nil, fmt.Errorf("building similarity provider: %w", err)
	}

	engine, err := matching.NewEngine(config.Weights, matching.Deps{
		Resolver:   resolver,
		Similarity: provider,
		Logger:     log,
	})
	if err != nil {
		closeProvider()
		return nil, err
	}

	log.Info("engine ready", zap.Any("weights", engine.Weights()))

	return &services{
		engine: engine,
		ranker: ranking.New(engine, ranking.Options{Workers: config.Ranking.Workers, Logger: log}),
		close:  closeProvider,
	}, nil
}

func newSimilarity(ctx context.Context, cfg SimilarityConfig, log *zap.Logger) (similarity.Provider, func(), error) {
	noop := func() {}

	if cfg.Backend == "" || cfg.Backend == "none" {
		log.Info("semantic similarity disabled", logger.BackendFields("none", "")...)
		return similarity.Disabled{}, noop, nil
	}

	cache, closeCache, err := newCache(ctx, cfg.Cache, log)
	if err != nil {
		return nil, noop, err
	}

	opts := similarity.Options{
		Timeout:     cfg.Timeout,
		MaxInFlight: cfg.MaxInFlight,
		Cache:       cache,
	}

	switch cfg.Backend {
	case "gemini":
		apiKey, err := secrets.Load(secrets.Source{
			Name: "gemini api key",
			File: cfg.Gemini.APIKeyFile,
			Env:  geminiKeyEnv,
		})
		if err != nil {
			closeCache()
			return nil, noop, fmt.Errorf("%w (set similarity.gemini.api-key-file or %s)", err, geminiKeyEnv)
		}

		embedder, err := gemini.NewEmbedder(ctx, apiKey, cfg.Gemini.Model, cfg.Gemini.MaxRetries, log)
		if err != nil {
			closeCache()
			return nil, noop, err
		}

		opts.Logger = logger.WithBackendFields(log, "gemini", embedder.Model())
		opts.Logger.Info("semantic similarity enabled")
		return similarity.NewEmbedding(embedder, opts), closeCache, nil

	case "remote":
		token, err := optionalSecret(secrets.Source{
			Name: "remote scorer token",
			File: cfg.Remote.TokenFile,
			Env:  remoteTokenEnv,
		})
		if err != nil {
			closeCache()
			return nil, noop, err
		}

		client, err := remote.New(remote.Config{
			URL:       cfg.Remote.URL,
			Token:     token,
			Timeout:   cfg.Timeout,
			RateLimit: cfg.Remote.RateLimit,
			Burst:     cfg.Remote.Burst,
		}, log)
		if err != nil {
			closeCache()
			return nil, noop, err
		}

		opts.Logger = logger.WithBackendFields(log, "remote", "")
		opts.Logger.Info("semantic similarity enabled", zap.String("url", cfg.Remote.URL))
		return similarity.NewRemote(client, opts), closeCache, nil

	default:
		closeCache()
		return nil, noop, fmt.Errorf("unsupported similarity backend: %s", cfg.Backend)
	}
}

// newCache builds the in-process cache, fronting redis when a URL is configured.
func newCache(ctx context.Context, cfg CacheConfig, log *zap.Logger) (similarity.Cache, func(), error) {
	memory := similarity.NewMemoryCache(cfg.TTL, cfg.CleanupInterval)

	if strings.TrimSpace(cfg.RedisURL) == "" {
		return memory, func() {}, nil
	}

	rdb, err := similarity.DialRedis(ctx, cfg.RedisURL)
	if err != nil {
		return nil, func() {}, err
	}

	log.Info("shared similarity cache enabled", zap.String("addr", rdb.Options().Addr))

	closeRedis := func() {
		if err := rdb.Close(); err != nil {
			log.Warn("closing redis client", zap.Error(err))
		}
	}

	return similarity.Tiered{
		L1: memory,
		L2: similarity.NewRedisCache(rdb, cfg.TTL, log),
	}, closeRedis, nil
}

// optionalSecret loads a secret only when one of its sources is configured.
func optionalSecret(src secrets.Source) (string, error) {
	if strings.TrimSpace(src.File) == "" && strings.TrimSpace(os.Getenv(src.Env)) == "" && strings.TrimSpace(src.Value) == "" {
		return "", nil
	}
	return secrets.Load(src)
}

func newJobFilters(config *Config, log *zap.Logger) *filtering.Filtering {
	return filtering.New([]filtering.Filter{
		filtering.NewActive(log),
		filtering.NewExcludedEmployers(config.Exclude.Employers, log),
		filtering.NewExcludeFile(config.ExcludeFile, log),
	}, log)
}
