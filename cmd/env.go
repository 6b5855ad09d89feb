package main

import (
	"context"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/flysch/matchd/internal/cache"
	"github.com/flysch/matchd/internal/match"
	"github.com/flysch/matchd/internal/schools"
	"github.com/flysch/matchd/internal/store"
	"github.com/flysch/matchd/pkg/oracle"
)

// env bundles the wired services a command needs.
type env struct {
	Store   store.Store
	Cache   *cache.SchoolCache
	Schools *schools.Service
	Engine  *match.Engine
}

func (e *env) Close() {
	if err := e.Store.Close(); err != nil {
		zap.L().Warn("store close", zap.Error(err))
	}
}

func initStore(ctx context.Context) (store.Store, error) {
	switch cfg.Store.Driver {
	case "postgres":
		return store.NewPostgres(ctx, cfg.Store.DatabaseURL, &cfg.Store.Pool)
	case "sqlite":
		return store.NewSQLite(cfg.Store.DatabaseURL)
	default:
		return nil, eris.Errorf("unknown store driver %q", cfg.Store.Driver)
	}
}

func initEnv(ctx context.Context) (*env, error) {
	st, err := initStore(ctx)
	if err != nil {
		return nil, err
	}

	schoolCache := cache.New(time.Duration(cfg.Match.CacheTTLMinutes) * time.Minute)
	svc := schools.New(st, schoolCache)

	var oc oracle.Client
	if cfg.Anthropic.Key != "" {
		oc = oracle.NewClient(cfg.Anthropic.Key, oracle.Options{
			Model:             cfg.Anthropic.Model,
			MaxTokens:         cfg.Anthropic.MaxTokens,
			RequestsPerMinute: cfg.Anthropic.RequestsPerMinute,
		})
	} else {
		zap.L().Warn("no Anthropic API key configured, all matches use the rule-based fallback")
	}

	engine := match.NewEngine(svc, st, match.EngineOptions{
		Oracle: oc,
		Weights: match.Weights{
			Budget:   cfg.Match.Weights.Budget,
			Programs: cfg.Match.Weights.Programs,
			Location: cfg.Match.Weights.Location,
			Fleet:    cfg.Match.Weights.Fleet,
			Trust:    cfg.Match.Weights.Trust,
		},
		FallbackLimit: cfg.Match.FallbackLimit,
		OracleTimeout: time.Duration(cfg.Match.OracleTimeoutSecs) * time.Second,
	})

	return &env{Store: st, Cache: schoolCache, Schools: svc, Engine: engine}, nil
}
