package commands

import (
	"context"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/wonny/stagegate/internal/brain"
	"github.com/wonny/stagegate/internal/s0_data"
	"github.com/wonny/stagegate/internal/s4_gate"
	"github.com/wonny/stagegate/internal/stageconfig"
	"github.com/wonny/stagegate/pkg/config"
	"github.com/wonny/stagegate/pkg/database"
	"github.com/wonny/stagegate/pkg/logger"
	"github.com/wonny/stagegate/pkg/metrics"
	"github.com/wonny/stagegate/pkg/redis"
)

// app holds the wired dependencies shared by commands
// ⭐ SSOT: 의존성 조립은 여기서만
type app struct {
	cfg        *config.Config
	log        *logger.Logger
	stageCfg   *stageconfig.Config
	stageYAML  []byte
	configHash string

	db       *database.DB
	redis    *redis.Client
	cache    *redis.Cache
	registry *prometheus.Registry
	metrics  *metrics.Recorder

	bars    *s0_data.BarRepository
	baskets *s0_data.BasketRepository
	stages  *s0_data.StageRepository
	gate    *s4_gate.Gate
	orch    *brain.Orchestrator
}

// loadBase loads env config, logger and the stage config (DB 불필요)
func loadBase() (*app, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	path := cfg.Pipeline.StageConfigPath
	if stageConfigPath != "" {
		path = stageConfigPath
	}

	stageCfg, raw, err := stageconfig.Load(path)
	if err != nil {
		return nil, fmt.Errorf("load stage config: %w", err)
	}

	hash, err := stageconfig.Hash(stageCfg)
	if err != nil {
		return nil, fmt.Errorf("hash stage config: %w", err)
	}

	return &app{
		cfg:        cfg,
		log:        logger.New(cfg),
		stageCfg:   stageCfg,
		stageYAML:  raw,
		configHash: hash,
	}, nil
}

// newApp connects the database (and Redis when enabled) and builds the orchestrator
func newApp(ctx context.Context) (*app, error) {
	a, err := loadBase()
	if err != nil {
		return nil, err
	}

	a.db, err = database.New(ctx, a.cfg)
	if err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}
	if err := a.db.EnsureSchema(ctx); err != nil {
		a.Close()
		return nil, fmt.Errorf("ensure schema: %w", err)
	}

	a.redis, err = redis.New(ctx, a.cfg)
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("connect to redis: %w", err)
	}
	if a.redis.Enabled() {
		a.cache = redis.NewCache(a.redis, "stagegate")
	}

	if a.cfg.MetricsEnabled {
		a.registry = prometheus.NewRegistry()
		a.registry.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)
		a.metrics = metrics.New(a.registry)
	}

	a.bars = s0_data.NewBarRepository(a.db.Pool)
	a.baskets = s0_data.NewBasketRepository(a.db.Pool)
	a.stages = s0_data.NewStageRepository(a.db.Pool)
	a.gate = s4_gate.New(a.stageCfg, a.log.Component("gate"))

	a.orch, err = brain.NewOrchestrator(brain.Deps{
		Bars:    a.bars,
		Baskets: a.baskets,
		Stages:  a.stages,
		Runs:    a.stages,
		Gate:    a.gate,
		Cache:   a.cache,
		Metrics: a.metrics,
	}, a.stageCfg, a.stageYAML, a.log)
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("create orchestrator: %w", err)
	}

	a.log.WithFields(map[string]interface{}{
		"config_hash": a.configHash,
		"redis":       a.redis.Enabled(),
		"metrics":     a.metrics != nil,
	}).Debug("Dependencies initialized")

	return a, nil
}

// Close releases connections
func (a *app) Close() {
	if a.redis != nil {
		_ = a.redis.Close()
	}
	if a.db != nil {
		a.db.Close()
	}
}
