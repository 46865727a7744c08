package main

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/kandev/executorconfig/internal/common/config"
	"github.com/kandev/executorconfig/internal/common/logger"
	"github.com/kandev/executorconfig/internal/common/metrics"
	"github.com/kandev/executorconfig/internal/events"
	"github.com/kandev/executorconfig/internal/events/bus"
	"github.com/kandev/executorconfig/internal/executorconfig/models"
	"github.com/kandev/executorconfig/internal/executorconfig/service"
	"github.com/kandev/executorconfig/internal/executorconfig/store"
	gateways "github.com/kandev/executorconfig/internal/gateway/websocket"
	"github.com/kandev/executorconfig/internal/persistence"
	"github.com/kandev/executorconfig/internal/profiles"
	"github.com/kandev/executorconfig/pkg/executor"
	"github.com/kandev/executorconfig/pkg/optional"
)

type app struct {
	service  *service.Service
	registry *profiles.Registry
	eventBus bus.EventBus
	gateway  *gateways.Gateway
	gatherer prometheus.Gatherer
}

// provideApp builds every long-lived component. Cleanups are returned even on
// error so the caller can release what was already opened.
func provideApp(cfg *config.Config, log *logger.Logger) (*app, []func() error, error) {
	cleanups := make([]func() error, 0, 3)

	pool, cleanup, err := persistence.Provide(cfg.Database, log)
	if err != nil {
		return nil, cleanups, err
	}
	cleanups = append(cleanups, cleanup)

	repo, cleanup, err := store.Provide(pool)
	if err != nil {
		return nil, cleanups, fmt.Errorf("failed to initialize executor config store: %w", err)
	}
	cleanups = append(cleanups, cleanup)

	provided, cleanup, err := events.Provide(cfg.NATS, log)
	if err != nil {
		return nil, cleanups, err
	}
	cleanups = append(cleanups, cleanup)
	if provided.NATS != nil {
		log.Info("Connected to NATS event bus", zap.String("url", cfg.NATS.URL))
	} else {
		log.Info("Using in-memory event bus")
	}

	registry, err := profiles.NewRegistry(cfg.Profiles.OverlayPath, log)
	if err != nil {
		return nil, cleanups, fmt.Errorf("failed to load executor profiles: %w", err)
	}
	log.Info("Executor profiles loaded", zap.Int("executors", registry.Catalog().Len()))

	reg := prometheus.NewRegistry()
	m, err := metrics.NewMetrics(reg)
	if err != nil {
		return nil, cleanups, fmt.Errorf("failed to register metrics: %w", err)
	}

	svc, err := service.NewService(repo, registry, provided.Bus, m, log, service.Options{
		DefaultMode:      models.SelectionMode(cfg.Selector.DefaultMode),
		DefaultProfile:   defaultProfile(cfg.Selector.DefaultProfile),
		SessionCacheSize: cfg.Selector.SessionCacheSize,
	})
	if err != nil {
		return nil, cleanups, err
	}

	return &app{
		service:  svc,
		registry: registry,
		eventBus: provided.Bus,
		gateway:  gateways.NewGateway(provided.Bus, log),
		gatherer: reg,
	}, cleanups, nil
}

// defaultProfile converts the configured default. An empty variant is null.
func defaultProfile(cfg config.DefaultProfileConfig) *executor.ProfileRef {
	if cfg.Executor == "" {
		return nil
	}
	ref := &executor.ProfileRef{
		Executor: executor.Normalize(cfg.Executor),
		Variant:  optional.Null[string](),
	}
	if cfg.Variant != "" {
		ref.Variant = optional.Of(cfg.Variant)
	}
	return ref
}
