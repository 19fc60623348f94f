package collector

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/amitkumar0206/finops-orchestrator-sub000/internal/models"
	"github.com/amitkumar0206/finops-orchestrator-sub000/internal/store"
)

type SchedulerConfig struct {
	AWSInterval time.Duration
}

func DefaultSchedulerConfig() SchedulerConfig {
	return SchedulerConfig{
		AWSInterval: 1 * time.Hour,
	}
}

type Scheduler struct {
	registry *Registry
	store    store.Store
	config   SchedulerConfig
	logger   *slog.Logger
	mu       sync.Mutex
	running  bool
}

func NewScheduler(registry *Registry, st store.Store, cfg SchedulerConfig, logger *slog.Logger) *Scheduler {
	return &Scheduler{
		registry: registry,
		store:    st,
		config:   cfg,
		logger:   logger,
	}
}

func (s *Scheduler) Start(ctx context.Context) {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return
	}
	s.running = true
	s.mu.Unlock()

	s.logger.Info("cost collector scheduler started")

	awsTicker := time.NewTicker(s.config.AWSInterval)
	defer awsTicker.Stop()

	// Run an initial collection immediately
	go s.collectAll(ctx)

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("cost collector scheduler stopped")
			return
		case <-awsTicker.C:
			go s.collectByTypes(ctx, models.CostSourceAWS)
		}
	}
}

func (s *Scheduler) collectAll(ctx context.Context) {
	projects, err := s.store.ListProjects(ctx)
	if err != nil {
		s.logger.Error("scheduler: failed to list projects", "error", err)
		return
	}

	for _, project := range projects {
		s.collectForProject(ctx, project.ID)
	}
}

func (s *Scheduler) collectByTypes(ctx context.Context, types ...models.CostSourceType) {
	projects, err := s.store.ListProjects(ctx)
	if err != nil {
		s.logger.Error("scheduler: failed to list projects", "error", err)
		return
	}

	typeSet := make(map[models.CostSourceType]bool)
	for _, t := range types {
		typeSet[t] = true
	}

	for _, project := range projects {
		sources, err := s.store.ListCostSources(ctx, project.ID)
		if err != nil {
			s.logger.Error("scheduler: failed to list sources", "project", project.ID, "error", err)
			continue
		}
		for _, source := range sources {
			if !source.Enabled || !typeSet[source.Type] {
				continue
			}
			s.collectSource(ctx, source)
		}
	}
}

func (s *Scheduler) collectForProject(ctx context.Context, projectID string) {
	sources, err := s.store.ListCostSources(ctx, projectID)
	if err != nil {
		s.logger.Error("scheduler: failed to list sources", "project", projectID, "error", err)
		return
	}

	for _, source := range sources {
		if !source.Enabled {
			continue
		}
		s.collectSource(ctx, source)
	}
}

func (s *Scheduler) collectSource(ctx context.Context, source *models.CostSource) {
	collector, ok := s.registry.Get(source.Type)
	if !ok {
		s.logger.Warn("scheduler: no collector for source type", "type", source.Type, "source", source.Name)
		return
	}

	window := TimeWindow{
		Start: time.Now().UTC().Add(-24 * time.Hour),
		End:   time.Now().UTC(),
	}
	if source.LastCollectedAt != nil {
		window.Start = *source.LastCollectedAt
	}

	s.logger.Info("collecting costs", "source", source.Name, "type", source.Type, "window", window)

	records, err := collector.Collect(ctx, source, window)
	if err != nil {
		s.logger.Error("collection failed", "source", source.Name, "type", source.Type, "error", err)
		return
	}

	if len(records) > 0 {
		if err := s.store.InsertCostRecords(ctx, records); err != nil {
			s.logger.Error("failed to insert cost records", "source", source.Name, "count", len(records), "error", err)
			return
		}
	}

	if err := s.store.UpdateCostSourceCollectedAt(ctx, source.ID, time.Now().UTC()); err != nil {
		s.logger.Error("failed to update collected_at", "source", source.Name, "error", err)
	}

	s.logger.Info("collection complete", "source", source.Name, "records", len(records))
}
