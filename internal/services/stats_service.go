package services

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/benmeehan/herd-proxy/internal/metrics_collectors"
	"github.com/benmeehan/herd-proxy/internal/models"
	"github.com/rs/zerolog"
)

// StatsService periodically logs runtime statistics of a herd server.
type StatsService struct {
	serverID string
	interval time.Duration
	timeout  time.Duration
	config   models.StatsConfig
	registry *metrics_collectors.MetricsRegistry
	logger   zerolog.Logger

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewStatsService initializes and returns a new instance of StatsService.
func NewStatsService(serverID string, interval time.Duration, config models.StatsConfig,
	store metrics_collectors.StoreCounter, logger zerolog.Logger) *StatsService {
	service := &StatsService{
		serverID: serverID,
		interval: interval,
		timeout:  interval / 2,
		config:   config,
		registry: metrics_collectors.NewMetricsRegistry(),
		logger:   logger,
	}

	service.registry.Register(&metrics_collectors.StoreMetricCollector{Store: store, Logger: logger})
	service.registry.Register(&metrics_collectors.GoroutineMetricCollector{Logger: logger})
	service.registry.Register(&metrics_collectors.MemoryMetricCollector{Logger: logger})

	return service
}

// Start launches the collection loop in a separate goroutine.
func (s *StatsService) Start() error {
	if s.ctx != nil {
		s.logger.Warn().Msg("StatsService is already running")
		return errors.New("stats service is already running")
	}
	if s.interval <= 0 {
		return errors.New("stats interval must be positive")
	}

	s.ctx, s.cancel = context.WithCancel(context.Background())

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.runCollectionLoop()
	}()

	s.logger.Info().Dur("interval", s.interval).Msg("StatsService started successfully")
	return nil
}

// Stop gracefully stops the stats service.
func (s *StatsService) Stop() error {
	if s.ctx == nil {
		s.logger.Warn().Msg("StatsService is not running")
		return errors.New("stats service is not running")
	}

	s.cancel()
	s.wg.Wait()

	s.ctx = nil
	s.cancel = nil

	s.logger.Info().Msg("StatsService stopped successfully")
	return nil
}

func (s *StatsService) runCollectionLoop() {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			stats := s.Collect(s.ctx)
			s.logger.Info().Interface("stats", stats).Msg("Server stats")
		case <-s.ctx.Done():
			s.logger.Info().Msg("StatsService stopping gracefully")
			return
		}
	}
}

// Collect gathers one snapshot from every enabled collector.
func (s *StatsService) Collect(ctx context.Context) *models.ServerStats {
	stats := &models.ServerStats{
		ServerID:  s.serverID,
		Timestamp: time.Now().UTC(),
		Metrics:   make(map[string]models.Metric),
	}

	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	for _, name := range s.registry.Names() {
		collector := s.registry.GetCollectors()[name]
		if !collector.IsEnabled(&s.config) {
			continue
		}
		if value := collector.Collect(ctx); value != nil {
			stats.Metrics[name] = models.Metric{Value: value, Unit: collector.Unit()}
		}
	}
	return stats
}
