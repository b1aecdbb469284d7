package metrics_collectors

import (
	"context"

	"github.com/benmeehan/herd-proxy/internal/models"
	"github.com/rs/zerolog"
)

// StoreCounter is the part of the location store the collector reads.
type StoreCounter interface {
	Count() int
}

// StoreMetricCollector collects the number of clients in the location store.
type StoreMetricCollector struct {
	Store  StoreCounter
	Logger zerolog.Logger
}

func (s *StoreMetricCollector) Name() string {
	return "store_size"
}

func (s *StoreMetricCollector) Collect(ctx context.Context) interface{} {
	return s.Store.Count()
}

func (s *StoreMetricCollector) IsEnabled(config *models.StatsConfig) bool {
	return config.MonitorStore
}

func (s *StoreMetricCollector) Unit() string {
	return "clients"
}

func (s *StoreMetricCollector) Description() string {
	return "Number of clients with a known location."
}
