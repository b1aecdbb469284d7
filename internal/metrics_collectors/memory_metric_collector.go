package metrics_collectors

import (
	"context"
	"os"

	"github.com/benmeehan/herd-proxy/internal/models"
	"github.com/rs/zerolog"
	"github.com/shirou/gopsutil/process"
)

// MemoryMetricCollector collects the resident memory of the server process.
type MemoryMetricCollector struct {
	Logger zerolog.Logger
}

// Name returns the identifier for the memory metric collector.
func (m *MemoryMetricCollector) Name() string {
	return "process_rss"
}

// Collect retrieves the resident set size of this process.
func (m *MemoryMetricCollector) Collect(ctx context.Context) interface{} {
	proc, err := process.NewProcessWithContext(ctx, int32(os.Getpid()))
	if err != nil {
		m.Logger.Error().Err(err).Msg("Failed to open own process")
		return nil
	}

	memInfo, err := proc.MemoryInfoWithContext(ctx)
	if err != nil {
		m.Logger.Error().Err(err).Msg("Failed to retrieve memory statistics")
		return nil
	}

	m.Logger.Debug().Uint64("rss_bytes", memInfo.RSS).Msg("Memory usage collected successfully")
	return memInfo.RSS
}

// IsEnabled checks if memory monitoring is enabled in the configuration.
func (m *MemoryMetricCollector) IsEnabled(config *models.StatsConfig) bool {
	if !config.MonitorMemory {
		m.Logger.Debug().Msg("Memory monitoring is disabled in configuration")
	}
	return config.MonitorMemory
}

// Unit specifies the unit for memory usage metrics.
func (m *MemoryMetricCollector) Unit() string {
	return "bytes"
}

// Description provides details of the memory usage metrics collected.
func (m *MemoryMetricCollector) Description() string {
	return "Resident set size of the server process."
}
