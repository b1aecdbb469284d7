package models

import "time"

// StatsConfig selects which runtime statistics are collected.
type StatsConfig struct {
	MonitorStore      bool `yaml:"monitor_store"`
	MonitorGoroutines bool `yaml:"monitor_goroutines"`
	MonitorMemory     bool `yaml:"monitor_memory"`
}

// Metric is a single collected value with its unit.
type Metric struct {
	Value interface{} `json:"value"`
	Unit  string      `json:"unit"`
}

// ServerStats is one snapshot of a herd server's runtime statistics.
type ServerStats struct {
	ServerID  string            `json:"server_id"`
	Timestamp time.Time         `json:"timestamp"`
	Metrics   map[string]Metric `json:"metrics"`
}
