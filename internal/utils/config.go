package utils

import (
	"fmt"
	"os"
	"time"

	"github.com/benmeehan/herd-proxy/internal/constants"
	"github.com/benmeehan/herd-proxy/internal/models"
	"github.com/benmeehan/herd-proxy/internal/topology"
	"github.com/benmeehan/herd-proxy/pkg/file"
	"github.com/joho/godotenv"
)

// PlacesAPIKeyEnv overrides places.api_key when set.
const PlacesAPIKeyEnv = "HERD_PLACES_API_KEY"

// Config represents the structure of the configuration file.
type Config struct {
	Server struct {
		MaxRequestBytes int           `yaml:"max_request_bytes"` // Largest request read from one connection
		ReadTimeout     time.Duration `yaml:"read_timeout"`      // Deadline for reading the request line
		WriteTimeout    time.Duration `yaml:"write_timeout"`     // Deadline for writing the response
	} `yaml:"server"`

	Herd struct {
		HopBudget     int                        `yaml:"hop_budget"`      // Hops an IAMAT update is flooded
		DialTimeout   time.Duration              `yaml:"dial_timeout"`    // Timeout for connecting to a peer
		PeerIOTimeout time.Duration              `yaml:"peer_io_timeout"` // Timeout for writing to and draining a peer
		Servers       map[string]topology.Server `yaml:"servers"`         // Herd members keyed by server id
	} `yaml:"herd"`

	Store struct {
		RejectStale bool `yaml:"reject_stale"` // Ignore updates older than the stored client timestamp
	} `yaml:"store"`

	Places struct {
		APIKey    string        `yaml:"api_key"`    // Places API key
		BaseURL   string        `yaml:"base_url"`   // Override for the places endpoint host
		Timeout   time.Duration `yaml:"timeout"`    // Timeout for one nearby search
		Workers   int           `yaml:"workers"`    // Concurrent lookups
		RateLimit int           `yaml:"rate_limit"` // Requests per second sent to the endpoint
		Indent    string        `yaml:"indent"`     // Indentation of the places JSON payload
	} `yaml:"places"`

	Stats struct {
		Enabled  bool               `yaml:"enabled"`  // Enable/disable periodic stats logging
		Interval time.Duration      `yaml:"interval"` // Interval between snapshots
		Monitor  models.StatsConfig `yaml:"monitor"`  // Which statistics are collected
	} `yaml:"stats"`

	Log struct {
		Level  string `yaml:"level"`  // zerolog level name
		Pretty bool   `yaml:"pretty"` // Human readable console output
	} `yaml:"log"`
}

// LoadConfig loads the YAML configuration from the specified file.
// It returns a pointer to the Config struct and an error if loading fails.
func LoadConfig(filename string, fileClient file.FileOperations) (*Config, error) {
	var config Config
	if err := fileClient.ReadYamlFile(filename, &config); err != nil {
		return nil, err
	}

	config.applyDefaults()
	return &config, nil
}

// ApplyEnvOverrides loads the given .env files that exist and applies
// environment overrides on top of the file configuration.
func (c *Config) ApplyEnvOverrides(fileClient file.FileOperations, envFiles ...string) error {
	for _, f := range envFiles {
		exists, err := fileClient.IsFileExists(f)
		if err != nil {
			return fmt.Errorf("failed to check %s: %w", f, err)
		}
		if !exists {
			continue
		}
		if err := godotenv.Load(f); err != nil {
			return fmt.Errorf("failed to load %s: %w", f, err)
		}
	}

	if key := os.Getenv(PlacesAPIKeyEnv); key != "" {
		c.Places.APIKey = key
	}
	return nil
}

// Validate checks the configuration for values the server cannot run with.
func (c *Config) Validate() error {
	if c.Server.MaxRequestBytes < 64 {
		return fmt.Errorf("server.max_request_bytes must be at least 64, got %d", c.Server.MaxRequestBytes)
	}
	if c.Herd.HopBudget < 0 {
		return fmt.Errorf("herd.hop_budget must not be negative, got %d", c.Herd.HopBudget)
	}
	if c.Places.Workers < 1 {
		return fmt.Errorf("places.workers must be at least 1, got %d", c.Places.Workers)
	}
	if _, err := topology.New(c.Herd.Servers); err != nil {
		return fmt.Errorf("invalid herd.servers: %w", err)
	}
	return nil
}

// Topology builds the peer graph from the server table.
func (c *Config) Topology() (*topology.Topology, error) {
	return topology.New(c.Herd.Servers)
}

func (c *Config) applyDefaults() {
	if c.Server.MaxRequestBytes == 0 {
		c.Server.MaxRequestBytes = constants.DefaultMaxRequestBytes
	}
	if c.Server.ReadTimeout == 0 {
		c.Server.ReadTimeout = constants.DefaultReadTimeout
	}
	if c.Server.WriteTimeout == 0 {
		c.Server.WriteTimeout = constants.DefaultWriteTimeout
	}
	if c.Herd.DialTimeout == 0 {
		c.Herd.DialTimeout = constants.DefaultDialTimeout
	}
	if c.Herd.PeerIOTimeout == 0 {
		c.Herd.PeerIOTimeout = constants.DefaultPeerIOTimeout
	}
	if c.Places.Timeout == 0 {
		c.Places.Timeout = constants.DefaultPlacesTimeout
	}
	if c.Places.Workers == 0 {
		c.Places.Workers = constants.DefaultPlacesWorkers
	}
	if c.Places.Indent == "" {
		c.Places.Indent = "   "
	}
	if c.Stats.Interval == 0 {
		c.Stats.Interval = constants.DefaultStatsInterval
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
}
