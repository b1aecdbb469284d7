package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/benmeehan/herd-proxy/internal/utils"
	"github.com/benmeehan/herd-proxy/pkg/places"
	"github.com/rs/zerolog"
)

// EnrichmentService runs places lookups on a bounded worker pool so that a
// slow endpoint only ever holds up the connection that asked for it.
type EnrichmentService struct {
	// Configuration fields
	workers int
	timeout time.Duration
	indent  string

	// Dependencies
	provider places.Provider
	logger   zerolog.Logger

	// Internal state management
	mu   sync.RWMutex
	pool *utils.WorkerPool
}

type lookupResult struct {
	payload string
	err     error
}

// NewEnrichmentService initializes a new EnrichmentService.
func NewEnrichmentService(provider places.Provider, workers int, timeout time.Duration, indent string, logger zerolog.Logger) *EnrichmentService {
	return &EnrichmentService{
		workers:  workers,
		timeout:  timeout,
		indent:   indent,
		provider: provider,
		logger:   logger,
	}
}

// Start launches the worker pool.
func (e *EnrichmentService) Start() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.pool != nil {
		e.logger.Warn().Msg("EnrichmentService is already running")
		return errors.New("enrichment service is already running")
	}

	e.pool = utils.NewWorkerPool(e.workers)
	e.logger.Info().Int("workers", e.workers).Dur("timeout", e.timeout).Msg("EnrichmentService started")
	return nil
}

// Stop shuts the worker pool down, waiting for running lookups.
func (e *EnrichmentService) Stop() error {
	e.mu.Lock()
	pool := e.pool
	e.pool = nil
	e.mu.Unlock()

	if pool == nil {
		e.logger.Warn().Msg("EnrichmentService is not running")
		return errors.New("enrichment service is not running")
	}

	pool.Shutdown()
	e.logger.Info().Msg("EnrichmentService stopped")
	return nil
}

// Lookup finds at most limit places within radiusMeters of the coordinate and
// returns them as indented JSON. If ctx ends first the lookup is cancelled and
// its result discarded.
func (e *EnrichmentService) Lookup(ctx context.Context, latitude, longitude float64, radiusMeters uint, limit int) (string, error) {
	e.mu.RLock()
	pool := e.pool
	e.mu.RUnlock()
	if pool == nil {
		return "", errors.New("enrichment service is not running")
	}

	jobCtx, cancel := context.WithTimeout(ctx, e.timeout)
	future := make(chan lookupResult, 1)

	err := pool.Submit(ctx, func() {
		defer cancel()
		payload, err := e.search(jobCtx, places.SearchRequest{
			Latitude:     latitude,
			Longitude:    longitude,
			RadiusMeters: radiusMeters,
		}, limit)
		future <- lookupResult{payload: payload, err: err}
	})
	if err != nil {
		cancel()
		return "", fmt.Errorf("failed to queue places lookup: %w", err)
	}

	select {
	case res := <-future:
		return res.payload, res.err
	case <-ctx.Done():
		e.logger.Debug().Err(ctx.Err()).Msg("Places lookup abandoned by caller")
		return "", ctx.Err()
	}
}

func (e *EnrichmentService) search(ctx context.Context, req places.SearchRequest, limit int) (string, error) {
	start := time.Now()
	result, err := e.provider.NearbySearch(ctx, req)
	if err != nil {
		e.logger.Error().
			Err(err).
			Float64("latitude", req.Latitude).
			Float64("longitude", req.Longitude).
			Uint("radius_m", req.RadiusMeters).
			Msg("Places lookup failed")
		return "", fmt.Errorf("places lookup failed: %w", err)
	}

	result.Truncate(limit)
	payload, err := json.MarshalIndent(result, "", e.indent)
	if err != nil {
		return "", fmt.Errorf("failed to serialize places: %w", err)
	}

	e.logger.Debug().
		Int("results", result.Len()).
		Str("status", result.Status()).
		Dur("took", time.Since(start)).
		Msg("Places lookup completed")
	return string(payload), nil
}
