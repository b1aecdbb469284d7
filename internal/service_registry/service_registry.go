package service_registry

import (
	"errors"
	"fmt"
	"net"

	"github.com/benmeehan/herd-proxy/internal/constants"
	"github.com/benmeehan/herd-proxy/internal/registry"
	"github.com/benmeehan/herd-proxy/internal/services"
	"github.com/benmeehan/herd-proxy/internal/state_managers"
	"github.com/benmeehan/herd-proxy/internal/utils"
	"github.com/benmeehan/herd-proxy/pkg/herdclient"
	"github.com/benmeehan/herd-proxy/pkg/places"
	"github.com/rs/zerolog"
)

// ServiceRegistry manages the lifecycle of the services of one herd server.
type ServiceRegistry struct {
	services    map[string]registry.Service // Stores registered services
	serviceKeys []string                    // Maintains order of service registration
	Logger      zerolog.Logger
}

// NewServiceRegistry initializes a new, empty service registry.
func NewServiceRegistry(logger zerolog.Logger) *ServiceRegistry {
	return &ServiceRegistry{
		services: make(map[string]registry.Service),
		Logger:   logger,
	}
}

// RegisterService adds a new service to the registry.
func (sr *ServiceRegistry) RegisterService(name string, svc registry.Service) {
	if _, exists := sr.services[name]; exists {
		sr.Logger.Warn().Msgf("Service %s is already registered", name)
		return
	}
	sr.services[name] = svc
	sr.serviceKeys = append(sr.serviceKeys, name)
	sr.Logger.Info().Msgf("Registered service: %s", name)
}

// Names returns the registered service names in start order.
func (sr *ServiceRegistry) Names() []string {
	return append([]string(nil), sr.serviceKeys...)
}

// StartServices initiates all registered services in order.
// If a service fails to start, it stops already started services.
func (sr *ServiceRegistry) StartServices() error {
	startedServices := []string{}

	for _, name := range sr.serviceKeys {
		svc := sr.services[name]
		sr.Logger.Info().Msgf("Starting service: %s", name)
		if err := svc.Start(); err != nil {
			sr.Logger.Error().Err(err).Msgf("Failed to start service: %s", name)

			// Stop already started services before returning
			sr.Logger.Warn().Msg("Stopping already started services due to startup failure...")
			for i := len(startedServices) - 1; i >= 0; i-- {
				_ = sr.services[startedServices[i]].Stop()
			}
			return err
		}
		startedServices = append(startedServices, name)
	}

	return nil
}

// StopServices stops all services in reverse order.
func (sr *ServiceRegistry) StopServices() error {
	var stopErrors []error
	for i := len(sr.serviceKeys) - 1; i >= 0; i-- {
		name := sr.serviceKeys[i]
		if err := sr.services[name].Stop(); err != nil {
			stopErrors = append(stopErrors, fmt.Errorf("failed to stop %s: %w", name, err))
		}
	}
	if len(stopErrors) > 0 {
		for _, e := range stopErrors {
			sr.Logger.Error().Err(e).Msg("Service stop failure")
		}
		return errors.Join(stopErrors...)
	}
	return nil
}

// RegisterServices builds the services of server serverID from the
// configuration and registers them in start order.
func (sr *ServiceRegistry) RegisterServices(config *utils.Config, serverID string) error {
	topo, err := config.Topology()
	if err != nil {
		return err
	}
	if !topo.Has(serverID) {
		return fmt.Errorf("unknown server id %q, expected one of %v", serverID, topo.IDs())
	}
	for _, edge := range topo.Asymmetric() {
		sr.Logger.Warn().Str("edge", edge).Msg("Peer link is one-directional")
	}

	store := state_managers.NewLocationStore(config.Store.RejectStale, sr.Logger.With().Str("component", "store").Logger())

	peerClient := herdclient.NewClient(
		&net.Dialer{Timeout: config.Herd.DialTimeout},
		config.Herd.PeerIOTimeout,
		constants.MaxReplyBytes,
	)
	flood := services.NewFloodService(topo, peerClient, sr.Logger.With().Str("component", "flood").Logger())

	var provider places.Provider = places.DisabledProvider{}
	if config.Places.APIKey != "" {
		provider, err = places.NewGooglePlacesProvider(config.Places.APIKey, config.Places.BaseURL, config.Places.Timeout, config.Places.RateLimit)
		if err != nil {
			sr.Logger.Error().Err(err).Msg("failed to create Google Places provider")
			return err
		}
	} else {
		sr.Logger.Warn().Msg("No places API key configured, WHATSAT requests will fail")
	}
	enrichment := services.NewEnrichmentService(
		provider,
		config.Places.Workers,
		config.Places.Timeout,
		config.Places.Indent,
		sr.Logger.With().Str("component", "enrichment").Logger(),
	)

	herd := services.NewHerdService(
		serverID,
		config.Herd.HopBudget,
		services.ConnectionLimits{
			MaxRequestBytes: config.Server.MaxRequestBytes,
			ReadTimeout:     config.Server.ReadTimeout,
			WriteTimeout:    config.Server.WriteTimeout,
		},
		topo,
		store,
		flood,
		enrichment,
		sr.Logger.With().Str("component", "herd").Logger(),
	)

	// Ordered service definitions
	servicesInOrder := []struct {
		name    string
		enabled bool
		svc     registry.Service
	}{
		{name: "flood", enabled: true, svc: flood},
		{name: "enrichment", enabled: true, svc: enrichment},
		{name: "herd", enabled: true, svc: herd},
		{
			name:    "stats",
			enabled: config.Stats.Enabled,
			svc: services.NewStatsService(
				serverID,
				config.Stats.Interval,
				config.Stats.Monitor,
				store,
				sr.Logger.With().Str("component", "stats").Logger(),
			),
		},
	}

	registeredServices := []string{}
	for _, s := range servicesInOrder {
		if s.enabled {
			sr.RegisterService(s.name, s.svc)
			registeredServices = append(registeredServices, s.name)
		}
	}

	sr.Logger.Info().Msgf("Registered services in order: %v", registeredServices)
	return nil
}
