package services

import (
	"context"
	"errors"
	"sync"

	"github.com/benmeehan/herd-proxy/internal/models"
	"github.com/benmeehan/herd-proxy/internal/protocol"
	"github.com/benmeehan/herd-proxy/internal/topology"
	"github.com/benmeehan/herd-proxy/internal/utils"
	"github.com/rs/zerolog"
)

// PeerSender delivers one line to a peer without interpreting the reply.
type PeerSender interface {
	Send(ctx context.Context, addr, line string) error
}

// FloodService fans location updates out to adjacent herd servers.
// Every send runs detached from the request that triggered it; failures are
// logged here and never reach the caller.
type FloodService struct {
	topology *topology.Topology
	sender   PeerSender
	logger   zerolog.Logger

	// Internal state management
	mu       sync.Mutex // orders inFlight.Add against Stop
	ctx      context.Context
	cancel   context.CancelFunc
	inFlight sync.WaitGroup
}

// NewFloodService initializes a new FloodService.
func NewFloodService(topo *topology.Topology, sender PeerSender, logger zerolog.Logger) *FloodService {
	ctx, cancel := context.WithCancel(context.Background())
	return &FloodService{
		topology: topo,
		sender:   sender,
		logger:   logger,
		ctx:      ctx,
		cancel:   cancel,
	}
}

// Start marks the service ready. Propagation needs no background loop.
func (f *FloodService) Start() error {
	if f.ctx.Err() != nil {
		return errors.New("flood service is stopped")
	}
	f.logger.Info().Msg("FloodService started")
	return nil
}

// Stop cancels in-flight sends and waits for them to return.
// No send is launched after Stop begins.
func (f *FloodService) Stop() error {
	f.mu.Lock()
	f.cancel()
	f.mu.Unlock()

	f.inFlight.Wait()
	f.logger.Info().Msg("FloodService stopped")
	return nil
}

// Propagate sends msg to every peer adjacent to msg.Origin except the ones
// listed in exclude. It returns the number of sends launched and never
// waits for them.
func (f *FloodService) Propagate(msg models.FloodMessage, exclude ...string) int {
	excluded := utils.SliceToSet(exclude)
	line := protocol.FormatFlood(msg)

	f.mu.Lock()
	defer f.mu.Unlock()

	launched := 0
	for _, peer := range f.topology.Peers(msg.Origin) {
		if _, skip := excluded[peer]; skip {
			continue
		}

		addr, ok := f.topology.Address(peer)
		if !ok {
			f.logger.Error().Str("peer", peer).Msg("No address for peer")
			continue
		}

		select {
		case <-f.ctx.Done():
			f.logger.Info().Str("client", msg.ClientID).Msg("Service shutting down, dropping propagation")
			return launched
		default:
		}

		f.inFlight.Add(1)
		launched++
		go f.send(peer, addr, line, msg)
	}

	f.logger.Debug().
		Str("client", msg.ClientID).
		Int("hop_budget", msg.HopBudget).
		Int("peers", launched).
		Msg("Propagating location update")
	return launched
}

func (f *FloodService) send(peer, addr, line string, msg models.FloodMessage) {
	defer f.inFlight.Done()

	if err := f.sender.Send(f.ctx, addr, line); err != nil {
		f.logger.Warn().
			Err(err).
			Str("peer", peer).
			Str("address", addr).
			Str("client", msg.ClientID).
			Msg("Failed to propagate location update")
		return
	}

	f.logger.Debug().
		Str("peer", peer).
		Str("client", msg.ClientID).
		Int("hop_budget", msg.HopBudget).
		Msg("Location update sent")
}
