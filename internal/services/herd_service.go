package services

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"sync"
	"time"

	"github.com/benmeehan/herd-proxy/internal/constants"
	"github.com/benmeehan/herd-proxy/internal/models"
	"github.com/benmeehan/herd-proxy/internal/protocol"
	"github.com/benmeehan/herd-proxy/internal/state_managers"
	"github.com/benmeehan/herd-proxy/internal/topology"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// Propagator floods a location update to adjacent servers.
type Propagator interface {
	Propagate(msg models.FloodMessage, exclude ...string) int
}

// PlacesEnricher returns the places payload appended to a WHATSAT answer.
type PlacesEnricher interface {
	Lookup(ctx context.Context, latitude, longitude float64, radiusMeters uint, limit int) (string, error)
}

// ConnectionLimits bounds the work done for one inbound connection.
type ConnectionLimits struct {
	MaxRequestBytes int
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
}

// HerdService accepts client and peer connections for one herd server.
// Each connection carries exactly one request and one response.
type HerdService struct {
	// Configuration fields
	serverID  string
	hopBudget int
	limits    ConnectionLimits

	// Dependencies
	topology *topology.Topology
	store    *state_managers.LocationStore
	flood    Propagator
	enricher PlacesEnricher
	logger   zerolog.Logger

	// Internal state management
	mu       sync.Mutex
	listener net.Listener
	ctx      context.Context
	cancel   context.CancelFunc
	wg       sync.WaitGroup
}

// NewHerdService initializes a new HerdService for serverID.
func NewHerdService(serverID string, hopBudget int, limits ConnectionLimits, topo *topology.Topology,
	store *state_managers.LocationStore, flood Propagator, enricher PlacesEnricher, logger zerolog.Logger) *HerdService {
	if limits.MaxRequestBytes <= 0 {
		limits.MaxRequestBytes = constants.DefaultMaxRequestBytes
	}
	if limits.ReadTimeout <= 0 {
		limits.ReadTimeout = constants.DefaultReadTimeout
	}
	if limits.WriteTimeout <= 0 {
		limits.WriteTimeout = constants.DefaultWriteTimeout
	}

	return &HerdService{
		serverID:  serverID,
		hopBudget: hopBudget,
		limits:    limits,
		topology:  topo,
		store:     store,
		flood:     flood,
		enricher:  enricher,
		logger:    logger,
	}
}

// Start listens on the address the herd table assigns to this server.
func (h *HerdService) Start() error {
	addr, ok := h.topology.Address(h.serverID)
	if !ok {
		return fmt.Errorf("server %s is not part of the herd", h.serverID)
	}

	ln, err := net.Listen("tcp", addr)
	if err != nil {
		h.logger.Error().Err(err).Str("address", addr).Msg("Failed to listen")
		return fmt.Errorf("failed to listen on %s: %w", addr, err)
	}
	return h.Serve(ln)
}

// Serve accepts connections from ln in the background until Stop is called.
func (h *HerdService) Serve(ln net.Listener) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.listener != nil {
		h.logger.Warn().Msg("HerdService is already running")
		return errors.New("herd service is already running")
	}

	h.listener = ln
	h.ctx, h.cancel = context.WithCancel(context.Background())

	h.wg.Add(1)
	go h.acceptLoop(h.ctx, ln)

	h.logger.Info().Str("address", ln.Addr().String()).Msg("HerdService started")
	return nil
}

// Stop closes the listener, cancels in-flight requests and waits for them.
func (h *HerdService) Stop() error {
	h.mu.Lock()
	ln := h.listener
	cancel := h.cancel
	h.listener = nil
	h.mu.Unlock()

	if ln == nil {
		h.logger.Warn().Msg("HerdService is not running")
		return errors.New("herd service is not running")
	}

	cancel()
	err := ln.Close()
	h.wg.Wait()

	h.logger.Info().Msg("HerdService stopped")
	return err
}

func (h *HerdService) acceptLoop(ctx context.Context, ln net.Listener) {
	defer h.wg.Done()

	for {
		conn, err := ln.Accept()
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, net.ErrClosed) {
				return
			}
			h.logger.Error().Err(err).Msg("Failed to accept connection")
			select {
			case <-ctx.Done():
				return
			case <-time.After(50 * time.Millisecond):
			}
			continue
		}

		h.wg.Add(1)
		go func() {
			defer h.wg.Done()
			h.handleConnection(ctx, conn)
		}()
	}
}

// connection tracks the lifecycle of one inbound connection.
type connection struct {
	state  constants.ConnState
	logger zerolog.Logger
}

func (c *connection) transition(next constants.ConnState) {
	c.logger.Debug().Str("from", string(c.state)).Str("to", string(next)).Msg("Connection state changed")
	c.state = next
}

func (h *HerdService) handleConnection(ctx context.Context, conn net.Conn) {
	logger := h.logger.With().
		Str("conn_id", uuid.New().String()).
		Str("remote", conn.RemoteAddr().String()).
		Logger()
	c := &connection{state: constants.ConnIdle, logger: logger}
	defer func() {
		conn.Close()
		c.transition(constants.ConnClosed)
	}()

	c.transition(constants.ConnReading)
	raw, err := h.readRequest(conn)
	if err != nil {
		c.logger.Warn().Err(err).Msg("Failed to read request")
		return
	}
	if raw == "" {
		c.logger.Debug().Msg("Connection closed without a request")
		return
	}

	reqCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	go watchDisconnect(conn, cancel)

	c.transition(constants.ConnDispatching)
	response := h.dispatch(reqCtx, raw, c.logger)
	if response == "" {
		return
	}
	if reqCtx.Err() != nil {
		c.logger.Info().Err(reqCtx.Err()).Msg("Request cancelled, discarding response")
		return
	}

	c.transition(constants.ConnWriting)
	if err := conn.SetWriteDeadline(time.Now().Add(h.limits.WriteTimeout)); err != nil {
		c.logger.Warn().Err(err).Msg("Failed to set write deadline")
	}
	if _, err := io.WriteString(conn, response); err != nil {
		c.logger.Debug().Err(err).Msg("Client gone, response dropped")
	}
}

// readRequest reads one line of at most MaxRequestBytes. A line cut short by
// EOF, the size cap or the read deadline is still returned as the request.
func (h *HerdService) readRequest(conn net.Conn) (string, error) {
	if err := conn.SetReadDeadline(time.Now().Add(h.limits.ReadTimeout)); err != nil {
		return "", err
	}
	defer conn.SetReadDeadline(time.Time{})

	reader := bufio.NewReaderSize(io.LimitReader(conn, int64(h.limits.MaxRequestBytes)), h.limits.MaxRequestBytes)
	line, err := reader.ReadString('\n')
	if err == nil || errors.Is(err, io.EOF) {
		return line, nil
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() && line != "" {
		return line, nil
	}
	return "", err
}

// watchDisconnect cancels the request when the client connection fails while
// the request is being served. A half-close (EOF) is the normal end of a
// request and is ignored, so a client that closes normally mid-request still
// has its lookup finish; the write then fails and the result is dropped.
func watchDisconnect(conn net.Conn, cancel context.CancelFunc) {
	buf := make([]byte, 256)
	for {
		if _, err := conn.Read(buf); err != nil {
			if !errors.Is(err, io.EOF) && !errors.Is(err, net.ErrClosed) {
				cancel()
			}
			return
		}
	}
}

// Dispatch serves one raw request and returns the response to write back.
// It never fails: errors become the failure envelope around raw.
func (h *HerdService) Dispatch(ctx context.Context, raw string) string {
	return h.dispatch(ctx, raw, h.logger)
}

func (h *HerdService) dispatch(ctx context.Context, raw string, logger zerolog.Logger) string {
	req, err := protocol.Parse(raw)
	if err == nil {
		var response string
		switch r := req.(type) {
		case *protocol.IAmAt:
			response, err = h.handleIAmAt(r, logger)
		case *protocol.WhatsAt:
			response, err = h.handleWhatsAt(ctx, r, logger)
		case *protocol.At:
			response, err = h.handleAt(r, logger)
		default:
			err = fmt.Errorf("%w: unhandled command %s", protocol.ErrMalformedRequest, req.Command())
		}
		if err == nil {
			return response
		}
	}

	logger.Warn().
		Err(err).
		Str("error_kind", protocol.ErrorKind(err)).
		Str("request", raw).
		Msg("Request failed")
	return protocol.FormatFailure(raw)
}

func (h *HerdService) handleIAmAt(req *protocol.IAmAt, logger zerolog.Logger) (string, error) {
	if h.store.Upsert(req.Record()) {
		h.flood.Propagate(models.FloodMessage{
			Origin:        h.serverID,
			HopBudget:     h.hopBudget,
			ClientID:      req.ClientID,
			RawCoordinate: req.RawCoordinate,
			RawTimestamp:  req.RawTimestamp,
		})
	}

	record, _ := h.store.Get(req.ClientID)
	logger.Info().Str("client", req.ClientID).Str("coordinates", req.RawCoordinate).Msg("Client location reported")
	return protocol.FormatAT(h.serverID, time.Now(), record) + "\n", nil
}

func (h *HerdService) handleWhatsAt(ctx context.Context, req *protocol.WhatsAt, logger zerolog.Logger) (string, error) {
	record, ok := h.store.Get(req.ClientID)
	if !ok {
		return "", fmt.Errorf("%w: %s", protocol.ErrUnknownClient, req.ClientID)
	}

	header := protocol.FormatAT(h.serverID, time.Now(), record)
	payload, err := h.enricher.Lookup(ctx, record.Latitude, record.Longitude, uint(req.RadiusKm)*1000, req.Limit)
	if err != nil {
		return "", fmt.Errorf("%w: %v", protocol.ErrServiceUnavailable, err)
	}

	logger.Info().Str("client", req.ClientID).Int("radius_km", req.RadiusKm).Int("limit", req.Limit).Msg("Places served")
	return header + "\n" + payload + "\n\n", nil
}

func (h *HerdService) handleAt(req *protocol.At, logger zerolog.Logger) (string, error) {
	if !h.topology.Has(req.Origin) {
		return "", fmt.Errorf("%w: AT from unknown server %s", protocol.ErrMalformedRequest, req.Origin)
	}

	logger.Debug().Str("origin", req.Origin).Str("client", req.ClientID).Int("hop_budget", req.HopBudget).Msg("Received location update")

	if !h.store.Upsert(req.Record()) {
		return "", nil
	}

	if req.HopBudget == 0 {
		logger.Debug().Str("client", req.ClientID).Msg("Flooding complete")
		return "", nil
	}

	h.flood.Propagate(models.FloodMessage{
		Origin:        h.serverID,
		HopBudget:     req.HopBudget - 1,
		ClientID:      req.ClientID,
		RawCoordinate: req.RawCoordinate,
		RawTimestamp:  req.RawTimestamp,
	}, req.Origin)
	return "", nil
}
