package services_test

import (
	"errors"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/benmeehan/herd-proxy/internal/mocks"
	"github.com/benmeehan/herd-proxy/internal/models"
	"github.com/benmeehan/herd-proxy/internal/services"
	"github.com/benmeehan/herd-proxy/internal/topology"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func newTriangle(t *testing.T) *topology.Topology {
	t.Helper()
	topo, err := topology.New(map[string]topology.Server{
		"Alpha":   {Address: "10.0.0.1:1", Peers: []string{"Bravo", "Charlie"}},
		"Bravo":   {Address: "10.0.0.2:1", Peers: []string{"Alpha"}},
		"Charlie": {Address: "10.0.0.3:1", Peers: []string{"Alpha"}},
	})
	require.NoError(t, err)
	return topo
}

var kiwiUpdate = models.FloodMessage{
	Origin:        "Alpha",
	HopBudget:     2,
	ClientID:      "kiwi.cs.ucla.edu",
	RawCoordinate: "+34.068930-118.445127",
	RawTimestamp:  "1621464827.959498503",
}

// TestFloodService_Propagate_AllPeers tests fan-out to every adjacent server.
func TestFloodService_Propagate_AllPeers(t *testing.T) {
	sender := new(mocks.MockPeerSender)
	line := "AT Alpha 2 kiwi.cs.ucla.edu +34.068930-118.445127 1621464827.959498503\n"
	sender.On("Send", mock.Anything, "10.0.0.2:1", line).Return(nil).Once()
	sender.On("Send", mock.Anything, "10.0.0.3:1", line).Return(nil).Once()

	f := services.NewFloodService(newTriangle(t), sender, zerolog.Nop())
	require.NoError(t, f.Start())

	launched := f.Propagate(kiwiUpdate)
	require.NoError(t, f.Stop())

	assert.Equal(t, 2, launched)
	sender.AssertExpectations(t)
}

// TestFloodService_Propagate_ExcludesSender tests that the server an update
// came from is not sent it again.
func TestFloodService_Propagate_ExcludesSender(t *testing.T) {
	sender := new(mocks.MockPeerSender)
	sender.On("Send", mock.Anything, "10.0.0.3:1", mock.Anything).Return(nil).Once()

	f := services.NewFloodService(newTriangle(t), sender, zerolog.Nop())
	require.NoError(t, f.Start())

	launched := f.Propagate(kiwiUpdate, "Bravo")
	require.NoError(t, f.Stop())

	assert.Equal(t, 1, launched)
	sender.AssertExpectations(t)
	sender.AssertNotCalled(t, "Send", mock.Anything, "10.0.0.2:1", mock.Anything)
}

// TestFloodService_Propagate_NoPeers tests a leaf whose only peer is excluded.
func TestFloodService_Propagate_NoPeers(t *testing.T) {
	sender := new(mocks.MockPeerSender)

	f := services.NewFloodService(newTriangle(t), sender, zerolog.Nop())
	require.NoError(t, f.Start())

	msg := kiwiUpdate
	msg.Origin = "Bravo"
	assert.Equal(t, 0, f.Propagate(msg, "Alpha"))
	require.NoError(t, f.Stop())

	sender.AssertNotCalled(t, "Send", mock.Anything, mock.Anything, mock.Anything)
}

// TestFloodService_Propagate_FailuresSwallowed tests that an unreachable peer
// does not stop delivery to the others.
func TestFloodService_Propagate_FailuresSwallowed(t *testing.T) {
	sender := new(mocks.MockPeerSender)
	sender.On("Send", mock.Anything, "10.0.0.2:1", mock.Anything).Return(errors.New("connection refused")).Once()
	sender.On("Send", mock.Anything, "10.0.0.3:1", mock.Anything).Return(nil).Once()

	f := services.NewFloodService(newTriangle(t), sender, zerolog.Nop())
	require.NoError(t, f.Start())

	assert.Equal(t, 2, f.Propagate(kiwiUpdate))
	require.NoError(t, f.Stop())

	sender.AssertExpectations(t)
}

// TestFloodService_Propagate_AfterStop tests that nothing is sent once stopped.
func TestFloodService_Propagate_AfterStop(t *testing.T) {
	sender := new(mocks.MockPeerSender)

	f := services.NewFloodService(newTriangle(t), sender, zerolog.Nop())
	require.NoError(t, f.Start())
	require.NoError(t, f.Stop())

	assert.Equal(t, 0, f.Propagate(kiwiUpdate))
	sender.AssertNotCalled(t, "Send", mock.Anything, mock.Anything, mock.Anything)

	err := f.Start()
	assert.EqualError(t, err, "flood service is stopped")
}

// TestFloodService_Propagate_ConcurrentWithStop tests that every launched
// send has finished once Stop returns.
func TestFloodService_Propagate_ConcurrentWithStop(t *testing.T) {
	sender := new(mocks.MockPeerSender)
	sender.On("Send", mock.Anything, mock.Anything, mock.Anything).Return(nil)

	f := services.NewFloodService(newTriangle(t), sender, zerolog.Nop())
	require.NoError(t, f.Start())

	var launched atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			launched.Add(int32(f.Propagate(kiwiUpdate)))
		}()
	}

	require.NoError(t, f.Stop())
	wg.Wait()

	sender.AssertNumberOfCalls(t, "Send", int(launched.Load()))
}
