package mocks

import (
	"context"

	"github.com/benmeehan/herd-proxy/pkg/places"
	"github.com/stretchr/testify/mock"
)

// MockPlacesProvider is a mock implementation of the places.Provider interface
type MockPlacesProvider struct {
	mock.Mock
}

func (m *MockPlacesProvider) NearbySearch(ctx context.Context, req places.SearchRequest) (*places.Result, error) {
	args := m.Called(ctx, req)
	if r := args.Get(0); r != nil {
		return r.(*places.Result), args.Error(1)
	}
	return nil, args.Error(1)
}

// MockPlacesEnricher is a mock implementation of the PlacesEnricher interface
type MockPlacesEnricher struct {
	mock.Mock
}

func (m *MockPlacesEnricher) Lookup(ctx context.Context, latitude, longitude float64, radiusMeters uint, limit int) (string, error) {
	args := m.Called(ctx, latitude, longitude, radiusMeters, limit)
	return args.String(0), args.Error(1)
}
