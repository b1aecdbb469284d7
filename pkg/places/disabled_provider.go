package places

import (
	"context"
	"errors"
)

// ErrNotConfigured is returned by DisabledProvider for every search.
var ErrNotConfigured = errors.New("places API key not configured")

// DisabledProvider is used when no API key is configured, so that the rest of
// the server keeps running and WHATSAT fails cleanly.
type DisabledProvider struct{}

func (DisabledProvider) NearbySearch(ctx context.Context, req SearchRequest) (*Result, error) {
	return nil, ErrNotConfigured
}
