package places

import "context"

// Provider looks up places around a coordinate.
type Provider interface {
	NearbySearch(ctx context.Context, req SearchRequest) (*Result, error)
}
