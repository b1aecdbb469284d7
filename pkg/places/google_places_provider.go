package places

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"sync"
	"time"

	"googlemaps.github.io/maps"
)

const (
	defaultBaseURL  = "https://maps.googleapis.com"
	nearbySearchAPI = "/maps/api/place/nearbysearch/json"

	// maxBodyBytes bounds how much of a places body is kept.
	maxBodyBytes = 8 << 20
)

// GooglePlacesProvider uses the Google Places nearby search API.
type GooglePlacesProvider struct {
	client     *maps.Client // Maps API client for nearby search requests
	httpClient *http.Client // Shared with client, used when the maps client refuses a request
	apiKey     string
	baseURL    string
}

// NewGooglePlacesProvider creates a new GooglePlacesProvider. baseURL may be
// empty to use the public endpoint; rateLimit of zero keeps the client default.
func NewGooglePlacesProvider(apiKey, baseURL string, timeout time.Duration, rateLimit int) (*GooglePlacesProvider, error) {
	httpClient := &http.Client{
		Timeout:   timeout,
		Transport: statusCheckTransport{base: http.DefaultTransport},
	}

	opts := []maps.ClientOption{
		maps.WithAPIKey(apiKey),
		maps.WithHTTPClient(httpClient),
	}
	if baseURL != "" {
		opts = append(opts, maps.WithBaseURL(baseURL))
	} else {
		baseURL = defaultBaseURL
	}
	if rateLimit > 0 {
		opts = append(opts, maps.WithRateLimit(rateLimit))
	}

	c, err := maps.NewClient(opts...)
	if err != nil {
		return nil, err
	}

	return &GooglePlacesProvider{
		client:     c,
		httpClient: httpClient,
		apiKey:     apiKey,
		baseURL:    baseURL,
	}, nil
}

// NearbySearch retrieves places within RadiusMeters of the requested
// coordinate. Only a transport error or a non-200 reply is a failure; any
// 200 body is returned as sent, whatever its status field says.
func (g *GooglePlacesProvider) NearbySearch(ctx context.Context, req SearchRequest) (*Result, error) {
	// The maps client refuses a zero radius before sending anything.
	if req.RadiusMeters == 0 {
		return g.rawNearbySearch(ctx, req)
	}

	capture := &bodyCapture{}
	ctx = context.WithValue(ctx, bodyCaptureKey{}, capture)

	_, err := g.client.NearbySearch(ctx, &maps.NearbySearchRequest{
		Location: &maps.LatLng{Lat: req.Latitude, Lng: req.Longitude},
		Radius:   req.RadiusMeters,
	})
	if body, ok := capture.get(); ok {
		return ParseResult(body)
	}
	if err != nil {
		return nil, err
	}
	return nil, fmt.Errorf("places endpoint returned no body")
}

func (g *GooglePlacesProvider) rawNearbySearch(ctx context.Context, req SearchRequest) (*Result, error) {
	location := &maps.LatLng{Lat: req.Latitude, Lng: req.Longitude}
	query := url.Values{}
	query.Set("key", g.apiKey)
	query.Set("location", location.String())
	query.Set("radius", strconv.FormatUint(uint64(req.RadiusMeters), 10))

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, g.baseURL+nearbySearchAPI+"?"+query.Encode(), nil)
	if err != nil {
		return nil, err
	}

	resp, err := g.httpClient.Do(httpReq)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, fmt.Errorf("failed to read places body: %w", err)
	}
	return ParseResult(body)
}

type bodyCaptureKey struct{}

// bodyCapture receives the 200 body of the request whose context carries it.
type bodyCapture struct {
	mu   sync.Mutex
	body []byte
	set  bool
}

func (c *bodyCapture) store(body []byte) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.body = body
	c.set = true
}

func (c *bodyCapture) get() ([]byte, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.body, c.set
}

// statusCheckTransport turns every non-200 response into an error and hands
// 200 bodies to the request's bodyCapture, if any.
type statusCheckTransport struct {
	base http.RoundTripper
}

func (t statusCheckTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	resp, err := t.base.RoundTrip(req)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		resp.Body.Close()
		return nil, fmt.Errorf("places endpoint returned status %d", resp.StatusCode)
	}

	capture, ok := req.Context().Value(bodyCaptureKey{}).(*bodyCapture)
	if !ok {
		return resp, nil
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	resp.Body.Close()
	if err != nil {
		return nil, fmt.Errorf("failed to read places body: %w", err)
	}
	capture.store(body)
	resp.Body = io.NopCloser(bytes.NewReader(body))
	return resp, nil
}
