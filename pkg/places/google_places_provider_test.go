package places_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/benmeehan/herd-proxy/pkg/places"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const nearbyBody = `{
  "html_attributions": [],
  "results": [
    {"name": "Royce Hall", "place_id": "p1", "vicinity": "Los Angeles"},
    {"name": "Powell Library", "place_id": "p2", "vicinity": "Los Angeles"},
    {"name": "Pauley Pavilion", "place_id": "p3", "vicinity": "Los Angeles"}
  ],
  "status": "OK"
}`

// placesEndpoint serves body with HTTP 200 and records the last query.
func placesEndpoint(t *testing.T, body string) (*httptest.Server, *atomic.Value) {
	t.Helper()
	var query atomic.Value
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/maps/api/place/nearbysearch/json", r.URL.Path)
		query.Store(map[string]string{
			"key":      r.URL.Query().Get("key"),
			"location": r.URL.Query().Get("location"),
			"radius":   r.URL.Query().Get("radius"),
		})
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv, &query
}

func decode(t *testing.T, result *places.Result) map[string]any {
	t.Helper()
	raw, err := json.Marshal(result)
	require.NoError(t, err)
	var out map[string]any
	require.NoError(t, json.Unmarshal(raw, &out))
	return out
}

func TestGooglePlacesProvider_NearbySearch_Success(t *testing.T) {
	srv, query := placesEndpoint(t, nearbyBody)

	provider, err := places.NewGooglePlacesProvider("test-key", srv.URL, time.Second, 0)
	require.NoError(t, err)

	result, err := provider.NearbySearch(context.Background(), places.SearchRequest{
		Latitude:     34.06893,
		Longitude:    -118.445127,
		RadiusMeters: 10000,
	})
	require.NoError(t, err)

	q := query.Load().(map[string]string)
	assert.Equal(t, "test-key", q["key"])
	assert.Equal(t, "34.06893,-118.445127", q["location"])
	assert.Equal(t, "10000", q["radius"])
	assert.Equal(t, "OK", result.Status())
	assert.Equal(t, 3, result.Len())

	result.Truncate(2)
	body := decode(t, result)
	results := body["results"].([]any)
	require.Len(t, results, 2)
	assert.Equal(t, "Royce Hall", results[0].(map[string]any)["name"])
}

// TestGooglePlacesProvider_NearbySearch_BodyKeptAsSent tests that unknown
// fields survive and no fields are added.
func TestGooglePlacesProvider_NearbySearch_BodyKeptAsSent(t *testing.T) {
	srv, _ := placesEndpoint(t, `{"results":[{"name":"Royce Hall","place_id":"p1","custom_field":"kept"}],"status":"OK","extra":1}`)

	provider, err := places.NewGooglePlacesProvider("test-key", srv.URL, time.Second, 0)
	require.NoError(t, err)

	result, err := provider.NearbySearch(context.Background(), places.SearchRequest{Latitude: 1, Longitude: 1, RadiusMeters: 1000})
	require.NoError(t, err)

	body := decode(t, result)
	assert.Equal(t, map[string]any{
		"results": []any{map[string]any{"name": "Royce Hall", "place_id": "p1", "custom_field": "kept"}},
		"status":  "OK",
		"extra":   float64(1),
	}, body)
}

// TestGooglePlacesProvider_NearbySearch_NonOKStatus tests that a 200 reply
// carrying an error status is still a successful lookup.
func TestGooglePlacesProvider_NearbySearch_NonOKStatus(t *testing.T) {
	for _, status := range []string{"INVALID_REQUEST", "REQUEST_DENIED", "OVER_QUERY_LIMIT", "ZERO_RESULTS"} {
		srv, _ := placesEndpoint(t, `{"html_attributions": [], "results": [], "status": "`+status+`", "error_message": "nope"}`)

		provider, err := places.NewGooglePlacesProvider("test-key", srv.URL, time.Second, 0)
		require.NoError(t, err)

		result, err := provider.NearbySearch(context.Background(), places.SearchRequest{Latitude: 1, Longitude: 1, RadiusMeters: 1000})
		require.NoError(t, err, status)
		assert.Equal(t, status, result.Status())
		assert.Equal(t, 0, result.Len())
		assert.Equal(t, "nope", decode(t, result)["error_message"], status)
	}
}

// TestGooglePlacesProvider_NearbySearch_ZeroRadius tests that a zero radius
// is sent to the endpoint.
func TestGooglePlacesProvider_NearbySearch_ZeroRadius(t *testing.T) {
	srv, query := placesEndpoint(t, `{"html_attributions": [], "results": [], "status": "INVALID_REQUEST"}`)

	provider, err := places.NewGooglePlacesProvider("test-key", srv.URL, time.Second, 0)
	require.NoError(t, err)

	result, err := provider.NearbySearch(context.Background(), places.SearchRequest{Latitude: 34.5, Longitude: -118.25, RadiusMeters: 0})
	require.NoError(t, err)
	assert.Equal(t, "INVALID_REQUEST", result.Status())

	q := query.Load().(map[string]string)
	assert.Equal(t, "0", q["radius"])
	assert.Equal(t, "34.5,-118.25", q["location"])
	assert.Equal(t, "test-key", q["key"])
}

func TestGooglePlacesProvider_NearbySearch_Non200(t *testing.T) {
	for _, radius := range []uint{0, 1000} {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = w.Write([]byte(`{"status": "OK", "results": []}`))
		}))

		provider, err := places.NewGooglePlacesProvider("test-key", srv.URL, time.Second, 0)
		require.NoError(t, err)

		_, err = provider.NearbySearch(context.Background(), places.SearchRequest{Latitude: 1, Longitude: 1, RadiusMeters: radius})
		assert.ErrorContains(t, err, "503")
		srv.Close()
	}
}

func TestGooglePlacesProvider_NearbySearch_TransportError(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	provider, err := places.NewGooglePlacesProvider("test-key", url, time.Second, 0)
	require.NoError(t, err)

	_, err = provider.NearbySearch(context.Background(), places.SearchRequest{Latitude: 1, Longitude: 1, RadiusMeters: 1000})
	assert.Error(t, err)
}

func TestNewGooglePlacesProvider_MissingKey(t *testing.T) {
	_, err := places.NewGooglePlacesProvider("", "", time.Second, 0)
	assert.Error(t, err)
}

func TestParseResult(t *testing.T) {
	result, err := places.ParseResult([]byte(nearbyBody))
	require.NoError(t, err)

	result.Truncate(-1)
	assert.Equal(t, 0, result.Len())
	assert.Equal(t, []any{}, decode(t, result)["results"])

	_, err = places.ParseResult([]byte(`not json`))
	assert.Error(t, err)

	_, err = places.ParseResult([]byte(`{"results": "oops"}`))
	assert.Error(t, err)
}

func TestDisabledProvider_NearbySearch(t *testing.T) {
	_, err := places.DisabledProvider{}.NearbySearch(context.Background(), places.SearchRequest{Latitude: 1, Longitude: 1, RadiusMeters: 1000})
	assert.ErrorIs(t, err, places.ErrNotConfigured)
}
