package geo

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/helphive/servicehours/internal/pkg/apperrors"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mapCache struct {
	mu   sync.Mutex
	data map[string]string
}

func (m *mapCache) Get(ctx context.Context, key string) (string, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.data[key]
	return v, ok, nil
}

func (m *mapCache) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = value
	return nil
}

func newMapsServer(t *testing.T, calls *int32) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/geocode/json", func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(calls, 1)
		assert.Equal(t, "test-key", r.URL.Query().Get("key"))
		if r.URL.Query().Get("address") == "nowhere" {
			_, _ = w.Write([]byte(`{"status":"ZERO_RESULTS","results":[]}`))
			return
		}
		_, _ = w.Write([]byte(`{"status":"OK","results":[{"geometry":{"location":{"lat":40.7,"lng":-74.0}}}]}`))
	})
	mux.HandleFunc("/place/autocomplete/json", func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(calls, 1)
		_, _ = w.Write([]byte(`{"status":"OK","predictions":[{"description":"1 Main St, Springfield","place_id":"abc"}]}`))
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func TestGeocodeCachesResults(t *testing.T) {
	var calls int32
	srv := newMapsServer(t, &calls)
	c := NewClient(Config{APIKey: "test-key", BaseURL: srv.URL}, &mapCache{data: map[string]string{}}, zerolog.Nop())

	p, err := c.Geocode(context.Background(), "1 Main St")
	require.NoError(t, err)
	assert.Equal(t, Point{Latitude: 40.7, Longitude: -74.0}, p)

	p, err = c.Geocode(context.Background(), "1 MAIN ST")
	require.NoError(t, err)
	assert.Equal(t, 40.7, p.Latitude)
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
}

func TestGeocodeNoResults(t *testing.T) {
	var calls int32
	srv := newMapsServer(t, &calls)
	c := NewClient(Config{APIKey: "test-key", BaseURL: srv.URL}, nil, zerolog.Nop())

	_, err := c.Geocode(context.Background(), "nowhere")
	assert.ErrorIs(t, err, ErrNoResults)
}

func TestAutocomplete(t *testing.T) {
	var calls int32
	srv := newMapsServer(t, &calls)
	c := NewClient(Config{APIKey: "test-key", BaseURL: srv.URL}, nil, zerolog.Nop())

	preds, err := c.Autocomplete(context.Background(), "1 Main")
	require.NoError(t, err)
	require.Len(t, preds, 1)
	assert.Equal(t, "abc", preds[0].PlaceID)

	preds, err = c.Autocomplete(context.Background(), "  ")
	require.NoError(t, err)
	assert.Empty(t, preds)
}

func TestDisabledClient(t *testing.T) {
	c := NewClient(Config{}, nil, zerolog.Nop())
	assert.False(t, c.Enabled())

	_, err := c.Geocode(context.Background(), "1 Main St")
	assert.ErrorIs(t, err, apperrors.ErrGeoDisabled)
	_, err = c.Autocomplete(context.Background(), "1 Main")
	assert.ErrorIs(t, err, apperrors.ErrGeoDisabled)
}

func TestUpstreamErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"status":"REQUEST_DENIED","error_message":"bad key"}`))
	}))
	defer srv.Close()
	c := NewClient(Config{APIKey: "k", BaseURL: srv.URL}, nil, zerolog.Nop())

	_, err := c.Geocode(context.Background(), "x")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "REQUEST_DENIED")
}

var _ Cache = (*RedisCache)(nil)
