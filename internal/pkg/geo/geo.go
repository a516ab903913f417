// Package geo wraps the Google Maps geocoding and place autocomplete APIs.
package geo

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/helphive/servicehours/internal/pkg/apperrors"
	"github.com/rs/zerolog"
)

// ErrNoResults is returned when the API finds nothing for the query.
var ErrNoResults = errors.New("no geocoding results")

// Point is a latitude/longitude pair.
type Point struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// Prediction is one place autocomplete suggestion.
type Prediction struct {
	Description string `json:"description"`
	PlaceID     string `json:"placeId"`
}

// Config holds the Maps client settings.
type Config struct {
	APIKey   string
	BaseURL  string
	CacheTTL time.Duration
	Timeout  time.Duration
}

// Client calls the Maps web services and caches answers.
type Client struct {
	apiKey  string
	baseURL string
	ttl     time.Duration
	http    *http.Client
	cache   Cache
	logger  zerolog.Logger
}

// NewClient builds a client. cache may be nil.
func NewClient(cfg Config, cache Cache, logger zerolog.Logger) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://maps.googleapis.com/maps/api"
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 5 * time.Second
	}
	if cfg.CacheTTL <= 0 {
		cfg.CacheTTL = 24 * time.Hour
	}
	return &Client{
		apiKey:  cfg.APIKey,
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		ttl:     cfg.CacheTTL,
		http:    &http.Client{Timeout: cfg.Timeout},
		cache:   cache,
		logger:  logger,
	}
}

// Enabled reports whether an API key is configured.
func (c *Client) Enabled() bool {
	return c != nil && c.apiKey != ""
}

type geocodeResponse struct {
	Status       string `json:"status"`
	ErrorMessage string `json:"error_message"`
	Results      []struct {
		Geometry struct {
			Location struct {
				Lat float64 `json:"lat"`
				Lng float64 `json:"lng"`
			} `json:"location"`
		} `json:"geometry"`
	} `json:"results"`
}

type autocompleteResponse struct {
	Status       string `json:"status"`
	ErrorMessage string `json:"error_message"`
	Predictions  []struct {
		Description string `json:"description"`
		PlaceID     string `json:"place_id"`
	} `json:"predictions"`
}

// Geocode resolves an address to coordinates.
func (c *Client) Geocode(ctx context.Context, address string) (Point, error) {
	if !c.Enabled() {
		return Point{}, apperrors.ErrGeoDisabled
	}
	address = strings.TrimSpace(address)
	if address == "" {
		return Point{}, apperrors.NewValidationError("address", "address is required")
	}

	var p Point
	key := cacheKey("geocode", address)
	if c.cached(ctx, key, &p) {
		return p, nil
	}

	var resp geocodeResponse
	if err := c.get(ctx, "/geocode/json", url.Values{"address": {address}}, &resp); err != nil {
		return Point{}, err
	}
	switch resp.Status {
	case "OK":
	case "ZERO_RESULTS":
		return Point{}, ErrNoResults
	default:
		return Point{}, fmt.Errorf("geocode failed: %s %s", resp.Status, resp.ErrorMessage)
	}
	if len(resp.Results) == 0 {
		return Point{}, ErrNoResults
	}

	loc := resp.Results[0].Geometry.Location
	p = Point{Latitude: loc.Lat, Longitude: loc.Lng}
	c.store(ctx, key, p)
	return p, nil
}

// Autocomplete returns place suggestions for a partial address.
func (c *Client) Autocomplete(ctx context.Context, input string) ([]Prediction, error) {
	if !c.Enabled() {
		return nil, apperrors.ErrGeoDisabled
	}
	input = strings.TrimSpace(input)
	if input == "" {
		return []Prediction{}, nil
	}

	out := []Prediction{}
	key := cacheKey("autocomplete", input)
	if c.cached(ctx, key, &out) {
		return out, nil
	}

	var resp autocompleteResponse
	if err := c.get(ctx, "/place/autocomplete/json", url.Values{"input": {input}}, &resp); err != nil {
		return nil, err
	}
	switch resp.Status {
	case "OK", "ZERO_RESULTS":
	default:
		return nil, fmt.Errorf("autocomplete failed: %s %s", resp.Status, resp.ErrorMessage)
	}

	for _, p := range resp.Predictions {
		out = append(out, Prediction{Description: p.Description, PlaceID: p.PlaceID})
	}
	c.store(ctx, key, out)
	return out, nil
}

func (c *Client) get(ctx context.Context, path string, params url.Values, into any) error {
	params.Set("key", c.apiKey)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path+"?"+params.Encode(), nil)
	if err != nil {
		return fmt.Errorf("build maps request: %w", err)
	}
	res, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("maps request: %w", err)
	}
	defer res.Body.Close()

	if res.StatusCode != http.StatusOK {
		return fmt.Errorf("maps request: unexpected status %d", res.StatusCode)
	}
	if err := json.NewDecoder(res.Body).Decode(into); err != nil {
		return fmt.Errorf("decode maps response: %w", err)
	}
	return nil
}

func (c *Client) cached(ctx context.Context, key string, into any) bool {
	if c.cache == nil {
		return false
	}
	raw, ok, err := c.cache.Get(ctx, key)
	if err != nil {
		c.logger.Warn().Err(err).Str("key", key).Msg("Maps cache read failed")
		return false
	}
	if !ok {
		return false
	}
	return json.Unmarshal([]byte(raw), into) == nil
}

func (c *Client) store(ctx context.Context, key string, v any) {
	if c.cache == nil {
		return
	}
	data, err := json.Marshal(v)
	if err != nil {
		return
	}
	if err := c.cache.Set(ctx, key, string(data), c.ttl); err != nil {
		c.logger.Warn().Err(err).Str("key", key).Msg("Maps cache write failed")
	}
}

func cacheKey(kind, query string) string {
	sum := sha1.Sum([]byte(strings.ToLower(query)))
	return "geo:" + kind + ":" + hex.EncodeToString(sum[:])
}
