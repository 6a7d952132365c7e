// Package geocode turns a coordinate pair into place metadata using an
// external reverse-geocoding endpoint.
//
// The endpoint is queried as GET {base}?latitude={lat}&longitude={lng} and
// must answer with at least a countryCode. A response without one is a
// DomainError wrapping ErrUnresolvable, never a transport failure.
package geocode

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/roach88/triplog/internal/emoji"
	"github.com/roach88/triplog/internal/metrics"
	"github.com/roach88/triplog/internal/record"
	"github.com/roach88/triplog/internal/remote"
)

// DefaultBaseURL is the public BigDataCloud client-side endpoint.
const DefaultBaseURL = "https://api.bigdatacloud.net/data/reverse-geocode-client"

// Response is the subset of the geocoder payload the trip log reads.
type Response struct {
	CountryCode string `json:"countryCode"`
	CountryName string `json:"countryName"`
	City        string `json:"city"`
	Locality    string `json:"locality"`
}

// Place is a resolved location, ready to prefill a new record.
type Place struct {
	// Name is the city, else the locality, else empty.
	Name        string
	Country     string
	CountryCode string
	Emoji       string
}

// PlaceFromResponse derives a Place. It fails with a DomainError when the
// country code is missing or is not a two-letter code.
func PlaceFromResponse(p record.Position, r Response) (Place, error) {
	code := strings.TrimSpace(r.CountryCode)
	if code == "" {
		return Place{}, &DomainError{Position: p, Err: ErrUnresolvable}
	}
	flag, err := emoji.FromCountryCode(code)
	if err != nil {
		return Place{}, &DomainError{Position: p, Err: fmt.Errorf("%w: %v", ErrUnresolvable, err)}
	}

	name := r.City
	if name == "" {
		name = r.Locality
	}
	return Place{
		Name:        name,
		Country:     r.CountryName,
		CountryCode: strings.ToUpper(code),
		Emoji:       flag,
	}, nil
}

// Client queries a reverse geocoder, optionally through a Cache.
type Client struct {
	baseURL string
	http    *http.Client
	cache   Cache
	logger  *slog.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the default http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.http = hc
	}
}

// WithCache enables lookup caching.
func WithCache(cache Cache) Option {
	return func(c *Client) {
		c.cache = cache
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(c *Client) {
		c.logger = l
	}
}

// New creates a Client. An empty baseURL selects DefaultBaseURL.
func New(baseURL string, opts ...Option) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	c := &Client{
		baseURL: baseURL,
		http:    &http.Client{Timeout: 10 * time.Second},
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Resolve looks up p and converts the answer into a Place.
func (c *Client) Resolve(ctx context.Context, p record.Position) (Place, error) {
	resp, err := c.Lookup(ctx, p)
	if err != nil {
		return Place{}, err
	}
	place, err := PlaceFromResponse(p, resp)
	if err != nil {
		metrics.GeocodeUnresolvableTotal.Inc()
		c.logger.Debug("geocode unresolvable", "position", p.String())
		return Place{}, err
	}
	return place, nil
}

// Lookup returns the raw geocoder response for p.
//
// Cache failures are logged and otherwise ignored. Only responses carrying a
// country code are stored.
func (c *Client) Lookup(ctx context.Context, p record.Position) (Response, error) {
	key := CacheKey(p)
	if c.cache != nil {
		cached, ok, err := c.cache.Get(ctx, key)
		switch {
		case err != nil:
			c.logger.Warn("geocode cache get failed", "key", key, "error", err)
		case ok:
			metrics.GeocodeCacheHitsTotal.Inc()
			return cached, nil
		default:
			metrics.GeocodeCacheMissesTotal.Inc()
		}
	}

	resp, err := c.fetch(ctx, p)
	if err != nil {
		return Response{}, err
	}

	if c.cache != nil && strings.TrimSpace(resp.CountryCode) != "" {
		if err := c.cache.Set(ctx, key, resp); err != nil {
			c.logger.Warn("geocode cache set failed", "key", key, "error", err)
		}
	}
	return resp, nil
}

func (c *Client) fetch(ctx context.Context, p record.Position) (Response, error) {
	q := url.Values{}
	q.Set("latitude", record.FormatDegrees(p.Lat))
	q.Set("longitude", record.FormatDegrees(p.Lng))
	u := c.baseURL + "?" + q.Encode()

	fail := func(status int, err error) error {
		metrics.GeocodeFailuresTotal.Inc()
		c.logger.Debug("geocode request failed", "url", u, "status", status, "error", err)
		return &remote.TransportError{Op: "geocode", Method: http.MethodGet, URL: u, StatusCode: status, Err: err}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return Response{}, fail(0, err)
	}
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	metrics.GeocodeRequestsTotal.Inc()
	res, err := c.http.Do(req)
	if err != nil {
		return Response{}, fail(0, err)
	}
	defer res.Body.Close()

	dur := time.Since(start).Milliseconds()
	metrics.GeocodeDurationMs.Observe(float64(dur))

	if res.StatusCode < 200 || res.StatusCode > 299 {
		_, _ = io.Copy(io.Discard, res.Body)
		return Response{}, fail(res.StatusCode, nil)
	}

	var out Response
	if err := json.NewDecoder(res.Body).Decode(&out); err != nil {
		return Response{}, fail(res.StatusCode, fmt.Errorf("decode response: %w", err))
	}
	c.logger.Debug("geocode response", "position", p.String(), "country_code", out.CountryCode, "city", out.City, "locality", out.Locality, "duration_ms", dur)
	return out, nil
}
