/*
Package tzlookup resolves a free-text place name to an IANA timezone and
coordinates via a geocoding service.

This is a collaborator boundary, not core logic: lookup failures are
never fatal. Callers use ResolveOrUTC to degrade to UTC with a warning
and carry on.

The client speaks the Open-Meteo geocoding API shape:
  GET {base}/v1/search?name={place}&count=1
  -> { "results": [ { "latitude": .., "longitude": .., "timezone": ".." } ] }
*/
package tzlookup

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"
)

// Location is a resolved place.
type Location struct {
	Timezone  string
	Latitude  float64
	Longitude float64
}

// UTC is the fallback location when resolution fails.
var UTC = Location{Timezone: "UTC"}

// ErrNoMatch is returned when the geocoder finds nothing for the place.
var ErrNoMatch = errors.New("no match for place")

// LookupError wraps any resolution failure with the place that caused it.
type LookupError struct {
	Place string
	Err   error
}

func (e *LookupError) Error() string {
	return fmt.Sprintf("timezone lookup for %q failed: %v", e.Place, e.Err)
}

func (e *LookupError) Unwrap() error { return e.Err }

// Resolver resolves place names to locations.
type Resolver interface {
	Resolve(ctx context.Context, place string) (Location, error)
}

// Client is an HTTP geocoding resolver.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient returns a client against the given geocoder base URL.
func NewClient(baseURL string) *Client {
	return &Client{
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		httpClient: &http.Client{Timeout: 10 * time.Second},
	}
}

type searchResponse struct {
	Results []struct {
		Latitude  float64 `json:"latitude"`
		Longitude float64 `json:"longitude"`
		Timezone  string  `json:"timezone"`
	} `json:"results"`
}

// Resolve looks the place up. Every failure comes back as *LookupError.
func (c *Client) Resolve(ctx context.Context, place string) (Location, error) {
	if strings.TrimSpace(place) == "" {
		return Location{}, &LookupError{Place: place, Err: ErrNoMatch}
	}

	endpoint := fmt.Sprintf("%s/v1/search?name=%s&count=1", c.baseURL, url.QueryEscape(place))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return Location{}, &LookupError{Place: place, Err: err}
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return Location{}, &LookupError{Place: place, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return Location{}, &LookupError{Place: place, Err: fmt.Errorf("geocoder returned %d", resp.StatusCode)}
	}

	var body searchResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return Location{}, &LookupError{Place: place, Err: err}
	}
	if len(body.Results) == 0 || body.Results[0].Timezone == "" {
		return Location{}, &LookupError{Place: place, Err: ErrNoMatch}
	}

	r := body.Results[0]
	return Location{Timezone: r.Timezone, Latitude: r.Latitude, Longitude: r.Longitude}, nil
}

// ResolveOrUTC resolves the place, falling back to UTC with a warning on
// any failure. Never returns an error.
func ResolveOrUTC(ctx context.Context, r Resolver, place string, log *zap.Logger) Location {
	loc, err := r.Resolve(ctx, place)
	if err != nil {
		if log != nil {
			log.Warn("timezone lookup failed; using UTC",
				zap.String("place", place),
				zap.Error(err))
		}
		return UTC
	}
	return loc
}
