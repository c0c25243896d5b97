package ors

import (
	"context"
	"delivery-route-engine/internal/domain"
	"delivery-route-engine/internal/platform/obs"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"
)

const DefaultBaseURL = "https://api.openrouteservice.org"

type geocodeResponse struct {
	Features []struct {
		Geometry struct {
			Coordinates []float64 `json:"coordinates"`
		} `json:"geometry"`
	} `json:"features"`
}

// Geocoder implements ports.Geocoder using OpenRouteService (/geocode/search).
//
// Results are restricted to the US and only the best match is used.
// The geocoder is safe for concurrent use.
type Geocoder struct {
	session *http.Client
	apiKey  string
	baseURL string
	backoff time.Duration
}

func NewGeocoder(apiKey string, baseURL string) (*Geocoder, error) {
	if apiKey == "" {
		return nil, errors.New("ORS api key is empty")
	}
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}

	return &Geocoder{
		session: &http.Client{Timeout: 10 * time.Second},
		apiKey:  apiKey,
		baseURL: strings.TrimRight(baseURL, "/"),
	}, nil
}

// Normalize collapses whitespace so equal addresses share one cache key.
func Normalize(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// Resolve returns nil coordinates when ORS has no match for the address.
func (g *Geocoder) Resolve(ctx context.Context, address string) (_ *domain.Coordinates, err error) {
	defer obs.Time(ctx, "ors.Resolve")(&err)

	norm := Normalize(address)
	if norm == "" {
		return nil, nil
	}

	endpoint := g.baseURL + "/geocode/search"

	resp, err := g.doWithRetry(ctx, func() (*http.Request, error) {
		req, err := g.newRequest(ctx, http.MethodGet, endpoint)
		if err != nil {
			return nil, err
		}
		q := req.URL.Query()
		q.Set("text", norm)
		q.Set("boundary.country", "US")
		q.Set("size", "1")
		req.URL.RawQuery = q.Encode()
		return req, nil
	})
	if err != nil {
		return nil, fmt.Errorf("geocode %q: %w", norm, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("geocode %q: unexpected status: %d", norm, resp.StatusCode)
	}

	var decoded geocodeResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return nil, fmt.Errorf("decode geocode response: %w", err)
	}

	if len(decoded.Features) == 0 {
		return nil, nil
	}

	// GeoJSON order: [lon, lat].
	coords := decoded.Features[0].Geometry.Coordinates
	if len(coords) != 2 {
		return nil, fmt.Errorf("invalid coordinate format for %q", norm)
	}

	c := domain.Coordinates{Lon: coords[0], Lat: coords[1]}
	if !c.Valid() {
		return nil, fmt.Errorf("out of range coordinates for %q: %v", norm, coords)
	}
	return &c, nil
}
