package google

import (
	"bytes"
	"context"
	"delivery-route-engine/internal/domain"
	"delivery-route-engine/internal/platform/metrics"
	"delivery-route-engine/internal/platform/obs"
	"delivery-route-engine/internal/ports"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/sony/gobreaker"
)

const (
	DefaultRoutesURL = "https://routes.googleapis.com/directions/v2:computeRoutes"
	fieldMask        = "routes.distanceMeters,routes.duration,routes.optimizedIntermediateWaypointIndex"
)

// Circuit breaker defaults: trip after consecutive failures, probe again after the timeout.
const (
	breakerFailures = 5
	breakerTimeout  = 30 * time.Second
)

// ErrUnavailable is returned while the circuit breaker rejects calls.
var ErrUnavailable = errors.New("route optimizer unavailable")

type latLng struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

type waypoint struct {
	Location struct {
		LatLng latLng `json:"latLng"`
	} `json:"location"`
}

type computeRoutesRequest struct {
	Origin                waypoint   `json:"origin"`
	Destination           waypoint   `json:"destination"`
	Intermediates         []waypoint `json:"intermediates,omitempty"`
	TravelMode            string     `json:"travelMode"`
	OptimizeWaypointOrder bool       `json:"optimizeWaypointOrder,omitempty"`
}

type computeRoutesResponse struct {
	Routes []struct {
		DistanceMeters                     int    `json:"distanceMeters"`
		Duration                           string `json:"duration"`
		OptimizedIntermediateWaypointIndex []int  `json:"optimizedIntermediateWaypointIndex"`
	} `json:"routes"`
}

// RoutesOptimizer implements ports.RouteOptimizer with the Google Routes API.
//
// Calls are not retried; the engine falls back to heuristics instead. A
// circuit breaker stops calling the API after repeated failures.
type RoutesOptimizer struct {
	session  *http.Client
	apiKey   string
	endpoint string
	breaker  *gobreaker.CircuitBreaker
	metrics  *metrics.Metrics
}

func NewRoutesOptimizer(apiKey string, endpoint string, m *metrics.Metrics) (*RoutesOptimizer, error) {
	if apiKey == "" {
		return nil, errors.New("google routes api key is empty")
	}
	if endpoint == "" {
		endpoint = DefaultRoutesURL
	}

	o := &RoutesOptimizer{
		session:  &http.Client{Timeout: 15 * time.Second},
		apiKey:   apiKey,
		endpoint: endpoint,
		metrics:  m,
	}

	o.breaker = gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:    "google-routes",
		Timeout: breakerTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= breakerFailures
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.Printf("circuit breaker state changed: name=%s from=%s to=%s", name, from, to)
			m.SetOptimizerState(int(to))
		},
	})

	return o, nil
}

func toWaypoint(c domain.Coordinates) waypoint {
	var w waypoint
	w.Location.LatLng = latLng{Latitude: c.Lat, Longitude: c.Lon}
	return w
}

func (o *RoutesOptimizer) Optimize(
	ctx context.Context,
	origin domain.Coordinates,
	destination domain.Coordinates,
	intermediates []domain.Coordinates,
) (_ *ports.OptimizedPath, err error) {
	defer obs.Time(ctx, "google.Optimize")(&err)

	res, err := o.breaker.Execute(func() (interface{}, error) {
		return o.computeRoutes(ctx, origin, destination, intermediates)
	})

	switch {
	case errors.Is(err, gobreaker.ErrOpenState), errors.Is(err, gobreaker.ErrTooManyRequests):
		o.metrics.RecordOptimizerCall("rejected")
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	case err != nil:
		o.metrics.RecordOptimizerCall("error")
		return nil, err
	}

	path, _ := res.(*ports.OptimizedPath)
	if path == nil {
		o.metrics.RecordOptimizerCall("empty")
		return nil, nil
	}
	o.metrics.RecordOptimizerCall("ok")
	return path, nil
}

func (o *RoutesOptimizer) computeRoutes(
	ctx context.Context,
	origin domain.Coordinates,
	destination domain.Coordinates,
	intermediates []domain.Coordinates,
) (*ports.OptimizedPath, error) {
	body := computeRoutesRequest{
		Origin:      toWaypoint(origin),
		Destination: toWaypoint(destination),
		TravelMode:  "DRIVE",
	}
	for _, c := range intermediates {
		body.Intermediates = append(body.Intermediates, toWaypoint(c))
	}
	body.OptimizeWaypointOrder = len(intermediates) > 1

	payload, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("marshal compute routes request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, o.endpoint, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Goog-Api-Key", o.apiKey)
	req.Header.Set("X-Goog-FieldMask", fieldMask)

	resp, err := o.session.Do(req)
	if err != nil {
		return nil, fmt.Errorf("execute request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, fmt.Errorf("compute routes: status %d: %s", resp.StatusCode, strings.TrimSpace(string(b)))
	}

	var decoded computeRoutesResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return nil, fmt.Errorf("decode compute routes response: %w", err)
	}
	if len(decoded.Routes) == 0 {
		return nil, nil
	}

	route := decoded.Routes[0]
	seconds, err := parseDuration(route.Duration)
	if err != nil {
		return nil, err
	}

	return &ports.OptimizedPath{
		OrderedIndices:  route.OptimizedIntermediateWaypointIndex,
		DistanceMeters:  route.DistanceMeters,
		DurationSeconds: seconds,
	}, nil
}

// parseDuration reads the protobuf JSON duration form, e.g. "1530s" or "12.5s".
func parseDuration(s string) (int, error) {
	if s == "" {
		return 0, nil
	}
	v, err := strconv.ParseFloat(strings.TrimSuffix(s, "s"), 64)
	if err != nil || !strings.HasSuffix(s, "s") {
		return 0, fmt.Errorf("parse duration %q: invalid format", s)
	}
	return int(v + 0.5), nil
}
