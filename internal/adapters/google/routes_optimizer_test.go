package google

import (
	"context"
	"delivery-route-engine/internal/domain"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestOptimizer(t *testing.T, h http.HandlerFunc) *RoutesOptimizer {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)

	o, err := NewRoutesOptimizer("test-key", srv.URL, nil)
	require.NoError(t, err)
	return o
}

var (
	origin = domain.Coordinates{Lat: 33.48, Lon: -112.09}
	dest   = domain.Coordinates{Lat: 33.50, Lon: -112.00}
	mids   = []domain.Coordinates{{Lat: 33.41, Lon: -111.83}, {Lat: 33.30, Lon: -111.84}}
)

func TestOptimize(t *testing.T) {
	o := newTestOptimizer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "test-key", r.Header.Get("X-Goog-Api-Key"))
		assert.Equal(t, fieldMask, r.Header.Get("X-Goog-FieldMask"))

		var body computeRoutesRequest
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "DRIVE", body.TravelMode)
		assert.True(t, body.OptimizeWaypointOrder)
		assert.Equal(t, 33.48, body.Origin.Location.LatLng.Latitude)
		assert.Len(t, body.Intermediates, 2)

		_, _ = w.Write([]byte(`{"routes":[{"distanceMeters":48211,"duration":"3125s","optimizedIntermediateWaypointIndex":[1,0]}]}`))
	})

	res, err := o.Optimize(context.Background(), origin, dest, mids)
	require.NoError(t, err)
	require.NotNil(t, res)
	assert.Equal(t, []int{1, 0}, res.OrderedIndices)
	assert.Equal(t, 48211, res.DistanceMeters)
	assert.Equal(t, 3125, res.DurationSeconds)
}

func TestOptimizeNoRoutes(t *testing.T) {
	o := newTestOptimizer(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{}`))
	})

	res, err := o.Optimize(context.Background(), origin, dest, nil)
	require.NoError(t, err)
	assert.Nil(t, res)
}

func TestOptimizeErrorStatus(t *testing.T) {
	o := newTestOptimizer(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":{"code":400}}`, http.StatusBadRequest)
	})

	_, err := o.Optimize(context.Background(), origin, dest, mids)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "400")
}

func TestOptimizeBreakerOpens(t *testing.T) {
	var calls atomic.Int32
	o := newTestOptimizer(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
	})

	for i := 0; i < breakerFailures; i++ {
		_, err := o.Optimize(context.Background(), origin, dest, mids)
		require.Error(t, err)
		assert.NotErrorIs(t, err, ErrUnavailable)
	}

	_, err := o.Optimize(context.Background(), origin, dest, mids)
	assert.ErrorIs(t, err, ErrUnavailable)
	assert.Equal(t, int32(breakerFailures), calls.Load(), "open breaker must not reach the API")
}

func TestParseDuration(t *testing.T) {
	tests := []struct {
		in      string
		want    int
		wantErr bool
	}{
		{"1530s", 1530, false},
		{"12.6s", 13, false},
		{"", 0, false},
		{"90", 0, true},
		{"abc", 0, true},
	}
	for _, tt := range tests {
		got, err := parseDuration(tt.in)
		if tt.wantErr {
			assert.Error(t, err, tt.in)
			continue
		}
		require.NoError(t, err, tt.in)
		assert.Equal(t, tt.want, got, tt.in)
	}
}

func TestNewRoutesOptimizerRequiresKey(t *testing.T) {
	_, err := NewRoutesOptimizer("", "", nil)
	require.Error(t, err)
}
