package depot

import (
	"context"
	"delivery-route-engine/internal/domain"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubWorkLocation struct {
	depot *domain.Depot
	err   error
}

func (s stubWorkLocation) WorkLocation(context.Context) (*domain.Depot, error) {
	return s.depot, s.err
}

func TestProviderOrder(t *testing.T) {
	work := &domain.Depot{Address: "500 Warehouse Rd", Coords: domain.Coordinates{Lat: 33.4, Lon: -112.1}}
	configured := &domain.Depot{Address: "1 Config Way", Coords: domain.Coordinates{Lat: 33.0, Lon: -111.0}}

	tests := []struct {
		name       string
		work       *stubWorkLocation
		configured *domain.Depot
		want       domain.Depot
	}{
		{"work location wins", &stubWorkLocation{depot: work}, configured, *work},
		{"no work location row", &stubWorkLocation{}, configured, *configured},
		{"work location error", &stubWorkLocation{err: errors.New("db down")}, configured, *configured},
		{"nothing configured", nil, nil, Fallback},
		{"invalid configured depot", nil, &domain.Depot{Address: "x", Coords: domain.Coordinates{Lat: 200}}, Fallback},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var src *Provider
			if tt.work != nil {
				src = NewProvider(tt.work, tt.configured)
			} else {
				src = NewProvider(nil, tt.configured)
			}

			got, err := src.Depot(context.Background())
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
