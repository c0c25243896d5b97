package depot

import (
	"context"
	"delivery-route-engine/internal/domain"
	"delivery-route-engine/internal/ports"
	"log"
	"strings"
)

const (
	FallbackAddress = "1901 W Madison St, Phoenix, AZ 85009"
	FallbackLat     = 33.4812
	FallbackLon     = -112.0992
)

// Fallback is the built-in depot used when nothing else is configured.
var Fallback = domain.Depot{
	Address: FallbackAddress,
	Coords:  domain.Coordinates{Lat: FallbackLat, Lon: FallbackLon},
}

// Provider resolves the depot in order: the stored work location, the
// configured depot, then the built-in fallback. It never fails; lookup
// errors are logged and the next source is used.
type Provider struct {
	WorkLocations ports.WorkLocationSource
	Configured    *domain.Depot
}

func NewProvider(workLocations ports.WorkLocationSource, configured *domain.Depot) *Provider {
	if configured != nil && (strings.TrimSpace(configured.Address) == "" || !configured.Coords.Valid()) {
		log.Printf("configured depot ignored: address=%q lat=%v lon=%v",
			configured.Address, configured.Coords.Lat, configured.Coords.Lon)
		configured = nil
	}
	return &Provider{WorkLocations: workLocations, Configured: configured}
}

func (p *Provider) Depot(ctx context.Context) (domain.Depot, error) {
	if p.WorkLocations != nil {
		d, err := p.WorkLocations.WorkLocation(ctx)
		switch {
		case err != nil:
			log.Printf("work location lookup failed, using configured depot: err=%v", err)
		case d != nil && d.Coords.Valid():
			return *d, nil
		}
	}

	if p.Configured != nil {
		return *p.Configured, nil
	}
	return Fallback, nil
}
