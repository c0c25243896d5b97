package domain

// Depot is the warehouse location bounding every generated route.
type Depot struct {
	Address string
	Coords  Coordinates
}

func (d Depot) stop(id string) Stop {
	c := d.Coords
	return Stop{
		ID:           id,
		Address:      d.Address,
		CustomerName: "Depot",
		Coords:       &c,
	}
}

// StartStop returns the synthetic depot-start RouteStop.
func (d Depot) StartStop() RouteStop {
	return RouteStop{Stop: d.stop(DepotStartID), Kind: StopKindDepotStart}
}

// EndStop returns the synthetic depot-end RouteStop.
func (d Depot) EndStop() RouteStop {
	return RouteStop{Stop: d.stop(DepotEndID), Kind: StopKindDepotEnd}
}
