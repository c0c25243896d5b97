package services

import (
	"delivery-route-engine/internal/domain"
	"math"
)

// NearestNeighborOrder orders stops using a greedy nearest-neighbor heuristic.
//
// The tour starts at the first stop as received and repeatedly visits the
// closest unvisited stop. It does not attempt global optimization (TSP);
// the design prioritizes determinism and simplicity over optimality.
// Every stop must carry coordinates.
func NearestNeighborOrder(stops []domain.Stop) []domain.Stop {
	if len(stops) <= 1 {
		return stops
	}

	remaining := make([]domain.Stop, len(stops)-1)
	copy(remaining, stops[1:])

	ordered := make([]domain.Stop, 0, len(stops))
	ordered = append(ordered, stops[0])
	current := *stops[0].Coords

	for len(remaining) > 0 {
		best := -1
		minDistance := math.Inf(1)

		// Select next stop by minimum distance (greedy step).
		// Strict comparison breaks ties towards the earliest remaining stop.
		for i, s := range remaining {
			if d := Distance(current, *s.Coords); d < minDistance {
				minDistance = d
				best = i
			}
		}

		next := remaining[best]
		ordered = append(ordered, next)
		remaining = append(remaining[:best], remaining[best+1:]...)
		current = *next.Coords
	}

	return ordered
}
