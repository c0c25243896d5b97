package services

import (
	"delivery-route-engine/internal/domain"
	"fmt"
)

const maxClusterIterations = 20

// Cluster partitions coordinate-bearing stops into at most k geographic groups.
//
// It is k-means over latitude/longitude: centroids are averaged as planar
// values while membership uses the Haversine distance. Seeding picks every
// ⌊n/k⌋-th stop, so identical input always yields identical clusters.
// Iterations are capped regardless of convergence and empty clusters are
// dropped. Members keep their input order inside each cluster.
func Cluster(stops []domain.Stop, k int) ([][]domain.Stop, error) {
	if k <= 0 {
		return nil, fmt.Errorf("cluster: k must be positive, got %d: %w", k, domain.ErrInvalidInput)
	}

	for _, s := range stops {
		if !s.HasCoords() {
			return nil, fmt.Errorf("cluster: stop %q has no coordinates: %w", s.ID, domain.ErrInvalidInput)
		}
	}

	n := len(stops)
	if n == 0 {
		return [][]domain.Stop{}, nil
	}

	if k >= n {
		out := make([][]domain.Stop, 0, n)
		for _, s := range stops {
			out = append(out, []domain.Stop{s})
		}
		return out, nil
	}

	step := n / k
	centroids := make([]domain.Coordinates, k)
	for i := range centroids {
		centroids[i] = *stops[i*step].Coords
	}

	assignment := make([]int, n)
	for i := range assignment {
		assignment[i] = -1
	}

	for iter := 0; iter < maxClusterIterations; iter++ {
		next, changed := assign(stops, centroids, assignment)
		assignment = next
		if !changed {
			break
		}
		centroids = recomputeCentroids(stops, assignment, centroids)
	}

	groups := make([][]domain.Stop, k)
	for i, c := range assignment {
		groups[c] = append(groups[c], stops[i])
	}

	out := make([][]domain.Stop, 0, k)
	for _, g := range groups {
		if len(g) > 0 {
			out = append(out, g)
		}
	}
	return out, nil
}

// assign maps every stop to its nearest centroid and reports whether any membership changed.
func assign(stops []domain.Stop, centroids []domain.Coordinates, prev []int) ([]int, bool) {
	next := make([]int, len(stops))
	changed := false

	for i, s := range stops {
		best := 0
		bestDist := Distance(*s.Coords, centroids[0])
		for c := 1; c < len(centroids); c++ {
			// Strict comparison keeps ties on the lowest centroid index.
			if d := Distance(*s.Coords, centroids[c]); d < bestDist {
				best = c
				bestDist = d
			}
		}

		next[i] = best
		if prev[i] != best {
			changed = true
		}
	}

	return next, changed
}

// recomputeCentroids averages member coordinates; an empty cluster keeps its previous centroid.
func recomputeCentroids(stops []domain.Stop, assignment []int, prev []domain.Coordinates) []domain.Coordinates {
	sums := make([]domain.Coordinates, len(prev))
	counts := make([]int, len(prev))

	for i, c := range assignment {
		sums[c].Lat += stops[i].Coords.Lat
		sums[c].Lon += stops[i].Coords.Lon
		counts[c]++
	}

	next := make([]domain.Coordinates, len(prev))
	for c := range next {
		if counts[c] == 0 {
			next[c] = prev[c]
			continue
		}
		next[c] = domain.Coordinates{
			Lat: sums[c].Lat / float64(counts[c]),
			Lon: sums[c].Lon / float64(counts[c]),
		}
	}
	return next
}
