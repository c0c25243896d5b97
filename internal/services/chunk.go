package services

import "delivery-route-engine/internal/domain"

// ChunkStops splits stops into k contiguous chunks in input order.
//
// Ceiling division distributes stops as evenly as possible; trailing empty
// chunks are omitted. It is the fallback partition when coordinates are
// not available for clustering.
func ChunkStops(stops []domain.Stop, k int) [][]domain.Stop {
	if k <= 0 || len(stops) == 0 {
		return [][]domain.Stop{}
	}

	n := len(stops)
	chunkSize := (n + k - 1) / k

	out := make([][]domain.Stop, 0, k)
	for i := 0; i < k; i++ {
		start := i * chunkSize
		if start >= n {
			break
		}
		end := min(start+chunkSize, n)
		out = append(out, stops[start:end])
	}
	return out
}
