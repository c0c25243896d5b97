package services

import (
	"delivery-route-engine/internal/domain"
	"fmt"
	"math/rand"
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func stopAt(id string, lat, lon float64) domain.Stop {
	return domain.Stop{ID: id, Address: "addr " + id, Coords: &domain.Coordinates{Lat: lat, Lon: lon}}
}

func clusterIDs(clusters [][]domain.Stop) [][]string {
	out := make([][]string, 0, len(clusters))
	for _, c := range clusters {
		ids := make([]string, 0, len(c))
		for _, s := range c {
			ids = append(ids, s.ID)
		}
		out = append(out, ids)
	}
	return out
}

func randomStops(r *rand.Rand, n int) []domain.Stop {
	stops := make([]domain.Stop, 0, n)
	for i := 0; i < n; i++ {
		stops = append(stops, stopAt(fmt.Sprintf("s%d", i), 33+r.Float64(), -112+r.Float64()))
	}
	return stops
}

func TestClusterInvalidK(t *testing.T) {
	_, err := Cluster([]domain.Stop{stopAt("a", 0, 0)}, 0)
	require.ErrorIs(t, err, domain.ErrInvalidInput)

	_, err = Cluster([]domain.Stop{stopAt("a", 0, 0)}, -3)
	require.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestClusterRejectsStopsWithoutCoordinates(t *testing.T) {
	_, err := Cluster([]domain.Stop{stopAt("a", 0, 0), {ID: "b", Address: "B"}}, 1)
	require.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestClusterKAtLeastN(t *testing.T) {
	stops := []domain.Stop{stopAt("a", 0, 0), stopAt("b", 1, 1), stopAt("c", 2, 2)}

	clusters, err := Cluster(stops, 5)
	require.NoError(t, err)
	assert.Equal(t, [][]string{{"a"}, {"b"}, {"c"}}, clusterIDs(clusters))
}

func TestClusterSeparatesTwoGroups(t *testing.T) {
	// Three stops around Phoenix and three around Tucson, interleaved.
	stops := []domain.Stop{
		stopAt("p1", 33.45, -112.07),
		stopAt("t1", 32.22, -110.97),
		stopAt("p2", 33.50, -112.10),
		stopAt("t2", 32.25, -110.90),
		stopAt("p3", 33.42, -112.00),
		stopAt("t3", 32.20, -111.00),
	}

	clusters, err := Cluster(stops, 2)
	require.NoError(t, err)

	got := clusterIDs(clusters)
	for _, ids := range got {
		sort.Strings(ids)
	}
	sort.Slice(got, func(i, j int) bool { return got[i][0] < got[j][0] })
	assert.Equal(t, [][]string{{"p1", "p2", "p3"}, {"t1", "t2", "t3"}}, got)
}

func TestClusterDegenerateInput(t *testing.T) {
	stops := []domain.Stop{stopAt("a", 5, 5), stopAt("b", 5, 5), stopAt("c", 5, 5), stopAt("d", 5, 5)}

	clusters, err := Cluster(stops, 2)
	require.NoError(t, err)
	assert.Equal(t, [][]string{{"a", "b", "c", "d"}}, clusterIDs(clusters))
}

func TestClusterPartitionProperty(t *testing.T) {
	r := rand.New(rand.NewSource(42))

	for trial := 0; trial < 50; trial++ {
		n := 1 + r.Intn(60)
		k := 1 + r.Intn(10)
		stops := randomStops(r, n)

		clusters, err := Cluster(stops, k)
		require.NoError(t, err)
		require.LessOrEqual(t, len(clusters), k)

		seen := map[string]int{}
		for _, c := range clusters {
			require.NotEmpty(t, c, "empty clusters are dropped")
			for _, s := range c {
				seen[s.ID]++
			}
		}
		require.Len(t, seen, n, "union equals input (n=%d k=%d)", n, k)
		for id, count := range seen {
			require.Equal(t, 1, count, "stop %s appears in more than one cluster", id)
		}
	}
}

func TestClusterDeterministic(t *testing.T) {
	r := rand.New(rand.NewSource(7))
	stops := randomStops(r, 40)

	first, err := Cluster(stops, 4)
	require.NoError(t, err)
	second, err := Cluster(stops, 4)
	require.NoError(t, err)

	assert.Equal(t, clusterIDs(first), clusterIDs(second))
}

func TestClusterEmpty(t *testing.T) {
	clusters, err := Cluster(nil, 3)
	require.NoError(t, err)
	assert.Empty(t, clusters)
}
