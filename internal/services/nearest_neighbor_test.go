package services

import (
	"delivery-route-engine/internal/domain"
	"math/rand"
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func stopIDs(stops []domain.Stop) []string {
	ids := make([]string, 0, len(stops))
	for _, s := range stops {
		ids = append(ids, s.ID)
	}
	return ids
}

func TestNearestNeighborOrder(t *testing.T) {
	stops := []domain.Stop{
		stopAt("A", 0, 0),
		stopAt("far", 0, 3),
		stopAt("near", 0, 1),
		stopAt("mid", 0, 2),
	}

	got := NearestNeighborOrder(stops)
	assert.Equal(t, []string{"A", "near", "mid", "far"}, stopIDs(got))
	assert.Equal(t, []string{"A", "far", "near", "mid"}, stopIDs(stops), "input order is preserved")
}

func TestNearestNeighborOrderTieBreaksOnInputOrder(t *testing.T) {
	stops := []domain.Stop{
		stopAt("start", 0, 0),
		stopAt("east", 0, 1),
		stopAt("west", 0, -1),
	}

	got := NearestNeighborOrder(stops)
	assert.Equal(t, []string{"start", "east", "west"}, stopIDs(got))
}

func TestNearestNeighborOrderSmallInputs(t *testing.T) {
	assert.Empty(t, NearestNeighborOrder(nil))

	one := []domain.Stop{stopAt("only", 1, 1)}
	assert.Equal(t, one, NearestNeighborOrder(one))
}

func TestNearestNeighborOrderIsPermutation(t *testing.T) {
	r := rand.New(rand.NewSource(3))

	for trial := 0; trial < 30; trial++ {
		stops := randomStops(r, 2+r.Intn(40))
		got := NearestNeighborOrder(stops)

		require.Len(t, got, len(stops))
		require.Equal(t, stops[0].ID, got[0].ID, "tour starts at the first stop")

		want := stopIDs(stops)
		have := stopIDs(got)
		sort.Strings(want)
		sort.Strings(have)
		require.Equal(t, want, have)
	}
}
