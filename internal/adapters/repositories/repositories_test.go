package repositories

import (
	"context"
	"database/sql"
	"delivery-route-engine/internal/domain"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	_ "modernc.org/sqlite"
)

func openTestDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite", filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	require.NoError(t, InitSchema(context.Background(), db))
	return db
}

func coords(lat, lon float64) *domain.Coordinates {
	return &domain.Coordinates{Lat: lat, Lon: lon}
}

func testRoute(id string, key domain.SchedulingKey, created time.Time) *domain.Route {
	depot := domain.Depot{Address: "HUB", Coords: domain.Coordinates{Lat: 33.48, Lon: -112.09}}
	km := 12.3
	minutes := 42
	r := &domain.Route{
		ID:            id,
		SchedulingKey: key,
		Status:        domain.RouteStatusDraft,
		Stops: []domain.RouteStop{
			depot.StartStop(),
			{Stop: domain.Stop{ID: "s1", Address: "1 Main St", CustomerName: "Ann", Coords: coords(33.5, -112.0)}, Kind: domain.StopKindDelivery},
			{Stop: domain.Stop{ID: "s2", Address: "2 Elm St", Notes: "gate code 12"}, Kind: domain.StopKindDelivery},
			depot.EndStop(),
		},
		TotalDistanceKm:  &km,
		EstimatedMinutes: &minutes,
		MetricsSource:    "haversine",
		NavigationURL:    "https://maps.example.com/dir/HUB",
		CreatedAt:        created,
		UpdatedAt:        created,
	}
	r.Renumber()
	return r
}

func TestInitSchemaIsIdempotent(t *testing.T) {
	db := openTestDB(t)
	require.NoError(t, InitSchema(context.Background(), db))
}

func TestRouteRepositoryRoundTrip(t *testing.T) {
	repo := NewSqliteRouteRepository(openTestDB(t))
	ctx := context.Background()
	key := domain.SchedulingKey{DayOfWeek: "monday"}
	created := time.Date(2026, 1, 5, 8, 0, 0, 123, time.UTC)

	in := testRoute("r1", key, created)
	require.NoError(t, repo.SaveRoute(ctx, in))

	got, err := repo.GetRoute(ctx, "r1")
	require.NoError(t, err)
	assert.Equal(t, in.Stops, got.Stops)
	assert.Equal(t, 4, got.StopCount)
	assert.Equal(t, key, got.SchedulingKey)
	assert.Equal(t, domain.RouteStatusDraft, got.Status)
	assert.Nil(t, got.DriverID)
	require.NotNil(t, got.TotalDistanceKm)
	assert.Equal(t, 12.3, *got.TotalDistanceKm)
	assert.Equal(t, 42, *got.EstimatedMinutes)
	assert.True(t, created.Equal(got.CreatedAt))
	assert.Nil(t, got.Stops[2].Coords)
}

func TestRouteRepositoryReplacesStops(t *testing.T) {
	repo := NewSqliteRouteRepository(openTestDB(t))
	ctx := context.Background()
	r := testRoute("r1", domain.SchedulingKey{Date: "2026-01-05"}, time.Now())
	require.NoError(t, repo.SaveRoute(ctx, r))

	driver := "d1"
	r.Stops = append(r.Stops[:1], r.Stops[2:]...)
	r.Renumber()
	r.DriverID = &driver
	r.Status = domain.RouteStatusAssigned
	r.TotalDistanceKm = nil
	require.NoError(t, repo.SaveRoute(ctx, r))

	got, err := repo.GetRoute(ctx, "r1")
	require.NoError(t, err)
	require.Len(t, got.Stops, 3)
	assert.Equal(t, "s2", got.Stops[1].ID)
	assert.Equal(t, 2, got.Stops[1].Sequence)
	assert.Equal(t, domain.RouteStatusAssigned, got.Status)
	require.NotNil(t, got.DriverID)
	assert.Equal(t, "d1", *got.DriverID)
	assert.Nil(t, got.TotalDistanceKm)
}

func TestRouteRepositoryListAndDelete(t *testing.T) {
	repo := NewSqliteRouteRepository(openTestDB(t))
	ctx := context.Background()
	monday := domain.SchedulingKey{DayOfWeek: "monday"}
	base := time.Date(2026, 1, 5, 8, 0, 0, 0, time.UTC)

	require.NoError(t, repo.SaveRoutes(ctx, []*domain.Route{
		testRoute("b", monday, base.Add(time.Second)),
		testRoute("a", monday, base.Add(500*time.Millisecond)),
		testRoute("c", domain.SchedulingKey{DayOfWeek: "tuesday"}, base),
	}))

	list, err := repo.ListRoutes(ctx, domain.SchedulingKey{DayOfWeek: "Monday"})
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "a", list[0].ID)
	assert.Equal(t, "b", list[1].ID)
	assert.Len(t, list[1].Stops, 4)

	require.NoError(t, repo.DeleteRoute(ctx, "a"))
	_, err = repo.GetRoute(ctx, "a")
	assert.ErrorIs(t, err, domain.ErrNotFound)
	assert.ErrorIs(t, repo.DeleteRoute(ctx, "a"), domain.ErrNotFound)

	empty, err := repo.ListRoutes(ctx, domain.SchedulingKey{Date: "2030-01-01"})
	require.NoError(t, err)
	assert.Empty(t, empty)
}

func TestSaveRoutesIsAtomic(t *testing.T) {
	repo := NewSqliteRouteRepository(openTestDB(t))
	ctx := context.Background()

	err := repo.SaveRoutes(ctx, []*domain.Route{
		testRoute("ok", domain.SchedulingKey{DayOfWeek: "monday"}, time.Now()),
		{ID: "bad", Status: domain.RouteStatus("bogus"), Stops: []domain.RouteStop{
			{Stop: domain.Stop{ID: "x"}, Kind: domain.StopKindDelivery},
			{Stop: domain.Stop{ID: "y"}, Kind: domain.StopKindDelivery},
		}},
		nil,
	})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	_, err = repo.GetRoute(ctx, "ok")
	assert.ErrorIs(t, err, domain.ErrNotFound, "nothing is written when validation fails")
}

func TestStopRepository(t *testing.T) {
	repo := NewSqliteStopRepository(openTestDB(t))
	ctx := context.Background()
	monday := domain.SchedulingKey{DayOfWeek: "monday", Date: "2026-01-05"}

	require.NoError(t, repo.UpsertStops(ctx, []ScheduledStop{
		{Stop: domain.Stop{ID: "s2", Address: "2 Elm St"}, Key: monday, Confirmed: true},
		{Stop: domain.Stop{ID: "s1", Address: "1 Main St", Coords: coords(33.5, -112)}, Key: monday, Confirmed: true},
		{Stop: domain.Stop{ID: "s3", Address: "3 Oak St"}, Key: monday, Confirmed: false},
		{Stop: domain.Stop{ID: "s4", Address: "4 Pine St"}, Key: domain.SchedulingKey{DayOfWeek: "tuesday"}, Confirmed: true},
	}))

	stops, err := repo.ListConfirmedStops(ctx, domain.SchedulingKey{DayOfWeek: "Monday"})
	require.NoError(t, err)
	require.Len(t, stops, 2)
	assert.Equal(t, "s1", stops[0].ID)
	assert.True(t, stops[0].HasCoords())
	assert.Nil(t, stops[1].Coords)

	byDate, err := repo.ListConfirmedStops(ctx, domain.SchedulingKey{Date: "2026-01-05"})
	require.NoError(t, err)
	assert.Len(t, byDate, 2)

	require.NoError(t, repo.UpdateCoordinates(ctx, map[string]domain.Coordinates{
		"s2":      {Lat: 33.4, Lon: -111.9},
		"missing": {Lat: 1, Lon: 1},
	}))
	stops, err = repo.ListConfirmedStops(ctx, domain.SchedulingKey{DayOfWeek: "monday"})
	require.NoError(t, err)
	require.NotNil(t, stops[1].Coords)
	assert.Equal(t, 33.4, stops[1].Coords.Lat)
}

func TestSeedStopsFromJSON(t *testing.T) {
	repo := NewSqliteStopRepository(openTestDB(t))
	ctx := context.Background()

	path := filepath.Join(t.TempDir(), "stops.json")
	require.NoError(t, os.WriteFile(path, []byte(`[
		{"id": "a", "address": "1 Main St", "day_of_week": "Monday", "lat": 33.5, "lon": -112.0},
		{"id": "b", "address": "2 Elm St", "day_of_week": "monday", "confirmed": false},
		{"id": "c", "address": "3 Oak St", "day_of_week": "monday"}
	]`), 0o600))

	require.NoError(t, SeedStopsFromJSON(ctx, repo, path))

	stops, err := repo.ListConfirmedStops(ctx, domain.SchedulingKey{DayOfWeek: "monday"})
	require.NoError(t, err)
	require.Len(t, stops, 2)
	assert.Equal(t, []string{"a", "c"}, []string{stops[0].ID, stops[1].ID})
	assert.True(t, stops[0].HasCoords())
}

func TestSeedStopsFromJSONRejectsBadRows(t *testing.T) {
	repo := NewSqliteStopRepository(openTestDB(t))

	tests := map[string]string{
		"missing id":   `[{"address": "x", "day_of_week": "monday"}]`,
		"bad day":      `[{"id": "a", "address": "x", "day_of_week": "someday"}]`,
		"half coords":  `[{"id": "a", "address": "x", "day_of_week": "monday", "lat": 1}]`,
		"out of range": `[{"id": "a", "address": "x", "day_of_week": "monday", "lat": 91, "lon": 0}]`,
	}
	for name, body := range tests {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "stops.json")
			require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
			assert.Error(t, SeedStopsFromJSON(context.Background(), repo, path))
		})
	}
}

func TestWorkLocationStore(t *testing.T) {
	store := NewSqliteWorkLocationStore(openTestDB(t))
	ctx := context.Background()

	got, err := store.WorkLocation(ctx)
	require.NoError(t, err)
	assert.Nil(t, got)

	want := domain.Depot{Address: "500 Warehouse Rd", Coords: domain.Coordinates{Lat: 33.4, Lon: -112.1}}
	require.NoError(t, store.SetWorkLocation(ctx, want))
	require.NoError(t, store.SetWorkLocation(ctx, want))

	got, err = store.WorkLocation(ctx)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, want, *got)

	assert.ErrorIs(t, store.SetWorkLocation(ctx, domain.Depot{}), domain.ErrInvalidInput)
}

func TestPostgresRebind(t *testing.T) {
	assert.Equal(t, "SELECT $1, $2 WHERE a = $3", postgresDialect.rebind("SELECT ?, ? WHERE a = ?"))
	assert.Equal(t, "SELECT ?", sqliteDialect.rebind("SELECT ?"))
}

func TestDBTimeScan(t *testing.T) {
	want := time.Date(2026, 1, 5, 8, 0, 0, 0, time.UTC)
	for _, src := range []any{
		want,
		"2026-01-05T08:00:00.000000000Z",
		[]byte("2026-01-05T08:00:00Z"),
		"2026-01-05 08:00:00",
	} {
		var got dbTime
		require.NoError(t, got.Scan(src), "%v", src)
		assert.True(t, want.Equal(got.Time), "%v", src)
	}

	var bad dbTime
	assert.Error(t, bad.Scan(42))
}
