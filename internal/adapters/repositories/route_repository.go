package repositories

import (
	"context"
	"database/sql"
	"delivery-route-engine/internal/domain"
	"delivery-route-engine/internal/platform/obs"
	"errors"
	"fmt"
)

type routeStore struct {
	DB      *sql.DB
	dialect dialect
}

// SQLite-backed implementation of the RouteRepository and RouteBatchSaver ports.
type SqliteRouteRepository struct{ routeStore }

func NewSqliteRouteRepository(db *sql.DB) *SqliteRouteRepository {
	return &SqliteRouteRepository{routeStore{DB: db, dialect: sqliteDialect}}
}

// Postgres-backed implementation of the RouteRepository and RouteBatchSaver ports.
type SQLRouteRepository struct{ routeStore }

func NewSQLRouteRepository(db *sql.DB) *SQLRouteRepository {
	return &SQLRouteRepository{routeStore{DB: db, dialect: postgresDialect}}
}

const routeColumns = `
		id,
		day_of_week,
		delivery_date,
		status,
		driver_id,
		stop_count,
		total_distance_km,
		estimated_minutes,
		metrics_source,
		navigation_url,
		created_at,
		updated_at`

const routeStopColumns = `
		route_id,
		sequence,
		stop_id,
		kind,
		address,
		customer_name,
		service_type,
		notes,
		lat,
		lon`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRoute(row rowScanner) (*domain.Route, error) {
	var (
		r         domain.Route
		status    string
		driverID  sql.NullString
		distance  sql.NullFloat64
		minutes   sql.NullInt64
		createdAt dbTime
		updatedAt dbTime
	)
	err := row.Scan(
		&r.ID, &r.SchedulingKey.DayOfWeek, &r.SchedulingKey.Date, &status, &driverID,
		&r.StopCount, &distance, &minutes, &r.MetricsSource, &r.NavigationURL,
		&createdAt, &updatedAt,
	)
	if err != nil {
		return nil, err
	}

	r.Status, err = domain.ParseRouteStatus(status)
	if err != nil {
		return nil, err
	}
	if driverID.Valid {
		id := driverID.String
		r.DriverID = &id
	}
	if distance.Valid {
		d := distance.Float64
		r.TotalDistanceKm = &d
	}
	if minutes.Valid {
		m := int(minutes.Int64)
		r.EstimatedMinutes = &m
	}
	r.CreatedAt = createdAt.Time
	r.UpdatedAt = updatedAt.Time

	return &r, nil
}

func scanRouteStop(row rowScanner) (string, domain.RouteStop, error) {
	var (
		routeID  string
		rs       domain.RouteStop
		kind     string
		lat, lon sql.NullFloat64
	)
	err := row.Scan(
		&routeID, &rs.Sequence, &rs.ID, &kind, &rs.Address,
		&rs.CustomerName, &rs.ServiceType, &rs.Notes, &lat, &lon,
	)
	if err != nil {
		return "", rs, err
	}
	rs.Kind = domain.StopKind(kind)
	rs.Coords = coordsFrom(lat, lon)
	return routeID, rs, nil
}

func (s *routeStore) GetRoute(ctx context.Context, id string) (_ *domain.Route, err error) {
	defer obs.Time(ctx, s.dialect.name+".GetRoute")(&err)

	if s.DB == nil {
		return nil, fmt.Errorf("%s route repository: DB is nil", s.dialect.name)
	}

	query := s.dialect.rebind(`SELECT` + routeColumns + `
	FROM routes
	WHERE id = ?;
	`)
	route, err := scanRoute(s.DB.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("get route %s: %w", id, domain.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get route %s: scan row: %w", id, err)
	}

	stopsQuery := s.dialect.rebind(`SELECT` + routeStopColumns + `
	FROM route_stops
	WHERE route_id = ?
	ORDER BY sequence;
	`)
	byRoute, err := s.loadStops(ctx, stopsQuery, id)
	if err != nil {
		return nil, fmt.Errorf("get route %s: %w", id, err)
	}
	route.Stops = byRoute[id]

	return route, nil
}

// Return routes of exactly this scheduling unit, oldest first.
func (s *routeStore) ListRoutes(ctx context.Context, key domain.SchedulingKey) (_ []*domain.Route, err error) {
	defer obs.Time(ctx, s.dialect.name+".ListRoutes")(&err)

	if s.DB == nil {
		return nil, fmt.Errorf("%s route repository: DB is nil", s.dialect.name)
	}
	key = key.Normalize()

	query := s.dialect.rebind(`SELECT` + routeColumns + `
	FROM routes
	WHERE day_of_week = ? AND delivery_date = ?
	ORDER BY created_at, id;
	`)
	rows, err := s.DB.QueryContext(ctx, query, key.DayOfWeek, key.Date)
	if err != nil {
		return nil, fmt.Errorf("list routes: query routes table: %w", err)
	}
	defer rows.Close()

	routes := make([]*domain.Route, 0, 8)
	for rows.Next() {
		r, err := scanRoute(rows)
		if err != nil {
			return nil, fmt.Errorf("list routes: scan row: %w", err)
		}
		routes = append(routes, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list routes: row iteration: %w", err)
	}
	if len(routes) == 0 {
		return routes, nil
	}

	stopsQuery := s.dialect.rebind(`SELECT` + routeStopColumns + `
	FROM route_stops
	WHERE route_id IN (
		SELECT id FROM routes WHERE day_of_week = ? AND delivery_date = ?
	)
	ORDER BY route_id, sequence;
	`)
	byRoute, err := s.loadStops(ctx, stopsQuery, key.DayOfWeek, key.Date)
	if err != nil {
		return nil, fmt.Errorf("list routes: %w", err)
	}
	for _, r := range routes {
		r.Stops = byRoute[r.ID]
	}

	return routes, nil
}

func (s *routeStore) loadStops(ctx context.Context, query string, args ...any) (map[string][]domain.RouteStop, error) {
	rows, err := s.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query route_stops table: %w", err)
	}
	defer rows.Close()

	out := make(map[string][]domain.RouteStop)
	for rows.Next() {
		routeID, rs, err := scanRouteStop(rows)
		if err != nil {
			return nil, fmt.Errorf("scan route stop: %w", err)
		}
		out[routeID] = append(out[routeID], rs)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("route stop iteration: %w", err)
	}
	return out, nil
}

// SaveRoute inserts or fully replaces a route and its stop list.
func (s *routeStore) SaveRoute(ctx context.Context, route *domain.Route) error {
	return s.SaveRoutes(ctx, []*domain.Route{route})
}

// SaveRoutes writes every route in a single transaction.
func (s *routeStore) SaveRoutes(ctx context.Context, routes []*domain.Route) (err error) {
	defer obs.Time(ctx, s.dialect.name+".SaveRoutes")(&err)

	if s.DB == nil {
		return fmt.Errorf("%s route repository: DB is nil", s.dialect.name)
	}
	for _, r := range routes {
		if r == nil || r.ID == "" {
			return fmt.Errorf("save routes: route id is required: %w", domain.ErrInvalidInput)
		}
	}
	if len(routes) == 0 {
		return nil
	}

	tx, err := s.DB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("save routes: begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	for _, r := range routes {
		if err := s.saveTx(ctx, tx, r); err != nil {
			return fmt.Errorf("save routes: route %s: %w", r.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("save routes: commit tx: %w", err)
	}
	return nil
}

func (s *routeStore) saveTx(ctx context.Context, tx *sql.Tx, r *domain.Route) error {
	upsert := s.dialect.rebind(`
	INSERT INTO routes (` + routeColumns + `
	)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	ON CONFLICT (id) DO UPDATE SET
		day_of_week = EXCLUDED.day_of_week,
		delivery_date = EXCLUDED.delivery_date,
		status = EXCLUDED.status,
		driver_id = EXCLUDED.driver_id,
		stop_count = EXCLUDED.stop_count,
		total_distance_km = EXCLUDED.total_distance_km,
		estimated_minutes = EXCLUDED.estimated_minutes,
		metrics_source = EXCLUDED.metrics_source,
		navigation_url = EXCLUDED.navigation_url,
		updated_at = EXCLUDED.updated_at;
	`)

	var distance, minutes, driverID any
	if r.TotalDistanceKm != nil {
		distance = *r.TotalDistanceKm
	}
	if r.EstimatedMinutes != nil {
		minutes = *r.EstimatedMinutes
	}
	if r.DriverID != nil {
		driverID = *r.DriverID
	}

	if _, err := tx.ExecContext(ctx, upsert,
		r.ID, r.SchedulingKey.DayOfWeek, r.SchedulingKey.Date, string(r.Status), driverID,
		len(r.Stops), distance, minutes, r.MetricsSource, r.NavigationURL,
		s.dialect.timeArg(r.CreatedAt), s.dialect.timeArg(r.UpdatedAt),
	); err != nil {
		return fmt.Errorf("upsert route row: %w", err)
	}

	if _, err := tx.ExecContext(ctx, s.dialect.rebind(`DELETE FROM route_stops WHERE route_id = ?;`), r.ID); err != nil {
		return fmt.Errorf("clear route stops: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, s.dialect.rebind(`
	INSERT INTO route_stops (`+routeStopColumns+`
	)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?);
	`))
	if err != nil {
		return fmt.Errorf("prepare route stop insert: %w", err)
	}
	defer stmt.Close()

	for i, rs := range r.Stops {
		lat, lon := coordArgs(rs.Coords)
		// The stored sequence is the slice position, so reads are always contiguous.
		if _, err := stmt.ExecContext(ctx,
			r.ID, i+1, rs.ID, string(rs.Kind), rs.Address,
			rs.CustomerName, rs.ServiceType, rs.Notes, lat, lon,
		); err != nil {
			return fmt.Errorf("insert route stop %s: %w", rs.ID, err)
		}
	}
	return nil
}

// DeleteRoute removes a route and its stop list.
func (s *routeStore) DeleteRoute(ctx context.Context, id string) (err error) {
	defer obs.Time(ctx, s.dialect.name+".DeleteRoute")(&err)

	if s.DB == nil {
		return fmt.Errorf("%s route repository: DB is nil", s.dialect.name)
	}

	tx, err := s.DB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("delete route: begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, s.dialect.rebind(`DELETE FROM route_stops WHERE route_id = ?;`), id); err != nil {
		return fmt.Errorf("delete route %s: stops: %w", id, err)
	}

	res, err := tx.ExecContext(ctx, s.dialect.rebind(`DELETE FROM routes WHERE id = ?;`), id)
	if err != nil {
		return fmt.Errorf("delete route %s: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete route %s: rows affected: %w", id, err)
	}
	if n == 0 {
		return fmt.Errorf("delete route %s: %w", id, domain.ErrNotFound)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("delete route: commit tx: %w", err)
	}
	return nil
}
