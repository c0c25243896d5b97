package repositories

import (
	"context"
	"database/sql"
	"delivery-route-engine/internal/domain"
	"delivery-route-engine/internal/platform/obs"
	"errors"
	"fmt"
)

// ScheduledStop is a stop row together with its scheduling unit.
type ScheduledStop struct {
	Stop      domain.Stop
	Key       domain.SchedulingKey
	Confirmed bool
}

type stopStore struct {
	DB      *sql.DB
	dialect dialect
}

// SQLite-backed implementation of the StopRepository port.
type SqliteStopRepository struct{ stopStore }

func NewSqliteStopRepository(db *sql.DB) *SqliteStopRepository {
	return &SqliteStopRepository{stopStore{DB: db, dialect: sqliteDialect}}
}

// Postgres-backed implementation of the StopRepository port.
type SQLStopRepository struct{ stopStore }

func NewSQLStopRepository(db *sql.DB) *SQLStopRepository {
	return &SQLStopRepository{stopStore{DB: db, dialect: postgresDialect}}
}

// Return confirmed stops matching every non-empty field of the key, ordered by id.
func (s *stopStore) ListConfirmedStops(ctx context.Context, key domain.SchedulingKey) (_ []domain.Stop, err error) {
	defer obs.Time(ctx, s.dialect.name+".ListConfirmedStops")(&err)

	if s.DB == nil {
		return nil, fmt.Errorf("%s stop repository: DB is nil", s.dialect.name)
	}
	key = key.Normalize()

	query := s.dialect.rebind(`
	SELECT
		id,
		address,
		customer_name,
		service_type,
		notes,
		lat,
		lon
	FROM stops
	WHERE confirmed
		AND (CAST(? AS TEXT) = '' OR day_of_week = ?)
		AND (CAST(? AS TEXT) = '' OR delivery_date = ?)
	ORDER BY id;
	`)
	rows, err := s.DB.QueryContext(ctx, query, key.DayOfWeek, key.DayOfWeek, key.Date, key.Date)
	if err != nil {
		return nil, fmt.Errorf("list confirmed stops: query stops table: %w", err)
	}
	defer rows.Close()

	stops := make([]domain.Stop, 0, 64)
	for rows.Next() {
		var st domain.Stop
		var lat, lon sql.NullFloat64
		if err := rows.Scan(&st.ID, &st.Address, &st.CustomerName, &st.ServiceType, &st.Notes, &lat, &lon); err != nil {
			return nil, fmt.Errorf("list confirmed stops: scan row: %w", err)
		}
		st.Coords = coordsFrom(lat, lon)
		stops = append(stops, st)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list confirmed stops: row iteration: %w", err)
	}

	return stops, nil
}

// Persist geocoded coordinates by stop id. Unknown ids are ignored.
func (s *stopStore) UpdateCoordinates(ctx context.Context, coords map[string]domain.Coordinates) (err error) {
	defer obs.Time(ctx, s.dialect.name+".UpdateCoordinates")(&err)

	if s.DB == nil {
		return fmt.Errorf("%s stop repository: DB is nil", s.dialect.name)
	}
	if len(coords) == 0 {
		return nil
	}

	tx, err := s.DB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("update coordinates: begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PrepareContext(ctx, s.dialect.rebind(`
	UPDATE stops SET lat = ?, lon = ? WHERE id = ?;
	`))
	if err != nil {
		return fmt.Errorf("update coordinates: prepare: %w", err)
	}
	defer stmt.Close()

	for id, c := range coords {
		if !c.Valid() {
			return fmt.Errorf("update coordinates: stop %s: %w", id, domain.ErrInvalidInput)
		}
		if _, err := stmt.ExecContext(ctx, c.Lat, c.Lon, id); err != nil {
			return fmt.Errorf("update coordinates: stop %s: %w", id, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("update coordinates: commit tx: %w", err)
	}
	return nil
}

// Insert or replace stop rows in one transaction.
func (s *stopStore) UpsertStops(ctx context.Context, stops []ScheduledStop) (err error) {
	defer obs.Time(ctx, s.dialect.name+".UpsertStops")(&err)

	if s.DB == nil {
		return errors.New("upsert stops: DB is nil")
	}
	if len(stops) == 0 {
		return nil
	}

	tx, err := s.DB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("upsert stops: begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PrepareContext(ctx, s.dialect.rebind(`
	INSERT INTO stops (
		id,
		address,
		customer_name,
		service_type,
		notes,
		lat,
		lon,
		day_of_week,
		delivery_date,
		confirmed
	)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	ON CONFLICT (id) DO UPDATE SET
		address = EXCLUDED.address,
		customer_name = EXCLUDED.customer_name,
		service_type = EXCLUDED.service_type,
		notes = EXCLUDED.notes,
		lat = EXCLUDED.lat,
		lon = EXCLUDED.lon,
		day_of_week = EXCLUDED.day_of_week,
		delivery_date = EXCLUDED.delivery_date,
		confirmed = EXCLUDED.confirmed;
	`))
	if err != nil {
		return fmt.Errorf("upsert stops: prepare insert: %w", err)
	}
	defer stmt.Close()

	for _, row := range stops {
		st := row.Stop
		lat, lon := coordArgs(st.Coords)
		if _, err := stmt.ExecContext(ctx,
			st.ID, st.Address, st.CustomerName, st.ServiceType, st.Notes,
			lat, lon, row.Key.DayOfWeek, row.Key.Date, row.Confirmed,
		); err != nil {
			return fmt.Errorf("upsert stops: insert id=%s: %w", st.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("upsert stops: commit tx: %w", err)
	}
	return nil
}
