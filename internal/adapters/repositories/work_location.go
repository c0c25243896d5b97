package repositories

import (
	"context"
	"database/sql"
	"delivery-route-engine/internal/domain"
	"delivery-route-engine/internal/platform/obs"
	"errors"
	"fmt"
	"strings"
)

// WorkLocationStore reads and writes the single configured work location row.
type WorkLocationStore struct {
	DB      *sql.DB
	dialect dialect
}

func NewSqliteWorkLocationStore(db *sql.DB) *WorkLocationStore {
	return &WorkLocationStore{DB: db, dialect: sqliteDialect}
}

func NewSQLWorkLocationStore(db *sql.DB) *WorkLocationStore {
	return &WorkLocationStore{DB: db, dialect: postgresDialect}
}

// WorkLocation returns nil when no work location has been configured.
func (s *WorkLocationStore) WorkLocation(ctx context.Context) (_ *domain.Depot, err error) {
	defer obs.Time(ctx, s.dialect.name+".WorkLocation")(&err)

	if s.DB == nil {
		return nil, errors.New("work location: DB is nil")
	}

	var d domain.Depot
	err = s.DB.QueryRowContext(ctx, `SELECT address, lat, lon FROM work_location WHERE id = 1;`).
		Scan(&d.Address, &d.Coords.Lat, &d.Coords.Lon)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("work location: scan row: %w", err)
	}
	return &d, nil
}

func (s *WorkLocationStore) SetWorkLocation(ctx context.Context, d domain.Depot) error {
	if s.DB == nil {
		return errors.New("set work location: DB is nil")
	}
	if strings.TrimSpace(d.Address) == "" || !d.Coords.Valid() {
		return fmt.Errorf("set work location: address and valid coordinates are required: %w", domain.ErrInvalidInput)
	}

	_, err := s.DB.ExecContext(ctx, s.dialect.rebind(`
	INSERT INTO work_location (id, address, lat, lon)
	VALUES (1, ?, ?, ?)
	ON CONFLICT (id) DO UPDATE SET
		address = EXCLUDED.address,
		lat = EXCLUDED.lat,
		lon = EXCLUDED.lon;
	`), d.Address, d.Coords.Lat, d.Coords.Lon)
	if err != nil {
		return fmt.Errorf("set work location: %w", err)
	}
	return nil
}
