package repositories

import (
	"database/sql"
	"delivery-route-engine/internal/domain"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// dialect captures the few differences between the SQLite and Postgres stores.
// Queries are written with '?' placeholders and rebound per dialect.
type dialect struct {
	name     string
	numbered bool
	timeArg  func(time.Time) any
}

// Fixed-width UTC text so SQLite orders timestamps correctly as strings.
const sqliteTimeLayout = "2006-01-02T15:04:05.000000000Z"

var (
	sqliteDialect = dialect{
		name: "sqlite",
		timeArg: func(t time.Time) any {
			return t.UTC().Format(sqliteTimeLayout)
		},
	}
	postgresDialect = dialect{
		name:     "postgres",
		numbered: true,
		timeArg: func(t time.Time) any {
			return t.UTC()
		},
	}
)

func (d dialect) rebind(q string) string {
	if !d.numbered {
		return q
	}

	var b strings.Builder
	b.Grow(len(q) + 16)
	n := 0
	for _, r := range q {
		if r == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

var timeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02 15:04:05.999999999-07:00",
	"2006-01-02 15:04:05",
}

// dbTime scans timestamps stored either natively or as text.
type dbTime struct{ time.Time }

func (t *dbTime) Scan(src any) error {
	switch v := src.(type) {
	case nil:
		t.Time = time.Time{}
		return nil
	case time.Time:
		t.Time = v.UTC()
		return nil
	case string:
		return t.parse(v)
	case []byte:
		return t.parse(string(v))
	}
	return fmt.Errorf("scan time: unsupported type %T", src)
}

func (t *dbTime) parse(s string) error {
	for _, layout := range timeLayouts {
		if parsed, err := time.Parse(layout, s); err == nil {
			t.Time = parsed.UTC()
			return nil
		}
	}
	return fmt.Errorf("scan time: unrecognized format %q", s)
}

// coordsFrom maps a nullable lat/lon column pair onto optional coordinates.
func coordsFrom(lat, lon sql.NullFloat64) *domain.Coordinates {
	if !lat.Valid || !lon.Valid {
		return nil
	}
	return &domain.Coordinates{Lat: lat.Float64, Lon: lon.Float64}
}

// coordArgs is the inverse of coordsFrom: both columns are NULL when c is nil.
func coordArgs(c *domain.Coordinates) (lat, lon any) {
	if c == nil {
		return nil, nil
	}
	return c.Lat, c.Lon
}
