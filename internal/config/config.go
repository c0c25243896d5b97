package config

import (
	"delivery-route-engine/internal/platform/db"
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config is the process configuration, read from the environment
// (optionally seeded from a .env file).
type Config struct {
	Port string

	DBDriver    string
	DBPath      string
	DatabaseURL string
	SeedPath    string

	ORSAPIKey          string
	GoogleRoutesAPIKey string
	RedisAddr          string
	GeocodeCacheTTL    time.Duration

	GeocodeBatchSize  int
	GeocodeBatchDelay time.Duration
	OptimizerTimeout  time.Duration

	DepotAddress string
	DepotLat     *float64
	DepotLon     *float64

	NavigationBaseURL string
}

// LoadDotEnv reads .env from the working directory when present.
func LoadDotEnv() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found (using environment variables)")
	}
}

// Load reads and validates the configuration from the environment.
func Load() (Config, error) {
	var errs []string
	collect := func(err error) {
		if err != nil {
			errs = append(errs, err.Error())
		}
	}

	c := Config{
		Port:               Get("PORT", "8080"),
		DBDriver:           strings.ToLower(Get("DB_DRIVER", db.DriverSqlite)),
		DBPath:             Get("DB_PATH", "data/app.db"),
		DatabaseURL:        Get("DATABASE_URL", ""),
		SeedPath:           Get("SEED_PATH", ""),
		ORSAPIKey:          Get("ORS_API_KEY", ""),
		GoogleRoutesAPIKey: Get("GOOGLE_ROUTES_API_KEY", ""),
		RedisAddr:          Get("REDIS_ADDR", ""),
		DepotAddress:       Get("DEPOT_ADDRESS", ""),
		NavigationBaseURL:  Get("NAVIGATION_BASE_URL", "https://www.google.com/maps/dir/"),
	}

	var err error
	c.GeocodeBatchSize, err = GetInt("GEOCODE_BATCH_SIZE", 5)
	collect(err)
	c.GeocodeBatchDelay, err = GetDuration("GEOCODE_BATCH_DELAY", 200*time.Millisecond)
	collect(err)
	c.OptimizerTimeout, err = GetDuration("OPTIMIZER_TIMEOUT", 10*time.Second)
	collect(err)
	c.GeocodeCacheTTL, err = GetDuration("GEOCODE_CACHE_TTL", 30*24*time.Hour)
	collect(err)

	c.DepotLat, err = GetFloat("DEPOT_LAT")
	collect(err)
	c.DepotLon, err = GetFloat("DEPOT_LON")
	collect(err)

	switch c.DBDriver {
	case db.DriverSqlite:
	case db.DriverPostgres:
		if c.DatabaseURL == "" {
			errs = append(errs, "DATABASE_URL is required when DB_DRIVER=postgres")
		}
	default:
		errs = append(errs, fmt.Sprintf("DB_DRIVER must be %q or %q, got %q", db.DriverSqlite, db.DriverPostgres, c.DBDriver))
	}

	if c.GeocodeBatchSize <= 0 {
		errs = append(errs, "GEOCODE_BATCH_SIZE must be positive")
	}
	if (c.DepotLat == nil) != (c.DepotLon == nil) {
		errs = append(errs, "DEPOT_LAT and DEPOT_LON must be set together")
	}

	if len(errs) > 0 {
		return Config{}, fmt.Errorf("load config: %s", strings.Join(errs, "; "))
	}
	return c, nil
}

func Get(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}

func GetInt(key string, fallback int) (int, error) {
	v := Get(key, "")
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%s: %q is not an integer", key, v)
	}
	return n, nil
}

// GetDuration accepts Go duration strings ("250ms", "10s") or a bare number of milliseconds.
func GetDuration(key string, fallback time.Duration) (time.Duration, error) {
	v := Get(key, "")
	if v == "" {
		return fallback, nil
	}
	if ms, err := strconv.Atoi(v); err == nil {
		return time.Duration(ms) * time.Millisecond, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("%s: %q is not a duration", key, v)
	}
	return d, nil
}

// GetFloat returns nil when the variable is unset.
func GetFloat(key string) (*float64, error) {
	v := Get(key, "")
	if v == "" {
		return nil, nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return nil, fmt.Errorf("%s: %q is not a number", key, v)
	}
	return &f, nil
}
