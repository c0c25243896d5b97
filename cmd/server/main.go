package main

import (
	"context"
	"database/sql"
	"delivery-route-engine/internal/adapters/cache"
	"delivery-route-engine/internal/adapters/depot"
	"delivery-route-engine/internal/adapters/google"
	"delivery-route-engine/internal/adapters/ors"
	"delivery-route-engine/internal/adapters/repositories"
	"delivery-route-engine/internal/api"
	"delivery-route-engine/internal/config"
	"delivery-route-engine/internal/domain"
	"delivery-route-engine/internal/platform/db"
	"delivery-route-engine/internal/platform/metrics"
	"delivery-route-engine/internal/ports"
	"delivery-route-engine/internal/services"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
)

type stopStore interface {
	ports.StopRepository
	repositories.SeedStore
}

// stores groups the persistence adapters for the configured driver.
type stores struct {
	routes        ports.RouteRepository
	stops         stopStore
	workLocations ports.WorkLocationSource
	geocodeCache  ports.GeocodeCache
}

// main is the application composition root.
// It wires concrete adapters (SQLite or Postgres, ORS, Google Routes, Redis)
// behind ports and starts the HTTP server.
func main() {
	config.LoadDotEnv()

	cfg, err := config.Load()
	if err != nil {
		log.Fatal(err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	conn, st, err := openStores(ctx, cfg)
	if err != nil {
		log.Fatal(err)
	}
	defer conn.Close()

	// Seed demo stops on startup for local runs.
	if cfg.SeedPath != "" {
		if err := repositories.SeedStopsFromJSON(ctx, st.stops, cfg.SeedPath); err != nil {
			log.Fatal(err)
		}
	}

	m := metrics.New(metrics.DefaultNamespace)

	if cfg.RedisAddr != "" {
		client := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		defer client.Close()
		if err := client.Ping(ctx).Err(); err != nil {
			log.Printf("redis unavailable, using database geocode cache: addr=%s err=%v", cfg.RedisAddr, err)
		} else {
			st.geocodeCache = cache.NewRedisGeocodeCache(client, cfg.GeocodeCacheTTL)
		}
	}

	var geocoder ports.Geocoder
	if cfg.ORSAPIKey != "" {
		orsGeocoder, err := ors.NewGeocoder(cfg.ORSAPIKey, "")
		if err != nil {
			log.Fatal(err)
		}
		geocoder, err = cache.NewCachingGeocoder(orsGeocoder, st.geocodeCache, m)
		if err != nil {
			log.Fatal(err)
		}
	} else {
		log.Println("ORS_API_KEY not set: stops without coordinates will not be geocoded")
	}

	// A nil optimizer leaves the heuristic estimators in charge.
	var optimizer ports.RouteOptimizer
	if cfg.GoogleRoutesAPIKey != "" {
		optimizer, err = google.NewRoutesOptimizer(cfg.GoogleRoutesAPIKey, "", m)
		if err != nil {
			log.Fatal(err)
		}
	} else {
		log.Println("GOOGLE_ROUTES_API_KEY not set: using heuristic route estimates")
	}

	depots := depot.NewProvider(st.workLocations, configuredDepot(cfg))
	assembler := services.NewAssembler(cfg.NavigationBaseURL)

	var batcher *services.GeocodeBatcher
	if geocoder != nil {
		batcher = services.NewGeocodeBatcher(geocoder, cfg.GeocodeBatchSize, cfg.GeocodeBatchDelay)
		batcher.Metrics = m
	}

	engine, err := services.NewRouteEngine(
		batcher,
		services.NewEstimatorChain(optimizer, cfg.OptimizerTimeout),
		depots,
		st.routes,
		st.stops,
		assembler,
	)
	if err != nil {
		log.Fatal(err)
	}
	engine.Metrics = m

	mutator, err := services.NewRouteMutator(st.routes, assembler)
	if err != nil {
		log.Fatal(err)
	}

	router := api.NewRouter(engine, mutator, m)

	// Timeouts are tuned for cold-cache route planning (external API latency).
	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      120 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Printf("server shutdown: err=%v", err)
		}
	}()

	log.Printf("Server listening addr=:%s driver=%s", cfg.Port, cfg.DBDriver)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Fatal(err)
	}
	log.Println("Server stopped")
}

func openStores(ctx context.Context, cfg config.Config) (*sql.DB, stores, error) {
	switch cfg.DBDriver {
	case db.DriverPostgres:
		conn, err := db.Open(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, stores{}, err
		}
		if err := repositories.InitPostgresSchema(ctx, conn); err != nil {
			conn.Close()
			return nil, stores{}, err
		}
		return conn, stores{
			routes:        repositories.NewSQLRouteRepository(conn),
			stops:         repositories.NewSQLStopRepository(conn),
			workLocations: repositories.NewSQLWorkLocationStore(conn),
			geocodeCache:  cache.NewSQLGeocodeCache(conn),
		}, nil

	case db.DriverSqlite:
		conn, err := db.OpenSqlite(ctx, cfg.DBPath)
		if err != nil {
			return nil, stores{}, err
		}
		if err := repositories.InitSchema(ctx, conn); err != nil {
			conn.Close()
			return nil, stores{}, err
		}
		return conn, stores{
			routes:        repositories.NewSqliteRouteRepository(conn),
			stops:         repositories.NewSqliteStopRepository(conn),
			workLocations: repositories.NewSqliteWorkLocationStore(conn),
			geocodeCache:  cache.NewSqliteGeocodeCache(conn),
		}, nil
	}

	return nil, stores{}, fmt.Errorf("open stores: unsupported driver %q", cfg.DBDriver)
}

func configuredDepot(cfg config.Config) *domain.Depot {
	if cfg.DepotLat == nil || cfg.DepotLon == nil {
		return nil
	}
	return &domain.Depot{
		Address: cfg.DepotAddress,
		Coords:  domain.Coordinates{Lat: *cfg.DepotLat, Lon: *cfg.DepotLon},
	}
}
