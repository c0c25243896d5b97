package main

import (
	"context"
	"database/sql"
	"delivery-route-engine/internal/adapters/repositories"
	"delivery-route-engine/internal/config"
	"delivery-route-engine/internal/domain"
	"delivery-route-engine/internal/platform/db"
	"log"
)

// dbtool prepares a database: schema, seed stops and the optional
// configured work location.
func main() {
	config.LoadDotEnv()

	cfg, err := config.Load()
	if err != nil {
		log.Fatal(err)
	}

	ctx := context.Background()

	var (
		conn      *sql.DB
		stops     repositories.SeedStore
		locations *repositories.WorkLocationStore
	)

	log.Printf("Initializing database schema... driver=%s", cfg.DBDriver)
	switch cfg.DBDriver {
	case db.DriverPostgres:
		conn, err = db.Open(ctx, cfg.DatabaseURL)
		if err != nil {
			log.Fatal(err)
		}
		err = repositories.InitPostgresSchema(ctx, conn)
		stops = repositories.NewSQLStopRepository(conn)
		locations = repositories.NewSQLWorkLocationStore(conn)
	default:
		conn, err = db.OpenSqlite(ctx, cfg.DBPath)
		if err != nil {
			log.Fatal(err)
		}
		err = repositories.InitSchema(ctx, conn)
		stops = repositories.NewSqliteStopRepository(conn)
		locations = repositories.NewSqliteWorkLocationStore(conn)
	}
	defer conn.Close()
	if err != nil {
		log.Fatalf("schema initialization failed: %v", err)
	}
	log.Println("Schema ready.")

	seedPath := cfg.SeedPath
	if seedPath == "" {
		seedPath = "data/seeds/stops.json"
	}
	log.Println("Seeding database...")
	if err := repositories.SeedStopsFromJSON(ctx, stops, seedPath); err != nil {
		log.Fatalf("seeding failed: %v", err)
	}
	log.Println("Seeding complete.")

	if cfg.DepotLat != nil && cfg.DepotLon != nil {
		depot := domain.Depot{
			Address: cfg.DepotAddress,
			Coords:  domain.Coordinates{Lat: *cfg.DepotLat, Lon: *cfg.DepotLon},
		}
		if err := locations.SetWorkLocation(ctx, depot); err != nil {
			log.Fatalf("work location update failed: %v", err)
		}
		log.Printf("Work location set: address=%q", depot.Address)
	}
}
