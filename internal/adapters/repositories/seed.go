package repositories

import (
	"context"
	"delivery-route-engine/internal/domain"
	"encoding/json"
	"fmt"
	"os"
	"strings"
)

type StopSeed struct {
	ID           string   `json:"id"`
	Address      string   `json:"address"`
	CustomerName string   `json:"customer_name"`
	ServiceType  string   `json:"service_type"`
	Notes        string   `json:"notes"`
	Lat          *float64 `json:"lat"`
	Lon          *float64 `json:"lon"`
	DayOfWeek    string   `json:"day_of_week"`
	Date         string   `json:"date"`
	Confirmed    *bool    `json:"confirmed"`
}

// SeedStore receives validated seed stops.
type SeedStore interface {
	UpsertStops(ctx context.Context, stops []ScheduledStop) error
}

// Populate the stop table from a JSON file.
func SeedStopsFromJSON(ctx context.Context, store SeedStore, jsonPath string) error {
	bytes, err := os.ReadFile(jsonPath)
	if err != nil {
		return fmt.Errorf("seed stops: read %q: %w", jsonPath, err)
	}

	var data []StopSeed
	if err := json.Unmarshal(bytes, &data); err != nil {
		return fmt.Errorf("seed stops: parse json: %w", err)
	}

	rows := make([]ScheduledStop, 0, len(data))
	for i, item := range data {
		id := strings.TrimSpace(item.ID)
		if id == "" {
			return fmt.Errorf("seed stops: item at index %d: id cannot be empty", i+1)
		}

		addr := strings.TrimSpace(item.Address)
		if addr == "" {
			return fmt.Errorf("seed stops: item %s: address cannot be empty", id)
		}

		key := domain.SchedulingKey{DayOfWeek: item.DayOfWeek, Date: item.Date}
		if err := key.Validate(); err != nil {
			return fmt.Errorf("seed stops: item %s: %w", id, err)
		}

		if (item.Lat == nil) != (item.Lon == nil) {
			return fmt.Errorf("seed stops: item %s: lat and lon must be set together", id)
		}

		stop := domain.Stop{
			ID:           id,
			Address:      addr,
			CustomerName: item.CustomerName,
			ServiceType:  item.ServiceType,
			Notes:        item.Notes,
		}
		if item.Lat != nil {
			c := domain.Coordinates{Lat: *item.Lat, Lon: *item.Lon}
			if !c.Valid() {
				return fmt.Errorf("seed stops: item %s: coordinates out of range", id)
			}
			stop.Coords = &c
		}

		confirmed := true
		if item.Confirmed != nil {
			confirmed = *item.Confirmed
		}

		rows = append(rows, ScheduledStop{Stop: stop, Key: key.Normalize(), Confirmed: confirmed})
	}

	if err := store.UpsertStops(ctx, rows); err != nil {
		return fmt.Errorf("seed stops: %w", err)
	}

	return nil
}
