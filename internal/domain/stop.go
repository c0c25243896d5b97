package domain

import (
	"fmt"
	"strings"
	"time"
)

// Represents a single delivery point handled by the system.
// Coordinates are nil until the address has been geocoded; latitude and
// longitude are always present or absent together.
type Stop struct {
	ID           string
	Address      string
	CustomerName string
	ServiceType  string
	Notes        string
	Coords       *Coordinates
}

// HasCoords reports whether the stop carries usable coordinates.
func (s Stop) HasCoords() bool {
	return s.Coords != nil && s.Coords.Valid()
}

// WithCoords returns a copy of the stop holding the given coordinates.
func (s Stop) WithCoords(c Coordinates) Stop {
	s.Coords = &c
	return s
}

// SchedulingKey identifies the unit a set of routes is planned for.
// Either field may be empty, but not both.
type SchedulingKey struct {
	DayOfWeek string
	Date      string
}

const DateLayout = "2006-01-02"

var weekdays = map[string]struct{}{
	"monday": {}, "tuesday": {}, "wednesday": {}, "thursday": {},
	"friday": {}, "saturday": {}, "sunday": {},
}

// Validate checks the key shape: a known weekday name and/or a YYYY-MM-DD date.
func (k SchedulingKey) Validate() error {
	day := strings.TrimSpace(k.DayOfWeek)
	date := strings.TrimSpace(k.Date)
	if day == "" && date == "" {
		return fmt.Errorf("scheduling key: day of week or date is required: %w", ErrInvalidInput)
	}

	if day != "" {
		if _, ok := weekdays[strings.ToLower(day)]; !ok {
			return fmt.Errorf("scheduling key: unknown day of week %q: %w", day, ErrInvalidInput)
		}
	}

	if date != "" {
		if _, err := time.Parse(DateLayout, date); err != nil {
			return fmt.Errorf("scheduling key: date %q must be YYYY-MM-DD: %w", date, ErrInvalidInput)
		}
	}

	return nil
}

// Normalize lower-cases the weekday and trims both fields.
func (k SchedulingKey) Normalize() SchedulingKey {
	return SchedulingKey{
		DayOfWeek: strings.ToLower(strings.TrimSpace(k.DayOfWeek)),
		Date:      strings.TrimSpace(k.Date),
	}
}
