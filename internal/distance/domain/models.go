package domain

import (
	"context"
	"math"
	"time"

	"github.com/google/uuid"
)

// CacheTTL is the lifetime of a stored distance entry.
const CacheTTL = time.Hour

type Coordinate struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lon"`
}

// Valid reports whether the coordinate is finite and inside the WGS84 ranges.
func (c Coordinate) Valid() bool {
	if math.IsNaN(c.Lat) || math.IsNaN(c.Lng) || math.IsInf(c.Lat, 0) || math.IsInf(c.Lng, 0) {
		return false
	}
	return c.Lat >= -90 && c.Lat <= 90 && c.Lng >= -180 && c.Lng <= 180
}

// AirportRecord is the document returned by the places provider.
type AirportRecord struct {
	IATA               string      `json:"iata"`
	Name               string      `json:"name"`
	City               string      `json:"city"`
	CityIATA           string      `json:"city_iata"`
	Country            string      `json:"country"`
	CountryIATA        string      `json:"country_iata"`
	Location           *Coordinate `json:"location"`
	Rating             int         `json:"rating"`
	Hubs               int         `json:"hubs"`
	TimezoneRegionName string      `json:"timezone_region_name"`
	Type               string      `json:"type"`
}

type DistanceEventType string

const EventDistanceCalculated DistanceEventType = "DistanceCalculated"

type DistanceEvent struct {
	ID           uuid.UUID         `json:"id"`
	Type         DistanceEventType `json:"type"`
	From         string            `json:"from"`
	To           string            `json:"to"`
	Miles        float64           `json:"miles"`
	CalculatedAt time.Time         `json:"calculated_at"`
}

// CacheStore is a string key-value store with per-key expiry.
// Get reports ok=false for a missing key; err is reserved for backend failures.
type CacheStore interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, value string, ttl time.Duration) error
}

// AirportProvider fetches airport data by code. A nil record with a nil error
// means the provider answered with an empty body.
type AirportProvider interface {
	Fetch(ctx context.Context, code string) (*AirportRecord, error)
}

type EventPublisher interface {
	Publish(ctx context.Context, event DistanceEvent) error
}

type Clock interface {
	Now() time.Time
}

type SystemClock struct{}

func (SystemClock) Now() time.Time { return time.Now().UTC() }
