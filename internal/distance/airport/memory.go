package airport

import (
	"context"
	"fmt"
	"sync"

	"github.com/example/airdistance/internal/distance/domain"
)

// MemoryProvider serves airport records from memory.
type MemoryProvider struct {
	mu      sync.RWMutex
	records map[string]domain.AirportRecord
}

// NewMemoryProvider constructs a provider seeded with records keyed by IATA code.
func NewMemoryProvider(records ...domain.AirportRecord) *MemoryProvider {
	p := &MemoryProvider{records: make(map[string]domain.AirportRecord, len(records))}
	for _, r := range records {
		p.records[domain.NormalizeCode(r.IATA)] = r
	}
	return p
}

// Upsert stores or replaces a record.
func (p *MemoryProvider) Upsert(record domain.AirportRecord) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.records[domain.NormalizeCode(record.IATA)] = record
}

// Fetch returns a copy of the stored record or a not-found error.
func (p *MemoryProvider) Fetch(_ context.Context, code string) (*domain.AirportRecord, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	record, ok := p.records[code]
	if !ok {
		return nil, fmt.Errorf("airport %s: %w", code, domain.ErrAirportNotFound)
	}
	if record.Location != nil {
		loc := *record.Location
		record.Location = &loc
	}
	return &record, nil
}

// SeedAirports is a small built-in data set for offline runs.
func SeedAirports() []domain.AirportRecord {
	return []domain.AirportRecord{
		{IATA: "DME", Name: "Domodedovo", City: "Moscow", CityIATA: "MOW", Country: "Russia", CountryIATA: "RU", Location: &domain.Coordinate{Lat: 55.414566, Lng: 37.899494}, Type: "airport"},
		{IATA: "VKO", Name: "Vnukovo", City: "Moscow", CityIATA: "MOW", Country: "Russia", CountryIATA: "RU", Location: &domain.Coordinate{Lat: 55.60315, Lng: 37.292098}, Type: "airport"},
		{IATA: "SVO", Name: "Sheremetyevo", City: "Moscow", CityIATA: "MOW", Country: "Russia", CountryIATA: "RU", Location: &domain.Coordinate{Lat: 55.966324, Lng: 37.416573}, Type: "airport"},
		{IATA: "LED", Name: "Pulkovo", City: "St. Petersburg", CityIATA: "LED", Country: "Russia", CountryIATA: "RU", Location: &domain.Coordinate{Lat: 59.806084, Lng: 30.3083}, Type: "airport"},
		{IATA: "AMS", Name: "Schiphol", City: "Amsterdam", CityIATA: "AMS", Country: "Netherlands", CountryIATA: "NL", Location: &domain.Coordinate{Lat: 52.309069, Lng: 4.763385}, Type: "airport"},
		{IATA: "JFK", Name: "John F. Kennedy", City: "New York", CityIATA: "NYC", Country: "United States", CountryIATA: "US", Location: &domain.Coordinate{Lat: 40.642335, Lng: -73.78817}, Type: "airport"},
	}
}
