package geo_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/example/airdistance/internal/distance/domain"
	"github.com/example/airdistance/internal/distance/geo"
)

func TestMilesMoscowAirports(t *testing.T) {
	dme := domain.Coordinate{Lat: 55.414566, Lng: 37.899494}
	vko := domain.Coordinate{Lat: 55.60315, Lng: 37.292098}

	require.Equal(t, 27.125932088178207, geo.Miles(dme, vko))
	require.Equal(t, geo.Miles(dme, vko), geo.Miles(vko, dme))
}

func TestHaversineSamePoint(t *testing.T) {
	p := domain.Coordinate{Lat: 40.642335, Lng: -73.78817}
	require.Zero(t, geo.Haversine(p, p))
}

func TestHaversineQuarterMeridian(t *testing.T) {
	equator := domain.Coordinate{Lat: 0, Lng: 0}
	pole := domain.Coordinate{Lat: 90, Lng: 0}
	require.InDelta(t, geo.EarthRadiusMeters*3.141592653589793/2, geo.Haversine(equator, pole), 1e-6)
}

func TestMetersToMiles(t *testing.T) {
	require.Equal(t, 1.0, geo.MetersToMiles(1609.344))
	require.InDelta(t, 0.000621371192, geo.MetersToMiles(1), 1e-12)
}
