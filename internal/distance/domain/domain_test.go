package domain_test

import (
	"errors"
	"fmt"
	"math"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/multierr"

	"github.com/example/airdistance/internal/distance/domain"
)

func TestValidCode(t *testing.T) {
	for _, code := range []string{"DME", "VKO", "AAA", "ZZZ"} {
		require.True(t, domain.ValidCode(code), code)
	}
	for _, code := range []string{"", "dme", "ZZ1", "DM", "DMEX", "D-E", "ÄBC", " DME"} {
		require.False(t, domain.ValidCode(code), code)
	}
	require.True(t, domain.ValidCode(domain.NormalizeCode("dMe")))
}

func TestCanonicalPairAndKey(t *testing.T) {
	a, b := domain.CanonicalPair("VKO", "DME")
	require.Equal(t, "DME", a)
	require.Equal(t, "VKO", b)
	require.Equal(t, "DISTANCE_DME_VKO", domain.CacheKey(a, b))

	a, b = domain.CanonicalPair("DME", "DME")
	require.Equal(t, "DISTANCE_DME_DME", domain.CacheKey(a, b))
}

func TestCoordinateValid(t *testing.T) {
	require.True(t, domain.Coordinate{Lat: 90, Lng: -180}.Valid())
	require.False(t, domain.Coordinate{Lat: 90.1, Lng: 0}.Valid())
	require.False(t, domain.Coordinate{Lat: 0, Lng: 181}.Valid())
	require.False(t, domain.Coordinate{Lat: math.NaN(), Lng: 0}.Valid())
	require.False(t, domain.Coordinate{Lat: 0, Lng: math.Inf(1)}.Valid())
}

func TestErrorKinds(t *testing.T) {
	cause := errors.New("socket closed")
	err := fmt.Errorf("wrapped: %w", domain.CacheError(cause))

	require.ErrorIs(t, err, domain.ErrCacheUnavailable)
	require.NotErrorIs(t, err, domain.ErrDataRetrieval)
	require.ErrorIs(t, err, cause)
	require.Equal(t, domain.KindCacheUnavailable, domain.KindOf(err))
	require.Equal(t, domain.Kind(0), domain.KindOf(cause))

	notFound := domain.AirportNotFoundError("ZZZ", domain.ErrAirportNotFound)
	require.ErrorIs(t, notFound, domain.ErrInvalidCode)
	require.ErrorIs(t, notFound, domain.ErrAirportNotFound)
	require.Equal(t, "ZZZ", notFound.Code)
}

func TestAggregateError(t *testing.T) {
	require.Nil(t, domain.NewAggregateError(nil))

	first := domain.EmptyResponseError("DME")
	second := domain.InvalidLocationError("VKO")
	agg := domain.NewAggregateError(multierr.Combine(first, nil, second))
	require.NotNil(t, agg)
	require.Equal(t, []error{first, second}, agg.Errors())
	require.ErrorIs(t, agg, domain.ErrDataRetrieval)
	require.Contains(t, agg.Error(), "Received empty response for airport DME")
	require.Contains(t, agg.Error(), "Received location data is invalid for airport VKO")

	single := domain.NewAggregateError(multierr.Combine(nil, second))
	require.Len(t, single.Errors(), 1)
}
