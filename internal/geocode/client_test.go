package geocode

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/triplog/internal/emoji"
	"github.com/roach88/triplog/internal/record"
	"github.com/roach88/triplog/internal/remote"
	fake "github.com/roach88/triplog/internal/testutil"
)

var rome = record.Position{Lat: 41.9, Lng: 12.5}

func TestResolve_CountryOnly(t *testing.T) {
	srv := fake.NewGeocodeServer(t, `{"countryCode":"IT"}`)

	place, err := New(srv.URL).Resolve(context.Background(), rome)
	require.NoError(t, err)

	assert.Equal(t, "", place.Name)
	assert.Equal(t, emoji.MustFromCountryCode("IT"), place.Emoji)
	assert.Equal(t, "IT", place.CountryCode)
	assert.False(t, IsDomainError(err))
}

func TestResolve_MissingCountryCode(t *testing.T) {
	srv := fake.NewGeocodeServer(t, `{}`)

	_, err := New(srv.URL).Resolve(context.Background(), rome)
	require.Error(t, err)

	assert.True(t, IsDomainError(err))
	assert.False(t, remote.IsTransportError(err))
	assert.ErrorIs(t, err, ErrUnresolvable)
	assert.Contains(t, err.Error(), "pick a different point")
}

func TestResolve_PrefersCityOverLocality(t *testing.T) {
	srv := fake.NewGeocodeServer(t, `{"countryCode":"pt","countryName":"Portugal","city":"Lisbon","locality":"Baixa"}`)

	place, err := New(srv.URL).Resolve(context.Background(), record.Position{Lat: 38.71, Lng: -9.14})
	require.NoError(t, err)
	assert.Equal(t, "Lisbon", place.Name)
	assert.Equal(t, "Portugal", place.Country)
	assert.Equal(t, "PT", place.CountryCode)
}

func TestResolve_FallsBackToLocality(t *testing.T) {
	srv := fake.NewGeocodeServer(t, `{"countryCode":"FR","countryName":"France","locality":"Chamonix"}`)

	place, err := New(srv.URL).Resolve(context.Background(), record.Position{Lat: 45.92, Lng: 6.87})
	require.NoError(t, err)
	assert.Equal(t, "Chamonix", place.Name)
}

func TestResolve_GarbledCountryCodeIsDomainError(t *testing.T) {
	srv := fake.NewGeocodeServer(t, `{"countryCode":"XYZ"}`)

	_, err := New(srv.URL).Resolve(context.Background(), rome)
	assert.True(t, IsDomainError(err))
	assert.ErrorIs(t, err, ErrUnresolvable)
}

func TestLookup_SendsCoordinates(t *testing.T) {
	srv := fake.NewGeocodeServer(t, `{"countryCode":"IT"}`)

	_, err := New(srv.URL).Lookup(context.Background(), rome)
	require.NoError(t, err)
	assert.Equal(t, []string{"41.9,12.5"}, srv.Queries())
}

func TestLookup_ServerErrorIsTransportError(t *testing.T) {
	srv := fake.NewGeocodeServer(t, "")
	srv.Respond(http.StatusBadGateway, "upstream down")

	_, err := New(srv.URL).Resolve(context.Background(), rome)
	require.Error(t, err)
	assert.False(t, IsDomainError(err))

	var te *remote.TransportError
	require.True(t, errors.As(err, &te))
	assert.Equal(t, "geocode", te.Op)
	assert.Equal(t, http.StatusBadGateway, te.StatusCode)
}

func TestLookup_CachesResolvableOnly(t *testing.T) {
	srv := fake.NewGeocodeServer(t, `{"countryCode":"IT","city":"Rome"}`)
	cache := NewMemoryCache()
	c := New(srv.URL, WithCache(cache))

	for i := 0; i < 3; i++ {
		place, err := c.Resolve(context.Background(), rome)
		require.NoError(t, err)
		assert.Equal(t, "Rome", place.Name)
	}
	assert.Len(t, srv.Queries(), 1)
	assert.Equal(t, 1, cache.Len())

	// a nearby click shares the rounded key
	_, err := c.Resolve(context.Background(), record.Position{Lat: 41.9001, Lng: 12.5002})
	require.NoError(t, err)
	assert.Len(t, srv.Queries(), 1)

	sea := record.Position{Lat: 0, Lng: -30}
	srv.Respond(http.StatusOK, `{}`)
	for i := 0; i < 2; i++ {
		_, err := c.Resolve(context.Background(), sea)
		assert.True(t, IsDomainError(err))
	}
	assert.Len(t, srv.Queries(), 3)
	assert.Equal(t, 1, cache.Len())
}

type brokenCache struct{}

func (brokenCache) Get(context.Context, string) (Response, bool, error) {
	return Response{}, false, errors.New("cache offline")
}

func (brokenCache) Set(context.Context, string, Response) error {
	return errors.New("cache offline")
}

func TestLookup_CacheFailureFallsThrough(t *testing.T) {
	srv := fake.NewGeocodeServer(t, `{"countryCode":"IT"}`)

	place, err := New(srv.URL, WithCache(brokenCache{})).Resolve(context.Background(), rome)
	require.NoError(t, err)
	assert.Equal(t, "IT", place.CountryCode)
}

func TestCacheKey(t *testing.T) {
	assert.Equal(t, "revgeo:41.900:12.500", CacheKey(rome))
	assert.Equal(t, "revgeo:-33.869:151.209", CacheKey(record.Position{Lat: -33.8688, Lng: 151.2093}))
}
