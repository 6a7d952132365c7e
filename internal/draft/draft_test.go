package draft

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/triplog/internal/cities"
	"github.com/roach88/triplog/internal/emoji"
	"github.com/roach88/triplog/internal/geocode"
	"github.com/roach88/triplog/internal/record"
	"github.com/roach88/triplog/internal/remote"
	fake "github.com/roach88/triplog/internal/testutil"
)

var fixedNow = func() time.Time { return time.Date(2027, 6, 3, 14, 30, 0, 0, time.UTC) }

type fixture struct {
	geo    *fake.GeocodeServer
	cities *fake.CitiesServer
	store  *cities.Store
	form   *Form
}

func newFixture(t *testing.T, geocodeBody string) fixture {
	t.Helper()
	geo := fake.NewGeocodeServer(t, geocodeBody)
	srv := fake.NewCitiesServer(t)
	store := cities.NewStore(remote.New(srv.URL))
	return fixture{
		geo:    geo,
		cities: srv,
		store:  store,
		form:   New(geocode.New(geo.URL), store, fixedNow),
	}
}

func TestPrepare_PrefillsDraft(t *testing.T) {
	f := newFixture(t, `{"countryCode":"IT","countryName":"Italy","city":"Rome"}`)
	pending := record.Position{Lat: 41.9, Lng: 12.5}

	d, err := f.form.Prepare(context.Background(), &pending)
	require.NoError(t, err)

	assert.Equal(t, "Rome", d.Name)
	assert.Equal(t, "Italy", d.Country)
	assert.Equal(t, emoji.MustFromCountryCode("IT"), d.Emoji)
	assert.Equal(t, "2027-06-03", d.VisitedOn.String())
	assert.Equal(t, pending, d.Position)

	st := f.form.State()
	assert.False(t, st.Geocoding)
	assert.Empty(t, st.Error)
	require.NotNil(t, st.Draft)
}

func TestPrepare_NoPendingCoordinate(t *testing.T) {
	f := newFixture(t, `{}`)

	_, err := f.form.Prepare(context.Background(), nil)
	assert.ErrorIs(t, err, ErrNoPosition)
	assert.Empty(t, f.geo.Queries())
	assert.Equal(t, "start by clicking somewhere on the map", f.form.State().Error)
}

func TestPrepare_UnresolvableLeavesCollectionUntouched(t *testing.T) {
	f := newFixture(t, `{}`)
	ctx := context.Background()
	require.NoError(t, f.store.Load(ctx))
	before := f.store.Snapshot()
	applied := f.store.Applied()

	sea := record.Position{Lat: 0, Lng: -30}
	_, err := f.form.Prepare(ctx, &sea)
	require.Error(t, err)
	assert.True(t, geocode.IsDomainError(err))
	assert.False(t, remote.IsTransportError(err))

	st := f.form.State()
	assert.Contains(t, st.Error, "Click somewhere else")
	assert.Nil(t, st.Draft)

	assert.Equal(t, before, f.store.Snapshot())
	assert.Equal(t, applied, f.store.Applied())
	assert.Equal(t, 0, f.cities.Calls("create"))
}

func TestWithLogger_ReceivesGeocodingFailure(t *testing.T) {
	geo := fake.NewGeocodeServer(t, `{}`)
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
	form := New(geocode.New(geo.URL), failingCreator{}, fixedNow, WithLogger(logger))

	sea := record.Position{Lat: 0, Lng: -30}
	_, err := form.Prepare(context.Background(), &sea)
	require.Error(t, err)

	assert.Contains(t, buf.String(), "draft geocoding failed")
	assert.Contains(t, buf.String(), "position=")
}

func TestSubmit_CreatesRecord(t *testing.T) {
	f := newFixture(t, `{"countryCode":"IT","countryName":"Italy","locality":"Trastevere"}`)
	f.cities.SetNextID(7)
	ctx := context.Background()
	pending := record.Position{Lat: 41.9, Lng: 12.5}

	d, err := f.form.Prepare(ctx, &pending)
	require.NoError(t, err)
	d.Notes = "Supplì everywhere"

	created, err := f.form.Submit(ctx, d)
	require.NoError(t, err)
	assert.Equal(t, "7", created.ID)
	assert.Equal(t, pending, created.Position)

	cur, ok := f.store.Current()
	require.True(t, ok)
	assert.Equal(t, "7", cur.ID)
	assert.Equal(t, "Trastevere", cur.Name)
}

func TestSubmit_IncompleteDraftMakesNoRequest(t *testing.T) {
	f := newFixture(t, `{"countryCode":"IT"}`)
	ctx := context.Background()
	pending := record.Position{Lat: 41.9, Lng: 12.5}

	d, err := f.form.Prepare(ctx, &pending)
	require.NoError(t, err)
	require.Empty(t, d.Name, "country-only responses leave the name for the user")

	_, err = f.form.Submit(ctx, d)
	assert.ErrorIs(t, err, ErrIncomplete)

	d.Name = "Somewhere"
	d.VisitedOn = record.Date{}
	_, err = f.form.Submit(ctx, d)
	assert.ErrorIs(t, err, ErrIncomplete)

	assert.Equal(t, 0, f.cities.TotalCalls())
}

type failingCreator struct{}

func (failingCreator) Create(context.Context, record.Record) (record.Record, error) {
	return record.Record{}, errors.New("boom")
}

func TestSubmit_WrapsCreatorError(t *testing.T) {
	form := New(nil, failingCreator{}, fixedNow)
	_, err := form.Submit(context.Background(), Draft{Name: "Oslo", VisitedOn: record.NewDate(fixedNow())})
	assert.ErrorContains(t, err, "submit draft: boom")
}

func TestMessage(t *testing.T) {
	assert.Equal(t, "", Message(nil))
	assert.Equal(t, "Start by clicking somewhere on the map", Message(ErrNoPosition))
	assert.Contains(t, Message(&geocode.DomainError{Err: geocode.ErrUnresolvable}), "Click somewhere else")
	assert.Contains(t, Message(errors.New("dial tcp: refused")), "dial tcp: refused")
}
