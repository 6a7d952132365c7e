package remote

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/triplog/internal/metrics"
	"github.com/roach88/triplog/internal/record"
	fake "github.com/roach88/triplog/internal/testutil"
)

func paris() record.Record {
	return record.Record{
		ID:        "1",
		Name:      "Paris",
		Country:   "France",
		Emoji:     "\U0001F1EB\U0001F1F7",
		VisitedOn: record.NewDate(time.Date(2027, 2, 12, 0, 0, 0, 0, time.UTC)),
		Position:  record.Position{Lat: 48.85, Lng: 2.35},
	}
}

func TestClient_List(t *testing.T) {
	srv := fake.NewCitiesServer(t, paris())
	c := New(srv.URL)

	got, err := c.List(context.Background())
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "1", got[0].ID)
	assert.Equal(t, "Paris", got[0].Name)
	assert.Equal(t, 1, srv.Calls("list"))
}

func TestClient_List_EmptyIsNotNil(t *testing.T) {
	srv := fake.NewCitiesServer(t)
	srv.RespondRaw("list", "null")

	got, err := New(srv.URL).List(context.Background())
	require.NoError(t, err)
	assert.NotNil(t, got)
	assert.Empty(t, got)
}

func TestClient_List_StringCoordinates(t *testing.T) {
	srv := fake.NewCitiesServer(t)
	srv.RespondRaw("list", `[{"id":"9","cityName":"Lisbon","position":{"lat":"38.72","lng":"-9.14"}}]`)

	got, err := New(srv.URL).List(context.Background())
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, record.Position{Lat: 38.72, Lng: -9.14}, got[0].Position)
}

func TestClient_Get(t *testing.T) {
	srv := fake.NewCitiesServer(t, paris())
	c := New(srv.URL + "/")

	got, err := c.Get(context.Background(), "1")
	require.NoError(t, err)
	assert.Equal(t, paris().Name, got.Name)
}

func TestClient_Get_NotFound(t *testing.T) {
	srv := fake.NewCitiesServer(t)

	_, err := New(srv.URL).Get(context.Background(), "404")
	require.Error(t, err)
	assert.True(t, IsTransportError(err))
	assert.True(t, IsNotFound(err))

	var te *TransportError
	require.True(t, errors.As(err, &te))
	assert.Equal(t, "get", te.Op)
	assert.Equal(t, http.MethodGet, te.Method)
	assert.Equal(t, srv.URL+"/cities/404", te.URL)
}

func TestClient_Create_ReturnsServerRecord(t *testing.T) {
	srv := fake.NewCitiesServer(t)
	srv.SetNextID(7)
	c := New(srv.URL)

	candidate := record.Record{ID: "ignored", Name: "Rome", Position: record.Position{Lat: 41.9, Lng: 12.5}}
	got, err := c.Create(context.Background(), candidate)
	require.NoError(t, err)

	assert.Equal(t, "7", got.ID)
	assert.Equal(t, "Rome", got.Name)
	require.Len(t, srv.Records(), 1)
	assert.Equal(t, "7", srv.Records()[0].ID)
}

func TestClient_Create_SendsJSONToTrailingSlashPath(t *testing.T) {
	var gotPath, gotType string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotType = r.Header.Get("Content-Type")
		_, _ = w.Write([]byte(`{"id":"3","cityName":"Oslo","position":{"lat":59.91,"lng":10.75}}`))
	}))
	defer srv.Close()

	_, err := New(srv.URL).Create(context.Background(), record.Record{Name: "Oslo"})
	require.NoError(t, err)
	assert.Equal(t, "/cities/", gotPath)
	assert.Equal(t, "application/json", gotType)
}

func TestClient_Create_MissingID(t *testing.T) {
	srv := fake.NewCitiesServer(t)
	srv.RespondRaw("create", `{"cityName":"Rome"}`)

	_, err := New(srv.URL).Create(context.Background(), record.Record{Name: "Rome"})
	require.Error(t, err)
	assert.True(t, IsTransportError(err))
	assert.ErrorIs(t, err, ErrMissingID)
}

func TestClient_Delete(t *testing.T) {
	srv := fake.NewCitiesServer(t, paris())
	c := New(srv.URL)

	require.NoError(t, c.Delete(context.Background(), "1"))
	assert.Empty(t, srv.Records())

	err := c.Delete(context.Background(), "1")
	assert.True(t, IsNotFound(err))
}

func TestClient_ServerError(t *testing.T) {
	srv := fake.NewCitiesServer(t, paris())
	srv.FailWith("list", http.StatusInternalServerError)

	before := testutil.ToFloat64(metrics.RemoteFailuresTotal.WithLabelValues("list"))
	_, err := New(srv.URL).List(context.Background())
	require.Error(t, err)

	var te *TransportError
	require.True(t, errors.As(err, &te))
	assert.Equal(t, http.StatusInternalServerError, te.StatusCode)
	assert.False(t, IsNotFound(err))
	assert.Equal(t, before+1, testutil.ToFloat64(metrics.RemoteFailuresTotal.WithLabelValues("list")))
}

func TestClient_MalformedJSON(t *testing.T) {
	srv := fake.NewCitiesServer(t)
	srv.RespondRaw("list", `[{"cityName":`)

	_, err := New(srv.URL).List(context.Background())
	require.Error(t, err)
	assert.True(t, IsTransportError(err))
	assert.Contains(t, err.Error(), "decode response")
}

func TestClient_NetworkFailure(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	_, err := New(url).List(context.Background())
	require.Error(t, err)

	var te *TransportError
	require.True(t, errors.As(err, &te))
	assert.Equal(t, 0, te.StatusCode)
}

func TestClient_ContextCancelled(t *testing.T) {
	srv := fake.NewCitiesServer(t, paris())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := New(srv.URL).List(ctx)
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 0, srv.Calls("list"))
}

func TestNew_DefaultBaseURL(t *testing.T) {
	assert.Equal(t, "http://localhost:8000", New("").BaseURL())
	assert.Equal(t, "http://example.test", New("http://example.test///").BaseURL())
}
