package testutil

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
)

// GeocodeServer is a fake reverse-geocode endpoint. It answers every request
// with a fixed JSON body and records the coordinates it was asked about.
type GeocodeServer struct {
	*httptest.Server

	mu      sync.Mutex
	body    string
	status  int
	queries []string
}

// NewGeocodeServer starts a fake geocoder that replies with body.
func NewGeocodeServer(t testing.TB, body string) *GeocodeServer {
	t.Helper()
	s := &GeocodeServer{body: body, status: http.StatusOK}
	s.Server = httptest.NewServer(http.HandlerFunc(s.serve))
	t.Cleanup(s.Server.Close)
	return s
}

// Respond replaces the reply.
func (s *GeocodeServer) Respond(status int, body string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.status = status
	s.body = body
}

// Queries returns the "lat,lng" pairs received, in order.
func (s *GeocodeServer) Queries() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.queries...)
}

func (s *GeocodeServer) serve(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()

	q := r.URL.Query()
	s.queries = append(s.queries, fmt.Sprintf("%s,%s", q.Get("latitude"), q.Get("longitude")))

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(s.status)
	_, _ = w.Write([]byte(s.body))
}
