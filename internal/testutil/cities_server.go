// Package testutil provides in-process fakes of the external HTTP services
// the trip log talks to.
package testutil

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"testing"

	"github.com/roach88/triplog/internal/record"
)

// CitiesServer is a fake /cities collection backed by a slice.
//
// Ids are assigned sequentially starting at NextID. Every request is counted
// per operation so tests can assert how many round-trips happened.
type CitiesServer struct {
	*httptest.Server

	mu      sync.Mutex
	records []record.Record
	nextID  int
	calls   map[string]int
	fail    map[string]int
	raw     map[string]string
}

// NewCitiesServer starts a fake collection seeded with records. The server is
// closed automatically when the test ends.
func NewCitiesServer(t testing.TB, seed ...record.Record) *CitiesServer {
	t.Helper()
	s := &CitiesServer{
		records: append([]record.Record(nil), seed...),
		nextID:  len(seed) + 1,
		calls:   make(map[string]int),
		fail:    make(map[string]int),
		raw:     make(map[string]string),
	}
	s.Server = httptest.NewServer(http.HandlerFunc(s.serve))
	t.Cleanup(s.Server.Close)
	return s
}

// SetNextID sets the id the next created record receives.
func (s *CitiesServer) SetNextID(id int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextID = id
}

// FailWith makes every subsequent request for op answer with status.
// A zero status clears the failure.
func (s *CitiesServer) FailWith(op string, status int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if status == 0 {
		delete(s.fail, op)
		return
	}
	s.fail[op] = status
}

// RespondRaw makes op answer 200 with body verbatim.
func (s *CitiesServer) RespondRaw(op, body string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.raw[op] = body
}

// Calls returns how many requests were received for op.
func (s *CitiesServer) Calls(op string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls[op]
}

// TotalCalls returns the number of requests received for every op.
func (s *CitiesServer) TotalCalls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, c := range s.calls {
		n += c
	}
	return n
}

// Records returns a copy of the stored records.
func (s *CitiesServer) Records() []record.Record {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]record.Record(nil), s.records...)
}

func (s *CitiesServer) serve(w http.ResponseWriter, r *http.Request) {
	op, id, ok := route(r)
	if !ok {
		http.NotFound(w, r)
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls[op]++

	if status, failing := s.fail[op]; failing {
		http.Error(w, http.StatusText(status), status)
		return
	}
	if body, ok := s.raw[op]; ok {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(body))
		return
	}

	switch op {
	case "list":
		writeJSON(w, http.StatusOK, s.records)
	case "get":
		for _, rec := range s.records {
			if rec.ID == id {
				writeJSON(w, http.StatusOK, rec)
				return
			}
		}
		http.NotFound(w, r)
	case "create":
		if ct := r.Header.Get("Content-Type"); ct != "application/json" {
			http.Error(w, "unsupported content type", http.StatusUnsupportedMediaType)
			return
		}
		var rec record.Record
		if err := json.NewDecoder(r.Body).Decode(&rec); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		rec.ID = strconv.Itoa(s.nextID)
		s.nextID++
		s.records = append(s.records, rec)
		writeJSON(w, http.StatusCreated, rec)
	case "delete":
		for i, rec := range s.records {
			if rec.ID == id {
				s.records = append(s.records[:i:i], s.records[i+1:]...)
				w.WriteHeader(http.StatusOK)
				_, _ = w.Write([]byte("{}"))
				return
			}
		}
		http.NotFound(w, r)
	}
}

// route maps a request onto the collection operation it addresses.
func route(r *http.Request) (op, id string, ok bool) {
	path := r.URL.Path
	switch {
	case path == "/cities" && r.Method == http.MethodGet:
		return "list", "", true
	case path == "/cities/" && r.Method == http.MethodPost:
		return "create", "", true
	case strings.HasPrefix(path, "/cities/"):
		id = strings.TrimPrefix(path, "/cities/")
		if id == "" || strings.Contains(id, "/") {
			return "", "", false
		}
		switch r.Method {
		case http.MethodGet:
			return "get", id, true
		case http.MethodDelete:
			return "delete", id, true
		}
	}
	return "", "", false
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
