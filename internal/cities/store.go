package cities

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"

	"github.com/roach88/triplog/internal/metrics"
	"github.com/roach88/triplog/internal/record"
	"github.com/roach88/triplog/internal/remote"
)

// Messages stored in State.Error when a request fails.
const (
	MsgFetchCities = "Error fetching cities"
	MsgFetchCity   = "Error fetching city"
	MsgCreateCity  = "Error creating city"
	MsgDeleteCity  = "Error deleting city"
)

// ErrClosed is returned by operations started after Close.
var ErrClosed = errors.New("cities: store closed")

// Journal receives every applied action with its position in the session.
// Implemented by journal.Recorder.
type Journal interface {
	Append(ctx context.Context, seq int64, a Action) error
}

// Observer is called after every applied action with a private copy of the
// new state.
type Observer func(seq int64, s State)

// guard selects which results may be discarded as stale.
type guard int

const (
	guardNone guard = iota
	guardCollection
	guardCurrent
)

// Store owns the State of one session and is the only writer to it.
//
// Every request takes a ticket from the Clock when it starts. Read results
// (collection and single-record fetches, success or failure) are dropped
// when a newer result for the same field has already landed, so two
// overlapping Get calls always leave the later-issued record current.
// Mutation results always apply. After Close, late results are dropped.
//
// Observers run in apply order, one at a time, without the state lock held.
// They must not call Load, Get, Create or Delete synchronously.
type Store struct {
	remote  remote.Collection
	clock   *Clock
	journal Journal
	logger  *slog.Logger

	mu             sync.Mutex
	state          State
	applied        int64
	lastCollection int64
	lastCurrent    int64
	closed         bool
	observers      map[int]Observer
	nextObserver   int

	// observers are called outside mu, one action at a time, in seq order
	notifyMu   sync.Mutex
	notifyCond *sync.Cond
	delivered  int64
}

// StoreOption configures a Store.
type StoreOption func(*Store)

// WithLogger sets the logger. Defaults to slog.Default().
func WithLogger(l *slog.Logger) StoreOption {
	return func(s *Store) {
		s.logger = l
	}
}

// WithJournal records every applied action.
func WithJournal(j Journal) StoreOption {
	return func(s *Store) {
		s.journal = j
	}
}

// NewStore creates an empty Store backed by rc.
func NewStore(rc remote.Collection, opts ...StoreOption) *Store {
	s := &Store{
		remote:    rc,
		clock:     NewClock(),
		logger:    slog.Default(),
		observers: make(map[int]Observer),
	}
	s.notifyCond = sync.NewCond(&s.notifyMu)
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Load fetches the full collection.
func (s *Store) Load(ctx context.Context) error {
	ticket, err := s.begin(ctx)
	if err != nil {
		return err
	}

	list, err := s.remote.List(ctx)
	if err != nil {
		s.settle(ctx, guardCollection, ticket, Rejected{Message: MsgFetchCities})
		return fmt.Errorf("fetch cities: %w", err)
	}
	s.settle(ctx, guardCollection, ticket, CollectionLoaded{Records: list})
	return nil
}

// Get makes the record with id current. When it already is, Get returns
// immediately without a network call or state change.
func (s *Store) Get(ctx context.Context, id record.ID) error {
	s.mu.Lock()
	memo := s.state.Current != nil && s.state.Current.ID == id
	s.mu.Unlock()
	if memo {
		return nil
	}

	ticket, err := s.begin(ctx)
	if err != nil {
		return err
	}

	rec, err := s.remote.Get(ctx, id)
	if err != nil {
		s.settle(ctx, guardCurrent, ticket, Rejected{Message: MsgFetchCity})
		return fmt.Errorf("fetch city %s: %w", id, err)
	}
	s.settle(ctx, guardCurrent, ticket, RecordLoaded{Record: rec})
	return nil
}

// Create validates candidate, posts it, and appends the server's copy.
// The returned record carries the server-assigned id.
func (s *Store) Create(ctx context.Context, candidate record.Record) (record.Record, error) {
	candidate = record.Normalize(candidate)
	candidate.ID = ""
	if err := record.Validate(candidate); err != nil {
		if s.isClosed() {
			return record.Record{}, ErrClosed
		}
		msg := "Invalid city"
		var ve *record.ValidationError
		if errors.As(err, &ve) {
			msg = "Invalid city: " + ve.Message
		}
		s.settle(ctx, guardNone, s.clock.Next(), Rejected{Message: msg})
		return record.Record{}, err
	}

	ticket, err := s.begin(ctx)
	if err != nil {
		return record.Record{}, err
	}

	created, err := s.remote.Create(ctx, candidate)
	if err != nil {
		s.settle(ctx, guardNone, ticket, Rejected{Message: MsgCreateCity})
		return record.Record{}, fmt.Errorf("create city: %w", err)
	}
	s.settle(ctx, guardNone, ticket, RecordCreated{Record: created})
	return created, nil
}

// Delete removes id on the server and, once confirmed, from the collection.
func (s *Store) Delete(ctx context.Context, id record.ID) error {
	ticket, err := s.begin(ctx)
	if err != nil {
		return err
	}

	if err := s.remote.Delete(ctx, id); err != nil {
		s.settle(ctx, guardNone, ticket, Rejected{Message: MsgDeleteCity})
		return fmt.Errorf("delete city %s: %w", id, err)
	}
	s.settle(ctx, guardNone, ticket, RecordDeleted{ID: id})
	return nil
}

// Snapshot returns a copy of the current state.
func (s *Store) Snapshot() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.Clone()
}

// Records returns a copy of the collection.
func (s *Store) Records() []record.Record {
	s.mu.Lock()
	defer s.mu.Unlock()
	return cloneRecords(s.state.Records)
}

// Current returns the current record, if any.
func (s *Store) Current() (record.Record, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state.Current == nil {
		return record.Record{}, false
	}
	return *s.state.Current, true
}

// Loading reports whether a request is in flight.
func (s *Store) Loading() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.Loading
}

// Err returns the last failure message, or "".
func (s *Store) Err() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.Error
}

// Applied returns how many actions have been applied.
func (s *Store) Applied() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.applied
}

// Subscribe registers fn and returns a function that removes it.
func (s *Store) Subscribe(fn Observer) (unsubscribe func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := s.nextObserver
	s.nextObserver++
	s.observers[id] = fn
	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		delete(s.observers, id)
	}
}

// Close discards the session. Results of requests still in flight are
// dropped when they arrive, and observers are released.
func (s *Store) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	s.observers = make(map[int]Observer)
}

func (s *Store) isClosed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

// begin issues a ticket and applies Loading atomically.
func (s *Store) begin(ctx context.Context) (int64, error) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return 0, ErrClosed
	}
	ticket := s.clock.Next()
	s.applyLocked(ctx, Loading{})
	return ticket, nil
}

// settle applies the result of the request holding ticket unless it is stale
// or the store is closed.
func (s *Store) settle(ctx context.Context, g guard, ticket int64, a Action) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		s.logger.Debug("result after close dropped", "kind", a.Kind(), "ticket", ticket)
		return
	}

	switch g {
	case guardCollection:
		if ticket < s.lastCollection {
			s.mu.Unlock()
			s.dropStale(a, ticket)
			return
		}
		s.lastCollection = ticket
	case guardCurrent:
		if ticket < s.lastCurrent {
			s.mu.Unlock()
			s.dropStale(a, ticket)
			return
		}
		s.lastCurrent = ticket
	}

	switch v := a.(type) {
	case RecordCreated, RecordDeleted:
		if ticket > s.lastCurrent {
			s.lastCurrent = ticket
		}
	case Rejected:
		s.logger.Warn("request rejected", "message", v.Message, "ticket", ticket)
	}

	s.applyLocked(ctx, a)
}

func (s *Store) dropStale(a Action, ticket int64) {
	metrics.StaleResultsTotal.WithLabelValues(string(a.Kind())).Inc()
	s.logger.Debug("stale result dropped", "kind", a.Kind(), "ticket", ticket)
}

// applyLocked reduces a into the state, journals it and notifies observers.
// It must be called with mu held and releases it.
func (s *Store) applyLocked(ctx context.Context, a Action) {
	s.state = Reduce(s.state, a)
	s.applied++
	seq := s.applied
	metrics.ActionsTotal.WithLabelValues(string(a.Kind())).Inc()

	if s.journal != nil {
		if err := s.journal.Append(context.WithoutCancel(ctx), seq, a); err != nil {
			s.logger.Error("journal append failed", "kind", a.Kind(), "seq", seq, "error", err)
		}
	}

	snapshot := s.state.Clone()
	observers := s.sortedObservers()

	s.mu.Unlock()

	s.notifyMu.Lock()
	for s.delivered != seq-1 {
		s.notifyCond.Wait()
	}
	// A panicking observer must still hand the turn to the next action.
	defer func() {
		s.delivered = seq
		s.notifyCond.Broadcast()
		s.notifyMu.Unlock()
	}()
	for _, fn := range observers {
		fn(seq, snapshot.Clone())
	}
}

func (s *Store) sortedObservers() []Observer {
	if len(s.observers) == 0 {
		return nil
	}
	ids := make([]int, 0, len(s.observers))
	for id := range s.observers {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	out := make([]Observer, 0, len(ids))
	for _, id := range ids {
		out = append(out, s.observers[id])
	}
	return out
}
