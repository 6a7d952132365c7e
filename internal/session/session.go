// Package session owns the per-scope state of the trip log: one collection
// store and one position resolver, created at Mount and discarded at Unmount.
//
// Accessing a session that was never mounted or was already unmounted is a
// wiring bug and panics with a *PreconditionError.
package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/roach88/triplog/internal/cities"
	"github.com/roach88/triplog/internal/journal"
	"github.com/roach88/triplog/internal/position"
	"github.com/roach88/triplog/internal/remote"
)

// PreconditionError reports use of session state outside a mounted scope.
type PreconditionError struct {
	Op      string
	Message string
}

func (e *PreconditionError) Error() string {
	return fmt.Sprintf("precondition failed: %s: %s", e.Op, e.Message)
}

// IsPreconditionError returns true if err is (or wraps) a PreconditionError.
func IsPreconditionError(err error) bool {
	var pe *PreconditionError
	return errors.As(err, &pe)
}

// Deps are the collaborators a session is built from.
type Deps struct {
	// Collection is required.
	Collection remote.Collection

	// Locator may be nil: geolocation is then reported unavailable.
	Locator position.Locator

	// Journal, when set, records every applied action under the session token.
	Journal *journal.Journal

	Logger *slog.Logger
	Tokens TokenGenerator
}

// Session is one mounted scope.
type Session struct {
	token    string
	cities   *cities.Store
	position *position.Resolver
	logger   *slog.Logger

	mu      sync.Mutex
	mounted bool
}

// Mount creates the scope and performs the single initial collection fetch.
//
// The session is returned even when that fetch fails; the failure is both
// returned and recorded in the collection state. A nil Collection panics.
func Mount(ctx context.Context, deps Deps) (*Session, error) {
	if deps.Collection == nil {
		panic(&PreconditionError{Op: "mount", Message: "a remote collection is required"})
	}
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	tokens := deps.Tokens
	if tokens == nil {
		tokens = UUIDv7Generator{}
	}

	token := tokens.Generate()
	logger = logger.With("session", token)

	opts := []cities.StoreOption{cities.WithLogger(logger)}
	if deps.Journal != nil {
		opts = append(opts, cities.WithJournal(deps.Journal.Recorder(token)))
	}

	s := &Session{
		token:    token,
		cities:   cities.NewStore(deps.Collection, opts...),
		position: position.NewResolver(deps.Locator, position.WithLogger(logger)),
		logger:   logger,
		mounted:  true,
	}

	logger.Debug("session mounted")
	if err := s.cities.Load(ctx); err != nil {
		logger.Warn("initial load failed", "error", err)
		return s, err
	}
	return s, nil
}

// Token identifies the session in the journal.
func (s *Session) Token() string {
	return s.token
}

// Mounted reports whether the session is still in scope.
func (s *Session) Mounted() bool {
	if s == nil {
		return false
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.mounted
}

// Cities returns the collection store.
func (s *Session) Cities() *cities.Store {
	s.require("cities")
	return s.cities
}

// Position returns the position resolver.
func (s *Session) Position() *position.Resolver {
	s.require("position")
	return s.position
}

// Unmount ends the scope. Requests still in flight are discarded when they
// complete. Calling Unmount twice is a no-op.
func (s *Session) Unmount() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.mounted {
		return
	}
	s.mounted = false
	s.cities.Close()
	s.logger.Debug("session unmounted")
}

func (s *Session) require(op string) {
	if s == nil {
		panic(&PreconditionError{Op: op, Message: "session was never mounted"})
	}
	if !s.Mounted() {
		panic(&PreconditionError{Op: op, Message: "session is unmounted"})
	}
}

type contextKey struct{}

// WithContext returns a context carrying s.
func WithContext(ctx context.Context, s *Session) context.Context {
	return context.WithValue(ctx, contextKey{}, s)
}

// FromContext returns the session carried by ctx. It panics with a
// *PreconditionError when there is none or it has been unmounted.
func FromContext(ctx context.Context) *Session {
	s, _ := ctx.Value(contextKey{}).(*Session)
	if s == nil {
		panic(&PreconditionError{Op: "lookup", Message: "no session in context; mount one first"})
	}
	s.require("lookup")
	return s
}
