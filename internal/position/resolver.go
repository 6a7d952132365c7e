// Package position reconciles the map center from its three inputs: the
// last geolocation fix, the lat/lng carried in the current URL, and the
// default (40, 0).
//
// A click never moves the center. It navigates to the creation view with the
// clicked coordinates in the URL, which makes them the pending coordinate for
// a new record.
package position

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"github.com/roach88/triplog/internal/record"
)

// DefaultCenter is used when neither geolocation nor the URL supply a position.
var DefaultCenter = record.Position{Lat: 40, Lng: 0}

// Locator is a single-shot geolocation capability.
type Locator interface {
	// Available reports whether the capability exists at all.
	Available() bool

	// Locate blocks until a fix or a failure. Failures should be
	// *GeolocationError; other errors are classified as ReasonFailed.
	Locate(ctx context.Context) (record.Position, error)
}

// ResolveCenter applies the priority geolocation > URL > DefaultCenter.
func ResolveCenter(geo, fromURL *record.Position) record.Position {
	switch {
	case geo != nil:
		return *geo
	case fromURL != nil:
		return *fromURL
	default:
		return DefaultCenter
	}
}

// State is the derived view of the resolver.
type State struct {
	Center      record.Position
	Pending     *record.Position
	Geolocation *record.Position
	Route       string
	Locating    bool
	Error       string
}

// Resolver owns the inputs and recomputes State on every change.
type Resolver struct {
	locator Locator
	logger  *slog.Logger

	mu            sync.Mutex
	route         Route
	rawRoute      string
	geo           *record.Position
	issued        int64
	latestApplied int64
	errMsg        string
	observers     []func(State)
}

// Option configures a Resolver.
type Option func(*Resolver)

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(r *Resolver) {
		r.logger = l
	}
}

// NewResolver creates a Resolver. locator may be nil, in which case
// GetPosition always fails with ErrGeolocationUnavailable.
func NewResolver(locator Locator, opts ...Option) *Resolver {
	r := &Resolver{
		locator: locator,
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Navigate replaces the current route.
func (r *Resolver) Navigate(target string) error {
	route, err := ParseRoute(target)
	if err != nil {
		return err
	}
	r.mu.Lock()
	r.route = route
	r.rawRoute = target
	r.publishLocked()
	return nil
}

// Click navigates to the creation view for p and returns the target.
func (r *Resolver) Click(p record.Position) (string, error) {
	target := FormPath(p)
	if err := r.Navigate(target); err != nil {
		return "", err
	}
	return target, nil
}

// HasGeolocation reports whether a geolocation fix has been applied.
func (r *Resolver) HasGeolocation() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.geo != nil
}

// Locating reports whether a GetPosition call is still outstanding.
func (r *Resolver) Locating() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.latestApplied < r.issued
}

// GetPosition requests a single geolocation fix and blocks until it resolves.
//
// Without a capability it fails immediately with ErrGeolocationUnavailable.
// When calls overlap, only the most recently issued one may update the
// state; earlier results that arrive late are discarded.
func (r *Resolver) GetPosition(ctx context.Context) error {
	if r.locator == nil || !r.locator.Available() {
		r.mu.Lock()
		r.errMsg = ErrGeolocationUnavailable.Error()
		r.publishLocked()
		return ErrGeolocationUnavailable
	}

	r.mu.Lock()
	r.issued++
	ticket := r.issued
	r.publishLocked()

	pos, err := r.locator.Locate(ctx)
	if errors.Is(err, ErrGeolocationUnavailable) {
		r.mu.Lock()
		if ticket >= r.latestApplied {
			r.latestApplied = ticket
			r.errMsg = ErrGeolocationUnavailable.Error()
		}
		r.publishLocked()
		return ErrGeolocationUnavailable
	}
	if err == nil && !pos.Valid() {
		err = &GeolocationError{Reason: ReasonUnavailable}
	}

	r.mu.Lock()
	if ticket < r.latestApplied {
		r.mu.Unlock()
		r.logger.Debug("stale geolocation result dropped", "ticket", ticket)
		if err != nil {
			return asGeolocationError(err)
		}
		return nil
	}
	r.latestApplied = ticket

	if err != nil {
		ge := asGeolocationError(err)
		r.errMsg = ge.Error()
		r.logger.Warn("geolocation failed", "reason", ge.Reason, "error", ge.Err)
		r.publishLocked()
		return ge
	}

	r.geo = &pos
	r.errMsg = ""
	r.publishLocked()
	return nil
}

// State returns the current derived state.
func (r *Resolver) State() State {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.stateLocked()
}

// Center returns the current map center.
func (r *Resolver) Center() record.Position {
	return r.State().Center
}

// Pending returns the coordinate awaiting a new record, if the current route
// is the creation view and carries one.
func (r *Resolver) Pending() (record.Position, bool) {
	st := r.State()
	if st.Pending == nil {
		return record.Position{}, false
	}
	return *st.Pending, true
}

// Subscribe registers fn to receive every new State.
func (r *Resolver) Subscribe(fn func(State)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.observers = append(r.observers, fn)
}

func (r *Resolver) stateLocked() State {
	st := State{
		Route:    r.rawRoute,
		Locating: r.latestApplied < r.issued,
		Error:    r.errMsg,
	}

	var fromURL *record.Position
	if p, ok := r.route.Position(); ok {
		fromURL = &p
		if r.route.IsFormView() {
			pending := p
			st.Pending = &pending
		}
	}
	if r.geo != nil {
		geo := *r.geo
		st.Geolocation = &geo
	}
	st.Center = ResolveCenter(st.Geolocation, fromURL)
	return st
}

// publishLocked computes the state, releases mu and notifies observers.
func (r *Resolver) publishLocked() {
	st := r.stateLocked()
	observers := append([]func(State){}, r.observers...)
	r.mu.Unlock()

	for _, fn := range observers {
		fn(st)
	}
}
