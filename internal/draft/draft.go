// Package draft holds the record creation form: it turns the pending map
// coordinate into an editable draft via reverse geocoding and submits the
// finished draft to the collection.
package draft

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/roach88/triplog/internal/geocode"
	"github.com/roach88/triplog/internal/record"
)

var (
	// ErrNoPosition means no coordinate is pending.
	ErrNoPosition = errors.New("start by clicking somewhere on the map")

	// ErrIncomplete means the draft lacks a name or a visit date.
	ErrIncomplete = errors.New("a city name and a visit date are required")
)

// Geocoder resolves a coordinate into place metadata.
// Implemented by *geocode.Client.
type Geocoder interface {
	Resolve(ctx context.Context, p record.Position) (geocode.Place, error)
}

// Creator persists a new record. Implemented by *cities.Store.
type Creator interface {
	Create(ctx context.Context, candidate record.Record) (record.Record, error)
}

// Draft is the editable content of the creation form.
type Draft struct {
	Position  record.Position
	Name      string
	Country   string
	Emoji     string
	VisitedOn record.Date
	Notes     string
}

// Record converts the draft into a creation candidate.
func (d Draft) Record() record.Record {
	return record.Record{
		Name:      d.Name,
		Country:   d.Country,
		Emoji:     d.Emoji,
		VisitedOn: d.VisitedOn,
		Notes:     d.Notes,
		Position:  d.Position,
	}
}

// State is what the form renders.
type State struct {
	Geocoding bool
	Error     string
	Draft     *Draft
}

// Form drives one creation view.
type Form struct {
	geocoder Geocoder
	creator  Creator
	now      func() time.Time
	logger   *slog.Logger

	mu    sync.Mutex
	state State
}

// Option configures a Form.
type Option func(*Form)

// WithLogger sets the logger. Defaults to slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(f *Form) {
		if l != nil {
			f.logger = l
		}
	}
}

// New creates a Form. now supplies the default visit date; nil means time.Now.
func New(geocoder Geocoder, creator Creator, now func() time.Time, opts ...Option) *Form {
	if now == nil {
		now = time.Now
	}
	f := &Form{
		geocoder: geocoder,
		creator:  creator,
		now:      now,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// State returns a copy of the form state.
func (f *Form) State() State {
	f.mu.Lock()
	defer f.mu.Unlock()
	st := f.state
	if st.Draft != nil {
		d := *st.Draft
		st.Draft = &d
	}
	return st
}

// Prepare reverse-geocodes pending and prefills a draft dated today.
//
// Unresolvable points fail with a *geocode.DomainError; the form error then
// asks the user to pick another point. The collection is never touched.
func (f *Form) Prepare(ctx context.Context, pending *record.Position) (Draft, error) {
	if pending == nil {
		f.set(State{Error: ErrNoPosition.Error()})
		return Draft{}, ErrNoPosition
	}

	f.set(State{Geocoding: true})
	place, err := f.geocoder.Resolve(ctx, *pending)
	if err != nil {
		f.set(State{Error: Message(err)})
		f.logger.Debug("draft geocoding failed", "position", pending.String(), "error", err)
		return Draft{}, err
	}

	d := Draft{
		Position:  *pending,
		Name:      place.Name,
		Country:   place.Country,
		Emoji:     place.Emoji,
		VisitedOn: record.NewDate(f.now()),
	}
	f.set(State{Draft: &d})
	return d, nil
}

// Submit creates the record described by d. An incomplete draft is refused
// without any network call.
func (f *Form) Submit(ctx context.Context, d Draft) (record.Record, error) {
	if strings.TrimSpace(d.Name) == "" || d.VisitedOn.IsZero() {
		return record.Record{}, ErrIncomplete
	}
	created, err := f.creator.Create(ctx, d.Record())
	if err != nil {
		return record.Record{}, fmt.Errorf("submit draft: %w", err)
	}
	return created, nil
}

// Message renders a Prepare failure for display.
func Message(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrNoPosition):
		return "Start by clicking somewhere on the map"
	case geocode.IsDomainError(err):
		return "That doesn't seem to be a city. Click somewhere else!"
	default:
		return "Could not look up this location: " + err.Error()
	}
}

func (f *Form) set(st State) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.state = st
}
