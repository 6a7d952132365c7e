package cities

import (
	"github.com/roach88/triplog/internal/record"
)

// State is the in-memory view of the remote collection for one session.
type State struct {
	// Records is in insertion order, which is also display order.
	Records []record.Record

	// Current is the last record fetched, created or nil.
	Current *record.Record

	// Loading is set when a request starts and cleared by any result.
	Loading bool

	// Error is the message of the last failed request. Successful requests
	// do not clear it.
	Error string
}

// Clone returns a deep copy. Slices and pointers are never shared.
func (s State) Clone() State {
	out := s
	out.Records = cloneRecords(s.Records)
	if s.Current != nil {
		cur := *s.Current
		out.Current = &cur
	}
	return out
}

// Find returns the record with id, if present.
func (s State) Find(id record.ID) (record.Record, bool) {
	for _, r := range s.Records {
		if r.ID == id {
			return r, true
		}
	}
	return record.Record{}, false
}

// Reduce applies one action and returns the next state. It never mutates s:
// any slice that changes is freshly allocated.
func Reduce(s State, a Action) State {
	switch a := a.(type) {
	case Loading:
		s.Loading = true
	case CollectionLoaded:
		s.Records = cloneRecords(a.Records)
		s.Loading = false
	case RecordLoaded:
		rec := a.Record
		s.Current = &rec
		s.Loading = false
	case RecordCreated:
		next := make([]record.Record, len(s.Records), len(s.Records)+1)
		copy(next, s.Records)
		s.Records = append(next, a.Record)
		rec := a.Record
		s.Current = &rec
		s.Loading = false
	case RecordDeleted:
		next := make([]record.Record, 0, len(s.Records))
		for _, r := range s.Records {
			if r.ID != a.ID {
				next = append(next, r)
			}
		}
		if s.Records != nil {
			s.Records = next
		}
		s.Current = nil
		s.Loading = false
	case Rejected:
		s.Error = a.Message
		s.Loading = false
	}
	return s
}

// Fold applies actions in order starting from the zero State.
func Fold(actions []Action) State {
	var s State
	for _, a := range actions {
		s = Reduce(s, a)
	}
	return s
}

func cloneRecords(in []record.Record) []record.Record {
	if in == nil {
		return nil
	}
	out := make([]record.Record, len(in))
	copy(out, in)
	return out
}
