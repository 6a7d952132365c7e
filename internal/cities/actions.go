package cities

import (
	"encoding/json"
	"fmt"

	"github.com/roach88/triplog/internal/record"
)

// Kind names an action on the wire and in the journal.
type Kind string

const (
	KindLoading          Kind = "loading"
	KindCollectionLoaded Kind = "cities/loaded"
	KindRecordLoaded     Kind = "city/loaded"
	KindRecordCreated    Kind = "city/created"
	KindRecordDeleted    Kind = "city/deleted"
	KindRejected         Kind = "rejected"
)

// Action is the sealed set of transitions accepted by Reduce.
// Only the types in this file implement it.
type Action interface {
	Kind() Kind
	action()
}

// Loading marks the start of a request.
type Loading struct{}

// CollectionLoaded replaces the whole collection.
type CollectionLoaded struct {
	Records []record.Record `json:"records"`
}

// RecordLoaded sets the current record after a single fetch.
type RecordLoaded struct {
	Record record.Record `json:"record"`
}

// RecordCreated appends the server's copy of a new record and makes it current.
type RecordCreated struct {
	Record record.Record `json:"record"`
}

// RecordDeleted removes a record by id and clears the current record.
type RecordDeleted struct {
	ID record.ID `json:"id"`
}

// Rejected records a failed request.
type Rejected struct {
	Message string `json:"message"`
}

func (Loading) Kind() Kind          { return KindLoading }
func (CollectionLoaded) Kind() Kind { return KindCollectionLoaded }
func (RecordLoaded) Kind() Kind     { return KindRecordLoaded }
func (RecordCreated) Kind() Kind    { return KindRecordCreated }
func (RecordDeleted) Kind() Kind    { return KindRecordDeleted }
func (Rejected) Kind() Kind         { return KindRejected }

func (Loading) action()          {}
func (CollectionLoaded) action() {}
func (RecordLoaded) action()     {}
func (RecordCreated) action()    {}
func (RecordDeleted) action()    {}
func (Rejected) action()         {}

// EncodeAction serializes the action payload. The kind travels separately.
func EncodeAction(a Action) ([]byte, error) {
	if a == nil {
		return nil, fmt.Errorf("encode action: nil action")
	}
	b, err := json.Marshal(a)
	if err != nil {
		return nil, fmt.Errorf("encode %s: %w", a.Kind(), err)
	}
	return b, nil
}

// DecodeAction rebuilds an action from its kind and payload.
func DecodeAction(kind Kind, payload []byte) (Action, error) {
	var (
		a   Action
		err error
	)
	switch kind {
	case KindLoading:
		a = Loading{}
	case KindCollectionLoaded:
		var v CollectionLoaded
		err = json.Unmarshal(payload, &v)
		a = v
	case KindRecordLoaded:
		var v RecordLoaded
		err = json.Unmarshal(payload, &v)
		a = v
	case KindRecordCreated:
		var v RecordCreated
		err = json.Unmarshal(payload, &v)
		a = v
	case KindRecordDeleted:
		var v RecordDeleted
		err = json.Unmarshal(payload, &v)
		a = v
	case KindRejected:
		var v Rejected
		err = json.Unmarshal(payload, &v)
		a = v
	default:
		return nil, fmt.Errorf("decode action: unknown kind %q", kind)
	}
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", kind, err)
	}
	return a, nil
}
