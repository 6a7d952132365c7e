package cities

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/triplog/internal/record"
)

func TestActionKinds(t *testing.T) {
	assert.Equal(t, Kind("loading"), Loading{}.Kind())
	assert.Equal(t, Kind("cities/loaded"), CollectionLoaded{}.Kind())
	assert.Equal(t, Kind("city/loaded"), RecordLoaded{}.Kind())
	assert.Equal(t, Kind("city/created"), RecordCreated{}.Kind())
	assert.Equal(t, Kind("city/deleted"), RecordDeleted{}.Kind())
	assert.Equal(t, Kind("rejected"), Rejected{}.Kind())
}

func TestEncodeAction_PayloadShape(t *testing.T) {
	b, err := EncodeAction(RecordDeleted{ID: "7"})
	require.NoError(t, err)
	assert.JSONEq(t, `{"id":"7"}`, string(b))

	b, err = EncodeAction(Loading{})
	require.NoError(t, err)
	assert.JSONEq(t, `{}`, string(b))

	_, err = EncodeAction(nil)
	assert.Error(t, err)
}

func TestDecodeAction_RebuildsState(t *testing.T) {
	live := []Action{
		Loading{},
		CollectionLoaded{Records: []record.Record{{ID: "1", Name: "Paris", Position: record.Position{Lat: 48.85, Lng: 2.35}}}},
		Loading{},
		RecordCreated{Record: record.Record{ID: "7", Name: "Rome", Position: record.Position{Lat: 41.9, Lng: 12.5}}},
		Rejected{Message: MsgDeleteCity},
	}

	var decoded []Action
	for _, a := range live {
		payload, err := EncodeAction(a)
		require.NoError(t, err)
		d, err := DecodeAction(a.Kind(), payload)
		require.NoError(t, err)
		decoded = append(decoded, d)
	}

	assert.Equal(t, Fold(live), Fold(decoded))
}

func TestDecodeAction_Errors(t *testing.T) {
	_, err := DecodeAction("city/renamed", []byte(`{}`))
	assert.ErrorContains(t, err, "unknown kind")

	_, err = DecodeAction(KindRejected, []byte(`{"message":`))
	assert.ErrorContains(t, err, "decode rejected")
}
