package cities

import (
	"context"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/triplog/internal/record"
	"github.com/roach88/triplog/internal/remote"
	fake "github.com/roach88/triplog/internal/testutil"
)

func parisRecord() record.Record {
	return record.Record{
		ID:        "1",
		Name:      "Paris",
		Country:   "France",
		Emoji:     "\U0001F1EB\U0001F1F7",
		VisitedOn: record.NewDate(time.Date(2027, 2, 12, 0, 0, 0, 0, time.UTC)),
		Position:  record.Position{Lat: 48.85, Lng: 2.35},
	}
}

func romeCandidate() record.Record {
	return record.Record{
		Name:      "Rome",
		Country:   "Italy",
		Emoji:     "\U0001F1EE\U0001F1F9",
		VisitedOn: record.NewDate(time.Date(2027, 5, 1, 0, 0, 0, 0, time.UTC)),
		Position:  record.Position{Lat: 41.9, Lng: 12.5},
	}
}

func newHTTPStore(t *testing.T, seed ...record.Record) (*Store, *fake.CitiesServer) {
	t.Helper()
	srv := fake.NewCitiesServer(t, seed...)
	return NewStore(remote.New(srv.URL)), srv
}

func TestStore_Load(t *testing.T) {
	s, srv := newHTTPStore(t, parisRecord())

	require.NoError(t, s.Load(context.Background()))

	snap := s.Snapshot()
	assert.Equal(t, []record.Record{parisRecord()}, snap.Records)
	assert.False(t, snap.Loading)
	assert.Empty(t, snap.Error)
	assert.Equal(t, 1, srv.Calls("list"))
}

func TestStore_Load_Failure(t *testing.T) {
	s, srv := newHTTPStore(t, parisRecord())
	srv.FailWith("list", http.StatusInternalServerError)

	err := s.Load(context.Background())
	require.Error(t, err)
	assert.True(t, remote.IsTransportError(err))

	snap := s.Snapshot()
	assert.Equal(t, MsgFetchCities, snap.Error)
	assert.False(t, snap.Loading)
	assert.Nil(t, snap.Records)
}

func TestStore_Create(t *testing.T) {
	s, srv := newHTTPStore(t)
	srv.SetNextID(7)
	ctx := context.Background()
	require.NoError(t, s.Load(ctx))

	created, err := s.Create(ctx, romeCandidate())
	require.NoError(t, err)
	assert.Equal(t, "7", created.ID)

	snap := s.Snapshot()
	require.Len(t, snap.Records, 1)
	assert.Equal(t, "7", snap.Records[0].ID)
	require.NotNil(t, snap.Current)
	assert.Equal(t, "7", snap.Current.ID)
	assert.False(t, snap.Loading)
}

func TestStore_Create_UndatedCandidate(t *testing.T) {
	s, srv := newHTTPStore(t)
	srv.SetNextID(7)

	created, err := s.Create(context.Background(), record.Record{
		Name:     "Rome",
		Position: record.Position{Lat: 41.9, Lng: 12.5},
	})
	require.NoError(t, err)
	assert.Equal(t, "7", created.ID)
	assert.True(t, created.VisitedOn.IsZero())
	assert.Equal(t, 1, srv.Calls("create"))

	cur, ok := s.Current()
	require.True(t, ok)
	assert.Equal(t, "7", cur.ID)
	assert.Empty(t, s.Err())
}

func TestStore_Create_UsesServerCopy(t *testing.T) {
	srv := fake.NewCitiesServer(t)
	srv.RespondRaw("create", `{"id":"7","cityName":"Roma","country":"Italia","position":{"lat":"41.9","lng":"12.5"}}`)
	s := NewStore(remote.New(srv.URL))

	_, err := s.Create(context.Background(), romeCandidate())
	require.NoError(t, err)

	cur, ok := s.Current()
	require.True(t, ok)
	assert.Equal(t, "Roma", cur.Name)
	assert.Equal(t, "Italia", cur.Country)
}

func TestStore_Create_InvalidCandidateSkipsNetwork(t *testing.T) {
	s, srv := newHTTPStore(t, parisRecord())
	ctx := context.Background()
	require.NoError(t, s.Load(ctx))

	candidate := romeCandidate()
	candidate.Name = "  "
	_, err := s.Create(ctx, candidate)
	require.Error(t, err)
	assert.True(t, record.IsValidationError(err))

	assert.Equal(t, 0, srv.Calls("create"))
	snap := s.Snapshot()
	assert.Equal(t, "Invalid city: a city name is required", snap.Error)
	assert.Equal(t, []record.Record{parisRecord()}, snap.Records)
}

func TestStore_Create_FailurePreservesRecords(t *testing.T) {
	s, srv := newHTTPStore(t, parisRecord())
	ctx := context.Background()
	require.NoError(t, s.Load(ctx))
	require.NoError(t, s.Get(ctx, "1"))
	srv.FailWith("create", http.StatusServiceUnavailable)

	_, err := s.Create(ctx, romeCandidate())
	require.Error(t, err)

	snap := s.Snapshot()
	assert.Equal(t, MsgCreateCity, snap.Error)
	assert.Equal(t, []record.Record{parisRecord()}, snap.Records)
	require.NotNil(t, snap.Current)
	assert.Equal(t, "1", snap.Current.ID)
}

func TestStore_Get_MemoIssuesNoRequest(t *testing.T) {
	s, srv := newHTTPStore(t, parisRecord())
	ctx := context.Background()

	require.NoError(t, s.Get(ctx, "1"))
	calls := srv.TotalCalls()
	applied := s.Applied()

	require.NoError(t, s.Get(ctx, "1"))
	require.NoError(t, s.Get(ctx, "1"))
	assert.Equal(t, calls, srv.TotalCalls())
	assert.Equal(t, applied, s.Applied())
}

func TestStore_Get_NotFound(t *testing.T) {
	s, _ := newHTTPStore(t, parisRecord())
	ctx := context.Background()
	require.NoError(t, s.Get(ctx, "1"))

	err := s.Get(ctx, "42")
	assert.True(t, remote.IsNotFound(err))

	snap := s.Snapshot()
	assert.Equal(t, MsgFetchCity, snap.Error)
	require.NotNil(t, snap.Current)
	assert.Equal(t, "1", snap.Current.ID)
}

func TestStore_Delete(t *testing.T) {
	s, srv := newHTTPStore(t, parisRecord())
	ctx := context.Background()
	require.NoError(t, s.Load(ctx))
	require.NoError(t, s.Get(ctx, "1"))

	require.NoError(t, s.Delete(ctx, "1"))

	snap := s.Snapshot()
	assert.Empty(t, snap.Records)
	assert.Nil(t, snap.Current)
	assert.Empty(t, srv.Records())
}

func TestStore_Delete_FailureKeepsRecord(t *testing.T) {
	s, srv := newHTTPStore(t, parisRecord())
	ctx := context.Background()
	require.NoError(t, s.Load(ctx))
	srv.FailWith("delete", http.StatusInternalServerError)

	require.Error(t, s.Delete(ctx, "1"))

	snap := s.Snapshot()
	assert.Equal(t, MsgDeleteCity, snap.Error)
	assert.Len(t, snap.Records, 1)
}

func TestStore_Subscribe(t *testing.T) {
	s, _ := newHTTPStore(t, parisRecord())

	var kinds []bool
	var seqs []int64
	unsubscribe := s.Subscribe(func(seq int64, st State) {
		seqs = append(seqs, seq)
		kinds = append(kinds, st.Loading)
	})

	require.NoError(t, s.Load(context.Background()))
	assert.Equal(t, []int64{1, 2}, seqs)
	assert.Equal(t, []bool{true, false}, kinds)

	unsubscribe()
	require.NoError(t, s.Get(context.Background(), "1"))
	assert.Len(t, seqs, 2)
}

func TestStore_ObserverMayReadSnapshot(t *testing.T) {
	s, _ := newHTTPStore(t, parisRecord())

	var seen []int
	s.Subscribe(func(_ int64, _ State) {
		seen = append(seen, len(s.Snapshot().Records))
	})

	require.NoError(t, s.Load(context.Background()))
	assert.Equal(t, []int{0, 1}, seen)
}

func TestStore_PanickingObserverDoesNotBlockLaterActions(t *testing.T) {
	s, _ := newHTTPStore(t, parisRecord())

	var calls int
	s.Subscribe(func(int64, State) {
		calls++
		if calls == 1 {
			panic("observer failed")
		}
	})

	assert.Panics(t, func() { _ = s.Load(context.Background()) })
	assert.Equal(t, int64(1), s.Applied())

	done := make(chan error, 1)
	go func() { done <- s.Load(context.Background()) }()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("Load blocked after an observer panic")
	}
	assert.Equal(t, int64(3), s.Applied())
	assert.Equal(t, 3, calls)
	assert.Equal(t, []record.Record{parisRecord()}, s.Records())
}

type recordingJournal struct {
	mu      sync.Mutex
	seqs    []int64
	actions []Action
}

func (j *recordingJournal) Append(ctx context.Context, seq int64, a Action) error {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.seqs = append(j.seqs, seq)
	j.actions = append(j.actions, a)
	return ctx.Err()
}

func TestStore_JournalReproducesState(t *testing.T) {
	srv := fake.NewCitiesServer(t, parisRecord())
	j := &recordingJournal{}
	s := NewStore(remote.New(srv.URL), WithJournal(j))
	ctx := context.Background()

	require.NoError(t, s.Load(ctx))
	_, err := s.Create(ctx, romeCandidate())
	require.NoError(t, err)
	require.NoError(t, s.Delete(ctx, "1"))
	require.Error(t, s.Get(ctx, "1"))

	assert.Equal(t, []int64{1, 2, 3, 4, 5, 6, 7, 8}, j.seqs)
	assert.Equal(t, s.Snapshot(), Fold(j.actions))
}

// gatedCollection blocks each Get until the test releases it.
type gatedCollection struct {
	started chan record.ID
	release map[record.ID]chan struct{}
}

func newGatedCollection(ids ...record.ID) *gatedCollection {
	g := &gatedCollection{
		started: make(chan record.ID, len(ids)),
		release: make(map[record.ID]chan struct{}),
	}
	for _, id := range ids {
		g.release[id] = make(chan struct{})
	}
	return g
}

func (g *gatedCollection) List(context.Context) ([]record.Record, error) {
	return []record.Record{}, nil
}

func (g *gatedCollection) Get(ctx context.Context, id record.ID) (record.Record, error) {
	g.started <- id
	select {
	case <-g.release[id]:
		return record.Record{ID: id, Name: "city " + id}, nil
	case <-ctx.Done():
		return record.Record{}, ctx.Err()
	}
}

func (g *gatedCollection) Create(_ context.Context, r record.Record) (record.Record, error) {
	r.ID = "new"
	return r, nil
}

func (g *gatedCollection) Delete(context.Context, record.ID) error {
	return nil
}

func TestStore_Get_OutOfOrderResultsKeepLatestIssued(t *testing.T) {
	g := newGatedCollection("1", "2")
	s := NewStore(g)
	ctx := context.Background()

	done := make(chan error, 2)
	go func() { done <- s.Get(ctx, "1") }()
	require.Equal(t, record.ID("1"), <-g.started)
	go func() { done <- s.Get(ctx, "2") }()
	require.Equal(t, record.ID("2"), <-g.started)

	// the later request lands first
	close(g.release["2"])
	require.NoError(t, <-done)
	close(g.release["1"])
	require.NoError(t, <-done)

	cur, ok := s.Current()
	require.True(t, ok)
	assert.Equal(t, "2", cur.ID)
	assert.False(t, s.Loading())
}

func TestStore_Get_StaleAfterDelete(t *testing.T) {
	g := newGatedCollection("1")
	s := NewStore(g)
	ctx := context.Background()

	done := make(chan error, 1)
	go func() { done <- s.Get(ctx, "1") }()
	<-g.started

	require.NoError(t, s.Delete(ctx, "9"))
	close(g.release["1"])
	require.NoError(t, <-done)

	_, ok := s.Current()
	assert.False(t, ok, "a get issued before the delete must not resurrect a current record")
}

func TestStore_Close_DropsLateResults(t *testing.T) {
	g := newGatedCollection("1")
	s := NewStore(g)
	ctx := context.Background()

	var notified int
	s.Subscribe(func(int64, State) { notified++ })

	done := make(chan error, 1)
	go func() { done <- s.Get(ctx, "1") }()
	<-g.started
	applied := s.Applied()

	s.Close()
	close(g.release["1"])
	require.NoError(t, <-done)

	assert.Equal(t, applied, s.Applied())
	_, ok := s.Current()
	assert.False(t, ok)
	assert.Equal(t, 1, notified)

	assert.ErrorIs(t, s.Load(ctx), ErrClosed)
	assert.ErrorIs(t, s.Delete(ctx, "1"), ErrClosed)
	_, err := s.Create(ctx, romeCandidate())
	assert.ErrorIs(t, err, ErrClosed)
}
