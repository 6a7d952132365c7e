package journal

import (
	"context"
	"fmt"

	"github.com/roach88/triplog/internal/cities"
)

// Replay folds the journaled actions of session through cities.Reduce.
// For a session recorded in full it reproduces the store's final state.
func (j *Journal) Replay(ctx context.Context, session string) (cities.State, error) {
	entries, err := j.Entries(ctx, session)
	if err != nil {
		return cities.State{}, fmt.Errorf("replay %s: %w", session, err)
	}

	var (
		state cities.State
		prev  int64
	)
	for _, e := range entries {
		if e.Seq <= prev {
			return cities.State{}, fmt.Errorf("replay %s: seq %d not after %d", session, e.Seq, prev)
		}
		prev = e.Seq

		a, err := e.Action()
		if err != nil {
			return cities.State{}, fmt.Errorf("replay %s: %w", session, err)
		}
		state = cities.Reduce(state, a)
	}
	return state, nil
}
