package registry

import (
	"context"
	"io"
	"log"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/arenaludo/ludo-server/internal/ports/clock"
	"github.com/arenaludo/ludo-server/internal/ports/persistence"
	"github.com/arenaludo/ludo-server/internal/ports/random"
)

func discardLogger() *log.Logger { return log.New(io.Discard, "", 0) }

// fakeStore is a Store double whose LookupTournament answer is fixed
// per test, so Resolve's three branches (manual, tournament, completed)
// can each be exercised without a database.
type fakeStore struct {
	persistence.Noop
	tournament persistence.Tournament
	err        error
}

func (s fakeStore) LookupTournament(context.Context, string) (persistence.Tournament, error) {
	if s.err != nil {
		return persistence.Tournament{}, s.err
	}
	return s.tournament, nil
}

func newRegistry(store persistence.Store) *Registry {
	return New(clock.NewMock(), random.NewFixed(6), store, discardLogger())
}

func TestResolveCreatesManualRoomWhenNoTournamentRow(t *testing.T) {
	reg := newRegistry(fakeStore{err: persistence.ErrTournamentNotFound})

	a, err := reg.Resolve(context.Background(), "abcd", "host-1")
	require.NoError(t, err)
	require.NotNil(t, a)
	require.Equal(t, 1, reg.Count())
}

func TestResolveIsIdempotentForSameCode(t *testing.T) {
	reg := newRegistry(fakeStore{err: persistence.ErrTournamentNotFound})

	a1, err := reg.Resolve(context.Background(), "same", "host-1")
	require.NoError(t, err)
	a2, err := reg.Resolve(context.Background(), "SAME", "host-2")
	require.NoError(t, err)

	require.Same(t, a1, a2, "room codes are case-insensitive and map to one Actor")
	require.Equal(t, 1, reg.Count())
}

func TestResolveCreatesTournamentRoom(t *testing.T) {
	store := fakeStore{tournament: persistence.Tournament{
		ID: "t-1", RoomCode: "TOUR1", MaxPlayers: 4, EntryFee: 100, Status: "ACTIVE",
	}}
	reg := newRegistry(store)

	a, err := reg.Resolve(context.Background(), "tour1", "u1")
	require.NoError(t, err)
	require.NotNil(t, a)
}

func TestResolveRejectsCompletedTournament(t *testing.T) {
	store := fakeStore{tournament: persistence.Tournament{
		ID: "t-2", RoomCode: "DONE1", Status: "COMPLETED",
	}}
	reg := newRegistry(store)

	_, err := reg.Resolve(context.Background(), "done1", "u1")
	require.ErrorIs(t, err, ErrTournamentCompleted)
	require.Equal(t, 0, reg.Count())
}

func TestOnEvictedRemovesRoomFromMap(t *testing.T) {
	reg := newRegistry(fakeStore{err: persistence.ErrTournamentNotFound})
	_, err := reg.Resolve(context.Background(), "gone1", "host-1")
	require.NoError(t, err)
	require.Equal(t, 1, reg.Count())

	reg.onEvicted("GONE1")
	require.Equal(t, 0, reg.Count())
}
