// Package registry is the Room Registry (§4.5): the process-wide
// code → Room Actor map. Its only mutable shared state is that map,
// protected by a mutex held only across lookup/insert/delete, never
// across actor work (§5).
package registry

import (
	"context"
	"errors"
	"log"
	"strings"
	"sync"

	"github.com/arenaludo/ludo-server/internal/ports/clock"
	"github.com/arenaludo/ludo-server/internal/ports/persistence"
	"github.com/arenaludo/ludo-server/internal/ports/random"
	"github.com/arenaludo/ludo-server/internal/server/room"
	"github.com/arenaludo/ludo-server/internal/shared/constants"
	"github.com/arenaludo/ludo-server/internal/shared/logging"
	"github.com/arenaludo/ludo-server/internal/shared/models"
)

// ErrTournamentCompleted is returned when the code names a tournament
// whose status is COMPLETED; the caller closes with code 1011.
var ErrTournamentCompleted = errors.New("registry: tournament already completed")

// tournamentStatusCompleted mirrors the subset of tournament lifecycle the
// Registry cares about (§4.5 step 2/3).
const tournamentStatusCompleted = "COMPLETED"

type Registry struct {
	mu    sync.Mutex
	rooms map[string]*room.Actor

	clock clock.Clock
	rng   random.Random
	store persistence.Store
	log   *log.Logger
}

func New(clk clock.Clock, rng random.Random, store persistence.Store, logger *log.Logger) *Registry {
	return &Registry{
		rooms: make(map[string]*room.Actor),
		clock: clk,
		rng:   rng,
		store: store,
		log:   logger,
	}
}

// Resolve returns the Actor for code (uppercased), creating one on
// first reference per the §4.5 policy: tournament-seeded if a
// matching open tournament row exists, otherwise a permissive
// manual room hosted by the connecting user.
func (r *Registry) Resolve(ctx context.Context, rawCode, connectingUserID string) (*room.Actor, error) {
	code := strings.ToUpper(rawCode)

	r.mu.Lock()
	if a, ok := r.rooms[code]; ok {
		r.mu.Unlock()
		return a, nil
	}
	r.mu.Unlock()

	tournament, err := r.store.LookupTournament(ctx, code)
	switch {
	case err == nil:
		if tournament.Status == tournamentStatusCompleted {
			return nil, ErrTournamentCompleted
		}
		return r.createTournamentRoom(code, tournament)
	case errors.Is(err, persistence.ErrTournamentNotFound):
		return r.createManualRoom(code, connectingUserID)
	default:
		return nil, err
	}
}

func (r *Registry) createTournamentRoom(code string, t persistence.Tournament) (*room.Actor, error) {
	game := models.NewGame(code, constants.RoomTournament, t.MaxPlayers, "", t.ID)
	return r.register(code, game, t.EntryFee*int64(t.MaxPlayers)), nil
}

func (r *Registry) createManualRoom(code, hostID string) (*room.Actor, error) {
	game := models.NewGame(code, constants.RoomManual, constants.MaxPlayers, hostID, "")
	return r.register(code, game, 0), nil
}

func (r *Registry) register(code string, game *models.Game, prizeAmount int64) *room.Actor {
	r.mu.Lock()
	defer r.mu.Unlock()
	if a, ok := r.rooms[code]; ok {
		return a
	}
	a := room.New(code, game, r.clock, r.rng, r.store, r.log, r.onEvicted, prizeAmount)
	r.rooms[code] = a
	logging.Debug.Printf("registry: created room %s (type=%s)", code, game.Type)
	return a
}

// onEvicted is the Actor's EvictFunc: drop code from the map once the
// Actor has torn itself down.
func (r *Registry) onEvicted(code string) {
	r.mu.Lock()
	delete(r.rooms, code)
	r.mu.Unlock()
}

// Count returns the number of live rooms, for health/metrics surfaces.
func (r *Registry) Count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.rooms)
}
