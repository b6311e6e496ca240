// Package persistence is the Persistence external port (§4.6):
// tournament lookup, best-effort chat/turn-log append, and idempotent
// balance credit. Implementations live outside the core; pkg/database
// provides the MySQL-backed one.
package persistence

import (
	"context"
	"errors"
	"time"

	"github.com/arenaludo/ludo-server/internal/shared/constants"
	"github.com/arenaludo/ludo-server/internal/shared/models"
)

// ErrTournamentNotFound is returned when a room code does not resolve
// to any tournament row.
var ErrTournamentNotFound = errors.New("persistence: tournament not found")

// Tournament describes a tournament-seeded room the registry can
// materialize into a Room Actor on first reference.
type Tournament struct {
	ID         string
	RoomCode   string
	MaxPlayers int
	EntryFee   int64
	Status     string // e.g. "ACTIVE", "COMPLETED"
}

// Store is the full Persistence port. Every method is best-effort from
// the Room Actor's point of view (§9): a Store failure is logged and
// never blocks gameplay.
type Store interface {
	// LookupTournament resolves a room code to its tournament row,
	// whatever its Status (a COMPLETED row is returned with a nil
	// error), or ErrTournamentNotFound if no tournament has that code.
	LookupTournament(ctx context.Context, roomCode string) (Tournament, error)

	// AppendChat persists one chat line for a tournament room's history.
	AppendChat(ctx context.Context, tournamentID string, entry models.ChatEntry) error

	// AppendTurnLog persists one structured turn event.
	AppendTurnLog(ctx context.Context, tournamentID string, entry models.TurnLogEntry) error

	// CreditWinner pays out a tournament's prize pool to the winning
	// user, keyed by idempotencyKey so a retried credit after a crash
	// never double-pays the same tournament.
	CreditWinner(ctx context.Context, tournamentID, userID string, amount int64, idempotencyKey string) error
}

// Noop is a Store that does nothing, for manual (non-tournament) rooms
// and for unit tests of packages that only need *a* Store to exist.
type Noop struct{}

func (Noop) LookupTournament(context.Context, string) (Tournament, error) {
	return Tournament{}, ErrTournamentNotFound
}
func (Noop) AppendChat(context.Context, string, models.ChatEntry) error        { return nil }
func (Noop) AppendTurnLog(context.Context, string, models.TurnLogEntry) error  { return nil }
func (Noop) CreditWinner(context.Context, string, string, int64, string) error { return nil }

// IdempotencyKey builds the deterministic key CreditWinner de-dupes on:
// one payout per tournament, regardless of retry count.
func IdempotencyKey(tournamentID string) string {
	return "tournament-payout:" + tournamentID
}

// DefaultTimeout bounds a single Store call so a slow database never
// stalls the Room Actor's command loop beyond the turn timer itself.
const DefaultTimeout = constants.TurnLimitSeconds * time.Second / 10
