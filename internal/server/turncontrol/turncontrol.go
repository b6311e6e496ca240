// Package turncontrol is the Turn Controller (§4.2): the policy for
// when a room's per-second tick becomes a missed-turn signal, and when
// a completed roll's dice-resolution and no-move settle delays expire.
// The Room Actor owns the actual timers (so every firing stays inside
// its single command inbox); this package is the pure policy it
// consults, kept separate from the Rule Engine because it reasons
// about elapsed time, not board state.
package turncontrol

import "github.com/arenaludo/ludo-server/internal/shared/constants"

// Delays bundles the three timer durations the Room Actor schedules
// through the Clock port. Expressed as a struct (rather than bare
// constants) so tests can shrink them without touching production
// values.
type Delays struct {
	DiceResolveMillis  int
	NoMoveSettleMillis int
	AutoStartSecs      int
}

// Default returns the timer durations specified in §4.2/§4.3.
func Default() Delays {
	return Delays{
		DiceResolveMillis:  constants.DiceResolveDelayMillis,
		NoMoveSettleMillis: constants.NoMoveSettleDelayMillis,
		AutoStartSecs:      constants.AutoStartDelaySecs,
	}
}

// ShouldTick reports whether the per-second countdown should advance:
// only while the game is playing and no roll is in flight (§4.2 — "no
// dice roll is in flight"). Once a roll resolves and dice is set, the
// clock keeps counting down toward a missed-turn forfeiture even
// though the player hasn't moved yet — freezing it there would let a
// player who rolls and never moves hold the seat (and the room, since
// only one seat plays at a time) hostage indefinitely.
func ShouldTick(status constants.GameStatus, isRolling bool) bool {
	return status == constants.StatusPlaying && !isRolling
}

// TurnExpired reports whether a decremented countdown has reached the
// missed-turn threshold.
func TurnExpired(turnSecondsLeft int) bool {
	return turnSecondsLeft <= 0
}

// ShouldBroadcastTick reports whether an idle tick (no state change
// beyond the countdown) should still fan out a snapshot, per the
// reduced 5-second cadence in §4.3.
func ShouldBroadcastTick(ticksSinceLastBroadcast int) bool {
	return ticksSinceLastBroadcast >= constants.TickBroadcastEvery
}
