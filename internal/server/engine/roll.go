package engine

import (
	"github.com/arenaludo/ludo-server/internal/ports/random"
	"github.com/arenaludo/ludo-server/internal/shared/constants"
	"github.com/arenaludo/ludo-server/internal/shared/models"
)

// RollOutcome tells the caller (Turn Controller) what happened to a
// completed roll and, crucially, never advances the seat itself —
// seat transitions always go through AdvanceSeat so every timer-driven
// state change lives in one place.
type RollOutcome int

const (
	// RollNormal: dice set, movable computed (possibly empty).
	RollNormal RollOutcome = iota
	// RollNoLegalMove: dice set but no piece can move; the caller
	// should schedule AdvanceSeat after the no-move settle delay.
	RollNoLegalMove
	// RollThreeSixPenalty: the roll is forfeited outright (no move ever
	// offered); the caller schedules AdvanceSeat after the same settle
	// delay as RollNoLegalMove.
	RollThreeSixPenalty
)

// InitiateRoll begins a roll for the seat's current player, iff it is
// their turn and no dice is pending.
func InitiateRoll(g *models.Game, userID string) error {
	if g.Status != constants.StatusPlaying {
		return ErrNotPlaying
	}
	cur := g.CurrentPlayer()
	if cur == nil || cur.ID != userID {
		return ErrNotYourTurn
	}
	if g.Dice != nil {
		return ErrRollInFlight
	}
	if g.IsRolling {
		return ErrRollInFlight
	}
	g.IsRolling = true
	return nil
}

// CompleteRoll draws a dice value via rng (applying pity-six), updates
// the pity and three-sixes counters, and either populates dice/movable
// or reports the roll was forfeited/dead.
func CompleteRoll(g *models.Game, rng random.Random) (RollOutcome, error) {
	if g.Status != constants.StatusPlaying {
		return RollNormal, ErrNotPlaying
	}
	cur := g.CurrentPlayer()
	if cur == nil {
		return RollNormal, ErrNotYourTurn
	}
	if !g.IsRolling {
		return RollNormal, ErrNoRollInFlight
	}
	g.IsRolling = false

	d := rollValue(cur, rng)

	if d == constants.RollForExtraTurn {
		cur.ConsecutiveSixes++
	} else {
		cur.ConsecutiveSixes = 0
	}
	if cur.ConsecutiveSixes == constants.MaxConsecutiveSix {
		g.Dice = nil
		g.Movable = nil
		return RollThreeSixPenalty, nil
	}

	g.Dice = &d
	g.Movable = MovableSet(g, d)
	if len(g.Movable) == 0 {
		return RollNoLegalMove, nil
	}
	return RollNormal, nil
}

// rollValue samples a dice value for cur, forcing a six under the
// pity rule and otherwise delegating to rng; it also maintains the
// rollsWithoutSixWhenAllHome counter.
func rollValue(cur *models.Player, rng random.Random) int {
	pity := allHome(cur) && cur.RollsWithoutSixWhenAllHome >= constants.PitySixThreshold

	var d int
	if pity {
		d = constants.RollForExtraTurn
	} else {
		d = rng.IntInRange(constants.DiceMin, constants.DiceMax)
	}

	if d == constants.RollForExtraTurn {
		cur.RollsWithoutSixWhenAllHome = 0
	} else if allHome(cur) {
		cur.RollsWithoutSixWhenAllHome++
	}
	return d
}
