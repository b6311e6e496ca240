package engine

import (
	"github.com/arenaludo/ludo-server/internal/shared/constants"
	"github.com/arenaludo/ludo-server/internal/shared/models"
)

// MoveResult describes what a completed move caused, for the Room
// Actor to turn into a TurnLogEntry and an outbound broadcast.
type MoveResult struct {
	FromPosition     int
	ToPosition       int
	CapturedPieceIDs []int
	Finished         bool
	BonusTurn        bool
	Won              bool
}

// MovePiece validates and applies moving pieceID by the game's current
// dice value, then runs post-move turn arbitration (§4.1): win check,
// bonus turn, or advance seat.
func MovePiece(g *models.Game, userID string, pieceID int) (MoveResult, error) {
	if g.Status != constants.StatusPlaying {
		return MoveResult{}, ErrNotPlaying
	}
	cur := g.CurrentPlayer()
	if cur == nil || cur.ID != userID {
		return MoveResult{}, ErrNotYourTurn
	}
	if g.Dice == nil {
		return MoveResult{}, ErrDiceNotRolled
	}
	d := *g.Dice

	idx := -1
	for i, p := range cur.Pieces {
		if p.ID == pieceID {
			idx = i
			break
		}
	}
	if idx == -1 {
		return MoveResult{}, ErrPieceNotFound
	}

	piece := cur.Pieces[idx]
	newPos, newState, movable := computeMove(cur.Color, piece, d)
	if !movable {
		return MoveResult{}, ErrPieceNotMovable
	}

	res := MoveResult{FromPosition: piece.Position, ToPosition: newPos}
	cur.Pieces[idx].Position = newPos
	cur.Pieces[idx].State = newState
	res.Finished = newState == constants.PieceFinished

	if newState != constants.PieceFinished {
		res.CapturedPieceIDs = applyCapture(g, cur.Color, newPos)
	}

	g.Dice = nil
	g.Movable = nil

	if res.Finished && allFinished(cur) {
		cur.HasFinished = true
		winner := cur.ID
		g.Winner = &winner
		g.Status = constants.StatusFinished
		res.Won = true
		return res, nil
	}

	if d == constants.RollForExtraTurn || len(res.CapturedPieceIDs) > 0 || res.Finished {
		res.BonusTurn = true
		g.TurnSecondsLeft = constants.TurnLimitSeconds
		return res, nil
	}

	AdvanceSeat(g)
	return res, nil
}
