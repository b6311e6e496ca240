package engine

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/arenaludo/ludo-server/internal/shared/constants"
)

func TestMovePieceFinishesInHomeStretch(t *testing.T) {
	g := newPlayingGame(t, "p1", "p2")
	cur := g.CurrentPlayer()
	cur.Pieces[0].State = constants.PieceActive
	cur.Pieces[0].Position = constants.FinishStart + 4 // one step from Finished
	g.Dice = intPtr(1)

	res, err := MovePiece(g, cur.ID, cur.Pieces[0].ID)
	require.NoError(t, err)
	require.True(t, res.Finished)
	require.Equal(t, constants.FinishPosition, cur.Pieces[0].Position)
	require.Equal(t, constants.PieceFinished, cur.Pieces[0].State)
	require.True(t, res.BonusTurn, "reaching Finished grants a bonus turn")
}

func TestMovePieceOvershootingFinishIsNotMovable(t *testing.T) {
	g := newPlayingGame(t, "p1", "p2")
	cur := g.CurrentPlayer()
	cur.Pieces[0].State = constants.PieceActive
	cur.Pieces[0].Position = constants.FinishStart + 4
	g.Dice = intPtr(4) // would land past FinishPosition

	_, err := MovePiece(g, cur.ID, cur.Pieces[0].ID)
	require.ErrorIs(t, err, ErrPieceNotMovable)
}

func TestMovePieceDeclaresWinnerWhenAllFourFinish(t *testing.T) {
	g := newPlayingGame(t, "p1", "p2")
	cur := g.CurrentPlayer()
	for i := 1; i < len(cur.Pieces); i++ {
		cur.Pieces[i].State = constants.PieceFinished
		cur.Pieces[i].Position = constants.FinishPosition
	}
	cur.Pieces[0].State = constants.PieceActive
	cur.Pieces[0].Position = constants.FinishStart + 4
	g.Dice = intPtr(1)

	res, err := MovePiece(g, cur.ID, cur.Pieces[0].ID)
	require.NoError(t, err)
	require.True(t, res.Won)
	require.Equal(t, constants.StatusFinished, g.Status)
	require.Equal(t, cur.ID, *g.Winner)
	require.True(t, cur.HasFinished)
}

func TestMovePieceAdvancesSeatWithoutBonus(t *testing.T) {
	g := newPlayingGame(t, "p1", "p2")
	cur := g.CurrentPlayer()
	cur.Pieces[0].State = constants.PieceActive
	cur.Pieces[0].Position = 1
	g.Dice = intPtr(3) // no capture, no finish, not a six

	_, err := MovePiece(g, cur.ID, cur.Pieces[0].ID)
	require.NoError(t, err)
	require.NotEqual(t, cur.ID, g.CurrentPlayer().ID)
}
