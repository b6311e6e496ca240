package engine

import (
	"github.com/arenaludo/ludo-server/internal/shared/constants"
	"github.com/arenaludo/ludo-server/internal/shared/models"
)

// seatOrder returns the color sequence a room of this size seats
// players into, in join order.
func seatOrder(maxPlayers int) []constants.Color {
	if maxPlayers <= 2 {
		return constants.TwoPlayerOrder
	}
	return constants.FourPlayerOrder
}

// AddPlayer seats a new player during setup, assigning the next color
// in join order.
func AddPlayer(g *models.Game, userID, name string) (*models.Player, error) {
	if g.Status != constants.StatusSetup {
		return nil, ErrAlreadyStarted
	}
	if len(g.Players) >= g.MaxPlayers {
		return nil, ErrGameFull
	}
	order := seatOrder(g.MaxPlayers)
	color := order[len(g.Players)]
	isHost := len(g.Players) == 0
	p := models.NewPlayer(userID, name, color, isHost)
	g.Players = append(g.Players, p)
	return p, nil
}

// StartGame transitions Setup → Playing, fixing playerOrder and the
// starting seat.
func StartGame(g *models.Game) error {
	if g.Status != constants.StatusSetup {
		return ErrAlreadyStarted
	}
	if len(g.Players) < constants.MinPlayers {
		return ErrTooFewPlayers
	}
	order := make([]constants.Color, 0, len(g.Players))
	for _, p := range g.Players {
		order = append(order, p.Color)
	}
	g.PlayerOrder = order
	g.Status = constants.StatusPlaying
	g.CurrentSeat = 0
	g.TurnSecondsLeft = constants.TurnLimitSeconds
	return nil
}

// AdvanceSeat moves currentSeat to the next player who is neither
// finished nor removed. If none remain, the game ends with no winner.
func AdvanceSeat(g *models.Game) {
	n := len(g.Players)
	if n == 0 {
		return
	}
	for i := 1; i <= n; i++ {
		idx := (g.CurrentSeat + i) % n
		p := g.Players[idx]
		if p.HasFinished || p.IsRemoved {
			continue
		}
		g.CurrentSeat = idx
		p.ConsecutiveSixes = 0
		g.Dice = nil
		g.Movable = nil
		g.IsRolling = false
		g.TurnSecondsLeft = constants.TurnLimitSeconds
		return
	}
	g.Status = constants.StatusFinished
	g.Winner = nil
}

// HandleMissedTurn is invoked by the Turn Controller when the timer
// reaches zero for the current seat: it increments the inactivity
// counter and either forfeits the seat (as Leave) at the threshold or
// simply advances.
func HandleMissedTurn(g *models.Game) {
	if g.Status != constants.StatusPlaying {
		return
	}
	cur := g.CurrentPlayer()
	if cur == nil {
		return
	}
	cur.InactiveTurns++
	if cur.InactiveTurns >= constants.MaxInactiveTurns {
		Leave(g, cur.ID)
		return
	}
	AdvanceSeat(g)
}

// Leave removes userID from play (idempotent), re-checks win-by-
// attrition, and advances the seat if the removed player held it.
func Leave(g *models.Game, userID string) {
	p := g.PlayerByID(userID)
	if p == nil || p.IsRemoved || p.HasFinished {
		return
	}
	p.IsRemoved = true

	if checkWinByAttrition(g) {
		return
	}
	if g.Status == constants.StatusPlaying && g.CurrentPlayer() != nil && g.CurrentPlayer().ID == userID {
		AdvanceSeat(g)
	}
}

// checkWinByAttrition declares a winner and finishes the game when
// exactly one player remains neither removed nor finished.
func checkWinByAttrition(g *models.Game) bool {
	if g.Status == constants.StatusFinished {
		return true
	}
	var remaining *models.Player
	count := 0
	for _, p := range g.Players {
		if !p.IsRemoved && !p.HasFinished {
			count++
			remaining = p
		}
	}
	if count == 1 && len(g.Players) > 1 {
		winner := remaining.ID
		g.Winner = &winner
		g.Status = constants.StatusFinished
		return true
	}
	return false
}
