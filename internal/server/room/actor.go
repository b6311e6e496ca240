// Package room implements the Room Actor (§4.3): one goroutine per
// live game code, serializing every mutation through a command inbox
// so the Rule Engine never observes concurrent state.
package room

import (
	"context"
	"encoding/json"
	"log"
	"time"

	"github.com/arenaludo/ludo-server/internal/ports/clock"
	"github.com/arenaludo/ludo-server/internal/ports/persistence"
	"github.com/arenaludo/ludo-server/internal/ports/random"
	"github.com/arenaludo/ludo-server/internal/server/engine"
	"github.com/arenaludo/ludo-server/internal/server/turncontrol"
	"github.com/arenaludo/ludo-server/internal/shared/constants"
	"github.com/arenaludo/ludo-server/internal/shared/logging"
	"github.com/arenaludo/ludo-server/internal/shared/models"
	"github.com/arenaludo/ludo-server/internal/shared/protocol"
)

// Writer is the narrow surface a Session exposes to the Room Actor: a
// best-effort enqueue that tolerates the socket closing between
// enqueue and send (§4.4).
type Writer interface {
	Send(frame models.OutboundFrame)
}

// Command is the Room Actor's inbox vocabulary (§4.3).
type Command interface{ isCommand() }

type cmdJoin struct {
	UserID string
	Name   string
	Writer Writer
}
type cmdAction struct {
	UserID  string
	Kind    constants.ActionKind
	Payload json.RawMessage
}
type cmdLeave struct{ UserID string }
type cmdTick struct{}
type cmdEvict struct{}

func (cmdJoin) isCommand()   {}
func (cmdAction) isCommand() {}
func (cmdLeave) isCommand()  {}
func (cmdTick) isCommand()   {}
func (cmdEvict) isCommand()  {}

// EvictFunc notifies the Registry that this room's actor has torn
// itself down, so the Registry can drop it from the code map.
type EvictFunc func(code string)

// Actor owns one Game and its writer set. All exported methods are
// thin wrappers that post a Command onto inbox; only the run loop
// touches game, writers, or counters.
type Actor struct {
	code string

	inbox chan Command
	done  chan struct{}

	clock clock.Clock
	rng   random.Random
	store persistence.Store
	log   *log.Logger
	evict EvictFunc

	game           *models.Game
	writers        map[string]Writer // userId -> writer
	disconnects    map[string]clock.Timer
	emptyRoomTimer clock.Timer
	prizeAmount    int64
	delays         turncontrol.Delays
	torndown       bool

	tickTicker          clock.Ticker
	ticksSinceBroadcast int
}

// New constructs an Actor for a freshly created Game and starts its
// run loop in a background goroutine. prizeAmount is the tournament
// entry-fee pool to credit the winner (0 for manual rooms).
func New(code string, game *models.Game, clk clock.Clock, rng random.Random, store persistence.Store, logger *log.Logger, evict EvictFunc, prizeAmount int64) *Actor {
	a := &Actor{
		code:        code,
		inbox:       make(chan Command, 64),
		done:        make(chan struct{}),
		clock:       clk,
		rng:         rng,
		store:       store,
		log:         logger,
		evict:       evict,
		game:        game,
		writers:     make(map[string]Writer),
		disconnects: make(map[string]clock.Timer),
		prizeAmount: prizeAmount,
		delays:      turncontrol.Default(),
	}
	go a.run()
	return a
}

// Join posts a Join command (§4.3 table).
func (a *Actor) Join(userID, name string, w Writer) {
	a.post(cmdJoin{UserID: userID, Name: name, Writer: w})
}

// Action posts an Action command.
func (a *Actor) Action(userID string, kind constants.ActionKind, payload json.RawMessage) {
	a.post(cmdAction{UserID: userID, Kind: kind, Payload: payload})
}

// Leave posts a Leave command.
func (a *Actor) Leave(userID string) {
	a.post(cmdLeave{UserID: userID})
}

// Evict posts an Evict command (Registry-initiated teardown).
func (a *Actor) Evict() {
	a.post(cmdEvict{})
}

func (a *Actor) post(c Command) {
	select {
	case a.inbox <- c:
	case <-a.done:
	}
}

func (a *Actor) run() {
	a.tickTicker = a.clock.NewTicker(time.Second)
	defer a.tickTicker.Stop()

	for {
		select {
		case cmd := <-a.inbox:
			a.handle(cmd)
			if a.game.Status == constants.StatusFinished {
				a.scheduleEviction(constants.FinishedEvictionSecs * time.Second)
			}
		case <-a.tickTicker.Chan():
			a.handle(cmdTick{})
		case <-a.done:
			return
		}
	}
}

func (a *Actor) handle(cmd Command) {
	switch c := cmd.(type) {
	case cmdJoin:
		a.handleJoin(c)
	case cmdAction:
		a.handleAction(c)
	case cmdLeave:
		a.handleLeave(c)
	case cmdTick:
		a.handleTick()
	case cmdEvict:
		a.teardown()
	case cmdResolveRoll:
		a.handleResolveRoll()
	case cmdGraceExpired:
		a.handleGraceExpired(c)
	case cmdAutoStart:
		a.handleAutoStart()
	case cmdSettleNoMove:
		a.handleSettleNoMove()
	case cmdEmptyRoomExpired:
		a.handleEmptyRoomExpired()
	}
}

func (a *Actor) handleSettleNoMove() {
	if a.game.Status != constants.StatusPlaying {
		return
	}
	engine.AdvanceSeat(a.game)
	a.broadcast()
}

func (a *Actor) handleJoin(c cmdJoin) {
	p := a.game.PlayerByID(c.UserID)
	if p == nil {
		if a.game.Status != constants.StatusSetup {
			a.sendTo(c.Writer, errorFrame(constants.ErrGameFull))
			return
		}
		var err error
		p, err = engine.AddPlayer(a.game, c.UserID, c.Name)
		if err != nil {
			a.sendTo(c.Writer, errorFrame(constants.ErrGameFull))
			return
		}
	} else {
		p.Disconnected = false
		if t, ok := a.disconnects[c.UserID]; ok {
			t.Stop()
			delete(a.disconnects, c.UserID)
		}
	}

	a.writers[c.UserID] = c.Writer
	if a.emptyRoomTimer != nil {
		a.emptyRoomTimer.Stop()
		a.emptyRoomTimer = nil
	}
	logging.Debug.Printf("room %s: %s joined", a.code, c.UserID)
	a.sendTo(c.Writer, models.OutboundFrame{Type: constants.OutAuthSuccess})
	a.maybeAutoStart()
	a.broadcast()
}

func (a *Actor) handleAction(c cmdAction) {
	p := a.game.PlayerByID(c.UserID)
	if p == nil || p.IsRemoved {
		return
	}

	switch c.Kind {
	case constants.ActionStartGame:
		if p.ID != a.game.HostID {
			return
		}
		if err := engine.StartGame(a.game); err != nil {
			a.sendTo(a.writers[c.UserID], errorFrame(err.Error()))
			return
		}
		a.broadcast()

	case constants.ActionRollDice:
		if err := engine.InitiateRoll(a.game, c.UserID); err != nil {
			return
		}
		a.broadcast()
		a.clock.AfterFunc(time.Duration(a.delays.DiceResolveMillis)*time.Millisecond, func() {
			a.post(cmdResolveRoll{})
		})

	case constants.ActionMovePiece:
		var payload models.MovePiecePayload
		if err := json.Unmarshal(c.Payload, &payload); err != nil {
			return
		}
		before := a.game.Dice
		var diceValue int
		if before != nil {
			diceValue = *before
		}
		result, err := engine.MovePiece(a.game, c.UserID, payload.PieceID)
		if err != nil {
			return
		}
		a.resetInactivity(c.UserID)
		entry := a.game.AppendTurnLog(models.TurnLogEntry{
			PlayerID:         c.UserID,
			Kind:             turnLogKind(result),
			DiceValue:        diceValue,
			PieceID:          payload.PieceID,
			FromPosition:     result.FromPosition,
			ToPosition:       result.ToPosition,
			CapturedPieceIDs: result.CapturedPieceIDs,
			Timestamp:        a.clock.Now(),
		})
		a.persistTurnLog(entry)
		if result.Won {
			a.creditWinner(c.UserID)
		}
		a.broadcast()

	case constants.ActionLeaveGame:
		engine.Leave(a.game, c.UserID)
		a.broadcast()

	case constants.ActionSendChat:
		var payload models.SendChatPayload
		if err := json.Unmarshal(c.Payload, &payload); err != nil {
			return
		}
		if err := protocol.ValidateChatText(payload.Text); err != nil {
			return
		}
		entry := models.ChatEntry{PlayerID: p.ID, PlayerName: p.Name, Text: payload.Text, SentAt: a.clock.Now()}
		a.game.AppendChat(entry)
		a.persistChat(entry)
		a.broadcast()

	default:
		logging.Debug.Printf("room %s: dropped unrecognized action %q from %s", a.code, c.Kind, c.UserID)
	}
}

// cmdResolveRoll is an internal follow-up command the Actor schedules
// itself after the dice-resolution delay; it is not part of the
// externally documented command set but travels the same inbox so it
// stays serialized with everything else.
type cmdResolveRoll struct{}

func (cmdResolveRoll) isCommand() {}

func (a *Actor) handleLeave(c cmdLeave) {
	logging.Debug.Printf("room %s: %s disconnected", a.code, c.UserID)
	delete(a.writers, c.UserID)
	a.maybeScheduleEmptyRoomEviction()

	p := a.game.PlayerByID(c.UserID)
	if p == nil || p.IsRemoved {
		return
	}
	p.Disconnected = true
	a.broadcast()

	userID := c.UserID
	timer := a.clock.AfterFunc(constants.ReconnectGraceSecs*time.Second, func() {
		a.post(cmdGraceExpired{UserID: userID})
	})
	a.disconnects[userID] = timer
}

// maybeScheduleEmptyRoomEviction arms the Registry's "evict ~60s after
// the last peer leaves" policy (§3 Lifecycle, §4.5) once every writer
// has detached from a still-live game. Re-attaching (handleJoin)
// cancels it; a finished game is already on the shorter
// FinishedEvictionSecs path via run(), so it's excluded here.
func (a *Actor) maybeScheduleEmptyRoomEviction() {
	if len(a.writers) != 0 || a.game.Status == constants.StatusFinished || a.emptyRoomTimer != nil {
		return
	}
	a.emptyRoomTimer = a.clock.AfterFunc(constants.EmptyRoomEvictionSecs*time.Second, func() {
		a.post(cmdEmptyRoomExpired{})
	})
}

type cmdGraceExpired struct{ UserID string }

func (cmdGraceExpired) isCommand() {}

func (a *Actor) handleTick() {
	if !turncontrol.ShouldTick(a.game.Status, a.game.IsRolling) {
		return
	}
	a.game.TurnSecondsLeft--
	if !turncontrol.TurnExpired(a.game.TurnSecondsLeft) {
		a.ticksSinceBroadcast++
		if turncontrol.ShouldBroadcastTick(a.ticksSinceBroadcast) {
			a.ticksSinceBroadcast = 0
			a.broadcast()
		}
		return
	}
	engine.HandleMissedTurn(a.game)
	a.ticksSinceBroadcast = 0
	a.broadcast()
}

// handleResolveRoll runs completeRoll after the dice-resolution delay
// and, per §4.2, schedules the seat advance for no-legal-move and
// three-sixes outcomes after an additional settle delay rather than
// advancing inline — keeping every seat transition inside AdvanceSeat.
func (a *Actor) handleResolveRoll() {
	if a.game.Status != constants.StatusPlaying {
		return
	}
	outcome, err := engine.CompleteRoll(a.game, a.rng)
	if err != nil {
		return
	}
	a.broadcast()
	switch outcome {
	case engine.RollNoLegalMove, engine.RollThreeSixPenalty:
		a.clock.AfterFunc(time.Duration(a.delays.NoMoveSettleMillis)*time.Millisecond, func() {
			a.post(cmdSettleNoMove{})
		})
	}
}

type cmdSettleNoMove struct{}

func (cmdSettleNoMove) isCommand() {}

func (a *Actor) handleGraceExpired(c cmdGraceExpired) {
	delete(a.disconnects, c.UserID)
	p := a.game.PlayerByID(c.UserID)
	if p == nil || !p.Disconnected {
		return
	}
	engine.Leave(a.game, c.UserID)
	a.broadcast()
}

func (a *Actor) handleAutoStart() {
	if a.game.Status != constants.StatusSetup || len(a.game.Players) != a.game.MaxPlayers {
		return
	}
	if err := engine.StartGame(a.game); err == nil {
		a.broadcast()
	}
}

func (a *Actor) resetInactivity(userID string) {
	if p := a.game.PlayerByID(userID); p != nil {
		p.InactiveTurns = 0
	}
}

func (a *Actor) maybeAutoStart() {
	if a.game.Type == constants.RoomTournament && a.game.Status == constants.StatusSetup && len(a.game.Players) == a.game.MaxPlayers {
		a.clock.AfterFunc(time.Duration(a.delays.AutoStartSecs)*time.Second, func() {
			a.post(cmdAutoStart{})
		})
	}
}

type cmdAutoStart struct{}

func (cmdAutoStart) isCommand() {}

// cmdEmptyRoomExpired is the internal follow-up posted
// EmptyRoomEvictionSecs after the last writer detaches from a
// not-yet-finished game; see maybeScheduleEmptyRoomEviction.
type cmdEmptyRoomExpired struct{}

func (cmdEmptyRoomExpired) isCommand() {}

// handleEmptyRoomExpired tears the room down only if it is still
// empty and unfinished at fire time: a reconnect or a fresh join in
// the interim already cleared emptyRoomTimer, but the callback may
// already be queued in the inbox when that happens.
func (a *Actor) handleEmptyRoomExpired() {
	a.emptyRoomTimer = nil
	if len(a.writers) == 0 && a.game.Status != constants.StatusFinished {
		a.teardown()
	}
}

func (a *Actor) teardown() {
	if a.torndown {
		return
	}
	a.torndown = true
	close(a.done)
	if a.evict != nil {
		a.evict(a.code)
	}
}

func (a *Actor) scheduleEviction(d time.Duration) {
	a.clock.AfterFunc(d, func() {
		a.post(cmdEvict{})
	})
}

func (a *Actor) broadcast() {
	snapshot := models.OutboundFrame{Type: constants.OutGameStateUpdate, Payload: a.game}
	for _, w := range a.writers {
		a.sendTo(w, snapshot)
	}
}

func (a *Actor) sendTo(w Writer, f models.OutboundFrame) {
	if w == nil {
		return
	}
	w.Send(f)
}

func (a *Actor) persistChat(entry models.ChatEntry) {
	if a.game.TournamentID == "" {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), persistence.DefaultTimeout)
	defer cancel()
	if err := a.store.AppendChat(ctx, a.game.TournamentID, entry); err != nil {
		a.log.Printf("room %s: append chat: %v", a.code, err)
	}
}

func (a *Actor) persistTurnLog(entry models.TurnLogEntry) {
	if a.game.TournamentID == "" {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), persistence.DefaultTimeout)
	defer cancel()
	if err := a.store.AppendTurnLog(ctx, a.game.TournamentID, entry); err != nil {
		a.log.Printf("room %s: append turn log: %v", a.code, err)
	}
}

// creditWinner pays the tournament's prize pool to the winner, keyed
// by an idempotency key so a crash-and-retry never double-pays (§7).
func (a *Actor) creditWinner(userID string) {
	if a.game.TournamentID == "" {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), persistence.DefaultTimeout)
	defer cancel()
	key := persistence.IdempotencyKey(a.game.TournamentID)
	if err := a.store.CreditWinner(ctx, a.game.TournamentID, userID, a.prizeAmount, key); err != nil {
		a.log.Printf("room %s: credit winner: %v", a.code, err)
	}
}

// turnLogKind derives the TurnLogEntry.Kind string from a move result.
func turnLogKind(r engine.MoveResult) string {
	switch {
	case r.Won:
		return "win"
	case len(r.CapturedPieceIDs) > 0:
		return "capture"
	case r.Finished:
		return "finish"
	default:
		return "move"
	}
}

func errorFrame(message string) models.OutboundFrame {
	return models.OutboundFrame{Type: constants.OutError, Payload: models.ErrorPayload{Message: message}}
}
