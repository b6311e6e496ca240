// Package models holds the wire-visible game state: the data model of
// §3 of the specification plus the inbound/outbound frame shapes of
// §6.
package models

import (
	"time"

	"github.com/arenaludo/ludo-server/internal/shared/constants"
)

// Piece is one of a player's four tokens.
type Piece struct {
	ID       int                  `json:"id"`
	State    constants.PieceState `json:"state"`
	Position int                  `json:"position"` // -1 Home, 1..52 main path, 100..105 home stretch
}

// Player is one seat at the table.
type Player struct {
	ID           string            `json:"id"`
	Name         string            `json:"name"`
	Color        constants.Color   `json:"color"`
	Pieces       [constants.TokensPerPlayer]Piece `json:"pieces"`
	IsHost       bool              `json:"is_host"`
	HasFinished  bool              `json:"has_finished"`
	IsRemoved    bool              `json:"is_removed"`
	Disconnected bool              `json:"disconnected"`

	InactiveTurns              int `json:"inactive_turns"`
	ConsecutiveSixes           int `json:"consecutive_sixes"`
	RollsWithoutSixWhenAllHome int `json:"rolls_without_six_when_all_home"`
}

// NewPlayer seats a fresh player with all four pieces at Home.
func NewPlayer(id, name string, color constants.Color, isHost bool) *Player {
	p := &Player{
		ID:     id,
		Name:   name,
		Color:  color,
		IsHost: isHost,
	}
	for i := range p.Pieces {
		p.Pieces[i] = Piece{
			ID:       pieceID(color, i),
			State:    constants.PieceHome,
			Position: -1,
		}
	}
	return p
}

// pieceID packs a color's seat index and piece slot into a stable id
// unique within the game, as specified in §3 (color-index × 4 + slot).
func pieceID(color constants.Color, slot int) int {
	seat := 0
	for i, c := range constants.FourPlayerOrder {
		if c == color {
			seat = i
		}
	}
	return seat*constants.TokensPerPlayer + slot
}

// ChatEntry is one line in a room's bounded chat ring.
type ChatEntry struct {
	PlayerID   string    `json:"player_id"`
	PlayerName string    `json:"player_name"`
	Text       string    `json:"text"`
	SentAt     time.Time `json:"sent_at"`
}

// TurnLogEntry is one structured record of a completed turn event,
// used for display and handed to the Persistence port best-effort.
type TurnLogEntry struct {
	Seq              int       `json:"seq"`
	PlayerID         string    `json:"player_id"`
	Kind             string    `json:"kind"` // move, capture, finish or win
	DiceValue        int       `json:"dice_value,omitempty"`
	PieceID          int       `json:"piece_id,omitempty"`
	FromPosition     int       `json:"from_position,omitempty"`
	ToPosition       int       `json:"to_position,omitempty"`
	CapturedPieceIDs []int     `json:"captured_piece_ids,omitempty"`
	Timestamp        time.Time `json:"timestamp"`
}

// Game is the canonical per-room state described in §3. The Room
// Actor is its sole mutator; every other layer only reads a snapshot.
type Game struct {
	Code         string             `json:"code"`
	Type         constants.RoomType `json:"type"`
	MaxPlayers   int                `json:"max_players"`
	HostID       string             `json:"host_id"`
	TournamentID string             `json:"tournament_id,omitempty"`

	Players      []*Player         `json:"players"`
	CurrentSeat  int               `json:"current_seat"`
	PlayerOrder  []constants.Color `json:"player_order"`
	Status       constants.GameStatus `json:"status"`

	Dice            *int  `json:"dice"`
	IsRolling       bool  `json:"is_rolling"`
	Movable         []int `json:"movable"`
	TurnSecondsLeft int   `json:"turn_seconds_left"`

	Winner  *string `json:"winner"`
	Message string  `json:"message"`

	Chat    []ChatEntry    `json:"chat"`
	TurnLog []TurnLogEntry `json:"turn_log"`
}

// NewGame seeds an empty room awaiting players.
func NewGame(code string, roomType constants.RoomType, maxPlayers int, hostID, tournamentID string) *Game {
	return &Game{
		Code:            code,
		Type:            roomType,
		MaxPlayers:      maxPlayers,
		HostID:          hostID,
		TournamentID:    tournamentID,
		Players:         make([]*Player, 0, maxPlayers),
		Status:          constants.StatusSetup,
		TurnSecondsLeft: constants.TurnLimitSeconds,
		Chat:            make([]ChatEntry, 0, constants.ChatHistoryLimit),
		TurnLog:         make([]TurnLogEntry, 0),
	}
}

// AppendChat pushes a chat entry, trimming to the last ChatHistoryLimit.
func (g *Game) AppendChat(entry ChatEntry) {
	g.Chat = append(g.Chat, entry)
	if len(g.Chat) > constants.ChatHistoryLimit {
		g.Chat = g.Chat[len(g.Chat)-constants.ChatHistoryLimit:]
	}
}

// AppendTurnLog appends a structured turn event, assigning it the
// next sequence number.
func (g *Game) AppendTurnLog(entry TurnLogEntry) TurnLogEntry {
	entry.Seq = len(g.TurnLog)
	g.TurnLog = append(g.TurnLog, entry)
	return entry
}

// PlayerByID returns the player with the given id, or nil.
func (g *Game) PlayerByID(id string) *Player {
	for _, p := range g.Players {
		if p.ID == id {
			return p
		}
	}
	return nil
}

// CurrentPlayer returns the player whose turn it is, or nil if the
// seat index is out of range (e.g. before any player has joined).
func (g *Game) CurrentPlayer() *Player {
	if g.CurrentSeat < 0 || g.CurrentSeat >= len(g.Players) {
		return nil
	}
	return g.Players[g.CurrentSeat]
}

// InboundFrame is a client → server message (§6): {action, payload}.
type InboundFrame struct {
	Action  constants.ActionKind `json:"action"`
	Payload interface{}          `json:"payload"`
}

// OutboundFrame is a server → client message (§6): {type, payload}.
type OutboundFrame struct {
	Type    constants.OutboundType `json:"type"`
	Payload interface{}            `json:"payload,omitempty"`
}

// AuthPayload carries the bearer token sent with an AUTH action.
type AuthPayload struct {
	Token string `json:"token"`
}

// MovePiecePayload carries the piece a MOVE_PIECE action targets.
type MovePiecePayload struct {
	PieceID int `json:"pieceId"`
}

// SendChatPayload carries a chat line.
type SendChatPayload struct {
	Text string `json:"text"`
}

// ErrorPayload is the payload of an ERROR or AUTH_FAILURE frame.
type ErrorPayload struct {
	Message string `json:"message"`
}
