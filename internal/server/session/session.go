// Package session is the Session Layer (§4.4): one instance per
// connection, owning the Unauthenticated → Authenticated → Closed
// state machine and forwarding parsed frames to the Room Registry /
// Room Actor.
package session

import (
	"context"
	"encoding/json"
	"log"
	"time"

	"github.com/arenaludo/ludo-server/internal/ports/identity"
	"github.com/arenaludo/ludo-server/internal/server/registry"
	"github.com/arenaludo/ludo-server/internal/server/room"
	"github.com/arenaludo/ludo-server/internal/shared/constants"
	"github.com/arenaludo/ludo-server/internal/shared/logging"
	"github.com/arenaludo/ludo-server/internal/shared/models"
	"github.com/arenaludo/ludo-server/internal/shared/protocol"
)

// state is the session's position in its lifecycle (§4.4).
type state int

const (
	stateUnauthenticated state = iota
	stateAuthenticated
	stateClosed
)

// identityTimeout bounds a bearer-token resolution per §5: "bounded
// timeout (implementation choice, ≈5s); expiry emits AUTH_FAILURE."
const identityTimeout = 5 * time.Second

// Conn is the transport-level connection a Session reads frames from
// and writes frames/close codes to. Implemented by the websocket
// adapter in internal/server/transport.
type Conn interface {
	ReadFrame() (models.InboundFrame, error)
	WriteFrame(models.OutboundFrame) error
	Close(code constants.CloseCode, reason string) error
}

// Session drives one connection's lifecycle.
type Session struct {
	code     string
	conn     Conn
	identity identity.Resolver
	registry *registry.Registry
	log      *log.Logger

	state  state
	userID string
	actor  *room.Actor
}

// New constructs a Session bound to a parsed room code (the path
// segment of the connection URL, §6).
func New(code string, conn Conn, idp identity.Resolver, reg *registry.Registry, logger *log.Logger) *Session {
	return &Session{code: code, conn: conn, identity: idp, registry: reg, log: logger}
}

// Run reads frames until the connection closes or an unrecoverable
// error occurs. It blocks; callers run it in its own goroutine.
func (s *Session) Run() {
	defer s.onClose()
	for s.state != stateClosed {
		frame, err := s.conn.ReadFrame()
		if err != nil {
			return
		}
		s.dispatch(frame)
	}
}

func (s *Session) dispatch(frame models.InboundFrame) {
	switch s.state {
	case stateUnauthenticated:
		if frame.Action != constants.ActionAuth {
			logging.Debug.Printf("session %s: dropped %q before auth", s.code, frame.Action)
			return // any other action is ignored pre-auth (§4.4)
		}
		s.handleAuth(frame)

	case stateAuthenticated:
		s.forwardAction(frame)
	}
}

func (s *Session) handleAuth(frame models.InboundFrame) {
	raw, err := json.Marshal(frame.Payload)
	if err != nil {
		return
	}
	var payload models.AuthPayload
	if err := json.Unmarshal(raw, &payload); err != nil {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), identityTimeout)
	defer cancel()

	id, err := s.identity.Resolve(ctx, payload.Token)
	if err != nil {
		s.conn.WriteFrame(models.OutboundFrame{
			Type:    constants.OutAuthFailure,
			Payload: models.ErrorPayload{Message: constants.ErrUnauthorized},
		})
		s.conn.Close(constants.CloseAuthFailure, "auth failure")
		s.state = stateClosed
		return
	}

	if err := protocol.ValidateRoomCode(s.code); err != nil {
		s.conn.WriteFrame(models.OutboundFrame{
			Type:    constants.OutError,
			Payload: models.ErrorPayload{Message: err.Error()},
		})
		s.conn.Close(constants.CloseServerError, err.Error())
		s.state = stateClosed
		return
	}

	actor, err := s.registry.Resolve(ctx, s.code, id.UserID)
	if err != nil {
		s.conn.WriteFrame(models.OutboundFrame{
			Type:    constants.OutError,
			Payload: models.ErrorPayload{Message: err.Error()},
		})
		s.conn.Close(constants.CloseServerError, err.Error())
		s.state = stateClosed
		return
	}

	s.userID = id.UserID
	s.actor = actor
	s.state = stateAuthenticated
	actor.Join(id.UserID, id.DisplayName, connWriter{s.conn, s.log})
}

func (s *Session) forwardAction(frame models.InboundFrame) {
	switch frame.Action {
	case constants.ActionStartGame, constants.ActionRollDice, constants.ActionMovePiece,
		constants.ActionLeaveGame, constants.ActionSendChat:
		payload, err := json.Marshal(frame.Payload)
		if err != nil {
			return
		}
		s.actor.Action(s.userID, frame.Action, payload)
	default:
		logging.Debug.Printf("session %s: dropped unrecognized action %q from %s", s.code, frame.Action, s.userID)
	}
}

func (s *Session) onClose() {
	s.state = stateClosed
	if s.actor != nil {
		s.actor.Leave(s.userID)
	}
}

// connWriter adapts a Conn to room.Writer, tolerating the socket
// having closed between enqueue and send (§4.4).
type connWriter struct {
	conn Conn
	log  *log.Logger
}

func (w connWriter) Send(frame models.OutboundFrame) {
	if err := w.conn.WriteFrame(frame); err != nil {
		w.log.Printf("session: write frame: %v", err)
	}
}
