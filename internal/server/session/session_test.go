package session

import (
	"io"
	"log"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/arenaludo/ludo-server/internal/ports/clock"
	"github.com/arenaludo/ludo-server/internal/ports/identity"
	"github.com/arenaludo/ludo-server/internal/ports/persistence"
	"github.com/arenaludo/ludo-server/internal/ports/random"
	"github.com/arenaludo/ludo-server/internal/server/registry"
	"github.com/arenaludo/ludo-server/internal/shared/constants"
	"github.com/arenaludo/ludo-server/internal/shared/models"
)

// fakeConn is a Conn double driven by a scripted inbound frame queue;
// it records every outbound frame and close call for assertions.
type fakeConn struct {
	mu      sync.Mutex
	inbox   []models.InboundFrame
	pos     int
	written []models.OutboundFrame
	closed  bool
	closeCd constants.CloseCode
}

func (c *fakeConn) ReadFrame() (models.InboundFrame, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.pos >= len(c.inbox) {
		return models.InboundFrame{}, io.EOF
	}
	f := c.inbox[c.pos]
	c.pos++
	return f, nil
}

func (c *fakeConn) WriteFrame(f models.OutboundFrame) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.written = append(c.written, f)
	return nil
}

func (c *fakeConn) Close(code constants.CloseCode, _ string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	c.closeCd = code
	return nil
}

func discardLogger() *log.Logger { return log.New(io.Discard, "", 0) }

func newTestRegistry() *registry.Registry {
	return registry.New(clock.NewMock(), random.NewFixed(6), persistence.Noop{}, discardLogger())
}

func authFrame(token string) models.InboundFrame {
	return models.InboundFrame{Action: constants.ActionAuth, Payload: models.AuthPayload{Token: token}}
}

func TestUnauthenticatedSessionIgnoresNonAuthActions(t *testing.T) {
	conn := &fakeConn{inbox: []models.InboundFrame{
		{Action: constants.ActionRollDice},
	}}
	idp := identity.Static{}
	s := New("ROOM1", conn, idp, newTestRegistry(), discardLogger())

	s.Run()

	require.Empty(t, conn.written, "pre-auth actions other than AUTH must be silently dropped")
	require.False(t, conn.closed)
}

func TestAuthFailureClosesWithAuthFailureCode(t *testing.T) {
	conn := &fakeConn{inbox: []models.InboundFrame{authFrame("bad-token")}}
	idp := identity.Static{}
	s := New("ROOM1", conn, idp, newTestRegistry(), discardLogger())

	s.Run()

	require.True(t, conn.closed)
	require.Equal(t, constants.CloseAuthFailure, conn.closeCd)
	require.Len(t, conn.written, 1)
	require.Equal(t, constants.OutAuthFailure, conn.written[0].Type)
}

func TestInvalidRoomCodeClosesWithServerError(t *testing.T) {
	conn := &fakeConn{inbox: []models.InboundFrame{authFrame("tok")}}
	idp := identity.Static{"tok": identity.Identity{UserID: "u1", DisplayName: "Alice"}}
	s := New("x", conn, idp, newTestRegistry(), discardLogger()) // too short to be a valid code

	s.Run()

	require.True(t, conn.closed)
	require.Equal(t, constants.CloseServerError, conn.closeCd)
}

func TestSuccessfulAuthJoinsRoomAndForwardsActions(t *testing.T) {
	conn := &fakeConn{inbox: []models.InboundFrame{
		authFrame("tok"),
		{Action: constants.ActionStartGame},
	}}
	idp := identity.Static{"tok": identity.Identity{UserID: "u1", DisplayName: "Alice"}}
	s := New("ROOMCODE", conn, idp, newTestRegistry(), discardLogger())

	s.Run()
	require.Eventually(t, func() bool {
		conn.mu.Lock()
		defer conn.mu.Unlock()
		return len(conn.written) > 0
	}, time.Second, 5*time.Millisecond, "the Actor processes Join asynchronously")

	require.Equal(t, constants.OutAuthSuccess, conn.written[0].Type)
	require.Eventually(t, func() bool {
		conn.mu.Lock()
		defer conn.mu.Unlock()
		for _, f := range conn.written {
			if f.Type == constants.OutError {
				return true
			}
		}
		return false
	}, time.Second, 5*time.Millisecond, "the forwarded START_GAME reaches the Actor, which rejects a one-player start")
	require.False(t, conn.closed, "a dropped read loop (io.EOF) is not a forced close")
}

func TestUnknownActionIsDroppedAfterAuth(t *testing.T) {
	conn := &fakeConn{inbox: []models.InboundFrame{
		authFrame("tok"),
		{Action: "NOT_A_REAL_ACTION"},
	}}
	idp := identity.Static{"tok": identity.Identity{UserID: "u1", DisplayName: "Alice"}}
	s := New("ROOMCODE", conn, idp, newTestRegistry(), discardLogger())

	s.Run()

	require.False(t, conn.closed)
}
