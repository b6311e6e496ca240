package room

import (
	"encoding/json"
	"io"
	"log"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/arenaludo/ludo-server/internal/ports/clock"
	"github.com/arenaludo/ludo-server/internal/ports/persistence"
	"github.com/arenaludo/ludo-server/internal/ports/random"
	"github.com/arenaludo/ludo-server/internal/shared/constants"
	"github.com/arenaludo/ludo-server/internal/shared/models"
)

// fakeWriter records every frame sent to it, for assertions.
type fakeWriter struct {
	mu     sync.Mutex
	frames []models.OutboundFrame
}

func (w *fakeWriter) Send(f models.OutboundFrame) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.frames = append(w.frames, f)
}

func (w *fakeWriter) last() models.OutboundFrame {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.frames[len(w.frames)-1]
}

func (w *fakeWriter) count() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return len(w.frames)
}

func newTestActor(t *testing.T, maxPlayers int) (*Actor, *clock.Mock) {
	t.Helper()
	mock := clock.NewMock()
	// Hosted by u1, the first user every test joins, as the Registry
	// does for a manual room.
	game := models.NewGame("CODE1", constants.RoomManual, maxPlayers, "u1", "")
	logger := log.New(io.Discard, "", 0)
	a := New("CODE1", game, mock, random.NewFixed(6), persistence.Noop{}, logger, func(string) {}, 0)
	return a, mock
}

// settle lets the Actor's goroutine drain its inbox after a post.
func settle() { time.Sleep(20 * time.Millisecond) }

func TestJoinSeatsPlayerAndSendsAuthSuccess(t *testing.T) {
	a, _ := newTestActor(t, 2)
	w := &fakeWriter{}
	a.Join("u1", "Alice", w)
	settle()

	require.GreaterOrEqual(t, w.count(), 1)
	require.Equal(t, constants.OutAuthSuccess, w.frames[0].Type)
}

func TestStartGameRequiresHost(t *testing.T) {
	a, _ := newTestActor(t, 2)
	w1, w2 := &fakeWriter{}, &fakeWriter{}
	a.Join("u1", "Alice", w1)
	a.Join("u2", "Bob", w2)
	settle()

	a.Action("u2", constants.ActionStartGame, nil)
	settle()

	snap := lastGameState(t, w2)
	require.Equal(t, constants.StatusSetup, snap.Status, "non-host start is ignored")

	a.Action("u1", constants.ActionStartGame, nil)
	settle()
	snap = lastGameState(t, w1)
	require.Equal(t, constants.StatusPlaying, snap.Status)
}

func TestRollDiceResolvesAfterDelay(t *testing.T) {
	a, mock := newTestActor(t, 2)
	w1, w2 := &fakeWriter{}, &fakeWriter{}
	a.Join("u1", "Alice", w1)
	a.Join("u2", "Bob", w2)
	settle()
	a.Action("u1", constants.ActionStartGame, nil)
	settle()

	a.Action("u1", constants.ActionRollDice, nil)
	settle()
	snap := lastGameState(t, w1)
	require.True(t, snap.IsRolling)

	mock.Add(constants.DiceResolveDelayMillis * time.Millisecond)
	settle()
	snap = lastGameState(t, w1)
	require.False(t, snap.IsRolling)
	require.NotNil(t, snap.Dice)
	require.Equal(t, 6, *snap.Dice)
}

func TestSendChatBroadcastsToAllWriters(t *testing.T) {
	a, _ := newTestActor(t, 2)
	w1, w2 := &fakeWriter{}, &fakeWriter{}
	a.Join("u1", "Alice", w1)
	a.Join("u2", "Bob", w2)
	settle()

	payload, _ := json.Marshal(models.SendChatPayload{Text: "gg"})
	a.Action("u1", constants.ActionSendChat, payload)
	settle()

	snap := lastGameState(t, w2)
	require.NotEmpty(t, snap.Chat)
	require.Equal(t, "gg", snap.Chat[len(snap.Chat)-1].Text)
}

func TestEmptyChatTextIsDropped(t *testing.T) {
	a, _ := newTestActor(t, 2)
	w1 := &fakeWriter{}
	a.Join("u1", "Alice", w1)
	settle()
	before := w1.count()

	payload, _ := json.Marshal(models.SendChatPayload{Text: "   "})
	a.Action("u1", constants.ActionSendChat, payload)
	settle()

	require.Equal(t, before, w1.count(), "blank chat text must not broadcast")
}

func lastGameState(t *testing.T, w *fakeWriter) *models.Game {
	t.Helper()
	for i := len(w.frames) - 1; i >= 0; i-- {
		if w.frames[i].Type == constants.OutGameStateUpdate {
			g, ok := w.frames[i].Payload.(*models.Game)
			require.True(t, ok)
			return g
		}
	}
	t.Fatal("no GAME_STATE_UPDATE frame was sent")
	return nil
}
