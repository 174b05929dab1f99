package game

import (
	"math/rand"
	"testing"
)

// newDispatchTestGame wires a Game around an in-memory tracker without
// starting the run loop, so dispatch can be driven directly.
func newDispatchTestGame(t *testing.T) (*Game, *recorderReceiver, *MemoryGameStateTracker) {
	t.Helper()
	content := DefaultContent()
	receiver := newRecorderReceiver()
	tracker, err := NewMemoryGameStateTracker()
	if err != nil {
		t.Fatalf("NewMemoryGameStateTracker: %v", err)
	}
	g := NewGame("boardroom", content, receiver, tracker, nil)

	rng := rand.New(rand.NewSource(1))
	board, err := NewBoard(content, sixHouses, rng)
	if err != nil {
		t.Fatalf("NewBoard: %v", err)
	}
	var players []*Player
	for _, houseID := range sixHouses {
		players = append(players, &Player{
			UserID:                "user-" + houseID,
			UserName:              "User " + houseID,
			HouseID:               houseID,
			TotalRemainingSeconds: DefaultClockSeconds,
		})
	}
	g.ingame = NewIngameState(content, receiver, &recordingTimers{}, rng)
	g.ingame.FirstStart(board, players, false, true)
	receiver.reset()
	return g, receiver, tracker
}

func TestDispatchPersistsAfterCleanHandler(t *testing.T) {
	g, _, tracker := newDispatchTestGame(t)

	g.dispatch(func() {})

	if _, err := tracker.Load("boardroom"); err != nil {
		t.Fatalf("state not persisted after clean handler: %v", err)
	}
}

func TestDispatchCleanupRunsAfterHandlerPanic(t *testing.T) {
	g, receiver, tracker := newDispatchTestGame(t)

	g.dispatch(func() { panic("exploding handler") })

	if _, err := tracker.Load("boardroom"); err != nil {
		t.Fatalf("state not persisted after panicking handler: %v", err)
	}
	if got := len(receiver.broadcastsOfType(MsgStartPlayerClock)); got != len(sixHouses) {
		t.Errorf("clock starts after panicking handler = %d, want %d", got, len(sixHouses))
	}
}
