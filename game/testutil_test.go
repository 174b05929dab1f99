package game

import (
	"math/rand"
	"testing"
	"time"
)

// recorderReceiver records the outgoing message stream so tests can assert
// on exactly what clients would have seen.
type recorderReceiver struct {
	broadcasts []*ServerMessage
	sends      map[string][]*ServerMessage
}

func newRecorderReceiver() *recorderReceiver {
	return &recorderReceiver{sends: make(map[string][]*ServerMessage)}
}

func (r *recorderReceiver) BroadcastMessage(message *ServerMessage) {
	r.broadcasts = append(r.broadcasts, message)
}

func (r *recorderReceiver) SendMessageToPlayer(userID string, message *ServerMessage) {
	r.sends[userID] = append(r.sends[userID], message)
}

func (r *recorderReceiver) reset() {
	r.broadcasts = nil
	r.sends = make(map[string][]*ServerMessage)
}

func (r *recorderReceiver) broadcastsOfType(msgType string) []*ServerMessage {
	var out []*ServerMessage
	for _, m := range r.broadcasts {
		if m.Type == msgType {
			out = append(out, m)
		}
	}
	return out
}

func (r *recorderReceiver) sendsOfType(userID, msgType string) []*ServerMessage {
	var out []*ServerMessage
	for _, m := range r.sends[userID] {
		if m.Type == msgType {
			out = append(out, m)
		}
	}
	return out
}

type scheduledTimer struct {
	kind   TimerKind
	userID string
	fireAt time.Time
}

// recordingTimers records timer arms without ever firing them; tests fire
// timers by calling the timeout handlers directly.
type recordingTimers struct {
	scheduled []scheduledTimer
}

func (r *recordingTimers) ScheduleTimer(kind TimerKind, userID string, fireAt time.Time) {
	r.scheduled = append(r.scheduled, scheduledTimer{kind: kind, userID: userID, fireAt: fireAt})
}

// newTestIngame starts a fresh deterministic game with one human player per
// house, using the built-in content and a fixed rng seed.
func newTestIngame(t *testing.T, houseIDs []string, draft bool) (*IngameState, *recorderReceiver, *recordingTimers) {
	t.Helper()
	content := DefaultContent()
	receiver := newRecorderReceiver()
	timers := &recordingTimers{}
	rng := rand.New(rand.NewSource(1))

	board, err := NewBoard(content, houseIDs, rng)
	if err != nil {
		t.Fatalf("NewBoard: %v", err)
	}
	var players []*Player
	for _, houseID := range houseIDs {
		players = append(players, &Player{
			UserID:                "user-" + houseID,
			UserName:              "User " + houseID,
			HouseID:               houseID,
			TotalRemainingSeconds: DefaultClockSeconds,
		})
	}
	ingame := NewIngameState(content, receiver, timers, rng)
	ingame.FirstStart(board, players, draft, true)
	receiver.reset()
	return ingame, receiver, timers
}

var sixHouses = []string{"stark", "lannister", "baratheon", "greyjoy", "tyrell", "martell"}

func playerOf(t *testing.T, ingame *IngameState, houseID string) *Player {
	t.Helper()
	p := ingame.PlayerControllingHouse(houseID)
	if p == nil {
		t.Fatalf("no player controls house %s", houseID)
	}
	return p
}

func leafType(ingame *IngameState) string {
	return LeafState(ingame).Type()
}

// placeAllOrders pushes the planning phase to completion with the given
// orders (house id -> region id -> order type id). Houses absent from the
// map place no orders.
func placeAllOrders(t *testing.T, ingame *IngameState, orders map[string]map[string]string) {
	t.Helper()
	if leafType(ingame) != StatePlanning {
		t.Fatalf("expected planning phase, got %s", leafType(ingame))
	}
	planning := LeafState(ingame).(*PlanningState)
	for _, houseID := range append([]string(nil), ingame.Board().IronThroneTrack...) {
		player := ingame.PlayerControllingHouse(houseID)
		if player == nil {
			continue
		}
		planning.OnPlayerMessage(player, &ClientMessage{
			Type:   MsgPlaceOrders,
			Orders: orders[houseID],
		})
	}
}

// skipRavenAction passes on the raven holder's special action so tests can
// reach the raid and march resolutions.
func skipRavenAction(t *testing.T, ingame *IngameState) {
	t.Helper()
	if leafType(ingame) != StateRaven {
		t.Fatalf("expected raven decision, got %s", leafType(ingame))
	}
	holderHouseID := ingame.Board().KingsCourtTrack[0]
	ingame.OnPlayerMessage(playerOf(t, ingame, holderHouseID), &ClientMessage{Type: MsgSkipReplaceOrder})
}

// regionUnits returns the unit type ids in a region sorted by unit id, for
// compact board assertions.
func regionUnits(ingame *IngameState, regionID string) []string {
	region := ingame.Board().World.Regions[regionID]
	if region == nil {
		return nil
	}
	var types []string
	for _, u := range region.SortedUnits() {
		types = append(types, u.TypeID)
	}
	return types
}

func boolPtr(v bool) *bool { return &v }
func intPtr(v int) *int    { return &v }
