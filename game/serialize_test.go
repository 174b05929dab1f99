package game

import (
	"math/rand"
	"testing"

	"github.com/google/go-cmp/cmp"
)

// newNoClockIngame starts a game with player clocks disabled so two admin
// snapshots of the same position are byte-identical.
func newNoClockIngame(t *testing.T) (*IngameState, *recorderReceiver) {
	t.Helper()
	content := DefaultContent()
	receiver := newRecorderReceiver()
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
	ingame := NewIngameState(content, receiver, &recordingTimers{}, rng)
	ingame.FirstStart(board, players, false, false)
	receiver.reset()
	return ingame, receiver
}

func adminSnapshot(t *testing.T, ingame *IngameState) []byte {
	t.Helper()
	data, err := ingame.SerializeToClient(true, nil)
	if err != nil {
		t.Fatalf("SerializeToClient: %v", err)
	}
	return data
}

func TestAdminSnapshotRoundTripMidCombat(t *testing.T) {
	ingame, _ := newNoClockIngame(t)
	placeAllOrders(t, ingame, map[string]map[string]string{
		"baratheon": {"kings-landing": "march"},
		"martell":   {"sunspear": "march"},
	})
	skipRavenAction(t, ingame)
	ingame.OnPlayerMessage(playerOf(t, ingame, "baratheon"), &ClientMessage{
		Type:             MsgResolveMarchOrder,
		StartingRegionID: "kings-landing",
		Moves:            []MarchMove{{RegionID: "highgarden", UnitIDs: []int{11}}},
	})
	if got := leafType(ingame); got != StateChooseHouseCard {
		t.Fatalf("leaf before snapshot = %s, want %s", got, StateChooseHouseCard)
	}
	// One secretly chosen card is hidden state the snapshot must keep.
	ingame.OnPlayerMessage(playerOf(t, ingame, "baratheon"), &ClientMessage{
		Type:        MsgChooseHouseCard,
		HouseCardID: "baratheon-g",
	})

	snapshot := adminSnapshot(t, ingame)
	restored, err := ReconstructIngame(snapshot, DefaultContent(), newRecorderReceiver(), &recordingTimers{}, rand.New(rand.NewSource(1)))
	if err != nil {
		t.Fatalf("ReconstructIngame: %v", err)
	}
	if got := leafType(restored); got != StateChooseHouseCard {
		t.Fatalf("restored leaf = %s, want %s", got, StateChooseHouseCard)
	}
	if diff := cmp.Diff(string(snapshot), string(adminSnapshot(t, restored))); diff != "" {
		t.Fatalf("snapshot not stable over a round trip (-want +got):\n%s", diff)
	}

	// The restored game keeps playing: the defender completes the card
	// choice and combat resolves.
	restored.OnPlayerMessage(playerOf(t, restored, "tyrell"), &ClientMessage{
		Type:        MsgChooseHouseCard,
		HouseCardID: "tyrell-a",
	})
	if got := leafType(restored); got == StateChooseHouseCard {
		t.Fatal("expected combat to resolve on the restored game")
	}
	if diff := cmp.Diff([]string{"footman"}, regionUnits(restored, "highgarden")); diff != "" {
		t.Fatalf("highgarden after restored combat (-want +got):\n%s", diff)
	}
}

func TestViewerSnapshotRedactsPlannedOrders(t *testing.T) {
	ingame, _, _ := newTestIngame(t, sixHouses, false)
	planning := LeafState(ingame).(*PlanningState)
	planning.OnPlayerMessage(playerOf(t, ingame, "stark"), &ClientMessage{
		Type:   MsgPlaceOrders,
		Orders: map[string]string{"winterfell": "march"},
	})

	childOrders := func(viewer *Player) map[string]interface{} {
		data, err := ingame.SerializeToClient(false, viewer)
		if err != nil {
			t.Fatalf("SerializeToClient: %v", err)
		}
		var s struct {
			Child struct {
				PlacedOrders map[string]interface{} `json:"placedOrders"`
			} `json:"child"`
		}
		if err := jsonit.Unmarshal(data, &s); err != nil {
			t.Fatalf("Unmarshal: %v", err)
		}
		return s.Child.PlacedOrders
	}

	own := childOrders(playerOf(t, ingame, "stark"))
	if _, ok := own["stark"]; !ok {
		t.Fatal("expected stark to see their own placed orders")
	}
	foreign := childOrders(playerOf(t, ingame, "lannister"))
	if _, ok := foreign["stark"]; ok {
		t.Fatal("expected stark orders hidden from lannister")
	}
}

func TestViewerSnapshotRedactsBids(t *testing.T) {
	ingame, _, _ := newTestIngame(t, sixHouses, false)
	w := newWesterosForTest(t, ingame)
	w.executeCard(&WesterosCard{ID: 1, TypeID: "clash-of-kings"})
	ingame.OnPlayerMessage(playerOf(t, ingame, "stark"), &ClientMessage{Type: MsgBid, Bid: intPtr(3)})

	bidsSeenBy := func(viewer *Player) (map[string]interface{}, []interface{}) {
		data, err := ingame.SerializeToClient(false, viewer)
		if err != nil {
			t.Fatalf("SerializeToClient: %v", err)
		}
		var s struct {
			Child struct {
				Child struct {
					Bids       map[string]interface{} `json:"bids"`
					BidsPlaced []interface{}          `json:"bidsPlaced"`
				} `json:"child"`
			} `json:"child"`
		}
		if err := jsonit.Unmarshal(data, &s); err != nil {
			t.Fatalf("Unmarshal: %v", err)
		}
		return s.Child.Child.Bids, s.Child.Child.BidsPlaced
	}

	ownBids, placed := bidsSeenBy(playerOf(t, ingame, "stark"))
	if got, ok := ownBids["stark"]; !ok || got != float64(3) {
		t.Fatalf("expected stark to see their own bid, got %v", ownBids)
	}
	if diff := cmp.Diff([]interface{}{"stark"}, placed); diff != "" {
		t.Fatalf("bidsPlaced mismatch (-want +got):\n%s", diff)
	}
	foreignBids, placed := bidsSeenBy(playerOf(t, ingame, "lannister"))
	if _, ok := foreignBids["stark"]; ok {
		t.Fatal("expected stark bid hidden from lannister")
	}
	if diff := cmp.Diff([]interface{}{"stark"}, placed); diff != "" {
		t.Fatalf("bidsPlaced mismatch for lannister (-want +got):\n%s", diff)
	}
}

func TestReconstructRejectsBadSnapshots(t *testing.T) {
	cases := []struct {
		name string
		data string
	}{
		{name: "not json", data: "not a snapshot"},
		{name: "wrong root type", data: `{"type":"planning"}`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := ReconstructIngame([]byte(tc.data), DefaultContent(), newRecorderReceiver(), &recordingTimers{}, rand.New(rand.NewSource(1)))
			if err == nil {
				t.Fatal("expected an error")
			}
		})
	}
}
