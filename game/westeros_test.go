package game

import (
	"math/rand"
	"testing"

	"github.com/google/go-cmp/cmp"
)

// newWesterosForTest attaches a bare westeros phase so a single card effect
// can be driven in isolation.
func newWesterosForTest(t *testing.T, ingame *IngameState) *WesterosState {
	t.Helper()
	w := newWesterosState(ingame)
	ingame.SetChildGameState(w)
	return w
}

func bidAll(t *testing.T, ingame *IngameState, bids map[string]int) {
	t.Helper()
	for _, houseID := range sixHouses {
		bid, ok := bids[houseID]
		if !ok {
			continue
		}
		ingame.OnPlayerMessage(playerOf(t, ingame, houseID), &ClientMessage{Type: MsgBid, Bid: intPtr(bid)})
	}
}

func TestGameOfThronesIncome(t *testing.T) {
	ingame, _, _ := newTestIngame(t, sixHouses, false)
	w := newWesterosForTest(t, ingame)

	w.executeCard(&WesterosCard{ID: 1, TypeID: "game-of-thrones"})

	// Crown icons: winterfell 1, stoney-sept 1, kings-landing 2 plus
	// dragonstone 1, pyke 1, oldtown 1, sunspear 1.
	want := map[string]int{
		"stark":     6,
		"lannister": 6,
		"baratheon": 8,
		"greyjoy":   6,
		"tyrell":    6,
		"martell":   6,
	}
	for houseID, tokens := range want {
		if got := ingame.Board().Houses[houseID].PowerTokens; got != tokens {
			t.Errorf("%s tokens = %d, want %d", houseID, got, tokens)
		}
	}
}

func TestClashOfKingsReordersTracks(t *testing.T) {
	ingame, _, _ := newTestIngame(t, sixHouses, false)
	board := ingame.Board()
	w := newWesterosForTest(t, ingame)

	w.executeCard(&WesterosCard{ID: 1, TypeID: "clash-of-kings"})
	if got := leafType(ingame); got != StateBidding {
		t.Fatalf("leaf = %s, want %s", got, StateBidding)
	}

	// Iron throne bids; tyrell and martell tie and keep their precedence.
	bidAll(t, ingame, map[string]int{
		"stark": 1, "lannister": 5, "baratheon": 3, "greyjoy": 0, "tyrell": 2, "martell": 2,
	})

	wantThrone := []string{"lannister", "baratheon", "tyrell", "martell", "stark", "greyjoy"}
	if diff := cmp.Diff(wantThrone, board.IronThroneTrack); diff != "" {
		t.Errorf("iron throne track (-want +got):\n%s", diff)
	}
	if got := board.Houses["lannister"].PowerTokens; got != 0 {
		t.Errorf("lannister tokens after 5 bid = %d, want 0", got)
	}

	// Fiefdoms bidding follows; the broke lannister is auto-entered at 0.
	if got := leafType(ingame); got != StateBidding {
		t.Fatalf("fiefdoms bidding did not open (leaf %s)", got)
	}
	bidAll(t, ingame, map[string]int{
		"stark": 0, "baratheon": 0, "greyjoy": 0, "tyrell": 0, "martell": 0,
	})

	// All-zero bids keep the fiefdoms order.
	wantFiefdoms := []string{"stark", "lannister", "baratheon", "greyjoy", "tyrell", "martell"}
	if diff := cmp.Diff(wantFiefdoms, board.FiefdomsTrack); diff != "" {
		t.Errorf("fiefdoms track (-want +got):\n%s", diff)
	}

	// Kings court bidding closes the clash.
	bidAll(t, ingame, map[string]int{
		"stark": 0, "baratheon": 0, "greyjoy": 0, "tyrell": 0, "martell": 0,
	})
	if got := leafType(ingame); got != StatePlanning {
		t.Errorf("leaf after the clash = %s, want %s", got, StatePlanning)
	}
}

func TestBiddingRejectsOutOfRangeBids(t *testing.T) {
	ingame, _, _ := newTestIngame(t, sixHouses, false)
	w := newWesterosForTest(t, ingame)
	w.executeCard(&WesterosCard{ID: 1, TypeID: "clash-of-kings"})

	bidding := LeafState(ingame).(*BiddingState)
	stark := playerOf(t, ingame, "stark")

	ingame.OnPlayerMessage(stark, &ClientMessage{Type: MsgBid, Bid: intPtr(6)})
	if _, done := bidding.bids["stark"]; done {
		t.Errorf("bid above the token count registered")
	}
	ingame.OnPlayerMessage(stark, &ClientMessage{Type: MsgBid, Bid: intPtr(-1)})
	if _, done := bidding.bids["stark"]; done {
		t.Errorf("negative bid registered")
	}
	ingame.OnPlayerMessage(stark, &ClientMessage{Type: MsgBid, Bid: intPtr(5)})
	if got := bidding.bids["stark"]; got != 5 {
		t.Errorf("full-pool bid = %d, want 5", got)
	}
}

func TestWildlingAttackNightsWatchWins(t *testing.T) {
	ingame, receiver, _ := newTestIngame(t, sixHouses, false)
	board := ingame.Board()
	board.WildlingStrength = 6
	deckBefore := len(board.WildlingDeck)
	w := newWesterosForTest(t, ingame)

	w.executeCard(&WesterosCard{ID: 1, TypeID: "wildling-attack"})
	receiver.reset()
	bidAll(t, ingame, map[string]int{
		"stark": 3, "lannister": 1, "baratheon": 1, "greyjoy": 1, "tyrell": 0, "martell": 0,
	})

	if got := board.WildlingStrength; got != 0 {
		t.Errorf("wildling strength after victory = %d, want 0", got)
	}
	if !board.Houses["stark"].KnowsNextWildlingCard {
		t.Errorf("highest bidder not granted wildling foreknowledge")
	}
	if got := board.Houses["stark"].PowerTokens; got != 2 {
		t.Errorf("stark tokens after 3 bid = %d, want 2", got)
	}
	if got := len(board.WildlingDeck); got != deckBefore {
		t.Errorf("wildling deck size changed from %d to %d after burial", deckBefore, got)
	}
	if len(receiver.broadcastsOfType(MsgRevealTopWildlingCard)) != 1 {
		t.Errorf("missing wildling card reveal")
	}
	if len(receiver.broadcastsOfType(MsgHideTopWildlingCard)) != 1 {
		t.Errorf("missing wildling card burial broadcast")
	}
}

func TestWildlingForeknowledgeSurvivesReplay(t *testing.T) {
	ingame, receiver := newNoClockIngame(t)
	ingame.Board().WildlingStrength = 6

	snapshot := adminSnapshot(t, ingame)
	mirror, err := ReconstructIngame(snapshot, DefaultContent(), nil, nil, rand.New(rand.NewSource(2)))
	if err != nil {
		t.Fatalf("ReconstructIngame: %v", err)
	}

	w := newWesterosForTest(t, ingame)
	w.executeCard(&WesterosCard{ID: 1, TypeID: "wildling-attack"})
	bidAll(t, ingame, map[string]int{
		"stark": 3, "lannister": 1, "baratheon": 1, "greyjoy": 1, "tyrell": 0, "martell": 0,
	})
	if !ingame.Board().Houses["stark"].KnowsNextWildlingCard {
		t.Fatalf("highest bidder not granted wildling foreknowledge")
	}

	for _, message := range receiver.broadcasts {
		mirror.OnServerMessage(message)
	}

	for _, houseID := range sixHouses {
		live := ingame.Board().Houses[houseID].KnowsNextWildlingCard
		replayed := mirror.Board().Houses[houseID].KnowsNextWildlingCard
		if live != replayed {
			t.Errorf("%s foreknowledge after replay = %t, want %t", houseID, replayed, live)
		}
	}
}

func TestWildlingAttackNightsWatchLoses(t *testing.T) {
	ingame, _, _ := newTestIngame(t, sixHouses, false)
	board := ingame.Board()
	board.WildlingStrength = 10
	w := newWesterosForTest(t, ingame)

	w.executeCard(&WesterosCard{ID: 1, TypeID: "wildling-attack"})
	// Greyjoy and martell tie at the bottom; greyjoy is earlier on the
	// iron throne and takes the punishment.
	bidAll(t, ingame, map[string]int{
		"stark": 2, "lannister": 2, "baratheon": 1, "greyjoy": 0, "tyrell": 1, "martell": 0,
	})

	if got := board.WildlingStrength; got != 8 {
		t.Errorf("wildling strength after defeat = %d, want 8", got)
	}
	if got := board.Houses["greyjoy"].PowerTokens; got != 3 {
		t.Errorf("lowest bidder tokens = %d, want 3 after the penalty", got)
	}
	if got := board.Houses["martell"].PowerTokens; got != 5 {
		t.Errorf("tied-but-later bidder tokens = %d, want the untouched 5", got)
	}
}

func TestSupplyCardForcesReconciliation(t *testing.T) {
	ingame, _, _ := newTestIngame(t, sixHouses, false)
	board := ingame.Board()
	winterfell := board.World.Regions["winterfell"]
	extra := board.CreateUnit(winterfell, "footman", board.Houses["stark"])
	board.CreateUnit(winterfell, "footman", board.Houses["stark"])
	w := newWesterosForTest(t, ingame)

	w.executeCard(&WesterosCard{ID: 1, TypeID: "supply"})

	if got := board.Houses["stark"].SupplyLevel; got != 1 {
		t.Errorf("stark supply = %d, want 1 from the winterfell icon", got)
	}
	if got := leafType(ingame); got != StateReconcileArmies {
		t.Fatalf("leaf = %s, want %s for the oversized army", got, StateReconcileArmies)
	}

	// Removing too little is rejected.
	ingame.OnPlayerMessage(playerOf(t, ingame, "stark"), &ClientMessage{Type: MsgSelectUnits})
	if got := leafType(ingame); got != StateReconcileArmies {
		t.Fatalf("insufficient reconcile accepted (leaf %s)", got)
	}

	ingame.OnPlayerMessage(playerOf(t, ingame, "stark"), &ClientMessage{
		Type:  MsgSelectUnits,
		Units: []UnitSelection{{RegionID: "winterfell", UnitIDs: []int{extra.ID}}},
	})

	if got := len(winterfell.Units); got != 3 {
		t.Errorf("winterfell units after reconcile = %d, want 3", got)
	}
	if got := leafType(ingame); got != StatePlanning {
		t.Errorf("leaf after reconcile = %s, want %s", got, StatePlanning)
	}
}

func TestMusteringBuildsUnits(t *testing.T) {
	ingame, receiver, _ := newTestIngame(t, sixHouses, false)
	board := ingame.Board()
	w := newWesterosForTest(t, ingame)

	w.executeCard(&WesterosCard{ID: 1, TypeID: "mustering"})
	if got := leafType(ingame); got != StateMustering {
		t.Fatalf("leaf = %s, want %s", got, StateMustering)
	}
	mustering := LeafState(ingame).(*MusteringState)
	if mustering.houseID != "stark" {
		t.Fatalf("first mustering house = %s, want stark", mustering.houseID)
	}

	// Two knights cost four points, more than winterfell grants.
	ingame.OnPlayerMessage(playerOf(t, ingame, "stark"), &ClientMessage{
		Type:       MsgMuster,
		Musterings: []Mustering{{RegionID: "winterfell", UnitTypes: []string{"knight", "knight"}}},
	})
	if got := len(board.World.Regions["winterfell"].Units); got != 2 {
		t.Fatalf("muster beyond the castle's points created units")
	}

	receiver.reset()
	// A footman plus a ship deployed to the adjacent sea, both on
	// winterfell's two castle points.
	ingame.OnPlayerMessage(playerOf(t, ingame, "stark"), &ClientMessage{
		Type: MsgMuster,
		Musterings: []Mustering{
			{RegionID: "winterfell", UnitTypes: []string{"footman"}},
			{RegionID: "the-shivering-sea", UnitTypes: []string{"ship"}},
		},
	})

	if diff := cmp.Diff([]string{"knight", "footman", "footman"}, regionUnits(ingame, "winterfell")); diff != "" {
		t.Errorf("winterfell after muster (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"ship", "ship"}, regionUnits(ingame, "the-shivering-sea")); diff != "" {
		t.Errorf("shivering sea after muster (-want +got):\n%s", diff)
	}
	if got := len(receiver.broadcastsOfType(MsgAddUnits)); got != 2 {
		t.Errorf("got %d add-unit broadcasts, want 2", got)
	}

	// The track moves on to the next house with a castle.
	next := LeafState(ingame).(*MusteringState)
	if next.houseID != "lannister" {
		t.Errorf("next mustering house = %s, want lannister", next.houseID)
	}
}

func TestRestrictionCardsReachPlanning(t *testing.T) {
	tests := []struct {
		card        string
		blockedType string
	}{
		{"sea-of-storms", "raid"},
		{"rains-of-autumn", "march-plus-one"},
		{"feast-for-crows", "consolidate-power"},
	}
	for _, tt := range tests {
		t.Run(tt.card, func(t *testing.T) {
			ingame, _, _ := newTestIngame(t, sixHouses, false)
			w := newWesterosForTest(t, ingame)

			w.executeCard(&WesterosCard{ID: 1, TypeID: tt.card})

			if got := leafType(ingame); got != StatePlanning {
				t.Fatalf("leaf = %s, want %s", got, StatePlanning)
			}
			planning := LeafState(ingame).(*PlanningState)
			planning.OnPlayerMessage(playerOf(t, ingame, "stark"), &ClientMessage{
				Type:   MsgPlaceOrders,
				Orders: map[string]string{"winterfell": tt.blockedType},
			})
			if planning.readyHouses["stark"] {
				t.Errorf("restricted order %s accepted", tt.blockedType)
			}
		})
	}
}
