package game

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestMarchMovesUnitsAndRemovesOrder(t *testing.T) {
	ingame, receiver, _ := newTestIngame(t, sixHouses, false)

	placeAllOrders(t, ingame, map[string]map[string]string{
		"stark": {"winterfell": "march"},
	})
	skipRavenAction(t, ingame)

	if got := leafType(ingame); got != StateResolveSingleMarch {
		t.Fatalf("leaf = %s, want %s", got, StateResolveSingleMarch)
	}
	receiver.reset()

	// Winterfell holds the stark knight (1) and footman (2).
	ingame.OnPlayerMessage(playerOf(t, ingame, "stark"), &ClientMessage{
		Type:             MsgResolveMarchOrder,
		StartingRegionID: "winterfell",
		Moves:            []MarchMove{{RegionID: "moat-cailin", UnitIDs: []int{1}}},
	})

	if diff := cmp.Diff([]string{"knight"}, regionUnits(ingame, "moat-cailin")); diff != "" {
		t.Errorf("moat-cailin units mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"footman"}, regionUnits(ingame, "winterfell")); diff != "" {
		t.Errorf("winterfell units mismatch (-want +got):\n%s", diff)
	}
	if _, ok := ingame.OrdersOnBoard()["winterfell"]; ok {
		t.Errorf("march order still on the board after resolution")
	}

	moves := receiver.broadcastsOfType(MsgMoveUnits)
	if len(moves) != 1 {
		t.Fatalf("got %d move broadcasts, want 1", len(moves))
	}
	want := &ServerMessage{Type: MsgMoveUnits, FromID: "winterfell", ToID: "moat-cailin", UnitIDs: []int{1}}
	if diff := cmp.Diff(want, moves[0]); diff != "" {
		t.Errorf("move broadcast mismatch (-want +got):\n%s", diff)
	}
}

func TestMarchLeavesControlMarker(t *testing.T) {
	ingame, receiver, _ := newTestIngame(t, sixHouses, false)

	placeAllOrders(t, ingame, map[string]map[string]string{
		"stark":   {"white-harbor": "march"},
		"martell": {"sunspear": "march"},
	})
	skipRavenAction(t, ingame)
	receiver.reset()

	// The lone white-harbor footman (3) leaves; white harbor is not the
	// stark capital, so a marker may stay behind.
	ingame.OnPlayerMessage(playerOf(t, ingame, "stark"), &ClientMessage{
		Type:             MsgResolveMarchOrder,
		StartingRegionID: "white-harbor",
		Moves:            []MarchMove{{RegionID: "moat-cailin", UnitIDs: []int{3}}},
		PlacePowerToken:  true,
	})

	board := ingame.Board()
	if got := board.World.Regions["white-harbor"].ControlPowerToken; got != "stark" {
		t.Errorf("white-harbor marker = %q, want stark", got)
	}
	if got := board.Houses["stark"].PowerTokens; got != 4 {
		t.Errorf("stark tokens after marker = %d, want 4", got)
	}
	if len(receiver.broadcastsOfType(MsgChangeControlPowerToken)) != 1 {
		t.Errorf("missing control-marker broadcast")
	}
}

func TestMarchNeverLeavesMarkerOnCapital(t *testing.T) {
	ingame, _, _ := newTestIngame(t, sixHouses, false)

	placeAllOrders(t, ingame, map[string]map[string]string{
		"stark":   {"winterfell": "march"},
		"martell": {"sunspear": "march"},
	})
	skipRavenAction(t, ingame)

	ingame.OnPlayerMessage(playerOf(t, ingame, "stark"), &ClientMessage{
		Type:             MsgResolveMarchOrder,
		StartingRegionID: "winterfell",
		Moves:            []MarchMove{{RegionID: "moat-cailin", UnitIDs: []int{1, 2}}},
		PlacePowerToken:  true,
	})

	board := ingame.Board()
	if got := board.World.Regions["winterfell"].ControlPowerToken; got != "" {
		t.Errorf("marker %q left on the stark capital", got)
	}
	if got := board.Houses["stark"].PowerTokens; got != 5 {
		t.Errorf("stark tokens = %d, want the untouched 5", got)
	}
}

func TestMarchSupplyFiltersDestinations(t *testing.T) {
	ingame, _, _ := newTestIngame(t, sixHouses, false)
	ingame.Board().Houses["stark"].SupplyLevel = 0

	placeAllOrders(t, ingame, map[string]map[string]string{
		"stark": {"white-harbor": "march"},
	})
	skipRavenAction(t, ingame)

	// At supply 0 the largest allowed army is 2; joining winterfell would
	// make 3, so the batch is dropped whole.
	ingame.OnPlayerMessage(playerOf(t, ingame, "stark"), &ClientMessage{
		Type:             MsgResolveMarchOrder,
		StartingRegionID: "white-harbor",
		Moves:            []MarchMove{{RegionID: "winterfell", UnitIDs: []int{3}}},
	})

	if got := leafType(ingame); got != StateResolveSingleMarch {
		t.Fatalf("over-supply batch advanced the phase (leaf %s)", got)
	}
	if diff := cmp.Diff([]string{"footman"}, regionUnits(ingame, "white-harbor")); diff != "" {
		t.Errorf("white-harbor changed by a dropped batch (-want +got):\n%s", diff)
	}

	// A destination that keeps the armies legal still works.
	ingame.OnPlayerMessage(playerOf(t, ingame, "stark"), &ClientMessage{
		Type:             MsgResolveMarchOrder,
		StartingRegionID: "white-harbor",
		Moves:            []MarchMove{{RegionID: "moat-cailin", UnitIDs: []int{3}}},
	})
	if diff := cmp.Diff([]string{"footman"}, regionUnits(ingame, "moat-cailin")); diff != "" {
		t.Errorf("legal move did not land (-want +got):\n%s", diff)
	}
}

func TestMarchEmptyBatchRemovesOrder(t *testing.T) {
	ingame, _, _ := newTestIngame(t, sixHouses, false)

	placeAllOrders(t, ingame, map[string]map[string]string{
		"stark":     {"winterfell": "march"},
		"lannister": {"lannisport": "march"},
	})
	skipRavenAction(t, ingame)

	// Stark resolves first on the iron throne track.
	ingame.OnPlayerMessage(playerOf(t, ingame, "stark"), &ClientMessage{
		Type:             MsgResolveMarchOrder,
		StartingRegionID: "winterfell",
	})

	if _, ok := ingame.OrdersOnBoard()["winterfell"]; ok {
		t.Errorf("empty batch did not remove the march order")
	}
	// Lannister's march is next.
	single := LeafState(ingame).(*ResolveSingleMarchState)
	if single.houseID != "lannister" {
		t.Errorf("resolving house = %s, want lannister", single.houseID)
	}
}

func TestMarchRejectsSecondCombatMove(t *testing.T) {
	ingame, _, _ := newTestIngame(t, sixHouses, false)
	board := ingame.Board()

	// Give baratheon two footmen in kings-landing facing two enemy regions.
	board.CreateUnit(board.World.Regions["kings-landing"], "footman", board.Houses["baratheon"])
	board.World.Regions["harrenhal"].ControlPowerToken = "lannister"
	board.World.Regions["harrenhal"].Garrison = 1

	placeAllOrders(t, ingame, map[string]map[string]string{
		"baratheon": {"kings-landing": "march"},
	})
	skipRavenAction(t, ingame)

	extraID := 0
	for id := range board.World.Regions["kings-landing"].Units {
		if id > extraID {
			extraID = id
		}
	}
	ingame.OnPlayerMessage(playerOf(t, ingame, "baratheon"), &ClientMessage{
		Type:             MsgResolveMarchOrder,
		StartingRegionID: "kings-landing",
		Moves: []MarchMove{
			{RegionID: "highgarden", UnitIDs: []int{11}},
			{RegionID: "harrenhal", UnitIDs: []int{extraID}},
		},
	})

	if got := leafType(ingame); got != StateResolveSingleMarch {
		t.Errorf("double-combat batch advanced the phase (leaf %s)", got)
	}
	if _, ok := ingame.OrdersOnBoard()["kings-landing"]; !ok {
		t.Errorf("rejected batch removed the march order")
	}
}
