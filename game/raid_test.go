package game

import (
	"testing"
)

func startRaidPhase(t *testing.T, orders map[string]map[string]string) (*IngameState, *recorderReceiver) {
	t.Helper()
	ingame, receiver, _ := newTestIngame(t, sixHouses, false)
	placeAllOrders(t, ingame, orders)
	skipRavenAction(t, ingame)
	if got := leafType(ingame); got != StateResolveSingleRaid {
		t.Fatalf("leaf = %s, want %s", got, StateResolveSingleRaid)
	}
	return ingame, receiver
}

func TestRaidConsolidatePowerTransfersTokens(t *testing.T) {
	ingame, _ := startRaidPhase(t, map[string]map[string]string{
		"baratheon": {"kings-landing": "raid"},
		"tyrell":    {"highgarden": "consolidate-power"},
		"martell":   {"sunspear": "march"},
	})

	ingame.OnPlayerMessage(playerOf(t, ingame, "baratheon"), &ClientMessage{
		Type:           MsgResolveRaid,
		OrderRegionID:  "kings-landing",
		TargetRegionID: "highgarden",
	})

	board := ingame.Board()
	if got := board.Houses["baratheon"].PowerTokens; got != 6 {
		t.Errorf("raider tokens = %d, want 6", got)
	}
	if got := board.Houses["tyrell"].PowerTokens; got != 4 {
		t.Errorf("raided tokens = %d, want 4", got)
	}
	orders := ingame.OrdersOnBoard()
	if _, ok := orders["kings-landing"]; ok {
		t.Errorf("raid order still on the board")
	}
	if _, ok := orders["highgarden"]; ok {
		t.Errorf("raided order still on the board")
	}
}

func TestRaidStarredTransfersTwoTokens(t *testing.T) {
	ingame, _ := startRaidPhase(t, map[string]map[string]string{
		"baratheon": {"kings-landing": "raid-special"},
		"tyrell":    {"highgarden": "consolidate-power"},
		"martell":   {"sunspear": "march"},
	})

	ingame.OnPlayerMessage(playerOf(t, ingame, "baratheon"), &ClientMessage{
		Type:           MsgResolveRaid,
		OrderRegionID:  "kings-landing",
		TargetRegionID: "highgarden",
	})

	board := ingame.Board()
	if got := board.Houses["baratheon"].PowerTokens; got != 7 {
		t.Errorf("raider tokens = %d, want 7", got)
	}
	if got := board.Houses["tyrell"].PowerTokens; got != 3 {
		t.Errorf("raided tokens = %d, want 3", got)
	}
}

func TestRaidDefenseRequiresStarredRaid(t *testing.T) {
	ingame, _ := startRaidPhase(t, map[string]map[string]string{
		"baratheon": {"kings-landing": "raid"},
		"tyrell":    {"highgarden": "defense-plus-one"},
		"martell":   {"sunspear": "march"},
	})

	ingame.OnPlayerMessage(playerOf(t, ingame, "baratheon"), &ClientMessage{
		Type:           MsgResolveRaid,
		OrderRegionID:  "kings-landing",
		TargetRegionID: "highgarden",
	})

	if got := leafType(ingame); got != StateResolveSingleRaid {
		t.Errorf("plain raid against a defense order advanced the phase")
	}
	if _, ok := ingame.OrdersOnBoard()["highgarden"]; !ok {
		t.Errorf("defense order removed by a plain raid")
	}

	// Resolving without a target just discards the raid order.
	ingame.OnPlayerMessage(playerOf(t, ingame, "baratheon"), &ClientMessage{
		Type:          MsgResolveRaid,
		OrderRegionID: "kings-landing",
	})
	if _, ok := ingame.OrdersOnBoard()["kings-landing"]; ok {
		t.Errorf("targetless raid kept its own order")
	}
	if _, ok := ingame.OrdersOnBoard()["highgarden"]; !ok {
		t.Errorf("targetless raid removed the defense order")
	}
}

func TestRaidNeverReachesMarchOrders(t *testing.T) {
	ingame, _ := startRaidPhase(t, map[string]map[string]string{
		"baratheon": {"kings-landing": "raid"},
		"tyrell":    {"highgarden": "march"},
	})

	ingame.OnPlayerMessage(playerOf(t, ingame, "baratheon"), &ClientMessage{
		Type:           MsgResolveRaid,
		OrderRegionID:  "kings-landing",
		TargetRegionID: "highgarden",
	})

	if _, ok := ingame.OrdersOnBoard()["highgarden"]; !ok {
		t.Errorf("march order raided away")
	}
	if got := leafType(ingame); got != StateResolveSingleRaid {
		t.Errorf("invalid raid advanced the phase")
	}
}
