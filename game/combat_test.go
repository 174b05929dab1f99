package game

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

// startHighgardenAssault marches the kings-landing baratheon footman (11)
// into tyrell-held highgarden and stops at the card choice.
func startHighgardenAssault(t *testing.T, extraOrders map[string]map[string]string) (*IngameState, *recorderReceiver) {
	t.Helper()
	ingame, receiver, _ := newTestIngame(t, sixHouses, false)

	orders := map[string]map[string]string{
		"baratheon": {"kings-landing": "march"},
	}
	for houseID, regionOrders := range extraOrders {
		if orders[houseID] == nil {
			orders[houseID] = make(map[string]string)
		}
		for regionID, orderTypeID := range regionOrders {
			orders[houseID][regionID] = orderTypeID
		}
	}
	placeAllOrders(t, ingame, orders)
	skipRavenAction(t, ingame)

	ingame.OnPlayerMessage(playerOf(t, ingame, "baratheon"), &ClientMessage{
		Type:             MsgResolveMarchOrder,
		StartingRegionID: "kings-landing",
		Moves:            []MarchMove{{RegionID: "highgarden", UnitIDs: []int{11}}},
	})
	if got := leafType(ingame); got != StateChooseHouseCard {
		t.Fatalf("leaf after combat march = %s, want %s", got, StateChooseHouseCard)
	}
	return ingame, receiver
}

func lastLogOfKind(ingame *IngameState, kind string) *LogEntry {
	logs := ingame.GameLogs()
	for n := len(logs) - 1; n >= 0; n-- {
		if logs[n].Kind == kind {
			return &logs[n]
		}
	}
	return nil
}

func chooseCards(t *testing.T, ingame *IngameState, attacker, attackerCard, defender, defenderCard string) {
	t.Helper()
	ingame.OnPlayerMessage(playerOf(t, ingame, attacker), &ClientMessage{Type: MsgChooseHouseCard, HouseCardID: attackerCard})
	ingame.OnPlayerMessage(playerOf(t, ingame, defender), &ClientMessage{Type: MsgChooseHouseCard, HouseCardID: defenderCard})
}

func TestCombatStrengthAndOccupation(t *testing.T) {
	// Martell's pending march keeps the action round open, so the retreat
	// wounds are still visible when the combat settles.
	ingame, receiver := startHighgardenAssault(t, map[string]map[string]string{
		"martell": {"sunspear": "march"},
	})
	receiver.reset()

	// Footman (1) + card (4) = 5 against knight+footman (3) + card (0) = 3.
	chooseCards(t, ingame, "baratheon", "baratheon-g", "tyrell", "tyrell-a")

	result := lastLogOfKind(ingame, "combat-result")
	if result == nil {
		t.Fatalf("no combat-result log entry")
	}
	want := map[string]string{
		"attacker":         "baratheon",
		"defender":         "tyrell",
		"winner":           "baratheon",
		"attackerStrength": "5",
		"defenderStrength": "3",
	}
	if diff := cmp.Diff(want, result.Data); diff != "" {
		t.Errorf("combat result mismatch (-want +got):\n%s", diff)
	}

	// No casualties (no swords), the defenders retreat to oldtown (the only
	// open destination), the attacker occupies.
	if diff := cmp.Diff([]string{"footman"}, regionUnits(ingame, "highgarden")); diff != "" {
		t.Errorf("highgarden after occupation (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"knight", "footman", "footman"}, regionUnits(ingame, "oldtown")); diff != "" {
		t.Errorf("oldtown after retreat (-want +got):\n%s", diff)
	}
	for _, u := range ingame.Board().World.Regions["oldtown"].SortedUnits() {
		if u.Allegiance == "tyrell" && u.ID != 17 && !u.Wounded {
			t.Errorf("retreated unit %d not wounded", u.ID)
		}
	}

	board := ingame.Board()
	for _, houseID := range []string{"baratheon", "tyrell"} {
		house := board.Houses[houseID]
		used := 0
		for _, hc := range house.HouseCards {
			if hc.State == HouseCardUsed {
				used++
			}
		}
		if used != 1 {
			t.Errorf("%s has %d used cards, want 1", houseID, used)
		}
	}
}

func TestCombatTieBreaksOnFiefdomsTrack(t *testing.T) {
	ingame, _ := startHighgardenAssault(t, nil)

	// 1 + 3 = 4 against 3 + 1 = 4; baratheon precedes tyrell on fiefdoms.
	chooseCards(t, ingame, "baratheon", "baratheon-f", "tyrell", "tyrell-b")

	result := lastLogOfKind(ingame, "combat-result")
	if result == nil {
		t.Fatalf("no combat-result log entry")
	}
	if result.Data["winner"] != "baratheon" {
		t.Errorf("tie winner = %s, want the attacker via fiefdoms order", result.Data["winner"])
	}
}

func TestCombatCasualtiesFromSwordsAndTowers(t *testing.T) {
	tests := []struct {
		name           string
		attackerCard   string
		defenderCard   string
		wantCasualties bool
	}{
		// f carries a sword, b carries no tower: one defender dies.
		{"sword against bare card", "baratheon-f", "tyrell-b", true},
		// f's sword is absorbed by a's tower.
		{"tower blocks the sword", "baratheon-f", "tyrell-a", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ingame, _ := startHighgardenAssault(t, nil)
			chooseCards(t, ingame, "baratheon", tt.attackerCard, "tyrell", tt.defenderCard)

			if tt.wantCasualties {
				if got := leafType(ingame); got != StateSelectUnits {
					t.Fatalf("leaf = %s, want %s for the casualty pick", got, StateSelectUnits)
				}
				// The defender picks the footman (16) to die.
				ingame.OnPlayerMessage(playerOf(t, ingame, "tyrell"), &ClientMessage{
					Type:  MsgSelectUnits,
					Units: []UnitSelection{{RegionID: "highgarden", UnitIDs: []int{16}}},
				})
				if diff := cmp.Diff([]string{"knight", "footman"}, regionUnits(ingame, "oldtown")); diff != "" {
					t.Errorf("oldtown after casualty and retreat (-want +got):\n%s", diff)
				}
			} else {
				if got := leafType(ingame); got == StateSelectUnits {
					t.Errorf("casualty pick opened without net swords")
				}
				if diff := cmp.Diff([]string{"knight", "footman", "footman"}, regionUnits(ingame, "oldtown")); diff != "" {
					t.Errorf("oldtown after retreat (-want +got):\n%s", diff)
				}
			}
		})
	}
}

func TestCombatDefenseOrderAndSupportCount(t *testing.T) {
	ingame, _ := startHighgardenAssault(t, map[string]map[string]string{
		"tyrell":  {"highgarden": "defense-plus-one", "oldtown": "support"},
		"martell": {"sunspear": "march"},
	})

	// Defender: army 3 + defense 1 + oldtown support 1 + card 0 = 5
	// against footman 1 + card 3 = 4.
	chooseCards(t, ingame, "baratheon", "baratheon-e", "tyrell", "tyrell-a")

	result := lastLogOfKind(ingame, "combat-result")
	if result == nil {
		t.Fatalf("no combat-result log entry")
	}
	if result.Data["defenderStrength"] != "5" {
		t.Errorf("defender strength = %s, want 5", result.Data["defenderStrength"])
	}
	if result.Data["winner"] != "tyrell" {
		t.Errorf("winner = %s, want the reinforced defender", result.Data["winner"])
	}

	// The beaten attacker stays home wounded.
	if diff := cmp.Diff([]string{"footman"}, regionUnits(ingame, "kings-landing")); diff != "" {
		t.Errorf("kings-landing after failed attack (-want +got):\n%s", diff)
	}
	if u := ingame.Board().World.Regions["kings-landing"].Units[11]; u == nil || !u.Wounded {
		t.Errorf("beaten attacker not wounded in place")
	}
}

func TestCombatSingleAvailableCardAutoSelected(t *testing.T) {
	ingame, receiver, _ := newTestIngame(t, sixHouses, false)
	board := ingame.Board()
	for _, houseID := range []string{"baratheon", "tyrell"} {
		for _, hc := range board.Houses[houseID].HouseCards {
			if hc.ID != houseID+"-a" {
				hc.State = HouseCardUsed
			}
		}
	}

	placeAllOrders(t, ingame, map[string]map[string]string{
		"baratheon": {"kings-landing": "march"},
	})
	skipRavenAction(t, ingame)
	receiver.reset()

	ingame.OnPlayerMessage(playerOf(t, ingame, "baratheon"), &ClientMessage{
		Type:             MsgResolveMarchOrder,
		StartingRegionID: "kings-landing",
		Moves:            []MarchMove{{RegionID: "highgarden", UnitIDs: []int{11}}},
	})

	chosen := receiver.broadcastsOfType(MsgHouseCardChosen)
	if len(chosen) != 1 {
		t.Fatalf("got %d card reveals, want exactly 1 for the double auto-select", len(chosen))
	}
	wantPicks := []HouseCardPick{
		{HouseID: "baratheon", HouseCardID: "baratheon-a"},
		{HouseID: "tyrell", HouseCardID: "tyrell-a"},
	}
	if diff := cmp.Diff(wantPicks, chosen[0].HouseCardPicks); diff != "" {
		t.Errorf("auto picks mismatch (-want +got):\n%s", diff)
	}
	if got := leafType(ingame); got == StateChooseHouseCard {
		t.Errorf("card choice still open after double auto-select")
	}
}

func TestCombatExhaustedHandRefreshes(t *testing.T) {
	ingame, _, _ := newTestIngame(t, sixHouses, false)
	board := ingame.Board()
	for _, hc := range board.Houses["tyrell"].HouseCards {
		hc.State = HouseCardUsed
	}

	placeAllOrders(t, ingame, map[string]map[string]string{
		"baratheon": {"kings-landing": "march"},
	})
	skipRavenAction(t, ingame)

	ingame.OnPlayerMessage(playerOf(t, ingame, "baratheon"), &ClientMessage{
		Type:             MsgResolveMarchOrder,
		StartingRegionID: "kings-landing",
		Moves:            []MarchMove{{RegionID: "highgarden", UnitIDs: []int{11}}},
	})

	available := board.Houses["tyrell"].AvailableHouseCards()
	if len(available) != 7 {
		t.Errorf("tyrell hand after refresh = %d available cards, want the full 7", len(available))
	}
}
