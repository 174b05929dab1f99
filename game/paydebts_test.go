package game

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

func startPayDebts(t *testing.T, ingame *IngameState, owed map[string]int) {
	t.Helper()
	bank := ingame.Board().IronBank
	for houseID, n := range owed {
		bank.InterestOwed[houseID] = n
	}
	p := newPayDebtsState(ingame)
	ingame.SetChildGameState(p)
	p.FirstStart()
}

func TestPayDebtsPlayerChoosesCasualties(t *testing.T) {
	ingame, receiver, _ := newTestIngame(t, sixHouses, false)
	startPayDebts(t, ingame, map[string]int{"stark": 1})

	if diff := cmp.Diff([]string{"user-stark"}, WaitedUsers(ingame)); diff != "" {
		t.Fatalf("waited users mismatch (-want +got):\n%s", diff)
	}
	stark := playerOf(t, ingame, "stark")

	// Wrong unit count.
	ingame.OnPlayerMessage(stark, &ClientMessage{Type: MsgSelectUnits, Units: []UnitSelection{
		{RegionID: "winterfell", UnitIDs: []int{1, 2}},
	}})
	if got := leafType(ingame); got != StatePayDebts {
		t.Fatalf("expected debt payment to stay open, got %s", got)
	}
	// Foreign unit.
	ingame.OnPlayerMessage(stark, &ClientMessage{Type: MsgSelectUnits, Units: []UnitSelection{
		{RegionID: "pyke", UnitIDs: []int{13}},
	}})
	if got := leafType(ingame); got != StatePayDebts {
		t.Fatalf("expected debt payment to stay open, got %s", got)
	}

	ingame.OnPlayerMessage(stark, &ClientMessage{Type: MsgSelectUnits, Units: []UnitSelection{
		{RegionID: "winterfell", UnitIDs: []int{2}},
	}})
	if diff := cmp.Diff([]string{"knight"}, regionUnits(ingame, "winterfell")); diff != "" {
		t.Fatalf("winterfell units mismatch (-want +got):\n%s", diff)
	}
	if got := ingame.Board().IronBank.InterestOwed["stark"]; got != 0 {
		t.Fatalf("expected stark debt settled, got %d", got)
	}
	removals := receiver.broadcastsOfType(MsgRemoveUnits)
	if len(removals) != 1 || removals[0].RegionID != "winterfell" {
		t.Fatalf("expected one unit removal in winterfell, got %+v", removals)
	}
	if got := leafType(ingame); got != StatePlanning {
		t.Fatalf("expected planning after all debts settled, got %s", got)
	}
}

func TestPayDebtsDestroysEverythingWhenShort(t *testing.T) {
	ingame, _, _ := newTestIngame(t, sixHouses, false)
	startPayDebts(t, ingame, map[string]int{"martell": 5})

	if got := regionUnits(ingame, "sunspear"); len(got) != 0 {
		t.Fatalf("expected sunspear emptied, got %v", got)
	}
	entry := lastLogOfKind(ingame, "debt-settled")
	if entry == nil || !entry.ResolvedAutomatically {
		t.Fatalf("expected an automatic settlement log entry, got %+v", entry)
	}
	if entry.Data["destroyed"] != "2" {
		t.Fatalf("expected two destroyed units, got %s", entry.Data["destroyed"])
	}
	if got := ingame.Board().IronBank.InterestOwed["martell"]; got != 0 {
		t.Fatalf("expected martell debt settled, got %d", got)
	}
}

func TestPayDebtsVassalDestroysWeakestUnits(t *testing.T) {
	ingame, _, _ := newTestIngame(t, sixHouses, false)

	house, err := ingame.Board().House("greyjoy")
	if err != nil {
		t.Fatalf("House: %v", err)
	}
	if err := ingame.ReplacePlayerByVassal(house); err != nil {
		t.Fatalf("ReplacePlayerByVassal: %v", err)
	}
	startPayDebts(t, ingame, map[string]int{"greyjoy": 1})

	if diff := cmp.Diff([]string{"knight"}, regionUnits(ingame, "pyke")); diff != "" {
		t.Fatalf("pyke units mismatch (-want +got):\n%s", diff)
	}
	entry := lastLogOfKind(ingame, "debt-settled")
	if entry == nil || !entry.ResolvedAutomatically {
		t.Fatalf("expected an automatic settlement log entry, got %+v", entry)
	}
}
