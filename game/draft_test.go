package game

import (
	"fmt"
	"testing"

	"github.com/google/go-cmp/cmp"
)

// allHouseCardIDs lists the full draft pool of the built-in content in a
// stable order.
func allHouseCardIDs() []string {
	var ids []string
	for _, houseID := range sixHouses {
		for _, letter := range []string{"a", "b", "c", "d", "e", "f", "g"} {
			ids = append(ids, fmt.Sprintf("%s-%s", houseID, letter))
		}
	}
	return ids
}

func draftPick(t *testing.T, ingame *IngameState, houseID, cardID string) {
	t.Helper()
	ingame.OnPlayerMessage(playerOf(t, ingame, houseID), &ClientMessage{
		Type:        MsgDraftHouseCard,
		HouseCardID: cardID,
	})
}

func TestDraftSnakesOverIronThroneOrder(t *testing.T) {
	ingame, _, _ := newTestIngame(t, sixHouses, true)
	if got := leafType(ingame); got != StateDraft {
		t.Fatalf("expected the draft phase, got %s", got)
	}

	// The last house in track order picks twice at the turnaround.
	pickers := []string{"stark", "lannister", "baratheon", "greyjoy", "tyrell", "martell", "martell", "tyrell"}
	picks := []string{"stark-a", "lannister-a", "baratheon-a", "greyjoy-a", "tyrell-a", "martell-a", "martell-b", "tyrell-b"}
	for n, houseID := range pickers {
		want := []string{"user-" + houseID}
		if diff := cmp.Diff(want, WaitedUsers(ingame)); diff != "" {
			t.Fatalf("pick %d waited users mismatch (-want +got):\n%s", n+1, diff)
		}
		draftPick(t, ingame, houseID, picks[n])
	}

	martell := ingame.Board().Houses["martell"]
	if _, ok := martell.HouseCards["martell-a"]; !ok {
		t.Fatal("expected martell to hold martell-a")
	}
	if _, ok := martell.HouseCards["martell-b"]; !ok {
		t.Fatal("expected martell to hold martell-b")
	}
	if got := len(martell.HouseCards); got != 2 {
		t.Fatalf("expected martell to hold two cards, got %d", got)
	}
}

func TestDraftRejectsInvalidPicks(t *testing.T) {
	ingame, _, _ := newTestIngame(t, sixHouses, true)

	// Out of turn.
	draftPick(t, ingame, "lannister", "lannister-a")
	if diff := cmp.Diff([]string{"user-stark"}, WaitedUsers(ingame)); diff != "" {
		t.Fatalf("waited users mismatch after out-of-turn pick (-want +got):\n%s", diff)
	}
	// Not in the pool.
	draftPick(t, ingame, "stark", "stark-z")
	if got := len(ingame.Board().Houses["stark"].HouseCards); got != 0 {
		t.Fatalf("expected stark hand to stay empty, got %d cards", got)
	}
	// A valid pick still goes through afterwards.
	draftPick(t, ingame, "stark", "martell-g")
	if _, ok := ingame.Board().Houses["stark"].HouseCards["martell-g"]; !ok {
		t.Fatal("expected stark to hold martell-g")
	}
}

func TestDraftCompletionStartsTheFirstRound(t *testing.T) {
	ingame, _, _ := newTestIngame(t, sixHouses, true)

	remaining := allHouseCardIDs()
	for n := 0; leafType(ingame) == StateDraft; n++ {
		if n >= len(allHouseCardIDs()) {
			t.Fatal("draft did not finish after the pool ran out")
		}
		waited := WaitedUsers(ingame)
		if len(waited) != 1 {
			t.Fatalf("expected one waited user, got %v", waited)
		}
		houseID := waited[0][len("user-"):]
		draftPick(t, ingame, houseID, remaining[0])
		remaining = remaining[1:]
	}

	if got := leafType(ingame); got != StatePlanning {
		t.Fatalf("expected the planning phase after the draft, got %s", got)
	}
	for _, house := range ingame.Board().SortedHouses() {
		if got := len(house.AvailableHouseCards()); got != 7 {
			t.Fatalf("expected %s to hold seven cards, got %d", house.ID, got)
		}
	}
	if entry := lastLogOfKind(ingame, "draft-finished"); entry == nil {
		t.Fatal("expected a draft-finished log entry")
	}
}

func TestDraftVassalAutoPicksStrongestCard(t *testing.T) {
	ingame, _, _ := newTestIngame(t, sixHouses, true)

	house, err := ingame.Board().House("stark")
	if err != nil {
		t.Fatalf("House: %v", err)
	}
	if err := ingame.ReplacePlayerByVassal(house); err != nil {
		t.Fatalf("ReplacePlayerByVassal: %v", err)
	}

	if _, ok := house.HouseCards["baratheon-g"]; !ok {
		t.Fatalf("expected the vassal to auto-pick baratheon-g, got %v", house.SortedHouseCards())
	}
	entry := lastLogOfKind(ingame, "house-card-drafted")
	if entry == nil || !entry.ResolvedAutomatically {
		t.Fatalf("expected an automatic draft log entry, got %+v", entry)
	}
	if diff := cmp.Diff([]string{"user-lannister"}, WaitedUsers(ingame)); diff != "" {
		t.Fatalf("waited users mismatch (-want +got):\n%s", diff)
	}
}
