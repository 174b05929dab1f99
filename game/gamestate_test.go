package game

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestLeafAndFindState(t *testing.T) {
	ingame, _, _ := newTestIngame(t, sixHouses, false)

	if got := leafType(ingame); got != StatePlanning {
		t.Errorf("leaf after first start = %s, want %s", got, StatePlanning)
	}
	if FindState(ingame, StateIngame) != ingame {
		t.Errorf("FindState(%s) did not return the root", StateIngame)
	}
	if FindState(ingame, StatePlanning) == nil {
		t.Errorf("FindState(%s) = nil, want the planning node", StatePlanning)
	}
	if got := FindState(ingame, StateCombat); got != nil {
		t.Errorf("FindState(%s) = %v, want nil", StateCombat, got)
	}
}

func TestWaitedUsersDuringPlanning(t *testing.T) {
	ingame, _, _ := newTestIngame(t, sixHouses, false)

	want := []string{
		"user-baratheon", "user-greyjoy", "user-lannister",
		"user-martell", "user-stark", "user-tyrell",
	}
	if diff := cmp.Diff(want, WaitedUsers(ingame)); diff != "" {
		t.Errorf("waited users mismatch (-want +got):\n%s", diff)
	}

	planning := LeafState(ingame).(*PlanningState)
	planning.OnPlayerMessage(playerOf(t, ingame, "stark"), &ClientMessage{Type: MsgPlaceOrders})

	want = []string{
		"user-baratheon", "user-greyjoy", "user-lannister",
		"user-martell", "user-tyrell",
	}
	if diff := cmp.Diff(want, WaitedUsers(ingame)); diff != "" {
		t.Errorf("waited users after stark ready (-want +got):\n%s", diff)
	}
}

func TestSetChildGameStateLinksParent(t *testing.T) {
	ingame, _, _ := newTestIngame(t, sixHouses, false)

	leaf := LeafState(ingame)
	if leaf.Parent() != ingame {
		t.Errorf("leaf parent = %v, want the ingame root", leaf.Parent())
	}
	if ingame.ChildGameState() != leaf {
		t.Errorf("root child = %v, want the leaf", ingame.ChildGameState())
	}
}
