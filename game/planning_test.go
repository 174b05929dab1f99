package game

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestOrderRestricted(t *testing.T) {
	content := DefaultContent()
	tests := []struct {
		name         string
		restrictions []string
		orderTypeID  string
		want         bool
	}{
		{"no restrictions", nil, "raid", false},
		{"raid blocked", []string{RestrictionNoRaid}, "raid", true},
		{"starred raid blocked", []string{RestrictionNoRaid}, "raid-special", true},
		{"march survives raid block", []string{RestrictionNoRaid}, "march", false},
		{"starred march blocked", []string{RestrictionNoMarchPlusOne}, "march-plus-one", true},
		{"plain march survives", []string{RestrictionNoMarchPlusOne}, "march", false},
		{"consolidate power blocked", []string{RestrictionNoConsolidatePower}, "muster", true},
		{"defense blocked", []string{RestrictionNoDefense}, "defense-plus-one", true},
		{"support blocked", []string{RestrictionNoSupport}, "support-plus-one", true},
		{"stacked restrictions", []string{RestrictionNoRaid, RestrictionNoSupport}, "support", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ot := content.OrderTypes[tt.orderTypeID]
			if ot == nil {
				t.Fatalf("unknown order type %s", tt.orderTypeID)
			}
			if got := orderRestricted(tt.restrictions, ot); got != tt.want {
				t.Errorf("orderRestricted(%v, %s) = %v, want %v", tt.restrictions, tt.orderTypeID, got, tt.want)
			}
		})
	}
}

func TestPlanningDropsInvalidBatches(t *testing.T) {
	tests := []struct {
		name   string
		orders map[string]string
	}{
		{"foreign region", map[string]string{"lannisport": "march"}},
		{"region without units", map[string]string{"moat-cailin": "march"}},
		{"unknown order type", map[string]string{"winterfell": "charge"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ingame, _, _ := newTestIngame(t, sixHouses, false)
			planning := LeafState(ingame).(*PlanningState)
			stark := playerOf(t, ingame, "stark")

			planning.OnPlayerMessage(stark, &ClientMessage{Type: MsgPlaceOrders, Orders: tt.orders})

			if planning.readyHouses["stark"] {
				t.Errorf("invalid batch marked stark ready")
			}
		})
	}
}

func TestPlanningSecondBatchDropped(t *testing.T) {
	ingame, _, _ := newTestIngame(t, sixHouses, false)
	planning := LeafState(ingame).(*PlanningState)
	stark := playerOf(t, ingame, "stark")

	planning.OnPlayerMessage(stark, &ClientMessage{Type: MsgPlaceOrders, Orders: map[string]string{"winterfell": "march"}})
	planning.OnPlayerMessage(stark, &ClientMessage{Type: MsgPlaceOrders, Orders: map[string]string{"winterfell": "raid"}})

	if got := planning.placedOrders["stark"]["winterfell"]; got != "march" {
		t.Errorf("order after second batch = %s, want the original march", got)
	}
}

func TestPlanningCompletionRevealsOrders(t *testing.T) {
	ingame, receiver, _ := newTestIngame(t, sixHouses, false)

	placeAllOrders(t, ingame, map[string]map[string]string{
		"stark":     {"winterfell": "march", "white-harbor": "support"},
		"lannister": {"lannisport": "defense-plus-one"},
		"baratheon": {"kings-landing": "consolidate-power"},
	})

	want := map[string]string{
		"winterfell":    "march",
		"white-harbor":  "support",
		"lannisport":    "defense-plus-one",
		"kings-landing": "consolidate-power",
	}
	if diff := cmp.Diff(want, ingame.OrdersOnBoard()); diff != "" {
		t.Errorf("revealed orders mismatch (-want +got):\n%s", diff)
	}

	reveals := receiver.broadcastsOfType(MsgRevealOrders)
	if len(reveals) != 1 {
		t.Fatalf("got %d reveal broadcasts, want 1", len(reveals))
	}
	if diff := cmp.Diff(want, reveals[0].Orders); diff != "" {
		t.Errorf("reveal broadcast mismatch (-want +got):\n%s", diff)
	}

	// The action phase opens with the raven holder's decision.
	if got := leafType(ingame); got != StateRaven {
		t.Errorf("leaf after planning = %s, want %s", got, StateRaven)
	}
}
