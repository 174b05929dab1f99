package game

import "testing"

// ravenOrders places a minimal order set that leaves the game waiting on
// the raven holder, with a pending martell march keeping the round open.
func ravenOrders(extra map[string]string) map[string]map[string]string {
	orders := map[string]map[string]string{
		"stark":   {"winterfell": "march"},
		"martell": {"sunspear": "march"},
	}
	for region, orderType := range extra {
		orders["stark"][region] = orderType
	}
	return orders
}

func TestRavenSwapsRevealedOrder(t *testing.T) {
	ingame, _, _ := newTestIngame(t, sixHouses, false)
	placeAllOrders(t, ingame, ravenOrders(nil))

	holder := ingame.Board().KingsCourtTrack[0]
	if holder != "stark" {
		t.Fatalf("expected stark to hold the raven, got %s", holder)
	}
	ingame.OnPlayerMessage(playerOf(t, ingame, "stark"), &ClientMessage{
		Type:        MsgReplaceOrder,
		RegionID:    "winterfell",
		OrderTypeID: "support",
	})

	if got := ingame.OrdersOnBoard()["winterfell"]; got != "support" {
		t.Fatalf("expected winterfell order swapped to support, got %s", got)
	}
	if entry := lastLogOfKind(ingame, "raven-order-replaced"); entry == nil {
		t.Fatal("expected a raven-order-replaced log entry")
	}
	if got := leafType(ingame); got == StateRaven {
		t.Fatal("expected the raven decision to be resolved after the swap")
	}
}

func TestRavenSwapRejections(t *testing.T) {
	ingame, _, _ := newTestIngame(t, sixHouses, false)
	placeAllOrders(t, ingame, ravenOrders(map[string]string{"white-harbor": "defense-plus-one"}))

	stark := playerOf(t, ingame, "stark")
	cases := []struct {
		name    string
		player  *Player
		message *ClientMessage
	}{
		{
			name:    "not the holder",
			player:  playerOf(t, ingame, "lannister"),
			message: &ClientMessage{Type: MsgReplaceOrder, RegionID: "winterfell", OrderTypeID: "support"},
		},
		{
			name:    "no own order in region",
			player:  stark,
			message: &ClientMessage{Type: MsgReplaceOrder, RegionID: "moat-cailin", OrderTypeID: "support"},
		},
		{
			name:    "unknown order type",
			player:  stark,
			message: &ClientMessage{Type: MsgReplaceOrder, RegionID: "winterfell", OrderTypeID: "charge"},
		},
		{
			name:    "starred order already on the board",
			player:  stark,
			message: &ClientMessage{Type: MsgReplaceOrder, RegionID: "winterfell", OrderTypeID: "defense-plus-one"},
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			ingame.OnPlayerMessage(tc.player, tc.message)
			if got := leafType(ingame); got != StateRaven {
				t.Fatalf("expected the raven decision to stay open, got %s", got)
			}
			if got := ingame.OrdersOnBoard()["winterfell"]; got != "march" {
				t.Fatalf("expected winterfell order untouched, got %s", got)
			}
		})
	}
}

func TestRavenKeepsTopWildlingCard(t *testing.T) {
	ingame, receiver, _ := newTestIngame(t, sixHouses, false)
	placeAllOrders(t, ingame, ravenOrders(nil))

	topCard := ingame.Board().TopWildlingCard()
	stark := playerOf(t, ingame, "stark")
	ingame.OnPlayerMessage(stark, &ClientMessage{Type: MsgChooseTopWildlingCardUsage, Action: "see"})
	if got := leafType(ingame); got != StateSeeTopWildlingCard {
		t.Fatalf("expected the wildling card decision, got %s", got)
	}
	reveals := receiver.sendsOfType(stark.UserID, MsgRevealTopWildlingCard)
	if len(reveals) != 1 || reveals[0].WildlingCardID != topCard.ID {
		t.Fatalf("expected one reveal of card %d, got %+v", topCard.ID, reveals)
	}

	ingame.OnPlayerMessage(stark, &ClientMessage{Type: MsgChooseTopWildlingCardUsage, Action: "keep"})
	if !ingame.Board().Houses["stark"].KnowsNextWildlingCard {
		t.Fatal("expected stark to know the next wildling card")
	}
	known := receiver.broadcastsOfType(MsgKnowsNextWildlingCard)
	if len(known) != 1 || known[0].HouseID != "stark" {
		t.Fatalf("expected one foreknowledge broadcast for stark, got %+v", known)
	}
	if got := ingame.Board().TopWildlingCard(); got.ID != topCard.ID {
		t.Fatalf("expected the top wildling card to stay, got %d", got.ID)
	}
	if got := leafType(ingame); got == StateRaven || got == StateSeeTopWildlingCard {
		t.Fatalf("expected the raven decision to be resolved, got %s", got)
	}
}

func TestRavenBuriesTopWildlingCard(t *testing.T) {
	ingame, receiver, _ := newTestIngame(t, sixHouses, false)
	placeAllOrders(t, ingame, ravenOrders(nil))

	deckSize := len(ingame.Board().WildlingDeck)
	topCard := ingame.Board().TopWildlingCard()
	stark := playerOf(t, ingame, "stark")
	ingame.OnPlayerMessage(stark, &ClientMessage{Type: MsgChooseTopWildlingCardUsage, Action: "see"})
	ingame.OnPlayerMessage(stark, &ClientMessage{Type: MsgChooseTopWildlingCardUsage, Action: "bottom"})

	deck := ingame.Board().WildlingDeck
	if len(deck) != deckSize {
		t.Fatalf("expected the deck size to stay %d, got %d", deckSize, len(deck))
	}
	if deck[0].ID == topCard.ID {
		t.Fatal("expected the top wildling card to change")
	}
	if deck[len(deck)-1].ID != topCard.ID {
		t.Fatal("expected the old top card at the bottom of the deck")
	}
	if got := len(receiver.broadcastsOfType(MsgHideTopWildlingCard)); got != 1 {
		t.Fatalf("expected one hide-top-wildling-card broadcast, got %d", got)
	}
	if ingame.Board().Houses["stark"].KnowsNextWildlingCard {
		t.Fatal("expected burying to not mark the card as known")
	}
}

func TestRavenVassalHolderAutoPasses(t *testing.T) {
	ingame, _, _ := newTestIngame(t, sixHouses, false)
	placeAllOrders(t, ingame, ravenOrders(nil))

	house, err := ingame.Board().House("stark")
	if err != nil {
		t.Fatalf("House: %v", err)
	}
	if err := ingame.ReplacePlayerByVassal(house); err != nil {
		t.Fatalf("ReplacePlayerByVassal: %v", err)
	}

	if entry := lastLogOfKind(ingame, "raven-skipped"); entry == nil {
		t.Fatal("expected a raven-skipped log entry")
	}
	if got := leafType(ingame); got == StateRaven {
		t.Fatal("expected the raven decision to be resolved for the vassal")
	}
}
