package game

import (
	"math/rand"
	"sort"

	"github.com/pkg/errors"
)

// NewBoard builds a fresh authoritative board for the given houses. The rng
// drives every deck shuffle so a seeded rng yields a reproducible setup.
func NewBoard(content *Content, houseIDs []string, rng *rand.Rand) (*Board, error) {
	if len(houseIDs) < 2 {
		return nil, errors.Errorf("cannot set up a board for %d houses", len(houseIDs))
	}

	board := &Board{
		World: &World{
			Regions:   make(map[string]*Region),
			adjacency: make(map[string][]string),
		},
		Houses:              make(map[string]*House),
		Turn:                0,
		MaxTurns:            content.MaxTurns,
		WildlingStrength:    0,
		VassalRelations:     make(map[string]string),
		OldPlayerHouseCards: make(map[string][]*HouseCard),
		SupplyRestrictions:  content.SupplyRestrictions,
		content:             content,
	}

	for _, rd := range content.Regions {
		kind := RegionLand
		if rd.Sea {
			kind = RegionSea
		}
		board.World.Regions[rd.ID] = &Region{
			ID:          rd.ID,
			Name:        rd.Name,
			Kind:        kind,
			CastleLevel: rd.CastleLevel,
			SupplyIcons: rd.SupplyIcons,
			CrownIcons:  rd.CrownIcons,
			Garrison:    rd.Garrison,
			HomeOf:      rd.HomeOf,
			Units:       make(map[int]*Unit),
		}
		board.World.adjacency[rd.ID] = rd.Adjacent
	}

	wanted := make(map[string]bool)
	for _, id := range houseIDs {
		wanted[id] = true
	}
	for _, hd := range content.Houses {
		if !wanted[hd.ID] {
			continue
		}
		house := &House{
			ID:             hd.ID,
			Name:           hd.Name,
			Color:          hd.Color,
			PowerTokens:    5,
			MaxPowerTokens: content.MaxPowerTokens,
			SupplyLevel:    2,
			HouseCards:     make(map[string]*HouseCard),
		}
		for i := range hd.HouseCards {
			hc := hd.HouseCards[i]
			house.HouseCards[hc.ID] = &hc
		}
		board.Houses[house.ID] = house
		board.houseOrder = append(board.houseOrder, house.ID)
	}
	for _, id := range houseIDs {
		if _, ok := board.Houses[id]; !ok {
			return nil, errors.Errorf("unknown house [%s] in setup", id)
		}
	}

	// Capitals without units still belong to their houses; remove homes of
	// houses that are not in this game.
	for _, region := range board.World.Regions {
		if region.HomeOf != "" && board.Houses[region.HomeOf] == nil {
			region.HomeOf = ""
		}
	}

	// Initial tracks use the fixed roster order.
	board.IronThroneTrack = append([]string(nil), board.houseOrder...)
	board.FiefdomsTrack = append([]string(nil), board.houseOrder...)
	board.KingsCourtTrack = append([]string(nil), board.houseOrder...)

	for _, houseID := range board.houseOrder {
		house := board.Houses[houseID]
		for _, su := range content.SetupUnits[houseID] {
			region, err := board.World.Region(su.RegionID)
			if err != nil {
				return nil, err
			}
			board.CreateUnit(region, su.TypeID, house)
		}
		house.SupplyLevel = clampSupply(board.ControlledSupplyIcons(house), len(content.SupplyRestrictions))
	}

	board.WesterosDecks = buildWesterosDecks(content, rng)
	board.WildlingDeck = buildWildlingDeck(content, rng)

	if content.LoanCardCount > 0 {
		deck := make([]*LoanCard, content.LoanCardCount)
		for i := range deck {
			deck[i] = &LoanCard{ID: i + 1}
		}
		rng.Shuffle(len(deck), func(a, b int) { deck[a], deck[b] = deck[b], deck[a] })
		board.IronBank = &IronBank{
			LoanCardDeck: deck,
			InterestOwed: make(map[string]int),
		}
	}
	return board, nil
}

func clampSupply(level, tableLen int) int {
	if level < 0 {
		return 0
	}
	if level >= tableLen {
		return tableLen - 1
	}
	return level
}

func buildWesterosDecks(content *Content, rng *rand.Rand) [][]*WesterosCard {
	maxDeck := 0
	for _, wt := range content.WesterosCardTypes {
		if wt.Deck > maxDeck {
			maxDeck = wt.Deck
		}
	}
	decks := make([][]*WesterosCard, maxDeck+1)
	nextID := 0
	for _, typeID := range sortedWesterosTypeIDs(content) {
		wt := content.WesterosCardTypes[typeID]
		for i := 0; i < wt.Quantity; i++ {
			nextID++
			decks[wt.Deck] = append(decks[wt.Deck], &WesterosCard{ID: nextID, TypeID: wt.ID})
		}
	}
	for _, deck := range decks {
		rng.Shuffle(len(deck), func(i, j int) { deck[i], deck[j] = deck[j], deck[i] })
	}
	return decks
}

func sortedWesterosTypeIDs(content *Content) []string {
	ids := make([]string, 0, len(content.WesterosCardTypes))
	for id := range content.WesterosCardTypes {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

func buildWildlingDeck(content *Content, rng *rand.Rand) []*WildlingCard {
	ids := make([]string, 0, len(content.WildlingCardTypes))
	for id := range content.WildlingCardTypes {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	deck := make([]*WildlingCard, len(ids))
	for i, typeID := range ids {
		deck[i] = &WildlingCard{ID: i + 1, TypeID: typeID}
	}
	rng.Shuffle(len(deck), func(i, j int) { deck[i], deck[j] = deck[j], deck[i] })
	return deck
}

// ReshuffleWesterosDeck rebuilds one westeros deck from its discard pile and
// reshuffles it.
func (b *Board) ReshuffleWesterosDeck(deckIndex int, rng *rand.Rand) {
	if deckIndex < 0 || deckIndex >= len(b.WesterosDecks) {
		return
	}
	deck := b.WesterosDecks[deckIndex]
	for _, card := range deck {
		card.Discarded = false
	}
	rng.Shuffle(len(deck), func(i, j int) { deck[i], deck[j] = deck[j], deck[i] })
}

// ShuffleWildlingDeck reshuffles the wildling deck and invalidates any
// knowledge houses had of the top card.
func (b *Board) ShuffleWildlingDeck(rng *rand.Rand) {
	deck := b.WildlingDeck
	rng.Shuffle(len(deck), func(i, j int) { deck[i], deck[j] = deck[j], deck[i] })
	for _, house := range b.Houses {
		house.KnowsNextWildlingCard = false
	}
}

// DrawWesterosCard pops the next undiscarded card of a deck, reshuffling the
// discard pile back in when the deck runs dry.
func (b *Board) DrawWesterosCard(deckIndex int, rng *rand.Rand) *WesterosCard {
	deck := b.WesterosDecks[deckIndex]
	for _, card := range deck {
		if !card.Discarded {
			card.Discarded = true
			return card
		}
	}
	for _, card := range deck {
		card.Discarded = false
	}
	rng.Shuffle(len(deck), func(i, j int) { deck[i], deck[j] = deck[j], deck[i] })
	card := deck[0]
	card.Discarded = true
	return card
}

// TopWildlingCard peeks the next wildling card without revealing it.
func (b *Board) TopWildlingCard() *WildlingCard {
	if len(b.WildlingDeck) == 0 {
		return nil
	}
	return b.WildlingDeck[0]
}

// BuryWildlingCard moves the top wildling card to the bottom of the deck.
func (b *Board) BuryWildlingCard() {
	if len(b.WildlingDeck) < 2 {
		return
	}
	top := b.WildlingDeck[0]
	b.WildlingDeck = append(b.WildlingDeck[1:], top)
}
