package game

import (
	"sort"

	"github.com/rs/zerolog/log"

	"thronegate.com/server/logging"
)

var draftLogger = log.With().Str("logger_name", "game::draft").Logger()

const StateDraft = "draft"

// DraftState runs a snake draft over the pooled house cards before the
// first round. Houses pick in iron throne order, reversing direction each
// pass, until every hand is back to full size.
type DraftState struct {
	baseGameState
	ingame *IngameState

	// pool holds the undrafted cards, keyed by card id.
	pool map[string]*HouseCard
	// pickOrder is the iron throne order the snake walks over.
	pickOrder []string
	handSize  int
	pickIndex int
	forward   bool
}

func newDraftState(ingame *IngameState) *DraftState {
	d := &DraftState{ingame: ingame, forward: true}
	d.parent = ingame
	return d
}

func (d *DraftState) Type() string { return StateDraft }

func (d *DraftState) FirstStart() {
	board := d.ingame.Board()
	d.pool = make(map[string]*HouseCard)
	for _, house := range board.SortedHouses() {
		for id, card := range house.HouseCards {
			d.pool[id] = card
			if d.handSize == 0 {
				d.handSize = len(house.HouseCards)
			}
		}
		house.HouseCards = make(map[string]*HouseCard)
	}
	d.pickOrder = append([]string(nil), board.IronThroneTrack...)
	d.ingame.Log("draft-began", map[string]string{}, true)
	d.broadcastHands()
}

func (d *DraftState) broadcastHands() {
	for _, house := range d.ingame.Board().SortedHouses() {
		cards := make([]SerializedHouseCard, 0, len(house.HouseCards))
		for _, card := range house.SortedHouseCards() {
			cards = append(cards, SerializedHouseCard{ID: card.ID, State: int(card.State)})
		}
		d.ingame.Broadcast(&ServerMessage{Type: MsgUpdateHouseCards, HouseID: house.ID, HouseCards: cards})
	}
}

func (d *DraftState) currentHouseID() string {
	if len(d.pickOrder) == 0 {
		return ""
	}
	return d.pickOrder[d.pickIndex]
}

func (d *DraftState) WaitedUsers() []string {
	house, err := d.ingame.Board().House(d.currentHouseID())
	if err != nil {
		return nil
	}
	controller, err := d.ingame.ControllerOfHouse(house)
	if err != nil {
		return nil
	}
	return []string{controller.UserID}
}

// sortedPoolIDs keeps auto-picks deterministic.
func (d *DraftState) sortedPoolIDs() []string {
	ids := make([]string, 0, len(d.pool))
	for id := range d.pool {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

func (d *DraftState) OnPlayerMessage(player *Player, message *ClientMessage) {
	if message.Type != MsgDraftHouseCard {
		d.baseGameState.OnPlayerMessage(player, message)
		return
	}
	house, err := d.ingame.Board().House(d.currentHouseID())
	if err != nil {
		return
	}
	controller, err := d.ingame.ControllerOfHouse(house)
	if err != nil || controller.UserID != player.UserID {
		draftLogger.Warn().Str(logging.UserIDKey, player.UserID).Msg("Dropping draft pick: not the picking player")
		return
	}
	card, ok := d.pool[message.HouseCardID]
	if !ok {
		draftLogger.Warn().Str("card", message.HouseCardID).Msg("Dropping draft pick: card not in the pool")
		return
	}
	d.pick(house, card, false)
}

func (d *DraftState) pick(house *House, card *HouseCard, resolvedAutomatically bool) {
	delete(d.pool, card.ID)
	card.State = HouseCardAvailable
	house.HouseCards[card.ID] = card
	cards := make([]SerializedHouseCard, 0, len(house.HouseCards))
	for _, c := range house.SortedHouseCards() {
		cards = append(cards, SerializedHouseCard{ID: c.ID, State: int(c.State)})
	}
	d.ingame.Broadcast(&ServerMessage{Type: MsgUpdateHouseCards, HouseID: house.ID, HouseCards: cards})
	d.ingame.Log("house-card-drafted", map[string]string{
		"house": house.ID,
		"card":  card.ID,
	}, resolvedAutomatically)
	d.advance()
}

func (d *DraftState) advance() {
	board := d.ingame.Board()
	done := true
	for _, house := range board.SortedHouses() {
		if len(house.HouseCards) < d.handSize {
			done = false
		}
	}
	if done || len(d.pool) == 0 {
		d.ingame.Log("draft-finished", map[string]string{}, true)
		d.ingame.onDraftFinished()
		return
	}
	// Snake to the next house that still needs cards.
	for {
		if d.forward {
			if d.pickIndex == len(d.pickOrder)-1 {
				d.forward = false
			} else {
				d.pickIndex++
			}
		} else {
			if d.pickIndex == 0 {
				d.forward = true
			} else {
				d.pickIndex--
			}
		}
		house, err := board.House(d.currentHouseID())
		if err != nil {
			continue
		}
		if len(house.HouseCards) < d.handSize {
			break
		}
	}
	d.autoPickIfVassal()
}

func (d *DraftState) autoPickIfVassal() {
	house, err := d.ingame.Board().House(d.currentHouseID())
	if err != nil {
		return
	}
	if d.ingame.IsVassalHouse(house) {
		d.autoPick(house)
	}
}

// autoPick takes the strongest remaining card.
func (d *DraftState) autoPick(house *House) {
	var best *HouseCard
	for _, id := range d.sortedPoolIDs() {
		card := d.pool[id]
		if best == nil || card.CombatStrength > best.CombatStrength {
			best = card
		}
	}
	if best == nil {
		d.ingame.onDraftFinished()
		return
	}
	d.pick(house, best, true)
}

// ActionAfterVassalReplacement auto-picks when it is the departed player's
// turn; later turns resolve through autoPickIfVassal.
func (d *DraftState) ActionAfterVassalReplacement(house *House) {
	if house.ID != d.currentHouseID() {
		return
	}
	d.autoPick(house)
}
