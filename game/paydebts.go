package game

import (
	"sort"
	"strconv"

	"github.com/rs/zerolog/log"

	"thronegate.com/server/logging"
)

var debtsLogger = log.With().Str("logger_name", "game::paydebts").Logger()

const StatePayDebts = "pay-debts"

// PayDebtsState settles overdue iron bank interest at the start of a
// round: each indebted house destroys as many of its units as it owes,
// in turn order. Houses with fewer units than owed lose everything.
type PayDebtsState struct {
	baseGameState
	ingame *IngameState

	resolver *turnOrderResolver
	houseID  string
}

func newPayDebtsState(ingame *IngameState) *PayDebtsState {
	p := &PayDebtsState{ingame: ingame}
	p.parent = ingame
	return p
}

func (p *PayDebtsState) Type() string { return StatePayDebts }

func (p *PayDebtsState) FirstStart() {
	p.resolver = newTurnOrderResolver(p.ingame.Board())
	p.ingame.Log("debt-collection-began", map[string]string{}, true)
	p.proceedNext()
}

func (p *PayDebtsState) owed(house *House) int {
	bank := p.ingame.Board().IronBank
	if bank == nil {
		return 0
	}
	return bank.InterestOwed[house.ID]
}

func (p *PayDebtsState) proceedNext() {
	board := p.ingame.Board()
	house := p.resolver.next(func(h *House) bool {
		return p.owed(h) > 0
	})
	if house == nil {
		p.ingame.onPayDebtsFinished()
		return
	}
	p.resolver.markResolved(house)
	p.houseID = house.ID

	owned := len(board.UnitsOfHouse(house))
	owed := p.owed(house)
	if owned == 0 {
		p.settle(house, nil, true)
		return
	}
	if owned <= owed {
		// Not enough units to choose from: everything goes.
		removed := make(map[string][]int)
		for _, region := range board.World.SortedRegions() {
			for _, u := range region.SortedUnits() {
				if u.Allegiance == house.ID {
					removed[region.ID] = append(removed[region.ID], u.ID)
				}
			}
		}
		p.settle(house, removed, true)
		return
	}
	if p.ingame.IsVassalHouse(house) {
		p.settle(house, p.defaultPayment(house), true)
	}
}

func (p *PayDebtsState) WaitedUsers() []string {
	house, err := p.ingame.Board().House(p.houseID)
	if err != nil {
		return nil
	}
	controller, err := p.ingame.ControllerOfHouse(house)
	if err != nil {
		return nil
	}
	return []string{controller.UserID}
}

func (p *PayDebtsState) OnPlayerMessage(player *Player, message *ClientMessage) {
	if message.Type != MsgSelectUnits {
		p.baseGameState.OnPlayerMessage(player, message)
		return
	}
	board := p.ingame.Board()
	house, err := board.House(p.houseID)
	if err != nil {
		return
	}
	controller, err := p.ingame.ControllerOfHouse(house)
	if err != nil || controller.UserID != player.UserID {
		debtsLogger.Warn().Str(logging.UserIDKey, player.UserID).Msg("Dropping debt payment: not the indebted player")
		return
	}

	removed := make(map[string][]int)
	count := 0
	seen := make(map[int]bool)
	for _, sel := range message.Units {
		region, err := board.World.Region(sel.RegionID)
		if err != nil {
			debtsLogger.Warn().Str(logging.RegionKey, sel.RegionID).Msg("Dropping debt payment: unknown region")
			return
		}
		for _, id := range sel.UnitIDs {
			u, ok := region.Units[id]
			if !ok || u.Allegiance != house.ID || seen[id] {
				debtsLogger.Warn().Int("unit", id).Msg("Dropping debt payment: invalid unit")
				return
			}
			seen[id] = true
			removed[sel.RegionID] = append(removed[sel.RegionID], id)
			count++
		}
	}
	if count != p.owed(house) {
		debtsLogger.Warn().
			Str(logging.HouseKey, house.ID).
			Int("selected", count).
			Int("owed", p.owed(house)).
			Msg("Dropping debt payment: wrong unit count")
		return
	}
	p.settle(house, removed, false)
}

// defaultPayment destroys the weakest units first.
func (p *PayDebtsState) defaultPayment(house *House) map[string][]int {
	board := p.ingame.Board()
	type candidate struct {
		regionID string
		unitID   int
		strength int
	}
	candidates := make([]candidate, 0)
	for _, region := range board.World.SortedRegions() {
		for _, u := range region.SortedUnits() {
			if u.Allegiance != house.ID {
				continue
			}
			strength := 0
			if ut := board.UnitType(u.TypeID); ut != nil {
				strength = ut.CombatStrength
			}
			candidates = append(candidates, candidate{region.ID, u.ID, strength})
		}
	}
	sort.SliceStable(candidates, func(a, b int) bool {
		return candidates[a].strength < candidates[b].strength
	})
	removed := make(map[string][]int)
	for n := 0; n < p.owed(house) && n < len(candidates); n++ {
		removed[candidates[n].regionID] = append(removed[candidates[n].regionID], candidates[n].unitID)
	}
	return removed
}

func (p *PayDebtsState) settle(house *House, removed map[string][]int, resolvedAutomatically bool) {
	board := p.ingame.Board()
	destroyed := 0
	regionIDs := make([]string, 0, len(removed))
	for regionID := range removed {
		regionIDs = append(regionIDs, regionID)
	}
	sort.Strings(regionIDs)
	for _, regionID := range regionIDs {
		region, err := board.World.Region(regionID)
		if err != nil {
			continue
		}
		ids := removed[regionID]
		sort.Ints(ids)
		for _, id := range ids {
			delete(region.Units, id)
			destroyed++
		}
		p.ingame.Broadcast(&ServerMessage{Type: MsgRemoveUnits, RegionID: regionID, UnitIDs: ids})
	}
	board.IronBank.InterestOwed[house.ID] = 0
	p.ingame.Log("debt-settled", map[string]string{
		"house":     house.ID,
		"destroyed": strconv.Itoa(destroyed),
	}, resolvedAutomatically)
	if p.ingame.CheckVictory() {
		return
	}
	p.proceedNext()
}

// ActionAfterVassalReplacement settles the departed player's debt with the
// weakest units.
func (p *PayDebtsState) ActionAfterVassalReplacement(house *House) {
	if house.ID != p.houseID {
		return
	}
	p.settle(house, p.defaultPayment(house), true)
}
