package game

import (
	"sort"

	"github.com/rs/zerolog/log"

	"thronegate.com/server/logging"
)

var planningLogger = log.With().Str("logger_name", "game::planning").Logger()

const StatePlanning = "planning"

// Planning restriction ids emitted by westeros cards.
const (
	RestrictionNoRaid             = "no-raid"
	RestrictionNoMarchPlusOne     = "no-march-plus-one"
	RestrictionNoConsolidatePower = "no-consolidate-power"
	RestrictionNoDefense          = "no-defense"
	RestrictionNoSupport          = "no-support"
)

func orderRestricted(restrictions []string, ot *OrderType) bool {
	for _, r := range restrictions {
		switch r {
		case RestrictionNoRaid:
			if ot.Kind == OrderRaid {
				return true
			}
		case RestrictionNoMarchPlusOne:
			if ot.Kind == OrderMarch && ot.Starred {
				return true
			}
		case RestrictionNoConsolidatePower:
			if ot.Kind == OrderConsolidatePower {
				return true
			}
		case RestrictionNoDefense:
			if ot.Kind == OrderDefense {
				return true
			}
		case RestrictionNoSupport:
			if ot.Kind == OrderSupport {
				return true
			}
		}
	}
	return false
}

// PlanningState collects hidden orders from every player. Orders stay
// secret until every house is ready, then the whole set is revealed at
// once. Commanders place orders for their vassals alongside their own.
type PlanningState struct {
	baseGameState
	ingame *IngameState

	restrictions []string

	// placedOrders is house id -> region id -> order type id, hidden from
	// other players until reveal.
	placedOrders map[string]map[string]string
	readyHouses  map[string]bool
}

func newPlanningState(ingame *IngameState) *PlanningState {
	p := &PlanningState{
		ingame:       ingame,
		placedOrders: make(map[string]map[string]string),
		readyHouses:  make(map[string]bool),
	}
	p.parent = ingame
	return p
}

func (p *PlanningState) Type() string { return StatePlanning }

func (p *PlanningState) FirstStart(restrictions []string) {
	p.restrictions = restrictions
	p.ingame.Log("planning-began", map[string]string{}, true)
}

// orderableRegions lists the regions where the house may place an order:
// controlled regions holding at least one of its units.
func (p *PlanningState) orderableRegions(house *House) map[string]bool {
	regions := make(map[string]bool)
	for _, region := range p.ingame.Board().World.Regions {
		if len(region.Units) == 0 {
			continue
		}
		if controller := p.ingame.Board().Controller(region); controller == house {
			regions[region.ID] = true
		}
	}
	return regions
}

// housesOf returns the player's own house plus the vassals it commands.
func (p *PlanningState) housesOf(player *Player) []*House {
	houses := make([]*House, 0)
	if own, err := p.ingame.Board().House(player.HouseID); err == nil {
		houses = append(houses, own)
	}
	for _, vassal := range p.ingame.VassalHouses() {
		if commanderID, ok := p.ingame.Board().VassalRelations[vassal.ID]; ok && commanderID == player.HouseID {
			houses = append(houses, vassal)
		}
	}
	return houses
}

func (p *PlanningState) OnPlayerMessage(player *Player, message *ClientMessage) {
	if message.Type != MsgPlaceOrders {
		p.baseGameState.OnPlayerMessage(player, message)
		return
	}
	if p.readyHouses[player.HouseID] {
		planningLogger.Warn().Str(logging.HouseKey, player.HouseID).Msg("Dropping orders: house already ready")
		return
	}

	houses := p.housesOf(player)
	orderable := make(map[string]string)
	for _, h := range houses {
		for regionID := range p.orderableRegions(h) {
			orderable[regionID] = h.ID
		}
	}

	placed := make(map[string]map[string]string)
	for regionID, orderTypeID := range message.Orders {
		houseID, ok := orderable[regionID]
		if !ok {
			planningLogger.Warn().
				Str(logging.HouseKey, player.HouseID).
				Str(logging.RegionKey, regionID).
				Msg("Dropping orders: region not orderable")
			return
		}
		ot := p.ingame.Content().OrderTypes[orderTypeID]
		if ot == nil {
			planningLogger.Warn().Str("orderType", orderTypeID).Msg("Dropping orders: unknown order type")
			return
		}
		if orderRestricted(p.restrictions, ot) {
			planningLogger.Warn().Str("orderType", orderTypeID).Msg("Dropping orders: order type restricted this round")
			return
		}
		if placed[houseID] == nil {
			placed[houseID] = make(map[string]string)
		}
		placed[houseID][regionID] = orderTypeID
	}

	for _, h := range houses {
		p.placedOrders[h.ID] = placed[h.ID]
		if p.placedOrders[h.ID] == nil {
			p.placedOrders[h.ID] = make(map[string]string)
		}
		p.readyHouses[h.ID] = true
	}
	p.ingame.Log("orders-placed", map[string]string{"house": player.HouseID}, false)
	p.checkCompletion()
}

// ActionAfterVassalReplacement marks the vassalized house (and any vassals
// it commanded) as ready so planning cannot stall on a departed player.
func (p *PlanningState) ActionAfterVassalReplacement(house *House) {
	if !p.readyHouses[house.ID] {
		if p.placedOrders[house.ID] == nil {
			p.placedOrders[house.ID] = make(map[string]string)
		}
		p.readyHouses[house.ID] = true
	}
	p.checkCompletion()
}

func (p *PlanningState) checkCompletion() {
	for _, h := range p.ingame.Board().SortedHouses() {
		if !p.readyHouses[h.ID] {
			return
		}
	}
	orders := make(map[string]string)
	for _, regionOrders := range p.placedOrders {
		for regionID, orderTypeID := range regionOrders {
			orders[regionID] = orderTypeID
		}
	}
	p.ingame.onPlanningPhaseFinished(orders)
}

func (p *PlanningState) WaitedUsers() []string {
	users := make([]string, 0)
	seen := make(map[string]bool)
	for _, h := range p.ingame.Board().SortedHouses() {
		if p.readyHouses[h.ID] {
			continue
		}
		controller, err := p.ingame.ControllerOfHouse(h)
		if err != nil || seen[controller.UserID] {
			continue
		}
		seen[controller.UserID] = true
		users = append(users, controller.UserID)
	}
	sort.Strings(users)
	return users
}
