package game

import (
	"sort"

	"github.com/rs/zerolog/log"
)

var actionLogger = log.With().Str("logger_name", "game::action").Logger()

const (
	StateAction           = "action"
	StateConsolidatePower = "resolve-consolidate-power"
)

// turnOrderResolver drives the recurring "iterate houses in turn order
// until none has eligible work left" pattern shared by raids, marches,
// consolidate-power and westeros effects. The scan starts after the last
// resolved house and is bounded by the house count.
type turnOrderResolver struct {
	board       *Board
	lastHouseID string
}

func newTurnOrderResolver(board *Board) *turnOrderResolver {
	return &turnOrderResolver{board: board}
}

// next returns the next house in turn order with eligible work, or nil when
// every house is exhausted.
func (r *turnOrderResolver) next(eligible func(*House) bool) *House {
	turnOrder := r.board.TurnOrder()
	start := 0
	if r.lastHouseID != "" {
		for n, h := range turnOrder {
			if h.ID == r.lastHouseID {
				start = n + 1
				break
			}
		}
	}
	for k := 0; k < len(turnOrder); k++ {
		house := turnOrder[(start+k)%len(turnOrder)]
		if eligible(house) {
			return house
		}
	}
	return nil
}

func (r *turnOrderResolver) markResolved(house *House) {
	r.lastHouseID = house.ID
}

// ActionState runs the action phase: the raven holder acts first, then raid
// orders, march orders and consolidate-power orders resolve in turn order.
type ActionState struct {
	baseGameState
	ingame *IngameState
}

func newActionState(ingame *IngameState) *ActionState {
	a := &ActionState{ingame: ingame}
	a.parent = ingame
	return a
}

func (a *ActionState) Type() string { return StateAction }

func (a *ActionState) FirstStart() {
	a.ingame.Log("action-began", map[string]string{}, true)
	raven := newRavenState(a.ingame, a)
	a.SetChildGameState(raven)
	raven.FirstStart()
}

func (a *ActionState) onRavenFinished() {
	raid := newResolveRaidState(a.ingame, a)
	a.SetChildGameState(raid)
	raid.FirstStart()
}

func (a *ActionState) onResolveRaidFinished() {
	march := newResolveMarchState(a.ingame, a)
	a.SetChildGameState(march)
	march.FirstStart()
}

func (a *ActionState) onResolveMarchFinished() {
	if a.ingame.CheckVictory() {
		return
	}
	cp := newConsolidatePowerState(a.ingame, a)
	a.SetChildGameState(cp)
	cp.FirstStart()
}

func (a *ActionState) onConsolidatePowerFinished() {
	a.ingame.onActionPhaseFinished()
}

// ConsolidatePowerState resolves consolidate-power orders in turn order.
// Plain orders yield power tokens immediately; starred orders on a castle
// let the house muster instead.
type ConsolidatePowerState struct {
	baseGameState
	ingame   *IngameState
	action   *ActionState
	resolver *turnOrderResolver
}

func newConsolidatePowerState(ingame *IngameState, action *ActionState) *ConsolidatePowerState {
	c := &ConsolidatePowerState{
		ingame:   ingame,
		action:   action,
		resolver: newTurnOrderResolver(ingame.Board()),
	}
	c.parent = action
	return c
}

func (c *ConsolidatePowerState) Type() string { return StateConsolidatePower }

func (c *ConsolidatePowerState) FirstStart() {
	c.proceedNext()
}

func (c *ConsolidatePowerState) cpOrderRegions(house *House) []*Region {
	board := c.ingame.Board()
	regions := make([]*Region, 0)
	for _, region := range board.World.SortedRegions() {
		order := c.ingame.OrderInRegion(region.ID)
		if order == nil || order.Kind != OrderConsolidatePower {
			continue
		}
		if board.Controller(region) == house {
			regions = append(regions, region)
		}
	}
	return regions
}

func (c *ConsolidatePowerState) proceedNext() {
	house := c.resolver.next(func(h *House) bool {
		return len(c.cpOrderRegions(h)) > 0
	})
	if house == nil {
		c.action.onConsolidatePowerFinished()
		return
	}
	c.resolver.markResolved(house)

	regions := c.cpOrderRegions(house)
	musterable := make([]string, 0)
	for _, region := range regions {
		order := c.ingame.OrderInRegion(region.ID)
		if order.Starred && region.CastleLevel > 0 {
			musterable = append(musterable, region.ID)
			continue
		}
		gained := 1 + region.CrownIcons
		c.ingame.RemoveOrder(region.ID)
		c.ingame.ChangePowerTokens(house, gained)
		c.ingame.Log("consolidate-power-resolved", map[string]string{
			"house":  house.ID,
			"region": region.ID,
		}, true)
	}
	if len(musterable) > 0 {
		sort.Strings(musterable)
		mustering := newMusteringState(c.ingame, c)
		c.SetChildGameState(mustering)
		mustering.FirstStart(house, musterable, true)
		return
	}
	c.proceedNext()
}

func (c *ConsolidatePowerState) onMusteringFinished() {
	c.SetChildGameState(nil)
	c.proceedNext()
}
