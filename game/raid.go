package game

import (
	"github.com/rs/zerolog/log"

	"thronegate.com/server/logging"
)

var raidLogger = log.With().Str("logger_name", "game::raid").Logger()

const (
	StateResolveRaid       = "resolve-raid"
	StateResolveSingleRaid = "resolve-single-raid"
)

// Power-token deltas when raiding a consolidate-power order. The base raid
// and the starred raid are distinct variants with distinct transfer
// amounts.
const (
	raidTokenDelta        = 1
	raidSpecialTokenDelta = 2
)

// ResolveRaidState iterates houses in turn order; each house with a raid
// order left resolves exactly one per pass.
type ResolveRaidState struct {
	baseGameState
	ingame   *IngameState
	action   *ActionState
	resolver *turnOrderResolver
}

func newResolveRaidState(ingame *IngameState, action *ActionState) *ResolveRaidState {
	r := &ResolveRaidState{
		ingame:   ingame,
		action:   action,
		resolver: newTurnOrderResolver(ingame.Board()),
	}
	r.parent = action
	return r
}

func (r *ResolveRaidState) Type() string { return StateResolveRaid }

func (r *ResolveRaidState) FirstStart() {
	r.proceedNext()
}

func (r *ResolveRaidState) raidOrderRegions(house *House) []*Region {
	board := r.ingame.Board()
	regions := make([]*Region, 0)
	for _, region := range board.World.SortedRegions() {
		order := r.ingame.OrderInRegion(region.ID)
		if order == nil || order.Kind != OrderRaid {
			continue
		}
		if board.Controller(region) == house {
			regions = append(regions, region)
		}
	}
	return regions
}

func (r *ResolveRaidState) proceedNext() {
	house := r.resolver.next(func(h *House) bool {
		return len(r.raidOrderRegions(h)) > 0
	})
	if house == nil {
		r.action.onResolveRaidFinished()
		return
	}
	r.resolver.markResolved(house)
	single := newResolveSingleRaidState(r.ingame, r)
	r.SetChildGameState(single)
	single.FirstStart(house.ID)
}

func (r *ResolveRaidState) onSingleRaidFinished() {
	r.SetChildGameState(nil)
	r.proceedNext()
}

// ResolveSingleRaidState waits for one house to resolve one raid order:
// no target just discards the order, a target discards both orders and, for
// a consolidate-power target, transfers power tokens.
type ResolveSingleRaidState struct {
	baseGameState
	ingame *IngameState
	raid   *ResolveRaidState

	houseID string
}

func newResolveSingleRaidState(ingame *IngameState, raid *ResolveRaidState) *ResolveSingleRaidState {
	s := &ResolveSingleRaidState{ingame: ingame, raid: raid}
	s.parent = raid
	return s
}

func (s *ResolveSingleRaidState) Type() string { return StateResolveSingleRaid }

func (s *ResolveSingleRaidState) FirstStart(houseID string) {
	s.houseID = houseID
}

func (s *ResolveSingleRaidState) House() (*House, error) {
	return s.ingame.Board().House(s.houseID)
}

func (s *ResolveSingleRaidState) WaitedUsers() []string {
	house, err := s.House()
	if err != nil {
		return nil
	}
	controller, err := s.ingame.ControllerOfHouse(house)
	if err != nil {
		return nil
	}
	return []string{controller.UserID}
}

// raidableOrderKind reports whether the raiding order may discard the
// target order. Only the starred raid reaches defense orders; march orders
// are never raidable.
func raidableOrderKind(raider *OrderType, target *OrderType) bool {
	switch target.Kind {
	case OrderRaid, OrderSupport, OrderConsolidatePower:
		return true
	case OrderDefense:
		return raider.Starred
	}
	return false
}

// RaidableRegions lists the adjacent enemy order regions the raid order may
// target.
func (s *ResolveSingleRaidState) RaidableRegions(house *House, from *Region) []*Region {
	board := s.ingame.Board()
	raider := s.ingame.OrderInRegion(from.ID)
	if raider == nil {
		return nil
	}
	targets := make([]*Region, 0)
	for _, region := range board.World.AdjacentRegions(from.ID) {
		order := s.ingame.OrderInRegion(region.ID)
		if order == nil {
			continue
		}
		controller := board.Controller(region)
		if controller == nil || controller == house {
			continue
		}
		if raidableOrderKind(raider, order) {
			targets = append(targets, region)
		}
	}
	return targets
}

func (s *ResolveSingleRaidState) OnPlayerMessage(player *Player, message *ClientMessage) {
	if message.Type != MsgResolveRaid {
		s.baseGameState.OnPlayerMessage(player, message)
		return
	}
	house, err := s.House()
	if err != nil {
		raidLogger.Error().Err(err).Msg("Raid resolution has no house")
		return
	}
	controller, err := s.ingame.ControllerOfHouse(house)
	if err != nil || controller.UserID != player.UserID {
		raidLogger.Warn().Str(logging.UserIDKey, player.UserID).Msg("Dropping raid: not the resolving player")
		return
	}
	board := s.ingame.Board()
	from, err := board.World.Region(message.OrderRegionID)
	if err != nil {
		raidLogger.Warn().Str(logging.RegionKey, message.OrderRegionID).Msg("Dropping raid: unknown region")
		return
	}
	raider := s.ingame.OrderInRegion(from.ID)
	if raider == nil || raider.Kind != OrderRaid || board.Controller(from) != house {
		raidLogger.Warn().Str(logging.RegionKey, from.ID).Msg("Dropping raid: no raid order of this house there")
		return
	}

	if message.TargetRegionID == "" {
		s.ingame.RemoveOrder(from.ID)
		s.ingame.Log("raid-resolved", map[string]string{"house": house.ID, "region": from.ID}, false)
		s.raid.onSingleRaidFinished()
		return
	}

	var target *Region
	for _, candidate := range s.RaidableRegions(house, from) {
		if candidate.ID == message.TargetRegionID {
			target = candidate
			break
		}
	}
	if target == nil {
		raidLogger.Warn().
			Str(logging.HouseKey, house.ID).
			Str(logging.RegionKey, message.TargetRegionID).
			Msg("Dropping raid: target not raidable")
		return
	}

	raidedOrder := s.ingame.OrderInRegion(target.ID)
	raidedHouse := board.Controller(target)
	s.ingame.RemoveOrder(from.ID)
	s.ingame.RemoveOrder(target.ID)

	if raidedOrder.Kind == OrderConsolidatePower && raidedHouse != nil {
		delta := raidTokenDelta
		if raider.Starred {
			delta = raidSpecialTokenDelta
		}
		s.ingame.ChangePowerTokens(house, delta)
		s.ingame.ChangePowerTokens(raidedHouse, -delta)
	}
	raidedHouseID := ""
	if raidedHouse != nil {
		raidedHouseID = raidedHouse.ID
	}
	s.ingame.Log("raid-resolved", map[string]string{
		"house":  house.ID,
		"region": from.ID,
		"target": target.ID,
		"raided": raidedHouseID,
	}, false)
	s.raid.onSingleRaidFinished()
}

// ActionAfterVassalReplacement discards the pending raid order so the phase
// cannot stall on the departed player.
func (s *ResolveSingleRaidState) ActionAfterVassalReplacement(house *House) {
	if house.ID != s.houseID {
		return
	}
	region := ""
	for _, r := range s.raid.raidOrderRegions(house) {
		region = r.ID
		break
	}
	if region != "" {
		s.ingame.RemoveOrder(region)
	}
	s.ingame.Log("raid-resolved", map[string]string{"house": house.ID, "region": region}, true)
	s.raid.onSingleRaidFinished()
}
