package game

import (
	"sort"

	"github.com/rs/zerolog/log"

	"thronegate.com/server/logging"
)

var marchLogger = log.With().Str("logger_name", "game::march").Logger()

const (
	StateResolveMarch       = "resolve-march"
	StateResolveSingleMarch = "resolve-single-march"
)

// ResolveMarchState iterates houses in turn order; each house with a march
// order left resolves exactly one order per pass until none remain.
type ResolveMarchState struct {
	baseGameState
	ingame   *IngameState
	action   *ActionState
	resolver *turnOrderResolver
}

func newResolveMarchState(ingame *IngameState, action *ActionState) *ResolveMarchState {
	r := &ResolveMarchState{
		ingame:   ingame,
		action:   action,
		resolver: newTurnOrderResolver(ingame.Board()),
	}
	r.parent = action
	return r
}

func (r *ResolveMarchState) Type() string { return StateResolveMarch }

func (r *ResolveMarchState) FirstStart() {
	r.proceedNext()
}

func (r *ResolveMarchState) marchOrderRegions(house *House) []*Region {
	board := r.ingame.Board()
	regions := make([]*Region, 0)
	for _, region := range board.World.SortedRegions() {
		order := r.ingame.OrderInRegion(region.ID)
		if order == nil || order.Kind != OrderMarch {
			continue
		}
		if board.Controller(region) == house {
			regions = append(regions, region)
		}
	}
	return regions
}

func (r *ResolveMarchState) proceedNext() {
	house := r.resolver.next(func(h *House) bool {
		return len(r.marchOrderRegions(h)) > 0
	})
	if house == nil {
		r.action.onResolveMarchFinished()
		return
	}
	r.resolver.markResolved(house)
	single := newResolveSingleMarchState(r.ingame, r)
	r.SetChildGameState(single)
	single.FirstStart(house.ID)
}

func (r *ResolveMarchState) onSingleMarchFinished() {
	r.SetChildGameState(nil)
	r.proceedNext()
}

func (r *ResolveMarchState) onCombatFinished() {
	r.SetChildGameState(nil)
	if r.ingame.CheckVictory() {
		return
	}
	r.proceedNext()
}

// beginCombat hands control to a combat triggered by a march move.
func (r *ResolveMarchState) beginCombat(attacker, defender *House, from, to *Region, unitIDs []int, marchBonus int) {
	combat := newCombatState(r.ingame, r)
	r.SetChildGameState(combat)
	combat.FirstStart(attacker.ID, defender.ID, from.ID, to.ID, unitIDs, marchBonus)
}

// ResolveSingleMarchState waits for one house to resolve one of its march
// orders: a starting region, a batch of moves and the control-marker
// decision.
type ResolveSingleMarchState struct {
	baseGameState
	ingame *IngameState
	march  *ResolveMarchState

	houseID string
}

func newResolveSingleMarchState(ingame *IngameState, march *ResolveMarchState) *ResolveSingleMarchState {
	s := &ResolveSingleMarchState{ingame: ingame, march: march}
	s.parent = march
	return s
}

func (s *ResolveSingleMarchState) Type() string { return StateResolveSingleMarch }

func (s *ResolveSingleMarchState) FirstStart(houseID string) {
	s.houseID = houseID
}

func (s *ResolveSingleMarchState) House() (*House, error) {
	return s.ingame.Board().House(s.houseID)
}

func (s *ResolveSingleMarchState) WaitedUsers() []string {
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

// DoesMoveExceedSupply simulates moving the given units and checks the
// house's army distribution against its supply limits.
func (s *ResolveSingleMarchState) DoesMoveExceedSupply(house *House, from, to *Region, units []*Unit) bool {
	removed := map[string][]int{from.ID: {}}
	added := map[string][]string{to.ID: {}}
	for _, u := range units {
		removed[from.ID] = append(removed[from.ID], u.ID)
		added[to.ID] = append(added[to.ID], u.TypeID)
	}
	return s.ingame.Board().HasTooMuchArmies(house, added, removed)
}

// GetValidTargetRegions lists the legal destinations for an army leaving a
// region. A destination flagged by DoesMoveExceedSupply is filtered out
// here, never offered and rejected later; a neutral garrison too strong for
// the army is filtered the same way.
func (s *ResolveSingleMarchState) GetValidTargetRegions(house *House, from *Region, units []*Unit) []*Region {
	board := s.ingame.Board()
	valid := make([]*Region, 0)
	for _, region := range board.ReachableRegions(from, house, units) {
		if s.DoesMoveExceedSupply(house, from, region, units) {
			continue
		}
		controller := board.Controller(region)
		if controller == nil && region.Garrison > 0 {
			strength := board.CombatStrengthOfArmy(units, region.CastleLevel > 0)
			if strength < region.Garrison {
				continue
			}
		}
		valid = append(valid, region)
	}
	return valid
}

// triggersCombat reports whether moving into the region starts a fight.
func (s *ResolveSingleMarchState) triggersCombat(house *House, region *Region) bool {
	controller := s.ingame.Board().Controller(region)
	if controller == nil || controller == house {
		return false
	}
	if len(region.Units) > 0 || region.Garrison > 0 {
		return true
	}
	return false
}

// canLeaveControlMarker applies the marker rules: not the house's capital,
// no marker already present, a marker available in the pool, a land region,
// and every unit leaving.
func (s *ResolveSingleMarchState) canLeaveControlMarker(house *House, from *Region, leavingUnits int) bool {
	if from.HomeOf == house.ID {
		return false
	}
	if from.ControlPowerToken != "" {
		return false
	}
	if house.PowerTokens <= 0 {
		return false
	}
	if from.Kind != RegionLand {
		return false
	}
	return leavingUnits == len(from.Units)
}

func (s *ResolveSingleMarchState) OnPlayerMessage(player *Player, message *ClientMessage) {
	if message.Type != MsgResolveMarchOrder {
		s.baseGameState.OnPlayerMessage(player, message)
		return
	}
	house, err := s.House()
	if err != nil {
		marchLogger.Error().Err(err).Msg("March resolution has no house")
		return
	}
	controller, err := s.ingame.ControllerOfHouse(house)
	if err != nil || controller.UserID != player.UserID {
		marchLogger.Warn().Str(logging.UserIDKey, player.UserID).Msg("Dropping march: not the resolving player")
		return
	}

	board := s.ingame.Board()
	from, err := board.World.Region(message.StartingRegionID)
	if err != nil {
		marchLogger.Warn().Str(logging.RegionKey, message.StartingRegionID).Msg("Dropping march: unknown region")
		return
	}
	order := s.ingame.OrderInRegion(from.ID)
	if order == nil || order.Kind != OrderMarch || board.Controller(from) != house {
		marchLogger.Warn().Str(logging.RegionKey, from.ID).Msg("Dropping march: no march order of this house there")
		return
	}

	// An empty batch just removes the order.
	if len(message.Moves) == 0 {
		s.ingame.RemoveOrder(from.ID)
		s.ingame.Log("march-resolved", map[string]string{"house": house.ID, "region": from.ID}, false)
		s.march.onSingleMarchFinished()
		return
	}

	type plannedMove struct {
		target *Region
		units  []*Unit
	}
	moves := make([]plannedMove, 0, len(message.Moves))
	seen := make(map[int]bool)
	combatMoves := 0
	leavingCount := 0
	for _, m := range message.Moves {
		target, err := board.World.Region(m.RegionID)
		if err != nil {
			marchLogger.Warn().Str(logging.RegionKey, m.RegionID).Msg("Dropping march: unknown target")
			return
		}
		units := make([]*Unit, 0, len(m.UnitIDs))
		for _, id := range m.UnitIDs {
			u, ok := from.Units[id]
			if !ok || u.Allegiance != house.ID || seen[id] {
				marchLogger.Warn().Int("unit", id).Msg("Dropping march: invalid unit selection")
				return
			}
			seen[id] = true
			units = append(units, u)
		}
		if len(units) == 0 {
			continue
		}
		validTarget := false
		for _, vr := range s.GetValidTargetRegions(house, from, units) {
			if vr.ID == target.ID {
				validTarget = true
				break
			}
		}
		if !validTarget {
			marchLogger.Warn().
				Str(logging.HouseKey, house.ID).
				Str(logging.RegionKey, target.ID).
				Msg("Dropping march: target not a valid destination")
			return
		}
		if s.triggersCombat(house, target) {
			combatMoves++
		}
		leavingCount += len(units)
		moves = append(moves, plannedMove{target: target, units: units})
	}
	if combatMoves > 1 {
		marchLogger.Warn().Str(logging.HouseKey, house.ID).Msg("Dropping march: more than one combat-triggering move")
		return
	}

	// The control-marker decision is forced to yes for vassals.
	placeMarker := message.PlacePowerToken
	if s.ingame.IsVassalHouse(house) {
		placeMarker = true
	}
	leaveMarker := placeMarker && s.canLeaveControlMarker(house, from, leavingCount)

	s.ingame.RemoveOrder(from.ID)

	var combatMove *plannedMove
	for n := range moves {
		move := &moves[n]
		if s.triggersCombat(house, move.target) {
			combatMove = move
			continue
		}
		s.executeMove(house, from, move.target, move.units)
	}

	remaining := 0
	if combatMove != nil {
		remaining = len(combatMove.units)
	}
	if leaveMarker && len(from.Units) == remaining {
		// Combat units have logically left even though they resolve after.
		s.placeControlMarker(house, from)
	}

	s.ingame.Log("march-resolved", map[string]string{"house": house.ID, "region": from.ID}, false)

	if combatMove != nil {
		defender := board.Controller(combatMove.target)
		unitIDs := make([]int, len(combatMove.units))
		for n, u := range combatMove.units {
			unitIDs[n] = u.ID
		}
		if defender == nil {
			marchLogger.Error().Str(logging.RegionKey, combatMove.target.ID).Msg("Combat move against uncontrolled region")
			s.march.onSingleMarchFinished()
			return
		}
		s.march.beginCombat(house, defender, from, combatMove.target, unitIDs, order.Strength)
		return
	}
	if s.ingame.CheckVictory() {
		return
	}
	s.march.onSingleMarchFinished()
}

// executeMove commits a non-combat move: a neutral garrison in the target
// is overwhelmed and removed, an enemy control marker is swept away, the
// units transfer.
func (s *ResolveSingleMarchState) executeMove(house *House, from, target *Region, units []*Unit) {
	if target.Garrison > 0 && s.ingame.Board().Controller(target) == nil {
		target.Garrison = 0
		s.ingame.Broadcast(&ServerMessage{Type: MsgChangeGarrison, RegionID: target.ID, Garrison: 0})
	}
	if target.ControlPowerToken != "" && target.ControlPowerToken != house.ID {
		target.ControlPowerToken = ""
		s.ingame.Broadcast(&ServerMessage{Type: MsgChangeControlPowerToken, RegionID: target.ID, HouseID: ""})
	}
	ids := make([]int, 0, len(units))
	for _, u := range units {
		delete(from.Units, u.ID)
		target.Units[u.ID] = u
		ids = append(ids, u.ID)
	}
	sort.Ints(ids)
	s.ingame.Broadcast(&ServerMessage{Type: MsgMoveUnits, FromID: from.ID, ToID: target.ID, UnitIDs: ids})
}

func (s *ResolveSingleMarchState) placeControlMarker(house *House, region *Region) {
	if s.ingame.ChangePowerTokens(house, -1) != -1 {
		return
	}
	region.ControlPowerToken = house.ID
	s.ingame.Broadcast(&ServerMessage{Type: MsgChangeControlPowerToken, RegionID: region.ID, HouseID: house.ID})
}

// ActionAfterVassalReplacement resolves the pending march as an empty batch
// so the phase cannot stall on the departed player.
func (s *ResolveSingleMarchState) ActionAfterVassalReplacement(house *House) {
	if house.ID != s.houseID {
		return
	}
	region := ""
	for _, r := range s.march.marchOrderRegions(house) {
		region = r.ID
		break
	}
	if region != "" {
		s.ingame.RemoveOrder(region)
	}
	s.ingame.Log("march-resolved", map[string]string{"house": house.ID, "region": region}, true)
	s.march.onSingleMarchFinished()
}
