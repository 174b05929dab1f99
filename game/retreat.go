package game

import (
	"sort"
	"strconv"

	"github.com/rs/zerolog/log"

	"thronegate.com/server/logging"
)

var retreatLogger = log.With().Str("logger_name", "game::retreat").Logger()

const StateResolveRetreat = "resolve-retreat"

// ResolveRetreatState moves a beaten army out of the embattled region. For
// every structurally valid destination it simulates how many units would
// have to die to fit supply there, and offers only the candidates with the
// minimum casualty count. An ability may override who chooses.
type ResolveRetreatState struct {
	baseGameState
	ingame *IngameState

	houseID   string
	chooserID string
	fromID    string
	unitIDs   []int

	// minCasualties is the simulated casualty count of the offered
	// candidates.
	minCasualties int
	candidates    []string
}

type retreatParent interface {
	onRetreatFinished()
}

func newResolveRetreatState(ingame *IngameState, parent GameState) *ResolveRetreatState {
	r := &ResolveRetreatState{ingame: ingame}
	r.parent = parent
	return r
}

func (r *ResolveRetreatState) Type() string { return StateResolveRetreat }

func (r *ResolveRetreatState) FirstStart(houseID, fromID string, unitIDs []int) {
	r.houseID = houseID
	r.chooserID = houseID
	r.fromID = fromID
	r.unitIDs = append([]int(nil), unitIDs...)
	sort.Ints(r.unitIDs)

	r.minCasualties, r.candidates = r.computeCandidates()

	if len(r.candidates) == 0 {
		// Nowhere to go: the whole army is destroyed.
		r.destroyUnits(r.unitIDs)
		r.ingame.Log("retreat-annihilated", map[string]string{
			"house":  r.houseID,
			"region": r.fromID,
		}, true)
		r.parent.(retreatParent).onRetreatFinished()
		return
	}

	selectRegion := newSelectRegionState(r.ingame, r)
	r.SetChildGameState(selectRegion)
	selectRegion.FirstStart(r.chooserID, r.candidates)
}

// OverrideChooser lets an ability hand the retreat decision to a different
// house.
func (r *ResolveRetreatState) OverrideChooser(houseID string) {
	r.chooserID = houseID
	if child, ok := r.ChildGameState().(*SelectRegionState); ok {
		child.houseID = houseID
	}
}

func (r *ResolveRetreatState) retreatingUnits() []*Unit {
	region, err := r.ingame.Board().World.Region(r.fromID)
	if err != nil {
		return nil
	}
	units := make([]*Unit, 0, len(r.unitIDs))
	for _, id := range r.unitIDs {
		if u, ok := region.Units[id]; ok {
			units = append(units, u)
		}
	}
	return units
}

// simulatedCasualties returns the minimum number of retreating units that
// would have to be destroyed for the remainder to fit the house's supply in
// the candidate region.
func (r *ResolveRetreatState) simulatedCasualties(house *House, target *Region, units []*Unit) int {
	board := r.ingame.Board()
	for k := 0; k <= len(units); k++ {
		kept := units[:len(units)-k]
		removed := map[string][]int{r.fromID: {}}
		added := map[string][]string{target.ID: {}}
		for _, u := range units {
			removed[r.fromID] = append(removed[r.fromID], u.ID)
		}
		for _, u := range kept {
			added[target.ID] = append(added[target.ID], u.TypeID)
		}
		if !board.HasTooMuchArmies(house, added, removed) {
			return k
		}
	}
	return len(units)
}

func (r *ResolveRetreatState) computeCandidates() (int, []string) {
	board := r.ingame.Board()
	house, err := board.House(r.houseID)
	if err != nil {
		return 0, nil
	}
	from, err := board.World.Region(r.fromID)
	if err != nil {
		return 0, nil
	}
	units := r.retreatingUnits()
	if len(units) == 0 {
		return 0, nil
	}

	valid := board.ValidRetreatRegions(from, house, units)
	if len(valid) == 0 {
		return 0, nil
	}
	type option struct {
		regionID   string
		casualties int
	}
	options := make([]option, 0, len(valid))
	min := len(units) + 1
	for _, target := range valid {
		casualties := r.simulatedCasualties(house, target, units)
		if casualties < min {
			min = casualties
		}
		options = append(options, option{regionID: target.ID, casualties: casualties})
	}
	candidates := make([]string, 0)
	for _, opt := range options {
		if opt.casualties == min {
			candidates = append(candidates, opt.regionID)
		}
	}
	sort.Strings(candidates)
	return min, candidates
}

// onRegionSelected executes the retreat into the chosen region: the
// simulated casualties die first, the survivors arrive wounded.
func (r *ResolveRetreatState) onRegionSelected(regionID string, resolvedAutomatically bool) {
	r.SetChildGameState(nil)
	board := r.ingame.Board()
	from, err := board.World.Region(r.fromID)
	target, errTarget := board.World.Region(regionID)
	if err != nil || errTarget != nil {
		retreatLogger.Error().Str(logging.RegionKey, regionID).Msg("Retreat into unknown region")
		r.parent.(retreatParent).onRetreatFinished()
		return
	}

	units := r.retreatingUnits()
	if r.minCasualties > 0 {
		// Weakest units die first.
		sort.SliceStable(units, func(a, b int) bool {
			ta := board.UnitType(units[a].TypeID)
			tb := board.UnitType(units[b].TypeID)
			if ta == nil || tb == nil {
				return false
			}
			return ta.CombatStrength < tb.CombatStrength
		})
		dying := make([]int, 0, r.minCasualties)
		for _, u := range units[:r.minCasualties] {
			dying = append(dying, u.ID)
		}
		r.destroyUnits(dying)
		units = r.retreatingUnits()
	}

	moved := make([]int, 0, len(units))
	for _, u := range units {
		delete(from.Units, u.ID)
		u.Wounded = true
		target.Units[u.ID] = u
		moved = append(moved, u.ID)
	}
	sort.Ints(moved)
	if len(moved) > 0 {
		r.ingame.Broadcast(&ServerMessage{
			Type:      MsgMoveUnits,
			FromID:    from.ID,
			ToID:      target.ID,
			UnitIDs:   moved,
			IsRetreat: true,
		})
	}
	r.ingame.Log("retreat-resolved", map[string]string{
		"house":      r.houseID,
		"from":       r.fromID,
		"to":         regionID,
		"casualties": strconv.Itoa(r.minCasualties),
	}, resolvedAutomatically)
	r.parent.(retreatParent).onRetreatFinished()
}

func (r *ResolveRetreatState) destroyUnits(unitIDs []int) {
	region, err := r.ingame.Board().World.Region(r.fromID)
	if err != nil {
		return
	}
	ids := append([]int(nil), unitIDs...)
	sort.Ints(ids)
	for _, id := range ids {
		delete(region.Units, id)
	}
	if len(ids) > 0 {
		r.ingame.Broadcast(&ServerMessage{Type: MsgRemoveUnits, RegionID: region.ID, UnitIDs: ids})
	}
}
