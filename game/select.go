package game

import (
	"sort"

	"github.com/rs/zerolog/log"

	"thronegate.com/server/logging"
)

var selectLogger = log.With().Str("logger_name", "game::select").Logger()

const (
	StateSelectRegion = "select-region"
	StateSelectUnits  = "select-units"
)

type regionSelectionParent interface {
	onRegionSelected(regionID string, resolvedAutomatically bool)
}

// SelectRegionState waits for one house to pick a region out of a fixed
// candidate set. A single candidate is picked automatically without a
// player round-trip.
type SelectRegionState struct {
	baseGameState
	ingame *IngameState

	houseID    string
	candidates []string
}

func newSelectRegionState(ingame *IngameState, parent GameState) *SelectRegionState {
	s := &SelectRegionState{ingame: ingame}
	s.parent = parent
	return s
}

func (s *SelectRegionState) Type() string { return StateSelectRegion }

func (s *SelectRegionState) FirstStart(houseID string, candidates []string) {
	sort.Strings(candidates)
	s.houseID = houseID
	s.candidates = candidates
	if len(candidates) == 1 {
		s.parent.(regionSelectionParent).onRegionSelected(candidates[0], true)
	}
}

func (s *SelectRegionState) WaitedUsers() []string {
	house, err := s.ingame.Board().House(s.houseID)
	if err != nil {
		return nil
	}
	controller, err := s.ingame.ControllerOfHouse(house)
	if err != nil {
		return nil
	}
	return []string{controller.UserID}
}

func (s *SelectRegionState) OnPlayerMessage(player *Player, message *ClientMessage) {
	if message.Type != MsgSelectRegion {
		s.baseGameState.OnPlayerMessage(player, message)
		return
	}
	house, err := s.ingame.Board().House(s.houseID)
	if err != nil {
		return
	}
	controller, err := s.ingame.ControllerOfHouse(house)
	if err != nil || controller.UserID != player.UserID {
		selectLogger.Warn().Str(logging.UserIDKey, player.UserID).Msg("Dropping region selection: not the choosing player")
		return
	}
	for _, candidate := range s.candidates {
		if candidate == message.RegionID {
			s.parent.(regionSelectionParent).onRegionSelected(candidate, false)
			return
		}
	}
	selectLogger.Warn().Str(logging.RegionKey, message.RegionID).Msg("Dropping region selection: not a candidate")
}

// ActionAfterVassalReplacement picks the first candidate on the departed
// player's behalf.
func (s *SelectRegionState) ActionAfterVassalReplacement(house *House) {
	if house.ID != s.houseID || len(s.candidates) == 0 {
		return
	}
	s.parent.(regionSelectionParent).onRegionSelected(s.candidates[0], true)
}

type unitSelectionParent interface {
	onUnitsSelected(unitIDs []int, resolvedAutomatically bool)
}

// SelectUnitsState waits for one house to pick a number of its units within
// one region (casualties, crow-killer conversions and similar effects).
type SelectUnitsState struct {
	baseGameState
	ingame *IngameState

	houseID  string
	regionID string
	count    int
}

func newSelectUnitsState(ingame *IngameState, parent GameState) *SelectUnitsState {
	s := &SelectUnitsState{ingame: ingame}
	s.parent = parent
	return s
}

func (s *SelectUnitsState) Type() string { return StateSelectUnits }

func (s *SelectUnitsState) FirstStart(houseID, regionID string, count int) {
	s.houseID = houseID
	s.regionID = regionID
	s.count = count
	region, err := s.ingame.Board().World.Region(regionID)
	if err != nil {
		selectLogger.Error().Err(err).Str(logging.RegionKey, regionID).Msg("Unit selection in unknown region")
		return
	}
	// Forced selections resolve without a round-trip.
	if len(region.Units) <= count {
		s.parent.(unitSelectionParent).onUnitsSelected(s.defaultSelection(), true)
	}
}

// defaultSelection picks the weakest units first.
func (s *SelectUnitsState) defaultSelection() []int {
	region, err := s.ingame.Board().World.Region(s.regionID)
	if err != nil {
		return nil
	}
	units := region.SortedUnits()
	sort.SliceStable(units, func(a, b int) bool {
		ta := s.ingame.Board().UnitType(units[a].TypeID)
		tb := s.ingame.Board().UnitType(units[b].TypeID)
		if ta == nil || tb == nil {
			return false
		}
		return ta.CombatStrength < tb.CombatStrength
	})
	ids := make([]int, 0, s.count)
	for _, u := range units {
		if len(ids) == s.count {
			break
		}
		ids = append(ids, u.ID)
	}
	return ids
}

func (s *SelectUnitsState) WaitedUsers() []string {
	house, err := s.ingame.Board().House(s.houseID)
	if err != nil {
		return nil
	}
	controller, err := s.ingame.ControllerOfHouse(house)
	if err != nil {
		return nil
	}
	return []string{controller.UserID}
}

func (s *SelectUnitsState) OnPlayerMessage(player *Player, message *ClientMessage) {
	if message.Type != MsgSelectUnits {
		s.baseGameState.OnPlayerMessage(player, message)
		return
	}
	house, err := s.ingame.Board().House(s.houseID)
	if err != nil {
		return
	}
	controller, err := s.ingame.ControllerOfHouse(house)
	if err != nil || controller.UserID != player.UserID {
		selectLogger.Warn().Str(logging.UserIDKey, player.UserID).Msg("Dropping unit selection: not the choosing player")
		return
	}
	region, err := s.ingame.Board().World.Region(s.regionID)
	if err != nil {
		return
	}
	ids := make([]int, 0, s.count)
	seen := make(map[int]bool)
	for _, sel := range message.Units {
		if sel.RegionID != s.regionID {
			selectLogger.Warn().Str(logging.RegionKey, sel.RegionID).Msg("Dropping unit selection: wrong region")
			return
		}
		for _, id := range sel.UnitIDs {
			u, ok := region.Units[id]
			if !ok || u.Allegiance != s.houseID || seen[id] {
				selectLogger.Warn().Int("unit", id).Msg("Dropping unit selection: invalid unit")
				return
			}
			seen[id] = true
			ids = append(ids, id)
		}
	}
	if len(ids) != s.count {
		selectLogger.Warn().Int("selected", len(ids)).Int("required", s.count).Msg("Dropping unit selection: wrong count")
		return
	}
	s.parent.(unitSelectionParent).onUnitsSelected(ids, false)
}

// ActionAfterVassalReplacement falls back to the weakest-first selection.
func (s *SelectUnitsState) ActionAfterVassalReplacement(house *House) {
	if house.ID != s.houseID {
		return
	}
	s.parent.(unitSelectionParent).onUnitsSelected(s.defaultSelection(), true)
}
