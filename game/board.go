package game

import (
	"sort"

	"github.com/pkg/errors"
)

// RegionKind tells which units may occupy a region.
type RegionKind int

const (
	RegionLand RegionKind = iota
	RegionSea
)

// UnitType is static content, indexed by id and never mutated.
type UnitType struct {
	ID             string `yaml:"id"`
	Name           string `yaml:"name"`
	CombatStrength int    `yaml:"combatStrength"`
	Naval          bool   `yaml:"naval"`
}

func (ut *UnitType) CanEnter(kind RegionKind) bool {
	if ut.Naval {
		return kind == RegionSea
	}
	return kind == RegionLand
}

// Unit is a single figure on the board, owned by its region.
type Unit struct {
	ID         int
	TypeID     string
	Allegiance string
	Wounded    bool
}

type SerializedUnit struct {
	ID         int    `json:"id"`
	TypeID     string `json:"type"`
	Allegiance string `json:"allegiance"`
	Wounded    bool   `json:"wounded,omitempty"`
}

func (u *Unit) serialize() SerializedUnit {
	return SerializedUnit{ID: u.ID, TypeID: u.TypeID, Allegiance: u.Allegiance, Wounded: u.Wounded}
}

func deserializeUnit(s SerializedUnit) *Unit {
	return &Unit{ID: s.ID, TypeID: s.TypeID, Allegiance: s.Allegiance, Wounded: s.Wounded}
}

// Region is one area of the map. Mutated exclusively through phase-controller
// operations.
type Region struct {
	ID                string
	Name              string
	Kind              RegionKind
	CastleLevel       int
	SupplyIcons       int
	CrownIcons        int
	Garrison          int
	HomeOf            string
	ControlPowerToken string
	Units             map[int]*Unit
}

// SortedUnits returns the region's units in id order, for deterministic
// serialization and iteration.
func (r *Region) SortedUnits() []*Unit {
	units := make([]*Unit, 0, len(r.Units))
	for _, u := range r.Units {
		units = append(units, u)
	}
	sort.Slice(units, func(i, j int) bool { return units[i].ID < units[j].ID })
	return units
}

// HouseCardState tracks whether a house card is still playable.
type HouseCardState int

const (
	HouseCardAvailable HouseCardState = iota
	HouseCardUsed
)

type HouseCard struct {
	ID             string         `yaml:"id"`
	Name           string         `yaml:"name"`
	CombatStrength int            `yaml:"combatStrength"`
	Swords         int            `yaml:"swords"`
	Towers         int            `yaml:"towers"`
	State          HouseCardState `yaml:"-"`
}

type SerializedHouseCard struct {
	ID    string `json:"id"`
	State int    `json:"state"`
}

// House is one faction. A house with no controlling player is a vassal.
type House struct {
	ID                      string
	Name                    string
	Color                   string
	PowerTokens             int
	MaxPowerTokens          int
	SupplyLevel             int
	KnowsNextWildlingCard   bool
	HasBeenReplacedByVassal bool
	HouseCards              map[string]*HouseCard
}

// SortedHouseCards returns the hand in id order.
func (h *House) SortedHouseCards() []*HouseCard {
	cards := make([]*HouseCard, 0, len(h.HouseCards))
	for _, hc := range h.HouseCards {
		cards = append(cards, hc)
	}
	sort.Slice(cards, func(i, j int) bool { return cards[i].ID < cards[j].ID })
	return cards
}

// AvailableHouseCards returns the playable part of the hand in id order.
func (h *House) AvailableHouseCards() []*HouseCard {
	available := make([]*HouseCard, 0)
	for _, hc := range h.SortedHouseCards() {
		if hc.State == HouseCardAvailable {
			available = append(available, hc)
		}
	}
	return available
}

type WesterosCard struct {
	ID        int
	TypeID    string
	Discarded bool
}

type SerializedWesterosCard struct {
	ID        int    `json:"id"`
	TypeID    string `json:"type"`
	Discarded bool   `json:"discarded,omitempty"`
}

type WildlingCard struct {
	ID     int
	TypeID string
}

type LoanCard struct {
	ID        int
	Discarded bool
}

// IronBank holds the loan deck and the per-house interest owed in units to
// destroy at the start of a round.
type IronBank struct {
	LoanCardDeck []*LoanCard
	InterestOwed map[string]int
}

// DrawNewLoanCard discards the current top loan card and reveals the next.
func (b *IronBank) DrawNewLoanCard() {
	for _, lc := range b.LoanCardDeck {
		if !lc.Discarded {
			lc.Discarded = true
			return
		}
	}
}

// PayInterest collects outstanding interest and returns the houses that
// could not pay and therefore owe unit casualties, in deterministic order.
func (b *IronBank) PayInterest() []string {
	unpaid := make([]string, 0)
	for houseID, owed := range b.InterestOwed {
		if owed > 0 {
			unpaid = append(unpaid, houseID)
		}
	}
	sort.Strings(unpaid)
	return unpaid
}

// World is the region graph. Adjacency is static content; region state is
// authoritative and mutable.
type World struct {
	Regions   map[string]*Region
	adjacency map[string][]string
}

// SortedRegions returns all regions in id order.
func (w *World) SortedRegions() []*Region {
	ids := make([]string, 0, len(w.Regions))
	for id := range w.Regions {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	regions := make([]*Region, len(ids))
	for i, id := range ids {
		regions[i] = w.Regions[id]
	}
	return regions
}

func (w *World) Region(id string) (*Region, error) {
	region, ok := w.Regions[id]
	if !ok {
		return nil, errors.Errorf("unknown region [%s]", id)
	}
	return region, nil
}

func (w *World) AdjacentRegions(id string) []*Region {
	neighbors := make([]*Region, 0)
	for _, adjID := range w.adjacency[id] {
		if r, ok := w.Regions[adjID]; ok {
			neighbors = append(neighbors, r)
		}
	}
	return neighbors
}

// Board is the authoritative game object: houses, decks, tracks and the
// world. The authoritative copy lives server-side; client mirrors are
// reconstructed from snapshots plus the replayed server-message stream.
type Board struct {
	World      *World
	Houses     map[string]*House
	houseOrder []string

	Turn     int
	MaxTurns int

	IronThroneTrack []string
	FiefdomsTrack   []string
	KingsCourtTrack []string

	ValyrianSteelBladeUsed bool
	WildlingStrength       int
	WildlingDeck           []*WildlingCard
	WesterosDecks          [][]*WesterosCard

	// VassalRelations maps vassal house id -> commander house id.
	VassalRelations map[string]string

	// OldPlayerHouseCards archives the hand a house had when its player was
	// replaced by a vassal, so un-vassalization can restore it.
	OldPlayerHouseCards map[string][]*HouseCard

	IronBank *IronBank

	SupplyRestrictions [][]int

	content    *Content
	nextUnitID int
}

func (b *Board) House(id string) (*House, error) {
	house, ok := b.Houses[id]
	if !ok {
		return nil, errors.Errorf("unknown house [%s]", id)
	}
	return house, nil
}

// SortedHouses returns the full roster in its fixed setup order.
func (b *Board) SortedHouses() []*House {
	houses := make([]*House, len(b.houseOrder))
	for i, id := range b.houseOrder {
		houses[i] = b.Houses[id]
	}
	return houses
}

// TurnOrder is the iron throne track.
func (b *Board) TurnOrder() []*House {
	houses := make([]*House, len(b.IronThroneTrack))
	for i, id := range b.IronThroneTrack {
		houses[i] = b.Houses[id]
	}
	return houses
}

// NextInTurnOrder returns the house after the given one on the iron throne
// track. A nil house yields the first house of the track.
func (b *Board) NextInTurnOrder(house *House) *House {
	turnOrder := b.TurnOrder()
	if house == nil {
		return turnOrder[0]
	}
	for i, h := range turnOrder {
		if h == house {
			return turnOrder[(i+1)%len(turnOrder)]
		}
	}
	return turnOrder[0]
}

// Controller returns the house controlling a region: the owner of the units
// present, else the control marker, else the permanent capital owner.
func (b *Board) Controller(region *Region) *House {
	for _, u := range region.Units {
		return b.Houses[u.Allegiance]
	}
	if region.ControlPowerToken != "" {
		return b.Houses[region.ControlPowerToken]
	}
	if region.HomeOf != "" {
		return b.Houses[region.HomeOf]
	}
	return nil
}

// CreateUnit mints a new unit in a region. Unit ids are authoritative and
// strictly increasing so snapshots stay stable.
func (b *Board) CreateUnit(region *Region, typeID string, house *House) *Unit {
	b.nextUnitID++
	unit := &Unit{ID: b.nextUnitID, TypeID: typeID, Allegiance: house.ID}
	region.Units[unit.ID] = unit
	return unit
}

// UnitType resolves a unit's static content entry.
func (b *Board) UnitType(id string) *UnitType {
	return b.content.UnitTypes[id]
}

// UnitsOfHouse returns all of the house's units with their regions, in
// deterministic order.
func (b *Board) UnitsOfHouse(house *House) []*Region {
	regions := make([]*Region, 0)
	for _, region := range b.World.SortedRegions() {
		for _, u := range region.Units {
			if u.Allegiance == house.ID {
				regions = append(regions, region)
				break
			}
		}
	}
	return regions
}

// CountPowerTokensOnBoard counts the house's control markers on the map.
func (b *Board) CountPowerTokensOnBoard(house *House) int {
	count := 0
	for _, region := range b.World.Regions {
		if region.ControlPowerToken == house.ID {
			count++
		}
	}
	return count
}

// CastleCount is the victory metric: the number of castle regions the house
// controls.
func (b *Board) CastleCount(house *House) int {
	count := 0
	for _, region := range b.World.Regions {
		if region.CastleLevel > 0 && b.Controller(region) == house {
			count++
		}
	}
	return count
}

// VictoryConditionsFulfilled reports an early win: any house controlling
// seven castles.
func (b *Board) VictoryConditionsFulfilled() bool {
	for _, house := range b.Houses {
		if b.CastleCount(house) >= 7 {
			return true
		}
	}
	return false
}

// PotentialWinners ranks every house by castles, then supply, then power
// tokens, then iron throne position. The first entry is the current
// potential winner.
func (b *Board) PotentialWinners() []*House {
	thronePos := make(map[string]int)
	for i, id := range b.IronThroneTrack {
		thronePos[id] = i
	}
	houses := b.SortedHouses()
	sort.SliceStable(houses, func(i, j int) bool {
		hi, hj := houses[i], houses[j]
		ci, cj := b.CastleCount(hi), b.CastleCount(hj)
		if ci != cj {
			return ci > cj
		}
		if hi.SupplyLevel != hj.SupplyLevel {
			return hi.SupplyLevel > hj.SupplyLevel
		}
		if hi.PowerTokens != hj.PowerTokens {
			return hi.PowerTokens > hj.PowerTokens
		}
		return thronePos[hi.ID] < thronePos[hj.ID]
	})
	return houses
}

// ControlledSupplyIcons sums the supply icons of the house's regions.
func (b *Board) ControlledSupplyIcons(house *House) int {
	icons := 0
	for _, region := range b.World.Regions {
		if b.Controller(region) == house {
			icons += region.SupplyIcons
		}
	}
	return icons
}

// ArmySizes computes the house's hypothetical army sizes (descending) after
// applying addedUnits (region id -> unit type ids placed there) and
// removedUnits (region id -> unit ids leaving). Only groups of two or more
// units count as an army.
func (b *Board) ArmySizes(house *House, addedUnits map[string][]string, removedUnits map[string][]int) []int {
	sizes := make([]int, 0)
	for _, region := range b.World.SortedRegions() {
		size := 0
		removed := removedUnits[region.ID]
		for _, u := range region.Units {
			if u.Allegiance != house.ID {
				continue
			}
			isRemoved := false
			for _, id := range removed {
				if id == u.ID {
					isRemoved = true
					break
				}
			}
			if !isRemoved {
				size++
			}
		}
		size += len(addedUnits[region.ID])
		if size >= 2 {
			sizes = append(sizes, size)
		}
	}
	sort.Sort(sort.Reverse(sort.IntSlice(sizes)))
	return sizes
}

// HasTooMuchArmies checks the house's hypothetical post-move army
// distribution against its supply restriction row.
func (b *Board) HasTooMuchArmies(house *House, addedUnits map[string][]string, removedUnits map[string][]int) bool {
	level := house.SupplyLevel
	if level >= len(b.SupplyRestrictions) {
		level = len(b.SupplyRestrictions) - 1
	}
	allowed := b.SupplyRestrictions[level]
	sizes := b.ArmySizes(house, addedUnits, removedUnits)
	if len(sizes) > len(allowed) {
		return true
	}
	for i, size := range sizes {
		if size > allowed[i] {
			return true
		}
	}
	return false
}

// CombatStrengthOfArmy sums unit strengths. Siege engines only count when
// attacking a structure.
func (b *Board) CombatStrengthOfArmy(army []*Unit, againstStructure bool) int {
	strength := 0
	for _, u := range army {
		if u.Wounded {
			continue
		}
		ut := b.UnitType(u.TypeID)
		if ut == nil {
			continue
		}
		if ut.ID == "siege-engine" && !againstStructure {
			continue
		}
		strength += ut.CombatStrength
	}
	return strength
}

// ReachableRegions lists the regions adjacent to start that every unit of
// the moving army may enter.
func (b *Board) ReachableRegions(start *Region, house *House, army []*Unit) []*Region {
	reachable := make([]*Region, 0)
	for _, region := range b.World.AdjacentRegions(start.ID) {
		allCanEnter := true
		for _, u := range army {
			ut := b.UnitType(u.TypeID)
			if ut == nil || !ut.CanEnter(region.Kind) {
				allCanEnter = false
				break
			}
		}
		if allCanEnter && len(army) > 0 {
			reachable = append(reachable, region)
		}
	}
	return reachable
}

// ValidRetreatRegions lists structurally valid retreat destinations: regions
// adjacent to the embattled one that the army can enter and that are not
// held by another house or a garrison.
func (b *Board) ValidRetreatRegions(from *Region, house *House, army []*Unit) []*Region {
	valid := make([]*Region, 0)
	for _, region := range b.ReachableRegions(from, house, army) {
		controller := b.Controller(region)
		if controller != nil && controller != house {
			continue
		}
		if controller == nil && region.Garrison > 0 {
			continue
		}
		valid = append(valid, region)
	}
	return valid
}
