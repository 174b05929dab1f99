package game

import (
	"encoding/json"
	"math/rand"
	"sort"
	"time"

	"github.com/pkg/errors"
)

// Snapshot layer. Every game state serializes to a typed JSON node with an
// embedded child, so a snapshot is the whole state tree in one document.
// Admin snapshots carry all hidden information and are what persistence
// stores; viewer snapshots redact everything the viewer may not know.

type serializedHouseCardFull struct {
	ID             string `json:"id"`
	Name           string `json:"name"`
	CombatStrength int    `json:"combatStrength"`
	Swords         int    `json:"swords"`
	Towers         int    `json:"towers"`
	State          int    `json:"state"`
}

func serializeHouseCardFull(hc *HouseCard) serializedHouseCardFull {
	return serializedHouseCardFull{
		ID:             hc.ID,
		Name:           hc.Name,
		CombatStrength: hc.CombatStrength,
		Swords:         hc.Swords,
		Towers:         hc.Towers,
		State:          int(hc.State),
	}
}

func deserializeHouseCardFull(s serializedHouseCardFull) *HouseCard {
	return &HouseCard{
		ID:             s.ID,
		Name:           s.Name,
		CombatStrength: s.CombatStrength,
		Swords:         s.Swords,
		Towers:         s.Towers,
		State:          HouseCardState(s.State),
	}
}

type serializedHouse struct {
	ID                      string                    `json:"id"`
	PowerTokens             int                       `json:"powerTokens"`
	SupplyLevel             int                       `json:"supplyLevel"`
	KnowsNextWildlingCard   bool                      `json:"knowsNextWildlingCard,omitempty"`
	HasBeenReplacedByVassal bool                      `json:"hasBeenReplacedByVassal,omitempty"`
	HouseCards              []serializedHouseCardFull `json:"houseCards"`
}

type serializedRegionState struct {
	ID                string           `json:"id"`
	Garrison          int              `json:"garrison,omitempty"`
	ControlPowerToken string           `json:"controlPowerToken,omitempty"`
	Units             []SerializedUnit `json:"units,omitempty"`
}

type serializedWildlingCard struct {
	ID     int    `json:"id"`
	TypeID string `json:"type,omitempty"`
}

type serializedLoanCard struct {
	ID        int  `json:"id"`
	Discarded bool `json:"discarded,omitempty"`
}

type serializedIronBank struct {
	LoanCardDeck []serializedLoanCard `json:"loanCardDeck"`
	InterestOwed map[string]int       `json:"interestOwed,omitempty"`
}

type serializedBoard struct {
	Turn     int `json:"turn"`
	MaxTurns int `json:"maxTurns"`

	HouseOrder []string          `json:"houseOrder"`
	Houses     []serializedHouse `json:"houses"`

	Regions []serializedRegionState `json:"regions"`

	IronThroneTrack []string `json:"ironThroneTrack"`
	FiefdomsTrack   []string `json:"fiefdomsTrack"`
	KingsCourtTrack []string `json:"kingsCourtTrack"`

	ValyrianSteelBladeUsed bool `json:"valyrianSteelBladeUsed,omitempty"`

	WildlingStrength int                      `json:"wildlingStrength"`
	WildlingDeck     []serializedWildlingCard `json:"wildlingDeck"`

	WesterosDecks [][]SerializedWesterosCard `json:"westerosDecks"`

	VassalRelations     map[string]string                    `json:"vassalRelations,omitempty"`
	OldPlayerHouseCards map[string][]serializedHouseCardFull `json:"oldPlayerHouseCards,omitempty"`

	IronBank *serializedIronBank `json:"ironBank,omitempty"`

	NextUnitID int `json:"nextUnitId"`
}

// serializeBoard redacts the deck contents for non-admin viewers: westeros
// card types are hidden until drawn and the wildling deck shows types only
// to a house that has seen the top card.
func (b *Board) serialize(admin bool, viewer *Player) *serializedBoard {
	sb := &serializedBoard{
		Turn:                   b.Turn,
		MaxTurns:               b.MaxTurns,
		HouseOrder:             append([]string(nil), b.houseOrder...),
		IronThroneTrack:        append([]string(nil), b.IronThroneTrack...),
		FiefdomsTrack:          append([]string(nil), b.FiefdomsTrack...),
		KingsCourtTrack:        append([]string(nil), b.KingsCourtTrack...),
		ValyrianSteelBladeUsed: b.ValyrianSteelBladeUsed,
		WildlingStrength:       b.WildlingStrength,
		NextUnitID:             b.nextUnitID,
	}

	for _, house := range b.SortedHouses() {
		sh := serializedHouse{
			ID:                      house.ID,
			PowerTokens:             house.PowerTokens,
			SupplyLevel:             house.SupplyLevel,
			KnowsNextWildlingCard:   house.KnowsNextWildlingCard,
			HasBeenReplacedByVassal: house.HasBeenReplacedByVassal,
		}
		for _, hc := range house.SortedHouseCards() {
			sh.HouseCards = append(sh.HouseCards, serializeHouseCardFull(hc))
		}
		sb.Houses = append(sb.Houses, sh)
	}

	for _, region := range b.World.SortedRegions() {
		sr := serializedRegionState{
			ID:                region.ID,
			Garrison:          region.Garrison,
			ControlPowerToken: region.ControlPowerToken,
		}
		for _, u := range region.SortedUnits() {
			sr.Units = append(sr.Units, u.serialize())
		}
		sb.Regions = append(sb.Regions, sr)
	}

	viewerKnowsTop := admin
	if !viewerKnowsTop && viewer != nil {
		if house, ok := b.Houses[viewer.HouseID]; ok && house.KnowsNextWildlingCard {
			viewerKnowsTop = true
		}
	}
	for n, card := range b.WildlingDeck {
		sc := serializedWildlingCard{ID: card.ID}
		if admin || (viewerKnowsTop && n == 0) {
			sc.TypeID = card.TypeID
		}
		sb.WildlingDeck = append(sb.WildlingDeck, sc)
	}

	sb.WesterosDecks = make([][]SerializedWesterosCard, len(b.WesterosDecks))
	for d, deck := range b.WesterosDecks {
		sb.WesterosDecks[d] = make([]SerializedWesterosCard, len(deck))
		for n, card := range deck {
			sc := SerializedWesterosCard{ID: card.ID, Discarded: card.Discarded}
			if admin {
				sc.TypeID = card.TypeID
			}
			sb.WesterosDecks[d][n] = sc
		}
	}

	if len(b.VassalRelations) > 0 {
		sb.VassalRelations = make(map[string]string, len(b.VassalRelations))
		for vassal, commander := range b.VassalRelations {
			sb.VassalRelations[vassal] = commander
		}
	}
	if len(b.OldPlayerHouseCards) > 0 {
		sb.OldPlayerHouseCards = make(map[string][]serializedHouseCardFull)
		for houseID, cards := range b.OldPlayerHouseCards {
			for _, hc := range cards {
				sb.OldPlayerHouseCards[houseID] = append(sb.OldPlayerHouseCards[houseID], serializeHouseCardFull(hc))
			}
		}
	}

	if b.IronBank != nil {
		sib := &serializedIronBank{InterestOwed: b.IronBank.InterestOwed}
		for _, lc := range b.IronBank.LoanCardDeck {
			sib.LoanCardDeck = append(sib.LoanCardDeck, serializedLoanCard{ID: lc.ID, Discarded: lc.Discarded})
		}
		sb.IronBank = sib
	}
	return sb
}

// deserializeBoard rebuilds a board from an admin snapshot. The static
// world comes from content; all mutable state is overwritten.
func deserializeBoard(content *Content, sb *serializedBoard, rng *rand.Rand) (*Board, error) {
	board, err := NewBoard(content, sb.HouseOrder, rng)
	if err != nil {
		return nil, errors.Wrapf(err, "Failed to rebuild board from snapshot")
	}
	board.Turn = sb.Turn
	board.MaxTurns = sb.MaxTurns
	board.IronThroneTrack = append([]string(nil), sb.IronThroneTrack...)
	board.FiefdomsTrack = append([]string(nil), sb.FiefdomsTrack...)
	board.KingsCourtTrack = append([]string(nil), sb.KingsCourtTrack...)
	board.ValyrianSteelBladeUsed = sb.ValyrianSteelBladeUsed
	board.WildlingStrength = sb.WildlingStrength
	board.nextUnitID = sb.NextUnitID

	for _, sh := range sb.Houses {
		house, err := board.House(sh.ID)
		if err != nil {
			return nil, err
		}
		house.PowerTokens = sh.PowerTokens
		house.SupplyLevel = sh.SupplyLevel
		house.KnowsNextWildlingCard = sh.KnowsNextWildlingCard
		house.HasBeenReplacedByVassal = sh.HasBeenReplacedByVassal
		house.HouseCards = make(map[string]*HouseCard, len(sh.HouseCards))
		for _, sc := range sh.HouseCards {
			card := deserializeHouseCardFull(sc)
			house.HouseCards[card.ID] = card
		}
	}

	for _, region := range board.World.Regions {
		region.Units = make(map[int]*Unit)
	}
	for _, sr := range sb.Regions {
		region, err := board.World.Region(sr.ID)
		if err != nil {
			return nil, err
		}
		region.Garrison = sr.Garrison
		region.ControlPowerToken = sr.ControlPowerToken
		for _, su := range sr.Units {
			u := deserializeUnit(su)
			region.Units[u.ID] = u
		}
	}

	board.WildlingDeck = make([]*WildlingCard, 0, len(sb.WildlingDeck))
	for _, sc := range sb.WildlingDeck {
		if sc.TypeID == "" {
			return nil, errors.Errorf("wildling card [%d] in snapshot has no type, not an admin snapshot", sc.ID)
		}
		board.WildlingDeck = append(board.WildlingDeck, &WildlingCard{ID: sc.ID, TypeID: sc.TypeID})
	}
	board.WesterosDecks = make([][]*WesterosCard, len(sb.WesterosDecks))
	for d, deck := range sb.WesterosDecks {
		board.WesterosDecks[d] = make([]*WesterosCard, 0, len(deck))
		for _, sc := range deck {
			if sc.TypeID == "" {
				return nil, errors.Errorf("westeros card [%d] in snapshot has no type, not an admin snapshot", sc.ID)
			}
			board.WesterosDecks[d] = append(board.WesterosDecks[d], &WesterosCard{ID: sc.ID, TypeID: sc.TypeID, Discarded: sc.Discarded})
		}
	}

	board.VassalRelations = make(map[string]string)
	for vassal, commander := range sb.VassalRelations {
		board.VassalRelations[vassal] = commander
	}
	board.OldPlayerHouseCards = make(map[string][]*HouseCard)
	for houseID, cards := range sb.OldPlayerHouseCards {
		for _, sc := range cards {
			board.OldPlayerHouseCards[houseID] = append(board.OldPlayerHouseCards[houseID], deserializeHouseCardFull(sc))
		}
	}

	board.IronBank = nil
	if sb.IronBank != nil {
		bank := &IronBank{InterestOwed: make(map[string]int)}
		for _, sc := range sb.IronBank.LoanCardDeck {
			bank.LoanCardDeck = append(bank.LoanCardDeck, &LoanCard{ID: sc.ID, Discarded: sc.Discarded})
		}
		for houseID, owed := range sb.IronBank.InterestOwed {
			bank.InterestOwed[houseID] = owed
		}
		board.IronBank = bank
	}
	return board, nil
}

// controlsHouse reports whether the viewer currently commands the house,
// either directly or as a vassal commander.
func (i *IngameState) controlsHouse(viewer *Player, houseID string) bool {
	if viewer == nil {
		return false
	}
	house, err := i.board.House(houseID)
	if err != nil {
		return false
	}
	controller, err := i.ControllerOfHouse(house)
	return err == nil && controller.UserID == viewer.UserID
}

func serializeChild(s GameState, admin bool, viewer *Player) (json.RawMessage, error) {
	child := s.ChildGameState()
	if child == nil {
		return nil, nil
	}
	data, err := child.SerializeToClient(admin, viewer)
	if err != nil {
		return nil, err
	}
	return json.RawMessage(data), nil
}

type serializedIngame struct {
	Type string `json:"type"`

	Board   *serializedBoard   `json:"board"`
	Players []SerializedPlayer `json:"players"`
	GameLog []LogEntry         `json:"gameLog"`
	Votes   []SerializedVote   `json:"votes,omitempty"`

	OrdersOnBoard        map[string]string `json:"ordersOnBoard,omitempty"`
	PlanningRestrictions []string          `json:"planningRestrictions,omitempty"`

	Paused              bool  `json:"paused,omitempty"`
	WillBeAutoResumedAt int64 `json:"willBeAutoResumedAt,omitempty"`
	ClocksEnabled       bool  `json:"clocksEnabled,omitempty"`

	Child json.RawMessage `json:"child,omitempty"`
}

func (i *IngameState) SerializeToClient(admin bool, viewer *Player) ([]byte, error) {
	now := time.Now()
	s := serializedIngame{
		Type:                 StateIngame,
		Board:                i.board.serialize(admin, viewer),
		GameLog:              i.gameLog.Entries,
		OrdersOnBoard:        i.ordersOnBoard,
		PlanningRestrictions: i.planningRestrictions,
		Paused:               i.paused,
		ClocksEnabled:        i.clocksEnabled,
	}
	if i.paused {
		s.WillBeAutoResumedAt = i.willBeAutoResumedAt.Unix()
	}
	for _, p := range i.SortedPlayers() {
		s.Players = append(s.Players, p.serialize(now))
	}
	for _, voteID := range i.voteOrder {
		s.Votes = append(s.Votes, i.votes[voteID].serialize())
	}
	child, err := serializeChild(i, admin, viewer)
	if err != nil {
		return nil, err
	}
	s.Child = child
	return jsonit.Marshal(s)
}

type serializedDraft struct {
	Type      string                    `json:"type"`
	Pool      []serializedHouseCardFull `json:"pool"`
	PickOrder []string                  `json:"pickOrder"`
	HandSize  int                       `json:"handSize"`
	PickIndex int                       `json:"pickIndex"`
	Forward   bool                      `json:"forward"`
}

func (d *DraftState) SerializeToClient(admin bool, viewer *Player) ([]byte, error) {
	s := serializedDraft{
		Type:      StateDraft,
		PickOrder: d.pickOrder,
		HandSize:  d.handSize,
		PickIndex: d.pickIndex,
		Forward:   d.forward,
	}
	for _, id := range d.sortedPoolIDs() {
		s.Pool = append(s.Pool, serializeHouseCardFull(d.pool[id]))
	}
	return jsonit.Marshal(s)
}

type serializedPayDebts struct {
	Type        string `json:"type"`
	LastHouseID string `json:"lastHouse,omitempty"`
	HouseID     string `json:"house,omitempty"`
}

func (p *PayDebtsState) SerializeToClient(admin bool, viewer *Player) ([]byte, error) {
	return jsonit.Marshal(serializedPayDebts{
		Type:        StatePayDebts,
		LastHouseID: p.resolver.lastHouseID,
		HouseID:     p.houseID,
	})
}

type serializedWesteros struct {
	Type          string                   `json:"type"`
	DrawnCards    []SerializedWesterosCard `json:"drawnCards"`
	CurrentCard   int                      `json:"currentCard"`
	Restrictions  []string                 `json:"restrictions,omitempty"`
	BiddingTrack  int                      `json:"biddingTrack"`
	MusteringLast *string                  `json:"musteringLast,omitempty"`
	ReconcileLast *string                  `json:"reconcileLast,omitempty"`
	Child         json.RawMessage          `json:"child,omitempty"`
}

func (w *WesterosState) SerializeToClient(admin bool, viewer *Player) ([]byte, error) {
	s := serializedWesteros{
		Type:         StateWesteros,
		CurrentCard:  w.currentCard,
		Restrictions: w.restrictions,
		BiddingTrack: w.biddingTrack,
	}
	// Drawn cards are public.
	for _, card := range w.drawnCards {
		s.DrawnCards = append(s.DrawnCards, SerializedWesterosCard{ID: card.ID, TypeID: card.TypeID, Discarded: card.Discarded})
	}
	if w.musteringResolver != nil {
		last := w.musteringResolver.lastHouseID
		s.MusteringLast = &last
	}
	if w.reconcileResolver != nil {
		last := w.reconcileResolver.lastHouseID
		s.ReconcileLast = &last
	}
	child, err := serializeChild(w, admin, viewer)
	if err != nil {
		return nil, err
	}
	s.Child = child
	return jsonit.Marshal(s)
}

type serializedBidding struct {
	Type     string         `json:"type"`
	Purpose  string         `json:"purpose"`
	HouseIDs []string       `json:"houses"`
	Bids     map[string]int `json:"bids,omitempty"`
	// BidsPlaced lists which houses have bid, visible to everyone.
	BidsPlaced []string `json:"bidsPlaced,omitempty"`
}

func (b *BiddingState) SerializeToClient(admin bool, viewer *Player) ([]byte, error) {
	s := serializedBidding{
		Type:     StateBidding,
		Purpose:  b.purpose,
		HouseIDs: b.houseIDs,
	}
	for _, houseID := range b.houseIDs {
		bid, placed := b.bids[houseID]
		if !placed {
			continue
		}
		s.BidsPlaced = append(s.BidsPlaced, houseID)
		if admin || b.ingame.controlsHouse(viewer, houseID) {
			if s.Bids == nil {
				s.Bids = make(map[string]int)
			}
			s.Bids[houseID] = bid
		}
	}
	return jsonit.Marshal(s)
}

type serializedReconcileArmies struct {
	Type    string `json:"type"`
	HouseID string `json:"house"`
}

func (r *ReconcileArmiesState) SerializeToClient(admin bool, viewer *Player) ([]byte, error) {
	return jsonit.Marshal(serializedReconcileArmies{Type: StateReconcileArmies, HouseID: r.houseID})
}

type serializedMustering struct {
	Type      string   `json:"type"`
	HouseID   string   `json:"house"`
	RegionIDs []string `json:"regions"`
	FromOrder bool     `json:"fromOrder,omitempty"`
}

func (m *MusteringState) SerializeToClient(admin bool, viewer *Player) ([]byte, error) {
	return jsonit.Marshal(serializedMustering{
		Type:      StateMustering,
		HouseID:   m.houseID,
		RegionIDs: m.regionIDs,
		FromOrder: m.fromOrder,
	})
}

type serializedWildlingAttack struct {
	Type  string          `json:"type"`
	Child json.RawMessage `json:"child,omitempty"`
}

func (a *WildlingAttackState) SerializeToClient(admin bool, viewer *Player) ([]byte, error) {
	child, err := serializeChild(a, admin, viewer)
	if err != nil {
		return nil, err
	}
	return jsonit.Marshal(serializedWildlingAttack{Type: StateWildlingAttack, Child: child})
}

type serializedPlanning struct {
	Type         string   `json:"type"`
	Restrictions []string `json:"restrictions,omitempty"`
	// PlacedOrders is redacted per viewer: only the orders of houses the
	// viewer commands are visible before reveal.
	PlacedOrders map[string]map[string]string `json:"placedOrders,omitempty"`
	ReadyHouses  []string                     `json:"readyHouses,omitempty"`
}

func (p *PlanningState) SerializeToClient(admin bool, viewer *Player) ([]byte, error) {
	s := serializedPlanning{
		Type:         StatePlanning,
		Restrictions: p.restrictions,
	}
	for houseID := range p.readyHouses {
		s.ReadyHouses = append(s.ReadyHouses, houseID)
	}
	sort.Strings(s.ReadyHouses)
	for houseID, orders := range p.placedOrders {
		if !admin && !p.ingame.controlsHouse(viewer, houseID) {
			continue
		}
		if s.PlacedOrders == nil {
			s.PlacedOrders = make(map[string]map[string]string)
		}
		s.PlacedOrders[houseID] = orders
	}
	return jsonit.Marshal(s)
}

type serializedAction struct {
	Type  string          `json:"type"`
	Child json.RawMessage `json:"child,omitempty"`
}

func (a *ActionState) SerializeToClient(admin bool, viewer *Player) ([]byte, error) {
	child, err := serializeChild(a, admin, viewer)
	if err != nil {
		return nil, err
	}
	return jsonit.Marshal(serializedAction{Type: StateAction, Child: child})
}

type serializedResolver struct {
	Type        string          `json:"type"`
	LastHouseID string          `json:"lastHouse,omitempty"`
	Child       json.RawMessage `json:"child,omitempty"`
}

func serializeResolverState(s GameState, typeName string, resolver *turnOrderResolver, admin bool, viewer *Player) ([]byte, error) {
	child, err := serializeChild(s, admin, viewer)
	if err != nil {
		return nil, err
	}
	return jsonit.Marshal(serializedResolver{Type: typeName, LastHouseID: resolver.lastHouseID, Child: child})
}

func (c *ConsolidatePowerState) SerializeToClient(admin bool, viewer *Player) ([]byte, error) {
	return serializeResolverState(c, StateConsolidatePower, c.resolver, admin, viewer)
}

func (m *ResolveMarchState) SerializeToClient(admin bool, viewer *Player) ([]byte, error) {
	return serializeResolverState(m, StateResolveMarch, m.resolver, admin, viewer)
}

func (r *ResolveRaidState) SerializeToClient(admin bool, viewer *Player) ([]byte, error) {
	return serializeResolverState(r, StateResolveRaid, r.resolver, admin, viewer)
}

type serializedSingleHouse struct {
	Type    string `json:"type"`
	HouseID string `json:"house"`
}

func (m *ResolveSingleMarchState) SerializeToClient(admin bool, viewer *Player) ([]byte, error) {
	return jsonit.Marshal(serializedSingleHouse{Type: StateResolveSingleMarch, HouseID: m.houseID})
}

func (r *ResolveSingleRaidState) SerializeToClient(admin bool, viewer *Player) ([]byte, error) {
	return jsonit.Marshal(serializedSingleHouse{Type: StateResolveSingleRaid, HouseID: r.houseID})
}

type serializedRaven struct {
	Type  string          `json:"type"`
	Child json.RawMessage `json:"child,omitempty"`
}

func (r *RavenState) SerializeToClient(admin bool, viewer *Player) ([]byte, error) {
	child, err := serializeChild(r, admin, viewer)
	if err != nil {
		return nil, err
	}
	return jsonit.Marshal(serializedRaven{Type: StateRaven, Child: child})
}

type serializedSeeTopWildlingCard struct {
	Type    string `json:"type"`
	HouseID string `json:"house"`
	// CardID is only visible to the raven holder.
	CardID int `json:"cardId,omitempty"`
}

func (s *SeeTopWildlingCardState) SerializeToClient(admin bool, viewer *Player) ([]byte, error) {
	out := serializedSeeTopWildlingCard{Type: StateSeeTopWildlingCard, HouseID: s.houseID}
	if admin || s.ingame.controlsHouse(viewer, s.houseID) {
		out.CardID = s.cardID
	}
	return jsonit.Marshal(out)
}

type serializedSelectRegion struct {
	Type       string   `json:"type"`
	HouseID    string   `json:"house"`
	Candidates []string `json:"candidates"`
}

func (s *SelectRegionState) SerializeToClient(admin bool, viewer *Player) ([]byte, error) {
	return jsonit.Marshal(serializedSelectRegion{
		Type:       StateSelectRegion,
		HouseID:    s.houseID,
		Candidates: s.candidates,
	})
}

type serializedSelectUnits struct {
	Type     string `json:"type"`
	HouseID  string `json:"house"`
	RegionID string `json:"region"`
	Count    int    `json:"count"`
}

func (s *SelectUnitsState) SerializeToClient(admin bool, viewer *Player) ([]byte, error) {
	return jsonit.Marshal(serializedSelectUnits{
		Type:     StateSelectUnits,
		HouseID:  s.houseID,
		RegionID: s.regionID,
		Count:    s.count,
	})
}

type serializedCombat struct {
	Type             string          `json:"type"`
	AttackerID       string          `json:"attacker"`
	DefenderID       string          `json:"defender"`
	FromID           string          `json:"from"`
	RegionID         string          `json:"region"`
	AttackingUnitIDs []int           `json:"attackingUnits"`
	MarchBonus       int             `json:"marchBonus"`
	AttackerCardID   string          `json:"attackerCard,omitempty"`
	DefenderCardID   string          `json:"defenderCard,omitempty"`
	Child            json.RawMessage `json:"child,omitempty"`
}

func (c *CombatState) SerializeToClient(admin bool, viewer *Player) ([]byte, error) {
	s := serializedCombat{
		Type:             StateCombat,
		AttackerID:       c.attackerID,
		DefenderID:       c.defenderID,
		FromID:           c.fromID,
		RegionID:         c.regionID,
		AttackingUnitIDs: c.attackingUnitIDs,
		MarchBonus:       c.marchBonus,
		AttackerCardID:   c.attackerCardID,
		DefenderCardID:   c.defenderCardID,
	}
	child, err := serializeChild(c, admin, viewer)
	if err != nil {
		return nil, err
	}
	s.Child = child
	return jsonit.Marshal(s)
}

type serializedChooseHouseCard struct {
	Type string `json:"type"`
	// Chosen is redacted: picks stay secret until both cards are revealed.
	Chosen   map[string]string `json:"chosen,omitempty"`
	Picked   []string          `json:"picked,omitempty"`
	AutoFlag map[string]bool   `json:"autoFlag,omitempty"`
	Finished bool              `json:"finished,omitempty"`
}

func (c *ChooseHouseCardState) SerializeToClient(admin bool, viewer *Player) ([]byte, error) {
	s := serializedChooseHouseCard{Type: StateChooseHouseCard, Finished: c.finished}
	if admin {
		s.AutoFlag = c.autoFlag
	}
	for houseID, cardID := range c.chosen {
		s.Picked = append(s.Picked, houseID)
		if admin || c.ingame.controlsHouse(viewer, houseID) {
			if s.Chosen == nil {
				s.Chosen = make(map[string]string)
			}
			s.Chosen[houseID] = cardID
		}
	}
	sort.Strings(s.Picked)
	return jsonit.Marshal(s)
}

type serializedPostCombat struct {
	Type               string          `json:"type"`
	WinnerID           string          `json:"winner"`
	LoserID            string          `json:"loser"`
	Casualties         int             `json:"casualties"`
	CasualtiesResolved bool            `json:"casualtiesResolved,omitempty"`
	Child              json.RawMessage `json:"child,omitempty"`
}

func (p *PostCombatState) SerializeToClient(admin bool, viewer *Player) ([]byte, error) {
	s := serializedPostCombat{
		Type:               StatePostCombat,
		WinnerID:           p.winnerID,
		LoserID:            p.loserID,
		Casualties:         p.casualties,
		CasualtiesResolved: p.casualtiesResolved,
	}
	child, err := serializeChild(p, admin, viewer)
	if err != nil {
		return nil, err
	}
	s.Child = child
	return jsonit.Marshal(s)
}

type serializedResolveRetreat struct {
	Type          string          `json:"type"`
	HouseID       string          `json:"house"`
	ChooserID     string          `json:"chooser"`
	FromID        string          `json:"from"`
	UnitIDs       []int           `json:"units"`
	MinCasualties int             `json:"minCasualties"`
	Candidates    []string        `json:"candidates"`
	Child         json.RawMessage `json:"child,omitempty"`
}

func (r *ResolveRetreatState) SerializeToClient(admin bool, viewer *Player) ([]byte, error) {
	s := serializedResolveRetreat{
		Type:          StateResolveRetreat,
		HouseID:       r.houseID,
		ChooserID:     r.chooserID,
		FromID:        r.fromID,
		UnitIDs:       r.unitIDs,
		MinCasualties: r.minCasualties,
		Candidates:    r.candidates,
	}
	child, err := serializeChild(r, admin, viewer)
	if err != nil {
		return nil, err
	}
	s.Child = child
	return jsonit.Marshal(s)
}

type serializedGameEnded struct {
	Type            string `json:"type"`
	WinnerHouseID   string `json:"winner"`
	MaxTurnsReached bool   `json:"maxTurnsReached,omitempty"`
}

func (g *GameEndedState) SerializeToClient(admin bool, viewer *Player) ([]byte, error) {
	return jsonit.Marshal(serializedGameEnded{
		Type:            StateGameEnded,
		WinnerHouseID:   g.winnerHouseID,
		MaxTurnsReached: g.maxTurnsReached,
	})
}

type serializedCancelled struct {
	Type string `json:"type"`
}

func (c *CancelledState) SerializeToClient(admin bool, viewer *Player) ([]byte, error) {
	return jsonit.Marshal(serializedCancelled{Type: StateCancelled})
}

// Reconstruction. Snapshot nodes are dispatched on their type tag; an
// unknown tag is a hard error rather than a silently dropped subtree.

type snapshotBuilder func(i *IngameState, parent GameState, raw json.RawMessage) (GameState, error)

var snapshotBuilders map[string]snapshotBuilder

func init() {
	snapshotBuilders = map[string]snapshotBuilder{
		StateDraft:              buildDraft,
		StatePayDebts:           buildPayDebts,
		StateWesteros:           buildWesteros,
		StateBidding:            buildBidding,
		StateReconcileArmies:    buildReconcileArmies,
		StateMustering:          buildMustering,
		StateWildlingAttack:     buildWildlingAttack,
		StatePlanning:           buildPlanning,
		StateAction:             buildAction,
		StateConsolidatePower:   buildConsolidatePower,
		StateResolveMarch:       buildResolveMarch,
		StateResolveSingleMarch: buildResolveSingleMarch,
		StateResolveRaid:        buildResolveRaid,
		StateResolveSingleRaid:  buildResolveSingleRaid,
		StateRaven:              buildRaven,
		StateSeeTopWildlingCard: buildSeeTopWildlingCard,
		StateSelectRegion:       buildSelectRegion,
		StateSelectUnits:        buildSelectUnits,
		StateCombat:             buildCombat,
		StateChooseHouseCard:    buildChooseHouseCard,
		StatePostCombat:         buildPostCombat,
		StateResolveRetreat:     buildResolveRetreat,
		StateGameEnded:          buildGameEnded,
		StateCancelled:          buildCancelled,
	}
}

type typeTag struct {
	Type string `json:"type"`
}

func buildChild(i *IngameState, parent GameState, raw json.RawMessage) (GameState, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	var tag typeTag
	if err := jsonit.Unmarshal(raw, &tag); err != nil {
		return nil, errors.Wrapf(err, "Failed to read snapshot node type")
	}
	builder, ok := snapshotBuilders[tag.Type]
	if !ok {
		return nil, errors.Errorf("no snapshot builder for state type [%s]", tag.Type)
	}
	return builder(i, parent, raw)
}

func attachChild(i *IngameState, parent GameState, raw json.RawMessage) error {
	child, err := buildChild(i, parent, raw)
	if err != nil {
		return err
	}
	if child != nil {
		parent.SetChildGameState(child)
	}
	return nil
}

// ReconstructIngame rebuilds the full game tree from an admin snapshot.
func ReconstructIngame(data []byte, content *Content, receiver MessageReceiver, timers TimerScheduler, rng *rand.Rand) (*IngameState, error) {
	var s serializedIngame
	if err := jsonit.Unmarshal(data, &s); err != nil {
		return nil, errors.Wrapf(err, "Failed to parse game snapshot")
	}
	if s.Type != StateIngame {
		return nil, errors.Errorf("snapshot root has type [%s], expected [%s]", s.Type, StateIngame)
	}
	i := NewIngameState(content, receiver, timers, rng)
	board, err := deserializeBoard(content, s.Board, rng)
	if err != nil {
		return nil, err
	}
	i.board = board
	i.gameLog.Entries = s.GameLog
	i.planningRestrictions = s.PlanningRestrictions
	i.paused = s.Paused
	if s.Paused {
		i.willBeAutoResumedAt = time.Unix(s.WillBeAutoResumedAt, 0)
	}
	i.clocksEnabled = s.ClocksEnabled
	for regionID, typeID := range s.OrdersOnBoard {
		i.ordersOnBoard[regionID] = typeID
	}
	for _, sp := range s.Players {
		i.players[sp.UserID] = &Player{
			UserID:                sp.UserID,
			UserName:              sp.UserName,
			HouseID:               sp.HouseID,
			TotalRemainingSeconds: sp.TotalRemainingSeconds,
			Connected:             sp.Connected,
		}
	}
	for _, sv := range s.Votes {
		vote := deserializeVote(sv)
		i.votes[vote.ID] = vote
		i.voteOrder = append(i.voteOrder, vote.ID)
	}
	if err := attachChild(i, i, s.Child); err != nil {
		return nil, err
	}
	return i, nil
}

func buildDraft(i *IngameState, parent GameState, raw json.RawMessage) (GameState, error) {
	var s serializedDraft
	if err := jsonit.Unmarshal(raw, &s); err != nil {
		return nil, err
	}
	d := newDraftState(i)
	d.pool = make(map[string]*HouseCard, len(s.Pool))
	for _, sc := range s.Pool {
		card := deserializeHouseCardFull(sc)
		d.pool[card.ID] = card
	}
	d.pickOrder = s.PickOrder
	d.handSize = s.HandSize
	d.pickIndex = s.PickIndex
	d.forward = s.Forward
	return d, nil
}

func buildPayDebts(i *IngameState, parent GameState, raw json.RawMessage) (GameState, error) {
	var s serializedPayDebts
	if err := jsonit.Unmarshal(raw, &s); err != nil {
		return nil, err
	}
	p := newPayDebtsState(i)
	p.resolver = newTurnOrderResolver(i.Board())
	p.resolver.lastHouseID = s.LastHouseID
	p.houseID = s.HouseID
	return p, nil
}

func buildWesteros(i *IngameState, parent GameState, raw json.RawMessage) (GameState, error) {
	var s serializedWesteros
	if err := jsonit.Unmarshal(raw, &s); err != nil {
		return nil, err
	}
	w := newWesterosState(i)
	for _, sc := range s.DrawnCards {
		w.drawnCards = append(w.drawnCards, &WesterosCard{ID: sc.ID, TypeID: sc.TypeID, Discarded: sc.Discarded})
	}
	w.currentCard = s.CurrentCard
	w.restrictions = s.Restrictions
	w.biddingTrack = s.BiddingTrack
	if s.MusteringLast != nil {
		w.musteringResolver = newTurnOrderResolver(i.Board())
		w.musteringResolver.lastHouseID = *s.MusteringLast
	}
	if s.ReconcileLast != nil {
		w.reconcileResolver = newTurnOrderResolver(i.Board())
		w.reconcileResolver.lastHouseID = *s.ReconcileLast
	}
	if err := attachChild(i, w, s.Child); err != nil {
		return nil, err
	}
	return w, nil
}

func buildBidding(i *IngameState, parent GameState, raw json.RawMessage) (GameState, error) {
	var s serializedBidding
	if err := jsonit.Unmarshal(raw, &s); err != nil {
		return nil, err
	}
	b := newBiddingState(i, parent)
	b.purpose = s.Purpose
	b.houseIDs = s.HouseIDs
	for houseID, bid := range s.Bids {
		b.bids[houseID] = bid
	}
	return b, nil
}

func buildReconcileArmies(i *IngameState, parent GameState, raw json.RawMessage) (GameState, error) {
	var s serializedReconcileArmies
	if err := jsonit.Unmarshal(raw, &s); err != nil {
		return nil, err
	}
	westeros, ok := parent.(*WesterosState)
	if !ok {
		return nil, errors.Errorf("reconcile-armies snapshot node outside a westeros phase")
	}
	r := newReconcileArmiesState(i, westeros)
	r.houseID = s.HouseID
	return r, nil
}

func buildMustering(i *IngameState, parent GameState, raw json.RawMessage) (GameState, error) {
	var s serializedMustering
	if err := jsonit.Unmarshal(raw, &s); err != nil {
		return nil, err
	}
	m := newMusteringState(i, parent)
	m.houseID = s.HouseID
	m.regionIDs = s.RegionIDs
	m.fromOrder = s.FromOrder
	return m, nil
}

func buildWildlingAttack(i *IngameState, parent GameState, raw json.RawMessage) (GameState, error) {
	var s serializedWildlingAttack
	if err := jsonit.Unmarshal(raw, &s); err != nil {
		return nil, err
	}
	westeros, ok := parent.(*WesterosState)
	if !ok {
		return nil, errors.Errorf("wildling-attack snapshot node outside a westeros phase")
	}
	a := newWildlingAttackState(i, westeros)
	if err := attachChild(i, a, s.Child); err != nil {
		return nil, err
	}
	return a, nil
}

func buildPlanning(i *IngameState, parent GameState, raw json.RawMessage) (GameState, error) {
	var s serializedPlanning
	if err := jsonit.Unmarshal(raw, &s); err != nil {
		return nil, err
	}
	p := newPlanningState(i)
	p.restrictions = s.Restrictions
	for houseID, orders := range s.PlacedOrders {
		p.placedOrders[houseID] = orders
	}
	for _, houseID := range s.ReadyHouses {
		p.readyHouses[houseID] = true
	}
	return p, nil
}

func buildAction(i *IngameState, parent GameState, raw json.RawMessage) (GameState, error) {
	var s serializedAction
	if err := jsonit.Unmarshal(raw, &s); err != nil {
		return nil, err
	}
	a := newActionState(i)
	if err := attachChild(i, a, s.Child); err != nil {
		return nil, err
	}
	return a, nil
}

func parentAction(parent GameState) (*ActionState, error) {
	action, ok := parent.(*ActionState)
	if !ok {
		return nil, errors.Errorf("snapshot node expected an action phase parent")
	}
	return action, nil
}

func buildConsolidatePower(i *IngameState, parent GameState, raw json.RawMessage) (GameState, error) {
	var s serializedResolver
	if err := jsonit.Unmarshal(raw, &s); err != nil {
		return nil, err
	}
	action, err := parentAction(parent)
	if err != nil {
		return nil, err
	}
	c := newConsolidatePowerState(i, action)
	c.resolver.lastHouseID = s.LastHouseID
	if err := attachChild(i, c, s.Child); err != nil {
		return nil, err
	}
	return c, nil
}

func buildResolveMarch(i *IngameState, parent GameState, raw json.RawMessage) (GameState, error) {
	var s serializedResolver
	if err := jsonit.Unmarshal(raw, &s); err != nil {
		return nil, err
	}
	action, err := parentAction(parent)
	if err != nil {
		return nil, err
	}
	m := newResolveMarchState(i, action)
	m.resolver.lastHouseID = s.LastHouseID
	if err := attachChild(i, m, s.Child); err != nil {
		return nil, err
	}
	return m, nil
}

func buildResolveSingleMarch(i *IngameState, parent GameState, raw json.RawMessage) (GameState, error) {
	var s serializedSingleHouse
	if err := jsonit.Unmarshal(raw, &s); err != nil {
		return nil, err
	}
	march, ok := parent.(*ResolveMarchState)
	if !ok {
		return nil, errors.Errorf("resolve-single-march snapshot node outside a march resolution")
	}
	m := newResolveSingleMarchState(i, march)
	m.houseID = s.HouseID
	return m, nil
}

func buildResolveRaid(i *IngameState, parent GameState, raw json.RawMessage) (GameState, error) {
	var s serializedResolver
	if err := jsonit.Unmarshal(raw, &s); err != nil {
		return nil, err
	}
	action, err := parentAction(parent)
	if err != nil {
		return nil, err
	}
	r := newResolveRaidState(i, action)
	r.resolver.lastHouseID = s.LastHouseID
	if err := attachChild(i, r, s.Child); err != nil {
		return nil, err
	}
	return r, nil
}

func buildResolveSingleRaid(i *IngameState, parent GameState, raw json.RawMessage) (GameState, error) {
	var s serializedSingleHouse
	if err := jsonit.Unmarshal(raw, &s); err != nil {
		return nil, err
	}
	raid, ok := parent.(*ResolveRaidState)
	if !ok {
		return nil, errors.Errorf("resolve-single-raid snapshot node outside a raid resolution")
	}
	r := newResolveSingleRaidState(i, raid)
	r.houseID = s.HouseID
	return r, nil
}

func buildRaven(i *IngameState, parent GameState, raw json.RawMessage) (GameState, error) {
	var s serializedRaven
	if err := jsonit.Unmarshal(raw, &s); err != nil {
		return nil, err
	}
	action, err := parentAction(parent)
	if err != nil {
		return nil, err
	}
	r := newRavenState(i, action)
	if err := attachChild(i, r, s.Child); err != nil {
		return nil, err
	}
	return r, nil
}

func buildSeeTopWildlingCard(i *IngameState, parent GameState, raw json.RawMessage) (GameState, error) {
	var s serializedSeeTopWildlingCard
	if err := jsonit.Unmarshal(raw, &s); err != nil {
		return nil, err
	}
	raven, ok := parent.(*RavenState)
	if !ok {
		return nil, errors.Errorf("see-top-wildling-card snapshot node outside a raven phase")
	}
	st := newSeeTopWildlingCardState(i, raven)
	st.houseID = s.HouseID
	st.cardID = s.CardID
	return st, nil
}

func buildSelectRegion(i *IngameState, parent GameState, raw json.RawMessage) (GameState, error) {
	var s serializedSelectRegion
	if err := jsonit.Unmarshal(raw, &s); err != nil {
		return nil, err
	}
	st := newSelectRegionState(i, parent)
	st.houseID = s.HouseID
	st.candidates = s.Candidates
	return st, nil
}

func buildSelectUnits(i *IngameState, parent GameState, raw json.RawMessage) (GameState, error) {
	var s serializedSelectUnits
	if err := jsonit.Unmarshal(raw, &s); err != nil {
		return nil, err
	}
	st := newSelectUnitsState(i, parent)
	st.houseID = s.HouseID
	st.regionID = s.RegionID
	st.count = s.Count
	return st, nil
}

func buildCombat(i *IngameState, parent GameState, raw json.RawMessage) (GameState, error) {
	var s serializedCombat
	if err := jsonit.Unmarshal(raw, &s); err != nil {
		return nil, err
	}
	march, ok := parent.(*ResolveMarchState)
	if !ok {
		return nil, errors.Errorf("combat snapshot node outside a march resolution")
	}
	c := newCombatState(i, march)
	c.attackerID = s.AttackerID
	c.defenderID = s.DefenderID
	c.fromID = s.FromID
	c.regionID = s.RegionID
	c.attackingUnitIDs = s.AttackingUnitIDs
	c.marchBonus = s.MarchBonus
	c.attackerCardID = s.AttackerCardID
	c.defenderCardID = s.DefenderCardID
	if err := attachChild(i, c, s.Child); err != nil {
		return nil, err
	}
	return c, nil
}

func buildChooseHouseCard(i *IngameState, parent GameState, raw json.RawMessage) (GameState, error) {
	var s serializedChooseHouseCard
	if err := jsonit.Unmarshal(raw, &s); err != nil {
		return nil, err
	}
	combat, ok := parent.(*CombatState)
	if !ok {
		return nil, errors.Errorf("choose-house-card snapshot node outside a combat")
	}
	c := newChooseHouseCardState(i, combat)
	for houseID, cardID := range s.Chosen {
		c.chosen[houseID] = cardID
	}
	for houseID, auto := range s.AutoFlag {
		c.autoFlag[houseID] = auto
	}
	c.finished = s.Finished
	return c, nil
}

func buildPostCombat(i *IngameState, parent GameState, raw json.RawMessage) (GameState, error) {
	var s serializedPostCombat
	if err := jsonit.Unmarshal(raw, &s); err != nil {
		return nil, err
	}
	combat, ok := parent.(*CombatState)
	if !ok {
		return nil, errors.Errorf("post-combat snapshot node outside a combat")
	}
	p := newPostCombatState(i, combat)
	p.winnerID = s.WinnerID
	p.loserID = s.LoserID
	p.casualties = s.Casualties
	p.casualtiesResolved = s.CasualtiesResolved
	if err := attachChild(i, p, s.Child); err != nil {
		return nil, err
	}
	return p, nil
}

func buildResolveRetreat(i *IngameState, parent GameState, raw json.RawMessage) (GameState, error) {
	var s serializedResolveRetreat
	if err := jsonit.Unmarshal(raw, &s); err != nil {
		return nil, err
	}
	r := newResolveRetreatState(i, parent)
	r.houseID = s.HouseID
	r.chooserID = s.ChooserID
	r.fromID = s.FromID
	r.unitIDs = s.UnitIDs
	r.minCasualties = s.MinCasualties
	r.candidates = s.Candidates
	if err := attachChild(i, r, s.Child); err != nil {
		return nil, err
	}
	return r, nil
}

func buildGameEnded(i *IngameState, parent GameState, raw json.RawMessage) (GameState, error) {
	var s serializedGameEnded
	if err := jsonit.Unmarshal(raw, &s); err != nil {
		return nil, err
	}
	g := newGameEndedState(i)
	g.winnerHouseID = s.WinnerHouseID
	g.maxTurnsReached = s.MaxTurnsReached
	return g, nil
}

func buildCancelled(i *IngameState, parent GameState, raw json.RawMessage) (GameState, error) {
	return newCancelledState(i), nil
}
