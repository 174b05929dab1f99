package game

import (
	"sort"
	"strconv"

	"github.com/rs/zerolog/log"

	"thronegate.com/server/logging"
)

var westerosLogger = log.With().Str("logger_name", "game::westeros").Logger()

const (
	StateWesteros        = "westeros"
	StateBidding         = "bidding"
	StateReconcileArmies = "reconcile-armies"
	StateMustering       = "mustering"
	StateWildlingAttack  = "wildling-attack"
)

// WesterosState reveals one card per westeros deck and executes their
// effects in deck order. Effects either resolve immediately, emit a
// planning restriction for the coming round, or install a child state.
type WesterosState struct {
	baseGameState
	ingame *IngameState

	drawnCards   []*WesterosCard
	currentCard  int
	restrictions []string

	// Clash of Kings bidding walks the three influence tracks in order.
	biddingTrack int

	musteringResolver *turnOrderResolver
	reconcileResolver *turnOrderResolver
}

func newWesterosState(ingame *IngameState) *WesterosState {
	w := &WesterosState{ingame: ingame, biddingTrack: -1}
	w.parent = ingame
	return w
}

func (w *WesterosState) Type() string { return StateWesteros }

func (w *WesterosState) FirstStart() {
	board := w.ingame.Board()
	w.drawnCards = make([]*WesterosCard, len(board.WesterosDecks))
	data := map[string]string{}
	wildlingDelta := 0
	for deck := range board.WesterosDecks {
		card := board.DrawWesterosCard(deck, w.ingame.rng)
		w.drawnCards[deck] = card
		if wt := w.ingame.Content().WesterosCardTypes[card.TypeID]; wt != nil {
			wildlingDelta += wt.WildlingStrength
		}
		data["deck"+strconv.Itoa(deck)] = card.TypeID
	}
	w.ingame.Broadcast(&ServerMessage{Type: MsgUpdateWesterosDecks, WesterosDecks: w.ingame.serializeWesterosDecksRedacted()})
	w.ingame.Log("westeros-cards-drawn", data, true)
	if wildlingDelta > 0 {
		w.ingame.ChangeWildlingStrength(wildlingDelta)
	}
	w.executeNextCard()
}

func (w *WesterosState) executeNextCard() {
	if w.currentCard >= len(w.drawnCards) {
		w.ingame.onWesterosPhaseFinished(w.restrictions)
		return
	}
	card := w.drawnCards[w.currentCard]
	w.currentCard++
	w.executeCard(card)
}

func (w *WesterosState) executeCard(card *WesterosCard) {
	board := w.ingame.Board()
	switch card.TypeID {
	case "supply":
		w.adjustSupplies()
		w.reconcileResolver = newTurnOrderResolver(board)
		w.proceedReconcile()
		return
	case "mustering":
		w.musteringResolver = newTurnOrderResolver(board)
		w.proceedMustering()
		return
	case "clash-of-kings":
		w.biddingTrack = 0
		w.beginTrackBidding()
		return
	case "game-of-thrones":
		for _, house := range board.SortedHouses() {
			gained := 0
			for _, region := range board.World.Regions {
				if board.Controller(region) == house {
					gained += region.CrownIcons
				}
			}
			if gained > 0 {
				w.ingame.ChangePowerTokens(house, gained)
			}
		}
	case "sea-of-storms":
		w.restrictions = append(w.restrictions, RestrictionNoRaid)
	case "rains-of-autumn":
		w.restrictions = append(w.restrictions, RestrictionNoMarchPlusOne)
	case "feast-for-crows":
		w.restrictions = append(w.restrictions, RestrictionNoConsolidatePower)
	case "wildling-attack":
		attack := newWildlingAttackState(w.ingame, w)
		w.SetChildGameState(attack)
		attack.FirstStart()
		return
	default:
		if wt := w.ingame.Content().WesterosCardTypes[card.TypeID]; wt != nil {
			// Remaining card types carry no structural effect beyond their
			// wildling icons, already applied at reveal.
			w.ingame.Log("westeros-card-resolved", map[string]string{"card": card.TypeID}, true)
		} else {
			westerosLogger.Warn().Str("card", card.TypeID).Msg("Unknown westeros card type")
		}
	}
	w.executeNextCard()
}

// adjustSupplies recomputes every house's supply from the supply icons it
// controls.
func (w *WesterosState) adjustSupplies() {
	board := w.ingame.Board()
	supplies := make([]HouseSupply, 0)
	for _, house := range board.SortedHouses() {
		level := clampSupply(board.ControlledSupplyIcons(house), len(board.SupplyRestrictions))
		house.SupplyLevel = level
		supplies = append(supplies, HouseSupply{HouseID: house.ID, Supply: level})
	}
	w.ingame.Broadcast(&ServerMessage{Type: MsgSupplyAdjusted, Supplies: supplies})
	w.ingame.Log("supply-adjusted", map[string]string{}, true)
}

func (w *WesterosState) proceedReconcile() {
	board := w.ingame.Board()
	house := w.reconcileResolver.next(func(h *House) bool {
		return board.HasTooMuchArmies(h, nil, nil)
	})
	if house == nil {
		w.SetChildGameState(nil)
		w.executeNextCard()
		return
	}
	w.reconcileResolver.markResolved(house)
	reconcile := newReconcileArmiesState(w.ingame, w)
	w.SetChildGameState(reconcile)
	reconcile.FirstStart(house.ID)
}

func (w *WesterosState) onReconcileFinished() {
	w.proceedReconcile()
}

func (w *WesterosState) proceedMustering() {
	board := w.ingame.Board()
	castleRegions := func(h *House) []string {
		regions := make([]string, 0)
		for _, region := range board.World.SortedRegions() {
			if region.CastleLevel > 0 && board.Controller(region) == h {
				regions = append(regions, region.ID)
			}
		}
		return regions
	}
	house := w.musteringResolver.next(func(h *House) bool {
		return len(castleRegions(h)) > 0
	})
	if house == nil {
		w.SetChildGameState(nil)
		if w.ingame.CheckVictory() {
			return
		}
		w.executeNextCard()
		return
	}
	w.musteringResolver.markResolved(house)
	mustering := newMusteringState(w.ingame, w)
	w.SetChildGameState(mustering)
	mustering.FirstStart(house, castleRegions(house), false)
}

func (w *WesterosState) onMusteringFinished() {
	w.proceedMustering()
}

func (w *WesterosState) beginTrackBidding() {
	houses := make([]string, 0)
	for _, h := range w.ingame.Board().SortedHouses() {
		houses = append(houses, h.ID)
	}
	bidding := newBiddingState(w.ingame, w)
	w.SetChildGameState(bidding)
	bidding.FirstStart(houses, "track-"+strconv.Itoa(w.biddingTrack))
}

// onBiddingFinished reorders the current influence track by the revealed
// bids; ties keep the current track precedence.
func (w *WesterosState) onBiddingFinished(bids map[string]int) {
	board := w.ingame.Board()
	var track []string
	switch w.biddingTrack {
	case 0:
		track = board.IronThroneTrack
	case 1:
		track = board.FiefdomsTrack
	case 2:
		track = board.KingsCourtTrack
	}
	reordered := append([]string(nil), track...)
	sort.SliceStable(reordered, func(a, b int) bool {
		return bids[reordered[a]] > bids[reordered[b]]
	})
	switch w.biddingTrack {
	case 0:
		board.IronThroneTrack = reordered
	case 1:
		board.FiefdomsTrack = reordered
	case 2:
		board.KingsCourtTrack = reordered
	}
	w.ingame.Broadcast(&ServerMessage{Type: MsgChangeTracker, TrackerI: w.biddingTrack, Tracker: reordered})
	w.ingame.Log("track-reordered", map[string]string{"track": strconv.Itoa(w.biddingTrack)}, true)

	w.biddingTrack++
	if w.biddingTrack < 3 {
		w.beginTrackBidding()
		return
	}
	w.biddingTrack = -1
	w.SetChildGameState(nil)
	w.executeNextCard()
}

type biddingParent interface {
	onBiddingFinished(bids map[string]int)
}

// BiddingState collects secret power-token bids from a set of houses and
// reveals them all at once. Bids are deducted on reveal.
type BiddingState struct {
	baseGameState
	ingame *IngameState

	purpose  string
	houseIDs []string
	bids     map[string]int
}

func newBiddingState(ingame *IngameState, parent GameState) *BiddingState {
	b := &BiddingState{ingame: ingame, bids: make(map[string]int)}
	b.parent = parent
	return b
}

func (b *BiddingState) Type() string { return StateBidding }

func (b *BiddingState) FirstStart(houseIDs []string, purpose string) {
	b.houseIDs = append([]string(nil), houseIDs...)
	sort.Strings(b.houseIDs)
	b.purpose = purpose
	// Houses with no tokens have nothing to decide.
	for _, houseID := range b.houseIDs {
		if house, err := b.ingame.Board().House(houseID); err == nil && house.PowerTokens == 0 {
			b.bids[houseID] = 0
		}
	}
	b.checkCompletion()
}

func (b *BiddingState) WaitedUsers() []string {
	users := make([]string, 0)
	seen := make(map[string]bool)
	for _, houseID := range b.houseIDs {
		if _, done := b.bids[houseID]; done {
			continue
		}
		house, err := b.ingame.Board().House(houseID)
		if err != nil {
			continue
		}
		controller, err := b.ingame.ControllerOfHouse(house)
		if err != nil || seen[controller.UserID] {
			continue
		}
		seen[controller.UserID] = true
		users = append(users, controller.UserID)
	}
	sort.Strings(users)
	return users
}

func (b *BiddingState) houseForPlayer(player *Player) string {
	for _, houseID := range b.houseIDs {
		if _, done := b.bids[houseID]; done {
			continue
		}
		house, err := b.ingame.Board().House(houseID)
		if err != nil {
			continue
		}
		controller, err := b.ingame.ControllerOfHouse(house)
		if err == nil && controller.UserID == player.UserID {
			return houseID
		}
	}
	return ""
}

func (b *BiddingState) OnPlayerMessage(player *Player, message *ClientMessage) {
	if message.Type != MsgBid {
		b.baseGameState.OnPlayerMessage(player, message)
		return
	}
	if message.Bid == nil {
		return
	}
	houseID := b.houseForPlayer(player)
	if houseID == "" {
		westerosLogger.Warn().Str(logging.UserIDKey, player.UserID).Msg("Dropping bid: no pending house for player")
		return
	}
	house, err := b.ingame.Board().House(houseID)
	if err != nil {
		return
	}
	bid := *message.Bid
	if bid < 0 || bid > house.PowerTokens {
		westerosLogger.Warn().
			Str(logging.HouseKey, houseID).
			Int("bid", bid).
			Msg("Dropping bid: out of range")
		return
	}
	b.bids[houseID] = bid
	b.checkCompletion()
}

// ActionAfterVassalReplacement bids zero on the departed player's behalf.
func (b *BiddingState) ActionAfterVassalReplacement(house *House) {
	for _, houseID := range b.houseIDs {
		if houseID != house.ID {
			continue
		}
		if _, done := b.bids[houseID]; !done {
			b.bids[houseID] = 0
		}
	}
	b.checkCompletion()
}

func (b *BiddingState) checkCompletion() {
	if len(b.bids) < len(b.houseIDs) {
		return
	}
	results := make(map[string]string, len(b.bids))
	for houseID, bid := range b.bids {
		results[houseID] = strconv.Itoa(bid)
	}
	for _, houseID := range b.houseIDs {
		house, err := b.ingame.Board().House(houseID)
		if err != nil {
			continue
		}
		if b.bids[houseID] > 0 {
			b.ingame.ChangePowerTokens(house, -b.bids[houseID])
		}
	}
	b.ingame.Broadcast(&ServerMessage{Type: MsgBidDone, Bids: b.bids})
	b.ingame.Log("bidding-done", results, false)
	b.parent.(biddingParent).onBiddingFinished(b.bids)
}

// ReconcileArmiesState makes one house destroy units until its armies fit
// its supply again.
type ReconcileArmiesState struct {
	baseGameState
	ingame   *IngameState
	westeros *WesterosState

	houseID string
}

func newReconcileArmiesState(ingame *IngameState, westeros *WesterosState) *ReconcileArmiesState {
	r := &ReconcileArmiesState{ingame: ingame, westeros: westeros}
	r.parent = westeros
	return r
}

func (r *ReconcileArmiesState) Type() string { return StateReconcileArmies }

func (r *ReconcileArmiesState) FirstStart(houseID string) {
	r.houseID = houseID
}

func (r *ReconcileArmiesState) WaitedUsers() []string {
	house, err := r.ingame.Board().House(r.houseID)
	if err != nil {
		return nil
	}
	controller, err := r.ingame.ControllerOfHouse(house)
	if err != nil {
		return nil
	}
	return []string{controller.UserID}
}

func (r *ReconcileArmiesState) OnPlayerMessage(player *Player, message *ClientMessage) {
	if message.Type != MsgSelectUnits {
		r.baseGameState.OnPlayerMessage(player, message)
		return
	}
	board := r.ingame.Board()
	house, err := board.House(r.houseID)
	if err != nil {
		return
	}
	controller, err := r.ingame.ControllerOfHouse(house)
	if err != nil || controller.UserID != player.UserID {
		westerosLogger.Warn().Str(logging.UserIDKey, player.UserID).Msg("Dropping reconcile: not the resolving player")
		return
	}

	removed := make(map[string][]int)
	for _, sel := range message.Units {
		region, err := board.World.Region(sel.RegionID)
		if err != nil {
			westerosLogger.Warn().Str(logging.RegionKey, sel.RegionID).Msg("Dropping reconcile: unknown region")
			return
		}
		for _, id := range sel.UnitIDs {
			u, ok := region.Units[id]
			if !ok || u.Allegiance != house.ID {
				westerosLogger.Warn().Int("unit", id).Msg("Dropping reconcile: invalid unit")
				return
			}
			removed[sel.RegionID] = append(removed[sel.RegionID], id)
		}
	}
	if board.HasTooMuchArmies(house, nil, removed) {
		westerosLogger.Warn().Str(logging.HouseKey, house.ID).Msg("Dropping reconcile: selection does not fit supply")
		return
	}
	r.execute(house, removed, false)
}

func (r *ReconcileArmiesState) execute(house *House, removed map[string][]int, resolvedAutomatically bool) {
	board := r.ingame.Board()
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
		}
		r.ingame.Broadcast(&ServerMessage{Type: MsgRemoveUnits, RegionID: regionID, UnitIDs: ids})
	}
	r.ingame.Log("armies-reconciled", map[string]string{"house": house.ID}, resolvedAutomatically)
	r.westeros.onReconcileFinished()
}

// ActionAfterVassalReplacement reconciles greedily: weakest units of the
// largest armies die first until the supply fits.
func (r *ReconcileArmiesState) ActionAfterVassalReplacement(house *House) {
	if house.ID != r.houseID {
		return
	}
	board := r.ingame.Board()
	removed := make(map[string][]int)
	for board.HasTooMuchArmies(house, nil, removed) {
		// Largest remaining army of the house.
		var largest *Region
		largestSize := 0
		for _, region := range board.World.SortedRegions() {
			size := 0
			for _, u := range region.Units {
				if u.Allegiance != house.ID {
					continue
				}
				alreadyRemoved := false
				for _, id := range removed[region.ID] {
					if id == u.ID {
						alreadyRemoved = true
					}
				}
				if !alreadyRemoved {
					size++
				}
			}
			if size > largestSize {
				largestSize = size
				largest = region
			}
		}
		if largest == nil {
			break
		}
		weakest := 0
		weakestStrength := 1 << 30
		for _, u := range largest.SortedUnits() {
			if u.Allegiance != house.ID {
				continue
			}
			skip := false
			for _, id := range removed[largest.ID] {
				if id == u.ID {
					skip = true
				}
			}
			if skip {
				continue
			}
			ut := board.UnitType(u.TypeID)
			if ut != nil && ut.CombatStrength < weakestStrength {
				weakestStrength = ut.CombatStrength
				weakest = u.ID
			}
		}
		if weakest == 0 {
			break
		}
		removed[largest.ID] = append(removed[largest.ID], weakest)
	}
	r.execute(house, removed, true)
}

type musteringParent interface {
	onMusteringFinished()
}

// MusteringState lets one house recruit new units in a set of castle
// regions. Each castle grants muster points equal to its level; naval units
// deploy into an adjacent sea region.
type MusteringState struct {
	baseGameState
	ingame *IngameState

	houseID string
	// regionIDs are the castles the house may muster from. fromOrder marks
	// a starred consolidate-power mustering, where resolving removes the
	// orders.
	regionIDs []string
	fromOrder bool
}

func newMusteringState(ingame *IngameState, parent GameState) *MusteringState {
	m := &MusteringState{ingame: ingame}
	m.parent = parent
	return m
}

func (m *MusteringState) Type() string { return StateMustering }

func (m *MusteringState) FirstStart(house *House, regionIDs []string, fromOrder bool) {
	m.houseID = house.ID
	m.regionIDs = append([]string(nil), regionIDs...)
	sort.Strings(m.regionIDs)
	m.fromOrder = fromOrder
}

func (m *MusteringState) WaitedUsers() []string {
	house, err := m.ingame.Board().House(m.houseID)
	if err != nil {
		return nil
	}
	controller, err := m.ingame.ControllerOfHouse(house)
	if err != nil {
		return nil
	}
	return []string{controller.UserID}
}

func musterCost(ut *UnitType) int {
	switch ut.ID {
	case "knight", "siege-engine":
		return 2
	}
	return 1
}

// sourceCastleFor maps a muster target region to the castle paying for it:
// the castle itself for land units, an adjacent castle for sea regions.
func (m *MusteringState) sourceCastleFor(target *Region) string {
	board := m.ingame.Board()
	for _, castleID := range m.regionIDs {
		if castleID == target.ID {
			return castleID
		}
	}
	if target.Kind == RegionSea {
		for _, adjacent := range board.World.AdjacentRegions(target.ID) {
			for _, castleID := range m.regionIDs {
				if castleID == adjacent.ID {
					return castleID
				}
			}
		}
	}
	return ""
}

func (m *MusteringState) OnPlayerMessage(player *Player, message *ClientMessage) {
	if message.Type != MsgMuster {
		m.baseGameState.OnPlayerMessage(player, message)
		return
	}
	board := m.ingame.Board()
	house, err := board.House(m.houseID)
	if err != nil {
		return
	}
	controller, err := m.ingame.ControllerOfHouse(house)
	if err != nil || controller.UserID != player.UserID {
		westerosLogger.Warn().Str(logging.UserIDKey, player.UserID).Msg("Dropping muster: not the resolving player")
		return
	}

	pointsUsed := make(map[string]int)
	added := make(map[string][]string)
	for _, mu := range message.Musterings {
		target, err := board.World.Region(mu.RegionID)
		if err != nil {
			westerosLogger.Warn().Str(logging.RegionKey, mu.RegionID).Msg("Dropping muster: unknown region")
			return
		}
		if existing := board.Controller(target); existing != nil && existing != house {
			westerosLogger.Warn().Str(logging.RegionKey, target.ID).Msg("Dropping muster: region not available")
			return
		}
		castleID := m.sourceCastleFor(target)
		if castleID == "" {
			westerosLogger.Warn().Str(logging.RegionKey, target.ID).Msg("Dropping muster: no castle reaches region")
			return
		}
		for _, typeID := range mu.UnitTypes {
			ut := board.UnitType(typeID)
			if ut == nil || !ut.CanEnter(target.Kind) {
				westerosLogger.Warn().Str("unitType", typeID).Msg("Dropping muster: unit cannot stand there")
				return
			}
			pointsUsed[castleID] += musterCost(ut)
			added[target.ID] = append(added[target.ID], typeID)
		}
	}
	for castleID, used := range pointsUsed {
		castle, err := board.World.Region(castleID)
		if err != nil || used > castle.CastleLevel {
			westerosLogger.Warn().Str(logging.RegionKey, castleID).Msg("Dropping muster: castle points exceeded")
			return
		}
	}
	if board.HasTooMuchArmies(house, added, nil) {
		westerosLogger.Warn().Str(logging.HouseKey, house.ID).Msg("Dropping muster: would exceed supply")
		return
	}

	for _, regionID := range sortedKeys(added) {
		region, err := board.World.Region(regionID)
		if err != nil {
			continue
		}
		units := make([]SerializedUnit, 0, len(added[regionID]))
		for _, typeID := range added[regionID] {
			u := board.CreateUnit(region, typeID, house)
			units = append(units, u.serialize())
		}
		m.ingame.Broadcast(&ServerMessage{Type: MsgAddUnits, RegionID: regionID, Units: units})
	}
	m.finish(house, false)
}

func (m *MusteringState) finish(house *House, resolvedAutomatically bool) {
	if m.fromOrder {
		for _, castleID := range m.regionIDs {
			if order := m.ingame.OrderInRegion(castleID); order != nil && order.Kind == OrderConsolidatePower {
				m.ingame.RemoveOrder(castleID)
			}
		}
	}
	m.ingame.Log("mustering-resolved", map[string]string{"house": house.ID}, resolvedAutomatically)
	if m.ingame.CheckVictory() {
		return
	}
	m.parent.(musteringParent).onMusteringFinished()
}

// ActionAfterVassalReplacement skips the muster entirely.
func (m *MusteringState) ActionAfterVassalReplacement(house *House) {
	if house.ID != m.houseID {
		return
	}
	m.finish(house, true)
}

// WildlingAttackState runs a wildling attack: every house bids secretly,
// then the night's watch either holds (threat resets to zero) or breaks
// (threat drops by two and the lowest bidder is punished). Bid ties break
// by iron throne order.
type WildlingAttackState struct {
	baseGameState
	ingame   *IngameState
	westeros *WesterosState
}

func newWildlingAttackState(ingame *IngameState, westeros *WesterosState) *WildlingAttackState {
	a := &WildlingAttackState{ingame: ingame, westeros: westeros}
	a.parent = westeros
	return a
}

func (a *WildlingAttackState) Type() string { return StateWildlingAttack }

func (a *WildlingAttackState) FirstStart() {
	houses := make([]string, 0)
	for _, h := range a.ingame.Board().SortedHouses() {
		houses = append(houses, h.ID)
	}
	a.ingame.Log("wildling-attack-began", map[string]string{
		"strength": strconv.Itoa(a.ingame.Board().WildlingStrength),
	}, true)
	bidding := newBiddingState(a.ingame, a)
	a.SetChildGameState(bidding)
	bidding.FirstStart(houses, "wildling-attack")
}

func (a *WildlingAttackState) onBiddingFinished(bids map[string]int) {
	board := a.ingame.Board()
	total := 0
	for _, bid := range bids {
		total += bid
	}
	nightsWatchWins := total >= board.WildlingStrength

	// Highest and lowest bidders, ties broken by iron throne order.
	highest, lowest := "", ""
	for _, houseID := range board.IronThroneTrack {
		bid, ok := bids[houseID]
		if !ok {
			continue
		}
		if highest == "" || bid > bids[highest] {
			highest = houseID
		}
		if lowest == "" || bid < bids[lowest] {
			lowest = houseID
		}
	}

	card := board.TopWildlingCard()
	cardTypeID := ""
	if card != nil {
		cardTypeID = card.TypeID
		a.ingame.Broadcast(&ServerMessage{Type: MsgRevealTopWildlingCard, WildlingCardID: card.ID})
	}

	if nightsWatchWins {
		board.WildlingStrength = 0
		a.ingame.Broadcast(&ServerMessage{Type: MsgChangeWildlingStrength, WildlingStrength: 0})
	} else {
		a.ingame.ChangeWildlingStrength(-2)
		if lowest != "" {
			if house, err := board.House(lowest); err == nil {
				a.ingame.ChangePowerTokens(house, -2)
			}
		}
	}

	board.BuryWildlingCard()
	a.ingame.Broadcast(&ServerMessage{Type: MsgHideTopWildlingCard})

	if nightsWatchWins && highest != "" {
		// The top bidder is rewarded with foreknowledge of the next card,
		// after the resolved one has been buried.
		if house, err := board.House(highest); err == nil {
			house.KnowsNextWildlingCard = true
			a.ingame.Broadcast(&ServerMessage{Type: MsgKnowsNextWildlingCard, HouseID: house.ID})
		}
	}

	a.ingame.Log("wildling-attack-resolved", map[string]string{
		"card":    cardTypeID,
		"total":   strconv.Itoa(total),
		"victory": strconv.FormatBool(nightsWatchWins),
		"highest": highest,
		"lowest":  lowest,
	}, true)
	a.westeros.SetChildGameState(nil)
	a.westeros.executeNextCard()
}

func sortedKeys(m map[string][]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
