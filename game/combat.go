package game

import (
	"sort"
	"strconv"

	"github.com/rs/zerolog/log"

	"thronegate.com/server/logging"
)

var combatLogger = log.With().Str("logger_name", "game::combat").Logger()

const (
	StateCombat          = "combat"
	StateChooseHouseCard = "choose-house-card"
	StatePostCombat      = "post-combat"
)

// CombatState resolves a fight triggered by a march move. Both houses pick
// a house card, then PostCombat applies the outcome: casualties, retreat
// and occupation.
type CombatState struct {
	baseGameState
	ingame *IngameState
	march  *ResolveMarchState

	attackerID string
	defenderID string
	fromID     string
	regionID   string

	attackingUnitIDs []int
	marchBonus       int

	attackerCardID string
	defenderCardID string
}

func newCombatState(ingame *IngameState, march *ResolveMarchState) *CombatState {
	c := &CombatState{ingame: ingame, march: march}
	c.parent = march
	return c
}

func (c *CombatState) Type() string { return StateCombat }

func (c *CombatState) FirstStart(attackerID, defenderID, fromID, regionID string, unitIDs []int, marchBonus int) {
	c.attackerID = attackerID
	c.defenderID = defenderID
	c.fromID = fromID
	c.regionID = regionID
	c.attackingUnitIDs = append([]int(nil), unitIDs...)
	sort.Ints(c.attackingUnitIDs)
	c.marchBonus = marchBonus

	c.ingame.Log("combat-began", map[string]string{
		"attacker": attackerID,
		"defender": defenderID,
		"region":   regionID,
	}, true)

	choose := newChooseHouseCardState(c.ingame, c)
	c.SetChildGameState(choose)
	choose.FirstStart()
}

func (c *CombatState) IsParticipant(houseID string) bool {
	return houseID == c.attackerID || houseID == c.defenderID
}

// OpponentOf returns the other combatant's house id, or "" for a
// non-participant.
func (c *CombatState) OpponentOf(houseID string) string {
	switch houseID {
	case c.attackerID:
		return c.defenderID
	case c.defenderID:
		return c.attackerID
	}
	return ""
}

func (c *CombatState) attackingUnits() []*Unit {
	region, err := c.ingame.Board().World.Region(c.fromID)
	if err != nil {
		return nil
	}
	units := make([]*Unit, 0, len(c.attackingUnitIDs))
	for _, id := range c.attackingUnitIDs {
		if u, ok := region.Units[id]; ok {
			units = append(units, u)
		}
	}
	return units
}

// supportStrength sums the adjacent support orders a combatant grants
// itself. Third-party supporters are not solicited.
func (c *CombatState) supportStrength(house *House) int {
	board := c.ingame.Board()
	strength := 0
	for _, region := range board.World.AdjacentRegions(c.regionID) {
		order := c.ingame.OrderInRegion(region.ID)
		if order == nil || order.Kind != OrderSupport {
			continue
		}
		if board.Controller(region) != house {
			continue
		}
		strength += board.CombatStrengthOfArmy(region.SortedUnits(), false) + order.Strength
	}
	return strength
}

// AttackerStrength is the attacking army plus march-order modifier, support
// and the chosen house card.
func (c *CombatState) AttackerStrength() int {
	board := c.ingame.Board()
	embattled, err := board.World.Region(c.regionID)
	if err != nil {
		return 0
	}
	attacker, err := board.House(c.attackerID)
	if err != nil {
		return 0
	}
	strength := board.CombatStrengthOfArmy(c.attackingUnits(), embattled.CastleLevel > 0)
	strength += c.marchBonus
	strength += c.supportStrength(attacker)
	if card := c.cardOf(attacker, c.attackerCardID); card != nil {
		strength += card.CombatStrength
	}
	return strength
}

// DefenderStrength is the defending army plus garrison, defense order,
// support and the chosen house card.
func (c *CombatState) DefenderStrength() int {
	board := c.ingame.Board()
	embattled, err := board.World.Region(c.regionID)
	if err != nil {
		return 0
	}
	defender, err := board.House(c.defenderID)
	if err != nil {
		return 0
	}
	strength := board.CombatStrengthOfArmy(embattled.SortedUnits(), false)
	strength += embattled.Garrison
	if order := c.ingame.OrderInRegion(embattled.ID); order != nil && order.Kind == OrderDefense {
		strength += order.Strength
	}
	strength += c.supportStrength(defender)
	if card := c.cardOf(defender, c.defenderCardID); card != nil {
		strength += card.CombatStrength
	}
	return strength
}

func (c *CombatState) cardOf(house *House, cardID string) *HouseCard {
	if cardID == "" {
		return nil
	}
	return house.HouseCards[cardID]
}

// onHouseCardsChosen fires once both cards are in. Ties break on the
// fiefdoms track.
func (c *CombatState) onHouseCardsChosen(attackerCardID, defenderCardID string) {
	c.attackerCardID = attackerCardID
	c.defenderCardID = defenderCardID

	attackerStrength := c.AttackerStrength()
	defenderStrength := c.DefenderStrength()
	winnerID := c.defenderID
	if attackerStrength > defenderStrength {
		winnerID = c.attackerID
	} else if attackerStrength == defenderStrength {
		for _, houseID := range c.ingame.Board().FiefdomsTrack {
			if houseID == c.attackerID {
				winnerID = c.attackerID
				break
			}
			if houseID == c.defenderID {
				break
			}
		}
	}
	c.ingame.Log("combat-result", map[string]string{
		"attacker":         c.attackerID,
		"defender":         c.defenderID,
		"winner":           winnerID,
		"attackerStrength": strconv.Itoa(attackerStrength),
		"defenderStrength": strconv.Itoa(defenderStrength),
	}, true)

	post := newPostCombatState(c.ingame, c)
	c.SetChildGameState(post)
	post.FirstStart(winnerID)
}

func (c *CombatState) onCombatFinished() {
	c.march.onCombatFinished()
}

// ChooseHouseCardState collects both combatants' secret card picks. A house
// with a single available card has it selected automatically; when both
// sides auto-select, the combined reveal and log still fire exactly once.
type ChooseHouseCardState struct {
	baseGameState
	ingame *IngameState
	combat *CombatState

	chosen   map[string]string
	autoFlag map[string]bool
	finished bool
}

func newChooseHouseCardState(ingame *IngameState, combat *CombatState) *ChooseHouseCardState {
	s := &ChooseHouseCardState{
		ingame:   ingame,
		combat:   combat,
		chosen:   make(map[string]string),
		autoFlag: make(map[string]bool),
	}
	s.parent = combat
	return s
}

func (s *ChooseHouseCardState) Type() string { return StateChooseHouseCard }

func (s *ChooseHouseCardState) FirstStart() {
	for _, houseID := range []string{s.combat.attackerID, s.combat.defenderID} {
		house, err := s.ingame.Board().House(houseID)
		if err != nil {
			combatLogger.Error().Err(err).Str(logging.HouseKey, houseID).Msg("Combatant has no house")
			continue
		}
		available := house.AvailableHouseCards()
		if len(available) == 0 {
			// Played the whole hand: every card returns.
			s.refreshHand(house)
			available = house.AvailableHouseCards()
		}
		if len(available) == 1 {
			s.chosen[houseID] = available[0].ID
			s.autoFlag[houseID] = true
		}
	}
	s.checkCompletion()
}

func (s *ChooseHouseCardState) refreshHand(house *House) {
	cards := make([]SerializedHouseCard, 0, len(house.HouseCards))
	for _, hc := range house.SortedHouseCards() {
		hc.State = HouseCardAvailable
		cards = append(cards, SerializedHouseCard{ID: hc.ID, State: int(HouseCardAvailable)})
	}
	s.ingame.Broadcast(&ServerMessage{Type: MsgUpdateHouseCards, HouseID: house.ID, HouseCards: cards})
}

func (s *ChooseHouseCardState) WaitedUsers() []string {
	users := make([]string, 0, 2)
	for _, houseID := range []string{s.combat.attackerID, s.combat.defenderID} {
		if _, done := s.chosen[houseID]; done {
			continue
		}
		house, err := s.ingame.Board().House(houseID)
		if err != nil {
			continue
		}
		controller, err := s.ingame.ControllerOfHouse(house)
		if err != nil {
			continue
		}
		users = append(users, controller.UserID)
	}
	sort.Strings(users)
	return users
}

func (s *ChooseHouseCardState) OnPlayerMessage(player *Player, message *ClientMessage) {
	if message.Type != MsgChooseHouseCard {
		s.baseGameState.OnPlayerMessage(player, message)
		return
	}
	houseID := player.HouseID
	if !s.combat.IsParticipant(houseID) {
		// Commanders choose for their vassal combatants.
		houseID = ""
		for _, candidateID := range []string{s.combat.attackerID, s.combat.defenderID} {
			house, err := s.ingame.Board().House(candidateID)
			if err != nil {
				continue
			}
			controller, err := s.ingame.ControllerOfHouse(house)
			if err == nil && controller.UserID == player.UserID {
				houseID = candidateID
				break
			}
		}
		if houseID == "" {
			combatLogger.Warn().Str(logging.UserIDKey, player.UserID).Msg("Dropping card choice: not a combatant")
			return
		}
	}
	if _, done := s.chosen[houseID]; done {
		combatLogger.Warn().Str(logging.HouseKey, houseID).Msg("Dropping card choice: already chosen")
		return
	}
	house, err := s.ingame.Board().House(houseID)
	if err != nil {
		return
	}
	card, ok := house.HouseCards[message.HouseCardID]
	if !ok || card.State != HouseCardAvailable {
		combatLogger.Warn().
			Str(logging.HouseKey, houseID).
			Str("card", message.HouseCardID).
			Msg("Dropping card choice: card not available")
		return
	}
	s.chosen[houseID] = card.ID
	s.checkCompletion()
}

// ActionAfterVassalReplacement auto-picks the strongest available card for
// a combatant whose player departed mid-choice.
func (s *ChooseHouseCardState) ActionAfterVassalReplacement(house *House) {
	if !s.combat.IsParticipant(house.ID) {
		return
	}
	if _, done := s.chosen[house.ID]; done {
		return
	}
	available := house.AvailableHouseCards()
	if len(available) == 0 {
		s.refreshHand(house)
		available = house.AvailableHouseCards()
	}
	best := available[0]
	for _, hc := range available {
		if hc.CombatStrength > best.CombatStrength {
			best = hc
		}
	}
	s.chosen[house.ID] = best.ID
	s.autoFlag[house.ID] = true
	s.checkCompletion()
}

// checkCompletion reveals both cards at once. The guard keeps the combined
// broadcast and log from firing twice when both houses auto-select in the
// same FirstStart.
func (s *ChooseHouseCardState) checkCompletion() {
	if s.finished {
		return
	}
	attackerCard, aDone := s.chosen[s.combat.attackerID]
	defenderCard, dDone := s.chosen[s.combat.defenderID]
	if !aDone || !dDone {
		return
	}
	s.finished = true
	picks := []HouseCardPick{
		{HouseID: s.combat.attackerID, HouseCardID: attackerCard},
		{HouseID: s.combat.defenderID, HouseCardID: defenderCard},
	}
	s.ingame.Broadcast(&ServerMessage{Type: MsgHouseCardChosen, HouseCardPicks: picks})
	s.ingame.Log("combat-cards-chosen", map[string]string{
		"attacker":     s.combat.attackerID,
		"attackerCard": attackerCard,
		"defender":     s.combat.defenderID,
		"defenderCard": defenderCard,
	}, s.autoFlag[s.combat.attackerID] && s.autoFlag[s.combat.defenderID])
	s.combat.onHouseCardsChosen(attackerCard, defenderCard)
}

// PostCombatState applies the outcome: card usage, loser casualties, the
// loser's retreat and the winner's occupation.
type PostCombatState struct {
	baseGameState
	ingame *IngameState
	combat *CombatState

	winnerID   string
	loserID    string
	casualties int

	casualtiesResolved bool
}

func newPostCombatState(ingame *IngameState, combat *CombatState) *PostCombatState {
	p := &PostCombatState{ingame: ingame, combat: combat}
	p.parent = combat
	return p
}

func (p *PostCombatState) Type() string { return StatePostCombat }

func (p *PostCombatState) FirstStart(winnerID string) {
	p.winnerID = winnerID
	p.loserID = p.combat.OpponentOf(winnerID)

	p.markCardsUsed()
	p.casualties = p.computeCasualties()

	if p.casualties > 0 {
		regionID := p.loserRegionID()
		region, err := p.ingame.Board().World.Region(regionID)
		if err == nil && len(region.Units) > 0 {
			if p.casualties > len(p.loserUnitIDs()) {
				p.casualties = len(p.loserUnitIDs())
			}
			selectUnits := newSelectUnitsState(p.ingame, p)
			p.SetChildGameState(selectUnits)
			selectUnits.FirstStart(p.loserID, regionID, p.casualties)
			return
		}
	}
	p.afterCasualties()
}

func (p *PostCombatState) markCardsUsed() {
	for _, pick := range []struct {
		houseID string
		cardID  string
	}{
		{p.combat.attackerID, p.combat.attackerCardID},
		{p.combat.defenderID, p.combat.defenderCardID},
	} {
		house, err := p.ingame.Board().House(pick.houseID)
		if err != nil {
			continue
		}
		if hc, ok := house.HouseCards[pick.cardID]; ok {
			hc.State = HouseCardUsed
			p.ingame.Broadcast(&ServerMessage{
				Type:       MsgUpdateHouseCards,
				HouseID:    house.ID,
				HouseCards: []SerializedHouseCard{{ID: hc.ID, State: int(HouseCardUsed)}},
			})
		}
	}
}

// computeCasualties is winner's swords minus loser's towers, never
// negative.
func (p *PostCombatState) computeCasualties() int {
	board := p.ingame.Board()
	winner, err := board.House(p.winnerID)
	if err != nil {
		return 0
	}
	loser, err := board.House(p.loserID)
	if err != nil {
		return 0
	}
	winnerCard := p.cardPlayedBy(winner)
	loserCard := p.cardPlayedBy(loser)
	swords, towers := 0, 0
	if winnerCard != nil {
		swords = winnerCard.Swords
	}
	if loserCard != nil {
		towers = loserCard.Towers
	}
	casualties := swords - towers
	if casualties < 0 {
		return 0
	}
	return casualties
}

func (p *PostCombatState) cardPlayedBy(house *House) *HouseCard {
	cardID := p.combat.attackerCardID
	if house.ID == p.combat.defenderID {
		cardID = p.combat.defenderCardID
	}
	return house.HouseCards[cardID]
}

// loserRegionID is where the loser's army stands: the embattled region for
// a losing defender, the origin for a losing attacker.
func (p *PostCombatState) loserRegionID() string {
	if p.loserID == p.combat.defenderID {
		return p.combat.regionID
	}
	return p.combat.fromID
}

func (p *PostCombatState) loserUnitIDs() []int {
	if p.loserID == p.combat.attackerID {
		return p.combat.attackingUnitIDs
	}
	region, err := p.ingame.Board().World.Region(p.combat.regionID)
	if err != nil {
		return nil
	}
	ids := make([]int, 0, len(region.Units))
	for _, u := range region.SortedUnits() {
		ids = append(ids, u.ID)
	}
	return ids
}

// onUnitsSelected destroys the chosen casualties.
func (p *PostCombatState) onUnitsSelected(unitIDs []int, resolvedAutomatically bool) {
	p.SetChildGameState(nil)
	regionID := p.loserRegionID()
	region, err := p.ingame.Board().World.Region(regionID)
	if err == nil {
		sort.Ints(unitIDs)
		for _, id := range unitIDs {
			delete(region.Units, id)
		}
		p.ingame.Broadcast(&ServerMessage{Type: MsgRemoveUnits, RegionID: regionID, UnitIDs: unitIDs})
		p.ingame.Log("combat-casualties", map[string]string{
			"house":  p.loserID,
			"region": regionID,
			"count":  strconv.Itoa(len(unitIDs)),
		}, resolvedAutomatically)
	}
	p.afterCasualties()
}

func (p *PostCombatState) afterCasualties() {
	p.casualtiesResolved = true
	if p.winnerID == p.combat.attackerID {
		// The beaten defenders retreat before the attackers move in.
		embattled, err := p.ingame.Board().World.Region(p.combat.regionID)
		if err == nil && len(embattled.Units) > 0 {
			ids := make([]int, 0, len(embattled.Units))
			for _, u := range embattled.SortedUnits() {
				ids = append(ids, u.ID)
			}
			retreat := newResolveRetreatState(p.ingame, p)
			p.SetChildGameState(retreat)
			retreat.FirstStart(p.loserID, p.combat.regionID, ids)
			return
		}
	}
	p.onRetreatFinished()
}

// onRetreatFinished runs the final occupation step and hands control back
// to the march resolver.
func (p *PostCombatState) onRetreatFinished() {
	p.SetChildGameState(nil)
	board := p.ingame.Board()

	p.clearVassalizedHands()

	if p.winnerID == p.combat.attackerID {
		embattled, err := board.World.Region(p.combat.regionID)
		from, errFrom := board.World.Region(p.combat.fromID)
		if err == nil && errFrom == nil {
			if p.ingame.OrderInRegion(embattled.ID) != nil {
				p.ingame.RemoveOrder(embattled.ID)
			}
			if embattled.Garrison > 0 {
				embattled.Garrison = 0
				p.ingame.Broadcast(&ServerMessage{Type: MsgChangeGarrison, RegionID: embattled.ID, Garrison: 0})
			}
			if embattled.ControlPowerToken != "" {
				embattled.ControlPowerToken = ""
				p.ingame.Broadcast(&ServerMessage{Type: MsgChangeControlPowerToken, RegionID: embattled.ID, HouseID: ""})
			}
			moved := make([]int, 0, len(p.combat.attackingUnitIDs))
			for _, id := range p.combat.attackingUnitIDs {
				if u, ok := from.Units[id]; ok {
					delete(from.Units, id)
					embattled.Units[id] = u
					moved = append(moved, id)
				}
			}
			if len(moved) > 0 {
				p.ingame.Broadcast(&ServerMessage{Type: MsgMoveUnits, FromID: from.ID, ToID: embattled.ID, UnitIDs: moved})
			}
		}
	} else {
		// A beaten attack stays home wounded for the rest of the round.
		from, err := board.World.Region(p.combat.fromID)
		if err == nil {
			wounded := make([]int, 0)
			for _, id := range p.combat.attackingUnitIDs {
				if u, ok := from.Units[id]; ok {
					u.Wounded = true
					wounded = append(wounded, id)
				}
			}
			if len(wounded) > 0 {
				p.ingame.Broadcast(&ServerMessage{Type: MsgUnitsWounded, RegionID: from.ID, UnitIDs: wounded})
			}
		}
	}

	p.ingame.Log("combat-finished", map[string]string{
		"winner": p.winnerID,
		"loser":  p.loserID,
		"region": p.combat.regionID,
	}, true)
	p.combat.onCombatFinished()
}

// clearVassalizedHands finishes the deferred hand clearing for combatants
// vassalized mid-combat.
func (p *PostCombatState) clearVassalizedHands() {
	for _, houseID := range []string{p.combat.attackerID, p.combat.defenderID} {
		house, err := p.ingame.Board().House(houseID)
		if err != nil || !house.HasBeenReplacedByVassal || len(house.HouseCards) == 0 {
			continue
		}
		house.HouseCards = make(map[string]*HouseCard)
		p.ingame.Broadcast(&ServerMessage{Type: MsgUpdateHouseCards, HouseID: house.ID, HouseCards: []SerializedHouseCard{}})
	}
}
