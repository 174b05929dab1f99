package game

import (
	"github.com/rs/zerolog/log"

	"thronegate.com/server/logging"
)

var ravenLogger = log.With().Str("logger_name", "game::raven").Logger()

const (
	StateRaven              = "raven"
	StateSeeTopWildlingCard = "see-top-wildling-card"
)

type ravenParent interface {
	onRavenFinished()
}

// RavenState gives the holder of the messenger raven (first on the king's
// court track) one of three choices: swap one of their revealed orders,
// peek at the top wildling card, or pass. A vassal-held raven resolves as
// a pass.
type RavenState struct {
	baseGameState
	ingame *IngameState
	action *ActionState
}

func newRavenState(ingame *IngameState, action *ActionState) *RavenState {
	r := &RavenState{ingame: ingame, action: action}
	r.parent = action
	return r
}

func (r *RavenState) Type() string { return StateRaven }

func (r *RavenState) holderHouseID() string {
	track := r.ingame.Board().KingsCourtTrack
	if len(track) == 0 {
		return ""
	}
	return track[0]
}

func (r *RavenState) FirstStart() {
	houseID := r.holderHouseID()
	house, err := r.ingame.Board().House(houseID)
	if err != nil || r.ingame.IsVassalHouse(house) {
		r.finish(true)
		return
	}
}

func (r *RavenState) WaitedUsers() []string {
	house, err := r.ingame.Board().House(r.holderHouseID())
	if err != nil {
		return nil
	}
	controller, err := r.ingame.ControllerOfHouse(house)
	if err != nil {
		return nil
	}
	return []string{controller.UserID}
}

func (r *RavenState) isHolder(player *Player) bool {
	house, err := r.ingame.Board().House(r.holderHouseID())
	if err != nil {
		return false
	}
	controller, err := r.ingame.ControllerOfHouse(house)
	return err == nil && controller.UserID == player.UserID
}

func (r *RavenState) OnPlayerMessage(player *Player, message *ClientMessage) {
	switch message.Type {
	case MsgReplaceOrder, MsgSkipReplaceOrder, MsgChooseTopWildlingCardUsage:
	default:
		r.baseGameState.OnPlayerMessage(player, message)
		return
	}
	if !r.isHolder(player) {
		ravenLogger.Warn().Str(logging.UserIDKey, player.UserID).Msg("Dropping raven action: not the raven holder")
		return
	}
	switch message.Type {
	case MsgSkipReplaceOrder:
		r.finish(false)
	case MsgReplaceOrder:
		r.replaceOrder(message.RegionID, message.OrderTypeID)
	case MsgChooseTopWildlingCardUsage:
		if message.Action != "see" {
			ravenLogger.Warn().Str("action", message.Action).Msg("Dropping raven action: unexpected wildling card action")
			return
		}
		see := newSeeTopWildlingCardState(r.ingame, r)
		r.SetChildGameState(see)
		see.FirstStart(r.holderHouseID())
	}
}

func (r *RavenState) replaceOrder(regionID, orderTypeID string) {
	board := r.ingame.Board()
	house, err := board.House(r.holderHouseID())
	if err != nil {
		return
	}
	region, err := board.World.Region(regionID)
	if err != nil {
		ravenLogger.Warn().Str(logging.RegionKey, regionID).Msg("Dropping raven swap: unknown region")
		return
	}
	if board.Controller(region) != house || r.ingame.OrderInRegion(regionID) == nil {
		ravenLogger.Warn().Str(logging.RegionKey, regionID).Msg("Dropping raven swap: no own order there")
		return
	}
	orderType := r.ingame.Content().OrderTypes[orderTypeID]
	if orderType == nil {
		ravenLogger.Warn().Str("orderType", orderTypeID).Msg("Dropping raven swap: unknown order type")
		return
	}
	if orderRestricted(r.ingame.planningRestrictions, orderType) {
		ravenLogger.Warn().Str("orderType", orderTypeID).Msg("Dropping raven swap: order type restricted this round")
		return
	}
	for otherRegion, otherTypeID := range r.ingame.OrdersOnBoard() {
		if otherRegion == regionID {
			continue
		}
		if otherTypeID == orderTypeID && orderType.Starred {
			ravenLogger.Warn().Str("orderType", orderTypeID).Msg("Dropping raven swap: starred order already on the board")
			return
		}
	}
	r.ingame.ChangeOrder(regionID, orderTypeID)
	r.ingame.Log("raven-order-replaced", map[string]string{
		"house":  house.ID,
		"region": regionID,
		"order":  orderTypeID,
	}, false)
	r.finish(false)
}

func (r *RavenState) finish(resolvedAutomatically bool) {
	if resolvedAutomatically {
		r.ingame.Log("raven-skipped", map[string]string{"house": r.holderHouseID()}, true)
	}
	r.action.onRavenFinished()
}

// ActionAfterVassalReplacement passes on the departed holder's behalf.
func (r *RavenState) ActionAfterVassalReplacement(house *House) {
	if house.ID != r.holderHouseID() {
		return
	}
	r.finish(true)
}

// SeeTopWildlingCardState shows the raven holder the top wildling card and
// lets them leave it on top or bury it.
type SeeTopWildlingCardState struct {
	baseGameState
	ingame *IngameState
	raven  *RavenState

	houseID string
	cardID  int
}

func newSeeTopWildlingCardState(ingame *IngameState, raven *RavenState) *SeeTopWildlingCardState {
	s := &SeeTopWildlingCardState{ingame: ingame, raven: raven}
	s.parent = raven
	return s
}

func (s *SeeTopWildlingCardState) Type() string { return StateSeeTopWildlingCard }

func (s *SeeTopWildlingCardState) FirstStart(houseID string) {
	s.houseID = houseID
	card := s.ingame.Board().TopWildlingCard()
	if card == nil {
		s.raven.SetChildGameState(nil)
		s.raven.finish(true)
		return
	}
	s.cardID = card.ID
	if house, err := s.ingame.Board().House(houseID); err == nil {
		if controller, err := s.ingame.ControllerOfHouse(house); err == nil {
			s.ingame.SendToPlayer(controller.UserID, &ServerMessage{Type: MsgRevealTopWildlingCard, WildlingCardID: card.ID})
		}
	}
}

func (s *SeeTopWildlingCardState) WaitedUsers() []string {
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

func (s *SeeTopWildlingCardState) OnPlayerMessage(player *Player, message *ClientMessage) {
	if message.Type != MsgChooseTopWildlingCardUsage {
		s.baseGameState.OnPlayerMessage(player, message)
		return
	}
	house, err := s.ingame.Board().House(s.houseID)
	if err != nil {
		return
	}
	controller, err := s.ingame.ControllerOfHouse(house)
	if err != nil || controller.UserID != player.UserID {
		ravenLogger.Warn().Str(logging.UserIDKey, player.UserID).Msg("Dropping wildling card choice: not the raven holder")
		return
	}
	switch message.Action {
	case "keep":
		house.KnowsNextWildlingCard = true
		s.ingame.Broadcast(&ServerMessage{Type: MsgKnowsNextWildlingCard, HouseID: house.ID})
		s.ingame.Log("wildling-card-kept-on-top", map[string]string{"house": s.houseID}, false)
	case "bottom":
		s.ingame.Board().BuryWildlingCard()
		s.ingame.Broadcast(&ServerMessage{Type: MsgHideTopWildlingCard})
		s.ingame.Log("wildling-card-buried", map[string]string{"house": s.houseID}, false)
	default:
		ravenLogger.Warn().Str("action", message.Action).Msg("Dropping wildling card choice: unknown action")
		return
	}
	s.raven.SetChildGameState(nil)
	s.raven.finish(false)
}

// ActionAfterVassalReplacement buries nothing and passes.
func (s *SeeTopWildlingCardState) ActionAfterVassalReplacement(house *House) {
	if house.ID != s.houseID {
		return
	}
	s.raven.SetChildGameState(nil)
	s.raven.finish(true)
}
