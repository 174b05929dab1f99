package game

import (
	"math/rand"
	"sort"
	"strconv"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"

	"thronegate.com/server/logging"
)

var ingameLogger = log.With().Str("logger_name", "game::ingame").Logger()

const (
	StateIngame    = "ingame"
	StateGameEnded = "game-ended"
	StateCancelled = "cancelled"
)

// TimerKind classifies asynchronous triggers fed back into the game's
// message loop.
type TimerKind string

const (
	TimerPlayerClock TimerKind = "player-clock"
	TimerAutoResume  TimerKind = "auto-resume"
)

// TimerScheduler arms a one-shot timer that re-enters the game's dispatch
// loop when it fires. Timers are the only asynchronous triggers allowed to
// mutate game state; they do so through the loop, never directly.
type TimerScheduler interface {
	ScheduleTimer(kind TimerKind, userID string, fireAt time.Time)
}

const autoResumeDelay = 10 * time.Minute

// IngameState is the turn controller at the top of the phase tree. It
// advances rounds, reshuffles decks on schedule, checks victory conditions,
// intercepts votes and gifting, and owns the player registry.
type IngameState struct {
	baseGameState

	board    *Board
	content  *Content
	receiver MessageReceiver
	timers   TimerScheduler
	rng      *rand.Rand

	players map[string]*Player

	gameLog *GameLog

	votes     map[string]*Vote
	voteOrder []string

	// ordersOnBoard holds revealed orders (region id -> order type id).
	// Hidden planning orders live in the Planning node until reveal.
	ordersOnBoard map[string]string
	// Planning restrictions of the current round, kept for raven swaps.
	planningRestrictions []string

	paused              bool
	willBeAutoResumedAt time.Time

	clocksEnabled bool
}

// NewIngameState constructs a turn controller with no game in progress.
// Construction is side-effect-free; FirstStart or a snapshot reconstruction
// brings it to life.
func NewIngameState(content *Content, receiver MessageReceiver, timers TimerScheduler, rng *rand.Rand) *IngameState {
	return &IngameState{
		board:         nil,
		content:       content,
		receiver:      receiver,
		timers:        timers,
		rng:           rng,
		players:       make(map[string]*Player),
		gameLog:       &GameLog{},
		votes:         make(map[string]*Vote),
		ordersOnBoard: make(map[string]string),
	}
}

func (i *IngameState) Type() string { return StateIngame }

// FirstStart begins a fresh game on the given board. When draft is set the
// game opens with a house-card draft; otherwise the first round starts
// immediately (the Westeros phase is skipped on turn 1).
func (i *IngameState) FirstStart(board *Board, players []*Player, draft bool, clocksEnabled bool) {
	i.board = board
	i.clocksEnabled = clocksEnabled
	for _, p := range players {
		i.players[p.UserID] = p
	}
	i.Broadcast(&ServerMessage{Type: MsgGameStarted})
	i.Log("game-started", map[string]string{}, true)
	if draft {
		draftState := newDraftState(i)
		i.SetChildGameState(draftState)
		draftState.FirstStart()
		return
	}
	i.BeginNewRound()
}

func (i *IngameState) Board() *Board        { return i.board }
func (i *IngameState) Content() *Content    { return i.content }
func (i *IngameState) GameLogs() []LogEntry { return i.gameLog.Entries }
func (i *IngameState) IsPaused() bool       { return i.paused }

// Broadcast delivers an identical payload to every participant.
func (i *IngameState) Broadcast(message *ServerMessage) {
	if i.receiver != nil {
		i.receiver.BroadcastMessage(message)
	}
}

// SendToPlayer delivers a per-recipient payload (hidden information).
func (i *IngameState) SendToPlayer(userID string, message *ServerMessage) {
	if i.receiver != nil {
		i.receiver.SendMessageToPlayer(userID, message)
	}
}

// Log appends a structured game-log entry and broadcasts it.
func (i *IngameState) Log(kind string, data map[string]string, resolvedAutomatically bool) {
	entry := i.gameLog.append(kind, data, resolvedAutomatically)
	i.Broadcast(&ServerMessage{Type: MsgAddGameLog, Log: &entry})
}

// SortedPlayers returns the players in user-id order.
func (i *IngameState) SortedPlayers() []*Player {
	ids := make([]string, 0, len(i.players))
	for id := range i.players {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	players := make([]*Player, len(ids))
	for n, id := range ids {
		players[n] = i.players[id]
	}
	return players
}

func (i *IngameState) PlayerByUserID(userID string) *Player {
	return i.players[userID]
}

// PlayerControllingHouse returns the player directly bound to the house, or
// nil when the house is a vassal.
func (i *IngameState) PlayerControllingHouse(houseID string) *Player {
	for _, p := range i.players {
		if p.HouseID == houseID {
			return p
		}
	}
	return nil
}

// IsVassalHouse reports whether the house has no directly controlling
// player.
func (i *IngameState) IsVassalHouse(house *House) bool {
	return i.PlayerControllingHouse(house.ID) == nil
}

// ControllerOfHouse resolves the player who acts for a house: the direct
// controller, or for a vassal its commander's controller. A house nobody
// controls is a broken invariant.
func (i *IngameState) ControllerOfHouse(house *House) (*Player, error) {
	if p := i.PlayerControllingHouse(house.ID); p != nil {
		return p, nil
	}
	commanderID, ok := i.board.VassalRelations[house.ID]
	if !ok {
		return nil, errors.Errorf("house [%s] has no controller and no commander", house.ID)
	}
	commander := i.PlayerControllingHouse(commanderID)
	if commander == nil {
		return nil, errors.Errorf("commander [%s] of vassal [%s] has no controller", commanderID, house.ID)
	}
	return commander, nil
}

// PlayerHouses returns the non-vassal houses in roster order.
func (i *IngameState) PlayerHouses() []*House {
	houses := make([]*House, 0)
	for _, h := range i.board.SortedHouses() {
		if !i.IsVassalHouse(h) {
			houses = append(houses, h)
		}
	}
	return houses
}

// VassalHouses returns the vassal houses in roster order.
func (i *IngameState) VassalHouses() []*House {
	houses := make([]*House, 0)
	for _, h := range i.board.SortedHouses() {
		if i.IsVassalHouse(h) {
			houses = append(houses, h)
		}
	}
	return houses
}

// HouseOfPlayer resolves the player's house.
func (i *IngameState) HouseOfPlayer(player *Player) (*House, error) {
	return i.board.House(player.HouseID)
}

// OrdersOnBoard exposes the revealed orders (region id -> order type id).
func (i *IngameState) OrdersOnBoard() map[string]string {
	return i.ordersOnBoard
}

// OrderInRegion resolves the revealed order placed in a region, or nil.
func (i *IngameState) OrderInRegion(regionID string) *OrderType {
	typeID, ok := i.ordersOnBoard[regionID]
	if !ok {
		return nil
	}
	return i.content.OrderTypes[typeID]
}

// RemoveOrder takes a revealed order off the board and notifies clients.
func (i *IngameState) RemoveOrder(regionID string) {
	if _, ok := i.ordersOnBoard[regionID]; !ok {
		return
	}
	delete(i.ordersOnBoard, regionID)
	i.Broadcast(&ServerMessage{Type: MsgChangeOrder, RegionID: regionID})
}

// ChangeOrder swaps the revealed order in a region and notifies clients.
func (i *IngameState) ChangeOrder(regionID, orderTypeID string) {
	i.ordersOnBoard[regionID] = orderTypeID
	i.Broadcast(&ServerMessage{Type: MsgChangeOrder, RegionID: regionID, OrderTypeID: orderTypeID})
}

// RevealOrders installs the planning phase's hidden orders as the board's
// revealed orders and broadcasts them.
func (i *IngameState) RevealOrders(orders map[string]string) {
	i.ordersOnBoard = make(map[string]string, len(orders))
	for regionID, typeID := range orders {
		i.ordersOnBoard[regionID] = typeID
	}
	i.Broadcast(&ServerMessage{Type: MsgRevealOrders, Orders: i.ordersOnBoard})
}

// ChangePowerTokens adjusts a house's power-token pool, clamped to
// [0, max - markers on the board], broadcasts the new absolute count and
// returns the delta actually applied.
func (i *IngameState) ChangePowerTokens(house *House, delta int) int {
	max := house.MaxPowerTokens - i.board.CountPowerTokensOnBoard(house)
	newCount := house.PowerTokens + delta
	if newCount < 0 {
		newCount = 0
	}
	if newCount > max {
		newCount = max
	}
	applied := newCount - house.PowerTokens
	house.PowerTokens = newCount
	i.Broadcast(&ServerMessage{Type: MsgChangePowerToken, HouseID: house.ID, PowerTokens: newCount})
	return applied
}

// ChangeWildlingStrength moves the wildling threat track, clamped to
// [0, 12], and broadcasts the new value.
func (i *IngameState) ChangeWildlingStrength(delta int) {
	strength := i.board.WildlingStrength + delta
	if strength < 0 {
		strength = 0
	}
	if strength > 12 {
		strength = 12
	}
	i.board.WildlingStrength = strength
	i.Broadcast(&ServerMessage{Type: MsgChangeWildlingStrength, WildlingStrength: strength})
}

// BeginNewRound runs the round algorithm: clear orders, refresh decks on the
// ten-turn cadence, advance the turn counter, reset one-shot flags, then
// route into debt resolution or the Westeros phase.
func (i *IngameState) BeginNewRound() {
	if len(i.ordersOnBoard) > 0 {
		regions := make([]string, 0, len(i.ordersOnBoard))
		for regionID := range i.ordersOnBoard {
			regions = append(regions, regionID)
		}
		sort.Strings(regions)
		i.ordersOnBoard = make(map[string]string)
		i.Broadcast(&ServerMessage{Type: MsgRemoveOrders, Regions: regions})
	}

	if (i.board.Turn+1)%10 == 0 {
		i.board.ReshuffleWesterosDeck(len(i.board.WesterosDecks)-1, i.rng)
		i.Broadcast(&ServerMessage{Type: MsgUpdateWesterosDecks, WesterosDecks: i.serializeWesterosDecksRedacted()})
		i.board.ShuffleWildlingDeck(i.rng)
		i.Broadcast(&ServerMessage{Type: MsgHideTopWildlingCard})
		if i.board.IronBank != nil {
			i.reshuffleLoanDeck()
		}
	}

	i.board.Turn++
	i.board.ValyrianSteelBladeUsed = false
	for _, region := range i.board.World.Regions {
		for _, u := range region.Units {
			u.Wounded = false
		}
	}
	i.Broadcast(&ServerMessage{Type: MsgNewTurn, Turn: i.board.Turn})
	i.Log("turn-begin", map[string]string{"turn": strconv.Itoa(i.board.Turn)}, true)

	if i.board.IronBank != nil && len(i.board.IronBank.PayInterest()) > 0 {
		payDebts := newPayDebtsState(i)
		i.SetChildGameState(payDebts)
		payDebts.FirstStart()
		return
	}
	i.proceedToWesterosOrPlanning()
}

func (i *IngameState) proceedToWesterosOrPlanning() {
	if i.board.Turn == 1 {
		i.beginPlanning(nil)
		return
	}
	westeros := newWesterosState(i)
	i.SetChildGameState(westeros)
	westeros.FirstStart()
}

func (i *IngameState) beginPlanning(restrictions []string) {
	i.planningRestrictions = restrictions
	planning := newPlanningState(i)
	i.SetChildGameState(planning)
	planning.FirstStart(restrictions)
}

func (i *IngameState) reshuffleLoanDeck() {
	bank := i.board.IronBank
	for _, lc := range bank.LoanCardDeck {
		lc.Discarded = false
	}
	i.rng.Shuffle(len(bank.LoanCardDeck), func(a, b int) {
		bank.LoanCardDeck[a], bank.LoanCardDeck[b] = bank.LoanCardDeck[b], bank.LoanCardDeck[a]
	})
	ids := make([]int, len(bank.LoanCardDeck))
	for n, lc := range bank.LoanCardDeck {
		ids[n] = lc.ID
	}
	i.Broadcast(&ServerMessage{Type: MsgUpdateLoanCards, LoanCardIDs: ids})
}

func (i *IngameState) serializeWesterosDecksRedacted() [][]SerializedWesterosCard {
	decks := make([][]SerializedWesterosCard, len(i.board.WesterosDecks))
	for d, deck := range i.board.WesterosDecks {
		decks[d] = make([]SerializedWesterosCard, len(deck))
		for n, card := range deck {
			decks[d][n] = SerializedWesterosCard{ID: card.ID, Discarded: card.Discarded}
		}
	}
	return decks
}

// Phase completion callbacks.

func (i *IngameState) onDraftFinished() {
	i.BeginNewRound()
}

func (i *IngameState) onPayDebtsFinished() {
	if i.CheckVictory() {
		return
	}
	i.proceedToWesterosOrPlanning()
}

func (i *IngameState) onWesterosPhaseFinished(planningRestrictions []string) {
	if i.CheckVictory() {
		return
	}
	i.beginPlanning(planningRestrictions)
}

func (i *IngameState) onPlanningPhaseFinished(orders map[string]string) {
	i.RevealOrders(orders)
	action := newActionState(i)
	i.SetChildGameState(action)
	action.FirstStart()
}

func (i *IngameState) onActionPhaseFinished() {
	if i.CheckVictory() {
		return
	}
	if i.board.Turn >= i.board.MaxTurns {
		i.EndGame(i.board.PotentialWinners()[0], true)
		return
	}
	i.BeginNewRound()
}

// CheckVictory ends the game if a house fulfils the victory conditions. It
// runs at round boundaries and opportunistically after any state change
// that could end the game early.
func (i *IngameState) CheckVictory() bool {
	if !i.board.VictoryConditionsFulfilled() {
		return false
	}
	i.EndGame(i.board.PotentialWinners()[0], false)
	return true
}

// EndGame transitions to the terminal GameEnded state.
func (i *IngameState) EndGame(winner *House, maxTurnsReached bool) {
	ended := newGameEndedState(i)
	i.SetChildGameState(ended)
	ended.FirstStart(winner.ID, maxTurnsReached)
}

// CancelGame transitions to the terminal Cancelled state.
func (i *IngameState) CancelGame() {
	cancelled := newCancelledState(i)
	i.SetChildGameState(cancelled)
	cancelled.FirstStart()
}

// IsEnded reports whether the game reached a terminal state.
func (i *IngameState) IsEnded() bool {
	child := i.ChildGameState()
	if child == nil {
		return false
	}
	return child.Type() == StateGameEnded || child.Type() == StateCancelled
}

// PauseGame suspends play: clocks stop and game-mutating intents are dropped
// until a resume. An auto-resume timer is armed so a dead resume vote cannot
// freeze the game forever.
func (i *IngameState) PauseGame(now time.Time) {
	if i.paused {
		return
	}
	i.paused = true
	i.willBeAutoResumedAt = now.Add(autoResumeDelay)
	for _, p := range i.SortedPlayers() {
		if !p.ClockStartedAt.IsZero() {
			p.StopClock(now)
			i.Broadcast(&ServerMessage{Type: MsgStopPlayerClock, UserID: p.UserID, RemainingSeconds: p.TotalRemainingSeconds})
		}
	}
	if i.timers != nil {
		i.timers.ScheduleTimer(TimerAutoResume, "", i.willBeAutoResumedAt)
	}
	i.Broadcast(&ServerMessage{Type: MsgGamePaused, WillBeAutoResumedAt: i.willBeAutoResumedAt.Unix()})
	i.Log("game-paused", map[string]string{}, true)
}

// ResumeGame lifts a pause and restarts the clocks of the waited players.
func (i *IngameState) ResumeGame(now time.Time, auto bool) {
	if !i.paused {
		return
	}
	i.paused = false
	i.willBeAutoResumedAt = time.Time{}
	i.Broadcast(&ServerMessage{Type: MsgGameResumed})
	i.Log("game-resumed", map[string]string{}, auto)
	i.RecalculateClocks(now)
}

// OnAutoResumeTimer fires when a pause outlives its auto-resume deadline.
func (i *IngameState) OnAutoResumeTimer(now time.Time) {
	if !i.paused || i.willBeAutoResumedAt.IsZero() || now.Before(i.willBeAutoResumedAt) {
		return
	}
	// Cancel the pending resume vote, if any; the pause is over regardless.
	for _, v := range i.OngoingVotes() {
		if v.Kind == VoteResumeGame {
			i.CancelVote(v)
		}
	}
	i.ResumeGame(now, true)
}

// RecalculateClocks starts the clocks of players the leaf state waits on
// and stops everyone else's, broadcasting every change. It runs after every
// dispatched message and after every timer callback.
func (i *IngameState) RecalculateClocks(now time.Time) {
	if !i.clocksEnabled || i.IsEnded() {
		return
	}
	if i.paused {
		return
	}
	waited := make(map[string]bool)
	for _, userID := range WaitedUsers(i) {
		waited[userID] = true
	}
	for _, p := range i.SortedPlayers() {
		if waited[p.UserID] {
			if p.ClockStartedAt.IsZero() {
				p.StartClock(now)
				i.Broadcast(&ServerMessage{
					Type:             MsgStartPlayerClock,
					UserID:           p.UserID,
					RemainingSeconds: p.TotalRemainingSeconds,
					TimerStartedAt:   now.Unix(),
				})
				if i.timers != nil {
					i.timers.ScheduleTimer(TimerPlayerClock, p.UserID, now.Add(time.Duration(p.TotalRemainingSeconds)*time.Second))
				}
			}
		} else if !p.ClockStartedAt.IsZero() {
			p.StopClock(now)
			i.Broadcast(&ServerMessage{Type: MsgStopPlayerClock, UserID: p.UserID, RemainingSeconds: p.TotalRemainingSeconds})
		}
	}
}

// OnPlayerMessage intercepts control-plane intents (votes, gifting) and
// delegates everything else to the active phase. While the game is paused
// only vote traffic passes through.
func (i *IngameState) OnPlayerMessage(player *Player, message *ClientMessage) {
	switch message.Type {
	case MsgVote:
		i.onVoteChoice(player, message)
		return
	case MsgLaunchCancelGameVote, MsgLaunchEndGameVote, MsgLaunchPauseGameVote,
		MsgLaunchResumeGameVote, MsgLaunchExtendClocksVote, MsgLaunchReplacePlayerVote,
		MsgLaunchReplaceByVassalVote, MsgLaunchReplaceVassalVote, MsgLaunchSwapHousesVote:
		i.onLaunchVote(player, message)
		return
	case MsgGiftPowerTokens:
		i.onGiftPowerTokens(player, message)
		return
	}
	if i.paused {
		ingameLogger.Warn().
			Str(logging.UserIDKey, player.UserID).
			Str(logging.MsgTypeKey, message.Type).
			Msg("Dropping player message: game is paused")
		return
	}
	i.baseGameState.OnPlayerMessage(player, message)
}

func (i *IngameState) onGiftPowerTokens(player *Player, message *ClientMessage) {
	if i.paused {
		ingameLogger.Warn().Str(logging.UserIDKey, player.UserID).Msg("Dropping gift: game is paused")
		return
	}
	from, err := i.board.House(player.HouseID)
	if err != nil {
		ingameLogger.Warn().Err(err).Str(logging.UserIDKey, player.UserID).Msg("Dropping gift: sender has no house")
		return
	}
	to, err := i.board.House(message.ToHouse)
	if err != nil || i.IsVassalHouse(to) || to == from {
		ingameLogger.Warn().Str(logging.HouseKey, message.ToHouse).Msg("Dropping gift: invalid target house")
		return
	}
	count := message.PowerTokens
	if count <= 0 || count > from.PowerTokens {
		ingameLogger.Warn().Int("count", count).Msg("Dropping gift: invalid token count")
		return
	}
	given := -i.ChangePowerTokens(from, -count)
	i.ChangePowerTokens(to, given)
	i.Log("power-tokens-gifted", map[string]string{
		"from":  from.ID,
		"to":    to.ID,
		"count": strconv.Itoa(given),
	}, false)
}

// OnServerMessage is the client-mirror replay path: it applies authoritative
// facts to a reconstructed tree so that replaying the stream reproduces the
// live state. Facts the turn controller does not own are delegated down the
// chain.
func (i *IngameState) OnServerMessage(message *ServerMessage) {
	switch message.Type {
	case MsgNewTurn:
		i.board.Turn = message.Turn
		i.board.ValyrianSteelBladeUsed = false
		for _, region := range i.board.World.Regions {
			for _, u := range region.Units {
				u.Wounded = false
			}
		}
	case MsgRemoveOrders:
		for _, regionID := range message.Regions {
			delete(i.ordersOnBoard, regionID)
		}
	case MsgRevealOrders:
		i.ordersOnBoard = make(map[string]string, len(message.Orders))
		for regionID, typeID := range message.Orders {
			i.ordersOnBoard[regionID] = typeID
		}
	case MsgChangeOrder:
		if message.OrderTypeID == "" {
			delete(i.ordersOnBoard, message.RegionID)
		} else {
			i.ordersOnBoard[message.RegionID] = message.OrderTypeID
		}
	case MsgChangePowerToken:
		if house, err := i.board.House(message.HouseID); err == nil {
			house.PowerTokens = message.PowerTokens
		}
	case MsgChangeControlPowerToken:
		if region, err := i.board.World.Region(message.RegionID); err == nil {
			region.ControlPowerToken = message.HouseID
		}
	case MsgChangeGarrison:
		if region, err := i.board.World.Region(message.RegionID); err == nil {
			region.Garrison = message.Garrison
		}
	case MsgAddUnits:
		if region, err := i.board.World.Region(message.RegionID); err == nil {
			for _, su := range message.Units {
				region.Units[su.ID] = deserializeUnit(su)
				if su.ID > i.board.nextUnitID {
					i.board.nextUnitID = su.ID
				}
			}
		}
	case MsgRemoveUnits:
		if region, err := i.board.World.Region(message.RegionID); err == nil {
			for _, id := range message.UnitIDs {
				delete(region.Units, id)
			}
		}
	case MsgMoveUnits:
		from, errFrom := i.board.World.Region(message.FromID)
		to, errTo := i.board.World.Region(message.ToID)
		if errFrom == nil && errTo == nil {
			for _, id := range message.UnitIDs {
				if u, ok := from.Units[id]; ok {
					delete(from.Units, id)
					to.Units[id] = u
					if message.IsRetreat {
						u.Wounded = true
					}
				}
			}
		}
	case MsgUnitsWounded:
		if region, err := i.board.World.Region(message.RegionID); err == nil {
			for _, id := range message.UnitIDs {
				if u, ok := region.Units[id]; ok {
					u.Wounded = true
				}
			}
		}
	case MsgSupplyAdjusted:
		for _, hs := range message.Supplies {
			if house, err := i.board.House(hs.HouseID); err == nil {
				house.SupplyLevel = hs.Supply
			}
		}
	case MsgChangeTracker:
		track := append([]string(nil), message.Tracker...)
		switch message.TrackerI {
		case 0:
			i.board.IronThroneTrack = track
		case 1:
			i.board.FiefdomsTrack = track
		case 2:
			i.board.KingsCourtTrack = track
		}
	case MsgChangeWildlingStrength:
		i.board.WildlingStrength = message.WildlingStrength
	case MsgHideTopWildlingCard:
		for _, house := range i.board.Houses {
			house.KnowsNextWildlingCard = false
		}
	case MsgKnowsNextWildlingCard:
		if house, err := i.board.House(message.HouseID); err == nil {
			house.KnowsNextWildlingCard = true
		}
	case MsgVassalRelations:
		i.board.VassalRelations = make(map[string]string, len(message.VassalRelations))
		for _, pair := range message.VassalRelations {
			i.board.VassalRelations[pair[0]] = pair[1]
		}
	case MsgUpdateHouseCards:
		if house, err := i.board.House(message.HouseID); err == nil {
			i.applyHouseCards(house, message.HouseCards)
		}
	case MsgAddGameLog:
		if message.Log != nil {
			i.gameLog.Entries = append(i.gameLog.Entries, *message.Log)
		}
	case MsgGameEnded:
		ended := newGameEndedState(i)
		ended.winnerHouseID = message.HouseID
		i.SetChildGameState(ended)
	case MsgGameCancelled:
		i.SetChildGameState(newCancelledState(i))
	case MsgGamePaused:
		i.paused = true
		i.willBeAutoResumedAt = time.Unix(message.WillBeAutoResumedAt, 0)
	case MsgGameResumed:
		i.paused = false
		i.willBeAutoResumedAt = time.Time{}
	case MsgStartPlayerClock:
		if p := i.players[message.UserID]; p != nil {
			p.TotalRemainingSeconds = message.RemainingSeconds
			p.ClockStartedAt = time.Unix(message.TimerStartedAt, 0)
		}
	case MsgStopPlayerClock:
		if p := i.players[message.UserID]; p != nil {
			p.TotalRemainingSeconds = message.RemainingSeconds
			p.ClockStartedAt = time.Time{}
		}
	default:
		i.baseGameState.OnServerMessage(message)
	}
}

func (i *IngameState) applyHouseCards(house *House, cards []SerializedHouseCard) {
	for _, sc := range cards {
		if hc, ok := house.HouseCards[sc.ID]; ok {
			hc.State = HouseCardState(sc.State)
		}
	}
}
