package game

import (
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"

	"thronegate.com/server/logging"
)

var replacementLogger = log.With().Str("logger_name", "game::replacement").Logger()

// DefaultClockSeconds is the starting per-player clock allowance.
const DefaultClockSeconds = 60 * 60

// cancelPendingReplacementVotes withdraws every ongoing replacement or swap
// vote. Any replacement that actually occurs invalidates the consent those
// votes were collecting.
func (i *IngameState) cancelPendingReplacementVotes() {
	for _, v := range i.OngoingVotes() {
		switch v.Kind {
		case VoteReplacePlayer, VoteReplacePlayerByVassal, VoteReplaceVassalByPlayer, VoteSwapHouses:
			i.CancelVote(v)
		}
	}
}

// autoRejectVotesWaitingFor casts a "no" on the house's behalf in every
// ongoing vote still awaiting its choice, so no vote is left stuck forever.
func (i *IngameState) autoRejectVotesWaitingFor(houseID string) {
	for _, v := range i.OngoingVotes() {
		isParticipant := false
		for _, id := range v.Participants {
			if id == houseID {
				isParticipant = true
				break
			}
		}
		if !isParticipant {
			continue
		}
		if _, chosen := v.Choices[houseID]; chosen {
			continue
		}
		i.registerChoice(v, houseID, false)
	}
}

func (i *IngameState) broadcastVassalRelations() {
	pairs := make([][2]string, 0, len(i.board.VassalRelations))
	for _, h := range i.board.SortedHouses() {
		if commanderID, ok := i.board.VassalRelations[h.ID]; ok {
			pairs = append(pairs, [2]string{h.ID, commanderID})
		}
	}
	i.Broadcast(&ServerMessage{Type: MsgVassalRelations, VassalRelations: pairs})
}

// forbiddenCommanders lists the houses that may not become the vassalized
// house's commander: mid-combat, the opposing house is excluded.
func (i *IngameState) forbiddenCommanders(house *House) map[string]bool {
	forbidden := map[string]bool{house.ID: true}
	if combatNode := FindState(i, StateCombat); combatNode != nil {
		if combat, ok := combatNode.(*CombatState); ok {
			if opponentID := combat.OpponentOf(house.ID); opponentID != "" {
				forbidden[opponentID] = true
			}
		}
	}
	return forbidden
}

// selectNewCommander scans the iron throne track from the end, skipping
// vassal houses and forbidden houses, and returns the first eligible
// player-controlled house.
func (i *IngameState) selectNewCommander(forbidden map[string]bool) (*House, error) {
	track := i.board.IronThroneTrack
	for n := len(track) - 1; n >= 0; n-- {
		candidate, err := i.board.House(track[n])
		if err != nil {
			continue
		}
		if forbidden[candidate.ID] || i.IsVassalHouse(candidate) {
			continue
		}
		return candidate, nil
	}
	return nil, errors.New("no eligible commander found")
}

// ReplacePlayerByVassal turns a player-controlled house into a vassal. The
// steps run in a fixed order so no intermediate state is observable where
// the house has neither a player nor a commander.
func (i *IngameState) ReplacePlayerByVassal(house *House) error {
	player := i.PlayerControllingHouse(house.ID)
	if player == nil {
		return errors.Errorf("house [%s] is already a vassal", house.ID)
	}

	i.cancelPendingReplacementVotes()
	i.autoRejectVotesWaitingFor(house.ID)

	forbidden := i.forbiddenCommanders(house)
	inCombat := false
	if combatNode := FindState(i, StateCombat); combatNode != nil {
		if combat, ok := combatNode.(*CombatState); ok {
			inCombat = combat.IsParticipant(house.ID)
		}
	}

	delete(i.players, player.UserID)

	commander, err := i.selectNewCommander(forbidden)
	if err != nil {
		return errors.Wrapf(err, "Failed to vassalize house [%s]", house.ID)
	}

	i.board.VassalRelations[house.ID] = commander.ID
	// Vassals the departing player commanded move to the new commander.
	for vassalID, commanderID := range i.board.VassalRelations {
		if commanderID == house.ID {
			i.board.VassalRelations[vassalID] = commander.ID
		}
	}
	i.broadcastVassalRelations()

	archive := house.SortedHouseCards()
	i.board.OldPlayerHouseCards[house.ID] = archive
	archived := make([]SerializedHouseCard, len(archive))
	for n, hc := range archive {
		archived[n] = SerializedHouseCard{ID: hc.ID, State: int(hc.State)}
	}
	i.Broadcast(&ServerMessage{Type: MsgUpdateOldPlayerCards, HouseID: house.ID, HouseCards: archived})

	house.HasBeenReplacedByVassal = true
	if !inCombat {
		// Mid-combat hands stay: the combat controller clears them during
		// its own cleanup.
		house.HouseCards = make(map[string]*HouseCard)
		i.Broadcast(&ServerMessage{Type: MsgUpdateHouseCards, HouseID: house.ID, HouseCards: []SerializedHouseCard{}})
	}

	i.Broadcast(&ServerMessage{Type: MsgPlayerReplaced, HouseID: house.ID, OldUser: player.UserID})
	i.Log("player-replaced-by-vassal", map[string]string{
		"house":   house.ID,
		"oldUser": player.UserID,
	}, true)

	if reactor, ok := LeafState(i).(vassalReplacementReactor); ok {
		reactor.ActionAfterVassalReplacement(house)
	}

	// The new commander may suddenly be the one the game waits on.
	for _, userID := range WaitedUsers(i) {
		if commanderPlayer := i.PlayerControllingHouse(commander.ID); commanderPlayer != nil && commanderPlayer.UserID == userID {
			i.SendToPlayer(userID, &ServerMessage{Type: MsgPlayerReplaced, HouseID: house.ID, NewUser: userID})
		}
	}
	return nil
}

// ReplacePlayer hands a house over to a different user.
func (i *IngameState) ReplacePlayer(house *House, newUserID string) {
	oldPlayer := i.PlayerControllingHouse(house.ID)
	if oldPlayer == nil || newUserID == "" || i.players[newUserID] != nil {
		replacementLogger.Warn().
			Str(logging.HouseKey, house.ID).
			Str(logging.UserIDKey, newUserID).
			Msg("Dropping player replacement: invalid binding")
		return
	}
	i.cancelPendingReplacementVotes()

	delete(i.players, oldPlayer.UserID)
	newPlayer := &Player{
		UserID:                newUserID,
		UserName:              newUserID,
		HouseID:               house.ID,
		TotalRemainingSeconds: oldPlayer.LiveRemainingSeconds(time.Now()),
	}
	i.players[newUserID] = newPlayer

	i.Broadcast(&ServerMessage{
		Type:    MsgPlayerReplaced,
		HouseID: house.ID,
		OldUser: oldPlayer.UserID,
		NewUser: newUserID,
	})
	i.Log("player-replaced", map[string]string{
		"house":   house.ID,
		"oldUser": oldPlayer.UserID,
		"newUser": newUserID,
	}, false)
}

// ReplaceVassalByPlayer binds a new user to a vassal house and restores the
// archived hand the house had when its last player left.
func (i *IngameState) ReplaceVassalByPlayer(house *House, userID string) {
	if !i.IsVassalHouse(house) || userID == "" || i.players[userID] != nil {
		replacementLogger.Warn().
			Str(logging.HouseKey, house.ID).
			Str(logging.UserIDKey, userID).
			Msg("Dropping vassal replacement: invalid binding")
		return
	}
	i.cancelPendingReplacementVotes()

	player := &Player{
		UserID:                userID,
		UserName:              userID,
		HouseID:               house.ID,
		TotalRemainingSeconds: DefaultClockSeconds,
	}
	i.players[userID] = player

	delete(i.board.VassalRelations, house.ID)
	i.broadcastVassalRelations()

	if archive, ok := i.board.OldPlayerHouseCards[house.ID]; ok {
		house.HouseCards = make(map[string]*HouseCard, len(archive))
		restored := make([]SerializedHouseCard, len(archive))
		for n, hc := range archive {
			house.HouseCards[hc.ID] = hc
			restored[n] = SerializedHouseCard{ID: hc.ID, State: int(hc.State)}
		}
		delete(i.board.OldPlayerHouseCards, house.ID)
		i.Broadcast(&ServerMessage{Type: MsgUpdateHouseCards, HouseID: house.ID, HouseCards: restored})
		i.Broadcast(&ServerMessage{Type: MsgUpdateOldPlayerCards, HouseID: house.ID, HouseCards: []SerializedHouseCard{}})
	}
	house.HasBeenReplacedByVassal = false

	i.Broadcast(&ServerMessage{Type: MsgPlayerReplaced, HouseID: house.ID, NewUser: userID})
	i.Log("vassal-replaced-by-player", map[string]string{
		"house":   house.ID,
		"newUser": userID,
	}, false)
}

// SwapHouses exchanges the houses of the initiating player and the swapping
// player.
func (i *IngameState) SwapHouses(initiatorHouseID, swappingUserID string) {
	initiator := i.PlayerControllingHouse(initiatorHouseID)
	swapping := i.players[swappingUserID]
	if initiator == nil || swapping == nil || initiator == swapping {
		replacementLogger.Warn().
			Str(logging.HouseKey, initiatorHouseID).
			Str(logging.UserIDKey, swappingUserID).
			Msg("Dropping house swap: invalid participants")
		return
	}
	i.cancelPendingReplacementVotes()

	initiator.HouseID, swapping.HouseID = swapping.HouseID, initiator.HouseID

	i.Broadcast(&ServerMessage{
		Type:         MsgHousesSwapped,
		Initiator:    initiator.UserID,
		SwappingUser: swapping.UserID,
	})
	i.Log("houses-swapped", map[string]string{
		"initiator": initiator.UserID,
		"swapping":  swapping.UserID,
	}, false)
}

// OnPlayerClockTimeout handles a player clock reaching zero. In a
// two-player game vassalizing could leave a decision unresolvable, so the
// game ends immediately crediting the remaining player.
func (i *IngameState) OnPlayerClockTimeout(userID string, now time.Time) {
	player := i.players[userID]
	if player == nil || i.IsEnded() || i.paused {
		return
	}
	if player.LiveRemainingSeconds(now) > 0 {
		// Clock was extended after the timer was armed; re-arm.
		if i.timers != nil && !player.ClockStartedAt.IsZero() {
			i.timers.ScheduleTimer(TimerPlayerClock, userID, now.Add(time.Duration(player.LiveRemainingSeconds(now))*time.Second))
		}
		return
	}
	waited := false
	for _, id := range WaitedUsers(i) {
		if id == userID {
			waited = true
			break
		}
	}
	if !waited {
		return
	}

	replacementLogger.Info().
		Str(logging.UserIDKey, userID).
		Str(logging.HouseKey, player.HouseID).
		Msg("Player clock reached zero")

	if len(i.players) == 2 {
		var winner *House
		for _, p := range i.SortedPlayers() {
			if p.UserID != userID {
				if h, err := i.board.House(p.HouseID); err == nil {
					winner = h
				}
			}
		}
		if winner != nil {
			i.Log("player-clock-timeout", map[string]string{"user": userID, "house": player.HouseID}, true)
			i.EndGame(winner, false)
			return
		}
	}
	house, err := i.board.House(player.HouseID)
	if err != nil {
		replacementLogger.Error().Err(err).Str(logging.UserIDKey, userID).Msg("Timed-out player has no house")
		return
	}
	i.Log("player-clock-timeout", map[string]string{"user": userID, "house": player.HouseID}, true)
	if err := i.ReplacePlayerByVassal(house); err != nil {
		replacementLogger.Error().Err(err).Str(logging.HouseKey, house.ID).Msg("Vassalization after timeout failed")
	}
}
