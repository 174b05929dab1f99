package game

import (
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/looplab/fsm"
	"github.com/rs/zerolog/log"

	"thronegate.com/server/logging"
)

var voteLogger = log.With().Str("logger_name", "game::votes").Logger()

// VoteKind is the typed variant of a vote proposal.
type VoteKind string

const (
	VoteCancelGame            VoteKind = "cancel-game"
	VoteEndGame               VoteKind = "end-game"
	VotePauseGame             VoteKind = "pause-game"
	VoteResumeGame            VoteKind = "resume-game"
	VoteExtendPlayerClocks    VoteKind = "extend-player-clocks"
	VoteReplacePlayer         VoteKind = "replace-player"
	VoteReplacePlayerByVassal VoteKind = "replace-player-by-vassal"
	VoteReplaceVassalByPlayer VoteKind = "replace-vassal-by-player"
	VoteSwapHouses            VoteKind = "swap-houses"
)

// Vote lifecycle states and events.
const (
	VoteStateOngoing   = "ONGOING"
	VoteStateAccepted  = "ACCEPTED"
	VoteStateRefused   = "REFUSED"
	VoteStateCancelled = "CANCELLED"

	voteEventAccept = "accept"
	voteEventRefuse = "refuse"
	voteEventCancel = "cancel"
)

const clockExtensionSeconds = 15 * 60

func newVoteFSM(initial string) *fsm.FSM {
	return fsm.NewFSM(
		initial,
		fsm.Events{
			{Name: voteEventAccept, Src: []string{VoteStateOngoing}, Dst: VoteStateAccepted},
			{Name: voteEventRefuse, Src: []string{VoteStateOngoing}, Dst: VoteStateRefused},
			{Name: voteEventCancel, Src: []string{VoteStateOngoing}, Dst: VoteStateCancelled},
		},
		fsm.Callbacks{},
	)
}

// Vote is one consensus proposal. Participants are fixed at launch; the
// vote resolves the instant the last participant registers a choice.
// Resolved and cancelled votes stay in history, never physically removed.
type Vote struct {
	ID               string
	Kind             VoteKind
	InitiatorHouseID string

	// Replacement / swap payload.
	TargetHouseID string
	TargetUserID  string

	Participants []string
	Choices      map[string]bool

	lifecycle *fsm.FSM
}

func (v *Vote) State() string { return v.lifecycle.Current() }

func (v *Vote) IsOngoing() bool { return v.State() == VoteStateOngoing }

// PositiveChoices counts registered yes votes.
func (v *Vote) PositiveChoices() int {
	count := 0
	for _, choice := range v.Choices {
		if choice {
			count++
		}
	}
	return count
}

// requiresUnanimity is true for the vote kinds that mutate game membership.
func (v *Vote) requiresUnanimity() bool {
	switch v.Kind {
	case VoteReplacePlayer, VoteReplacePlayerByVassal, VoteReplaceVassalByPlayer, VoteSwapHouses:
		return true
	}
	return false
}

// isAccepted applies the resolution rule once every participant has chosen.
func (v *Vote) isAccepted() bool {
	if v.requiresUnanimity() {
		return v.PositiveChoices() == len(v.Participants)
	}
	return v.PositiveChoices()*2 > len(v.Participants)
}

type SerializedVote struct {
	ID               string      `json:"id"`
	Kind             VoteKind    `json:"kind"`
	InitiatorHouseID string      `json:"initiator"`
	TargetHouseID    string      `json:"targetHouse,omitempty"`
	TargetUserID     string      `json:"targetUser,omitempty"`
	Participants     []string    `json:"participants"`
	Choices          [][2]string `json:"choices"`
	State            string      `json:"state"`
}

func (v *Vote) serialize() SerializedVote {
	houseIDs := make([]string, 0, len(v.Choices))
	for houseID := range v.Choices {
		houseIDs = append(houseIDs, houseID)
	}
	sort.Strings(houseIDs)
	choices := make([][2]string, len(houseIDs))
	for n, houseID := range houseIDs {
		value := "no"
		if v.Choices[houseID] {
			value = "yes"
		}
		choices[n] = [2]string{houseID, value}
	}
	return SerializedVote{
		ID:               v.ID,
		Kind:             v.Kind,
		InitiatorHouseID: v.InitiatorHouseID,
		TargetHouseID:    v.TargetHouseID,
		TargetUserID:     v.TargetUserID,
		Participants:     v.Participants,
		Choices:          choices,
		State:            v.State(),
	}
}

func deserializeVote(sv SerializedVote) *Vote {
	v := &Vote{
		ID:               sv.ID,
		Kind:             sv.Kind,
		InitiatorHouseID: sv.InitiatorHouseID,
		TargetHouseID:    sv.TargetHouseID,
		TargetUserID:     sv.TargetUserID,
		Participants:     sv.Participants,
		Choices:          make(map[string]bool, len(sv.Choices)),
		lifecycle:        newVoteFSM(sv.State),
	}
	for _, pair := range sv.Choices {
		v.Choices[pair[0]] = pair[1] == "yes"
	}
	return v
}

// VoteCheck is the structured result of a launch precondition. Routine
// validation never surfaces as an error.
type VoteCheck struct {
	Allowed bool
	Reason  string
}

func voteAllowed() VoteCheck                { return VoteCheck{Allowed: true} }
func voteForbidden(reason string) VoteCheck { return VoteCheck{Allowed: false, Reason: reason} }

// Votes returns the vote history in launch order.
func (i *IngameState) Votes() []*Vote {
	votes := make([]*Vote, len(i.voteOrder))
	for n, id := range i.voteOrder {
		votes[n] = i.votes[id]
	}
	return votes
}

// OngoingVotes returns the unresolved votes in launch order.
func (i *IngameState) OngoingVotes() []*Vote {
	ongoing := make([]*Vote, 0)
	for _, v := range i.Votes() {
		if v.IsOngoing() {
			ongoing = append(ongoing, v)
		}
	}
	return ongoing
}

func (i *IngameState) hasOngoingVoteOfKind(kind VoteKind) bool {
	for _, v := range i.OngoingVotes() {
		if v.Kind == kind {
			return true
		}
	}
	return false
}

// CanLaunchVote checks the launch preconditions for a vote of the given
// kind. One ONGOING vote per kind; while paused only resume votes may
// launch.
func (i *IngameState) CanLaunchVote(kind VoteKind, message *ClientMessage) VoteCheck {
	if i.IsEnded() {
		return voteForbidden("game-ended")
	}
	if i.hasOngoingVoteOfKind(kind) {
		return voteForbidden("already-existing")
	}
	if i.paused && kind != VoteResumeGame {
		return voteForbidden("game-paused")
	}
	switch kind {
	case VotePauseGame:
		if i.paused {
			return voteForbidden("already-paused")
		}
	case VoteResumeGame:
		if !i.paused {
			return voteForbidden("not-paused")
		}
	case VoteExtendPlayerClocks:
		if !i.clocksEnabled {
			return voteForbidden("clocks-disabled")
		}
	case VoteReplacePlayer:
		house, err := i.board.House(message.House)
		if err != nil || i.IsVassalHouse(house) {
			return voteForbidden("invalid-house")
		}
		if message.Player == "" || i.players[message.Player] != nil {
			return voteForbidden("invalid-user")
		}
	case VoteReplacePlayerByVassal:
		house, err := i.board.House(message.House)
		if err != nil || i.IsVassalHouse(house) {
			return voteForbidden("invalid-house")
		}
		if len(i.players) <= 2 {
			return voteForbidden("not-enough-players")
		}
	case VoteReplaceVassalByPlayer:
		house, err := i.board.House(message.House)
		if err != nil || !i.IsVassalHouse(house) {
			return voteForbidden("invalid-house")
		}
		if message.Player == "" || i.players[message.Player] != nil {
			return voteForbidden("invalid-user")
		}
	case VoteSwapHouses:
		swapping := i.players[message.SwappingUser]
		if swapping == nil {
			return voteForbidden("invalid-user")
		}
	}
	return voteAllowed()
}

var launchMessageKinds = map[string]VoteKind{
	MsgLaunchCancelGameVote:      VoteCancelGame,
	MsgLaunchEndGameVote:         VoteEndGame,
	MsgLaunchPauseGameVote:       VotePauseGame,
	MsgLaunchResumeGameVote:      VoteResumeGame,
	MsgLaunchExtendClocksVote:    VoteExtendPlayerClocks,
	MsgLaunchReplacePlayerVote:   VoteReplacePlayer,
	MsgLaunchReplaceByVassalVote: VoteReplacePlayerByVassal,
	MsgLaunchReplaceVassalVote:   VoteReplaceVassalByPlayer,
	MsgLaunchSwapHousesVote:      VoteSwapHouses,
}

func (i *IngameState) onLaunchVote(player *Player, message *ClientMessage) {
	kind, ok := launchMessageKinds[message.Type]
	if !ok {
		return
	}
	check := i.CanLaunchVote(kind, message)
	if !check.Allowed {
		voteLogger.Warn().
			Str(logging.UserIDKey, player.UserID).
			Str("voteKind", string(kind)).
			Str("reason", check.Reason).
			Msg("Rejecting vote launch")
		return
	}
	participants := make([]string, 0)
	for _, h := range i.PlayerHouses() {
		participants = append(participants, h.ID)
	}
	vote := &Vote{
		ID:               uuid.New().String(),
		Kind:             kind,
		InitiatorHouseID: player.HouseID,
		Participants:     participants,
		Choices:          make(map[string]bool),
		lifecycle:        newVoteFSM(VoteStateOngoing),
	}
	switch kind {
	case VoteReplacePlayer, VoteReplacePlayerByVassal, VoteReplaceVassalByPlayer:
		vote.TargetHouseID = message.House
		vote.TargetUserID = message.Player
	case VoteSwapHouses:
		vote.TargetUserID = message.SwappingUser
		if swapping := i.players[message.SwappingUser]; swapping != nil {
			vote.TargetHouseID = swapping.HouseID
		}
	}
	i.votes[vote.ID] = vote
	i.voteOrder = append(i.voteOrder, vote.ID)

	serialized, err := jsonit.Marshal(vote.serialize())
	if err != nil {
		voteLogger.Error().Err(err).Str(logging.VoteIDKey, vote.ID).Msg("Failed to serialize vote")
		return
	}
	i.Broadcast(&ServerMessage{Type: MsgVoteStarted, Vote: serialized})
	i.Log("vote-started", map[string]string{
		"vote":      vote.ID,
		"kind":      string(kind),
		"initiator": vote.InitiatorHouseID,
	}, false)

	// The initiator implicitly votes yes.
	i.registerChoice(vote, player.HouseID, true)
}

func (i *IngameState) onVoteChoice(player *Player, message *ClientMessage) {
	vote, ok := i.votes[message.Vote]
	if !ok {
		voteLogger.Warn().Str(logging.VoteIDKey, message.Vote).Msg("Dropping choice for unknown vote")
		return
	}
	if !vote.IsOngoing() {
		voteLogger.Warn().Str(logging.VoteIDKey, vote.ID).Msg("Dropping choice for resolved vote")
		return
	}
	if message.Choice == nil {
		return
	}
	isParticipant := false
	for _, houseID := range vote.Participants {
		if houseID == player.HouseID {
			isParticipant = true
			break
		}
	}
	if !isParticipant {
		voteLogger.Warn().
			Str(logging.VoteIDKey, vote.ID).
			Str(logging.HouseKey, player.HouseID).
			Msg("Dropping choice from non-participant")
		return
	}
	i.registerChoice(vote, player.HouseID, *message.Choice)
}

// registerChoice records a house's choice and resolves the vote on the Nth
// registered choice, never earlier.
func (i *IngameState) registerChoice(vote *Vote, houseID string, choice bool) {
	vote.Choices[houseID] = choice
	i.Broadcast(&ServerMessage{Type: MsgVoteChoice, VoteID: vote.ID, Voter: houseID, Choice: choice})
	if len(vote.Choices) < len(vote.Participants) {
		return
	}
	i.resolveVote(vote)
}

func (i *IngameState) resolveVote(vote *Vote) {
	event := voteEventRefuse
	if vote.isAccepted() {
		event = voteEventAccept
	}
	if err := vote.lifecycle.Event(event); err != nil {
		voteLogger.Error().Err(err).Str(logging.VoteIDKey, vote.ID).Msg("Vote lifecycle transition failed")
		return
	}
	i.Broadcast(&ServerMessage{Type: MsgVoteDone, VoteID: vote.ID, Choice: vote.State() == VoteStateAccepted})
	i.Log("vote-done", map[string]string{
		"vote":  vote.ID,
		"kind":  string(vote.Kind),
		"state": vote.State(),
	}, false)
	if vote.State() != VoteStateAccepted {
		return
	}
	i.executeAcceptedVote(vote)
}

// executeAcceptedVote runs a vote's side effect exactly once, on the
// ONGOING -> ACCEPTED transition.
func (i *IngameState) executeAcceptedVote(vote *Vote) {
	now := time.Now()
	switch vote.Kind {
	case VoteCancelGame:
		i.CancelGame()
	case VoteEndGame:
		i.EndGame(i.board.PotentialWinners()[0], true)
	case VotePauseGame:
		i.PauseGame(now)
	case VoteResumeGame:
		i.ResumeGame(now, false)
	case VoteExtendPlayerClocks:
		i.extendPlayerClocks(now)
	case VoteReplacePlayer:
		if house, err := i.board.House(vote.TargetHouseID); err == nil {
			i.ReplacePlayer(house, vote.TargetUserID)
		}
	case VoteReplacePlayerByVassal:
		if house, err := i.board.House(vote.TargetHouseID); err == nil {
			if err := i.ReplacePlayerByVassal(house); err != nil {
				voteLogger.Error().Err(err).Str(logging.HouseKey, house.ID).Msg("Vassalization failed")
			}
		}
	case VoteReplaceVassalByPlayer:
		if house, err := i.board.House(vote.TargetHouseID); err == nil {
			i.ReplaceVassalByPlayer(house, vote.TargetUserID)
		}
	case VoteSwapHouses:
		i.SwapHouses(vote.InitiatorHouseID, vote.TargetUserID)
	}
}

func (i *IngameState) extendPlayerClocks(now time.Time) {
	for _, p := range i.SortedPlayers() {
		p.TotalRemainingSeconds += clockExtensionSeconds
		if p.ClockStartedAt.IsZero() {
			i.Broadcast(&ServerMessage{Type: MsgStopPlayerClock, UserID: p.UserID, RemainingSeconds: p.TotalRemainingSeconds})
		} else {
			i.Broadcast(&ServerMessage{
				Type:             MsgStartPlayerClock,
				UserID:           p.UserID,
				RemainingSeconds: p.TotalRemainingSeconds,
				TimerStartedAt:   p.ClockStartedAt.Unix(),
			})
			if i.timers != nil {
				i.timers.ScheduleTimer(TimerPlayerClock, p.UserID, now.Add(time.Duration(p.LiveRemainingSeconds(now))*time.Second))
			}
		}
	}
	i.Log("player-clocks-extended", map[string]string{}, false)
}

// CancelVote withdraws an ongoing vote. Cancelling a resolved or unknown
// vote is a no-op; cancellation is idempotent.
func (i *IngameState) CancelVote(vote *Vote) {
	if vote == nil || !vote.IsOngoing() {
		return
	}
	if err := vote.lifecycle.Event(voteEventCancel); err != nil {
		return
	}
	i.Broadcast(&ServerMessage{Type: MsgVoteCancelled, VoteID: vote.ID})
	i.Log("vote-cancelled", map[string]string{"vote": vote.ID, "kind": string(vote.Kind)}, true)
}
