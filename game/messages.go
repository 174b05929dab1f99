package game

import (
	jsoniter "github.com/json-iterator/go"
)

var jsonit = jsoniter.ConfigCompatibleWithStandardLibrary

// Client -> server intent types.
const (
	MsgVote                       = "vote"
	MsgLaunchCancelGameVote       = "launch-cancel-game-vote"
	MsgLaunchEndGameVote          = "launch-end-game-vote"
	MsgLaunchPauseGameVote        = "launch-pause-game-vote"
	MsgLaunchResumeGameVote       = "launch-resume-game-vote"
	MsgLaunchExtendClocksVote     = "launch-extend-player-clocks-vote"
	MsgLaunchReplacePlayerVote    = "launch-replace-player-vote"
	MsgLaunchReplaceByVassalVote  = "launch-replace-player-by-vassal-vote"
	MsgLaunchReplaceVassalVote    = "launch-replace-vassal-by-player-vote"
	MsgLaunchSwapHousesVote       = "launch-swap-houses-vote"
	MsgGiftPowerTokens            = "gift-power-tokens"
	MsgPlaceOrders                = "place-orders"
	MsgResolveMarchOrder          = "resolve-march-order"
	MsgResolveRaid                = "resolve-raid"
	MsgChooseHouseCard            = "choose-house-card"
	MsgSelectRegion               = "select-region"
	MsgSelectUnits                = "select-units"
	MsgBid                        = "bid"
	MsgMuster                     = "muster"
	MsgReplaceOrder               = "replace-order"
	MsgSkipReplaceOrder           = "skip-replace-order"
	MsgChooseTopWildlingCardUsage = "choose-top-wildling-card-action"
	MsgDraftHouseCard             = "draft-house-card"
)

// Server -> client fact types.
const (
	MsgGameStarted             = "game-started"
	MsgNewTurn                 = "new-turn"
	MsgRevealOrders            = "reveal-orders"
	MsgRemoveOrders            = "remove-orders"
	MsgChangeOrder             = "action-phase-change-order"
	MsgChangePowerToken        = "change-power-token"
	MsgChangeControlPowerToken = "change-control-power-token"
	MsgChangeGarrison          = "change-garrison"
	MsgAddUnits                = "add-units"
	MsgRemoveUnits             = "remove-units"
	MsgMoveUnits               = "move-units"
	MsgUnitsWounded            = "units-wounded"
	MsgSupplyAdjusted          = "supply-adjusted"
	MsgChangeTracker           = "change-tracker"
	MsgChangeWildlingStrength  = "change-wildling-strength"
	MsgHideTopWildlingCard     = "hide-top-wildling-card"
	MsgRevealTopWildlingCard   = "reveal-top-wildling-card"
	MsgKnowsNextWildlingCard   = "knows-next-wildling-card"
	MsgUpdateWesterosDecks     = "update-westeros-decks"
	MsgVoteStarted             = "vote-started"
	MsgVoteChoice              = "vote-choice"
	MsgVoteDone                = "vote-done"
	MsgVoteCancelled           = "vote-cancelled"
	MsgPlayerReplaced          = "player-replaced"
	MsgVassalRelations         = "vassal-relations"
	MsgUpdateHouseCards        = "update-house-cards"
	MsgUpdateOldPlayerCards    = "update-old-player-house-cards"
	MsgHousesSwapped           = "houses-swapped"
	MsgGamePaused              = "game-paused"
	MsgGameEnded               = "game-ended"
	MsgGameCancelled           = "game-cancelled"
	MsgGameResumed             = "game-resumed"
	MsgStartPlayerClock        = "start-player-clock"
	MsgStopPlayerClock         = "stop-player-clock"
	MsgAddGameLog              = "add-game-log"
	MsgHouseCardChosen         = "house-card-chosen"
	MsgChangeCombatHouseCard   = "change-combat-house-card"
	MsgCombatChangeArmy        = "combat-change-army"
	MsgBidDone                 = "bid-done"
	MsgUpdateLoanCards         = "update-loan-cards"
)

// MarchMove is a single (destination, units) pair of a march-order batch.
type MarchMove struct {
	RegionID string `json:"regionId"`
	UnitIDs  []int  `json:"unitIds"`
}

// UnitSelection names units within one region.
type UnitSelection struct {
	RegionID string `json:"regionId"`
	UnitIDs  []int  `json:"unitIds"`
}

// Mustering is a recruitment request for one castle region.
type Mustering struct {
	RegionID  string   `json:"regionId"`
	UnitTypes []string `json:"unitTypes"`
}

// ClientMessage is a discriminated client->server intent. The Type field is
// read first to select a handler; unknown discriminants are ignored by
// design so that newer clients do not break older servers.
type ClientMessage struct {
	Type string `json:"type"`

	// Voting.
	Vote         string `json:"vote,omitempty"`
	Choice       *bool  `json:"choice,omitempty"`
	Player       string `json:"player,omitempty"`
	House        string `json:"house,omitempty"`
	SwappingUser string `json:"swappingUser,omitempty"`

	// Power tokens.
	ToHouse     string `json:"toHouse,omitempty"`
	PowerTokens int    `json:"powerTokens,omitempty"`

	// Orders and moves.
	Orders           map[string]string `json:"orders,omitempty"`
	StartingRegionID string            `json:"startingRegionId,omitempty"`
	Moves            []MarchMove       `json:"moves,omitempty"`
	PlacePowerToken  bool              `json:"placePowerToken,omitempty"`
	OrderRegionID    string            `json:"orderRegionId,omitempty"`
	TargetRegionID   string            `json:"targetRegionId,omitempty"`
	RegionID         string            `json:"regionId,omitempty"`
	OrderTypeID      string            `json:"order,omitempty"`

	// Cards, bids, selections.
	HouseCardID string          `json:"houseCardId,omitempty"`
	Bid         *int            `json:"bid,omitempty"`
	Units       []UnitSelection `json:"units,omitempty"`
	Musterings  []Mustering     `json:"musterings,omitempty"`
	Action      string          `json:"action,omitempty"`
}

// HouseSupply pairs a house with its new supply level.
type HouseSupply struct {
	HouseID string `json:"houseId"`
	Supply  int    `json:"supply"`
}

// HouseCardPick pairs a house with a chosen card id.
type HouseCardPick struct {
	HouseID     string `json:"houseId"`
	HouseCardID string `json:"houseCardId"`
}

// LogEntry is one structured game-log record.
type LogEntry struct {
	Time                  int64             `json:"time"`
	Kind                  string            `json:"kind"`
	Data                  map[string]string `json:"data,omitempty"`
	ResolvedAutomatically bool              `json:"resolvedAutomatically,omitempty"`
}

// ServerMessage is a discriminated server->client fact. Server messages are
// broadcast in the exact order the authoritative mutations occurred and
// clients apply them in receipt order.
type ServerMessage struct {
	Type string `json:"type"`

	// Board mutations.
	RegionID    string           `json:"regionId,omitempty"`
	FromID      string           `json:"from,omitempty"`
	ToID        string           `json:"to,omitempty"`
	UnitIDs     []int            `json:"unitIds,omitempty"`
	Units       []SerializedUnit `json:"units,omitempty"`
	IsRetreat   bool             `json:"isRetreat,omitempty"`
	Garrison    int              `json:"garrison,omitempty"`
	HouseID     string           `json:"houseId,omitempty"`
	PowerTokens int              `json:"powerTokenCount,omitempty"`
	Supplies    []HouseSupply    `json:"supplies,omitempty"`

	// Orders.
	Orders      map[string]string `json:"orders,omitempty"`
	Regions     []string          `json:"regions,omitempty"`
	OrderTypeID string            `json:"order,omitempty"`

	// Turn progression.
	Turn int `json:"turn,omitempty"`

	// Tracks, decks, wildlings.
	TrackerI         int                        `json:"trackerI,omitempty"`
	Tracker          []string                   `json:"tracker,omitempty"`
	WildlingStrength int                        `json:"wildlingStrength,omitempty"`
	Bids             map[string]int             `json:"bids,omitempty"`
	WildlingCardID   int                        `json:"cardId,omitempty"`
	WesterosDecks    [][]SerializedWesterosCard `json:"westerosDecks,omitempty"`
	LoanCardIDs      []int                      `json:"loanCardIds,omitempty"`

	// Votes and membership.
	Vote            []byte                `json:"vote,omitempty"`
	VoteID          string                `json:"voteId,omitempty"`
	Voter           string                `json:"voter,omitempty"`
	Choice          bool                  `json:"choice,omitempty"`
	OldUser         string                `json:"oldUser,omitempty"`
	NewUser         string                `json:"newUser,omitempty"`
	Initiator       string                `json:"initiator,omitempty"`
	SwappingUser    string                `json:"swappingUser,omitempty"`
	VassalRelations [][2]string           `json:"vassalRelations,omitempty"`
	HouseCards      []SerializedHouseCard `json:"houseCards,omitempty"`
	HouseCardPicks  []HouseCardPick       `json:"houseCardPicks,omitempty"`

	// Clocks and pause.
	UserID              string `json:"userId,omitempty"`
	RemainingSeconds    int    `json:"remainingSeconds,omitempty"`
	TimerStartedAt      int64  `json:"timerStartedAt,omitempty"`
	WillBeAutoResumedAt int64  `json:"willBeAutoResumedAt,omitempty"`

	// Game log.
	Log *LogEntry `json:"log,omitempty"`
}

// MessageReceiver abstracts the message channel. The production
// implementation publishes to NATS subjects; tests use an in-memory
// receiver that records the stream.
type MessageReceiver interface {
	// BroadcastMessage delivers an identical payload to every participant.
	BroadcastMessage(message *ServerMessage)
	// SendMessageToPlayer delivers a per-recipient payload (hidden
	// information) to a single user.
	SendMessageToPlayer(userID string, message *ServerMessage)
}
