package game

import (
	"github.com/rs/zerolog/log"
)

var gameStateLogger = log.With().Str("logger_name", "game::gamestate").Logger()

// GameState is one node of the hierarchical phase state machine. A node owns
// at most one active child at a time; the path from the root to the deepest
// child is the active chain, and only the leaf handles raw player intents
// unless a node on the chain intercepts a message addressed to itself.
type GameState interface {
	// Type returns the discriminant tag written into snapshots and used by
	// the snapshot registry to pick the reconstruction function.
	Type() string

	Parent() GameState
	ChildGameState() GameState

	// SetChildGameState is the sole state-transition primitive.
	SetChildGameState(child GameState)

	// OnPlayerMessage handles a client intent. The default behavior is to
	// delegate to the active child; messages that no node recognizes are
	// dropped.
	OnPlayerMessage(player *Player, message *ClientMessage)

	// OnServerMessage applies an authoritative fact to a mirrored tree.
	// Client mirrors replay the server message stream through this method;
	// the server itself never calls it on the authoritative tree.
	OnServerMessage(message *ServerMessage)

	// SerializeToClient produces the tagged snapshot of this node and,
	// recursively, its active child. admin requests the unfiltered view;
	// viewer (nullable) filters to what that player may legally see.
	SerializeToClient(admin bool, viewer *Player) ([]byte, error)
}

// waitedUsersProvider is implemented by nodes that block on specific
// players' input.
type waitedUsersProvider interface {
	WaitedUsers() []string
}

// vassalReplacementReactor is implemented by nodes that need to react when a
// house on the active chain is replaced by a vassal (e.g. auto-pass a choice
// the departing player owned).
type vassalReplacementReactor interface {
	ActionAfterVassalReplacement(house *House)
}

// baseGameState carries the parent/child plumbing shared by every node.
// Concrete nodes embed it and override the message handlers they care about.
type baseGameState struct {
	parent GameState
	child  GameState
}

func (b *baseGameState) Parent() GameState {
	return b.parent
}

func (b *baseGameState) ChildGameState() GameState {
	return b.child
}

// SetChildGameState replaces the current active child, discarding the
// previous one. This is the sole mutation primitive for phase transitions;
// the caller invokes the new child's FirstStart immediately afterwards.
func (b *baseGameState) SetChildGameState(child GameState) {
	b.child = child
}

func (b *baseGameState) OnPlayerMessage(player *Player, message *ClientMessage) {
	if b.child == nil {
		gameStateLogger.Warn().
			Str("msgType", message.Type).
			Msg("Dropping player message: no child state to delegate to")
		return
	}
	b.child.OnPlayerMessage(player, message)
}

func (b *baseGameState) OnServerMessage(message *ServerMessage) {
	if b.child == nil {
		return
	}
	b.child.OnServerMessage(message)
}

// LeafState returns the deepest node of the active chain.
func LeafState(root GameState) GameState {
	state := root
	for state.ChildGameState() != nil {
		state = state.ChildGameState()
	}
	return state
}

// FindState walks the active chain from root to leaf and returns the first
// node with the given type tag, or nil.
func FindState(root GameState, stateType string) GameState {
	for state := root; state != nil; state = state.ChildGameState() {
		if state.Type() == stateType {
			return state
		}
	}
	return nil
}

// HasState reports whether a node with the given type tag is on the active
// chain.
func HasState(root GameState, stateType string) bool {
	return FindState(root, stateType) != nil
}

// WaitedUsers collects the user ids the leaf of the active chain is blocked
// on. Nodes that do not block on anyone report no users.
func WaitedUsers(root GameState) []string {
	if provider, ok := LeafState(root).(waitedUsersProvider); ok {
		return provider.WaitedUsers()
	}
	return nil
}
