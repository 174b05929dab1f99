package game

import (
	"strconv"
	"time"
)

// GameEndedState is the terminal state of a finished game.
type GameEndedState struct {
	baseGameState
	ingame *IngameState

	winnerHouseID   string
	maxTurnsReached bool
}

func newGameEndedState(ingame *IngameState) *GameEndedState {
	g := &GameEndedState{ingame: ingame}
	g.parent = ingame
	return g
}

func (g *GameEndedState) Type() string { return StateGameEnded }

func (g *GameEndedState) FirstStart(winnerHouseID string, maxTurnsReached bool) {
	g.winnerHouseID = winnerHouseID
	g.maxTurnsReached = maxTurnsReached
	for _, player := range g.ingame.SortedPlayers() {
		player.StopClock(time.Now())
	}
	g.ingame.Broadcast(&ServerMessage{Type: MsgGameEnded, HouseID: winnerHouseID})
	g.ingame.Log("game-ended", map[string]string{
		"winner":          winnerHouseID,
		"maxTurnsReached": strconv.FormatBool(maxTurnsReached),
	}, true)
}

func (g *GameEndedState) WinnerHouseID() string { return g.winnerHouseID }

// CancelledState is the terminal state of an abandoned game.
type CancelledState struct {
	baseGameState
	ingame *IngameState
}

func newCancelledState(ingame *IngameState) *CancelledState {
	c := &CancelledState{ingame: ingame}
	c.parent = ingame
	return c
}

func (c *CancelledState) Type() string { return StateCancelled }

func (c *CancelledState) FirstStart() {
	for _, player := range c.ingame.SortedPlayers() {
		player.StopClock(time.Now())
	}
	c.ingame.Broadcast(&ServerMessage{Type: MsgGameCancelled})
	c.ingame.Log("game-cancelled", map[string]string{}, true)
}
