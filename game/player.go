package game

import "time"

// Player binds a user to a house for the lifetime of a game (or until a
// replacement vote swaps them out).
type Player struct {
	UserID   string
	UserName string
	HouseID  string

	// Player clock state. TotalRemainingSeconds only changes while the
	// clock runs; ClockStartedAt is zero while it is stopped.
	TotalRemainingSeconds int
	ClockStartedAt        time.Time

	Connected bool
}

// LiveRemainingSeconds is the clock value right now, accounting for a
// running clock.
func (p *Player) LiveRemainingSeconds(now time.Time) int {
	remaining := p.TotalRemainingSeconds
	if !p.ClockStartedAt.IsZero() {
		remaining -= int(now.Sub(p.ClockStartedAt).Seconds())
	}
	if remaining < 0 {
		return 0
	}
	return remaining
}

// StartClock begins counting down. Starting an already running clock is a
// no-op.
func (p *Player) StartClock(now time.Time) {
	if !p.ClockStartedAt.IsZero() {
		return
	}
	p.ClockStartedAt = now
}

// StopClock halts the countdown and banks the elapsed time.
func (p *Player) StopClock(now time.Time) {
	if p.ClockStartedAt.IsZero() {
		return
	}
	p.TotalRemainingSeconds = p.LiveRemainingSeconds(now)
	p.ClockStartedAt = time.Time{}
}

type SerializedPlayer struct {
	UserID                string `json:"userId"`
	UserName              string `json:"userName"`
	HouseID               string `json:"house"`
	TotalRemainingSeconds int    `json:"totalRemainingSeconds"`
	ClockRunning          bool   `json:"clockRunning,omitempty"`
	Connected             bool   `json:"connected,omitempty"`
}

func (p *Player) serialize(now time.Time) SerializedPlayer {
	return SerializedPlayer{
		UserID:                p.UserID,
		UserName:              p.UserName,
		HouseID:               p.HouseID,
		TotalRemainingSeconds: p.LiveRemainingSeconds(now),
		ClockRunning:          !p.ClockStartedAt.IsZero(),
		Connected:             p.Connected,
	}
}
