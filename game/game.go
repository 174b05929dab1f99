package game

import (
	"math/rand"
	"runtime/debug"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"thronegate.com/server/logging"
)

var channelGameLogger = log.With().Str("logger_name", "game::game").Logger()

type queuedClientMessage struct {
	userID string
	data   []byte
}

type firedTimer struct {
	kind   TimerKind
	userID string
}

// Game owns one running session. All game mutations happen on the runGame
// goroutine; client intents and timer fires are queued onto channels so the
// state tree itself never needs a lock.
type Game struct {
	manager  *Manager
	gameCode string

	end      chan bool
	chClient chan queuedClientMessage
	chTimer  chan firedTimer

	receiver MessageReceiver
	persist  PersistGameState
	content  *Content

	ingame *IngameState

	timerLock sync.Mutex
	timers    map[string]*time.Timer
}

func NewGame(
	gameCode string,
	content *Content,
	receiver MessageReceiver,
	persist PersistGameState,
	manager *Manager) *Game {
	g := &Game{
		manager:  manager,
		gameCode: gameCode,
		end:      make(chan bool),
		chClient: make(chan queuedClientMessage, 64),
		chTimer:  make(chan firedTimer, 16),
		receiver: receiver,
		persist:  persist,
		content:  content,
		timers:   make(map[string]*time.Timer),
	}
	return g
}

func (g *Game) GameCode() string { return g.gameCode }

// ScheduleTimer arms (or re-arms) the timer for (kind, userID). The fire is
// queued onto the game loop; stale fires are re-validated by the state tree.
func (g *Game) ScheduleTimer(kind TimerKind, userID string, fireAt time.Time) {
	g.timerLock.Lock()
	defer g.timerLock.Unlock()
	key := string(kind) + ":" + userID
	if t, ok := g.timers[key]; ok {
		t.Stop()
	}
	delay := time.Until(fireAt)
	if delay < 0 {
		delay = 0
	}
	g.timers[key] = time.AfterFunc(delay, func() {
		select {
		case g.chTimer <- firedTimer{kind: kind, userID: userID}:
		case <-time.After(10 * time.Second):
			channelGameLogger.Warn().
				Str(logging.GameCodeKey, g.gameCode).
				Str(logging.TimerKindKey, string(kind)).
				Msg("Dropping timer fire: game loop did not accept it")
		}
	})
}

func (g *Game) stopTimers() {
	g.timerLock.Lock()
	defer g.timerLock.Unlock()
	for _, t := range g.timers {
		t.Stop()
	}
	g.timers = make(map[string]*time.Timer)
}

// StartNewGame sets up a fresh board and begins the first round.
func (g *Game) StartNewGame(players []*Player, draft bool, clocksEnabled bool, seed int64) error {
	rng := rand.New(rand.NewSource(seed))
	houseIDs := make([]string, 0, len(players))
	for _, p := range players {
		houseIDs = append(houseIDs, p.HouseID)
	}
	board, err := NewBoard(g.content, houseIDs, rng)
	if err != nil {
		return err
	}
	g.ingame = NewIngameState(g.content, g.receiver, g, rng)
	g.ingame.FirstStart(board, players, draft, clocksEnabled)
	g.ingame.RecalculateClocks(time.Now())
	g.saveState()
	go g.runGame()
	return nil
}

// LoadGame reconstructs a persisted game and resumes its loop.
func (g *Game) LoadGame(seed int64) error {
	snapshot, err := g.persist.Load(g.gameCode)
	if err != nil {
		return err
	}
	rng := rand.New(rand.NewSource(seed))
	ingame, err := ReconstructIngame(snapshot, g.content, g.receiver, g, rng)
	if err != nil {
		return err
	}
	g.ingame = ingame
	g.ingame.RecalculateClocks(time.Now())
	go g.runGame()
	return nil
}

// SendClientMessage queues a raw client intent for the game loop. It never
// blocks the transport: a full queue drops the message.
func (g *Game) SendClientMessage(userID string, data []byte) {
	select {
	case g.chClient <- queuedClientMessage{userID: userID, data: data}:
	default:
		channelGameLogger.Warn().
			Str(logging.GameCodeKey, g.gameCode).
			Str(logging.UserIDKey, userID).
			Msg("Dropping client message: game queue full")
	}
}

func (g *Game) End() {
	close(g.end)
}

func (g *Game) runGame() {
	defer g.stopTimers()
	ended := false
	for !ended {
		select {
		case <-g.end:
			ended = true
		case message := <-g.chClient:
			g.dispatch(func() { g.handleClientMessage(message) })
		case fired := <-g.chTimer:
			g.dispatch(func() { g.handleTimer(fired) })
		}
		if g.ingame != nil && g.ingame.IsEnded() {
			ended = true
		}
	}
	if g.manager != nil {
		g.manager.gameEnded(g)
	}
}

// dispatch runs one message handler. A panic in game logic must not take
// the whole server down, so it is logged and the game keeps running from
// its last consistent snapshot. Clocks and persistence run even when the
// handler panics.
func (g *Game) dispatch(handler func()) {
	defer func() {
		if r := recover(); r != nil {
			channelGameLogger.Error().
				Str(logging.GameCodeKey, g.gameCode).
				Msgf("Recovered from panic in game loop: %v\n%s", r, string(debug.Stack()))
		}
		g.ingame.RecalculateClocks(time.Now())
		g.saveState()
	}()
	handler()
}

func (g *Game) handleClientMessage(queued queuedClientMessage) {
	var message ClientMessage
	if err := jsonit.Unmarshal(queued.data, &message); err != nil {
		channelGameLogger.Warn().
			Str(logging.GameCodeKey, g.gameCode).
			Str(logging.UserIDKey, queued.userID).
			Msgf("Dropping unparseable client message: %v", err)
		return
	}
	player := g.ingame.PlayerByUserID(queued.userID)
	if player == nil {
		channelGameLogger.Warn().
			Str(logging.GameCodeKey, g.gameCode).
			Str(logging.UserIDKey, queued.userID).
			Msg("Dropping client message: sender is not a player of this game")
		return
	}
	g.ingame.OnPlayerMessage(player, &message)
}

func (g *Game) handleTimer(fired firedTimer) {
	now := time.Now()
	switch fired.kind {
	case TimerPlayerClock:
		g.ingame.OnPlayerClockTimeout(fired.userID, now)
	case TimerAutoResume:
		g.ingame.OnAutoResumeTimer(now)
	default:
		channelGameLogger.Warn().
			Str(logging.GameCodeKey, g.gameCode).
			Str(logging.TimerKindKey, string(fired.kind)).
			Msg("Unknown timer kind fired")
	}
}

func (g *Game) saveState() {
	snapshot, err := g.ingame.SerializeToClient(true, nil)
	if err != nil {
		channelGameLogger.Error().
			Str(logging.GameCodeKey, g.gameCode).
			Msgf("Failed to serialize game state: %v", err)
		return
	}
	if err := g.persist.Save(g.gameCode, snapshot); err != nil {
		channelGameLogger.Error().
			Str(logging.GameCodeKey, g.gameCode).
			Msgf("Failed to persist game state: %v", err)
	}
}

// SerializeForViewer snapshots the current tree for one viewer. It is only
// safe to call from the game loop or before the loop starts; transports
// should prefer the snapshot cache fed by broadcasts.
func (g *Game) SerializeForViewer(admin bool, userID string) ([]byte, error) {
	var viewer *Player
	if userID != "" {
		viewer = g.ingame.PlayerByUserID(userID)
	}
	return g.ingame.SerializeToClient(admin, viewer)
}

// SetPlayerConnected flags connection state for a player and rebroadcasts
// nothing: presence is a lobby concern, the game only records it.
func (g *Game) SetPlayerConnected(userID string, connected bool) {
	player := g.ingame.PlayerByUserID(userID)
	if player != nil {
		player.Connected = connected
	}
}
