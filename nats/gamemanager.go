package nats

import (
	"sync"

	natsgo "github.com/nats-io/nats.go"
	"github.com/rs/zerolog/log"

	"thronegate.com/server/caching"
	"thronegate.com/server/game"
	"thronegate.com/server/util"
)

var natsGMLogger = log.With().Str("logger_name", "nats::gamemanager").Logger()

// GameManager tracks the NatsGame adapters of this process, one per active
// game. It mirrors game.GameManager: when a game ends its adapter is
// cleaned up and removed.
type GameManager struct {
	nc            *natsgo.Conn
	snapshotCache *caching.SnapshotCache

	lock        sync.Mutex
	activeGames map[string]*NatsGame
}

func NewGameManager(snapshotCache *caching.SnapshotCache) (*GameManager, error) {
	natsURL := util.Env.GetNatsURL()
	nc, err := natsgo.Connect(natsURL)
	if err != nil {
		natsGMLogger.Error().Msgf("Failed to connect to nats server [%s]: %v", natsURL, err)
		return nil, err
	}
	return &GameManager{
		nc:            nc,
		snapshotCache: snapshotCache,
		activeGames:   make(map[string]*NatsGame),
	}, nil
}

// NewGame starts a fresh game session for the given players.
func (gm *GameManager) NewGame(gameCode string, players []*game.Player, draft bool, clocksEnabled bool, seed int64) (*NatsGame, error) {
	natsGMLogger.Info().Msgf("New game code %s with %d players", gameCode, len(players))
	natsGame, err := newNatsGame(gm.nc, gameCode, gm.snapshotCache)
	if err != nil {
		return nil, err
	}
	if err := natsGame.serverGame.StartNewGame(players, draft, clocksEnabled, seed); err != nil {
		natsGame.cleanup()
		return nil, err
	}
	gm.lock.Lock()
	gm.activeGames[gameCode] = natsGame
	gm.lock.Unlock()
	return natsGame, nil
}

// LoadGame resumes a persisted game after a restart.
func (gm *GameManager) LoadGame(gameCode string, seed int64) (*NatsGame, error) {
	natsGMLogger.Info().Msgf("Loading game code %s", gameCode)
	natsGame, err := newNatsGame(gm.nc, gameCode, gm.snapshotCache)
	if err != nil {
		return nil, err
	}
	if err := natsGame.serverGame.LoadGame(seed); err != nil {
		natsGame.cleanup()
		return nil, err
	}
	gm.lock.Lock()
	gm.activeGames[gameCode] = natsGame
	gm.lock.Unlock()
	return natsGame, nil
}

func (gm *GameManager) EndNatsGame(gameCode string) {
	gm.lock.Lock()
	natsGame, exists := gm.activeGames[gameCode]
	if exists {
		delete(gm.activeGames, gameCode)
	}
	gm.lock.Unlock()
	if !exists {
		return
	}
	natsGame.serverGame.End()
	natsGame.cleanup()
	if gm.snapshotCache != nil {
		gm.snapshotCache.Forget(gameCode)
	}
}

func (gm *GameManager) GetGame(gameCode string) *NatsGame {
	gm.lock.Lock()
	defer gm.lock.Unlock()
	return gm.activeGames[gameCode]
}
