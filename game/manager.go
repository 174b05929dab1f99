package game

import (
	"sync"

	"github.com/pkg/errors"
)

// Manager tracks the active games of this server process.
type Manager struct {
	content      *Content
	statePersist PersistGameState

	lock        sync.Mutex
	activeGames map[string]*Game
}

func NewGameManager(content *Content, statePersist PersistGameState) (*Manager, error) {
	return &Manager{
		content:      content,
		statePersist: statePersist,
		activeGames:  make(map[string]*Game),
	}, nil
}

// InitializeGame registers a new game under its code. The caller starts it
// with StartNewGame or LoadGame.
func (gm *Manager) InitializeGame(gameCode string, messageReceiver MessageReceiver) (*Game, error) {
	gm.lock.Lock()
	defer gm.lock.Unlock()
	if _, ok := gm.activeGames[gameCode]; ok {
		return nil, errors.Errorf("game [%s] is already active", gameCode)
	}
	g := NewGame(gameCode, gm.content, messageReceiver, gm.statePersist, gm)
	gm.activeGames[gameCode] = g
	return g, nil
}

func (gm *Manager) GetGame(gameCode string) *Game {
	gm.lock.Lock()
	defer gm.lock.Unlock()
	return gm.activeGames[gameCode]
}

func (gm *Manager) ActiveGameCount() int {
	gm.lock.Lock()
	defer gm.lock.Unlock()
	return len(gm.activeGames)
}

func (gm *Manager) gameEnded(game *Game) {
	gm.lock.Lock()
	defer gm.lock.Unlock()
	delete(gm.activeGames, game.gameCode)
}
