package game

import (
	"github.com/pkg/errors"
)

type MemoryGameStateTracker struct {
	activeGames map[string][]byte
}

func NewMemoryGameStateTracker() (*MemoryGameStateTracker, error) {
	return &MemoryGameStateTracker{
		activeGames: make(map[string][]byte),
	}, nil
}

func (m *MemoryGameStateTracker) Load(gameCode string) ([]byte, error) {
	if snapshot, ok := m.activeGames[gameCode]; ok {
		return snapshot, nil
	}
	return nil, errors.Errorf("Game state for code: %s is not found", gameCode)
}

func (m *MemoryGameStateTracker) Save(gameCode string, snapshot []byte) error {
	m.activeGames[gameCode] = snapshot
	return nil
}

func (m *MemoryGameStateTracker) Remove(gameCode string) error {
	delete(m.activeGames, gameCode)
	return nil
}
