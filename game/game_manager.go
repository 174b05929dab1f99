package game

import (
	"fmt"

	"thronegate.com/server/util"
)

var GameManager *Manager

// CreateGameManager builds the process-wide manager singleton. The persist
// backend comes from the environment; anything but redis falls back to the
// in-memory tracker.
func CreateGameManager(content *Content) (*Manager, error) {
	if GameManager != nil {
		return GameManager, nil
	}

	var statePersist PersistGameState
	if util.Env.GetPersistMethod() == "redis" {
		redisAddr := fmt.Sprintf("%s:%d", util.Env.GetRedisHost(), util.Env.GetRedisPort())
		statePersist = NewRedisGameStateTracker(redisAddr, util.Env.GetRedisPW(), util.Env.GetRedisDB())
	} else {
		var err error
		statePersist, err = NewMemoryGameStateTracker()
		if err != nil {
			return nil, err
		}
	}

	manager, err := NewGameManager(content, statePersist)
	if err != nil {
		return nil, err
	}
	GameManager = manager
	return GameManager, nil
}
