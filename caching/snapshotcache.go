package caching

import (
	"fmt"
	"sync"

	lru "github.com/hashicorp/golang-lru"
	"github.com/pkg/errors"
)

// SnapshotCache keeps recently rendered per-viewer game snapshots so the
// REST layer does not re-serialize the state tree for every poll. Entries
// are keyed by game code, a per-game version and the viewer; bumping the
// version on any broadcast makes all cached views of that game stale, and
// stale entries age out of the LRU on their own.
type SnapshotCache struct {
	lock     sync.Mutex
	versions map[string]uint64
	cache    *lru.Cache
}

func NewSnapshotCache(size int) (*SnapshotCache, error) {
	c, err := lru.New(size)
	if err != nil {
		return nil, errors.Wrap(err, "Unable to initialize snapshot cache")
	}
	return &SnapshotCache{
		versions: make(map[string]uint64),
		cache:    c,
	}, nil
}

func (c *SnapshotCache) key(gameCode, userID string) string {
	return fmt.Sprintf("%s:%d:%s", gameCode, c.versions[gameCode], userID)
}

func (c *SnapshotCache) Get(gameCode, userID string) ([]byte, bool) {
	c.lock.Lock()
	defer c.lock.Unlock()
	v, ok := c.cache.Get(c.key(gameCode, userID))
	if !ok {
		return nil, false
	}
	return v.([]byte), true
}

func (c *SnapshotCache) Put(gameCode, userID string, snapshot []byte) {
	c.lock.Lock()
	defer c.lock.Unlock()
	c.cache.Add(c.key(gameCode, userID), snapshot)
}

// Invalidate drops all cached views of a game.
func (c *SnapshotCache) Invalidate(gameCode string) {
	c.lock.Lock()
	defer c.lock.Unlock()
	c.versions[gameCode]++
}

// Forget removes a finished game's version tracking.
func (c *SnapshotCache) Forget(gameCode string) {
	c.lock.Lock()
	defer c.lock.Unlock()
	delete(c.versions, gameCode)
}
