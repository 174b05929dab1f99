package game

// PersistGameState stores admin snapshots of running games keyed by game
// code. Snapshots are the full serialized state tree, so a loaded game can
// be reconstructed mid-phase.
type PersistGameState interface {
	Load(gameCode string) ([]byte, error)
	Save(gameCode string, snapshot []byte) error
	Remove(gameCode string) error
}
