package game

import "time"

// GameLog is the append-only record of notable events, streamed to clients
// and kept in snapshots.
type GameLog struct {
	Entries []LogEntry
}

func (gl *GameLog) append(kind string, data map[string]string, resolvedAutomatically bool) LogEntry {
	entry := LogEntry{
		Time:                  time.Now().Unix(),
		Kind:                  kind,
		Data:                  data,
		ResolvedAutomatically: resolvedAutomatically,
	}
	gl.Entries = append(gl.Entries, entry)
	return entry
}
