package nats

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestSubjects(t *testing.T) {
	testCases := []struct {
		name     string
		got      string
		expected string
	}{
		{
			name:     "game to all players",
			got:      GetGame2AllPlayersSubject("ABCDEF"),
			expected: "game.ABCDEF.player.all",
		},
		{
			name:     "game to one player",
			got:      GetGame2PlayerSubject("ABCDEF", "user-1"),
			expected: "game.ABCDEF.player.user-1",
		},
		{
			name:     "players to game",
			got:      GetPlayer2GameSubject("ABCDEF"),
			expected: "player.ABCDEF.game.*",
		},
	}
	for _, tc := range testCases {
		if !cmp.Equal(tc.expected, tc.got) {
			t.Errorf("%s: %s != %s", tc.name, tc.got, tc.expected)
		}
	}
}
