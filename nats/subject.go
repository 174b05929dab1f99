package nats

import (
	"fmt"
)

func GetGame2AllPlayersSubject(gameCode string) string {
	return fmt.Sprintf("game.%s.player.all", gameCode)
}

func GetGame2PlayerSubject(gameCode string, userID string) string {
	return fmt.Sprintf("game.%s.player.%s", gameCode, userID)
}

func GetPlayer2GameSubject(gameCode string) string {
	return fmt.Sprintf("player.%s.game.*", gameCode)
}
