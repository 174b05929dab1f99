package nats

import (
	"strings"

	jsoniter "github.com/json-iterator/go"
	natsgo "github.com/nats-io/nats.go"
	"github.com/rs/zerolog/log"

	"thronegate.com/server/caching"
	"thronegate.com/server/game"
	"thronegate.com/server/logging"
)

var natsLogger = log.With().Str("logger_name", "nats::game").Logger()

var jsonit = jsoniter.ConfigCompatibleWithStandardLibrary

// NatsGame bridges one game session to the NATS server. Incoming player
// intents arrive on player.<code>.game.<userID>; the game broadcasts to
// game.<code>.player.all and sends hidden information to
// game.<code>.player.<userID>.
type NatsGame struct {
	gameCode string

	game2AllPlayersSubject string

	player2GameSubscription *natsgo.Subscription
	natsConn                *natsgo.Conn

	snapshotCache *caching.SnapshotCache
	serverGame    *game.Game
}

func newNatsGame(nc *natsgo.Conn, gameCode string, snapshotCache *caching.SnapshotCache) (*NatsGame, error) {
	natsGame := &NatsGame{
		gameCode:               gameCode,
		game2AllPlayersSubject: GetGame2AllPlayersSubject(gameCode),
		natsConn:               nc,
		snapshotCache:          snapshotCache,
	}

	player2GameSubject := GetPlayer2GameSubject(gameCode)
	var e error
	natsGame.player2GameSubscription, e = nc.Subscribe(player2GameSubject, natsGame.player2Game)
	if e != nil {
		natsLogger.Error().
			Str(logging.GameCodeKey, gameCode).
			Msgf("Failed to subscribe to %s", player2GameSubject)
		return nil, e
	}

	serverGame, err := game.GameManager.InitializeGame(gameCode, natsGame)
	if err != nil {
		natsGame.cleanup()
		return nil, err
	}
	natsGame.serverGame = serverGame
	return natsGame, nil
}

func (n *NatsGame) cleanup() {
	if n.player2GameSubscription != nil {
		n.player2GameSubscription.Unsubscribe()
	}
}

// player2Game forwards a raw client intent to the game loop. The sender's
// user id is the last subject token.
func (n *NatsGame) player2Game(msg *natsgo.Msg) {
	tokens := strings.Split(msg.Subject, ".")
	userID := tokens[len(tokens)-1]
	if userID == "" || userID == "*" {
		natsLogger.Warn().
			Str(logging.GameCodeKey, n.gameCode).
			Str("subject", msg.Subject).
			Msg("Dropping player message without a user id")
		return
	}
	n.serverGame.SendClientMessage(userID, msg.Data)
}

// BroadcastMessage delivers an authoritative fact to every participant and
// invalidates cached snapshots of this game.
func (n *NatsGame) BroadcastMessage(message *game.ServerMessage) {
	data, err := jsonit.Marshal(message)
	if err != nil {
		natsLogger.Error().
			Str(logging.GameCodeKey, n.gameCode).
			Str(logging.MsgTypeKey, message.Type).
			Msgf("Failed to marshal server message: %v", err)
		return
	}
	if n.snapshotCache != nil {
		n.snapshotCache.Invalidate(n.gameCode)
	}
	if err := n.natsConn.Publish(n.game2AllPlayersSubject, data); err != nil {
		natsLogger.Error().
			Str(logging.GameCodeKey, n.gameCode).
			Str(logging.MsgTypeKey, message.Type).
			Msgf("Failed to publish broadcast: %v", err)
	}
}

// SendMessageToPlayer delivers hidden information to one user.
func (n *NatsGame) SendMessageToPlayer(userID string, message *game.ServerMessage) {
	data, err := jsonit.Marshal(message)
	if err != nil {
		natsLogger.Error().
			Str(logging.GameCodeKey, n.gameCode).
			Str(logging.UserIDKey, userID).
			Str(logging.MsgTypeKey, message.Type).
			Msgf("Failed to marshal server message: %v", err)
		return
	}
	if n.snapshotCache != nil {
		n.snapshotCache.Invalidate(n.gameCode)
	}
	subject := GetGame2PlayerSubject(n.gameCode, userID)
	if err := n.natsConn.Publish(subject, data); err != nil {
		natsLogger.Error().
			Str(logging.GameCodeKey, n.gameCode).
			Str(logging.UserIDKey, userID).
			Str(logging.MsgTypeKey, message.Type).
			Msgf("Failed to publish player message: %v", err)
	}
}
