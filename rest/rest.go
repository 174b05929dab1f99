package rest

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"thronegate.com/server/caching"
	"thronegate.com/server/game"
	"thronegate.com/server/nats"
	"thronegate.com/server/util"
)

var restLogger = log.With().Str("logger_name", "rest::rest").Logger()
var natsGameManager *nats.GameManager
var snapshotCache *caching.SnapshotCache

type appError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

type gameStatus struct {
	GameCode string `json:"gameCode"`
	Active   bool   `json:"active"`
}

type newGamePayload struct {
	GameCode string `json:"gameCode"`
	Players  []struct {
		UserID   string `json:"userId"`
		UserName string `json:"userName"`
		HouseID  string `json:"house"`
	} `json:"players"`
	Draft         bool  `json:"draft"`
	ClocksEnabled bool  `json:"clocksEnabled"`
	Seed          int64 `json:"seed"`
	ClockSeconds  int   `json:"clockSeconds"`
}

func RunRestServer(gameManager *nats.GameManager, cache *caching.SnapshotCache) {
	natsGameManager = gameManager
	snapshotCache = cache
	r := gin.Default()

	r.POST("/new-game", newGame)
	r.POST("/load-game", loadGame)
	r.POST("/end-game", endGame)
	r.GET("/game-state", gameState)
	r.POST("/player-connection", playerConnection)

	r.Run(fmt.Sprintf(":%d", util.Env.GetRestPort()))
}

func newGame(c *gin.Context) {
	var payload newGamePayload
	if err := c.BindJSON(&payload); err != nil {
		restLogger.Error().Msgf("Failed to parse game configuration. Error: %v", err)
		c.IndentedJSON(http.StatusBadRequest, appError{
			Code:    http.StatusBadRequest,
			Message: err.Error(),
		})
		return
	}
	if payload.GameCode == "" {
		c.IndentedJSON(http.StatusBadRequest, appError{
			Code:    http.StatusBadRequest,
			Message: "gameCode is required",
		})
		return
	}

	clockSeconds := payload.ClockSeconds
	if clockSeconds == 0 {
		clockSeconds = game.DefaultClockSeconds
	}
	players := make([]*game.Player, 0, len(payload.Players))
	for _, p := range payload.Players {
		players = append(players, &game.Player{
			UserID:                p.UserID,
			UserName:              p.UserName,
			HouseID:               p.HouseID,
			TotalRemainingSeconds: clockSeconds,
			Connected:             true,
		})
	}

	if _, err := natsGameManager.NewGame(payload.GameCode, players, payload.Draft, payload.ClocksEnabled, payload.Seed); err != nil {
		restLogger.Error().Msgf("Unable to initialize game [%s]: %v", payload.GameCode, err)
		c.IndentedJSON(http.StatusInternalServerError, appError{
			Code:    http.StatusInternalServerError,
			Message: err.Error(),
		})
		return
	}
	c.JSON(http.StatusOK, gameStatus{GameCode: payload.GameCode, Active: true})
}

func loadGame(c *gin.Context) {
	type payload struct {
		GameCode string `json:"gameCode"`
		Seed     int64  `json:"seed"`
	}
	var p payload
	if err := c.BindJSON(&p); err != nil {
		restLogger.Error().Msgf("Failed to parse load request. Error: %v", err)
		c.IndentedJSON(http.StatusBadRequest, appError{
			Code:    http.StatusBadRequest,
			Message: err.Error(),
		})
		return
	}
	if _, err := natsGameManager.LoadGame(p.GameCode, p.Seed); err != nil {
		restLogger.Error().Msgf("Unable to load game [%s]: %v", p.GameCode, err)
		c.IndentedJSON(http.StatusInternalServerError, appError{
			Code:    http.StatusInternalServerError,
			Message: err.Error(),
		})
		return
	}
	c.JSON(http.StatusOK, gameStatus{GameCode: p.GameCode, Active: true})
}

func endGame(c *gin.Context) {
	gameCode := c.Query("game-code")
	if gameCode == "" {
		c.String(http.StatusBadRequest, "Failed to read game-code param from end-game endpoint")
		return
	}
	natsGameManager.EndNatsGame(gameCode)
	c.JSON(http.StatusOK, gameStatus{GameCode: gameCode, Active: false})
}

// gameState serves the viewer's snapshot of a running game, through the
// snapshot cache.
func gameState(c *gin.Context) {
	gameCode := c.Query("game-code")
	if gameCode == "" {
		c.String(http.StatusBadRequest, "Failed to read game-code param from game-state endpoint")
		return
	}
	userID := c.Query("user-id")
	admin := c.Query("admin") == "true"

	if !admin {
		if cached, ok := snapshotCache.Get(gameCode, userID); ok {
			c.Data(http.StatusOK, "application/json", cached)
			return
		}
	}

	serverGame := game.GameManager.GetGame(gameCode)
	if serverGame == nil {
		c.IndentedJSON(http.StatusNotFound, appError{
			Code:    http.StatusNotFound,
			Message: fmt.Sprintf("game [%s] is not active", gameCode),
		})
		return
	}
	snapshot, err := serverGame.SerializeForViewer(admin, userID)
	if err != nil {
		restLogger.Error().Msgf("Failed to serialize game [%s]: %v", gameCode, err)
		c.IndentedJSON(http.StatusInternalServerError, appError{
			Code:    http.StatusInternalServerError,
			Message: err.Error(),
		})
		return
	}
	if !admin {
		snapshotCache.Put(gameCode, userID, snapshot)
	}
	c.Data(http.StatusOK, "application/json", snapshot)
}

func playerConnection(c *gin.Context) {
	type payload struct {
		GameCode  string `json:"gameCode"`
		UserID    string `json:"userId"`
		Connected bool   `json:"connected"`
	}
	var p payload
	if err := c.BindJSON(&p); err != nil {
		restLogger.Error().Msgf("Failed to read player connection update. Error: %v", err)
		c.String(http.StatusBadRequest, "bad payload")
		return
	}
	serverGame := game.GameManager.GetGame(p.GameCode)
	if serverGame == nil {
		c.String(http.StatusNotFound, "game not found")
		return
	}
	serverGame.SetPlayerConnected(p.UserID, p.Connected)
	c.Status(http.StatusOK)
}
