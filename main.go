package main

import (
	"flag"
	"fmt"
	"math/rand"
	"os"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"thronegate.com/server/caching"
	"thronegate.com/server/game"
	"thronegate.com/server/nats"
	"thronegate.com/server/rest"
	"thronegate.com/server/util"
)

var contentDir *string
var snapshotCacheSize *int
var mainLogger = log.With().Str("logger_name", "main::main").Logger()

func init() {
	contentDir = flag.String("content", "", "directory holding content.yaml; empty uses the built-in content")
	snapshotCacheSize = flag.Int("snapshot-cache", 256, "number of per-viewer snapshots to cache")
}

func main() {
	rand.Seed(time.Now().UnixNano())

	if err := run(); err != nil {
		mainLogger.Error().Msg(err.Error())
		os.Exit(1)
	}
}

func run() error {
	logLevel := util.Env.GetZeroLogLevel()
	fmt.Printf("Setting log level to %s\n", logLevel)
	zerolog.SetGlobalLevel(logLevel)
	flag.Parse()

	var content *game.Content
	dir := *contentDir
	if dir == "" {
		dir = util.Env.GetContentDir()
	}
	if dir == "" {
		content = game.DefaultContent()
	} else {
		var err error
		content, err = game.LoadContent(dir)
		if err != nil {
			return errors.Wrap(err, "Error while loading game content")
		}
	}

	if _, err := game.CreateGameManager(content); err != nil {
		return errors.Wrap(err, "Error while creating game manager")
	}

	snapshotCache, err := caching.NewSnapshotCache(*snapshotCacheSize)
	if err != nil {
		return errors.Wrap(err, "Error while creating snapshot cache")
	}

	natsGameManager, err := nats.NewGameManager(snapshotCache)
	if err != nil {
		return errors.Wrap(err, "Error while creating nats game manager")
	}

	mainLogger.Info().Msgf("Game server listening on port %d", util.Env.GetRestPort())
	rest.RunRestServer(natsGameManager, snapshotCache)
	return nil
}
