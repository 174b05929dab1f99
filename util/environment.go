package util

import (
	"os"
	"strconv"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

var environmentLogger = log.With().Str("logger_name", "util::environment").Logger()

type environment struct {
	NatsURL       string
	RedisHost     string
	RedisPort     string
	RedisPW       string
	RedisDB       string
	RestPort      string
	ContentDir    string
	PersistMethod string
	LogLevel      string
}

// Env is a helper object for accessing environment variables.
var Env = &environment{
	NatsURL:       "NATS_URL",
	RedisHost:     "REDIS_HOST",
	RedisPort:     "REDIS_PORT",
	RedisPW:       "REDIS_PW",
	RedisDB:       "REDIS_DB",
	RestPort:      "REST_PORT",
	ContentDir:    "CONTENT_DIR",
	PersistMethod: "PERSIST_METHOD",
	LogLevel:      "LOG_LEVEL",
}

func (e *environment) GetNatsURL() string {
	url := os.Getenv(e.NatsURL)
	if url == "" {
		return "nats://localhost:4222"
	}
	return url
}

func (e *environment) GetRedisHost() string {
	host := os.Getenv(e.RedisHost)
	if host == "" {
		return "localhost"
	}
	return host
}

func (e *environment) GetRedisPort() int {
	portStr := os.Getenv(e.RedisPort)
	if portStr == "" {
		return 6379
	}
	portNum, err := strconv.Atoi(portStr)
	if err != nil {
		environmentLogger.Error().Msgf("Invalid %s value [%s]. Using default 6379", e.RedisPort, portStr)
		return 6379
	}
	return portNum
}

func (e *environment) GetRedisPW() string {
	return os.Getenv(e.RedisPW)
}

func (e *environment) GetRedisDB() int {
	dbStr := os.Getenv(e.RedisDB)
	if dbStr == "" {
		return 0
	}
	dbNum, err := strconv.Atoi(dbStr)
	if err != nil {
		environmentLogger.Error().Msgf("Invalid %s value [%s]. Using default 0", e.RedisDB, dbStr)
		return 0
	}
	return dbNum
}

func (e *environment) GetRestPort() int {
	portStr := os.Getenv(e.RestPort)
	if portStr == "" {
		return 8080
	}
	portNum, err := strconv.Atoi(portStr)
	if err != nil {
		environmentLogger.Error().Msgf("Invalid %s value [%s]. Using default 8080", e.RestPort, portStr)
		return 8080
	}
	return portNum
}

func (e *environment) GetContentDir() string {
	return os.Getenv(e.ContentDir)
}

// GetPersistMethod returns "redis" or "memory".
func (e *environment) GetPersistMethod() string {
	method := os.Getenv(e.PersistMethod)
	if method == "" {
		return "memory"
	}
	return method
}

func (e *environment) GetZeroLogLevel() zerolog.Level {
	levelStr := os.Getenv(e.LogLevel)
	if levelStr == "" {
		return zerolog.InfoLevel
	}
	level, err := zerolog.ParseLevel(levelStr)
	if err != nil {
		environmentLogger.Error().Msgf("Invalid %s value [%s]. Using info", e.LogLevel, levelStr)
		return zerolog.InfoLevel
	}
	return level
}
