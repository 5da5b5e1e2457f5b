package utils

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	log "github.com/sirupsen/logrus"
)

const ENV_FILENAME = ".env"
const ENHANCED_ENV_FILENAME = ".env.enhanced"

// InitEnvironmentVariables loads the base .env file plus the optional
// .env.enhanced overrides carrying the strategy tunables. In production the
// environment is expected to be populated by the deployment instead.
func InitEnvironmentVariables() error {
	if os.Getenv("GO_ENV") == "production" {
		log.Info("Running in production environment")
		return nil
	}

	if err := godotenv.Load(ENV_FILENAME); err != nil {
		log.Warnf("no %s file found, relying on process environment", ENV_FILENAME)
	}

	if err := godotenv.Load(ENHANCED_ENV_FILENAME); err != nil {
		log.Debugf("no %s file found, using default strategy tunables", ENHANCED_ENV_FILENAME)
	}

	return nil
}

// GetEnvFloat reads a float from the environment, falling back to
// defaultValue when unset or unparseable.
func GetEnvFloat(key string, defaultValue float64) float64 {
	raw := os.Getenv(key)
	if raw == "" {
		return defaultValue
	}

	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		log.Warnf("GetEnvFloat: invalid %s=%q, using default %v", key, raw, defaultValue)
		return defaultValue
	}

	return v
}

// GetEnvInt reads an int from the environment, falling back to defaultValue
// when unset or unparseable.
func GetEnvInt(key string, defaultValue int) int {
	raw := os.Getenv(key)
	if raw == "" {
		return defaultValue
	}

	v, err := strconv.Atoi(raw)
	if err != nil {
		log.Warnf("GetEnvInt: invalid %s=%q, using default %v", key, raw, defaultValue)
		return defaultValue
	}

	return v
}

// GetEnvDurationMs reads a millisecond count from the environment.
func GetEnvDurationMs(key string, defaultValue time.Duration) time.Duration {
	raw := os.Getenv(key)
	if raw == "" {
		return defaultValue
	}

	ms, err := strconv.Atoi(raw)
	if err != nil {
		log.Warnf("GetEnvDurationMs: invalid %s=%q, using default %v", key, raw, defaultValue)
		return defaultValue
	}

	return time.Duration(ms) * time.Millisecond
}
