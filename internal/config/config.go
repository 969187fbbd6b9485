package config

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"

	"cyclecast/internal/linear"
)

// AppConfig holds the complete application configuration.
type AppConfig struct {
	Linear   linear.Config
	DataPath string
	LogDir   string

	// Sync tuning
	BlockedStates         []string
	DefaultCapacityHours  float64
	DefaultCapacityPoints float64

	// Simulation defaults
	SimulationCount     int
	SimulationBatchSize int
}

// Load loads the configuration from .env files and environment variables.
func Load() (*AppConfig, error) {
	// 1. Try to load from the executable's directory first.
	exePath, err := os.Executable()
	exeDir := ""
	if err == nil {
		exeDir = filepath.Dir(exePath)
		envPath := filepath.Join(exeDir, ".env")
		if err := godotenv.Load(envPath); err == nil {
			log.Debug().Str("path", envPath).Msg("Loaded configuration from binary directory")
		}
	}

	// 2. Fallback to current working directory (useful for development/go run)
	if err := godotenv.Load(); err != nil {
		log.Debug().Msg("No .env file found in working directory, relying on environment variables or binary-relative .env")
	}

	dataPath := os.Getenv("DATA_PATH")
	if dataPath == "" {
		if exeDir != "" {
			dataPath = exeDir
		} else {
			dataPath = "."
		}
	}

	logDir := filepath.Join(dataPath, "logs")
	if err := os.MkdirAll(logDir, 0755); err != nil {
		log.Warn().Err(err).Str("path", logDir).Msg("Failed to create log directory")
	}

	delaySecs, _ := strconv.Atoi(getEnv("REQUEST_DELAY_SECONDS", "1"))

	cfg := &AppConfig{
		Linear: linear.Config{
			BaseURL:      getEnv("LINEAR_URL", ""),
			APIKey:       getEnv("LINEAR_API_KEY", ""),
			RequestDelay: time.Duration(delaySecs) * time.Second,
		},
		DataPath:              dataPath,
		LogDir:                logDir,
		BlockedStates:         getEnvList("BLOCKED_STATES", []string{"Blocked"}),
		DefaultCapacityHours:  getEnvFloat("DEFAULT_CAPACITY_HOURS", 40),
		DefaultCapacityPoints: getEnvFloat("DEFAULT_CAPACITY_POINTS", 10),
		SimulationCount:       getEnvInt("SIMULATION_COUNT", 10000),
		SimulationBatchSize:   getEnvInt("SIMULATION_BATCH_SIZE", 1000),
	}

	return cfg, nil
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if value, ok := os.LookupEnv(key); ok {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return fallback
}

func getEnvFloat(key string, fallback float64) float64 {
	if value, ok := os.LookupEnv(key); ok {
		if floatVal, err := strconv.ParseFloat(value, 64); err == nil {
			return floatVal
		}
	}
	return fallback
}

func getEnvList(key string, fallback []string) []string {
	value, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	var items []string
	for _, part := range strings.Split(value, ",") {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			items = append(items, trimmed)
		}
	}
	if len(items) == 0 {
		return fallback
	}
	return items
}
