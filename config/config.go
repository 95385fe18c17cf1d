package config

import (
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config stores the engine configuration. Everything has a sane local
// default so `signcast agent` runs against a local mock backend out of
// the box.
type Config struct {
	// Backend collaborators
	APIBaseURL string // HTTP CRUD backend
	SocketURL  string // realtime websocket endpoint

	// User identity attached to outbound events
	UserID    string
	UserEmail string

	// Mutation engine
	MutationTimeout time.Duration

	// Cache layer
	ListCacheTTL   time.Duration
	EntityCacheTTL time.Duration

	// Search debounce
	SearchDebounce time.Duration

	// Realtime reconnect backoff
	ReconnectBase        time.Duration
	ReconnectCap         time.Duration
	ReconnectMaxAttempts int

	// Persisted client preferences (filters + pagination settings)
	StateFile string

	// Mock backend listen address
	MockAddr string

	// Logging
	LogLevel      string
	LogOutputPath string
	LogMaxSize    int // megabytes
	LogMaxBackups int
	LogMaxAge     int // days
	LogCompress   bool
}

// getEnv gets an environment variable or returns a default value.
func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

// getEnvInt gets an environment variable as int or returns a default value.
func getEnvInt(key string, fallback int) int {
	if value, exists := os.LookupEnv(key); exists {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return fallback
}

// getEnvDuration gets an environment variable as a duration (e.g. "300ms",
// "5m") or returns a default value.
func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if value, exists := os.LookupEnv(key); exists {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return fallback
}

// Load loads configuration from environment variables (via .env file) or defaults.
func Load() *Config {
	// godotenv.Load() will not override existing env vars.
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, relying on existing environment variables and defaults.")
	}

	return &Config{
		APIBaseURL: getEnv("SIGNCAST_API_URL", "http://127.0.0.1:8090/api"),
		SocketURL:  getEnv("SIGNCAST_SOCKET_URL", "ws://127.0.0.1:8090/ws"),

		UserID:    getEnv("SIGNCAST_USER_ID", "local"),
		UserEmail: getEnv("SIGNCAST_USER_EMAIL", "local@signcast.dev"),

		MutationTimeout: getEnvDuration("SIGNCAST_MUTATION_TIMEOUT", 10*time.Second),

		ListCacheTTL:   getEnvDuration("SIGNCAST_LIST_CACHE_TTL", 5*time.Minute),
		EntityCacheTTL: getEnvDuration("SIGNCAST_ENTITY_CACHE_TTL", 2*time.Minute),

		SearchDebounce: getEnvDuration("SIGNCAST_SEARCH_DEBOUNCE", 300*time.Millisecond),

		ReconnectBase:        getEnvDuration("SIGNCAST_RECONNECT_BASE", time.Second),
		ReconnectCap:         getEnvDuration("SIGNCAST_RECONNECT_CAP", 30*time.Second),
		ReconnectMaxAttempts: getEnvInt("SIGNCAST_RECONNECT_MAX_ATTEMPTS", 10),

		StateFile: getEnv("SIGNCAST_STATE_FILE", ".signcast-state.json"),

		MockAddr: getEnv("SIGNCAST_MOCK_ADDR", ":8090"),

		LogLevel:      getEnv("LOG_LEVEL", "info"),
		LogOutputPath: getEnv("LOG_OUTPUT_PATH", ""),
		LogMaxSize:    getEnvInt("LOG_MAX_SIZE", 100),
		LogMaxBackups: getEnvInt("LOG_MAX_BACKUPS", 3),
		LogMaxAge:     getEnvInt("LOG_MAX_AGE", 28),
		LogCompress:   getEnv("LOG_COMPRESS", "true") == "true",
	}
}
