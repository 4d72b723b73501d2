package config

import (
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config stores the application configuration for both the local agent
// and the backend server. Values come from the environment (optionally
// seeded from a .env file) with explicit defaults.
type Config struct {
	// Agent settings
	AgentAddr     string        // listen address for the local agent API
	BackendURL    string        // backend base URL; empty means sync is unconfigured
	SyncInterval  time.Duration // flush period for the sync scheduler
	HTTPTimeout   time.Duration // per-request timeout for backend calls
	DefaultUserID string        // user id used for local entries before login
	StorePath     string        // JSON snapshot file for the local progress store
	EnvPath       string        // watched .env file for backend URL hot-reload

	// Server settings
	ServerAddr string
	JWTSecret  string
	TokenTTL   time.Duration

	// Database settings
	DBHost     string
	DBPort     string
	DBUser     string
	DBPassword string
	DBName     string

	// Redis settings
	RedisHost     string
	RedisPort     string
	RedisPassword string
	RedisDB       int

	// Logging settings
	LogLevel string
	LogPath  string
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

// Load loads configuration from environment variables (via .env file) or defaults.
func Load() *Config {
	// Attempt to load .env file. godotenv.Load() will not override existing env vars.
	envPath := getEnv("ENV_PATH", ".env")
	if err := godotenv.Load(envPath); err != nil {
		log.Println("No .env file found or error loading .env, relying on existing environment variables and defaults.")
	}

	return &Config{
		AgentAddr:     getEnv("AGENT_ADDR", "127.0.0.1:8787"),
		BackendURL:    getEnv("BACKEND_URL", ""),
		SyncInterval:  time.Duration(getEnvInt("SYNC_INTERVAL_MS", 5000)) * time.Millisecond,
		HTTPTimeout:   time.Duration(getEnvInt("HTTP_TIMEOUT_MS", 10000)) * time.Millisecond,
		DefaultUserID: getEnv("DEFAULT_USER_ID", "local"),
		StorePath:     getEnv("STORE_PATH", "data/progress.json"),
		EnvPath:       envPath,

		ServerAddr: getEnv("SERVER_ADDR", ":4000"),
		JWTSecret:  getEnv("JWT_SECRET", "dev-jwt-secret-change-me"),
		TokenTTL:   time.Duration(getEnvInt("TOKEN_TTL_HOURS", 24)) * time.Hour,

		DBHost:     getEnv("DB_HOST", "127.0.0.1"),
		DBPort:     getEnv("DB_PORT", "3306"),
		DBUser:     getEnv("DB_USER", "root"),
		DBPassword: os.Getenv("DB_PASSWORD"), // For password, better not to have a hardcoded default
		DBName:     getEnv("DB_NAME", "watchtrail"),

		RedisHost:     getEnv("REDIS_HOST", "127.0.0.1"),
		RedisPort:     getEnv("REDIS_PORT", "6379"),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisDB:       getEnvInt("REDIS_DB", 0),

		LogLevel: getEnv("LOG_LEVEL", "info"),
		LogPath:  getEnv("LOG_PATH", ""),
	}
}
