package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all application configuration
type Config struct {
	Port           string
	APIEnabled     bool
	WorkerEnabled  bool
	Environment    string
	LoggingConfig  LoggingConfig
	DatabaseConfig DatabaseConfig
	RedisConfig    RedisConfig
	ScanConfig     ScanConfig
	MatchConfig    MatchConfig
	WorkerConfig   WorkerConfig
	NTFYConfig     NTFYConfig
	RyanairConfig  RyanairConfig
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level  string
	Format string
}

// DatabaseConfig holds database connection configuration. URL is either a
// SQLite file path or a postgres:// connection string.
type DatabaseConfig struct {
	URL string
}

// RedisConfig holds Redis connection configuration. An empty Addr disables
// the cache layer entirely.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// ScanConfig holds fare harvesting configuration
type ScanConfig struct {
	Cooldown          time.Duration
	LookupHorizonDays int
	FlightStaleness   time.Duration
}

// MatchConfig holds deal matching configuration
type MatchConfig struct {
	HourTolerance  int
	NearbyRadiusKm float64
}

// WorkerConfig holds background worker configuration
type WorkerConfig struct {
	UpdateInterval  time.Duration
	MaxWorkers      int
	DigestHour      int
	ShutdownTimeout time.Duration
}

// NTFYConfig holds NTFY push notification configuration
type NTFYConfig struct {
	ServerURL    string
	DefaultTopic string
	Enabled      bool
}

// RyanairConfig holds fare source configuration
type RyanairConfig struct {
	BaseURL string
}

// Load loads configuration from environment variables
func Load() (*Config, error) {
	// Load .env file if it exists
	_ = godotenv.Load(".env")

	port := getEnv("PORT", "8080")
	environment := getEnv("ENVIRONMENT", "development")
	apiEnabled, _ := strconv.ParseBool(getEnv("API_ENABLED", "true"))
	workerEnabled, _ := strconv.ParseBool(getEnv("WORKER_ENABLED", "true"))

	loggingConfig := LoggingConfig{
		Level:  getEnv("LOG_LEVEL", "info"),
		Format: getEnv("LOG_FORMAT", "text"),
	}

	databaseConfig := DatabaseConfig{
		URL: getEnv("DATABASE_URL", "weekendfly.db"),
	}

	redisDB, _ := strconv.Atoi(getEnv("REDIS_DB", "0"))
	redisConfig := RedisConfig{
		Addr:     getEnv("REDIS_ADDR", ""),
		Password: getEnv("REDIS_PASSWORD", ""),
		DB:       redisDB,
	}

	cooldownMinutes, _ := strconv.Atoi(getEnv("SCAN_COOLDOWN_MINUTES", "30"))
	if cooldownMinutes < 0 {
		cooldownMinutes = 0
	}
	lookupHorizonDays, _ := strconv.Atoi(getEnv("LOOKUP_HORIZON_DAYS", "120"))
	if lookupHorizonDays < 1 {
		lookupHorizonDays = 120
	}
	stalenessHours, _ := strconv.Atoi(getEnv("FLIGHT_STALENESS_HOURS", "24"))
	if stalenessHours < 1 {
		stalenessHours = 24
	}
	scanConfig := ScanConfig{
		Cooldown:          time.Duration(cooldownMinutes) * time.Minute,
		LookupHorizonDays: lookupHorizonDays,
		FlightStaleness:   time.Duration(stalenessHours) * time.Hour,
	}

	hourTolerance, _ := strconv.Atoi(getEnv("HOUR_TOLERANCE", "1"))
	if hourTolerance < 0 {
		hourTolerance = 0
	}
	nearbyRadiusKm, _ := strconv.ParseFloat(getEnv("NEARBY_AIRPORT_RADIUS_KM", "100"), 64)
	if nearbyRadiusKm < 0 {
		nearbyRadiusKm = 0
	}
	matchConfig := MatchConfig{
		HourTolerance:  hourTolerance,
		NearbyRadiusKm: nearbyRadiusKm,
	}

	updateIntervalMinutes, _ := strconv.Atoi(getEnv("UPDATE_INTERVAL_MINUTES", "180"))
	if updateIntervalMinutes < 1 {
		updateIntervalMinutes = 180
	}
	maxWorkers, _ := strconv.Atoi(getEnv("MAX_WORKERS", "3"))
	if maxWorkers < 1 {
		maxWorkers = 3
	}
	digestHour, _ := strconv.Atoi(getEnv("DIGEST_HOUR", "8"))
	if digestHour < 0 || digestHour > 23 {
		digestHour = 8
	}
	shutdownTimeout, err := time.ParseDuration(getEnv("WORKER_SHUTDOWN_TIMEOUT", "30s"))
	if err != nil {
		shutdownTimeout = 30 * time.Second
	}
	workerConfig := WorkerConfig{
		UpdateInterval:  time.Duration(updateIntervalMinutes) * time.Minute,
		MaxWorkers:      maxWorkers,
		DigestHour:      digestHour,
		ShutdownTimeout: shutdownTimeout,
	}

	ntfyEnabled, _ := strconv.ParseBool(getEnv("NTFY_ENABLED", "true"))
	ntfyConfig := NTFYConfig{
		ServerURL:    getEnv("NTFY_SERVER_URL", "https://ntfy.sh"),
		DefaultTopic: getEnv("NTFY_DEFAULT_TOPIC", ""),
		Enabled:      ntfyEnabled,
	}

	ryanairConfig := RyanairConfig{
		BaseURL: getEnv("RYANAIR_BASE_URL", "https://services-api.ryanair.com"),
	}

	return &Config{
		Port:           port,
		APIEnabled:     apiEnabled,
		WorkerEnabled:  workerEnabled,
		Environment:    environment,
		LoggingConfig:  loggingConfig,
		DatabaseConfig: databaseConfig,
		RedisConfig:    redisConfig,
		ScanConfig:     scanConfig,
		MatchConfig:    matchConfig,
		WorkerConfig:   workerConfig,
		NTFYConfig:     ntfyConfig,
		RyanairConfig:  ryanairConfig,
	}, nil
}

// TestConfig returns a default test configuration with background work and
// outbound notifications disabled.
func TestConfig() *Config {
	return &Config{
		Port:          "8080",
		APIEnabled:    true,
		WorkerEnabled: false,
		Environment:   "test",
		LoggingConfig: LoggingConfig{Level: "error", Format: "text"},
		ScanConfig: ScanConfig{
			Cooldown:          30 * time.Minute,
			LookupHorizonDays: 120,
			FlightStaleness:   24 * time.Hour,
		},
		MatchConfig: MatchConfig{
			HourTolerance:  1,
			NearbyRadiusKm: 100,
		},
		WorkerConfig: WorkerConfig{
			UpdateInterval:  3 * time.Hour,
			MaxWorkers:      3,
			DigestHour:      8,
			ShutdownTimeout: 5 * time.Second,
		},
		NTFYConfig: NTFYConfig{
			ServerURL: "https://ntfy.sh",
			Enabled:   false,
		},
		RyanairConfig: RyanairConfig{
			BaseURL: "https://services-api.ryanair.com",
		},
	}
}

// getEnv gets an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if len(strings.TrimSpace(value)) == 0 {
		return defaultValue
	}
	return strings.TrimSpace(value)
}
