package config

import (
	"fmt"
	"os"
	"strconv"
)

// Config holds all application configuration
type Config struct {
	Server    ServerConfig
	Database  DatabaseConfig
	Redis     RedisConfig
	Typesense TypesenseConfig
	Ollama    OllamaConfig
	Pipeline  PipelineConfig
	OTEL      OTELConfig
}

// ServerConfig holds server configuration
type ServerConfig struct {
	Host string
	Port int
	Env  string
}

// DatabaseConfig holds database configuration
type DatabaseConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	Database string
	SSLMode  string
}

// RedisConfig holds Redis configuration
type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
}

// TypesenseConfig holds Typesense configuration
type TypesenseConfig struct {
	URL    string
	APIKey string
}

// OllamaConfig holds configuration for the NLU oracle backend.
type OllamaConfig struct {
	Host           string
	Model          string
	TimeoutSeconds int
	RateLimitRPM   int
	RateLimitBurst int

	// GeocodeMinConfidence is the floor below which geocode answers are
	// treated as UNKNOWN regardless of the reported status.
	GeocodeMinConfidence int
}

// PipelineConfig holds the query pipeline's tunables. Defaults match the
// production deployment for Belgium.
type PipelineConfig struct {
	DefaultRadiusKm      float64
	MinRadiusKm          float64
	MaxRadiusKm          float64
	MaxFanOut            int
	FallbackWindowDays   int
	MaxDateDriftDays     int
	StoreTimeoutSeconds  int
	DefaultLimit         int
	MaxLimit             int
	PerCoordinateLimit   int

	// Service region: Belgium plus a small margin, used to reject
	// geocoding results the oracle hallucinated elsewhere.
	RegionMinLat float64
	RegionMaxLat float64
	RegionMinLon float64
	RegionMaxLon float64
}

// OTELConfig holds OpenTelemetry configuration
type OTELConfig struct {
	ServiceName    string
	ServiceVersion string
	Endpoint       string
	Enabled        bool
}

// Load loads configuration from environment variables
func Load() (*Config, error) {
	return &Config{
		Server: ServerConfig{
			Host: getEnv("SERVER_HOST", "0.0.0.0"),
			Port: getEnvAsInt("SERVER_PORT", 8080),
			Env:  getEnv("APP_ENV", "development"),
		},
		Database: DatabaseConfig{
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnvAsInt("DB_PORT", 5432),
			User:     getEnv("DB_USER", "postgres"),
			Password: getEnv("DB_PASSWORD", ""),
			Database: getEnv("DB_NAME", "sportatlas"),
			SSLMode:  getEnv("DB_SSLMODE", "disable"),
		},
		Redis: RedisConfig{
			Host:     getEnv("REDIS_HOST", "localhost"),
			Port:     getEnvAsInt("REDIS_PORT", 6379),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvAsInt("REDIS_DB", 0),
		},
		Typesense: TypesenseConfig{
			URL:    getEnv("TYPESENSE_URL", ""),
			APIKey: getEnv("TYPESENSE_API_KEY", ""),
		},
		Ollama: OllamaConfig{
			Host:           getEnv("OLLAMA_HOST", "http://localhost:11434"),
			Model:          getEnv("OLLAMA_MODEL", "llama3.1"),
			TimeoutSeconds: getEnvAsInt("OLLAMA_TIMEOUT_SECONDS", 25),
			RateLimitRPM:   getEnvAsInt("OLLAMA_RATE_LIMIT_RPM", 120),
			RateLimitBurst: getEnvAsInt("OLLAMA_RATE_LIMIT_BURST", 5),

			GeocodeMinConfidence: getEnvAsInt("OLLAMA_GEOCODE_MIN_CONFIDENCE", 40),
		},
		Pipeline: PipelineConfig{
			DefaultRadiusKm:      getEnvAsFloat("PIPELINE_DEFAULT_RADIUS_KM", 25),
			MinRadiusKm:          1,
			MaxRadiusKm:          100,
			MaxFanOut:            getEnvAsInt("PIPELINE_MAX_FANOUT", 5),
			FallbackWindowDays:   getEnvAsInt("PIPELINE_FALLBACK_WINDOW_DAYS", 10),
			MaxDateDriftDays:     getEnvAsInt("PIPELINE_MAX_DATE_DRIFT_DAYS", 500),
			StoreTimeoutSeconds:  getEnvAsInt("PIPELINE_STORE_TIMEOUT_SECONDS", 5),
			DefaultLimit:         getEnvAsInt("PIPELINE_DEFAULT_LIMIT", 20),
			MaxLimit:             getEnvAsInt("PIPELINE_MAX_LIMIT", 100),
			PerCoordinateLimit:   getEnvAsInt("PIPELINE_PER_COORDINATE_LIMIT", 50),
			RegionMinLat:         getEnvAsFloat("PIPELINE_REGION_MIN_LAT", 49.2),
			RegionMaxLat:         getEnvAsFloat("PIPELINE_REGION_MAX_LAT", 51.8),
			RegionMinLon:         getEnvAsFloat("PIPELINE_REGION_MIN_LON", 2.2),
			RegionMaxLon:         getEnvAsFloat("PIPELINE_REGION_MAX_LON", 6.6),
		},
		OTEL: OTELConfig{
			ServiceName:    getEnv("OTEL_SERVICE_NAME", "sportatlas-api"),
			ServiceVersion: getEnv("OTEL_SERVICE_VERSION", "1.0.0"),
			Endpoint:       getEnv("OTEL_ENDPOINT", ""),
			Enabled:        getEnvAsBool("OTEL_ENABLED", false),
		},
	}, nil
}

// DatabaseDSN returns the PostgreSQL connection string
func (c *DatabaseConfig) DatabaseDSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Database, c.SSLMode,
	)
}

// RedisAddr returns the Redis address
func (c *RedisConfig) RedisAddr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatVal, err := strconv.ParseFloat(value, 64); err == nil {
			return floatVal
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return defaultValue
}
