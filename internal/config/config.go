package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	App        *AppConfig        `yaml:"app"`
	Database   *DatabaseConfig   `yaml:"database"`
	Redis      *RedisConfig      `yaml:"redis"`
	SMS        *SMSConfig        `yaml:"sms"`
	Push       *PushConfig       `yaml:"push"`
	Maps       *MapsConfig       `yaml:"maps"`
	Storage    *StorageConfig    `yaml:"storage"`
	WebSocket  *WebSocketConfig  `yaml:"websocket"`
	Security   *SecurityConfig   `yaml:"security"`
	Escalation *EscalationConfig `yaml:"escalation"`
}

type AppConfig struct {
	Name        string `yaml:"name"`
	Version     string `yaml:"version"`
	Environment string `yaml:"environment"`
	Port        int    `yaml:"port"`
	Host        string `yaml:"host"`
	BaseURL     string `yaml:"base_url"`
	Debug       bool   `yaml:"debug"`
	LogLevel    string `yaml:"log_level"`
	Timezone    string `yaml:"timezone"`
}

type SecurityConfig struct {
	JWTSecret          string        `yaml:"jwt_secret"`
	JWTAccessTokenTTL  time.Duration `yaml:"jwt_access_token_ttl"`
	JWTRefreshTokenTTL time.Duration `yaml:"jwt_refresh_token_ttl"`
	RateLimitPerMinute int           `yaml:"rate_limit_per_minute"`
	CORSAllowedOrigins []string      `yaml:"cors_allowed_origins"`
	TrustedProxies     []string      `yaml:"trusted_proxies"`
}

// EscalationConfig holds the checkpoint deadlines measured from the trigger.
// Offsets must be strictly increasing; offset i argues for level i+2.
type EscalationConfig struct {
	CheckpointOffsets []time.Duration `yaml:"checkpoint_offsets"`
	MaxPinAttempts    int             `yaml:"max_pin_attempts"`
}

func Load() (*Config, error) {
	config := &Config{
		App:        loadAppConfig(),
		Database:   loadDatabaseConfig(),
		Redis:      loadRedisConfig(),
		SMS:        loadSMSConfig(),
		Push:       loadPushConfig(),
		Maps:       loadMapsConfig(),
		Storage:    loadStorageConfig(),
		WebSocket:  loadWebSocketConfig(),
		Security:   loadSecurityConfig(),
		Escalation: loadEscalationConfig(),
	}

	return config, nil
}

func loadAppConfig() *AppConfig {
	return &AppConfig{
		Name:        getEnv("APP_NAME", "Lifeline"),
		Version:     getEnv("APP_VERSION", "1.0.0"),
		Environment: getEnv("APP_ENV", "development"),
		Port:        getEnvAsInt("APP_PORT", 8080),
		Host:        getEnv("APP_HOST", "localhost"),
		BaseURL:     getEnv("APP_BASE_URL", "http://localhost:8080"),
		Debug:       getEnvAsBool("APP_DEBUG", true),
		LogLevel:    getEnv("LOG_LEVEL", "info"),
		Timezone:    getEnv("APP_TIMEZONE", "UTC"),
	}
}

func loadSecurityConfig() *SecurityConfig {
	return &SecurityConfig{
		JWTSecret:          getEnv("JWT_SECRET", "your-super-secret-jwt-key"),
		JWTAccessTokenTTL:  getEnvAsDuration("JWT_ACCESS_TOKEN_TTL", 24*time.Hour),
		JWTRefreshTokenTTL: getEnvAsDuration("JWT_REFRESH_TOKEN_TTL", 7*24*time.Hour),
		RateLimitPerMinute: getEnvAsInt("RATE_LIMIT_PER_MINUTE", 100),
		CORSAllowedOrigins: getEnvAsSlice("CORS_ALLOWED_ORIGINS", []string{"*"}),
		TrustedProxies:     getEnvAsSlice("TRUSTED_PROXIES", []string{}),
	}
}

func loadEscalationConfig() *EscalationConfig {
	return &EscalationConfig{
		CheckpointOffsets: []time.Duration{
			getEnvAsDuration("ESCALATION_LEVEL2_OFFSET", 60*time.Second),
			getEnvAsDuration("ESCALATION_LEVEL3_OFFSET", 120*time.Second),
			getEnvAsDuration("ESCALATION_LEVEL4_OFFSET", 180*time.Second),
		},
		MaxPinAttempts: getEnvAsInt("ESCALATION_MAX_PIN_ATTEMPTS", 5),
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

func getEnvAsSlice(key string, defaultValue []string) []string {
	if value := os.Getenv(key); value != "" {
		return strings.Split(value, ",")
	}
	return defaultValue
}

func IsProduction() bool {
	return getEnv("APP_ENV", "development") == "production"
}

func IsDevelopment() bool {
	return getEnv("APP_ENV", "development") == "development"
}
