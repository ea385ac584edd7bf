package config

import (
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	APIPort string
	JWTKey  []byte
	JWTExp  time.Duration

	DBHost     string
	DBPort     string
	DBUser     string
	DBPassword string
	DBName     string
	DBSslMode  string
	DBConnStr  string

	RedisAddr     string
	RedisPassword string
	RedisDB       int

	JudgeURL         string
	JudgeCallbackURL string
	JudgeTimeout     time.Duration

	PollRetries      int
	PollInterval     time.Duration
	ReconcileLockTTL time.Duration

	DefaultCodeCacheTTL time.Duration

	MonitorURL     string
	CheatThreshold float64
	ProctorFlagTTL time.Duration
}

// Load reads .env (if present) plus the environment and returns an immutable
// configuration. The result is passed down to constructors explicitly; there
// is no package-level config state.
func Load() *Config {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, relying on environment variables")
	}

	cfg := &Config{
		APIPort: getEnv("API_PORT", "8080"),
		JWTKey:  []byte(getEnv("JWT_SECRET", "defaultsecret")),
		JWTExp:  time.Duration(getEnvAsInt("JWT_EXPIRATION_HOURS", 72)) * time.Hour,

		DBHost:     getEnv("DB_HOST", "localhost"),
		DBPort:     getEnv("DB_PORT", "5432"),
		DBUser:     getEnv("DB_USER", "user"),
		DBPassword: getEnv("DB_PASSWORD", "password"),
		DBName:     getEnv("DB_NAME", "codecourt_db"),
		DBSslMode:  getEnv("DB_SSLMODE", "disable"),

		RedisAddr:     getEnv("REDIS_ADDR", "localhost:6379"),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisDB:       getEnvAsInt("REDIS_DB", 0),

		JudgeURL:         getEnv("JUDGE_URL", "http://localhost:2358"),
		JudgeCallbackURL: getEnv("JUDGE_CALLBACK_URL", ""),
		JudgeTimeout:     time.Duration(getEnvAsInt("JUDGE_TIMEOUT_SECONDS", 10)) * time.Second,

		PollRetries:      getEnvAsInt("POLL_RETRIES", 10),
		PollInterval:     time.Duration(getEnvAsInt("POLL_INTERVAL_MS", 2500)) * time.Millisecond,
		ReconcileLockTTL: time.Duration(getEnvAsInt("RECONCILE_LOCK_TTL_SECONDS", 10)) * time.Second,

		DefaultCodeCacheTTL: time.Duration(getEnvAsInt("DEFAULT_CODE_CACHE_TTL_SECONDS", 600)) * time.Second,

		MonitorURL:     getEnv("MONITOR_URL", "http://localhost:8000"),
		CheatThreshold: getEnvAsFloat("CHEAT_THRESHOLD", 0.7),
		ProctorFlagTTL: time.Duration(getEnvAsInt("PROCTOR_FLAG_TTL_SECONDS", 3600)) * time.Second,
	}

	cfg.DBConnStr = "host=" + cfg.DBHost +
		" port=" + cfg.DBPort +
		" user=" + cfg.DBUser +
		" password=" + cfg.DBPassword +
		" dbname=" + cfg.DBName +
		" sslmode=" + cfg.DBSslMode

	return cfg
}

func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	valueStr := getEnv(key, "")
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	return fallback
}

func getEnvAsFloat(key string, fallback float64) float64 {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseFloat(valueStr, 64); err == nil {
		return value
	}
	return fallback
}
