package config

import (
	"math"
	"os"
	"strconv"

	"github.com/joho/godotenv"

	"cuentas/internal/auth"
)

// Config holds application level configuration loaded from environment variables.
type Config struct {
	ServerPort  string
	DBDriver    string
	DatabaseDSN string
	ResetDB     bool
	RedisAddr   string
	RedisDB     int
	RedisPass   string
	JWTSecret   string
	SwaggerHost string
	LogLevel    string
	LogFormat   string

	Argon2MemoryKiB   int
	Argon2Iterations  int
	Argon2Parallelism int

	SeedAdminUsername string
	SeedAdminPassword string
	SeedAdminEmail    string
}

// Load builds Config from environment with sensible defaults.
// A .env file in the working directory is read first when present.
func Load() *Config {
	_ = godotenv.Load()

	return &Config{
		ServerPort:  getEnv("SERVER_PORT", "8080"),
		DBDriver:    getEnv("DB_DRIVER", "mysql"),
		DatabaseDSN: getEnv("DATABASE_DSN", getEnv("MYSQL_DSN", "user:password@tcp(localhost:3306)/sistema_medico?charset=utf8mb4&parseTime=True&loc=Local")),
		ResetDB:     getEnvBool("RESET_DB", false),
		RedisAddr:   getEnv("REDIS_ADDR", "localhost:6379"),
		RedisDB:     getEnvInt("REDIS_DB", 0),
		RedisPass:   os.Getenv("REDIS_PASSWORD"),
		JWTSecret:   getEnv("JWT_SECRET", "change-me"),
		SwaggerHost: os.Getenv("SWAGGER_HOST"),
		LogLevel:    getEnv("LOG_LEVEL", "info"),
		LogFormat:   getEnv("LOG_FORMAT", "json"),

		Argon2MemoryKiB:   getEnvIntInRange("ARGON2_MEMORY_KIB", 64*1024, minArgon2MemoryKiB, maxArgon2MemoryKiB),
		Argon2Iterations:  getEnvIntInRange("ARGON2_ITERATIONS", 1, 1, maxArgon2Iterations),
		Argon2Parallelism: getEnvIntInRange("ARGON2_PARALLELISM", 2, 1, math.MaxUint8),

		SeedAdminUsername: getEnv("SEED_ADMIN_USERNAME", "admin"),
		SeedAdminPassword: os.Getenv("SEED_ADMIN_PASSWORD"),
		SeedAdminEmail:    getEnv("SEED_ADMIN_EMAIL", "admin@sistemamedico.local"),
	}
}

// Argon2 bounds. Values outside them fall back to the default.
const (
	minArgon2MemoryKiB  = 8
	maxArgon2MemoryKiB  = 4 * 1024 * 1024
	maxArgon2Iterations = 64
)

// Argon2Params returns the password hashing cost. Load keeps every field in range.
func (c *Config) Argon2Params() auth.Argon2Params {
	return auth.Argon2Params{
		MemoryKiB:   uint32(c.Argon2MemoryKiB),
		Iterations:  uint32(c.Argon2Iterations),
		Parallelism: uint8(c.Argon2Parallelism),
	}
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getEnvInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil {
			return parsed
		}
	}
	return def
}

func getEnvBool(key string, def bool) bool {
	if v := os.Getenv(key); v != "" {
		if parsed, err := strconv.ParseBool(v); err == nil {
			return parsed
		}
	}
	return def
}

func getEnvIntInRange(key string, def, lo, hi int) int {
	v := getEnvInt(key, def)
	if v < lo || v > hi {
		return def
	}
	return v
}
