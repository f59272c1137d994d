package config

import (
	"log"
	"os"
	"strconv"
	"sync"

	"github.com/joho/godotenv"
)

// Config holds application configuration
type Config struct {
	// Server
	Port string
	Env  string

	// Persistence. DatabaseURL may be empty, in which case runs are kept as
	// JSON files under CacheDir.
	DatabaseURL string
	CacheDir    string

	// Engine
	SweepWorkers        int
	SolverMaxIterations int
	SolverTolerance     float64
}

var (
	appConfig *Config
	loadOnce  sync.Once
)

// Load loads configuration from a .env file (if any) and the environment.
func Load(files ...string) *Config {
	if err := godotenv.Load(files...); err != nil {
		log.Println("Warning: .env file not found")
	}

	return &Config{
		Port: getEnv("PORT", "8080"),
		Env:  getEnv("APP_ENV", "development"),

		DatabaseURL: getEnv("DATABASE_URL", ""),
		CacheDir:    getEnv("CACHE_DIR", ".cache/runs"),

		SweepWorkers:        getEnvInt("SWEEP_WORKERS", 0),
		SolverMaxIterations: getEnvInt("SOLVER_MAX_ITERATIONS", 100),
		SolverTolerance:     getEnvFloat("SOLVER_TOLERANCE", 1e-10),
	}
}

// Get returns the application configuration, loading it on first use.
func Get() *Config {
	loadOnce.Do(func() {
		appConfig = Load()
	})
	return appConfig
}

// getEnv retrieves an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	raw := getEnv(key, "")
	if raw == "" {
		return defaultValue
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v < 0 {
		log.Printf("Warning: invalid %s value '%s', falling back to %d\n", key, raw, defaultValue)
		return defaultValue
	}
	return v
}

func getEnvFloat(key string, defaultValue float64) float64 {
	raw := getEnv(key, "")
	if raw == "" {
		return defaultValue
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil || !(v > 0) {
		log.Printf("Warning: invalid %s value '%s', falling back to %g\n", key, raw, defaultValue)
		return defaultValue
	}
	return v
}
