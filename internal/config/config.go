package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Server     ServerConfig
	Database   DatabaseConfig
	Redis      RedisConfig
	Auth       AuthConfig
	Sandbox    SandboxConfig
	Generation GenerationConfig
	Progress   ProgressConfig
	Content    ContentConfig
	LogLevel   string
}

type ServerConfig struct {
	Port         string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// DatabaseConfig selects the progress store. Store is "postgres" or "memory".
type DatabaseConfig struct {
	Store string
	URL   string
}

// RedisConfig is optional; an empty Address keeps attempt counters in process.
type RedisConfig struct {
	Address    string
	Password   string
	DB         int
	AttemptTTL time.Duration
}

type AuthConfig struct {
	JWTSecret  []byte
	TokenTTL   time.Duration
	ReceiptTTL time.Duration
}

type SandboxConfig struct {
	// Backends in priority order, e.g. "piston,judge0".
	Backends      []string
	PistonURL     string
	Judge0URL     string
	Judge0Key     string
	Judge0Host    string
	LanguagesFile string
	Timeout       time.Duration
	PollInterval  time.Duration
}

type GenerationConfig struct {
	APIKey string
	Model  string
}

type ProgressConfig struct {
	XPPerLesson int
	Timezone    string
}

type ContentConfig struct {
	Path     string
	// MediaDir holds lesson narrations written by scripts/narrate.
	MediaDir string
}

// Load reads .env (if present) and the environment.
func Load() *Config {
	_ = godotenv.Load()

	return &Config{
		Server: ServerConfig{
			Port:         getEnv("PORT", "8080"),
			ReadTimeout:  getEnvAsDuration("READ_TIMEOUT", 15*time.Second),
			WriteTimeout: getEnvAsDuration("WRITE_TIMEOUT", 60*time.Second),
		},
		Database: DatabaseConfig{
			Store: getEnv("STORE", "postgres"),
			URL:   getEnv("DATABASE_URL", ""),
		},
		Redis: RedisConfig{
			Address:    getEnv("REDIS_ADDR", ""),
			Password:   getEnv("REDIS_PASSWORD", ""),
			DB:         getEnvAsInt("REDIS_DB", 0),
			AttemptTTL: getEnvAsDuration("REDIS_ATTEMPT_TTL", 24*time.Hour),
		},
		Auth: AuthConfig{
			JWTSecret:  []byte(getEnv("JWT_SECRET", "")),
			TokenTTL:   getEnvAsDuration("JWT_TTL", 72*time.Hour),
			ReceiptTTL: getEnvAsDuration("RECEIPT_TTL", 30*time.Minute),
		},
		Sandbox: SandboxConfig{
			Backends:      getEnvAsList("SANDBOX_BACKENDS", []string{"piston"}),
			PistonURL:     getEnv("PISTON_URL", "https://emkc.org"),
			Judge0URL:     getEnv("JUDGE0_URL", "https://judge0-ce.p.rapidapi.com"),
			Judge0Key:     getEnv("JUDGE0_API_KEY", ""),
			Judge0Host:    getEnv("JUDGE0_API_HOST", "judge0-ce.p.rapidapi.com"),
			LanguagesFile: getEnv("SANDBOX_LANGUAGES_FILE", ""),
			Timeout:       getEnvAsDuration("SANDBOX_TIMEOUT", 15*time.Second),
			PollInterval:  getEnvAsDuration("SANDBOX_POLL_INTERVAL", 500*time.Millisecond),
		},
		Generation: GenerationConfig{
			APIKey: getEnv("GEMINI_API_KEY", ""),
			Model:  getEnv("GENERATION_MODEL", "gemini-2.5-flash"),
		},
		Progress: ProgressConfig{
			XPPerLesson: getEnvAsInt("PROGRESS_XP_PER_LESSON", 20),
			Timezone:    getEnv("PROGRESS_TIMEZONE", "UTC"),
		},
		Content: ContentConfig{
			Path:     getEnv("CONTENT_PATH", ""),
			MediaDir: getEnv("MEDIA_DIR", "media"),
		},
		LogLevel: getEnv("LOG_LEVEL", "info"),
	}
}

// Validate reports settings the server cannot start without.
func (c *Config) Validate() error {
	switch c.Database.Store {
	case "postgres":
		if c.Database.URL == "" {
			return fmt.Errorf("DATABASE_URL environment variable is not set")
		}
	case "memory":
	default:
		return fmt.Errorf("unknown STORE %q (want postgres or memory)", c.Database.Store)
	}
	if len(c.Auth.JWTSecret) < 32 {
		return fmt.Errorf("JWT_SECRET must be at least 32 bytes")
	}
	if len(c.Sandbox.Backends) == 0 {
		return fmt.Errorf("SANDBOX_BACKENDS must name at least one backend")
	}
	if c.Progress.XPPerLesson < 0 {
		return fmt.Errorf("PROGRESS_XP_PER_LESSON must not be negative")
	}
	if _, err := time.LoadLocation(c.Progress.Timezone); err != nil {
		return fmt.Errorf("PROGRESS_TIMEZONE: %w", err)
	}
	return nil
}

// Location is the time zone used to decide calendar days for streaks.
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.Progress.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

func getEnv(key, defaultValue string) string {
	if value, ok := os.LookupEnv(key); ok && value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value, err := strconv.Atoi(getEnv(key, "")); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value, err := time.ParseDuration(getEnv(key, "")); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsList(key string, defaultValue []string) []string {
	raw := getEnv(key, "")
	if raw == "" {
		return defaultValue
	}
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
