// Package config provides centralized default values for xtdocs.
// Every value can be overridden through the environment or a .env file.
package config

import (
	"bufio"
	"log"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"
)

var envLoaded sync.Once

func loadEnvFile() {
	envLoaded.Do(func() {
		file, err := os.Open(".env")
		if err != nil {
			return
		}
		defer file.Close()

		log.Println("Loading configuration overrides from .env file...")
		scanner := bufio.NewScanner(file)
		for scanner.Scan() {
			line := strings.TrimSpace(scanner.Text())

			if line == "" || strings.HasPrefix(line, "#") {
				continue
			}

			parts := strings.SplitN(line, "=", 2)
			if len(parts) != 2 {
				continue
			}

			key := strings.TrimSpace(parts[0])
			value := strings.TrimSpace(parts[1])

			if os.Getenv(key) == "" {
				os.Setenv(key, value)
			}
		}
	})
}

func getEnvInt(key string, defaultValue int) int {
	if valStr := os.Getenv(key); valStr != "" {
		if val, err := strconv.Atoi(valStr); err == nil {
			if val != defaultValue {
				log.Printf("Config override: %s=%d (default: %d)", key, val, defaultValue)
			}
			return val
		}
	}
	return defaultValue
}

func getEnvString(key string, defaultValue string) string {
	if val := os.Getenv(key); val != "" {
		if val != defaultValue {
			log.Printf("Config override: %s=%s (default: %s)", key, val, defaultValue)
		}
		return val
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if valStr := os.Getenv(key); valStr != "" {
		if val, err := strconv.ParseBool(valStr); err == nil {
			if val != defaultValue {
				log.Printf("Config override: %s=%t (default: %t)", key, val, defaultValue)
			}
			return val
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if valStr := os.Getenv(key); valStr != "" {
		if val, err := time.ParseDuration(valStr); err == nil {
			if val != defaultValue {
				log.Printf("Config override: %s=%s (default: %s)", key, val, defaultValue)
			}
			return val
		}
	}
	return defaultValue
}

func getEnvList(key string, defaultValue []string) []string {
	valStr := os.Getenv(key)
	if valStr == "" {
		return defaultValue
	}
	var out []string
	for _, item := range strings.Split(valStr, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	log.Printf("Config override: %s=%v (default: %v)", key, out, defaultValue)
	return out
}

var (
	// Server Configuration
	Port               string
	ServerReadTimeout  time.Duration
	ServerIdleTimeout  time.Duration
	GinMode            string
	CORSAllowedOrigins []string

	// Content Pipeline
	ContentDir           string
	OutDir               string
	BuildConcurrency     int
	PrerenderPlaygrounds bool
	FragmentTTL          time.Duration
	CacheCleanupInterval time.Duration
	CacheCleanupVerbose  bool
	WatchDebounce        time.Duration
	HighlightStyle       string
	ContactEmail         string

	// Content Index Database
	DBDriver           string
	DBURL              string
	DBMaxOpenConns     int
	DBMaxIdleConns     int
	SlowQueryThreshold time.Duration

	// Playground
	QueryServiceURL string
	QueryTimeout    time.Duration
	XtPlayURL       string
	QuietWindow     time.Duration
	SettleDelay     time.Duration
	TemplateTimeout time.Duration
	PageTimeout     time.Duration

	// SSE Configuration
	SSEHeartbeatInterval time.Duration
	MaxSSEConnections    int

	// Auth
	JWTSecret         string
	AdminPasswordHash string
	AdminTokenTTL     time.Duration

	// Logging
	LogLevel string
	LogJSON  bool
	LogDir   string
)

func init() {
	loadEnvFile()

	// Server Configuration
	Port = getEnvString("PORT", "8080")
	ServerReadTimeout = getEnvDuration("SERVER_READ_TIMEOUT", 15*time.Second)
	ServerIdleTimeout = getEnvDuration("SERVER_IDLE_TIMEOUT", 60*time.Second)
	GinMode = getEnvString("GIN_MODE", "release")
	CORSAllowedOrigins = getEnvList("CORS_ALLOWED_ORIGINS", []string{"*"})

	// Content Pipeline
	ContentDir = getEnvString("CONTENT_DIR", "content")
	OutDir = getEnvString("OUT_DIR", "dist")
	BuildConcurrency = getEnvInt("BUILD_CONCURRENCY", 4)
	PrerenderPlaygrounds = getEnvBool("PRERENDER_PLAYGROUNDS", false)
	FragmentTTL = getEnvDuration("FRAGMENT_TTL", time.Hour)
	CacheCleanupInterval = getEnvDuration("CACHE_CLEANUP_INTERVAL", 10*time.Minute)
	CacheCleanupVerbose = getEnvBool("CACHE_CLEANUP_VERBOSE", false)
	WatchDebounce = getEnvDuration("WATCH_DEBOUNCE", 300*time.Millisecond)
	HighlightStyle = getEnvString("HIGHLIGHT_STYLE", "github-dark")
	ContactEmail = getEnvString("CONTACT_EMAIL", "hello@xtdb.com")

	// Content Index Database
	DBDriver = getEnvString("DB_DRIVER", "sqlite3")
	DBURL = getEnvString("DB_URL", "xtdocs.db")
	DBMaxOpenConns = getEnvInt("DB_MAX_OPEN_CONNS", 10)
	DBMaxIdleConns = getEnvInt("DB_MAX_IDLE_CONNS", 3)
	SlowQueryThreshold = getEnvDuration("SLOW_QUERY_THRESHOLD", 500*time.Millisecond)

	// Playground
	QueryServiceURL = getEnvString("QUERY_SERVICE_URL", "https://play.xtdb.com/db-run")
	QueryTimeout = getEnvDuration("QUERY_TIMEOUT", 30*time.Second)
	XtPlayURL = getEnvString("XTPLAY_URL", "https://play.xtdb.com")
	QuietWindow = getEnvDuration("XTPLAY_QUIET_WINDOW", 150*time.Millisecond)
	SettleDelay = getEnvDuration("XTPLAY_SETTLE_DELAY", 100*time.Millisecond)
	TemplateTimeout = getEnvDuration("TEMPLATE_TIMEOUT", 250*time.Millisecond)
	PageTimeout = getEnvDuration("PAGE_TIMEOUT", 45*time.Second)

	// SSE Configuration
	SSEHeartbeatInterval = getEnvDuration("SSE_HEARTBEAT_INTERVAL", 30*time.Second)
	MaxSSEConnections = getEnvInt("MAX_SSE_CONNECTIONS", 1000)

	// Auth
	// secrets are read directly so overrides are never logged
	JWTSecret = os.Getenv("JWT_SECRET")
	AdminPasswordHash = os.Getenv("ADMIN_PASSWORD_HASH")
	AdminTokenTTL = getEnvDuration("ADMIN_TOKEN_TTL", 12*time.Hour)

	// Logging
	LogLevel = getEnvString("LOG_LEVEL", "info")
	LogJSON = getEnvBool("LOG_JSON", true)
	LogDir = getEnvString("LOG_DIR", "")
}
