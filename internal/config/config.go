package config // package config loads application configuration from environment variables

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/iliyamo/pond-seat-booking/internal/logger"
)

// Storage drivers accepted by STORAGE_DRIVER.
const (
	DriverMySQL  = "mysql"
	DriverMemory = "memory"
)

// Config holds all runtime configuration values.  Each field corresponds to
// an environment variable.
type Config struct {
	Env      string // application environment (e.g. "dev", "prod")
	Port     string // HTTP port to listen on
	LogLevel string
	LogFile  string

	StorageDriver string // mysql or memory
	DBUser        string
	DBPass        string // database password (optional)
	DBHost        string
	DBPort        string
	DBName        string
	DBMaxOpen     int

	JWTSecret        string // verifies operator and customer bearer tokens
	CredentialSecret string // master secret for seat and rod credentials

	Location        *time.Location
	EarlyGraceMin   int    // minutes before a session start at which check-in opens
	RabbitURL       string // empty disables domain event publishing
	ActivityLogDir  string
	EventBuffer     int
	EventWorkers    int
	ShutdownTimeout time.Duration
}

// Load reads configuration values from environment variables and returns a
// Config.  Required variables are enforced by must() and missing values
// cause the program to exit with a fatal log message.
func Load() Config {
	cfg := Config{
		Env:              getenv("APP_ENV", "dev"),
		Port:             must("APP_PORT"),
		LogLevel:         getenv("LOG_LEVEL", "info"),
		LogFile:          os.Getenv("LOG_FILE"),
		StorageDriver:    strings.ToLower(getenv("STORAGE_DRIVER", DriverMySQL)),
		JWTSecret:        must("JWT_SECRET"),
		CredentialSecret: must("CREDENTIAL_SECRET"),
		Location:         mustLocation("APP_TIMEZONE"),
		EarlyGraceMin:    envInt("CHECKIN_EARLY_GRACE_MIN", 15),
		RabbitURL:        os.Getenv("RABBITMQ_URL"),
		ActivityLogDir:   getenv("ACTIVITY_LOG_DIR", "logs"),
		EventBuffer:      envInt("EVENT_BUFFER", 256),
		EventWorkers:     envInt("EVENT_WORKERS", 2),
		ShutdownTimeout:  envDur("SHUTDOWN_TIMEOUT", 10*time.Second),
	}
	switch cfg.StorageDriver {
	case DriverMySQL:
		cfg.DBUser = must("DB_USER")
		cfg.DBPass = os.Getenv("DB_PASS")
		cfg.DBHost = must("DB_HOST")
		cfg.DBPort = must("DB_PORT")
		cfg.DBName = must("DB_NAME")
		cfg.DBMaxOpen = mustIntOr("DB_MAX_OPEN", 25)
	case DriverMemory:
	default:
		fatalf("invalid STORAGE_DRIVER %q", cfg.StorageDriver)
	}
	if cfg.EarlyGraceMin < 0 {
		fatalf("CHECKIN_EARLY_GRACE_MIN must not be negative")
	}
	return cfg
}

func fatalf(format string, args ...any) {
	logger.Default().Fatal("CONFIG", fmt.Sprintf(format, args...))
}

// must retrieves the value of a required environment variable.  If the
// variable is unset or empty, the application logs a fatal error and exits.
func must(key string) string {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		fatalf("missing required env var: %s", key)
	}
	return v
}

// mustInt is like must() but converts the retrieved string into an integer.
func mustInt(key string) int {
	s := must(key)
	n, err := strconv.Atoi(s)
	if err != nil {
		fatalf("invalid int for %s: %q", key, s)
	}
	return n
}

// mustIntOr is mustInt for optional keys: unset yields def, garbage is
// fatal.
func mustIntOr(key string, def int) int {
	if os.Getenv(key) == "" {
		return def
	}
	return mustInt(key)
}

// mustLocation resolves an IANA zone name; unset means UTC.
func mustLocation(key string) *time.Location {
	name := os.Getenv(key)
	if name == "" {
		return time.UTC
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		fatalf("invalid time zone for %s: %q", key, name)
	}
	return loc
}
