package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/fx"
)

// Config holds application configuration.
type Config struct {
	AppName     string
	AppVersion  string
	Environment string
	HTTPAddr    string

	LogLevel  string
	LogFormat string

	// Webhook ingestion.
	WebhookSharedSecret string
	WebhookSkipVerify   bool

	// Absolute-link base for notifications and the public redirect surface.
	PublicBaseURL string

	// Outbound notification channel. Empty key disables dispatch.
	NotifyAPIKey string
	NotifyFrom   string
	NotifyTo     string

	// Retention purge for terminal delivery records.
	RetentionDays     int
	RetentionInterval time.Duration

	AdminAPIToken string

	DBType        string
	DBHost        string
	DBPort        string
	DBName        string
	DBUser        string
	DBPassword    string
	DBSSLMode     string
	DBMaxIdleConn int
	DBMaxOpenConn int
}

var Module = fx.Module("config",
	fx.Provide(Load),
)

// Load loads configuration from environment variables and .env file.
func Load() Config {
	_ = godotenv.Load()

	cfg := Config{
		AppName:     getenv("APP_SERVICE", "plately"),
		AppVersion:  getenv("APP_VERSION", "0.1.0"),
		Environment: getenv("ENVIRONMENT", "development"),
		HTTPAddr:    getenv("HTTP_ADDR", ":8080"),

		LogLevel:  getenv("LOG_LEVEL", "info"),
		LogFormat: getenv("LOG_FORMAT", "json"),

		WebhookSharedSecret: strings.TrimSpace(getenv("WEBHOOK_SHARED_SECRET", "")),
		// Skipping verification is only acceptable for local development.
		WebhookSkipVerify: getenvBool("WEBHOOK_SKIP_VERIFY", false),

		PublicBaseURL: strings.TrimRight(getenv("PUBLIC_BASE_URL", "http://localhost:8080"), "/"),

		NotifyAPIKey: strings.TrimSpace(getenv("NOTIFY_SENDGRID_API_KEY", "")),
		NotifyFrom:   strings.TrimSpace(getenv("NOTIFY_FROM", "noreply@plately.local")),
		NotifyTo:     strings.TrimSpace(getenv("NOTIFY_TO", "")),

		RetentionDays:     getenvInt("RETENTION_DAYS", 90),
		RetentionInterval: time.Duration(getenvInt("RETENTION_INTERVAL_MINUTES", 360)) * time.Minute,

		AdminAPIToken: strings.TrimSpace(getenv("ADMIN_API_TOKEN", "")),

		DBType:        getenv("DATABASE_TYPE", "postgres"),
		DBHost:        getenv("DATABASE_HOST", "localhost"),
		DBPort:        getenv("DATABASE_PORT", "5432"),
		DBName:        getenv("DATABASE_NAME", "plately"),
		DBUser:        getenv("DATABASE_USER", "postgres"),
		DBPassword:    getenv("DATABASE_PASSWORD", "postgres"),
		DBSSLMode:     getenv("DATABASE_SSLMODE", "disable"),
		DBMaxIdleConn: getenvInt("DATABASE_MAX_IDLE_CONN", 5),
		DBMaxOpenConn: getenvInt("DATABASE_MAX_OPEN_CONN", 25),
	}

	return cfg
}

func (c Config) IsProduction() bool {
	return strings.EqualFold(c.Environment, "production")
}

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getenvBool(key string, def bool) bool {
	value := strings.ToLower(strings.TrimSpace(os.Getenv(key)))
	if value == "" {
		return def
	}
	switch value {
	case "1", "true", "yes", "y", "on":
		return true
	case "0", "false", "no", "n", "off":
		return false
	default:
		return def
	}
}

func getenvInt(key string, def int) int {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return def
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return def
	}
	return parsed
}
