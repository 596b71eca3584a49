package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds the runtime settings of the directory service
type Config struct {
	Env             string
	Port            string
	DatabasePath    string
	DBDriver        string
	UseHTTPS        bool
	SessionLifetime time.Duration
	RatePerMinute   int
	DebugToken      string
	UIDir           string
	AdminPassword   string
	CORSOrigins     []string
	OIDC            OIDCConfig
}

// OIDCConfig holds the optional single sign-on settings
type OIDCConfig struct {
	Domain       string
	ClientID     string
	ClientSecret string
	CallbackURL  string
}

// Enabled reports whether enough settings are present to offer SSO login
func (c OIDCConfig) Enabled() bool {
	return c.Domain != "" && c.ClientID != ""
}

// IsProduction reports whether the service runs in production mode
func (c Config) IsProduction() bool {
	return c.Env == "prod" || c.Env == "production"
}

// Load reads configuration from the environment.
// A .env file in the working directory is loaded first when present.
func Load() Config {
	_ = godotenv.Load()

	return Config{
		Env:             get("APP_ENV", "dev"),
		Port:            get("PORT", "3000"),
		DatabasePath:    get("DATABASE_PATH", "data/app.db"),
		DBDriver:        get("DB_DRIVER", "sqlite3"),
		UseHTTPS:        os.Getenv("USE_HTTPS") == "true",
		SessionLifetime: getDuration("SESSION_LIFETIME", 12*time.Hour),
		RatePerMinute:   getInt("RATE_LIMIT_PER_MINUTE", 300),
		DebugToken:      os.Getenv("DEBUG_TOKEN"),
		UIDir:           get("UI_DIR", "ui"),
		AdminPassword:   get("ADMIN_PASSWORD", "admin"),
		CORSOrigins:     getList("CORS_ORIGINS"),
		OIDC: OIDCConfig{
			Domain:       os.Getenv("OIDC_DOMAIN"),
			ClientID:     os.Getenv("OIDC_CLIENT_ID"),
			ClientSecret: os.Getenv("OIDC_CLIENT_SECRET"),
			CallbackURL:  os.Getenv("OIDC_CALLBACK_URL"),
		},
	}
}

func get(key, def string) string {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	return v
}

func getInt(key string, def int) int {
	v, err := strconv.Atoi(os.Getenv(key))
	if err != nil {
		return def
	}
	return v
}

func getDuration(key string, def time.Duration) time.Duration {
	v, err := time.ParseDuration(os.Getenv(key))
	if err != nil || v <= 0 {
		return def
	}
	return v
}

func getList(key string) []string {
	var out []string
	for _, v := range strings.Split(os.Getenv(key), ",") {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}
