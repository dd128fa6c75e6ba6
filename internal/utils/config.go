package utils

import (
	"errors"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

var (
	ErrMissingTokenSecret = errors.New("both ACCESS_TOKEN_SECRET and REFRESH_TOKEN_SECRET must be set")
	ErrSharedTokenSecret  = errors.New("ACCESS_TOKEN_SECRET and REFRESH_TOKEN_SECRET must differ")
)

type DatabaseConfig struct {
	PostgresUser     string
	PostgresPassword string
	PostgresDB       string
	// SQLitePath, when set, selects a file-backed SQLite store instead of
	// Postgres. This is how the original single-box deployment runs.
	SQLitePath string
}

func (c *DatabaseConfig) DSN() string {
	return "host=localhost user=" + c.PostgresUser +
		" password=" + c.PostgresPassword +
		" dbname=" + c.PostgresDB +
		" port=5432 sslmode=disable TimeZone=UTC"
}

type ServerConfig struct {
	Port        string
	Environment string
}

// Production reports whether the service runs with production hardening,
// which controls the Secure attribute on the refresh cookie.
func (c *ServerConfig) Production() bool {
	return c.Environment == "production"
}

type TokenConfig struct {
	AccessSecret   string
	RefreshSecret  string
	AccessTTL      time.Duration
	RefreshTTLDays int
}

func (c *TokenConfig) RefreshTTL() time.Duration {
	return time.Duration(c.RefreshTTLDays) * 24 * time.Hour
}

type AdminConfig struct {
	Username string
	Password string
}

type Config struct {
	Database *DatabaseConfig
	Server   *ServerConfig
	Token    *TokenConfig
	Admin    *AdminConfig
}

func LoadConfig(dotenvPath string) (*Config, error) {
	err := godotenv.Load(dotenvPath)
	if err != nil {
		return nil, err
	}

	dbCfg := &DatabaseConfig{
		PostgresUser:     os.Getenv("POSTGRES_USER"),
		PostgresPassword: os.Getenv("POSTGRES_PASSWORD"),
		PostgresDB:       os.Getenv("POSTGRES_DB"),
		SQLitePath:       os.Getenv("SQLITE_PATH"),
	}
	serverCfg := &ServerConfig{
		Port:        os.Getenv("SERVER_PORT"),
		Environment: os.Getenv("APP_ENV"),
	}
	tokenCfg := &TokenConfig{
		AccessSecret:   os.Getenv("ACCESS_TOKEN_SECRET"),
		RefreshSecret:  os.Getenv("REFRESH_TOKEN_SECRET"),
		AccessTTL:      durationOrDefault(os.Getenv("ACCESS_TOKEN_TTL"), 10*time.Minute),
		RefreshTTLDays: intOrDefault(os.Getenv("REFRESH_EXPIRES_DAYS"), 7),
	}
	adminCfg := &AdminConfig{
		Username: os.Getenv("ADMIN_USERNAME"),
		Password: os.Getenv("ADMIN_PASSWORD"),
	}

	cfg := &Config{dbCfg, serverCfg, tokenCfg, adminCfg}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	if c.Token.AccessSecret == "" || c.Token.RefreshSecret == "" {
		return ErrMissingTokenSecret
	}
	if c.Token.AccessSecret == c.Token.RefreshSecret {
		return ErrSharedTokenSecret
	}
	return nil
}

func durationOrDefault(raw string, fallback time.Duration) time.Duration {
	if raw == "" {
		return fallback
	}
	d, err := time.ParseDuration(raw)
	if err != nil || d <= 0 {
		return fallback
	}
	return d
}

func intOrDefault(raw string, fallback int) int {
	if raw == "" {
		return fallback
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n <= 0 {
		return fallback
	}
	return n
}
