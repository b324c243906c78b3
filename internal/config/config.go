package config

import (
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds all configuration for the application.
type Config struct {
	Server   Server   `mapstructure:"server"`
	Database Database `mapstructure:"database"`
	Auth     Auth     `mapstructure:"auth"`
	Logger   Logger   `mapstructure:"logger"`
}

// Server holds the configuration for the web server.
type Server struct {
	Port       int    `mapstructure:"port"`
	CORSOrigin string `mapstructure:"cors_origin"`
}

// Database holds the configuration for the database.
type Database struct {
	Driver string `mapstructure:"driver"` // "sqlite" or "postgres"
	DSN    string `mapstructure:"dsn"`
}

// Auth holds the configuration for the OIDC identity provider and sessions.
// ClientSecret is expected to come from the environment (AUTH_CLIENT_SECRET),
// not from the YAML file.
type Auth struct {
	Issuer          string  `mapstructure:"issuer"`
	ClientID        string  `mapstructure:"client_id"`
	ClientSecret    string  `mapstructure:"client_secret"`
	RedirectURL     string  `mapstructure:"redirect_url"`
	CookieName      string  `mapstructure:"cookie_name"`
	SessionTTLHours int     `mapstructure:"session_ttl_hours"`
	RateLimit       float64 `mapstructure:"rate_limit"`
	RateLimitBurst  int     `mapstructure:"rate_limit_burst"`
}

// Logger holds the configuration for the logger.
type Logger struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// LoadConfig reads configuration from file or environment variables.
// A .env file, when present, is loaded into the environment first so
// secrets never have to live in the YAML file.
func LoadConfig(path string) (config Config, err error) {
	// Missing .env is fine; environment variables still apply.
	_ = godotenv.Load()

	viper.AddConfigPath(path)
	viper.SetConfigName("config") // name of config file (without extension)
	viper.SetConfigType("yml")

	// Allow environment variables to override config file
	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// Set default values
	viper.SetDefault("server.port", 8080)
	viper.SetDefault("database.driver", "sqlite")
	viper.SetDefault("database.dsn", "tradetrack.db")
	viper.SetDefault("auth.cookie_name", "tt_session")
	viper.SetDefault("auth.session_ttl_hours", 168) // 7 days
	viper.SetDefault("auth.rate_limit", 10)         // requests per second
	viper.SetDefault("auth.rate_limit_burst", 5)    // burst size
	viper.SetDefault("logger.level", "info")
	viper.SetDefault("logger.format", "console")

	err = viper.ReadInConfig()
	if err != nil {
		return
	}

	err = viper.Unmarshal(&config)
	return
}
