package config

import (
	"errors"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds every application setting
type Config struct {
	Server    ServerConfig
	Database  DatabaseConfig
	Store     StoreConfig
	Redis     RedisConfig
	JWT       JWTConfig
	AI        AIConfig
	Email     EmailConfig
	RateLimit RateLimitConfig `mapstructure:"rate_limit"`
	Log       LogConfig
	Tracing   TracingConfig
}

// ServerConfig holds HTTP server settings
type ServerConfig struct {
	Port           string
	ReadTimeout    int      `mapstructure:"read_timeout"`
	WriteTimeout   int      `mapstructure:"write_timeout"`
	AllowedOrigins []string `mapstructure:"allowed_origins"`
	// AuthEntryPoint is where the dashboard session guard sends visitors without a session.
	AuthEntryPoint string `mapstructure:"auth_entry_point"`
}

// DatabaseConfig holds PostgreSQL connection settings.
// URL takes precedence over the discrete host/port/... fields.
type DatabaseConfig struct {
	URL           string
	Host          string
	Port          string
	User          string
	Password      string
	DBName        string
	SSLMode       string
	QueryTimeout  time.Duration `mapstructure:"query_timeout"`
	MigrationsDir string        `mapstructure:"migrations_dir"`
}

// StoreConfig points at the hosted backend project (storage API).
// Both URL and Key are required.
type StoreConfig struct {
	URL    string
	Key    string
	Bucket string
}

// RedisConfig holds Redis connection settings (single, sentinel, cluster)
type RedisConfig struct {
	Mode            string   `mapstructure:"mode"`
	Addrs           []string `mapstructure:"addrs"`
	Addr            string   `mapstructure:"addr"`
	Password        string   `mapstructure:"password"`
	DB              int      `mapstructure:"db"`
	MasterName      string   `mapstructure:"master_name"`
	MaxRetries      int      `mapstructure:"max_retries"`
	MinRetryBackoff int      `mapstructure:"min_retry_backoff"`
	MaxRetryBackoff int      `mapstructure:"max_retry_backoff"`
}

// JWTConfig holds the settings used to verify owner session tokens
type JWTConfig struct {
	Secret        string `mapstructure:"secret"`
	Issuer        string `mapstructure:"issuer"`
	ExpirationHrs int    `mapstructure:"expiration_hrs"`
}

// AIConfig configures the free-text analyzer. An empty APIKey disables it.
type AIConfig struct {
	APIKey  string        `mapstructure:"api_key"`
	Model   string        `mapstructure:"model"`
	Timeout time.Duration `mapstructure:"timeout"`
}

// EmailConfig configures report notifications. An empty APIKey disables them.
type EmailConfig struct {
	APIKey string `mapstructure:"api_key"`
	From   string `mapstructure:"from"`
}

// RateLimitConfig configures the public submission limiter
type RateLimitConfig struct {
	SubmitPerMinute int `mapstructure:"submit_per_minute"`
	SubmitBurst     int `mapstructure:"submit_burst"`
}

// LogConfig selects the zap preset
type LogConfig struct {
	Mode string
}

// TracingConfig toggles OpenTelemetry tracing
type TracingConfig struct {
	Enabled     bool
	ServiceName string `mapstructure:"service_name"`
}

// PostgresConnectionString builds the DSN for gorm/pgx
func (d *DatabaseConfig) PostgresConnectionString() string {
	if d.URL != "" {
		return d.URL
	}
	return fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		d.Host, d.Port, d.User, d.Password, d.DBName, d.SSLMode,
	)
}

// Load reads configuration from an optional file and the environment.
func Load(configPath string) (*Config, error) {
	vip := viper.New()

	setDefaults(vip)
	bindEnv(vip)

	if configPath != "" {
		vip.SetConfigFile(configPath)
		if err := vip.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if errors.As(err, &notFound) || os.IsNotExist(err) {
				log.Printf("config file '%s' not found, using environment and defaults", configPath)
			} else {
				log.Printf("warning: could not read config file '%s': %v", configPath, err)
			}
		}
	}

	var cfg Config
	if err := vip.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func setDefaults(vip *viper.Viper) {
	vip.SetDefault("server.port", "8080")
	vip.SetDefault("server.read_timeout", 15)
	vip.SetDefault("server.write_timeout", 15)
	vip.SetDefault("server.allowed_origins", []string{"http://localhost:3000", "http://localhost:5173"})
	vip.SetDefault("server.auth_entry_point", "/login")
	vip.SetDefault("database.port", "5432")
	vip.SetDefault("database.sslmode", "require")
	vip.SetDefault("database.query_timeout", 5*time.Second)
	vip.SetDefault("database.migrations_dir", "migrations")
	vip.SetDefault("store.bucket", "reports")
	vip.SetDefault("redis.mode", "single")
	vip.SetDefault("jwt.expiration_hrs", 24)
	vip.SetDefault("ai.model", "gpt-4o-mini")
	vip.SetDefault("ai.timeout", 30*time.Second)
	vip.SetDefault("rate_limit.submit_per_minute", 10)
	vip.SetDefault("rate_limit.submit_burst", 5)
	vip.SetDefault("log.mode", "development")
	vip.SetDefault("tracing.service_name", "survey-api")
}

func bindEnv(vip *viper.Viper) {
	bindings := map[string]string{
		"server.port":             "SERVER_PORT",
		"server.auth_entry_point": "AUTH_ENTRY_POINT",
		"database.url":            "DATABASE_URL",
		"database.host":           "DATABASE_HOST",
		"database.port":           "DATABASE_PORT",
		"database.user":           "DATABASE_USER",
		"database.password":       "DATABASE_PASSWORD",
		"database.dbname":         "DATABASE_DBNAME",
		"database.sslmode":        "DATABASE_SSLMODE",
		"database.query_timeout":  "DATABASE_QUERY_TIMEOUT",
		"store.url":               "STORE_URL",
		"store.key":               "STORE_KEY",
		"store.bucket":            "STORE_BUCKET",
		"redis.mode":              "REDIS_MODE",
		"redis.addrs":             "REDIS_ADDRS",
		"redis.addr":              "REDIS_ADDR",
		"redis.password":          "REDIS_PASSWORD",
		"redis.db":                "REDIS_DB",
		"redis.master_name":       "REDIS_MASTER_NAME",
		"jwt.secret":              "JWT_SECRET",
		"jwt.issuer":              "JWT_ISSUER",
		"jwt.expiration_hrs":      "JWT_EXPIRATION_HRS",
		"ai.api_key":              "OPENAI_API_KEY",
		"ai.model":                "OPENAI_MODEL",
		"email.api_key":           "RESEND_API_KEY",
		"email.from":              "EMAIL_FROM",
		"log.mode":                "LOG_MODE",
		"tracing.enabled":         "TRACING_ENABLED",
	}
	for key, env := range bindings {
		_ = vip.BindEnv(key, env)
	}
}

// Validate checks that every required setting is present
func (c *Config) Validate() error {
	var missing []string
	if strings.TrimSpace(c.Store.URL) == "" {
		missing = append(missing, "STORE_URL")
	}
	if strings.TrimSpace(c.Store.Key) == "" {
		missing = append(missing, "STORE_KEY")
	}
	if c.Database.URL == "" && (c.Database.Host == "" || c.Database.DBName == "" || c.Database.User == "") {
		missing = append(missing, "DATABASE_URL (or DATABASE_HOST, DATABASE_DBNAME, DATABASE_USER)")
	}
	if c.Redis.Addr == "" && len(c.Redis.Addrs) == 0 {
		missing = append(missing, "REDIS_ADDR")
	}
	if c.JWT.Secret == "" {
		missing = append(missing, "JWT_SECRET")
	}
	if len(missing) > 0 {
		return fmt.Errorf("missing required configuration: %s", strings.Join(missing, ", "))
	}
	if c.Database.QueryTimeout <= 0 {
		c.Database.QueryTimeout = 5 * time.Second
	}
	return nil
}
