package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all configuration for our application
type Config struct {
	Server     ServerConfig     `mapstructure:"server"`
	Database   DatabaseConfig   `mapstructure:"database"`
	Log        LogConfig        `mapstructure:"log"`
	AI         AIConfig         `mapstructure:"ai"`
	Speech     SpeechConfig     `mapstructure:"speech"`
	Credits    CreditsConfig    `mapstructure:"credits"`
	Generation GenerationConfig `mapstructure:"generation"`
	Redis      RedisConfig      `mapstructure:"redis"`
	NATS       NATSConfig       `mapstructure:"nats"`
	Auth       AuthConfig       `mapstructure:"auth"`
	Telemetry  TelemetryConfig  `mapstructure:"telemetry"`
}

// ServerConfig holds server configuration
type ServerConfig struct {
	Host        string   `mapstructure:"host"`
	GRPCPort    int      `mapstructure:"grpc_port"`
	HTTPPort    int      `mapstructure:"http_port"`
	CORSOrigins []string `mapstructure:"cors_origins"`
}

// DatabaseConfig holds database configuration
type DatabaseConfig struct {
	Driver   string `mapstructure:"driver"`
	URL      string `mapstructure:"url"`
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Name     string `mapstructure:"name"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	SSLMode  string `mapstructure:"sslmode"`
	LogSQL   bool   `mapstructure:"log_sql"`
	MaxConns int32  `mapstructure:"max_conns"`
}

// LogConfig holds logging configuration
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// AIConfig points at the OpenAI-compatible chat backend.
type AIConfig struct {
	BaseURL     string        `mapstructure:"base_url"`
	AppID       string        `mapstructure:"app_id"`
	AppKey      string        `mapstructure:"app_key"`
	TextModel   string        `mapstructure:"text_model"`
	VisionModel string        `mapstructure:"vision_model"`
	Timeout     time.Duration `mapstructure:"timeout"`
	MaxRetries  int           `mapstructure:"max_retries"`
}

// SpeechConfig selects and configures the pronunciation evaluator.
type SpeechConfig struct {
	Provider        string        `mapstructure:"provider"`
	Endpoint        string        `mapstructure:"endpoint"`
	Model           string        `mapstructure:"model"`
	Timeout         time.Duration `mapstructure:"timeout"`
	LanguageCode    string        `mapstructure:"language_code"`
	CredentialsFile string        `mapstructure:"credentials_file"`
}

// CreditsConfig prices AI operations and drives scheduled distribution.
type CreditsConfig struct {
	Recognition      int `mapstructure:"recognition"`
	Story            int `mapstructure:"story"`
	Cards            int `mapstructure:"cards"`
	DistributeAmount int `mapstructure:"distribute_amount"`
	DistributeBatch  int `mapstructure:"distribute_batch"`
}

// GenerationConfig tunes the content pipeline.
type GenerationConfig struct {
	LockTTL        time.Duration `mapstructure:"lock_ttl"`
	StoryStyleFile string        `mapstructure:"story_style_file"`
}

// RedisConfig enables the shared generation guard. An empty address keeps the guard in process.
type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// NATSConfig enables cross-instance task events. An empty URL keeps events in process.
type NATSConfig struct {
	URL           string `mapstructure:"url"`
	SubjectPrefix string `mapstructure:"subject_prefix"`
}

// AuthConfig configures bearer tokens and guest cookies.
type AuthConfig struct {
	JWTSecret      string        `mapstructure:"jwt_secret"`
	GuestCookie    string        `mapstructure:"guest_cookie"`
	GuestCookieTTL time.Duration `mapstructure:"guest_cookie_ttl"`
	SecureCookie   bool          `mapstructure:"secure_cookie"`
}

// TelemetryConfig configures tracing export.
type TelemetryConfig struct {
	Exporter    string  `mapstructure:"exporter"`
	Endpoint    string  `mapstructure:"endpoint"`
	ServiceName string  `mapstructure:"service_name"`
	SampleRatio float64 `mapstructure:"sample_ratio"`
}

// Load reads configuration from file and environment variables
func Load() (*Config, error) {
	viper.SetConfigName(".env")
	viper.SetConfigType("env")
	viper.AddConfigPath(".")
	viper.AddConfigPath("./config")

	// Set default values
	setDefaults()

	// Enable reading from environment variables
	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// Read configuration file
	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	return &config, nil
}

// setDefaults sets default configuration values
func setDefaults() {
	// Server defaults
	viper.SetDefault("server.host", "localhost")
	viper.SetDefault("server.grpc_port", 9090)
	viper.SetDefault("server.http_port", 8080)
	viper.SetDefault("server.cors_origins", []string{"*"})

	// Database defaults
	viper.SetDefault("database.driver", "postgres")
	viper.SetDefault("database.host", "localhost")
	viper.SetDefault("database.port", 5432)
	viper.SetDefault("database.name", "storyquest")
	viper.SetDefault("database.user", "postgres")
	viper.SetDefault("database.password", "postgres")
	viper.SetDefault("database.sslmode", "disable")
	viper.SetDefault("database.max_conns", 10)

	// Log defaults
	viper.SetDefault("log.level", "info")
	viper.SetDefault("log.format", "json")

	// AI defaults
	viper.SetDefault("ai.base_url", "http://ai-service.tal.com/openai-compatible/v1")
	viper.SetDefault("ai.text_model", "doubao-seed-1.6-flash")
	viper.SetDefault("ai.vision_model", "doubao-seed-1.6-flash")
	viper.SetDefault("ai.timeout", 90*time.Second)
	viper.SetDefault("ai.max_retries", 2)

	// Speech defaults
	viper.SetDefault("speech.provider", "http")
	viper.SetDefault("speech.endpoint", "http://ai-service.tal.com/openai-compatible/v1/audio/evaluations")
	viper.SetDefault("speech.model", "px-1.0")
	viper.SetDefault("speech.timeout", 30*time.Second)
	viper.SetDefault("speech.language_code", "en-US")

	// Credit defaults
	viper.SetDefault("credits.recognition", 2)
	viper.SetDefault("credits.story", 5)
	viper.SetDefault("credits.cards", 3)
	viper.SetDefault("credits.distribute_amount", 100)
	viper.SetDefault("credits.distribute_batch", 500)

	// Generation defaults
	viper.SetDefault("generation.lock_ttl", 10*time.Minute)

	// Events and guard defaults
	viper.SetDefault("nats.subject_prefix", "storyquest.tasks")

	// Auth defaults
	viper.SetDefault("auth.guest_cookie", "storyquest_guest_id")
	viper.SetDefault("auth.guest_cookie_ttl", 30*24*time.Hour)

	// Telemetry defaults
	viper.SetDefault("telemetry.exporter", "none")
	viper.SetDefault("telemetry.service_name", "storyquest")
	viper.SetDefault("telemetry.sample_ratio", 1.0)
}

// DatabaseDriver returns the database/sql driver name.
func (c *Config) DatabaseDriver() string {
	switch strings.ToLower(strings.TrimSpace(c.Database.Driver)) {
	case "sqlite", "sqlite3":
		return "sqlite3"
	case "pgx":
		return "pgx"
	default:
		return "postgres"
	}
}

// DatabaseURL returns the connection string for the configured driver
func (c *Config) DatabaseURL() string {
	if c.Database.URL != "" {
		return c.Database.URL
	}
	if c.DatabaseDriver() == "sqlite3" {
		return fmt.Sprintf("file:%s.db?_fk=1", c.Database.Name)
	}
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
		c.Database.User,
		c.Database.Password,
		c.Database.Host,
		c.Database.Port,
		c.Database.Name,
		c.Database.SSLMode,
	)
}

// UsesPostgres reports whether the configured driver talks to PostgreSQL.
func (c *Config) UsesPostgres() bool {
	return c.DatabaseDriver() != "sqlite3"
}
