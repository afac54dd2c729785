package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
	"github.com/spf13/viper"
)

const (
	StoragePostgres  = "postgres"
	StorageFirestore = "firestore"
)

type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Log       LogConfig       `mapstructure:"log"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Storage   StorageConfig   `mapstructure:"storage"`
	Firebase  FirebaseConfig  `mapstructure:"firebase"`
	Redis     RedisConfig     `mapstructure:"redis"`
	JWT       JWTConfig       `mapstructure:"jwt"`
	Sweep     SweepConfig     `mapstructure:"sweep"`
	Outbox    OutboxConfig    `mapstructure:"outbox"`
	Audit     AuditConfig     `mapstructure:"audit"`
	RateLimit RateLimitConfig `mapstructure:"rate_limit"`
	CORS      CORSConfig      `mapstructure:"cors"`
	SMTP      SMTPConfig      `mapstructure:"smtp"`
	Card      CardConfig      `mapstructure:"card"`
}

type ServerConfig struct {
	Port           int    `mapstructure:"port"`
	Mode           string `mapstructure:"mode"`
	TimeoutSeconds int    `mapstructure:"timeout_seconds"`

	// WorkerPort serves health and metrics for the worker binary.
	WorkerPort int `mapstructure:"worker_port"`
}

type LogConfig struct {
	Level string `mapstructure:"level"`
	JSON  bool   `mapstructure:"json"`
}

type DatabaseConfig struct {
	Host         string `mapstructure:"host"`
	Port         int    `mapstructure:"port"`
	User         string `mapstructure:"user"`
	Password     string `mapstructure:"password"`
	Name         string `mapstructure:"name"`
	SSLMode      string `mapstructure:"sslmode"`
	MaxOpenConns int    `mapstructure:"max_open_conns"`
	MaxIdleConns int    `mapstructure:"max_idle_conns"`
}

// StorageConfig selects the patient store. Users, appointments and the outbox
// always live in Postgres.
type StorageConfig struct {
	Patients string `mapstructure:"patients"`
}

type FirebaseConfig struct {
	ProjectID       string `mapstructure:"project_id"`
	CredentialsFile string `mapstructure:"credentials_file"`
}

type RedisConfig struct {
	URL          string        `mapstructure:"url"`
	MaxRetries   int           `mapstructure:"max_retries"`
	RetryBackoff time.Duration `mapstructure:"retry_backoff"`
	PoolSize     int           `mapstructure:"pool_size"`
	MinIdleConns int           `mapstructure:"min_idle_conns"`
}

type JWTConfig struct {
	Secret      string `mapstructure:"secret"`
	Issuer      string `mapstructure:"issuer"`
	ExpiryHours int    `mapstructure:"expiry_hours"`
}

type SweepConfig struct {
	Enabled        bool          `mapstructure:"enabled"`
	Timezone       string        `mapstructure:"timezone"`
	Interval       time.Duration `mapstructure:"interval"`
	CatchUpOnStart bool          `mapstructure:"catch_up_on_start"`
}

// Location resolves the sweep timezone. Empty means the process local zone.
func (c SweepConfig) Location() (*time.Location, error) {
	if c.Timezone == "" || strings.EqualFold(c.Timezone, "local") {
		return time.Local, nil
	}
	return time.LoadLocation(c.Timezone)
}

type OutboxConfig struct {
	BatchSize     int           `mapstructure:"batch_size"`
	PollInterval  time.Duration `mapstructure:"poll_interval"`
	RetryAttempts int           `mapstructure:"retry_attempts"`
	RetryDelay    time.Duration `mapstructure:"retry_delay"`
}

type AuditConfig struct {
	RetentionDays   int           `mapstructure:"retention_days"`
	CleanupInterval time.Duration `mapstructure:"cleanup_interval"`
}

type RateLimitConfig struct {
	Enabled           bool    `mapstructure:"enabled"`
	RequestsPerSecond float64 `mapstructure:"requests_per_second"`
	Burst             int     `mapstructure:"burst"`
}

type CORSConfig struct {
	AllowedOrigins []string `mapstructure:"allowed_origins"`
	AllowedMethods []string `mapstructure:"allowed_methods"`
	AllowedHeaders []string `mapstructure:"allowed_headers"`
}

type SMTPConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`
	From     string `mapstructure:"from"`

	// RatePerSecond caps reminder sends. Zero means unlimited.
	RatePerSecond float64 `mapstructure:"rate_per_second"`
}

type CardConfig struct {
	DefaultValidityDays int `mapstructure:"default_validity_days"`
}

// envOverrides are read from CLINIC_* variables after the config file.
type envOverrides struct {
	DBHost          string `envconfig:"DB_HOST"`
	DBPort          int    `envconfig:"DB_PORT"`
	DBUser          string `envconfig:"DB_USER"`
	DBPassword      string `envconfig:"DB_PASSWORD"`
	DBName          string `envconfig:"DB_NAME"`
	RedisURL        string `envconfig:"REDIS_URL"`
	JWTSecret       string `envconfig:"JWT_SECRET"`
	SMTPPassword    string `envconfig:"SMTP_PASSWORD"`
	PatientStorage  string `envconfig:"STORAGE_PATIENTS"`
	FirebaseProject string `envconfig:"FIREBASE_PROJECT_ID"`
	FirebaseCreds   string `envconfig:"FIREBASE_CREDENTIALS_FILE"`
	SweepTimezone   string `envconfig:"SWEEP_TIMEZONE"`
	LogLevel        string `envconfig:"LOG_LEVEL"`
}

const envPrefix = "clinic"

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.mode", "release")
	v.SetDefault("server.timeout_seconds", 30)
	v.SetDefault("server.worker_port", 8081)
	v.SetDefault("log.level", "info")
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("database.max_open_conns", 25)
	v.SetDefault("database.max_idle_conns", 5)
	v.SetDefault("storage.patients", StoragePostgres)
	v.SetDefault("redis.url", "redis://localhost:6379/0")
	v.SetDefault("redis.max_retries", 3)
	v.SetDefault("redis.retry_backoff", "100ms")
	v.SetDefault("redis.pool_size", 10)
	v.SetDefault("jwt.issuer", "cliniccare-api")
	v.SetDefault("jwt.expiry_hours", 12)
	v.SetDefault("sweep.enabled", true)
	v.SetDefault("sweep.timezone", "Local")
	v.SetDefault("sweep.interval", "24h")
	v.SetDefault("sweep.catch_up_on_start", true)
	v.SetDefault("outbox.batch_size", 100)
	v.SetDefault("outbox.poll_interval", "5s")
	v.SetDefault("outbox.retry_attempts", 3)
	v.SetDefault("outbox.retry_delay", "1s")
	v.SetDefault("audit.retention_days", 365)
	v.SetDefault("audit.cleanup_interval", "24h")
	v.SetDefault("rate_limit.enabled", true)
	v.SetDefault("rate_limit.requests_per_second", 20)
	v.SetDefault("rate_limit.burst", 40)
	v.SetDefault("cors.allowed_origins", []string{"*"})
	v.SetDefault("cors.allowed_methods", []string{"GET", "POST", "PUT", "OPTIONS"})
	v.SetDefault("cors.allowed_headers", []string{"Authorization", "Content-Type", "X-Request-ID"})
	v.SetDefault("smtp.port", 587)
	v.SetDefault("smtp.rate_per_second", 2)
	v.SetDefault("card.default_validity_days", 30)
}

// LoadConfig reads config.yml from the usual search paths, then applies CLINIC_*
// environment overrides. A missing file is fine; defaults and env cover it.
func LoadConfig() (*Config, error) {
	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	v.AddConfigPath("/app/config")
	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func (c *Config) applyEnv() error {
	var env envOverrides
	if err := envconfig.Process(envPrefix, &env); err != nil {
		return fmt.Errorf("failed to read environment: %w", err)
	}

	setString(&c.Database.Host, env.DBHost)
	setString(&c.Database.User, env.DBUser)
	setString(&c.Database.Password, env.DBPassword)
	setString(&c.Database.Name, env.DBName)
	setString(&c.Redis.URL, env.RedisURL)
	setString(&c.JWT.Secret, env.JWTSecret)
	setString(&c.SMTP.Password, env.SMTPPassword)
	setString(&c.Storage.Patients, env.PatientStorage)
	setString(&c.Firebase.ProjectID, env.FirebaseProject)
	setString(&c.Firebase.CredentialsFile, env.FirebaseCreds)
	setString(&c.Sweep.Timezone, env.SweepTimezone)
	setString(&c.Log.Level, env.LogLevel)
	if env.DBPort != 0 {
		c.Database.Port = env.DBPort
	}
	return nil
}

func setString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}

func (c *Config) Validate() error {
	if c.JWT.Secret == "" {
		return errors.New("jwt secret is required")
	}
	switch c.Storage.Patients {
	case StoragePostgres:
	case StorageFirestore:
		if c.Firebase.ProjectID == "" {
			return errors.New("firebase project_id is required for firestore patient storage")
		}
	default:
		return fmt.Errorf("unknown patient storage %q", c.Storage.Patients)
	}
	if c.Card.DefaultValidityDays < 1 {
		return errors.New("card default_validity_days must be at least 1")
	}
	if c.Sweep.Interval <= 0 {
		return errors.New("sweep interval must be positive")
	}
	if _, err := c.Sweep.Location(); err != nil {
		return fmt.Errorf("invalid sweep timezone: %w", err)
	}
	return nil
}

// DSN builds the lib/pq connection string.
func (c DatabaseConfig) DSN() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Name, c.SSLMode)
}
