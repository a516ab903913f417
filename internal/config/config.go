package config

import (
	"fmt"
	"net/url"
	"os"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config structure represents the application configuration
type Config struct {
	Server struct {
		Port    string `yaml:"port" env:"SERVER_PORT"`
		Mode    string `yaml:"mode" env:"SERVER_MODE"`
		BaseURL string `yaml:"base_url" env:"SERVER_BASE_URL"`
		// AllowedOrigins feeds the CORS middleware and the websocket origin check.
		AllowedOrigins  []string `yaml:"allowed_origins" env:"SERVER_ALLOWED_ORIGINS"`
		ShutdownTimeout string   `yaml:"shutdown_timeout" env:"SERVER_SHUTDOWN_TIMEOUT"`
	} `yaml:"server"`

	Database struct {
		// Driver is "postgres" or "memory".
		Driver          string `yaml:"driver" env:"DB_DRIVER"`
		Host            string `yaml:"host" env:"DB_HOST"`
		Port            string `yaml:"port" env:"DB_PORT"`
		User            string `yaml:"user" env:"DB_USER"`
		Password        string `yaml:"password" env:"DB_PASSWORD"`
		DBName          string `yaml:"dbname" env:"DB_NAME"`
		SSLMode         string `yaml:"sslmode" env:"DB_SSLMODE"`
		MaxIdleConns    int    `yaml:"max_idle_conns" env:"DB_MAX_IDLE_CONNS"`
		MaxOpenConns    int    `yaml:"max_open_conns" env:"DB_MAX_OPEN_CONNS"`
		ConnMaxLifetime string `yaml:"conn_max_lifetime" env:"DB_CONN_MAX_LIFETIME"`
		// MigrationsDir overrides the migrations compiled into the binary.
		MigrationsDir string `yaml:"migrations_dir" env:"DB_MIGRATIONS_DIR"`
	} `yaml:"database"`

	JWT struct {
		Secret                 string `yaml:"secret" env:"JWT_SECRET"`
		AccessTokenExpiration  string `yaml:"access_token_expiration" env:"JWT_ACCESS_TOKEN_EXPIRATION"`
		RefreshTokenExpiration string `yaml:"refresh_token_expiration" env:"JWT_REFRESH_TOKEN_EXPIRATION"`
		Issuer                 string `yaml:"issuer" env:"JWT_ISSUER"`
	} `yaml:"jwt"`

	Logging struct {
		Level  string `yaml:"level" env:"LOG_LEVEL"`
		Format string `yaml:"format" env:"LOG_FORMAT"`
	} `yaml:"logging"`

	Redis struct {
		// URL empty disables the queue and the cache.
		URL string `yaml:"url" env:"REDIS_URL"`
	} `yaml:"redis"`

	Worker struct {
		// Embedded runs the email worker inside the API process.
		Embedded    bool   `yaml:"embedded" env:"WORKER_EMBEDDED"`
		Concurrency int    `yaml:"concurrency" env:"WORKER_CONCURRENCY"`
		MaxRetry    int    `yaml:"max_retry" env:"WORKER_MAX_RETRY"`
		TaskTimeout string `yaml:"task_timeout" env:"WORKER_TASK_TIMEOUT"`
	} `yaml:"worker"`

	Email struct {
		Host      string `yaml:"host" env:"SMTP_HOST"`
		Port      int    `yaml:"port" env:"SMTP_PORT"`
		Username  string `yaml:"username" env:"SMTP_USERNAME"`
		Password  string `yaml:"password" env:"SMTP_PASSWORD"`
		FromName  string `yaml:"from_name" env:"SMTP_FROM_NAME"`
		FromEmail string `yaml:"from_email" env:"SMTP_FROM_EMAIL"`
		UseTLS    bool   `yaml:"use_tls" env:"SMTP_USE_TLS"`
	} `yaml:"email"`

	Storage struct {
		Path       string `yaml:"path" env:"STORAGE_PATH"`
		PublicURL  string `yaml:"public_url" env:"STORAGE_PUBLIC_URL"`
		MaxPhotoMB int    `yaml:"max_photo_mb" env:"STORAGE_MAX_PHOTO_MB"`
	} `yaml:"storage"`

	Google struct {
		ClientID      string `yaml:"client_id" env:"GOOGLE_CLIENT_ID"`
		ClientSecret  string `yaml:"client_secret" env:"GOOGLE_CLIENT_SECRET"`
		CallbackURL   string `yaml:"callback_url" env:"GOOGLE_CALLBACK_URL"`
		SessionSecret string `yaml:"session_secret" env:"SESSION_SECRET"`
	} `yaml:"google"`

	Maps struct {
		APIKey   string `yaml:"api_key" env:"MAPS_API_KEY"`
		BaseURL  string `yaml:"base_url" env:"MAPS_BASE_URL"`
		CacheTTL string `yaml:"cache_ttl" env:"MAPS_CACHE_TTL"`
	} `yaml:"maps"`

	Telemetry struct {
		Endpoint    string `yaml:"endpoint" env:"OTEL_EXPORTER_OTLP_ENDPOINT"`
		ServiceName string `yaml:"service_name" env:"OTEL_SERVICE_NAME"`
	} `yaml:"telemetry"`

	RateLimit struct {
		RequestsPerMinute int `yaml:"requests_per_minute" env:"RATE_LIMIT_RPM"`
		Burst             int `yaml:"burst" env:"RATE_LIMIT_BURST"`
	} `yaml:"rate_limit"`

	Seed struct {
		TeacherEmail    string `yaml:"teacher_email" env:"SEED_TEACHER_EMAIL"`
		TeacherPassword string `yaml:"teacher_password" env:"SEED_TEACHER_PASSWORD"`
	} `yaml:"seed"`
}

// LoadConfig loads configuration from .env, a YAML file and environment
// variables, in increasing order of precedence.
func LoadConfig(configPath string) (*Config, error) {
	// A missing .env is normal outside local development.
	_ = godotenv.Load()

	config := &Config{}
	setDefaults(config)

	if _, err := os.Stat(configPath); err == nil {
		file, err := os.ReadFile(configPath)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(file, config); err != nil {
			return nil, fmt.Errorf("failed to parse config: %w", err)
		}
	}

	if err := applyEnv(config); err != nil {
		return nil, fmt.Errorf("failed to load from environment: %w", err)
	}

	if err := validateConfig(config); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return config, nil
}

func setDefaults(config *Config) {
	config.Server.Port = "8080"
	config.Server.Mode = "development"
	config.Server.BaseURL = "http://localhost:8080"
	config.Server.ShutdownTimeout = "10s"

	config.Database.Driver = "postgres"
	config.Database.Host = "localhost"
	config.Database.Port = "5432"
	config.Database.User = "postgres"
	config.Database.Password = "postgres"
	config.Database.DBName = "servicehours"
	config.Database.SSLMode = "disable"
	config.Database.MaxIdleConns = 5
	config.Database.MaxOpenConns = 20
	config.Database.ConnMaxLifetime = "1h"

	config.JWT.AccessTokenExpiration = "1h"
	config.JWT.RefreshTokenExpiration = "720h"
	config.JWT.Issuer = "servicehours"

	config.Logging.Level = "info"
	config.Logging.Format = "json"

	config.Worker.Embedded = true
	config.Worker.Concurrency = 5
	config.Worker.MaxRetry = 3
	config.Worker.TaskTimeout = "1m"

	config.Email.Port = 587
	config.Email.FromName = "Service Hours"
	config.Email.FromEmail = "no-reply@servicehours.local"

	config.Storage.Path = "./uploads"
	config.Storage.PublicURL = "/uploads"
	config.Storage.MaxPhotoMB = 5

	config.Maps.BaseURL = "https://maps.googleapis.com/maps/api"
	config.Maps.CacheTTL = "24h"

	config.Telemetry.ServiceName = "servicehours-api"

	config.RateLimit.RequestsPerMinute = 120
	config.RateLimit.Burst = 20
}

func validateConfig(config *Config) error {
	switch config.Database.Driver {
	case "postgres":
		if config.Database.Host == "" {
			return fmt.Errorf("database host is required")
		}
	case "memory":
	default:
		return fmt.Errorf("unsupported database driver %q", config.Database.Driver)
	}

	if config.JWT.Secret == "" {
		return fmt.Errorf("JWT secret is required")
	}

	durations := map[string]string{
		"jwt.access_token_expiration":  config.JWT.AccessTokenExpiration,
		"jwt.refresh_token_expiration": config.JWT.RefreshTokenExpiration,
		"database.conn_max_lifetime":   config.Database.ConnMaxLifetime,
		"server.shutdown_timeout":      config.Server.ShutdownTimeout,
		"worker.task_timeout":          config.Worker.TaskTimeout,
		"maps.cache_ttl":               config.Maps.CacheTTL,
	}
	for key, value := range durations {
		if _, err := time.ParseDuration(value); err != nil {
			return fmt.Errorf("invalid duration for %s: %w", key, err)
		}
	}

	if config.Redis.URL != "" {
		if _, err := url.Parse(config.Redis.URL); err != nil {
			return fmt.Errorf("invalid redis url: %w", err)
		}
	}

	if config.Google.ClientID != "" && (config.Google.ClientSecret == "" || config.Google.CallbackURL == "" || config.Google.SessionSecret == "") {
		return fmt.Errorf("google client secret, callback url and session secret are required when client id is set")
	}

	if config.RateLimit.RequestsPerMinute < 0 {
		return fmt.Errorf("rate_limit.requests_per_minute must not be negative")
	}

	return nil
}

// Duration parses a duration that validateConfig has already checked.
func Duration(value string) time.Duration {
	d, _ := time.ParseDuration(value)
	return d
}

// GetPostgresConnectionString returns postgres connection string
func (c *Config) GetPostgresConnectionString() string {
	sslMode := c.Database.SSLMode
	if sslMode == "" {
		sslMode = "disable"
	}

	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(c.Database.User, c.Database.Password),
		Host:     c.Database.Host + ":" + c.Database.Port,
		Path:     "/" + c.Database.DBName,
		RawQuery: "sslmode=" + url.QueryEscape(sslMode),
	}
	return u.String()
}

// IsProduction reports whether the server runs in release mode.
func (c *Config) IsProduction() bool {
	return c.Server.Mode == "production" || c.Server.Mode == "release"
}
