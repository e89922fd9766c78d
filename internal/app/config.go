package app

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

const (
	envFileVar     = "DASHBOARD_ENV_FILE"
	defaultEnvFile = ".env"
)

// Config holds runtime configuration for the application.
type Config struct {
	AppEnv            string        `envconfig:"APP_ENV" default:"development"`
	AppAddr           string        `envconfig:"APP_ADDR" default:":8080" validate:"required"`
	AppReadTimeout    time.Duration `envconfig:"APP_READ_TIMEOUT" default:"15s" validate:"gt=0"`
	AppWriteTimeout   time.Duration `envconfig:"APP_WRITE_TIMEOUT" default:"15s" validate:"gt=0"`
	AppRequestTimeout time.Duration `envconfig:"APP_REQUEST_TIMEOUT" default:"30s" validate:"gt=0"`

	LogFormat string `envconfig:"LOG_FORMAT" default:"pretty" validate:"oneof=pretty json"`

	KPIAPIURL   string `envconfig:"KPI_API_URL" default:"http://localhost:8000" validate:"required,http_url"`
	KPITopLimit int    `envconfig:"KPI_TOP_LIMIT" default:"10" validate:"gte=1,lte=50"`

	SessionTTL      time.Duration `envconfig:"DASHBOARD_SESSION_TTL" default:"30m" validate:"gt=0"`
	MaxSessions     int           `envconfig:"DASHBOARD_MAX_SESSIONS" default:"1000" validate:"gte=1"`
	WaitTimeout     time.Duration `envconfig:"DASHBOARD_WAIT_TIMEOUT" default:"12s" validate:"gt=0"`
	ExportPerMinute int           `envconfig:"DASHBOARD_EXPORT_PER_MINUTE" default:"10" validate:"gte=1"`
	Locale          string        `envconfig:"DASHBOARD_LOCALE" default:"fr-FR" validate:"required,bcp47_language_tag"`
	Currency        string        `envconfig:"DASHBOARD_CURRENCY" default:"EUR" validate:"required,iso4217"`
}

// LoadConfig reads the optional env file and then the process environment.
// Variables already set in the environment win over the file.
func LoadConfig() (*Config, error) {
	envFile := os.Getenv(envFileVar)
	if envFile == "" {
		envFile = defaultEnvFile
	}
	if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("load %s: %w", envFile, err)
	}

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, err
	}
	if err := validator.New().Struct(cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &cfg, nil
}

// IsProduction returns true when the application runs in production.
func (c *Config) IsProduction() bool {
	return c != nil && c.AppEnv == "production"
}
