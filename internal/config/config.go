package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/kelseyhightower/envconfig"
	"github.com/teambition/rrule-go"
	"gopkg.in/yaml.v3"

	"github.com/jakechorley/hourbank/pkg/core/model"
)

const (
	BackendSheets   = "sheets"
	BackendPostgres = "postgres"
	BackendSQLite   = "sqlite"

	defaultLockTimeout = 20 * time.Second
	defaultHTTPAddr    = ":8080"
)

// CapacityTabs names the capacity tab of each pool. Overtime reads the work tab unless set.
type CapacityTabs struct {
	Work     string `yaml:"work" validate:"required"`
	Rest     string `yaml:"rest" validate:"required"`
	Overtime string `yaml:"overtime,omitempty"`
}

// Config represents the application configuration
type Config struct {
	DatabaseSheetID  string       `yaml:"databaseSheetID" validate:"required_if=Backend sheets"`
	CapacitySheetID  string       `yaml:"capacitySheetID" validate:"required"`
	CapacityTabs     CapacityTabs `yaml:"capacityTabs"`
	AllowListSheetID string       `yaml:"allowListSheetID" validate:"required"`
	AllowListTab     string       `yaml:"allowListTab" validate:"required"`
	RosterSheetID    string       `yaml:"rosterSheetID,omitempty"`
	RosterTab        string       `yaml:"rosterTab,omitempty" validate:"required_with=RosterSheetID"`

	LockerSheetID           string   `yaml:"lockerSheetID,omitempty"`
	LockerTab               string   `yaml:"lockerTab,omitempty" validate:"required_with=LockerSheetID"`
	LockerExcludedCampaigns []string `yaml:"lockerExcludedCampaigns,omitempty"`
	LockerExportRRule       string   `yaml:"lockerExportRRule,omitempty"`

	Timezone       string        `yaml:"timezone" validate:"required"`
	Backend        string        `yaml:"backend,omitempty" validate:"oneof=sheets postgres sqlite"`
	PostgresURL    string        `yaml:"postgresURL,omitempty" validate:"required_if=Backend postgres"`
	SQLitePath     string        `yaml:"sqlitePath,omitempty" validate:"required_if=Backend sqlite"`
	LockTimeout    time.Duration `yaml:"lockTimeout,omitempty" validate:"min=0"`
	SubtractBooked bool          `yaml:"subtractBooked,omitempty"`

	GmailUserID string `yaml:"gmailUserID,omitempty"`
	GmailSender string `yaml:"gmailSender,omitempty"`
	AppURL      string `yaml:"appURL,omitempty" validate:"omitempty,url"`
	HTTPAddr    string `yaml:"httpAddr,omitempty"`

	location *time.Location
}

// envOverrides are deployment values that may come from HOURBANK_* variables
type envOverrides struct {
	Backend     string `envconfig:"BACKEND"`
	PostgresURL string `envconfig:"POSTGRES_URL"`
	SQLitePath  string `envconfig:"SQLITE_PATH"`
	HTTPAddr    string `envconfig:"HTTP_ADDR"`
}

var validate *validator.Validate

func init() {
	validate = validator.New()
}

// Location returns the reference timezone. Only valid after Validate.
func (c *Config) Location() *time.Location {
	if c.location == nil {
		return time.UTC
	}
	return c.location
}

// CapacityTab returns the capacity tab backing pool
func (c *Config) CapacityTab(pool model.PoolKind) string {
	switch pool {
	case model.PoolRest:
		return c.CapacityTabs.Rest
	case model.PoolOvertime:
		if c.CapacityTabs.Overtime != "" {
			return c.CapacityTabs.Overtime
		}
		return c.CapacityTabs.Work
	default:
		return c.CapacityTabs.Work
	}
}

// LockerEnabled reports whether the locker export is configured
func (c *Config) LockerEnabled() bool {
	return c.LockerSheetID != ""
}

// LoadWithEnv loads the configuration for env, e.g. env="prod" reads hourbank_config.prod.yaml.
// HOURBANK_* environment variables override the file.
func LoadWithEnv(env string) (*Config, error) {
	configPath, err := findFile(configFileName(env))
	if err != nil {
		return nil, fmt.Errorf("failed to find config file: %w", err)
	}

	return LoadFromPath(configPath)
}

// LoadFromPath loads and validates the configuration from a specific path
func LoadFromPath(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	if err := applyEnv(&cfg); err != nil {
		return nil, err
	}

	if err := Validate(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func applyEnv(cfg *Config) error {
	var env envOverrides
	if err := envconfig.Process("hourbank", &env); err != nil {
		return fmt.Errorf("failed to process environment overrides: %w", err)
	}

	if env.Backend != "" {
		cfg.Backend = env.Backend
	}
	if env.PostgresURL != "" {
		cfg.PostgresURL = env.PostgresURL
	}
	if env.SQLitePath != "" {
		cfg.SQLitePath = env.SQLitePath
	}
	if env.HTTPAddr != "" {
		cfg.HTTPAddr = env.HTTPAddr
	}
	return nil
}

func applyDefaults(cfg *Config) {
	if cfg.Backend == "" {
		cfg.Backend = BackendSheets
	}
	if cfg.LockTimeout == 0 {
		cfg.LockTimeout = defaultLockTimeout
	}
	if cfg.HTTPAddr == "" {
		cfg.HTTPAddr = defaultHTTPAddr
	}
	if cfg.GmailUserID == "" {
		cfg.GmailUserID = "me"
	}
	if cfg.LockerExcludedCampaigns == nil {
		cfg.LockerExcludedCampaigns = []string{"teletrabajo"}
	}
}

// Validate fills defaults, then validates the configuration struct, the timezone and the rrule syntax
func Validate(cfg *Config) error {
	applyDefaults(cfg)

	if err := validate.Struct(cfg); err != nil {
		return fmt.Errorf("config validation failed: %w", err)
	}

	loc, err := time.LoadLocation(cfg.Timezone)
	if err != nil {
		return fmt.Errorf("invalid timezone %q: %w", cfg.Timezone, err)
	}
	cfg.location = loc

	if cfg.LockerExportRRule != "" {
		if _, err := rrule.StrToRRule(cfg.LockerExportRRule); err != nil {
			return fmt.Errorf("invalid rrule in lockerExportRRule: %w", err)
		}
	}

	return nil
}

// IsLockerExcluded reports whether campaign is left out of the locker export
func (c *Config) IsLockerExcluded(campaign string) bool {
	campaign = strings.ToLower(strings.TrimSpace(campaign))
	for _, excluded := range c.LockerExcludedCampaigns {
		if strings.ToLower(strings.TrimSpace(excluded)) == campaign {
			return true
		}
	}
	return false
}

func configFileName(env string) string {
	if env == "" {
		return "hourbank_config.yaml"
	}
	return "hourbank_config." + env + ".yaml"
}

// findFile looks for name in the current directory, then in the home directory
func findFile(name string) (string, error) {
	if _, err := os.Stat(name); err == nil {
		return name, nil
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}

	homePath := filepath.Join(homeDir, name)
	if _, err := os.Stat(homePath); err == nil {
		return homePath, nil
	}

	return "", fmt.Errorf("%s not found in current directory or home directory", name)
}
