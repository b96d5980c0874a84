package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"
)

// EnvPrefix prefixes every environment override.
const EnvPrefix = "HIGHSOCIETY_"

// Storage backends.
const (
	BackendFile     = "file"
	BackendSQLite   = "sqlite"
	BackendPostgres = "postgres"
)

// Game holds all configuration for the game process.
type Game struct {
	LogLevel string `yaml:"log_level" env:"LOG_LEVEL"`

	// Storage
	Storage Storage `yaml:"storage" envPrefix:"STORAGE_"`

	// Run tuning
	Run Run `yaml:"run" envPrefix:"RUN_"`

	// Game loop
	FrameInterval    time.Duration `yaml:"frame_interval" env:"FRAME_INTERVAL"`       // default: 16ms
	AutosaveInterval time.Duration `yaml:"autosave_interval" env:"AUTOSAVE_INTERVAL"` // default: 30s, 0 disables
}

// Storage selects where the save slot and run history live.
type Storage struct {
	Backend    string         `yaml:"backend" env:"BACKEND"` // file | sqlite | postgres
	Slot       string         `yaml:"slot" env:"SLOT"`
	SavePath   string         `yaml:"save_path" env:"SAVE_PATH"`
	SQLitePath string         `yaml:"sqlite_path" env:"SQLITE_PATH"`
	Database   DatabaseConfig `yaml:"database" envPrefix:"DB_"`
}

// DatabaseConfig holds PostgreSQL connection parameters.
type DatabaseConfig struct {
	Host     string `yaml:"host" env:"HOST"`
	Port     int    `yaml:"port" env:"PORT"`
	User     string `yaml:"user" env:"USER"`
	Password string `yaml:"password" env:"PASSWORD"`
	DBName   string `yaml:"dbname" env:"NAME"`
	SSLMode  string `yaml:"sslmode" env:"SSLMODE"`
}

// DSN returns the PostgreSQL connection string.
func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		d.User, d.Password, d.Host, d.Port, d.DBName, d.SSLMode,
	)
}

// DefaultGame returns Game config with sensible defaults.
func DefaultGame() Game {
	return Game{
		LogLevel: "info",
		Storage: Storage{
			Backend:    BackendFile,
			Slot:       "main",
			SavePath:   "data/save.json",
			SQLitePath: "data/highsociety.db",
			Database: DatabaseConfig{
				Host:     "127.0.0.1",
				Port:     5432,
				User:     "highsociety",
				Password: "highsociety",
				DBName:   "highsociety",
				SSLMode:  "disable",
			},
		},
		Run:              DefaultRun(),
		FrameInterval:    16 * time.Millisecond,
		AutosaveInterval: 30 * time.Second,
	}
}

// LoadGame loads game config from a YAML file, then applies HIGHSOCIETY_*
// environment overrides. If the file doesn't exist, defaults are used.
func LoadGame(path string) (Game, error) {
	cfg := DefaultGame()

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("parsing config %s: %w", path, err)
		}
	case !os.IsNotExist(err):
		return cfg, fmt.Errorf("reading config %s: %w", path, err)
	}

	if err := env.ParseWithOptions(&cfg, env.Options{Prefix: EnvPrefix}); err != nil {
		return cfg, fmt.Errorf("parse env: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("invalid config %s: %w", path, err)
	}
	return cfg, nil
}

// Validate checks values that have no safe fallback.
func (g Game) Validate() error {
	var errs []error
	if _, err := ParseLogLevel(g.LogLevel); err != nil {
		errs = append(errs, err)
	}
	switch g.Storage.Backend {
	case BackendFile, BackendSQLite, BackendPostgres:
	default:
		errs = append(errs, fmt.Errorf("unknown storage backend %q", g.Storage.Backend))
	}
	if strings.TrimSpace(g.Storage.Slot) == "" {
		errs = append(errs, errors.New("storage slot is empty"))
	}
	if g.FrameInterval <= 0 {
		errs = append(errs, errors.New("frame_interval must be positive"))
	}
	if g.AutosaveInterval < 0 {
		errs = append(errs, errors.New("autosave_interval must not be negative"))
	}
	if err := g.Run.Validate(); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

// ParseLogLevel maps debug|info|warn|error to a slog level.
func ParseLogLevel(s string) (slog.Level, error) {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(s)); err != nil {
		return slog.LevelInfo, fmt.Errorf("log level %q: %w", s, err)
	}
	return lvl, nil
}
