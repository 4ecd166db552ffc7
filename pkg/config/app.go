package config

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/rulekit/rulekit/pkg/data"
	"github.com/rulekit/rulekit/pkg/telemetry"
)

// DefaultFileName is the name of the workspace configuration file.
const DefaultFileName = "rulekit.yaml"

// AppConfig is the workspace configuration read by the CLI.
type AppConfig struct {
	Database  DatabaseConfig      `yaml:"database"`
	Telemetry telemetry.Config    `yaml:"telemetry"`
	Identity  data.IdentityPolicy `yaml:"identity"`
	Rules     RulesConfig         `yaml:"rules"`

	// RecordsDir holds the read-only .cue config records.
	RecordsDir string `yaml:"records_dir"`
}

// DatabaseConfig configures the SQLite store.
type DatabaseConfig struct {
	Path         string `yaml:"path" validate:"required"`
	MaxOpenConns int    `yaml:"max_open_conns" validate:"gte=0"`

	// Actor is recorded on audit entries.
	Actor string `yaml:"actor"`
}

// RulesConfig configures rule execution.
type RulesConfig struct {
	// File is the default rule file for "rulekit run".
	File string `yaml:"file"`

	// ScriptTimeout bounds a single script action.
	ScriptTimeout time.Duration `yaml:"script_timeout" validate:"gte=0"`

	// RecordRuns stores one run record per executed rule.
	RecordRuns bool `yaml:"record_runs"`
}

// DefaultAppConfig returns the configuration written by "rulekit init".
func DefaultAppConfig() *AppConfig {
	return &AppConfig{
		Database: DatabaseConfig{
			Path:  "rulekit.db",
			Actor: "system",
		},
		Telemetry: *telemetry.DefaultConfig(),
		Identity:  data.DefaultIdentityPolicy(),
		Rules: RulesConfig{
			File:          "rules.yaml",
			ScriptTimeout: 5 * time.Second,
			RecordRuns:    true,
		},
		RecordsDir: "records",
	}
}

// LoadAppConfig reads a YAML configuration file. Missing values keep their
// defaults, and relative paths are resolved against the file's directory.
func LoadAppConfig(path string) (*AppConfig, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config %s: %w", path, err)
	}

	cfg := DefaultAppConfig()
	dec := yaml.NewDecoder(bytes.NewReader(raw))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", path, err)
	}

	cfg.resolve(filepath.Dir(path))
	return cfg, nil
}

// Validate checks struct constraints and the telemetry settings.
func (c *AppConfig) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return err
	}
	return c.Telemetry.Validate()
}

// Write stores the configuration as YAML at path.
func (c *AppConfig) Write(path string) error {
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(c); err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	if err := enc.Close(); err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		return fmt.Errorf("failed to write config %s: %w", path, err)
	}
	return nil
}

func (c *AppConfig) resolve(base string) {
	abs := func(p string) string {
		if p == "" || filepath.IsAbs(p) {
			return p
		}
		return filepath.Join(base, p)
	}
	c.Database.Path = abs(c.Database.Path)
	c.Rules.File = abs(c.Rules.File)
	c.RecordsDir = abs(c.RecordsDir)
}
