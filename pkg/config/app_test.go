package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestDefaultAppConfigIsValid(t *testing.T) {
	if err := DefaultAppConfig().Validate(); err != nil {
		t.Fatalf("default config is invalid: %v", err)
	}
}

func TestLoadAppConfig(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, DefaultFileName)
	content := `
database:
  path: data/site.db
  actor: importer
identity:
  prefer_uuid: false
  compare_revision: false
  compare_language: true
rules:
  file: /etc/rulekit/rules.yaml
  script_timeout: 2s
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadAppConfig(path)
	if err != nil {
		t.Fatalf("LoadAppConfig: %v", err)
	}

	if want := filepath.Join(dir, "data/site.db"); cfg.Database.Path != want {
		t.Errorf("expected database path %s, got %s", want, cfg.Database.Path)
	}
	if cfg.Database.Actor != "importer" {
		t.Errorf("expected actor importer, got %s", cfg.Database.Actor)
	}
	if cfg.Identity.PreferUUID || cfg.Identity.CompareRevision || !cfg.Identity.CompareLanguage {
		t.Errorf("unexpected identity policy %+v", cfg.Identity)
	}
	if cfg.Rules.File != "/etc/rulekit/rules.yaml" {
		t.Errorf("expected absolute rules path to be kept, got %s", cfg.Rules.File)
	}
	if cfg.Rules.ScriptTimeout != 2*time.Second {
		t.Errorf("expected script timeout 2s, got %v", cfg.Rules.ScriptTimeout)
	}
	if want := filepath.Join(dir, "records"); cfg.RecordsDir != want {
		t.Errorf("expected default records dir %s, got %s", want, cfg.RecordsDir)
	}
	if cfg.Telemetry.ServiceName != "rulekit" {
		t.Errorf("expected telemetry defaults, got service %q", cfg.Telemetry.ServiceName)
	}
}

func TestLoadAppConfigErrors(t *testing.T) {
	tests := []struct {
		name    string
		content string
		wantErr string
	}{
		{
			name:    "unknown field",
			content: "databse:\n  path: x.db\n",
			wantErr: "failed to parse",
		},
		{
			name:    "missing database path",
			content: "database:\n  path: \"\"\n",
			wantErr: "invalid config",
		},
		{
			name:    "bad log level",
			content: "telemetry:\n  logging:\n    level: loud\n",
			wantErr: "invalid config",
		},
		{
			name:    "negative timeout",
			content: "rules:\n  script_timeout: -1s\n",
			wantErr: "invalid config",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), DefaultFileName)
			if err := os.WriteFile(path, []byte(tt.content), 0o644); err != nil {
				t.Fatal(err)
			}
			_, err := LoadAppConfig(path)
			if err == nil {
				t.Fatal("expected error")
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("expected error containing %q, got %v", tt.wantErr, err)
			}
		})
	}

	if _, err := LoadAppConfig(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("expected error for a missing file")
	}
}

func TestAppConfigWriteRoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, DefaultFileName)

	cfg := DefaultAppConfig()
	cfg.Database.Actor = "ci"
	if err := cfg.Write(path); err != nil {
		t.Fatalf("Write: %v", err)
	}

	loaded, err := LoadAppConfig(path)
	if err != nil {
		t.Fatalf("LoadAppConfig: %v", err)
	}
	if loaded.Database.Actor != "ci" {
		t.Errorf("expected actor ci, got %s", loaded.Database.Actor)
	}
	if loaded.Database.Path != filepath.Join(dir, "rulekit.db") {
		t.Errorf("unexpected database path %s", loaded.Database.Path)
	}
	if loaded.Identity != cfg.Identity {
		t.Errorf("expected identity %+v, got %+v", cfg.Identity, loaded.Identity)
	}
}
