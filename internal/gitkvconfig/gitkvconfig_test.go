package gitkvconfig

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadDefaultsWhenNoFile(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	want := Defaults()
	if cfg.Branch != want.Branch || cfg.DataDir != want.DataDir || cfg.SyncIntervalMinutes != want.SyncIntervalMinutes {
		t.Fatalf("unexpected defaults: %+v", cfg)
	}
	if !cfg.AutoSync || !cfg.SyncOnChange {
		t.Fatalf("expected auto_sync/sync_on_change to default true, got %+v", cfg)
	}
}

func TestLoadFromTOMLFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "gitkv.toml")
	content := `
repo_url = "https://example.com/repo.git"
branch = "dev"
sync_interval_minutes = 15

[history]
enabled = true
write_count_threshold = 1000
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.RepoURL != "https://example.com/repo.git" {
		t.Fatalf("expected repo_url override, got %q", cfg.RepoURL)
	}
	if cfg.Branch != "dev" {
		t.Fatalf("expected branch override, got %q", cfg.Branch)
	}
	if cfg.SyncIntervalMinutes != 15 {
		t.Fatalf("expected sync_interval_minutes override, got %d", cfg.SyncIntervalMinutes)
	}
	if cfg.History.WriteCountThreshold != 1000 {
		t.Fatalf("expected history threshold override, got %d", cfg.History.WriteCountThreshold)
	}
	if cfg.DataDir != Defaults().DataDir {
		t.Fatalf("expected untouched fields to keep defaults, got %q", cfg.DataDir)
	}
	if !cfg.AutoSync || !cfg.SyncOnChange {
		t.Fatalf("expected auto_sync/sync_on_change to keep their true defaults when absent from the file, got %+v", cfg)
	}
}

func TestLoadFromTOMLFileCanDisableAutoSync(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "gitkv.toml")
	content := `
auto_sync = false
sync_on_change = false
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.AutoSync {
		t.Fatalf("expected auto_sync = false from file to take effect despite true default")
	}
	if cfg.SyncOnChange {
		t.Fatalf("expected sync_on_change = false from file to take effect despite true default")
	}
}

func TestLoadMissingFileIsNotAnError(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "does-not-exist.toml"))
	if err != nil {
		t.Fatalf("Load with missing file should not error, got %v", err)
	}
	if cfg.Branch != "main" {
		t.Fatalf("expected defaults preserved, got %+v", cfg)
	}
}
