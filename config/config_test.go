package config

import (
	"os"
	"path/filepath"
	"testing"
)

func writeConfig(t *testing.T, dir, content string) {
	t.Helper()
	cfgDir := filepath.Join(dir, configDir)
	if err := os.MkdirAll(cfgDir, 0755); err != nil {
		t.Fatalf("could not create config dir: %v", err)
	}
	if err := os.WriteFile(filepath.Join(cfgDir, "config.yaml"), []byte(content), 0644); err != nil {
		t.Fatalf("could not write config: %v", err)
	}
}

func TestLoadMergesUserAndProjectConfig(t *testing.T) {
	home := t.TempDir()
	project := t.TempDir()
	t.Setenv("HOME", home)
	t.Chdir(project)

	writeConfig(t, home, `
provider: bedrock
model: global-model
region: us-west-2
`)
	writeConfig(t, project, `
model: project-model
`)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if cfg.Provider != "bedrock" {
		t.Errorf("Expected provider from user config, got %q", cfg.Provider)
	}
	if cfg.Model != "project-model" {
		t.Errorf("Expected project config to win, got %q", cfg.Model)
	}
	if cfg.Region != "us-west-2" {
		t.Errorf("Expected region from user config, got %q", cfg.Region)
	}
}

func TestLoadHidesConfigDirFromFileTools(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	t.Chdir(t.TempDir())

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	found := false
	for _, pattern := range cfg.FilesystemAccess.Hidden {
		if pattern == configDir {
			found = true
		}
	}
	if !found {
		t.Errorf("Expected %q in hidden patterns, got %v", configDir, cfg.FilesystemAccess.Hidden)
	}
}

func TestGetToolset(t *testing.T) {
	cfg := &Config{Toolsets: []Toolset{
		{Name: "default", Tools: []string{"calculator"}},
		{Name: "files", Tools: []string{"file_read", "file_write"}},
	}}

	ts, err := cfg.GetToolset("")
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if ts.Name != "default" {
		t.Errorf("Empty name should select 'default', got %q", ts.Name)
	}

	ts, err = cfg.GetToolset("files")
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if ts.Name != "files" {
		t.Errorf("Expected 'files', got %q", ts.Name)
	}

	// Unknown toolsets fall back to default.
	ts, err = cfg.GetToolset("nonexistent")
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if ts.Name != "default" {
		t.Errorf("Expected fallback to 'default', got %q", ts.Name)
	}

	empty := &Config{}
	if _, err := empty.GetToolset(""); err == nil {
		t.Error("Expected an error when no default toolset exists")
	}
}
