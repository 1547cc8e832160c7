package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestDefaultConfig(t *testing.T) {
	cfg := Default("/tmp/ctrain/ctrain.db")
	if cfg.Database.Path != "/tmp/ctrain/ctrain.db" {
		t.Fatalf("unexpected db path %q", cfg.Database.Path)
	}
	if !cfg.Form.ResetAfterSubmit {
		t.Fatal("expected reset_after_submit enabled by default")
	}
	if !cfg.Sinks.Archive.Enabled || cfg.Sinks.Archive.OutDir != filepath.Join("/tmp/ctrain", "submissions") {
		t.Fatalf("unexpected archive defaults %#v", cfg.Sinks.Archive)
	}
	if cfg.Sinks.GitHub.Enabled || cfg.Sinks.Sheets.Enabled || cfg.Sinks.Kafka.Enabled {
		t.Fatal("expected remote sinks disabled by default")
	}
	if cfg.Server.APIEndpoint != "/api/v1" || cfg.Server.MCPEndpoint != "/mcp" {
		t.Fatalf("unexpected server defaults %#v", cfg.Server)
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Validate() error = %v", err)
	}
}

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	defaults := Default("/tmp/ctrain.db")
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.toml"), defaults)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Database.Path != defaults.Database.Path {
		t.Fatalf("expected default db path, got %q", cfg.Database.Path)
	}
}

func TestLoadFileOverridesDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	content := `
[database]
path = "/custom/ctrain.db"

[logging]
level = "debug"

[logging.dev_file]
enabled = true
max_size_mb = 5

[form]
default_period = "Jan 2021 – Jan 2026"
reset_after_submit = false

[sinks]
default = "sheets"

[sinks.sheets]
enabled = true
webhook_url = "https://script.example.com/exec"
timeout = "5s"

[sinks.kafka]
enabled = true
brokers = ["localhost:9092", "localhost:9093"]
topic = "training"
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}

	cfg, err := Load(path, Default("/tmp/default.db"))
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Database.Path != "/custom/ctrain.db" {
		t.Fatalf("unexpected db path %q", cfg.Database.Path)
	}
	if cfg.Logging.Level != "debug" || !cfg.Logging.DevFile.Enabled || cfg.Logging.DevFile.MaxSizeMB != 5 {
		t.Fatalf("unexpected logging config %#v", cfg.Logging)
	}
	if cfg.Logging.DevFile.MaxBackups != 3 {
		t.Fatalf("expected untouched default max_backups, got %d", cfg.Logging.DevFile.MaxBackups)
	}
	if cfg.Form.ResetAfterSubmit {
		t.Fatal("expected reset_after_submit disabled from config override")
	}
	if cfg.Form.DefaultPeriod != "Jan 2021 – Jan 2026" {
		t.Fatalf("unexpected default period %q", cfg.Form.DefaultPeriod)
	}
	if cfg.Sinks.Default != "sheets" || !cfg.Sinks.Sheets.Enabled {
		t.Fatalf("unexpected sinks config %#v", cfg.Sinks)
	}
	timeout, err := cfg.SheetsTimeout()
	if err != nil || timeout != 5*time.Second {
		t.Fatalf("SheetsTimeout() = %v, %v", timeout, err)
	}
	if len(cfg.Sinks.Kafka.Brokers) != 2 || cfg.Sinks.Kafka.Topic != "training" {
		t.Fatalf("unexpected kafka config %#v", cfg.Sinks.Kafka)
	}
	if !cfg.Sinks.Archive.Enabled {
		t.Fatal("expected archive default to survive partial override")
	}
}

func TestLoadNormalizesDefaultSink(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	content := `
[sinks]
default = " Archive "
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}
	cfg, err := Load(path, Default("/tmp/default.db"))
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Sinks.Default != "archive" {
		t.Fatalf("expected normalized default sink, got %q", cfg.Sinks.Default)
	}
}

func TestLoadRejectsInvalidConfig(t *testing.T) {
	cases := map[string]string{
		"log level": `
[logging]
level = "chatty"
`,
		"default sink": `
[sinks]
default = "ftp"
`,
		"github owner": `
[sinks.github]
enabled = true
repo = "records"
`,
		"kafka brokers": `
[sinks.kafka]
enabled = true
topic = "training"
`,
		"sheets timeout": `
[sinks.sheets]
timeout = "soon"
`,
		"endpoint": `
[server]
api_endpoint = "api"
`,
	}
	for name, content := range cases {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "config.toml")
			if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
				t.Fatalf("WriteFile() error = %v", err)
			}
			if _, err := Load(path, Default("/tmp/ctrain.db")); err == nil {
				t.Fatal("expected validation error")
			}
		})
	}
}

func TestLoadRejectsMalformedTOML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte("[database\npath = "), 0o644); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}
	_, err := Load(path, Default("/tmp/ctrain.db"))
	if err == nil || !strings.Contains(err.Error(), "decode toml") {
		t.Fatalf("expected decode error, got %v", err)
	}
}

func TestLoadSecretsReadsEnvFile(t *testing.T) {
	t.Setenv("CTRAIN_GITHUB_TOKEN", "")
	t.Setenv("CTRAIN_SHEETS_WEBHOOK_URL", "")
	_ = os.Unsetenv("CTRAIN_GITHUB_TOKEN")
	_ = os.Unsetenv("CTRAIN_SHEETS_WEBHOOK_URL")

	path := filepath.Join(t.TempDir(), ".env")
	content := "CTRAIN_GITHUB_TOKEN=ghp_test\nCTRAIN_SHEETS_WEBHOOK_URL=https://script.example.com/exec\n"
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}

	secrets, err := LoadSecrets(filepath.Join(t.TempDir(), "missing.env"), path)
	if err != nil {
		t.Fatalf("LoadSecrets() error = %v", err)
	}
	if secrets.GitHubToken != "ghp_test" {
		t.Fatalf("unexpected github token %q", secrets.GitHubToken)
	}
	if secrets.SheetsWebhookURL != "https://script.example.com/exec" {
		t.Fatalf("unexpected webhook url %q", secrets.SheetsWebhookURL)
	}
}

func TestLoadSecretsEnvironmentWins(t *testing.T) {
	t.Setenv("CTRAIN_GITHUB_TOKEN", "from-env")

	path := filepath.Join(t.TempDir(), ".env")
	if err := os.WriteFile(path, []byte("CTRAIN_GITHUB_TOKEN=from-file\n"), 0o600); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}
	secrets, err := LoadSecrets(path)
	if err != nil {
		t.Fatalf("LoadSecrets() error = %v", err)
	}
	if secrets.GitHubToken != "from-env" {
		t.Fatalf("expected process env to win, got %q", secrets.GitHubToken)
	}
}

func TestEnsureConfigDir(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.toml")
	if err := EnsureConfigDir(path); err != nil {
		t.Fatalf("EnsureConfigDir() error = %v", err)
	}
	if _, err := os.Stat(filepath.Dir(path)); err != nil {
		t.Fatalf("expected config dir to exist: %v", err)
	}
}
