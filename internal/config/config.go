package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/hylla/ctrain/internal/domain"
	"github.com/joho/godotenv"
	toml "github.com/pelletier/go-toml/v2"
)

type Config struct {
	Database DatabaseConfig `toml:"database"`
	Logging  LoggingConfig  `toml:"logging"`
	Form     FormConfig     `toml:"form"`
	Server   ServerConfig   `toml:"server"`
	Sinks    SinksConfig    `toml:"sinks"`
}

type DatabaseConfig struct {
	Path string `toml:"path"`
}

type LoggingConfig struct {
	Level   string        `toml:"level"` // debug | info | warn | error
	DevFile DevFileConfig `toml:"dev_file"`
}

type DevFileConfig struct {
	Enabled    bool   `toml:"enabled"`
	Dir        string `toml:"dir"`
	MaxSizeMB  int    `toml:"max_size_mb"`
	MaxBackups int    `toml:"max_backups"`
	MaxAgeDays int    `toml:"max_age_days"`
	Compress   bool   `toml:"compress"`
}

type FormConfig struct {
	DefaultPeriod        string `toml:"default_period"`
	DefaultQualification string `toml:"default_qualification"`
	ResetAfterSubmit     bool   `toml:"reset_after_submit"`
}

type ServerConfig struct {
	HTTPBind    string `toml:"http_bind"`
	APIEndpoint string `toml:"api_endpoint"`
	MCPEndpoint string `toml:"mcp_endpoint"`
}

type SinksConfig struct {
	Default string        `toml:"default"`
	Archive ArchiveConfig `toml:"archive"`
	GitHub  GitHubConfig  `toml:"github"`
	Sheets  SheetsConfig  `toml:"sheets"`
	Kafka   KafkaConfig   `toml:"kafka"`
}

type ArchiveConfig struct {
	Enabled bool   `toml:"enabled"`
	OutDir  string `toml:"out_dir"`
}

type GitHubConfig struct {
	Enabled    bool   `toml:"enabled"`
	Owner      string `toml:"owner"`
	Repo       string `toml:"repo"`
	Branch     string `toml:"branch"`
	PathPrefix string `toml:"path_prefix"`
	APIBaseURL string `toml:"api_base_url"`
}

type SheetsConfig struct {
	Enabled    bool   `toml:"enabled"`
	WebhookURL string `toml:"webhook_url"`
	Timeout    string `toml:"timeout"`
}

type KafkaConfig struct {
	Enabled bool     `toml:"enabled"`
	Brokers []string `toml:"brokers"`
	Topic   string   `toml:"topic"`
}

// Secrets never live in the TOML file.
type Secrets struct {
	GitHubToken      string `env:"CTRAIN_GITHUB_TOKEN"`
	SheetsWebhookURL string `env:"CTRAIN_SHEETS_WEBHOOK_URL"`
}

var sinkNames = []string{"archive", "github", "sheets", "kafka"}

func Default(dbPath string) Config {
	return Config{
		Database: DatabaseConfig{
			Path: dbPath,
		},
		Logging: LoggingConfig{
			Level: "info",
			DevFile: DevFileConfig{
				Enabled:    false,
				MaxSizeMB:  10,
				MaxBackups: 3,
				MaxAgeDays: 28,
			},
		},
		Form: FormConfig{
			DefaultPeriod:        domain.DefaultPeriod,
			DefaultQualification: domain.DefaultQualification,
			ResetAfterSubmit:     true,
		},
		Server: ServerConfig{
			HTTPBind:    "127.0.0.1:8080",
			APIEndpoint: "/api/v1",
			MCPEndpoint: "/mcp",
		},
		Sinks: SinksConfig{
			Default: "archive",
			Archive: ArchiveConfig{
				Enabled: true,
				OutDir:  defaultArchiveDir(dbPath),
			},
			GitHub: GitHubConfig{
				Branch:     "main",
				PathPrefix: "submissions",
			},
			Sheets: SheetsConfig{
				Timeout: "30s",
			},
			Kafka: KafkaConfig{
				Topic: "ctrain.submissions",
			},
		},
	}
}

func defaultArchiveDir(dbPath string) string {
	if strings.TrimSpace(dbPath) == "" {
		return "submissions"
	}
	return filepath.Join(filepath.Dir(dbPath), "submissions")
}

func Load(path string, defaults Config) (Config, error) {
	cfg := defaults
	if strings.TrimSpace(path) == "" {
		return cfg, nil
	}

	content, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return cfg, nil
		}
		return Config{}, fmt.Errorf("read config: %w", err)
	}
	if len(content) == 0 {
		return cfg, nil
	}

	if err := toml.Unmarshal(content, &cfg); err != nil {
		return Config{}, fmt.Errorf("decode toml: %w", err)
	}
	cfg.Sinks.Default = strings.ToLower(strings.TrimSpace(cfg.Sinks.Default))

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

func (c Config) Validate() error {
	if strings.TrimSpace(c.Database.Path) == "" {
		return errors.New("database path is required")
	}

	switch strings.TrimSpace(strings.ToLower(c.Logging.Level)) {
	case "", "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("invalid logging.level: %q", c.Logging.Level)
	}
	if c.Logging.DevFile.MaxSizeMB < 0 || c.Logging.DevFile.MaxBackups < 0 || c.Logging.DevFile.MaxAgeDays < 0 {
		return errors.New("logging.dev_file limits must be >= 0")
	}

	if strings.TrimSpace(c.Server.HTTPBind) == "" {
		return errors.New("server.http_bind is required")
	}
	for name, endpoint := range map[string]string{"api_endpoint": c.Server.APIEndpoint, "mcp_endpoint": c.Server.MCPEndpoint} {
		endpoint = strings.TrimSpace(endpoint)
		if endpoint != "" && !strings.HasPrefix(endpoint, "/") {
			return fmt.Errorf("server.%s must start with /: %q", name, endpoint)
		}
	}

	if d := strings.TrimSpace(strings.ToLower(c.Sinks.Default)); d != "" && !slices.Contains(sinkNames, d) {
		return fmt.Errorf("invalid sinks.default: %q", c.Sinks.Default)
	}
	if c.Sinks.Archive.Enabled && strings.TrimSpace(c.Sinks.Archive.OutDir) == "" {
		return errors.New("sinks.archive.out_dir is required when the archive sink is enabled")
	}
	if c.Sinks.GitHub.Enabled && (strings.TrimSpace(c.Sinks.GitHub.Owner) == "" || strings.TrimSpace(c.Sinks.GitHub.Repo) == "") {
		return errors.New("sinks.github.owner and sinks.github.repo are required when the github sink is enabled")
	}
	if _, err := c.SheetsTimeout(); err != nil {
		return err
	}
	if c.Sinks.Kafka.Enabled {
		if len(c.Sinks.Kafka.Brokers) == 0 {
			return errors.New("sinks.kafka.brokers must include at least one broker")
		}
		if strings.TrimSpace(c.Sinks.Kafka.Topic) == "" {
			return errors.New("sinks.kafka.topic is required when the kafka sink is enabled")
		}
	}

	return nil
}

func (c Config) SheetsTimeout() (time.Duration, error) {
	raw := strings.TrimSpace(c.Sinks.Sheets.Timeout)
	if raw == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(raw)
	if err != nil || d < 0 {
		return 0, fmt.Errorf("invalid sinks.sheets.timeout: %q", c.Sinks.Sheets.Timeout)
	}
	return d, nil
}

func LoadSecrets(envFiles ...string) (Secrets, error) {
	for _, path := range envFiles {
		if strings.TrimSpace(path) == "" {
			continue
		}
		if _, err := os.Stat(path); err != nil {
			continue
		}
		if err := godotenv.Load(path); err != nil {
			return Secrets{}, fmt.Errorf("load env file %s: %w", path, err)
		}
	}
	var secrets Secrets
	if err := env.Parse(&secrets); err != nil {
		return Secrets{}, fmt.Errorf("parse env secrets: %w", err)
	}
	return secrets, nil
}

func EnsureConfigDir(path string) error {
	dir := filepath.Dir(path)
	if dir == "." || dir == "" {
		return nil
	}
	return os.MkdirAll(dir, 0o755)
}
