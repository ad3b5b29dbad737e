// Package config
package config

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/Masterminds/semver/v3"
	"gopkg.in/yaml.v3"
)

type Config struct {
	App      AppConfig      `yaml:"app"`
	Plugins  PluginsConfig  `yaml:"plugins"`
	Server   ServerConfig   `yaml:"server"`
	Events   EventsConfig   `yaml:"events"`
	Settings SettingsConfig `yaml:"settings"`
	Logging  LoggingConfig  `yaml:"logging"`
}

type AppConfig struct {
	Name    string `yaml:"name"`
	Version string `yaml:"version"`
	DataDir string `yaml:"data_dir"`
}

type PluginsConfig struct {
	Directory              string `yaml:"directory"`
	ProbeTimeoutMS         int    `yaml:"probe_timeout_ms"`
	MaxConcurrentProcesses int    `yaml:"max_concurrent_processes"`
}

type ServerConfig struct {
	Host           string `yaml:"host"`
	Port           int    `yaml:"port"`
	ReadTimeoutMS  int    `yaml:"read_timeout_ms"`
	WriteTimeoutMS int    `yaml:"write_timeout_ms"`
}

type EventsConfig struct {
	BufferSize int `yaml:"buffer_size"`
}

type SettingsConfig struct {
	File string `yaml:"file"`
}

type LoggingConfig struct {
	Level    string `yaml:"level"`
	Format   string `yaml:"format"`
	Output   string `yaml:"output"`
	FilePath string `yaml:"file_path"`
}

// Load reads configuration from file and applies environment variable overrides.
// A missing file is not an error: defaults and overrides still apply.
func Load(configPath string) (*Config, error) {
	cfg := &Config{}

	data, err := os.ReadFile(configPath)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	case errors.Is(err, os.ErrNotExist):
	default:
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	applyEnvOverrides(cfg)
	cfg.ApplyDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// ApplyDefaults fills zero values
func (c *Config) ApplyDefaults() {
	if c.App.Name == "" {
		c.App.Name = "openusage"
	}
	if c.App.Version == "" {
		c.App.Version = "0.0.0"
	}
	if c.App.DataDir == "" {
		if dir, err := os.UserConfigDir(); err == nil {
			c.App.DataDir = filepath.Join(dir, c.App.Name)
		}
	}
	if c.Plugins.Directory == "" {
		c.Plugins.Directory = "./plugins"
	}
	if c.Plugins.ProbeTimeoutMS == 0 {
		c.Plugins.ProbeTimeoutMS = 15000
	}
	if c.Server.Host == "" {
		c.Server.Host = "127.0.0.1"
	}
	if c.Server.Port == 0 {
		c.Server.Port = 6736
	}
	if c.Server.ReadTimeoutMS == 0 {
		c.Server.ReadTimeoutMS = 10000
	}
	if c.Server.WriteTimeoutMS == 0 {
		c.Server.WriteTimeoutMS = 10000
	}
	if c.Events.BufferSize == 0 {
		c.Events.BufferSize = 64
	}
	if c.Settings.File == "" && c.App.DataDir != "" {
		c.Settings.File = filepath.Join(c.App.DataDir, "settings.json")
	}
	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
	if c.Logging.Format == "" {
		c.Logging.Format = "text"
	}
	if c.Logging.Output == "" {
		c.Logging.Output = "stdout"
	}
}

// Validate ensures all required configuration values are set
func (c *Config) Validate() error {
	if c.App.DataDir == "" {
		return fmt.Errorf("app.data_dir is required")
	}
	if _, err := semver.NewVersion(c.App.Version); err != nil {
		return fmt.Errorf("app.version %q is not a semantic version: %w", c.App.Version, err)
	}
	if c.Plugins.Directory == "" {
		return fmt.Errorf("plugins.directory is required")
	}
	if c.Plugins.ProbeTimeoutMS < 0 {
		return fmt.Errorf("plugins.probe_timeout_ms must not be negative")
	}
	if c.Plugins.MaxConcurrentProcesses < 0 {
		return fmt.Errorf("plugins.max_concurrent_processes must not be negative")
	}
	if c.Events.BufferSize < 0 {
		return fmt.Errorf("events.buffer_size must not be negative")
	}
	if c.Server.Port < 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port %d is out of range", c.Server.Port)
	}
	if !c.Logging.IsLogLevelValid() {
		return fmt.Errorf("logging.level %q is invalid", c.Logging.Level)
	}
	if c.Logging.Output == "file" && c.Logging.FilePath == "" {
		return fmt.Errorf("logging.file_path is required when output is file")
	}
	return nil
}

// applyEnvOverrides checks for environment variables with OPENUSAGE_ prefix
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("OPENUSAGE_APP_DATA_DIR"); v != "" {
		cfg.App.DataDir = v
	}
	if v := os.Getenv("OPENUSAGE_APP_VERSION"); v != "" {
		cfg.App.Version = v
	}
	if v := os.Getenv("OPENUSAGE_PLUGINS_DIRECTORY"); v != "" {
		cfg.Plugins.Directory = v
	}
	if v := os.Getenv("OPENUSAGE_SERVER_PORT"); v != "" {
		fmt.Sscanf(v, "%d", &cfg.Server.Port)
	}
	if v := os.Getenv("OPENUSAGE_LOGGING_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
}

// Addr returns host:port for the HTTP listener
func (s *ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// ReadTimeout returns the read timeout as a duration
func (s *ServerConfig) ReadTimeout() time.Duration {
	return time.Duration(s.ReadTimeoutMS) * time.Millisecond
}

// WriteTimeout returns the write timeout as a duration
func (s *ServerConfig) WriteTimeout() time.Duration {
	return time.Duration(s.WriteTimeoutMS) * time.Millisecond
}

// ProbeTimeout returns the per-probe timeout as a duration
func (p *PluginsConfig) ProbeTimeout() time.Duration {
	return time.Duration(p.ProbeTimeoutMS) * time.Millisecond
}

// IsLogLevelValid checks if the log level is valid
func (l *LoggingConfig) IsLogLevelValid() bool {
	validLevels := []string{"debug", "info", "warn", "error"}
	return slices.Contains(validLevels, strings.ToLower(l.Level))
}

// InitLogger builds the process logger and installs it as the slog default.
// The returned closer releases the log file, if any.
func InitLogger(cfg LoggingConfig) (*slog.Logger, io.Closer, error) {
	var level slog.Level
	switch strings.ToLower(cfg.Level) {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{
		Level: level,
	}

	var out io.Writer = os.Stdout
	var closer io.Closer = io.NopCloser(nil)
	switch cfg.Output {
	case "stderr":
		out = os.Stderr
	case "file":
		if err := os.MkdirAll(filepath.Dir(cfg.FilePath), 0o755); err != nil {
			return nil, nil, fmt.Errorf("failed to create log dir: %w", err)
		}
		f, err := os.OpenFile(cfg.FilePath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to open log file: %w", err)
		}
		out = f
		closer = f
	}

	var handler slog.Handler
	if cfg.Format == "json" {
		handler = slog.NewJSONHandler(out, opts)
	} else {
		handler = slog.NewTextHandler(out, opts)
	}

	logger := slog.New(handler)
	slog.SetDefault(logger)

	return logger, closer, nil
}

// DumpExampleConfig writes an example configuration to the provided writer
func DumpExampleConfig(w io.Writer) error {
	example := &Config{
		App: AppConfig{
			Name:    "openusage",
			Version: "0.6.3",
			DataDir: "./data",
		},
		Plugins: PluginsConfig{
			Directory:              "./plugins",
			ProbeTimeoutMS:         15000,
			MaxConcurrentProcesses: 0,
		},
		Server: ServerConfig{
			Host:           "127.0.0.1",
			Port:           6736,
			ReadTimeoutMS:  10000,
			WriteTimeoutMS: 10000,
		},
		Events: EventsConfig{
			BufferSize: 64,
		},
		Settings: SettingsConfig{
			File: "./data/settings.json",
		},
		Logging: LoggingConfig{
			Level:    "info",
			Format:   "text",
			Output:   "stdout",
			FilePath: "./data/logs/openusage.log",
		},
	}

	header := `# =============================================================================
# OpenUsage Example Configuration
# =============================================================================
# Environment variable overrides follow the pattern: OPENUSAGE_<SECTION>_<KEY>
# Example: OPENUSAGE_APP_DATA_DIR, OPENUSAGE_PLUGINS_DIRECTORY
#
# plugins.max_concurrent_processes: 0 runs every probe of a batch at once.
# =============================================================================

`
	if _, err := fmt.Fprint(w, header); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}

	encoder := yaml.NewEncoder(w)
	encoder.SetIndent(2)
	if err := encoder.Encode(example); err != nil {
		return fmt.Errorf("failed to encode YAML: %w", err)
	}

	if err := encoder.Close(); err != nil {
		return fmt.Errorf("failed to close encoder: %w", err)
	}

	return nil
}
