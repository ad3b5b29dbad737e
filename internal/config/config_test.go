package config

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadDefaults(t *testing.T) {
	dataDir := t.TempDir()
	t.Setenv("OPENUSAGE_APP_DATA_DIR", dataDir)

	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)

	assert.Equal(t, "openusage", cfg.App.Name)
	assert.Equal(t, dataDir, cfg.App.DataDir)
	assert.Equal(t, "./plugins", cfg.Plugins.Directory)
	assert.Equal(t, "127.0.0.1:6736", cfg.Server.Addr())
	assert.Equal(t, 64, cfg.Events.BufferSize)
	assert.Equal(t, filepath.Join(dataDir, "settings.json"), cfg.Settings.File)
	assert.Equal(t, int64(15000), cfg.Plugins.ProbeTimeout().Milliseconds())
}

func TestLoadFileAndOverrides(t *testing.T) {
	path := writeConfig(t, `
app:
  version: "1.2.3"
  data_dir: /var/lib/openusage
plugins:
  directory: /opt/plugins
  max_concurrent_processes: 4
server:
  port: 7000
logging:
  level: debug
  format: json
`)
	t.Setenv("OPENUSAGE_SERVER_PORT", "7100")
	t.Setenv("OPENUSAGE_PLUGINS_DIRECTORY", "/srv/plugins")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "1.2.3", cfg.App.Version)
	assert.Equal(t, "/srv/plugins", cfg.Plugins.Directory)
	assert.Equal(t, 4, cfg.Plugins.MaxConcurrentProcesses)
	assert.Equal(t, 7100, cfg.Server.Port)
	assert.Equal(t, "json", cfg.Logging.Format)
}

func TestLoadInvalid(t *testing.T) {
	testCases := []struct {
		name    string
		content string
		errPart string
	}{
		{"BadVersion", "app:\n  data_dir: /tmp/x\n  version: banana\n", "app.version"},
		{"BadLevel", "app:\n  data_dir: /tmp/x\nlogging:\n  level: loud\n", "logging.level"},
		{"BadPort", "app:\n  data_dir: /tmp/x\nserver:\n  port: 70000\n", "server.port"},
		{"FileWithoutPath", "app:\n  data_dir: /tmp/x\nlogging:\n  output: file\n", "logging.file_path"},
		{"NegativeTimeout", "app:\n  data_dir: /tmp/x\nplugins:\n  probe_timeout_ms: -1\n", "probe_timeout_ms"},
		{"Malformed", "app: [", "parse"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tc.content))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tc.errPart)
		})
	}
}

func TestDumpExampleConfig(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, DumpExampleConfig(&buf))
	assert.True(t, strings.HasPrefix(buf.String(), "# ====="))

	var cfg Config
	require.NoError(t, yaml.Unmarshal(buf.Bytes(), &cfg))
	require.NoError(t, cfg.Validate())
	assert.Equal(t, 6736, cfg.Server.Port)
}

func TestInitLoggerFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "openusage.log")
	logger, closer, err := InitLogger(LoggingConfig{Level: "info", Format: "json", Output: "file", FilePath: path})
	require.NoError(t, err)

	logger.Info("hello", "k", "v")
	require.NoError(t, closer.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"msg":"hello"`)
}
