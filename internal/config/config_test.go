package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleConfig = `
default: main
logging:
  level: debug
  format: json
connections:
  main:
    driver: postgres
    host: db.internal
    username: app
    password: ${DBAL_TEST_PASSWORD}
    database: app
    connect_timeout: 3s
    retry:
      max_retries: 2
      codes: [40001]
      interval: 50ms
  local:
    driver: sqlite
    database: ":memory:"
    savepoints: true
aliases:
  test: local
query_log:
  engines: [slog]
`

func memFs(t *testing.T, files map[string]string) afero.Fs {
	t.Helper()
	fs := afero.NewMemMapFs()
	for path, content := range files {
		require.NoError(t, afero.WriteFile(fs, path, []byte(content), 0o644))
	}
	return fs
}

func TestLoad(t *testing.T) {
	t.Setenv("DBAL_TEST_PASSWORD", "")
	fs := memFs(t, map[string]string{
		"/work/.dbal.yaml":  sampleConfig,
		"/work/.env.local":  "DBAL_TEST_PASSWORD=s3cret\n",
		"/home/u/.dbal.yml": "default: ignored\n",
	})

	cfg, err := Load(Options{Fs: fs, Dir: "/work", Home: "/home/u"})
	require.NoError(t, err)

	assert.Equal(t, "/work/.dbal.yaml", cfg.File)
	assert.Equal(t, "main", cfg.Default)
	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.Equal(t, "json", cfg.Logging.Format)
	assert.Equal(t, []string{"local", "main"}, cfg.ConnectionNames())
	assert.Equal(t, map[string]string{"test": "local"}, cfg.Aliases)
	assert.Equal(t, []string{EngineSlog}, cfg.QueryLog.Engines)
	assert.Equal(t, "debug", cfg.QueryLog.Level)

	main := cfg.Connections["main"]
	assert.Equal(t, "postgres", main.Driver)
	assert.Equal(t, "s3cret", main.Password)
	assert.Equal(t, 3*time.Second, main.ConnectTimeout)
	assert.Equal(t, 2, main.Retry.MaxRetries)
	assert.Equal(t, []int{40001}, main.Retry.Codes)
	assert.Equal(t, 50*time.Millisecond, main.Retry.Interval)

	assert.True(t, cfg.Connections["local"].SavePoints)
	assert.Equal(t, "main", cfg.Resolve(""))
	assert.Equal(t, "local", cfg.Resolve("local"))
}

func TestLoadSearchesHome(t *testing.T) {
	fs := memFs(t, map[string]string{
		"/home/u/.config/dbal/.dbal.yaml": "connections:\n  default:\n    driver: sqlite\n    database: app.db\n",
	})

	cfg, err := Load(Options{Fs: fs, Dir: "/work", Home: "/home/u"})
	require.NoError(t, err)
	assert.Equal(t, "/home/u/.config/dbal/.dbal.yaml", cfg.File)
	assert.Equal(t, DefaultConnection, cfg.Default)
	assert.Equal(t, "app.db", cfg.Connections["default"].Database)
}

func TestLoadWithoutFile(t *testing.T) {
	cfg, err := Load(Options{Fs: afero.NewMemMapFs(), Dir: "/work", Home: "/home/u"})
	require.NoError(t, err)
	assert.Empty(t, cfg.File)
	assert.Empty(t, cfg.Connections)
	assert.Equal(t, "info", cfg.Logging.Level)
}

func TestLoadExplicitFileMissing(t *testing.T) {
	_, err := Load(Options{Fs: afero.NewMemMapFs(), File: "/etc/dbal.yaml", Home: "/home/u"})
	assert.ErrorContains(t, err, "read config")
}

func TestDotEnvDoesNotOverride(t *testing.T) {
	t.Setenv("DBAL_TEST_USER", "from-env")
	fs := memFs(t, map[string]string{
		"/work/.env":       "DBAL_TEST_USER=from-file\n",
		"/work/.dbal.yaml": "connections:\n  default:\n    driver: mysql\n    host: db\n    username: ${DBAL_TEST_USER}\n",
	})

	cfg, err := Load(Options{Fs: fs, Dir: "/work", Home: "/home/u"})
	require.NoError(t, err)
	assert.Equal(t, "from-env", cfg.Connections["default"].Username)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name string
		yaml string
		want string
	}{
		{"missing driver", "connections:\n  main:\n    host: db\n", `connection "main"`},
		{"bad alias", "connections:\n  main:\n    driver: mysql\n    host: db\naliases:\n  x: nope\n", `unknown connection "nope"`},
		{"unknown engine", "query_log:\n  engines: [kafka]\n", `unknown engine "kafka"`},
		{"influx without url", "query_log:\n  engines: [influx]\n", "query_log.influx.url"},
		{"mqtt without broker", "query_log:\n  engines: [mqtt]\n", "query_log.mqtt.broker"},
		{"log format", "logging:\n  format: xml\n", "logging.format"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fs := memFs(t, map[string]string{"/work/.dbal.yaml": tt.yaml})
			_, err := Load(Options{Fs: fs, Dir: "/work", Home: "/home/u"})
			assert.ErrorContains(t, err, tt.want)
		})
	}
}

func TestWatchReloads(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ".dbal.yaml")
	require.NoError(t, os.WriteFile(path, []byte("default: one\n"), 0o644))

	l, err := NewLoader(Options{Dir: dir, Home: dir})
	require.NoError(t, err)
	cfg, err := l.Load()
	require.NoError(t, err)
	require.Equal(t, "one", cfg.Default)

	reloaded := make(chan *Config, 4)
	w, err := l.Watch(func(c *Config, err error) {
		if err == nil {
			reloaded <- c
		}
	})
	require.NoError(t, err)
	defer w.Stop()

	require.NoError(t, os.WriteFile(path, []byte("default: two\n"), 0o644))

	select {
	case c := <-reloaded:
		assert.Equal(t, "two", c.Default)
	case <-time.After(5 * time.Second):
		t.Fatal("config was not reloaded")
	}
}

func TestWatchWithoutFile(t *testing.T) {
	l, err := NewLoader(Options{Fs: afero.NewMemMapFs(), Dir: "/work", Home: "/home/u"})
	require.NoError(t, err)
	_, err = l.Load()
	require.NoError(t, err)
	_, err = l.Watch(func(*Config, error) {})
	assert.Error(t, err)
}
