// Package config loads the dbal configuration: named connections, logging
// and query log engines.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/joho/godotenv"
	"github.com/mitchellh/go-homedir"
	"github.com/spf13/afero"
	"github.com/spf13/viper"

	"github.com/satishbabariya/dbal/database"
	"github.com/satishbabariya/dbal/database/querylog"
	"github.com/satishbabariya/dbal/internal/logging"
	"github.com/satishbabariya/dbal/validation"
)

const (
	// FileName is the config file name searched for, without extension
	FileName = ".dbal"
	// EnvPrefix prefixes environment overrides, e.g. DBAL_LOGGING_LEVEL
	EnvPrefix = "DBAL"
	// DefaultConnection is the connection used when none is named
	DefaultConnection = "default"
)

// Query log engine names
const (
	EngineSlog   = "slog"
	EngineInflux = "influx"
	EngineMQTT   = "mqtt"
)

// QueryLogConfig selects the engines that receive executed statements
type QueryLogConfig struct {
	Engines []string               `mapstructure:"engines" yaml:"engines,omitempty"`
	Level   string                 `mapstructure:"level" yaml:"level,omitempty"`
	Influx  querylog.InfluxOptions `mapstructure:"influx" yaml:"influx,omitempty"`
	MQTT    querylog.MQTTOptions   `mapstructure:"mqtt" yaml:"mqtt,omitempty"`
}

// Config is the resolved configuration
type Config struct {
	Logging     logging.Config             `mapstructure:"logging" yaml:"logging"`
	Default     string                     `mapstructure:"default" yaml:"default"`
	Connections map[string]database.Config `mapstructure:"connections" yaml:"connections"`
	Aliases     map[string]string          `mapstructure:"aliases" yaml:"aliases,omitempty"`
	QueryLog    QueryLogConfig             `mapstructure:"query_log" yaml:"query_log"`

	// File is the config file that was read, empty when none was found
	File string `mapstructure:"-" yaml:"-"`
}

// Options control where configuration is looked up
type Options struct {
	// Fs is the filesystem searched. Defaults to the OS filesystem.
	Fs afero.Fs
	// File is an explicit config file; it must exist.
	File string
	// Dir is searched first, and holds .env files. Defaults to ".".
	Dir string
	// Home overrides the home directory
	Home string
}

// Loader reads configuration through viper. A Loader can be reused to
// reload the same sources.
type Loader struct {
	v    *viper.Viper
	fs   afero.Fs
	dir  string
	file string
}

// NewLoader prepares a viper instance searching ./.dbal.yaml,
// ~/.dbal.yaml and ~/.config/dbal/.dbal.yaml.
func NewLoader(opts Options) (*Loader, error) {
	fs := opts.Fs
	if fs == nil {
		fs = afero.NewOsFs()
	}
	dir := opts.Dir
	if dir == "" {
		dir = "."
	}
	home := opts.Home
	if home == "" {
		h, err := homedir.Dir()
		if err != nil {
			return nil, fmt.Errorf("resolve home directory: %w", err)
		}
		home = h
	}

	v := viper.New()
	v.SetFs(fs)
	if opts.File != "" {
		file, err := homedir.Expand(opts.File)
		if err != nil {
			return nil, err
		}
		v.SetConfigFile(file)
	} else {
		v.SetConfigName(FileName)
		v.SetConfigType("yaml")
		v.AddConfigPath(dir)
		v.AddConfigPath(home)
		v.AddConfigPath(filepath.Join(home, ".config", "dbal"))
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault("default", DefaultConnection)
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "text")
	v.SetDefault("query_log.level", "debug")

	return &Loader{v: v, fs: fs, dir: dir, file: opts.File}, nil
}

// Load is NewLoader followed by Loader.Load
func Load(opts Options) (*Config, error) {
	l, err := NewLoader(opts)
	if err != nil {
		return nil, err
	}
	return l.Load()
}

// Load reads .env files, the config file and the environment, then
// validates the result. A missing config file is only an error when one
// was named explicitly.
func (l *Loader) Load() (*Config, error) {
	if err := loadDotEnv(l.fs, l.dir); err != nil {
		return nil, err
	}

	if err := l.v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if l.file != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := l.v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	cfg.File = l.v.ConfigFileUsed()
	cfg.expandEnv()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// loadDotEnv applies .env without overriding the environment, then
// .env.local with overriding.
func loadDotEnv(fs afero.Fs, dir string) error {
	files := []struct {
		name     string
		override bool
	}{
		{".env", false},
		{".env.local", true},
	}
	for _, f := range files {
		path := filepath.Join(dir, f.name)
		if _, err := fs.Stat(path); err != nil {
			continue
		}
		file, err := fs.Open(path)
		if err != nil {
			return fmt.Errorf("open %s: %w", path, err)
		}
		vars, err := godotenv.Parse(file)
		file.Close()
		if err != nil {
			return fmt.Errorf("parse %s: %w", path, err)
		}
		for k, v := range vars {
			if _, set := os.LookupEnv(k); set && !f.override {
				continue
			}
			if err := os.Setenv(k, v); err != nil {
				return err
			}
		}
	}
	return nil
}

// expandEnv substitutes ${VAR} references in connection credentials and
// targets, so secrets can live in .env files.
func (c *Config) expandEnv() {
	for name, conn := range c.Connections {
		conn.Host = os.ExpandEnv(conn.Host)
		conn.Username = os.ExpandEnv(conn.Username)
		conn.Password = os.ExpandEnv(conn.Password)
		conn.Database = os.ExpandEnv(conn.Database)
		conn.DSN = os.ExpandEnv(conn.DSN)
		c.Connections[name] = conn
	}
	c.QueryLog.Influx.Token = os.ExpandEnv(c.QueryLog.Influx.Token)
	c.QueryLog.MQTT.Password = os.ExpandEnv(c.QueryLog.MQTT.Password)
}

// Validate checks every connection, the alias targets and the query log
// engine names.
func (c *Config) Validate() error {
	var errs []error
	for _, name := range c.ConnectionNames() {
		if err := c.Connections[name].Validate(); err != nil {
			errs = append(errs, fmt.Errorf("connection %q: %w", name, err))
		}
	}
	for alias, target := range c.Aliases {
		if _, ok := c.Connections[target]; !ok {
			errs = append(errs, fmt.Errorf("alias %q: unknown connection %q", alias, target))
		}
	}

	v := validation.New(nil)
	v.MustAdd("logging.format", "inList", "text", "json")
	data := map[string]any{"logging.format": c.Logging.Format}
	for _, e := range c.QueryLog.Engines {
		switch e {
		case EngineSlog:
		case EngineInflux:
			v.MustAdd("query_log.influx.url", "required").
				MustAdd("query_log.influx.bucket", "required")
			data["query_log.influx.url"] = c.QueryLog.Influx.URL
			data["query_log.influx.bucket"] = c.QueryLog.Influx.Bucket
		case EngineMQTT:
			v.MustAdd("query_log.mqtt.broker", "required")
			data["query_log.mqtt.broker"] = c.QueryLog.MQTT.Broker
		default:
			errs = append(errs, fmt.Errorf("query_log: unknown engine %q", e))
		}
	}
	if err := v.Validate(data).Err(); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

// ConnectionNames returns the configured connection names, sorted
func (c *Config) ConnectionNames() []string {
	names := make([]string, 0, len(c.Connections))
	for name := range c.Connections {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Resolve returns the connection name to use for name, falling back to
// the default connection.
func (c *Config) Resolve(name string) string {
	if name == "" {
		return c.Default
	}
	return name
}
