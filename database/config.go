package database

import (
	"time"

	"github.com/satishbabariya/dbal/validation"
)

// Default values applied by Config.WithDefaults.
const (
	DefaultRetryMax           = 1
	DefaultConnectTimeout     = 10 * time.Second
	DefaultStatementCacheSize = 64
)

// RetryConfig controls how failed statements are retried.
type RetryConfig struct {
	// MaxRetries bounds the retries after the first attempt.
	MaxRetries int `mapstructure:"max_retries" yaml:"max_retries"`
	// Codes are vendor error codes worth waiting out, e.g. 1205 or 1213 on MySQL.
	Codes []int `mapstructure:"codes" yaml:"codes,omitempty"`
	// Interval is slept before retrying a matching vendor code.
	Interval time.Duration `mapstructure:"interval" yaml:"interval,omitempty"`
	// Disabled turns retrying off entirely.
	Disabled bool `mapstructure:"disabled" yaml:"disabled,omitempty"`
}

// Config holds database connection configuration.
type Config struct {
	Driver   string `mapstructure:"driver" yaml:"driver"`
	Host     string `mapstructure:"host" yaml:"host,omitempty"`
	Port     int    `mapstructure:"port" yaml:"port,omitempty"`
	Username string `mapstructure:"username" yaml:"username,omitempty"`
	Password string `mapstructure:"password" yaml:"password,omitempty"`
	Database string `mapstructure:"database" yaml:"database,omitempty"`
	Schema   string `mapstructure:"schema" yaml:"schema,omitempty"`
	Charset  string `mapstructure:"charset" yaml:"charset,omitempty"`
	Socket   string `mapstructure:"socket" yaml:"socket,omitempty"`
	Timezone string `mapstructure:"timezone" yaml:"timezone,omitempty"`
	SSLMode  string `mapstructure:"sslmode" yaml:"sslmode,omitempty"`

	// DSN bypasses DSN construction entirely when set.
	DSN string `mapstructure:"dsn" yaml:"dsn,omitempty"`

	// Flags are vendor specific DSN parameters.
	Flags map[string]string `mapstructure:"flags" yaml:"flags,omitempty"`

	// Init statements run on every new session, after the dialect defaults.
	Init []string `mapstructure:"init" yaml:"init,omitempty"`

	// Nodes lists cluster members for drivers that connect to a cluster.
	Nodes []string `mapstructure:"nodes" yaml:"nodes,omitempty"`

	LogQueries         bool          `mapstructure:"log_queries" yaml:"log_queries,omitempty"`
	SavePoints         bool          `mapstructure:"savepoints" yaml:"savepoints,omitempty"`
	ConnectTimeout     time.Duration `mapstructure:"connect_timeout" yaml:"connect_timeout,omitempty"`
	StatementCacheSize int           `mapstructure:"statement_cache_size" yaml:"statement_cache_size,omitempty"`
	Retry              RetryConfig   `mapstructure:"retry" yaml:"retry,omitempty"`
}

// WithDefaults returns a copy with zero values replaced by defaults.
func (c Config) WithDefaults() Config {
	if c.ConnectTimeout <= 0 {
		c.ConnectTimeout = DefaultConnectTimeout
	}
	if c.StatementCacheSize == 0 {
		c.StatementCacheSize = DefaultStatementCacheSize
	}
	if c.Retry.MaxRetries == 0 && !c.Retry.Disabled {
		c.Retry.MaxRetries = DefaultRetryMax
	}
	return c
}

// Validate checks the configuration for structural errors. Whether the
// driver is actually available is decided by the Manager.
func (c Config) Validate() error {
	v := validation.New(validation.Table{
		"target": hasTarget,
	})
	v.MustAdd("driver", "required").
		MustAdd("port", "between", 0, 65535).
		MustAdd("statement_cache_size", "between", -1, 1<<16).
		MustAdd("max_retries", "between", 0, 100).
		MustAdd("target", "target")

	return v.Validate(c.fields()).Err()
}

func (c Config) fields() map[string]any {
	return map[string]any{
		"driver":               c.Driver,
		"port":                 c.Port,
		"statement_cache_size": c.StatementCacheSize,
		"max_retries":          c.Retry.MaxRetries,
		"target":               c,
	}
}

// hasTarget requires something to connect to: a DSN, a host, a socket,
// a database file or cluster nodes.
func hasTarget(value any, _ validation.Context) validation.Result {
	c := value.(Config)
	if c.DSN != "" || c.Host != "" || c.Socket != "" || c.Database != "" || len(c.Nodes) > 0 {
		return validation.Ok()
	}
	return validation.Failed("one of dsn, host, socket, database or nodes is required")
}
