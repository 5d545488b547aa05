// Package mysql provides the MySQL and MariaDB dialect.
package mysql

import (
	"errors"
	"net"
	"strconv"
	"strings"
	"time"

	gomysql "github.com/go-sql-driver/mysql"
	"github.com/hashicorp/go-version"

	"github.com/satishbabariya/dbal/database"
	"github.com/satishbabariya/dbal/query/types"
)

// Name is the configuration driver name
const Name = "mysql"

// DefaultPort is used when the configuration has none
const DefaultPort = 3306

// Error codes worth a retry with database.RetryConfig.Codes
const (
	CodeLockWaitTimeout    = 1205
	CodeDeadlock           = 1213
	CodeTooManyConnections = 1040
)

var features = database.MustFeatureTable(map[database.Feature]string{
	database.FeatureSavePoints: "",
	database.FeatureCTE:        ">= 8.0",
	database.FeatureWindow:     ">= 8.0",
	database.FeatureJSON:       ">= 5.7",
})

// Dialect is the MySQL dialect. Values are always bound; the driver offers
// no safe literal quoting.
type Dialect struct{}

// New returns the MySQL dialect
func New() *Dialect { return &Dialect{} }

func (*Dialect) Name() string       { return Name }
func (*Dialect) DriverName() string { return "mysql" }

// DSN builds a go-sql-driver DSN. Unix sockets win over host and port.
// Flags are passed through as DSN parameters.
func (*Dialect) DSN(cfg database.Config) (string, error) {
	c := gomysql.NewConfig()
	c.User = cfg.Username
	c.Passwd = cfg.Password
	c.DBName = cfg.Database
	c.ParseTime = true

	if cfg.Socket != "" {
		c.Net = "unix"
		c.Addr = cfg.Socket
	} else {
		host := cfg.Host
		if host == "" {
			host = "localhost"
		}
		port := cfg.Port
		if port == 0 {
			port = DefaultPort
		}
		c.Net = "tcp"
		c.Addr = net.JoinHostPort(host, strconv.Itoa(port))
	}

	if cfg.ConnectTimeout > 0 {
		c.Timeout = cfg.ConnectTimeout
	}
	if cfg.Timezone != "" {
		loc, err := time.LoadLocation(cfg.Timezone)
		if err == nil {
			c.Loc = loc
		}
	}

	params := map[string]string{}
	if cfg.Charset != "" {
		params["charset"] = cfg.Charset
	}
	for k, v := range cfg.Flags {
		params[k] = v
	}
	if len(params) > 0 {
		c.Params = params
	}
	return c.FormatDSN(), nil
}

// SessionStatements enforce strict mode and the configured time zone
func (*Dialect) SessionStatements(cfg database.Config) []string {
	stmts := []string{"SET SESSION sql_mode = CONCAT(@@sql_mode, ',STRICT_ALL_TABLES')"}
	if cfg.Timezone != "" {
		stmts = append(stmts, "SET time_zone = '"+strings.ReplaceAll(cfg.Timezone, "'", "''")+"'")
	}
	return stmts
}

// QuoteIdentifier quotes with backticks. Dotted names are quoted per part.
func (*Dialect) QuoteIdentifier(name string) string {
	if name == "*" {
		return name
	}
	parts := strings.Split(name, ".")
	for i, p := range parts {
		if p == "*" {
			continue
		}
		parts[i] = "`" + strings.ReplaceAll(p, "`", "``") + "`"
	}
	return strings.Join(parts, ".")
}

func (*Dialect) Placeholder(int) string { return "?" }

// BackslashEscapes is true: the server default sql_mode lacks
// NO_BACKSLASH_ESCAPES.
func (*Dialect) BackslashEscapes() bool { return true }

func (*Dialect) SupportsQuoting() bool { return false }

// QuoteValue always fails
func (*Dialect) QuoteValue(any, types.Type) (string, error) {
	return "", database.ErrQuotingUnsupported
}

func (*Dialect) SavePoint(name string) string         { return "SAVEPOINT " + name }
func (*Dialect) ReleaseSavePoint(name string) string  { return "RELEASE SAVEPOINT " + name }
func (*Dialect) RollbackSavePoint(name string) string { return "ROLLBACK TO SAVEPOINT " + name }

func (*Dialect) VersionQuery() string { return "SELECT VERSION()" }

func (*Dialect) Supports(f database.Feature, v *version.Version) bool {
	return features.Supports(f, v)
}

// ErrorCode reads the server error number and SQLSTATE
func (*Dialect) ErrorCode(err error) (int, string, bool) {
	var me *gomysql.MySQLError
	if !errors.As(err, &me) {
		return 0, "", false
	}
	state := strings.TrimRight(string(me.SQLState[:]), "\x00")
	return int(me.Number), state, true
}

// ClassifyConnectError returns err unchanged; the pure Go driver has no
// native dependency to miss.
func (*Dialect) ClassifyConnectError(err error) error { return err }

var _ database.Dialect = (*Dialect)(nil)
