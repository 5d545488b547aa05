// Package postgres provides the PostgreSQL dialect on lib/pq.
package postgres

import (
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/hashicorp/go-version"
	"github.com/lib/pq"

	"github.com/satishbabariya/dbal/database"
	"github.com/satishbabariya/dbal/query/types"
)

// Name is the configuration driver name
const Name = "postgres"

// DefaultPort is used when the configuration has none
const DefaultPort = 5432

var features = database.MustFeatureTable(map[database.Feature]string{
	database.FeatureSavePoints: "",
	database.FeatureQuoting:    "",
	database.FeatureCTE:        ">= 8.4",
	database.FeatureWindow:     ">= 8.4",
	database.FeatureJSON:       ">= 9.2",
	database.FeatureReturning:  "",
})

var quoter = database.LiteralQuoter{
	String: pq.QuoteLiteral,
	Bytes: func(b []byte) string {
		return pq.QuoteLiteral(fmt.Sprintf(`\x%x`, b)) + "::bytea"
	},
}

// Dialect is the PostgreSQL dialect
type Dialect struct{}

// New returns the PostgreSQL dialect
func New() *Dialect { return &Dialect{} }

func (*Dialect) Name() string       { return Name }
func (*Dialect) DriverName() string { return "postgres" }

// DSN builds a key/value connection string. A socket directory is passed
// as host, which is how libpq style drivers select Unix sockets.
func (*Dialect) DSN(cfg database.Config) (string, error) {
	params := map[string]string{}
	host := cfg.Host
	if cfg.Socket != "" {
		host = cfg.Socket
	}
	if host != "" {
		params["host"] = host
	}
	port := cfg.Port
	if port == 0 {
		port = DefaultPort
	}
	params["port"] = strconv.Itoa(port)
	if cfg.Username != "" {
		params["user"] = cfg.Username
	}
	if cfg.Password != "" {
		params["password"] = cfg.Password
	}
	if cfg.Database != "" {
		params["dbname"] = cfg.Database
	}
	sslmode := cfg.SSLMode
	if sslmode == "" {
		sslmode = "disable"
	}
	params["sslmode"] = sslmode
	if cfg.ConnectTimeout > 0 {
		params["connect_timeout"] = strconv.Itoa(int(cfg.ConnectTimeout.Seconds()))
	}
	for k, v := range cfg.Flags {
		params[k] = v
	}

	keys := make([]string, 0, len(params))
	for k := range params {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+"="+dsnValue(params[k]))
	}
	return strings.Join(parts, " "), nil
}

func dsnValue(v string) string {
	if v != "" && !strings.ContainsAny(v, ` '\`) {
		return v
	}
	v = strings.ReplaceAll(v, `\`, `\\`)
	v = strings.ReplaceAll(v, `'`, `\'`)
	return "'" + v + "'"
}

// SessionStatements set encoding, search path and time zone
func (*Dialect) SessionStatements(cfg database.Config) []string {
	var stmts []string
	if cfg.Charset != "" {
		stmts = append(stmts, "SET NAMES "+pq.QuoteLiteral(cfg.Charset))
	}
	if cfg.Schema != "" {
		stmts = append(stmts, "SET search_path TO "+pq.QuoteIdentifier(cfg.Schema))
	}
	if cfg.Timezone != "" {
		stmts = append(stmts, "SET TIME ZONE "+pq.QuoteLiteral(cfg.Timezone))
	}
	return stmts
}

// QuoteIdentifier quotes with double quotes. Dotted names are quoted per part.
func (*Dialect) QuoteIdentifier(name string) string {
	if name == "*" {
		return name
	}
	parts := strings.Split(name, ".")
	for i, p := range parts {
		if p != "*" {
			parts[i] = pq.QuoteIdentifier(p)
		}
	}
	return strings.Join(parts, ".")
}

func (*Dialect) Placeholder(n int) string { return "$" + strconv.Itoa(n) }

func (*Dialect) SupportsQuoting() bool { return true }

// QuoteValue renders v as a PostgreSQL literal
func (*Dialect) QuoteValue(v any, t types.Type) (string, error) {
	return quoter.Quote(v, t)
}

func (*Dialect) SavePoint(name string) string         { return "SAVEPOINT " + name }
func (*Dialect) ReleaseSavePoint(name string) string  { return "RELEASE SAVEPOINT " + name }
func (*Dialect) RollbackSavePoint(name string) string { return "ROLLBACK TO SAVEPOINT " + name }

func (*Dialect) VersionQuery() string { return "SHOW server_version" }

func (*Dialect) Supports(f database.Feature, v *version.Version) bool {
	return features.Supports(f, v)
}

// ErrorCode reports the SQLSTATE. Numeric states such as 40001 are also
// returned as the vendor code so they can be listed in retry codes.
func (*Dialect) ErrorCode(err error) (int, string, bool) {
	var pe *pq.Error
	if !errors.As(err, &pe) {
		return 0, "", false
	}
	state := string(pe.Code)
	code, convErr := strconv.Atoi(state)
	if convErr != nil {
		code = 0
	}
	return code, state, true
}

// ClassifyConnectError returns err unchanged; lib/pq is pure Go.
func (*Dialect) ClassifyConnectError(err error) error { return err }

var _ database.Dialect = (*Dialect)(nil)
