// Package sqlite provides the SQLite dialect on mattn/go-sqlite3.
package sqlite

import (
	"errors"
	"net/url"
	"strings"

	"github.com/hashicorp/go-version"
	"github.com/mattn/go-sqlite3"

	"github.com/satishbabariya/dbal/database"
	"github.com/satishbabariya/dbal/query/types"
)

// Name is the configuration driver name
const Name = "sqlite"

// Memory is the database name of a private in-memory database
const Memory = ":memory:"

var features = database.MustFeatureTable(map[database.Feature]string{
	database.FeatureSavePoints: "",
	database.FeatureQuoting:    "",
	database.FeatureCTE:        ">= 3.8.3",
	database.FeatureWindow:     ">= 3.25.0",
	database.FeatureJSON:       ">= 3.38.0",
	database.FeatureReturning:  ">= 3.35.0",
})

var quoter = database.LiteralQuoter{}

// Dialect is the SQLite dialect
type Dialect struct{}

// New returns the SQLite dialect
func New() *Dialect { return &Dialect{} }

func (*Dialect) Name() string       { return Name }
func (*Dialect) DriverName() string { return "sqlite3" }

// DSN is the database path with flags as query parameters, e.g.
// _busy_timeout or _journal_mode.
func (*Dialect) DSN(cfg database.Config) (string, error) {
	path := cfg.Database
	if path == "" {
		path = Memory
	}
	if len(cfg.Flags) == 0 {
		return path, nil
	}

	q := url.Values{}
	for k, v := range cfg.Flags {
		q.Set(k, v)
	}

	if path == Memory {
		path = "file::memory:"
	}
	return path + "?" + q.Encode(), nil
}

// SessionStatements enable foreign key enforcement
func (*Dialect) SessionStatements(database.Config) []string {
	return []string{"PRAGMA foreign_keys = ON"}
}

// QuoteIdentifier quotes with double quotes. Dotted names are quoted per part.
func (*Dialect) QuoteIdentifier(name string) string {
	if name == "*" {
		return name
	}
	parts := strings.Split(name, ".")
	for i, p := range parts {
		if p != "*" {
			parts[i] = `"` + strings.ReplaceAll(p, `"`, `""`) + `"`
		}
	}
	return strings.Join(parts, ".")
}

func (*Dialect) Placeholder(int) string { return "?" }

func (*Dialect) SupportsQuoting() bool { return true }

// QuoteValue renders v as a SQLite literal
func (*Dialect) QuoteValue(v any, t types.Type) (string, error) {
	return quoter.Quote(v, t)
}

func (*Dialect) SavePoint(name string) string         { return "SAVEPOINT " + name }
func (*Dialect) ReleaseSavePoint(name string) string  { return "RELEASE SAVEPOINT " + name }
func (*Dialect) RollbackSavePoint(name string) string { return "ROLLBACK TO SAVEPOINT " + name }

func (*Dialect) VersionQuery() string { return "SELECT sqlite_version()" }

func (*Dialect) Supports(f database.Feature, v *version.Version) bool {
	return features.Supports(f, v)
}

// ErrorCode reads the primary SQLite result code. There is no SQLSTATE.
func (*Dialect) ErrorCode(err error) (int, string, bool) {
	var se sqlite3.Error
	if errors.As(err, &se) {
		return int(se.Code), "", true
	}
	return 0, "", false
}

// ClassifyConnectError reports binaries built without cgo, where the
// driver is only a stub, as a missing extension.
func (*Dialect) ClassifyConnectError(err error) error {
	if err != nil && strings.Contains(err.Error(), "requires cgo") {
		return &database.MissingExtensionError{Driver: Name, Extension: "cgo", Err: err}
	}
	return err
}

var _ database.Dialect = (*Dialect)(nil)
