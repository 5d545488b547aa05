package database

import (
	"database/sql"
	"fmt"
	"regexp"

	"github.com/hashicorp/go-version"

	"github.com/satishbabariya/dbal/query/types"
)

// Feature is an optional server capability
type Feature string

const (
	FeatureSavePoints Feature = "savepoints"
	FeatureQuoting    Feature = "quoting"
	FeatureCTE        Feature = "cte"
	FeatureWindow     Feature = "window"
	FeatureJSON       Feature = "json"
	FeatureReturning  Feature = "returning"
)

// AllFeatures lists every known feature in display order
var AllFeatures = []Feature{
	FeatureSavePoints, FeatureQuoting, FeatureCTE, FeatureWindow, FeatureJSON, FeatureReturning,
}

// Dialect captures the SQL and connection differences of one vendor.
type Dialect interface {
	// Name is the configuration name, e.g. "mysql".
	Name() string

	// DriverName is the database/sql driver name.
	DriverName() string

	// DSN builds a data source name from cfg. Config.DSN overrides it.
	DSN(cfg Config) (string, error)

	// SessionStatements run once on every new session.
	SessionStatements(cfg Config) []string

	// QuoteIdentifier quotes a table or column name.
	QuoteIdentifier(name string) string

	// Placeholder renders the n-th (1-based) positional parameter marker.
	Placeholder(n int) string

	// SupportsQuoting reports whether QuoteValue can inline values safely.
	SupportsQuoting() bool

	// QuoteValue renders v as a SQL literal.
	QuoteValue(v any, t types.Type) (string, error)

	SavePoint(name string) string
	ReleaseSavePoint(name string) string
	RollbackSavePoint(name string) string

	// VersionQuery returns a single row, single column server version.
	VersionQuery() string

	// Supports reports a feature for the given server version. A nil
	// version means the server version is unknown.
	Supports(f Feature, v *version.Version) bool

	// ErrorCode extracts the vendor code and SQLSTATE from a driver error.
	ErrorCode(err error) (code int, sqlState string, ok bool)

	// ClassifyConnectError maps connect failures onto MissingDriverError
	// or MissingExtensionError where applicable, otherwise returns err.
	ClassifyConnectError(err error) error
}

// Opener is implemented by dialects that construct their own *sql.DB
// instead of going through sql.Open.
type Opener interface {
	Open(cfg Config) (*sql.DB, error)
}

// FeatureTable maps features to the server versions that support them.
type FeatureTable map[Feature]version.Constraints

// NewFeatureTable parses constraint strings such as ">= 8.0". An empty
// constraint means every version.
func NewFeatureTable(constraints map[Feature]string) (FeatureTable, error) {
	t := make(FeatureTable, len(constraints))
	for f, expr := range constraints {
		if expr == "" {
			t[f] = nil
			continue
		}
		c, err := version.NewConstraint(expr)
		if err != nil {
			return nil, err
		}
		t[f] = c
	}
	return t, nil
}

// MustFeatureTable is NewFeatureTable that panics on malformed constraints
func MustFeatureTable(constraints map[Feature]string) FeatureTable {
	t, err := NewFeatureTable(constraints)
	if err != nil {
		panic(err)
	}
	return t
}

// Supports reports whether f is available on v. Unknown versions are
// assumed to support every listed feature.
func (t FeatureTable) Supports(f Feature, v *version.Version) bool {
	c, ok := t[f]
	if !ok {
		return false
	}
	if v == nil || c == nil {
		return true
	}
	return c.Check(v)
}

var versionPrefix = regexp.MustCompile(`\d+(\.\d+)*`)

// ParseServerVersion extracts the leading version number from strings such
// as "8.0.36-0ubuntu0.22.04.1" or "15.4 (Debian 15.4-1.pgdg120+1)".
func ParseServerVersion(s string) (*version.Version, error) {
	m := versionPrefix.FindString(s)
	if m == "" {
		return nil, fmt.Errorf("malformed server version %q", s)
	}
	return version.NewVersion(m)
}

// VersionString renders v, or "unknown" for nil
func VersionString(v *version.Version) string {
	if v == nil {
		return "unknown"
	}
	return v.String()
}
