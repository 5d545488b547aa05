// Package dqlite provides a dialect for dqlite clusters. The SQL is SQLite's;
// connections go through the go-dqlite client to whichever node is leader.
package dqlite

import (
	"context"
	"database/sql"
	sqldriver "database/sql/driver"
	"errors"
	"fmt"
	"net"
	"strconv"

	"github.com/canonical/go-dqlite/client"
	"github.com/canonical/go-dqlite/driver"
	"github.com/hashicorp/go-version"

	"github.com/satishbabariya/dbal/database"
	"github.com/satishbabariya/dbal/database/sqlite"
	"github.com/satishbabariya/dbal/query/types"
)

// Name is the configuration driver name
const Name = "dqlite"

// DefaultPort is used for a host without a port
const DefaultPort = 9001

// DefaultDatabase is used when the configuration names none
const DefaultDatabase = "app"

var features = database.MustFeatureTable(map[database.Feature]string{
	database.FeatureSavePoints: "",
	database.FeatureCTE:        "",
	database.FeatureWindow:     "",
	database.FeatureJSON:       "",
})

// Dialect is the dqlite dialect. Values are always bound: dqlite has no
// client side quoting.
type Dialect struct {
	sqlite.Dialect
}

// New returns the dqlite dialect
func New() *Dialect { return &Dialect{} }

func (*Dialect) Name() string       { return Name }
func (*Dialect) DriverName() string { return "dqlite" }

// DSN is the database name. The cluster is addressed through Nodes.
func (*Dialect) DSN(cfg database.Config) (string, error) {
	if cfg.Database == "" {
		return DefaultDatabase, nil
	}
	return cfg.Database, nil
}

// Nodes returns the cluster addresses from Nodes, or Host and Port.
func Nodes(cfg database.Config) ([]string, error) {
	if len(cfg.Nodes) > 0 {
		return cfg.Nodes, nil
	}
	if cfg.Host == "" {
		return nil, errors.New("dqlite requires nodes or a host")
	}
	port := cfg.Port
	if port == 0 {
		port = DefaultPort
	}
	return []string{net.JoinHostPort(cfg.Host, strconv.Itoa(port))}, nil
}

// Open builds a driver on an in-memory node store seeded with the
// configured nodes.
func (d *Dialect) Open(cfg database.Config) (*sql.DB, error) {
	nodes, err := Nodes(cfg)
	if err != nil {
		return nil, err
	}
	infos := make([]client.NodeInfo, len(nodes))
	for i, addr := range nodes {
		infos[i] = client.NodeInfo{ID: uint64(i + 1), Address: addr}
	}

	store := client.NewInmemNodeStore()
	if err := store.Set(context.Background(), infos); err != nil {
		return nil, fmt.Errorf("seed dqlite node store: %w", err)
	}

	var opts []driver.Option
	if cfg.ConnectTimeout > 0 {
		opts = append(opts, driver.WithConnectionTimeout(cfg.ConnectTimeout))
	}
	drv, err := driver.New(store, opts...)
	if err != nil {
		return nil, fmt.Errorf("create dqlite driver: %w", err)
	}

	name := cfg.DSN
	if name == "" {
		name, _ = d.DSN(cfg)
	}
	db := sql.OpenDB(&connector{driver: drv, name: name})
	db.SetMaxOpenConns(1)
	return db, nil
}

type connector struct {
	driver *driver.Driver
	name   string
}

func (c *connector) Connect(context.Context) (sqldriver.Conn, error) {
	return c.driver.Open(c.name)
}

func (c *connector) Driver() sqldriver.Driver { return c.driver }

// SessionStatements is empty; dqlite nodes configure their own pragmas.
func (*Dialect) SessionStatements(database.Config) []string { return nil }

func (*Dialect) SupportsQuoting() bool { return false }

// QuoteValue always fails
func (*Dialect) QuoteValue(any, types.Type) (string, error) {
	return "", database.ErrQuotingUnsupported
}

func (*Dialect) Supports(f database.Feature, v *version.Version) bool {
	return features.Supports(f, v)
}

// ErrorCode reads the code dqlite reports for a failed statement
func (*Dialect) ErrorCode(err error) (int, string, bool) {
	var de driver.Error
	if errors.As(err, &de) {
		return de.Code, "", true
	}
	return 0, "", false
}

// ClassifyConnectError returns err unchanged; the dqlite client is pure Go.
func (*Dialect) ClassifyConnectError(err error) error { return err }

var (
	_ database.Dialect = (*Dialect)(nil)
	_ database.Opener  = (*Dialect)(nil)
)
