package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/hashicorp/go-version"

	"github.com/satishbabariya/dbal/query/types"
)

// Driver owns the native handle of one logical connection.
type Driver interface {
	// Connect opens the handle. It is a no-op when already connected and
	// never leaves a partially opened handle behind on failure.
	Connect(ctx context.Context) error

	// Disconnect releases the handle. It is a no-op when disconnected.
	Disconnect() error

	IsConnected() bool

	// Prepare connects lazily and prepares query, translating :cN markers.
	Prepare(ctx context.Context, query string) (*Statement, error)

	// Exec runs a statement without bindings, e.g. SAVEPOINT.
	Exec(ctx context.Context, query string) error

	BeginTransaction(ctx context.Context) error
	CommitTransaction(ctx context.Context) error
	RollbackTransaction(ctx context.Context) error
	InTransaction() bool

	// Quote inlines a value. It fails with ErrQuotingUnsupported when the
	// dialect cannot quote.
	Quote(v any, t types.Type) (string, error)
	SupportsQuoting() bool

	Supports(f Feature) bool
	Dialect() Dialect
	ServerVersion() *version.Version
}

// DriverOption configures a SQLDriver
type DriverOption func(*SQLDriver)

// WithDriverLogger sets the driver logger
func WithDriverLogger(l *slog.Logger) DriverOption {
	return func(d *SQLDriver) {
		if l != nil {
			d.logger = l
		}
	}
}

// SQLDriver implements Driver on top of database/sql. It pins a single
// *sql.Conn so session state and transactions stay on one server session.
type SQLDriver struct {
	cfg     Config
	dialect Dialect
	logger  *slog.Logger

	db      *sql.DB
	conn    *sql.Conn
	tx      *sql.Tx
	version *version.Version
}

// NewSQLDriver creates a disconnected driver
func NewSQLDriver(cfg Config, dialect Dialect, opts ...DriverOption) *SQLDriver {
	d := &SQLDriver{
		cfg:     cfg.WithDefaults(),
		dialect: dialect,
		logger:  slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Connect opens the database and pins one session.
func (d *SQLDriver) Connect(ctx context.Context) error {
	if d.conn != nil {
		return nil
	}

	ctx, cancel := context.WithTimeout(ctx, d.cfg.ConnectTimeout)
	defer cancel()

	db, err := d.open()
	if err != nil {
		return err
	}

	conn, err := db.Conn(ctx)
	if err != nil {
		db.Close()
		return d.connectError(err)
	}

	for _, stmt := range append(d.dialect.SessionStatements(d.cfg), d.cfg.Init...) {
		if _, err := conn.ExecContext(ctx, stmt); err != nil {
			conn.Close()
			db.Close()
			return d.connectError(fmt.Errorf("session statement %q: %w", stmt, err))
		}
	}

	d.db = db
	d.conn = conn
	d.version = d.detectVersion(ctx)

	d.logger.Debug("connected",
		"driver", d.dialect.Name(),
		"version", VersionString(d.version),
	)
	return nil
}

func (d *SQLDriver) open() (*sql.DB, error) {
	if opener, ok := d.dialect.(Opener); ok {
		db, err := opener.Open(d.cfg)
		if err != nil {
			return nil, d.connectError(err)
		}
		return db, nil
	}

	dsn := d.cfg.DSN
	if dsn == "" {
		var err error
		if dsn, err = d.dialect.DSN(d.cfg); err != nil {
			return nil, d.connectError(err)
		}
	}

	db, err := sql.Open(d.dialect.DriverName(), dsn)
	if err != nil {
		if strings.Contains(err.Error(), "unknown driver") {
			return nil, &MissingDriverError{Driver: d.dialect.DriverName()}
		}
		return nil, d.connectError(err)
	}
	db.SetMaxOpenConns(1)
	return db, nil
}

func (d *SQLDriver) connectError(err error) error {
	classified := d.dialect.ClassifyConnectError(err)
	if errors.Is(classified, ErrMissingDriver) || errors.Is(classified, ErrMissingExtension) {
		return classified
	}
	return &ConnectionError{Driver: d.dialect.Name(), Err: classified}
}

func (d *SQLDriver) detectVersion(ctx context.Context) *version.Version {
	q := d.dialect.VersionQuery()
	if q == "" {
		return nil
	}
	var raw string
	if err := d.conn.QueryRowContext(ctx, q).Scan(&raw); err != nil {
		d.logger.Debug("server version unavailable", "error", err)
		return nil
	}
	v, err := ParseServerVersion(raw)
	if err != nil {
		d.logger.Debug("server version unparsable", "version", raw, "error", err)
		return nil
	}
	return v
}

// Disconnect closes the session and the database handle.
func (d *SQLDriver) Disconnect() error {
	if d.conn == nil {
		return nil
	}
	var errs []error
	if d.tx != nil {
		// The session is going away; its transaction goes with it.
		_ = d.tx.Rollback()
		d.tx = nil
	}
	if err := d.conn.Close(); err != nil && !errors.Is(err, sql.ErrConnDone) {
		errs = append(errs, err)
	}
	if err := d.db.Close(); err != nil {
		errs = append(errs, err)
	}
	d.conn = nil
	d.db = nil
	d.version = nil
	return errors.Join(errs...)
}

// IsConnected reports whether a session is pinned
func (d *SQLDriver) IsConnected() bool { return d.conn != nil }

// Prepare prepares query on the pinned session
func (d *SQLDriver) Prepare(ctx context.Context, query string) (*Statement, error) {
	if err := d.Connect(ctx); err != nil {
		return nil, err
	}
	translated, names, err := TranslateFor(d.dialect, query)
	if err != nil {
		return nil, err
	}
	stmt, err := d.conn.PrepareContext(ctx, translated)
	if err != nil {
		return nil, err
	}
	return NewStatement(query, translated, names, &sessionStmt{driver: d, sql: translated, stmt: stmt}), nil
}

// Exec runs query on the active transaction or the session
func (d *SQLDriver) Exec(ctx context.Context, query string) error {
	if err := d.Connect(ctx); err != nil {
		return err
	}
	var err error
	if d.tx != nil {
		_, err = d.tx.ExecContext(ctx, query)
	} else {
		_, err = d.conn.ExecContext(ctx, query)
	}
	return err
}

// BeginTransaction starts a native transaction
func (d *SQLDriver) BeginTransaction(ctx context.Context) error {
	if err := d.Connect(ctx); err != nil {
		return err
	}
	if d.tx != nil {
		return fmt.Errorf("transaction already started")
	}
	tx, err := d.conn.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	d.tx = tx
	return nil
}

// CommitTransaction commits the native transaction
func (d *SQLDriver) CommitTransaction(context.Context) error {
	if d.tx == nil {
		return ErrNoTransaction
	}
	tx := d.tx
	d.tx = nil
	return tx.Commit()
}

// RollbackTransaction rolls back the native transaction
func (d *SQLDriver) RollbackTransaction(context.Context) error {
	if d.tx == nil {
		return ErrNoTransaction
	}
	tx := d.tx
	d.tx = nil
	return tx.Rollback()
}

// InTransaction reports whether a native transaction is open
func (d *SQLDriver) InTransaction() bool { return d.tx != nil }

// Quote inlines v as a SQL literal
func (d *SQLDriver) Quote(v any, t types.Type) (string, error) {
	if !d.dialect.SupportsQuoting() {
		return "", fmt.Errorf("%w: %s", ErrQuotingUnsupported, d.dialect.Name())
	}
	return d.dialect.QuoteValue(v, t)
}

// SupportsQuoting reports the dialect capability
func (d *SQLDriver) SupportsQuoting() bool { return d.dialect.SupportsQuoting() }

// Supports checks a feature against the connected server version
func (d *SQLDriver) Supports(f Feature) bool {
	if f == FeatureQuoting {
		return d.dialect.SupportsQuoting()
	}
	return d.dialect.Supports(f, d.version)
}

// Dialect returns the vendor dialect
func (d *SQLDriver) Dialect() Dialect { return d.dialect }

// ServerVersion returns the detected server version, or nil
func (d *SQLDriver) ServerVersion() *version.Version { return d.version }

// sessionStmt runs a session-prepared statement. While a transaction is
// open the SQL goes through the transaction instead.
type sessionStmt struct {
	driver *SQLDriver
	sql    string
	stmt   *sql.Stmt
}

func (s *sessionStmt) ExecContext(ctx context.Context, args ...any) (sql.Result, error) {
	if tx := s.driver.tx; tx != nil {
		return tx.ExecContext(ctx, s.sql, args...)
	}
	return s.stmt.ExecContext(ctx, args...)
}

func (s *sessionStmt) QueryContext(ctx context.Context, args ...any) (*sql.Rows, error) {
	if tx := s.driver.tx; tx != nil {
		return tx.QueryContext(ctx, s.sql, args...)
	}
	return s.stmt.QueryContext(ctx, args...)
}

func (s *sessionStmt) Close() error {
	return s.stmt.Close()
}

var _ Driver = (*SQLDriver)(nil)
