package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/hashicorp/go-version"

	"github.com/satishbabariya/dbal/database/querylog"
	"github.com/satishbabariya/dbal/database/retry"
	"github.com/satishbabariya/dbal/internal/cache"
	"github.com/satishbabariya/dbal/internal/sqlscan"
	"github.com/satishbabariya/dbal/query/binder"
	"github.com/satishbabariya/dbal/query/builder"
	"github.com/satishbabariya/dbal/query/types"
)

// ConnectionOption configures a Connection
type ConnectionOption func(*Connection)

// WithLogger sets the logger for connection and reconnect events
func WithLogger(l *slog.Logger) ConnectionOption {
	return func(c *Connection) {
		if l != nil {
			c.logger = l
		}
	}
}

// WithQueryLogger sets the query log destination. Records are only written
// while query logging is enabled.
func WithQueryLogger(l *querylog.Logger) ConnectionOption {
	return func(c *Connection) {
		c.queryLogger = l
	}
}

// WithRetryStrategy replaces the default reconnect strategy
func WithRetryStrategy(s retry.Strategy) ConnectionOption {
	return func(c *Connection) {
		c.strategy = s
	}
}

// Connection is one logical database connection: a driver plus nested
// transaction tracking, a prepared statement cache, retries and query
// logging. A Connection is not safe for concurrent use.
type Connection struct {
	id     string
	name   string
	cfg    Config
	driver Driver

	logger      *slog.Logger
	queryLogger *querylog.Logger
	logQueries  bool

	strategy retry.Strategy
	retry    *retry.CommandRetry
	stmts    *cache.LRU[string, *Statement]

	transactionStarted bool
	transactionLevel   int
	useSavePoints      bool
	nestedRollback     *NestedTransactionRollbackError
}

// NewConnection creates a disconnected connection around driver
func NewConnection(name string, cfg Config, driver Driver, opts ...ConnectionOption) *Connection {
	cfg = cfg.WithDefaults()
	c := &Connection{
		id:         uuid.NewString(),
		name:       name,
		cfg:        cfg,
		driver:     driver,
		logger:     slog.New(slog.NewTextHandler(io.Discard, nil)),
		logQueries: cfg.LogQueries,
	}
	for _, opt := range opts {
		opt(c)
	}

	if cfg.StatementCacheSize > 0 {
		c.stmts = cache.New(cfg.StatementCacheSize, func(query string, stmt *Statement) {
			if err := stmt.Close(); err != nil {
				c.logger.Debug("close cached statement", "connection", c.name, "error", err)
			}
		})
	}

	if c.strategy == nil {
		c.strategy = c.defaultStrategy()
	}
	maxRetries := cfg.Retry.MaxRetries
	if cfg.Retry.Disabled {
		maxRetries = 0
	}
	c.retry = retry.NewCommandRetry(c.strategy, maxRetries)

	if cfg.SavePoints {
		c.EnableSavePoints(true)
	}
	return c
}

func (c *Connection) defaultStrategy() retry.Strategy {
	strategies := []retry.Strategy{
		retry.NewReconnectStrategy(c,
			retry.WithLogger(c.logger),
			retry.WithConnectionName(c.name),
		),
	}
	if len(c.cfg.Retry.Codes) > 0 {
		strategies = append(strategies, retry.NewErrorCodeWaitStrategy(c.cfg.Retry.Codes, c.cfg.Retry.Interval))
	}
	return retry.Chain(strategies...)
}

// ID returns a unique identifier for this connection instance
func (c *Connection) ID() string { return c.id }

// Name returns the configured connection name
func (c *Connection) Name() string { return c.name }

// Config returns the effective configuration
func (c *Connection) Config() Config { return c.cfg }

// Driver returns the underlying driver
func (c *Connection) Driver() Driver { return c.driver }

// Connect opens the driver handle
func (c *Connection) Connect(ctx context.Context) error {
	if c.driver.IsConnected() {
		return nil
	}
	if err := c.driver.Connect(ctx); err != nil {
		return err
	}
	c.logger.Debug("connection opened", "connection", c.name, "id", c.id)
	return nil
}

// Disconnect closes cached statements and the driver handle. Any open
// transaction is lost.
func (c *Connection) Disconnect() error {
	if c.stmts != nil {
		c.stmts.Purge()
	}
	c.transactionStarted = false
	c.transactionLevel = 0
	c.nestedRollback = nil
	return c.driver.Disconnect()
}

// IsConnected reports whether the driver holds a live handle
func (c *Connection) IsConnected() bool { return c.driver.IsConnected() }

// InTransaction reports whether a transaction is open at any depth
func (c *Connection) InTransaction() bool { return c.transactionStarted }

// TransactionLevel returns the nesting depth, 0 for the outermost level
func (c *Connection) TransactionLevel() int { return c.transactionLevel }

// Prepare returns a prepared statement for query. When statement caching is
// enabled the statement belongs to the cache and is closed on eviction or
// disconnect; otherwise the caller must close it.
func (c *Connection) Prepare(ctx context.Context, query string) (*Statement, error) {
	return c.prepare(ctx, query)
}

func (c *Connection) prepare(ctx context.Context, query string) (*Statement, error) {
	if c.stmts != nil {
		if stmt, ok := c.stmts.Get(query); ok {
			return stmt, nil
		}
	}
	stmt, err := c.driver.Prepare(ctx, query)
	if err != nil {
		return nil, err
	}
	if c.stmts != nil {
		c.stmts.Add(query, stmt)
	}
	return stmt, nil
}

// checkout prepares query and pins the statement until release runs, so
// eviction or a disabled cache cannot close it under open rows.
func (c *Connection) checkout(ctx context.Context, query string) (*Statement, func() error, error) {
	stmt, err := c.prepare(ctx, query)
	if err != nil {
		return nil, nil, err
	}
	stmt.pin()
	if c.stmts == nil {
		_ = stmt.Close()
	}
	return stmt, stmt.unpin, nil
}

// StatementCacheStats reports prepared statement cache usage
func (c *Connection) StatementCacheStats() cache.Stats {
	if c.stmts == nil {
		return cache.Stats{}
	}
	return c.stmts.GetStats()
}

// Execute runs a statement with bindings. Lost connections and configured
// vendor errors are retried.
func (c *Connection) Execute(ctx context.Context, query string, bindings []binder.Binding) (sql.Result, error) {
	start := time.Now()
	res, err := retry.Run(ctx, c.retry, func(ctx context.Context) (sql.Result, error) {
		stmt, release, err := c.checkout(ctx, query)
		if err != nil {
			return nil, c.queryError(query, bindings, err)
		}
		defer c.unpin(release)
		res, err := stmt.Exec(ctx, bindings)
		if err != nil {
			return nil, c.queryError(query, bindings, err)
		}
		return res, nil
	})

	var rows int64
	if err == nil {
		if n, rerr := res.RowsAffected(); rerr == nil {
			rows = n
		}
	}
	c.logQuery(ctx, querylog.LoggedQuery{
		Query:   query,
		Params:  bindings,
		Took:    time.Since(start),
		NumRows: rows,
		Err:     err,
	})
	return res, err
}

// Query runs a statement returning rows. The caller must close the rows;
// the prepared statement stays open until then.
func (c *Connection) Query(ctx context.Context, query string, bindings []binder.Binding) (*Rows, error) {
	start := time.Now()
	rows, err := retry.Run(ctx, c.retry, func(ctx context.Context) (*Rows, error) {
		stmt, release, err := c.checkout(ctx, query)
		if err != nil {
			return nil, c.queryError(query, bindings, err)
		}
		rows, err := stmt.Query(ctx, bindings)
		if err != nil {
			c.unpin(release)
			return nil, c.queryError(query, bindings, err)
		}
		return &Rows{Rows: rows, release: release}, nil
	})
	c.logQuery(ctx, querylog.LoggedQuery{
		Query:  query,
		Params: bindings,
		Took:   time.Since(start),
		Err:    err,
	})
	return rows, err
}

// Run compiles a statement builder and executes it
func (c *Connection) Run(ctx context.Context, q builder.Compilable) (sql.Result, error) {
	compiled, err := q.Compile()
	if err != nil {
		return nil, err
	}
	return c.Execute(ctx, compiled.SQL, compiled.Bindings)
}

// RunQuery compiles a statement builder and returns its rows
func (c *Connection) RunQuery(ctx context.Context, q builder.Compilable) (*Rows, error) {
	compiled, err := q.Compile()
	if err != nil {
		return nil, err
	}
	return c.Query(ctx, compiled.SQL, compiled.Bindings)
}

func (c *Connection) unpin(release func() error) {
	if err := release(); err != nil {
		c.logger.Debug("close statement", "connection", c.name, "error", err)
	}
}

func (c *Connection) queryError(query string, bindings []binder.Binding, err error) error {
	var connErr *ConnectionError
	if errors.As(err, &connErr) || errors.Is(err, ErrMissingDriver) || errors.Is(err, ErrMissingExtension) {
		return err
	}
	qe := &QueryError{Query: query, Params: bindings, Err: err}
	if d := c.driver.Dialect(); d != nil {
		if code, state, ok := d.ErrorCode(err); ok {
			qe.Code = code
			qe.SQLState = state
		}
	}
	return qe
}

// EnableQueryLogging turns query logging on or off
func (c *Connection) EnableQueryLogging(enable bool) {
	c.logQueries = enable
}

// IsQueryLoggingEnabled reports whether queries are being logged
func (c *Connection) IsQueryLoggingEnabled() bool {
	return c.logQueries && c.queryLogger != nil
}

func (c *Connection) logQuery(ctx context.Context, q querylog.LoggedQuery) {
	if !c.IsQueryLoggingEnabled() {
		return
	}
	q.Connection = c.name
	if err := c.queryLogger.Log(ctx, q); err != nil {
		c.logger.Warn("query log failed", "connection", c.name, "error", err)
	}
}

// Begin starts a transaction, or a nested level of the current one. Nested
// levels use savepoints when enabled.
func (c *Connection) Begin(ctx context.Context) error {
	if !c.transactionStarted {
		start := time.Now()
		err := c.retry.Run(ctx, c.driver.BeginTransaction)
		c.logQuery(ctx, querylog.LoggedQuery{Query: "BEGIN", Took: time.Since(start), Err: err})
		if err != nil {
			return err
		}
		c.transactionStarted = true
		c.transactionLevel = 0
		c.nestedRollback = nil
		return nil
	}

	c.transactionLevel++
	if c.IsSavePointsEnabled() {
		if err := c.CreateSavePoint(ctx, savePointName(c.transactionLevel)); err != nil {
			c.transactionLevel--
			return err
		}
	}
	return nil
}

// Commit commits the current level. The outermost commit fails with a
// NestedTransactionRollbackError, after rolling everything back, when an
// inner level was rolled back without a savepoint.
func (c *Connection) Commit(ctx context.Context) error {
	if !c.transactionStarted {
		return ErrNoTransaction
	}

	if c.transactionLevel == 0 {
		if nested := c.nestedRollback; nested != nil {
			if err := c.rollback(ctx, true); err != nil {
				return errors.Join(nested, err)
			}
			return nested
		}

		c.transactionStarted = false
		c.nestedRollback = nil
		start := time.Now()
		err := c.driver.CommitTransaction(ctx)
		c.logQuery(ctx, querylog.LoggedQuery{Query: "COMMIT", Took: time.Since(start), Err: err})
		return err
	}

	if c.IsSavePointsEnabled() {
		if err := c.ReleaseSavePoint(ctx, savePointName(c.transactionLevel)); err != nil {
			return err
		}
	}
	c.transactionLevel--
	return nil
}

// Rollback rolls back the current level
func (c *Connection) Rollback(ctx context.Context) error {
	return c.rollback(ctx, false)
}

// RollbackAll rolls back the whole transaction regardless of depth
func (c *Connection) RollbackAll(ctx context.Context) error {
	return c.rollback(ctx, true)
}

func (c *Connection) rollback(ctx context.Context, toBeginning bool) error {
	if !c.transactionStarted {
		return ErrNoTransaction
	}

	if c.transactionLevel == 0 || toBeginning {
		c.transactionStarted = false
		c.transactionLevel = 0
		c.nestedRollback = nil
		start := time.Now()
		err := c.driver.RollbackTransaction(ctx)
		c.logQuery(ctx, querylog.LoggedQuery{Query: "ROLLBACK", Took: time.Since(start), Err: err})
		return err
	}

	level := c.transactionLevel
	c.transactionLevel--
	if c.IsSavePointsEnabled() {
		return c.RollbackSavePoint(ctx, savePointName(level))
	}
	if c.nestedRollback == nil {
		c.nestedRollback = &NestedTransactionRollbackError{Level: level}
	}
	return nil
}

// Transactional runs fn inside a transaction level. The level is committed
// when fn returns nil and rolled back when it returns an error or panics.
func (c *Connection) Transactional(ctx context.Context, fn func(ctx context.Context, conn *Connection) error) error {
	if err := c.Begin(ctx); err != nil {
		return err
	}

	defer func() {
		if r := recover(); r != nil {
			_ = c.Rollback(ctx)
			panic(r)
		}
	}()

	if err := fn(ctx, c); err != nil {
		if rerr := c.Rollback(ctx); rerr != nil {
			return errors.Join(err, rerr)
		}
		return err
	}
	return c.Commit(ctx)
}

// EnableSavePoints turns savepoints for nested transactions on or off. It
// returns whether savepoints are enabled afterwards, which is false when the
// driver cannot provide them.
func (c *Connection) EnableSavePoints(enable bool) bool {
	c.useSavePoints = enable && c.driver.Supports(FeatureSavePoints)
	return c.useSavePoints
}

// IsSavePointsEnabled reports whether nested levels use savepoints
func (c *Connection) IsSavePointsEnabled() bool { return c.useSavePoints }

func savePointName(level int) string {
	return "LEVEL" + strconv.Itoa(level)
}

// CreateSavePoint creates a savepoint
func (c *Connection) CreateSavePoint(ctx context.Context, name string) error {
	return c.execRaw(ctx, c.driver.Dialect().SavePoint(name))
}

// ReleaseSavePoint releases a savepoint
func (c *Connection) ReleaseSavePoint(ctx context.Context, name string) error {
	q := c.driver.Dialect().ReleaseSavePoint(name)
	if q == "" {
		return nil
	}
	return c.execRaw(ctx, q)
}

// RollbackSavePoint rolls back to a savepoint
func (c *Connection) RollbackSavePoint(ctx context.Context, name string) error {
	return c.execRaw(ctx, c.driver.Dialect().RollbackSavePoint(name))
}

func (c *Connection) execRaw(ctx context.Context, query string) error {
	start := time.Now()
	err := c.driver.Exec(ctx, query)
	if err != nil {
		err = c.queryError(query, nil, err)
	}
	c.logQuery(ctx, querylog.LoggedQuery{Query: query, Took: time.Since(start), Err: err})
	return err
}

// Quote inlines a value as a SQL literal
func (c *Connection) Quote(v any, t types.Type) (string, error) {
	return c.driver.Quote(v, t)
}

// SupportsQuoting reports whether values can be inlined
func (c *Connection) SupportsQuoting() bool { return c.driver.SupportsQuoting() }

// Inline renders compiled SQL with every bound value quoted in place. It
// fails with ErrQuotingUnsupported for drivers that only accept bound
// parameters.
func (c *Connection) Inline(compiled builder.Compiled) (string, error) {
	if !c.driver.SupportsQuoting() {
		return "", fmt.Errorf("%w: connection %s", ErrQuotingUnsupported, c.name)
	}
	index := binder.Index(compiled.Bindings)
	return scannerFor(c.driver.Dialect()).Rewrite(compiled.SQL, func(tok sqlscan.Token) (string, error) {
		b, ok := index[tok.Value]
		if !ok {
			return "", fmt.Errorf("%w: %s", ErrMissingBinding, tok.Value)
		}
		return c.driver.Quote(b.Value, b.Type)
	})
}

// Supports reports whether the connected server supports a feature
func (c *Connection) Supports(f Feature) bool { return c.driver.Supports(f) }

// ServerVersion returns the connected server version, or nil when unknown
func (c *Connection) ServerVersion() *version.Version { return c.driver.ServerVersion() }

var _ retry.Reconnectable = (*Connection)(nil)
