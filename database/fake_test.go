package database

import (
	"context"
	"database/sql"
	"errors"

	"github.com/hashicorp/go-version"

	"github.com/satishbabariya/dbal/query/types"
)

type fakeDialect struct {
	quoting bool
}

func (fakeDialect) Name() string                         { return "fake" }
func (fakeDialect) DriverName() string                   { return "fake" }
func (fakeDialect) DSN(Config) (string, error)           { return "fake", nil }
func (fakeDialect) SessionStatements(Config) []string    { return nil }
func (fakeDialect) QuoteIdentifier(name string) string   { return `"` + name + `"` }
func (fakeDialect) Placeholder(int) string               { return "?" }
func (d fakeDialect) SupportsQuoting() bool              { return d.quoting }
func (fakeDialect) SavePoint(name string) string         { return "SAVEPOINT " + name }
func (fakeDialect) ReleaseSavePoint(name string) string  { return "RELEASE SAVEPOINT " + name }
func (fakeDialect) RollbackSavePoint(name string) string { return "ROLLBACK TO SAVEPOINT " + name }
func (fakeDialect) VersionQuery() string                 { return "" }
func (fakeDialect) ClassifyConnectError(err error) error { return err }

func (fakeDialect) QuoteValue(v any, t types.Type) (string, error) {
	return LiteralQuoter{}.Quote(v, t)
}

func (fakeDialect) Supports(f Feature, _ *version.Version) bool {
	return f == FeatureSavePoints
}

type vendorError struct {
	code int
	msg  string
}

func (e vendorError) Error() string { return e.msg }

func (fakeDialect) ErrorCode(err error) (int, string, bool) {
	var ve vendorError
	if errors.As(err, &ve) {
		return ve.code, "HY000", true
	}
	return 0, "", false
}

type fakeResult int64

func (r fakeResult) LastInsertId() (int64, error) { return 0, nil }
func (r fakeResult) RowsAffected() (int64, error) { return int64(r), nil }

// fakeDriver records what the connection asks of it. execErrs are returned
// by successive statement executions.
type fakeDriver struct {
	dialect   fakeDialect
	connected bool
	inTx      bool

	connects    int
	disconnects int
	prepares    int
	connectErr  error

	execErrs []error
	execs    [][]any
	raw      []string
	tx       []string
	closed   int
}

func newFakeDriver() *fakeDriver { return &fakeDriver{} }

func (d *fakeDriver) Connect(context.Context) error {
	if d.connected {
		return nil
	}
	d.connects++
	if d.connectErr != nil {
		return d.connectErr
	}
	d.connected = true
	return nil
}

func (d *fakeDriver) Disconnect() error {
	if d.connected {
		d.disconnects++
	}
	d.connected = false
	d.inTx = false
	return nil
}

func (d *fakeDriver) IsConnected() bool { return d.connected }

func (d *fakeDriver) Prepare(ctx context.Context, query string) (*Statement, error) {
	if err := d.Connect(ctx); err != nil {
		return nil, err
	}
	d.prepares++
	translated, names, err := TranslateFor(d.dialect, query)
	if err != nil {
		return nil, err
	}
	return NewStatement(query, translated, names, &fakeExecutor{driver: d}), nil
}

func (d *fakeDriver) Exec(_ context.Context, query string) error {
	d.raw = append(d.raw, query)
	return nil
}

func (d *fakeDriver) BeginTransaction(ctx context.Context) error {
	if err := d.Connect(ctx); err != nil {
		return err
	}
	d.inTx = true
	d.tx = append(d.tx, "BEGIN")
	return nil
}

func (d *fakeDriver) CommitTransaction(context.Context) error {
	if !d.inTx {
		return ErrNoTransaction
	}
	d.inTx = false
	d.tx = append(d.tx, "COMMIT")
	return nil
}

func (d *fakeDriver) RollbackTransaction(context.Context) error {
	if !d.inTx {
		return ErrNoTransaction
	}
	d.inTx = false
	d.tx = append(d.tx, "ROLLBACK")
	return nil
}

func (d *fakeDriver) InTransaction() bool { return d.inTx }

func (d *fakeDriver) Quote(v any, t types.Type) (string, error) {
	if !d.dialect.quoting {
		return "", ErrQuotingUnsupported
	}
	return d.dialect.QuoteValue(v, t)
}

func (d *fakeDriver) SupportsQuoting() bool            { return d.dialect.quoting }
func (d *fakeDriver) Supports(f Feature) bool          { return d.dialect.Supports(f, nil) }
func (d *fakeDriver) Dialect() Dialect                 { return d.dialect }
func (d *fakeDriver) ServerVersion() *version.Version { return nil }

type fakeExecutor struct {
	driver *fakeDriver
}

func (e *fakeExecutor) ExecContext(_ context.Context, args ...any) (sql.Result, error) {
	d := e.driver
	d.execs = append(d.execs, args)
	if len(d.execErrs) > 0 {
		err := d.execErrs[0]
		d.execErrs = d.execErrs[1:]
		if err != nil {
			return nil, err
		}
	}
	return fakeResult(1), nil
}

func (e *fakeExecutor) QueryContext(context.Context, ...any) (*sql.Rows, error) {
	return nil, errors.New("not supported by the fake driver")
}

func (e *fakeExecutor) Close() error {
	e.driver.closed++
	return nil
}

var _ Driver = (*fakeDriver)(nil)
