package database

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/satishbabariya/dbal/database/querylog"
	"github.com/satishbabariya/dbal/query/binder"
	"github.com/satishbabariya/dbal/query/builder"
	"github.com/satishbabariya/dbal/query/expression"
	"github.com/satishbabariya/dbal/query/types"
)

func newTestConnection(t *testing.T, cfg Config, opts ...ConnectionOption) (*Connection, *fakeDriver) {
	t.Helper()
	if cfg.Driver == "" {
		cfg.Driver = "fake"
	}
	d := newFakeDriver()
	return NewConnection("test", cfg, d, opts...), d
}

func TestConnectionExecuteBindsByName(t *testing.T) {
	conn, d := newTestConnection(t, Config{})
	ctx := context.Background()

	res, err := conn.Execute(ctx, "UPDATE t SET a = :c1 WHERE id = :c0", []binder.Binding{
		{Placeholder: ":c0", Value: "7", Type: types.Integer},
		{Placeholder: ":c1", Value: "x", Type: types.String},
	})
	require.NoError(t, err)
	n, _ := res.RowsAffected()
	assert.EqualValues(t, 1, n)
	assert.Equal(t, [][]any{{"x", int64(7)}}, d.execs)
	assert.True(t, conn.IsConnected())
}

func TestConnectionStatementCache(t *testing.T) {
	conn, d := newTestConnection(t, Config{StatementCacheSize: 2})
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		_, err := conn.Execute(ctx, "DELETE FROM t", nil)
		require.NoError(t, err)
	}
	assert.Equal(t, 1, d.prepares)
	assert.Equal(t, int64(2), conn.StatementCacheStats().Hits)

	require.NoError(t, conn.Disconnect())
	assert.Equal(t, 1, d.closed)

	_, err := conn.Execute(ctx, "DELETE FROM t", nil)
	require.NoError(t, err)
	assert.Equal(t, 2, d.prepares)
}

func TestConnectionStatementCacheDisabled(t *testing.T) {
	conn, d := newTestConnection(t, Config{StatementCacheSize: -1})
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		_, err := conn.Execute(ctx, "DELETE FROM t", nil)
		require.NoError(t, err)
	}
	assert.Equal(t, 2, d.prepares)
	assert.Equal(t, 2, d.closed)
}

func TestConnectionEvictionKeepsCheckedOutStatement(t *testing.T) {
	conn, d := newTestConnection(t, Config{StatementCacheSize: 1})
	ctx := context.Background()

	_, release, err := conn.checkout(ctx, "SELECT * FROM t")
	require.NoError(t, err)

	_, err = conn.Execute(ctx, "DELETE FROM t", nil)
	require.NoError(t, err)
	assert.Equal(t, 0, d.closed)

	require.NoError(t, release())
	assert.Equal(t, 1, d.closed)
}

func TestConnectionReconnectsOnLostConnection(t *testing.T) {
	conn, d := newTestConnection(t, Config{})
	d.execErrs = []error{errors.New("write: broken pipe")}

	_, err := conn.Execute(context.Background(), "DELETE FROM t", nil)
	require.NoError(t, err)
	assert.Equal(t, 2, d.connects)
	assert.Equal(t, 1, d.disconnects)
	assert.Len(t, d.execs, 2)
}

func TestConnectionDoesNotReconnectInTransaction(t *testing.T) {
	conn, d := newTestConnection(t, Config{})
	ctx := context.Background()
	require.NoError(t, conn.Begin(ctx))
	d.execErrs = []error{errors.New("MySQL server has gone away")}

	_, err := conn.Execute(ctx, "DELETE FROM t", nil)
	require.Error(t, err)
	assert.Equal(t, 1, d.connects)
	assert.Len(t, d.execs, 1)
	assert.True(t, conn.InTransaction())
}

func TestConnectionRetryBound(t *testing.T) {
	lost := errors.New("Lost connection to server")
	conn, d := newTestConnection(t, Config{Retry: RetryConfig{MaxRetries: 2}})
	d.execErrs = []error{lost, lost, lost, lost}

	_, err := conn.Execute(context.Background(), "DELETE FROM t", nil)
	require.Error(t, err)
	assert.Len(t, d.execs, 3)
	assert.ErrorIs(t, err, lost)
}

func TestConnectionRetryDisabled(t *testing.T) {
	conn, d := newTestConnection(t, Config{Retry: RetryConfig{Disabled: true}})
	d.execErrs = []error{errors.New("broken pipe")}

	_, err := conn.Execute(context.Background(), "DELETE FROM t", nil)
	require.Error(t, err)
	assert.Len(t, d.execs, 1)
}

func TestConnectionErrorCodeRetry(t *testing.T) {
	conn, d := newTestConnection(t, Config{Retry: RetryConfig{MaxRetries: 1, Codes: []int{1205}}})
	d.execErrs = []error{vendorError{code: 1205, msg: "Lock wait timeout exceeded"}}

	_, err := conn.Execute(context.Background(), "UPDATE t SET a = 1", nil)
	require.NoError(t, err)
	assert.Len(t, d.execs, 2)
}

func TestConnectionQueryError(t *testing.T) {
	conn, d := newTestConnection(t, Config{})
	d.execErrs = []error{vendorError{code: 1062, msg: "Duplicate entry"}}

	bindings := []binder.Binding{{Placeholder: ":c0", Value: 1, Type: types.Integer}}
	_, err := conn.Execute(context.Background(), "INSERT INTO t (id) VALUES (:c0)", bindings)

	var qe *QueryError
	require.ErrorAs(t, err, &qe)
	assert.Equal(t, "INSERT INTO t (id) VALUES (:c0)", qe.QueryString())
	assert.Equal(t, 1062, qe.VendorCode())
	assert.Equal(t, "HY000", qe.SQLState)
	assert.Equal(t, bindings, qe.Params)
	assert.Contains(t, qe.Error(), "Duplicate entry")
}

func TestConnectionMissingBinding(t *testing.T) {
	conn, _ := newTestConnection(t, Config{})
	_, err := conn.Execute(context.Background(), "SELECT :c0", nil)
	assert.ErrorIs(t, err, ErrMissingBinding)
}

func TestConnectionConnectErrorNotWrapped(t *testing.T) {
	conn, d := newTestConnection(t, Config{})
	d.connectErr = &ConnectionError{Driver: "fake", Err: errors.New("refused")}

	_, err := conn.Execute(context.Background(), "SELECT 1", nil)
	var ce *ConnectionError
	require.ErrorAs(t, err, &ce)
	var qe *QueryError
	assert.False(t, errors.As(err, &qe))
}

func TestConnectionRun(t *testing.T) {
	conn, d := newTestConnection(t, Config{})
	q := builder.Update("users").
		Set("name", "ann", types.String).
		Where(expression.AllOf().Eq("id", 3, types.Integer))

	_, err := conn.Run(context.Background(), q)
	require.NoError(t, err)
	assert.Equal(t, [][]any{{"ann", int64(3)}}, d.execs)

	_, err = conn.Run(context.Background(), builder.Update("users"))
	assert.Error(t, err)
}

func TestNestedTransactionsWithoutSavePoints(t *testing.T) {
	conn, d := newTestConnection(t, Config{})
	ctx := context.Background()
	assert.False(t, conn.IsSavePointsEnabled())

	require.NoError(t, conn.Begin(ctx))
	require.NoError(t, conn.Begin(ctx))
	assert.Equal(t, 1, conn.TransactionLevel())
	assert.Equal(t, []string{"BEGIN"}, d.tx)

	require.NoError(t, conn.Rollback(ctx))
	assert.Equal(t, 0, conn.TransactionLevel())
	assert.True(t, conn.InTransaction())

	err := conn.Commit(ctx)
	require.Error(t, err)
	assert.True(t, IsNestedTransactionRollback(err))

	var nested *NestedTransactionRollbackError
	require.ErrorAs(t, err, &nested)
	assert.Equal(t, 1, nested.Level)

	assert.Equal(t, []string{"BEGIN", "ROLLBACK"}, d.tx)
	assert.False(t, conn.InTransaction())
	assert.Empty(t, d.raw)
}

func TestNestedTransactionsWithSavePoints(t *testing.T) {
	conn, d := newTestConnection(t, Config{SavePoints: true})
	ctx := context.Background()
	require.True(t, conn.IsSavePointsEnabled())

	require.NoError(t, conn.Begin(ctx))
	require.NoError(t, conn.Begin(ctx))
	require.NoError(t, conn.Begin(ctx))
	require.NoError(t, conn.Rollback(ctx))
	require.NoError(t, conn.Commit(ctx))
	require.NoError(t, conn.Commit(ctx))

	assert.Equal(t, []string{
		"SAVEPOINT LEVEL1",
		"SAVEPOINT LEVEL2",
		"ROLLBACK TO SAVEPOINT LEVEL2",
		"RELEASE SAVEPOINT LEVEL1",
	}, d.raw)
	assert.Equal(t, []string{"BEGIN", "COMMIT"}, d.tx)
	assert.False(t, conn.InTransaction())
}

func TestRollbackAll(t *testing.T) {
	conn, d := newTestConnection(t, Config{})
	ctx := context.Background()

	require.NoError(t, conn.Begin(ctx))
	require.NoError(t, conn.Begin(ctx))
	require.NoError(t, conn.RollbackAll(ctx))
	assert.False(t, conn.InTransaction())
	assert.Equal(t, []string{"BEGIN", "ROLLBACK"}, d.tx)
}

func TestCommitWithoutTransaction(t *testing.T) {
	conn, _ := newTestConnection(t, Config{})
	assert.ErrorIs(t, conn.Commit(context.Background()), ErrNoTransaction)
	assert.ErrorIs(t, conn.Rollback(context.Background()), ErrNoTransaction)
}

func TestTransactional(t *testing.T) {
	ctx := context.Background()

	t.Run("commits", func(t *testing.T) {
		conn, d := newTestConnection(t, Config{})
		err := conn.Transactional(ctx, func(ctx context.Context, c *Connection) error {
			_, err := c.Execute(ctx, "DELETE FROM t", nil)
			return err
		})
		require.NoError(t, err)
		assert.Equal(t, []string{"BEGIN", "COMMIT"}, d.tx)
	})

	t.Run("rolls back on error", func(t *testing.T) {
		conn, d := newTestConnection(t, Config{})
		boom := errors.New("boom")
		err := conn.Transactional(ctx, func(context.Context, *Connection) error { return boom })
		assert.Same(t, boom, err)
		assert.Equal(t, []string{"BEGIN", "ROLLBACK"}, d.tx)
	})

	t.Run("rolls back on panic", func(t *testing.T) {
		conn, d := newTestConnection(t, Config{})
		assert.Panics(t, func() {
			_ = conn.Transactional(ctx, func(context.Context, *Connection) error { panic("boom") })
		})
		assert.Equal(t, []string{"BEGIN", "ROLLBACK"}, d.tx)
		assert.False(t, conn.InTransaction())
	})

	t.Run("inner failure poisons outer", func(t *testing.T) {
		conn, d := newTestConnection(t, Config{})
		err := conn.Transactional(ctx, func(ctx context.Context, c *Connection) error {
			_ = c.Transactional(ctx, func(context.Context, *Connection) error {
				return errors.New("inner")
			})
			return nil
		})
		assert.ErrorIs(t, err, ErrNestedTransactionRollback)
		assert.Equal(t, []string{"BEGIN", "ROLLBACK"}, d.tx)
	})
}

func TestDisconnectResetsTransaction(t *testing.T) {
	conn, _ := newTestConnection(t, Config{})
	ctx := context.Background()
	require.NoError(t, conn.Begin(ctx))
	require.NoError(t, conn.Disconnect())
	assert.False(t, conn.InTransaction())
	assert.False(t, conn.IsConnected())
	assert.NoError(t, conn.Disconnect())
}

func TestInline(t *testing.T) {
	compiled := builder.Compiled{
		SQL: "SELECT * FROM t WHERE name = :c0 AND age > :c1",
		Bindings: []binder.Binding{
			{Placeholder: ":c0", Value: "O'Neil", Type: types.String},
			{Placeholder: ":c1", Value: "30", Type: types.Integer},
		},
	}

	conn, _ := newTestConnection(t, Config{})
	_, err := conn.Inline(compiled)
	assert.ErrorIs(t, err, ErrQuotingUnsupported)

	conn, d := newTestConnection(t, Config{})
	d.dialect.quoting = true
	got, err := conn.Inline(compiled)
	require.NoError(t, err)
	assert.Equal(t, "SELECT * FROM t WHERE name = 'O''Neil' AND age > 30", got)

	_, err = conn.Inline(builder.Compiled{SQL: "SELECT :c9"})
	assert.ErrorIs(t, err, ErrMissingBinding)
}

func TestQueryLogging(t *testing.T) {
	var logged []querylog.LoggedQuery
	ql := querylog.NewLogger(querylog.EngineFunc(func(_ context.Context, q querylog.LoggedQuery) error {
		logged = append(logged, q)
		return nil
	}))
	conn, _ := newTestConnection(t, Config{}, WithQueryLogger(ql))
	ctx := context.Background()

	_, err := conn.Execute(ctx, "DELETE FROM t", nil)
	require.NoError(t, err)
	assert.Empty(t, logged)

	conn.EnableQueryLogging(true)
	require.NoError(t, conn.Transactional(ctx, func(ctx context.Context, c *Connection) error {
		_, err := c.Execute(ctx, "DELETE FROM t WHERE id = :c0", []binder.Binding{
			{Placeholder: ":c0", Value: 5, Type: types.Integer},
		})
		return err
	}))

	require.Len(t, logged, 3)
	assert.Equal(t, "BEGIN", logged[0].Query)
	assert.Equal(t, "DELETE FROM t WHERE id = 5", logged[1].Interpolate())
	assert.EqualValues(t, 1, logged[1].NumRows)
	assert.Equal(t, "test", logged[1].Connection)
	assert.Equal(t, "COMMIT", logged[2].Query)
}

func TestConnectionIdentity(t *testing.T) {
	a, _ := newTestConnection(t, Config{})
	b, _ := newTestConnection(t, Config{})
	assert.NotEqual(t, a.ID(), b.ID())
	assert.Equal(t, "test", a.Name())
	assert.Equal(t, DefaultRetryMax, a.Config().Retry.MaxRetries)
}
