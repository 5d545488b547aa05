package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"sync"

	"github.com/satishbabariya/dbal/query/binder"
	"github.com/satishbabariya/dbal/query/types"
)

// Executor runs a prepared statement with positional arguments. *sql.Stmt
// satisfies it.
type Executor interface {
	ExecContext(ctx context.Context, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, args ...any) (*sql.Rows, error)
}

// Statement is a prepared statement with its placeholder layout. It binds
// values by placeholder name, so bindings may be passed in any order.
type Statement struct {
	query string
	sql   string
	names []string
	exec  Executor

	mu      sync.Mutex
	pins    int
	closing bool
	closed  bool
}

// NewStatement wraps a prepared executor. names holds the original marker at
// each position, as returned by Translate.
func NewStatement(query, translated string, names []string, exec Executor) *Statement {
	return &Statement{query: query, sql: translated, names: names, exec: exec}
}

// QueryString returns the SQL as it was handed to Prepare.
func (s *Statement) QueryString() string { return s.query }

// SQL returns the SQL sent to the driver.
func (s *Statement) SQL() string { return s.sql }

// Args orders and converts bindings for the driver. Named markers are looked
// up by placeholder; each ? marker takes the next binding that has no
// placeholder name.
func (s *Statement) Args(bindings []binder.Binding) ([]any, error) {
	index := binder.Index(bindings)
	var positional []binder.Binding
	for _, b := range bindings {
		if b.Placeholder == "" {
			positional = append(positional, b)
		}
	}

	args := make([]any, len(s.names))
	next := 0
	for i, name := range s.names {
		var (
			b  binder.Binding
			ok bool
		)
		if name == "?" {
			if next < len(positional) {
				b, ok = positional[next], true
				next++
			}
		} else {
			b, ok = index[name]
		}
		if !ok {
			return nil, fmt.Errorf("%w: %s at position %d", ErrMissingBinding, name, i+1)
		}
		v, err := types.ToDriver(b.Value, b.Type)
		if err != nil {
			return nil, fmt.Errorf("bind %s: %w", name, err)
		}
		args[i] = v
	}
	return args, nil
}

// Exec runs the statement
func (s *Statement) Exec(ctx context.Context, bindings []binder.Binding) (sql.Result, error) {
	args, err := s.Args(bindings)
	if err != nil {
		return nil, err
	}
	return s.exec.ExecContext(ctx, args...)
}

// Query runs the statement and returns its rows
func (s *Statement) Query(ctx context.Context, bindings []binder.Binding) (*sql.Rows, error) {
	args, err := s.Args(bindings)
	if err != nil {
		return nil, err
	}
	return s.exec.QueryContext(ctx, args...)
}

// Close releases the prepared statement. While rows read from it are still
// open the release is deferred until the last of them is closed.
func (s *Statement) Close() error {
	s.mu.Lock()
	s.closing = true
	if s.pins > 0 {
		s.mu.Unlock()
		return nil
	}
	s.mu.Unlock()
	return s.close()
}

// pin keeps the statement open until the matching unpin
func (s *Statement) pin() {
	s.mu.Lock()
	s.pins++
	s.mu.Unlock()
}

func (s *Statement) unpin() error {
	s.mu.Lock()
	s.pins--
	if s.pins > 0 || !s.closing {
		s.mu.Unlock()
		return nil
	}
	s.mu.Unlock()
	return s.close()
}

func (s *Statement) close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	s.mu.Unlock()

	if c, ok := s.exec.(io.Closer); ok {
		return c.Close()
	}
	return nil
}

// Rows are query results that keep their prepared statement open until
// Close. Callers must always close them, even after Next returned false.
type Rows struct {
	*sql.Rows
	release func() error
	once    sync.Once
}

// Close closes the result set and releases the statement
func (r *Rows) Close() error {
	err := r.Rows.Close()
	r.once.Do(func() {
		if r.release != nil {
			err = errors.Join(err, r.release())
		}
	})
	return err
}
