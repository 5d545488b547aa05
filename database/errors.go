package database

import (
	"errors"
	"fmt"

	"github.com/satishbabariya/dbal/query/binder"
)

// Error types for database operations.
var (
	// ErrNotConnected is returned when an operation needs a live handle.
	ErrNotConnected = errors.New("database not connected")

	// ErrMissingDriver is returned when no dialect or database/sql driver is registered for a name.
	ErrMissingDriver = errors.New("missing database driver")

	// ErrMissingExtension is returned when the native client library is unavailable.
	ErrMissingExtension = errors.New("missing database extension")

	// ErrNestedTransactionRollback is returned when committing after an inner rollback.
	ErrNestedTransactionRollback = errors.New("cannot commit transaction: inner transaction was rolled back")

	// ErrNoTransaction is returned by Commit and Rollback outside a transaction.
	ErrNoTransaction = errors.New("no active transaction")

	// ErrQuotingUnsupported is returned when a driver cannot inline values.
	ErrQuotingUnsupported = errors.New("driver does not support quoting values")

	// ErrMissingBinding is returned when a placeholder has no bound value.
	ErrMissingBinding = errors.New("missing binding for placeholder")

	// ErrUnknownConnection is returned when a connection name is not configured.
	ErrUnknownConnection = errors.New("unknown connection")
)

// ConnectionError is returned from Connect when the native handle cannot be opened.
type ConnectionError struct {
	Driver string
	Err    error
}

// Error implements the error interface.
func (e *ConnectionError) Error() string {
	return fmt.Sprintf("connection to %s could not be established: %v", e.Driver, e.Err)
}

// Unwrap returns the underlying error.
func (e *ConnectionError) Unwrap() error {
	return e.Err
}

// MissingDriverError reports a driver name with no registered implementation.
// It is permanent and never retried.
type MissingDriverError struct {
	Driver string
}

// Error implements the error interface.
func (e *MissingDriverError) Error() string {
	return fmt.Sprintf("database driver %q is not available", e.Driver)
}

// Is matches ErrMissingDriver.
func (e *MissingDriverError) Is(target error) bool {
	return target == ErrMissingDriver
}

// MissingExtensionError reports a native dependency that cannot be loaded.
// It is permanent and never retried.
type MissingExtensionError struct {
	Driver    string
	Extension string
	Err       error
}

// Error implements the error interface.
func (e *MissingExtensionError) Error() string {
	return fmt.Sprintf("database driver %s requires %s: %v", e.Driver, e.Extension, e.Err)
}

// Unwrap returns the underlying error.
func (e *MissingExtensionError) Unwrap() error {
	return e.Err
}

// Is matches ErrMissingExtension.
func (e *MissingExtensionError) Is(target error) bool {
	return target == ErrMissingExtension
}

// QueryError wraps an execution failure with the offending query.
type QueryError struct {
	Query    string
	Params   []binder.Binding
	Code     int
	SQLState string
	Err      error
}

// Error implements the error interface.
func (e *QueryError) Error() string {
	return fmt.Sprintf("%v (query: %s)", e.Err, e.Query)
}

// Unwrap returns the underlying error.
func (e *QueryError) Unwrap() error {
	return e.Err
}

// QueryString returns the SQL that failed.
func (e *QueryError) QueryString() string {
	return e.Query
}

// VendorCode returns the numeric error code reported by the server, or 0.
func (e *QueryError) VendorCode() int {
	return e.Code
}

// NestedTransactionRollbackError is returned by the outermost Commit when an
// inner transaction without savepoints was rolled back. The whole
// transaction has been rolled back by the time it is returned.
type NestedTransactionRollbackError struct {
	Level int
}

// Error implements the error interface.
func (e *NestedTransactionRollbackError) Error() string {
	return fmt.Sprintf("%v (rolled back at nesting level %d)", ErrNestedTransactionRollback, e.Level)
}

// Is matches ErrNestedTransactionRollback.
func (e *NestedTransactionRollbackError) Is(target error) bool {
	return target == ErrNestedTransactionRollback
}

// IsNestedTransactionRollback checks if an error is a nested rollback failure.
func IsNestedTransactionRollback(err error) bool {
	return errors.Is(err, ErrNestedTransactionRollback)
}

// IsMissingDriver checks if an error is a missing driver failure.
func IsMissingDriver(err error) bool {
	return errors.Is(err, ErrMissingDriver)
}
