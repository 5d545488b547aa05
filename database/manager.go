package database

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sort"
	"sync"

	"github.com/satishbabariya/dbal/database/querylog"
)

// DriverFactory builds the driver for a configured connection
type DriverFactory func(cfg Config, dialect Dialect, logger *slog.Logger) Driver

// DefaultDriverFactory builds a SQLDriver
func DefaultDriverFactory(cfg Config, dialect Dialect, logger *slog.Logger) Driver {
	return NewSQLDriver(cfg, dialect, WithDriverLogger(logger))
}

// ManagerOption configures a Manager
type ManagerOption func(*Manager)

// WithDialect makes a dialect available to configurations by its name
func WithDialect(d Dialect) ManagerOption {
	return func(m *Manager) {
		m.dialects[d.Name()] = d
	}
}

// WithManagerLogger sets the logger handed to drivers and connections
func WithManagerLogger(l *slog.Logger) ManagerOption {
	return func(m *Manager) {
		if l != nil {
			m.logger = l
		}
	}
}

// WithManagerQueryLogger sets the query logger handed to connections
func WithManagerQueryLogger(l *querylog.Logger) ManagerOption {
	return func(m *Manager) {
		m.queryLogger = l
	}
}

// WithDriverFactory replaces the driver constructor
func WithDriverFactory(f DriverFactory) ManagerOption {
	return func(m *Manager) {
		if f != nil {
			m.factory = f
		}
	}
}

// Manager is a registry of named connection configurations. Connections are
// created on first use and reused afterwards. A Manager is built once at
// startup and passed to whatever needs to resolve a connection.
type Manager struct {
	mu          sync.Mutex
	dialects    map[string]Dialect
	configs     map[string]Config
	aliases     map[string]string
	conns       map[string]*Connection
	logger      *slog.Logger
	queryLogger *querylog.Logger
	factory     DriverFactory
}

// NewManager creates an empty manager
func NewManager(opts ...ManagerOption) *Manager {
	m := &Manager{
		dialects: make(map[string]Dialect),
		configs:  make(map[string]Config),
		aliases:  make(map[string]string),
		conns:    make(map[string]*Connection),
		logger:   slog.New(slog.NewTextHandler(io.Discard, nil)),
		factory:  DefaultDriverFactory,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Configure registers a named configuration. The driver must name a known
// dialect. A name can only be configured once until it is dropped.
func (m *Manager) Configure(name string, cfg Config) error {
	if name == "" {
		return errors.New("connection name is required")
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("connection %s: %w", name, err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.dialects[cfg.Driver]; !ok {
		return &MissingDriverError{Driver: cfg.Driver}
	}
	if _, ok := m.configs[name]; ok {
		return fmt.Errorf("connection %s is already configured", name)
	}
	m.configs[name] = cfg
	return nil
}

// Alias makes alias resolve to the configured connection source
func (m *Manager) Alias(alias, source string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.configs[source]; !ok {
		return fmt.Errorf("%w: %s", ErrUnknownConnection, source)
	}
	m.aliases[alias] = source
	return nil
}

func (m *Manager) resolve(name string) string {
	if source, ok := m.aliases[name]; ok {
		return source
	}
	return name
}

// Get returns the connection for a name or alias, creating it on first use
func (m *Manager) Get(name string) (*Connection, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	name = m.resolve(name)
	if conn, ok := m.conns[name]; ok {
		return conn, nil
	}
	cfg, ok := m.configs[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownConnection, name)
	}

	logger := m.logger.With("connection", name)
	driver := m.factory(cfg, m.dialects[cfg.Driver], logger)
	conn := NewConnection(name, cfg, driver,
		WithLogger(logger),
		WithQueryLogger(m.queryLogger),
	)
	m.conns[name] = conn
	return conn, nil
}

// Config returns the configuration registered under a name or alias
func (m *Manager) Config(name string) (Config, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	cfg, ok := m.configs[m.resolve(name)]
	return cfg, ok
}

// Names returns the configured connection names in sorted order
func (m *Manager) Names() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	names := make([]string, 0, len(m.configs))
	for name := range m.configs {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Dialects returns the registered dialect names in sorted order
func (m *Manager) Dialects() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	names := make([]string, 0, len(m.dialects))
	for name := range m.dialects {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Drop disconnects and forgets a configuration and any aliases to it
func (m *Manager) Drop(name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	name = m.resolve(name)
	if _, ok := m.configs[name]; !ok {
		return fmt.Errorf("%w: %s", ErrUnknownConnection, name)
	}

	var err error
	if conn, ok := m.conns[name]; ok {
		err = conn.Disconnect()
		delete(m.conns, name)
	}
	delete(m.configs, name)
	for alias, source := range m.aliases {
		if source == name {
			delete(m.aliases, alias)
		}
	}
	return err
}

// Close disconnects every open connection. Configurations are kept.
func (m *Manager) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	var errs []error
	for name, conn := range m.conns {
		if err := conn.Disconnect(); err != nil {
			errs = append(errs, fmt.Errorf("disconnect %s: %w", name, err))
		}
		delete(m.conns, name)
	}
	return errors.Join(errs...)
}
