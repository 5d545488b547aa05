package commands

import (
	"context"
	"errors"
	"fmt"

	"github.com/satishbabariya/dbal/database"
	"github.com/satishbabariya/dbal/database/dqlite"
	"github.com/satishbabariya/dbal/database/mysql"
	"github.com/satishbabariya/dbal/database/postgres"
	"github.com/satishbabariya/dbal/database/querylog"
	"github.com/satishbabariya/dbal/database/sqlite"
	"github.com/satishbabariya/dbal/internal/config"
	"github.com/satishbabariya/dbal/internal/logging"
)

// dialects are the vendors the command line can connect to
func dialects() []database.Dialect {
	return []database.Dialect{mysql.New(), postgres.New(), sqlite.New(), dqlite.New()}
}

// queryLogger dials the configured engines. Engines opened here are closed
// with the manager.
func (a *app) queryLogger() (*querylog.Logger, error) {
	ql := a.cfg.QueryLog
	if len(ql.Engines) == 0 {
		return nil, nil
	}

	reg := querylog.NewRegistry()
	for _, name := range ql.Engines {
		switch name {
		case config.EngineSlog:
			level, err := logging.ParseLevel(ql.Level)
			if err != nil {
				return nil, err
			}
			reg.Register(name, querylog.NewSlogEngine(a.logger, level))

		case config.EngineInflux:
			engine, closeFn, err := querylog.DialInflux(ql.Influx, func(err error) {
				a.logger.Warn("query log write failed", "engine", config.EngineInflux, "error", err)
			})
			if err != nil {
				return nil, err
			}
			a.mgrClosers = append(a.mgrClosers, func() error { closeFn(); return nil })
			reg.Register(name, engine)

		case config.EngineMQTT:
			engine, closeFn, err := querylog.DialMQTT(ql.MQTT)
			if err != nil {
				return nil, err
			}
			a.mgrClosers = append(a.mgrClosers, func() error { closeFn(); return nil })
			reg.Register(name, engine)
		}
	}
	return reg.Logger(ql.Engines...)
}

// manager builds the connection manager from the loaded configuration on
// first use
func (a *app) manager() (*database.Manager, error) {
	if a.mgr != nil {
		return a.mgr, nil
	}

	ql, err := a.queryLogger()
	if err != nil {
		return nil, errors.Join(err, a.resetManager())
	}

	opts := []database.ManagerOption{
		database.WithManagerLogger(a.logger),
		database.WithManagerQueryLogger(ql),
	}
	for _, d := range dialects() {
		opts = append(opts, database.WithDialect(d))
	}
	m := database.NewManager(opts...)

	for _, name := range a.cfg.ConnectionNames() {
		if err := m.Configure(name, a.cfg.Connections[name]); err != nil {
			return nil, errors.Join(err, a.resetManager())
		}
	}
	for alias, target := range a.cfg.Aliases {
		if err := m.Alias(alias, target); err != nil {
			return nil, errors.Join(err, a.resetManager())
		}
	}
	a.mgr = m
	return m, nil
}

// resetManager disconnects every connection and closes query log engines
func (a *app) resetManager() error {
	var errs []error
	if a.mgr != nil {
		errs = append(errs, a.mgr.Close())
		a.mgr = nil
	}
	for i := len(a.mgrClosers) - 1; i >= 0; i-- {
		errs = append(errs, a.mgrClosers[i]())
	}
	a.mgrClosers = nil
	return errors.Join(errs...)
}

// reload swaps in a new configuration. Open connections are dropped and
// rebuilt on next use.
func (a *app) reload(cfg *config.Config) error {
	err := a.resetManager()
	a.cfg = cfg
	return err
}

// connect resolves name, falling back to the default connection, and
// connects it
func (a *app) connect(ctx context.Context, name string) (*database.Connection, error) {
	m, err := a.manager()
	if err != nil {
		return nil, err
	}
	name = a.cfg.Resolve(name)
	conn, err := m.Get(name)
	if err != nil {
		return nil, err
	}
	if err := conn.Connect(ctx); err != nil {
		return nil, fmt.Errorf("connect %s: %w", name, err)
	}
	if len(a.cfg.QueryLog.Engines) > 0 {
		conn.EnableQueryLogging(true)
	}
	return conn, nil
}
