// Package commands implements the dbal command line.
package commands

import (
	"errors"
	"io"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/satishbabariya/dbal/database"
	"github.com/satishbabariya/dbal/internal/config"
	"github.com/satishbabariya/dbal/internal/logging"
	"github.com/satishbabariya/dbal/internal/ui"
)

// app carries the state shared by every command of one invocation
type app struct {
	opts     config.Options
	plain    bool
	logLevel string
	logOut   io.Writer

	loader  *config.Loader
	cfg     *config.Config
	logger  *slog.Logger
	printer *ui.Printer

	mgr        *database.Manager
	mgrClosers []func() error
	closers    []func() error
}

// Execute runs the dbal command line
func Execute() error {
	a := &app{}
	err := newRootCommand(a).Execute()
	return errors.Join(err, a.close())
}

// NewRootCommand builds the dbal command tree
func NewRootCommand() *cobra.Command {
	return newRootCommand(&app{})
}

func newRootCommand(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "dbal",
		Short: "Inspect and query configured database connections",
		Long: `dbal resolves named connections from .dbal.yaml, checks them and runs
statements with bound parameters, using the same retry, reconnect and
query logging behavior as the library.`,
		Version:      Get().String(),
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.setup(cmd)
		},
	}

	flags := cmd.PersistentFlags()
	flags.StringVarP(&a.opts.File, "config", "c", "", "config file (default ./.dbal.yaml, ~/.dbal.yaml, ~/.config/dbal/.dbal.yaml)")
	flags.BoolVar(&a.plain, "plain", false, "disable colors and styling")
	flags.StringVar(&a.logLevel, "log-level", "", "override logging.level")

	cmd.AddCommand(
		newConfigCommand(a),
		newPingCommand(a),
		newExecCommand(a),
		newVersionCommand(),
	)
	return cmd
}

func (a *app) setup(cmd *cobra.Command) error {
	if a.printer == nil {
		a.printer = ui.New(a.plain)
		a.printer.Out = cmd.OutOrStdout()
		a.printer.Err = cmd.ErrOrStderr()
	}

	loader, err := config.NewLoader(a.opts)
	if err != nil {
		return err
	}
	cfg, err := loader.Load()
	if err != nil {
		return err
	}
	if a.logLevel != "" {
		cfg.Logging.Level = a.logLevel
	}

	logger, closeLog, err := logging.New(cfg.Logging, a.logOut)
	if err != nil {
		return err
	}
	a.closers = append(a.closers, closeLog)
	a.loader, a.cfg, a.logger = loader, cfg, logger
	return nil
}

// close releases the manager, query log engines and log output
func (a *app) close() error {
	errs := []error{a.resetManager()}
	for i := len(a.closers) - 1; i >= 0; i-- {
		errs = append(errs, a.closers[i]())
	}
	a.closers = nil
	return errors.Join(errs...)
}
