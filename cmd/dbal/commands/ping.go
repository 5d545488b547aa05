package commands

import (
	"context"
	"os"
	"os/signal"

	"github.com/spf13/cobra"

	"github.com/satishbabariya/dbal/database"
	"github.com/satishbabariya/dbal/internal/config"
)

func newPingCommand(a *app) *cobra.Command {
	var watch bool

	cmd := &cobra.Command{
		Use:   "ping [connection]",
		Short: "Connect and report the server version and features",
		Long: `Connect to a configured connection (the default one when no name is
given), print the detected server version and which optional features the
dialect enables for it.

With --watch the config file is watched and the check repeats on every change.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			name := ""
			if len(args) > 0 {
				name = args[0]
			}
			ctx := cmd.Context()

			err := a.ping(ctx, name)
			if !watch {
				return err
			}
			if err != nil {
				a.printer.Error("%v", err)
			}

			ctx, stop := signal.NotifyContext(ctx, os.Interrupt)
			defer stop()

			w, err := a.loader.Watch(func(cfg *config.Config, err error) {
				if err != nil {
					a.printer.Error("reload: %v", err)
					return
				}
				if err := a.reload(cfg); err != nil {
					a.logger.Warn("close previous connections", "error", err)
				}
				if err := a.ping(ctx, name); err != nil {
					a.printer.Error("%v", err)
				}
			})
			if err != nil {
				return err
			}
			defer w.Stop()

			a.printer.Warning("watching %s, press Ctrl+C to stop", a.cfg.File)
			<-ctx.Done()
			return nil
		},
	}

	cmd.Flags().BoolVarP(&watch, "watch", "w", false, "repeat the check whenever the config file changes")
	return cmd
}

func (a *app) ping(ctx context.Context, name string) error {
	conn, err := a.connect(ctx, name)
	if err != nil {
		return err
	}
	defer conn.Disconnect()

	a.printer.Title("%s", conn.Name())
	a.printer.KeyValue(
		[2]string{"driver", conn.Config().Driver},
		[2]string{"server version", database.VersionString(conn.ServerVersion())},
		[2]string{"connection id", conn.ID()},
	)

	rows := make([][]string, 0, len(database.AllFeatures))
	for _, f := range database.AllFeatures {
		supported := "no"
		if conn.Supports(f) {
			supported = "yes"
		}
		rows = append(rows, []string{string(f), supported})
	}
	if err := a.printer.Table([]string{"feature", "supported"}, rows); err != nil {
		return err
	}
	a.printer.Success("%s is reachable", conn.Name())
	return nil
}
