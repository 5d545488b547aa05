package commands

import (
	"fmt"
	"maps"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/satishbabariya/dbal/internal/config"
)

const redacted = "********"

func newConfigCommand(a *app) *cobra.Command {
	var showSecrets bool

	cmd := &cobra.Command{
		Use:   "config",
		Short: "Print the resolved configuration as YAML",
		Long: `Print the configuration after merging the config file, .env files and
DBAL_ environment overrides. Passwords, DSNs and tokens are masked unless
--show-secrets is given.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := *a.cfg
			if !showSecrets {
				cfg = redact(cfg)
			}
			out, err := yaml.Marshal(cfg)
			if err != nil {
				return fmt.Errorf("encode config: %w", err)
			}

			w := cmd.OutOrStdout()
			if a.cfg.File != "" {
				fmt.Fprintf(w, "# %s\n", a.cfg.File)
			}
			_, err = w.Write(out)
			return err
		},
	}

	cmd.Flags().BoolVar(&showSecrets, "show-secrets", false, "print passwords, DSNs and tokens")
	return cmd
}

// redact returns a copy of cfg with credentials masked
func redact(cfg config.Config) config.Config {
	mask := func(s string) string {
		if s == "" {
			return s
		}
		return redacted
	}

	conns := maps.Clone(cfg.Connections)
	for name, c := range conns {
		c.Password = mask(c.Password)
		c.DSN = mask(c.DSN)
		conns[name] = c
	}
	cfg.Connections = conns
	cfg.QueryLog.Influx.Token = mask(cfg.QueryLog.Influx.Token)
	cfg.QueryLog.MQTT.Password = mask(cfg.QueryLog.MQTT.Password)
	return cfg
}
