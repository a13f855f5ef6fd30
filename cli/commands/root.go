// Package commands implements the specql CLI command tree.
package commands

import (
	"github.com/spf13/cobra"

	"github.com/specql/specql/cli/internal/config"
	"github.com/specql/specql/cli/internal/ui"
	"github.com/specql/specql/cli/internal/version"
	"github.com/specql/specql/internal/debug"
)

var cfg = &config.Config{}

var debugFlag bool

var rootCmd = &cobra.Command{
	Use:   "specql",
	Short: "Compile typed query specifications to provider SQL",
	Long: `specql turns query specifications into SQL for SQL Server, MySQL and
PostgreSQL. The CLI compiles textual filters against ad-hoc table layouts,
checks database connectivity and scaffolds project configuration.`,
	Version:       version.Get().String(),
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		loaded, err := config.Load()
		if err != nil {
			return err
		}
		*cfg = *loaded
		if debugFlag || cfg.Debug {
			debug.Init(true)
		}
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVar(&debugFlag, "debug", false, "enable debug logging")
	rootCmd.SetVersionTemplate("{{.Version}}\n")
}

// Execute runs the command tree, printing any failure to stderr.
func Execute() error {
	if err := rootCmd.Execute(); err != nil {
		ui.PrintError("%v", err)
		return err
	}
	return nil
}
