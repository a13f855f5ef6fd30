package commands

import (
	"fmt"

	"github.com/AlecAivazis/survey/v2"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	"github.com/specql/specql/cli/internal/config"
	"github.com/specql/specql/cli/internal/ui"
	"github.com/specql/specql/dialect"
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Create a .specql.yaml in the working directory",
	Long: `Init scaffolds the CLI configuration. Provider and DSN are taken from
flags when given and prompted for otherwise.`,
	RunE: runInit,
}

var (
	initProvider string
	initDSN      string
	initForce    bool
)

func init() {
	initCmd.Flags().StringVarP(&initProvider, "provider", "p", "", "database provider")
	initCmd.Flags().StringVar(&initDSN, "dsn", "", "connection string")
	initCmd.Flags().BoolVar(&initForce, "force", false, "overwrite an existing .specql.yaml")

	rootCmd.AddCommand(initCmd)
}

func runInit(cmd *cobra.Command, args []string) error {
	if _, err := config.AppFs.Stat(".specql.yaml"); err == nil && !initForce {
		return fmt.Errorf(".specql.yaml already exists (use --force to overwrite)")
	}

	providerName := initProvider
	if providerName == "" {
		prompt := &survey.Select{
			Message: "Database provider:",
			Options: []string{"sqlserver", "mysql", "postgres"},
			Default: "sqlserver",
		}
		if err := survey.AskOne(prompt, &providerName); err != nil {
			return err
		}
	}
	p, err := dialect.Parse(providerName)
	if err != nil {
		return err
	}

	dsn := initDSN
	if dsn == "" && !cmd.Flags().Changed("dsn") {
		prompt := &survey.Input{
			Message: "Connection string (leave empty to use DATABASE_URL):",
		}
		if err := survey.AskOne(prompt, &dsn); err != nil {
			return err
		}
	}

	path, err := config.Save(&config.Config{Provider: p.String(), DSN: dsn})
	if err != nil {
		return err
	}
	ui.PrintSuccess("wrote %s", ui.Highlight(path))

	if dsn != "" {
		if _, err := config.AppFs.Stat(".env"); err != nil {
			writeEnv := false
			prompt := &survey.Confirm{
				Message: "Also write DATABASE_URL to .env?",
			}
			if err := survey.AskOne(prompt, &writeEnv); err != nil {
				return err
			}
			if writeEnv {
				content := "DATABASE_URL=" + dsn + "\n"
				if err := afero.WriteFile(config.AppFs, ".env", []byte(content), 0600); err != nil {
					return err
				}
				ui.PrintSuccess("wrote %s", ui.Highlight(".env"))
			}
		}
	}

	ui.PrintInfo("next: specql ping, then specql compile -t <table> -c <columns>")
	return nil
}
