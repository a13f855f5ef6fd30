package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/specql/specql/cli/internal/ui"
	"github.com/specql/specql/cli/internal/version"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	RunE:  runVersion,
}

var versionCheck bool

func init() {
	versionCmd.Flags().BoolVar(&versionCheck, "check", false, "check whether a newer release exists")

	rootCmd.AddCommand(versionCmd)
}

func runVersion(cmd *cobra.Command, args []string) error {
	info := version.Get()
	fmt.Println(info.FullString())

	if !versionCheck {
		return nil
	}
	newer, latest, err := version.UpdateAvailable(info.Version)
	if err != nil {
		return err
	}
	if newer {
		ui.PrintWarning("a newer release exists: %s", ui.Highlight(latest))
		ui.PrintInfo("update: go install github.com/specql/specql/cli@latest")
	} else {
		ui.PrintSuccess("up to date")
	}
	return nil
}
