package commands

import (
	"github.com/spf13/cobra"

	"github.com/roost-dev/roost/internal/printer"
	"github.com/roost-dev/roost/internal/scaffold"
)

var initForce bool

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Create a starter roost.yml in the current directory",
	Long: `Write a commented starter configuration the daemon can run with
unchanged. Refuses to overwrite an existing roost.yml unless --force
is given.`,
	RunE: runInit,
}

func init() {
	initCmd.Flags().BoolVar(&initForce, "force", false, "Overwrite an existing roost.yml")
	rootCmd.AddCommand(initCmd)
}

func runInit(cmd *cobra.Command, args []string) error {
	if err := scaffold.Initialize(initForce); err != nil {
		return printer.Error(
			"Initialization failed",
			err.Error(),
			nil)
	}

	scaffold.PrintSuccess()
	return nil
}
