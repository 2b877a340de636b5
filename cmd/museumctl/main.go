package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	Version   = "dev"
	CommitSHA = "none"
)

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "museumctl",
		Short:         "Operator tooling for the museum booking service",
		SilenceUsage:  true,
		SilenceErrors: true,
		Version:       fmt.Sprintf("%s (%s)", Version, CommitSHA),
	}

	root.AddCommand(newVenuesCmd())
	root.AddCommand(newAdminCmd())
	root.AddCommand(newKeysCmd())
	root.AddCommand(newReconcileCmd())
	root.AddCommand(newExportCmd())
	root.AddCommand(newSheetsCmd())

	return root
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
