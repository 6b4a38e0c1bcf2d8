package cli

import (
	"fmt"
	"os"

	"github.com/nodeloom/nodeloom/internal/initialization"
	"github.com/spf13/cobra"
)

func NewRootCommand() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "nodeloom",
		Short: "Nodeloom workflow runner CLI",
		Long: `Nodeloom is the credential and execution core of a workflow automation
platform. It stores provider credentials encrypted at rest, keeps OAuth
tokens fresh, and runs catalogue nodes on behalf of users.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().Bool("debug", false, "Enable debug logging")

	container, err := initialization.NewContainer()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize container: %v\n", err)
		os.Exit(1)
	}

	rootCmd.AddCommand(NewStartCommand(container))
	rootCmd.AddCommand(NewStatusCommand(container))
	rootCmd.AddCommand(NewNodesCommand())

	return rootCmd
}

// Execute runs the root command
func Execute() {
	if err := NewRootCommand().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
