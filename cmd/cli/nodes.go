package cli

import (
	"fmt"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/nodeloom/nodeloom/internal/initialization"
)

func NewNodesCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "nodes",
		Short: "List the node catalogue",
		Long:  `Print every node declaration the runner would serve, grouped by category.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runNodes()
		},
	}

	return cmd
}

func runNodes() error {
	registry, err := initialization.BuildNodeRegistry()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to build node registry")
		return err
	}

	definitions := registry.All()

	lastCategory := ""
	for _, definition := range definitions {
		if definition.Category != lastCategory {
			fmt.Printf("\n%s\n", definition.Category)
			lastCategory = definition.Category
		}
		fmt.Printf("  %-32s %s\n", definition.ID, definition.Name)
	}

	fmt.Printf("\n%d nodes total\n", len(definitions))

	return nil
}
