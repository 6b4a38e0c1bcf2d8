package cli

import (
	"context"
	"database/sql"
	"fmt"
	"sort"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/nodeloom/nodeloom/internal/initialization"
	"github.com/nodeloom/nodeloom/internal/store"
)

func NewStatusCommand(container *initialization.Container) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show current configuration status",
		Long:  `Display the loaded configuration, including which OAuth providers have client credentials configured.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runStatus(container)
		},
	}

	return cmd
}

func runStatus(container *initialization.Container) error {
	configManager := container.GetConfigManager()

	config, err := configManager.GetConfig(context.Background())
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
		return err
	}

	if err := config.Validate(); err != nil {
		fmt.Println("❌ Configuration is incomplete")
		fmt.Printf("   %v\n", err)
		return nil
	}

	providers := make([]string, 0, len(config.OAuthClients))
	for provider := range config.OAuthClients {
		providers = append(providers, provider)
	}
	sort.Strings(providers)

	fmt.Println("✅ Configuration is ready")
	fmt.Printf("   Listen address: %s\n", config.ListenAddress)
	fmt.Printf("   OAuth providers (%d):\n", len(providers))
	for _, provider := range providers {
		fmt.Printf("     - %s\n", provider)
	}

	printStoreStatus(config.DatabaseURL)

	return nil
}

func printStoreStatus(databaseURL string) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	db, err := sql.Open("pgx", databaseURL)
	if err != nil {
		fmt.Printf("   Database: unreachable (%v)\n", err)
		return
	}
	defer db.Close()

	layout, err := store.DetectLayout(ctx, db)
	if err != nil {
		fmt.Printf("   Database: unreachable (%v)\n", err)
		return
	}

	switch {
	case layout.HasInline && layout.HasCatalog:
		fmt.Println("   Credential schema: inline + catalogue (mid-migration)")
	case layout.HasInline:
		fmt.Println("   Credential schema: inline")
	default:
		fmt.Println("   Credential schema: catalogue")
	}
}
