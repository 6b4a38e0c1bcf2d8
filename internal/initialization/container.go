package initialization

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/rs/zerolog/log"

	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/nodeloom/nodeloom/internal/dispatch"
	"github.com/nodeloom/nodeloom/internal/httpx"
	"github.com/nodeloom/nodeloom/internal/refresh"
	"github.com/nodeloom/nodeloom/internal/resolver"
	"github.com/nodeloom/nodeloom/internal/store"
	"github.com/nodeloom/nodeloom/internal/vault"
	"github.com/nodeloom/nodeloom/pkg/domain"
)

// AppDependencies holds everything the HTTP server needs, built once at
// startup.
type AppDependencies struct {
	Config     domain.AppConfig
	DB         *sql.DB
	Store      domain.CredentialStore
	Resolver   domain.CredentialResolver
	Registry   *domain.NodeRegistry
	Dispatcher *dispatch.Dispatcher
}

type Container struct {
	configManager domain.ConfigManager
}

func NewContainer() (*Container, error) {
	configManager, err := domain.NewConfigManager()
	if err != nil {
		return nil, err
	}

	return &Container{
		configManager: configManager,
	}, nil
}

func (c *Container) GetConfigManager() domain.ConfigManager {
	return c.configManager
}

func (c *Container) BuildAppDependencies(ctx context.Context) (*AppDependencies, error) {
	log.Info().Msg("Building application dependencies")
	logger := log.Logger

	config, err := c.configManager.GetConfig(ctx)
	if err != nil {
		return nil, err
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}

	cipher, err := vault.New(config.EncryptionPassphrase)
	if err != nil {
		log.Error().Err(err).Msg("Failed to initialize the cipher vault")
		return nil, err
	}

	db, err := sql.Open("pgx", config.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		return nil, fmt.Errorf("failed to reach database: %w", err)
	}

	layout, err := store.DetectLayout(ctx, db)
	if err != nil {
		return nil, err
	}

	log.Info().
		Bool("inline", layout.HasInline).
		Bool("catalog", layout.HasCatalog).
		Msg("Credential schema layout detected")

	credentialStore := store.NewPostgresStore(db, layout, logger)

	refresher := refresh.NewOrchestrator(refresh.OrchestratorDependencies{
		Store:        credentialStore,
		Cipher:       cipher,
		OAuthClients: config.OAuthClients,
		Logger:       logger,
	})

	credentialResolver := resolver.NewService(resolver.ServiceDependencies{
		Store:     credentialStore,
		Cipher:    cipher,
		Refresher: refresher,
		Logger:    logger,
	})

	httpClient := httpx.NewClient(httpx.ClientDependencies{
		Logger: logger,
	})

	registry, err := BuildNodeRegistry()
	if err != nil {
		log.Error().Err(err).Msg("Failed to build node registry")
		return nil, err
	}

	dispatcher := dispatch.NewDispatcher(dispatch.DispatcherDependencies{
		Registry:   registry,
		Resolver:   credentialResolver,
		HTTPClient: httpClient,
		Logger:     logger,
	})

	log.Info().Int("nodes", registry.Len()).Msg("Application dependencies built successfully")

	return &AppDependencies{
		Config:     config,
		DB:         db,
		Store:      credentialStore,
		Resolver:   credentialResolver,
		Registry:   registry,
		Dispatcher: dispatcher,
	}, nil
}
