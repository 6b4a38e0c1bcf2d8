package cli

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/nodeloom/nodeloom/internal/initialization"
	"github.com/nodeloom/nodeloom/internal/server"
)

func NewStartCommand(container *initialization.Container) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "start",
		Short: "Start the workflow runner",
		Long:  `Start the HTTP server that executes catalogue nodes and serves the node listing.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runStart(container)
		},
	}

	return cmd
}

func runStart(container *initialization.Container) error {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	log.Info().Msg("Starting workflow runner")

	deps, err := container.BuildAppDependencies(ctx)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to build application dependencies")
	}
	defer deps.DB.Close()

	controller := server.NewExecutionController(server.ExecutionControllerDependencies{
		Dispatcher: deps.Dispatcher,
		Registry:   deps.Registry,
	})

	app := server.NewHTTPServer(server.HTTPServerDependencies{
		ExecutionController: controller,
	})

	go func() {
		<-ctx.Done()
		log.Info().Msg("Shutting down HTTP server")
		if err := app.Shutdown(); err != nil {
			log.Error().Err(err).Msg("HTTP server shutdown failed")
		}
	}()

	log.Info().Str("address", deps.Config.ListenAddress).Msg("HTTP server listening")

	if err := app.Listen(deps.Config.ListenAddress); err != nil {
		log.Error().Err(err).Msg("HTTP server failed")
	}

	log.Info().Msg("Workflow runner stopped")
	return nil
}
