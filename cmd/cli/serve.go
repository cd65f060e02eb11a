package cli

import (
	"os/signal"
	"syscall"

	"github.com/angelsbailbonds/opsflow/internal/initialization"

	"github.com/gofiber/fiber/v3"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

func NewServeCommand(a *app) *cobra.Command {
	var (
		address string
		dryRun  bool
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the webhook server",
		Long: `Serve /health, POST /webhooks/clickup (taskCreated triggers the duplicate
check) and POST /webhooks/session-progress until interrupted.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer cancel()

			if address == "" {
				address = a.container.Config().HTTPAddress
			}

			app, err := a.container.WebhookServer(dryRun)
			if err != nil {
				return err
			}

			log.Info().Str("address", address).Bool("dry_run", dryRun).Msg("Starting webhook server")

			err = app.Listen(address, fiber.ListenConfig{
				GracefulContext:       ctx,
				ShutdownTimeout:       initialization.ShutdownTimeout,
				DisableStartupMessage: true,
			})
			if err != nil && ctx.Err() == nil {
				return err
			}

			log.Info().Msg("Webhook server stopped")
			return nil
		},
	}

	cmd.Flags().StringVar(&address, "address", "", "Listen address (default HTTP_ADDRESS)")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "Report duplicates from webhooks without deleting")

	return cmd
}
