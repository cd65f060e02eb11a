package cli

import (
	"bytes"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/angelsbailbonds/opsflow/internal/auth"
	"github.com/angelsbailbonds/opsflow/internal/config"
	"github.com/angelsbailbonds/opsflow/pkg/session"

	"github.com/spf13/cobra"
)

const sessionProgressPath = "/webhooks/session-progress"

func NewLogSessionCommand(a *app) *cobra.Command {
	var serverURL string

	cmd := &cobra.Command{
		Use:   "log-session <json|->",
		Short: "Post session progress as a ClickUp comment",
		Long: `Parse {"date", "summary", "completed", "next", "blockers"} and post it as a
comment on CLICKUP_SESSION_TASK_ID. Pass - to read the JSON from stdin.
With --server the payload is sent, signed with WEBHOOK_SECRET, to a running
'opsflow serve' instead.`,
		Example: `  opsflow log-session '{"summary": "Wired the intake webhook", "completed": ["intake"], "next": ["dedupe"]}'`,
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			payload := []byte(args[0])
			if args[0] == "-" {
				data, err := io.ReadAll(cmd.InOrStdin())
				if err != nil {
					return err
				}
				payload = data
			}

			progress, err := session.Parse(payload)
			if err != nil {
				return err
			}

			if serverURL != "" {
				return postSessionProgress(cmd, a.container.Config(), serverURL, payload)
			}

			logger, err := a.container.SessionLogger()
			if err != nil {
				return err
			}

			resp, err := logger.Log(cmd.Context(), progress)
			if err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "comment %v posted\n", resp.ID)
			return nil
		},
	}

	cmd.Flags().StringVar(&serverURL, "server", "", "Base URL of a running opsflow serve")

	return cmd
}

func postSessionProgress(cmd *cobra.Command, cfg *config.Config, serverURL string, payload []byte) error {
	if err := cfg.Require(config.KeyWebhookSecret); err != nil {
		return err
	}

	signer, err := auth.NewAPIRequestSigner(cfg.WebhookSecret)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(cmd.Context(), http.MethodPost, strings.TrimRight(serverURL, "/")+sessionProgressPath, bytes.NewReader(payload))
	if err != nil {
		return err
	}

	req.Header.Set("Content-Type", "application/json")
	for key, value := range signer.SignRequest(http.MethodPost, sessionProgressPath, payload) {
		req.Header.Set(key, value)
	}

	resp, err := (&http.Client{Timeout: 30 * time.Second}).Do(req)
	if err != nil {
		return fmt.Errorf("failed to reach %s: %w", serverURL, err)
	}
	defer resp.Body.Close()

	body, readErr := io.ReadAll(io.LimitReader(resp.Body, 4096))

	if resp.StatusCode >= 300 {
		if readErr != nil {
			return fmt.Errorf("server answered %d, reading the response failed: %w", resp.StatusCode, readErr)
		}
		return fmt.Errorf("server answered %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	if readErr != nil {
		return fmt.Errorf("failed to read response: %w", readErr)
	}

	fmt.Fprintln(cmd.OutOrStdout(), strings.TrimSpace(string(body)))
	return nil
}
