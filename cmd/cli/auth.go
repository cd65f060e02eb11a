package cli

import (
	"bufio"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/angelsbailbonds/opsflow/internal/auth"
	"github.com/angelsbailbonds/opsflow/internal/config"
	"github.com/angelsbailbonds/opsflow/internal/initialization"
	"github.com/angelsbailbonds/opsflow/pkg/clients/canva"
	"github.com/angelsbailbonds/opsflow/pkg/mcp/googletools"
	"github.com/angelsbailbonds/opsflow/pkg/oauthstore"

	"github.com/spf13/cobra"
	"golang.org/x/oauth2"
)

func NewAuthCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "auth <google|canva|secret>",
		Short: "Authorize opsflow and store the OAuth token",
		Long: `Print the consent URL, read the code from the redirect and store the token in
GOOGLE_TOKEN_FILE or CANVA_TOKEN_FILE. The MCP servers refresh it from then on.
'auth secret' prints a fresh value for WEBHOOK_SECRET.`,
		Args:      cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
		ValidArgs: []string{initialization.MCPServerGoogle, initialization.MCPServerCanva, "secret"},
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := a.container.Config()

			if args[0] == "secret" {
				secret, err := auth.GenerateSecret()
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), secret)
				return nil
			}

			var (
				oauthConfig *oauth2.Config
				tokenFile   string
			)

			switch args[0] {
			case initialization.MCPServerGoogle:
				if err := cfg.Require(config.KeyGoogleClientID, config.KeyGoogleClientSecret); err != nil {
					return err
				}
				oauthConfig = googletools.OAuthConfig(cfg.GoogleClientID, cfg.GoogleClientSecret)
				tokenFile = cfg.GoogleTokenFile
			case initialization.MCPServerCanva:
				if err := cfg.Require(config.KeyCanvaClientID, config.KeyCanvaClientSecret); err != nil {
					return err
				}
				oauthConfig = canva.OAuthConfig(cfg.CanvaClientID, cfg.CanvaClientSecret)
				tokenFile = cfg.CanvaTokenFile
			}

			state := make([]byte, 16)
			if _, err := rand.Read(state); err != nil {
				return err
			}

			authorization := oauthstore.NewAuthorization(oauthConfig, hex.EncodeToString(state))

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Open this URL and approve access:\n\n  %s\n\n", authorization.URL())
			fmt.Fprint(out, "Paste the code parameter from the redirect URL: ")

			code, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
			if err != nil && strings.TrimSpace(code) == "" {
				return fmt.Errorf("no code entered")
			}

			store := oauthstore.NewFileStore(tokenFile)
			if _, err := authorization.Complete(cmd.Context(), strings.TrimSpace(code), store); err != nil {
				return err
			}

			fmt.Fprintf(out, "Token stored in %s\n", store.Path())
			return nil
		},
	}
}
