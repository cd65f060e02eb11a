package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/angelsbailbonds/opsflow/internal/config"
	"github.com/angelsbailbonds/opsflow/internal/initialization"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

// app carries what every subcommand needs. It is filled in by the root
// command's PersistentPreRunE, after flags are parsed.
type app struct {
	configFile string
	envFile    string
	debug      bool

	container *initialization.Container
}

func NewRootCommand() *cobra.Command {
	a := &app{}

	rootCmd := &cobra.Command{
		Use:   "opsflow",
		Short: "Angels Bail Bonds workflow tooling",
		Long: `opsflow patches n8n workflows, runs backfills and ClickUp cleanups,
and serves MCP tool servers for n8n, ClickUp, Google Workspace and Canva.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.init()
		},
	}

	rootCmd.PersistentFlags().BoolVar(&a.debug, "debug", false, "Enable debug logging")
	rootCmd.PersistentFlags().StringVar(&a.configFile, "config", "", "Config file (default opsflow.yaml in . or $HOME/.opsflow)")
	rootCmd.PersistentFlags().StringVar(&a.envFile, "env-file", ".env", "Env file merged under the environment")

	rootCmd.AddCommand(
		NewWorkflowsCommand(a),
		NewPatchCommand(a),
		NewExecutionsCommand(a),
		NewBackfillCommand(a),
		NewTasksCommand(a),
		NewLogSessionCommand(a),
		NewMCPCommand(a),
		NewServeCommand(a),
		NewAuthCommand(a),
		NewStatusCommand(a),
		NewVersionCommand(),
	)

	return rootCmd
}

func (a *app) init() error {
	zerolog.SetGlobalLevel(zerolog.InfoLevel)
	if a.debug {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	}

	cfg, err := config.Load(config.LoadOptions{ConfigFile: a.configFile, EnvFile: a.envFile})
	if err != nil {
		return err
	}

	a.container = initialization.NewContainer(cfg)

	return nil
}

func printJSON(w io.Writer, value any) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(value)
}

// Execute runs the root command
func Execute() {
	if err := NewRootCommand().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
