package cli

import (
	"strings"

	"github.com/angelsbailbonds/opsflow/internal/initialization"
	"github.com/angelsbailbonds/opsflow/pkg/mcp/toolkit"

	"github.com/spf13/cobra"
)

func NewMCPCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:       "mcp <" + strings.Join(initialization.MCPServers, "|") + ">",
		Short:     "Serve an MCP tool server over stdio",
		Long:      `Run one MCP server on stdin/stdout for an MCP client such as a desktop assistant. Logs go to stderr.`,
		Args:      cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
		ValidArgs: initialization.MCPServers,
		RunE: func(cmd *cobra.Command, args []string) error {
			server, err := a.container.MCPServer(cmd.Context(), args[0])
			if err != nil {
				return err
			}

			return toolkit.Serve(cmd.Context(), server, args[0])
		},
	}
}
