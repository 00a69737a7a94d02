package commands

import (
	"io"

	"github.com/spf13/cobra"

	"github.com/doeshing/tasq/internal/app"
	mcpserver "github.com/doeshing/tasq/internal/infrastructure/mcp"
	"github.com/doeshing/tasq/internal/version"
)

// NewMCPCommand creates the mcp command, which serves tools over stdio
func NewMCPCommand(container *app.Container) *cobra.Command {
	return &cobra.Command{
		Use:   "mcp",
		Short: "Serve interpret, run and suggest as MCP tools over stdio",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			tools := &mcpserver.Tools{
				Interpret: container.Interpret,
				NewRouter: func(out io.Writer) mcpserver.Router {
					return container.NewRouter(out)
				},
				Suggester: container.Completer,
				Config:    container.Config,
				Logger:    container.Logger,
			}
			container.Logger.Info("mcp server starting", map[string]interface{}{"version": version.Version})
			return mcpserver.Serve(mcpserver.NewServer(tools, version.Version))
		},
	}
}
