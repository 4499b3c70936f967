package main

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/ironsheep/image-scanner/internal/server"
	"github.com/spf13/cobra"
)

func mcpCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "mcp",
		Short: "Run the scanner as an MCP tool server over stdio",
		Long: `Run the scanner as an MCP tool server.

Requests are read from stdin and responses written to stdout, one JSON-RPC
message per line. Logs go to stderr. Configure it in your MCP client
(e.g., Claude Desktop) with the command "image-scanner mcp".`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := setup()
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			app, err := newApp(ctx, cfg, logger)
			if err != nil {
				return err
			}
			defer app.StopCamera()

			logger.Debug("mcp server starting", "version", Version, "commit", GitCommit)
			srv := server.New(app,
				server.WithIO(os.Stdin, os.Stdout),
				server.WithLogger(logger),
				server.WithVersion(Version))
			return srv.Run(ctx)
		},
	}
}
