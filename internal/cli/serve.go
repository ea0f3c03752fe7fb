package cli

import (
	"github.com/spf13/cobra"

	"github.com/matzehuels/gradlab/pkg/server"
)

// serveCommand creates the serve command.
func (c *CLI) serveCommand() *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the local edit session API",
		Long: `Serve edit sessions over HTTP so a browser frontend can drive them with
pointer events. Sessions are kept in memory and expire after server.session_ttl
of inactivity.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			logger := loggerFromContext(ctx)

			cfg, err := c.loadConfig()
			if err != nil {
				return err
			}
			if addr == "" {
				addr = cfg.Server.Addr
			}
			client, closeClient, err := c.newClient(ctx, cfg)
			if err != nil {
				return err
			}
			defer closeClient()

			srv := server.New(client, server.Config{
				Logger:     logger,
				Session:    c.sessionConfig(cfg),
				SessionTTL: cfg.Server.SessionTTL,
			})
			printSuccess("Listening on %s", StyleLink.Render("http://"+addr))
			printDetail("Lab service: %s", client.BaseURL())
			if err := srv.Serve(ctx, addr); err != nil {
				return err
			}
			logger.Info("server stopped")
			return nil
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "", "listen address (default from config, 127.0.0.1:8080)")
	return cmd
}
