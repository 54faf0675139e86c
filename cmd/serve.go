package cmd

import (
	"context"

	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"

	"github.com/telhawk-systems/keyhawk/internal/server"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the local dashboard backend",
	Long: `Serve the dashboard backend on a local address.

Routes:
  GET  /api/dashboard/stats   resource counts, cached
  *    /api/v1/{path...}      authenticated passthrough to the licensing API
  GET  /healthz               liveness
  GET  /metrics               Prometheus metrics`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return run(cmd, func(ctx context.Context, a *app) error {
			addr, _ := cmd.Flags().GetString("addr")
			if addr == "" {
				addr = a.cfg.Server.Addr
			}

			a.registry.MustRegister(
				collectors.NewGoCollector(),
				collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
			)

			dashboard := server.NewDashboardHandler(a.keygen, a.cfg.Server.StatsCacheDuration(), a.metrics, a.logger)
			router := server.NewRouter(server.RouterConfig{
				DashboardHandler: dashboard,
				Proxy:            server.NewProxy(a.client, a.logger, dashboard.Invalidate),
				Gatherer:         a.registry,
				AllowedOrigins:   a.cfg.Server.AllowedOrigins,
			})

			return server.New(addr, router, a.logger).Run(ctx)
		})
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().String("addr", "", "Listen address (default from config, 127.0.0.1:8090)")
}
