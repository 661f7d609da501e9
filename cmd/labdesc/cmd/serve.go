package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/ethpandaops/labdesc/pkg/catalog"
	"github.com/ethpandaops/labdesc/pkg/middleware"
	"github.com/ethpandaops/labdesc/pkg/server"
)

var serveAddr string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the scenario catalog over HTTP",
	Long: `Load the catalog and serve it read-only over HTTP. SIGHUP reloads the
catalog from disk; a failed reload keeps the previous scenarios.`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "Listen address (default: server.host:server.port from config)")
}

func runServe(cmd *cobra.Command, _ []string) error {
	reg, err := catalog.NewRegistry(log, appCfg.Catalog.Root, appCfg.Catalog.Descriptor)
	if err != nil {
		return err
	}

	addr := serveAddr
	if addr == "" {
		addr = appCfg.Server.Addr()
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	hup := make(chan os.Signal, 1)
	signal.Notify(hup, syscall.SIGHUP)

	defer signal.Stop(hup)

	go reloadOnHangup(ctx, reg, hup)

	limiter := middleware.NewRateLimiter(log, appCfg.Server.RateLimit)
	defer limiter.Close()

	srv := server.New(log, reg, server.Options{
		MetricsEnabled: appCfg.Observability.MetricsEnabled,
		RateLimiter:    limiter,
	})

	return srv.Run(ctx, addr)
}

// reloadOnHangup reloads reg for every signal on hup until ctx is done. hup
// must be registered for SIGHUP before the server starts.
func reloadOnHangup(ctx context.Context, reg *catalog.Registry, hup <-chan os.Signal) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-hup:
			if err := reg.Reload(); err != nil {
				log.WithError(err).Error("Catalog reload failed, keeping previous scenarios")
			}
		}
	}
}
