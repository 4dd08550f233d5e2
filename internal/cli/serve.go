package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/danieljhkim/sketchpm/internal/metrics"
	"github.com/danieljhkim/sketchpm/internal/server"
	"github.com/danieljhkim/sketchpm/internal/watch"
)

const shutdownTimeout = 10 * time.Second

var (
	serveHost  string
	servePort  int
	serveWatch bool
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the install API for the desktop shell",
	Long: `Serve the JSON RPC endpoints used by the desktop shell:

  POST /rpc/installPackage        {"packageName": "lodash"}
  GET  /rpc/getInstalledPackages
  GET  /rpc/getDependencies
  GET  /rpc/getInstallHistory
  GET  /health
  GET  /metrics

The server runs until interrupted and then shuts down gracefully. Host and port
default to server.host and server.port from the config file.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		collector := metrics.NewCollector()
		a, err := newApp("info", collector)
		if err != nil {
			return err
		}
		defer func() {
			_ = a.logger.Sync()
		}()

		cfg := &server.Config{Host: a.settings.Server.Host, Port: a.settings.Server.Port}
		if cmd.Flags().Changed("host") {
			cfg.Host = serveHost
		}
		if cmd.Flags().Changed("port") {
			cfg.Port = servePort
		}

		srv, err := server.NewServer(a.engine, a.logger, collector, cfg)
		if err != nil {
			return fmt.Errorf("failed to create server: %w", err)
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		if serveWatch {
			if err := startWatcher(ctx, a); err != nil {
				return err
			}
		}

		errCh := make(chan error, 1)
		go func() {
			errCh <- srv.Start()
		}()

		if !jsonOutput {
			PrintSuccess("Listening on http://" + cfg.Addr())
			if paths, err := a.engine.Paths(); err == nil {
				PrintLabelValue("Workspace", paths.Playground)
			}
			PrintLabelValue("Package manager", a.engine.PackageManager())
		}

		select {
		case err := <-errCh:
			if err != nil {
				return fmt.Errorf("server stopped: %w", err)
			}
			return nil
		case <-ctx.Done():
		}

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("failed to shut down server: %w", err)
		}
		return <-errCh
	},
}

// startWatcher logs package list changes for as long as ctx lives.
func startWatcher(ctx context.Context, a *app) error {
	paths, err := a.engine.Paths()
	if err != nil {
		return err
	}

	w := watch.New(paths, a.engine, func(ev watch.Event) {
		a.logger.Info("installed packages", zap.Strings("packages", ev.Packages))
	}, watch.WithLogger(a.logger))

	go func() {
		if err := w.Run(ctx); err != nil {
			a.logger.Error("manifest watcher stopped", zap.Error(err))
		}
	}()
	return nil
}

func init() {
	serveCmd.Flags().StringVar(&serveHost, "host", "127.0.0.1", "Interface to listen on")
	serveCmd.Flags().IntVarP(&servePort, "port", "p", 7717, "Port to listen on")
	serveCmd.Flags().BoolVar(&serveWatch, "watch", false, "Log package list changes while serving")
}
