package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/hupe1980/jobmesh/metrics"
	"github.com/hupe1980/jobmesh/server"
)

// serveCmd represents the serve command
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the jobmesh HTTP API server",
	Long: `Starts the HTTP API: workflow execution, run status and events, the
workflow and agent catalogs, resume uploads and Prometheus metrics. The server
shuts down gracefully on SIGINT and SIGTERM.`,
	Run: func(cmd *cobra.Command, args []string) {
		if err := runServe(cmd); err != nil {
			fmt.Println(err)
			os.Exit(1)
		}
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	logger := newLogger(cfg.Log)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	collector := metrics.NewCollector()

	mesh, cleanup, err := buildMesh(ctx, cfg, logger, collector)
	if err != nil {
		return err
	}
	defer cleanup()

	collector.TrackActiveRuns(mesh.ActiveRuns)

	srv, err := server.New(mesh, func(o *server.Options) {
		o.Config = server.Config{
			Addr:            cfg.Server.Addr,
			ReadTimeout:     cfg.Server.ReadTimeout,
			WriteTimeout:    cfg.Server.WriteTimeout,
			ShutdownTimeout: cfg.Server.ShutdownTimeout,
			CORSOrigins:     cfg.Server.CORSOrigins,
			RateLimitRPS:    cfg.Server.RateLimitRPS,
			RateLimitBurst:  cfg.Server.RateLimitBurst,
			AuthEnabled:     cfg.Auth.Enabled,
			AuthSecret:      cfg.Auth.Secret,
		}
		o.Documents = mesh.Documents()
		o.Metrics = collector
		o.Logger = logger
	})
	if err != nil {
		return err
	}

	return srv.Run(ctx)
}
