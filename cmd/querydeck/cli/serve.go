package cli

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/querydeck/querydeck/internal/catalog"
	"github.com/querydeck/querydeck/internal/config"
	"github.com/querydeck/querydeck/internal/demo"
	"github.com/querydeck/querydeck/internal/executor"
	"github.com/querydeck/querydeck/internal/server"
	"github.com/querydeck/querydeck/internal/session"
)

func newServeCmd() *cobra.Command {
	var (
		port     int
		host     string
		dev      bool
		demoMode bool
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the query builder API server",
		Long:  "Start the HTTP server the analytics dashboard pages call for schema, query building, execution, and charting.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(dev)
		},
	}

	cmd.Flags().IntVarP(&port, "port", "p", 8090, "HTTP listen port")
	cmd.Flags().StringVar(&host, "host", "0.0.0.0", "HTTP listen host")
	cmd.Flags().BoolVar(&dev, "dev", false, "Enable development mode (verbose logging)")
	cmd.Flags().BoolVar(&demoMode, "demo", false, "Serve seeded demo tables instead of a real backend (clearly labeled offline mode)")

	viper.BindPFlag("server.port", cmd.Flags().Lookup("port"))
	viper.BindPFlag("server.host", cmd.Flags().Lookup("host"))
	viper.BindPFlag("demo.enabled", cmd.Flags().Lookup("demo"))

	return cmd
}

func runServe(dev bool) error {
	logLevel := slog.LevelInfo
	if dev {
		logLevel = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: logLevel}))

	cfg, err := config.Load(viper.GetViper())
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	var (
		src  catalog.Source
		exec executor.Executor
	)
	if cfg.Demo.Enabled {
		engine, err := demo.New()
		if err != nil {
			return fmt.Errorf("start demo engine: %w", err)
		}
		defer engine.Close()
		src, exec = engine, engine
		logger.Warn("DEMO MODE: serving seeded fixture data, no backend is consulted")
	} else {
		src = catalog.NewClient(cfg.Backend.BaseURL, cfg.Backend.Timeout)
		exec = executor.NewClient(cfg.Backend.BaseURL, cfg.Backend.Timeout)
		logger.Info("using analytics backend", "base_url", cfg.Backend.BaseURL)
	}

	sessions := session.NewManager(cfg.Session.IdleTTL)
	srv := server.New(cfg.Server, src, exec, sessions, logger)
	return srv.ListenAndServe()
}
