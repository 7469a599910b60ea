package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/alevsk/bicep-deployer/internal/api"
	"github.com/alevsk/bicep-deployer/internal/logger"
)

var (
	// Server flags
	serverHost     string
	serverPort     int
	serverTimeout  string
	serverLogLevel string
)

// serveCmd represents the serve command
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the web page and deployment API",
	PreRunE: func(cmd *cobra.Command, args []string) error {
		// Override config values with flags if provided
		if cmd.Flags().Changed("host") {
			cfg.Server.Host = serverHost
		}
		if cmd.Flags().Changed("port") {
			cfg.Server.Port = serverPort
		}
		if cmd.Flags().Changed("timeout") {
			duration, err := time.ParseDuration(serverTimeout)
			if err != nil {
				return fmt.Errorf("invalid timeout %q: %w", serverTimeout, err)
			}
			cfg.Server.Timeout = duration
		}
		if cmd.Flags().Changed("log-level") {
			cfg.Server.LogLevel = serverLogLevel
			logger.Init(cfg)
		}
		return nil
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := buildApp(cfg)
		if err != nil {
			return err
		}
		defer a.Close()

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		logger.Info().
			Str("resource_group", cfg.Deployment.ResourceGroup).
			Str("template", cfg.Deployment.TemplateFile).
			Dur("timeout", cfg.Server.Timeout).
			Msg("deployment page ready")

		return api.NewServer(a.deployer, a.registry).Start(ctx, cfg.Address(), cfg.Server.Timeout)
	},
}

func init() {
	serveCmd.Flags().StringVarP(&serverHost, "host", "H", "", "Server host (default: 0.0.0.0)")
	serveCmd.Flags().IntVarP(&serverPort, "port", "p", 0, "Server port (default: 8080)")
	serveCmd.Flags().StringVarP(&serverTimeout, "timeout", "t", "", "Server timeout (e.g., 30s, 1m)")
	serveCmd.Flags().StringVarP(&serverLogLevel, "log-level", "l", "", "Log level (debug, info, warn, error)")
}
