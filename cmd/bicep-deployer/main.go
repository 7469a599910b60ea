package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/alevsk/bicep-deployer/internal/config"
	"github.com/alevsk/bicep-deployer/internal/logger"
	"github.com/spf13/cobra"
)

var (
	configPath string
	envFile    string
	debug      bool
)

var cfg = &config.Config{}

var rootCmd = &cobra.Command{
	Use:   "bicep-deployer",
	Short: "Bicep-Deployer - converts Bicep templates and deploys them to Azure",
	Long: `Bicep-Deployer converts a Bicep template to an ARM JSON template with the
Azure CLI (or the standalone bicep compiler) and deploys it into an existing
resource group, either from the command line or from a small web page.`,
	SilenceErrors: true,
	SilenceUsage:  true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = config.Load(configPath, envFile)
		if err != nil {
			return fmt.Errorf("error loading configuration: %w", err)
		}

		// flags override config due to highest precedence
		if debug {
			cfg.Debug = true
		}

		logger.Init(cfg)

		if configPath != "" || os.Getenv(config.ConfigPathEnvVar) != "" {
			logger.Debug().Msgf("Using config file: %s", configPath)
		} else {
			logger.Debug().Msg("Using default configuration")
		}

		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "path to config file (default: config.yml in current directory)")
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", "", "path to a dotenv file (default: .env in current directory, if present)")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "enable verbose logging and additional debug information")

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(deployCmd)
	rootCmd.AddCommand(checkCmd)
	rootCmd.AddCommand(completionCmd)
	rootCmd.AddCommand(versionCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		var exit *exitError
		if errors.As(err, &exit) {
			os.Exit(exit.code)
		}
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
