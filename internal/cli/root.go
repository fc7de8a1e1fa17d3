package cli

import (
	"errors"
	"io/fs"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var (
	port       string
	configPath string
	logLevel   string
)

// Execute runs the CLI.
func Execute() error {
	return newRootCmd().Execute()
}

func newRootCmd() *cobra.Command {
	envConfig := os.Getenv("CONFIG_PATH")
	if envConfig == "" {
		envConfig = "config/config.yaml"
	}

	cmd := &cobra.Command{
		Use:           "vibe-check",
		Short:         "Vibe Check personality quiz service",
		SilenceUsage:  true,
		SilenceErrors: false,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			// .env is optional; real environment variables win over it.
			if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
				return err
			}
			return nil
		},
	}

	cmd.PersistentFlags().StringVar(&port, "port", "", "port to listen on (overrides PORT and config)")
	cmd.PersistentFlags().StringVar(&configPath, "config", envConfig, "path to YAML config")
	cmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level (overrides LOG_LEVEL and config)")
	cmd.AddCommand(NewStartCmd(&configPath, &port, &logLevel))
	cmd.AddCommand(NewMigrateCmd(&configPath, &logLevel))
	return cmd
}
