package main

import (
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/Taikiy49/FS-Geolabs/infrastructure/backend"
	"github.com/Taikiy49/FS-Geolabs/infrastructure/config"
)

var configPath string

var rootCmd = &cobra.Command{
	Use:           "geoportal",
	Short:         "Geolabs document and project portal",
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", os.Getenv("GEOPORTAL_CONFIG"), "path to a YAML config file")
	rootCmd.AddCommand(serveCmd, uploadCmd, ocrCmd, rolesCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

// loadConfig reads the config and installs the default logger.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	slog.SetDefault(cfg.NewLogger())
	return cfg, nil
}

func newBackend(cfg *config.Config) (*backend.Client, error) {
	return backend.New(cfg.Backend.BaseURL,
		backend.WithTimeout(cfg.Backend.Timeout),
		backend.WithIdentityHeader(cfg.Backend.IdentityHeader),
	)
}

// commandTimeout bounds the one-shot backend calls of the headless commands.
const commandTimeout = 2 * time.Minute
