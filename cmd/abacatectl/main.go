package main

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/fr0stylo/abacate/internal/config"
	"github.com/fr0stylo/abacate/internal/observability"
	"github.com/fr0stylo/abacate/pkg/abacatepay"
)

var Version = "dev"

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "abacatectl",
		Short:         "Operator tooling for the AbacatePay integration",
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.AddCommand(storeCmd())
	rootCmd.AddCommand(billingCmd())
	rootCmd.AddCommand(pixCmd())
	rootCmd.AddCommand(customerCmd())
	rootCmd.AddCommand(signCmd())
	rootCmd.AddCommand(tokenCmd())
	rootCmd.AddCommand(seedCmd())

	return rootCmd
}

func loadToolConfig() (config.Config, error) {
	if err := godotenv.Load(); err != nil {
		slog.Debug("No .env file loaded", "error", err)
	}
	cfg, err := config.LoadForTool()
	if err != nil {
		return config.Config{}, fmt.Errorf("failed to load configuration: %w", err)
	}
	return cfg, nil
}

func providerClient(cmd *cobra.Command) (abacatepay.Client, error) {
	cfg, err := loadToolConfig()
	if err != nil {
		return abacatepay.Client{}, err
	}
	log := slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: slog.LevelWarn}))
	client := cfg.Gateway.Client(observability.HTTPClient("abacatepay", cfg.Gateway.Timeout), log)
	if client.APIKey == "" {
		return abacatepay.Client{}, fmt.Errorf("%w for %s mode", abacatepay.ErrMissingCredential, cfg.Gateway.Credentials().Mode())
	}
	return client, nil
}

func printJSON(out io.Writer, value any) error {
	encoder := json.NewEncoder(out)
	encoder.SetIndent("", "  ")
	return encoder.Encode(value)
}
