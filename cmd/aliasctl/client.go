package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/haltman-io/aliasctl/internal/client"
)

type clientConfig struct {
	apiURL string
	apiKey string
}

func addClientFlags(cmd *cobra.Command, cfg *clientConfig) {
	cmd.Flags().StringVar(&cfg.apiURL, "api-url", os.Getenv("ALIASCTL_API_URL"), "forwarding API base URL")
	cmd.Flags().StringVar(&cfg.apiKey, "api-key", os.Getenv("ALIASCTL_API_KEY"), "API key for DNS status checks (optional)")
}

func (cfg *clientConfig) newClient() (*client.Client, error) {
	if cfg.apiURL == "" {
		return nil, fmt.Errorf("API URL required (use --api-url flag or ALIASCTL_API_URL env var)")
	}
	return client.New(cfg.apiURL, cfg.apiKey), nil
}
