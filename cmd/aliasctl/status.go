package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/haltman-io/aliasctl/internal/health"
)

var statusFlags struct {
	clientConfig
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Probe the forwarding API's reachability",
	RunE:  runStatus,
}

func init() {
	rootCmd.AddCommand(statusCmd)

	addClientFlags(statusCmd, &statusFlags.clientConfig)
}

func runStatus(cmd *cobra.Command, args []string) error {
	c, err := statusFlags.newClient()
	if err != nil {
		return err
	}

	report := health.NewChecker(c, logger).Check(cmd.Context())
	switch report.Status {
	case health.StatusConnected:
		fmt.Fprintf(cmd.OutOrStdout(), "connected (%d domains, breaker %s)\n", report.Domains, report.Breaker)
		return nil
	default:
		fmt.Fprintf(cmd.OutOrStdout(), "error (breaker %s)\n", report.Breaker)
		return report.Err
	}
}
