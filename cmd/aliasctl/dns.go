package main

import (
	"fmt"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/haltman-io/aliasctl/internal/api"
	"github.com/haltman-io/aliasctl/internal/dnscheck"
	"github.com/haltman-io/aliasctl/internal/dnsprobe"
)

var dnsCmd = &cobra.Command{
	Use:   "dns",
	Short: "DNS validation of custom alias domains",
}

var dnsCheckFlags struct {
	clientConfig
	kind string
}

var dnsCheckCmd = &cobra.Command{
	Use:   "check <domain>",
	Short: "Show the current DNS validation status of a domain",
	Args:  cobra.ExactArgs(1),
	RunE:  runDNSCheck,
}

var dnsWatchFlags struct {
	clientConfig
	kind string
}

var dnsWatchCmd = &cobra.Command{
	Use:   "watch <domain>",
	Short: "Request DNS validation and poll until it finishes",
	Long: `Create a DNS validation check for the domain (resuming an existing
one when the service already has it) and poll its status on the
schedule the service suggests, until the check reaches a final state
or the command is interrupted.`,
	Args: cobra.ExactArgs(1),
	RunE: runDNSWatch,
}

var dnsProbeFlags struct {
	resolver string
}

var dnsProbeCmd = &cobra.Command{
	Use:   "probe <domain>",
	Short: "Query the domain's live records from this machine",
	Long: `Look up the domain's CNAME, MX, SPF and DMARC records directly,
bypassing the service. Useful to see local propagation before the
service's next validation poll.`,
	Args: cobra.ExactArgs(1),
	RunE: runDNSProbe,
}

func init() {
	rootCmd.AddCommand(dnsCmd)
	dnsCmd.AddCommand(dnsCheckCmd)
	dnsCmd.AddCommand(dnsWatchCmd)
	dnsCmd.AddCommand(dnsProbeCmd)

	addClientFlags(dnsCheckCmd, &dnsCheckFlags.clientConfig)
	dnsCheckCmd.Flags().StringVar(&dnsCheckFlags.kind, "kind", "ui", "check kind: ui or email")

	addClientFlags(dnsWatchCmd, &dnsWatchFlags.clientConfig)
	dnsWatchCmd.Flags().StringVar(&dnsWatchFlags.kind, "kind", "ui", "check kind: ui or email")

	dnsProbeCmd.Flags().StringVar(&dnsProbeFlags.resolver, "resolver", "", "resolver address (default: system resolver)")
}

func parseKind(raw string) (api.CheckKind, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "ui":
		return api.CheckUI, nil
	case "email":
		return api.CheckEmail, nil
	default:
		return "", fmt.Errorf("unknown kind %q (want ui or email)", raw)
	}
}

func runDNSCheck(cmd *cobra.Command, args []string) error {
	kind, err := parseKind(dnsCheckFlags.kind)
	if err != nil {
		return err
	}
	c, err := dnsCheckFlags.newClient()
	if err != nil {
		return err
	}

	resp, err := c.CheckDNS(cmd.Context(), args[0])
	if err != nil {
		return err
	}
	renderCheck(cmd.OutOrStdout(), resp, kind)
	return nil
}

func runDNSWatch(cmd *cobra.Command, args []string) error {
	kind, err := parseKind(dnsWatchFlags.kind)
	if err != nil {
		return err
	}
	c, err := dnsWatchFlags.newClient()
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	poller := dnscheck.NewPoller(c, kind, consoleNotifier{out: cmd.ErrOrStderr()}, logger)
	defer poller.Close()

	if err := poller.Start(ctx, args[0]); err != nil {
		return err
	}

	for {
		select {
		case <-ctx.Done():
			fmt.Fprintln(cmd.ErrOrStderr(), "Interrupted; the service keeps checking server-side.")
			return nil
		case snap := <-poller.Updates():
			if snap.Check != nil {
				renderCheck(cmd.OutOrStdout(), snap.Check, kind)
			} else if snap.Err != "" {
				fmt.Fprintf(cmd.ErrOrStderr(), "poll error: %s\n", snap.Err)
			}
			if snap.Done {
				fmt.Fprintf(cmd.OutOrStdout(), "Final status: %s\n", snap.Status(kind))
				return nil
			}
		}
	}
}

func runDNSProbe(cmd *cobra.Command, args []string) error {
	prober := dnsprobe.New(dnsProbeFlags.resolver)
	result, err := prober.Lookup(cmd.Context(), args[0])
	if err != nil {
		return err
	}
	renderProbe(cmd.OutOrStdout(), result)
	return nil
}
