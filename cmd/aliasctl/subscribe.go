package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/haltman-io/aliasctl/internal/client"
	"github.com/haltman-io/aliasctl/internal/workflow"
)

var subscribeFlags struct {
	clientConfig
	name    string
	domain  string
	address string
	to      string
	curl    bool
}

var subscribeCmd = &cobra.Command{
	Use:   "subscribe",
	Short: "Create an alias forwarding to a destination email",
	Long: `Request creation of an alias. The service emails a confirmation
token to the destination; the alias goes live once the token is
confirmed.

Specify the alias either as --name plus --domain, or as a full
--address on a custom domain.`,
	RunE: runSubscribe,
}

func init() {
	rootCmd.AddCommand(subscribeCmd)

	addClientFlags(subscribeCmd, &subscribeFlags.clientConfig)
	subscribeCmd.Flags().StringVar(&subscribeFlags.name, "name", "", "alias handle (left of @)")
	subscribeCmd.Flags().StringVar(&subscribeFlags.domain, "domain", "", "alias domain")
	subscribeCmd.Flags().StringVar(&subscribeFlags.address, "address", "", "full alias address (custom domain)")
	subscribeCmd.Flags().StringVar(&subscribeFlags.to, "to", "", "destination email")
	subscribeCmd.Flags().BoolVar(&subscribeFlags.curl, "curl", false, "print the equivalent curl command and exit")
}

func runSubscribe(cmd *cobra.Command, args []string) error {
	c, err := subscribeFlags.newClient()
	if err != nil {
		return err
	}

	if subscribeFlags.curl {
		params := client.SubscribeParams{
			Name:    subscribeFlags.name,
			Domain:  subscribeFlags.domain,
			Address: subscribeFlags.address,
			To:      subscribeFlags.to,
		}
		fmt.Fprintln(cmd.OutOrStdout(), c.CurlSubscribe(params))
		return nil
	}

	flow := workflow.NewAliasFlow(c, consoleNotifier{out: cmd.ErrOrStderr()}, logger)
	in := workflow.SubscribeInput{
		Name:          subscribeFlags.name,
		Domain:        subscribeFlags.domain,
		CustomAddress: subscribeFlags.address != "",
		Address:       subscribeFlags.address,
		To:            subscribeFlags.to,
	}
	if err := flow.Subscribe(cmd.Context(), in); err != nil {
		return err
	}

	if ttl := flow.ConfirmationTTLMinutes(); ttl > 0 {
		fmt.Fprintf(cmd.ErrOrStderr(), "Confirmation email sent (valid for %d minutes).\n", ttl)
	} else {
		fmt.Fprintln(cmd.ErrOrStderr(), "Confirmation email sent.")
	}
	return confirmInteractive(cmd.Context(), cmd.InOrStdin(), cmd.ErrOrStderr(), flow)
}
