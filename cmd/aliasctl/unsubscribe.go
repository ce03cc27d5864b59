package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/haltman-io/aliasctl/internal/workflow"
)

var unsubscribeFlags struct {
	clientConfig
	curl bool
}

var unsubscribeCmd = &cobra.Command{
	Use:   "unsubscribe <alias>",
	Short: "Remove an alias",
	Long: `Request removal of an alias. The service emails a confirmation
token to the alias destination; removal happens once the token is
confirmed.`,
	Args: cobra.ExactArgs(1),
	RunE: runUnsubscribe,
}

func init() {
	rootCmd.AddCommand(unsubscribeCmd)

	addClientFlags(unsubscribeCmd, &unsubscribeFlags.clientConfig)
	unsubscribeCmd.Flags().BoolVar(&unsubscribeFlags.curl, "curl", false, "print the equivalent curl command and exit")
}

func runUnsubscribe(cmd *cobra.Command, args []string) error {
	c, err := unsubscribeFlags.newClient()
	if err != nil {
		return err
	}

	if unsubscribeFlags.curl {
		fmt.Fprintln(cmd.OutOrStdout(), c.CurlUnsubscribe(args[0]))
		return nil
	}

	flow := workflow.NewAliasFlow(c, consoleNotifier{out: cmd.ErrOrStderr()}, logger)
	if err := flow.Unsubscribe(cmd.Context(), args[0]); err != nil {
		return err
	}

	fmt.Fprintln(cmd.ErrOrStderr(), "Confirmation email sent to the alias destination.")
	return confirmInteractive(cmd.Context(), cmd.InOrStdin(), cmd.ErrOrStderr(), flow)
}
