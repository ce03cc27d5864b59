package main

import (
	"bufio"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/haltman-io/aliasctl/internal/api"
	"github.com/haltman-io/aliasctl/internal/client"
	"github.com/haltman-io/aliasctl/internal/workflow"
)

var credentialsCmd = &cobra.Command{
	Use:   "credentials",
	Short: "Issue and confirm API credentials",
}

var credentialsCreateFlags struct {
	clientConfig
	email string
	days  int
}

var credentialsCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Request an API key, confirmed by an emailed 6-digit code",
	RunE:  runCredentialsCreate,
}

var credentialsConfirmFlags struct {
	clientConfig
}

var credentialsConfirmCmd = &cobra.Command{
	Use:   "confirm <code>",
	Short: "Confirm a pending API key with the emailed 6-digit code",
	Args:  cobra.ExactArgs(1),
	RunE:  runCredentialsConfirm,
}

func init() {
	rootCmd.AddCommand(credentialsCmd)
	credentialsCmd.AddCommand(credentialsCreateCmd)
	credentialsCmd.AddCommand(credentialsConfirmCmd)

	addClientFlags(credentialsCreateCmd, &credentialsCreateFlags.clientConfig)
	credentialsCreateCmd.Flags().StringVar(&credentialsCreateFlags.email, "email", "", "email the key is issued to")
	credentialsCreateCmd.Flags().IntVar(&credentialsCreateFlags.days, "days", 30, "validity in days (1-90)")

	addClientFlags(credentialsConfirmCmd, &credentialsConfirmFlags.clientConfig)
}

func runCredentialsCreate(cmd *cobra.Command, args []string) error {
	c, err := credentialsCreateFlags.newClient()
	if err != nil {
		return err
	}

	flow := workflow.NewCredentialsFlow(c, consoleNotifier{out: cmd.ErrOrStderr()}, logger)
	if err := flow.Create(cmd.Context(), credentialsCreateFlags.email, credentialsCreateFlags.days); err != nil {
		return err
	}

	reader := bufio.NewReader(cmd.InOrStdin())
	attempts := 0
	for {
		code, ok := promptLine(reader, cmd.ErrOrStderr(), "6-digit code (empty to abandon): ")
		if !ok {
			flow.Reset()
			fmt.Fprintln(cmd.ErrOrStderr(), "Abandoned; the pending request expires on its own.")
			return nil
		}

		err := flow.ConfirmCode(cmd.Context(), code)
		if err == nil {
			break
		}

		attempts++
		if attempts >= 3 {
			return err
		}

		var verr *workflow.ValidationError
		if errors.As(err, &verr) {
			fmt.Fprintln(cmd.ErrOrStderr(), verr.Msg)
			continue
		}
		var apiErr *client.Error
		if errors.As(err, &apiErr) && apiErr.Code == api.ErrInvalidOrExpired {
			continue
		}
		return err
	}

	return printCredential(cmd, flow)
}

func runCredentialsConfirm(cmd *cobra.Command, args []string) error {
	c, err := credentialsConfirmFlags.newClient()
	if err != nil {
		return err
	}

	flow := workflow.NewCredentialsFlow(c, consoleNotifier{out: cmd.ErrOrStderr()}, logger)
	if err := flow.ConfirmCode(cmd.Context(), args[0]); err != nil {
		return err
	}
	return printCredential(cmd, flow)
}

func printCredential(cmd *cobra.Command, flow *workflow.CredentialsFlow) error {
	cred, ok := flow.Issued()
	if !ok {
		return fmt.Errorf("no credential issued")
	}
	// The token is shown exactly once; the server never repeats it.
	fmt.Fprintln(cmd.OutOrStdout(), cred.Token)
	fmt.Fprintf(cmd.ErrOrStderr(), "Issued to %s, type %s, expires in %d days.\n",
		cred.Email, cred.TokenType, cred.ExpiresInDays)
	return nil
}
