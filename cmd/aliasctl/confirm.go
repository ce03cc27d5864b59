package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/haltman-io/aliasctl/internal/api"
	"github.com/haltman-io/aliasctl/internal/client"
	"github.com/haltman-io/aliasctl/internal/workflow"
)

var confirmFlags struct {
	clientConfig
	link string
}

var confirmCmd = &cobra.Command{
	Use:   "confirm [token]",
	Short: "Confirm a pending alias change with an emailed token",
	Long: `Finalize a pending subscribe or unsubscribe. Pass either the token
itself or, with --link, the full confirmation URL from the email; the
token and intent are extracted from the link's query parameters.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runConfirm,
}

func init() {
	rootCmd.AddCommand(confirmCmd)

	addClientFlags(confirmCmd, &confirmFlags.clientConfig)
	confirmCmd.Flags().StringVar(&confirmFlags.link, "link", "", "confirmation URL from the email")
}

func runConfirm(cmd *cobra.Command, args []string) error {
	c, err := confirmFlags.newClient()
	if err != nil {
		return err
	}
	flow := workflow.NewAliasFlow(c, consoleNotifier{out: cmd.ErrOrStderr()}, logger)

	if confirmFlags.link != "" {
		link, ok, err := workflow.ParseConfirmLink(confirmFlags.link)
		if err != nil {
			return fmt.Errorf("parse link: %w", err)
		}
		if !ok {
			return fmt.Errorf("link carries no confirmation token")
		}
		return flow.AutoConfirm(cmd.Context(), link.Token, link.Intent)
	}

	if len(args) == 0 {
		return fmt.Errorf("token required (or use --link)")
	}
	return flow.ConfirmCode(cmd.Context(), args[0])
}

// confirmInteractive prompts for the emailed token until confirmation
// succeeds, three attempts are rejected, or the operator abandons with
// an empty line. A rejected code keeps the confirmation open for
// another try, whether the shape check or the server refused it.
func confirmInteractive(ctx context.Context, in io.Reader, out io.Writer, flow *workflow.AliasFlow) error {
	reader := bufio.NewReader(in)
	attempts := 0
	for {
		token, ok := promptLine(reader, out, "Confirmation code (empty to abandon): ")
		if !ok {
			if !flow.RequestClose() {
				flow.ConfirmClose()
			}
			fmt.Fprintln(out, "Abandoned; the pending request expires on its own.")
			return nil
		}

		err := flow.ConfirmCode(ctx, token)
		if err == nil {
			return nil
		}

		attempts++
		if attempts >= 3 {
			return err
		}

		var verr *workflow.ValidationError
		if errors.As(err, &verr) {
			fmt.Fprintln(out, verr.Msg)
			continue
		}
		var apiErr *client.Error
		if errors.As(err, &apiErr) && apiErr.Code == api.ErrInvalidOrExpired {
			continue
		}
		return err
	}
}
