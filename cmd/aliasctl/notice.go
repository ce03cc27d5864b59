package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/haltman-io/aliasctl/internal/prefs"
)

var noticeCmd = &cobra.Command{
	Use:   "notice",
	Short: "Manage dismissible informational notices",
}

var noticeDismissCmd = &cobra.Command{
	Use:   "dismiss <name>",
	Short: "Permanently dismiss a notice",
	Args:  cobra.ExactArgs(1),
	RunE:  runNoticeDismiss,
}

var noticeShowCmd = &cobra.Command{
	Use:   "show <name>",
	Short: "Report whether a notice has been dismissed",
	Args:  cobra.ExactArgs(1),
	RunE:  runNoticeShow,
}

func init() {
	rootCmd.AddCommand(noticeCmd)
	noticeCmd.AddCommand(noticeDismissCmd)
	noticeCmd.AddCommand(noticeShowCmd)
}

func runNoticeDismiss(cmd *cobra.Command, args []string) error {
	db, err := openPrefsDB()
	if err != nil {
		return err
	}
	defer db.Close()
	return prefs.SetNoticeDismissed(db, args[0])
}

func runNoticeShow(cmd *cobra.Command, args []string) error {
	db, err := openPrefsDB()
	if err != nil {
		return err
	}
	defer db.Close()

	dismissed, err := prefs.NoticeDismissed(db, args[0])
	if err != nil {
		return err
	}
	if dismissed {
		fmt.Fprintln(cmd.OutOrStdout(), "dismissed")
	} else {
		fmt.Fprintln(cmd.OutOrStdout(), "visible")
	}
	return nil
}
