// Package main implements the aliasctl CLI.
package main

import (
	"bufio"
	"database/sql"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/haltman-io/aliasctl/internal/logging"
	"github.com/haltman-io/aliasctl/internal/prefs"
)

var logger *zap.Logger

var rootCmd = &cobra.Command{
	Use:   "aliasctl",
	Short: "Client for the mail alias forwarding service",
	Long: `aliasctl manages email aliases on a hosted forwarding service:
subscribe and unsubscribe aliases, confirm them with emailed tokens,
issue API credentials, and watch DNS validation of custom domains.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		// A .env next to the binary is a convenience, not a requirement.
		_ = godotenv.Load()

		var err error
		logger, err = logging.New(logging.FromEnv())
		if err != nil {
			return fmt.Errorf("initializing logger: %w", err)
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			logging.Sync(logger)
		}
	},
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func getEnv(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

// prefsPath resolves the preferences database location, honoring the
// ALIASCTL_PREFS_DB override.
func prefsPath() (string, error) {
	if v := os.Getenv("ALIASCTL_PREFS_DB"); v != "" {
		return v, nil
	}
	return prefs.DefaultPath()
}

// openPrefsDB opens the local preferences database, creating it on
// first use.
func openPrefsDB() (*sql.DB, error) {
	path, err := prefsPath()
	if err != nil {
		return nil, err
	}
	return prefs.Open(path)
}

// promptLine prints a prompt and reads one trimmed line. An empty line
// or EOF returns ("", false). Callers that prompt repeatedly must reuse
// one reader, or input buffered past the first newline is lost.
func promptLine(in *bufio.Reader, out io.Writer, prompt string) (string, bool) {
	fmt.Fprint(out, prompt)
	line, err := in.ReadString('\n')
	if err != nil && line == "" {
		return "", false
	}
	line = strings.TrimSpace(line)
	return line, line != ""
}
