package main

import (
	"database/sql"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/haltman-io/aliasctl/internal/mailaddr"
	"github.com/haltman-io/aliasctl/internal/prefs"
)

var domainsFlags struct {
	clientConfig
	setDefault string
}

var domainsCmd = &cobra.Command{
	Use:   "domains",
	Short: "List the alias domains available for subscription",
	Long: `List the domains the service offers aliases on. The list is cached
locally; when the API is unreachable the cache (or the ALIASCTL_DOMAINS
env var) is used instead.`,
	RunE: runDomains,
}

func init() {
	rootCmd.AddCommand(domainsCmd)

	addClientFlags(domainsCmd, &domainsFlags.clientConfig)
	domainsCmd.Flags().StringVar(&domainsFlags.setDefault, "set-default", "", "remember this domain as the default")
}

func runDomains(cmd *cobra.Command, args []string) error {
	c, err := domainsFlags.newClient()
	if err != nil {
		return err
	}

	db, dbErr := openPrefsDB()
	if dbErr != nil {
		logger.Warn("preferences unavailable", zap.Error(dbErr))
	} else {
		defer db.Close()
	}

	if domainsFlags.setDefault != "" {
		d := mailaddr.Lower(domainsFlags.setDefault)
		if !mailaddr.ValidDomain(d) {
			return fmt.Errorf("invalid domain: %s", domainsFlags.setDefault)
		}
		if db == nil {
			return fmt.Errorf("cannot store default domain: %w", dbErr)
		}
		if err := prefs.SetDefaultDomain(db, d); err != nil {
			return err
		}
	}

	domains, err := c.Domains(cmd.Context())
	if err != nil {
		domains = fallbackDomains(db)
		if len(domains) == 0 {
			return err
		}
		fmt.Fprintln(cmd.ErrOrStderr(), "API unreachable; showing cached domain list.")
	} else if db != nil {
		if err := prefs.SetDomainsCache(db, domains); err != nil {
			logger.Warn("caching domains failed", zap.Error(err))
		}
	}

	var defaultDomain string
	if db != nil {
		defaultDomain, _, _ = prefs.DefaultDomain(db)
	}

	for _, d := range domains {
		if d == defaultDomain {
			fmt.Fprintf(cmd.OutOrStdout(), "%s (default)\n", d)
			continue
		}
		fmt.Fprintln(cmd.OutOrStdout(), d)
	}
	return nil
}

// fallbackDomains returns the cached list, or failing that the
// ALIASCTL_DOMAINS env var (comma-separated).
func fallbackDomains(db *sql.DB) []string {
	if db != nil {
		if cached, ok, err := prefs.DomainsCache(db); err == nil && ok {
			return cached
		}
	}
	if v := getEnv("ALIASCTL_DOMAINS", ""); v != "" {
		return mailaddr.NormalizeDomains(strings.Split(v, ","))
	}
	return nil
}
