package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/spexcel/spexcel/internal/graph"
)

func newTestCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "test",
		Short: "Verify connectivity to the configured SharePoint site",
		Long: `Verify that saved credentials work and that the configured site URL
resolves. Authentication is checked first; if it fails, no site
resolution is attempted.`,
		Args: cobra.NoArgs,
		RunE: runTest,
	}
}

func runTest(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	sess := newSession()

	if err := sess.AuthenticateSilent(ctx); err != nil {
		if errors.Is(err, graph.ErrNotLoggedIn) {
			return errors.New("connection test failed: not logged in — run 'spexcel login' first")
		}

		return fmt.Errorf("connection test failed: %w", err)
	}

	if err := sess.TestConnection(ctx); err != nil {
		return fmt.Errorf("connection test failed: %w", err)
	}

	if resolvedCfg.SiteURL == "" {
		statusf("Authentication OK. No site URL configured, skipped site check.\n")

		return nil
	}

	site, err := sess.ResolveSite(ctx)
	if err != nil {
		return fmt.Errorf("connection test failed: %w", err)
	}

	statusf("Connection OK: %s\n", site.DisplayName)

	return nil
}
