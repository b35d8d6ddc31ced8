package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/spexcel/spexcel/internal/config"
	"github.com/spexcel/spexcel/internal/graph"
	"github.com/spexcel/spexcel/internal/tokenfile"
)

func newLoginCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "login",
		Short: "Sign in to Microsoft 365",
		Long: `Sign in to Microsoft 365 and save credentials for later commands.

By default this opens the system browser. Use --device-code on headless
machines, or when a conditional access policy blocks the browser flow.`,
		Args: cobra.NoArgs,
		RunE: runLogin,
	}

	cmd.Flags().Bool("device-code", false, "sign in with a device code instead of the browser")

	return cmd
}

func runLogin(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	sess := newSession()

	useDeviceCode, _ := cmd.Flags().GetBool("device-code")

	var err error
	if useDeviceCode {
		err = sess.AuthenticateDeviceCode(ctx, func(code, uri string) {
			fmt.Fprintf(os.Stderr, "To sign in, open %s and enter the code %s\n", uri, code)
		})
	} else {
		statusf("Opening browser for sign-in...\n")

		err = sess.Authenticate(ctx)
	}

	if err != nil {
		return err
	}

	user, err := sess.Whoami(ctx)
	if err != nil {
		return fmt.Errorf("verifying sign-in: %w", err)
	}

	rememberAccount(user)

	statusf("Signed in as %s (%s)\n", user.DisplayName, user.Email)

	return nil
}

// rememberAccount stores the signed-in account and configured site on the
// token file so whoami can answer without a network call. Failures are
// ignored; the metadata is a convenience.
func rememberAccount(user *graph.User) {
	path := config.DefaultTokenPath()

	f, err := tokenfile.Load(path)
	if err != nil {
		return
	}

	f.Account = user.Email
	f.SiteURL = resolvedCfg.SiteURL

	_ = tokenfile.Save(path, f)
}

func newLogoutCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Sign out and delete saved credentials",
		Args:  cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			if err := tokenfile.Delete(config.DefaultTokenPath()); err != nil {
				return err
			}

			statusf("Signed out.\n")

			return nil
		},
	}
}

func newWhoamiCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Show the signed-in user",
		Args:  cobra.NoArgs,
		RunE:  runWhoami,
	}
}

func runWhoami(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	sess := newSession()

	if err := sess.AuthenticateSilent(ctx); err != nil {
		if errors.Is(err, graph.ErrNotLoggedIn) {
			return errors.New("not logged in — run 'spexcel login' first")
		}

		return err
	}

	user, err := sess.Whoami(ctx)
	if err != nil {
		return err
	}

	if flagJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")

		return enc.Encode(user)
	}

	fmt.Printf("%s (%s)\n", user.DisplayName, user.Email)

	return nil
}
