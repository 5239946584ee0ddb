// Copyright (c) 2026 SmartEco
// Licensed under the MIT License. See LICENSE file in the project root for details.

package cmd

import (
	"context"
	"fmt"
	"io"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"smarteco/cli/internal/apperr"
	"smarteco/cli/internal/guard"
	"smarteco/cli/internal/session"
)

const maxLoginAttempts = 3

func newLoginCmd() *cobra.Command {
	var (
		email         string
		passwordStdin bool
	)

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Log in with your email and password",
		Long: `The login command signs you in to SmartEco and saves the session token in
the configured token store (the OS keyring by default).

Without flags it prompts for your email and password. For scripts, pass --email
and pipe the password with --password-stdin. If you are already logged in, the
dashboard is shown instead.`,
		Annotations: area(guard.Entry),
		Args:        cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a := appFrom(cmd)
			ctx := cmd.Context()

			var st session.State
			switch {
			case passwordStdin:
				if email == "" {
					return apperr.New(apperr.KindInvalid, "--password-stdin requires --email")
				}
				pw, err := a.prompt.Line("")
				if err != nil {
					return apperr.Wrap(apperr.KindInvalid, "Unable to read the password from stdin", err)
				}
				st = loginOnce(ctx, a, email, pw)
			case a.prompt.Interactive():
				st = loginInteractive(ctx, a, email)
			default:
				return apperr.New(apperr.KindInvalid, "No terminal to prompt on; use --email with --password-stdin")
			}

			if !st.LoggedIn {
				return errPresented
			}
			return runDashboard(ctx, a)
		},
	}

	cmd.Flags().StringVarP(&email, "email", "e", "", "account email")
	cmd.Flags().BoolVar(&passwordStdin, "password-stdin", false, "read the password from stdin")
	return cmd
}

// loginOnce runs one attempt and reports its outcome.
func loginOnce(ctx context.Context, a *app, email, password string) session.State {
	st, _ := withSpinner(a.errOut, "Logging in...", func() (session.State, error) {
		return a.sess.Login(ctx, email, password), nil
	})
	reportLogin(a.out, a.errOut, st)
	return st
}

// loginInteractive prompts for credentials until login succeeds or attempts run out.
// A non-empty email skips the first email prompt.
func loginInteractive(ctx context.Context, a *app, email string) session.State {
	for attempt := 1; attempt <= maxLoginAttempts; attempt++ {
		if email == "" {
			var err error
			if email, err = a.prompt.Line("Email: "); err != nil {
				return a.sess.Snapshot()
			}
		}
		pw, err := a.prompt.Secret("Password: ")
		if err != nil {
			return a.sess.Snapshot()
		}

		st := loginOnce(ctx, a, email, pw)
		if st.LoggedIn || ctx.Err() != nil {
			return st
		}
		email = ""
	}
	return a.sess.Snapshot()
}

func reportLogin(out, errOut io.Writer, st session.State) {
	if st.LoggedIn {
		fmt.Fprintln(out, "✅ Logged in.")
		return
	}
	pterm.Error.WithWriter(errOut).Println(st.ErrorMessage)
}
