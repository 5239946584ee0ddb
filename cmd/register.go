// Copyright (c) 2026 SmartEco
// Licensed under the MIT License. See LICENSE file in the project root for details.

package cmd

import (
	"fmt"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"smarteco/cli/internal/apperr"
	"smarteco/cli/internal/guard"
	"smarteco/cli/internal/session"
)

func newRegisterCmd() *cobra.Command {
	var (
		email         string
		username      string
		passwordStdin bool
	)

	cmd := &cobra.Command{
		Use:     "register",
		Aliases: []string{"signup"},
		Short:   "Create a SmartEco account and log in",
		Long: `The register command creates an account and then logs in with the same
credentials. If the account is created but the sign-in fails, run
"smarteco login" afterwards.`,
		Annotations: area(guard.Entry),
		Args:        cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a := appFrom(cmd)
			ctx := cmd.Context()
			p := a.prompt

			if passwordStdin && (email == "" || username == "") {
				return apperr.New(apperr.KindInvalid, "--password-stdin requires --email and --username")
			}
			if !passwordStdin && !p.Interactive() {
				return apperr.New(apperr.KindInvalid, "No terminal to prompt on; use --email, --username and --password-stdin")
			}

			var err error
			if email == "" {
				if email, err = p.Line("Email: "); err != nil {
					return apperr.Wrap(apperr.KindInvalid, "Email is required", err)
				}
			}
			if username == "" {
				if username, err = p.Line("Username: "); err != nil {
					return apperr.Wrap(apperr.KindInvalid, "Username is required", err)
				}
			}

			var pw string
			if passwordStdin {
				if pw, err = p.Line(""); err != nil {
					return apperr.Wrap(apperr.KindInvalid, "Unable to read the password from stdin", err)
				}
			} else {
				if pw, err = p.Secret("Password: "); err != nil {
					return apperr.Wrap(apperr.KindInvalid, "Password is required", err)
				}
				confirm, err := p.Secret("Confirm password: ")
				if err != nil {
					return apperr.Wrap(apperr.KindInvalid, "Password is required", err)
				}
				if confirm != pw {
					return apperr.New(apperr.KindInvalid, "Passwords do not match")
				}
			}
			if email == "" || pw == "" {
				return apperr.New(apperr.KindInvalid, "Email and password are required")
			}

			res, _ := withSpinner(a.errOut, "Creating account...", func() (session.RegisterResult, error) {
				return a.sess.Register(ctx, email, username, pw), nil
			})

			switch {
			case res.LoggedIn:
				fmt.Fprintln(a.out, "✅ Account created. You're logged in.")
				return runDashboard(ctx, a)
			case res.Created:
				fmt.Fprintln(a.out, "✅ Account created.")
				pterm.Error.WithWriter(a.errOut).Println(res.ErrorMessage)
				fmt.Fprintln(a.errOut, "   Run 'smarteco login' to sign in.")
				return errPresented
			default:
				pterm.Error.WithWriter(a.errOut).Println(res.ErrorMessage)
				return errPresented
			}
		},
	}

	cmd.Flags().StringVarP(&email, "email", "e", "", "account email")
	cmd.Flags().StringVarP(&username, "username", "u", "", "display name")
	cmd.Flags().BoolVar(&passwordStdin, "password-stdin", false, "read the password from stdin")
	return cmd
}
