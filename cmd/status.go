// Copyright (c) 2026 SmartEco
// Licensed under the MIT License. See LICENSE file in the project root for details.

package cmd

import (
	"fmt"
	"io"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/spf13/cobra"

	"smarteco/cli/internal/guard"
)

func newStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show whether you are logged in and where the token is kept",
		Long: `The status command reports the session state, the API in use and the token
store backend. When the saved token is a JWT, its expiry is shown too. The token
is decoded locally and is not verified.`,
		Annotations: area(guard.Public),
		Args:        cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a := appFrom(cmd)
			st := a.sess.Snapshot()

			fmt.Fprintf(a.out, "API:          %s\n", a.cfg.APIURL)
			fmt.Fprintf(a.out, "Token store:  %s\n", a.storeName())
			if !st.LoggedIn {
				fmt.Fprintln(a.out, "Session:      not logged in")
				if st.ErrorMessage != "" {
					fmt.Fprintf(a.out, "              (%s)\n", st.ErrorMessage)
				}
				return nil
			}
			fmt.Fprintln(a.out, "Session:      logged in")

			tok, err := a.sess.Token(cmd.Context())
			if err != nil || tok == "" {
				return nil
			}
			printTokenExpiry(a.out, tok, time.Now())
			return nil
		},
	}
}

// printTokenExpiry shows the exp claim of a JWT. Opaque tokens print nothing.
func printTokenExpiry(w io.Writer, tok string, now time.Time) {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(tok, claims); err != nil {
		return
	}
	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return
	}
	if exp.Before(now) {
		fmt.Fprintf(w, "Token expiry: %s (expired)\n", exp.Local().Format(time.DateTime))
		return
	}
	fmt.Fprintf(w, "Token expiry: %s (in %s)\n", exp.Local().Format(time.DateTime), exp.Sub(now).Round(time.Minute))
}
