// Copyright (c) 2026 SmartEco
// Licensed under the MIT License. See LICENSE file in the project root for details.

package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"smarteco/cli/internal/guard"
)

func newLogoutCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Remove the saved session token",
		Long: `The logout command deletes the session token from the token store.
Running it while logged out is harmless.`,
		Annotations: area(guard.Public),
		Args:        cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a := appFrom(cmd)
			a.sess.Logout(cmd.Context())
			fmt.Fprintln(a.out, "✅ Logged out.")
			return nil
		},
	}
}
