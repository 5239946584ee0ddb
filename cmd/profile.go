// Copyright (c) 2026 SmartEco
// Licensed under the MIT License. See LICENSE file in the project root for details.

package cmd

import (
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"smarteco/cli/internal/backend"
	"smarteco/cli/internal/guard"
)

func newProfileCmd() *cobra.Command {
	return &cobra.Command{
		Use:         "profile",
		Aliases:     []string{"whoami", "me"},
		Short:       "Show your account and recorded trips",
		Annotations: area(guard.Protected),
		Args:        cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a := appFrom(cmd)
			rctx, cancel := a.requestContext(cmd.Context())
			defer cancel()

			var (
				user  backend.UserInfo
				trips []backend.Trip
				total float64
			)
			_, err := withSpinner(a.errOut, "Loading profile...", func() (struct{}, error) {
				g, ctx := errgroup.WithContext(rctx)
				g.Go(func() (err error) {
					user, err = a.api.UserInfo(ctx)
					return err
				})
				g.Go(func() (err error) {
					trips, err = a.api.Trips(ctx)
					return err
				})
				g.Go(func() (err error) {
					total, err = a.api.TripImpact(ctx)
					return err
				})
				return struct{}{}, g.Wait()
			})
			if err != nil {
				return during("loading your profile", err)
			}

			a.render.Profile(user)
			return a.render.Trips(trips, total)
		},
	}
}
