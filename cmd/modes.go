// Copyright (c) 2026 SmartEco
// Licensed under the MIT License. See LICENSE file in the project root for details.

package cmd

import (
	"github.com/spf13/cobra"

	"smarteco/cli/internal/backend"
	"smarteco/cli/internal/guard"
)

func newModesCmd() *cobra.Command {
	return &cobra.Command{
		Use:         "modes",
		Short:       "List the transport modes you can record trips with",
		Annotations: area(guard.Protected),
		Args:        cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a := appFrom(cmd)
			ctx, cancel := a.requestContext(cmd.Context())
			defer cancel()
			modes, err := withSpinner(a.errOut, "Loading transport modes...", func() ([]backend.TransportMode, error) {
				return a.api.Modes(ctx)
			})
			if err != nil {
				return during("loading transport modes", err)
			}
			return a.render.Modes(modes)
		},
	}
}
