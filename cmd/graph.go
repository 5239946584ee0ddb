// Copyright (c) 2026 SmartEco
// Licensed under the MIT License. See LICENSE file in the project root for details.

package cmd

import (
	"github.com/spf13/cobra"

	"smarteco/cli/internal/apperr"
	"smarteco/cli/internal/backend"
	"smarteco/cli/internal/guard"
)

func newGraphCmd() *cobra.Command {
	var view string

	cmd := &cobra.Command{
		Use:         "graph",
		Short:       "Show cumulative impact by month or by day",
		Annotations: area(guard.Protected),
		Args:        cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a := appFrom(cmd)
			ctx, cancel := a.requestContext(cmd.Context())
			defer cancel()

			v, err := backend.ParseView(view)
			if err != nil {
				return apperr.New(apperr.KindInvalid, err.Error())
			}

			points, err := withSpinner(a.errOut, "Loading graph...", func() ([]backend.GraphPoint, error) {
				return a.api.ImpactGraph(ctx, v)
			})
			if err != nil {
				return during("loading the impact graph", err)
			}
			return a.render.Graph(points, v)
		},
	}

	cmd.Flags().StringVar(&view, "view", string(backend.ViewMonth), "graph granularity: month or day")
	return cmd
}
