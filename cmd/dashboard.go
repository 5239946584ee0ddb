// Copyright (c) 2026 SmartEco
// Licensed under the MIT License. See LICENSE file in the project root for details.

package cmd

import (
	"context"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"smarteco/cli/internal/backend"
	"smarteco/cli/internal/guard"
)

func newDashboardCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "dashboard",
		Aliases: []string{"home"},
		Short:   "Show your monthly impact, totals per mode and reference emissions",
		Long: `The dashboard shows the cumulative carbon impact of your trips by month,
the totals for each transport mode, and reference emissions of common
transports for comparison.`,
		Annotations: area(guard.Protected),
		Args:        cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDashboard(cmd.Context(), appFrom(cmd))
		},
	}
}

// runDashboard fetches the monthly graph and per-mode totals concurrently and renders them.
func runDashboard(ctx context.Context, a *app) error {
	var (
		points []backend.GraphPoint
		aggs   []backend.ModeAggregate
	)

	ctx, cancel := a.requestContext(ctx)
	defer cancel()

	_, err := withSpinner(a.errOut, "Loading dashboard...", func() (struct{}, error) {
		g, gctx := errgroup.WithContext(ctx)
		g.Go(func() error {
			var err error
			points, err = a.api.ImpactGraph(gctx, backend.ViewMonth)
			return err
		})
		g.Go(func() error {
			var err error
			aggs, err = a.api.Aggregation(gctx)
			return err
		})
		return struct{}{}, g.Wait()
	})
	if err != nil {
		return during("loading the dashboard", err)
	}

	if err := a.render.Graph(points, backend.ViewMonth); err != nil {
		return err
	}
	if err := a.render.Aggregation(aggs); err != nil {
		return err
	}
	return a.render.References()
}
