// Copyright (c) 2026 SmartEco
// Licensed under the MIT License. See LICENSE file in the project root for details.

package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"smarteco/cli/internal/apperr"
	"smarteco/cli/internal/backend"
	"smarteco/cli/internal/geocode"
	"smarteco/cli/internal/guard"
	"smarteco/cli/internal/logging"
)

func newTripsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:         "trips",
		Short:       "List, add and summarize your trips",
		Annotations: area(guard.Protected),
		Args:        cobra.NoArgs,
		RunE:        runTripsList,
	}
	cmd.AddCommand(newTripsListCmd(), newTripsCreateCmd(), newTripsAggregateCmd())
	return cmd
}

func newTripsListCmd() *cobra.Command {
	return &cobra.Command{
		Use:         "list",
		Aliases:     []string{"ls"},
		Short:       "List your trips and their total impact",
		Annotations: area(guard.Protected),
		Args:        cobra.NoArgs,
		RunE:        runTripsList,
	}
}

func runTripsList(cmd *cobra.Command, args []string) error {
	a := appFrom(cmd)
	rctx, cancel := a.requestContext(cmd.Context())
	defer cancel()

	var (
		trips []backend.Trip
		total float64
	)
	_, err := withSpinner(a.errOut, "Loading trips...", func() (struct{}, error) {
		g, ctx := errgroup.WithContext(rctx)
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
		return during("loading trips", err)
	}
	return a.render.Trips(trips, total)
}

func newTripsAggregateCmd() *cobra.Command {
	return &cobra.Command{
		Use:         "aggregate",
		Aliases:     []string{"agg"},
		Short:       "Show totals per transport mode",
		Annotations: area(guard.Protected),
		Args:        cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a := appFrom(cmd)
			ctx, cancel := a.requestContext(cmd.Context())
			defer cancel()

			aggs, err := withSpinner(a.errOut, "Loading totals...", func() ([]backend.ModeAggregate, error) {
				return a.api.Aggregation(ctx)
			})
			if err != nil {
				return during("loading totals", err)
			}
			return a.render.Aggregation(aggs)
		},
	}
}

// tripForm collects the create flags. Unset fields are prompted for on a terminal.
type tripForm struct {
	from      string
	to        string
	brand     string
	model     string
	distance  float64
	mode      int
	date      string
	noSuggest bool
}

func newTripsCreateCmd() *cobra.Command {
	f := &tripForm{}

	cmd := &cobra.Command{
		Use:     "create",
		Aliases: []string{"add"},
		Short:   "Record a trip",
		Long: `The create command records a trip and shows the updated dashboard.

On a terminal, any value not given as a flag is prompted for, and addresses are
completed with suggestions from OpenStreetMap. In scripts, --mode is required.
Car brand and model are only sent for the car and electric car modes.`,
		Example: `  smarteco trips create
  smarteco trips create --mode 4 --from Paris --to Lyon --distance 465 --brand Renault --model Clio
  smarteco trips create --mode 12 --distance 3.5 --date 2026-10-01`,
		Annotations: area(guard.Protected),
		Args:        cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a := appFrom(cmd)
			ctx := cmd.Context()

			modes, err := withSpinner(a.errOut, "Loading transport modes...", func() ([]backend.TransportMode, error) {
				rctx, cancel := a.requestContext(ctx)
				defer cancel()
				return a.api.Modes(rctx)
			})
			if err != nil {
				return during("loading transport modes", err)
			}

			trip, err := f.complete(ctx, cmd, a, modes)
			if err != nil {
				return err
			}

			_, err = withSpinner(a.errOut, "Saving trip...", func() (struct{}, error) {
				rctx, cancel := a.requestContext(ctx)
				defer cancel()
				return struct{}{}, a.api.CreateTrip(rctx, trip)
			})
			if err != nil {
				return during("creating the trip", err)
			}
			fmt.Fprintln(a.out, "✅ Trip created successfully.")
			return runDashboard(ctx, a)
		},
	}

	fl := cmd.Flags()
	fl.IntVarP(&f.mode, "mode", "m", 0, "transport mode id (see 'smarteco modes')")
	fl.StringVar(&f.from, "from", "", "start address")
	fl.StringVar(&f.to, "to", "", "end address")
	fl.Float64VarP(&f.distance, "distance", "d", 0, "distance in km")
	fl.StringVar(&f.date, "date", "", "trip date as YYYY-MM-DD (default today)")
	fl.StringVar(&f.brand, "brand", "", "car brand, for car modes")
	fl.StringVar(&f.model, "model", "", "car model, for car modes")
	fl.BoolVar(&f.noSuggest, "no-suggest", false, "do not look up address suggestions")
	return cmd
}

// complete fills unset fields from prompts and builds the request.
func (f *tripForm) complete(ctx context.Context, cmd *cobra.Command, a *app, modes []backend.TransportMode) (backend.NewTrip, error) {
	flags := cmd.Flags()
	ask := func(name string) bool { return !flags.Changed(name) && a.prompt.Interactive() }

	if ask("mode") {
		id, err := chooseMode(a, modes)
		if err != nil {
			return backend.NewTrip{}, err
		}
		f.mode = id
	}
	if f.mode <= 0 {
		return backend.NewTrip{}, apperr.New(apperr.KindInvalid, "A transport mode is required; pass --mode (see 'smarteco modes')")
	}
	if !knownMode(modes, f.mode) {
		return backend.NewTrip{}, apperr.New(apperr.KindInvalid, fmt.Sprintf("Unknown transport mode %d (see 'smarteco modes')", f.mode))
	}

	var err error
	if ask("from") {
		if f.from, err = f.askAddress(ctx, a, "Start address (optional): "); err != nil {
			return backend.NewTrip{}, err
		}
	}
	if ask("to") {
		if f.to, err = f.askAddress(ctx, a, "End address (optional): "); err != nil {
			return backend.NewTrip{}, err
		}
	}
	if ask("distance") {
		if f.distance, err = askDistance(a); err != nil {
			return backend.NewTrip{}, err
		}
	}
	if ask("date") {
		if f.date, err = a.prompt.Line("Date (YYYY-MM-DD, empty for today): "); err != nil {
			return backend.NewTrip{}, apperr.Wrap(apperr.KindInvalid, "Trip date is required", err)
		}
	}
	if backend.IsCarMode(f.mode) {
		if ask("brand") {
			f.brand, _ = a.prompt.Line("Car brand: ")
		}
		if ask("model") {
			f.model, _ = a.prompt.Line("Car model: ")
		}
	}

	date, err := parseTripDate(f.date, time.Now())
	if err != nil {
		return backend.NewTrip{}, err
	}
	trip := backend.NewTrip{
		StartAddress: f.from,
		EndAddress:   f.to,
		CarBrand:     strings.TrimSpace(f.brand),
		CarModel:     strings.TrimSpace(f.model),
		DistanceKm:   f.distance,
		ModeID:       f.mode,
		Date:         date,
	}
	if err := trip.Validate(); err != nil {
		return backend.NewTrip{}, apperr.New(apperr.KindInvalid, "Invalid trip: "+err.Error())
	}
	return trip, nil
}

func chooseMode(a *app, modes []backend.TransportMode) (int, error) {
	if len(modes) == 0 {
		return 0, apperr.New(apperr.KindServer, "No transport modes available")
	}
	labels := make([]string, len(modes))
	for i, m := range modes {
		labels[i] = fmt.Sprintf("%s (%s)", m.ModeName, backend.DescribeMode(m.ModeID))
	}
	n, err := a.prompt.Choose("Transport mode: ", labels, 0)
	if err != nil {
		return 0, apperr.Wrap(apperr.KindInvalid, "A transport mode is required", err)
	}
	return modes[n-1].ModeID, nil
}

// knownMode accepts any id when the server sent no list.
func knownMode(modes []backend.TransportMode, id int) bool {
	if len(modes) == 0 {
		return true
	}
	for _, m := range modes {
		if m.ModeID == id {
			return true
		}
	}
	return false
}

// askAddress reads an address and offers suggestions for it. A failed lookup
// keeps the typed text.
func (f *tripForm) askAddress(ctx context.Context, a *app, label string) (string, error) {
	typed, err := a.prompt.Line(label)
	if err != nil {
		return "", apperr.Wrap(apperr.KindInvalid, "Unable to read the address", err)
	}
	if typed == "" || f.noSuggest {
		return typed, nil
	}

	found, err := withSpinner(a.errOut, "Searching addresses...", func() ([]geocode.Suggestion, error) {
		return a.geo.Suggest(ctx, typed, geocode.DefaultLimit)
	})
	if err != nil {
		a.log.Debug("address suggestions unavailable", slog.String("error", logging.Mask(err.Error())))
		return typed, nil
	}
	if len(found) == 0 {
		return typed, nil
	}

	options := append(suggestionNames(found), fmt.Sprintf("Keep %q", typed))
	n, err := a.prompt.Choose("Pick an address: ", options, len(options))
	if err != nil || n == len(options) {
		return typed, nil
	}
	return found[n-1].DisplayName, nil
}

func askDistance(a *app) (float64, error) {
	for {
		s, err := a.prompt.Line("Distance in km (empty for 0): ")
		if err != nil {
			return 0, apperr.Wrap(apperr.KindInvalid, "Unable to read the distance", err)
		}
		if s == "" {
			return 0, nil
		}
		d, err := strconv.ParseFloat(strings.ReplaceAll(s, ",", "."), 64)
		if err == nil && d >= 0 {
			return d, nil
		}
		fmt.Fprintln(a.out, "Please enter a positive number.")
	}
}

// parseTripDate reads YYYY-MM-DD. Empty means the UTC day of now, which is
// what the API has always received for "today".
func parseTripDate(s string, now time.Time) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return now.UTC(), nil
	}
	d, err := time.ParseInLocation(time.DateOnly, s, time.UTC)
	if err != nil {
		return time.Time{}, apperr.Wrap(apperr.KindInvalid, fmt.Sprintf("Invalid date %q, expected YYYY-MM-DD", s), err)
	}
	return d, nil
}
