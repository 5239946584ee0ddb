// Copyright (c) 2026 SmartEco
// Licensed under the MIT License. See LICENSE file in the project root for details.

// Package render draws SmartEco data as terminal tables and charts.
package render

import (
	"fmt"
	"io"
	"math"
	"strings"
	"time"

	"github.com/pterm/pterm"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"smarteco/cli/internal/backend"
)

// NoGraphDataMessage is shown when the impact graph has no points.
const NoGraphDataMessage = "No data available for the selected view."

// Reference is one row of the per-km emission reference table.
type Reference struct {
	Name       string
	GramsPerKm int
}

// ReferenceEmissions lists typical emissions per km by transport type.
var ReferenceEmissions = []Reference{
	{Name: "Plane", GramsPerKm: 900},
	{Name: "Car", GramsPerKm: 120},
	{Name: "Bus", GramsPerKm: 68},
	{Name: "Train", GramsPerKm: 14},
}

// Renderer writes to W with numbers formatted for a locale.
type Renderer struct {
	W io.Writer
	p *message.Printer
}

// New creates a Renderer. An unparseable locale falls back to English.
func New(w io.Writer, locale string) *Renderer {
	tag, err := language.Parse(locale)
	if err != nil {
		tag = language.English
	}
	return &Renderer{W: w, p: message.NewPrinter(tag)}
}

// Number formats v with two decimals and locale separators.
func (r *Renderer) Number(v float64) string {
	return r.p.Sprintf("%.2f", v)
}

// Kg formats an impact in kg CO2.
func (r *Renderer) Kg(v float64) string { return r.Number(v) + " kg CO2" }

// Km formats a distance.
func (r *Renderer) Km(v float64) string { return r.Number(v) + " km" }

// Round2 rounds to two decimals.
func Round2(v float64) float64 { return math.Round(v*100) / 100 }

// TotalImpact sums the per-mode impacts and rounds the result to two decimals.
func TotalImpact(aggs []backend.ModeAggregate) float64 {
	var sum float64
	for _, a := range aggs {
		sum += a.TotalImpact
	}
	return Round2(sum)
}

func (r *Renderer) table(data pterm.TableData) error {
	out, err := pterm.DefaultTable.WithHasHeader().WithBoxed().WithData(data).Srender()
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(r.W, out)
	return err
}

func (r *Renderer) section(title string) {
	fmt.Fprintln(r.W, pterm.Bold.Sprint(title))
}

// Trips renders the trip list followed by the total impact.
func (r *Renderer) Trips(trips []backend.Trip, total float64) error {
	r.section("Your trips")
	if len(trips) == 0 {
		fmt.Fprintln(r.W, "No trips recorded yet. Add one with `smarteco trips create`.")
		fmt.Fprintln(r.W)
	} else {
		data := pterm.TableData{{"Date", "Trip", "Distance", "Emissions"}}
		for _, t := range trips {
			data = append(data, []string{t.TripDate, t.Title(), r.Km(t.Distance()), r.Kg(t.Impact())})
		}
		if err := r.table(data); err != nil {
			return err
		}
	}
	fmt.Fprintf(r.W, "Total impact: %s\n", r.Kg(total))
	return nil
}

// Aggregation renders per-mode totals and the client-side grand total.
func (r *Renderer) Aggregation(aggs []backend.ModeAggregate) error {
	r.section("Impact by transport mode")
	if len(aggs) == 0 {
		fmt.Fprintln(r.W, "No trips recorded yet.")
		return nil
	}
	data := pterm.TableData{{"Mode", "Emissions", "Distance", "Trips"}}
	for _, a := range aggs {
		data = append(data, []string{
			backend.DescribeMode(a.ModeID),
			r.Kg(Round2(a.TotalImpact)),
			r.Km(a.TotalDistance),
			r.p.Sprintf("%d", a.TotalTrips),
		})
	}
	if err := r.table(data); err != nil {
		return err
	}
	fmt.Fprintf(r.W, "Total: %s\n", r.Kg(TotalImpact(aggs)))
	return nil
}

// Graph renders the cumulative impact as a bar chart.
func (r *Renderer) Graph(points []backend.GraphPoint, view backend.View) error {
	title := "Cumulative impact by month"
	if view == backend.ViewDay {
		title = "Cumulative impact by day"
	}
	r.section(title)
	if len(points) == 0 {
		fmt.Fprintln(r.W, NoGraphDataMessage)
		return nil
	}

	bars := make(pterm.Bars, 0, len(points))
	for _, p := range points {
		bars = append(bars, pterm.Bar{
			Label: fmt.Sprintf("%s (%s)", axisLabel(p.X, view), r.Number(p.Y)),
			// Bar values are integers; hundredths keep the proportions.
			Value: int(math.Round(p.Y * 100)),
		})
	}
	out, err := pterm.DefaultBarChart.WithBars(bars).WithHorizontal().WithWidth(40).Srender()
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(r.W, out)
	return err
}

func axisLabel(x float64, view backend.View) string {
	n := int(math.Round(x))
	if view == backend.ViewMonth && n >= 1 && n <= 12 {
		return time.Month(n).String()[:3]
	}
	if view == backend.ViewDay {
		return fmt.Sprintf("Day %d", n)
	}
	return fmt.Sprintf("%d", n)
}

// References renders the emission reference table.
func (r *Renderer) References() error {
	r.section("Most polluting transport")
	data := pterm.TableData{{"Transport", "Emissions"}}
	for _, ref := range ReferenceEmissions {
		data = append(data, []string{ref.Name, r.p.Sprintf("%dg CO2 / km", ref.GramsPerKm)})
	}
	return r.table(data)
}

// Modes renders the transport modes offered by the API.
func (r *Renderer) Modes(modes []backend.TransportMode) error {
	if len(modes) == 0 {
		fmt.Fprintln(r.W, "No transport modes available.")
		return nil
	}
	data := pterm.TableData{{"ID", "Name", "Description"}}
	for _, m := range modes {
		data = append(data, []string{fmt.Sprint(m.ModeID), m.ModeName, backend.DescribeMode(m.ModeID)})
	}
	return r.table(data)
}

// Profile renders the user header.
func (r *Renderer) Profile(u backend.UserInfo) {
	name := strings.TrimSpace(u.Username)
	if name == "" {
		name = "unknown user"
	}
	fmt.Fprintf(r.W, "👤 %s\n", pterm.Bold.Sprint(name))
	if u.Email != "" {
		fmt.Fprintf(r.W, "   %s\n", u.Email)
	}
	fmt.Fprintln(r.W)
}

// Suggestions renders a numbered address list.
func (r *Renderer) Suggestions(names []string) {
	if len(names) == 0 {
		fmt.Fprintln(r.W, "No matching address.")
		return
	}
	for i, n := range names {
		fmt.Fprintf(r.W, "%2d. %s\n", i+1, n)
	}
}
