// Copyright (c) 2026 SmartEco
// Licensed under the MIT License. See LICENSE file in the project root for details.

package backend

import (
	"fmt"
	"strings"
	"time"
)

// Trip is a recorded journey. Optional fields are nil when the server sent null.
type Trip struct {
	TripID         int64    `json:"trip_id"`
	UserID         int64    `json:"user_id"`
	StartAddress   *string  `json:"start_address,omitempty"`
	EndAddress     *string  `json:"end_address,omitempty"`
	DistanceKm     *float64 `json:"distance_km,omitempty"`
	ModeID         int      `json:"mode_id"`
	CarbonImpactKg *float64 `json:"carbon_impact_kg,omitempty"`
	TripDate       string   `json:"trip_date"`
}

// Title is "start - end" when both addresses are known, the mode description otherwise.
func (t Trip) Title() string {
	if t.StartAddress != nil && t.EndAddress != nil && *t.StartAddress != "" && *t.EndAddress != "" {
		return *t.StartAddress + " - " + *t.EndAddress
	}
	return DescribeMode(t.ModeID)
}

// Distance returns the distance in km, 0 when unknown.
func (t Trip) Distance() float64 {
	if t.DistanceKm == nil {
		return 0
	}
	return *t.DistanceKm
}

// Impact returns the carbon impact in kg CO2, 0 when unknown.
func (t Trip) Impact() float64 {
	if t.CarbonImpactKg == nil {
		return 0
	}
	return *t.CarbonImpactKg
}

// NewTrip is the body of POST /trips.
type NewTrip struct {
	StartAddress string
	EndAddress   string
	CarBrand     string
	CarModel     string
	DistanceKm   float64
	ModeID       int
	Date         time.Time
}

// tripRequest is the wire form of NewTrip: empty addresses and car details are null.
type tripRequest struct {
	StartAddress *string `json:"start_address"`
	EndAddress   *string `json:"end_address"`
	CarBrand     *string `json:"car_brand"`
	CarModel     *string `json:"car_model"`
	DistanceKm   float64 `json:"distance_km"`
	ModeID       int     `json:"mode_id"`
	TripDate     string  `json:"trip_date"`
}

// Car modes are the only ones that carry brand and model.
const (
	ModeCar         = 4
	ModeElectricCar = 5
)

// IsCarMode reports whether mode carries car brand and model.
func IsCarMode(mode int) bool { return mode == ModeCar || mode == ModeElectricCar }

func (t NewTrip) request() tripRequest {
	r := tripRequest{
		StartAddress: nullable(t.StartAddress),
		EndAddress:   nullable(t.EndAddress),
		DistanceKm:   t.DistanceKm,
		ModeID:       t.ModeID,
		TripDate:     t.Date.Format(time.DateOnly),
	}
	if IsCarMode(t.ModeID) {
		r.CarBrand = &t.CarBrand
		r.CarModel = &t.CarModel
	}
	return r
}

// Validate checks NewTrip before it is sent.
func (t NewTrip) Validate() error {
	if t.ModeID <= 0 {
		return fmt.Errorf("mode id must be positive, got %d", t.ModeID)
	}
	if t.DistanceKm < 0 {
		return fmt.Errorf("distance must not be negative, got %g", t.DistanceKm)
	}
	if t.Date.IsZero() {
		return fmt.Errorf("trip date is required")
	}
	return nil
}

func nullable(s string) *string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return &s
}

// TransportMode is an entry of GET /transportation.
type TransportMode struct {
	ModeID   int    `json:"mode_id"`
	ModeName string `json:"mode_name"`
}

// ModeAggregate is the per-mode summary of GET /trips/aggregation.
type ModeAggregate struct {
	ModeID        int     `json:"mode_id"`
	TotalImpact   float64 `json:"total_impact"`
	TotalDistance float64 `json:"total_distance"`
	TotalTrips    int     `json:"total_trips"`
}

// GraphPoint is one point of the impact graph: x is a day or month index,
// y the cumulative impact.
type GraphPoint struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// View selects the impact graph granularity.
type View string

const (
	ViewMonth View = "month"
	ViewDay   View = "day"
)

// ParseView accepts "month" and "day", case-insensitively. Empty means month.
func ParseView(s string) (View, error) {
	switch View(strings.ToLower(strings.TrimSpace(s))) {
	case "", ViewMonth:
		return ViewMonth, nil
	case ViewDay:
		return ViewDay, nil
	default:
		return "", fmt.Errorf("unknown view %q (want month or day)", s)
	}
}

// UserInfo is the "user" object of GET /user/info.
type UserInfo struct {
	UserID   int64  `json:"user_id,omitempty"`
	Username string `json:"username"`
	Email    string `json:"email,omitempty"`
}
