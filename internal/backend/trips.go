// Copyright (c) 2026 SmartEco
// Licensed under the MIT License. See LICENSE file in the project root for details.

package backend

import (
	"context"
	"net/http"

	"smarteco/cli/internal/apperr"
)

// Modes calls GET /transportation.
func (h *HTTP) Modes(ctx context.Context) ([]TransportMode, error) {
	var out struct {
		Modes []TransportMode `json:"modes"`
	}
	if err := h.get(ctx, h.endpoints.Modes, "Failed to load transportation modes", &out); err != nil {
		return nil, err
	}
	return out.Modes, nil
}

// Trips calls GET /trips.
func (h *HTTP) Trips(ctx context.Context) ([]Trip, error) {
	var out struct {
		Trips []Trip `json:"trips"`
	}
	if err := h.get(ctx, h.endpoints.Trips, "Failed to load trips", &out); err != nil {
		return nil, err
	}
	return out.Trips, nil
}

// TripImpact calls GET /trips/impact.
func (h *HTTP) TripImpact(ctx context.Context) (float64, error) {
	var out struct {
		TotalImpact *float64 `json:"total_impact"`
	}
	if err := h.get(ctx, h.endpoints.TripImpact, "Failed to load total impact", &out); err != nil {
		return 0, err
	}
	if out.TotalImpact == nil {
		return 0, nil
	}
	return *out.TotalImpact, nil
}

// CreateTrip calls POST /trips. Car brand and model are only sent for car modes.
func (h *HTTP) CreateTrip(ctx context.Context, t NewTrip) error {
	if err := t.Validate(); err != nil {
		return apperr.Wrap(apperr.KindInvalid, err.Error(), err)
	}
	return h.doJSON(ctx, request{
		method:   http.MethodPost,
		path:     h.endpoints.Trips,
		body:     t.request(),
		auth:     true,
		fallback: "Failed to create trip",
	}, nil)
}

// Aggregation calls GET /trips/aggregation.
func (h *HTTP) Aggregation(ctx context.Context) ([]ModeAggregate, error) {
	var out struct {
		Trips []ModeAggregate `json:"trips"`
	}
	if err := h.get(ctx, h.endpoints.Aggregation, "Failed to load aggregated trips", &out); err != nil {
		return nil, err
	}
	return out.Trips, nil
}

// ImpactGraph calls GET /trips/impactGraphMonth or /trips/impactGraphDay.
func (h *HTTP) ImpactGraph(ctx context.Context, view View) ([]GraphPoint, error) {
	path := h.endpoints.GraphByMonth
	if view == ViewDay {
		path = h.endpoints.GraphByDay
	}
	var out struct {
		Points []GraphPoint `json:"points"`
	}
	if err := h.get(ctx, path, "Failed to load impact graph", &out); err != nil {
		return nil, err
	}
	return out.Points, nil
}
