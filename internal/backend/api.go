// Copyright (c) 2026 SmartEco
// Licensed under the MIT License. See LICENSE file in the project root for details.

// Package backend is the client for the SmartEco REST API.
// It covers authentication (login, register) and the trip data endpoints.
// Authenticated calls read the bearer token from a TokenSource right before
// each request and report a missing token or a 401 as apperr.KindUnauthorized.
package backend

import "context"

// Authenticator is the part of the API the session layer depends on.
type Authenticator interface {
	// Login exchanges credentials for a bearer token.
	Login(ctx context.Context, email, password string) (string, error)
	// Register creates an account. It does not sign in.
	Register(ctx context.Context, email, username, password string) error
}

// API defines backend operations the CLI depends on.
// Implementations may call the real HTTP API or provide fakes for tests.
type API interface {
	Authenticator

	UserInfo(ctx context.Context) (UserInfo, error)
	Modes(ctx context.Context) ([]TransportMode, error)
	Trips(ctx context.Context) ([]Trip, error)
	// TripImpact returns the user's total carbon impact in kg CO2.
	TripImpact(ctx context.Context) (float64, error)
	CreateTrip(ctx context.Context, t NewTrip) error
	Aggregation(ctx context.Context) ([]ModeAggregate, error)
	ImpactGraph(ctx context.Context, view View) ([]GraphPoint, error)
}

var _ API = (*HTTP)(nil)
