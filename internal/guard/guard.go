// Copyright (c) 2026 SmartEco
// Licensed under the MIT License. See LICENSE file in the project root for details.

// Package guard decides what a command may do given the session state.
package guard

import "smarteco/cli/internal/session"

// Area classifies a command by who may run it.
type Area string

const (
	// Protected commands need a logged-in session.
	Protected Area = "protected"
	// Entry commands (login, register) are for logged-out users only.
	Entry Area = "entry"
	// Public commands run in any state.
	Public Area = "public"
)

// ParseArea maps a command annotation to an Area. Unknown values are Public.
func ParseArea(s string) Area {
	switch Area(s) {
	case Protected, Entry:
		return Area(s)
	default:
		return Public
	}
}

// Action is what the caller should do.
type Action int

const (
	Render Action = iota
	ShowLoading
	Redirect
)

func (a Action) String() string {
	switch a {
	case ShowLoading:
		return "show-loading"
	case Redirect:
		return "redirect"
	default:
		return "render"
	}
}

// Route is a redirect target.
type Route string

const (
	RouteLogin     Route = "login"
	RouteDashboard Route = "dashboard"
)

// Decision is the outcome of Decide. Target is set only for Redirect.
type Decision struct {
	Action Action
	Target Route
}

// Decide is a pure function of area and state. While the session is loading it
// never redirects.
func Decide(area Area, s session.State) Decision {
	switch {
	case s.Loading:
		return Decision{Action: ShowLoading}
	case area == Protected && !s.LoggedIn:
		return Decision{Action: Redirect, Target: RouteLogin}
	case area == Entry && s.LoggedIn:
		return Decision{Action: Redirect, Target: RouteDashboard}
	default:
		return Decision{Action: Render}
	}
}
