// Copyright (c) 2026 SmartEco
// Licensed under the MIT License. See LICENSE file in the project root for details.

package cmd

import (
	"errors"
	"fmt"
	"io"

	"github.com/pterm/pterm"

	"smarteco/cli/internal/apperr"
	"smarteco/cli/internal/httperrors"
	"smarteco/cli/internal/logging"
)

// errPresented is returned once the failure was already shown to the user.
var errPresented = errors.New("already reported")

// actionError names what the command was doing when err happened.
type actionError struct {
	action string
	err    error
}

func (e *actionError) Error() string { return e.action + ": " + e.err.Error() }
func (e *actionError) Unwrap() error { return e.err }

// during tags err with the action in progress, e.g. "loading trips".
func during(action string, err error) error {
	if err == nil {
		return nil
	}
	return &actionError{action: action, err: err}
}

// present is the single place where command errors are shown.
// host names the API for network guidance.
func present(w io.Writer, host string, err error) {
	if errors.Is(err, errPresented) || errors.Is(err, errNotLoggedIn) {
		return
	}

	action := "contacting the SmartEco API"
	var ae *actionError
	if errors.As(err, &ae) {
		action = ae.action
	}

	errPrinter := pterm.Error.WithWriter(w)
	switch apperr.Classify(err) {
	case apperr.KindNetwork:
		cause := err
		if e := apperr.As(err); e != nil && e.Err != nil {
			cause = e.Err
		}
		_ = httperrors.FormatNetworkError(w, cause, action, host)
	case apperr.KindUnauthorized:
		if errors.Is(err, apperr.ErrNoToken) {
			pterm.Warning.WithWriter(w).Println("You're not logged in.")
			fmt.Fprintln(w, "   Run 'smarteco login' or 'smarteco register' to get started.")
			return
		}
		errPrinter.Println(apperr.UserMessage(err))
		fmt.Fprintln(w, "   Run 'smarteco login' to sign in again.")
	case apperr.KindStorage:
		errPrinter.Println(apperr.UserMessage(err))
		fmt.Fprintln(w, "   The OS keyring may be locked or unavailable; try --token-store file.")
		if e := apperr.As(err); e != nil && e.Err != nil {
			pterm.Debug.WithWriter(w).Println(logging.PresentError("cause", e.Err))
		}
	case apperr.KindServer, apperr.KindDecode, apperr.KindInvalid:
		errPrinter.Println(apperr.UserMessage(err))
	default:
		errPrinter.Println(logging.Mask(err.Error()))
	}
}
