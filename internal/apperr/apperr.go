// Copyright (c) 2026 SmartEco
// Licensed under the MIT License. See LICENSE file in the project root for details.

// Package apperr defines typed errors with categories for user-friendly reporting.
//
// Every failure the CLI can meet falls into one Kind: the transport never answered
// (network), the API answered with a non-2xx and an {"error"} message (server),
// the API rejected the credential (unauthorized), the token store failed (storage),
// local input was unusable (invalid), or a 2xx body could not be read (decode).
// The cmd package presents each Kind one way, decided once.
package apperr

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/url"
)

// Kind is a machine-readable error category.
type Kind string

const (
	// KindNetwork indicates no response was received.
	KindNetwork Kind = "network"
	// KindServer indicates a non-2xx response carrying an application message.
	KindServer Kind = "server"
	// KindUnauthorized indicates a missing token or a 401 from the API.
	KindUnauthorized Kind = "unauthorized"
	// KindStorage indicates a token store read/write failure.
	KindStorage Kind = "storage"
	// KindInvalid indicates unusable local input.
	KindInvalid Kind = "invalid"
	// KindDecode indicates a malformed success response.
	KindDecode Kind = "decode"
	// KindUnknown is returned by Classify for errors outside the taxonomy.
	KindUnknown Kind = "unknown"
)

// E wraps an error with kind and human-friendly message.
type E struct {
	Kind Kind
	// Message is safe to show to the user.
	Message string
	// Status is the HTTP status code, when there was a response.
	Status int
	Err    error
}

func (e *E) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

// Unwrap allows errors.Is and errors.As to traverse the cause chain.
func (e *E) Unwrap() error { return e.Err }

func Wrap(kind Kind, msg string, err error) *E { return &E{Kind: kind, Message: msg, Err: err} }
func New(kind Kind, msg string) *E { return &E{Kind: kind, Message: msg} }

// Server builds a KindServer error for a non-2xx response. A 401 becomes KindUnauthorized.
func Server(status int, msg string) *E {
	kind := KindServer
	if status == 401 {
		kind = KindUnauthorized
	}
	return &E{Kind: kind, Message: msg, Status: status}
}

// ErrNoToken is returned when an authenticated call finds no stored token.
var ErrNoToken = New(KindUnauthorized, "You are not logged in")

// As extracts the *E from err's chain. It returns nil if not found.
func As(err error) *E {
	var e *E
	if errors.As(err, &e) {
		return e
	}
	return nil
}

// Classify classifies any error. Transport errors that were never wrapped still
// come out as KindNetwork.
func Classify(err error) Kind {
	if err == nil {
		return ""
	}
	if e := As(err); e != nil {
		return e.Kind
	}
	var netErr net.Error
	var urlErr *url.Error
	if errors.As(err, &netErr) || errors.As(err, &urlErr) ||
		errors.Is(err, context.DeadlineExceeded) {
		return KindNetwork
	}
	return KindUnknown
}

// Is reports whether err belongs to kind.
func Is(err error, kind Kind) bool { return Classify(err) == kind }

// UserMessage returns the text to show for err: the typed message when there is
// one, the raw error text otherwise.
func UserMessage(err error) string {
	if err == nil {
		return ""
	}
	if e := As(err); e != nil && e.Message != "" {
		return e.Message
	}
	return err.Error()
}
