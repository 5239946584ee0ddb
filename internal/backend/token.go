// Copyright (c) 2026 SmartEco
// Licensed under the MIT License. See LICENSE file in the project root for details.

package backend

import (
	"context"
	"net/http"
	"strings"
)

// TokenSource yields the bearer token for authenticated calls.
// An empty token with a nil error means "not logged in".
type TokenSource interface {
	Token(ctx context.Context) (string, error)
}

// TokenSourceFunc adapts a function, such as a token store's Load, to TokenSource.
type TokenSourceFunc func(ctx context.Context) (string, error)

func (f TokenSourceFunc) Token(ctx context.Context) (string, error) { return f(ctx) }

// StaticToken always yields the same token.
type StaticToken string

func (s StaticToken) Token(context.Context) (string, error) { return string(s), nil }

// parseBearerToken extracts token from a value like "Bearer <token>" case-insensitively.
func parseBearerToken(value string) string {
	v := strings.TrimSpace(value)
	if len(v) < 7 || !strings.EqualFold(v[:6], "bearer") {
		return ""
	}
	return strings.TrimSpace(v[6:])
}

// tokenFromHeaders looks for a bearer token in the Authorization header of a
// login response, for servers that send it there instead of the body.
func tokenFromHeaders(h http.Header) string {
	return parseBearerToken(h.Get("Authorization"))
}
