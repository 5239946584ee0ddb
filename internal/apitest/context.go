// Copyright (c) 2026 SmartEco
// Licensed under the MIT License. See LICENSE file in the project root for details.

package apitest

import "context"

func withEmail(ctx context.Context, email string) context.Context {
	return context.WithValue(ctx, ctxKey{}, email)
}

func emailFrom(ctx context.Context) string {
	email, _ := ctx.Value(ctxKey{}).(string)
	return email
}

// Ptr returns a pointer to v, for the optional Trip fields.
func Ptr[T any](v T) *T { return &v }
