// Copyright (c) 2026 SmartEco
// Licensed under the MIT License. See LICENSE file in the project root for details.

package backend

import (
	"context"

	"smarteco/cli/internal/apperr"
)

// UserInfo calls GET /user/info and returns the "user" object.
func (h *HTTP) UserInfo(ctx context.Context) (UserInfo, error) {
	var out struct {
		User *UserInfo `json:"user"`
	}
	if err := h.get(ctx, h.endpoints.UserInfo, "Unable to load user info", &out); err != nil {
		return UserInfo{}, err
	}
	if out.User == nil {
		return UserInfo{}, apperr.New(apperr.KindDecode, "User info missing from the response")
	}
	return *out.User, nil
}
