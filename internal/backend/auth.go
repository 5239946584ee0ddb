// Copyright (c) 2026 SmartEco
// Licensed under the MIT License. See LICENSE file in the project root for details.

package backend

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"smarteco/cli/internal/apperr"
)

// Fallback messages used when the API gives no "error" field.
const (
	LoginFailedMessage    = "Unable to login"
	NoTokenMessage        = "No token received from the server"
	RegisterFailedMessage = "Unable to register user"
)

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type registerRequest struct {
	Email    string `json:"email"`
	Username string `json:"username"`
	Password string `json:"password"`
}

// Login calls POST /auth/login with { email, password } and returns the token.
// A token in the Authorization response header wins over the body.
// A 2xx without a token is an error.
func (h *HTTP) Login(ctx context.Context, email, password string) (string, error) {
	var token string
	err := h.do(ctx, request{
		method:   http.MethodPost,
		path:     h.endpoints.Login,
		body:     loginRequest{Email: email, Password: password},
		fallback: LoginFailedMessage,
	}, func(hdr http.Header, body io.Reader) error {
		if token = tokenFromHeaders(hdr); token != "" {
			_, _ = io.Copy(io.Discard, body)
			return nil
		}
		var out struct {
			Token string `json:"token"`
		}
		if err := json.NewDecoder(body).Decode(&out); err != nil {
			return apperr.Wrap(apperr.KindDecode, NoTokenMessage, err)
		}
		token = strings.TrimSpace(out.Token)
		return nil
	})
	if err != nil {
		return "", err
	}
	if token == "" {
		return "", apperr.New(apperr.KindDecode, NoTokenMessage)
	}
	h.log.Debug("login succeeded", slog.String("email", email))
	return token, nil
}

// Register calls POST /register with { email, username, password }.
func (h *HTTP) Register(ctx context.Context, email, username, password string) error {
	return h.doJSON(ctx, request{
		method:   http.MethodPost,
		path:     h.endpoints.Register,
		body:     registerRequest{Email: email, Username: username, Password: password},
		fallback: RegisterFailedMessage,
	}, nil)
}
