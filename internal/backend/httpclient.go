// Copyright (c) 2026 SmartEco
// Licensed under the MIT License. See LICENSE file in the project root for details.

package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"smarteco/cli/internal/apperr"
	"smarteco/cli/internal/config"
	"smarteco/cli/internal/logging"
)

// SessionExpiredMessage is reported when an authenticated call gets a 401.
const SessionExpiredMessage = "Your session has expired. Please log in again."

const maxErrorBody = 64 << 10

// HTTP implements API over the SmartEco REST endpoints.
type HTTP struct {
	baseURL        string
	endpoints      config.Endpoints
	client         *http.Client
	tokens         TokenSource
	onUnauthorized func(ctx context.Context)
	userAgent      string
	log            *slog.Logger
}

// Option configures HTTP.
type Option func(*HTTP)

// WithTokenSource sets where authenticated calls read the bearer token from.
func WithTokenSource(ts TokenSource) Option { return func(h *HTTP) { h.tokens = ts } }

// WithOnUnauthorized registers a hook fired when an authenticated call gets a 401.
func WithOnUnauthorized(fn func(ctx context.Context)) Option {
	return func(h *HTTP) { h.onUnauthorized = fn }
}

// WithHTTPClient replaces the default client.
func WithHTTPClient(c *http.Client) Option { return func(h *HTTP) { h.client = c } }

// WithLogger sets the request logger.
func WithLogger(l *slog.Logger) Option { return func(h *HTTP) { h.log = l } }

// WithUserAgent sets the User-Agent header.
func WithUserAgent(ua string) Option { return func(h *HTTP) { h.userAgent = ua } }

// New creates a client for baseURL. Without WithTokenSource every
// authenticated call fails with apperr.ErrNoToken.
func New(baseURL string, endpoints config.Endpoints, opts ...Option) *HTTP {
	h := &HTTP{
		baseURL:   strings.TrimRight(baseURL, "/"),
		endpoints: endpoints,
		client:    &http.Client{Timeout: 15 * time.Second},
		tokens:    StaticToken(""),
		userAgent: "smarteco-cli",
		log:       logging.Discard(),
	}
	for _, o := range opts {
		o(h)
	}
	return h
}

// NewFromConfig creates a client from the loaded configuration.
func NewFromConfig(cfg config.Config, opts ...Option) *HTTP {
	base := []Option{WithHTTPClient(&http.Client{Timeout: cfg.RequestTimeout.Std()})}
	return New(cfg.APIURL, cfg.Endpoints, append(base, opts...)...)
}

// request describes one JSON call.
type request struct {
	method string
	path   string
	body   any
	// auth attaches the bearer token and treats a 401 as an expired session.
	auth bool
	// fallback is the message used when an error response has no "error" field.
	fallback string
}

// errorBody is the error shape the API returns on non-2xx responses.
type errorBody struct {
	Error string `json:"error"`
}

// doJSON performs r and decodes a 2xx body into out (when out is non-nil).
// Every endpoint goes through here.
func (h *HTTP) doJSON(ctx context.Context, r request, out any) error {
	if out == nil {
		return h.do(ctx, r, nil)
	}
	return h.do(ctx, r, func(_ http.Header, body io.Reader) error {
		if err := json.NewDecoder(body).Decode(out); err != nil {
			return apperr.Wrap(apperr.KindDecode, "Unexpected response from the SmartEco API", err)
		}
		return nil
	})
}

// do performs r and hands a 2xx response to decode. A nil decode drains the body.
func (h *HTTP) do(ctx context.Context, r request, decode func(http.Header, io.Reader) error) error {
	var token string
	if r.auth {
		t, err := h.tokens.Token(ctx)
		if err != nil {
			return err
		}
		if t == "" {
			return apperr.ErrNoToken
		}
		token = t
	}

	var body io.Reader
	if r.body != nil {
		b, err := json.Marshal(r.body)
		if err != nil {
			return apperr.Wrap(apperr.KindInvalid, "Unable to encode request", err)
		}
		body = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, r.method, h.baseURL+r.path, body)
	if err != nil {
		return apperr.Wrap(apperr.KindInvalid, "Invalid API address", err)
	}
	reqID := newRequestID()
	h.setStandardHeaders(req, reqID)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	start := time.Now()
	resp, err := h.client.Do(req)
	if err != nil {
		h.log.Debug("request failed",
			slog.String("method", r.method), slog.String("path", r.path),
			slog.String("request_id", reqID), slog.String("error", logging.Mask(err.Error())))
		return apperr.Wrap(apperr.KindNetwork, "Unable to reach the SmartEco API", err)
	}
	defer resp.Body.Close()

	h.log.Debug("request",
		slog.String("method", r.method), slog.String("path", r.path),
		slog.Int("status", resp.StatusCode), slog.String("request_id", reqID),
		slog.Duration("took", time.Since(start)))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return h.errorFromResponse(ctx, r, resp)
	}

	if decode == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	return decode(resp.Header, resp.Body)
}

func (h *HTTP) errorFromResponse(ctx context.Context, r request, resp *http.Response) error {
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))

	msg := r.fallback
	var eb errorBody
	if json.Unmarshal(raw, &eb) == nil && strings.TrimSpace(eb.Error) != "" {
		msg = strings.TrimSpace(eb.Error)
	}

	if resp.StatusCode == http.StatusUnauthorized && r.auth {
		if eb.Error == "" {
			msg = SessionExpiredMessage
		}
		if h.onUnauthorized != nil {
			h.onUnauthorized(ctx)
		}
	}

	h.log.Debug("error response",
		slog.Int("status", resp.StatusCode),
		slog.String("body", logging.Mask(strings.TrimSpace(string(raw)))))

	e := apperr.Server(resp.StatusCode, msg)
	if resp.StatusCode >= 500 && eb.Error == "" {
		// Gateways answer 5xx without our JSON body; keep the status text for diagnosis.
		e.Err = errors.New(http.StatusText(resp.StatusCode))
	}
	return e
}

// setStandardHeaders sets the headers every request carries.
func (h *HTTP) setStandardHeaders(req *http.Request, reqID string) {
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", h.userAgent)
	req.Header.Set("X-Request-ID", reqID)
}

func newRequestID() string {
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.NewString()
	}
	return id.String()
}

func (h *HTTP) get(ctx context.Context, path, fallback string, out any) error {
	return h.doJSON(ctx, request{method: http.MethodGet, path: path, auth: true, fallback: fallback}, out)
}
