// Copyright (c) 2026 SmartEco
// Licensed under the MIT License. See LICENSE file in the project root for details.

// Package geocode fetches address suggestions from a Nominatim server.
// Requests are limited to one per second, the public instance's usage policy.
package geocode

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"smarteco/cli/internal/apperr"
	"smarteco/cli/internal/logging"
)

// DefaultLimit caps the number of suggestions requested.
const DefaultLimit = 5

// Suggestion is one matching place.
type Suggestion struct {
	DisplayName string `json:"display_name"`
	Lat         string `json:"lat"`
	Lon         string `json:"lon"`
}

// Client queries Nominatim's /search endpoint.
type Client struct {
	baseURL   string
	http      *http.Client
	limiter   *rate.Limiter
	userAgent string
	log       *slog.Logger
}

// Option configures Client.
type Option func(*Client)

func WithHTTPClient(c *http.Client) Option { return func(cl *Client) { cl.http = c } }
func WithLimiter(l *rate.Limiter) Option { return func(cl *Client) { cl.limiter = l } }
func WithUserAgent(ua string) Option { return func(cl *Client) { cl.userAgent = ua } }
func WithLogger(l *slog.Logger) Option { return func(cl *Client) { cl.log = l } }

// New creates a client for baseURL, e.g. https://nominatim.openstreetmap.org.
func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL:   strings.TrimRight(baseURL, "/"),
		http:      &http.Client{Timeout: 10 * time.Second},
		limiter:   rate.NewLimiter(rate.Every(time.Second), 1),
		userAgent: "smarteco-cli",
		log:       logging.Discard(),
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// Suggest returns up to limit places matching query. A blank query yields none
// without a request.
func (c *Client) Suggest(ctx context.Context, query string, limit int) ([]Suggestion, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, nil
	}
	if limit <= 0 {
		limit = DefaultLimit
	}

	if err := c.limiter.Wait(ctx); err != nil {
		return nil, apperr.Wrap(apperr.KindNetwork, "Address lookup cancelled", err)
	}

	q := url.Values{}
	q.Set("format", "json")
	q.Set("q", query)
	q.Set("limit", strconv.Itoa(limit))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/search?"+q.Encode(), nil)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindInvalid, "Invalid geocoding address", err)
	}
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		c.log.Debug("address lookup failed", slog.String("error", logging.Mask(err.Error())))
		return nil, apperr.Wrap(apperr.KindNetwork, "Unable to reach the address service", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, apperr.Server(resp.StatusCode, "Failed to fetch address suggestions")
	}

	var out []Suggestion
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, apperr.Wrap(apperr.KindDecode, "Unexpected response from the address service", err)
	}
	c.log.Debug("address lookup", slog.String("query", query), slog.Int("results", len(out)))
	return out, nil
}
