// Copyright (c) 2026 SmartEco
// Licensed under the MIT License. See LICENSE file in the project root for details.

// Package config loads and stores CLI configuration.
//
// Sources & precedence (later wins):
//
//  1. Built-in defaults (see Default).
//  2. $XDG_CONFIG_HOME/smarteco/config.json, when present.
//  3. SMARTECO_* environment variables (see the env tags on Config).
//  4. Persistent command-line flags, applied by the cmd package.
//
// Only non-secret settings are kept here; the session token goes to the token store.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"

	"smarteco/cli/internal/xdg"
)

// EnvPrefix is prepended to every environment variable name read by Load.
const EnvPrefix = "SMARTECO_"

// Token store backends accepted by Config.TokenStore.
const (
	StoreKeyring = "keyring"
	StoreFile    = "file"
	StoreRedis   = "redis"
	StoreMemory  = "memory"
)

// Config holds non-sensitive CLI settings.
type Config struct {
	APIURL    string    `json:"api_url" env:"API_URL"`
	Endpoints Endpoints `json:"endpoints" envPrefix:"ENDPOINT_"`

	// TokenStore selects where the session token is persisted.
	TokenStore string `json:"token_store" env:"TOKEN_STORE"`
	// RedisURL is required when TokenStore is "redis".
	RedisURL string `json:"redis_url,omitempty" env:"REDIS_URL"`

	RequestTimeout Duration `json:"request_timeout" env:"REQUEST_TIMEOUT"`
	LogLevel       string   `json:"log_level" env:"LOG_LEVEL"`
	// Locale drives number formatting, e.g. "en" or "fr".
	Locale string `json:"locale" env:"LOCALE"`

	NominatimURL string `json:"nominatim_url" env:"NOMINATIM_URL"`

	// InvalidateOnUnauthorized logs the user out centrally on any 401.
	InvalidateOnUnauthorized bool `json:"invalidate_on_unauthorized" env:"INVALIDATE_ON_UNAUTHORIZED"`
}

// Endpoints contains REST API endpoint paths relative to APIURL.
type Endpoints struct {
	Login        string `json:"login" env:"LOGIN"`
	Register     string `json:"register" env:"REGISTER"`
	UserInfo     string `json:"user_info" env:"USER_INFO"`
	Modes        string `json:"transportation" env:"TRANSPORTATION"`
	Trips        string `json:"trips" env:"TRIPS"`
	TripImpact   string `json:"trip_impact" env:"TRIP_IMPACT"`
	Aggregation  string `json:"aggregation" env:"AGGREGATION"`
	GraphByMonth string `json:"impact_graph_month" env:"IMPACT_GRAPH_MONTH"`
	GraphByDay   string `json:"impact_graph_day" env:"IMPACT_GRAPH_DAY"`
}

// DefaultEndpoints returns the SmartEco API routes.
func DefaultEndpoints() Endpoints {
	return Endpoints{
		Login:        "/auth/login",
		Register:     "/register",
		UserInfo:     "/user/info",
		Modes:        "/transportation",
		Trips:        "/trips",
		TripImpact:   "/trips/impact",
		Aggregation:  "/trips/aggregation",
		GraphByMonth: "/trips/impactGraphMonth",
		GraphByDay:   "/trips/impactGraphDay",
	}
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		APIURL:                   "http://localhost:3000",
		Endpoints:                DefaultEndpoints(),
		TokenStore:               StoreKeyring,
		RequestTimeout:           Duration(15 * time.Second),
		LogLevel:                 "info",
		Locale:                   "en",
		NominatimURL:             "https://nominatim.openstreetmap.org",
		InvalidateOnUnauthorized: true,
	}
}

// Path returns the path to the config file.
func Path() (string, error) {
	dir, err := xdg.ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.json"), nil
}

// Load reads configuration from the default path: defaults, then the config
// file, then the environment. A missing file is not an error. The result is
// not validated; callers apply flags first and then call Validate.
func Load(environ map[string]string) (Config, error) {
	p, err := Path()
	if err != nil {
		return Config{}, err
	}
	return LoadFrom(p, environ)
}

// LoadFrom is Load with an explicit file path. A nil environ reads the process environment.
func LoadFrom(path string, environ map[string]string) (Config, error) {
	c := Default()
	if err := overlayFile(&c, path); err != nil {
		return c, err
	}
	if err := overlayEnv(&c, environ); err != nil {
		return c, err
	}
	c.fillEndpoints()
	return c, nil
}

func overlayFile(c *Config, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("read config: %w", err)
	}
	if err := json.Unmarshal(data, c); err != nil {
		return fmt.Errorf("parse config %s: %w", path, err)
	}
	return nil
}

func overlayEnv(c *Config, environ map[string]string) error {
	opts := env.Options{Prefix: EnvPrefix}
	if environ != nil {
		opts.Environment = environ
	}
	if err := env.ParseWithOptions(c, opts); err != nil {
		return fmt.Errorf("config: failed to parse environment variables: %w", err)
	}
	return nil
}

// fillEndpoints restores default routes the file left blank.
func (c *Config) fillEndpoints() {
	d := DefaultEndpoints()
	fill := func(dst *string, def string) {
		if strings.TrimSpace(*dst) == "" {
			*dst = def
		}
	}
	fill(&c.Endpoints.Login, d.Login)
	fill(&c.Endpoints.Register, d.Register)
	fill(&c.Endpoints.UserInfo, d.UserInfo)
	fill(&c.Endpoints.Modes, d.Modes)
	fill(&c.Endpoints.Trips, d.Trips)
	fill(&c.Endpoints.TripImpact, d.TripImpact)
	fill(&c.Endpoints.Aggregation, d.Aggregation)
	fill(&c.Endpoints.GraphByMonth, d.GraphByMonth)
	fill(&c.Endpoints.GraphByDay, d.GraphByDay)
}

// Validate reports the first invalid setting.
func (c Config) Validate() error {
	u, err := url.Parse(c.APIURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("config: api_url must be an absolute http(s) URL, got %q", c.APIURL)
	}
	switch c.TokenStore {
	case StoreKeyring, StoreFile, StoreMemory:
	case StoreRedis:
		if strings.TrimSpace(c.RedisURL) == "" {
			return errors.New("config: redis_url is required when token_store is redis")
		}
	default:
		return fmt.Errorf("config: unknown token_store %q", c.TokenStore)
	}
	if c.RequestTimeout <= 0 {
		return errors.New("config: request_timeout must be positive")
	}
	return nil
}
