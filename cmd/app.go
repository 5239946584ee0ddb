// Copyright (c) 2026 SmartEco
// Licensed under the MIT License. See LICENSE file in the project root for details.

package cmd

import (
	"context"
	"io"
	"log/slog"

	"github.com/spf13/cobra"

	"smarteco/cli/internal/backend"
	"smarteco/cli/internal/config"
	"smarteco/cli/internal/geocode"
	"smarteco/cli/internal/keychain"
	"smarteco/cli/internal/logging"
	"smarteco/cli/internal/render"
	"smarteco/cli/internal/session"
	"smarteco/cli/internal/terminal"
)

// Deps overrides process-level inputs. The zero value uses the real environment.
type Deps struct {
	// Environ replaces the process environment for config loading.
	Environ map[string]string
	// ConfigPath replaces the XDG config file location.
	ConfigPath string
	// Store replaces the configured token store.
	Store keychain.TokenStore
	Stdin io.Reader
	// Interactive treats Stdin as a terminal.
	Interactive bool
}

// app is everything a command needs, built once per invocation.
type app struct {
	cfg    config.Config
	log    *slog.Logger
	store  keychain.TokenStore
	api    *backend.HTTP
	sess   *session.Manager
	geo    *geocode.Client
	out    io.Writer
	errOut io.Writer
	prompt *terminal.Prompter
	render *render.Renderer
}

type appKey struct{}

func withApp(ctx context.Context, a *app) context.Context {
	return context.WithValue(ctx, appKey{}, a)
}

// appFrom returns the app built by the root command's pre-run hook.
func appFrom(cmd *cobra.Command) *app {
	if cmd == nil {
		return nil
	}
	ctx := cmd.Context()
	if ctx == nil {
		return nil
	}
	a, _ := ctx.Value(appKey{}).(*app)
	return a
}

// rootFlags holds the persistent flags.
type rootFlags struct {
	apiURL     string
	tokenStore string
	verbose    bool
}

// loadConfig applies defaults, file, env, then flags, and validates the result.
func loadConfig(cmd *cobra.Command, d Deps, f *rootFlags) (config.Config, error) {
	var (
		cfg config.Config
		err error
	)
	if d.ConfigPath == "" {
		cfg, err = config.Load(d.Environ)
	} else {
		cfg, err = config.LoadFrom(d.ConfigPath, d.Environ)
	}
	if err != nil {
		return cfg, err
	}

	flags := cmd.Flags()
	if flags.Changed("api-url") {
		cfg.APIURL = f.apiURL
	}
	if flags.Changed("token-store") {
		cfg.TokenStore = f.tokenStore
	}
	if f.verbose {
		cfg.LogLevel = "debug"
	}
	return cfg, cfg.Validate()
}

// buildApp wires config, logger, token store, API client and session.
// withStore is false for commands that never touch the session.
func buildApp(cmd *cobra.Command, d Deps, f *rootFlags, withStore bool) (*app, error) {
	cfg, err := loadConfig(cmd, d, f)
	if err != nil {
		return nil, err
	}

	errOut := cmd.ErrOrStderr()
	log := logging.New(errOut, cfg.LogLevel)
	ua := "smarteco-cli/" + Version

	in := d.Stdin
	if in == nil {
		in = cmd.InOrStdin()
	}

	a := &app{
		cfg:    cfg,
		log:    log,
		out:    cmd.OutOrStdout(),
		errOut: errOut,
		prompt: terminal.NewPrompter(in, cmd.OutOrStdout()),
		render: render.New(cmd.OutOrStdout(), cfg.Locale),
		geo:    geocode.New(cfg.NominatimURL, geocode.WithUserAgent(ua), geocode.WithLogger(log)),
	}
	if d.Interactive {
		a.prompt.AssumeInteractive()
	}
	if !withStore {
		return a, nil
	}

	store := d.Store
	if store == nil {
		store, err = keychain.Open(cmd.Context(), cfg, log)
		if err != nil {
			return nil, err
		}
	}
	a.store = store

	opts := []backend.Option{
		backend.WithTokenSource(backend.TokenSourceFunc(store.Load)),
		backend.WithLogger(log),
		backend.WithUserAgent(ua),
	}
	if cfg.InvalidateOnUnauthorized {
		opts = append(opts, backend.WithOnUnauthorized(func(ctx context.Context) {
			a.sess.Invalidate(ctx, backend.SessionExpiredMessage)
		}))
	}
	a.api = backend.NewFromConfig(cfg, opts...)
	a.sess = session.New(store, a.api, session.WithLogger(log))
	return a, nil
}

// requestContext bounds one command's API calls by the configured timeout.
func (a *app) requestContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if d := a.cfg.RequestTimeout.Std(); d > 0 {
		return context.WithTimeout(ctx, d)
	}
	return context.WithCancel(ctx)
}

// close releases resources held by the token store.
func (a *app) close() {
	if c, ok := a.store.(io.Closer); ok {
		_ = c.Close()
	}
}

// storeName reports the token store backend for `status`.
func (a *app) storeName() string {
	if n, ok := a.store.(interface{ Name() string }); ok {
		return n.Name()
	}
	return a.cfg.TokenStore
}
