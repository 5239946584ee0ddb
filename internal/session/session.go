// Copyright (c) 2026 SmartEco
// Licensed under the MIT License. See LICENSE file in the project root for details.

// Package session owns the authentication state of the CLI.
//
// A Manager holds {LoggedIn, Loading, ErrorMessage}, persists the token through a
// keychain.TokenStore and talks to the API through a backend.Authenticator.
// Operations never return errors: failures land in State.ErrorMessage.
//
// Every mutating call takes a generation number when it starts; Logout and
// Invalidate take one too. A result commits only while its generation is still
// the newest, so the most recently started operation decides the final state and
// an outdated login can neither persist its token nor flip LoggedIn.
package session

import (
	"context"
	"log/slog"
	"sync"

	"smarteco/cli/internal/apperr"
	"smarteco/cli/internal/backend"
	"smarteco/cli/internal/keychain"
	"smarteco/cli/internal/logging"
)

// State is a snapshot of the session.
type State struct {
	LoggedIn bool
	// Loading is true only until the first Restore completes.
	Loading      bool
	ErrorMessage string
}

// RegisterResult reports a registration attempt. Created is true once the
// account exists, even when the follow-up sign-in failed.
type RegisterResult struct {
	State
	Created bool
}

// View is the read-only side of the session handed to consumers.
type View interface {
	Snapshot() State
}

// Manager is safe for concurrent use.
type Manager struct {
	store keychain.TokenStore
	auth  backend.Authenticator
	log   *slog.Logger

	restoreOnce sync.Once

	mu       sync.Mutex
	state    State
	gen      uint64
	watchers map[int]func(State)
	nextID   int
}

// Option configures a Manager.
type Option func(*Manager)

// WithLogger sets the logger. The default discards everything.
func WithLogger(l *slog.Logger) Option { return func(m *Manager) { m.log = l } }

// New creates a Manager in the loading state. Call Restore before anything else.
func New(store keychain.TokenStore, auth backend.Authenticator, opts ...Option) *Manager {
	m := &Manager{
		store:    store,
		auth:     auth,
		log:      logging.Discard(),
		state:    State{Loading: true},
		watchers: map[int]func(State){},
	}
	for _, o := range opts {
		o(m)
	}
	return m
}

var _ View = (*Manager)(nil)

// Snapshot returns the current state.
func (m *Manager) Snapshot() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// Token reads the persisted token. An empty token means not logged in.
func (m *Manager) Token(ctx context.Context) (string, error) {
	return m.store.Load(ctx)
}

// Watch calls fn after every committed transition until cancel is called.
func (m *Manager) Watch(fn func(State)) (cancel func()) {
	m.mu.Lock()
	id := m.nextID
	m.nextID++
	m.watchers[id] = fn
	m.mu.Unlock()

	return func() {
		m.mu.Lock()
		delete(m.watchers, id)
		m.mu.Unlock()
	}
}

// Restore loads the persisted token once. A present token means logged in;
// it is not validated against the server. A store failure counts as no token.
// Later calls return the current state.
func (m *Manager) Restore(ctx context.Context) State {
	m.restoreOnce.Do(func() {
		m.mu.Lock()
		start := m.gen
		m.mu.Unlock()

		token, err := m.store.Load(ctx)
		if err != nil {
			m.log.Warn("could not read saved session", slog.String("error", err.Error()))
		}

		m.mu.Lock()
		m.state.Loading = false
		if m.gen == start {
			m.state.LoggedIn = err == nil && token != ""
		}
		s := m.state
		m.mu.Unlock()

		m.log.Debug("session restored", slog.Bool("logged_in", s.LoggedIn))
		m.notify(s)
	})
	return m.Snapshot()
}

// Login signs in and persists the token. It does nothing when already logged in.
func (m *Manager) Login(ctx context.Context, email, password string) State {
	m.mu.Lock()
	if m.state.LoggedIn {
		s := m.state
		m.mu.Unlock()
		return s
	}
	m.mu.Unlock()

	gen := m.begin()
	return m.login(ctx, gen, email, password)
}

// Register creates an account and then signs in with the same credentials.
func (m *Manager) Register(ctx context.Context, email, username, password string) RegisterResult {
	gen := m.begin()

	if err := m.auth.Register(ctx, email, username, password); err != nil {
		s := m.fail(gen, "register", err, backend.RegisterFailedMessage)
		return RegisterResult{State: s}
	}
	m.log.Debug("account created", slog.String("email", email))

	return RegisterResult{State: m.login(ctx, gen, email, password), Created: true}
}

// Logout forgets the token. A store failure is logged, not surfaced. Idempotent.
func (m *Manager) Logout(ctx context.Context) State {
	return m.clear(ctx, "")
}

// Invalidate logs out and records reason as the error message. It is the
// central handler for a 401 on any authenticated call.
func (m *Manager) Invalidate(ctx context.Context, reason string) State {
	m.log.Debug("session invalidated", slog.String("reason", reason))
	return m.clear(ctx, reason)
}

func (m *Manager) clear(ctx context.Context, reason string) State {
	m.mu.Lock()
	m.gen++
	if err := m.store.Delete(ctx); err != nil {
		m.log.Warn("could not clear saved session", slog.String("error", err.Error()))
	}
	m.state.LoggedIn = false
	m.state.ErrorMessage = reason
	s := m.state
	m.mu.Unlock()

	m.notify(s)
	return s
}

// begin starts a new generation and clears the error message.
func (m *Manager) begin() uint64 {
	m.mu.Lock()
	m.gen++
	gen := m.gen
	changed := m.state.ErrorMessage != ""
	m.state.ErrorMessage = ""
	s := m.state
	m.mu.Unlock()

	if changed {
		m.notify(s)
	}
	return gen
}

func (m *Manager) login(ctx context.Context, gen uint64, email, password string) State {
	token, err := m.auth.Login(ctx, email, password)
	if err != nil {
		return m.fail(gen, "login", err, backend.LoginFailedMessage)
	}
	if token == "" {
		return m.fail(gen, "login", apperr.New(apperr.KindDecode, backend.NoTokenMessage), backend.NoTokenMessage)
	}

	m.mu.Lock()
	if m.gen != gen {
		s := m.state
		m.mu.Unlock()
		m.log.Debug("dropping outdated login result", slog.Uint64("gen", gen))
		return s
	}
	if err := m.store.Save(ctx, token); err != nil {
		m.state.LoggedIn = false
		m.state.ErrorMessage = message(err, "Unable to save the session")
	} else {
		m.state.LoggedIn = true
		m.state.ErrorMessage = ""
	}
	s := m.state
	m.mu.Unlock()

	m.notify(s)
	return s
}

// fail commits a failure for gen unless a newer operation has started.
func (m *Manager) fail(gen uint64, op string, err error, fallback string) State {
	m.log.Debug(op+" failed", slog.String("error", logging.Mask(err.Error())))

	m.mu.Lock()
	if m.gen != gen {
		s := m.state
		m.mu.Unlock()
		m.log.Debug("dropping outdated "+op+" result", slog.Uint64("gen", gen))
		return s
	}
	m.state.LoggedIn = false
	m.state.ErrorMessage = message(err, fallback)
	s := m.state
	m.mu.Unlock()

	m.notify(s)
	return s
}

func message(err error, fallback string) string {
	if msg := apperr.UserMessage(err); msg != "" {
		return msg
	}
	return fallback
}

func (m *Manager) notify(s State) {
	m.mu.Lock()
	fns := make([]func(State), 0, len(m.watchers))
	for _, fn := range m.watchers {
		fns = append(fns, fn)
	}
	m.mu.Unlock()

	for _, fn := range fns {
		fn(s)
	}
}
