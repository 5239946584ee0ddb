// Copyright (c) 2026 SmartEco
// Licensed under the MIT License. See LICENSE file in the project root for details.

package cmd

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/pterm/pterm"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"smarteco/cli/internal/apitest"
	"smarteco/cli/internal/keychain"
	"smarteco/cli/internal/render"
)

func TestMain(m *testing.M) {
	pterm.DisableStyling()
	os.Exit(m.Run())
}

const (
	testEmail    = "a@x.io"
	testPassword = "pw"
)

type harness struct {
	t     *testing.T
	srv   *apitest.Server
	store *keychain.Manager
	env   map[string]string
}

type result struct {
	code   int
	out    string
	errOut string
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	srv := apitest.New(t)
	srv.AddUser(testEmail, "alice", testPassword)
	return &harness{
		t:     t,
		srv:   srv,
		store: keychain.NewMemory(),
		env:   map[string]string{"SMARTECO_API_URL": srv.URL},
	}
}

// loggedIn stores a token the fake API accepts.
func (h *harness) loggedIn() string {
	tok := h.srv.IssueToken(testEmail)
	require.NoError(h.t, h.store.Save(context.Background(), tok))
	return tok
}

func (h *harness) token() string {
	tok, err := h.store.Load(context.Background())
	require.NoError(h.t, err)
	return tok
}

func (h *harness) run(stdin string, interactive bool, args ...string) result {
	h.t.Helper()
	root := NewRootCmd(Deps{
		Environ:     h.env,
		ConfigPath:  filepath.Join(h.t.TempDir(), "config.json"),
		Store:       h.store,
		Stdin:       strings.NewReader(stdin),
		Interactive: interactive,
	})
	var out, errOut bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&errOut)
	root.SetArgs(args)
	code := execute(context.Background(), root)
	return result{code: code, out: out.String(), errOut: errOut.String()}
}

func TestProtectedCommand_NotLoggedIn(t *testing.T) {
	h := newHarness(t)

	res := h.run("", false, "trips", "list")

	assert.Equal(t, 1, res.code)
	assert.Contains(t, res.errOut, "You're not logged in")
	assert.Empty(t, h.srv.RequestsTo("/trips"), "no data request without a session")
}

func TestProtectedCommand_PromptsLoginThenShowsDashboard(t *testing.T) {
	h := newHarness(t)
	h.srv.FixedToken = "abc"

	res := h.run(testEmail+"\n"+testPassword+"\n", true, "graph", "--view", "day")

	require.Equal(t, 0, res.code, res.errOut)
	assert.Contains(t, res.out, "Please log in")
	assert.Contains(t, res.out, "Impact by transport mode")
	assert.Equal(t, "abc", h.token())
	assert.Empty(t, h.srv.RequestsTo("/trips/impactGraphDay"), "the requested command does not run after a redirect")
	assert.Len(t, h.srv.RequestsTo("/trips/impactGraphMonth"), 1)
}

func TestProtectedCommand_LoginAttemptsExhausted(t *testing.T) {
	h := newHarness(t)
	stdin := strings.Repeat(testEmail+"\nwrong\n", maxLoginAttempts)

	res := h.run(stdin, true, "dashboard")

	assert.Equal(t, 1, res.code)
	assert.Equal(t, maxLoginAttempts, strings.Count(res.errOut, "Invalid credentials"))
	assert.Len(t, h.srv.RequestsTo("/auth/login"), maxLoginAttempts)
	assert.Empty(t, h.token())
}

func TestLogin_PasswordStdin(t *testing.T) {
	h := newHarness(t)
	h.srv.FixedToken = "abc"

	res := h.run(testPassword+"\n", false, "login", "--email", testEmail, "--password-stdin")

	require.Equal(t, 0, res.code, res.errOut)
	assert.Contains(t, res.out, "Logged in")
	assert.Contains(t, res.out, render.NoGraphDataMessage)
	assert.Equal(t, "abc", h.token())
}

func TestLogin_InvalidCredentials(t *testing.T) {
	h := newHarness(t)

	res := h.run("nope\n", false, "login", "--email", testEmail, "--password-stdin")

	assert.Equal(t, 1, res.code)
	assert.Contains(t, res.errOut, "Invalid credentials")
	assert.Empty(t, h.token())
}

func TestLogin_NoTerminal(t *testing.T) {
	h := newHarness(t)

	res := h.run("", false, "login")

	assert.Equal(t, 1, res.code)
	assert.Contains(t, res.errOut, "--password-stdin")
	assert.Empty(t, h.srv.RequestsTo("/auth/login"))
}

func TestLogin_AlreadyLoggedInShowsDashboard(t *testing.T) {
	h := newHarness(t)
	h.loggedIn()

	res := h.run("", false, "login")

	require.Equal(t, 0, res.code, res.errOut)
	assert.Contains(t, res.out, "Already logged in")
	assert.Contains(t, res.out, "Most polluting transport")
	assert.Empty(t, h.srv.RequestsTo("/auth/login"))
}

func TestRegister_CreatesAccountAndLogsIn(t *testing.T) {
	h := newHarness(t)
	h.srv.FixedToken = "abc"

	res := h.run("secret\n", false, "register", "--email", "b@x.io", "--username", "bob", "--password-stdin")

	require.Equal(t, 0, res.code, res.errOut)
	assert.Contains(t, res.out, "Account created")
	assert.Equal(t, "abc", h.token())
	regs := h.srv.RequestsTo("/register")
	require.Len(t, regs, 1)
	assert.JSONEq(t, `{"email":"b@x.io","username":"bob","password":"secret"}`, regs[0].Body)
}

func TestRegister_CreatedButSignInFailed(t *testing.T) {
	h := newHarness(t)
	h.srv.Fail("/auth/login", http.StatusInternalServerError, "Database unavailable")

	res := h.run("secret\n", false, "register", "--email", "b@x.io", "--username", "bob", "--password-stdin")

	assert.Equal(t, 1, res.code)
	assert.Contains(t, res.out, "Account created.")
	assert.Contains(t, res.errOut, "Database unavailable")
	assert.Contains(t, res.errOut, "smarteco login")
	assert.Empty(t, h.token())
}

func TestRegister_PasswordStdinNeedsIdentity(t *testing.T) {
	tests := []struct {
		name string
		args []string
	}{
		{name: "no email or username", args: []string{"register", "--password-stdin"}},
		{name: "no username", args: []string{"register", "--email", "b@x.io", "--password-stdin"}},
		{name: "no email", args: []string{"register", "--username", "bob", "--password-stdin"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t)

			res := h.run("pw\n", false, tt.args...)

			assert.Equal(t, 1, res.code)
			assert.Contains(t, res.errOut, "--password-stdin requires --email and --username")
			assert.Empty(t, h.srv.RequestsTo("/register"))
		})
	}
}

func TestRegister_Duplicate(t *testing.T) {
	h := newHarness(t)

	res := h.run("pw\n", false, "register", "--email", testEmail, "--username", "alice", "--password-stdin")

	assert.Equal(t, 1, res.code)
	assert.Contains(t, res.errOut, "User already exists")
	assert.NotContains(t, res.out, "Account created")
}

func TestLogout(t *testing.T) {
	h := newHarness(t)
	h.loggedIn()

	res := h.run("", false, "logout")

	require.Equal(t, 0, res.code, res.errOut)
	assert.Contains(t, res.out, "Logged out")
	assert.Empty(t, h.token())

	again := h.run("", false, "logout")
	assert.Equal(t, 0, again.code, "logging out twice is harmless")
}

func TestTripsList(t *testing.T) {
	h := newHarness(t)
	h.loggedIn()
	h.srv.AddTrip(testEmail, apitest.Trip{
		StartAddress:   apitest.Ptr("Paris"),
		EndAddress:     apitest.Ptr("Lyon"),
		DistanceKm:     apitest.Ptr(465.0),
		ModeID:         3,
		CarbonImpactKg: apitest.Ptr(6.51),
		TripDate:       "2026-10-01",
	})

	res := h.run("", false, "trips", "list")

	require.Equal(t, 0, res.code, res.errOut)
	assert.Contains(t, res.out, "Paris - Lyon")
	assert.Contains(t, res.out, "6.51")
	assert.Len(t, h.srv.RequestsTo("/trips/impact"), 1)
}

func TestTripsList_OneFetchFails(t *testing.T) {
	h := newHarness(t)
	h.loggedIn()
	h.srv.Fail("/trips/impact", http.StatusInternalServerError, "Impact unavailable")

	res := h.run("", false, "trips")

	assert.Equal(t, 1, res.code)
	assert.Contains(t, res.errOut, "Impact unavailable")
	assert.NotContains(t, res.out, "Total impact")
}

func TestExpiredToken_InvalidatesSession(t *testing.T) {
	h := newHarness(t)
	require.NoError(t, h.store.Save(context.Background(), "stale"))

	res := h.run("", false, "modes")

	assert.Equal(t, 1, res.code)
	assert.Contains(t, res.errOut, "smarteco login")
	assert.Empty(t, h.token(), "a 401 clears the stored token")
}

func TestTripsCreate_FromFlags(t *testing.T) {
	h := newHarness(t)
	h.loggedIn()

	res := h.run("", false, "trips", "create",
		"--mode", "4", "--from", "Paris", "--to", "Lyon", "--distance", "465",
		"--brand", "Renault", "--model", "Clio", "--date", "2026-10-01")

	require.Equal(t, 0, res.code, res.errOut)
	assert.Contains(t, res.out, "Trip created successfully")
	assert.Contains(t, res.out, "Impact by transport mode", "lands on the dashboard")

	posts := h.srv.RequestsTo("/trips")
	require.NotEmpty(t, posts)
	assert.JSONEq(t, `{
		"start_address": "Paris",
		"end_address": "Lyon",
		"car_brand": "Renault",
		"car_model": "Clio",
		"distance_km": 465,
		"mode_id": 4,
		"trip_date": "2026-10-01"
	}`, posts[0].Body)
}

func TestTripsCreate_CarDetailsOnlyForCarModes(t *testing.T) {
	h := newHarness(t)
	h.loggedIn()

	res := h.run("", false, "trips", "create", "--mode", "3", "--brand", "Renault", "--date", "2026-10-01")

	require.Equal(t, 0, res.code, res.errOut)
	trips := h.srv.Trips(testEmail)
	require.Len(t, trips, 1)
	assert.Nil(t, trips[0].CarBrand)
	assert.Nil(t, trips[0].StartAddress)
	assert.Equal(t, "2026-10-01", trips[0].TripDate)
}

func TestTripsCreate_Interactive(t *testing.T) {
	h := newHarness(t)
	h.loggedIn()
	// mode 3 (Train), no addresses, 12.5 km, default date
	stdin := "2\n\n\n12,5\n\n"

	res := h.run(stdin, true, "trips", "create", "--no-suggest")

	require.Equal(t, 0, res.code, res.errOut)
	trips := h.srv.Trips(testEmail)
	require.Len(t, trips, 1)
	assert.Equal(t, 3, trips[0].ModeID)
	require.NotNil(t, trips[0].DistanceKm)
	assert.InDelta(t, 12.5, *trips[0].DistanceKm, 1e-9)
	assert.Equal(t, time.Now().UTC().Format(time.DateOnly), trips[0].TripDate)
}

func TestTripsCreate_Rejected(t *testing.T) {
	tests := []struct {
		name string
		args []string
		want string
	}{
		{name: "missing mode", args: nil, want: "--mode"},
		{name: "unknown mode", args: []string{"--mode", "99"}, want: "Unknown transport mode 99"},
		{name: "bad date", args: []string{"--mode", "3", "--date", "01/10/2026"}, want: "Invalid date"},
		{name: "negative distance", args: []string{"--mode", "3", "--distance", "-1"}, want: "Invalid trip"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t)
			h.loggedIn()

			res := h.run("", false, append([]string{"trips", "create"}, tt.args...)...)

			assert.Equal(t, 1, res.code)
			assert.Contains(t, res.errOut, tt.want)
			assert.Empty(t, h.srv.Trips(testEmail))
		})
	}
}

func TestGraph_InvalidView(t *testing.T) {
	h := newHarness(t)
	h.loggedIn()

	res := h.run("", false, "graph", "--view", "week")

	assert.Equal(t, 1, res.code)
	assert.Contains(t, res.errOut, "unknown view")
}

func TestGraph_Day(t *testing.T) {
	h := newHarness(t)
	h.loggedIn()
	h.srv.SetGraph("day", [][2]float64{{1, 0.5}, {2, 1.25}})

	res := h.run("", false, "graph", "--view", "day")

	require.Equal(t, 0, res.code, res.errOut)
	assert.Contains(t, res.out, "Cumulative impact by day")
	assert.Contains(t, res.out, "Day 2")
}

func TestProfile(t *testing.T) {
	h := newHarness(t)
	h.loggedIn()

	res := h.run("", false, "whoami")

	require.Equal(t, 0, res.code, res.errOut)
	assert.Contains(t, res.out, "alice")
	assert.Contains(t, res.out, testEmail)
}

func TestModes(t *testing.T) {
	h := newHarness(t)
	h.loggedIn()

	res := h.run("", false, "modes")

	require.Equal(t, 0, res.code, res.errOut)
	assert.Contains(t, res.out, "Voiture")
	assert.Len(t, h.srv.RequestsTo("/transportation"), 1)
}

func TestNetworkError(t *testing.T) {
	h := newHarness(t)
	h.loggedIn()
	h.srv.Close()

	res := h.run("", false, "trips", "list")

	assert.Equal(t, 1, res.code)
	assert.Contains(t, res.errOut, "while loading trips")
	assert.NotEmpty(t, h.token(), "a network failure keeps the session")
}

func TestStatus(t *testing.T) {
	h := newHarness(t)
	exp := time.Now().Add(2 * time.Hour)
	tok, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{"exp": exp.Unix()}).SignedString([]byte("k"))
	require.NoError(t, err)
	require.NoError(t, h.store.Save(context.Background(), tok))

	res := h.run("", false, "status")

	require.Equal(t, 0, res.code, res.errOut)
	assert.Contains(t, res.out, "logged in")
	assert.Contains(t, res.out, "memory")
	assert.Contains(t, res.out, "Token expiry")
	assert.Empty(t, h.srv.Requests(), "status is local")
}

func TestStatus_LoggedOut(t *testing.T) {
	h := newHarness(t)

	res := h.run("", false, "status")

	require.Equal(t, 0, res.code, res.errOut)
	assert.Contains(t, res.out, "not logged in")
}

func TestAddress(t *testing.T) {
	geo := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "10 rue de Rivoli", r.URL.Query().Get("q"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`[{"display_name":"10 Rue de Rivoli, Paris","lat":"48.85","lon":"2.35"}]`))
	}))
	defer geo.Close()

	h := newHarness(t)
	h.env["SMARTECO_NOMINATIM_URL"] = geo.URL

	res := h.run("", false, "address", "10", "rue", "de", "Rivoli")

	require.Equal(t, 0, res.code, res.errOut)
	assert.Contains(t, res.out, "10 Rue de Rivoli, Paris")
	assert.Empty(t, h.srv.Requests())
}

func TestVersion(t *testing.T) {
	h := newHarness(t)

	res := h.run("", false, "version")

	require.Equal(t, 0, res.code, res.errOut)
	assert.Contains(t, res.out, Version)
}

func TestFlagsOverrideInvalidEnvironment(t *testing.T) {
	tests := []struct {
		name    string
		env     map[string]string
		args    []string
		wantErr string
	}{
		{
			name:    "redis store without url",
			env:     map[string]string{"SMARTECO_TOKEN_STORE": "redis"},
			args:    []string{"--token-store", "memory", "version"},
			wantErr: "redis_url is required",
		},
		{
			name:    "relative api url",
			env:     map[string]string{"SMARTECO_API_URL": "localhost:3000"},
			args:    []string{"--api-url", "https://api.example", "version"},
			wantErr: "api_url must be an absolute",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t)
			for k, v := range tt.env {
				h.env[k] = v
			}

			res := h.run("", false, tt.args...)
			require.Equal(t, 0, res.code, res.errOut)
			assert.Contains(t, res.out, Version)

			res = h.run("", false, "version")
			assert.Equal(t, 1, res.code, "without the flag the bad value is reported")
			assert.Contains(t, res.errOut, tt.wantErr)
		})
	}
}

func TestFlagOverridesInvalidEnvironment_ForSessionCommands(t *testing.T) {
	h := newHarness(t)
	h.env["SMARTECO_API_URL"] = "localhost:3000"

	res := h.run("", false, "--api-url", h.srv.URL, "status")

	require.Equal(t, 0, res.code, res.errOut)
	assert.Contains(t, res.out, h.srv.URL)
}

func TestParseTripDate(t *testing.T) {
	now := time.Date(2026, 10, 16, 9, 30, 0, 0, time.UTC)

	got, err := parseTripDate("", now)
	require.NoError(t, err)
	assert.Equal(t, now, got)

	// 00:30 in Paris on the 17th is still the 16th in UTC.
	paris := time.FixedZone("CEST", 2*60*60)
	got, err = parseTripDate("", time.Date(2026, 10, 17, 0, 30, 0, 0, paris))
	require.NoError(t, err)
	assert.Equal(t, "2026-10-16", got.Format(time.DateOnly))

	got, err = parseTripDate("2026-10-17", time.Date(2026, 10, 17, 0, 30, 0, 0, paris))
	require.NoError(t, err)
	assert.Equal(t, "2026-10-17", got.Format(time.DateOnly), "an explicit date is kept as typed")

	got, err = parseTripDate(" 2026-01-02 ", now)
	require.NoError(t, err)
	assert.Equal(t, "2026-01-02", got.Format(time.DateOnly))

	_, err = parseTripDate("2026-13-01", now)
	assert.Error(t, err)
}

func TestPrintTokenExpiry(t *testing.T) {
	now := time.Date(2026, 10, 16, 9, 0, 0, 0, time.UTC)
	sign := func(claims jwt.MapClaims) string {
		tok, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("k"))
		require.NoError(t, err)
		return tok
	}

	tests := []struct {
		name string
		tok  string
		want string
	}{
		{name: "opaque", tok: "abc", want: ""},
		{name: "no exp", tok: sign(jwt.MapClaims{"sub": "1"}), want: ""},
		{name: "expired", tok: sign(jwt.MapClaims{"exp": now.Add(-time.Hour).Unix()}), want: "(expired)"},
		{name: "valid", tok: sign(jwt.MapClaims{"exp": now.Add(90 * time.Minute).Unix()}), want: "(in 1h30m0s)"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			printTokenExpiry(&buf, tt.tok, now)
			if tt.want == "" {
				assert.Empty(t, buf.String())
				return
			}
			assert.Contains(t, buf.String(), tt.want)
		})
	}
}
