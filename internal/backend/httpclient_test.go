// Copyright (c) 2026 SmartEco
// Licensed under the MIT License. See LICENSE file in the project root for details.

package backend_test

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"smarteco/cli/internal/apitest"
	"smarteco/cli/internal/apperr"
	"smarteco/cli/internal/backend"
	"smarteco/cli/internal/config"
)

func newClient(srv *apitest.Server, opts ...backend.Option) *backend.HTTP {
	return backend.New(srv.URL, config.DefaultEndpoints(), opts...)
}

func TestLogin_Success(t *testing.T) {
	srv := apitest.New(t)
	srv.AddUser("a@x.io", "alice", "pw")
	srv.FixedToken = "abc"

	tok, err := newClient(srv).Login(context.Background(), "a@x.io", "pw")
	require.NoError(t, err)
	assert.Equal(t, "abc", tok)

	reqs := srv.RequestsTo("/auth/login")
	require.Len(t, reqs, 1)
	assert.JSONEq(t, `{"email":"a@x.io","password":"pw"}`, reqs[0].Body)
	assert.Empty(t, reqs[0].Authorization, "login is unauthenticated")
	_, err = uuid.Parse(reqs[0].RequestID)
	assert.NoError(t, err, "request id is a uuid")
}

func TestLogin_ServerMessage(t *testing.T) {
	srv := apitest.New(t)
	var fired atomic.Bool
	c := newClient(srv, backend.WithOnUnauthorized(func(context.Context) { fired.Store(true) }))

	_, err := c.Login(context.Background(), "nobody@x.io", "pw")

	require.Error(t, err)
	assert.Equal(t, "Invalid credentials", apperr.UserMessage(err))
	assert.True(t, apperr.Is(err, apperr.KindUnauthorized))
	assert.False(t, fired.Load(), "a failed login is not an expired session")
}

func TestLogin_Fallbacks(t *testing.T) {
	t.Run("no error field", func(t *testing.T) {
		srv := apitest.New(t)
		srv.Fail("/auth/login", http.StatusInternalServerError, "")
		_, err := newClient(srv).Login(context.Background(), "a@x.io", "pw")
		assert.Equal(t, backend.LoginFailedMessage, apperr.UserMessage(err))
		assert.True(t, apperr.Is(err, apperr.KindServer))
	})
	t.Run("missing token", func(t *testing.T) {
		srv := apitest.New(t)
		srv.AddUser("a@x.io", "alice", "pw")
		srv.OmitToken = true
		_, err := newClient(srv).Login(context.Background(), "a@x.io", "pw")
		assert.Equal(t, backend.NoTokenMessage, apperr.UserMessage(err))
		assert.True(t, apperr.Is(err, apperr.KindDecode))
	})
	t.Run("token in header", func(t *testing.T) {
		ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.Header().Set("Authorization", "Bearer hdr-token")
			w.WriteHeader(http.StatusOK)
		}))
		defer ts.Close()
		tok, err := backend.New(ts.URL, config.DefaultEndpoints()).Login(context.Background(), "a", "b")
		require.NoError(t, err)
		assert.Equal(t, "hdr-token", tok)
	})
	t.Run("network", func(t *testing.T) {
		_, err := backend.New("http://127.0.0.1:1", config.DefaultEndpoints()).Login(context.Background(), "a", "b")
		assert.True(t, apperr.Is(err, apperr.KindNetwork))
	})
}

func TestLogin_SharesRequestHeaders(t *testing.T) {
	var got http.Header
	var body string
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = r.Header.Clone()
		b, _ := io.ReadAll(r.Body)
		body = string(b)
		w.Header().Set("Authorization", "Bearer hdr-token")
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{"token":"body-token"}`)
	}))
	defer ts.Close()

	c := backend.New(ts.URL, config.DefaultEndpoints(),
		backend.WithUserAgent("smarteco-cli/test"),
		backend.WithTokenSource(backend.StaticToken("stored")))
	tok, err := c.Login(context.Background(), "a@x.io", "pw")

	require.NoError(t, err)
	assert.Equal(t, "hdr-token", tok, "the header token wins over the body")
	assert.JSONEq(t, `{"email":"a@x.io","password":"pw"}`, body)
	assert.Equal(t, "smarteco-cli/test", got.Get("User-Agent"))
	assert.Equal(t, "application/json", got.Get("Content-Type"))
	assert.Empty(t, got.Get("Authorization"), "login never sends the stored token")
	_, err = uuid.Parse(got.Get("X-Request-ID"))
	assert.NoError(t, err)
}

func TestLogin_MalformedBody(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = io.WriteString(w, "<html>ok</html>")
	}))
	defer ts.Close()

	_, err := backend.New(ts.URL, config.DefaultEndpoints()).Login(context.Background(), "a", "b")

	assert.True(t, apperr.Is(err, apperr.KindDecode))
	assert.Equal(t, backend.NoTokenMessage, apperr.UserMessage(err))
}

func TestRegister(t *testing.T) {
	srv := apitest.New(t)
	c := newClient(srv)
	ctx := context.Background()

	require.NoError(t, c.Register(ctx, "a@x.io", "alice", "pw"))
	assert.JSONEq(t, `{"email":"a@x.io","username":"alice","password":"pw"}`, srv.RequestsTo("/register")[0].Body)

	err := c.Register(ctx, "a@x.io", "alice", "pw")
	assert.Equal(t, "User already exists", apperr.UserMessage(err))

	srv.Fail("/register", http.StatusBadRequest, "")
	err = c.Register(ctx, "b@x.io", "bob", "pw")
	assert.Equal(t, backend.RegisterFailedMessage, apperr.UserMessage(err))
}

func TestAuthenticated_NoTokenSkipsNetwork(t *testing.T) {
	srv := apitest.New(t)
	c := newClient(srv)

	_, err := c.Trips(context.Background())

	assert.ErrorIs(t, err, apperr.ErrNoToken)
	assert.Empty(t, srv.Requests())
}

func TestAuthenticated_ReadsTokenPerRequest(t *testing.T) {
	srv := apitest.New(t)
	srv.AddUser("a@x.io", "alice", "pw")
	first, second := srv.IssueToken("a@x.io"), srv.IssueToken("a@x.io")

	current := first
	c := newClient(srv, backend.WithTokenSource(backend.TokenSourceFunc(func(context.Context) (string, error) {
		return current, nil
	})))
	ctx := context.Background()

	_, err := c.Modes(ctx)
	require.NoError(t, err)
	current = second
	_, err = c.Modes(ctx)
	require.NoError(t, err)

	reqs := srv.RequestsTo("/transportation")
	require.Len(t, reqs, 2)
	assert.Equal(t, "Bearer "+first, reqs[0].Authorization)
	assert.Equal(t, "Bearer "+second, reqs[1].Authorization)
}

func TestAuthenticated_TokenSourceError(t *testing.T) {
	srv := apitest.New(t)
	boom := apperr.New(apperr.KindStorage, "keyring locked")
	c := newClient(srv, backend.WithTokenSource(backend.TokenSourceFunc(func(context.Context) (string, error) {
		return "", boom
	})))

	_, err := c.Trips(context.Background())
	assert.ErrorIs(t, err, boom)
	assert.Empty(t, srv.Requests())
}

func TestAuthenticated_UnauthorizedFiresHook(t *testing.T) {
	srv := apitest.New(t)
	var fired atomic.Int32
	c := newClient(srv,
		backend.WithTokenSource(backend.StaticToken("stale")),
		backend.WithOnUnauthorized(func(context.Context) { fired.Add(1) }),
	)

	_, err := c.Trips(context.Background())

	assert.True(t, apperr.Is(err, apperr.KindUnauthorized))
	assert.Equal(t, "Invalid or expired token", apperr.UserMessage(err))
	assert.EqualValues(t, 1, fired.Load())
}

func TestTripsAndImpact(t *testing.T) {
	srv := apitest.New(t)
	srv.AddUser("a@x.io", "alice", "pw")
	srv.AddTrip("a@x.io", apitest.Trip{
		StartAddress: apitest.Ptr("Paris"), EndAddress: apitest.Ptr("Lyon"),
		DistanceKm: apitest.Ptr(465.0), ModeID: 3, CarbonImpactKg: apitest.Ptr(6.51), TripDate: "2026-03-01",
	})
	srv.AddTrip("a@x.io", apitest.Trip{ModeID: 7, TripDate: "2026-03-02"})
	c := newClient(srv, backend.WithTokenSource(backend.StaticToken(srv.IssueToken("a@x.io"))))
	ctx := context.Background()

	trips, err := c.Trips(ctx)
	require.NoError(t, err)
	require.Len(t, trips, 2)
	assert.Equal(t, "Paris - Lyon", trips[0].Title())
	assert.InDelta(t, 465.0, trips[0].Distance(), 1e-9)
	assert.Equal(t, "Bike trip", trips[1].Title())
	assert.Nil(t, trips[1].DistanceKm)
	assert.Zero(t, trips[1].Impact())

	total, err := c.TripImpact(ctx)
	require.NoError(t, err)
	assert.InDelta(t, 6.51, total, 1e-9)
}

func TestCreateTrip_Body(t *testing.T) {
	date := time.Date(2026, 5, 17, 22, 30, 0, 0, time.UTC)
	tests := []struct {
		name string
		trip backend.NewTrip
		want map[string]any
	}{
		{
			name: "car sends brand and model",
			trip: backend.NewTrip{StartAddress: "Paris", EndAddress: "Lille", CarBrand: "Renault", CarModel: "Zoe", DistanceKm: 225, ModeID: 5, Date: date},
			want: map[string]any{
				"start_address": "Paris", "end_address": "Lille", "car_brand": "Renault", "car_model": "Zoe",
				"distance_km": 225.0, "mode_id": 5.0, "trip_date": "2026-05-17",
			},
		},
		{
			name: "other modes null car details and empty addresses",
			trip: backend.NewTrip{CarBrand: "ignored", DistanceKm: 0, ModeID: 3, Date: date},
			want: map[string]any{
				"start_address": nil, "end_address": nil, "car_brand": nil, "car_model": nil,
				"distance_km": 0.0, "mode_id": 3.0, "trip_date": "2026-05-17",
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := apitest.New(t)
			srv.AddUser("a@x.io", "alice", "pw")
			c := newClient(srv, backend.WithTokenSource(backend.StaticToken(srv.IssueToken("a@x.io"))))

			require.NoError(t, c.CreateTrip(context.Background(), tt.trip))

			reqs := srv.RequestsTo("/trips")
			require.Len(t, reqs, 1)
			assert.Equal(t, http.MethodPost, reqs[0].Method)
			var got map[string]any
			require.NoError(t, json.Unmarshal([]byte(reqs[0].Body), &got))
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("request body mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestCreateTrip_Invalid(t *testing.T) {
	srv := apitest.New(t)
	c := newClient(srv, backend.WithTokenSource(backend.StaticToken("x")))

	err := c.CreateTrip(context.Background(), backend.NewTrip{ModeID: 0, Date: time.Now()})
	assert.True(t, apperr.Is(err, apperr.KindInvalid))
	assert.Empty(t, srv.Requests())
}

func TestAggregationAndGraph(t *testing.T) {
	srv := apitest.New(t)
	srv.AddUser("a@x.io", "alice", "pw")
	srv.AddTrip("a@x.io", apitest.Trip{ModeID: 4, DistanceKm: apitest.Ptr(10.0), CarbonImpactKg: apitest.Ptr(1.2), TripDate: "2026-01-01"})
	srv.AddTrip("a@x.io", apitest.Trip{ModeID: 4, DistanceKm: apitest.Ptr(5.0), CarbonImpactKg: apitest.Ptr(0.6), TripDate: "2026-01-02"})
	srv.SetGraph("day", [][2]float64{{1, 1.2}, {2, 1.8}})
	c := newClient(srv, backend.WithTokenSource(backend.StaticToken(srv.IssueToken("a@x.io"))))
	ctx := context.Background()

	aggs, err := c.Aggregation(ctx)
	require.NoError(t, err)
	require.Len(t, aggs, 1)
	assert.Equal(t, 4, aggs[0].ModeID)
	assert.Equal(t, 2, aggs[0].TotalTrips)
	assert.InDelta(t, 1.8, aggs[0].TotalImpact, 1e-9)

	points, err := c.ImpactGraph(ctx, backend.ViewDay)
	require.NoError(t, err)
	assert.Equal(t, []backend.GraphPoint{{X: 1, Y: 1.2}, {X: 2, Y: 1.8}}, points)
	assert.Len(t, srv.RequestsTo("/trips/impactGraphDay"), 1)

	points, err = c.ImpactGraph(ctx, backend.ViewMonth)
	require.NoError(t, err)
	assert.Empty(t, points)
}

func TestUserInfo(t *testing.T) {
	srv := apitest.New(t)
	srv.AddUser("a@x.io", "alice", "pw")
	c := newClient(srv, backend.WithTokenSource(backend.StaticToken(srv.IssueToken("a@x.io"))))

	u, err := c.UserInfo(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "alice", u.Username)
	assert.Equal(t, "a@x.io", u.Email)
}

func TestModes(t *testing.T) {
	srv := apitest.New(t)
	srv.AddUser("a@x.io", "alice", "pw")
	c := newClient(srv, backend.WithTokenSource(backend.StaticToken(srv.IssueToken("a@x.io"))))

	modes, err := c.Modes(context.Background())
	require.NoError(t, err)
	require.NotEmpty(t, modes)
	assert.Equal(t, backend.TransportMode{ModeID: 1, ModeName: "Avion"}, modes[0])

	srv.Fail("/transportation", http.StatusInternalServerError, "")
	_, err = c.Modes(context.Background())
	assert.True(t, apperr.Is(err, apperr.KindServer))
}

func TestGatewayErrorKeepsStatusText(t *testing.T) {
	srv := apitest.New(t)
	srv.FailRaw("/trips", http.StatusBadGateway, "<html>bad gateway</html>")
	c := newClient(srv, backend.WithTokenSource(backend.StaticToken("x")))

	_, err := c.Trips(context.Background())
	e := apperr.As(err)
	require.NotNil(t, e)
	assert.Equal(t, apperr.KindServer, e.Kind)
	assert.Equal(t, http.StatusBadGateway, e.Status)
	assert.Equal(t, "Failed to load trips", e.Message)
	assert.True(t, errors.Unwrap(err) != nil)
}

func TestContextCancel(t *testing.T) {
	srv := apitest.New(t)
	srv.Delay("/transportation", time.Second)
	c := newClient(srv, backend.WithTokenSource(backend.StaticToken("x")))
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := c.Modes(ctx)
	assert.True(t, apperr.Is(err, apperr.KindNetwork))
}
