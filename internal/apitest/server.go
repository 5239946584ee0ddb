// Copyright (c) 2026 SmartEco
// Licensed under the MIT License. See LICENSE file in the project root for details.

// Package apitest runs an in-process fake of the SmartEco REST API for tests.
// It keeps users, tokens and trips in memory, records every request, and can
// be told to fail or delay specific routes.
package apitest

import (
	"encoding/json"
	"io"
	"math"
	"net/http"
	"net/http/httptest"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
)

// Recorded is one request the fake received.
type Recorded struct {
	Method        string
	Path          string
	Authorization string
	RequestID     string
	Body          string
}

// Trip is the wire form of a stored trip.
type Trip struct {
	TripID         int64    `json:"trip_id"`
	UserID         int64    `json:"user_id"`
	StartAddress   *string  `json:"start_address"`
	EndAddress     *string  `json:"end_address"`
	CarBrand       *string  `json:"car_brand,omitempty"`
	CarModel       *string  `json:"car_model,omitempty"`
	DistanceKm     *float64 `json:"distance_km"`
	ModeID         int      `json:"mode_id"`
	CarbonImpactKg *float64 `json:"carbon_impact_kg"`
	TripDate       string   `json:"trip_date"`
}

type user struct {
	id       int64
	email    string
	username string
	password string
}

type failure struct {
	status int
	msg    string
	raw    string
}

// Server is the fake API. Create it with New.
type Server struct {
	*httptest.Server

	mu       sync.Mutex
	users    map[string]*user
	tokens   map[string]string
	trips    map[string][]Trip
	modes    []map[string]any
	points   map[string][]map[string]float64
	failures map[string]failure
	delays   map[string]time.Duration
	requests []Recorded
	nextID   int64

	// FixedToken, when set, is returned by every successful login.
	FixedToken string
	// OmitToken makes login answer 200 without a token.
	OmitToken bool
}

// New starts a fake API and closes it when the test ends.
func New(t testing.TB) *Server {
	t.Helper()
	s := &Server{
		users:    map[string]*user{},
		tokens:   map[string]string{},
		trips:    map[string][]Trip{},
		points:   map[string][]map[string]float64{},
		failures: map[string]failure{},
		delays:   map[string]time.Duration{},
		nextID:   1,
		modes: []map[string]any{
			{"mode_id": 1, "mode_name": "Avion"},
			{"mode_id": 3, "mode_name": "Train"},
			{"mode_id": 4, "mode_name": "Voiture"},
			{"mode_id": 5, "mode_name": "Voiture électrique"},
			{"mode_id": 6, "mode_name": "Bus"},
		},
	}
	s.Server = httptest.NewServer(s.routes())
	t.Cleanup(s.Close)
	return s
}

func (s *Server) routes() http.Handler {
	r := chi.NewRouter()
	r.Use(chimw.Recoverer)
	r.Use(s.record)
	r.Use(s.inject)

	r.Post("/auth/login", s.login)
	r.Post("/register", s.register)

	r.Group(func(r chi.Router) {
		r.Use(s.authenticate)
		r.Get("/user/info", s.userInfo)
		r.Get("/transportation", s.listModes)
		r.Get("/trips", s.listTrips)
		r.Post("/trips", s.createTrip)
		r.Get("/trips/impact", s.impact)
		r.Get("/trips/aggregation", s.aggregation)
		r.Get("/trips/impactGraphMonth", s.graph("month"))
		r.Get("/trips/impactGraphDay", s.graph("day"))
	})
	return r
}

// AddUser registers an account directly.
func (s *Server) AddUser(email, username, password string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.addUserLocked(email, username, password)
}

func (s *Server) addUserLocked(email, username, password string) {
	s.users[email] = &user{id: int64(len(s.users) + 1), email: email, username: username, password: password}
}

// IssueToken returns a valid token for email without going through login.
func (s *Server) IssueToken(email string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	tok := "tok-" + uuid.NewString()
	s.tokens[tok] = email
	return tok
}

// RevokeTokens invalidates every issued token, so the next call gets a 401.
func (s *Server) RevokeTokens() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tokens = map[string]string{}
}

// AddTrip stores a trip for email.
func (s *Server) AddTrip(email string, t Trip) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t.TripID = s.nextID
	s.nextID++
	if u, ok := s.users[email]; ok {
		t.UserID = u.id
	}
	s.trips[email] = append(s.trips[email], t)
}

// Trips returns the trips stored for email.
func (s *Server) Trips(email string) []Trip {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Trip(nil), s.trips[email]...)
}

// SetGraph sets the points returned for view "month" or "day".
func (s *Server) SetGraph(view string, points [][2]float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ps := make([]map[string]float64, 0, len(points))
	for _, p := range points {
		ps = append(ps, map[string]float64{"x": p[0], "y": p[1]})
	}
	s.points[view] = ps
}

// Fail makes every request to path answer status with {"error": msg}.
// An empty msg sends an empty JSON object.
func (s *Server) Fail(path string, status int, msg string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failures[path] = failure{status: status, msg: msg}
}

// FailRaw makes every request to path answer status with a raw body.
func (s *Server) FailRaw(path string, status int, body string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failures[path] = failure{status: status, raw: body}
}

// Delay holds every response on path for d.
func (s *Server) Delay(path string, d time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.delays[path] = d
}

// Requests returns what the fake received so far.
func (s *Server) Requests() []Recorded {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Recorded(nil), s.requests...)
}

// RequestsTo returns the recorded requests for one path.
func (s *Server) RequestsTo(path string) []Recorded {
	var out []Recorded
	for _, r := range s.Requests() {
		if r.Path == path {
			out = append(out, r)
		}
	}
	return out
}

func (s *Server) record(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		r.Body = io.NopCloser(strings.NewReader(string(body)))
		s.mu.Lock()
		s.requests = append(s.requests, Recorded{
			Method:        r.Method,
			Path:          r.URL.Path,
			Authorization: r.Header.Get("Authorization"),
			RequestID:     r.Header.Get("X-Request-ID"),
			Body:          string(body),
		})
		s.mu.Unlock()
		next.ServeHTTP(w, r)
	})
}

func (s *Server) inject(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		d := s.delays[r.URL.Path]
		f, failing := s.failures[r.URL.Path]
		s.mu.Unlock()

		if d > 0 {
			select {
			case <-time.After(d):
			case <-r.Context().Done():
				return
			}
		}
		if failing {
			if f.raw != "" {
				w.WriteHeader(f.status)
				_, _ = io.WriteString(w, f.raw)
				return
			}
			if f.msg == "" {
				writeJSON(w, f.status, map[string]any{})
				return
			}
			writeError(w, f.status, f.msg)
			return
		}
		next.ServeHTTP(w, r)
	})
}

type ctxKey struct{}

func (s *Server) authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h := r.Header.Get("Authorization")
		tok, ok := strings.CutPrefix(h, "Bearer ")
		s.mu.Lock()
		email, valid := s.tokens[tok]
		s.mu.Unlock()
		if !ok || !valid {
			writeError(w, http.StatusUnauthorized, "Invalid or expired token")
			return
		}
		next.ServeHTTP(w, r.WithContext(withEmail(r.Context(), email)))
	})
}

func (s *Server) login(w http.ResponseWriter, r *http.Request) {
	var in struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[in.Email]
	if !ok || u.password != in.Password {
		writeError(w, http.StatusUnauthorized, "Invalid credentials")
		return
	}
	if s.OmitToken {
		writeJSON(w, http.StatusOK, map[string]any{"message": "ok"})
		return
	}
	tok := s.FixedToken
	if tok == "" {
		tok = "tok-" + uuid.NewString()
	}
	s.tokens[tok] = in.Email
	writeJSON(w, http.StatusOK, map[string]string{"token": tok})
}

func (s *Server) register(w http.ResponseWriter, r *http.Request) {
	var in struct {
		Email    string `json:"email"`
		Username string `json:"username"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil || in.Email == "" || in.Password == "" {
		writeError(w, http.StatusBadRequest, "Email and password are required")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.users[in.Email]; exists {
		writeError(w, http.StatusConflict, "User already exists")
		return
	}
	s.addUserLocked(in.Email, in.Username, in.Password)
	writeJSON(w, http.StatusCreated, map[string]string{"message": "User registered"})
}

func (s *Server) userInfo(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	u := s.users[emailFrom(r.Context())]
	s.mu.Unlock()
	if u == nil {
		writeError(w, http.StatusNotFound, "User not found")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"user": map[string]any{"user_id": u.id, "username": u.username, "email": u.email},
	})
}

func (s *Server) listModes(w http.ResponseWriter, _ *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	writeJSON(w, http.StatusOK, map[string]any{"modes": s.modes})
}

func (s *Server) listTrips(w http.ResponseWriter, r *http.Request) {
	trips := s.Trips(emailFrom(r.Context()))
	if trips == nil {
		trips = []Trip{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"trips": trips})
}

// emissionFactors are kg CO2 per km for the modes the fake knows about.
var emissionFactors = map[int]float64{1: 0.9, 3: 0.014, 4: 0.12, 5: 0.02, 6: 0.068}

func (s *Server) createTrip(w http.ResponseWriter, r *http.Request) {
	var in Trip
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if in.ModeID == 0 || in.TripDate == "" {
		writeError(w, http.StatusBadRequest, "mode_id and trip_date are required")
		return
	}
	if in.DistanceKm != nil {
		impact := math.Round(*in.DistanceKm*emissionFactors[in.ModeID]*1000) / 1000
		in.CarbonImpactKg = &impact
	}
	s.AddTrip(emailFrom(r.Context()), in)
	writeJSON(w, http.StatusCreated, map[string]string{"message": "Trip created"})
}

func (s *Server) impact(w http.ResponseWriter, r *http.Request) {
	var total float64
	for _, t := range s.Trips(emailFrom(r.Context())) {
		if t.CarbonImpactKg != nil {
			total += *t.CarbonImpactKg
		}
	}
	writeJSON(w, http.StatusOK, map[string]float64{"total_impact": total})
}

func (s *Server) aggregation(w http.ResponseWriter, r *http.Request) {
	type agg struct {
		ModeID        int     `json:"mode_id"`
		TotalImpact   float64 `json:"total_impact"`
		TotalDistance float64 `json:"total_distance"`
		TotalTrips    int     `json:"total_trips"`
	}
	byMode := map[int]*agg{}
	for _, t := range s.Trips(emailFrom(r.Context())) {
		a, ok := byMode[t.ModeID]
		if !ok {
			a = &agg{ModeID: t.ModeID}
			byMode[t.ModeID] = a
		}
		a.TotalTrips++
		if t.CarbonImpactKg != nil {
			a.TotalImpact += *t.CarbonImpactKg
		}
		if t.DistanceKm != nil {
			a.TotalDistance += *t.DistanceKm
		}
	}
	out := make([]agg, 0, len(byMode))
	for _, a := range byMode {
		out = append(out, *a)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ModeID < out[j].ModeID })
	writeJSON(w, http.StatusOK, map[string]any{"trips": out})
}

func (s *Server) graph(view string) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		s.mu.Lock()
		ps := s.points[view]
		s.mu.Unlock()
		if ps == nil {
			ps = []map[string]float64{}
		}
		writeJSON(w, http.StatusOK, map[string]any{"points": ps})
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
