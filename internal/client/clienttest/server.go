// Package clienttest provides an in-memory dumpster service backend for tests.
package clienttest

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sort"
	"strconv"
	"strings"
	"sync"

	"binops/internal/model"
)

// Server is a fake backend implementing every endpoint the client uses.
type Server struct {
	*httptest.Server

	mu         sync.Mutex
	users      map[string]string // email -> password
	tokens     map[string]string // token -> email
	dumpsters  map[int64]model.Dumpster
	nextID     int64
	plants     map[string]model.RecyclingPlant
	capacities map[string]int
	usage      map[int64][]model.UsageRecord
	failures   map[string]int // "METHOD /path-prefix" -> status
	requests   []Request
	tokenSeq   int
}

// Request is a recorded inbound call.
type Request struct {
	Method    string
	Path      string
	Query     string
	Token     string
	RequestID string
	Body      string
}

// NewServer starts a fake backend. Close it with t.Cleanup(s.Close).
func NewServer() *Server {
	s := &Server{
		users:      make(map[string]string),
		tokens:     make(map[string]string),
		dumpsters:  make(map[int64]model.Dumpster),
		nextID:     1,
		plants:     make(map[string]model.RecyclingPlant),
		capacities: make(map[string]int),
		usage:      make(map[int64][]model.UsageRecord),
		failures:   make(map[string]int),
	}

	mux := http.NewServeMux()
	mux.HandleFunc("POST /auth/login", s.handleLogin)
	mux.HandleFunc("DELETE /auth/logout", s.handleLogout)
	mux.HandleFunc("GET /dumpsters", s.authed(s.handleListDumpsters))
	mux.HandleFunc("POST /dumpsters", s.authed(s.handleCreateDumpster))
	mux.HandleFunc("PUT /dumpsters/{id}/dump_info", s.authed(s.handleUpdateFill))
	mux.HandleFunc("GET /dumpsters/{id}/usage", s.authed(s.handleUsage))
	mux.HandleFunc("GET /dumpsters/status/postal_code", s.authed(s.handleByPostalCode))
	mux.HandleFunc("GET /recyclingPlants", s.authed(s.handleListPlants))
	mux.HandleFunc("GET /recyclingPlants/{name}/capacity", s.authed(s.handleCapacity))
	mux.HandleFunc("POST /recyclingPlants/assignDumpster", s.authed(s.handleAssign))

	s.Server = httptest.NewServer(s.record(mux))
	return s
}

// AddUser registers credentials accepted by /auth/login.
func (s *Server) AddUser(email, password string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.users[email] = password
}

// IssueToken returns a valid token for email without going through login.
func (s *Server) IssueToken(email string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.issueLocked(email)
}

func (s *Server) issueLocked(email string) string {
	s.tokenSeq++
	tok := fmt.Sprintf("tok-%d", s.tokenSeq)
	s.tokens[tok] = email
	return tok
}

// AddDumpster stores d, assigning an id when it has none, and returns the id.
func (s *Server) AddDumpster(d model.Dumpster) int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.addDumpsterLocked(d)
}

func (s *Server) addDumpsterLocked(d model.Dumpster) int64 {
	var id int64
	if d.ID != nil {
		id = *d.ID
	} else {
		id = s.nextID
	}
	if id >= s.nextID {
		s.nextID = id + 1
	}
	d.ID = &id
	d.FillLevel = levelFor(d)
	s.dumpsters[id] = d
	return id
}

// Dumpster returns the stored dumpster with id.
func (s *Server) Dumpster(id int64) (model.Dumpster, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	d, ok := s.dumpsters[id]
	return d, ok
}

// AddPlant stores a plant with the capacity reported for any date.
func (s *Server) AddPlant(p model.RecyclingPlant, capacity int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.plants[p.Name] = p
	s.capacities[p.Name] = capacity
}

// AddUsage appends usage records.
func (s *Server) AddUsage(recs ...model.UsageRecord) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, r := range recs {
		s.usage[r.DumpsterID] = append(s.usage[r.DumpsterID], r)
	}
}

// Fail makes every request whose method matches and whose path starts with
// prefix answer with status. A status of 0 removes the rule.
func (s *Server) Fail(method, prefix string, status int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := method + " " + prefix
	if status == 0 {
		delete(s.failures, key)
		return
	}
	s.failures[key] = status
}

// Requests returns a copy of the recorded requests.
func (s *Server) Requests() []Request {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Request, len(s.requests))
	copy(out, s.requests)
	return out
}

// LastRequest returns the most recent request.
func (s *Server) LastRequest() Request {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.requests) == 0 {
		return Request{}
	}
	return s.requests[len(s.requests)-1]
}

func (s *Server) record(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body []byte
		if r.Body != nil {
			body, _ = readAll(r)
		}
		s.mu.Lock()
		s.requests = append(s.requests, Request{
			Method:    r.Method,
			Path:      r.URL.Path,
			Query:     r.URL.RawQuery,
			Token:     r.Header.Get("Token"),
			RequestID: r.Header.Get("X-Request-ID"),
			Body:      string(body),
		})
		status := 0
		for key, code := range s.failures {
			method, prefix, _ := strings.Cut(key, " ")
			if method == r.Method && strings.HasPrefix(r.URL.Path, prefix) {
				status = code
				break
			}
		}
		s.mu.Unlock()

		if status != 0 {
			w.WriteHeader(status)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) authed(h http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		_, ok := s.tokens[r.Header.Get("Token")]
		s.mu.Unlock()
		if !ok {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		h(w, r)
	}
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var creds model.Credentials
	if err := decodeBody(r, &creds); err != nil {
		w.WriteHeader(http.StatusBadRequest)
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if pw, ok := s.users[creds.Email]; !ok || pw != creds.Password {
		w.WriteHeader(http.StatusUnauthorized)
		return
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(s.issueLocked(creds.Email)))
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	tok := r.Header.Get("Token")
	if _, ok := s.tokens[tok]; !ok {
		w.WriteHeader(http.StatusUnauthorized)
		return
	}
	delete(s.tokens, tok)
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleListDumpsters(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	out := s.sortedDumpstersLocked(func(model.Dumpster) bool { return true })
	s.mu.Unlock()
	writeList(w, out)
}

func (s *Server) handleByPostalCode(w http.ResponseWriter, r *http.Request) {
	postal, err := strconv.Atoi(r.URL.Query().Get("postal_code"))
	if err != nil {
		w.WriteHeader(http.StatusBadRequest)
		return
	}
	if _, err := model.ParseDate(r.URL.Query().Get("date")); err != nil {
		w.WriteHeader(http.StatusBadRequest)
		return
	}
	s.mu.Lock()
	out := s.sortedDumpstersLocked(func(d model.Dumpster) bool { return d.PostalCode == postal })
	s.mu.Unlock()
	writeList(w, out)
}

func (s *Server) sortedDumpstersLocked(keep func(model.Dumpster) bool) []model.Dumpster {
	out := make([]model.Dumpster, 0, len(s.dumpsters))
	for _, d := range s.dumpsters {
		if keep(d) {
			out = append(out, d)
		}
	}
	sort.Slice(out, func(i, j int) bool { return *out[i].ID < *out[j].ID })
	return out
}

func (s *Server) handleCreateDumpster(w http.ResponseWriter, r *http.Request) {
	var d model.Dumpster
	if err := decodeBody(r, &d); err != nil {
		w.WriteHeader(http.StatusBadRequest)
		return
	}
	d.ID = nil
	s.mu.Lock()
	id := s.addDumpsterLocked(d)
	created := s.dumpsters[id]
	s.mu.Unlock()
	writeJSON(w, http.StatusOK, created)
}

func (s *Server) handleUpdateFill(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		w.WriteHeader(http.StatusBadRequest)
		return
	}
	var fill int
	if err := decodeBody(r, &fill); err != nil {
		w.WriteHeader(http.StatusBadRequest)
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	d, ok := s.dumpsters[id]
	if !ok {
		w.WriteHeader(http.StatusNotFound)
		return
	}
	d.CurrentFill = fill
	d.FillLevel = levelFor(d)
	s.dumpsters[id] = d
	w.WriteHeader(http.StatusOK)
}

func (s *Server) handleUsage(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		w.WriteHeader(http.StatusBadRequest)
		return
	}
	start, err1 := model.ParseDate(r.URL.Query().Get("start_date"))
	end, err2 := model.ParseDate(r.URL.Query().Get("end_date"))
	if err1 != nil || err2 != nil {
		w.WriteHeader(http.StatusBadRequest)
		return
	}
	s.mu.Lock()
	var out []model.UsageRecord
	for _, rec := range s.usage[id] {
		if !rec.Date.Before(start) && !rec.Date.After(end) {
			out = append(out, rec)
		}
	}
	s.mu.Unlock()
	writeList(w, out)
}

func (s *Server) handleListPlants(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	out := make([]model.RecyclingPlant, 0, len(s.plants))
	for _, p := range s.plants {
		out = append(out, p)
	}
	s.mu.Unlock()
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	writeList(w, out)
}

func (s *Server) handleCapacity(w http.ResponseWriter, r *http.Request) {
	if _, err := model.ParseDate(r.URL.Query().Get("date")); err != nil {
		w.WriteHeader(http.StatusBadRequest)
		return
	}
	s.mu.Lock()
	c, ok := s.capacities[r.PathValue("name")]
	s.mu.Unlock()
	if !ok {
		w.WriteHeader(http.StatusNotFound)
		return
	}
	writeJSON(w, http.StatusOK, c)
}

func (s *Server) handleAssign(w http.ResponseWriter, r *http.Request) {
	var req model.AssignRequest
	if err := decodeBody(r, &req); err != nil || len(req.DumpsterIDs) == 0 {
		w.WriteHeader(http.StatusBadRequest)
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	plant, ok := s.plants[req.PlantName]
	if !ok {
		http.Error(w, "unknown plant", http.StatusBadRequest)
		return
	}
	for _, id := range req.DumpsterIDs {
		if _, ok := s.dumpsters[id]; !ok {
			http.Error(w, fmt.Sprintf("unknown dumpster %d", id), http.StatusBadRequest)
			return
		}
	}
	for _, id := range req.DumpsterIDs {
		d := s.dumpsters[id]
		p := model.RecyclingPlant{Name: plant.Name, Location: plant.Location, PostalCode: plant.PostalCode, MaxCapacity: plant.MaxCapacity}
		d.AssignedPlant = &p
		s.dumpsters[id] = d
	}
	w.WriteHeader(http.StatusOK)
}

// levelFor mirrors the backend's thresholds: below 50% green, below 80%
// orange, otherwise red.
func levelFor(d model.Dumpster) model.FillLevel {
	pct := d.FillPercentage()
	switch {
	case pct < 50:
		return model.FillGreen
	case pct < 80:
		return model.FillOrange
	default:
		return model.FillRed
	}
}

func writeList[T any](w http.ResponseWriter, items []T) {
	if len(items) == 0 {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	writeJSON(w, http.StatusOK, items)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
