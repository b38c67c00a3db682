// Package couchtest provides an in-memory CouchDB for tests. It speaks the
// subset of the HTTP API the client uses: cookie sessions, server
// endpoints, database create/delete and documents with revisions.
package couchtest

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sort"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
)

// Version reported by the welcome message.
const Version = "3.3.3"

const sessionCookie = "AuthSession"

// Server is a fake CouchDB instance listening on a local port.
type Server struct {
	*httptest.Server

	mu       sync.Mutex
	users    map[string]string
	sessions map[string]string
	dbs      map[string]*database
	tasks    []map[string]interface{}
	cluster  map[string]interface{}
	requests []string
	uuid     string
}

// Option configures a Server.
type Option func(*Server)

// WithUser adds a user. As soon as one user exists, every endpoint except
// the welcome message and _session requires a session cookie.
func WithUser(name, password string) Option {
	return func(s *Server) {
		s.users[name] = password
	}
}

// WithTask adds an entry to _active_tasks.
func WithTask(task map[string]interface{}) Option {
	return func(s *Server) {
		s.tasks = append(s.tasks, task)
	}
}

// WithDatabase creates an empty database up front.
func WithDatabase(name string) Option {
	return func(s *Server) {
		s.dbs[name] = newDatabase()
	}
}

// New starts a fake CouchDB that is closed when the test ends.
func New(t testing.TB, opts ...Option) *Server {
	t.Helper()
	s := &Server{
		users:    make(map[string]string),
		sessions: make(map[string]string),
		dbs:      make(map[string]*database),
		cluster:  map[string]interface{}{"state": "cluster_disabled"},
		uuid:     uuid.NewString(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.Server = httptest.NewServer(s.router())
	t.Cleanup(s.Close)
	return s
}

func (s *Server) router() *mux.Router {
	r := mux.NewRouter()
	r.Use(s.recordMiddleware, s.authMiddleware)

	r.HandleFunc("/", s.handleWelcome).Methods(http.MethodGet)
	r.HandleFunc("/_session", s.handleLogin).Methods(http.MethodPost)
	r.HandleFunc("/_all_dbs", s.handleAllDbs).Methods(http.MethodGet)
	r.HandleFunc("/_dbs_info", s.handleDbsInfo).Methods(http.MethodPost)
	r.HandleFunc("/_active_tasks", s.handleActiveTasks).Methods(http.MethodGet)
	r.HandleFunc("/_cluster_setup", s.handleClusterSetup).Methods(http.MethodGet, http.MethodPost)

	r.HandleFunc("/{db}", s.handleCreateDb).Methods(http.MethodPut)
	r.HandleFunc("/{db}", s.handleDeleteDb).Methods(http.MethodDelete)
	r.HandleFunc("/{db}", s.handleDbInfo).Methods(http.MethodGet, http.MethodHead)
	r.HandleFunc("/{db}/_all_docs", s.handleAllDocs).Methods(http.MethodGet, http.MethodPost)
	r.HandleFunc("/{db}/{id}", s.handlePutDoc).Methods(http.MethodPut)
	r.HandleFunc("/{db}/{id}", s.handleGetDoc).Methods(http.MethodGet)

	r.MethodNotAllowedHandler = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", "Only GET,HEAD,POST,PUT,DELETE allowed")
	})
	r.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusNotFound, "not_found", "missing")
	})
	return r
}

// Requests returns every request received so far as "METHOD /path".
func (s *Server) Requests() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.requests...)
}

// Databases returns the names of all databases, sorted.
func (s *Server) Databases() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.dbNames()
}

// Document returns a stored document, or nil.
func (s *Server) Document(db, id string) map[string]interface{} {
	s.mu.Lock()
	defer s.mu.Unlock()
	d, ok := s.dbs[db]
	if !ok {
		return nil
	}
	return d.docs[id]
}

func (s *Server) dbNames() []string {
	names := make([]string, 0, len(s.dbs))
	for name := range s.dbs {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (s *Server) recordMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		s.requests = append(s.requests, r.Method+" "+r.URL.Path)
		s.mu.Unlock()
		next.ServeHTTP(w, r)
	})
}

func (s *Server) authMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/" || r.URL.Path == "/_session" || s.authorized(r) {
			next.ServeHTTP(w, r)
			return
		}
		writeError(w, http.StatusUnauthorized, "unauthorized", "You are not authorized to access this db.")
	})
}

func (s *Server) authorized(r *http.Request) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.users) == 0 {
		return true
	}
	c, err := r.Cookie(sessionCookie)
	if err != nil {
		return false
	}
	_, ok := s.sessions[c.Value]
	return ok
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var cred struct {
		Name     string `json:"name"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&cred); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", "Request body is not valid JSON.")
		return
	}

	s.mu.Lock()
	password, ok := s.users[cred.Name]
	if !ok || password != cred.Password {
		s.mu.Unlock()
		writeError(w, http.StatusUnauthorized, "unauthorized", "Name or password is incorrect.")
		return
	}
	token := uuid.NewString()
	s.sessions[token] = cred.Name
	s.mu.Unlock()

	http.SetCookie(w, &http.Cookie{Name: sessionCookie, Value: token, Path: "/", HttpOnly: true})
	writeJSON(w, http.StatusOK, map[string]interface{}{"ok": true, "name": cred.Name, "roles": []string{"_admin"}})
}

func (s *Server) handleWelcome(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"couchdb":  "Welcome",
		"version":  Version,
		"git_sha":  "40afbcfc7",
		"uuid":     s.uuid,
		"features": []string{"access-ready", "partitioned", "pluggable-storage-engines", "reshard", "scheduler"},
		"vendor":   map[string]string{"name": "The Apache Software Foundation"},
	})
}

func (s *Server) handleAllDbs(w http.ResponseWriter, _ *http.Request) {
	s.mu.Lock()
	names := s.dbNames()
	s.mu.Unlock()
	writeJSON(w, http.StatusOK, names)
}

func (s *Server) handleDbsInfo(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Keys []string `json:"keys"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Keys == nil {
		writeError(w, http.StatusBadRequest, "bad_request", "`keys` member must exist.")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	infos := make([]map[string]interface{}, 0, len(req.Keys))
	for _, name := range req.Keys {
		d, ok := s.dbs[name]
		if !ok {
			infos = append(infos, map[string]interface{}{"key": name, "error": "not_found"})
			continue
		}
		infos = append(infos, map[string]interface{}{"key": name, "info": d.info(name)})
	}
	writeJSON(w, http.StatusOK, infos)
}

func (s *Server) handleActiveTasks(w http.ResponseWriter, _ *http.Request) {
	s.mu.Lock()
	tasks := append([]map[string]interface{}{}, s.tasks...)
	s.mu.Unlock()
	writeJSON(w, http.StatusOK, tasks)
}

func (s *Server) handleClusterSetup(w http.ResponseWriter, r *http.Request) {
	if r.Method == http.MethodGet {
		s.mu.Lock()
		state := s.cluster["state"]
		s.mu.Unlock()
		writeJSON(w, http.StatusOK, map[string]interface{}{"state": state})
		return
	}

	var setup map[string]interface{}
	if err := json.NewDecoder(r.Body).Decode(&setup); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", "Request body is not valid JSON.")
		return
	}
	var state string
	switch setup["action"] {
	case "enable_single_node":
		state = "single_node_enabled"
	case "enable_cluster":
		state = "cluster_enabled"
	case "finish_cluster":
		state = "cluster_finished"
	default:
		writeError(w, http.StatusBadRequest, "bad_request", "Invalid Action")
		return
	}
	s.mu.Lock()
	s.cluster["state"] = state
	s.mu.Unlock()
	writeJSON(w, http.StatusCreated, map[string]interface{}{"ok": true})
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, typ, reason string) {
	writeJSON(w, status, map[string]string{"error": typ, "reason": reason})
}
