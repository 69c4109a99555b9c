// Package web exposes the calendar core over HTTP: instance and sidebar
// queries, record mutations, configuration access, and the ICS feed.
package web

import (
	"crypto/subtle"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"obbycal/internal/app"
	"obbycal/internal/calendar"
	"obbycal/internal/config"
	appLog "obbycal/internal/log"
	"obbycal/internal/record"
	"obbycal/internal/recur"
	"obbycal/internal/sidebar"
	"obbycal/internal/store"
	"obbycal/internal/syncer"
)

// Server routes HTTP requests into the application core.
type Server struct {
	cfg        *config.Config
	core       *app.App
	configPath string
	mux        *http.ServeMux
}

// NewServer constructs the HTTP server. configPath is where PUT
// /api/config persists changes.
func NewServer(cfg *config.Config, core *app.App, configPath string) *Server {
	s := &Server{
		cfg:        cfg,
		core:       core,
		configPath: configPath,
		mux:        http.NewServeMux(),
	}
	s.registerRoutes()
	return s
}

// Handler returns the routing handler, wrapped with basic auth when
// credentials are configured.
func (s *Server) Handler() http.Handler {
	h := http.Handler(s.mux)
	if s.basicAuthEnabled() {
		appLog.Info("HTTP basic auth enabled", "listen", "http://"+s.cfg.Listen)
		return s.basicAuthMiddleware(h)
	}
	return h
}

func (s *Server) basicAuthEnabled() bool {
	ba := s.cfg.BasicAuth
	return ba != nil && ba.Username != "" && ba.Password != ""
}

// basicAuthMiddleware guards every route except /health.
func (s *Server) basicAuthMiddleware(next http.Handler) http.Handler {
	username := s.cfg.BasicAuth.Username
	password := s.cfg.BasicAuth.Password

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/health" {
			next.ServeHTTP(w, r)
			return
		}
		u, p, ok := r.BasicAuth()
		if !ok || !secureCompare(u, username) || !secureCompare(p, password) {
			w.Header().Set("WWW-Authenticate", `Basic realm="obbycal", charset="UTF-8"`)
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// secureCompare compares two strings in constant time.
func secureCompare(a, b string) bool {
	if len(a) != len(b) {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}

func (s *Server) registerRoutes() {
	s.mux.HandleFunc("GET /health", s.handleHealth)
	s.mux.HandleFunc("GET /api/instances", s.handleInstances)
	s.mux.HandleFunc("GET /api/tasks", s.handleTasks)
	s.mux.HandleFunc("POST /api/records", s.handleCreateRecord)
	s.mux.HandleFunc("GET /api/records/{id...}", s.handleGetRecord)
	s.mux.HandleFunc("PUT /api/records/{id...}", s.handleUpdateRecord)
	s.mux.HandleFunc("DELETE /api/records/{id...}", s.handleDeleteRecord)
	s.mux.HandleFunc("POST /api/records/drop", s.handleDrop)
	s.mux.HandleFunc("POST /api/records/toggle", s.handleToggle)
	s.mux.HandleFunc("GET /api/config", s.handleGetConfig)
	s.mux.HandleFunc("PUT /api/config", s.handlePutConfig)
	s.mux.HandleFunc("GET /calendar.ics", s.handleFeed)
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("OK"))
}

// parseWindow reads the from/to query parameters, defaulting to a window
// around today.
func parseWindow(r *http.Request) (recur.Window, error) {
	today := record.Today()
	win := recur.Window{Start: today.AddDays(-31), End: today.AddDays(62)}

	q := r.URL.Query()
	if v := q.Get("from"); v != "" {
		d, err := record.ParseDate(v)
		if err != nil {
			return recur.Window{}, errors.New("invalid 'from' date")
		}
		win.Start = d
	}
	if v := q.Get("to"); v != "" {
		d, err := record.ParseDate(v)
		if err != nil {
			return recur.Window{}, errors.New("invalid 'to' date")
		}
		win.End = d
	}
	if win.End.Before(win.Start) {
		return recur.Window{}, errors.New("'to' precedes 'from'")
	}
	return win, nil
}

// handleInstances serves the expanded instance set for a window.
//
// GET /api/instances?from=2024-01-01&to=2024-02-11
func (s *Server) handleInstances(w http.ResponseWriter, r *http.Request) {
	win, err := parseWindow(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	instances, err := s.core.LoadInstances(win)
	if err != nil {
		appLog.Error("instances load failed", err)
		writeError(w, http.StatusInternalServerError, "failed to load instances")
		return
	}
	dtos := make([]instanceDTO, 0, len(instances))
	for _, in := range instances {
		dtos = append(dtos, toInstanceDTO(in))
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"from":      win.Start.String(),
		"to":        win.End.String(),
		"instances": dtos,
	})
}

// handleTasks serves the sidebar buckets.
//
// GET /api/tasks?category=work&due=today&importance=high&show_completed=1
func (s *Server) handleTasks(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	f := sidebar.Filters{
		Category:      q.Get("category"),
		Due:           sidebar.DueState(q.Get("due")),
		Importance:    q.Get("importance"),
		ShowCompleted: s.core.ConfigSnapshot().ShowCompletedInSidebar,
	}
	if v := q.Get("show_completed"); v != "" {
		f.ShowCompleted = parseBool(v)
	}
	buckets, err := s.core.SidebarTasks(f)
	if err != nil {
		appLog.Error("sidebar load failed", err)
		writeError(w, http.StatusInternalServerError, "failed to load tasks")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"due_today":     toDTOs(buckets.DueToday),
		"due_this_week": toDTOs(buckets.DueThisWeek),
		"due_later":     toDTOs(buckets.DueLater),
	})
}

func (s *Server) handleCreateRecord(w http.ResponseWriter, r *http.Request) {
	var body recordDTO
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	rec, err := body.toRecord()
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	key, err := s.core.CreateRecord(rec, body.Category)
	if err != nil {
		writeMutationError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]string{"key": key})
}

// handleGetRecord resolves an instance ID (or plain record key) to the
// backing record, for populating an editor.
func (s *Server) handleGetRecord(w http.ResponseWriter, r *http.Request) {
	rec, err := s.core.GetRecord(r.PathValue("id"))
	if err != nil {
		writeMutationError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"key":    rec.Key,
		"record": fromRecord(rec),
	})
}

func (s *Server) handleUpdateRecord(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	var body recordDTO
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	rec, err := body.toRecord()
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	key, err := s.core.UpdateRecord(id, rec, body.Category)
	if err != nil {
		writeMutationError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"key": key})
}

func (s *Server) handleDeleteRecord(w http.ResponseWriter, r *http.Request) {
	if err := s.core.DeleteRecord(r.PathValue("id")); err != nil {
		writeMutationError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleDrop applies a drag/resize reschedule.
//
// POST /api/records/drop {"id": ..., "start": ..., "end": ..., "all_day": ...}
func (s *Server) handleDrop(w http.ResponseWriter, r *http.Request) {
	var body struct {
		ID     string `json:"id"`
		Start  string `json:"start"`
		End    string `json:"end,omitempty"`
		AllDay bool   `json:"all_day"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	start, err := record.ParseDateTime(body.Start)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid start")
		return
	}
	var end *record.DateTime
	if body.End != "" {
		e, err := record.ParseDateTime(body.End)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid end")
			return
		}
		end = &e
	}
	if err := s.core.OnInstanceDropped(body.ID, start, end, body.AllDay); err != nil {
		writeMutationError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleToggle flips a task's completion.
//
// POST /api/records/toggle {"id": ..., "done": true}
func (s *Server) handleToggle(w http.ResponseWriter, r *http.Request) {
	var body struct {
		ID   string `json:"id"`
		Done bool   `json:"done"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if err := s.core.OnCompletionToggled(body.ID, body.Done); err != nil {
		writeMutationError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleGetConfig(w http.ResponseWriter, _ *http.Request) {
	// Credentials never leave the server.
	redacted := s.core.ConfigSnapshot()
	redacted.BasicAuth = nil
	writeJSON(w, http.StatusOK, &redacted)
}

func (s *Server) handlePutConfig(w http.ResponseWriter, r *http.Request) {
	var next config.Config
	if err := json.NewDecoder(r.Body).Decode(&next); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	// Auth settings are managed on disk only, never over the API.
	next.BasicAuth = s.core.ConfigSnapshot().BasicAuth
	next.Normalize()
	if err := config.Save(s.configPath, &next); err != nil {
		appLog.Error("config save failed", err, "path", s.configPath)
		writeError(w, http.StatusInternalServerError, "failed to save config")
		return
	}
	if err := s.core.ReloadConfig(next); err != nil {
		appLog.Warn("refresh schedule not updated", "error", err)
	}
	if err := s.core.EnsureCategories(); err != nil {
		appLog.Warn("some category folders could not be ensured", "error", err)
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "saved"})
}

// handleFeed serves the merged view as an ICS feed.
func (s *Server) handleFeed(w http.ResponseWriter, r *http.Request) {
	win, err := parseWindow(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	feed, err := s.core.ExportFeed(win)
	if err != nil {
		appLog.Error("feed export failed", err)
		writeError(w, http.StatusInternalServerError, "failed to export feed")
		return
	}
	w.Header().Set("Content-Type", "text/calendar; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(feed)
}

func toDTOs(in []calendar.Instance) []instanceDTO {
	out := make([]instanceDTO, 0, len(in))
	for _, inst := range in {
		out = append(out, toInstanceDTO(inst))
	}
	return out
}

// writeMutationError maps core error taxonomy onto HTTP status codes.
func writeMutationError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, store.ErrRecordNotFound):
		writeError(w, http.StatusNotFound, "record not found")
	case errors.Is(err, store.ErrKeyExists):
		writeError(w, http.StatusConflict, "key already exists")
	case errors.Is(err, store.ErrPathConflict):
		writeError(w, http.StatusConflict, "path exists but is not a folder")
	case errors.Is(err, syncer.ErrNoCategoryConfigured):
		writeError(w, http.StatusUnprocessableEntity, err.Error())
	default:
		var malformed *record.MalformedDateError
		var missing *record.MissingFieldError
		if errors.As(err, &malformed) || errors.As(err, &missing) {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		appLog.Error("record mutation failed", err)
		writeError(w, http.StatusInternalServerError, "operation failed")
	}
}

func parseBool(s string) bool {
	b, err := strconv.ParseBool(s)
	return err == nil && b
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		appLog.Error("failed to write JSON response", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
