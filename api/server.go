// Package api is the HTTP side of the system: the public driver count for the mini-app
// and the dispatcher's admin endpoints.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/aerlaedt-netizen/eviknumber2/auth"
	"github.com/aerlaedt-netizen/eviknumber2/repository"
	"github.com/aerlaedt-netizen/eviknumber2/services"
)

const defaultAdminListLimit = 20

var errBadRequest = errors.New("bad request")

type requestBook interface {
	Get(ctx context.Context, id int64) (*repository.Request, error)
	List(ctx context.Context, q repository.ListQuery) ([]repository.Request, error)
	SetStatus(ctx context.Context, id int64, s repository.Status) (*repository.Request, error)
}

type driverCounter interface {
	Get(ctx context.Context) (services.DriverCount, error)
	Set(ctx context.Context, n int) (services.DriverCount, error)
}

type authorizer interface {
	AuthorizeRequest(r *http.Request) (*auth.Identity, error)
}

type Server struct {
	handler  http.Handler
	requests requestBook
	drivers  driverCounter
	gate     authorizer
	log      *zap.Logger
}

func NewServer(requests requestBook, drivers driverCounter, gate authorizer, log *zap.Logger) *Server {
	s := &Server{requests: requests, drivers: drivers, gate: gate, log: log}

	r := mux.NewRouter()
	for _, path := range []string{"/", "/healthz", "/health"} {
		r.HandleFunc(path, s.health).Methods(http.MethodGet, http.MethodHead)
	}
	r.HandleFunc("/api/drivers", s.getDrivers).Methods(http.MethodGet)

	admin := r.NewRoute().Subrouter()
	admin.Use(s.requireAdmin)
	admin.HandleFunc("/api/admin/me", s.me).Methods(http.MethodGet)
	admin.HandleFunc("/api/admin/drivers", s.setDrivers).Methods(http.MethodPost)
	admin.HandleFunc("/api/bot/drivers", s.setDrivers).Methods(http.MethodPost)
	admin.HandleFunc("/api/admin/requests", s.listRequests).Methods(http.MethodGet)
	admin.HandleFunc("/api/admin/requests/{id:[0-9]+}", s.getRequest).Methods(http.MethodGet)
	admin.HandleFunc("/api/admin/requests/{id:[0-9]+}/status", s.setStatus).Methods(http.MethodPost)

	r.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusNotFound, errorJSON{Detail: "Not Found"})
	})
	r.MethodNotAllowedHandler = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusMethodNotAllowed, errorJSON{Detail: "Method Not Allowed"})
	})

	s.handler = withRequestID(s.accessLog(s.recoverPanics(cors(r))))
	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.handler.ServeHTTP(w, r)
}

// ListenAndServe serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	server := &http.Server{
		Addr:              addr,
		Handler:           s,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       2 * time.Minute,
	}
	errs := make(chan error, 1)
	go func() {
		s.log.Info("HTTP API слушает", zap.String("addr", addr))
		errs <- server.ListenAndServe()
	}()

	select {
	case err := <-errs:
		return fmt.Errorf("HTTP API: %w", err)
	case <-ctx.Done():
	}
	s.log.Info("Останавливаю HTTP API")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("остановка HTTP API: %w", err)
	}
	return nil
}

func (s *Server) health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

func (s *Server) getDrivers(w http.ResponseWriter, r *http.Request) {
	c, err := s.drivers.Get(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, services.NewDriversDocument(c))
}

func (s *Server) me(w http.ResponseWriter, r *http.Request) {
	id := IdentityFrom(r.Context())
	user := map[string]any{"id": id.UserID, "username": nil}
	if id.Username != "" {
		user["username"] = id.Username
	}
	writeJSON(w, http.StatusOK, map[string]any{"ok": true, "user": user})
}

func (s *Server) setDrivers(w http.ResponseWriter, r *http.Request) {
	var body struct {
		DriversOnLine *int `json:"drivers_on_line"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.DriversOnLine == nil {
		s.writeError(w, r, fmt.Errorf("%w: drivers_on_line must be an integer", errBadRequest))
		return
	}
	c, err := s.drivers.Set(r.Context(), *body.DriversOnLine)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.log.Info("Число водителей изменено через API",
		zap.Int("drivers_on_line", c.Value),
		zap.String("via", string(IdentityFrom(r.Context()).Via)))
	writeJSON(w, http.StatusOK, services.NewDriversDocument(c))
}

// parseLimit: absent means the default, junk or < 1 is rejected, too large is clamped.
func parseLimit(raw string) (int, error) {
	if raw == "" {
		return defaultAdminListLimit, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 1 {
		return 0, fmt.Errorf("%w: limit must be a positive integer", errBadRequest)
	}
	return repository.ClampLimit(n), nil
}

func (s *Server) listRequests(w http.ResponseWriter, r *http.Request) {
	limit, err := parseLimit(r.URL.Query().Get("limit"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	items, err := s.requests.List(r.Context(), repository.ListQuery{Limit: limit, Status: r.URL.Query().Get("status")})
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	out := make([]requestJSON, 0, len(items))
	for _, it := range items {
		out = append(out, toJSON(it, false))
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": out})
}

func pathID(r *http.Request) (int64, error) {
	id, err := strconv.ParseInt(mux.Vars(r)["id"], 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: bad id", errBadRequest)
	}
	return id, nil
}

func (s *Server) getRequest(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	item, err := s.requests.Get(r.Context(), id)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"item": toJSON(*item, true)})
}

func (s *Server) setStatus(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	var body struct {
		Status string `json:"status"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		s.writeError(w, r, fmt.Errorf("%w: body must be {\"status\": ...}", errBadRequest))
		return
	}
	status, err := repository.ParseStatus(body.Status)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	item, err := s.requests.SetStatus(r.Context(), id, status)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"item": statusJSON{ID: item.ID, CreatedAt: item.CreatedAt.UTC(), Status: string(item.Status)}})
}
