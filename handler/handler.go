// Package handler provides the HTTP handlers for the to-do sync server.
package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/stevemurr/todo-sync-server/collection"
	"github.com/stevemurr/todo-sync-server/store"
	"github.com/stevemurr/todo-sync-server/todo"
)

const defaultCacheSize = 64

// Handler holds the server dependencies and registers routes.
type Handler struct {
	client *store.Client
	todos  *todo.Service
	logger *slog.Logger
	mux    *http.ServeMux

	cacheSize int
	// collections caches adapters for schema-registered collections.
	collections *lru.Cache[string, *collection.Collection]
}

// Option configures a Handler.
type Option func(*Handler)

func WithLogger(l *slog.Logger) Option {
	return func(h *Handler) { h.logger = l }
}

// WithCacheSize bounds how many collection adapters stay cached.
func WithCacheSize(n int) Option {
	return func(h *Handler) {
		if n > 0 {
			h.cacheSize = n
		}
	}
}

// New creates a Handler and wires up all routes.
func New(client *store.Client, todos *todo.Service, opts ...Option) *Handler {
	h := &Handler{
		client:    client,
		todos:     todos,
		logger:    slog.Default(),
		mux:       http.NewServeMux(),
		cacheSize: defaultCacheSize,
	}
	for _, opt := range opts {
		opt(h)
	}
	// Only fails for a non-positive size, which WithCacheSize rules out.
	h.collections, _ = lru.New[string, *collection.Collection](h.cacheSize)
	h.routes()
	return h
}

// ServeHTTP makes Handler an http.Handler.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.mux.ServeHTTP(w, r)
}

func (h *Handler) routes() {
	// Health / status
	h.mux.HandleFunc("GET /", h.root)
	h.mux.HandleFunc("GET /health", h.health)

	// --- To-do endpoints ---
	h.mux.HandleFunc("GET /todos", h.listTodos)
	h.mux.HandleFunc("GET /todos/count", h.countTodos)
	h.mux.HandleFunc("GET /todos/events", h.streamTodos)
	h.mux.HandleFunc("POST /todos", h.addTodo)
	h.mux.HandleFunc("GET /todos/{id}", h.getTodo)
	h.mux.HandleFunc("GET /todos/{id}/events", h.streamTodo)
	h.mux.HandleFunc("PATCH /todos/{id}", h.updateTodo)
	h.mux.HandleFunc("POST /todos/{id}/toggle", h.toggleTodo)
	h.mux.HandleFunc("DELETE /todos/{id}", h.deleteTodo)

	// --- Generic collection endpoints ---
	h.mux.HandleFunc("GET /collections", h.listCollections)
	h.mux.HandleFunc("GET /collections/{collection}/items", h.withCollection(h.listItems))
	h.mux.HandleFunc("POST /collections/{collection}/items", h.withCollection(h.addItem))
	h.mux.HandleFunc("GET /collections/{collection}/items/{id}", h.withCollection(h.getItem))
	h.mux.HandleFunc("PATCH /collections/{collection}/items/{id}", h.withCollection(h.updateItem))
	h.mux.HandleFunc("DELETE /collections/{collection}/items/{id}", h.withCollection(h.deleteItem))

	// --- Schema endpoints ---
	h.mux.HandleFunc("GET /schemas", h.listSchemas)
	h.mux.HandleFunc("GET /schemas/{collection}", h.getSchema)
	h.mux.HandleFunc("PUT /schemas/{collection}", h.putSchema)
	h.mux.HandleFunc("DELETE /schemas/{collection}", h.deleteSchema)
}

// ---------- helpers ----------

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"detail": msg})
}

func readJSON(r *http.Request, v any) error {
	defer r.Body.Close()
	return json.NewDecoder(r.Body).Decode(v)
}

// statusFor maps the adapter's error kinds onto HTTP statuses.
func statusFor(err error) int {
	switch {
	case collection.IsValidation(err):
		return http.StatusUnprocessableEntity
	case errors.Is(err, store.ErrNotFound):
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

// fail logs err and writes it as the response.
func (h *Handler) fail(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	level := slog.LevelWarn
	if status >= http.StatusInternalServerError {
		level = slog.LevelError
	}
	h.logger.Log(r.Context(), level, err.Error(), "method", r.Method, "path", r.URL.Path, "status", status)
	writeError(w, status, err.Error())
}

// ---------- status endpoints ----------

func (h *Handler) root(w http.ResponseWriter, r *http.Request) {
	// Only match exact root path
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"status":  "ok",
		"service": "Todo Sync Server",
	})
}

func (h *Handler) health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":    "healthy",
		"listeners": h.client.Listeners(),
	})
}
