package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"sort"
	"time"

	"github.com/VictoriaMetrics/metrics"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/kalambet/prefs/internal/preferences"
)

const maxRequestBodySize = 1 << 20 // 1MB

// StoreOpener returns the preference store for a group.
// *preferences.Registry satisfies it.
type StoreOpener interface {
	Open(g preferences.Group) *preferences.Store
}

type Deps struct {
	Stores StoreOpener
	// Group backs DELETE /legacy and MCP calls without a group argument.
	Group  preferences.Group
	Token  string // empty disables bearer auth
	Logger *zap.Logger
	// Metrics is optional; when nil /metrics is not served.
	Metrics *metrics.Set
}

type valueResponse struct {
	Value *string `json:"value"`
}

type setRequest struct {
	Value *string `json:"value"`
}

type keysResponse struct {
	Keys []string `json:"keys"`
}

// NewHandler returns the HTTP bridge over the preference stores in deps.
func NewHandler(deps Deps) http.Handler {
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(instrument(deps))

	r.Get("/health", handleHealth)
	if deps.Metrics != nil {
		r.Get("/metrics", handleMetrics(deps.Metrics))
	}

	r.Group(func(r chi.Router) {
		if deps.Token != "" {
			r.Use(BearerAuth(deps.Token))
		}
		r.Get("/groups/{group}/keys", handleListKeys(deps))
		r.Delete("/groups/{group}/keys", handleClear(deps))
		r.Get("/groups/{group}/keys/*", handleGet(deps))
		r.Put("/groups/{group}/keys/*", handleSet(deps))
		r.Delete("/groups/{group}/keys/*", handleRemove(deps))
		r.Post("/groups/{group}/migrate", handleMigrate(deps))
		r.Delete("/legacy", handleRemoveOld(deps))
	})

	return r
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.Write([]byte(`{"status":"ok"}`))
}

func handleMetrics(set *metrics.Set) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain; version=0.0.4")
		set.WritePrometheus(w)
		metrics.WriteProcessMetrics(w)
	}
}

// instrument logs every request and records per-route counters.
func instrument(deps Deps) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r)

			route := r.URL.Path
			if rctx := chi.RouteContext(r.Context()); rctx != nil && rctx.RoutePattern() != "" {
				route = rctx.RoutePattern()
			}
			status := ww.Status()
			if status == 0 {
				status = http.StatusOK
			}

			deps.Logger.Debug("http request",
				zap.String("method", r.Method),
				zap.String("route", route),
				zap.Int("status", status),
				zap.Duration("elapsed", time.Since(start)),
			)
			if deps.Metrics != nil {
				deps.Metrics.GetOrCreateCounter(fmt.Sprintf(`prefs_http_requests_total{method=%q,route=%q,code="%d"}`, r.Method, route, status)).Inc()
				deps.Metrics.GetOrCreateHistogram(fmt.Sprintf(`prefs_http_request_duration_seconds{route=%q}`, route)).UpdateDuration(start)
			}
		})
	}
}

// pathParam returns the decoded value of a route parameter. chi matches on
// the escaped path when one is present, so the parameter may still carry
// percent escapes.
func pathParam(r *http.Request, name string) (string, error) {
	v := chi.URLParam(r, name)
	if r.URL.RawPath == "" {
		return v, nil
	}
	return url.PathUnescape(v)
}

func storeFor(deps Deps, w http.ResponseWriter, r *http.Request) (*preferences.Store, bool) {
	name, err := pathParam(r, "group")
	if err != nil {
		httpError(w, http.StatusBadRequest, "invalid_request_error", "invalid group: %v", err)
		return nil, false
	}
	return deps.Stores.Open(preferences.ParseGroup(name)), true
}

func keyParam(w http.ResponseWriter, r *http.Request) (string, bool) {
	key, err := pathParam(r, "*")
	if err != nil {
		httpError(w, http.StatusBadRequest, "invalid_request_error", "invalid key: %v", err)
		return "", false
	}
	return key, true
}

// storeError maps a preference store failure to an HTTP error response.
func storeError(deps Deps, w http.ResponseWriter, op string, err error) {
	if errors.Is(err, preferences.ErrSuiteUnavailable) {
		httpError(w, http.StatusBadRequest, "invalid_request_error", "%s: %v", op, err)
		return
	}
	deps.Logger.Error("preference store failure", zap.String("op", op), zap.Error(err))
	httpError(w, http.StatusInternalServerError, "api_error", "%s: %v", op, err)
}

func handleListKeys(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		store, ok := storeFor(deps, w, r)
		if !ok {
			return
		}
		keys, err := store.Keys()
		if err != nil {
			storeError(deps, w, "listing keys", err)
			return
		}
		if keys == nil {
			keys = []string{}
		}
		sort.Strings(keys)
		writeJSON(w, http.StatusOK, keysResponse{Keys: keys})
	}
}

func handleClear(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		store, ok := storeFor(deps, w, r)
		if !ok {
			return
		}
		if err := store.RemoveAll(); err != nil {
			storeError(deps, w, "clearing group", err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

func handleGet(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		store, ok := storeFor(deps, w, r)
		if !ok {
			return
		}
		key, ok := keyParam(w, r)
		if !ok {
			return
		}
		val, found, err := store.Get(key)
		if err != nil {
			storeError(deps, w, "getting key", err)
			return
		}
		var resp valueResponse
		if found {
			resp.Value = &val
		}
		writeJSON(w, http.StatusOK, resp)
	}
}

func handleSet(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodySize)
		defer r.Body.Close()

		store, ok := storeFor(deps, w, r)
		if !ok {
			return
		}
		key, ok := keyParam(w, r)
		if !ok {
			return
		}

		var req setRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "invalid request body: %v", err)
			return
		}
		if req.Value == nil {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "value is required")
			return
		}

		if err := store.Set(key, *req.Value); err != nil {
			storeError(deps, w, "setting key", err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

func handleRemove(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		store, ok := storeFor(deps, w, r)
		if !ok {
			return
		}
		key, ok := keyParam(w, r)
		if !ok {
			return
		}
		if err := store.Remove(key); err != nil {
			storeError(deps, w, "removing key", err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

func handleMigrate(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		store, ok := storeFor(deps, w, r)
		if !ok {
			return
		}
		res, err := store.Migrate()
		if err != nil {
			storeError(deps, w, "migrating legacy keys", err)
			return
		}
		deps.Logger.Info("migrated legacy keys",
			zap.Stringer("group", store.Configuration().Group()),
			zap.Int("migrated", len(res.Migrated)),
			zap.Int("existing", len(res.Existing)),
		)
		writeJSON(w, http.StatusOK, res)
	}
}

func handleRemoveOld(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := deps.Stores.Open(deps.Group).RemoveOld(); err != nil {
			storeError(deps, w, "removing legacy keys", err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v)
}

func httpError(w http.ResponseWriter, code int, errType string, format string, args ...any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	msg := fmt.Sprintf(format, args...)
	json.NewEncoder(w).Encode(map[string]any{
		"error": map[string]any{
			"message": msg,
			"type":    errType,
		},
	})
}
