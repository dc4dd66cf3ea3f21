// Package features exposes the feature registry and the preload scheduler over
// HTTP.
//
//	GET  /features                  status of every feature
//	GET  /features/{name}           status of one feature
//	POST /features/{name}/load      request the feature and wait for it
//	POST /features/{name}/retry     retry a failed feature
//	POST /routes/{route}            notify a navigation
//	GET  /queue                     pending preloads
//	GET  /healthz                   liveness
package features

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/kilianp07/lazyload/core/feature"
	"github.com/kilianp07/lazyload/core/lazy"
	"github.com/kilianp07/lazyload/core/logger"
)

// DefaultLoadWait bounds how long POST /features/{name}/load waits.
const DefaultLoadWait = 10 * time.Second

// Registry is the read side of the feature registry.
type Registry interface {
	Snapshot() []feature.Status
	Lookup(name string) (feature.Status, error)
}

// Handles resolves lazy handles by feature name.
type Handles interface {
	Lookup(name string) (*lazy.Handle, error)
}

// Scheduler is the preload scheduler surface used by the API.
type Scheduler interface {
	NotifyRoute(route string) error
	Pending() []string
}

// Config configures the handler.
type Config struct {
	// Token, when set, must be sent as "Authorization: Bearer <token>".
	Token    string
	LoadWait time.Duration
	Log      logger.Logger
}

// LoadResult is returned by the load and retry endpoints.
type LoadResult struct {
	Feature  string         `json:"feature"`
	Handle   lazy.State     `json:"handle"`
	FellBack bool           `json:"fell_back,omitempty"`
	Error    string         `json:"error,omitempty"`
	Status   feature.Status `json:"status"`
}

type handler struct {
	reg   Registry
	hs    Handles
	sched Scheduler
	cfg   Config
	log   logger.Logger
}

// NewHandler builds the router.
func NewHandler(reg Registry, hs Handles, sched Scheduler, cfg Config) http.Handler {
	if cfg.LoadWait <= 0 {
		cfg.LoadWait = DefaultLoadWait
	}
	h := &handler{reg: reg, hs: hs, sched: sched, cfg: cfg, log: logger.OrNop(cfg.Log)}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	r.Group(func(r chi.Router) {
		r.Use(h.auth)
		r.Get("/features", h.list)
		r.Get("/features/{name}", h.get)
		r.Post("/features/{name}/load", h.load)
		r.Post("/features/{name}/retry", h.retry)
		r.Post("/routes/{route}", h.route)
		r.Get("/queue", h.queue)
	})
	return r
}

func (h *handler) auth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if h.cfg.Token != "" && !bearerMatches(r.Header.Get("Authorization"), h.cfg.Token) {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// bearerMatches compares in constant time.
func bearerMatches(header, token string) bool {
	return subtle.ConstantTimeCompare([]byte(header), []byte("Bearer "+token)) == 1
}

func (h *handler) list(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, h.reg.Snapshot())
}

func (h *handler) get(w http.ResponseWriter, r *http.Request) {
	st, err := h.reg.Lookup(chi.URLParam(r, "name"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, st)
}

func (h *handler) load(w http.ResponseWriter, r *http.Request) {
	hd, err := h.hs.Lookup(chi.URLParam(r, "name"))
	if err != nil {
		writeError(w, err)
		return
	}
	h.respond(w, r, hd)
}

func (h *handler) retry(w http.ResponseWriter, r *http.Request) {
	hd, err := h.hs.Lookup(chi.URLParam(r, "name"))
	if err != nil {
		writeError(w, err)
		return
	}
	if err := hd.Retry(); err != nil {
		writeError(w, err)
		return
	}
	h.log.Infow("feature retry requested over http", map[string]any{"feature": hd.Name()})
	h.respond(w, r, hd)
}

// respond waits for hd unless ?wait=false and writes the outcome.
func (h *handler) respond(w http.ResponseWriter, r *http.Request, hd *lazy.Handle) {
	code := http.StatusOK
	if r.URL.Query().Get("wait") != "false" {
		ctx, cancel := context.WithTimeout(r.Context(), h.cfg.LoadWait)
		_, err := hd.Wait(ctx)
		cancel()
		switch {
		case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
			code = http.StatusAccepted
		case err != nil:
			code = http.StatusBadGateway
		}
	} else if hd.State() == lazy.Pending {
		code = http.StatusAccepted
	}

	res := LoadResult{Feature: hd.Name(), Handle: hd.State()}
	res.FellBack, _ = hd.FellBack()
	if err := hd.Err(); err != nil {
		res.Error = err.Error()
	}
	if st, err := h.reg.Lookup(hd.Name()); err == nil {
		res.Status = st
	}
	writeJSON(w, code, res)
}

func (h *handler) route(w http.ResponseWriter, r *http.Request) {
	route := chi.URLParam(r, "route")
	if err := h.sched.NotifyRoute(route); err != nil {
		// the route is known but its prediction names a missing feature
		h.log.Errorw("route notification failed", map[string]any{"route": route, "error": err})
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]any{"route": route, "pending": h.sched.Pending()})
}

func (h *handler) queue(w http.ResponseWriter, _ *http.Request) {
	pending := h.sched.Pending()
	if pending == nil {
		pending = []string{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"pending": pending})
}

func writeError(w http.ResponseWriter, err error) {
	code := http.StatusInternalServerError
	if feature.IsUnknown(err) {
		code = http.StatusNotFound
	}
	writeJSON(w, code, map[string]string{"error": err.Error()})
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}
