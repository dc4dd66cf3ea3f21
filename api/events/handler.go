package events

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"net/http"
	"time"

	coreevents "github.com/kilianp07/lazyload/core/events"
	"github.com/kilianp07/lazyload/infra/journal"
)

// Store is the read side of the event journal.
type Store interface {
	Query(ctx context.Context, q journal.Query) ([]coreevents.Event, error)
}

// NewHandler returns an HTTP handler exposing journaled events via GET.
// Requests must include an Authorization header with "Bearer <token>" when token is non-empty.
// Supported filters: start, end (RFC3339), feature, kind (repeatable).
func NewHandler(store Store, token string) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		if token != "" {
			auth := r.Header.Get("Authorization")
			if subtle.ConstantTimeCompare([]byte(auth), []byte("Bearer "+token)) != 1 {
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}
		}
		q := journal.Query{Feature: r.URL.Query().Get("feature")}
		if s := r.URL.Query().Get("start"); s != "" {
			if t, err := time.Parse(time.RFC3339, s); err == nil {
				q.Start = t
			}
		}
		if s := r.URL.Query().Get("end"); s != "" {
			if t, err := time.Parse(time.RFC3339, s); err == nil {
				q.End = t
			}
		}
		for _, k := range r.URL.Query()["kind"] {
			kind, ok := coreevents.ParseKind(k)
			if !ok {
				http.Error(w, "unknown kind "+k, http.StatusBadRequest)
				return
			}
			q.Kinds = append(q.Kinds, kind)
		}
		evs, err := store.Query(r.Context(), q)
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		if evs == nil {
			evs = []coreevents.Event{}
		}
		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(evs); err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
	})
}
