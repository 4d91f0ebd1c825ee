package middleware

import (
	"context"
	"net/http"

	log "github.com/sirupsen/logrus"
)

type stateSyncer interface {
	Sync(ctx context.Context) error
}

// SyncState reloads the workout state written by other processes sharing
// the storage before a GET is served. Mutations sync on their own.
func SyncState(syncer stateSyncer) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Method == http.MethodGet {
				if err := syncer.Sync(r.Context()); err != nil {
					log.Warnf("serving cached state for %s: %s", r.URL.Path, err)
				}
			}
			next.ServeHTTP(w, r)
		})
	}
}
