package middleware

import (
	"io"
	"net/http"
)

// DefaultMaxBodyBytes bounds request bodies; a full export of the document is far below it.
const DefaultMaxBodyBytes = 4 << 20

// DrainAndCloseRequest caps the request body at maxBodyBytes and, once the
// handler is done, drains what it left unread so the connection can be reused.
func DrainAndCloseRequest(maxBodyBytes int64) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Body != nil && maxBodyBytes > 0 {
				r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
			}
			next.ServeHTTP(w, r)
			if r.Body != nil {
				_, _ = io.Copy(io.Discard, r.Body)
				_ = r.Body.Close()
			}
		})
	}
}
