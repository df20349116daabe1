package middlewares

import (
	"bytes"
	"context"
	"net/http"

	"github.com/bankguard/bankguard/internal/logger"
	"github.com/bankguard/bankguard/internal/repositories"
)

// IdempotencyHeader carries the client-chosen retry key.
const IdempotencyHeader = "Idempotency-Key"

// IdempotencyStore defines the cache operations the middleware needs.
type IdempotencyStore interface {
	Get(ctx context.Context, key string) (*repositories.CachedResponse, error)
	Set(ctx context.Context, key string, status int, body []byte) error
}

// IdempotencyMiddleware replays the cached response of a previously
// completed mutating request carrying the same Idempotency-Key, so a
// client retry after a lost response does not move money twice. Requests
// without the header pass through untouched.
func IdempotencyMiddleware(store IdempotencyStore) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := r.Header.Get(IdempotencyHeader)
			if key == "" {
				next.ServeHTTP(w, r)
				return
			}

			ctx := r.Context()

			cached, err := store.Get(ctx, key)
			if err == nil && cached != nil {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(cached.Status)
				w.Write(cached.Body)
				return
			}
			// A cache failure degrades to executing the request.

			rec := &recordingWriter{ResponseWriter: w, statusCode: http.StatusOK}
			next.ServeHTTP(rec, r)

			// Only settled outcomes are worth replaying.
			if rec.statusCode < http.StatusInternalServerError {
				if err := store.Set(ctx, key, rec.statusCode, rec.body.Bytes()); err != nil {
					logger.Log.Errorw("failed to cache idempotent response", "key", key, "error", err)
				}
			}
		})
	}
}

type recordingWriter struct {
	http.ResponseWriter
	statusCode int
	body       bytes.Buffer
}

func (rw *recordingWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

func (rw *recordingWriter) Write(b []byte) (int, error) {
	rw.body.Write(b)
	return rw.ResponseWriter.Write(b)
}
