package middlewares

import (
	"context"
	"net/http"

	"github.com/jmoiron/sqlx"

	"github.com/bankguard/bankguard/internal/logger"
)

// TxMiddleware wraps an HTTP handler with a database transaction. All
// repository writes on the request path run inside it. The response is
// buffered until the transaction settles: an error status rolls the
// transaction back, so a transfer that failed after the source debit
// leaves no partial mutation behind, and a failed commit turns an
// already-written success body into a 500 instead of reporting money
// moved that was rolled back. Audit writes deliberately run on a
// separate connection and survive the rollback decision of this
// transaction.
func TxMiddleware(db *sqlx.DB) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			tx, err := db.Beginx()
			if err != nil {
				logger.Log.Errorw("failed to begin transaction", "error", err)
				w.WriteHeader(http.StatusInternalServerError)
				return
			}

			defer func() {
				if rec := recover(); rec != nil {
					tx.Rollback()
					panic(rec)
				}
			}()

			ctx := setTxToContext(r.Context(), tx)
			r = r.WithContext(ctx)

			buf := newBufferedWriter()
			next.ServeHTTP(buf, r)

			if buf.statusCode >= http.StatusBadRequest {
				if err := tx.Rollback(); err != nil {
					logger.Log.Errorw("failed to roll back transaction", "status", buf.statusCode, "error", err)
				}
				buf.flush(w)
				return
			}

			if err := tx.Commit(); err != nil {
				logger.Log.Errorw("failed to commit transaction", "error", err)
				w.WriteHeader(http.StatusInternalServerError)
				return
			}
			buf.flush(w)
		})
	}
}

// bufferedWriter holds the handler's response until the transaction
// outcome is known.
type bufferedWriter struct {
	header      http.Header
	statusCode  int
	wroteHeader bool
	body        []byte
}

func newBufferedWriter() *bufferedWriter {
	return &bufferedWriter{header: make(http.Header), statusCode: http.StatusOK}
}

func (bw *bufferedWriter) Header() http.Header {
	return bw.header
}

func (bw *bufferedWriter) WriteHeader(code int) {
	if bw.wroteHeader {
		return
	}
	bw.statusCode = code
	bw.wroteHeader = true
}

func (bw *bufferedWriter) Write(b []byte) (int, error) {
	bw.wroteHeader = true
	bw.body = append(bw.body, b...)
	return len(b), nil
}

func (bw *bufferedWriter) flush(w http.ResponseWriter) {
	for key, values := range bw.header {
		for _, value := range values {
			w.Header().Add(key, value)
		}
	}
	w.WriteHeader(bw.statusCode)
	w.Write(bw.body)
}

// contextKey is an unexported type for keys in context.
type contextKey struct{}

var txKey = contextKey{}

// setTxToContext stores a transaction in the context.
func setTxToContext(ctx context.Context, tx *sqlx.Tx) context.Context {
	return context.WithValue(ctx, txKey, tx)
}

// GetTxFromContext retrieves the transaction from the context. Returns nil if not present.
func GetTxFromContext(ctx context.Context) *sqlx.Tx {
	tx, _ := ctx.Value(txKey).(*sqlx.Tx)
	return tx
}
