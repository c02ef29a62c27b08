package http

import (
	"fmt"
	"net/http"
	"runtime/debug"
	"time"

	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/supermancell/cinebuddy/internal/logging"
)

const requestIDHeader = "X-Request-ID"

// RequestID reuses an incoming X-Request-ID or generates one, echoes it on
// the response and stores it in the request context for logging.
func RequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(requestIDHeader)
		if id == "" || len(id) > 128 {
			id = logging.GenerateRequestID()
		}
		w.Header().Set(requestIDHeader, id)
		next.ServeHTTP(w, r.WithContext(logging.ContextWithRequestID(r.Context(), id)))
	})
}

// RequestLogger logs one line per completed request.
func RequestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := chimiddleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()

		next.ServeHTTP(ww, r)

		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		logging.Ctx(r.Context()).Info().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", status).
			Int("bytes", ww.BytesWritten()).
			Dur("duration", time.Since(start)).
			Msg("request")
	})
}

// FailFast is the top-level error boundary. A panic in any handler is
// logged, answered with 500 and reported to onFatal, which is expected to
// terminate the process. http.ErrAbortHandler is re-panicked untouched.
func FailFast(onFatal func(error)) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				rec := recover()
				if rec == nil {
					return
				}
				if rec == http.ErrAbortHandler { //nolint:errorlint // sentinel compared by identity as net/http does
					panic(rec)
				}

				err := fmt.Errorf("panic serving %s %s: %v", r.Method, r.URL.Path, rec)
				logging.Ctx(r.Context()).Error().Err(err).Bytes("stack", debug.Stack()).Msg("Unhandled failure, shutting down")

				writeError(w, r, http.StatusInternalServerError, "Internal server error")
				if onFatal != nil {
					onFatal(err)
				}
			}()
			next.ServeHTTP(w, r)
		})
	}
}
