package middleware

import (
	"net/http"
	"time"

	"scorekeeper/internal/platform/logger"
	pnet "scorekeeper/internal/platform/net"
)

// captureWriter records status and bytes
type captureWriter struct {
	http.ResponseWriter
	status int
	bytes  int
}

func (cw *captureWriter) WriteHeader(code int) {
	cw.status = code
	cw.ResponseWriter.WriteHeader(code)
}

func (cw *captureWriter) Write(b []byte) (int, error) {
	n, err := cw.ResponseWriter.Write(b)
	cw.bytes += n
	return n, err
}

// LogContext copies the request id into the logger context so logger.C(ctx) carries it
// it must run after RequestID
func LogContext(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		next.ServeHTTP(w, r.WithContext(pnet.Annotate(r.Context())))
	})
}

// AccessLog logs method, path, status, elapsed and bytes; requests at or over slow log at warn
// status polls are logged at debug so a dashboard polling every second stays quiet
func AccessLog(slow time.Duration, quiet ...string) func(http.Handler) http.Handler {
	q := make(map[string]bool, len(quiet))
	for _, p := range quiet {
		q[p] = true
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			cw := &captureWriter{ResponseWriter: w, status: http.StatusOK}
			start := time.Now()

			next.ServeHTTP(cw, r)

			elapsed := time.Since(start)
			log := logger.C(r.Context())
			evt := log.Info()
			switch {
			case slow > 0 && elapsed >= slow:
				evt = log.Warn()
			case cw.status >= http.StatusInternalServerError:
				evt = log.Error()
			case q[r.URL.Path] && cw.status < http.StatusBadRequest:
				evt = log.Debug()
			}
			evt.Int("status", cw.status).
				Dur("elapsed", elapsed).
				Str("method", r.Method).
				Str("path", r.URL.Path).
				Int("bytes", cw.bytes).
				Msg("request done")
		})
	}
}
