package httpkit

import (
	"compress/flate"
	"net/http"
	"time"

	"scorekeeper/internal/platform/config"
	"scorekeeper/internal/platform/net/middleware"
)

// CommonStack is the middleware every API route runs behind
// API_CORS_ORIGINS, API_SLOW_REQUEST and API_REQUEST_TIMEOUT tune it
func CommonStack(cfg config.Conf) []func(http.Handler) http.Handler {
	return []func(http.Handler) http.Handler{
		middleware.RequestID(),
		middleware.RealIP(),
		middleware.LogContext,
		middleware.RecoverJSON,
		middleware.NoCache(),
		middleware.AccessLog(cfg.MayDuration("API_SLOW_REQUEST", 500*time.Millisecond), "/api/v1/sync/status"),
		middleware.CORS(middleware.CORSOptions{
			AllowedOrigins: cfg.MayCSV("API_CORS_ORIGINS", []string{"*"}),
			MaxAge:         300,
		}),
		middleware.Compress(flate.BestSpeed),
		middleware.StripSlashes(),
		middleware.Timeout(cfg.MayDuration("API_REQUEST_TIMEOUT", 30*time.Second)),
	}
}
