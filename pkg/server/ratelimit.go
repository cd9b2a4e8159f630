package server

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/httprate"
)

// rateLimit limits requests per client IP with a sliding window. It runs
// after middleware.RealIP, so the key is the forwarded client address.
// onLimit, if non-nil, is called for every rejected request.
func rateLimit(limit int, window time.Duration, onLimit func()) func(http.Handler) http.Handler {
	return httprate.Limit(
		limit,
		window,
		httprate.WithKeyFuncs(httprate.KeyByIP),
		httprate.WithLimitHandler(func(w http.ResponseWriter, r *http.Request) {
			if onLimit != nil {
				onLimit()
			}
			w.Header().Set("Content-Type", "application/json")
			w.Header().Set("Retry-After", strconv.Itoa(int(window.Seconds())))
			w.WriteHeader(http.StatusTooManyRequests)
			_, _ = w.Write([]byte(`{"error":"rate_limit_exceeded","detail":"Too many live navigation connections. Please try again later."}`))
		}),
	)
}
