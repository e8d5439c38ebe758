package middleware

import (
	"net/http"
	"time"

	"github.com/go-chi/httprate"
)

// RateLimit limits requests per IP to the given number per minute using a
// sliding window. Query execution is the expensive path; the limit mostly
// guards against a stuck UI page re-running in a loop.
func RateLimit(requestsPerMinute int) func(http.Handler) http.Handler {
	return httprate.LimitByIP(requestsPerMinute, time.Minute)
}
