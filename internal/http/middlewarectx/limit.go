package middlewarectx

import (
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/render"
	"golang.org/x/time/rate"

	"github.com/shipforge/payment-ledger/internal/http/response"
)

// userLimiters keeps one token bucket per authenticated user. Entries are
// never evicted; the key space is the set of admin usernames, which stays
// small for the lifetime of the process.
type userLimiters struct {
	mu       sync.Mutex
	limiters map[string]*rate.Limiter
	limit    rate.Limit
	burst    int
}

func newUserLimiters(limit rate.Limit, burst int) *userLimiters {
	return &userLimiters{
		limiters: make(map[string]*rate.Limiter),
		limit:    limit,
		burst:    burst,
	}
}

func (u *userLimiters) get(key string) *rate.Limiter {
	u.mu.Lock()
	defer u.mu.Unlock()
	l, ok := u.limiters[key]
	if !ok {
		l = rate.NewLimiter(u.limit, u.burst)
		u.limiters[key] = l
	}
	return l
}

// ImportRateLimitMiddleware throttles admin imports to 5 runs per 30 minutes
// per user. Imports pull full order histories from the vendors, so runaway
// retriggering would hammer their APIs.
func ImportRateLimitMiddleware(log *slog.Logger) func(http.Handler) http.Handler {
	limiters := newUserLimiters(rate.Every(30*time.Minute/5), 5)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			username, _ := r.Context().Value(User).(string)
			if !limiters.get(username).Allow() {
				log.Warn("import rate limit exceeded", slog.String("username", username))
				w.WriteHeader(http.StatusTooManyRequests)
				render.JSON(w, r, response.Error("too many import requests, try again later"))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
