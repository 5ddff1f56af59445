package ratelimit

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/salesdash/authkit/pkg/logger"
)

// Middleware enforces the named rule on each request, keyed by keyFn.
// Denials answer 429 with Retry-After. When the store is unreachable the
// rule decides: fail-closed rules answer 503, everything else lets the
// request through with a warning.
func Middleware(reg *Registry, ruleName string, keyFn KeyFunc) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			subject := keyFn(r)
			if subject == "" {
				next.ServeHTTP(w, r)
				return
			}

			res, err := reg.Check(r.Context(), ruleName, subject)
			if err != nil {
				handleCheckFailure(w, r, reg, ruleName, err)
				if _, failClosed := failMode(reg, ruleName); failClosed {
					return
				}
				next.ServeHTTP(w, r)
				return
			}

			WriteHeaders(w, res)

			if !res.Allowed {
				http.Error(w, "Too Many Requests", http.StatusTooManyRequests)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// WriteHeaders sets the standard X-RateLimit-* response headers, plus
// Retry-After on denials.
func WriteHeaders(w http.ResponseWriter, res *Result) {
	if res.Limit > 0 {
		w.Header().Set("X-RateLimit-Limit", strconv.Itoa(res.Limit))
		w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(res.Remaining))
		w.Header().Set("X-RateLimit-Reset", strconv.FormatInt(res.ResetAt.Unix(), 10))
	}
	if !res.Allowed {
		if retry := int(res.RetryAfter().Seconds()); retry > 0 {
			w.Header().Set("Retry-After", strconv.Itoa(retry))
		}
	}
}

func failMode(reg *Registry, ruleName string) (Rule, bool) {
	rule, ok := reg.Rule(ruleName)
	return rule, ok && rule.FailClosed
}

func handleCheckFailure(w http.ResponseWriter, r *http.Request, reg *Registry, ruleName string, err error) {
	_, failClosed := failMode(reg, ruleName)
	logCheckFailure(r.Context(), reg.log, ruleName, failClosed, err)
	if failClosed {
		http.Error(w, "Service Unavailable", http.StatusServiceUnavailable)
	}
}

func logCheckFailure(ctx context.Context, log *slog.Logger, ruleName string, failClosed bool, err error) {
	log.ErrorContext(ctx, "rate limit check failed",
		logger.Rule(ruleName),
		slog.Bool("fail_closed", failClosed),
		logger.Error(err),
	)
}
