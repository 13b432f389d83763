package middleware

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/craftmeals/preorder-backend/api/responses"
	pkgerrors "github.com/craftmeals/preorder-backend/pkg/errors"
	"github.com/craftmeals/preorder-backend/pkg/logger"
)

// rateLimiter is the slice of the redis client the limiter needs.
type rateLimiter interface {
	FixedWindowAllow(ctx context.Context, scope string, limit int64, window time.Duration) (bool, int64, error)
}

// FixedWindowLimit caps requests to a route within a rolling window. The
// limiter fails open: when the counter store is unreachable the request
// goes through.
func FixedWindowLimit(scope string, limit int64, window time.Duration, store rateLimiter, logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if store == nil || limit <= 0 {
				next.ServeHTTP(w, r)
				return
			}

			allowed, count, err := store.FixedWindowAllow(r.Context(), scope, limit, window)
			if err != nil {
				if logg != nil {
					ctx := logg.WithField(r.Context(), "scope", scope)
					logg.Warn(ctx, "rate limit check failed, allowing request")
				}
				next.ServeHTTP(w, r)
				return
			}
			if !allowed {
				w.Header().Set("Retry-After", fmt.Sprintf("%d", int(window.Seconds())))
				responses.WriteError(r.Context(), logg, w,
					pkgerrors.New(pkgerrors.CodeRateLimit, "too many requests").
						WithDetails(map[string]any{"count": count}))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
