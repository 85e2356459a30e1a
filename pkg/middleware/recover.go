// pkg/middleware/recover.go
package middleware

import (
	"fmt"
	"net/http"
	"runtime/debug"

	"go.uber.org/zap"

	"shopgate/pkg/problems"
)

// Recover turns a handler panic into a 500 for that request only.
func Recover(log *zap.SugaredLogger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if rec := recover(); rec != nil {
					log.Errorw("panic", "err", rec, "path", r.URL.Path, "request_id", RequestIDFrom(r.Context()), "stack", string(debug.Stack()))
					problems.Write(w, problems.Wrap(fmt.Errorf("panic: %v", rec), problems.EInternal, r.URL.Path))
				}
			}()
			next.ServeHTTP(w, r)
		})
	}
}
