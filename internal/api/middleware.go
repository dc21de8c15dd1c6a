package api

import (
	"net/http"

	"github.com/smallbooks/bookkeeper/internal/audit"
)

// actorHeader carries the caller identity that audit events record.
const actorHeader = "X-Actor"

// ActorMiddleware copies the X-Actor header into the request context so
// service-layer audit events can name who acted. Requests without the
// header are attributed to "system".
func ActorMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if actor := r.Header.Get(actorHeader); actor != "" {
			r = r.WithContext(audit.WithActor(r.Context(), actor))
		}
		next.ServeHTTP(w, r)
	})
}
