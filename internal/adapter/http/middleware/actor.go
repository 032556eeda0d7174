package middleware

import (
	"context"
	"net/http"
	"strings"
)

// ActorHeader carries the authenticated actor id set by the gateway.
const ActorHeader = "X-Actor-ID"

type actorKey struct{}

// RequireActor rejects requests without an actor id and stores it in the
// request context.
func RequireActor(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		actorID := strings.TrimSpace(r.Header.Get(ActorHeader))
		if actorID == "" {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = w.Write([]byte(`{"error":"missing actor","message":"` + ActorHeader + ` header is required"}`))
			return
		}

		next.ServeHTTP(w, r.WithContext(WithActor(r.Context(), actorID)))
	})
}

// WithActor returns a copy of ctx carrying actorID.
func WithActor(ctx context.Context, actorID string) context.Context {
	return context.WithValue(ctx, actorKey{}, actorID)
}

// ActorFromContext returns the actor id stored by RequireActor.
func ActorFromContext(ctx context.Context) string {
	actorID, _ := ctx.Value(actorKey{}).(string)
	return actorID
}
