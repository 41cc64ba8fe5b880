package httpadapter

import (
	"context"
	"net/http"
	"strings"
	"time"

	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/compass-journal/compass-api/internal/domain"
	"github.com/compass-journal/compass-api/internal/observability"
)

type ctxKey string

const ctxKeyUser ctxKey = "user_id"

// withUser extracts the caller identity and stores it in the request
// context. Token verification happens upstream; here the bearer token
// already is the verified subject. X-User-ID is honored for local runs.
func withUser(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		uid := r.Header.Get("X-User-ID")
		if uid == "" {
			auth := r.Header.Get("Authorization")
			if after, ok := strings.CutPrefix(auth, "Bearer "); ok {
				uid = strings.TrimSpace(after)
			}
		}
		if uid == "" {
			writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "missing credentials"})
			return
		}

		ctx := context.WithValue(r.Context(), ctxKeyUser, domain.UserID(uid))
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func userFrom(r *http.Request) domain.UserID {
	uid, _ := r.Context().Value(ctxKeyUser).(domain.UserID)
	return uid
}

// withRequestLogging propagates the chi request id into the logging
// context and logs one line per request with duration and status.
func withRequestLogging(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := observability.WithRequestID(r.Context(), chimw.GetReqID(r.Context()))

		ww := chimw.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r.WithContext(ctx))

		observability.LoggerFromContext(ctx).Info("request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"bytes", ww.BytesWritten(),
			"duration_ms", time.Since(start).Milliseconds(),
		)
	})
}
