package middleware

import (
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/avdeevlav/sborka-backend/pkg/logger"
)

const sessionIDHeader = "X-Session-Id"

const maxSessionIDLength = 64

// GuestSession reads the client-held session id from the request header and
// seeds it into the context. Anonymous requests without a session get a fresh
// id echoed back so the client can persist it.
func GuestSession(logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			sessionID := strings.TrimSpace(r.Header.Get(sessionIDHeader))
			if len(sessionID) > maxSessionIDLength {
				sessionID = ""
			}
			if sessionID == "" {
				sessionID = uuid.NewString()
			}

			w.Header().Set(sessionIDHeader, sessionID)

			ctx := WithSessionID(r.Context(), sessionID)
			if logg != nil {
				ctx = logg.WithSessionID(ctx, sessionID)
			}

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
