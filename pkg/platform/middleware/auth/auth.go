// Package auth provides the JWT middleware that resolves the caller into an
// actor id plus an already-resolved role. The compliance core never derives a
// role from anything else the caller supplies.
package auth

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"

	id "exportgate/pkg/domain"
	"exportgate/pkg/requestcontext"
)

// Claims are the token claims the middleware expects from the identity
// collaborator.
type Claims struct {
	Role string `json:"role"`
	jwt.RegisteredClaims
}

// Middleware validates bearer tokens and injects actor id and role into the
// request context.
type Middleware struct {
	signingKey []byte
	logger     *slog.Logger
}

func New(signingKey []byte, logger *slog.Logger) *Middleware {
	return &Middleware{signingKey: signingKey, logger: logger}
}

// Handler rejects requests without a valid bearer token.
func (m *Middleware) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		tokenString, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || tokenString == "" {
			writeJSONError(w, http.StatusUnauthorized, "invalid_token", "missing bearer token")
			return
		}

		claims := &Claims{}
		token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (any, error) {
			if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, jwt.ErrSignatureInvalid
			}
			return m.signingKey, nil
		})
		if err != nil || !token.Valid {
			if m.logger != nil {
				m.logger.DebugContext(r.Context(), "token validation failed", "error", err)
			}
			writeJSONError(w, http.StatusUnauthorized, "invalid_token", "token validation failed")
			return
		}

		actorID, err := id.ParseActorID(claims.Subject)
		if err != nil {
			writeJSONError(w, http.StatusUnauthorized, "invalid_token", "subject is not a valid actor id")
			return
		}
		role, err := id.ParseRole(claims.Role)
		if err != nil {
			writeJSONError(w, http.StatusUnauthorized, "invalid_token", "unknown role")
			return
		}

		ctx := requestcontext.WithActorID(r.Context(), actorID)
		ctx = requestcontext.WithActorRole(ctx, role)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func writeJSONError(w http.ResponseWriter, status int, errCode, errDesc string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{
		"error":             errCode,
		"error_description": errDesc,
	})
}
