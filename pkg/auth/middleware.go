package auth

import (
	"net/http"
	"strings"

	"github.com/aspect-console/aspect/pkg/httputil"
)

// Middleware verifies the bearer token on every request and attaches the
// resulting Principal to the request context. Requests without a valid
// token terminate with 401; no route behind this middleware runs
// unauthenticated.
func Middleware(verifier Verifier) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				httputil.WriteUnauthorized(w, "missing authorization header")
				return
			}

			parts := strings.SplitN(authHeader, " ", 2)
			if len(parts) != 2 || parts[0] != "Bearer" {
				httputil.WriteUnauthorized(w, "invalid authorization header format")
				return
			}

			claims, err := verifier.Verify(r.Context(), parts[1])
			if err != nil {
				httputil.WriteUnauthorized(w, "invalid or expired token")
				return
			}

			principal := &Principal{
				Email:  EmailFromClaims(claims),
				Claims: claims,
			}
			if sub, ok := claims["sub"].(string); ok {
				principal.Subject = sub
			}

			next.ServeHTTP(w, r.WithContext(WithPrincipal(r.Context(), principal)))
		})
	}
}
