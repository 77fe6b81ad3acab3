package auth

import (
	"context"
	"net/http"
	"strings"

	"github.com/aspect-console/aspect/pkg/contextkeys"
)

// EmailClaim is the ADFS-style claim URI the identity provider stamps the
// user's email address under.
const EmailClaim = "http://schemas.xmlsoap.org/ws/2005/05/identity/claims/emailaddress"

// Principal is the verified identity making a request. It is materialized
// per request from the bearer token and never persisted.
type Principal struct {
	// Email is the normalized (lowercased) email address from the token
	Email string
	// Subject is the token subject claim, when present
	Subject string
	// Claims holds the full verified claim set
	Claims map[string]interface{}
}

// EmailFromClaims extracts the principal email from a verified claim set.
// The ADFS-style claim URI takes precedence; the standard "email" claim is
// the fallback. The result is lowercased. Empty means no usable identity.
func EmailFromClaims(claims map[string]interface{}) string {
	if v, ok := claims[EmailClaim].(string); ok && v != "" {
		return strings.ToLower(v)
	}
	if v, ok := claims["email"].(string); ok && v != "" {
		return strings.ToLower(v)
	}
	return ""
}

// WithPrincipal returns a context carrying the verified principal
func WithPrincipal(ctx context.Context, p *Principal) context.Context {
	return context.WithValue(ctx, contextkeys.PrincipalKey, p)
}

// PrincipalFrom extracts the verified principal from a request, or nil when
// authentication has not run.
func PrincipalFrom(r *http.Request) *Principal {
	p, ok := r.Context().Value(contextkeys.PrincipalKey).(*Principal)
	if !ok {
		return nil
	}
	return p
}
