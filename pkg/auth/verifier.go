package auth

import (
	"context"
	"fmt"

	"github.com/coreos/go-oidc/v3/oidc"
	"github.com/golang-jwt/jwt/v4"

	"github.com/aspect-console/aspect/pkg/config"
)

// Verifier validates a raw bearer token and returns its verified claims
type Verifier interface {
	Verify(ctx context.Context, rawToken string) (map[string]interface{}, error)
}

// NewVerifier builds a Verifier for the configured signing algorithm.
// RS256 performs OIDC discovery against the issuer; HS256 validates against
// a shared local secret (development and test deployments).
func NewVerifier(ctx context.Context, cfg config.AuthConfig) (Verifier, error) {
	switch cfg.SigningAlgorithm {
	case "RS256":
		return newOIDCVerifier(ctx, cfg)
	case "HS256":
		return &hs256Verifier{
			secret:   []byte(cfg.HS256Secret),
			issuer:   cfg.IssuerBaseURL,
			audience: cfg.Audience,
		}, nil
	default:
		return nil, fmt.Errorf("unsupported signing algorithm: %s", cfg.SigningAlgorithm)
	}
}

// oidcVerifier validates RS256 tokens via issuer discovery
type oidcVerifier struct {
	verifier *oidc.IDTokenVerifier
}

func newOIDCVerifier(ctx context.Context, cfg config.AuthConfig) (*oidcVerifier, error) {
	provider, err := oidc.NewProvider(ctx, cfg.IssuerBaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to discover OIDC provider: %w", err)
	}

	return &oidcVerifier{
		verifier: provider.Verifier(&oidc.Config{
			ClientID:             cfg.Audience,
			SupportedSigningAlgs: []string{oidc.RS256},
		}),
	}, nil
}

func (v *oidcVerifier) Verify(ctx context.Context, rawToken string) (map[string]interface{}, error) {
	token, err := v.verifier.Verify(ctx, rawToken)
	if err != nil {
		return nil, fmt.Errorf("token verification failed: %w", err)
	}

	var claims map[string]interface{}
	if err := token.Claims(&claims); err != nil {
		return nil, fmt.Errorf("failed to decode claims: %w", err)
	}
	return claims, nil
}

// hs256Verifier validates HS256 tokens against a shared secret
type hs256Verifier struct {
	secret   []byte
	issuer   string
	audience string
}

func (v *hs256Verifier) Verify(_ context.Context, rawToken string) (map[string]interface{}, error) {
	claims := jwt.MapClaims{}
	token, err := jwt.ParseWithClaims(rawToken, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return v.secret, nil
	})
	if err != nil {
		return nil, fmt.Errorf("token verification failed: %w", err)
	}
	if !token.Valid {
		return nil, fmt.Errorf("token is not valid")
	}

	if v.issuer != "" && !claims.VerifyIssuer(v.issuer, true) {
		return nil, fmt.Errorf("token issuer mismatch")
	}
	if v.audience != "" && !claims.VerifyAudience(v.audience, true) {
		return nil, fmt.Errorf("token audience mismatch")
	}

	return map[string]interface{}(claims), nil
}
