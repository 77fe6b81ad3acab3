// Package auth verifies bearer tokens and materializes the request
// Principal. RS256 tokens are verified through OIDC issuer discovery;
// HS256 tokens against a local shared secret. The OAuth handshake itself
// happens elsewhere; this package only consumes its result.
package auth
