// Package config loads Aspect configuration from ASPECT_* environment
// variables and validates it at boot. Missing required values (database
// file, CORS origin, auth issuer/audience/algorithm, endpoint prefixes)
// fail startup rather than the first request.
package config
