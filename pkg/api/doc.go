// Package api assembles the HTTP surface: per-resource CRUD routes under
// config-driven prefixes, the navigation and userpermissions endpoints,
// and the model-agnostic passthrough API. Every route runs behind the
// same chain: request logging, panic recovery, CORS, bearer-token
// verification, permission snapshot attachment, then the per-route gate.
package api
