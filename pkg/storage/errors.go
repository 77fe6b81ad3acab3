package storage

import "errors"

// ErrNotFound indicates the requested row does not exist. Handlers map it
// to 404; a delete of a missing row reports it rather than silently
// succeeding.
var ErrNotFound = errors.New("not found")
