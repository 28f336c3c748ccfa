// Package repository defines error values shared across multiple
// repositories so higher layers can distinguish failure scenarios.
package repository

import "errors"

// ErrConflict is returned when a delete or update cannot be
// performed because of conflicting state, such as removing a
// restaurant while it has an active call.  Handlers should
// translate this into an HTTP 409 response.
var ErrConflict = errors.New("conflict")
