// Package repository defines error values that are reused across
// repositories. These sentinels allow higher layers such as services and
// handlers to distinguish failure scenarios without inspecting driver
// errors. ErrNotFound deliberately covers missing, expired and revoked
// refresh tokens alike so callers cannot tell a forged token from a stale
// one.
package repository

import "errors"

// ErrNotFound is returned when a lookup matches no usable row. For refresh
// tokens this includes rows that exist but are revoked or expired.
var ErrNotFound = errors.New("not found")

// ErrEmailExists is returned when an insert would violate the unique email
// constraint. Handlers should translate this into an HTTP 409 response.
var ErrEmailExists = errors.New("email already exists")
