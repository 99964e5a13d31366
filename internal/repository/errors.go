// Package repository defines error types that are reused across multiple
// repositories. These sentinel values allow higher layers such as the
// session coordinator and handlers to distinguish between different failure
// scenarios without depending on driver-specific errors.
package repository

import "errors"

// ErrStoreUnavailable wraps any transport failure of the token store. It must
// propagate as a hard failure on refresh, logout, and revocation checks:
// masking it could leave a revoked or rotated token usable.
var ErrStoreUnavailable = errors.New("token store unavailable")

// ErrRefreshNotFound is returned when a subject has no live refresh record,
// either because it expired naturally or because logout deleted it.
var ErrRefreshNotFound = errors.New("refresh record not found")

// ErrUserNotFound is returned when no subject matches the given id or email.
var ErrUserNotFound = errors.New("user not found")

// ErrEmailExists is returned on registration when the email is already taken.
var ErrEmailExists = errors.New("email already exists")
