// Package repository holds the persistence layer for accounts and revoked
// tokens.  The sentinel values below let higher layers distinguish failure
// scenarios with errors.Is; any other error is a system failure.
package repository

import "errors"

// ErrNotFound is returned when no row matches a lookup, or when a
// conditional update (such as consuming a reset token) touched no row.
var ErrNotFound = errors.New("not found")

// ErrEmailExists is returned by Create when the unique email index
// rejects the insert.  Handlers translate it into a validation message.
var ErrEmailExists = errors.New("email already exists")
