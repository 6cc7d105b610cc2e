package storage

import "github.com/pkg/errors"

// ErrNotFound is returned when attempting to get or delete an item that does
// not exist.
var ErrNotFound = errors.New("not found")

// ErrLockHeld is returned when the state is locked by another run. The lock
// must be released before a new run can start.
var ErrLockHeld = errors.New("state is locked by another run")

// ErrVersion is returned when reading a stored record with an unsupported
// format version, written by an incompatible version of the program.
var ErrVersion = errors.New("unsupported state version")
