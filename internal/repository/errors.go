package repository

import "errors"

// ErrNotFound is returned when an entity is absent or not owned by the
// requesting user. Callers detect it with errors.Is.
var ErrNotFound = errors.New("not found")
