package convstate

import "errors"

// ErrNotFound is returned when a user has no stored record.
var ErrNotFound = errors.New("not found")
