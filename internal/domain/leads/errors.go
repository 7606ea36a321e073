package leads

import "errors"

// ErrNotFound indicates no lead exists for the given id.
var ErrNotFound = errors.New("lead not found")

// ErrInvalidEmail indicates the submitted email failed validation.
var ErrInvalidEmail = errors.New("invalid email address")
