package errs

import "errors"

var (
	ErrBadRequest   = errors.New("bad request")
	ErrUnauthorized = errors.New("unauthorized")
	ErrNotFound     = errors.New("not found")
	ErrInternal     = errors.New("internal error")
	ErrRateLimited  = errors.New("rate limited")
	ErrValidation   = errors.New("validation failed")
)
