package routerepo

import "errors"

var (
	ErrNotFound      = errors.New("route not found")
	ErrAlreadyExists = errors.New("route already exists")
)
