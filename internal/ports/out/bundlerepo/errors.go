package bundlerepo

import "errors"

var (
	ErrNotFound      = errors.New("bundle not found")
	ErrAlreadyExists = errors.New("bundle already exists")
)
