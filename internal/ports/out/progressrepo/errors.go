package progressrepo

import "errors"

var ErrNotFound = errors.New("progress not found")
