package noterepo

import "errors"

var ErrNotFound = errors.New("note not found")
