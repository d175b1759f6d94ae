package prefsrepo

import "errors"

var ErrNotFound = errors.New("preferences not found")
