package ledger

import "errors"

// ErrDuplicateKey indicates the (key, actor, mutation_type) triple already
// exists. A caller that raced another attempt should retry its lookup rather
// than surface this error.
var ErrDuplicateKey = errors.New("idempotency record already exists")
