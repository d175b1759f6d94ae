package clock

import "time"

// Clock provides time to the application. An interface keeps mutation
// timestamps and TTL arithmetic deterministic in tests.
type Clock interface {
	Now() time.Time
}
