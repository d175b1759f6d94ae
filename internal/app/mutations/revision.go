package mutations

// Revisioned is implemented by persistence records guarded by optimistic
// concurrency. Revisions start at 1 and increment by exactly 1 per write.
type Revisioned interface {
	CurrentRevision() int64
}

// Resolve applies the optimistic-concurrency contract shared by every
// revisioned entity and returns the revision to write.
//
//	entity missing, no expected revision  -> create at revision 1
//	entity missing, expected revision set -> conflict (current 0)
//	expected == current                   -> current + 1
//	anything else                         -> conflict with the authoritative
//	                                         current revision; the caller
//	                                         re-fetches and retries with
//	                                         informed intent, never auto-merged
func Resolve[E Revisioned](cur E, found bool, expected *int64) (int64, error) {
	if !found {
		if expected != nil {
			return 0, errRevisionConflict(0)
		}
		return 1, nil
	}
	current := cur.CurrentRevision()
	if expected == nil || *expected != current {
		return 0, errRevisionConflict(current)
	}
	return current + 1, nil
}
