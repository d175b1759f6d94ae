package domain

// UserID is an internal identifier for a registered traveler.
type UserID string

// DeviceID identifies an anonymous device. It is only used for offline-bundle
// ownership where a registered account is not required.
type DeviceID string

// ActorID scopes idempotency-ledger entries: a user id for authenticated
// mutations, or a device id for anonymous bundle flows. The prefix keeps the
// two namespaces disjoint even if a device id ever equals a user id.
type ActorID string

func (u UserID) Actor() ActorID {
	if u == "" {
		return ""
	}
	return ActorID("u:" + string(u))
}

func (d DeviceID) Actor() ActorID {
	if d == "" {
		return ""
	}
	return ActorID("d:" + string(d))
}

// NoteID is an internal identifier for a traveler note.
type NoteID string

// RouteID is an internal identifier for a saved route.
type RouteID string

// BundleID is an internal identifier for an offline bundle.
type BundleID string

// POIID is an internal identifier for a catalogue point of interest.
type POIID string
