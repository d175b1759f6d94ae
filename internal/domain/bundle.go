package domain

import "fmt"

// BundleKind distinguishes the two offline-bundle shapes. Exactly one of the
// corresponding reference fields (route id / region id) is set.
type BundleKind string

const (
	BundleKindRoute  BundleKind = "route"
	BundleKindRegion BundleKind = "region"
)

// BundleStatus is the lifecycle state of an offline bundle.
// Transitions: queued -> downloading -> {complete, failed}; queued -> failed.
// complete and failed are terminal.
type BundleStatus string

const (
	BundleQueued      BundleStatus = "queued"
	BundleDownloading BundleStatus = "downloading"
	BundleComplete    BundleStatus = "complete"
	BundleFailed      BundleStatus = "failed"
)

func (s BundleStatus) Valid() bool {
	switch s {
	case BundleQueued, BundleDownloading, BundleComplete, BundleFailed:
		return true
	default:
		return false
	}
}

// Terminal reports whether no further transitions are allowed out of s.
func (s BundleStatus) Terminal() bool {
	return s == BundleComplete || s == BundleFailed
}

// CanTransition reports whether the downloader may move a bundle from one
// status to another. Self-transitions are allowed for downloading so the
// downloader can report progress without changing state.
func CanTransition(from, to BundleStatus) bool {
	switch from {
	case BundleQueued:
		return to == BundleDownloading || to == BundleFailed
	case BundleDownloading:
		return to == BundleDownloading || to == BundleComplete || to == BundleFailed
	default:
		return false
	}
}

// ValidateBundleState enforces the joint (status, progress) invariant:
//
//	queued      => progress == 0
//	downloading => 0 < progress < 1
//	complete    => progress == 1
//	failed      => progress in [0, 1] (partial progress preserved for diagnostics)
func ValidateBundleState(status BundleStatus, progress float64) error {
	switch status {
	case BundleQueued:
		if progress != 0 {
			return fmt.Errorf("queued bundle must have progress 0, got %v", progress)
		}
	case BundleDownloading:
		if progress <= 0 || progress >= 1 {
			return fmt.Errorf("downloading bundle must have progress in (0,1), got %v", progress)
		}
	case BundleComplete:
		if progress != 1 {
			return fmt.Errorf("complete bundle must have progress 1, got %v", progress)
		}
	case BundleFailed:
		if progress < 0 || progress > 1 {
			return fmt.Errorf("failed bundle progress out of range: %v", progress)
		}
	default:
		return fmt.Errorf("unknown bundle status %q", status)
	}
	return nil
}

// BoundingBox is [min_lng, min_lat, max_lng, max_lat].
type BoundingBox [4]float64

func (b BoundingBox) MinLng() float64 { return b[0] }
func (b BoundingBox) MinLat() float64 { return b[1] }
func (b BoundingBox) MaxLng() float64 { return b[2] }
func (b BoundingBox) MaxLat() float64 { return b[3] }

func (b BoundingBox) Validate() error {
	if b[0] < -180 || b[0] > 180 || b[2] < -180 || b[2] > 180 {
		return fmt.Errorf("longitude out of range [-180,180]")
	}
	if b[1] < -90 || b[1] > 90 || b[3] < -90 || b[3] > 90 {
		return fmt.Errorf("latitude out of range [-90,90]")
	}
	if b[0] > b[2] {
		return fmt.Errorf("min_lng greater than max_lng")
	}
	if b[1] > b[3] {
		return fmt.Errorf("min_lat greater than max_lat")
	}
	return nil
}

// BundleSpec is the validated creation request for an offline bundle.
// No queued row may ever exist for a spec that fails Validate.
type BundleSpec struct {
	Kind     BundleKind
	RouteID  *RouteID
	RegionID *string
	Bounds   BoundingBox
	MinZoom  int
	MaxZoom  int
}

func (s BundleSpec) Validate() error {
	switch s.Kind {
	case BundleKindRoute:
		if s.RouteID == nil || *s.RouteID == "" {
			return fmt.Errorf("route bundle requires route_id")
		}
		if s.RegionID != nil {
			return fmt.Errorf("route bundle must not set region_id")
		}
	case BundleKindRegion:
		if s.RegionID == nil || *s.RegionID == "" {
			return fmt.Errorf("region bundle requires region_id")
		}
		if s.RouteID != nil {
			return fmt.Errorf("region bundle must not set route_id")
		}
	default:
		return fmt.Errorf("unknown bundle kind %q", s.Kind)
	}
	if err := s.Bounds.Validate(); err != nil {
		return err
	}
	if s.MinZoom < 0 || s.MinZoom > 255 || s.MaxZoom < 0 || s.MaxZoom > 255 {
		return fmt.Errorf("zoom out of range [0,255]")
	}
	if s.MinZoom > s.MaxZoom {
		return fmt.Errorf("min_zoom greater than max_zoom")
	}
	return nil
}

// Owner identifies who an offline bundle belongs to: a registered user, or a
// bare device for anonymous flows. Exactly one field is set.
type Owner struct {
	UserID   UserID
	DeviceID DeviceID
}

func (o Owner) Validate() error {
	if (o.UserID == "") == (o.DeviceID == "") {
		return fmt.Errorf("owner must be exactly one of user or device")
	}
	return nil
}

// Actor returns the identity used for idempotency-ledger scoping.
func (o Owner) Actor() ActorID {
	if o.UserID != "" {
		return o.UserID.Actor()
	}
	return o.DeviceID.Actor()
}
