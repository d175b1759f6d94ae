package storage

import (
	"encoding/json"

	"github.com/wayfarer-travel/wayfarer-api/internal/ports/out/bundlerepo"
	"github.com/wayfarer-travel/wayfarer-api/internal/ports/out/ledger"
	"github.com/wayfarer-travel/wayfarer-api/internal/ports/out/noterepo"
	"github.com/wayfarer-travel/wayfarer-api/internal/ports/out/prefsrepo"
	"github.com/wayfarer-travel/wayfarer-api/internal/ports/out/progressrepo"
	"github.com/wayfarer-travel/wayfarer-api/internal/ports/out/routerepo"
)

func cloneRecord(r ledger.Record) ledger.Record {
	cp := r
	if r.Response != nil {
		cp.Response = append(json.RawMessage(nil), r.Response...)
	}
	return cp
}

func cloneNote(n noterepo.Note) noterepo.Note {
	cp := n
	cp.Rating = cloneIntPtr(n.Rating)
	return cp
}

func cloneProgress(p progressrepo.Progress) progressrepo.Progress {
	cp := p
	if p.CompletedStopIDs != nil {
		cp.CompletedStopIDs = append([]string(nil), p.CompletedStopIDs...)
	}
	cp.LastStopID = cloneStringPtr(p.LastStopID)
	return cp
}

func clonePreferences(p prefsrepo.Preferences) prefsrepo.Preferences {
	cp := p
	if p.Interests != nil {
		cp.Interests = append([]string(nil), p.Interests...)
	}
	if p.Avoid != nil {
		cp.Avoid = append([]string(nil), p.Avoid...)
	}
	return cp
}

func cloneRoute(r routerepo.Route) routerepo.Route {
	cp := r
	if r.StopIDs != nil {
		cp.StopIDs = append([]string(nil), r.StopIDs...)
	}
	return cp
}

func cloneBundle(b bundlerepo.Bundle) bundlerepo.Bundle {
	cp := b
	if b.RouteID != nil {
		v := *b.RouteID
		cp.RouteID = &v
	}
	cp.RegionID = cloneStringPtr(b.RegionID)
	return cp
}

func cloneStringPtr(p *string) *string {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}

func cloneIntPtr(p *int) *int {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}
