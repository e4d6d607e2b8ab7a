package filter

import (
	"strconv"
	"time"

	"gogvault/internal/catalog"
)

// ChangeDetection selects how "changed" is decided for items when neither
// strict flag is set.
type ChangeDetection string

const (
	// DetectRemoteFlag trusts the catalog's updates hint.
	DetectRemoteFlag ChangeDetection = "remote-flag"
	// DetectTimestamp compares listing timestamps against the stored baseline.
	DetectTimestamp ChangeDetection = "timestamp"
)

// Baseline is the slice of local manifest state the filter needs to evaluate
// skip-known and change predicates. Carrying it inside the filter keeps
// Matches a pure function of (item, filter).
type Baseline struct {
	HasMetadata       bool
	Hidden            bool
	DownloadsUpdated  time.Time
	ExtrasUpdated     time.Time
	DownloadsChecksum string
	ExtrasChecksum    string
}

// GameFilter is a pure selection value. Include and Exclude entries match a
// numeric id or a slug. When both SkipKnown and UpdateOnly are set the item
// passes if it is new OR changed.
type GameFilter struct {
	Include         []string
	Exclude         []string
	SkipKnown       bool
	UpdateOnly      bool
	SkipHidden      bool
	StrictDownloads bool
	StrictExtras    bool
	Detection       ChangeDetection
	Known           map[int64]Baseline
}

// Matches reports whether the product passes all active criteria. Explicit
// exclusion always wins, then explicit inclusion restricts, then the
// new/changed predicates, then visibility.
func (f GameFilter) Matches(p catalog.Product) bool {
	for _, value := range f.Exclude {
		if matchesID(p, value) {
			return false
		}
	}

	if len(f.Include) > 0 {
		found := false
		for _, value := range f.Include {
			if matchesID(p, value) {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}

	if f.SkipHidden && f.isHidden(p) {
		return false
	}

	switch {
	case f.SkipKnown && f.UpdateOnly:
		return f.isNew(p) || f.isChanged(p)
	case f.SkipKnown:
		return f.isNew(p)
	case f.UpdateOnly:
		return f.isChanged(p)
	}
	return true
}

// Apply filters a product list, preserving order.
func (f GameFilter) Apply(products []catalog.Product) []catalog.Product {
	selected := make([]catalog.Product, 0, len(products))
	for _, p := range products {
		if f.Matches(p) {
			selected = append(selected, p)
		}
	}
	return selected
}

func matchesID(p catalog.Product, value string) bool {
	if value == "" {
		return false
	}
	if p.Slug == value {
		return true
	}
	return strconv.FormatInt(p.ID, 10) == value
}

func (f GameFilter) isHidden(p catalog.Product) bool {
	if p.Hidden {
		return true
	}
	if base, ok := f.Known[p.ID]; ok {
		return base.Hidden
	}
	return false
}

// isNew reports whether the local manifest has no usable record for the item.
func (f GameFilter) isNew(p catalog.Product) bool {
	base, ok := f.Known[p.ID]
	return !ok || !base.HasMetadata
}

// isChanged applies the strict comparison predicates when any strict flag is
// set, otherwise defers to the configured change detector. Items with no
// local baseline have nothing to compare against and are not "changed";
// newness is a separate predicate.
func (f GameFilter) isChanged(p catalog.Product) bool {
	base, ok := f.Known[p.ID]
	if !ok || !base.HasMetadata {
		return false
	}

	if f.StrictDownloads || f.StrictExtras {
		if f.StrictDownloads && categoryChanged(p.DownloadsUpdated, base.DownloadsUpdated, p.DownloadsChecksum, base.DownloadsChecksum) {
			return true
		}
		if f.StrictExtras && categoryChanged(p.ExtrasUpdated, base.ExtrasUpdated, p.ExtrasChecksum, base.ExtrasChecksum) {
			return true
		}
		return false
	}

	switch f.Detection {
	case DetectTimestamp:
		return categoryChanged(p.DownloadsUpdated, base.DownloadsUpdated, p.DownloadsChecksum, base.DownloadsChecksum) ||
			categoryChanged(p.ExtrasUpdated, base.ExtrasUpdated, p.ExtrasChecksum, base.ExtrasChecksum)
	default:
		return p.HasUpdates
	}
}

func categoryChanged(remoteUpdated, localUpdated time.Time, remoteChecksum, localChecksum string) bool {
	if !remoteUpdated.IsZero() && remoteUpdated.After(localUpdated) {
		return true
	}
	if remoteChecksum != "" && localChecksum != "" && remoteChecksum != localChecksum {
		return true
	}
	return false
}
