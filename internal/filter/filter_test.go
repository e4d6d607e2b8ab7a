package filter_test

import (
	"testing"
	"time"

	"gogvault/internal/catalog"
	"gogvault/internal/filter"
)

func product(id int64, slug string) catalog.Product {
	return catalog.Product{ID: id, Slug: slug}
}

func TestExcludeAlwaysWins(t *testing.T) {
	f := filter.GameFilter{
		Include: []string{"witcher_3"},
		Exclude: []string{"witcher_3"},
	}
	if f.Matches(product(1, "witcher_3")) {
		t.Fatal("excluded item must never match, even when included")
	}
}

func TestIncludeRestrictsBySlugOrID(t *testing.T) {
	f := filter.GameFilter{Include: []string{"witcher_3", "42"}}
	if !f.Matches(product(1, "witcher_3")) {
		t.Fatal("expected slug match")
	}
	if !f.Matches(product(42, "other_game")) {
		t.Fatal("expected numeric id match")
	}
	if f.Matches(product(7, "unrelated")) {
		t.Fatal("expected non-member to be rejected")
	}
}

func TestSkipKnownExcludesItemsWithMetadata(t *testing.T) {
	f := filter.GameFilter{
		SkipKnown: true,
		Known: map[int64]filter.Baseline{
			1: {HasMetadata: true},
			2: {HasMetadata: false},
		},
	}
	if f.Matches(product(1, "known")) {
		t.Fatal("known item with metadata should be skipped")
	}
	if !f.Matches(product(2, "stub")) {
		t.Fatal("known item without metadata counts as new")
	}
	if !f.Matches(product(3, "unseen")) {
		t.Fatal("unseen item counts as new")
	}
}

func TestUpdateOnlyStrictDownloadsTimestamp(t *testing.T) {
	base := time.Date(2026, 1, 10, 0, 0, 0, 0, time.UTC)
	f := filter.GameFilter{
		UpdateOnly:      true,
		StrictDownloads: true,
		Known: map[int64]filter.Baseline{
			5: {HasMetadata: true, DownloadsUpdated: base},
		},
	}

	changed := catalog.Product{ID: 5, Slug: "game", DownloadsUpdated: base.Add(time.Hour)}
	if !f.Matches(changed) {
		t.Fatal("newer downloads timestamp must select the item")
	}

	unchanged := catalog.Product{ID: 5, Slug: "game", DownloadsUpdated: base}
	if f.Matches(unchanged) {
		t.Fatal("unchanged item must not be selected")
	}

	// Strict downloads only: an extras-side change is invisible.
	extrasOnly := catalog.Product{ID: 5, Slug: "game", DownloadsUpdated: base, ExtrasUpdated: base.Add(time.Hour)}
	if f.Matches(extrasOnly) {
		t.Fatal("extras change must be ignored when only strict-downloads is set")
	}
}

func TestUpdateOnlyChecksumMismatch(t *testing.T) {
	f := filter.GameFilter{
		UpdateOnly:      true,
		StrictDownloads: true,
		Known: map[int64]filter.Baseline{
			5: {HasMetadata: true, DownloadsChecksum: "aaa"},
		},
	}
	if !f.Matches(catalog.Product{ID: 5, DownloadsChecksum: "bbb"}) {
		t.Fatal("checksum mismatch must select the item")
	}
	if f.Matches(catalog.Product{ID: 5, DownloadsChecksum: "aaa"}) {
		t.Fatal("matching checksum must not select the item")
	}
}

func TestUpdateOnlyRemoteFlagDetection(t *testing.T) {
	f := filter.GameFilter{
		UpdateOnly: true,
		Detection:  filter.DetectRemoteFlag,
		Known: map[int64]filter.Baseline{
			1: {HasMetadata: true},
		},
	}
	if !f.Matches(catalog.Product{ID: 1, HasUpdates: true}) {
		t.Fatal("remote flag should select the item")
	}
	if f.Matches(catalog.Product{ID: 1, HasUpdates: false}) {
		t.Fatal("without the remote flag the item is unchanged")
	}
	// No baseline: nothing to compare, newness is a separate predicate.
	if f.Matches(catalog.Product{ID: 9, HasUpdates: false}) {
		t.Fatal("unknown unchanged item must not be selected by update-only")
	}
}

func TestSkipHidden(t *testing.T) {
	f := filter.GameFilter{
		SkipHidden: true,
		Known: map[int64]filter.Baseline{
			2: {HasMetadata: true, Hidden: true},
		},
	}
	if f.Matches(catalog.Product{ID: 1, Hidden: true}) {
		t.Fatal("remotely hidden item should be skipped")
	}
	if f.Matches(catalog.Product{ID: 2}) {
		t.Fatal("locally hidden item should be skipped")
	}
	if !f.Matches(catalog.Product{ID: 3}) {
		t.Fatal("visible item should pass")
	}
}

func TestNewAndUpdatedIsSupersetOfNewOnlyAndChangedOnly(t *testing.T) {
	base := time.Date(2026, 1, 10, 0, 0, 0, 0, time.UTC)
	known := map[int64]filter.Baseline{
		1: {HasMetadata: true, DownloadsUpdated: base},
		2: {HasMetadata: true, DownloadsUpdated: base},
	}
	products := []catalog.Product{
		{ID: 1, Slug: "unchanged", DownloadsUpdated: base},
		{ID: 2, Slug: "changed", DownloadsUpdated: base.Add(time.Hour)},
		{ID: 3, Slug: "brand_new"},
	}

	newAndUpdated := filter.GameFilter{SkipKnown: true, UpdateOnly: true, StrictDownloads: true, StrictExtras: true, Known: known}
	newOnly := filter.GameFilter{SkipKnown: true, Known: known}
	changedOnly := filter.GameFilter{UpdateOnly: true, StrictDownloads: true, StrictExtras: true, Known: known}

	super := map[int64]struct{}{}
	for _, p := range newAndUpdated.Apply(products) {
		super[p.ID] = struct{}{}
	}
	for _, narrow := range []filter.GameFilter{newOnly, changedOnly} {
		for _, p := range narrow.Apply(products) {
			if _, ok := super[p.ID]; !ok {
				t.Fatalf("item %d selected by narrow strategy but not by new-and-updated", p.ID)
			}
		}
	}

	if got := len(newOnly.Apply(products)); got != 1 {
		t.Fatalf("new-only should select exactly the brand new item, got %d", got)
	}
	if got := len(changedOnly.Apply(products)); got != 1 {
		t.Fatalf("changed-only should select exactly the changed item, got %d", got)
	}
	if got := len(newAndUpdated.Apply(products)); got != 2 {
		t.Fatalf("new-and-updated should select new and changed items, got %d", got)
	}
}

func TestMatchesIsPure(t *testing.T) {
	f := filter.GameFilter{
		UpdateOnly:      true,
		StrictDownloads: true,
		Known:           map[int64]filter.Baseline{5: {HasMetadata: true}},
	}
	p := catalog.Product{ID: 5, DownloadsUpdated: time.Now()}
	first := f.Matches(p)
	for i := 0; i < 10; i++ {
		if f.Matches(p) != first {
			t.Fatal("Matches must be deterministic for identical inputs")
		}
	}
}
