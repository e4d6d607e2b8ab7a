package catalog

import (
	"context"
	"time"
)

// Product is one record from the paginated owned-items listing. It carries
// only what selection needs; the full record arrives later as a Detail.
type Product struct {
	ID         int64
	Slug       string
	Title      string
	Hidden     bool
	HasUpdates bool

	// Per-category change hints reported by the listing. Zero values mean
	// the remote did not report them.
	DownloadsUpdated  time.Time
	ExtrasUpdated     time.Time
	DownloadsChecksum string
	ExtrasChecksum    string
}

// Page is one slice of the owned-items listing. Next is an opaque
// continuation cursor; empty means the listing is exhausted.
type Page struct {
	Products []Product
	Next     string
}

// FileEntry describes a single remote file within a category. DLC files are
// flattened into their parent item's categories.
type FileEntry struct {
	Name       string
	Desc       string
	OSType     string
	Lang       string
	Version    string
	Href       string
	MD5        string
	Size       int64
	Updated    time.Time
	Unreleased bool
}

// Detail is the full remote record for a single owned item.
type Detail struct {
	ID        int64
	Slug      string
	Title     string
	Hidden    bool
	Serials   map[string]string
	Changelog string
	Released  time.Time

	Downloads []FileEntry
	Extras    []FileEntry

	DownloadsUpdated  time.Time
	ExtrasUpdated     time.Time
	DownloadsChecksum string
	ExtrasChecksum    string
}

// Client is the remote catalog collaborator. Implementations must classify
// failures with the markers in internal/services so the engine can
// distinguish transient per-item failures from systemic ones.
type Client interface {
	// ListOwned returns one page of the owned-items listing. Pass an empty
	// cursor for the first page; a returned Page with an empty Next cursor
	// ends the listing.
	ListOwned(ctx context.Context, cursor string) (Page, error)

	// ItemDetail fetches the full record for a single item.
	ItemDetail(ctx context.Context, id int64) (Detail, error)
}
