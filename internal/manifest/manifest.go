package manifest

import (
	"sort"
	"time"
)

// SchemaVersion is embedded in every saved manifest and checked on load.
const SchemaVersion = 1

// ResumeSchemaVersion is embedded in every resume checkpoint. A checkpoint
// with a different version is never consumed silently.
const ResumeSchemaVersion = 1

// File is the local record for one remote file entry plus the locally owned
// verification state that merges must preserve.
type File struct {
	Name       string    `json:"name"`
	Desc       string    `json:"desc,omitempty"`
	OSType     string    `json:"os_type,omitempty"`
	Lang       string    `json:"lang,omitempty"`
	Version    string    `json:"version,omitempty"`
	Href       string    `json:"href,omitempty"`
	MD5        string    `json:"md5,omitempty"`
	Size       int64     `json:"size"`
	Updated    time.Time `json:"updated,omitzero"`
	Unreleased bool      `json:"unreleased,omitempty"`

	// Locally computed; never overwritten by a merge.
	LocalMD5     string    `json:"local_md5,omitempty"`
	PrevVerified bool      `json:"prev_verified,omitempty"`
	OldName      string    `json:"old_name,omitempty"`
	OldUpdated   time.Time `json:"old_updated,omitzero"`
	ForceChange  bool      `json:"force_change,omitempty"`
}

// Item is the local-truth record for one owned catalog item.
type Item struct {
	ID         int64             `json:"id"`
	Slug       string            `json:"slug"`
	Title      string            `json:"title"`
	Hidden     bool              `json:"hidden,omitempty"`
	FolderName string            `json:"folder_name"`
	Serials    map[string]string `json:"serials,omitempty"`
	Changelog  string            `json:"changelog,omitempty"`
	Released   time.Time         `json:"released,omitzero"`

	Downloads []File `json:"downloads"`
	Extras    []File `json:"extras"`

	DownloadsUpdated  time.Time `json:"downloads_updated,omitzero"`
	ExtrasUpdated     time.Time `json:"extras_updated,omitzero"`
	DownloadsChecksum string    `json:"downloads_checksum,omitempty"`
	ExtrasChecksum    string    `json:"extras_checksum,omitempty"`
}

// HasMetadata reports whether the item carries merged detail data, as opposed
// to a bare listing stub.
func (i *Item) HasMetadata() bool {
	if i == nil {
		return false
	}
	return len(i.Downloads) > 0 || len(i.Extras) > 0 || !i.Released.IsZero()
}

// ForceAllChanges marks every file of the item for re-download.
func (i *Item) ForceAllChanges() {
	for idx := range i.Downloads {
		i.Downloads[idx].ForceChange = true
	}
	for idx := range i.Extras {
		i.Extras[idx].ForceChange = true
	}
}

// Manifest is the versioned collection of local items, kept ordered by id.
// Item ids are unique; folder names are unique across non-hidden items.
type Manifest struct {
	Version int     `json:"manifest_version"`
	Items   []*Item `json:"items"`
}

// New returns an empty manifest at the current schema version.
func New() *Manifest {
	return &Manifest{Version: SchemaVersion}
}

// Get returns the item with the given id, or nil.
func (m *Manifest) Get(id int64) *Item {
	idx := m.index(id)
	if idx < 0 {
		return nil
	}
	return m.Items[idx]
}

// Put inserts or replaces an item, keeping the collection ordered by id.
func (m *Manifest) Put(item *Item) {
	if item == nil {
		return
	}
	idx := m.index(item.ID)
	if idx >= 0 {
		m.Items[idx] = item
		return
	}
	m.Items = append(m.Items, item)
	sort.Slice(m.Items, func(a, b int) bool { return m.Items[a].ID < m.Items[b].ID })
}

// Remove deletes the item with the given id and reports whether it existed.
func (m *Manifest) Remove(id int64) bool {
	idx := m.index(id)
	if idx < 0 {
		return false
	}
	m.Items = append(m.Items[:idx], m.Items[idx+1:]...)
	return true
}

// Len returns the number of items.
func (m *Manifest) Len() int {
	return len(m.Items)
}

func (m *Manifest) index(id int64) int {
	idx := sort.Search(len(m.Items), func(i int) bool { return m.Items[i].ID >= id })
	if idx < len(m.Items) && m.Items[idx].ID == id {
		return idx
	}
	return -1
}

// ResumeState is the mid-run checkpoint persisted separately from the
// manifest. It records which work-list items have already been merged so an
// interrupted run can continue without refetching them.
type ResumeState struct {
	Version    int       `json:"resume_version"`
	RunID      string    `json:"run_id"`
	Strategy   string    `json:"strategy"`
	IncludeIDs []string  `json:"include_ids,omitempty"`
	ExcludeIDs []string  `json:"exclude_ids,omitempty"`
	MergedIDs  []int64   `json:"merged_ids"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// MergedSet returns the merged ids as a set.
func (r *ResumeState) MergedSet() map[int64]struct{} {
	set := make(map[int64]struct{}, len(r.MergedIDs))
	for _, id := range r.MergedIDs {
		set[id] = struct{}{}
	}
	return set
}
