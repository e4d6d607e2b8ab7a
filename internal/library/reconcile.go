package library

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"gogvault/internal/logging"
	"gogvault/internal/manifest"
)

// RenameError records a folder move that failed. The item keeps its old
// folder name so the next run can retry.
type RenameError struct {
	ItemID int64
	From   string
	To     string
	Err    error
}

func (e RenameError) Error() string {
	return fmt.Sprintf("rename %q to %q for item %d: %v", e.From, e.To, e.ItemID, e.Err)
}

func (e RenameError) Unwrap() error { return e.Err }

// Reconciler keeps manifest folder names unique across visible items and
// moves library directories when names change.
type Reconciler struct {
	root   string
	logger *slog.Logger
}

// NewReconciler creates a reconciler rooted at the library directory.
func NewReconciler(root string, logger *slog.Logger) *Reconciler {
	return &Reconciler{
		root:   root,
		logger: logging.NewComponentLogger(logger, "library"),
	}
}

// Reconcile recomputes desired folder names from current titles and applies
// them. Within a name collision group the lowest id keeps the bare name and
// the rest get an id suffix, so assignment never depends on merge order.
// Hidden items keep whatever name they have and do not participate in
// uniqueness. Failed or blocked moves leave the old name in place.
func (r *Reconciler) Reconcile(m *manifest.Manifest) []RenameError {
	if m == nil {
		return nil
	}
	desired := desiredNames(m)

	var failures []RenameError
	for _, item := range m.Items {
		want, ok := desired[item.ID]
		if !ok || item.FolderName == want {
			continue
		}
		if item.FolderName == "" {
			// First sighting, nothing on disk yet.
			item.FolderName = want
			continue
		}

		from := filepath.Join(r.root, item.FolderName)
		to := filepath.Join(r.root, want)

		if _, err := os.Stat(from); err != nil {
			// No directory to move, adopt the new name directly.
			item.FolderName = want
			continue
		}
		if _, err := os.Stat(to); err == nil {
			// Target occupied by a directory the manifest does not own.
			// Leave both alone rather than merging unrelated content.
			r.logger.Warn("rename target already exists, keeping old folder",
				logging.Int64(logging.FieldItemID, item.ID),
				logging.String("old", item.FolderName),
				logging.String("new", want))
			continue
		}
		if err := os.Rename(from, to); err != nil {
			failures = append(failures, RenameError{ItemID: item.ID, From: from, To: to, Err: err})
			continue
		}
		r.logger.Info("folder renamed",
			logging.Int64(logging.FieldItemID, item.ID),
			logging.String("old", item.FolderName),
			logging.String("new", want))
		item.FolderName = want
	}
	return failures
}

func desiredNames(m *manifest.Manifest) map[int64]string {
	groups := make(map[string][]int64)
	for _, item := range m.Items {
		if item.Hidden {
			continue
		}
		source := item.Title
		if strings.TrimSpace(source) == "" {
			source = item.Slug
		}
		base := FolderName(source)
		groups[base] = append(groups[base], item.ID)
	}

	desired := make(map[int64]string, m.Len())
	for base, ids := range groups {
		sort.Slice(ids, func(a, b int) bool { return ids[a] < ids[b] })
		for i, id := range ids {
			if i == 0 {
				desired[id] = base
			} else {
				desired[id] = base + "_" + strconv.FormatInt(id, 10)
			}
		}
	}
	return desired
}
