package manifest

import (
	"log/slog"
	"time"

	"gogvault/internal/catalog"
	"gogvault/internal/logging"
)

// Merge builds the next local record for an item from a freshly fetched
// remote detail. Remote fields always win except for the locally owned ones:
// folder_name and per-file verification state survive the merge unless the
// item is new. The strict flags control whether a newer remote timestamp
// marks surviving files for re-download.
func Merge(old *Item, product catalog.Product, detail catalog.Detail, strictDownloads, strictExtras bool, logger *slog.Logger) *Item {
	if logger == nil {
		logger = logging.NewNop()
	}

	next := &Item{
		ID:                detail.ID,
		Slug:              detail.Slug,
		Title:             detail.Title,
		Hidden:            product.Hidden || detail.Hidden,
		Serials:           detail.Serials,
		Changelog:         detail.Changelog,
		Released:          detail.Released,
		Downloads:         filesFromEntries(detail.Downloads),
		Extras:            filesFromEntries(detail.Extras),
		DownloadsUpdated:  detail.DownloadsUpdated,
		ExtrasUpdated:     detail.ExtrasUpdated,
		DownloadsChecksum: detail.DownloadsChecksum,
		ExtrasChecksum:    detail.ExtrasChecksum,
	}
	if next.Slug == "" {
		next.Slug = product.Slug
	}
	if next.Title == "" {
		next.Title = product.Title
	}

	if old == nil {
		// New item: every file needs fetching, folder assignment happens
		// during name reconciliation.
		next.ForceAllChanges()
		return next
	}

	next.FolderName = old.FolderName

	if old.Slug != next.Slug {
		logger.Info("slug changed",
			logging.Int64(logging.FieldItemID, next.ID),
			logging.String("old", old.Slug),
			logging.String("new", next.Slug))
	}
	if old.Changelog != next.Changelog && next.Changelog != "" {
		logger.Debug("changelog updated", logging.Int64(logging.FieldItemID, next.ID))
	}

	mergeFiles(old.allFiles(), next.Downloads, strictDownloads, next.Slug, logger)
	mergeFiles(old.Extras, next.Extras, strictExtras, next.Slug, logger)
	return next
}

func (i *Item) allFiles() []File {
	files := make([]File, 0, len(i.Downloads)+len(i.Extras))
	files = append(files, i.Downloads...)
	files = append(files, i.Extras...)
	return files
}

func filesFromEntries(entries []catalog.FileEntry) []File {
	files := make([]File, len(entries))
	for i, e := range entries {
		files[i] = File{
			Name:       e.Name,
			Desc:       e.Desc,
			OSType:     e.OSType,
			Lang:       e.Lang,
			Version:    e.Version,
			Href:       e.Href,
			MD5:        e.MD5,
			Size:       e.Size,
			Updated:    e.Updated,
			Unreleased: e.Unreleased,
		}
	}
	return files
}

// mergeFiles carries local verification state from old files onto the
// incoming ones and decides which incoming files must be re-downloaded.
func mergeFiles(oldFiles, newFiles []File, strict bool, slug string, logger *slog.Logger) {
	for i := range newFiles {
		nf := &newFiles[i]
		candidate := findCandidate(oldFiles, nf, strict)
		if candidate == nil {
			// No prior record, presume changed.
			nf.ForceChange = true
			continue
		}

		nf.LocalMD5 = candidate.LocalMD5
		nf.PrevVerified = candidate.PrevVerified
		nf.OldUpdated = candidate.OldUpdated
		nf.ForceChange = candidate.ForceChange

		newest, newer := newestUpdate(nf.Updated, nf.OldUpdated)

		if candidate.Name != nf.Name {
			logger.Info("file renamed upstream",
				logging.String("slug", slug),
				logging.String("old", candidate.Name),
				logging.String("new", nf.Name))
			nf.OldName = candidate.Name
		}

		sameContent := candidate.MD5 != "" && candidate.MD5 == nf.MD5 && candidate.Size == nf.Size
		if sameContent || (nf.Unreleased && candidate.Unreleased) {
			// Content provably unchanged, keep the newest timestamp only.
			nf.Updated = newest
			nf.OldUpdated = newest
			continue
		}
		if strict {
			nf.Updated = newest
			if newer {
				logger.Info("file marked for change",
					logging.String("slug", slug),
					logging.String("name", nf.Name))
				nf.ForceChange = true
			}
		}
	}
}

// newestUpdate resolves the effective timestamp for a file and reports
// whether the remote side moved it forward. A missing remote timestamp is
// treated as a change: it usually means the entry was replaced.
func newestUpdate(updated, oldUpdated time.Time) (time.Time, bool) {
	switch {
	case updated.IsZero():
		return oldUpdated, true
	case oldUpdated.IsZero():
		return updated, false
	case updated.After(oldUpdated):
		return updated, true
	default:
		return oldUpdated, false
	}
}

// findCandidate locates the old file a new entry corresponds to. Checksum
// matches win: an exact checksum+name match returns immediately, a checksum
// match under a different name records a rename. Failing that, a name match
// carries the history of a file updated in place, with verified status
// dropped whenever the recorded content no longer provably matches.
func findCandidate(oldFiles []File, nf *File, strict bool) *File {
	var renamed, nameMatch *File
	for idx := range oldFiles {
		of := &oldFiles[idx]
		if of.MD5 != "" && of.MD5 == nf.MD5 && of.Size == nf.Size && of.Lang == nf.Lang {
			if of.Name == nf.Name {
				return of
			}
			if renamed == nil {
				renamed = of
			}
			continue
		}
		if of.Name == nf.Name && of.Lang == nf.Lang && nameMatch == nil {
			nameMatch = of
		}
	}
	if renamed != nil {
		return renamed
	}
	if nameMatch == nil {
		return nil
	}
	weak := *nameMatch
	if nameMatch.MD5 != nf.MD5 || nameMatch.Size != nf.Size {
		weak.PrevVerified = false
	} else if strict && nameMatch.MD5 == "" {
		weak.PrevVerified = false
	}
	return &weak
}
