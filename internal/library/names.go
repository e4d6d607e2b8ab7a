package library

import (
	"strings"

	"golang.org/x/text/unicode/norm"
)

// FolderName derives the base on-disk folder name for an item title. The
// name is NFC-normalized and stripped of characters that are unsafe on
// common filesystems, so the same title always maps to the same directory.
func FolderName(title string) string {
	name := norm.NFC.String(strings.TrimSpace(title))
	var b strings.Builder
	b.Grow(len(name))
	for _, r := range name {
		switch r {
		case '/', '\\', ':', '*', '?', '"', '<', '>', '|':
			b.WriteRune('_')
		default:
			if r < 0x20 {
				continue
			}
			b.WriteRune(r)
		}
	}
	cleaned := strings.Trim(b.String(), " .")
	if cleaned == "" {
		return "untitled"
	}
	return cleaned
}
