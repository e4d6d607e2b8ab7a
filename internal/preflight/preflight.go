// Package preflight validates the environment before a run touches the
// manifest: directory permissions, free space, and catalog credentials.
package preflight

import (
	"fmt"
	"path/filepath"

	"gogvault/internal/config"
)

// Result reports the outcome of a single preflight check.
type Result struct {
	Name   string
	Passed bool
	Detail string
}

// RunAll executes all applicable checks for the given config.
func RunAll(cfg *config.Config) []Result {
	if cfg == nil {
		return nil
	}

	var results []Result

	// The manifest directory is always written to.
	results = append(results, CheckDirectoryAccess("Manifest directory", filepath.Dir(cfg.Paths.ManifestPath)))

	if cfg.Paths.LibraryDir != "" {
		results = append(results, CheckDirectoryAccess("Library directory", cfg.Paths.LibraryDir))
		results = append(results, CheckFreeSpace("Library free space", cfg.Paths.LibraryDir, cfg.Fetch.MinFreeSpaceGiB))
	}

	results = append(results, checkToken(cfg))
	return results
}

// AllPassed reports whether every result passed.
func AllPassed(results []Result) bool {
	for _, r := range results {
		if !r.Passed {
			return false
		}
	}
	return true
}

func checkToken(cfg *config.Config) Result {
	const name = "Catalog token"
	if cfg.GOG.Token == "" {
		return Result{Name: name, Detail: "missing (set gog.token in the config file)"}
	}
	return Result{Name: name, Passed: true, Detail: "configured"}
}

func describe(path, detail string) string {
	return fmt.Sprintf("%s (%s)", path, detail)
}
