// Package testsupport provides shared fixtures for package tests: a config
// rooted in a temp directory and an in-memory catalog client.
package testsupport

import (
	"context"
	"fmt"
	"path/filepath"
	"strconv"
	"sync"
	"testing"

	"gogvault/internal/catalog"
	"gogvault/internal/config"
	"gogvault/internal/services"
)

// NewConfig returns a validated configuration rooted in the test's temporary
// directory.
func NewConfig(t *testing.T) *config.Config {
	t.Helper()
	dir := t.TempDir()

	cfg := config.Default()
	cfg.Paths.LibraryDir = filepath.Join(dir, "library")
	cfg.Paths.ManifestPath = filepath.Join(dir, "manifest.json")
	cfg.Paths.LogDir = filepath.Join(dir, "logs")

	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("ensure directories: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("validate config: %v", err)
	}
	return &cfg
}

// FakeCatalog serves catalog pages and details from in-memory fixtures. The
// zero value is usable; populate Products and Details before handing it to
// the code under test.
type FakeCatalog struct {
	Products    []catalog.Product
	PageSize    int
	Details     map[int64]catalog.Detail
	FailDetails map[int64]error
	ListErr     error

	mu          sync.Mutex
	listCalls   int
	detailCalls map[int64]int
}

var _ catalog.Client = (*FakeCatalog)(nil)

// ListOwned pages through Products. The cursor is the next start offset.
func (f *FakeCatalog) ListOwned(_ context.Context, cursor string) (catalog.Page, error) {
	f.mu.Lock()
	f.listCalls++
	f.mu.Unlock()

	if f.ListErr != nil {
		return catalog.Page{}, f.ListErr
	}

	start := 0
	if cursor != "" {
		parsed, err := strconv.Atoi(cursor)
		if err != nil || parsed < 0 {
			return catalog.Page{}, services.Wrap(services.ErrValidation, "testsupport", "list", "bad cursor "+cursor, err)
		}
		start = parsed
	}
	if start >= len(f.Products) {
		return catalog.Page{}, nil
	}

	size := f.PageSize
	if size <= 0 {
		size = len(f.Products)
	}
	end := start + size
	if end > len(f.Products) {
		end = len(f.Products)
	}

	page := catalog.Page{Products: append([]catalog.Product(nil), f.Products[start:end]...)}
	if end < len(f.Products) {
		page.Next = strconv.Itoa(end)
	}
	return page, nil
}

// ItemDetail returns the fixture detail for an id, counting every call.
func (f *FakeCatalog) ItemDetail(_ context.Context, id int64) (catalog.Detail, error) {
	f.mu.Lock()
	if f.detailCalls == nil {
		f.detailCalls = make(map[int64]int)
	}
	f.detailCalls[id]++
	f.mu.Unlock()

	if err, ok := f.FailDetails[id]; ok {
		return catalog.Detail{}, err
	}
	if detail, ok := f.Details[id]; ok {
		return detail, nil
	}
	return catalog.Detail{}, services.Wrap(services.ErrNotFound, "testsupport", "detail", fmt.Sprintf("item %d", id), nil)
}

// DetailCalls reports how often ItemDetail was invoked for an id.
func (f *FakeCatalog) DetailCalls(id int64) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.detailCalls[id]
}

// ListCalls reports how often ListOwned was invoked.
func (f *FakeCatalog) ListCalls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.listCalls
}
