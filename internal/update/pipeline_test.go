package update_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"gogvault/internal/catalog"
	"gogvault/internal/filter"
	"gogvault/internal/library"
	"gogvault/internal/logging"
	"gogvault/internal/manifest"
	"gogvault/internal/services"
	"gogvault/internal/testsupport"
	"gogvault/internal/update"
)

type pipelineEnv struct {
	store      *manifest.Store
	reconciler *library.Reconciler
	libraryDir string
}

func newPipelineEnv(t *testing.T) pipelineEnv {
	t.Helper()
	dir := t.TempDir()
	libDir := filepath.Join(dir, "library")
	if err := os.MkdirAll(libDir, 0o755); err != nil {
		t.Fatal(err)
	}
	return pipelineEnv{
		store:      manifest.NewStore(filepath.Join(dir, "manifest.json"), logging.NewNop()),
		reconciler: library.NewReconciler(libDir, logging.NewNop()),
		libraryDir: libDir,
	}
}

func detailFor(p catalog.Product) catalog.Detail {
	return catalog.Detail{
		ID:       p.ID,
		Slug:     p.Slug,
		Title:    p.Title,
		Released: time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC),
		Downloads: []catalog.FileEntry{{
			Name: p.Slug + "_installer.sh",
			Lang: "en",
			MD5:  "md5-" + p.Slug,
			Size: 100 + p.ID,
		}},
	}
}

func fakeFor(products ...catalog.Product) *testsupport.FakeCatalog {
	fake := &testsupport.FakeCatalog{
		Products: products,
		PageSize: 2,
		Details:  make(map[int64]catalog.Detail, len(products)),
	}
	for _, p := range products {
		fake.Details[p.ID] = detailFor(p)
	}
	return fake
}

func runPipeline(t *testing.T, env pipelineEnv, fake *testsupport.FakeCatalog, f filter.GameFilter, fc update.FetchConfig, m *manifest.Manifest, state *manifest.ResumeState) (*update.Outcome, error) {
	t.Helper()
	pipeline := update.NewPipeline(fake, env.store, env.reconciler, fc, logging.NewNop())
	return pipeline.Run(context.Background(), f, m, state)
}

func TestRunFullCycle(t *testing.T) {
	env := newPipelineEnv(t)
	fake := fakeFor(
		catalog.Product{ID: 3, Slug: "game_c", Title: "Game C"},
		catalog.Product{ID: 1, Slug: "game_a", Title: "Game A"},
		catalog.Product{ID: 2, Slug: "game_b", Title: "Game B"},
	)

	m := manifest.New()
	state := update.NewResumeState(update.Options{Strategy: update.StrategyFull})
	outcome, err := runPipeline(t, env, fake, filter.GameFilter{}, update.FetchConfig{Workers: 2, CheckpointInterval: 50}, m, state)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if !outcome.Completed || outcome.Merged != 3 || outcome.Failed != 0 {
		t.Fatalf("unexpected outcome: %+v", outcome)
	}
	if fake.ListCalls() != 2 {
		t.Fatalf("expected two listing pages, got %d", fake.ListCalls())
	}

	saved, err := env.store.Load()
	if err != nil {
		t.Fatalf("load saved manifest: %v", err)
	}
	if saved.Len() != 3 {
		t.Fatalf("expected 3 items persisted, got %d", saved.Len())
	}
	if got := saved.Get(1).FolderName; got != "Game A" {
		t.Fatalf("folder name not assigned, got %q", got)
	}
	if _, err := env.store.LoadResume(); err == nil {
		t.Fatal("completed run must remove the resume checkpoint")
	}
}

func TestRunIsIdempotent(t *testing.T) {
	env := newPipelineEnv(t)
	fake := fakeFor(
		catalog.Product{ID: 1, Slug: "game_a", Title: "Game A"},
		catalog.Product{ID: 2, Slug: "game_b", Title: "Game B"},
	)

	m := manifest.New()
	fc := update.FetchConfig{Workers: 2, CheckpointInterval: 50}
	if _, err := runPipeline(t, env, fake, filter.GameFilter{}, fc, m, update.NewResumeState(update.Options{Strategy: update.StrategyFull})); err != nil {
		t.Fatalf("first run: %v", err)
	}
	first, err := os.ReadFile(env.store.Path())
	if err != nil {
		t.Fatal(err)
	}

	reloaded, err := env.store.Load()
	if err != nil {
		t.Fatal(err)
	}
	if _, err := runPipeline(t, env, fake, filter.GameFilter{}, fc, reloaded, update.NewResumeState(update.Options{Strategy: update.StrategyFull})); err != nil {
		t.Fatalf("second run: %v", err)
	}
	second, err := os.ReadFile(env.store.Path())
	if err != nil {
		t.Fatal(err)
	}
	if string(first) != string(second) {
		t.Fatal("unchanged remote state must produce a byte-identical manifest")
	}
}

func TestRunAssignsDeduplicatedFolderNames(t *testing.T) {
	env := newPipelineEnv(t)
	// Two distinct items that share a title and therefore a folder name.
	fake := fakeFor(
		catalog.Product{ID: 200, Slug: "duplicate-ce", Title: "Duplicate"},
		catalog.Product{ID: 100, Slug: "duplicate", Title: "Duplicate"},
	)

	m := manifest.New()
	_, err := runPipeline(t, env, fake, filter.GameFilter{}, update.FetchConfig{Workers: 2, CheckpointInterval: 50}, m, update.NewResumeState(update.Options{Strategy: update.StrategyFull}))
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if got := m.Get(100).FolderName; got != "Duplicate" {
		t.Fatalf("lowest id keeps the bare name, got %q", got)
	}
	if got := m.Get(200).FolderName; got != "Duplicate_200" {
		t.Fatalf("higher id gets the id suffix, got %q", got)
	}
}

func TestRunSkipsAlreadyMergedItems(t *testing.T) {
	env := newPipelineEnv(t)
	fake := fakeFor(
		catalog.Product{ID: 1, Slug: "game_a"},
		catalog.Product{ID: 2, Slug: "game_b"},
		catalog.Product{ID: 3, Slug: "game_c"},
		catalog.Product{ID: 4, Slug: "game_d"},
	)

	m := manifest.New()
	state := update.NewResumeState(update.Options{Strategy: update.StrategyFull})
	state.MergedIDs = []int64{1, 2}

	outcome, err := runPipeline(t, env, fake, filter.GameFilter{}, update.FetchConfig{Workers: 2, CheckpointInterval: 50}, m, state)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if outcome.Skipped != 2 || outcome.Merged != 2 {
		t.Fatalf("unexpected outcome: %+v", outcome)
	}
	for _, id := range []int64{1, 2} {
		if calls := fake.DetailCalls(id); calls != 0 {
			t.Fatalf("item %d was already merged but fetched %d times", id, calls)
		}
	}
	for _, id := range []int64{3, 4} {
		if calls := fake.DetailCalls(id); calls != 1 {
			t.Fatalf("item %d should be fetched exactly once, got %d", id, calls)
		}
	}
}

func TestRunRecordsTransientFailuresAndCompletes(t *testing.T) {
	env := newPipelineEnv(t)
	fake := fakeFor(
		catalog.Product{ID: 1, Slug: "game_a"},
		catalog.Product{ID: 2, Slug: "game_b"},
		catalog.Product{ID: 3, Slug: "game_c"},
	)
	fake.FailDetails = map[int64]error{
		2: services.Wrap(services.ErrTransient, "gog", "detail", "item 2", nil),
	}

	m := manifest.New()
	outcome, err := runPipeline(t, env, fake, filter.GameFilter{}, update.FetchConfig{Workers: 1, CheckpointInterval: 50, MaxConsecutiveFailures: 5}, m, update.NewResumeState(update.Options{Strategy: update.StrategyFull}))
	if err != nil {
		t.Fatalf("transient failures must not abort the run: %v", err)
	}
	if !outcome.Completed || outcome.Merged != 2 || outcome.Failed != 1 {
		t.Fatalf("unexpected outcome: %+v", outcome)
	}
	if _, ok := outcome.ItemErrors[2]; !ok {
		t.Fatal("failed item must be recorded")
	}
	if m.Get(2) != nil {
		t.Fatal("failed item must not enter the manifest")
	}
}

func TestRunAbortsOnFatalError(t *testing.T) {
	env := newPipelineEnv(t)
	fake := fakeFor(
		catalog.Product{ID: 1, Slug: "aaa_first"},
		catalog.Product{ID: 2, Slug: "bbb_second"},
		catalog.Product{ID: 3, Slug: "ccc_third"},
	)
	fake.FailDetails = map[int64]error{
		2: services.Wrap(services.ErrAuth, "gog", "detail", "token expired", nil),
	}

	m := manifest.New()
	state := update.NewResumeState(update.Options{Strategy: update.StrategyFull})
	// One worker keeps the processing order deterministic.
	outcome, err := runPipeline(t, env, fake, filter.GameFilter{}, update.FetchConfig{Workers: 1, CheckpointInterval: 50}, m, state)
	if err == nil {
		t.Fatal("fatal error must abort the run")
	}
	if !services.IsFatal(err) {
		t.Fatalf("abort reason must stay classified, got %v", err)
	}
	if outcome.Completed {
		t.Fatal("aborted run must not report completion")
	}
	if outcome.Merged != 1 {
		t.Fatalf("item before the failure should be merged, got %d", outcome.Merged)
	}

	// Progress survives for the next invocation.
	saved, err := env.store.LoadResume()
	if err != nil {
		t.Fatalf("resume checkpoint must survive an abort: %v", err)
	}
	if len(saved.MergedIDs) != 1 || saved.MergedIDs[0] != 1 {
		t.Fatalf("unexpected merged ids: %v", saved.MergedIDs)
	}
	if _, err := env.store.Load(); err != nil {
		t.Fatalf("final checkpoint must persist the manifest: %v", err)
	}
}

func TestRunAbortsAfterConsecutiveFailures(t *testing.T) {
	env := newPipelineEnv(t)
	fake := fakeFor(
		catalog.Product{ID: 1, Slug: "aaa"},
		catalog.Product{ID: 2, Slug: "bbb"},
		catalog.Product{ID: 3, Slug: "ccc"},
	)
	fail := services.Wrap(services.ErrTransient, "gog", "detail", "unavailable", nil)
	fake.FailDetails = map[int64]error{1: fail, 2: fail}

	m := manifest.New()
	_, err := runPipeline(t, env, fake, filter.GameFilter{}, update.FetchConfig{Workers: 1, CheckpointInterval: 50, MaxConsecutiveFailures: 2}, m, update.NewResumeState(update.Options{Strategy: update.StrategyFull}))
	if err == nil {
		t.Fatal("failure streak must abort the run")
	}
	if !services.IsFatal(err) {
		t.Fatalf("streak abort must be fatal, got %v", err)
	}
}

func TestRunHonorsContextCancellation(t *testing.T) {
	env := newPipelineEnv(t)
	fake := fakeFor(catalog.Product{ID: 1, Slug: "game_a"})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	pipeline := update.NewPipeline(fake, env.store, env.reconciler, update.FetchConfig{Workers: 1, CheckpointInterval: 50}, logging.NewNop())
	_, err := pipeline.Run(ctx, filter.GameFilter{}, manifest.New(), update.NewResumeState(update.Options{Strategy: update.StrategyFull}))
	if err == nil {
		t.Fatal("cancelled context must surface an error")
	}
}

func TestRunForceRefetchFlagsEveryFile(t *testing.T) {
	env := newPipelineEnv(t)
	fake := fakeFor(catalog.Product{ID: 1, Slug: "game_a"})

	// Seed a manifest where the file is already known and verified.
	m := manifest.New()
	seeded := manifest.Merge(nil, fake.Products[0], fake.Details[1], false, false, logging.NewNop())
	seeded.Downloads[0].ForceChange = false
	seeded.Downloads[0].PrevVerified = true
	m.Put(seeded)

	_, err := runPipeline(t, env, fake, filter.GameFilter{}, update.FetchConfig{Workers: 1, CheckpointInterval: 50, ForceRefetch: true}, m, update.NewResumeState(update.Options{Strategy: update.StrategyFull}))
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if !m.Get(1).Downloads[0].ForceChange {
		t.Fatal("force refetch must mark every merged file for download")
	}
}
