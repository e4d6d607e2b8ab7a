package update_test

import (
	"errors"
	"path/filepath"
	"testing"

	"gogvault/internal/logging"
	"gogvault/internal/manifest"
	"gogvault/internal/update"
)

func newResumeStore(t *testing.T) *manifest.Store {
	t.Helper()
	return manifest.NewStore(filepath.Join(t.TempDir(), "manifest.json"), logging.NewNop())
}

func alwaysYes(string) bool { return true }

func alwaysNo(string) bool { return false }

func TestNewResumeState(t *testing.T) {
	opts := update.Options{Strategy: update.StrategySpecificIDs, IDs: []string{"5"}}
	state := update.NewResumeState(opts)
	if state.Version != manifest.ResumeSchemaVersion {
		t.Fatalf("unexpected version %d", state.Version)
	}
	if state.RunID == "" {
		t.Fatal("run id must be assigned")
	}
	if state.Strategy != "specific-ids" || len(state.IncludeIDs) != 1 {
		t.Fatalf("options not carried: %+v", state)
	}
	if state.CreatedAt.IsZero() || state.UpdatedAt.IsZero() {
		t.Fatal("timestamps must be set")
	}
}

func TestCheckResumeNoneFound(t *testing.T) {
	store := newResumeStore(t)
	decision, state, err := update.CheckResume(store, update.Options{Strategy: update.StrategyFull}, alwaysNo, logging.NewNop())
	if err != nil {
		t.Fatalf("check: %v", err)
	}
	if decision != update.DecisionNoneFound || state != nil {
		t.Fatalf("expected none-found, got %v %+v", decision, state)
	}
}

func TestCheckResumeCompatible(t *testing.T) {
	store := newResumeStore(t)
	opts := update.Options{Strategy: update.StrategySpecificIDs, IDs: []string{"a", "b"}}
	saved := update.NewResumeState(opts)
	saved.MergedIDs = []int64{1, 2}
	if err := store.SaveResume(saved); err != nil {
		t.Fatal(err)
	}

	// Same sets in a different order are still the same run.
	again := update.Options{Strategy: update.StrategySpecificIDs, IDs: []string{"b", "a"}}
	decision, state, err := update.CheckResume(store, again, alwaysNo, logging.NewNop())
	if err != nil {
		t.Fatalf("check: %v", err)
	}
	if decision != update.DecisionResume {
		t.Fatalf("expected resume, got %v", decision)
	}
	if state.RunID != saved.RunID || len(state.MergedIDs) != 2 {
		t.Fatalf("state not restored: %+v", state)
	}
}

func TestCheckResumeStrategyMismatchAlwaysAborts(t *testing.T) {
	store := newResumeStore(t)
	if err := store.SaveResume(update.NewResumeState(update.Options{Strategy: update.StrategyFull})); err != nil {
		t.Fatal(err)
	}
	opts := update.Options{Strategy: update.StrategyNewOnly}

	// Even a confirmer that says yes must not be consulted: a checkpoint is
	// never discarded under a different strategy.
	decision, _, err := update.CheckResume(store, opts, alwaysYes, logging.NewNop())
	if err != nil {
		t.Fatalf("check: %v", err)
	}
	if decision != update.DecisionAbort {
		t.Fatalf("strategy mismatch must abort, got %v", decision)
	}
	if _, err := store.LoadResume(); err != nil {
		t.Fatal("aborting must leave the checkpoint in place")
	}
}

func TestCheckResumeVersionMismatch(t *testing.T) {
	store := newResumeStore(t)
	stale := update.NewResumeState(update.Options{Strategy: update.StrategyFull})
	stale.Version = manifest.ResumeSchemaVersion + 1
	if err := store.SaveResume(stale); err != nil {
		t.Fatal(err)
	}
	opts := update.Options{Strategy: update.StrategyFull}

	decision, _, err := update.CheckResume(store, opts, alwaysNo, logging.NewNop())
	if err != nil {
		t.Fatalf("check: %v", err)
	}
	if decision != update.DecisionAbort {
		t.Fatalf("version mismatch must never resume silently, got %v", decision)
	}
	if _, err := store.LoadResume(); err != nil {
		t.Fatal("declining the prompt must leave the checkpoint in place")
	}

	decision, _, err = update.CheckResume(store, opts, alwaysYes, logging.NewNop())
	if err != nil {
		t.Fatalf("check: %v", err)
	}
	if decision != update.DecisionDiscard {
		t.Fatalf("accepting the prompt must discard, got %v", decision)
	}
	if _, err := store.LoadResume(); !errors.Is(err, manifest.ErrNotFound) {
		t.Fatal("discarding must delete the checkpoint")
	}
}

func TestCheckResumeNilConfirmerAborts(t *testing.T) {
	store := newResumeStore(t)
	stale := update.NewResumeState(update.Options{Strategy: update.StrategyFull})
	stale.Version = manifest.ResumeSchemaVersion + 1
	if err := store.SaveResume(stale); err != nil {
		t.Fatal(err)
	}
	decision, _, err := update.CheckResume(store, update.Options{Strategy: update.StrategyFull}, nil, logging.NewNop())
	if err != nil {
		t.Fatalf("check: %v", err)
	}
	if decision != update.DecisionAbort {
		t.Fatalf("no confirmer means no discard, got %v", decision)
	}
}
