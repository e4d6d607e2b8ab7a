package update

import (
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/google/uuid"

	"gogvault/internal/logging"
	"gogvault/internal/manifest"
)

// Decision is the outcome of inspecting a leftover resume checkpoint.
type Decision int

const (
	// DecisionNoneFound means no checkpoint exists; start fresh.
	DecisionNoneFound Decision = iota
	// DecisionResume means the checkpoint is compatible and should be used.
	DecisionResume
	// DecisionDiscard means the operator chose to drop a stale checkpoint.
	DecisionDiscard
	// DecisionAbort means the operator declined; the run must not proceed.
	DecisionAbort
)

// Confirmer answers a yes/no question put to the operator.
type Confirmer func(question string) bool

// NewResumeState creates the checkpoint for a fresh run.
func NewResumeState(opts Options) *manifest.ResumeState {
	now := time.Now().UTC()
	return &manifest.ResumeState{
		Version:    manifest.ResumeSchemaVersion,
		RunID:      uuid.NewString(),
		Strategy:   string(opts.Strategy),
		IncludeIDs: append([]string(nil), opts.IDs...),
		ExcludeIDs: append([]string(nil), opts.SkipIDs...),
		CreatedAt:  now,
		UpdatedAt:  now,
	}
}

// CheckResume inspects a leftover checkpoint. A compatible checkpoint is
// returned for resumption. An unreadable or version-mismatched checkpoint
// goes through the confirmer, which decides between discarding it and
// aborting the run. A strategy mismatch always aborts: a checkpoint is never
// consumed, or destroyed, under a different strategy than the one that wrote
// it.
func CheckResume(store *manifest.Store, opts Options, confirm Confirmer, logger *slog.Logger) (Decision, *manifest.ResumeState, error) {
	logger = logging.NewComponentLogger(logger, "update")

	state, err := store.LoadResume()
	if err != nil {
		if errors.Is(err, manifest.ErrNotFound) {
			return DecisionNoneFound, nil, nil
		}
		return resolveMismatch(store, confirm, logger,
			fmt.Sprintf("resume checkpoint is unreadable (%v)", err))
	}
	if state.Version != manifest.ResumeSchemaVersion {
		return resolveMismatch(store, confirm, logger,
			fmt.Sprintf("resume checkpoint has version %d, this build expects %d", state.Version, manifest.ResumeSchemaVersion))
	}
	if !compatible(state, opts) {
		logger.Warn("resume checkpoint belongs to a different run",
			logging.String("stored_strategy", state.Strategy),
			logging.String("requested_strategy", string(opts.Strategy)))
		return DecisionAbort, nil, nil
	}

	logger.Info("resuming interrupted run",
		logging.String(logging.FieldRunID, state.RunID),
		logging.Int("already_merged", len(state.MergedIDs)))
	return DecisionResume, state, nil
}

func resolveMismatch(store *manifest.Store, confirm Confirmer, logger *slog.Logger, reason string) (Decision, *manifest.ResumeState, error) {
	if confirm == nil || !confirm(reason+"; discard it and start over?") {
		return DecisionAbort, nil, nil
	}
	if err := store.DeleteResume(); err != nil {
		return DecisionAbort, nil, err
	}
	logger.Info("discarded stale resume checkpoint", logging.String("reason", reason))
	return DecisionDiscard, nil, nil
}

// compatible reports whether the checkpoint was written by a run with the
// same strategy and the same include/exclude sets. Order does not matter.
func compatible(state *manifest.ResumeState, opts Options) bool {
	if state.Strategy != string(opts.Strategy) {
		return false
	}
	return sameSet(state.IncludeIDs, opts.IDs) && sameSet(state.ExcludeIDs, opts.SkipIDs)
}

func sameSet(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	as := append([]string(nil), a...)
	bs := append([]string(nil), b...)
	sort.Strings(as)
	sort.Strings(bs)
	for i := range as {
		if as[i] != bs[i] {
			return false
		}
	}
	return true
}
