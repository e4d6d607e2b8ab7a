package main

import (
	"errors"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"gogvault/internal/library"
	"gogvault/internal/manifest"
	"gogvault/internal/preflight"
	"gogvault/internal/services/gog"
	"gogvault/internal/update"
)

func newUpdateCommand(ctx *commandContext) *cobra.Command {
	var (
		ids             []string
		skipIDs         []string
		newOnly         bool
		changedOnly     bool
		newAndUpdated   bool
		skipHidden      bool
		strictDownloads bool
		strictExtras    bool
		noResume        bool
		onMismatch      string
	)

	cmd := &cobra.Command{
		Use:   "update",
		Short: "Reconcile the manifest against the remote catalog",
		RunE: func(cmd *cobra.Command, args []string) error {
			strategy, err := resolveStrategy(ids, newOnly, changedOnly, newAndUpdated)
			if err != nil {
				return err
			}

			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			logger, err := ctx.newLogger()
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			results := preflight.RunAll(cfg)
			for _, result := range results {
				if !result.Passed {
					fmt.Fprintf(out, "preflight: %s failed: %s\n", result.Name, result.Detail)
				}
			}
			if !preflight.AllPassed(results) {
				return errors.New("preflight checks failed")
			}

			store, err := ctx.newStore(logger)
			if err != nil {
				return err
			}
			if err := store.Acquire(); err != nil {
				return err
			}
			defer store.Release()

			m, err := loadManifest(store)
			if err != nil {
				return err
			}

			opts := update.Options{
				Strategy:        strategy,
				IDs:             ids,
				SkipIDs:         skipIDs,
				SkipHidden:      skipHidden,
				StrictDownloads: strictDownloads,
				StrictExtras:    strictExtras,
			}
			f, fc, err := update.Select(opts, m, cfg)
			if err != nil {
				return err
			}

			if noResume {
				if err := store.DeleteResume(); err != nil {
					return err
				}
			}
			confirm, err := resolveConfirmer(onMismatch)
			if err != nil {
				return err
			}
			decision, state, err := update.CheckResume(store, opts, confirm, logger)
			if err != nil {
				return err
			}
			if decision == update.DecisionAbort {
				return errors.New("leftover resume checkpoint is incompatible with this invocation; rerun with --no-resume to discard it")
			}
			if state == nil {
				state = update.NewResumeState(opts)
			}

			runCtx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			client := gog.NewClient(cfg.GOG, logger)
			reconciler := library.NewReconciler(cfg.Paths.LibraryDir, logger)
			pipeline := update.NewPipeline(client, store, reconciler, fc, logger)

			outcome, runErr := pipeline.Run(runCtx, f, m, state)
			printOutcome(cmd, outcome, m)
			if runErr != nil {
				return runErr
			}
			if outcome.Failed > 0 {
				return fmt.Errorf("%d of %d selected items failed; rerun to retry them", outcome.Failed, outcome.Selected)
			}
			return nil
		},
	}

	cmd.Flags().StringSliceVar(&ids, "ids", nil, "Update only these ids or slugs")
	cmd.Flags().StringSliceVar(&skipIDs, "skip-ids", nil, "Never update these ids or slugs")
	cmd.Flags().BoolVar(&newOnly, "new-only", false, "Update only items the manifest has never seen")
	cmd.Flags().BoolVar(&changedOnly, "changed-only", false, "Update only known items with remote changes")
	cmd.Flags().BoolVar(&newAndUpdated, "new-and-updated", false, "Update new items plus known items with remote changes")
	cmd.Flags().BoolVar(&skipHidden, "skip-hidden", false, "Skip items hidden locally or remotely")
	cmd.Flags().BoolVar(&strictDownloads, "strict-downloads", false, "Compare download timestamps and checksums strictly")
	cmd.Flags().BoolVar(&strictExtras, "strict-extras", false, "Compare extras timestamps and checksums strictly")
	cmd.Flags().BoolVar(&noResume, "no-resume", false, "Discard any resume checkpoint and start over")
	cmd.Flags().StringVar(&onMismatch, "on-mismatch", "prompt", "How to handle an incompatible checkpoint: prompt, discard, or abort")
	return cmd
}

func resolveStrategy(ids []string, newOnly, changedOnly, newAndUpdated bool) (update.Strategy, error) {
	selected := 0
	strategy := update.StrategyFull
	if len(ids) > 0 {
		selected++
		strategy = update.StrategySpecificIDs
	}
	if newOnly {
		selected++
		strategy = update.StrategyNewOnly
	}
	if changedOnly {
		selected++
		strategy = update.StrategyChangedOnly
	}
	if newAndUpdated {
		selected++
		strategy = update.StrategyNewAndUpdated
	}
	if selected > 1 {
		return "", errors.New("--ids, --new-only, --changed-only, and --new-and-updated are mutually exclusive")
	}
	return strategy, nil
}

func resolveConfirmer(onMismatch string) (update.Confirmer, error) {
	switch onMismatch {
	case "prompt", "":
		return stdinConfirmer(), nil
	case "discard":
		return func(string) bool { return true }, nil
	case "abort":
		return func(string) bool { return false }, nil
	default:
		return nil, fmt.Errorf("unknown --on-mismatch value %q (want prompt, discard, or abort)", onMismatch)
	}
}

func printOutcome(cmd *cobra.Command, outcome *update.Outcome, m *manifest.Manifest) {
	if outcome == nil {
		return
	}
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Strategy:  %s\n", outcome.Strategy)
	fmt.Fprintf(out, "Selected:  %d\n", outcome.Selected)
	if outcome.Skipped > 0 {
		fmt.Fprintf(out, "Resumed:   %d already merged\n", outcome.Skipped)
	}
	fmt.Fprintf(out, "Merged:    %d\n", outcome.Merged)
	fmt.Fprintf(out, "Failed:    %d\n", outcome.Failed)
	fmt.Fprintf(out, "Manifest:  %d items\n", m.Len())
	for id, err := range outcome.ItemErrors {
		fmt.Fprintf(out, "  item %d: %v\n", id, err)
	}
}
