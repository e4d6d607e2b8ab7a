package update

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"gogvault/internal/catalog"
	"gogvault/internal/filter"
	"gogvault/internal/library"
	"gogvault/internal/logging"
	"gogvault/internal/manifest"
	"gogvault/internal/services"
)

// Reconciler assigns and maintains folder names after merges.
type Reconciler interface {
	Reconcile(m *manifest.Manifest) []library.RenameError
}

// Outcome summarizes one run for reporting and exit-code decisions.
type Outcome struct {
	Strategy   string
	RunID      string
	Selected   int
	Skipped    int
	Merged     int
	Failed     int
	ItemErrors map[int64]error
	Completed  bool
}

// Pipeline executes a reconciliation run: list the owned catalog, apply the
// filter, fetch details concurrently, merge serially, and checkpoint.
type Pipeline struct {
	client     catalog.Client
	store      *manifest.Store
	reconciler Reconciler
	cfg        FetchConfig
	logger     *slog.Logger
}

// NewPipeline wires a pipeline. The reconciler may be nil, in which case
// folder names are left untouched.
func NewPipeline(client catalog.Client, store *manifest.Store, reconciler Reconciler, cfg FetchConfig, logger *slog.Logger) *Pipeline {
	return &Pipeline{
		client:     client,
		store:      store,
		reconciler: reconciler,
		cfg:        cfg,
		logger:     logging.NewComponentLogger(logger, "update"),
	}
}

type fetchResult struct {
	product catalog.Product
	detail  catalog.Detail
	err     error
}

// Run executes the pipeline against the given manifest and resume state.
// Details are fetched by a bounded worker pool, but all manifest mutation
// happens on the caller's goroutine, so merge results are deterministic.
// Per-item failures are recorded and the run continues; fatal errors and a
// streak of consecutive failures abort after a final checkpoint, as does
// context cancellation.
func (p *Pipeline) Run(ctx context.Context, f filter.GameFilter, m *manifest.Manifest, state *manifest.ResumeState) (*Outcome, error) {
	outcome := &Outcome{
		Strategy:   state.Strategy,
		RunID:      state.RunID,
		ItemErrors: make(map[int64]error),
	}

	products, err := p.listOwned(ctx)
	if err != nil {
		return outcome, err
	}
	p.logger.Info("owned catalog listed",
		logging.String(logging.FieldRunID, state.RunID),
		logging.Int("items", len(products)))

	selected := f.Apply(products)
	outcome.Selected = len(selected)

	alreadyMerged := state.MergedSet()
	work := make([]catalog.Product, 0, len(selected))
	for _, prod := range selected {
		if _, ok := alreadyMerged[prod.ID]; ok {
			outcome.Skipped++
			continue
		}
		work = append(work, prod)
	}
	sort.Slice(work, func(a, b int) bool {
		if work[a].Slug != work[b].Slug {
			return work[a].Slug < work[b].Slug
		}
		return work[a].ID < work[b].ID
	})

	p.logger.Info("work list built",
		logging.String(logging.FieldStrategy, state.Strategy),
		logging.Int("selected", outcome.Selected),
		logging.Int("skipped", outcome.Skipped),
		logging.Int("to_fetch", len(work)))

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	results := p.startWorkers(ctx, work)

	interval := p.cfg.CheckpointInterval
	if interval < 1 {
		interval = 1
	}
	var (
		runErr          error
		consecutive     int
		sinceCheckpoint int
	)

loop:
	for {
		select {
		case <-ctx.Done():
			runErr = ctx.Err()
			break loop
		case res, ok := <-results:
			if !ok {
				break loop
			}
			if res.err != nil {
				consecutive++
				outcome.Failed++
				outcome.ItemErrors[res.product.ID] = res.err
				p.logger.Warn("item fetch failed",
					logging.Int64(logging.FieldItemID, res.product.ID),
					logging.String("slug", res.product.Slug),
					logging.Error(res.err))
				if services.IsFatal(res.err) {
					runErr = res.err
					break loop
				}
				if p.cfg.MaxConsecutiveFailures > 0 && consecutive >= p.cfg.MaxConsecutiveFailures {
					runErr = services.Wrap(services.ErrFatal, "update", "run",
						fmt.Sprintf("%d consecutive item failures", consecutive), nil)
					break loop
				}
				continue
			}
			consecutive = 0

			item := manifest.Merge(m.Get(res.product.ID), res.product, res.detail,
				f.StrictDownloads, f.StrictExtras, p.logger)
			if p.cfg.ForceRefetch {
				item.ForceAllChanges()
			}
			m.Put(item)
			state.MergedIDs = append(state.MergedIDs, item.ID)
			outcome.Merged++

			sinceCheckpoint++
			if sinceCheckpoint >= interval {
				if err := p.checkpoint(m, state); err != nil {
					runErr = err
					break loop
				}
				sinceCheckpoint = 0
			}
		}
	}
	cancel()

	if runErr != nil {
		// Best effort: keep whatever progress was made.
		if err := p.checkpoint(m, state); err != nil {
			p.logger.Error("final checkpoint failed", logging.Error(err))
		}
		return outcome, runErr
	}

	if err := p.checkpoint(m, state); err != nil {
		return outcome, err
	}
	if err := p.store.DeleteResume(); err != nil {
		p.logger.Warn("failed to remove resume checkpoint", logging.Error(err))
	}
	outcome.Completed = true

	p.logger.Info("run complete",
		logging.String(logging.FieldRunID, state.RunID),
		logging.Int("merged", outcome.Merged),
		logging.Int("failed", outcome.Failed))
	return outcome, nil
}

// listOwned walks the paginated listing until the catalog reports no further
// cursor. Listing failures are always fatal: without a complete listing the
// filter cannot be applied.
func (p *Pipeline) listOwned(ctx context.Context) ([]catalog.Product, error) {
	var products []catalog.Product
	cursor := ""
	for {
		page, err := p.client.ListOwned(ctx, cursor)
		if err != nil {
			if services.IsFatal(err) {
				return nil, err
			}
			return nil, services.Wrap(services.ErrFatal, "update", "list owned", "cursor "+cursor, err)
		}
		products = append(products, page.Products...)
		if page.Next == "" {
			return products, nil
		}
		cursor = page.Next
	}
}

func (p *Pipeline) startWorkers(ctx context.Context, work []catalog.Product) <-chan fetchResult {
	workers := p.cfg.Workers
	if workers < 1 {
		workers = 1
	}

	jobs := make(chan catalog.Product)
	results := make(chan fetchResult)

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for prod := range jobs {
				detail, err := p.client.ItemDetail(ctx, prod.ID)
				select {
				case results <- fetchResult{product: prod, detail: detail, err: err}:
				case <-ctx.Done():
					return
				}
			}
		}()
	}

	go func() {
		defer close(jobs)
		for _, prod := range work {
			select {
			case jobs <- prod:
			case <-ctx.Done():
				return
			}
		}
	}()

	go func() {
		wg.Wait()
		close(results)
	}()
	return results
}

// checkpoint reconciles folder names, then persists the manifest and the
// resume state. Both writes are atomic in the store.
func (p *Pipeline) checkpoint(m *manifest.Manifest, state *manifest.ResumeState) error {
	if p.reconciler != nil {
		for _, re := range p.reconciler.Reconcile(m) {
			p.logger.Warn("folder rename failed",
				logging.Int64(logging.FieldItemID, re.ItemID),
				logging.Error(re.Err))
		}
	}
	if err := p.store.Save(m); err != nil {
		return err
	}
	state.UpdatedAt = time.Now().UTC()
	return p.store.SaveResume(state)
}
