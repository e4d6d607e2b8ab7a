package update

import (
	"fmt"

	"gogvault/internal/config"
	"gogvault/internal/filter"
	"gogvault/internal/manifest"
	"gogvault/internal/services"
)

// Strategy selects which owned items a run touches.
type Strategy string

const (
	// StrategyFull refreshes every owned item.
	StrategyFull Strategy = "full"
	// StrategySpecificIDs refreshes only the listed ids or slugs.
	StrategySpecificIDs Strategy = "specific-ids"
	// StrategyNewAndUpdated refreshes items that are new or changed.
	StrategyNewAndUpdated Strategy = "new-and-updated"
	// StrategyNewOnly refreshes items the manifest has no record of.
	StrategyNewOnly Strategy = "new-only"
	// StrategyChangedOnly refreshes known items whose remote side moved.
	// Strict comparison is always on for this strategy.
	StrategyChangedOnly Strategy = "changed-only"
)

// Options captures the operator's selection knobs for a single run.
type Options struct {
	Strategy        Strategy
	IDs             []string
	SkipIDs         []string
	SkipHidden      bool
	StrictDownloads bool
	StrictExtras    bool
}

// FetchConfig carries the effective run parameters for the pipeline.
type FetchConfig struct {
	Workers                int
	CheckpointInterval     int
	PageSize               int
	MaxConsecutiveFailures int
	ForceRefetch           bool
}

// Select translates run options plus the current manifest into the pure
// filter the pipeline applies and the effective fetch parameters. Narrow
// strategies checkpoint after every merge since their work lists are short
// and each item is expensive to lose.
func Select(opts Options, m *manifest.Manifest, cfg *config.Config) (filter.GameFilter, FetchConfig, error) {
	fc := FetchConfig{
		Workers:                cfg.Fetch.Workers,
		CheckpointInterval:     cfg.Fetch.CheckpointInterval,
		PageSize:               cfg.GOG.PageSize,
		MaxConsecutiveFailures: cfg.Fetch.MaxConsecutiveFailures,
		ForceRefetch:           cfg.Fetch.ForceRefetch,
	}

	f := filter.GameFilter{
		Exclude:         append([]string(nil), opts.SkipIDs...),
		SkipHidden:      opts.SkipHidden,
		StrictDownloads: opts.StrictDownloads,
		StrictExtras:    opts.StrictExtras,
		Detection:       filter.ChangeDetection(cfg.Fetch.ChangeDetection),
		Known:           baselines(m),
	}

	switch opts.Strategy {
	case StrategyFull:
	case StrategySpecificIDs:
		if len(opts.IDs) == 0 {
			return filter.GameFilter{}, FetchConfig{}, services.Wrap(services.ErrValidation,
				"update", "select", "specific-ids strategy requires at least one id", nil)
		}
		f.Include = append([]string(nil), opts.IDs...)
		fc.CheckpointInterval = 1
	case StrategyNewAndUpdated:
		f.SkipKnown = true
		f.UpdateOnly = true
	case StrategyNewOnly:
		f.SkipKnown = true
		fc.CheckpointInterval = 1
	case StrategyChangedOnly:
		f.UpdateOnly = true
		f.StrictDownloads = true
		f.StrictExtras = true
		fc.CheckpointInterval = 1
	default:
		return filter.GameFilter{}, FetchConfig{}, services.Wrap(services.ErrValidation,
			"update", "select", fmt.Sprintf("unknown strategy %q", opts.Strategy), nil)
	}

	if len(opts.IDs) > 0 && opts.Strategy != StrategySpecificIDs {
		return filter.GameFilter{}, FetchConfig{}, services.Wrap(services.ErrValidation,
			"update", "select", "explicit ids require the specific-ids strategy", nil)
	}

	if fc.Workers < 1 {
		fc.Workers = 1
	}
	if fc.CheckpointInterval < 1 {
		fc.CheckpointInterval = 1
	}
	return f, fc, nil
}

func baselines(m *manifest.Manifest) map[int64]filter.Baseline {
	if m == nil {
		return map[int64]filter.Baseline{}
	}
	known := make(map[int64]filter.Baseline, m.Len())
	for _, item := range m.Items {
		known[item.ID] = filter.Baseline{
			HasMetadata:       item.HasMetadata(),
			Hidden:            item.Hidden,
			DownloadsUpdated:  item.DownloadsUpdated,
			ExtrasUpdated:     item.ExtrasUpdated,
			DownloadsChecksum: item.DownloadsChecksum,
			ExtrasChecksum:    item.ExtrasChecksum,
		}
	}
	return known
}
