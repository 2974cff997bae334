// Package rules evaluates one video against the contest's eligibility rules.
package rules

import (
	"sort"
	"time"

	"github.com/ponyvote/ballotcheck/internal/labels"
	"github.com/ponyvote/ballotcheck/internal/model"
	"github.com/ponyvote/ballotcheck/internal/period"
)

// ManualFlagName is the display name of flags produced by operator overrides
const ManualFlagName = "Manual Check"

// Engine applies the single-video rules. It holds no state besides its thresholds
// and is safe for concurrent use.
type Engine struct {
	cfg model.RulesConfig
}

// NewEngine creates an engine; zero thresholds take the contest defaults
func NewEngine(cfg model.RulesConfig) *Engine {
	def := model.DefaultConfig().Rules
	if cfg.MinSeconds == 0 {
		cfg.MinSeconds = def.MinSeconds
	}
	if cfg.WarnSeconds == 0 {
		cfg.WarnSeconds = def.WarnSeconds
	}
	if cfg.EdgePivotDay == 0 {
		cfg.EdgePivotDay = def.EdgePivotDay
	}
	if cfg.ReservedUploader == "" {
		cfg.ReservedUploader = def.ReservedUploader
	}
	return &Engine{cfg: cfg}
}

// Evaluate returns a fresh flag list for meta. Automatic flags come first,
// ineligible before maybe-ineligible. An eligible/ineligible manual label
// replaces them, or is appended after them when includeAll is set.
func (e *Engine) Evaluate(meta model.VideoMetadata, manual *model.ManualLabel, includeAll bool, catalog *labels.Catalog, rng period.Range) []model.Flag {
	if catalog == nil {
		catalog = labels.Defaults()
	}

	var flags []model.Flag

	// 1. Upload window
	if !rng.Contains(meta.UploadDate) {
		flags = append(flags, catalog.Get(labels.WrongPeriod))
	} else if !rng.Contains(e.probe(meta.UploadDate)) {
		flags = append(flags, catalog.Get(labels.EdgeDate))
	}

	// 2. Duration; unknown is not penalized
	if d := meta.Duration; d != nil {
		switch {
		case *d < e.cfg.MinSeconds:
			flags = append(flags, catalog.Get(labels.TooShort))
		case *d <= e.cfg.WarnSeconds:
			flags = append(flags, catalog.Get(labels.MaybeTooShort))
		}
	}

	// 3. Host's own channel
	if meta.Uploader == e.cfg.ReservedUploader {
		flags = append(flags, catalog.Get(labels.LittleshyVid))
	}

	sort.SliceStable(flags, func(i, j int) bool {
		return flags[i].Type.Severity() > flags[j].Type.Severity()
	})

	// 4. Manual override
	if mf, ok := ManualFlag(manual); ok {
		if !includeAll {
			return []model.Flag{mf}
		}
		flags = append(flags, mf)
	}

	return flags
}

// EvaluateAt is Evaluate against the eligible range of now
func (e *Engine) EvaluateAt(meta model.VideoMetadata, manual *model.ManualLabel, includeAll bool, catalog *labels.Catalog, now time.Time) []model.Flag {
	return e.Evaluate(meta, manual, includeAll, catalog, period.EligibleRange(now))
}

// probe nudges the date one day toward the nearer month boundary: forward early
// in the month, backward otherwise
func (e *Engine) probe(t time.Time) time.Time {
	if t.Day() < e.cfg.EdgePivotDay {
		return t.AddDate(0, 0, 1)
	}
	return t.AddDate(0, 0, -1)
}

// ManualFlag converts an eligible/ineligible override into a flag. Reupload
// labels and nil yield ok == false.
func ManualFlag(manual *model.ManualLabel) (model.Flag, bool) {
	if manual == nil {
		return model.Flag{}, false
	}

	var typ model.FlagType
	switch manual.Kind {
	case model.LabelEligible:
		typ = model.FlagEligible
	case model.LabelIneligible:
		typ = model.FlagIneligible
	default:
		return model.Flag{}, false
	}

	return model.Flag{
		Name:    ManualFlagName,
		Type:    typ,
		Details: manual.Content,
		Trigger: model.TriggerManual,
	}, true
}
