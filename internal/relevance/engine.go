// Package relevance selects a bounded, deduplicated, prioritized mixture of
// records for a triggering context, e.g. to inject into an assistant prompt
// before a risky action.
package relevance

import (
	"context"
	"log/slog"
	"sort"

	"github.com/ferrows/mnemo/internal/embed"
	"github.com/ferrows/mnemo/internal/models"
)

// MaxSelected is the hard cap on the total number of records one trigger
// may return, independent of how generous the per-type limits are.
const MaxSelected = 5

// ActionKind classifies the action that triggered a selection. Riskier
// actions carry stricter threshold multipliers.
type ActionKind string

const (
	ActionRead    ActionKind = "read"
	ActionEdit    ActionKind = "edit"
	ActionWrite   ActionKind = "write"
	ActionExecute ActionKind = "execute"
)

// TypeConfig is the per-record-type selection policy.
type TypeConfig struct {
	Enabled   bool    `yaml:"enabled" json:"enabled"`
	Threshold float64 `yaml:"threshold" json:"threshold"`
	Limit     int     `yaml:"limit" json:"limit"`
}

// Config is the engine policy: per-type thresholds/limits plus per-action
// multipliers applied to every type's base threshold. The numbers are
// tunable defaults; only the threshold × multiplier composition is fixed.
type Config struct {
	Types       map[models.RecordType]TypeConfig `yaml:"types" json:"types"`
	Multipliers map[ActionKind]float64           `yaml:"multipliers" json:"multipliers"`
}

// DefaultConfig returns the stock policy: warnings (gotchas), decisions,
// learnings, and artifacts enabled; breadcrumbs and hubs off by default.
func DefaultConfig() Config {
	return Config{
		Types: map[models.RecordType]TypeConfig{
			models.TypeGotcha:     {Enabled: true, Threshold: 0.70, Limit: 3},
			models.TypeDecision:   {Enabled: true, Threshold: 0.75, Limit: 2},
			models.TypeLearning:   {Enabled: true, Threshold: 0.75, Limit: 2},
			models.TypeArtifact:   {Enabled: true, Threshold: 0.80, Limit: 2},
			models.TypeBreadcrumb: {Enabled: false, Threshold: 0.80, Limit: 1},
			models.TypeHub:        {Enabled: false, Threshold: 0.80, Limit: 1},
		},
		Multipliers: map[ActionKind]float64{
			ActionRead:    0.8,
			ActionEdit:    1.0,
			ActionWrite:   1.1,
			ActionExecute: 1.3,
		},
	}
}

// Trigger is one selection request: the content to match against and the
// kind of action that raised it.
type Trigger struct {
	Content string     `json:"content"`
	Action  ActionKind `json:"action"`
}

// Selection is one chosen record.
type Selection struct {
	ID    string            `json:"id"`
	Title string            `json:"title"`
	Type  models.RecordType `json:"type"`
	Score float64           `json:"score"`
}

// Engine turns triggers into selections. It issues exactly one semantic
// search per trigger and filters per type client-side.
type Engine struct {
	cfg      Config
	searcher *embed.Searcher
	logger   *slog.Logger
}

// NewEngine creates an engine over a searcher.
func NewEngine(cfg Config, searcher *embed.Searcher, logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.Types == nil {
		cfg = DefaultConfig()
	}
	return &Engine{cfg: cfg, searcher: searcher, logger: logger}
}

// Select picks records for the trigger. Per-type limits apply before the
// merge; the merged set is ordered by type priority, then score descending,
// and truncated to MaxSelected. Records already selected in the session are
// suppressed, and the new selections are recorded in it.
func (e *Engine) Select(ctx context.Context, ix *models.Index, trig Trigger, sess *Session) ([]Selection, error) {
	mult := e.cfg.Multipliers[trig.Action]
	if mult == 0 {
		mult = 1.0
	}

	// The floor across enabled types; one search call covers all of them.
	floor, enabled := e.searchFloor(mult)
	if !enabled {
		return nil, nil
	}

	results, err := e.searcher.Search(ctx, ix, trig.Content, embed.Filter{}, floor, 0)
	if err != nil {
		return nil, err
	}

	var merged []Selection
	for t, tc := range e.cfg.Types {
		if !tc.Enabled {
			continue
		}
		effective := tc.Threshold * mult
		if effective > 1.0 {
			// Unreachable threshold: the type contributes nothing.
			continue
		}
		taken := 0
		for _, r := range results {
			if r.Type != t || r.Score < effective {
				continue
			}
			if sess != nil && sess.Seen(r.ID, r.Type) {
				continue
			}
			merged = append(merged, Selection{ID: r.ID, Title: r.Title, Type: r.Type, Score: r.Score})
			taken++
			if tc.Limit > 0 && taken >= tc.Limit {
				break
			}
		}
	}

	sort.SliceStable(merged, func(i, j int) bool {
		if merged[i].Type != merged[j].Type {
			return merged[i].Type.Priority() < merged[j].Type.Priority()
		}
		return merged[i].Score > merged[j].Score
	})
	if len(merged) > MaxSelected {
		merged = merged[:MaxSelected]
	}

	if sess != nil {
		for _, sel := range merged {
			sess.Mark(sel.ID, sel.Type)
		}
	}
	return merged, nil
}

// searchFloor returns the lowest effective threshold across enabled,
// reachable types, and whether any type is enabled at all.
func (e *Engine) searchFloor(mult float64) (float64, bool) {
	floor := 1.0
	enabled := false
	for _, tc := range e.cfg.Types {
		if !tc.Enabled {
			continue
		}
		effective := tc.Threshold * mult
		if effective > 1.0 {
			continue
		}
		enabled = true
		if effective < floor {
			floor = effective
		}
	}
	return floor, enabled
}
