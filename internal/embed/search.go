package embed

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"github.com/ferrows/mnemo/internal/apperr"
	"github.com/ferrows/mnemo/internal/checksum"
	"github.com/ferrows/mnemo/internal/models"
)

// Filter narrows search candidates before similarity is computed.
type Filter struct {
	Types []models.RecordType

	// ExcludeID drops one id from the candidates, e.g. the record whose
	// own content is the query.
	ExcludeID string
}

func (f Filter) match(e *models.IndexEntry) bool {
	if f.ExcludeID != "" && e.ID == f.ExcludeID {
		return false
	}
	if len(f.Types) == 0 {
		return true
	}
	for _, t := range f.Types {
		if e.Type == t {
			return true
		}
	}
	return false
}

// Result is one ranked search hit.
type Result struct {
	ID    string            `json:"id"`
	Title string            `json:"title"`
	Type  models.RecordType `json:"type"`
	Score float64           `json:"score"`
}

// Searcher ranks index entries against a query vector, lazily regenerating
// stale cache entries through the injected provider.
type Searcher struct {
	provider Provider
	cache    *Cache
	source   ContentSource
	logger   *slog.Logger
}

// NewSearcher wires a provider, cache, and content source together.
func NewSearcher(provider Provider, cache *Cache, source ContentSource, logger *slog.Logger) *Searcher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Searcher{provider: provider, cache: cache, source: source, logger: logger}
}

// Cache exposes the underlying cache, e.g. for invalidation on delete.
func (s *Searcher) Cache() *Cache { return s.cache }

// Search embeds the query once and ranks every index entry passing the
// filter. Entries scoring at or above threshold are returned sorted by score
// descending, ties broken by index order, truncated to limit.
func (s *Searcher) Search(ctx context.Context, ix *models.Index, query string, f Filter, threshold float64, limit int) ([]Result, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, fmt.Errorf("%w: search query must not be empty", apperr.ErrValidation)
	}
	qv, err := s.provider.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}
	return s.rank(ctx, ix, Normalize(qv), f, threshold, limit)
}

// FindSimilarToMemory ranks entries against the target record's own cached
// embedding, excluding the target itself. When the target has no cached
// vector it fails soft with an empty result.
func (s *Searcher) FindSimilarToMemory(ctx context.Context, ix *models.Index, id string, threshold float64, limit int) ([]Result, error) {
	qv, ok := s.cache.Vector(id)
	if !ok {
		return nil, nil
	}
	return s.rank(ctx, ix, qv, Filter{ExcludeID: id}, threshold, limit)
}

// rank runs the shared pipeline. Per-record failures degrade to a partial
// result unless the context itself was cancelled.
func (s *Searcher) rank(ctx context.Context, ix *models.Index, qv []float64, f Filter, threshold float64, limit int) ([]Result, error) {
	var out []Result
	for i := range ix.Entries {
		e := &ix.Entries[i]
		if !f.match(e) {
			continue
		}
		vec, err := s.vectorFor(ctx, e)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			s.logger.Warn("search: skipping record", slog.String("id", e.ID), slog.String("error", err.Error()))
			continue
		}
		score, err := CosineSimilarity(qv, vec)
		if err != nil {
			s.logger.Warn("search: incomparable vectors", slog.String("id", e.ID), slog.String("error", err.Error()))
			continue
		}
		if score >= threshold {
			out = append(out, Result{ID: e.ID, Title: e.Title, Type: e.Type, Score: score})
		}
	}

	// Stable sort keeps index (insertion) order for equal scores.
	sort.SliceStable(out, func(i, j int) bool { return out[i].Score > out[j].Score })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}

	if err := s.cache.Save(); err != nil {
		s.logger.Warn("search: cache save failed", slog.String("error", err.Error()))
	}
	return out, nil
}

// vectorFor returns the entry's embedding, regenerating it when the cached
// hash no longer matches the record's current content.
func (s *Searcher) vectorFor(ctx context.Context, e *models.IndexEntry) ([]float64, error) {
	content, err := s.source.Content(e.ID)
	if err != nil {
		return nil, fmt.Errorf("load content: %w", err)
	}
	hash := checksum.SumString(content)
	if vec, ok := s.cache.Get(e.ID, hash); ok {
		return vec, nil
	}
	vec, err := s.provider.Embed(ctx, content)
	if err != nil {
		return nil, fmt.Errorf("regenerate embedding: %w", err)
	}
	s.cache.Put(e.ID, hash, vec)
	vec, _ = s.cache.Get(e.ID, hash)
	return vec, nil
}
