// Package store implements the record/graph/index storage layer for one
// scope directory. Record files are the source of truth; the index and
// graph files mirror them and can always be rebuilt from disk.
//
// Concurrency model: single writer per scope directory, last write wins at
// the file level. Mutations are all-or-nothing per record: validation runs
// fully before anything is written.
package store

import (
	"context"
	"fmt"
	"log/slog"
	"sort"

	"github.com/ferrows/mnemo/internal/apperr"
	"github.com/ferrows/mnemo/internal/embed"
	"github.com/ferrows/mnemo/internal/models"
	"github.com/ferrows/mnemo/internal/recordfile"
	"github.com/ferrows/mnemo/internal/storage"
)

// AutoLinkThreshold is the cosine similarity at which a written record is
// automatically linked to an existing one. Deliberately stricter than the
// ordinary search defaults to avoid spurious edges.
const AutoLinkThreshold = 0.85

// autoLinkLimit bounds how many candidates auto-linking considers.
const autoLinkLimit = 5

// Store owns the record files, index, and graph of one scope directory.
type Store struct {
	fs     storage.Provider
	dir    string
	scope  models.Tier
	logger *slog.Logger
}

// Open creates a store over the given scope directory, creating it if
// needed.
func Open(dir string, tier models.Tier, logger *slog.Logger) (*Store, error) {
	fs, err := storage.NewFS(dir)
	if err != nil {
		return nil, err
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{fs: fs, dir: fs.Root(), scope: tier, logger: logger}, nil
}

// Dir returns the absolute scope directory.
func (s *Store) Dir() string { return s.dir }

// Scope returns the tier this store serves.
func (s *Store) Scope() models.Tier { return s.scope }

// FS returns the underlying file provider (used by the embedding cache).
func (s *Store) FS() storage.Provider { return s.fs }

// Content implements embed.ContentSource.
func (s *Store) Content(id string) (string, error) {
	rec, err := s.Read(id)
	if err != nil {
		return "", err
	}
	return rec.Content, nil
}

// WriteOptions control the optional auto-link pass after a write.
type WriteOptions struct {
	// AutoLink runs a semantic search over existing records and creates
	// related-context edges to anything above AutoLinkThreshold. Requires
	// a Searcher.
	AutoLink bool
	Searcher *embed.Searcher
}

// WriteResult reports what a write did.
type WriteResult struct {
	Created       bool     `json:"created"`
	AutoLinked    int      `json:"autoLinked"`
	SimilarTitles []string `json:"similarTitles,omitempty"`
}

// Write validates and persists a record, upserting its index entry and
// graph node. With auto-linking enabled, highly similar existing records
// gain related-context edges and their titles are reported back as a
// non-fatal possible-duplicate warning.
func (s *Store) Write(ctx context.Context, rec *models.Record, opts WriteOptions) (*WriteResult, error) {
	rec.Scope = s.scope
	if err := rec.Validate(); err != nil {
		return nil, err
	}

	ix, err := s.loadIndex()
	if err != nil {
		return nil, err
	}

	data, err := recordfile.Marshal(rec)
	if err != nil {
		return nil, err
	}
	if err := s.fs.Write(recordfile.Filename(rec.ID), data); err != nil {
		return nil, err
	}

	created := ix.Upsert(models.IndexEntry{
		ID:        rec.ID,
		Type:      rec.Type,
		Title:     rec.Title,
		Tags:      rec.Tags,
		Scope:     rec.Scope,
		Path:      recordfile.Filename(rec.ID),
		CreatedAt: rec.CreatedAt,
		UpdatedAt: rec.UpdatedAt,
		Severity:  rec.Severity,
	})
	if err := s.saveIndex(ix); err != nil {
		return nil, err
	}

	g, err := s.loadGraph()
	if err != nil {
		return nil, err
	}
	g.EnsureNode(rec.ID, rec.Title)

	// Explicit links declared on the record become relates-to edges.
	for _, target := range rec.Links {
		if entry, _ := ix.Find(target); entry != nil {
			g.EnsureNode(entry.ID, entry.Title)
			g.AddEdge(rec.ID, target, models.RelationRelatesTo)
		}
	}

	res := &WriteResult{Created: created}

	if opts.AutoLink && opts.Searcher != nil {
		similar, err := opts.Searcher.Search(ctx, ix, rec.Content,
			embed.Filter{ExcludeID: rec.ID}, AutoLinkThreshold, autoLinkLimit)
		if err != nil {
			s.logger.Warn("auto-link skipped", slog.String("id", rec.ID), slog.String("error", err.Error()))
		}
		for _, hit := range similar {
			res.SimilarTitles = append(res.SimilarTitles, hit.Title)
			if g.AddEdge(rec.ID, hit.ID, models.RelationRelatedContext) {
				res.AutoLinked++
			}
		}
	}

	if err := s.saveGraph(g); err != nil {
		return nil, err
	}
	return res, nil
}

// Read loads a record by id via the index.
func (s *Store) Read(id string) (*models.Record, error) {
	ix, err := s.loadIndex()
	if err != nil {
		return nil, err
	}
	entry, _ := ix.Find(id)
	if entry == nil {
		return nil, fmt.Errorf("%w: record %q", apperr.ErrNotFound, id)
	}
	data, err := s.fs.Read(entry.Path)
	if err != nil {
		return nil, fmt.Errorf("%w: record %q (index entry present, file unreadable)", apperr.ErrNotFound, id)
	}
	return recordfile.Parse(data)
}

// ListFilter narrows a listing.
type ListFilter struct {
	Type   models.RecordType
	Tag    string
	Limit  int
	Offset int
}

// List returns index entries matching the filter, newest update first.
// The total count before limit/offset is returned alongside.
func (s *Store) List(f ListFilter) ([]models.IndexEntry, int, error) {
	ix, err := s.loadIndex()
	if err != nil {
		return nil, 0, err
	}

	var out []models.IndexEntry
	for _, e := range ix.Entries {
		if f.Type != "" && e.Type != f.Type {
			continue
		}
		if f.Tag != "" && !hasTag(e.Tags, f.Tag) {
			continue
		}
		out = append(out, e)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].UpdatedAt.After(out[j].UpdatedAt) })

	total := len(out)
	if f.Offset > 0 {
		if f.Offset >= len(out) {
			return []models.IndexEntry{}, total, nil
		}
		out = out[f.Offset:]
	}
	if f.Limit > 0 && len(out) > f.Limit {
		out = out[:f.Limit]
	}
	return out, total, nil
}

// Delete removes a record: its index entry, its file, and every graph edge
// referencing it. A missing index entry fails with not-found and leaves
// graph and files untouched.
func (s *Store) Delete(id string) error {
	ix, err := s.loadIndex()
	if err != nil {
		return err
	}
	entry, _ := ix.Find(id)
	if entry == nil {
		return fmt.Errorf("%w: record %q", apperr.ErrNotFound, id)
	}
	path := entry.Path

	ix.Remove(id)
	if err := s.saveIndex(ix); err != nil {
		return err
	}
	if s.fs.Exists(path) {
		if err := s.fs.Delete(path); err != nil {
			return err
		}
	}

	g, err := s.loadGraph()
	if err != nil {
		return err
	}
	g.RemoveNode(id)
	return s.saveGraph(g)
}

// LinkResult reports what a link call did.
type LinkResult struct {
	Added         bool `json:"added"`
	AlreadyExists bool `json:"alreadyExists"`
}

// Link creates a directed edge between two existing records. Creating a
// duplicate (source, target, relation) triple is a no-op reported as
// already existing, never an error.
func (s *Store) Link(source, target string, rel models.Relation) (*LinkResult, error) {
	if rel == "" {
		rel = models.RelationRelatesTo
	}
	if !rel.Valid() {
		return nil, fmt.Errorf("%w: unknown relation %q", apperr.ErrValidation, rel)
	}

	ix, err := s.loadIndex()
	if err != nil {
		return nil, err
	}
	src, _ := ix.Find(source)
	if src == nil {
		return nil, fmt.Errorf("%w: record %q", apperr.ErrNotFound, source)
	}
	dst, _ := ix.Find(target)
	if dst == nil {
		return nil, fmt.Errorf("%w: record %q", apperr.ErrNotFound, target)
	}

	g, err := s.loadGraph()
	if err != nil {
		return nil, err
	}
	g.EnsureNode(src.ID, src.Title)
	g.EnsureNode(dst.ID, dst.Title)

	added := g.AddEdge(source, target, rel)
	if added {
		if err := s.saveGraph(g); err != nil {
			return nil, err
		}
	}
	return &LinkResult{Added: added, AlreadyExists: !added}, nil
}

// Unlink removes edges from source to target. Without a relation every edge
// between the pair is removed. The removed count is reported.
func (s *Store) Unlink(source, target string, rel models.Relation) (int, error) {
	if rel != "" && !rel.Valid() {
		return 0, fmt.Errorf("%w: unknown relation %q", apperr.ErrValidation, rel)
	}

	ix, err := s.loadIndex()
	if err != nil {
		return 0, err
	}
	if e, _ := ix.Find(source); e == nil {
		return 0, fmt.Errorf("%w: record %q", apperr.ErrNotFound, source)
	}
	if e, _ := ix.Find(target); e == nil {
		return 0, fmt.Errorf("%w: record %q", apperr.ErrNotFound, target)
	}

	g, err := s.loadGraph()
	if err != nil {
		return 0, err
	}
	removed := g.RemoveEdges(source, target, rel)
	if removed > 0 {
		if err := s.saveGraph(g); err != nil {
			return 0, err
		}
	}
	return removed, nil
}

// RebuildResult reports what a rebuild found.
type RebuildResult struct {
	Total          int `json:"total"`
	OrphansRemoved int `json:"orphansRemoved"`
	Discovered     int `json:"discovered"`
}

// RebuildIndex re-derives the index from the record files on disk. Entries
// whose files vanished are dropped; files never indexed are picked up.
// Surviving entries keep their index position so search tie-breaking stays
// stable. Without force, a rebuild that changes nothing skips the rewrite.
func (s *Store) RebuildIndex(force bool) (*RebuildResult, error) {
	old, err := s.loadIndex()
	if err != nil {
		// A corrupt index is exactly what a rebuild repairs.
		s.logger.Warn("rebuild: discarding unreadable index", slog.String("error", err.Error()))
		old = models.NewIndex()
	}

	metas, err := s.fs.ListRecords()
	if err != nil {
		return nil, err
	}

	onDisk := map[string]models.IndexEntry{}
	for _, m := range metas {
		data, err := s.fs.Read(m.Path)
		if err != nil {
			s.logger.Warn("rebuild: read failed", slog.String("path", m.Path), slog.String("error", err.Error()))
			continue
		}
		rec, err := recordfile.Parse(data)
		if err != nil {
			s.logger.Warn("rebuild: parse failed", slog.String("path", m.Path), slog.String("error", err.Error()))
			continue
		}
		onDisk[m.Path] = models.IndexEntry{
			ID:        rec.ID,
			Type:      rec.Type,
			Title:     rec.Title,
			Tags:      rec.Tags,
			Scope:     rec.Scope,
			Path:      m.Path,
			CreatedAt: rec.CreatedAt,
			UpdatedAt: rec.UpdatedAt,
			Severity:  rec.Severity,
		}
	}

	res := &RebuildResult{}
	fresh := models.NewIndex()
	changed := false

	// Surviving entries first, in their previous order.
	for _, e := range old.Entries {
		ne, ok := onDisk[e.Path]
		if !ok {
			res.OrphansRemoved++
			changed = true
			continue
		}
		if ne.ID != e.ID || ne.Title != e.Title || !ne.UpdatedAt.Equal(e.UpdatedAt) {
			changed = true
		}
		fresh.Entries = append(fresh.Entries, ne)
		delete(onDisk, e.Path)
	}

	// Newly discovered files, in stable path order.
	var newPaths []string
	for p := range onDisk {
		newPaths = append(newPaths, p)
	}
	sort.Strings(newPaths)
	for _, p := range newPaths {
		fresh.Entries = append(fresh.Entries, onDisk[p])
		res.Discovered++
		changed = true
	}

	res.Total = len(fresh.Entries)
	if !changed && !force {
		return res, nil
	}
	if err := s.saveIndex(fresh); err != nil {
		return nil, err
	}
	return res, nil
}

func hasTag(tags []string, want string) bool {
	for _, t := range tags {
		if t == want {
			return true
		}
	}
	return false
}
