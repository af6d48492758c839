package api

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"strings"
	"time"

	"github.com/ferrows/mnemo/internal/apperr"
	"github.com/ferrows/mnemo/internal/checksum"
	"github.com/ferrows/mnemo/internal/embed"
	"github.com/ferrows/mnemo/internal/health"
	"github.com/ferrows/mnemo/internal/keyword"
	"github.com/ferrows/mnemo/internal/models"
	"github.com/ferrows/mnemo/internal/relevance"
	"github.com/ferrows/mnemo/internal/store"
)

// Search defaults used when a request leaves them unset.
const (
	DefaultSearchThreshold  = 0.60
	DefaultSearchLimit      = 10
	DefaultSimilarThreshold = 0.70
)

// Service coordinates the store, searcher, relevance engine, keyword mirror,
// and health validator behind the record request surface. The searcher and
// mirror are optional: without an embedding provider the semantic surfaces
// report themselves unavailable, everything else keeps working.
type Service struct {
	store    *store.Store
	searcher *embed.Searcher
	engine   *relevance.Engine
	session  *relevance.Session
	kw       *keyword.DB
	logger   *slog.Logger
}

// NewService wires the engine components together.
func NewService(st *store.Store, searcher *embed.Searcher, engine *relevance.Engine, kw *keyword.DB, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		store:    st,
		searcher: searcher,
		engine:   engine,
		session:  relevance.NewSession(),
		kw:       kw,
		logger:   logger,
	}
}

// Store exposes the underlying store (used by the watcher wiring).
func (s *Service) Store() *store.Store { return s.store }

// Session exposes the current relevance session.
func (s *Service) Session() *relevance.Session { return s.session }

// SaveRecordRequest is the write operation's input. With an empty ID a new
// one is derived from the type and a slug of the title.
type SaveRecordRequest struct {
	ID       string            `json:"id,omitempty"`
	Type     models.RecordType `json:"type"`
	Title    string            `json:"title"`
	Content  string            `json:"content"`
	Tags     []string          `json:"tags,omitempty"`
	Severity models.Severity   `json:"severity,omitempty"`
	Links    []string          `json:"links,omitempty"`
	AutoLink bool              `json:"autoLink,omitempty"`
}

// SaveRecordResponse reports the persisted id plus what the write did.
type SaveRecordResponse struct {
	ID string `json:"id"`
	store.WriteResult
}

// SaveRecord validates and persists a record, preserving the creation
// timestamp on updates.
func (s *Service) SaveRecord(ctx context.Context, req SaveRecordRequest) (*SaveRecordResponse, error) {
	id := req.ID
	if id == "" {
		id = DeriveID(req.Type, req.Title)
	}

	now := time.Now().UTC().Truncate(time.Second)
	rec := &models.Record{
		ID:        id,
		Type:      req.Type,
		Title:     req.Title,
		CreatedAt: now,
		UpdatedAt: now,
		Tags:      req.Tags,
		Severity:  req.Severity,
		Links:     req.Links,
		Content:   req.Content,
	}
	if existing, err := s.store.Read(id); err == nil {
		rec.CreatedAt = existing.CreatedAt
	}

	opts := store.WriteOptions{}
	if req.AutoLink && s.searcher != nil {
		opts.AutoLink = true
		opts.Searcher = s.searcher
	}
	res, err := s.store.Write(ctx, rec, opts)
	if err != nil {
		return nil, err
	}

	s.mirrorRecord(rec)
	return &SaveRecordResponse{ID: id, WriteResult: *res}, nil
}

// RecordDetail is a record plus its incoming graph edges.
type RecordDetail struct {
	*models.Record
	Backlinks []string `json:"backlinks"`
}

// GetRecord reads a record and enriches it with backlinks.
func (s *Service) GetRecord(id string) (*RecordDetail, error) {
	rec, err := s.store.Read(id)
	if err != nil {
		return nil, err
	}
	g, err := s.store.Graph()
	if err != nil {
		return nil, err
	}
	bl := g.Backlinks(id)
	if bl == nil {
		bl = []string{}
	}
	return &RecordDetail{Record: rec, Backlinks: bl}, nil
}

// ListRecords lists index entries with the given filter.
func (s *Service) ListRecords(f store.ListFilter) ([]models.IndexEntry, int, error) {
	return s.store.List(f)
}

// DeleteRecord removes a record, its graph edges, its cached embedding, and
// its keyword mirror row.
func (s *Service) DeleteRecord(id string) error {
	if err := s.store.Delete(id); err != nil {
		return err
	}
	if s.searcher != nil {
		s.searcher.Cache().Forget(id)
		if err := s.searcher.Cache().Save(); err != nil {
			s.logger.Warn("cache save after delete failed", slog.String("error", err.Error()))
		}
	}
	if s.kw != nil {
		if err := s.kw.Delete(id); err != nil {
			s.logger.Warn("keyword mirror delete failed", slog.String("id", id), slog.String("error", err.Error()))
		}
	}
	return nil
}

// LinkRecords creates a directed edge between two records.
func (s *Service) LinkRecords(source, target string, rel models.Relation) (*store.LinkResult, error) {
	return s.store.Link(source, target, rel)
}

// UnlinkRecords removes edges between two records.
func (s *Service) UnlinkRecords(source, target string, rel models.Relation) (int, error) {
	return s.store.Unlink(source, target, rel)
}

// SearchSemantic ranks records against a free-text query.
func (s *Service) SearchSemantic(ctx context.Context, query string, types []models.RecordType, threshold float64, limit int) ([]embed.Result, error) {
	if s.searcher == nil {
		return nil, fmt.Errorf("%w: semantic search requires an embedding provider", apperr.ErrScopeUnavailable)
	}
	if threshold == 0 {
		threshold = DefaultSearchThreshold
	}
	if limit == 0 {
		limit = DefaultSearchLimit
	}
	ix, err := s.store.Index()
	if err != nil {
		return nil, err
	}
	return s.searcher.Search(ctx, ix, query, embed.Filter{Types: types}, threshold, limit)
}

// SearchKeyword runs a keyword query against the SQLite mirror.
func (s *Service) SearchKeyword(query string, limit int) ([]keyword.Hit, error) {
	if s.kw == nil {
		return nil, fmt.Errorf("%w: keyword mirror is not configured", apperr.ErrScopeUnavailable)
	}
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, fmt.Errorf("%w: search query must not be empty", apperr.ErrValidation)
	}
	return s.kw.Search(query, limit)
}

// FindSimilar ranks records against an existing record's embedding.
func (s *Service) FindSimilar(ctx context.Context, id string, threshold float64, limit int) ([]embed.Result, error) {
	if s.searcher == nil {
		return nil, fmt.Errorf("%w: similarity search requires an embedding provider", apperr.ErrScopeUnavailable)
	}
	if threshold == 0 {
		threshold = DefaultSimilarThreshold
	}
	if limit == 0 {
		limit = DefaultSearchLimit
	}
	ix, err := s.store.Index()
	if err != nil {
		return nil, err
	}
	return s.searcher.FindSimilarToMemory(ctx, ix, id, threshold, limit)
}

// InjectContext selects relevant records for a triggering context, applying
// session de-duplication.
func (s *Service) InjectContext(ctx context.Context, trig relevance.Trigger) ([]relevance.Selection, error) {
	if s.engine == nil {
		return nil, fmt.Errorf("%w: context injection requires an embedding provider", apperr.ErrScopeUnavailable)
	}
	ix, err := s.store.Index()
	if err != nil {
		return nil, err
	}
	sels, err := s.engine.Select(ctx, ix, trig, s.session)
	if err != nil {
		return nil, err
	}
	if sels == nil {
		sels = []relevance.Selection{}
	}
	return sels, nil
}

// ResetSession clears the relevance de-dup set and returns the new session
// id.
func (s *Service) ResetSession() string {
	s.session.Reset()
	return s.session.ID()
}

// Rebuild re-derives the index from disk and resyncs the keyword mirror.
func (s *Service) Rebuild(force bool) (*store.RebuildResult, error) {
	res, err := s.store.RebuildIndex(force)
	if err != nil {
		return nil, err
	}
	s.SyncKeyword()
	return res, nil
}

// SyncKeyword brings the keyword mirror up to date. Safe to call with no
// mirror configured.
func (s *Service) SyncKeyword() {
	if s.kw == nil {
		return
	}
	if err := keyword.Sync(s.kw, s.store, s.logger); err != nil {
		s.logger.Warn("keyword sync failed", slog.String("error", err.Error()))
	}
}

// CheckHealth validates the scope directory's structural consistency.
func (s *Service) CheckHealth() (*health.Report, error) {
	return health.CheckHealth(s.store.Dir())
}

// GraphPayload is the nodes+edges export for visualization.
type GraphPayload struct {
	Nodes []models.GraphNode `json:"nodes"`
	Edges []models.GraphEdge `json:"edges"`
}

// Graph exports the link graph.
func (s *Service) Graph() (*GraphPayload, error) {
	g, err := s.store.Graph()
	if err != nil {
		return nil, err
	}
	return &GraphPayload{Nodes: g.Nodes, Edges: g.Edges}, nil
}

// mirrorRecord upserts one record into the keyword mirror, best-effort.
func (s *Service) mirrorRecord(rec *models.Record) {
	if s.kw == nil {
		return
	}
	row := keyword.Row{
		ID:        rec.ID,
		Type:      string(rec.Type),
		Title:     rec.Title,
		Tags:      rec.Tags,
		Checksum:  checksum.SumString(rec.Content),
		UpdatedAt: rec.UpdatedAt,
	}
	if err := s.kw.Upsert(row, rec.Content); err != nil {
		s.logger.Warn("keyword mirror upsert failed", slog.String("id", rec.ID), slog.String("error", err.Error()))
	}
}

var slugRe = regexp.MustCompile(`[^a-z0-9]+`)

// DeriveID builds a canonical record id from a type and title.
func DeriveID(t models.RecordType, title string) string {
	slug := slugRe.ReplaceAllString(strings.ToLower(title), "-")
	slug = strings.Trim(slug, "-")
	if slug == "" {
		slug = "untitled"
	}
	return string(t) + "-" + slug
}
