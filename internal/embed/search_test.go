package embed_test

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/ferrows/mnemo/internal/apperr"
	"github.com/ferrows/mnemo/internal/checksum"
	"github.com/ferrows/mnemo/internal/embed"
	"github.com/ferrows/mnemo/internal/models"
	"github.com/ferrows/mnemo/internal/testutil"
)

// mapSource is an in-memory ContentSource.
type mapSource map[string]string

func (m mapSource) Content(id string) (string, error) {
	c, ok := m[id]
	if !ok {
		return "", fmt.Errorf("%w: record %q", apperr.ErrNotFound, id)
	}
	return c, nil
}

func testIndex(ids ...string) *models.Index {
	ix := models.NewIndex()
	now := time.Now().UTC()
	for _, id := range ids {
		var typ models.RecordType
		for _, t := range models.RecordTypes() {
			if len(id) > len(t) && id[:len(t)] == string(t) {
				typ = t
				break
			}
		}
		ix.Upsert(models.IndexEntry{
			ID:        id,
			Type:      typ,
			Title:     id,
			Scope:     models.TierProject,
			Path:      id + ".md",
			CreatedAt: now,
			UpdatedAt: now,
		})
	}
	return ix
}

func newTestSearcher(t *testing.T, src mapSource) (*embed.Searcher, *testutil.WordEmbedder) {
	t.Helper()
	_, fs := testutil.TestScope(t)
	cache, err := embed.OpenCache(fs)
	if err != nil {
		t.Fatal(err)
	}
	provider := testutil.NewWordEmbedder(64)
	return embed.NewSearcher(provider, cache, src, testutil.Logger()), provider
}

func TestSearch_RanksByOverlap(t *testing.T) {
	src := mapSource{
		"gotcha-wal":     "sqlite wal mode serializes concurrent writers",
		"decision-store": "records are stored as markdown files with yaml frontmatter",
		"learning-cache": "unrelated woodworking dovetail joints",
	}
	s, _ := newTestSearcher(t, src)
	ix := testIndex("gotcha-wal", "decision-store", "learning-cache")

	results, err := s.Search(context.Background(), ix, "sqlite wal mode serializes concurrent writers", embed.Filter{}, 0.5, 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(results) != 1 || results[0].ID != "gotcha-wal" {
		t.Fatalf("results = %+v", results)
	}
	if results[0].Score < 0.99 {
		t.Errorf("identical text score = %v, want ~1", results[0].Score)
	}
}

func TestSearch_EmptyQuery(t *testing.T) {
	s, _ := newTestSearcher(t, mapSource{})
	_, err := s.Search(context.Background(), models.NewIndex(), "   ", embed.Filter{}, 0, 0)
	if !errors.Is(err, apperr.ErrValidation) {
		t.Errorf("empty query error = %v", err)
	}
}

func TestSearch_TypeFilterAndExclude(t *testing.T) {
	src := mapSource{
		"gotcha-a":   "sqlite locking gotcha",
		"decision-b": "sqlite locking decision",
	}
	s, _ := newTestSearcher(t, src)
	ix := testIndex("gotcha-a", "decision-b")

	results, err := s.Search(context.Background(), ix, "sqlite locking",
		embed.Filter{Types: []models.RecordType{models.TypeGotcha}}, 0, 0)
	if err != nil {
		t.Fatal(err)
	}
	for _, r := range results {
		if r.Type != models.TypeGotcha {
			t.Errorf("type filter leaked %+v", r)
		}
	}

	results, err = s.Search(context.Background(), ix, "sqlite locking",
		embed.Filter{ExcludeID: "gotcha-a"}, 0, 0)
	if err != nil {
		t.Fatal(err)
	}
	for _, r := range results {
		if r.ID == "gotcha-a" {
			t.Error("excluded id present in results")
		}
	}
}

func TestSearch_LimitTruncates(t *testing.T) {
	src := mapSource{}
	var ids []string
	for i := 0; i < 8; i++ {
		id := fmt.Sprintf("learning-n%d", i)
		src[id] = "shared tokens everywhere"
		ids = append(ids, id)
	}
	s, _ := newTestSearcher(t, src)

	results, err := s.Search(context.Background(), testIndex(ids...), "shared tokens everywhere", embed.Filter{}, 0.5, 3)
	if err != nil {
		t.Fatal(err)
	}
	if len(results) != 3 {
		t.Errorf("len = %d, want 3", len(results))
	}
}

func TestSearch_ReembedsOnContentChange(t *testing.T) {
	src := mapSource{"gotcha-a": "original content"}
	s, provider := newTestSearcher(t, src)
	ix := testIndex("gotcha-a")

	if _, err := s.Search(context.Background(), ix, "anything at all", embed.Filter{}, 0, 0); err != nil {
		t.Fatal(err)
	}
	calls := provider.Calls // query + record

	// Unchanged content hits the cache: only the query is embedded.
	if _, err := s.Search(context.Background(), ix, "anything at all", embed.Filter{}, 0, 0); err != nil {
		t.Fatal(err)
	}
	if provider.Calls != calls+1 {
		t.Errorf("calls = %d, want %d (cache hit)", provider.Calls, calls+1)
	}

	// Changed content invalidates the cached vector.
	src["gotcha-a"] = "completely different words now"
	if _, err := s.Search(context.Background(), ix, "anything at all", embed.Filter{}, 0, 0); err != nil {
		t.Fatal(err)
	}
	if provider.Calls != calls+3 {
		t.Errorf("calls = %d, want %d (re-embed)", provider.Calls, calls+3)
	}
}

func TestSearch_SkipsFailingRecords(t *testing.T) {
	src := mapSource{"gotcha-a": "sqlite topic"}
	s, _ := newTestSearcher(t, src)
	// decision-gone has no content; ranking should skip it, not fail.
	ix := testIndex("gotcha-a", "decision-gone")

	results, err := s.Search(context.Background(), ix, "sqlite topic", embed.Filter{}, 0.5, 0)
	if err != nil {
		t.Fatal(err)
	}
	if len(results) != 1 || results[0].ID != "gotcha-a" {
		t.Errorf("results = %+v", results)
	}
}

func TestFindSimilarToMemory(t *testing.T) {
	src := mapSource{
		"gotcha-a": "sqlite wal locking writers",
		"gotcha-b": "sqlite wal locking readers",
		"hub-c":    "totally unrelated gardening",
	}
	s, _ := newTestSearcher(t, src)
	ix := testIndex("gotcha-a", "gotcha-b", "hub-c")

	// No cached vector yet: fails soft.
	results, err := s.FindSimilarToMemory(context.Background(), ix, "gotcha-a", 0.5, 0)
	if err != nil {
		t.Fatal(err)
	}
	if results != nil {
		t.Errorf("expected nil for uncached target, got %+v", results)
	}

	// A search populates the cache.
	if _, err := s.Search(context.Background(), ix, "warm the cache", embed.Filter{}, 0, 0); err != nil {
		t.Fatal(err)
	}

	results, err = s.FindSimilarToMemory(context.Background(), ix, "gotcha-a", 0.5, 0)
	if err != nil {
		t.Fatal(err)
	}
	if len(results) != 1 || results[0].ID != "gotcha-b" {
		t.Fatalf("results = %+v", results)
	}
}

func TestCache_Persistence(t *testing.T) {
	_, fs := testutil.TestScope(t)
	cache, err := embed.OpenCache(fs)
	if err != nil {
		t.Fatal(err)
	}
	hash := checksum.SumString("content")
	cache.Put("gotcha-a", hash, []float64{3, 4})
	if err := cache.Save(); err != nil {
		t.Fatal(err)
	}

	reopened, err := embed.OpenCache(fs)
	if err != nil {
		t.Fatal(err)
	}
	vec, ok := reopened.Get("gotcha-a", hash)
	if !ok {
		t.Fatal("vector lost across reopen")
	}
	// Put normalizes.
	if vec[0] != 0.6 || vec[1] != 0.8 {
		t.Errorf("vector = %v, want unit length", vec)
	}

	if _, ok := reopened.Get("gotcha-a", "different-hash"); ok {
		t.Error("stale hash must be a cache miss")
	}

	reopened.Forget("gotcha-a")
	if _, ok := reopened.Vector("gotcha-a"); ok {
		t.Error("vector present after Forget")
	}
}
