// Package testutil provides shared test helpers for setting up scopes and databases.
package testutil

import (
	"context"
	"hash/fnv"
	"log/slog"
	"math"
	"os"
	"strings"
	"testing"

	"github.com/ferrows/mnemo/internal/keyword"
	"github.com/ferrows/mnemo/internal/models"
	"github.com/ferrows/mnemo/internal/storage"
	"github.com/ferrows/mnemo/internal/store"
)

// Logger returns a quiet logger for tests.
func Logger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

// TestScope creates a temporary scope directory with a storage.Provider.
func TestScope(t *testing.T) (string, storage.Provider) {
	t.Helper()
	dir := t.TempDir()
	fs, err := storage.NewFS(dir)
	if err != nil {
		t.Fatal(err)
	}
	return dir, fs
}

// TestStore opens a store over a temporary project-tier scope directory.
func TestStore(t *testing.T) *store.Store {
	t.Helper()
	st, err := store.Open(t.TempDir(), models.TierProject, Logger())
	if err != nil {
		t.Fatal(err)
	}
	return st
}

// TestKeywordDB creates a temporary SQLite database that is automatically cleaned up.
func TestKeywordDB(t *testing.T) *keyword.DB {
	t.Helper()
	dbFile, err := os.CreateTemp("", "mnemo-test-*.db")
	if err != nil {
		t.Fatal(err)
	}
	dbFile.Close()
	t.Cleanup(func() { os.Remove(dbFile.Name()) })

	db, err := keyword.Open(dbFile.Name())
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

// WordEmbedder is a deterministic embedding provider for tests. It hashes
// whitespace-separated tokens into a fixed number of buckets, so texts
// sharing words score high on cosine similarity and disjoint texts score
// near zero. Calls counts Embed invocations.
type WordEmbedder struct {
	Dims  int
	Calls int
}

// NewWordEmbedder creates a WordEmbedder with the given dimension count.
func NewWordEmbedder(dims int) *WordEmbedder {
	return &WordEmbedder{Dims: dims}
}

// Embed hashes each lowercase token into a bucket and normalizes the result.
func (w *WordEmbedder) Embed(_ context.Context, text string) ([]float64, error) {
	w.Calls++
	vec := make([]float64, w.Dims)
	for _, tok := range strings.Fields(strings.ToLower(text)) {
		h := fnv.New32a()
		h.Write([]byte(tok))
		vec[int(h.Sum32())%w.Dims]++
	}
	var mag float64
	for _, v := range vec {
		mag += v * v
	}
	if mag > 0 {
		mag = math.Sqrt(mag)
		for i := range vec {
			vec[i] /= mag
		}
	}
	return vec, nil
}

// Dimensions reports the configured vector size.
func (w *WordEmbedder) Dimensions() int { return w.Dims }
