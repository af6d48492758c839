// Package embed caches embedding vectors per record and ranks index entries
// by cosine similarity. Embedding generation itself is delegated to an
// injected Provider; this package only caches and compares vectors.
package embed

import (
	"context"
	"fmt"
	"math"

	"github.com/ferrows/mnemo/internal/apperr"
)

// Provider converts text into an embedding vector. Implementations must be
// safe for concurrent use.
type Provider interface {
	Embed(ctx context.Context, text string) ([]float64, error)
	Dimensions() int
}

// ContentSource yields the current content of a record by id. The store
// implements this; the cache uses it to detect stale vectors.
type ContentSource interface {
	Content(id string) (string, error)
}

// Normalize scales v to unit length in place and returns it. A zero vector
// is returned unchanged, so it compares as similarity 0 against anything.
func Normalize(v []float64) []float64 {
	var sum float64
	for _, x := range v {
		sum += x * x
	}
	if sum == 0 {
		return v
	}
	mag := math.Sqrt(sum)
	for i := range v {
		v[i] /= mag
	}
	return v
}

// CosineSimilarity returns the normalized dot product of a and b.
// Vectors must be non-empty and of equal length. A zero vector on either
// side yields 0 rather than a division error.
func CosineSimilarity(a, b []float64) (float64, error) {
	if len(a) == 0 || len(b) == 0 || len(a) != len(b) {
		return 0, fmt.Errorf("%w: vector size mismatch (%d vs %d)", apperr.ErrValidation, len(a), len(b))
	}
	var dot, magA, magB float64
	for i := range a {
		dot += a[i] * b[i]
		magA += a[i] * a[i]
		magB += b[i] * b[i]
	}
	if magA == 0 || magB == 0 {
		return 0, nil
	}
	return dot / (math.Sqrt(magA) * math.Sqrt(magB)), nil
}
