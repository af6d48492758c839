package store

import (
	"encoding/json"
	"fmt"

	"github.com/ferrows/mnemo/internal/models"
)

// IndexFileName is the consolidated index kept at each scope root.
const IndexFileName = "index.json"

// loadIndex reads the index file, returning an empty index when the file
// does not exist yet.
func (s *Store) loadIndex() (*models.Index, error) {
	if !s.fs.Exists(IndexFileName) {
		return models.NewIndex(), nil
	}
	data, err := s.fs.Read(IndexFileName)
	if err != nil {
		return nil, fmt.Errorf("store: read index: %w", err)
	}
	var ix models.Index
	if err := json.Unmarshal(data, &ix); err != nil {
		return nil, fmt.Errorf("store: parse index: %w", err)
	}
	return &ix, nil
}

// saveIndex atomically rewrites the index file.
func (s *Store) saveIndex(ix *models.Index) error {
	ix.Version = models.IndexVersion
	data, err := json.MarshalIndent(ix, "", "  ")
	if err != nil {
		return fmt.Errorf("store: marshal index: %w", err)
	}
	if err := s.fs.Write(IndexFileName, data); err != nil {
		return fmt.Errorf("store: save index: %w", err)
	}
	return nil
}

// Index returns the current index. Exposed for search and the surfaces;
// callers must treat it as read-only.
func (s *Store) Index() (*models.Index, error) {
	return s.loadIndex()
}
