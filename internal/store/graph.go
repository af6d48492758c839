package store

import (
	"encoding/json"
	"fmt"

	"github.com/ferrows/mnemo/internal/models"
)

// GraphFileName is the link graph kept at each scope root.
const GraphFileName = "graph.json"

// loadGraph reads the graph file, returning an empty graph when the file
// does not exist yet.
func (s *Store) loadGraph() (*models.Graph, error) {
	if !s.fs.Exists(GraphFileName) {
		return models.NewGraph(), nil
	}
	data, err := s.fs.Read(GraphFileName)
	if err != nil {
		return nil, fmt.Errorf("store: read graph: %w", err)
	}
	var g models.Graph
	if err := json.Unmarshal(data, &g); err != nil {
		return nil, fmt.Errorf("store: parse graph: %w", err)
	}
	return &g, nil
}

// saveGraph atomically rewrites the graph file.
func (s *Store) saveGraph(g *models.Graph) error {
	g.Version = models.GraphVersion
	data, err := json.MarshalIndent(g, "", "  ")
	if err != nil {
		return fmt.Errorf("store: marshal graph: %w", err)
	}
	if err := s.fs.Write(GraphFileName, data); err != nil {
		return fmt.Errorf("store: save graph: %w", err)
	}
	return nil
}

// Graph returns the current graph. Callers must treat it as read-only.
func (s *Store) Graph() (*models.Graph, error) {
	return s.loadGraph()
}
