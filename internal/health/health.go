// Package health validates the structural consistency of a scope directory:
// disk, index, and graph must agree. Inconsistencies are reported as data,
// never as failures of the operations that encounter them.
package health

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/ferrows/mnemo/internal/models"
	"github.com/ferrows/mnemo/internal/recordfile"
	"github.com/ferrows/mnemo/internal/store"
)

// Severity of a single health issue.
type Severity string

const (
	SeverityWarning Severity = "warning"
	SeverityError   Severity = "error"
)

// Issue kinds.
const (
	IssueMissingIndex     = "missing-index"
	IssueMissingGraph     = "missing-graph"
	IssueOrphanNode       = "orphan-node"
	IssueSyncMismatch     = "sync-mismatch"     // index disagrees with graph or file metadata
	IssueDanglingNode     = "dangling-node"     // graph node without index entry
	IssueUnreadableRecord = "unreadable-record" // index entry whose file is gone or unparsable
)

// Issue is one detected inconsistency.
type Issue struct {
	Kind     string   `json:"kind"`
	Severity Severity `json:"severity"`
	Subject  string   `json:"subject,omitempty"`
	Message  string   `json:"message"`
}

// Stats are always reported, regardless of issues found.
type Stats struct {
	TotalMemories int `json:"totalMemories"`
	TotalEdges    int `json:"totalEdges"`
}

// Report is the result of a health check.
type Report struct {
	Status string  `json:"status"` // healthy | warning | critical
	Score  int     `json:"score"`  // 0-100
	Issues []Issue `json:"issues"`
	Stats  Stats   `json:"stats"`
}

// Severity-weighted penalties per issue.
const (
	errorPenalty   = 15
	warningPenalty = 5
)

// CheckHealth inspects a scope directory directly on disk, independent of
// any in-memory state the engine holds.
func CheckHealth(scopeDir string) (*Report, error) {
	issues := []Issue{}

	ix, ok, err := readIndex(scopeDir)
	if err != nil {
		return nil, err
	}
	if !ok {
		issues = append(issues, Issue{
			Kind:     IssueMissingIndex,
			Severity: SeverityError,
			Message:  "index file is missing; run a rebuild",
		})
		ix = models.NewIndex()
	}

	g, ok, err := readGraph(scopeDir)
	if err != nil {
		return nil, err
	}
	if !ok {
		issues = append(issues, Issue{
			Kind:     IssueMissingGraph,
			Severity: SeverityError,
			Message:  "graph file is missing",
		})
		g = models.NewGraph()
	}

	for _, e := range ix.Entries {
		if !g.HasNode(e.ID) {
			issues = append(issues, Issue{
				Kind:     IssueSyncMismatch,
				Severity: SeverityWarning,
				Subject:  e.ID,
				Message:  fmt.Sprintf("index entry %q has no graph node", e.ID),
			})
		}

		rec, err := readRecord(scopeDir, e.Path)
		if err != nil {
			issues = append(issues, Issue{
				Kind:     IssueUnreadableRecord,
				Severity: SeverityError,
				Subject:  e.ID,
				Message:  fmt.Sprintf("index entry %q: %v", e.ID, err),
			})
			continue
		}

		// The file is the source of truth; an index entry that disagrees
		// with the embedded metadata means the file was edited out of band
		// and the index was never rebuilt.
		switch {
		case rec.ID != e.ID:
			issues = append(issues, Issue{
				Kind:     IssueSyncMismatch,
				Severity: SeverityWarning,
				Subject:  e.ID,
				Message:  fmt.Sprintf("index entry %q: file %q declares id %q", e.ID, e.Path, rec.ID),
			})
		case rec.Type != e.Type:
			issues = append(issues, Issue{
				Kind:     IssueSyncMismatch,
				Severity: SeverityWarning,
				Subject:  e.ID,
				Message:  fmt.Sprintf("index entry %q: file declares type %q, index says %q", e.ID, rec.Type, e.Type),
			})
		case rec.Title != e.Title:
			issues = append(issues, Issue{
				Kind:     IssueSyncMismatch,
				Severity: SeverityWarning,
				Subject:  e.ID,
				Message:  fmt.Sprintf("index entry %q: file declares title %q, index says %q", e.ID, rec.Title, e.Title),
			})
		}
	}

	for _, n := range g.Nodes {
		if entry, _ := ix.Find(n.ID); entry == nil {
			issues = append(issues, Issue{
				Kind:     IssueDanglingNode,
				Severity: SeverityError,
				Subject:  n.ID,
				Message:  fmt.Sprintf("graph node %q has no index entry", n.ID),
			})
		}
		if g.Degree(n.ID) == 0 {
			issues = append(issues, Issue{
				Kind:     IssueOrphanNode,
				Severity: SeverityWarning,
				Subject:  n.ID,
				Message:  fmt.Sprintf("graph node %q has no incident edges", n.ID),
			})
		}
	}

	score := CalculateHealthScore(issues)
	return &Report{
		Status: statusFor(score),
		Score:  score,
		Issues: issues,
		Stats: Stats{
			TotalMemories: len(ix.Entries),
			TotalEdges:    len(g.Edges),
		},
	}, nil
}

// CalculateHealthScore starts at 100 and subtracts a severity-weighted
// penalty per issue, clamped to [0, 100]. No issues yields exactly 100.
func CalculateHealthScore(issues []Issue) int {
	score := 100
	for _, is := range issues {
		switch is.Severity {
		case SeverityError:
			score -= errorPenalty
		default:
			score -= warningPenalty
		}
	}
	if score < 0 {
		score = 0
	}
	if score > 100 {
		score = 100
	}
	return score
}

func statusFor(score int) string {
	switch {
	case score >= 90:
		return "healthy"
	case score >= 70:
		return "warning"
	default:
		return "critical"
	}
}

// readRecord loads and parses one record file relative to the scope root.
func readRecord(scopeDir, path string) (*models.Record, error) {
	data, err := os.ReadFile(filepath.Join(scopeDir, path))
	if err != nil {
		return nil, err
	}
	return recordfile.Parse(data)
}

// readIndex loads the index file directly. The second return is false when
// the file does not exist.
func readIndex(scopeDir string) (*models.Index, bool, error) {
	data, err := os.ReadFile(filepath.Join(scopeDir, store.IndexFileName))
	if os.IsNotExist(err) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("health: read index: %w", err)
	}
	var ix models.Index
	if err := json.Unmarshal(data, &ix); err != nil {
		return nil, false, fmt.Errorf("health: parse index: %w", err)
	}
	return &ix, true, nil
}

func readGraph(scopeDir string) (*models.Graph, bool, error) {
	data, err := os.ReadFile(filepath.Join(scopeDir, store.GraphFileName))
	if os.IsNotExist(err) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("health: read graph: %w", err)
	}
	var g models.Graph
	if err := json.Unmarshal(data, &g); err != nil {
		return nil, false, fmt.Errorf("health: parse graph: %w", err)
	}
	return &g, true, nil
}
