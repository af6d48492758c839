// Package recordfile serializes records to their on-disk form: a YAML
// frontmatter block between --- delimiters followed by the markdown body.
package recordfile

import (
	"bytes"
	"fmt"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/ferrows/mnemo/internal/models"
)

const delim = "---"

// frontmatter is the persisted metadata block. Timestamps are kept as
// RFC 3339 strings so the files stay hand-editable.
type frontmatter struct {
	ID        string            `yaml:"id"`
	Type      models.RecordType `yaml:"type"`
	Title     string            `yaml:"title"`
	CreatedAt string            `yaml:"createdAt"`
	UpdatedAt string            `yaml:"updatedAt"`
	Tags      []string          `yaml:"tags,omitempty"`
	Scope     models.Tier       `yaml:"scope"`
	Severity  models.Severity   `yaml:"severity,omitempty"`
	Links     []string          `yaml:"links,omitempty"`
}

// Marshal renders a record into frontmatter + body bytes.
func Marshal(r *models.Record) ([]byte, error) {
	fm := frontmatter{
		ID:        r.ID,
		Type:      r.Type,
		Title:     r.Title,
		CreatedAt: r.CreatedAt.UTC().Format(time.RFC3339),
		UpdatedAt: r.UpdatedAt.UTC().Format(time.RFC3339),
		Tags:      r.Tags,
		Scope:     r.Scope,
		Severity:  r.Severity,
		Links:     r.Links,
	}
	meta, err := yaml.Marshal(&fm)
	if err != nil {
		return nil, fmt.Errorf("recordfile: marshal frontmatter: %w", err)
	}

	var b bytes.Buffer
	b.WriteString(delim + "\n")
	b.Write(meta)
	b.WriteString(delim + "\n\n")
	b.WriteString(strings.TrimRight(r.Content, "\n"))
	b.WriteString("\n")
	return b.Bytes(), nil
}

// Parse reads a record back from its on-disk form. Unlike free-form notes,
// record files are machine-written, so a missing or malformed frontmatter
// block is an error rather than a fallback.
func Parse(data []byte) (*models.Record, error) {
	trimmed := bytes.TrimLeft(data, "\n\r")
	if !bytes.HasPrefix(trimmed, []byte(delim)) {
		return nil, fmt.Errorf("recordfile: missing frontmatter delimiter")
	}

	rest := trimmed[len(delim):]
	idx := bytes.Index(rest, []byte("\n"+delim))
	if idx < 0 {
		return nil, fmt.Errorf("recordfile: unterminated frontmatter block")
	}

	var fm frontmatter
	if err := yaml.Unmarshal(rest[:idx], &fm); err != nil {
		return nil, fmt.Errorf("recordfile: parse frontmatter: %w", err)
	}

	createdAt, err := time.Parse(time.RFC3339, fm.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("recordfile: parse createdAt: %w", err)
	}
	updatedAt, err := time.Parse(time.RFC3339, fm.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("recordfile: parse updatedAt: %w", err)
	}

	body := rest[idx+1+len(delim):]
	content := strings.Trim(string(body), "\n\r")

	return &models.Record{
		ID:        fm.ID,
		Type:      fm.Type,
		Title:     fm.Title,
		CreatedAt: createdAt,
		UpdatedAt: updatedAt,
		Tags:      fm.Tags,
		Scope:     fm.Scope,
		Severity:  fm.Severity,
		Links:     fm.Links,
		Content:   content,
	}, nil
}

// Filename returns the canonical file name for a record id.
func Filename(id string) string {
	return id + ".md"
}
